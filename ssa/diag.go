/*
 * Copyright 2025 CloudWeGo Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package ssa

import (
	"fmt"
)

// Pos is a source location anchor. The zero value marks compiler-generated
// code that must never be reported to the user.
type Pos struct {
	File string
	Line int
	Col  int
}

func (self Pos) IsValid() bool {
	return self.Line > 0
}

func (self Pos) String() string {
	if !self.IsValid() {
		return "<generated>"
	}
	return fmt.Sprintf("%s:%d:%d", self.File, self.Line, self.Col)
}

type DiagKind uint8

const (
	WarnUnreachableCode DiagKind = iota + 1
)

func (self DiagKind) String() string {
	switch self {
	case WarnUnreachableCode:
		return "unreachable code"
	default:
		panic("unreachable")
	}
}

// Diagnostic is one (location, kind) pair emitted by the optimizer. Text
// formatting belongs to the consumer.
type Diagnostic struct {
	Pos  Pos
	Kind DiagKind
}

// DiagSink consumes diagnostics. Implementations must tolerate being
// called multiple times per pass run; deduplication per reported block is
// done by the emitting pass.
type DiagSink interface {
	Report(d Diagnostic)
}

type discardSink struct{}

func (discardSink) Report(Diagnostic) {}

// DiscardDiags drops every diagnostic, the default sink.
var DiscardDiags DiagSink = discardSink{}

// reportDead emits the unreachable-code warning for a block that lost its
// last viable path from the entry, at most once per block.
func (self *CFG) reportDead(bb *BasicBlock) {
	if !bb.Src.IsValid() || self.reported[bb.Id] {
		return
	}
	self.reported[bb.Id] = true
	self.Diag.Report(Diagnostic{
		Pos:  bb.Src,
		Kind: WarnUnreachableCode,
	})
}
