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
	"strings"

	"github.com/davecgh/go-spew/spew"
)

// String lists every reachable block in reverse post-order.
func (self *CFG) String() string {
	buf := []string{fmt.Sprintf("func %s {", self.Name)}
	for _, bb := range self.Blocks() {
		buf = append(buf, bb.String())
	}
	buf = append(buf, "}")
	return strings.Join(buf, "\n")
}

// DumpDot renders the CFG in Graphviz dot form, for eyeballing pass
// output during debugging.
func (self *CFG) DumpDot() string {
	esc := strings.NewReplacer(
		"\\", "\\\\",
		"\"", "\\\"",
		"\n", "\\l",
		"{", "\\{",
		"}", "\\}",
	)
	buf := []string{fmt.Sprintf("digraph %q {", self.Name)}
	buf = append(buf, `    node [fontname="monospace",shape=box]`)

	for _, bb := range self.Blocks() {
		buf = append(buf, fmt.Sprintf(`    bb_%d [label="%s\l"]`, bb.Id, esc.Replace(bb.String())))
		for it := bb.Term.Successors(); it.Next(); {
			if v, ok := it.Value(); ok {
				buf = append(buf, fmt.Sprintf(`    bb_%d -> bb_%d [label="%d"]`, bb.Id, it.Block().Id, v))
			} else {
				buf = append(buf, fmt.Sprintf(`    bb_%d -> bb_%d`, bb.Id, it.Block().Id))
			}
		}
	}

	buf = append(buf, "}")
	return strings.Join(buf, "\n")
}

var debugConf = spew.ConfigState{
	Indent:                  "    ",
	SortKeys:                true,
	DisableMethods:          true,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	MaxDepth:                4,
}

// Sdump dumps the raw instruction structures of every block, for test
// failure output where String() hides too much.
func (self *CFG) Sdump() string {
	buf := []string(nil)
	for _, bb := range self.Blocks() {
		buf = append(buf, fmt.Sprintf("bb_%d:", bb.Id))
		buf = append(buf, debugConf.Sdump(bb.Ins))
	}
	return strings.Join(buf, "\n")
}
