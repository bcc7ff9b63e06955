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

package opal

import (
	"fmt"

	"github.com/cloudwego/opal/internal/opts"
	"github.com/cloudwego/opal/ssa"
)

// Option is the property setter function for opts.Options.
type Option func(*opts.Options)

// WithMaxPassIterations caps the pass-manager fixed-point loop.
//
// The optimizer normally converges well before the cap; the cap is a
// safety valve against non-terminating rewrite cycles, not a tuning knob.
//
// This value can also be configured with the `OPAL_MAX_PASS_ITERS`
// environment variable. The default value of this option is "20".
func WithMaxPassIterations(n int) Option {
	if n < 1 {
		panic(fmt.Sprintf("opal: invalid pass iteration cap: %d", n))
	} else {
		return func(o *opts.Options) { o.MaxPassIterations = n }
	}
}

// WithMaxPassRuns caps the total number of individual pass invocations
// across the whole pipeline, a bisection aid for isolating a miscompiling
// pass.
//
// Set this option to "0" disables the limit, which is the default. It can
// also be configured with the `OPAL_MAX_PASS_RUNS` environment variable.
func WithMaxPassRuns(n int) Option {
	if n < 0 {
		panic(fmt.Sprintf("opal: invalid pass run cap: %d", n))
	} else {
		return func(o *opts.Options) { o.MaxPassRuns = n }
	}
}

// WithDiagnostics routes unreachable-code warnings to sink instead of
// discarding them.
func WithDiagnostics(sink ssa.DiagSink) Option {
	if sink == nil {
		panic("opal: nil diagnostics sink")
	} else {
		return func(o *opts.Options) { o.Diagnostics = sink }
	}
}
