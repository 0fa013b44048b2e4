// Copyright 2024 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package genquery compiles the GenQuery surface language into a
// parameterized SQL SELECT statement against a fixed relational
// catalog. A compilation is a pure function over its source string
// and options: no I/O, no shared mutable state, nothing to cancel.
// Concurrent compilations are safe because each owns its own
// compileState (state.go) and the schema catalog (catalog.go) never
// changes after program start.
package genquery

// CompileResult is the successful output of Compile: the emitted SQL
// text and its bound values, in the order the placeholders appear.
type CompileResult struct {
	SQL         string
	BoundValues []string

	// NoPermissionPredicate is true when the compiled statement touches
	// neither R_DATA_MAIN nor R_COLL_MAIN, so §4.6 step 8 appended no
	// permission predicate at all. The compiler stays silent about
	// this on purpose (§5: no I/O in a compilation); it's up to the
	// caller to decide whether that's worth logging.
	NoPermissionPredicate bool
}

// LastBoundValues returns the compilation's bound-value list. It exists
// as a method, not a package-level accessor over shared state, so
// concurrent Compile calls never race on a "last compiled" variable —
// the scratch-state anti-pattern §9 explicitly calls out.
func (r *CompileResult) LastBoundValues() []string {
	return r.BoundValues
}

// Compile translates source (a GenQuery statement) into SQL, scoped
// by opts (the invoking user's identity and admin_mode). It returns a
// *CompileError — never a generic error — on any failure; the same
// (source, opts) pair always produces byte-identical output or the
// same error, since nothing about compilation is time- or
// environment-dependent.
func Compile(source string, opts Options) (*CompileResult, *CompileError) {
	sel, err := parse(source)
	if err != nil {
		return nil, err
	}

	st, err := resolve(sel)
	if err != nil {
		return nil, err
	}

	joins, err := planJoins(st)
	if err != nil {
		return nil, err
	}

	sql, err := emit(sel, st, joins, opts)
	if err != nil {
		return nil, err
	}

	return &CompileResult{SQL: sql, BoundValues: st.boundValues, NoPermissionPredicate: st.permPredicateEmpty}, nil
}
