// Copyright 2025 Google LLC
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package parameters carries the ordered, positional bound values that
// accompany a parameterized SQL statement from the genquery compiler
// through to a database/sql Query call.
package parameters

// ParamValues is an ordered list of values bound to the `?` placeholders
// of a compiled statement, in source order.
type ParamValues []any

// AsSlice returns the values as a plain []any suitable for passing as the
// variadic args of database/sql's QueryContext/ExecContext.
func (p ParamValues) AsSlice() []any {
	if p == nil {
		return nil
	}
	out := make([]any, len(p))
	copy(out, p)
	return out
}
