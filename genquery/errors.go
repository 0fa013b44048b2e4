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

package genquery

import "fmt"

// ErrorKind classifies why a compilation failed (§4.8).
type ErrorKind int

const (
	LexError ErrorKind = iota
	ParseError
	UnknownColumn
	UnknownColumnInOrderBy
	AggregateInWhereClause
	UnjoinableTables
	EmptySelectionList
	InvalidRangeValue
)

func (k ErrorKind) String() string {
	switch k {
	case LexError:
		return "LexError"
	case ParseError:
		return "ParseError"
	case UnknownColumn:
		return "UnknownColumn"
	case UnknownColumnInOrderBy:
		return "UnknownColumnInOrderBy"
	case AggregateInWhereClause:
		return "AggregateInWhereClause"
	case UnjoinableTables:
		return "UnjoinableTables"
	case EmptySelectionList:
		return "EmptySelectionList"
	case InvalidRangeValue:
		return "InvalidRangeValue"
	default:
		return "UnknownErrorKind"
	}
}

// CompileError is the only error type a compilation can return. It is
// always an agent-facing mistake in the GenQuery source text, never a
// transport or backend failure — those are reported by the caller that
// executes the compiled SQL, not by this package.
type CompileError struct {
	Kind       ErrorKind
	Message    string
	Position   int    // byte offset into the source the error refers to, 0 if not applicable
	Identifier string // the offending token/column name, if any
}

func (e *CompileError) Error() string {
	if e.Identifier != "" {
		return fmt.Sprintf("%s: %s: %q (at %d)", e.Kind, e.Message, e.Identifier, e.Position)
	}
	return fmt.Sprintf("%s: %s (at %d)", e.Kind, e.Message, e.Position)
}

func newError(kind ErrorKind, pos int, identifier, format string, args ...any) *CompileError {
	return &CompileError{
		Kind:       kind,
		Message:    fmt.Sprintf(format, args...),
		Position:   pos,
		Identifier: identifier,
	}
}
