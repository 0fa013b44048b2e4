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

// tokenKind enumerates the lexical token vocabulary of §4.1.
type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent          // column identifier, e.g. DATA_NAME
	tokString         // 'single quoted'
	tokInt            // bare integer literal

	// keywords
	tokSelect
	tokDistinct
	tokWhere
	tokAnd
	tokOr
	tokNot
	tokLike
	tokIn
	tokBetween
	tokIs
	tokNull
	tokOrder
	tokBy
	tokAsc
	tokDesc
	tokOffset
	tokFetch
	tokFirst
	tokRows
	tokOnly
	tokCast
	tokAs

	// aggregate names
	tokCount
	tokSum
	tokAvg
	tokMin
	tokMax

	// operators and punctuators
	tokEq
	tokNeq
	tokLt
	tokLte
	tokGt
	tokGte
	tokComma
	tokLParen
	tokRParen
)

var keywords = map[string]tokenKind{
	"SELECT":   tokSelect,
	"DISTINCT": tokDistinct,
	"WHERE":    tokWhere,
	"AND":      tokAnd,
	"OR":       tokOr,
	"NOT":      tokNot,
	"LIKE":     tokLike,
	"IN":       tokIn,
	"BETWEEN":  tokBetween,
	"IS":       tokIs,
	"NULL":     tokNull,
	"ORDER":    tokOrder,
	"BY":       tokBy,
	"ASC":      tokAsc,
	"DESC":     tokDesc,
	"OFFSET":   tokOffset,
	"FETCH":    tokFetch,
	"FIRST":    tokFirst,
	"ROWS":     tokRows,
	"ONLY":     tokOnly,
	"CAST":     tokCast,
	"AS":       tokAs,
	"COUNT":    tokCount,
	"SUM":      tokSum,
	"AVG":      tokAvg,
	"MIN":      tokMin,
	"MAX":      tokMax,
}

// aggregateNames is the set of SelectFunction names the parser accepts.
var aggregateNames = map[tokenKind]string{
	tokCount: "COUNT",
	tokSum:   "SUM",
	tokAvg:   "AVG",
	tokMin:   "MIN",
	tokMax:   "MAX",
}

// token is one lexical unit, with its source position for diagnostics.
type token struct {
	kind tokenKind
	text string // identifier/keyword text, string literal content (unescaped), or integer text
	pos  int    // byte offset into the source where this token starts
}
