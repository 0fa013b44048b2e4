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

// compileState is the per-compilation scratch record owned by the
// resolver and consumed by the planner/emitter (§3). It is created
// fresh inside Compile, never stored on any package-level variable,
// and discarded when Compile returns — two goroutines compiling
// concurrently never share one of these.
type compileState struct {
	inSelectClause bool

	// requiredBaseTables preserves insertion order: element 0 is the
	// FROM seed (§3 invariant 4).
	requiredBaseTables []string
	seenBaseTable      map[string]bool

	// tableAliases holds only ordinary base-table aliases (t0, t1, …);
	// the auxiliary families use the fixed literal aliases in catalog.go.
	tableAliases map[string]string
	aliasCounter int

	selectColumns []string
	whereColumns  []string
	whereText     string
	boundValues   []string

	needsMetaData bool
	needsMetaColl bool
	needsMetaResc bool
	needsMetaUser bool

	needsDataPerms bool
	needsCollPerms bool

	needsRescHier bool

	// permPredicateEmpty records whether §4.6 step 8 found no
	// permission-bearing entity table (R_DATA_MAIN/R_COLL_MAIN) to
	// scope against, so the caller can decide whether to audit it.
	permPredicateEmpty bool

	// astColumnRefs remembers every Column node visited, so ORDER BY
	// can recover a matching column's CastType (§3).
	astColumnRefs []*Column
}

func newCompileState() *compileState {
	return &compileState{
		seenBaseTable: make(map[string]bool),
		tableAliases:  make(map[string]string),
	}
}

// ensureBaseTable appends table to requiredBaseTables (if not already
// present) and allocates a fresh ordinary alias for it. It returns the
// table's alias either way.
func (s *compileState) ensureBaseTable(table string) string {
	if alias, ok := s.tableAliases[table]; ok {
		return alias
	}
	alias := s.newAlias()
	s.tableAliases[table] = alias
	s.requiredBaseTables = append(s.requiredBaseTables, table)
	s.seenBaseTable[table] = true
	return alias
}

func (s *compileState) newAlias() string {
	a := formatAlias(s.aliasCounter)
	s.aliasCounter++
	return a
}

func formatAlias(n int) string {
	// t0, t1, t2, … — no generated alias ever needs more than decimal
	// digits, and this never runs on user-controlled input.
	digits := itoa(n)
	return "t" + digits
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// aliasForRef returns the alias a resolved Column reference renders
// against: the fixed literal for a special column, or the ordinary
// base-table alias otherwise.
func aliasForRef(kind specialKind, ordinaryAlias string) string {
	switch kind {
	case specialMetaData:
		return aliasMetaData
	case specialMetaColl:
		return aliasMetaColl
	case specialMetaResc:
		return aliasMetaResc
	case specialMetaUser:
		return aliasMetaUser
	case specialDataAccessPermName:
		return aliasDataAccessToken
	case specialDataAccessUserName:
		return aliasDataAccessUser
	case specialDataAccessOther:
		return aliasDataAccessObjtAccess
	case specialCollAccessPermName:
		return aliasCollAccessToken
	case specialCollAccessUserName:
		return aliasCollAccessUser
	case specialCollAccessOther:
		return aliasCollAccessObjtAccess
	case specialRescHier:
		return aliasRescHier
	default:
		return ordinaryAlias
	}
}

// forceAddTable is the base table the classification of a special
// column forces into requiredBaseTables (§4.4 step 3), distinct from
// the auxiliary table the column itself physically lives in.
func forceAddTable(kind specialKind) string {
	switch kind {
	case specialMetaData, specialDataAccessPermName, specialDataAccessUserName, specialDataAccessOther:
		return "R_DATA_MAIN"
	case specialMetaColl, specialCollAccessPermName, specialCollAccessUserName, specialCollAccessOther:
		return "R_COLL_MAIN"
	case specialMetaResc, specialRescHier:
		return "R_RESC_MAIN"
	case specialMetaUser:
		return "R_USER_MAIN"
	default:
		return ""
	}
}
