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

import (
	"strconv"
	"strings"
)

// rescHierCTE is the fixed recursive CTE text for §4.6 step 1. It is
// never templated against anything — the rule it encodes (parent_id is
// the integer parse of resc_parent, or 0 when empty; hier is the
// semicolon-joined path from root to the row) is a compile-time
// constant of the schema, not a per-query value.
const rescHierCTE = `WITH RECURSIVE T (resc_id, hier, parent_id) AS (
    SELECT r.resc_id, CAST(r.resc_name AS varchar(2700)), 0
    FROM R_RESC_MAIN r
    WHERE r.resc_parent IS NULL OR r.resc_parent = ''
    UNION ALL
    SELECT r.resc_id, CAST(T.hier || ';' || r.resc_name AS varchar(2700)), CAST(r.resc_parent AS integer)
    FROM R_RESC_MAIN r
    INNER JOIN T ON T.resc_id = CAST(r.resc_parent AS integer)
) `

const (
	adminThreshold    = 1000
	nonAdminThreshold = 1050
)

// Options is the small per-call record the public API accepts
// alongside the source string (§4.7).
type Options struct {
	Username  string
	AdminMode bool
}

// emit assembles the final SQL text in the fixed 11-step order of
// §4.6, given a resolved compileState, a resolved Select (needed for
// DISTINCT/ORDER BY/Range), and the join plan from §4.5.
func emit(sel *Select, st *compileState, joins []plannedJoin, opts Options) (string, *CompileError) {
	var b strings.Builder

	// 1. optional WITH clause
	if st.needsRescHier {
		b.WriteString(rescHierCTE)
	}

	// 2. SELECT
	b.WriteString("SELECT ")
	if sel.Distinct {
		b.WriteString("DISTINCT ")
	}
	b.WriteString(strings.Join(st.selectColumns, ", "))

	// 3. FROM
	seed := st.requiredBaseTables[0]
	b.WriteString(" FROM ")
	b.WriteString(seed)
	b.WriteString(" ")
	b.WriteString(st.tableAliases[seed])

	// 4. inner joins
	for _, j := range joins {
		b.WriteString(" INNER JOIN ")
		b.WriteString(j.table)
		b.WriteString(" ")
		b.WriteString(j.alias)
		b.WriteString(" ON ")
		b.WriteString(j.on)
	}

	hasData := st.seenBaseTable["R_DATA_MAIN"]
	hasColl := st.seenBaseTable["R_COLL_MAIN"]

	// 5. permission joins
	if hasData {
		dataAlias := st.tableAliases["R_DATA_MAIN"]
		b.WriteString(" INNER JOIN R_OBJT_ACCESS ")
		b.WriteString(aliasDataAccessObjtAccess)
		b.WriteString(" ON ")
		b.WriteString(dataAlias)
		b.WriteString(".data_id = ")
		b.WriteString(aliasDataAccessObjtAccess)
		b.WriteString(".object_id INNER JOIN R_TOKN_MAIN ")
		b.WriteString(aliasDataAccessToken)
		b.WriteString(" ON ")
		b.WriteString(aliasDataAccessObjtAccess)
		b.WriteString(".access_type_id = ")
		b.WriteString(aliasDataAccessToken)
		b.WriteString(".token_id INNER JOIN R_USER_MAIN ")
		b.WriteString(aliasDataAccessUser)
		b.WriteString(" ON ")
		b.WriteString(aliasDataAccessObjtAccess)
		b.WriteString(".user_id = ")
		b.WriteString(aliasDataAccessUser)
		b.WriteString(".user_id")
	}
	if hasColl {
		collAlias := st.tableAliases["R_COLL_MAIN"]
		b.WriteString(" INNER JOIN R_OBJT_ACCESS ")
		b.WriteString(aliasCollAccessObjtAccess)
		b.WriteString(" ON ")
		b.WriteString(collAlias)
		b.WriteString(".coll_id = ")
		b.WriteString(aliasCollAccessObjtAccess)
		b.WriteString(".object_id INNER JOIN R_TOKN_MAIN ")
		b.WriteString(aliasCollAccessToken)
		b.WriteString(" ON ")
		b.WriteString(aliasCollAccessObjtAccess)
		b.WriteString(".access_type_id = ")
		b.WriteString(aliasCollAccessToken)
		b.WriteString(".token_id INNER JOIN R_USER_MAIN ")
		b.WriteString(aliasCollAccessUser)
		b.WriteString(" ON ")
		b.WriteString(aliasCollAccessObjtAccess)
		b.WriteString(".user_id = ")
		b.WriteString(aliasCollAccessUser)
		b.WriteString(".user_id")
	}

	// 6. metadata joins
	writeMetaJoin(&b, st.needsMetaData, "d", "R_DATA_MAIN", "data_id", st.tableAliases["R_DATA_MAIN"], aliasMetaData)
	writeMetaJoin(&b, st.needsMetaColl, "c", "R_COLL_MAIN", "coll_id", st.tableAliases["R_COLL_MAIN"], aliasMetaColl)
	writeMetaJoin(&b, st.needsMetaResc, "r", "R_RESC_MAIN", "resc_id", st.tableAliases["R_RESC_MAIN"], aliasMetaResc)
	writeMetaJoin(&b, st.needsMetaUser, "u", "R_USER_MAIN", "user_id", st.tableAliases["R_USER_MAIN"], aliasMetaUser)

	// 7. resource hierarchy join
	if st.needsRescHier {
		rescAlias := st.tableAliases["R_RESC_MAIN"]
		b.WriteString(" INNER JOIN T ON T.resc_id = ")
		b.WriteString(rescAlias)
		b.WriteString(".resc_id")
	}

	// 8. WHERE
	permPredicate, permBindings := permissionPredicate(hasData, hasColl, opts)
	st.permPredicateEmpty = permPredicate == ""
	switch {
	case st.whereText != "" && permPredicate != "":
		b.WriteString(" WHERE ")
		b.WriteString(st.whereText)
		b.WriteString(" AND ")
		b.WriteString(permPredicate)
	case st.whereText != "":
		b.WriteString(" WHERE ")
		b.WriteString(st.whereText)
	case permPredicate != "":
		b.WriteString(" WHERE ")
		b.WriteString(permPredicate)
	}
	st.boundValues = append(st.boundValues, permBindings...)

	// 9. ORDER BY
	if len(sel.Order.Expressions) > 0 {
		parts := make([]string, 0, len(sel.Order.Expressions))
		for _, se := range sel.Order.Expressions {
			text, err := resolveOrderByColumn(st, se.Column)
			if err != nil {
				return "", err
			}
			dir := "ASC"
			if !se.Ascending {
				dir = "DESC"
			}
			parts = append(parts, text+" "+dir)
		}
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(parts, ", "))
	}

	// 10. OFFSET
	if sel.Range.Offset != "" {
		n, err := validateRangeValue(sel.Range.Offset, sel.Range.OffsetPos)
		if err != nil {
			return "", err
		}
		b.WriteString(" OFFSET ")
		b.WriteString(strconv.Itoa(n))
	}

	// 11. FETCH
	if sel.Range.NumberOfRows != "" {
		n, err := validateRangeValue(sel.Range.NumberOfRows, sel.Range.NumberRowsPos)
		if err != nil {
			return "", err
		}
		b.WriteString(" FETCH FIRST ")
		b.WriteString(strconv.Itoa(n))
		b.WriteString(" ROWS ONLY")
	}

	return b.String(), nil
}

func writeMetaJoin(b *strings.Builder, needed bool, family, entityTable, entityIDCol, entityAlias, metaAlias string) {
	if !needed {
		return
	}
	ommAlias := "omm" + family
	b.WriteString(" LEFT JOIN R_OBJT_METAMAP ")
	b.WriteString(ommAlias)
	b.WriteString(" ON ")
	b.WriteString(entityAlias)
	b.WriteString(".")
	b.WriteString(entityIDCol)
	b.WriteString(" = ")
	b.WriteString(ommAlias)
	b.WriteString(".object_id LEFT JOIN R_META_MAIN ")
	b.WriteString(metaAlias)
	b.WriteString(" ON ")
	b.WriteString(ommAlias)
	b.WriteString(".meta_id = ")
	b.WriteString(metaAlias)
	b.WriteString(".meta_id")
}

// permissionPredicate builds the WHERE subclause of §4.6 step 8 and
// the bindings it appends (invoking user, once per entity present,
// only when not admin).
func permissionPredicate(hasData, hasColl bool, opts Options) (string, []string) {
	threshold := nonAdminThreshold
	if opts.AdminMode {
		threshold = adminThreshold
	}
	th := strconv.Itoa(threshold)

	var clauses []string
	var bindings []string

	if hasData {
		if !opts.AdminMode {
			clauses = append(clauses, aliasDataAccessUser+".user_name = ?")
			bindings = append(bindings, opts.Username)
		}
	}
	if hasColl {
		if !opts.AdminMode {
			clauses = append(clauses, aliasCollAccessUser+".user_name = ?")
			bindings = append(bindings, opts.Username)
		}
	}
	if hasData {
		clauses = append(clauses, aliasDataAccessObjtAccess+".access_type_id >= "+th)
	}
	if hasColl {
		clauses = append(clauses, aliasCollAccessObjtAccess+".access_type_id >= "+th)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return strings.Join(clauses, " AND "), bindings
}

// resolveOrderByColumn resolves an ORDER BY column against the
// already-populated compileState, without mutating it: a sort-only
// special column whose auxiliary joins were never requested by the
// SELECT/WHERE visit is UnknownColumnInOrderBy, not a silently-added
// join (§9's open question, resolved in favor of an error).
func resolveOrderByColumn(st *compileState, col Column) (string, *CompileError) {
	mapping, ok := columnNameMappings[col.Name]
	if !ok {
		return "", newError(UnknownColumnInOrderBy, col.Pos, col.Name, "unknown column %q", col.Name)
	}

	kind := classify(col.Name)
	var alias string
	if kind != notSpecial {
		if !specialAlreadyNeeded(st, kind) {
			return "", newError(UnknownColumnInOrderBy, col.Pos, col.Name, "column %q requires joins not added by the SELECT/WHERE clauses", col.Name)
		}
		alias = aliasForRef(kind, "")
	} else {
		a, ok := st.tableAliases[mapping.physicalTable]
		if !ok {
			return "", newError(UnknownColumnInOrderBy, col.Pos, col.Name, "column %q requires a table not added by the SELECT/WHERE clauses", col.Name)
		}
		alias = a
	}

	castType := col.CastType
	if castType == "" {
		for _, ref := range st.astColumnRefs {
			if ref.Name == col.Name && ref.CastType != "" {
				castType = ref.CastType
				break
			}
		}
	}

	text := alias + "." + mapping.physicalColumn
	if castType != "" {
		text = "CAST(" + text + " AS " + castType + ")"
	}
	return text, nil
}

func specialAlreadyNeeded(st *compileState, kind specialKind) bool {
	switch kind {
	case specialMetaData:
		return st.needsMetaData
	case specialMetaColl:
		return st.needsMetaColl
	case specialMetaResc:
		return st.needsMetaResc
	case specialMetaUser:
		return st.needsMetaUser
	case specialDataAccessPermName, specialDataAccessUserName, specialDataAccessOther:
		return st.needsDataPerms
	case specialCollAccessPermName, specialCollAccessUserName, specialCollAccessOther:
		return st.needsCollPerms
	case specialRescHier:
		return st.needsRescHier
	default:
		return false
	}
}

// validateRangeValue parses an OFFSET/FETCH FIRST operand as a
// non-negative integer at emission time, per §3's Range comment and
// supplemented-feature point 5.
func validateRangeValue(s string, pos int) (int, *CompileError) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, newError(InvalidRangeValue, pos, s, "range value %q must be a non-negative integer", s)
	}
	return n, nil
}
