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

import "strings"

// resolve walks the parsed Select once, resolving every logical column
// against the catalog, classifying special columns, allocating
// aliases, and recording bound literals in visit order (§4.4). It
// mutates and returns the compileState the planner and emitter read
// afterward.
func resolve(sel *Select) (*compileState, *CompileError) {
	st := newCompileState()

	st.inSelectClause = true
	for _, s := range sel.Selections {
		text, err := resolveSelection(st, s)
		if err != nil {
			return nil, err
		}
		st.selectColumns = append(st.selectColumns, text)
	}
	st.inSelectClause = false

	if sel.Where != nil {
		text, err := resolveConditions(st, sel.Where)
		if err != nil {
			return nil, err
		}
		st.whereText = text
	}

	return st, nil
}

func resolveSelection(st *compileState, s Selection) (string, *CompileError) {
	switch v := s.(type) {
	case Column:
		return resolveColumnRef(st, &v)
	case SelectFunction:
		if !st.inSelectClause {
			return "", newError(AggregateInWhereClause, v.Pos, v.Name, "aggregate functions may only appear in the SELECT list")
		}
		colText, err := resolveColumnRef(st, &v.Column)
		if err != nil {
			return "", err
		}
		text := v.Name + "(" + colText + ")"
		return text, nil
	default:
		return "", newError(ParseError, 0, "", "unrecognized selection node")
	}
}

// resolveColumnRef resolves one Column reference to its emitted SQL
// text, classifying it as special or ordinary (§4.4 steps 1-5). The
// caller is responsible for appending the result to select_columns
// (so an aggregate can wrap the inner column's text first); a
// reference visited outside the SELECT clause is appended here to
// where_columns for inspection, per §3.
func resolveColumnRef(st *compileState, col *Column) (string, *CompileError) {
	name := col.Name
	mapping, ok := columnNameMappings[name]
	if !ok {
		return "", newError(UnknownColumn, col.Pos, name, "unknown column %q", name)
	}
	st.astColumnRefs = append(st.astColumnRefs, col)

	kind := classify(name)
	var alias string
	if kind != notSpecial {
		markSpecialNeeded(st, kind)
		if forced := forceAddTable(kind); forced != "" {
			st.ensureBaseTable(forced)
		}
		alias = aliasForRef(kind, "")
	} else {
		alias = st.ensureBaseTable(mapping.physicalTable)
	}

	text := alias + "." + mapping.physicalColumn
	if col.CastType != "" {
		text = "CAST(" + text + " AS " + col.CastType + ")"
	}

	if st.inSelectClause {
		// select_columns is appended by the caller (resolve/
		// resolveSelection) once the full text — including any
		// aggregate wrapper — is known.
	} else {
		st.whereColumns = append(st.whereColumns, text)
	}
	return text, nil
}

func markSpecialNeeded(st *compileState, kind specialKind) {
	switch kind {
	case specialMetaData:
		st.needsMetaData = true
	case specialMetaColl:
		st.needsMetaColl = true
	case specialMetaResc:
		st.needsMetaResc = true
	case specialMetaUser:
		st.needsMetaUser = true
	case specialDataAccessPermName, specialDataAccessUserName, specialDataAccessOther:
		st.needsDataPerms = true
	case specialCollAccessPermName, specialCollAccessUserName, specialCollAccessOther:
		st.needsCollPerms = true
	case specialRescHier:
		st.needsRescHier = true
	}
}

// resolveConditions renders the full WHERE clause text and appends
// each literal to bound_values in left-to-right visitation order
// (§4.4's operator table; ordering is the observable contract of §5).
func resolveConditions(st *compileState, c *Conditions) (string, *CompileError) {
	var b strings.Builder
	first, err := resolveCondTerm(st, c.First)
	if err != nil {
		return "", err
	}
	b.WriteString(first)
	for _, r := range c.Rest {
		term, err := resolveCondTerm(st, r.Term)
		if err != nil {
			return "", err
		}
		if r.Conjunction == conjOr {
			b.WriteString(" OR ")
		} else {
			b.WriteString(" AND ")
		}
		b.WriteString(term)
	}
	return b.String(), nil
}

func resolveCondTerm(st *compileState, t *CondTerm) (string, *CompileError) {
	switch {
	case t.Node.Not != nil:
		inner, err := resolveCondTerm(st, t.Node.Not)
		if err != nil {
			return "", err
		}
		return "NOT " + inner, nil
	case t.Node.Group != nil:
		inner, err := resolveConditions(st, t.Node.Group)
		if err != nil {
			return "", err
		}
		return "(" + inner + ")", nil
	case t.Node.Leaf != nil:
		return resolveCondition(st, t.Node.Leaf)
	default:
		return "", newError(ParseError, 0, "", "empty condition node")
	}
}

func resolveCondition(st *compileState, cond *Condition) (string, *CompileError) {
	colText, err := resolveColumnRef(st, &cond.Column)
	if err != nil {
		return "", err
	}

	switch cond.Expr.Kind {
	case CondEq:
		st.boundValues = append(st.boundValues, cond.Expr.Values[0])
		return colText + " = ?", nil
	case CondNeq:
		st.boundValues = append(st.boundValues, cond.Expr.Values[0])
		return colText + " != ?", nil
	case CondLt:
		st.boundValues = append(st.boundValues, cond.Expr.Values[0])
		return colText + " < ?", nil
	case CondLte:
		st.boundValues = append(st.boundValues, cond.Expr.Values[0])
		return colText + " <= ?", nil
	case CondGt:
		st.boundValues = append(st.boundValues, cond.Expr.Values[0])
		return colText + " > ?", nil
	case CondGte:
		st.boundValues = append(st.boundValues, cond.Expr.Values[0])
		return colText + " >= ?", nil
	case CondLike:
		st.boundValues = append(st.boundValues, cond.Expr.Values[0])
		return colText + " LIKE ?", nil
	case CondBetween:
		st.boundValues = append(st.boundValues, cond.Expr.Values[0], cond.Expr.Values[1])
		return colText + " BETWEEN ? AND ?", nil
	case CondIn:
		placeholders := strings.Repeat("?, ", len(cond.Expr.Values))
		placeholders = strings.TrimSuffix(placeholders, ", ")
		st.boundValues = append(st.boundValues, cond.Expr.Values...)
		return colText + " IN (" + placeholders + ")", nil
	case CondIsNull:
		return colText + " IS NULL", nil
	case CondIsNotNull:
		return colText + " IS NOT NULL", nil
	default:
		return "", newError(ParseError, cond.Expr.Pos, "", "unrecognized condition expression kind")
	}
}
