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

// The schema catalog is a compile-time constant table: the four entity
// tables the join planner is allowed to route through, the edges
// between them, and the logical-to-physical column dictionary. None of
// this is mutated at runtime; every compilation shares the same catalog
// and owns only its own scratch state (see state.go).

// Vertex ids into tableNames/the join graph. Only these four tables
// ever participate in the general join graph — the metadata,
// permission, and hierarchy auxiliary tables are reached exclusively
// through the fixed join sequences the emitter hardcodes (§4.6), never
// through table_edges.
const (
	vertexDataMain = iota
	vertexCollMain
	vertexRescMain
	vertexUserMain
)

// tableNames is the vertex table: index is the vertex id.
var tableNames = [...]string{
	vertexDataMain: "R_DATA_MAIN",
	vertexCollMain: "R_COLL_MAIN",
	vertexRescMain: "R_RESC_MAIN",
	vertexUserMain: "R_USER_MAIN",
}

// tableEdge is one undirected join-graph edge with its ON-clause
// template. The template has two positional slots rendered with
// (lhsAlias, rhsAlias); the template is symmetric, so it is equally
// valid rendered in either direction.
type tableEdge struct {
	u, v     int
	template string
}

// tableEdges is the static edge table. A data object belongs to
// exactly one collection (coll_id) and is stored on exactly one
// resource (resc_id); those are the only two joinable relationships
// among the four entity tables this catalog recognizes. DATA_MAIN/
// COLL_MAIN and USER_MAIN are deliberately NOT edged to each other:
// ownership is recorded by name, not by foreign key, in this schema,
// so a query that needs to filter by owner alongside a user-family
// metadata column has no legal join path — that's an UnjoinableTables
// failure, not a gap in this table.
var tableEdges = [...]tableEdge{
	{u: vertexDataMain, v: vertexCollMain, template: "{0}.coll_id = {1}.coll_id"},
	{u: vertexDataMain, v: vertexRescMain, template: "{0}.resc_id = {1}.resc_id"},
}

// vertexOf maps a physical table name to its vertex id. Linear scan is
// fine: the vertex table has four entries.
func vertexOf(table string) (int, bool) {
	for i, n := range tableNames {
		if n == table {
			return i, true
		}
	}
	return 0, false
}

// findEdge returns the join template between two physical tables and
// whether the two table names are adjacent in the catalog, without
// rendering it against any alias yet. Both tableEdges templates use
// the same physical column name on either side (coll_id/coll_id,
// resc_id/resc_id), so which vertex was recorded as u or v never
// matters: the template always renders (from, to) in that order.
func findEdge(from, to string) (tmpl string, ok bool) {
	fv, ok1 := vertexOf(from)
	tv, ok2 := vertexOf(to)
	if !ok1 || !ok2 {
		return "", false
	}
	for _, e := range tableEdges {
		if (e.u == fv && e.v == tv) || (e.u == tv && e.v == fv) {
			return e.template, true
		}
	}
	return "", false
}

// renderEdge renders a join template with the two alias strings for
// (from, to) order. This is the two-slot substitution primitive §9
// calls for: templates only ever receive generated aliases, never
// user data, so a general printf-style formatter would be the wrong
// tool for it.
func renderEdge(from, to, fromAlias, toAlias string) (string, bool) {
	tmpl, ok := findEdge(from, to)
	if !ok {
		return "", false
	}
	return renderTemplate(tmpl, fromAlias, toAlias), true
}

// renderTemplate substitutes the two positional slots "{0}" and "{1}"
// in a join template with the given alias strings.
func renderTemplate(template, slot0, slot1 string) string {
	out := make([]byte, 0, len(template)+len(slot0)+len(slot1))
	for i := 0; i < len(template); i++ {
		if template[i] == '{' && i+2 < len(template) && template[i+2] == '}' {
			switch template[i+1] {
			case '0':
				out = append(out, slot0...)
				i += 2
				continue
			case '1':
				out = append(out, slot1...)
				i += 2
				continue
			}
		}
		out = append(out, template[i])
	}
	return string(out)
}

// specialKind classifies a logical column that needs an auxiliary join
// the graph planner cannot synthesize (§4.4 step 3).
type specialKind int

const (
	notSpecial specialKind = iota
	specialMetaData
	specialMetaColl
	specialMetaResc
	specialMetaUser
	specialDataAccessPermName
	specialDataAccessUserName
	specialDataAccessOther
	specialCollAccessPermName
	specialCollAccessUserName
	specialCollAccessOther
	specialRescHier
)

// Fixed aliases reserved by the auxiliary join families. These never
// collide with a generated t<k> alias (invariant 3, §3).
const (
	aliasMetaData = "mmd"
	aliasMetaColl = "mmc"
	aliasMetaResc = "mmr"
	aliasMetaUser = "mmu"

	aliasDataAccessObjtAccess = "pdoa"
	aliasDataAccessToken      = "pdt"
	aliasDataAccessUser       = "pdu"

	aliasCollAccessObjtAccess = "pcoa"
	aliasCollAccessToken      = "pct"
	aliasCollAccessUser       = "pcu"

	aliasRescHier = "T"
)

// columnMapping is one entry of column_name_mappings: where a logical
// column's value physically lives, plus the discriminator that
// disambiguates logical columns sharing one metadata table instance
// (§4.5: multiple META_D* columns all read the single `mmd` join).
type columnMapping struct {
	physicalTable  string
	physicalColumn string
	discriminator  string
}

// columnNameMappings is the compile-time logical-column dictionary.
// Ordinary entity columns map directly onto R_DATA_MAIN/R_COLL_MAIN/
// R_RESC_MAIN/R_USER_MAIN; special columns map onto the auxiliary
// tables that the emitter joins via fixed sequences rather than the
// general join graph.
var columnNameMappings = map[string]columnMapping{
	// R_DATA_MAIN
	"DATA_ID":          {"R_DATA_MAIN", "data_id", "data"},
	"DATA_NAME":        {"R_DATA_MAIN", "data_name", "data"},
	"DATA_SIZE":        {"R_DATA_MAIN", "data_size", "data"},
	"DATA_TYPE_NAME":   {"R_DATA_MAIN", "data_type_name", "data"},
	"DATA_REPL_NUM":    {"R_DATA_MAIN", "data_repl_num", "data"},
	"DATA_PATH":        {"R_DATA_MAIN", "data_path", "data"},
	"DATA_OWNER_NAME":  {"R_DATA_MAIN", "data_owner_name", "data"},
	"DATA_OWNER_ZONE":  {"R_DATA_MAIN", "data_owner_zone", "data"},
	"DATA_CHECKSUM":    {"R_DATA_MAIN", "data_checksum", "data"},
	"DATA_CREATE_TIME": {"R_DATA_MAIN", "create_ts", "data"},
	"DATA_MODIFY_TIME": {"R_DATA_MAIN", "modify_ts", "data"},
	"DATA_COLL_ID":     {"R_DATA_MAIN", "coll_id", "data"},
	"DATA_RESC_ID":     {"R_DATA_MAIN", "resc_id", "data"},

	// R_COLL_MAIN
	"COLL_ID":          {"R_COLL_MAIN", "coll_id", "coll"},
	"COLL_NAME":        {"R_COLL_MAIN", "coll_name", "coll"},
	"COLL_PARENT_NAME": {"R_COLL_MAIN", "parent_coll_name", "coll"},
	"COLL_OWNER_NAME":  {"R_COLL_MAIN", "coll_owner_name", "coll"},
	"COLL_OWNER_ZONE":  {"R_COLL_MAIN", "coll_owner_zone", "coll"},
	"COLL_TYPE":        {"R_COLL_MAIN", "coll_type", "coll"},
	"COLL_CREATE_TIME": {"R_COLL_MAIN", "create_ts", "coll"},
	"COLL_MODIFY_TIME": {"R_COLL_MAIN", "modify_ts", "coll"},

	// R_RESC_MAIN
	"RESC_ID":          {"R_RESC_MAIN", "resc_id", "resc"},
	"RESC_NAME":        {"R_RESC_MAIN", "resc_name", "resc"},
	"RESC_ZONE_NAME":   {"R_RESC_MAIN", "zone_name", "resc"},
	"RESC_TYPE_NAME":   {"R_RESC_MAIN", "resc_type_name", "resc"},
	"RESC_CLASS_NAME":  {"R_RESC_MAIN", "resc_class_name", "resc"},
	"RESC_NET":         {"R_RESC_MAIN", "resc_net", "resc"},
	"RESC_DEF_PATH":    {"R_RESC_MAIN", "resc_def_path", "resc"},
	"RESC_FREE_SPACE":  {"R_RESC_MAIN", "free_space", "resc"},
	"RESC_PARENT":      {"R_RESC_MAIN", "resc_parent", "resc"},
	"RESC_CREATE_TIME": {"R_RESC_MAIN", "create_ts", "resc"},
	"RESC_MODIFY_TIME": {"R_RESC_MAIN", "modify_ts", "resc"},

	// R_USER_MAIN
	"USER_ID":          {"R_USER_MAIN", "user_id", "user"},
	"USER_NAME":        {"R_USER_MAIN", "user_name", "user"},
	"USER_TYPE_NAME":   {"R_USER_MAIN", "user_type_name", "user"},
	"USER_ZONE":        {"R_USER_MAIN", "zone_name", "user"},
	"USER_CREATE_TIME": {"R_USER_MAIN", "create_ts", "user"},
	"USER_MODIFY_TIME": {"R_USER_MAIN", "modify_ts", "user"},

	// Metadata families: one shared physical table (R_META_MAIN) per
	// entity kind, reached via the fixed mmX/ommX join in §4.6 step 6.
	"META_DATA_ATTR_NAME":  {"R_META_MAIN", "meta_attr_name", "d"},
	"META_DATA_ATTR_VALUE": {"R_META_MAIN", "meta_attr_value", "d"},
	"META_DATA_ATTR_UNIT":  {"R_META_MAIN", "meta_attr_unit", "d"},
	"META_COLL_ATTR_NAME":  {"R_META_MAIN", "meta_attr_name", "c"},
	"META_COLL_ATTR_VALUE": {"R_META_MAIN", "meta_attr_value", "c"},
	"META_COLL_ATTR_UNIT":  {"R_META_MAIN", "meta_attr_unit", "c"},
	"META_RESC_ATTR_NAME":  {"R_META_MAIN", "meta_attr_name", "r"},
	"META_RESC_ATTR_VALUE": {"R_META_MAIN", "meta_attr_value", "r"},
	"META_RESC_ATTR_UNIT":  {"R_META_MAIN", "meta_attr_unit", "r"},
	"META_USER_ATTR_NAME":  {"R_META_MAIN", "meta_attr_name", "u"},
	"META_USER_ATTR_VALUE": {"R_META_MAIN", "meta_attr_value", "u"},
	"META_USER_ATTR_UNIT":  {"R_META_MAIN", "meta_attr_unit", "u"},

	// Permission families, reached via the fixed pd*/pc* join chains.
	"DATA_ACCESS_PERM_NAME": {"R_TOKN_MAIN", "token_name", "pdt"},
	"DATA_ACCESS_USER_NAME": {"R_USER_MAIN", "user_name", "pdu"},
	"DATA_ACCESS_TYPE":      {"R_OBJT_ACCESS", "access_type_id", "pdoa"},
	"COLL_ACCESS_PERM_NAME": {"R_TOKN_MAIN", "token_name", "pct"},
	"COLL_ACCESS_USER_NAME": {"R_USER_MAIN", "user_name", "pcu"},
	"COLL_ACCESS_TYPE":      {"R_OBJT_ACCESS", "access_type_id", "pcoa"},

	// Computed resource hierarchy, reached via the recursive CTE.
	"DATA_RESC_HIER": {"T", "hier", "T"},
}

// classify returns the specialKind of a logical column name, already
// upper-cased by the caller (§9's supplemented point 3: classification
// is case-sensitive on the normalized logical name, not the source
// text's original case).
func classify(name string) specialKind {
	switch {
	case name == "DATA_RESC_HIER":
		return specialRescHier
	case name == "DATA_ACCESS_PERM_NAME":
		return specialDataAccessPermName
	case name == "DATA_ACCESS_USER_NAME":
		return specialDataAccessUserName
	case hasPrefix(name, "DATA_ACCESS_"):
		return specialDataAccessOther
	case name == "COLL_ACCESS_PERM_NAME":
		return specialCollAccessPermName
	case name == "COLL_ACCESS_USER_NAME":
		return specialCollAccessUserName
	case hasPrefix(name, "COLL_ACCESS_"):
		return specialCollAccessOther
	case hasPrefix(name, "META_D"):
		return specialMetaData
	case hasPrefix(name, "META_C"):
		return specialMetaColl
	case hasPrefix(name, "META_R"):
		return specialMetaResc
	case hasPrefix(name, "META_U"):
		return specialMetaUser
	default:
		return notSpecial
	}
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}
