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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderTemplate(t *testing.T) {
	assert.Equal(t, "t0.coll_id = t1.coll_id", renderTemplate("{0}.coll_id = {1}.coll_id", "t0", "t1"))
}

func TestRenderEdge_FromToOrderPreservedRegardlessOfEdgeDirection(t *testing.T) {
	// R_DATA_MAIN is tableEdges' u and R_COLL_MAIN its v, so rendering
	// (R_COLL_MAIN, R_DATA_MAIN) exercises the "from" being the edge's v.
	on, ok := renderEdge("R_COLL_MAIN", "R_DATA_MAIN", "t0", "t1")
	assert.True(t, ok)
	assert.Equal(t, "t0.coll_id = t1.coll_id", on)

	// The opposite direction renders with aliases swapped the same way.
	on, ok = renderEdge("R_DATA_MAIN", "R_COLL_MAIN", "t1", "t0")
	assert.True(t, ok)
	assert.Equal(t, "t1.coll_id = t0.coll_id", on)
}

func TestFindEdge_NoEdge(t *testing.T) {
	_, ok := findEdge("R_COLL_MAIN", "R_USER_MAIN")
	assert.False(t, ok)
}

func TestClassify(t *testing.T) {
	cases := map[string]specialKind{
		"DATA_NAME":             notSpecial,
		"META_DATA_ATTR_VALUE":  specialMetaData,
		"META_COLL_ATTR_NAME":   specialMetaColl,
		"META_RESC_ATTR_UNIT":   specialMetaResc,
		"META_USER_ATTR_NAME":   specialMetaUser,
		"DATA_ACCESS_PERM_NAME": specialDataAccessPermName,
		"DATA_ACCESS_USER_NAME": specialDataAccessUserName,
		"DATA_ACCESS_TYPE":      specialDataAccessOther,
		"COLL_ACCESS_PERM_NAME": specialCollAccessPermName,
		"COLL_ACCESS_USER_NAME": specialCollAccessUserName,
		"COLL_ACCESS_TYPE":      specialCollAccessOther,
		"DATA_RESC_HIER":        specialRescHier,
	}
	for name, want := range cases {
		assert.Equal(t, want, classify(name), name)
	}
}

func TestColumnNameMappingsAreConsistent(t *testing.T) {
	for name, m := range columnNameMappings {
		if m.physicalTable == "T" {
			continue // the computed resource-hierarchy CTE isn't a catalog vertex
		}
		switch m.physicalTable {
		case "R_DATA_MAIN", "R_COLL_MAIN", "R_RESC_MAIN", "R_USER_MAIN":
			_, ok := vertexOf(m.physicalTable)
			assert.True(t, ok, "%s maps to a non-vertex table %s", name, m.physicalTable)
		case "R_META_MAIN", "R_TOKN_MAIN", "R_OBJT_ACCESS":
			// auxiliary tables reached only via the emitter's fixed joins
		default:
			t.Fatalf("%s maps to unrecognized physical table %s", name, m.physicalTable)
		}
	}
}
