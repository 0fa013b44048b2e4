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
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompile_SimpleProjection(t *testing.T) {
	res, err := Compile("SELECT COLL_NAME, DATA_NAME", Options{Username: "alice", AdminMode: false})
	require.Nil(t, err)
	require.True(t, strings.HasPrefix(res.SQL, "SELECT DISTINCT t0.coll_name, t1.data_name FROM R_COLL_MAIN t0 INNER JOIN R_DATA_MAIN t1 ON t0.coll_id = t1.coll_id"))
	assert.Contains(t, res.SQL, "INNER JOIN R_OBJT_ACCESS pdoa")
	assert.Contains(t, res.SQL, "INNER JOIN R_OBJT_ACCESS pcoa")
	assert.True(t, strings.HasSuffix(res.SQL, "WHERE pdu.user_name = ? AND pcu.user_name = ? AND pdoa.access_type_id >= 1050 AND pcoa.access_type_id >= 1050"))
	assert.Equal(t, []string{"alice", "alice"}, res.BoundValues)
}

func TestCompile_UserSuppliedFilter(t *testing.T) {
	res, err := Compile("SELECT DATA_NAME WHERE DATA_SIZE > '1000'", Options{AdminMode: true})
	require.Nil(t, err)
	assert.True(t, strings.HasSuffix(res.SQL, "WHERE t0.data_size > ? AND pdoa.access_type_id >= 1000"))
	assert.Equal(t, []string{"1000"}, res.BoundValues)
}

func TestCompile_MetadataJoin(t *testing.T) {
	res, err := Compile("SELECT DATA_NAME, META_DATA_ATTR_NAME WHERE META_DATA_ATTR_VALUE LIKE 'abc%'", Options{AdminMode: true})
	require.Nil(t, err)
	assert.Contains(t, res.SQL, "LEFT JOIN R_OBJT_METAMAP ommd ON t0.data_id = ommd.object_id LEFT JOIN R_META_MAIN mmd ON ommd.meta_id = mmd.meta_id")
	assert.Contains(t, res.SQL, "mmd.meta_attr_value LIKE ?")
	require.NotEmpty(t, res.BoundValues)
	assert.Equal(t, "abc%", res.BoundValues[len(res.BoundValues)-1])
}

func TestCompile_ResourceHierarchy(t *testing.T) {
	res, err := Compile("SELECT DATA_NAME, DATA_RESC_HIER", Options{AdminMode: true})
	require.Nil(t, err)
	assert.True(t, strings.HasPrefix(res.SQL, "WITH RECURSIVE T"))
	assert.Contains(t, res.SQL, "INNER JOIN T ON T.resc_id = t1.resc_id")
	assert.Contains(t, res.SQL, "T.hier")
}

func TestCompile_InOrderByPaging(t *testing.T) {
	res, err := Compile("SELECT DATA_NAME WHERE DATA_NAME IN ('a','b','c') ORDER BY DATA_NAME DESC OFFSET 10 FETCH FIRST 5 ROWS ONLY", Options{AdminMode: true})
	require.Nil(t, err)
	assert.Contains(t, res.SQL, "IN (?, ?, ?)")
	assert.True(t, strings.HasSuffix(res.SQL, "ORDER BY t0.data_name DESC OFFSET 10 FETCH FIRST 5 ROWS ONLY"))
	assert.Equal(t, []string{"a", "b", "c"}, res.BoundValues)
}

func TestCompile_UnknownColumn(t *testing.T) {
	_, err := Compile("SELECT FOO_BAR", Options{})
	require.NotNil(t, err)
	assert.Equal(t, UnknownColumn, err.Kind)
	assert.Equal(t, "FOO_BAR", err.Identifier)
}

func TestCompile_Deterministic(t *testing.T) {
	src := "SELECT DATA_NAME WHERE DATA_SIZE > '1000' ORDER BY DATA_NAME"
	opts := Options{Username: "bob", AdminMode: false}
	a, err1 := Compile(src, opts)
	b, err2 := Compile(src, opts)
	require.Nil(t, err1)
	require.Nil(t, err2)
	assert.Equal(t, a.SQL, b.SQL)
	assert.Equal(t, a.BoundValues, b.BoundValues)
}

func TestCompile_NoLiteralLeakage(t *testing.T) {
	res, err := Compile("SELECT DATA_NAME WHERE DATA_NAME = 'super secret literal'", Options{AdminMode: true})
	require.Nil(t, err)
	assert.NotContains(t, res.SQL, "super secret literal")
}

func TestCompile_BindingOrderMatchesPlaceholders(t *testing.T) {
	res, err := Compile("SELECT DATA_NAME WHERE DATA_NAME BETWEEN 'a' AND 'z'", Options{Username: "carol", AdminMode: false})
	require.Nil(t, err)
	assert.Equal(t, strings.Count(res.SQL, "?"), len(res.BoundValues))
}

func TestCompile_EmptyInList(t *testing.T) {
	_, err := Compile("SELECT DATA_NAME WHERE DATA_NAME IN ()", Options{})
	require.NotNil(t, err)
	assert.Equal(t, ParseError, err.Kind)
}

func TestCompile_AggregateSelectOnly(t *testing.T) {
	res, err := Compile("SELECT COUNT(DATA_NAME)", Options{AdminMode: true})
	require.Nil(t, err)
	assert.Contains(t, res.SQL, "COUNT(t0.data_name)")
}

func TestCompile_CastColumn(t *testing.T) {
	res, err := Compile("SELECT CAST(DATA_SIZE AS varchar(20))", Options{AdminMode: true})
	require.Nil(t, err)
	assert.Contains(t, res.SQL, "CAST(t0.data_size AS varchar(20))")
}

func TestCompile_UnjoinableTables(t *testing.T) {
	_, err := Compile("SELECT DATA_NAME, USER_NAME", Options{AdminMode: true})
	require.NotNil(t, err)
	assert.Equal(t, UnjoinableTables, err.Kind)
}

func TestCompile_OrderByRequiresExistingJoin(t *testing.T) {
	_, err := Compile("SELECT DATA_NAME ORDER BY META_DATA_ATTR_VALUE", Options{AdminMode: true})
	require.NotNil(t, err)
	assert.Equal(t, UnknownColumnInOrderBy, err.Kind)
}

func TestCompile_NoPermissionPredicateWithoutEntityTable(t *testing.T) {
	res, err := Compile("SELECT RESC_NAME", Options{AdminMode: false})
	require.Nil(t, err)
	assert.NotContains(t, res.SQL, "access_type_id")
	assert.True(t, res.NoPermissionPredicate)
}
