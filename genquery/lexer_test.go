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
	"github.com/stretchr/testify/require"
)

func TestLex_KeywordsCaseInsensitive(t *testing.T) {
	toks, err := lexAll("select Distinct data_name where")
	require.Nil(t, err)
	kinds := []tokenKind{tokSelect, tokDistinct, tokIdent, tokWhere, tokEOF}
	require.Len(t, toks, len(kinds))
	for i, k := range kinds {
		assert.Equal(t, k, toks[i].kind)
	}
	assert.Equal(t, "DATA_NAME", toks[2].text)
}

func TestLex_StringWithEscapedQuote(t *testing.T) {
	toks, err := lexAll("'it''s'")
	require.Nil(t, err)
	require.Equal(t, tokString, toks[0].kind)
	assert.Equal(t, "it's", toks[0].text)
}

func TestLex_Operators(t *testing.T) {
	toks, err := lexAll("= != < <= > >=")
	require.Nil(t, err)
	kinds := []tokenKind{tokEq, tokNeq, tokLt, tokLte, tokGt, tokGte, tokEOF}
	require.Len(t, toks, len(kinds))
	for i, k := range kinds {
		assert.Equal(t, k, toks[i].kind)
	}
}

func TestLex_UnknownCharacter(t *testing.T) {
	_, err := lexAll("DATA_NAME @ 'x'")
	require.NotNil(t, err)
	assert.Equal(t, LexError, err.Kind)
}

func TestLex_UnterminatedString(t *testing.T) {
	_, err := lexAll("'unterminated")
	require.NotNil(t, err)
	assert.Equal(t, LexError, err.Kind)
}
