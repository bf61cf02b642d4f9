// Copyright 2023 Greenmask
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

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextExpression_GetText(t *testing.T) {
	ws := newTestWorkspace()
	tbl := newTestTable(ws, "lib", "T", char("Full Name", 20), num("ID"))
	e := ws.NewTextExpression("owner")
	e.AddRememberedColumn(tbl.FindColumn("Full Name"))
	e.AddRememberedColumn(tbl.FindColumn("ID"))

	tests := []struct {
		name     string
		text     string
		quoting  bool
		server   string
		expected string
	}{
		{name: "plain text", text: "'constant'", expected: "'constant'"},
		{name: "column reference", text: "upcase(" + ColumnRef("Full Name") + ")", expected: "upcase(Full Name)"},
		{name: "name literal", text: "upcase(" + ColumnRef("Full Name") + ")", quoting: true, expected: `upcase("Full Name"n)`},
		{name: "case insensitive lookup", text: ColumnRef("id") + " + 1", expected: "ID + 1"},
		{name: "sprig function", text: `{{ upper "abc" | quote }}`, expected: `"ABC"`},
		{name: "server", text: `{{ if eq server "SASApp" }}1{{ else }}0{{ end }}`, server: "SASApp", expected: "1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e.SetText(tt.text)
			got, err := e.GetText(tt.server, tt.quoting)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestTextExpression_GetText_Errors(t *testing.T) {
	ws := newTestWorkspace()
	e := ws.NewTextExpression("owner")

	e.SetText(ColumnRef("MISSING"))
	_, err := e.GetText("", false)
	require.ErrorIs(t, err, ErrColumnNotFound)

	e.SetText("{{ col ")
	_, err = e.GetText("", false)
	require.Error(t, err)

	for _, text := range []string{`{{ env "HOME" }}`, `{{ expandenv "$HOME" }}`} {
		e.SetText(text)
		_, err = e.GetText("", false)
		require.ErrorContains(t, err, "not defined", text)
	}
}

func TestTextExpression_RememberedColumns(t *testing.T) {
	ws := newTestWorkspace()
	tbl := newTestTable(ws, "lib", "T", num("A"), num("B"))
	a, b := tbl.FindColumn("A"), tbl.FindColumn("B")
	e := ws.NewTextExpression("owner")

	e.AddRememberedColumn(a)
	e.AddRememberedColumn(a)
	assert.Equal(t, []*Column{a}, e.RememberedColumns())
	e.ReplaceRememberedColumn(a, b)
	assert.True(t, e.ContainsRememberedColumn(b))
	assert.False(t, e.ContainsRememberedColumn(a))
	e.RemoveRememberedColumn(b)
	assert.Empty(t, e.RememberedColumns())
	assert.True(t, e.IsEmpty())
}

func TestColumn_SetName_RewritesExpressionReferences(t *testing.T) {
	ws := newTestWorkspace()
	src := newTestTable(ws, "src", "S", num("AMOUNT"))
	tgt := newTestTable(ws, "dw", "TGT", num("DOUBLE"))
	dt := newTestTransform(t, ws, "T", src, tgt)
	amount := src.FindColumn("AMOUNT")
	m, err := dt.AddDerivedMapping([]*Column{amount}, tgt.Columns(), ColumnRef("AMOUNT")+" * 2")
	require.NoError(t, err)

	amount.SetName("AMT")
	assert.Equal(t, ColumnRef("AMT")+" * 2", m.Expression().Text())
	text, err := m.Expression().GetText("", false)
	require.NoError(t, err)
	assert.Equal(t, "AMT * 2", text)

	require.True(t, ws.Undo())
	assert.Equal(t, "AMOUNT", amount.Name())
	text, err = m.Expression().GetText("", false)
	require.NoError(t, err)
	assert.Equal(t, "AMOUNT * 2", text)
}

func TestDataTransform_UpdateMappedColumns_RenameReachesConsumerExpressions(t *testing.T) {
	ws := newTestWorkspace()
	src := newTestTable(ws, "src", "S", num("A"))
	mid := newTestTable(ws, "stage", "MID", num("A"))
	tgt := newTestTable(ws, "dw", "TGT", num("X"))
	load := newTestTransform(t, ws, "Load", src, mid)
	_, err := load.MapAllColumns()
	require.NoError(t, err)
	derive := newTestTransform(t, ws, "Derive", mid, tgt)
	m, err := derive.AddDerivedMapping(mid.Columns(), tgt.Columns(), ColumnRef("A")+" + 1")
	require.NoError(t, err)

	src.FindColumn("A").SetName("B")
	n, err := load.UpdateMappedColumns(true)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	assert.Equal(t, "B", mid.Columns()[0].Name())
	text, err := m.Expression().GetText("", false)
	require.NoError(t, err)
	assert.Equal(t, "B + 1", text)
}
