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

func TestDataTransform_PropagateColumnsToTargetTables_Scenario(t *testing.T) {
	ws := newTestWorkspace()
	src := newTestTable(ws, "src", "S", num("ID"), char("NAME", 20))
	tgt := newTestTable(ws, "dw", "TGT", num("ID"))
	dt := newTestTransform(t, ws, "T", src, tgt)

	created, err := dt.PropagateColumnsToTargetTables()
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, 2, tgt.ColumnCount())
	require.Len(t, dt.Mappings(), 1)

	m := dt.Mappings()[0]
	assert.Equal(t, MappingTypeOneToOne, m.Type())
	assert.Equal(t, []*Column{src.FindColumn("NAME")}, m.Sources())
	assert.Equal(t, []*Column{tgt.FindColumn("NAME")}, m.Targets())
	assert.Nil(t, dt.OrdinaryMappingForTarget(tgt.FindColumn("ID")))

	name := tgt.FindColumn("NAME")
	assert.Equal(t, ColumnTypeCharacter, name.Type())
	assert.Equal(t, 20, name.Length())
}

func TestDataTransform_PropagateColumnsToTargetTables_Idempotent(t *testing.T) {
	ws := newTestWorkspace()
	src := newTestTable(ws, "src", "S", num("ID"), char("NAME", 20), char("CITY", 30))
	tgt := ws.NewWorkTable("owner")
	tgt.SetName("W")
	dt := newTestTransform(t, ws, "T", src, tgt)

	created, err := dt.PropagateColumnsToTargetTables()
	require.NoError(t, err)
	assert.Len(t, created, 3)
	columns, mappings := tgt.ColumnCount(), len(dt.Mappings())

	created, err = dt.PropagateColumnsToTargetTables()
	require.NoError(t, err)
	assert.Empty(t, created)
	assert.Equal(t, columns, tgt.ColumnCount())
	assert.Equal(t, mappings, len(dt.Mappings()))
}

func TestDataTransform_PropagateColumns_CaseSensitivity(t *testing.T) {
	tests := []struct {
		name            string
		caseSensitive   bool
		expectedColumns int
		expectedCreated int
	}{
		{name: "case sensitive target", caseSensitive: true, expectedColumns: 2, expectedCreated: 1},
		{name: "case insensitive target", caseSensitive: false, expectedColumns: 1, expectedCreated: 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws := newTestWorkspace()
			src := newTestTable(ws, "src", "S", num("ID"))
			tgt := newTestTable(ws, "dw", "TGT", num("id"))
			tgt.SetCaseSensitive(tt.caseSensitive)
			dt := newTestTransform(t, ws, "T", src, tgt)

			created, err := dt.PropagateColumnsToTargetTables()
			require.NoError(t, err)
			assert.Len(t, created, tt.expectedCreated)
			assert.Equal(t, tt.expectedColumns, tgt.ColumnCount())
		})
	}
}

func TestDataTransform_PropagateColumns_QuotedTargetIsCaseSensitive(t *testing.T) {
	ws := newTestWorkspace()
	src := newTestTable(ws, "src", "S", num("ID"))
	tgt := newTestTable(ws, "dw", "TGT", num("id"))
	tgt.SetQuoted(true)
	dt := newTestTransform(t, ws, "T", src, tgt)

	created, err := dt.PropagateColumnsToTargetTables()
	require.NoError(t, err)
	assert.Len(t, created, 1)
}

func TestDataTransform_PropagateColumns_NonWorkTableHandling(t *testing.T) {
	setup := func(t *testing.T, handling NonWorkTableHandling) (*DataTransform, *Table, *Table) {
		policy := DefaultPolicy()
		policy.NonWorkTableHandling = handling
		ws := NewWorkspace(policy)
		src := newTestTable(ws, "src", "S", num("ID"), char("NAME", 20))
		tgt := newTestTable(ws, "dw", "TGT", num("ID"))
		return newTestTransform(t, ws, "T", src, tgt), src, tgt
	}

	t.Run("propagate", func(t *testing.T) {
		dt, _, tgt := setup(t, NonWorkTablePropagate)
		_, err := dt.PropagateColumnsToTargetTables()
		require.NoError(t, err)
		assert.Equal(t, 2, tgt.ColumnCount())
		assert.Len(t, dt.Mappings(), 1)
	})

	t.Run("map", func(t *testing.T) {
		dt, src, tgt := setup(t, NonWorkTableMap)
		created, err := dt.PropagateColumnsToTargetTables()
		require.NoError(t, err)
		assert.Empty(t, created)
		assert.Equal(t, 1, tgt.ColumnCount())
		require.Len(t, dt.Mappings(), 1)
		assert.Equal(t, []*Column{src.FindColumn("ID")}, dt.Mappings()[0].Sources())
	})

	t.Run("none", func(t *testing.T) {
		dt, _, tgt := setup(t, NonWorkTableNone)
		created, err := dt.PropagateColumnsToTargetTables()
		require.NoError(t, err)
		assert.Empty(t, created)
		assert.Equal(t, 1, tgt.ColumnCount())
		assert.Empty(t, dt.Mappings())
	})

	t.Run("work tables always propagate", func(t *testing.T) {
		policy := DefaultPolicy()
		policy.NonWorkTableHandling = NonWorkTableNone
		ws := NewWorkspace(policy)
		src := newTestTable(ws, "src", "S", num("ID"))
		dt := newTestTransform(t, ws, "T", src, nil)
		w, err := dt.NewWorkTarget()
		require.NoError(t, err)
		created, err := dt.PropagateColumnsToTargetTables()
		require.NoError(t, err)
		assert.Len(t, created, 1)
		assert.Equal(t, 1, w.ColumnCount())
	})
}

func TestDataTransform_PropagateColumns_Excluded(t *testing.T) {
	ws := newTestWorkspace()
	src := newTestTable(ws, "src", "S", num("ID"), char("SECRET", 20))
	tgt := newTestTable(ws, "dw", "TGT")
	dt := newTestTransform(t, ws, "T", src, tgt)
	dt.ExcludeFromPropagation(src.FindColumn("SECRET"), true)

	created, err := dt.PropagateColumnsToTargetTables()
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "ID", created[0].Name())
	assert.Nil(t, tgt.FindColumn("SECRET"))
}

func TestDataTransform_PropagateColumnsFromTargetTables(t *testing.T) {
	ws := newTestWorkspace()
	src := newTestTable(ws, "src", "S", num("ID"))
	tgt := newTestTable(ws, "dw", "TGT", num("ID"), char("NAME", 20))
	dt := newTestTransform(t, ws, "T", src, tgt)

	created, err := dt.PropagateColumnsFromTargetTables()
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Same(t, src, created[0].Table())
	require.Len(t, dt.Mappings(), 1)
	m := dt.Mappings()[0]
	assert.Equal(t, []*Column{created[0]}, m.Sources())
	assert.Equal(t, []*Column{tgt.FindColumn("NAME")}, m.Targets())
}

func TestDataTransform_UpdateMappedColumns(t *testing.T) {
	ws := newTestWorkspace()
	src := newTestTable(ws, "src", "S", char("NAME", 40), char("CITY", 30))
	tgt := ws.NewWorkTable("owner")
	tgt.SetName("W")
	dt := newTestTransform(t, ws, "T", src, tgt)
	_, err := dt.PropagateColumnsToTargetTables()
	require.NoError(t, err)

	name := src.FindColumn("NAME")
	name.SetLength(60)
	name.SetNote("pii", "true")
	city := src.FindColumn("CITY")
	city.SetName("NAME2")
	tgt.NewColumn("NAME2", ColumnTypeCharacter, 10)

	updated, err := dt.UpdateMappedColumns(true)
	require.NoError(t, err)
	assert.Equal(t, 1, updated)

	tgtName := tgt.FindColumn("NAME")
	assert.Equal(t, 60, tgtName.Length())
	assert.Equal(t, "true", tgtName.Note("pii"))
	assert.NotNil(t, tgt.FindColumn("CITY"), "colliding rename is skipped")
}

func TestDataTransform_UpdateMappedColumns_PersistentTableRequiresPropagate(t *testing.T) {
	policy := DefaultPolicy()
	policy.NonWorkTableHandling = NonWorkTableMap
	ws := NewWorkspace(policy)
	src := newTestTable(ws, "src", "S", char("NAME", 40))
	tgt := newTestTable(ws, "dw", "TGT", char("NAME", 20))
	dt := newTestTransform(t, ws, "T", src, tgt)
	_, err := dt.AddMapping(src.Columns(), tgt.Columns())
	require.NoError(t, err)

	updated, err := dt.UpdateMappedColumns(true)
	require.NoError(t, err)
	assert.Zero(t, updated)
	assert.Equal(t, 20, tgt.FindColumn("NAME").Length())
}
