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

func TestJournal_UndoRedo(t *testing.T) {
	ws := newTestWorkspace()
	tbl := newTestTable(ws, "lib", "A", num("ID"))
	ws.Journal().Clear()

	tbl.SetName("B")
	require.True(t, ws.Journal().CanUndo())
	last := ws.Journal().Last()
	require.Len(t, last.Edits, 1)
	assert.Equal(t, EditSetAttribute, last.Edits[0].Kind)
	assert.Equal(t, "A", last.Edits[0].Before)
	assert.Equal(t, "B", last.Edits[0].After)

	require.True(t, ws.Undo())
	assert.Equal(t, "A", tbl.Name())
	assert.False(t, ws.Journal().CanUndo())
	assert.True(t, ws.Journal().CanRedo())

	require.True(t, ws.Redo())
	assert.Equal(t, "B", tbl.Name())
	assert.False(t, ws.Redo())
}

func TestJournal_NewEditClearsRedo(t *testing.T) {
	ws := newTestWorkspace()
	tbl := newTestTable(ws, "lib", "A")
	tbl.SetName("B")
	require.True(t, ws.Undo())
	tbl.SetDescription("changed")
	assert.False(t, ws.Journal().CanRedo())
}

func TestJournal_NestedCompounds(t *testing.T) {
	ws := newTestWorkspace()
	tbl := newTestTable(ws, "lib", "A")
	ws.Journal().Clear()
	j := ws.Journal()

	j.Begin("outer")
	tbl.SetName("B")
	j.Begin("inner")
	tbl.SetDescription("desc")
	j.End()
	assert.False(t, ws.Undo(), "undo is refused while a compound is open")
	j.End()

	last := j.Last()
	require.NotNil(t, last)
	assert.Equal(t, "outer", last.Name)
	assert.Len(t, last.Edits, 2)

	require.True(t, ws.Undo())
	assert.Equal(t, "A", tbl.Name())
	assert.Empty(t, tbl.Description())
	assert.False(t, j.CanUndo())
}

func TestWorkspace_BatchRollback(t *testing.T) {
	ws := newTestWorkspace()
	tbl := newTestTable(ws, "lib", "A", num("ID"))
	tbl.SetName("B")
	last := ws.Journal().Last()

	err := ws.Batch("failing", func() error {
		tbl.SetName("C")
		tbl.NewColumn("EXTRA", ColumnTypeNumeric, 8)
		return errInjected
	})
	require.ErrorIs(t, err, errInjected)
	assert.Equal(t, "B", tbl.Name())
	assert.Equal(t, 1, tbl.ColumnCount())
	assert.Same(t, last, ws.Journal().Last())
}

func TestWorkspace_BatchIsOneUndoStep(t *testing.T) {
	ws := newTestWorkspace()
	src := newTestTable(ws, "src", "S", num("ID"), char("NAME", 20), char("CITY", 30))
	tgt := ws.NewWorkTable("owner")
	tgt.SetName("W")
	dt := newTestTransform(t, ws, "T", src, tgt)

	_, err := dt.PropagateColumnsToTargetTables()
	require.NoError(t, err)
	require.Equal(t, 3, tgt.ColumnCount())
	require.Len(t, dt.Mappings(), 3)

	require.True(t, ws.Undo())
	assert.Zero(t, tgt.ColumnCount())
	assert.Empty(t, dt.Mappings())
}

func TestJournal_Limit(t *testing.T) {
	ws := newTestWorkspace()
	ws.journal = NewJournal(2)
	tbl := newTestTable(ws, "lib", "A")
	tbl.SetName("B")
	tbl.SetName("C")
	tbl.SetName("D")

	require.True(t, ws.Undo())
	require.True(t, ws.Undo())
	assert.False(t, ws.Undo())
	assert.Equal(t, "B", tbl.Name())
}
