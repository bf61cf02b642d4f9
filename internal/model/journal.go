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
	"slices"

	"github.com/rs/zerolog/log"

	"github.com/greenmaskio/etlmodel/internal/omr"
)

const defaultJournalLimit = 256

type EditKind string

const (
	// EditSetAttribute - scalar attribute change
	EditSetAttribute EditKind = "SetAttribute"
	// EditList - change of an ordered collection (columns, mappings, sources, ...)
	EditList EditKind = "List"
	// EditLink - producer/consumer back reference change
	EditLink EditKind = "Link"
)

// Edit - single reversible mutation. Before and After carry the payload for inspection, the
// closures restore the corresponding state.
type Edit struct {
	Kind     EditKind
	ObjectID omr.ObjectID
	Field    string
	Before   any
	After    any
	undo     func()
	redo     func()
}

// CompoundEdit - edits undone and redone as a unit
type CompoundEdit struct {
	Name  string
	Edits []*Edit
}

// Journal - undo/redo log. Begin and End bracket compound edits and may nest; nested compounds
// are merged into the enclosing one.
type Journal struct {
	undoStack []*CompoundEdit
	redoStack []*CompoundEdit
	open      []*CompoundEdit
	replaying bool
	limit     int
}

func NewJournal(limit int) *Journal {
	if limit <= 0 {
		limit = defaultJournalLimit
	}
	return &Journal{
		limit: limit,
	}
}

// Begin - opens a compound edit
func (j *Journal) Begin(name string) {
	j.open = append(j.open, &CompoundEdit{Name: name})
}

// End - closes the innermost compound edit
func (j *Journal) End() {
	if len(j.open) == 0 {
		return
	}
	c := j.open[len(j.open)-1]
	j.open = j.open[:len(j.open)-1]
	if len(c.Edits) == 0 {
		return
	}
	if len(j.open) > 0 {
		parent := j.open[len(j.open)-1]
		parent.Edits = append(parent.Edits, c.Edits...)
		return
	}
	j.push(c)
}

// Rollback - reverts every edit of the innermost open compound and discards it
func (j *Journal) Rollback() {
	if len(j.open) == 0 {
		return
	}
	c := j.open[len(j.open)-1]
	j.open = j.open[:len(j.open)-1]
	log.Debug().
		Str("Compound", c.Name).
		Int("Edits", len(c.Edits)).
		Msg("rolling back compound edit")
	j.replay(c, true)
}

// Undo - reverts the last compound edit. Returns false when there is nothing to undo
func (j *Journal) Undo() bool {
	if len(j.undoStack) == 0 || len(j.open) > 0 {
		return false
	}
	c := j.undoStack[len(j.undoStack)-1]
	j.undoStack = j.undoStack[:len(j.undoStack)-1]
	j.replay(c, true)
	j.redoStack = append(j.redoStack, c)
	return true
}

// Redo - re-applies the last undone compound edit
func (j *Journal) Redo() bool {
	if len(j.redoStack) == 0 || len(j.open) > 0 {
		return false
	}
	c := j.redoStack[len(j.redoStack)-1]
	j.redoStack = j.redoStack[:len(j.redoStack)-1]
	j.replay(c, false)
	j.undoStack = append(j.undoStack, c)
	return true
}

func (j *Journal) CanUndo() bool {
	return len(j.undoStack) > 0
}

func (j *Journal) CanRedo() bool {
	return len(j.redoStack) > 0
}

// Last - returns the last undoable compound edit or nil
func (j *Journal) Last() *CompoundEdit {
	if len(j.undoStack) == 0 {
		return nil
	}
	return j.undoStack[len(j.undoStack)-1]
}

// Clear - drops the history. Called after load since the loaded state is the new baseline
func (j *Journal) Clear() {
	j.undoStack = nil
	j.redoStack = nil
}

func (j *Journal) record(e *Edit) {
	if j == nil || j.replaying {
		return
	}
	if len(j.open) > 0 {
		c := j.open[len(j.open)-1]
		c.Edits = append(c.Edits, e)
		return
	}
	j.push(&CompoundEdit{Name: e.Field, Edits: []*Edit{e}})
}

func (j *Journal) push(c *CompoundEdit) {
	j.undoStack = append(j.undoStack, c)
	if len(j.undoStack) > j.limit {
		j.undoStack = slices.Delete(j.undoStack, 0, len(j.undoStack)-j.limit)
	}
	j.redoStack = nil
}

func (j *Journal) replay(c *CompoundEdit, undo bool) {
	j.replaying = true
	defer func() {
		j.replaying = false
	}()
	if undo {
		for i := len(c.Edits) - 1; i >= 0; i-- {
			c.Edits[i].undo()
		}
		return
	}
	for _, e := range c.Edits {
		e.redo()
	}
}
