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
	"fmt"
	"slices"
	"strings"

	"github.com/greenmaskio/etlmodel/internal/omr"
)

// NonWorkTableHandling - what propagation does when the destination is a persistent table
type NonWorkTableHandling int

const (
	// NonWorkTablePropagate - create columns and mappings as for work tables
	NonWorkTablePropagate NonWorkTableHandling = iota
	// NonWorkTableMap - create mappings to already existing columns only
	NonWorkTableMap
	// NonWorkTableNone - leave persistent tables untouched
	NonWorkTableNone
)

var nonWorkTableHandlingNames = map[NonWorkTableHandling]string{
	NonWorkTablePropagate: "propagate",
	NonWorkTableMap:       "map",
	NonWorkTableNone:      "none",
}

func (h NonWorkTableHandling) String() string {
	if name, ok := nonWorkTableHandlingNames[h]; ok {
		return name
	}
	return fmt.Sprintf("NonWorkTableHandling(%d)", int(h))
}

// ParseNonWorkTableHandling - parses propagate, map or none
func ParseNonWorkTableHandling(s string) (NonWorkTableHandling, error) {
	for h, name := range nonWorkTableHandlingNames {
		if strings.EqualFold(name, s) {
			return h, nil
		}
	}
	return 0, fmt.Errorf("unknown non work table handling \"%s\": %w", s, ErrInvalidOption)
}

// Policy - mapping and propagation knobs shared by every transform of a workspace
type Policy struct {
	NonWorkTableHandling NonWorkTableHandling
	// Rules - ordered auto-mapping rules, the first rule that accepts a column pair wins
	Rules []MappingRule
}

func DefaultPolicy() Policy {
	return Policy{
		NonWorkTableHandling: NonWorkTablePropagate,
		Rules:                DefaultMappingRules(),
	}
}

// Workspace - context of one model graph. Every object is created through the workspace so it
// gets an id the repository can replace on save. The workspace also keeps the producer/consumer
// index between tables and transforms and the undo journal.
type Workspace struct {
	journal   *Journal
	policy    Policy
	tables    map[omr.ObjectID]*Table
	columns   map[omr.ObjectID]*Column
	producers map[*Table][]*DataTransform
	consumers map[*Table][]*DataTransform
}

func NewWorkspace(policy Policy) *Workspace {
	if len(policy.Rules) == 0 {
		policy.Rules = DefaultMappingRules()
	}
	return &Workspace{
		journal:   NewJournal(0),
		policy:    policy,
		tables:    make(map[omr.ObjectID]*Table),
		columns:   make(map[omr.ObjectID]*Column),
		producers: make(map[*Table][]*DataTransform),
		consumers: make(map[*Table][]*DataTransform),
	}
}

func (ws *Workspace) Journal() *Journal {
	return ws.journal
}

func (ws *Workspace) Policy() Policy {
	return ws.policy
}

func (ws *Workspace) SetPolicy(p Policy) {
	if len(p.Rules) == 0 {
		p.Rules = DefaultMappingRules()
	}
	ws.policy = p
}

// Batch - runs fn as one compound edit. When fn fails every edit made by fn is reverted and the
// error is returned
func (ws *Workspace) Batch(name string, fn func() error) error {
	ws.journal.Begin(name)
	if err := fn(); err != nil {
		ws.journal.Rollback()
		return err
	}
	ws.journal.End()
	return nil
}

// Undo - reverts the last compound edit
func (ws *Workspace) Undo() bool {
	return ws.journal.Undo()
}

// Redo - re-applies the last undone compound edit
func (ws *Workspace) Redo() bool {
	return ws.journal.Redo()
}

// Table - registered table by id
func (ws *Workspace) Table(id omr.ObjectID) *Table {
	return ws.tables[id]
}

// Column - registered column by id
func (ws *Workspace) Column(id omr.ObjectID) *Column {
	return ws.columns[id]
}

// Producers - transforms that write into t
func (ws *Workspace) Producers(t *Table) []*DataTransform {
	return slices.Clone(ws.producers[t])
}

// Consumers - transforms that read t
func (ws *Workspace) Consumers(t *Table) []*DataTransform {
	return slices.Clone(ws.consumers[t])
}

// NewPhysicalTable - creates a persistent table registered in the workspace
func (ws *Workspace) NewPhysicalTable(name, library string) *Table {
	t := newTable(ws, false)
	t.name = name
	t.library = library
	ws.tables[t.id] = t
	return t
}

// NewWorkTable - creates a transient table owned by the transform ownerID
func (ws *Workspace) NewWorkTable(ownerID omr.ObjectID) *Table {
	t := newTable(ws, true)
	t.owner = ownerID
	ws.tables[t.id] = t
	return t
}

// NewColumn - creates a column that belongs to t. The column is not appended to t
func (ws *Workspace) NewColumn(t *Table) *Column {
	c := &Column{
		object: newObject(ws),
		table:  t,
		typ:    ColumnTypeCharacter,
		notes:  make(map[string]string),
	}
	ws.columns[c.id] = c
	return c
}

// NewMapping - creates a one-to-one mapping owned by the transform
func (ws *Workspace) NewMapping(owner *DataTransform) *Mapping {
	return &Mapping{
		object: newObject(ws),
		owner:  owner,
		typ:    MappingTypeOneToOne,
	}
}

// NewTextExpression - creates an empty expression owned by ownerID
func (ws *Workspace) NewTextExpression(ownerID omr.ObjectID) *TextExpression {
	return &TextExpression{
		object: newObject(ws),
		owner:  ownerID,
	}
}

// NewTableOptions - creates the access options of table t used by a transform
func (ws *Workspace) NewTableOptions(t *Table, isSource bool) *TableOptions {
	return &TableOptions{
		object:   newObject(ws),
		table:    t,
		isSource: isSource,
		options:  make(map[string]string),
	}
}

func (ws *Workspace) NewSourceCode(side string) *SourceCode {
	return &SourceCode{
		object: newObject(ws),
		side:   side,
	}
}

func (ws *Workspace) NewConditionActionSet(name string) *ConditionActionSet {
	return &ConditionActionSet{
		object: newObject(ws),
		name:   name,
	}
}

// expressionsRemembering - mapping expressions of the producers and consumers of the table of c
// that remember c
func (ws *Workspace) expressionsRemembering(c *Column) []*TextExpression {
	var res []*TextExpression
	for _, dt := range slices.Concat(ws.consumers[c.table], ws.producers[c.table]) {
		for _, m := range dt.mappings {
			if m.expression != nil && m.expression.ContainsRememberedColumn(c) && !slices.Contains(res, m.expression) {
				res = append(res, m.expression)
			}
		}
	}
	return res
}

func (ws *Workspace) registerTable(t *Table) {
	ws.tables[t.id] = t
	for _, c := range t.columns {
		ws.columns[c.id] = c
	}
}

func (ws *Workspace) registerColumn(c *Column) {
	ws.columns[c.id] = c
}

// rekey - rebuilds the registry after ids were replaced with permanent ones
func (ws *Workspace) rekey() {
	tables := make(map[omr.ObjectID]*Table, len(ws.tables))
	for _, t := range ws.tables {
		tables[t.id] = t
	}
	columns := make(map[omr.ObjectID]*Column, len(ws.columns))
	for _, c := range ws.columns {
		columns[c.id] = c
	}
	ws.tables = tables
	ws.columns = columns
}

// link - registers dt as producer (target side) or consumer (source side) of t
func (ws *Workspace) link(t *Table, dt *DataTransform, producer bool) {
	if ws.applyLink(t, dt, producer, true) {
		ws.recordLink(t, dt, producer, true)
	}
}

func (ws *Workspace) unlink(t *Table, dt *DataTransform, producer bool) {
	if ws.applyLink(t, dt, producer, false) {
		ws.recordLink(t, dt, producer, false)
	}
}

func (ws *Workspace) applyLink(t *Table, dt *DataTransform, producer, add bool) bool {
	index := ws.consumers
	if producer {
		index = ws.producers
	}
	if slices.Contains(index[t], dt) == add {
		return false
	}
	if add {
		index[t] = append(index[t], dt)
		return true
	}
	index[t] = slices.DeleteFunc(index[t], func(item *DataTransform) bool {
		return item == dt
	})
	if len(index[t]) == 0 {
		delete(index, t)
	}
	return true
}

func (ws *Workspace) recordLink(t *Table, dt *DataTransform, producer, added bool) {
	ws.journal.record(&Edit{
		Kind:     EditLink,
		ObjectID: dt.id,
		Field:    t.name,
		Before:   !added,
		After:    added,
		undo: func() {
			ws.applyLink(t, dt, producer, !added)
		},
		redo: func() {
			ws.applyLink(t, dt, producer, added)
		},
	})
}
