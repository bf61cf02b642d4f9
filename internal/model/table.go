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
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spaolacci/murmur3"

	"github.com/greenmaskio/etlmodel/internal/codegen"
	"github.com/greenmaskio/etlmodel/internal/omr"
)

const (
	tableAttrName          = "Name"
	tableAttrDescription   = "Desc"
	tableAttrLibrary       = "Libref"
	tableAttrCaseSensitive = "CaseSensitive"
	tableAttrQuoted        = "QuotedNames"
	tableAttrView          = "IsView"
	tableAssocColumns      = "Columns"
	tableAssocOwner        = "Owner"

	workLibrary         = "work"
	workTableNamePrefix = "W"
	workTableHashDigits = 7
)

// Table - ordered set of columns. Persistent tables are registered in the job, work tables are
// owned by the transform that produces them.
type Table struct {
	object
	name          string
	description   string
	library       string
	columns       []*Column
	caseSensitive bool
	quoted        bool
	work          bool
	view          bool
	owner         omr.ObjectID
	deleted       []deleter
}

func newTable(ws *Workspace, work bool) *Table {
	return &Table{
		object: newObject(ws),
		work:   work,
	}
}

func (t *Table) Name() string {
	return t.name
}

func (t *Table) SetName(v string) {
	setField(&t.object, "Name", &t.name, v)
}

func (t *Table) Description() string {
	return t.description
}

func (t *Table) SetDescription(v string) {
	setField(&t.object, "Description", &t.description, v)
}

// Library - libref the table is accessed through
func (t *Table) Library() string {
	if t.work {
		return workLibrary
	}
	return t.library
}

func (t *Table) SetLibrary(v string) {
	setField(&t.object, "Library", &t.library, v)
}

func (t *Table) IsWorkTable() bool {
	return t.work
}

// Owner - id of the transform owning a work table
func (t *Table) Owner() omr.ObjectID {
	return t.owner
}

func (t *Table) IsView() bool {
	return t.view
}

func (t *Table) SetView(v bool) {
	setField(&t.object, "View", &t.view, v)
}

func (t *Table) IsQuoted() bool {
	return t.quoted
}

func (t *Table) SetQuoted(v bool) {
	setField(&t.object, "Quoted", &t.quoted, v)
}

func (t *Table) SetCaseSensitive(v bool) {
	setField(&t.object, "CaseSensitive", &t.caseSensitive, v)
}

// IsCaseSensitive - column names of the table are compared case sensitively. Quoted names imply
// case sensitivity
func (t *Table) IsCaseSensitive() bool {
	return t.caseSensitive || t.quoted
}

// PhysicalName - the member name used in generated code. Work tables get a short name derived
// from their id
func (t *Table) PhysicalName() string {
	if !t.work {
		return t.name
	}
	return hashedName(workTableNamePrefix, t.id)
}

// hashedName - prefix followed by the zero padded base36 murmur3 hash of id
func hashedName(prefix string, id omr.ObjectID) string {
	hash := strings.ToUpper(strconv.FormatUint(uint64(murmur3.Sum32([]byte(id))), 36))
	if len(hash) < workTableHashDigits {
		hash = strings.Repeat("0", workTableHashDigits-len(hash)) + hash
	}
	return prefix + hash
}

// Ref - library qualified reference used in generated code
func (t *Table) Ref(quoting bool) string {
	if t.work {
		return codegen.TableRef(workLibrary, t.PhysicalName(), false)
	}
	return codegen.TableRef(t.library, t.name, quoting)
}

// Columns - copy of the ordered column list
func (t *Table) Columns() []*Column {
	return slices.Clone(t.columns)
}

func (t *Table) ColumnCount() int {
	return len(t.columns)
}

// ContainsColumn - reports whether c is one of the table columns
func (t *Table) ContainsColumn(c *Column) bool {
	return slices.Contains(t.columns, c)
}

// ColumnByName - first column named name
func (t *Table) ColumnByName(name string, caseSensitive bool) *Column {
	for _, c := range t.columns {
		if namesEqual(c.name, name, caseSensitive) {
			return c
		}
	}
	return nil
}

// FindColumn - column lookup honouring the table case sensitivity
func (t *Table) FindColumn(name string) *Column {
	return t.ColumnByName(name, t.IsCaseSensitive())
}

// NewColumn - creates a column and appends it to the table
func (t *Table) NewColumn(name string, typ ColumnType, length int) *Column {
	c := t.ws.NewColumn(t)
	c.name = name
	c.typ = typ
	c.length = length
	t.AddColumn(c)
	return c
}

// AddColumn - appends c. Columns of another table are rejected silently
func (t *Table) AddColumn(c *Column) {
	if c.table != t {
		return
	}
	appendItem(&t.object, "Columns", &t.columns, c)
	t.ws.registerColumn(c)
}

// RemoveColumn - removes c from the table and from the mappings of every transform reading or
// writing the table
func (t *Table) RemoveColumn(c *Column) {
	if !t.ContainsColumn(c) {
		return
	}
	t.ws.journal.Begin("Remove column " + c.name)
	defer t.ws.journal.End()
	removeItem(&t.object, "Columns", &t.columns, c)
	stageDelete(&t.object, &t.deleted, c)
	for _, dt := range t.ws.Producers(t) {
		dt.RemoveColumnFromMappings(c)
	}
	for _, dt := range t.ws.Consumers(t) {
		dt.RemoveColumnFromMappings(c)
	}
}

// MoveColumn - moves c to position idx
func (t *Table) MoveColumn(c *Column, idx int) error {
	pos := slices.Index(t.columns, c)
	if pos < 0 {
		return fmt.Errorf("column %s: %w", c.name, ErrColumnNotFound)
	}
	if idx < 0 || idx >= len(t.columns) {
		return fmt.Errorf("column position %d out of range: %w", idx, ErrInvalidOption)
	}
	if pos == idx {
		return nil
	}
	before := slices.Clone(t.columns)
	t.columns = slices.Delete(t.columns, pos, pos+1)
	t.columns = slices.Insert(t.columns, idx, c)
	recordList(&t.object, "Columns", &t.columns, before)
	return nil
}

// IsChanged - own state or any column changed
func (t *Table) IsChanged() bool {
	if t.changed || len(t.deleted) > 0 {
		return true
	}
	return slices.ContainsFunc(t.columns, func(c *Column) bool {
		return c.IsChanged()
	})
}

// IsComplete - named, has columns, all columns complete and a library unless it is a work table
func (t *Table) IsComplete() bool {
	if t.name == "" || len(t.columns) == 0 {
		return false
	}
	if !t.work && t.library == "" {
		return false
	}
	return !slices.ContainsFunc(t.columns, func(c *Column) bool {
		return !c.IsComplete()
	})
}

func (t *Table) repositoryType() omr.ObjectType {
	if t.work {
		return omr.TypeWorkTable
	}
	return omr.TypePhysicalTable
}

// SaveToOMR - writes changed columns, deletes removed ones and then the table record
func (t *Table) SaveToOMR(ctx context.Context, a *omr.Adapter) error {
	if !t.IsChanged() {
		return nil
	}
	for _, c := range t.columns {
		if err := c.SaveToOMR(ctx, a); err != nil {
			return fmt.Errorf("table %s: %w", t.name, err)
		}
	}
	for len(t.deleted) > 0 {
		if err := t.deleted[0].DeleteFromOMR(ctx, a); err != nil {
			return fmt.Errorf("table %s: %w", t.name, err)
		}
		t.deleted = t.deleted[1:]
	}
	if !t.changed {
		return nil
	}
	p, err := a.Acquire(ctx, t.id, t.repositoryType())
	if err != nil {
		return err
	}
	ids := make([]omr.ObjectID, 0, len(t.columns))
	for _, c := range t.columns {
		ids = append(ids, c.id)
	}
	p.Set(tableAttrName, t.name).
		Set(tableAttrDescription, t.description).
		Set(tableAttrLibrary, t.library).
		Set(tableAttrCaseSensitive, t.caseSensitive).
		Set(tableAttrQuoted, t.quoted).
		Set(tableAttrView, t.view).
		SetAssociation(tableAssocColumns, ids...)
	if t.owner != "" {
		p.SetAssociation(tableAssocOwner, t.owner)
	}
	if err = a.Update(ctx, p); err != nil {
		return err
	}
	t.markClean()
	return nil
}

// DeleteFromOMR - deletes the columns and then the table record
func (t *Table) DeleteFromOMR(ctx context.Context, a *omr.Adapter) error {
	if t.IsNew() {
		return nil
	}
	for _, c := range t.columns {
		if err := c.DeleteFromOMR(ctx, a); err != nil {
			return err
		}
	}
	for _, d := range t.deleted {
		if err := d.DeleteFromOMR(ctx, a); err != nil {
			return err
		}
	}
	t.deleted = nil
	return a.Delete(ctx, t.id, t.repositoryType())
}

func (t *Table) UpdateIDs(idMap omr.IDMap) {
	t.updateID(idMap)
	t.owner = idMap.Resolve(t.owner)
	for _, c := range t.columns {
		c.UpdateIDs(idMap)
	}
}

// LoadTable - returns the registered table with id or reads it and its columns from the
// repository
func (ws *Workspace) LoadTable(ctx context.Context, a *omr.Adapter, id omr.ObjectID) (*Table, error) {
	if t, ok := ws.tables[id]; ok {
		return t, nil
	}
	p, err := a.Acquire(ctx, id, "")
	if err != nil {
		return nil, err
	}
	if p.Type != omr.TypePhysicalTable && p.Type != omr.TypeWorkTable {
		return nil, fmt.Errorf("object %s is %s and not a table: %w", id, p.Type, omr.ErrTypeMismatch)
	}
	t := newTable(ws, p.Type == omr.TypeWorkTable)
	t.id = p.ID
	t.name = p.String(tableAttrName)
	t.description = p.String(tableAttrDescription)
	t.library = p.String(tableAttrLibrary)
	t.caseSensitive = p.Bool(tableAttrCaseSensitive)
	t.quoted = p.Bool(tableAttrQuoted)
	t.view = p.Bool(tableAttrView)
	t.owner = p.FirstAssociation(tableAssocOwner)
	for _, colID := range p.Association(tableAssocColumns) {
		cp, err := a.Acquire(ctx, colID, omr.TypeColumn)
		if err != nil {
			return nil, fmt.Errorf("table %s: %w", t.name, err)
		}
		c := &Column{object: object{ws: ws}, table: t}
		c.loadFromProxy(cp)
		t.columns = append(t.columns, c)
	}
	t.markClean()
	ws.registerTable(t)
	return t, nil
}
