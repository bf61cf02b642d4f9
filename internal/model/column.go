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
	"maps"
	"strings"

	"github.com/greenmaskio/etlmodel/internal/omr"
)

type ColumnType string

const (
	ColumnTypeCharacter ColumnType = "character"
	ColumnTypeNumeric   ColumnType = "numeric"
	ColumnTypeOther     ColumnType = "other"
)

// ParseColumnType - parses a column type name. Single letter SAS forms C and N are accepted
func ParseColumnType(s string) (ColumnType, error) {
	switch strings.ToLower(s) {
	case "character", "char", "c":
		return ColumnTypeCharacter, nil
	case "numeric", "num", "n":
		return ColumnTypeNumeric, nil
	case "other":
		return ColumnTypeOther, nil
	}
	return "", fmt.Errorf("unknown column type \"%s\": %w", s, ErrInvalidOption)
}

const (
	columnAttrName        = "Name"
	columnAttrDescription = "Desc"
	columnAttrType        = "SASColumnType"
	columnAttrLength      = "SASColumnLength"
	columnAttrFormat      = "SASFormat"
	columnAttrInformat    = "SASInformat"
	columnAttrNotes       = "Notes"
)

// Column - table column. Two columns are the same only if they are the same *Column
type Column struct {
	object
	table       *Table
	name        string
	description string
	typ         ColumnType
	length      int
	format      string
	informat    string
	notes       map[string]string
}

func (c *Column) Table() *Table {
	return c.table
}

func (c *Column) Name() string {
	return c.name
}

// SetName - renames the column. col references to it in mapping expressions of the transforms
// reading or writing its table follow the new name in the same edit
func (c *Column) SetName(v string) {
	if c.name == v {
		return
	}
	if c.ws == nil {
		setField(&c.object, "Name", &c.name, v)
		return
	}
	c.ws.journal.Begin("Rename column " + c.name)
	for _, e := range c.ws.expressionsRemembering(c) {
		e.retargetColumnRefs(c, v)
	}
	setField(&c.object, "Name", &c.name, v)
	c.ws.journal.End()
}

// Description - column label
func (c *Column) Description() string {
	return c.description
}

func (c *Column) SetDescription(v string) {
	setField(&c.object, "Description", &c.description, v)
}

func (c *Column) Type() ColumnType {
	return c.typ
}

func (c *Column) SetType(v ColumnType) {
	setField(&c.object, "Type", &c.typ, v)
}

func (c *Column) Length() int {
	return c.length
}

func (c *Column) SetLength(v int) {
	setField(&c.object, "Length", &c.length, v)
}

func (c *Column) Format() string {
	return c.format
}

func (c *Column) SetFormat(v string) {
	setField(&c.object, "Format", &c.format, v)
}

func (c *Column) Informat() string {
	return c.informat
}

func (c *Column) SetInformat(v string) {
	setField(&c.object, "Informat", &c.informat, v)
}

// Notes - copy of the extended attributes
func (c *Column) Notes() map[string]string {
	return maps.Clone(c.notes)
}

func (c *Column) Note(key string) string {
	return c.notes[key]
}

// SetNotes - replaces the extended attributes
func (c *Column) SetNotes(notes map[string]string) {
	setMap(&c.object, "Notes", &c.notes, notes)
}

func (c *Column) SetNote(key, value string) {
	if v, ok := c.notes[key]; ok && v == value {
		return
	}
	notes := maps.Clone(c.notes)
	if notes == nil {
		notes = make(map[string]string)
	}
	notes[key] = value
	c.SetNotes(notes)
}

// CopyAttributesFrom - copies the full attribute set including extended attributes
func (c *Column) CopyAttributesFrom(src *Column) {
	c.SetName(src.name)
	c.copyDefinitionFrom(src)
}

// copyDefinitionFrom - copies everything except the name
func (c *Column) copyDefinitionFrom(src *Column) {
	c.SetDescription(src.description)
	c.SetType(src.typ)
	c.SetLength(src.length)
	c.SetFormat(src.format)
	c.SetInformat(src.informat)
	c.SetNotes(src.notes)
}

func (c *Column) IsChanged() bool {
	return c.changed
}

func (c *Column) IsComplete() bool {
	return c.name != "" && c.typ != "" && c.length > 0
}

func (c *Column) String() string {
	if c.table == nil {
		return c.name
	}
	return c.table.name + "." + c.name
}

func (c *Column) SaveToOMR(ctx context.Context, a *omr.Adapter) error {
	if !c.changed {
		return nil
	}
	p, err := a.Acquire(ctx, c.id, omr.TypeColumn)
	if err != nil {
		return err
	}
	p.Set(columnAttrName, c.name).
		Set(columnAttrDescription, c.description).
		Set(columnAttrType, string(c.typ)).
		Set(columnAttrLength, c.length).
		Set(columnAttrFormat, c.format).
		Set(columnAttrInformat, c.informat).
		Set(columnAttrNotes, maps.Clone(c.notes))
	if err = a.Update(ctx, p); err != nil {
		return err
	}
	c.markClean()
	return nil
}

func (c *Column) loadFromProxy(p *omr.Proxy) {
	c.id = p.ID
	c.name = p.String(columnAttrName)
	c.description = p.String(columnAttrDescription)
	c.typ = ColumnType(p.String(columnAttrType))
	c.length = p.Int(columnAttrLength)
	c.format = p.String(columnAttrFormat)
	c.informat = p.String(columnAttrInformat)
	c.notes = p.StringMap(columnAttrNotes)
	c.markClean()
}

func (c *Column) DeleteFromOMR(ctx context.Context, a *omr.Adapter) error {
	if c.IsNew() {
		return nil
	}
	return a.Delete(ctx, c.id, omr.TypeColumn)
}

func (c *Column) UpdateIDs(idMap omr.IDMap) {
	c.updateID(idMap)
}

func namesEqual(a, b string, caseSensitive bool) bool {
	if caseSensitive {
		return a == b
	}
	return strings.EqualFold(a, b)
}
