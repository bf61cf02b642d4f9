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
	"slices"
	"strings"

	"github.com/greenmaskio/etlmodel/internal/omr"
)

const (
	tableOptionsAttrRole       = "SetRole"
	tableOptionsAttrProperties = "Properties"
	tableOptionsAssocTable     = "Table"

	tableOptionsRoleSource = "SOURCE"
	tableOptionsRoleTarget = "TARGET"

	// serverOptionSeparator - option names written as SERVER/NAME apply to that server only
	serverOptionSeparator = "/"
)

// TableOptions - data set options a transform uses when it reads or writes a table
type TableOptions struct {
	object
	table    *Table
	isSource bool
	options  map[string]string
}

func (o *TableOptions) Table() *Table {
	return o.table
}

func (o *TableOptions) IsSource() bool {
	return o.isSource
}

func (o *TableOptions) Option(name string) string {
	return o.options[name]
}

// Options - copy of all options
func (o *TableOptions) Options() map[string]string {
	return maps.Clone(o.options)
}

// SetOption - sets the option. An empty value removes it
func (o *TableOptions) SetOption(name, value string) {
	next := maps.Clone(o.options)
	if next == nil {
		next = make(map[string]string)
	}
	if value == "" {
		delete(next, name)
	} else {
		next[name] = value
	}
	setMap(&o.object, "Options", &o.options, next)
}

// SetOptions - replaces all options
func (o *TableOptions) SetOptions(options map[string]string) {
	setMap(&o.object, "Options", &o.options, options)
}

// TableOptions - option string for server. Options are sorted by name so the generated code is
// stable
func (o *TableOptions) TableOptions(server string) string {
	names := slices.Sorted(maps.Keys(o.options))
	parts := make([]string, 0, len(names))
	for _, name := range names {
		key := name
		if i := strings.Index(name, serverOptionSeparator); i >= 0 {
			if !strings.EqualFold(name[:i], server) {
				continue
			}
			key = name[i+1:]
		}
		value := o.options[name]
		if value == "" {
			parts = append(parts, key)
			continue
		}
		parts = append(parts, key+"="+value)
	}
	return strings.Join(parts, " ")
}

func (o *TableOptions) IsChanged() bool {
	return o.changed
}

func (o *TableOptions) SaveToOMR(ctx context.Context, a *omr.Adapter) error {
	if !o.changed {
		return nil
	}
	p, err := a.Acquire(ctx, o.id, omr.TypeTableOptions)
	if err != nil {
		return err
	}
	role := tableOptionsRoleTarget
	if o.isSource {
		role = tableOptionsRoleSource
	}
	p.Set(tableOptionsAttrRole, role).
		Set(tableOptionsAttrProperties, maps.Clone(o.options)).
		SetAssociation(tableOptionsAssocTable, o.table.id)
	if err = a.Update(ctx, p); err != nil {
		return err
	}
	o.markClean()
	return nil
}

func (o *TableOptions) DeleteFromOMR(ctx context.Context, a *omr.Adapter) error {
	if o.IsNew() {
		return nil
	}
	return a.Delete(ctx, o.id, omr.TypeTableOptions)
}

func (o *TableOptions) UpdateIDs(idMap omr.IDMap) {
	o.updateID(idMap)
}

func (ws *Workspace) loadTableOptions(ctx context.Context, a *omr.Adapter, id omr.ObjectID) (*TableOptions, error) {
	p, err := a.Acquire(ctx, id, omr.TypeTableOptions)
	if err != nil {
		return nil, err
	}
	tableID := p.FirstAssociation(tableOptionsAssocTable)
	t := ws.tables[tableID]
	if t == nil {
		return nil, fmt.Errorf("table options %s refer to unknown table %s: %w", id, tableID, omr.ErrObjectNotFound)
	}
	return &TableOptions{
		object:   object{ws: ws, id: p.ID},
		table:    t,
		isSource: p.String(tableOptionsAttrRole) == tableOptionsRoleSource,
		options:  p.StringMap(tableOptionsAttrProperties),
	}, nil
}
