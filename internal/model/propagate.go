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
	"maps"
	"slices"

	"github.com/rs/zerolog/log"
)

// PropagateColumnsToTargetTables - copies source columns missing in the target tables and maps
// them one-to-one. Returns the created columns
func (dt *DataTransform) PropagateColumnsToTargetTables() ([]*Column, error) {
	var created []*Column
	err := dt.ws.Batch("Propagate columns to targets", func() error {
		var columns []*Column
		for _, t := range dt.sources {
			columns = append(columns, t.columns...)
		}
		for _, t := range dt.targets {
			created = append(created, dt.PropagateColumnsImpl(columns, t, dt.excludedFromPropagation, true)...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// PropagateColumnsFromTargetTables - backward propagation: copies target columns missing in the
// source tables and maps them one-to-one
func (dt *DataTransform) PropagateColumnsFromTargetTables() ([]*Column, error) {
	var created []*Column
	err := dt.ws.Batch("Propagate columns from targets", func() error {
		var columns []*Column
		for _, t := range dt.targets {
			columns = append(columns, t.columns...)
		}
		for _, t := range dt.sources {
			created = append(created, dt.PropagateColumnsImpl(columns, t, dt.excludedFromPropagation, false)...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// PropagateColumnsImpl - for every column not excluded and without a same named column in table
// creates a copy in table and a one-to-one mapping. forward means columns are sources and table
// is a target. Name matching follows the case sensitivity of table. Persistent tables are
// handled according to the workspace NonWorkTableHandling policy
func (dt *DataTransform) PropagateColumnsImpl(columns []*Column, table *Table, excluded []*Column, forward bool) []*Column {
	handling := NonWorkTablePropagate
	if !table.work {
		handling = dt.ws.policy.NonWorkTableHandling
	}
	if handling == NonWorkTableNone {
		log.Debug().
			Str("Transform", dt.name).
			Str("Table", table.name).
			Msg("propagation to persistent table is disabled: skipping")
		return nil
	}
	caseSensitive := table.IsCaseSensitive()
	var created []*Column
	for _, c := range columns {
		if c.table == table || slices.Contains(excluded, c) {
			continue
		}
		existing := table.ColumnByName(c.name, caseSensitive)
		switch {
		case existing != nil && handling == NonWorkTableMap:
			dt.propagationMapping(c, existing, forward)
		case existing != nil, handling == NonWorkTableMap:
			continue
		default:
			nc := dt.ws.copyColumn(c, table)
			table.AddColumn(nc)
			dt.propagationMapping(c, nc, forward)
			created = append(created, nc)
			log.Debug().
				Str("Transform", dt.name).
				Str("Column", c.String()).
				Str("Table", table.name).
				Bool("Forward", forward).
				Msg("column propagated")
		}
	}
	return created
}

// propagationMapping - maps c to other in the direction of propagation unless the target side
// already has an ordinary mapping
func (dt *DataTransform) propagationMapping(c, other *Column, forward bool) {
	src, tgt := c, other
	if !forward {
		src, tgt = other, c
	}
	if dt.OrdinaryMappingForTarget(tgt) != nil {
		return
	}
	typ := MappingTypeOneToOne
	if dt.IsExpressionNeeded([]*Column{src}, []*Column{tgt}) {
		typ = MappingTypeDerived
	}
	dt.addMapping([]*Column{src}, []*Column{tgt}, typ, "")
}

// UpdateMappedColumns - copies column attributes along single column mappings, from sources to
// targets when forward is set and from targets to sources otherwise. Returns the number of
// updated columns
func (dt *DataTransform) UpdateMappedColumns(forward bool) (int, error) {
	from, to := dt.sources, dt.targets
	if !forward {
		from, to = dt.targets, dt.sources
	}
	var updated int
	err := dt.ws.Batch("Update mapped columns", func() error {
		var columns []*Column
		for _, t := range from {
			columns = append(columns, t.columns...)
		}
		for _, t := range to {
			updated += dt.UpdateMappedColumnsImpl(columns, t, forward)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}

// UpdateMappedColumnsImpl - for every one-to-one or expression-less derived mapping between a
// column of columns and a column of table copies the full attribute set to the table side. A
// rename that would collide with another column of table skips that column
func (dt *DataTransform) UpdateMappedColumnsImpl(columns []*Column, table *Table, forward bool) int {
	if !table.work && dt.ws.policy.NonWorkTableHandling != NonWorkTablePropagate {
		return 0
	}
	caseSensitive := table.IsCaseSensitive()
	var updated int
	for _, m := range dt.mappings {
		if !dt.isCopyMapping(m) {
			continue
		}
		from, to := m.sources[0], m.targets[0]
		if !forward {
			from, to = to, from
		}
		if to.table != table || !slices.Contains(columns, from) {
			continue
		}
		if !namesEqual(from.name, to.name, caseSensitive) && table.ColumnByName(from.name, caseSensitive) != nil {
			log.Debug().
				Str("Transform", dt.name).
				Str("Column", to.String()).
				Str("Name", from.name).
				Msg("column name collides with another column: skipping update")
			continue
		}
		to.CopyAttributesFrom(from)
		updated++
	}
	return updated
}

// isCopyMapping - single source, single target mapping without a rendered expression
func (dt *DataTransform) isCopyMapping(m *Mapping) bool {
	if len(m.sources) != 1 || len(m.targets) != 1 {
		return false
	}
	switch m.typ {
	case MappingTypeOneToOne:
		return true
	case MappingTypeDerived:
		return !dt.DoesMappingHaveExpression(m)
	}
	return false
}

// copyColumn - deep copy of the src definition as a new column of t. The column is not appended
func (ws *Workspace) copyColumn(src *Column, t *Table) *Column {
	c := ws.NewColumn(t)
	c.name = src.name
	c.description = src.description
	c.typ = src.typ
	c.length = src.length
	c.format = src.format
	c.informat = src.informat
	if src.notes != nil {
		c.notes = maps.Clone(src.notes)
	}
	return c
}
