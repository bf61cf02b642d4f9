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

	"github.com/rs/zerolog/log"
)

// ReplaceSourceTable - swaps the source old for table as one edit. Mappings are re-pointed to
// the columnsMap entry of each old column or to the same named column of table with the same type
// and at least the same length. One-to-one mappings that cannot be re-pointed are removed, other
// mappings are kept and marked changed. Table options are carried forward
func (dt *DataTransform) ReplaceSourceTable(old, table *Table, columnsMap map[*Column]*Column) error {
	if err := dt.checkReplace(dt.sources, old, table, "source"); err != nil {
		return err
	}
	return dt.ws.Batch("Replace source "+old.name, func() error {
		dt.replaceColumns(old, table, columnsMap, true)
		dt.replaceTableOptions(old, table, true)
		replaceItem(&dt.object, "Sources", &dt.sources, old, table)
		if !replaceItem(&dt.object, "ConnectedSources", &dt.connectedSources, old, table) {
			appendItem(&dt.object, "ConnectedSources", &dt.connectedSources, table)
		}
		dt.ws.unlink(old, dt, false)
		dt.ws.link(table, dt, false)
		return nil
	})
}

// ReplaceTargetTable - swaps the target old for table as one edit. A replaced work table owned by
// the transform is deleted on the next save
func (dt *DataTransform) ReplaceTargetTable(old, table *Table, columnsMap map[*Column]*Column) error {
	if err := dt.checkReplace(dt.targets, old, table, "target"); err != nil {
		return err
	}
	return dt.ws.Batch("Replace target "+old.name, func() error {
		dt.replaceColumns(old, table, columnsMap, false)
		dt.replaceTableOptions(old, table, false)
		replaceItem(&dt.object, "Targets", &dt.targets, old, table)
		dt.ws.unlink(old, dt, true)
		dt.ws.link(table, dt, true)
		if removeItem(&dt.object, "WorkTables", &dt.workTables, old) {
			stageDelete(&dt.object, &dt.deleted, old)
		}
		return nil
	})
}

func (dt *DataTransform) checkReplace(list []*Table, old, table *Table, side string) error {
	if table == nil {
		return fmt.Errorf("replacement %s table is nil: %w", side, ErrInvalidOption)
	}
	if !slices.Contains(list, old) {
		return fmt.Errorf("%s %s: %w", side, old.name, ErrTableNotAttached)
	}
	if slices.Contains(list, table) {
		return fmt.Errorf("%s %s: %w", side, table.name, ErrTableAlreadyAttached)
	}
	return nil
}

// replaceColumns - re-points every mapping, exclusion and sort column using a column of old to
// its replacement in table
func (dt *DataTransform) replaceColumns(old, table *Table, columnsMap map[*Column]*Column, isSource bool) {
	for _, oc := range old.columns {
		nc := replacementColumn(oc, table, columnsMap)
		for _, m := range dt.MappingsForColumn(oc) {
			switch {
			case nc != nil && isSource:
				m.ReplaceSourceColumn(oc, nc)
			case nc != nil && m.IsOrdinary() && dt.writesColumn(nc, m):
				log.Debug().
					Str("Transform", dt.name).
					Str("Column", nc.String()).
					Str("Mapping", m.String()).
					Msg("replacement column is already mapped: dropping target")
				m.RemoveTarget(oc)
				if m.IsDead() {
					dt.RemoveMapping(m)
				}
			case nc != nil:
				m.ReplaceTargetColumn(oc, nc)
			case m.typ == MappingTypeOneToOne:
				log.Debug().
					Str("Transform", dt.name).
					Str("Column", oc.String()).
					Str("Mapping", m.String()).
					Msg("no replacement column: removing mapping")
				dt.RemoveMapping(m)
			default:
				m.markChanged()
			}
		}
		dt.replaceColumnReferences(oc, nc)
	}
}

// writesColumn - an ordinary mapping other than m already writes c
func (dt *DataTransform) writesColumn(c *Column, m *Mapping) bool {
	return slices.ContainsFunc(dt.mappings, func(other *Mapping) bool {
		return other != m && other.IsOrdinary() && other.ContainsInTargets(c)
	})
}

// replacementColumn - explicit mapping first, then a same named column of equal type that is at
// least as long
func replacementColumn(oc *Column, table *Table, columnsMap map[*Column]*Column) *Column {
	if nc, ok := columnsMap[oc]; ok && nc != nil && nc.table == table {
		return nc
	}
	nc := table.ColumnByName(oc.name, table.IsCaseSensitive())
	if nc == nil || nc.typ != oc.typ || nc.length < oc.length {
		return nil
	}
	return nc
}

func (dt *DataTransform) replaceColumnReferences(oc, nc *Column) {
	for _, list := range []struct {
		field string
		ptr   *[]*Column
	}{
		{"ExcludedFromMapping", &dt.excludedFromMapping},
		{"ExcludedFromPropagation", &dt.excludedFromPropagation},
	} {
		if nc == nil {
			removeItem(&dt.object, list.field, list.ptr, oc)
			continue
		}
		replaceItem(&dt.object, list.field, list.ptr, oc, nc)
	}
	idx := slices.IndexFunc(dt.sortColumns, func(sc SortColumn) bool {
		return sc.Column == oc
	})
	if idx < 0 {
		return
	}
	before := slices.Clone(dt.sortColumns)
	if nc == nil {
		dt.sortColumns = slices.Delete(dt.sortColumns, idx, idx+1)
	} else {
		dt.sortColumns[idx].Column = nc
	}
	recordList(&dt.object, "SortColumns", &dt.sortColumns, before)
}

// replaceTableOptions - moves the option strings of old to new options of table keeping the list
// position
func (dt *DataTransform) replaceTableOptions(old, table *Table, isSource bool) {
	next := dt.ws.NewTableOptions(table, isSource)
	prev := dt.TableOptions(old, isSource)
	if prev == nil {
		appendItem(&dt.object, "TableOptions", &dt.tableOptions, next)
		return
	}
	next.options = prev.Options()
	replaceItem(&dt.object, "TableOptions", &dt.tableOptions, prev, next)
	stageDelete(&dt.object, &dt.deleted, prev)
}
