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

	"github.com/greenmaskio/etlmodel/internal/codegen"
	"github.com/greenmaskio/etlmodel/internal/omr"
)

const (
	defaultMaxSources = 1
	defaultMaxTargets = 1
)

// BodyFunc - generates the step body of a transform kind
type BodyFunc func(dt *DataTransform, seg *codegen.Segment) error

// ValidateFunc - kind specific completeness checks
type ValidateFunc func(dt *DataTransform) ValidationWarnings

// Requirements - structural completeness requirements
type Requirements struct {
	Source  bool
	Target  bool
	Mapping bool
}

// Kind - behaviour of a transform kind
type Kind struct {
	Name             string
	MaxSources       int
	MaxTargets       int
	AllowExpressions bool
	Requirements     Requirements
	Body             BodyFunc
	Validate         ValidateFunc
}

// DefaultKind - single source, single target transform generating ordinary mapping code
func DefaultKind() *Kind {
	return &Kind{
		Name:             "DataTransform",
		MaxSources:       defaultMaxSources,
		MaxTargets:       defaultMaxTargets,
		AllowExpressions: true,
		Requirements:     Requirements{Source: true, Target: true, Mapping: true},
		Body:             OrdinaryMappingBody,
	}
}

// KindResolver - resolves the kind name stored with a transform on load
type KindResolver func(name string) (*Kind, error)

// SortColumn - column and direction of the sort order
type SortColumn struct {
	Column     *Column
	Descending bool
}

// DataTransform - transform moving data from source tables to target tables through column
// mappings
type DataTransform struct {
	Transform
	def                     *Kind
	sources                 []*Table
	targets                 []*Table
	connectedSources        []*Table
	mappings                []*Mapping
	excludedFromMapping     []*Column
	excludedFromPropagation []*Column
	tableOptions            []*TableOptions
	workTables              []*Table
	sortColumns             []SortColumn
	classifierMapID         omr.ObjectID
	allowExpressions        bool
}

// NewDataTransform - creates a transform of kind. A nil kind means DefaultKind
func (ws *Workspace) NewDataTransform(kind *Kind, name string) *DataTransform {
	if kind == nil {
		kind = DefaultKind()
	}
	return &DataTransform{
		Transform:        newTransform(ws, kind.Name, name),
		def:              kind,
		classifierMapID:  omr.NewObjectID(),
		allowExpressions: kind.AllowExpressions,
	}
}

func (dt *DataTransform) Definition() *Kind {
	return dt.def
}

// ClassifierMapID - id of the repository record holding sources, targets and mappings
func (dt *DataTransform) ClassifierMapID() omr.ObjectID {
	return dt.classifierMapID
}

func (dt *DataTransform) MaxSources() int {
	return dt.def.MaxSources
}

func (dt *DataTransform) MaxTargets() int {
	return dt.def.MaxTargets
}

func (dt *DataTransform) AllowExpressions() bool {
	return dt.allowExpressions
}

func (dt *DataTransform) SetAllowExpressions(v bool) {
	setField(&dt.object, "AllowExpressions", &dt.allowExpressions, v)
}

func (dt *DataTransform) Sources() []*Table {
	return slices.Clone(dt.sources)
}

func (dt *DataTransform) Targets() []*Table {
	return slices.Clone(dt.targets)
}

// ConnectedSources - tables connected to the transform in the process flow
func (dt *DataTransform) ConnectedSources() []*Table {
	return slices.Clone(dt.connectedSources)
}

func (dt *DataTransform) WorkTables() []*Table {
	return slices.Clone(dt.workTables)
}

func (dt *DataTransform) Mappings() []*Mapping {
	return slices.Clone(dt.mappings)
}

func (dt *DataTransform) TableOptionsList() []*TableOptions {
	return slices.Clone(dt.tableOptions)
}

// TableOptions - options of t on the source or target side
func (dt *DataTransform) TableOptions(t *Table, isSource bool) *TableOptions {
	for _, o := range dt.tableOptions {
		if o.table == t && o.isSource == isSource {
			return o
		}
	}
	return nil
}

// AddSource - attaches t as a data source. Fails without changes when the source limit is
// reached
func (dt *DataTransform) AddSource(t *Table) error {
	if slices.Contains(dt.sources, t) {
		return fmt.Errorf("source %s: %w", t.name, ErrTableAlreadyAttached)
	}
	if len(dt.sources) >= dt.def.MaxSources {
		return fmt.Errorf("transform %s accepts at most %d source(s): %w",
			dt.name, dt.def.MaxSources, ErrUnsupportedOperation)
	}
	return dt.ws.Batch("Add source "+t.name, func() error {
		appendItem(&dt.object, "Sources", &dt.sources, t)
		appendItem(&dt.object, "ConnectedSources", &dt.connectedSources, t)
		dt.ws.link(t, dt, false)
		appendItem(&dt.object, "TableOptions", &dt.tableOptions, dt.ws.NewTableOptions(t, true))
		return nil
	})
}

// RemoveSource - detaches t. Mappings lose the columns of t and one-to-one mappings without a
// source are removed
func (dt *DataTransform) RemoveSource(t *Table) error {
	if !slices.Contains(dt.sources, t) {
		return fmt.Errorf("source %s: %w", t.name, ErrTableNotAttached)
	}
	return dt.ws.Batch("Remove source "+t.name, func() error {
		dt.detachTableColumns(t)
		removeItem(&dt.object, "Sources", &dt.sources, t)
		removeItem(&dt.object, "ConnectedSources", &dt.connectedSources, t)
		dt.ws.unlink(t, dt, false)
		dt.removeTableOptions(t, true)
		return nil
	})
}

// AddTarget - attaches t as a data target
func (dt *DataTransform) AddTarget(t *Table) error {
	if slices.Contains(dt.targets, t) {
		return fmt.Errorf("target %s: %w", t.name, ErrTableAlreadyAttached)
	}
	if len(dt.targets) >= dt.def.MaxTargets {
		return fmt.Errorf("transform %s accepts at most %d target(s): %w",
			dt.name, dt.def.MaxTargets, ErrUnsupportedOperation)
	}
	return dt.ws.Batch("Add target "+t.name, func() error {
		appendItem(&dt.object, "Targets", &dt.targets, t)
		dt.ws.link(t, dt, true)
		appendItem(&dt.object, "TableOptions", &dt.tableOptions, dt.ws.NewTableOptions(t, false))
		return nil
	})
}

// RemoveTarget - detaches t. Mappings to columns of t become dead and are removed
func (dt *DataTransform) RemoveTarget(t *Table) error {
	if !slices.Contains(dt.targets, t) {
		return fmt.Errorf("target %s: %w", t.name, ErrTableNotAttached)
	}
	return dt.ws.Batch("Remove target "+t.name, func() error {
		dt.detachTableColumns(t)
		removeItem(&dt.object, "Targets", &dt.targets, t)
		dt.ws.unlink(t, dt, true)
		dt.removeTableOptions(t, false)
		if removeItem(&dt.object, "WorkTables", &dt.workTables, t) {
			stageDelete(&dt.object, &dt.deleted, t)
		}
		return nil
	})
}

// NewWorkTarget - creates a work table owned by the transform and attaches it as a target
func (dt *DataTransform) NewWorkTarget() (*Table, error) {
	if len(dt.targets) >= dt.def.MaxTargets {
		return nil, fmt.Errorf("transform %s accepts at most %d target(s): %w",
			dt.name, dt.def.MaxTargets, ErrUnsupportedOperation)
	}
	t := dt.ws.NewWorkTable(dt.id)
	t.name = dt.name
	err := dt.ws.Batch("New work table", func() error {
		appendItem(&dt.object, "WorkTables", &dt.workTables, t)
		return dt.AddTarget(t)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (dt *DataTransform) detachTableColumns(t *Table) {
	for _, c := range t.columns {
		dt.RemoveColumnFromMappings(c)
	}
	for _, m := range slices.Clone(dt.mappings) {
		if m.typ == MappingTypeOneToOne && len(m.sources) == 0 {
			dt.RemoveMapping(m)
		}
	}
}

func (dt *DataTransform) removeTableOptions(t *Table, isSource bool) {
	if o := dt.TableOptions(t, isSource); o != nil {
		removeItem(&dt.object, "TableOptions", &dt.tableOptions, o)
		stageDelete(&dt.object, &dt.deleted, o)
	}
}

// ExcludeFromMapping - excluded columns are ignored by automatic mapping
func (dt *DataTransform) ExcludeFromMapping(c *Column, exclude bool) {
	if exclude {
		appendItem(&dt.object, "ExcludedFromMapping", &dt.excludedFromMapping, c)
		return
	}
	removeItem(&dt.object, "ExcludedFromMapping", &dt.excludedFromMapping, c)
}

func (dt *DataTransform) IsExcludedFromMapping(c *Column) bool {
	return slices.Contains(dt.excludedFromMapping, c)
}

// ExcludeFromPropagation - excluded columns are not propagated to other tables
func (dt *DataTransform) ExcludeFromPropagation(c *Column, exclude bool) {
	if exclude {
		appendItem(&dt.object, "ExcludedFromPropagation", &dt.excludedFromPropagation, c)
		return
	}
	removeItem(&dt.object, "ExcludedFromPropagation", &dt.excludedFromPropagation, c)
}

func (dt *DataTransform) IsExcludedFromPropagation(c *Column) bool {
	return slices.Contains(dt.excludedFromPropagation, c)
}

func (dt *DataTransform) ExcludedFromPropagation() []*Column {
	return slices.Clone(dt.excludedFromPropagation)
}

func (dt *DataTransform) SortColumns() []SortColumn {
	return slices.Clone(dt.sortColumns)
}

// AddSortColumn - appends c to the sort order. c must be a column of a target table
func (dt *DataTransform) AddSortColumn(c *Column, descending bool) error {
	if !slices.Contains(dt.targets, c.table) {
		return fmt.Errorf("sort column %s: %w", c.name, ErrTableNotAttached)
	}
	if slices.ContainsFunc(dt.sortColumns, func(sc SortColumn) bool {
		return sc.Column == c
	}) {
		return nil
	}
	before := slices.Clone(dt.sortColumns)
	dt.sortColumns = append(dt.sortColumns, SortColumn{Column: c, Descending: descending})
	recordList(&dt.object, "SortColumns", &dt.sortColumns, before)
	return nil
}

func (dt *DataTransform) RemoveSortColumn(c *Column) {
	idx := slices.IndexFunc(dt.sortColumns, func(sc SortColumn) bool {
		return sc.Column == c
	})
	if idx < 0 {
		return
	}
	before := slices.Clone(dt.sortColumns)
	dt.sortColumns = slices.Delete(dt.sortColumns, idx, idx+1)
	recordList(&dt.object, "SortColumns", &dt.sortColumns, before)
}

// UsesQuotedNames - any source or target table requires name literals
func (dt *DataTransform) UsesQuotedNames() bool {
	quoted := func(t *Table) bool {
		return t.quoted
	}
	return slices.ContainsFunc(dt.sources, quoted) || slices.ContainsFunc(dt.targets, quoted)
}

// IsChanged - recomputed on every call from the transform and everything it contains
func (dt *DataTransform) IsChanged() bool {
	if dt.Transform.isChanged() {
		return true
	}
	for _, m := range dt.mappings {
		if m.IsChanged() {
			return true
		}
	}
	for _, o := range dt.tableOptions {
		if o.IsChanged() {
			return true
		}
	}
	for _, list := range [][]*Table{dt.workTables, dt.sources, dt.targets} {
		for _, t := range list {
			if t.IsChanged() {
				return true
			}
		}
	}
	return false
}

// IsComplete - no fatal validation warnings
func (dt *DataTransform) IsComplete() bool {
	return !dt.Validate().IsFatal()
}

// Validate - structural requirements, completeness of sources, targets and ordinary mappings and
// kind specific checks
func (dt *DataTransform) Validate() ValidationWarnings {
	res := dt.Transform.validate()
	req := dt.def.Requirements
	if req.Source && len(dt.sources) == 0 {
		res = append(res, dt.Warning("transform has no source table"))
	}
	if req.Target && len(dt.targets) == 0 {
		res = append(res, dt.Warning("transform has no target table"))
	}
	if req.Mapping && !dt.userWritten && !dt.DoesMappingExistOnAllTargetTables() {
		res = append(res, dt.Warning("not every target table has a mapping"))
	}
	for _, list := range [][]*Table{dt.sources, dt.targets} {
		for _, t := range list {
			if !t.IsComplete() {
				res = append(res, dt.Warning("table is incomplete").AddMeta("Table", t.name))
			}
		}
	}
	for _, m := range dt.mappings {
		if m.IsOrdinary() && !m.IsComplete() {
			res = append(res, dt.Warning("mapping is incomplete").AddMeta("Mapping", m.String()))
		}
	}
	if dt.def.Validate != nil {
		res = append(res, dt.def.Validate(dt)...)
	}
	return res
}

