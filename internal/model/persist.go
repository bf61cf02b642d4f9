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

	"github.com/rs/zerolog/log"

	"github.com/greenmaskio/etlmodel/internal/omr"
)

const (
	dataTransformAttrAllowExpressions   = "AllowExpressions"
	dataTransformAttrSortDescending     = "SortDescending"
	dataTransformAssocClassifierMap     = "ClassifierMap"
	dataTransformAssocTableOptions      = "TableOptions"
	dataTransformAssocWorkTables        = "WorkTables"
	dataTransformAssocConnectedSources  = "ConnectedSources"
	dataTransformAssocExcludedMapping   = "ExcludedFromMapping"
	dataTransformAssocExcludedPropagate = "ExcludedFromPropagation"
	dataTransformAssocSortColumns       = "SortColumns"

	classifierMapAssocSources  = "ClassifierSources"
	classifierMapAssocTargets  = "ClassifierTargets"
	classifierMapAssocMappings = "FeatureMaps"
)

// SaveToOMR - writes the transform and everything it contains. Tables are written first, then
// mappings, table options, pre/post code and condition sets, then the classifier map and finally
// the transform record. Nothing is marked clean unless its record was written
func (dt *DataTransform) SaveToOMR(ctx context.Context, a *omr.Adapter) error {
	if !dt.IsChanged() {
		return nil
	}
	// owned work tables and the expressions refer to the transform before its record is written
	a.Reserve(dt.id)
	for _, list := range [][]*Table{dt.workTables, dt.sources, dt.targets} {
		for _, t := range list {
			if err := t.SaveToOMR(ctx, a); err != nil {
				return fmt.Errorf("transform %s: %w", dt.name, err)
			}
		}
	}
	if n := dt.PruneDeadMappings(); n > 0 {
		log.Debug().
			Str("Transform", dt.name).
			Int("Count", n).
			Msg("dead mappings removed before save")
	}
	for _, m := range dt.mappings {
		if err := m.SaveToOMR(ctx, a); err != nil {
			return fmt.Errorf("transform %s: %w", dt.name, err)
		}
	}
	for _, o := range dt.tableOptions {
		if err := o.SaveToOMR(ctx, a); err != nil {
			return fmt.Errorf("transform %s: %w", dt.name, err)
		}
	}
	if err := dt.saveChildren(ctx, a); err != nil {
		return fmt.Errorf("transform %s: %w", dt.name, err)
	}
	if err := dt.saveClassifierMap(ctx, a); err != nil {
		return fmt.Errorf("transform %s: %w", dt.name, err)
	}
	p, err := a.Acquire(ctx, dt.id, omr.TypeTransform)
	if err != nil {
		return fmt.Errorf("transform %s: %w", dt.name, err)
	}
	dt.saveAttributes(p)
	optionIDs := make([]omr.ObjectID, 0, len(dt.tableOptions))
	for _, o := range dt.tableOptions {
		optionIDs = append(optionIDs, o.id)
	}
	sortIDs := make([]omr.ObjectID, 0, len(dt.sortColumns))
	descending := make([]bool, 0, len(dt.sortColumns))
	for _, sc := range dt.sortColumns {
		sortIDs = append(sortIDs, sc.Column.id)
		descending = append(descending, sc.Descending)
	}
	p.Set(dataTransformAttrAllowExpressions, dt.allowExpressions).
		Set(dataTransformAttrSortDescending, descending).
		SetAssociation(dataTransformAssocClassifierMap, dt.classifierMapID).
		SetAssociation(dataTransformAssocTableOptions, optionIDs...).
		SetAssociation(dataTransformAssocWorkTables, tableIDs(dt.workTables)...).
		SetAssociation(dataTransformAssocConnectedSources, tableIDs(dt.connectedSources)...).
		SetAssociation(dataTransformAssocExcludedMapping, columnIDs(dt.excludedFromMapping)...).
		SetAssociation(dataTransformAssocExcludedPropagate, columnIDs(dt.excludedFromPropagation)...).
		SetAssociation(dataTransformAssocSortColumns, sortIDs...)
	if err = a.Update(ctx, p); err != nil {
		return fmt.Errorf("transform %s: %w", dt.name, err)
	}
	dt.markAllClean()
	log.Debug().
		Str("Transform", dt.name).
		Str("ID", p.ID.String()).
		Msg("transform saved")
	return nil
}

func (dt *DataTransform) saveClassifierMap(ctx context.Context, a *omr.Adapter) error {
	p, err := a.Acquire(ctx, dt.classifierMapID, omr.TypeClassifierMap)
	if err != nil {
		return err
	}
	mappingIDs := make([]omr.ObjectID, 0, len(dt.mappings))
	for _, m := range dt.mappings {
		mappingIDs = append(mappingIDs, m.id)
	}
	p.Set(transformAttrName, dt.name).
		SetAssociation(classifierMapAssocSources, tableIDs(dt.sources)...).
		SetAssociation(classifierMapAssocTargets, tableIDs(dt.targets)...).
		SetAssociation(classifierMapAssocMappings, mappingIDs...)
	return a.Update(ctx, p)
}

// LoadDataTransform - reads the transform with id. The kind stored with the transform is
// resolved with resolve, a nil resolver means DefaultKind
func (ws *Workspace) LoadDataTransform(ctx context.Context, a *omr.Adapter, id omr.ObjectID, resolve KindResolver) (
	*DataTransform, error,
) {
	p, err := a.Acquire(ctx, id, omr.TypeTransform)
	if err != nil {
		return nil, err
	}
	kind := DefaultKind()
	if resolve != nil {
		if kind, err = resolve(p.String(transformAttrKind)); err != nil {
			return nil, fmt.Errorf("transform %s: %w", id, err)
		}
	}
	dt := ws.NewDataTransform(kind, "")
	dt.id = p.ID
	if err = dt.LoadFromOMR(ctx, a); err != nil {
		return nil, err
	}
	return dt, nil
}

// LoadFromOMR - replaces the in-memory state with the stored one and marks everything clean
func (dt *DataTransform) LoadFromOMR(ctx context.Context, a *omr.Adapter) error {
	p, err := a.Acquire(ctx, dt.id, omr.TypeTransform)
	if err != nil {
		return err
	}
	if err = dt.loadAttributes(ctx, a, p); err != nil {
		return fmt.Errorf("transform %s: %w", dt.id, err)
	}
	for _, t := range dt.sources {
		dt.ws.applyLink(t, dt, false, false)
	}
	for _, t := range dt.targets {
		dt.ws.applyLink(t, dt, true, false)
	}
	dt.allowExpressions = dt.def.AllowExpressions
	if p.Has(dataTransformAttrAllowExpressions) {
		dt.allowExpressions = p.Bool(dataTransformAttrAllowExpressions)
	}
	if dt.workTables, err = dt.ws.loadTables(ctx, a, p.Association(dataTransformAssocWorkTables)); err != nil {
		return fmt.Errorf("transform %s: %w", dt.name, err)
	}
	for _, t := range dt.workTables {
		t.owner = dt.id
	}
	if err = dt.loadClassifierMap(ctx, a, p.FirstAssociation(dataTransformAssocClassifierMap)); err != nil {
		return fmt.Errorf("transform %s: %w", dt.name, err)
	}
	if dt.connectedSources, err = dt.ws.loadTables(ctx, a, p.Association(dataTransformAssocConnectedSources)); err != nil {
		return fmt.Errorf("transform %s: %w", dt.name, err)
	}
	dt.tableOptions = nil
	for _, optID := range p.Association(dataTransformAssocTableOptions) {
		o, err := dt.ws.loadTableOptions(ctx, a, optID)
		if err != nil {
			return fmt.Errorf("transform %s: %w", dt.name, err)
		}
		dt.tableOptions = append(dt.tableOptions, o)
	}
	if dt.excludedFromMapping, err = dt.ws.resolveColumns(p.Association(dataTransformAssocExcludedMapping)); err != nil {
		return fmt.Errorf("transform %s: %w", dt.name, err)
	}
	if dt.excludedFromPropagation, err = dt.ws.resolveColumns(p.Association(dataTransformAssocExcludedPropagate)); err != nil {
		return fmt.Errorf("transform %s: %w", dt.name, err)
	}
	sortColumns, err := dt.ws.resolveColumns(p.Association(dataTransformAssocSortColumns))
	if err != nil {
		return fmt.Errorf("transform %s: %w", dt.name, err)
	}
	descending := p.BoolSlice(dataTransformAttrSortDescending)
	dt.sortColumns = make([]SortColumn, 0, len(sortColumns))
	for i, c := range sortColumns {
		dt.sortColumns = append(dt.sortColumns, SortColumn{Column: c, Descending: i < len(descending) && descending[i]})
	}
	for _, t := range dt.sources {
		dt.ws.applyLink(t, dt, false, true)
	}
	for _, t := range dt.targets {
		dt.ws.applyLink(t, dt, true, true)
	}
	dt.deleted = nil
	dt.markAllClean()
	if p.FirstAssociation(transformAssocPreProcess) == "" {
		dt.preProcess.markChanged()
	}
	if p.FirstAssociation(transformAssocPostProcess) == "" {
		dt.postProcess.markChanged()
	}
	return nil
}

func (dt *DataTransform) loadClassifierMap(ctx context.Context, a *omr.Adapter, id omr.ObjectID) error {
	dt.sources, dt.targets, dt.mappings = nil, nil, nil
	if id == "" {
		dt.classifierMapID = omr.NewObjectID()
		return nil
	}
	p, err := a.Acquire(ctx, id, omr.TypeClassifierMap)
	if err != nil {
		return err
	}
	dt.classifierMapID = p.ID
	if dt.sources, err = dt.ws.loadTables(ctx, a, p.Association(classifierMapAssocSources)); err != nil {
		return err
	}
	if dt.targets, err = dt.ws.loadTables(ctx, a, p.Association(classifierMapAssocTargets)); err != nil {
		return err
	}
	for _, mappingID := range p.Association(classifierMapAssocMappings) {
		m, err := dt.ws.loadMapping(ctx, a, mappingID, dt)
		if err != nil {
			return err
		}
		dt.mappings = append(dt.mappings, m)
	}
	return nil
}

func (ws *Workspace) loadTables(ctx context.Context, a *omr.Adapter, ids []omr.ObjectID) ([]*Table, error) {
	res := make([]*Table, 0, len(ids))
	for _, id := range ids {
		t, err := ws.LoadTable(ctx, a, id)
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}
	return res, nil
}

// DeleteFromOMR - deletes owned work tables, mappings with the classifier map, table options, pre
// and post code, condition sets and finally the transform record. A transform that was never
// saved has nothing to delete
func (dt *DataTransform) DeleteFromOMR(ctx context.Context, a *omr.Adapter) error {
	if dt.IsNew() {
		return nil
	}
	for _, t := range dt.workTables {
		if err := t.DeleteFromOMR(ctx, a); err != nil {
			return fmt.Errorf("transform %s: %w", dt.name, err)
		}
	}
	for _, m := range dt.mappings {
		if err := m.DeleteFromOMR(ctx, a); err != nil {
			return fmt.Errorf("transform %s: %w", dt.name, err)
		}
	}
	if !dt.classifierMapID.IsNew() {
		if err := a.Delete(ctx, dt.classifierMapID, omr.TypeClassifierMap); err != nil {
			return fmt.Errorf("transform %s: %w", dt.name, err)
		}
	}
	for _, o := range dt.tableOptions {
		if err := o.DeleteFromOMR(ctx, a); err != nil {
			return fmt.Errorf("transform %s: %w", dt.name, err)
		}
	}
	if err := dt.deleteChildren(ctx, a); err != nil {
		return fmt.Errorf("transform %s: %w", dt.name, err)
	}
	return a.Delete(ctx, dt.id, omr.TypeTransform)
}

// UpdateIDs - replaces new object ids with the permanent ids assigned on save, including the
// classifier map id
func (dt *DataTransform) UpdateIDs(idMap omr.IDMap) {
	dt.updateIDs(idMap)
	dt.classifierMapID = idMap.Resolve(dt.classifierMapID)
	for _, list := range [][]*Table{dt.workTables, dt.sources, dt.targets, dt.connectedSources} {
		for _, t := range list {
			t.UpdateIDs(idMap)
		}
	}
	for _, m := range dt.mappings {
		m.UpdateIDs(idMap)
	}
	for _, o := range dt.tableOptions {
		o.UpdateIDs(idMap)
	}
	dt.ws.rekey()
}

func tableIDs(tables []*Table) []omr.ObjectID {
	res := make([]omr.ObjectID, 0, len(tables))
	for _, t := range tables {
		res = append(res, t.id)
	}
	return res
}
