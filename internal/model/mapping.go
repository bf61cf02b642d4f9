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

	"github.com/greenmaskio/etlmodel/internal/omr"
)

type MappingType string

const (
	MappingTypeOneToOne MappingType = "OneToOne"
	MappingTypeDerived  MappingType = "Derived"
	// MappingTypeSpecial - mapping handled by the transform itself, e.g. a lookup or an aggregate
	MappingTypeSpecial MappingType = "Special"
)

const (
	mappingAttrType        = "MappingType"
	mappingAssocSources    = "FeatureSources"
	mappingAssocTargets    = "FeatureTargets"
	mappingAssocExpression = "SourceCode"
)

// Mapping - link from source columns to target columns
type Mapping struct {
	object
	owner      *DataTransform
	sources    []*Column
	targets    []*Column
	typ        MappingType
	expression *TextExpression
	deleted    []deleter
}

func (m *Mapping) Owner() *DataTransform {
	return m.owner
}

func (m *Mapping) Type() MappingType {
	return m.typ
}

func (m *Mapping) SetType(v MappingType) {
	setField(&m.object, "Type", &m.typ, v)
}

func (m *Mapping) Sources() []*Column {
	return slices.Clone(m.sources)
}

func (m *Mapping) Targets() []*Column {
	return slices.Clone(m.targets)
}

// IsOrdinary - one-to-one or derived mapping
func (m *Mapping) IsOrdinary() bool {
	return m.typ == MappingTypeOneToOne || m.typ == MappingTypeDerived
}

// IsDead - mapping that lost all its targets. Special mappings are dead when they lost all
// columns
func (m *Mapping) IsDead() bool {
	if m.typ == MappingTypeSpecial {
		return len(m.targets) == 0 && len(m.sources) == 0
	}
	return len(m.targets) == 0
}

func (m *Mapping) ContainsInSources(c *Column) bool {
	return slices.Contains(m.sources, c)
}

func (m *Mapping) ContainsInTargets(c *Column) bool {
	return slices.Contains(m.targets, c)
}

// Contains - c is one of the mapping sources or targets
func (m *Mapping) Contains(c *Column) bool {
	return m.ContainsInSources(c) || m.ContainsInTargets(c)
}

func (m *Mapping) AddSource(c *Column) {
	appendItem(&m.object, "Sources", &m.sources, c)
}

func (m *Mapping) RemoveSource(c *Column) {
	removeItem(&m.object, "Sources", &m.sources, c)
}

func (m *Mapping) AddTarget(c *Column) {
	appendItem(&m.object, "Targets", &m.targets, c)
}

func (m *Mapping) RemoveTarget(c *Column) {
	removeItem(&m.object, "Targets", &m.targets, c)
}

// ReplaceSourceColumn - re-points the mapping and its expression from old to c
func (m *Mapping) ReplaceSourceColumn(old, c *Column) {
	replaceItem(&m.object, "Sources", &m.sources, old, c)
	if m.expression != nil {
		m.expression.ReplaceRememberedColumn(old, c)
	}
}

func (m *Mapping) ReplaceTargetColumn(old, c *Column) {
	replaceItem(&m.object, "Targets", &m.targets, old, c)
}

func (m *Mapping) Expression() *TextExpression {
	return m.expression
}

// SetExpression - assigns the expression. A replaced stored expression is deleted on save
func (m *Mapping) SetExpression(e *TextExpression) {
	if m.expression == e {
		return
	}
	if m.expression != nil {
		stageDelete(&m.object, &m.deleted, m.expression)
	}
	setField(&m.object, "Expression", &m.expression, e)
}

// IsComplete - one-to-one mappings link exactly one source to one target, derived mappings need
// an expression unless they copy a single source
func (m *Mapping) IsComplete() bool {
	switch m.typ {
	case MappingTypeOneToOne:
		return len(m.sources) == 1 && len(m.targets) == 1
	case MappingTypeDerived:
		if len(m.targets) == 0 {
			return false
		}
		if m.expression == nil || m.expression.IsEmpty() {
			return len(m.sources) == 1
		}
		return true
	}
	return !m.IsDead()
}

func (m *Mapping) IsChanged() bool {
	return m.changed || len(m.deleted) > 0 || (m.expression != nil && m.expression.IsChanged())
}

func (m *Mapping) String() string {
	return fmt.Sprintf("%s %v -> %v", m.typ, m.sources, m.targets)
}

// SaveToOMR - writes the expression and then the mapping record
func (m *Mapping) SaveToOMR(ctx context.Context, a *omr.Adapter) error {
	if !m.IsChanged() {
		return nil
	}
	if m.expression != nil {
		if err := m.expression.SaveToOMR(ctx, a); err != nil {
			return err
		}
	}
	for len(m.deleted) > 0 {
		if err := m.deleted[0].DeleteFromOMR(ctx, a); err != nil {
			return err
		}
		m.deleted = m.deleted[1:]
	}
	if !m.changed {
		return nil
	}
	p, err := a.Acquire(ctx, m.id, omr.TypeMapping)
	if err != nil {
		return err
	}
	p.Set(mappingAttrType, string(m.typ)).
		SetAssociation(mappingAssocSources, columnIDs(m.sources)...).
		SetAssociation(mappingAssocTargets, columnIDs(m.targets)...)
	if m.expression != nil {
		p.SetAssociation(mappingAssocExpression, m.expression.id)
	} else {
		p.SetAssociation(mappingAssocExpression)
	}
	if err = a.Update(ctx, p); err != nil {
		return err
	}
	m.markClean()
	return nil
}

// DeleteFromOMR - deletes the expression and then the mapping record
func (m *Mapping) DeleteFromOMR(ctx context.Context, a *omr.Adapter) error {
	if m.expression != nil {
		if err := m.expression.DeleteFromOMR(ctx, a); err != nil {
			return err
		}
	}
	for _, d := range m.deleted {
		if err := d.DeleteFromOMR(ctx, a); err != nil {
			return err
		}
	}
	m.deleted = nil
	if m.IsNew() {
		return nil
	}
	return a.Delete(ctx, m.id, omr.TypeMapping)
}

func (m *Mapping) UpdateIDs(idMap omr.IDMap) {
	m.updateID(idMap)
	if m.expression != nil {
		m.expression.UpdateIDs(idMap)
	}
}

func (ws *Workspace) loadMapping(ctx context.Context, a *omr.Adapter, id omr.ObjectID, owner *DataTransform) (
	*Mapping, error,
) {
	p, err := a.Acquire(ctx, id, omr.TypeMapping)
	if err != nil {
		return nil, err
	}
	m := &Mapping{
		object: object{ws: ws, id: p.ID},
		owner:  owner,
		typ:    MappingType(p.String(mappingAttrType)),
	}
	if m.sources, err = ws.resolveColumns(p.Association(mappingAssocSources)); err != nil {
		return nil, fmt.Errorf("mapping %s: %w", id, err)
	}
	if m.targets, err = ws.resolveColumns(p.Association(mappingAssocTargets)); err != nil {
		return nil, fmt.Errorf("mapping %s: %w", id, err)
	}
	if exprID := p.FirstAssociation(mappingAssocExpression); exprID != "" {
		if m.expression, err = ws.loadTextExpression(ctx, a, exprID, owner.id); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (ws *Workspace) resolveColumns(ids []omr.ObjectID) ([]*Column, error) {
	res := make([]*Column, 0, len(ids))
	for _, id := range ids {
		c := ws.columns[id]
		if c == nil {
			return nil, fmt.Errorf("column %s: %w", id, ErrColumnNotFound)
		}
		res = append(res, c)
	}
	return res, nil
}

func columnIDs(columns []*Column) []omr.ObjectID {
	res := make([]omr.ObjectID, 0, len(columns))
	for _, c := range columns {
		res = append(res, c.id)
	}
	return res
}
