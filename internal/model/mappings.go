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

	"github.com/rs/zerolog/log"
)

// AddMapping - maps sources to targets. The mapping is derived when an expression is needed,
// otherwise one-to-one. Targets already used by another ordinary mapping are taken over by the
// new mapping
func (dt *DataTransform) AddMapping(sources, targets []*Column) (*Mapping, error) {
	if len(targets) == 0 {
		return nil, fmt.Errorf("mapping without target columns: %w", ErrInvalidOption)
	}
	typ := MappingTypeOneToOne
	if dt.IsExpressionNeeded(sources, targets) {
		typ = MappingTypeDerived
	}
	var m *Mapping
	err := dt.ws.Batch("Add mapping", func() error {
		m = dt.addMapping(sources, targets, typ, "")
		return nil
	})
	return m, err
}

// AddDerivedMapping - maps sources to targets through the expression text. Column references in
// the text are written with ColumnRef and resolve against sources
func (dt *DataTransform) AddDerivedMapping(sources, targets []*Column, expression string) (*Mapping, error) {
	if len(targets) == 0 {
		return nil, fmt.Errorf("mapping without target columns: %w", ErrInvalidOption)
	}
	if !dt.allowExpressions {
		return nil, fmt.Errorf("transform %s: %w", dt.name, ErrExpressionsDisabled)
	}
	var m *Mapping
	err := dt.ws.Batch("Add derived mapping", func() error {
		m = dt.addMapping(sources, targets, MappingTypeDerived, expression)
		return nil
	})
	return m, err
}

func (dt *DataTransform) addMapping(sources, targets []*Column, typ MappingType, expression string) *Mapping {
	for _, tgt := range targets {
		if existing := dt.OrdinaryMappingForTarget(tgt); existing != nil {
			existing.RemoveTarget(tgt)
			if existing.IsDead() {
				dt.RemoveMapping(existing)
			}
		}
	}
	m := dt.ws.NewMapping(dt)
	m.typ = typ
	m.sources = slices.Clone(sources)
	m.targets = slices.Clone(targets)
	if expression != "" {
		e := dt.ws.NewTextExpression(dt.id)
		e.text = expression
		e.remembered = slices.Clone(sources)
		m.expression = e
	}
	appendItem(&dt.object, "Mappings", &dt.mappings, m)
	log.Debug().
		Str("Transform", dt.name).
		Str("Mapping", m.String()).
		Msg("mapping added")
	return m
}

// RemoveMapping - removes m. A stored mapping is deleted on the next save
func (dt *DataTransform) RemoveMapping(m *Mapping) {
	if removeItem(&dt.object, "Mappings", &dt.mappings, m) {
		stageDelete(&dt.object, &dt.deleted, m)
	}
}

// ReplaceMapping - removes old and maps sources to targets as one edit
func (dt *DataTransform) ReplaceMapping(old *Mapping, sources, targets []*Column) (*Mapping, error) {
	if !slices.Contains(dt.mappings, old) {
		return nil, ErrMappingNotFound
	}
	var m *Mapping
	err := dt.ws.Batch("Replace mapping", func() error {
		var err error
		dt.RemoveMapping(old)
		m, err = dt.AddMapping(sources, targets)
		return err
	})
	return m, err
}

// OrdinaryMappingForTarget - the one-to-one or derived mapping writing c
func (dt *DataTransform) OrdinaryMappingForTarget(c *Column) *Mapping {
	for _, m := range dt.mappings {
		if m.IsOrdinary() && m.ContainsInTargets(c) {
			return m
		}
	}
	return nil
}

// MappingsForSource - mappings reading c
func (dt *DataTransform) MappingsForSource(c *Column) []*Mapping {
	var res []*Mapping
	for _, m := range dt.mappings {
		if m.ContainsInSources(c) {
			res = append(res, m)
		}
	}
	return res
}

// MappingsForColumn - mappings reading or writing c
func (dt *DataTransform) MappingsForColumn(c *Column) []*Mapping {
	var res []*Mapping
	for _, m := range dt.mappings {
		if m.Contains(c) {
			res = append(res, m)
		}
	}
	return res
}

// RemoveColumnFromMappings - detaches c from every mapping and exclusion list and prunes the
// mappings left without targets
func (dt *DataTransform) RemoveColumnFromMappings(c *Column) {
	for _, m := range dt.MappingsForColumn(c) {
		m.RemoveSource(c)
		m.RemoveTarget(c)
	}
	dt.ExcludeFromMapping(c, false)
	dt.ExcludeFromPropagation(c, false)
	dt.RemoveSortColumn(c)
	dt.PruneDeadMappings()
}

// PruneDeadMappings - removes mappings without targets and returns how many were removed
func (dt *DataTransform) PruneDeadMappings() int {
	var n int
	for _, m := range slices.Clone(dt.mappings) {
		if m.IsDead() {
			dt.RemoveMapping(m)
			n++
		}
	}
	return n
}

// IsExpressionNeeded - true unless a single source is mapped to a single target of the same type.
// Length differences do not require an expression
func (dt *DataTransform) IsExpressionNeeded(sources, targets []*Column) bool {
	if len(sources) != 1 || len(targets) != 1 {
		return true
	}
	return sources[0].typ != targets[0].typ
}

// DoesMappingHaveExpression - the mapping expression renders to non-empty text. A rendering
// failure counts as an expression
func (dt *DataTransform) DoesMappingHaveExpression(m *Mapping) bool {
	if m.expression == nil {
		return false
	}
	text, err := m.expression.GetText(dt.server, false)
	if err != nil {
		log.Warn().
			Err(err).
			Str("Transform", dt.name).
			Str("Mapping", m.String()).
			Msg("unable to evaluate mapping expression: assuming it exists")
		return true
	}
	return strings.TrimSpace(text) != ""
}

// DoesMappingExistOnAllTargetTables - every target table has at least one column written by an
// ordinary mapping. Single pass over the mappings
func (dt *DataTransform) DoesMappingExistOnAllTargetTables() bool {
	pending := make(map[*Table]struct{}, len(dt.targets))
	for _, t := range dt.targets {
		pending[t] = struct{}{}
	}
	if len(pending) == 0 {
		return true
	}
	for _, m := range dt.mappings {
		if !m.IsOrdinary() {
			continue
		}
		for _, c := range m.targets {
			delete(pending, c.table)
		}
		if len(pending) == 0 {
			return true
		}
	}
	return false
}

// SetMappingExpression - sets the expression text of a derived mapping. Empty text removes the
// expression
func (dt *DataTransform) SetMappingExpression(m *Mapping, text string, remembered []*Column) error {
	if !slices.Contains(dt.mappings, m) {
		return ErrMappingNotFound
	}
	if text != "" && !dt.allowExpressions {
		return fmt.Errorf("transform %s: %w", dt.name, ErrExpressionsDisabled)
	}
	return dt.ws.Batch("Set mapping expression", func() error {
		if text == "" {
			m.SetExpression(nil)
			if !dt.IsExpressionNeeded(m.sources, m.targets) {
				m.SetType(MappingTypeOneToOne)
			}
			return nil
		}
		e := m.expression
		if e == nil {
			e = dt.ws.NewTextExpression(dt.id)
			m.SetExpression(e)
		}
		e.SetText(text)
		for _, c := range remembered {
			e.AddRememberedColumn(c)
		}
		m.SetType(MappingTypeDerived)
		return nil
	})
}
