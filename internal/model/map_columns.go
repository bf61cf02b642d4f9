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
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

var columnRefRegexp = regexp.MustCompile(`\{\{-?\s*col\s+("(?:[^"\\]|\\.)*")\s*-?\}\}`)

// MapColumns - automatic mapping of sources to targets. Rules are tried in order and the first
// rule accepting a pair decides the mapping. A source column is mapped to at most one target per
// call. Targets already written by a mapping are skipped, except that sources referenced by the
// text of an existing expression are added to that mapping. A nil rules slice means the
// workspace policy rules.
func (dt *DataTransform) MapColumns(sources, targets []*Column, rules []MappingRule) ([]*Mapping, error) {
	if rules == nil {
		rules = dt.ws.policy.Rules
	}
	var created []*Mapping
	err := dt.ws.Batch("Map columns", func() error {
		pool := slices.DeleteFunc(slices.Clone(sources), dt.IsExcludedFromMapping)
		for _, tgt := range targets {
			if len(pool) == 0 {
				break
			}
			if dt.IsExcludedFromMapping(tgt) {
				continue
			}
			if existing := dt.OrdinaryMappingForTarget(tgt); existing != nil {
				if dt.DoesMappingHaveExpression(existing) {
					dt.mergeReferencedSources(existing, pool)
				}
				continue
			}
			idx, m := dt.mapTarget(tgt, pool, rules)
			if m == nil {
				continue
			}
			pool = slices.Delete(pool, idx, idx+1)
			created = append(created, m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// MapAllColumns - MapColumns over every column of every source and target table
func (dt *DataTransform) MapAllColumns() ([]*Mapping, error) {
	var sources, targets []*Column
	for _, t := range dt.sources {
		sources = append(sources, t.columns...)
	}
	for _, t := range dt.targets {
		targets = append(targets, t.columns...)
	}
	return dt.MapColumns(sources, targets, nil)
}

// mapTarget - finds the first rule and pool column accepting tgt and creates the mapping
func (dt *DataTransform) mapTarget(tgt *Column, pool []*Column, rules []MappingRule) (int, *Mapping) {
	for _, rule := range rules {
		for idx, src := range pool {
			if src == tgt {
				continue
			}
			ok, expression := rule.CanMap(src, tgt)
			if !ok {
				continue
			}
			if expression != "" && !dt.allowExpressions {
				log.Debug().
					Str("Transform", dt.name).
					Str("Rule", rule.Name()).
					Str("Source", src.String()).
					Str("Target", tgt.String()).
					Msg("rule requires an expression but expressions are disabled: skipping")
				continue
			}
			typ := MappingTypeOneToOne
			if expression != "" {
				typ = MappingTypeDerived
			}
			log.Debug().
				Str("Transform", dt.name).
				Str("Rule", rule.Name()).
				Str("Source", src.String()).
				Str("Target", tgt.String()).
				Msg("column mapped")
			return idx, dt.addMapping([]*Column{src}, []*Column{tgt}, typ, expression)
		}
	}
	return -1, nil
}

// mergeReferencedSources - adds pool columns referenced by the expression text of m to its
// sources and remembered columns
func (dt *DataTransform) mergeReferencedSources(m *Mapping, pool []*Column) {
	names := ReferencedColumnNames(m.expression.text)
	if len(names) == 0 {
		return
	}
	for _, src := range pool {
		if m.ContainsInSources(src) {
			continue
		}
		if !slices.ContainsFunc(names, func(name string) bool {
			return strings.EqualFold(name, src.name)
		}) {
			continue
		}
		m.AddSource(src)
		m.expression.AddRememberedColumn(src)
	}
}

// ReferencedColumnNames - names referenced by col actions of the expression text
func ReferencedColumnNames(text string) []string {
	var res []string
	for _, match := range columnRefRegexp.FindAllStringSubmatch(text, -1) {
		name, err := strconv.Unquote(match[1])
		if err != nil {
			continue
		}
		if !slices.Contains(res, name) {
			res = append(res, name)
		}
	}
	return res
}
