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

package transforms

import (
	"github.com/greenmaskio/etlmodel/internal/model"
)

const (
	defaultMaxSources = 1
	defaultMaxTargets = 1
	// Unlimited - max sources or targets of kinds without a limit
	Unlimited = 1 << 16
)

// Properties - name, description and free form metadata of a transform kind
type Properties struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Meta        map[string]any `json:"meta,omitempty"`
}

func NewProperties(name, description string) *Properties {
	return &Properties{
		Name:        name,
		Description: description,
		Meta:        make(map[string]any),
	}
}

func (p *Properties) AddMeta(key string, value any) *Properties {
	p.Meta[key] = value
	return p
}

// InitFunc - prepares a newly created transform of the kind
type InitFunc func(dt *model.DataTransform)

// Definition - behaviour of a transform kind. The generated code and the kind specific checks
// are supplied as functions
type Definition struct {
	Properties       *Properties        `json:"properties"`
	MaxSources       int                `json:"max_sources"`
	MaxTargets       int                `json:"max_targets"`
	AllowExpressions bool               `json:"allow_expressions"`
	Requirements     model.Requirements `json:"requirements"`
	Body             model.BodyFunc     `json:"-"`
	Validator        model.ValidateFunc `json:"-"`
	Init             InitFunc           `json:"-"`
}

// NewDefinition - single source, single target kind allowing expressions and requiring a source,
// a target and a mapping
func NewDefinition(properties *Properties, body model.BodyFunc) *Definition {
	return &Definition{
		Properties:       properties,
		MaxSources:       defaultMaxSources,
		MaxTargets:       defaultMaxTargets,
		AllowExpressions: true,
		Requirements:     model.Requirements{Source: true, Target: true, Mapping: true},
		Body:             body,
	}
}

func (d *Definition) SetLimits(maxSources, maxTargets int) *Definition {
	d.MaxSources = maxSources
	d.MaxTargets = maxTargets
	return d
}

func (d *Definition) SetAllowExpressions(v bool) *Definition {
	d.AllowExpressions = v
	return d
}

func (d *Definition) SetRequirements(v model.Requirements) *Definition {
	d.Requirements = v
	return d
}

func (d *Definition) SetValidator(v model.ValidateFunc) *Definition {
	d.Validator = v
	return d
}

func (d *Definition) SetInit(v InitFunc) *Definition {
	d.Init = v
	return d
}

// Kind - model kind built from the definition
func (d *Definition) Kind() *model.Kind {
	return &model.Kind{
		Name:             d.Properties.Name,
		MaxSources:       d.MaxSources,
		MaxTargets:       d.MaxTargets,
		AllowExpressions: d.AllowExpressions,
		Requirements:     d.Requirements,
		Body:             d.Body,
		Validate:         d.Validator,
	}
}

// NewTransform - creates a transform of the kind in ws
func (d *Definition) NewTransform(ws *model.Workspace, name string) *model.DataTransform {
	dt := ws.NewDataTransform(d.Kind(), name)
	if d.Init != nil {
		d.Init(dt)
	}
	return dt
}
