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
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/greenmaskio/etlmodel/internal/model"
)

var ErrUnknownKind = errors.New("unknown transform kind")

var DefaultRegistry = NewRegistry()

// Registry - transform kind definitions by name
type Registry struct {
	M map[string]*Definition
}

func NewRegistry() *Registry {
	return &Registry{
		M: make(map[string]*Definition),
	}
}

func (r *Registry) Register(definition *Definition) error {
	if _, ok := r.M[definition.Properties.Name]; ok {
		return fmt.Errorf("unable to register transform kind: kind with name %s already exists",
			definition.Properties.Name)
	}
	r.M[definition.Properties.Name] = definition
	return nil
}

func (r *Registry) MustRegister(definition *Definition) {
	if err := r.Register(definition); err != nil {
		panic(err.Error())
	}
}

func (r *Registry) Get(name string) (*Definition, bool) {
	d, ok := r.M[name]
	return d, ok
}

// List - definitions sorted by name
func (r *Registry) List() []*Definition {
	res := make([]*Definition, 0, len(r.M))
	for _, name := range slices.Sorted(maps.Keys(r.M)) {
		res = append(res, r.M[name])
	}
	return res
}

// Resolve - kind of the definition named name. Usable as model.KindResolver
func (r *Registry) Resolve(name string) (*model.Kind, error) {
	d, ok := r.M[name]
	if !ok {
		return nil, fmt.Errorf("kind \"%s\": %w", name, ErrUnknownKind)
	}
	return d.Kind(), nil
}

// NewTransform - creates a transform of the kind named kind in ws
func (r *Registry) NewTransform(ws *model.Workspace, kind, name string) (*model.DataTransform, error) {
	d, ok := r.M[kind]
	if !ok {
		return nil, fmt.Errorf("kind \"%s\": %w", kind, ErrUnknownKind)
	}
	return d.NewTransform(ws, name), nil
}
