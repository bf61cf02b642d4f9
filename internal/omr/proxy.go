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

package omr

import (
	"maps"
	"slices"

	"github.com/spf13/cast"
)

// Proxy - in-memory copy of a repository record. Attribute values survive a JSON round trip, so
// readers must not assume the concrete Go type; the typed getters use cast for that reason.
type Proxy struct {
	ID           ObjectID              `json:"id"`
	Type         ObjectType            `json:"type"`
	Attributes   map[string]any        `json:"attributes,omitempty"`
	Associations map[string][]ObjectID `json:"associations,omitempty"`
}

func NewProxy(id ObjectID, typ ObjectType) *Proxy {
	return &Proxy{
		ID:           id,
		Type:         typ,
		Attributes:   make(map[string]any),
		Associations: make(map[string][]ObjectID),
	}
}

func (p *Proxy) Clone() *Proxy {
	res := NewProxy(p.ID, p.Type)
	maps.Copy(res.Attributes, p.Attributes)
	for name, ids := range p.Associations {
		res.Associations[name] = slices.Clone(ids)
	}
	return res
}

func (p *Proxy) Set(name string, value any) *Proxy {
	if p.Attributes == nil {
		p.Attributes = make(map[string]any)
	}
	p.Attributes[name] = value
	return p
}

func (p *Proxy) Has(name string) bool {
	_, ok := p.Attributes[name]
	return ok
}

func (p *Proxy) String(name string) string {
	return cast.ToString(p.Attributes[name])
}

func (p *Proxy) Int(name string) int {
	return cast.ToInt(p.Attributes[name])
}

func (p *Proxy) Bool(name string) bool {
	return cast.ToBool(p.Attributes[name])
}

func (p *Proxy) StringMap(name string) map[string]string {
	v, ok := p.Attributes[name]
	if !ok || v == nil {
		return map[string]string{}
	}
	return cast.ToStringMapString(v)
}

func (p *Proxy) BoolSlice(name string) []bool {
	v, ok := p.Attributes[name]
	if !ok || v == nil {
		return nil
	}
	return cast.ToBoolSlice(v)
}

func (p *Proxy) SetAssociation(name string, ids ...ObjectID) *Proxy {
	if p.Associations == nil {
		p.Associations = make(map[string][]ObjectID)
	}
	if len(ids) == 0 {
		delete(p.Associations, name)
		return p
	}
	p.Associations[name] = slices.Clone(ids)
	return p
}

func (p *Proxy) Association(name string) []ObjectID {
	return p.Associations[name]
}

// FirstAssociation - returns the first associated id or empty id
func (p *Proxy) FirstAssociation(name string) ObjectID {
	ids := p.Associations[name]
	if len(ids) == 0 {
		return ""
	}
	return ids[0]
}

// translate - rewrites temporary ids in the associations that were already given permanent ids
func (p *Proxy) translate(idMap IDMap) {
	for name, ids := range p.Associations {
		for i, id := range ids {
			ids[i] = idMap.Resolve(id)
		}
		p.Associations[name] = ids
	}
}
