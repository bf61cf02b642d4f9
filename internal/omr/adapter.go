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
	"context"
	"fmt"
	"maps"

	"github.com/rs/zerolog/log"
)

// Repository - entry point to the metadata repository. Every save, load or delete pass works
// through a single Adapter created by NewAdapter.
type Repository struct {
	store Store
}

func NewRepository(store Store) *Repository {
	return &Repository{
		store: store,
	}
}

func (r *Repository) Store() Store {
	return r.store
}

// NewAdapter - creates the adapter shared by all calls of one save/load/delete pass
func (r *Repository) NewAdapter(reason string) *Adapter {
	log.Debug().Str("Reason", reason).Msg("creating repository adapter")
	return &Adapter{
		store:    r.store,
		reason:   reason,
		idMap:    make(IDMap),
		reserved: make(IDMap),
	}
}

// Adapter - performs create/read/update/delete against the store. Writes are applied immediately
// so a failure in the middle of a save pass leaves already written records in place and the
// remaining in-memory objects dirty.
type Adapter struct {
	store  Store
	reason string
	idMap  IDMap
	// reserved - permanent ids handed out before the record is written
	reserved IDMap
	updated  int
	deleted  int
}

// Acquire - returns the proxy for id. Temporary ids produce a blank proxy that is written on
// Update. Existing ids are read from the store and checked against typ.
func (a *Adapter) Acquire(ctx context.Context, id ObjectID, typ ObjectType) (*Proxy, error) {
	if id == "" {
		return nil, ErrEmptyObjectID
	}
	if id.IsNew() {
		if permanent, ok := a.idMap[id]; ok {
			id = permanent
		} else {
			return NewProxy(id, typ), nil
		}
	}
	p, err := a.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("acquire %s %s: %w", typ, id, err)
	}
	if typ != "" && p.Type != typ {
		return nil, fmt.Errorf("object %s has type %s but expected %s: %w", id, p.Type, typ, ErrTypeMismatch)
	}
	if p.Attributes == nil {
		p.Attributes = make(map[string]any)
	}
	if p.Associations == nil {
		p.Associations = make(map[string][]ObjectID)
	}
	return p, nil
}

// Update - writes the proxy. A proxy with a temporary id is assigned a permanent id which is
// remembered in the adapter id map and written back into p.ID.
func (a *Adapter) Update(ctx context.Context, p *Proxy) error {
	if p.ID == "" {
		return ErrEmptyObjectID
	}
	tmpID := p.ID
	if tmpID.IsNew() {
		p.ID = a.Reserve(tmpID)
	}
	p.translate(a.idMap)
	p.translate(a.reserved)
	if err := a.store.Put(ctx, p); err != nil {
		p.ID = tmpID
		return fmt.Errorf("update %s %s: %w", p.Type, tmpID, err)
	}
	if tmpID.IsNew() {
		a.idMap[tmpID] = p.ID
		delete(a.reserved, tmpID)
	}
	a.updated++
	return nil
}

// Reserve - returns the permanent id the temporary id gets when its record is written. Records
// written earlier in the pass may then refer to an object that is written later. Reserved ids are
// not part of IDMap until the record is written
func (a *Adapter) Reserve(id ObjectID) ObjectID {
	if !id.IsNew() {
		return id
	}
	if permanent, ok := a.idMap[id]; ok {
		return permanent
	}
	if permanent, ok := a.reserved[id]; ok {
		return permanent
	}
	permanent := NewPermanentID()
	a.reserved[id] = permanent
	return permanent
}

// Delete - removes the record. Temporary ids are ignored since they were never stored.
func (a *Adapter) Delete(ctx context.Context, id ObjectID, typ ObjectType) error {
	if id.IsNew() {
		return nil
	}
	if err := a.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete %s %s: %w", typ, id, err)
	}
	a.deleted++
	return nil
}

// IDMap - temporary to permanent id assignments made by this adapter
func (a *Adapter) IDMap() IDMap {
	return maps.Clone(a.idMap)
}

// Close - logs the pass summary
func (a *Adapter) Close() {
	log.Debug().
		Str("Reason", a.reason).
		Int("Updated", a.updated).
		Int("Deleted", a.deleted).
		Int("Created", len(a.idMap)).
		Msg("repository adapter closed")
}
