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
	"slices"
	"sync"
)

// Store - the persistent side of the metadata repository
type Store interface {
	// Get - returns stored record by id. Returns ErrObjectNotFound when the record does not exist
	Get(ctx context.Context, id ObjectID) (*Proxy, error)
	// Put - creates or overwrites the record
	Put(ctx context.Context, p *Proxy) error
	// Delete - removes the record. Deleting a missing record is not an error
	Delete(ctx context.Context, id ObjectID) error
	// List - returns all records of the provided type ordered by id
	List(ctx context.Context, typ ObjectType) ([]*Proxy, error)
}

// MemoryStore - Store kept in process memory. Used by tests and by the "memory" repository type
type MemoryStore struct {
	mx      sync.RWMutex
	objects map[ObjectID]*Proxy
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[ObjectID]*Proxy),
	}
}

func (s *MemoryStore) Get(ctx context.Context, id ObjectID) (*Proxy, error) {
	s.mx.RLock()
	defer s.mx.RUnlock()
	p, ok := s.objects[id]
	if !ok {
		return nil, fmt.Errorf("object %s: %w", id, ErrObjectNotFound)
	}
	return p.Clone(), nil
}

func (s *MemoryStore) Put(ctx context.Context, p *Proxy) error {
	if p.ID == "" {
		return ErrEmptyObjectID
	}
	s.mx.Lock()
	defer s.mx.Unlock()
	s.objects[p.ID] = p.Clone()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, id ObjectID) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	delete(s.objects, id)
	return nil
}

func (s *MemoryStore) List(ctx context.Context, typ ObjectType) ([]*Proxy, error) {
	s.mx.RLock()
	defer s.mx.RUnlock()
	var res []*Proxy
	for _, p := range s.objects {
		if p.Type == typ {
			res = append(res, p.Clone())
		}
	}
	slices.SortFunc(res, func(a, b *Proxy) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return res, nil
}

// Len - amount of stored records
func (s *MemoryStore) Len() int {
	s.mx.RLock()
	defer s.mx.RUnlock()
	return len(s.objects)
}
