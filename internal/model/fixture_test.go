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
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/greenmaskio/etlmodel/internal/omr"
)

var errInjected = errors.New("injected store failure")

// failingStore - memory store failing every Put of one object type
type failingStore struct {
	*omr.MemoryStore
	failType omr.ObjectType
}

func (s *failingStore) Put(ctx context.Context, p *omr.Proxy) error {
	if p.Type == s.failType {
		return errInjected
	}
	return s.MemoryStore.Put(ctx, p)
}

func newTestWorkspace() *Workspace {
	return NewWorkspace(DefaultPolicy())
}

type columnSpec struct {
	name   string
	typ    ColumnType
	length int
}

func char(name string, length int) columnSpec {
	return columnSpec{name: name, typ: ColumnTypeCharacter, length: length}
}

func num(name string) columnSpec {
	return columnSpec{name: name, typ: ColumnTypeNumeric, length: 8}
}

func newTestTable(ws *Workspace, library, name string, columns ...columnSpec) *Table {
	t := ws.NewPhysicalTable(name, library)
	for _, c := range columns {
		t.NewColumn(c.name, c.typ, c.length)
	}
	return t
}

// newTestTransform - transform of the default kind reading src and writing tgt
func newTestTransform(t *testing.T, ws *Workspace, name string, src, tgt *Table) *DataTransform {
	t.Helper()
	dt := ws.NewDataTransform(nil, name)
	if src != nil {
		require.NoError(t, dt.AddSource(src))
	}
	if tgt != nil {
		require.NoError(t, dt.AddTarget(tgt))
	}
	return dt
}

// ordinaryMappingsFor - every ordinary mapping writing c
func ordinaryMappingsFor(dt *DataTransform, c *Column) []*Mapping {
	var res []*Mapping
	for _, m := range dt.Mappings() {
		if m.IsOrdinary() && m.ContainsInTargets(c) {
			res = append(res, m)
		}
	}
	return res
}
