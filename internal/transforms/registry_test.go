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
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenmaskio/etlmodel/internal/model"
	"github.com/greenmaskio/etlmodel/internal/omr"
)

func TestDefaultRegistry(t *testing.T) {
	var names []string
	for _, d := range DefaultRegistry.List() {
		names = append(names, d.Properties.Name)
	}
	assert.Equal(t, []string{
		ExtractKindName,
		SQLJoinKindName,
		SortKindName,
		TableLoaderKindName,
		UserWrittenKindName,
	}, names)
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	d := NewDefinition(NewProperties("Custom", "custom kind"), model.OrdinaryMappingBody)
	require.NoError(t, r.Register(d))
	require.Error(t, r.Register(d))
	assert.Panics(t, func() {
		r.MustRegister(d)
	})
	got, ok := r.Get("Custom")
	require.True(t, ok)
	assert.Same(t, d, got)
}

func TestRegistry_Resolve(t *testing.T) {
	kind, err := DefaultRegistry.Resolve(SQLJoinKindName)
	require.NoError(t, err)
	assert.Equal(t, SQLJoinKindName, kind.Name)
	assert.Equal(t, sqlJoinMaxSources, kind.MaxSources)
	assert.Equal(t, 1, kind.MaxTargets)

	_, err = DefaultRegistry.Resolve("Pivot")
	require.ErrorIs(t, err, ErrUnknownKind)
	_, err = DefaultRegistry.NewTransform(model.NewWorkspace(model.DefaultPolicy()), "Pivot", "p")
	require.ErrorIs(t, err, ErrUnknownKind)
}

func TestRegistry_NewTransform(t *testing.T) {
	ws := model.NewWorkspace(model.DefaultPolicy())

	uw, err := DefaultRegistry.NewTransform(ws, UserWrittenKindName, "Custom step")
	require.NoError(t, err)
	assert.True(t, uw.IsUserWritten())
	assert.Equal(t, UserWrittenKindName, uw.Kind())
	assert.Equal(t, Unlimited, uw.MaxSources())

	sort, err := DefaultRegistry.NewTransform(ws, SortKindName, "Sort")
	require.NoError(t, err)
	assert.False(t, sort.AllowExpressions())
	assert.False(t, sort.IsUserWritten())
}

func TestRegistry_ResolveOnLoad(t *testing.T) {
	ctx := context.Background()
	repo := omr.NewRepository(omr.NewMemoryStore())
	ws := model.NewWorkspace(model.DefaultPolicy())
	src, tgt := newKindTables(ws)
	dt := SortDefinition.NewTransform(ws, "Sort customers")
	require.NoError(t, dt.AddSource(src))
	require.NoError(t, dt.AddTarget(tgt))

	a := repo.NewAdapter("save")
	require.NoError(t, dt.SaveToOMR(ctx, a))
	dt.UpdateIDs(a.IDMap())

	loaded, err := model.NewWorkspace(model.DefaultPolicy()).
		LoadDataTransform(ctx, repo.NewAdapter("load"), dt.ID(), DefaultRegistry.Resolve)
	require.NoError(t, err)
	assert.Equal(t, SortKindName, loaded.Definition().Name)
	assert.False(t, loaded.AllowExpressions())
}
