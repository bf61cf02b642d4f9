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

package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/greenmaskio/etlmodel/internal/domains"
	"github.com/greenmaskio/etlmodel/internal/model"
	"github.com/greenmaskio/etlmodel/internal/omr"
	"github.com/greenmaskio/etlmodel/internal/omr/filestore"
	"github.com/greenmaskio/etlmodel/internal/omr/pgstore"
	"github.com/greenmaskio/etlmodel/internal/storages/builder"
)

var ErrJobNotFound = errors.New("job not found")

// Repository - opened metadata repository and the function releasing it
type Repository struct {
	*omr.Repository
	close func(ctx context.Context) error
}

// Open - creates the store configured in the repository section
func Open(ctx context.Context, cfg *domains.Config) (*Repository, error) {
	noop := func(context.Context) error { return nil }
	switch cfg.Repository.Type {
	case domains.RepositoryTypeMemory, "":
		return &Repository{Repository: omr.NewRepository(omr.NewMemoryStore()), close: noop}, nil
	case domains.RepositoryTypeStorage:
		st, err := builder.GetStorage(ctx, &cfg.Storage, &cfg.Log)
		if err != nil {
			return nil, fmt.Errorf("error building storage: %w", err)
		}
		if cfg.Repository.Prefix != "" {
			st = st.SubStorage(cfg.Repository.Prefix, true)
		}
		store := filestore.New(st, cfg.Repository.Concurrency)
		return &Repository{Repository: omr.NewRepository(store), close: noop}, nil
	case domains.RepositoryTypePostgres:
		ctx, cancel := WithTimeout(ctx, cfg)
		defer cancel()
		store, err := pgstore.Connect(ctx, cfg.Repository.DSN)
		if err != nil {
			return nil, err
		}
		return &Repository{Repository: omr.NewRepository(store), close: store.Close}, nil
	}
	return nil, fmt.Errorf("unknown repository type \"%s\"", cfg.Repository.Type)
}

func (r *Repository) Close(ctx context.Context) {
	if err := r.close(ctx); err != nil {
		log.Warn().Err(err).Msg("error closing repository")
	}
}

// FindJob - id of the stored job named name
func (r *Repository) FindJob(ctx context.Context, name string) (omr.ObjectID, error) {
	jobs, err := r.Store().List(ctx, omr.TypeJob)
	if err != nil {
		return "", err
	}
	for _, p := range jobs {
		if p.String("Name") == name {
			return p.ID, nil
		}
	}
	return "", fmt.Errorf("job \"%s\": %w", name, ErrJobNotFound)
}

// LoadJob - loads the job named nameOrID or with id nameOrID into ws
func (r *Repository) LoadJob(ctx context.Context, ws *model.Workspace, nameOrID string, resolve model.KindResolver) (
	*model.Job, error,
) {
	id := omr.ObjectID(nameOrID)
	if _, err := r.Store().Get(ctx, id); err != nil {
		if !errors.Is(err, omr.ErrObjectNotFound) {
			return nil, err
		}
		if id, err = r.FindJob(ctx, nameOrID); err != nil {
			return nil, err
		}
	}
	return ws.LoadJob(ctx, r.Repository, id, resolve)
}

// WithTimeout - context limited by the configured repository timeout
func WithTimeout(ctx context.Context, cfg *domains.Config) (context.Context, context.CancelFunc) {
	if cfg.Repository.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, cfg.Repository.Timeout)
}
