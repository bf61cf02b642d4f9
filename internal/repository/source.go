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

	"github.com/greenmaskio/etlmodel/internal/domains"
	"github.com/greenmaskio/etlmodel/internal/jobfile"
	"github.com/greenmaskio/etlmodel/internal/model"
	"github.com/greenmaskio/etlmodel/internal/transforms"
)

var errNoJobSource = errors.New("either a job file or a stored job name is required")

// JobSource - a job file or the name or id of a stored job
type JobSource struct {
	File string
	Job  string
}

// OpenJob - builds the job from the file or loads it from the repository configured in cfg
func OpenJob(ctx context.Context, cfg *domains.Config, src JobSource) (*model.Job, error) {
	ws := model.NewWorkspace(cfg.Mapping.Policy())
	if src.File != "" {
		f, err := jobfile.ReadFile(src.File)
		if err != nil {
			return nil, err
		}
		return jobfile.NewBuilder(ws, transforms.DefaultRegistry).
			SetAllowExpressions(cfg.Mapping.AllowExpressions).
			Build(f)
	}
	if src.Job == "" {
		return nil, errNoJobSource
	}
	ctx, cancel := WithTimeout(ctx, cfg)
	defer cancel()
	repo, err := Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer repo.Close(ctx)
	return repo.LoadJob(ctx, ws, src.Job, transforms.DefaultRegistry.Resolve)
}
