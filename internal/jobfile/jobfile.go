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

package jobfile

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

var (
	ErrTableNotFound     = errors.New("table not found")
	ErrColumnNotFound    = errors.New("column not found")
	ErrTransformNotFound = errors.New("transform not found")
	ErrInvalidReference  = errors.New("invalid reference")
)

// File - declarative description of a job. Tables are referenced as library.name, the work table
// of a transform as @transform. Columns are referenced as <table reference>.<column name>
type File struct {
	Name        string       `yaml:"name" json:"name"`
	Description string       `yaml:"description,omitempty" json:"description,omitempty"`
	Server      string       `yaml:"server,omitempty" json:"server,omitempty"`
	Tables      []*Table     `yaml:"tables" json:"tables"`
	Transforms  []*Transform `yaml:"transforms" json:"transforms"`
}

type Table struct {
	Name          string    `yaml:"name" json:"name"`
	Library       string    `yaml:"library" json:"library"`
	Description   string    `yaml:"description,omitempty" json:"description,omitempty"`
	View          bool      `yaml:"view,omitempty" json:"view,omitempty"`
	Quoted        bool      `yaml:"quoted,omitempty" json:"quoted,omitempty"`
	CaseSensitive bool      `yaml:"case_sensitive,omitempty" json:"case_sensitive,omitempty"`
	Columns       []*Column `yaml:"columns" json:"columns"`
}

type Column struct {
	Name        string            `yaml:"name" json:"name"`
	Type        string            `yaml:"type" json:"type"`
	Length      int               `yaml:"length,omitempty" json:"length,omitempty"`
	Description string            `yaml:"description,omitempty" json:"description,omitempty"`
	Format      string            `yaml:"format,omitempty" json:"format,omitempty"`
	Informat    string            `yaml:"informat,omitempty" json:"informat,omitempty"`
	Notes       map[string]string `yaml:"notes,omitempty" json:"notes,omitempty"`
}

type Transform struct {
	Name            string            `yaml:"name" json:"name"`
	Kind            string            `yaml:"kind" json:"kind"`
	Description     string            `yaml:"description,omitempty" json:"description,omitempty"`
	Server          string            `yaml:"server,omitempty" json:"server,omitempty"`
	Sources         []string          `yaml:"sources,omitempty" json:"sources,omitempty"`
	Targets         []string          `yaml:"targets,omitempty" json:"targets,omitempty"`
	WorkTarget      bool              `yaml:"work_target,omitempty" json:"work_target,omitempty"`
	Propagate       bool              `yaml:"propagate,omitempty" json:"propagate,omitempty"`
	MapAll          bool              `yaml:"map_all,omitempty" json:"map_all,omitempty"`
	Mappings        []*Mapping        `yaml:"mappings,omitempty" json:"mappings,omitempty"`
	Exclude         []string          `yaml:"exclude,omitempty" json:"exclude,omitempty"`
	Sort            []*SortColumn     `yaml:"sort,omitempty" json:"sort,omitempty"`
	TableOptions    []*TableOptions   `yaml:"table_options,omitempty" json:"table_options,omitempty"`
	Properties      map[string]string `yaml:"properties,omitempty" json:"properties,omitempty"`
	CollectRowCount bool              `yaml:"collect_row_count,omitempty" json:"collect_row_count,omitempty"`
	UserCode        string            `yaml:"user_code,omitempty" json:"user_code,omitempty"`
	PreProcess      string            `yaml:"pre_process,omitempty" json:"pre_process,omitempty"`
	PostProcess     string            `yaml:"post_process,omitempty" json:"post_process,omitempty"`
	ConditionSets   []*ConditionSet   `yaml:"condition_sets,omitempty" json:"condition_sets,omitempty"`
	Successors      []string          `yaml:"successors,omitempty" json:"successors,omitempty"`
}

// Mapping - explicit mapping. A mapping with an expression is derived
type Mapping struct {
	Sources    []string `yaml:"sources,omitempty" json:"sources,omitempty"`
	Targets    []string `yaml:"targets" json:"targets"`
	Expression string   `yaml:"expression,omitempty" json:"expression,omitempty"`
}

type SortColumn struct {
	Column     string `yaml:"column" json:"column"`
	Descending bool   `yaml:"descending,omitempty" json:"descending,omitempty"`
}

type TableOptions struct {
	Table   string            `yaml:"table" json:"table"`
	Source  bool              `yaml:"source,omitempty" json:"source,omitempty"`
	Options map[string]string `yaml:"options" json:"options"`
}

type ConditionSet struct {
	Name  string             `yaml:"name" json:"name"`
	Items []*ConditionAction `yaml:"items" json:"items"`
}

type ConditionAction struct {
	Condition string `yaml:"condition" json:"condition"`
	Action    string `yaml:"action" json:"action"`
	Argument  string `yaml:"argument,omitempty" json:"argument,omitempty"`
}

// Parse - decodes a job file. Unknown keys are rejected
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	f := &File{}
	if err := dec.Decode(f); err != nil {
		return nil, fmt.Errorf("cannot decode job file: %w", err)
	}
	if f.Name == "" {
		return nil, errors.New("job name is required")
	}
	return f, nil
}

// ReadFile - parses the job file at path
func ReadFile(path string) (*File, error) {
	r, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := r.Close(); err != nil {
			log.Warn().Err(err).Str("Path", path).Msg("error closing job file")
		}
	}()
	return Parse(r)
}
