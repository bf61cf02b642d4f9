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

package domains

import (
	"sync"
	"time"

	"github.com/greenmaskio/etlmodel/internal/model"
	"github.com/greenmaskio/etlmodel/internal/storages/directory"
	"github.com/greenmaskio/etlmodel/internal/storages/s3"
)

var (
	Cfg  *Config
	once sync.Once
)

const (
	defaultDirectoryStoragePath  = "/tmp"
	defaultStorageType           = "directory"
	defaultRepositoryType        = RepositoryTypeMemory
	defaultRepositoryTimeout     = 30 * time.Second
	defaultRepositoryConcurrency = 4
	defaultNonWorkTableHandling  = model.NonWorkTablePropagate
)

const (
	RepositoryTypeMemory   = "memory"
	RepositoryTypeStorage  = "storage"
	RepositoryTypePostgres = "postgres"
)

func NewConfig() *Config {
	once.Do(
		func() {
			Cfg = &Config{
				Common: Common{
					TempDirectory: defaultDirectoryStoragePath,
				},
				Storage: StorageConfig{
					Type:      defaultStorageType,
					S3:        s3.NewConfig(),
					Directory: directory.NewConfig(),
				},
				Repository: RepositoryConfig{
					Type:        defaultRepositoryType,
					Timeout:     defaultRepositoryTimeout,
					Concurrency: defaultRepositoryConcurrency,
				},
				Mapping: MappingConfig{
					NonWorkTableHandling: defaultNonWorkTableHandling,
					AllowExpressions:     true,
				},
			}
		},
	)
	return Cfg
}

type Config struct {
	Common     Common           `mapstructure:"common" yaml:"common" json:"common"`
	Log        LogConfig        `mapstructure:"log" yaml:"log" json:"log"`
	Storage    StorageConfig    `mapstructure:"storage" yaml:"storage" json:"storage"`
	Repository RepositoryConfig `mapstructure:"repository" yaml:"repository" json:"repository"`
	Mapping    MappingConfig    `mapstructure:"mapping" yaml:"mapping" json:"mapping"`
	Codegen    CodegenConfig    `mapstructure:"codegen" yaml:"codegen" json:"codegen"`
	Validate   Validate         `mapstructure:"validate" yaml:"validate" json:"validate"`
}

type Common struct {
	TempDirectory string `mapstructure:"tmp_dir" yaml:"tmp_dir,omitempty" json:"tmp_dir,omitempty"`
}

type StorageConfig struct {
	Type      string            `mapstructure:"type" yaml:"type" json:"type,omitempty"`
	S3        *s3.Config        `mapstructure:"s3"  json:"s3,omitempty" yaml:"s3"`
	Directory *directory.Config `mapstructure:"directory" json:"directory,omitempty" yaml:"directory"`
}

type LogConfig struct {
	Format string `mapstructure:"format" yaml:"format" json:"format,omitempty"`
	Level  string `mapstructure:"level" yaml:"level" json:"level,omitempty"`
}

// RepositoryConfig - where the metadata objects live. memory keeps them for the process lifetime
// only, storage keeps one document per object in the configured storage and postgres keeps them
// in a single table reachable via DSN
type RepositoryConfig struct {
	Type        string        `mapstructure:"type" yaml:"type" json:"type,omitempty"`
	DSN         string        `mapstructure:"dsn" yaml:"dsn" json:"dsn,omitempty"`
	// Timeout - deadline of a single repository command. Accepts day and week units (e.g. 1d12h)
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout" json:"timeout,omitempty"`
	// Concurrency - parallel object reads of the storage repository
	Concurrency int           `mapstructure:"concurrency" yaml:"concurrency" json:"concurrency,omitempty"`
	// Prefix - sub folder of the storage used for repository documents
	Prefix      string        `mapstructure:"prefix" yaml:"prefix" json:"prefix,omitempty"`
}

type MappingConfig struct {
	// NonWorkTableHandling - propagate, map or none
	NonWorkTableHandling model.NonWorkTableHandling `mapstructure:"non_work_table_handling" yaml:"non_work_table_handling" json:"non_work_table_handling,omitempty"`
	AllowExpressions     bool                       `mapstructure:"allow_expressions" yaml:"allow_expressions" json:"allow_expressions"`
}

type CodegenConfig struct {
	DefaultServer string `mapstructure:"default_server" yaml:"default_server" json:"default_server,omitempty"`
	Diagnostics   bool   `mapstructure:"diagnostics" yaml:"diagnostics" json:"diagnostics,omitempty"`
	RowCount      bool   `mapstructure:"row_count" yaml:"row_count" json:"row_count,omitempty"`
	// Compress - gzip the generated code written to the storage
	Compress      bool   `mapstructure:"compress" yaml:"compress" json:"compress,omitempty"`
}

type Validate struct {
	Format   string `mapstructure:"format" yaml:"format" json:"format,omitempty"`
	Warnings bool   `mapstructure:"warnings" yaml:"warnings" json:"warnings,omitempty"`
}

// Policy - workspace policy built from the mapping section
func (c *MappingConfig) Policy() model.Policy {
	p := model.DefaultPolicy()
	p.NonWorkTableHandling = c.NonWorkTableHandling
	return p
}
