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

package directory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"sync"

	"github.com/greenmaskio/etlmodel/internal/storages"
)

const (
	dirMode  os.FileMode = 0750
	fileMode os.FileMode = 0640
)

var errPathIsRequired = errors.New("path is required")

type Config struct {
	Path string `mapstructure:"path" yaml:"path" json:"path,omitempty"`
}

func NewConfig() *Config {
	return &Config{}
}

type Storage struct {
	cwd string
	mx  *sync.Mutex
}

func NewStorage(cfg *Config) (*Storage, error) {
	if cfg == nil || cfg.Path == "" {
		return nil, errPathIsRequired
	}
	fileInfo, err := os.Stat(cfg.Path)
	if err != nil {
		return nil, err
	}
	if !fileInfo.IsDir() {
		return nil, errors.New("received directory path is file")
	}
	return &Storage{
		cwd: cfg.Path,
		mx:  &sync.Mutex{},
	}, nil
}

func (s *Storage) GetCwd() string {
	return s.cwd
}

func (s *Storage) GetObject(ctx context.Context, filePath string) (io.ReadCloser, error) {
	f, err := os.Open(path.Join(s.cwd, filePath))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", filePath, storages.ErrFileNotFound)
		}
		return nil, err
	}
	return f, nil
}

func (s *Storage) PutObject(ctx context.Context, filePath string, body io.Reader) error {
	dir := path.Join(s.cwd, path.Dir(filePath))
	s.mx.Lock()
	err := os.MkdirAll(dir, dirMode)
	s.mx.Unlock()
	if err != nil {
		return fmt.Errorf("error creating directory: %w", err)
	}

	f, err := os.OpenFile(path.Join(s.cwd, filePath), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, fileMode)
	if err != nil {
		return fmt.Errorf("unable to create file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	done := make(chan struct{})
	go func() {
		_, err = io.Copy(f, body)
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
	}

	if err != nil {
		return fmt.Errorf("error writing data: %w", err)
	}
	return f.Close()
}

func (s *Storage) Delete(ctx context.Context, filePaths ...string) error {
	for _, fp := range filePaths {
		err := os.Remove(path.Join(s.cwd, fp))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf(`error deleting file %s: %w`, fp, err)
		}
	}
	return nil
}

func (s *Storage) Exists(ctx context.Context, fileName string) (bool, error) {
	_, err := os.Stat(path.Join(s.cwd, fileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Storage) SubStorage(dp string, relative bool) storages.Storager {
	dirPath := dp
	if relative {
		dirPath = path.Join(s.cwd, dp)
	}
	return &Storage{
		cwd: dirPath,
		mx:  s.mx,
	}
}
