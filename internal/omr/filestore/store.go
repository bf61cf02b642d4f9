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

// Package filestore keeps repository records as JSON documents in a storages.Storager. Every record
// is stored in objects/<id>.json and index.json maps ids to object types so listing by type does
// not need to open every document.
package filestore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"golang.org/x/sync/errgroup"

	"github.com/greenmaskio/etlmodel/internal/omr"
	"github.com/greenmaskio/etlmodel/internal/storages"
)

const (
	indexFileName      = "index.json"
	objectsDir         = "objects"
	defaultConcurrency = 4
)

var pathEscaper = strings.NewReplacer(
	`\`, `\\`,
	".", `\.`,
	"*", `\*`,
	"?", `\?`,
	"|", `\|`,
	"#", `\#`,
	"@", `\@`,
)

type Store struct {
	st          storages.Storager
	concurrency int
	mx          sync.Mutex
	index       []byte
}

func New(st storages.Storager, concurrency int) *Store {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Store{
		st:          st,
		concurrency: concurrency,
	}
}

func (s *Store) Get(ctx context.Context, id omr.ObjectID) (*omr.Proxy, error) {
	r, err := s.st.GetObject(ctx, objectPath(id))
	if err != nil {
		if errors.Is(err, storages.ErrFileNotFound) {
			return nil, fmt.Errorf("object %s: %w", id, omr.ErrObjectNotFound)
		}
		return nil, fmt.Errorf("error reading object %s: %w", id, err)
	}
	defer func() {
		if err := r.Close(); err != nil {
			log.Warn().Err(err).Str("ObjectID", id.String()).Msg("error closing object reader")
		}
	}()
	p := &omr.Proxy{}
	if err := json.NewDecoder(r).Decode(p); err != nil {
		return nil, fmt.Errorf("error decoding object %s: %w", id, err)
	}
	return p, nil
}

func (s *Store) Put(ctx context.Context, p *omr.Proxy) error {
	if p.ID == "" {
		return omr.ErrEmptyObjectID
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("error encoding object %s: %w", p.ID, err)
	}
	if err = s.st.PutObject(ctx, objectPath(p.ID), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("error writing object %s: %w", p.ID, err)
	}

	s.mx.Lock()
	defer s.mx.Unlock()
	idx, err := s.loadIndex(ctx)
	if err != nil {
		return err
	}
	if gjson.GetBytes(idx, escapeKey(p.ID)).String() == string(p.Type) {
		return nil
	}
	idx, err = sjson.SetBytes(idx, escapeKey(p.ID), string(p.Type))
	if err != nil {
		return fmt.Errorf("error updating index: %w", err)
	}
	return s.storeIndex(ctx, idx)
}

func (s *Store) Delete(ctx context.Context, id omr.ObjectID) error {
	if err := s.st.Delete(ctx, objectPath(id)); err != nil {
		return fmt.Errorf("error deleting object %s: %w", id, err)
	}

	s.mx.Lock()
	defer s.mx.Unlock()
	idx, err := s.loadIndex(ctx)
	if err != nil {
		return err
	}
	if !gjson.GetBytes(idx, escapeKey(id)).Exists() {
		return nil
	}
	idx, err = sjson.DeleteBytes(idx, escapeKey(id))
	if err != nil {
		return fmt.Errorf("error updating index: %w", err)
	}
	return s.storeIndex(ctx, idx)
}

func (s *Store) List(ctx context.Context, typ omr.ObjectType) ([]*omr.Proxy, error) {
	s.mx.Lock()
	idx, err := s.loadIndex(ctx)
	s.mx.Unlock()
	if err != nil {
		return nil, err
	}

	var ids []omr.ObjectID
	gjson.ParseBytes(idx).ForEach(func(key, value gjson.Result) bool {
		if value.String() == string(typ) {
			ids = append(ids, omr.ObjectID(key.String()))
		}
		return true
	})
	slices.Sort(ids)

	res := make([]*omr.Proxy, len(ids))
	eg, gtx := errgroup.WithContext(ctx)
	eg.SetLimit(s.concurrency)
	for i, id := range ids {
		eg.Go(func() error {
			p, err := s.Get(gtx, id)
			if err != nil {
				return err
			}
			res[i] = p
			return nil
		})
	}
	if err = eg.Wait(); err != nil {
		return nil, fmt.Errorf("error listing %s objects: %w", typ, err)
	}
	return res, nil
}

func (s *Store) loadIndex(ctx context.Context) ([]byte, error) {
	if s.index != nil {
		return s.index, nil
	}
	r, err := s.st.GetObject(ctx, indexFileName)
	if err != nil {
		if errors.Is(err, storages.ErrFileNotFound) {
			s.index = []byte("{}")
			return s.index, nil
		}
		return nil, fmt.Errorf("error reading index: %w", err)
	}
	defer r.Close()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("error reading index: %w", err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("index %s is not a valid json document", indexFileName)
	}
	s.index = data
	return s.index, nil
}

func (s *Store) storeIndex(ctx context.Context, idx []byte) error {
	if err := s.st.PutObject(ctx, indexFileName, bytes.NewReader(idx)); err != nil {
		return fmt.Errorf("error writing index: %w", err)
	}
	s.index = idx
	return nil
}

func objectPath(id omr.ObjectID) string {
	return path.Join(objectsDir, string(id)+".json")
}

func escapeKey(id omr.ObjectID) string {
	return pathEscaper.Replace(string(id))
}
