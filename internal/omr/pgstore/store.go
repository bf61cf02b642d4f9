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

package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"

	"github.com/greenmaskio/etlmodel/internal/omr"
)

const (
	createTableQuery = `
		CREATE TABLE IF NOT EXISTS omr_objects (
			id   TEXT PRIMARY KEY,
			type TEXT  NOT NULL,
			body JSONB NOT NULL
		)`
	createTypeIndexQuery = `CREATE INDEX IF NOT EXISTS omr_objects_type_idx ON omr_objects (type)`
	getQuery             = `SELECT body FROM omr_objects WHERE id = $1`
	putQuery             = `
		INSERT INTO omr_objects (id, type, body) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET type = EXCLUDED.type, body = EXCLUDED.body`
	deleteQuery = `DELETE FROM omr_objects WHERE id = $1`
	listQuery   = `SELECT body FROM omr_objects WHERE type = $1 ORDER BY id`
)

// Store - repository records kept in a single PostgreSQL table. pgx.Conn is not safe for
// concurrent use, so every call is serialized.
type Store struct {
	conn *pgx.Conn
	mx   sync.Mutex
}

// Connect - opens a connection and creates the records table if it does not exist
func Connect(ctx context.Context, dsn string) (*Store, error) {
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot connect to repository database: %w", err)
	}
	s := New(conn)
	if err = s.Init(ctx); err != nil {
		_ = conn.Close(ctx)
		return nil, err
	}
	return s, nil
}

func New(conn *pgx.Conn) *Store {
	return &Store{
		conn: conn,
	}
}

func (s *Store) Init(ctx context.Context) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	if _, err := s.conn.Exec(ctx, createTableQuery); err != nil {
		return fmt.Errorf("cannot create repository table: %w", err)
	}
	if _, err := s.conn.Exec(ctx, createTypeIndexQuery); err != nil {
		return fmt.Errorf("cannot create repository index: %w", err)
	}
	return nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.conn.Close(ctx)
}

func (s *Store) Get(ctx context.Context, id omr.ObjectID) (*omr.Proxy, error) {
	s.mx.Lock()
	defer s.mx.Unlock()
	var body []byte
	if err := s.conn.QueryRow(ctx, getQuery, string(id)).Scan(&body); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("object %s: %w", id, omr.ErrObjectNotFound)
		}
		return nil, fmt.Errorf("error selecting object %s: %w", id, err)
	}
	return decode(body)
}

func (s *Store) Put(ctx context.Context, p *omr.Proxy) error {
	if p.ID == "" {
		return omr.ErrEmptyObjectID
	}
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("error encoding object %s: %w", p.ID, err)
	}
	s.mx.Lock()
	defer s.mx.Unlock()
	if _, err = s.conn.Exec(ctx, putQuery, string(p.ID), string(p.Type), body); err != nil {
		return fmt.Errorf("error upserting object %s: %w", p.ID, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id omr.ObjectID) error {
	s.mx.Lock()
	defer s.mx.Unlock()
	if _, err := s.conn.Exec(ctx, deleteQuery, string(id)); err != nil {
		return fmt.Errorf("error deleting object %s: %w", id, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, typ omr.ObjectType) ([]*omr.Proxy, error) {
	s.mx.Lock()
	defer s.mx.Unlock()
	rows, err := s.conn.Query(ctx, listQuery, string(typ))
	if err != nil {
		return nil, fmt.Errorf("error listing %s objects: %w", typ, err)
	}
	bodies, err := pgx.CollectRows(rows, pgx.RowTo[[]byte])
	if err != nil {
		return nil, fmt.Errorf("error listing %s objects: %w", typ, err)
	}
	res := make([]*omr.Proxy, 0, len(bodies))
	for _, body := range bodies {
		p, err := decode(body)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, nil
}

func decode(body []byte) (*omr.Proxy, error) {
	p := &omr.Proxy{}
	if err := json.Unmarshal(body, p); err != nil {
		return nil, fmt.Errorf("error decoding object body: %w", err)
	}
	return p, nil
}
