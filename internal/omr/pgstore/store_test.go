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
	"fmt"
	"os"
	"testing"

	"github.com/docker/go-connections/nat"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/greenmaskio/etlmodel/internal/omr"
)

const (
	testContainerPort        = "5432"
	testContainerDatabase    = "testdb"
	testContainerUser        = "testuser"
	testContainerPassword    = "testpassword"
	testContainerImage       = "postgres:17"
	testContainerExposedPort = "5432/tcp"
)

type StoreSuite struct {
	suite.Suite
	container testcontainers.Container
	store     *Store
}

func (s *StoreSuite) SetupSuite() {
	ctx := context.Background()
	req := testcontainers.ContainerRequest{
		Image:        testContainerImage,
		ExposedPorts: []string{testContainerExposedPort},
		Env: map[string]string{
			"POSTGRES_USER":     testContainerUser,
			"POSTGRES_PASSWORD": testContainerPassword,
			"POSTGRES_DB":       testContainerDatabase,
		},
		WaitingFor: wait.ForSQL(testContainerExposedPort, "pgx", func(host string, port nat.Port) string {
			return connString(host, port.Port())
		}),
	}
	var err error
	s.container, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	s.Require().NoError(err, "failed to start PostgreSQL container")

	host, err := s.container.Host(ctx)
	s.Require().NoError(err)
	port, err := s.container.MappedPort(ctx, testContainerPort)
	s.Require().NoError(err)

	s.store, err = Connect(ctx, connString(host, port.Port()))
	s.Require().NoError(err)
}

func (s *StoreSuite) TearDownSuite() {
	ctx := context.Background()
	if s.store != nil {
		s.Assert().NoError(s.store.Close(ctx))
	}
	if s.container != nil {
		s.Assert().NoError(s.container.Terminate(ctx))
	}
}

func (s *StoreSuite) TestRoundTrip() {
	ctx := context.Background()
	a := omr.NewRepository(s.store).NewAdapter("pg test")

	col := omr.NewProxy(omr.NewObjectID(), omr.TypeColumn)
	col.Set("Name", "AMOUNT").Set("Length", 8)
	s.Require().NoError(a.Update(ctx, col))

	got, err := s.store.Get(ctx, col.ID)
	s.Require().NoError(err)
	s.Equal("AMOUNT", got.String("Name"))
	s.Equal(8, got.Int("Length"))

	cols, err := s.store.List(ctx, omr.TypeColumn)
	s.Require().NoError(err)
	s.Len(cols, 1)

	s.Require().NoError(s.store.Delete(ctx, col.ID))
	_, err = s.store.Get(ctx, col.ID)
	s.Require().ErrorIs(err, omr.ErrObjectNotFound)
}

func connString(host, port string) string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=disable",
		testContainerUser, testContainerPassword, host, port, testContainerDatabase,
	)
}

func TestStore(t *testing.T) {
	if os.Getenv("ETLMODEL_INTEGRATION") == "" {
		t.Skip("set ETLMODEL_INTEGRATION to run tests against a PostgreSQL container")
	}
	suite.Run(t, new(StoreSuite))
}
