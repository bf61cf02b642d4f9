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
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/greenmaskio/etlmodel/internal/storages"
)

type DirectorySuite struct {
	suite.Suite
	st *Storage
}

func (suite *DirectorySuite) SetupTest() {
	var err error
	suite.st, err = NewStorage(&Config{Path: suite.T().TempDir()})
	suite.Require().NoError(err)
}

func (suite *DirectorySuite) TestPutGetObject() {
	ctx := context.Background()
	err := suite.st.PutObject(ctx, "1/2/3/test.txt", bytes.NewBufferString("test"))
	suite.Require().NoError(err)

	r, err := suite.st.GetObject(ctx, "1/2/3/test.txt")
	suite.Require().NoError(err)
	defer r.Close()
	data, err := io.ReadAll(r)
	suite.Require().NoError(err)
	suite.Equal("test", string(data))

	ok, err := suite.st.Exists(ctx, "1/2/3/test.txt")
	suite.Require().NoError(err)
	suite.True(ok)
}

func (suite *DirectorySuite) TestGetMissingObject() {
	_, err := suite.st.GetObject(context.Background(), "missing.json")
	suite.Require().ErrorIs(err, storages.ErrFileNotFound)
}

func (suite *DirectorySuite) TestDelete() {
	ctx := context.Background()
	suite.Require().NoError(suite.st.PutObject(ctx, "a.txt", bytes.NewBufferString("a")))
	suite.Require().NoError(suite.st.Delete(ctx, "a.txt", "not-there.txt"))
	ok, err := suite.st.Exists(ctx, "a.txt")
	suite.Require().NoError(err)
	suite.False(ok)
}

func (suite *DirectorySuite) TestSubStorage() {
	ctx := context.Background()
	sub := suite.st.SubStorage("jobs", true)
	suite.Require().NoError(sub.PutObject(ctx, "j.sas", bytes.NewBufferString("run;")))
	ok, err := suite.st.Exists(ctx, "jobs/j.sas")
	suite.Require().NoError(err)
	suite.True(ok)
}

func TestDirectoryStorage(t *testing.T) {
	suite.Run(t, new(DirectorySuite))
}
