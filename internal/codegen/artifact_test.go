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

package codegen

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenmaskio/etlmodel/internal/storages/directory"
)

func TestArtifact(t *testing.T) {
	st, err := directory.NewStorage(&directory.Config{Path: t.TempDir()})
	require.NoError(t, err)
	ctx := context.Background()

	seg := NewSegment("SASApp")
	seg.AddLine("proc sql;").Indent().AddLine("drop table dw.CUSTOMERS;").Unindent().AddLine("quit;")
	code := seg.String()

	for _, compress := range []bool{false, true} {
		p, err := WriteArtifact(ctx, st, "jobs/customers.sas", code, compress)
		require.NoError(t, err)
		if compress {
			assert.Equal(t, "jobs/customers.sas.gz", p)
		} else {
			assert.Equal(t, "jobs/customers.sas", p)
		}
		res, err := ReadArtifact(ctx, st, p)
		require.NoError(t, err)
		assert.Equal(t, code, res)
	}

	_, err = ReadArtifact(ctx, st, "jobs/missing.sas")
	require.Error(t, err)
}
