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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSegment_ForkMerge(t *testing.T) {
	seg := NewSegment("SASApp")
	seg.RowCount = true
	seg.AddLine("%let a = 1;").Indent()

	f := seg.Fork()
	assert.Equal(t, "SASApp", f.Server)
	assert.True(t, f.RowCount)
	assert.Zero(t, f.Len())

	f.AddLine("rsubmit SASApp2 wait=yes;").Indent()
	f.Server = "SASApp2"
	f.Quoting = true
	f.AddLine("%put b;")
	assert.Equal(t, "%let a = 1;\n", seg.String(), "fork output stays out of the parent")

	seg.Merge(f)
	seg.AddLine("x")
	assert.Equal(t, "%let a = 1;\n   rsubmit SASApp2 wait=yes;\n      %put b;\n      x\n", seg.String())
	assert.Equal(t, "SASApp2", seg.Server)
	assert.True(t, seg.Quoting)
}
