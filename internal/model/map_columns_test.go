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

package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataTransform_MapAllColumns(t *testing.T) {
	ws := newTestWorkspace()
	src := newTestTable(ws, "src", "S", num("ID"), char("CustomerName", 40), num("AMOUNT"), char("UNUSED", 1))
	tgt := newTestTable(ws, "dw", "TGT", num("ID"), char("CUSTOMER_NAME", 40), char("AMOUNT", 32), num("MISSING"))
	dt := newTestTransform(t, ws, "T", src, tgt)

	created, err := dt.MapAllColumns()
	require.NoError(t, err)
	require.Len(t, created, 3)

	id := dt.OrdinaryMappingForTarget(tgt.FindColumn("ID"))
	require.NotNil(t, id)
	assert.Equal(t, MappingTypeOneToOne, id.Type())

	name := dt.OrdinaryMappingForTarget(tgt.FindColumn("CUSTOMER_NAME"))
	require.NotNil(t, name)
	assert.Equal(t, []*Column{src.FindColumn("CustomerName")}, name.Sources())
	assert.Equal(t, MappingTypeOneToOne, name.Type())

	amount := dt.OrdinaryMappingForTarget(tgt.FindColumn("AMOUNT"))
	require.NotNil(t, amount)
	assert.Equal(t, MappingTypeDerived, amount.Type())
	text, err := amount.Expression().GetText("", false)
	require.NoError(t, err)
	assert.Equal(t, "strip(put(AMOUNT, best32.))", text)

	assert.Nil(t, dt.OrdinaryMappingForTarget(tgt.FindColumn("MISSING")))
}

func TestDataTransform_MapColumns_SourceConsumedOnce(t *testing.T) {
	ws := newTestWorkspace()
	kind := DefaultKind()
	kind.MaxTargets = 2
	src := newTestTable(ws, "src", "S", num("ID"))
	tgt1 := newTestTable(ws, "dw", "T1", num("ID"))
	tgt2 := newTestTable(ws, "dw", "T2", num("ID"))
	dt := ws.NewDataTransform(kind, "T")
	require.NoError(t, dt.AddSource(src))
	require.NoError(t, dt.AddTarget(tgt1))
	require.NoError(t, dt.AddTarget(tgt2))

	created, err := dt.MapAllColumns()
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.NotNil(t, dt.OrdinaryMappingForTarget(tgt1.FindColumn("ID")))
	assert.Nil(t, dt.OrdinaryMappingForTarget(tgt2.FindColumn("ID")))
}

func TestDataTransform_MapColumns_RuleOrderWins(t *testing.T) {
	ws := newTestWorkspace()
	src := newTestTable(ws, "src", "S", num("Customer_Id"), num("CUSTOMERID"))
	tgt := newTestTable(ws, "dw", "TGT", num("CUSTOMERID"))
	dt := newTestTransform(t, ws, "T", src, tgt)

	created, err := dt.MapAllColumns()
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, []*Column{src.FindColumn("CUSTOMERID")}, created[0].Sources())
}

func TestDataTransform_MapColumns_ExpressionsDisabled(t *testing.T) {
	ws := newTestWorkspace()
	src := newTestTable(ws, "src", "S", num("AMOUNT"))
	tgt := newTestTable(ws, "dw", "TGT", char("AMOUNT", 32))
	dt := newTestTransform(t, ws, "T", src, tgt)
	dt.SetAllowExpressions(false)

	created, err := dt.MapAllColumns()
	require.NoError(t, err)
	assert.Empty(t, created)
	assert.Empty(t, dt.Mappings())
}

func TestDataTransform_MapColumns_Excluded(t *testing.T) {
	ws := newTestWorkspace()
	src := newTestTable(ws, "src", "S", num("ID"), num("CODE"))
	tgt := newTestTable(ws, "dw", "TGT", num("ID"), num("CODE"))
	dt := newTestTransform(t, ws, "T", src, tgt)
	dt.ExcludeFromMapping(src.FindColumn("ID"), true)
	dt.ExcludeFromMapping(tgt.FindColumn("CODE"), true)

	created, err := dt.MapAllColumns()
	require.NoError(t, err)
	assert.Empty(t, created)
}

func TestDataTransform_MapColumns_MergesIntoExpression(t *testing.T) {
	ws := newTestWorkspace()
	src := newTestTable(ws, "src", "S", char("FIRST", 20), char("LAST", 20))
	tgt := newTestTable(ws, "dw", "TGT", char("FULL", 41))
	dt := newTestTransform(t, ws, "T", src, tgt)
	first, last := src.FindColumn("FIRST"), src.FindColumn("LAST")

	m, err := dt.AddDerivedMapping([]*Column{first}, tgt.Columns(),
		"catx(' ', "+ColumnRef("FIRST")+", "+ColumnRef("LAST")+")")
	require.NoError(t, err)

	created, err := dt.MapAllColumns()
	require.NoError(t, err)
	assert.Empty(t, created)
	assert.Equal(t, []*Column{first, last}, m.Sources())
	assert.True(t, m.Expression().ContainsRememberedColumn(last))
	text, err := m.Expression().GetText("", false)
	require.NoError(t, err)
	assert.Equal(t, "catx(' ', FIRST, LAST)", text)
}

// anyNameRule - accepts every pair with the same name regardless of type
type anyNameRule struct{}

func (anyNameRule) Name() string {
	return "AnyName"
}

func (anyNameRule) CanMap(src, tgt *Column) (bool, string) {
	return src.Name() == tgt.Name(), ""
}

func TestDataTransform_MapColumns_RuleWithoutExpression(t *testing.T) {
	ws := newTestWorkspace()
	src := newTestTable(ws, "src", "S", num("CODE"))
	tgt := newTestTable(ws, "dw", "TGT", char("CODE", 8))
	dt := newTestTransform(t, ws, "T", src, tgt)

	created, err := dt.MapColumns(src.Columns(), tgt.Columns(), []MappingRule{anyNameRule{}})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, MappingTypeOneToOne, created[0].Type())
	assert.Nil(t, created[0].Expression())
}

func TestReferencedColumnNames(t *testing.T) {
	names := ReferencedColumnNames(`{{ col "A" }} + {{col "B b"}} + {{- col "A" -}}`)
	assert.Equal(t, []string{"A", "B b"}, names)
}
