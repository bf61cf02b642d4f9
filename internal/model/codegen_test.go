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
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenmaskio/etlmodel/internal/codegen"
)

func newCodegenTransform(t *testing.T) (*DataTransform, *Table, *Table) {
	ws := newTestWorkspace()
	src := newTestTable(ws, "src", "S", num("ID"), char("NAME", 20), num("AMOUNT"))
	tgt := newTestTable(ws, "dw", "TGT", num("ID"), char("FULL_NAME", 40), char("AMOUNT_TXT", 32), num("EXTRA"))
	dt := newTestTransform(t, ws, "Load", src, tgt)
	_, err := dt.AddMapping([]*Column{src.FindColumn("ID")}, []*Column{tgt.FindColumn("ID")})
	require.NoError(t, err)
	_, err = dt.AddMapping([]*Column{src.FindColumn("NAME")}, []*Column{tgt.FindColumn("FULL_NAME")})
	require.NoError(t, err)
	_, err = dt.AddDerivedMapping(
		[]*Column{src.FindColumn("AMOUNT")}, []*Column{tgt.FindColumn("AMOUNT_TXT")},
		"strip(put("+ColumnRef("AMOUNT")+", best32.))",
	)
	require.NoError(t, err)
	return dt, src, tgt
}

func TestDataTransform_SelectItems(t *testing.T) {
	dt, src, tgt := newCodegenTransform(t)
	seg := codegen.NewSegment("")

	items, unmapped, err := dt.SelectItems(seg, []*Table{src}, tgt, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"ID",
		"NAME as FULL_NAME length = 40",
		"(strip(put(AMOUNT, best32.))) as AMOUNT_TXT length = 32",
		". as EXTRA length = 8",
	}, items)
	assert.Equal(t, []*Column{tgt.FindColumn("EXTRA")}, unmapped)
}

func TestDataTransform_SelectItems_Attributes(t *testing.T) {
	ws := newTestWorkspace()
	src := newTestTable(ws, "src", "S", char("CODE", 8))
	tgt := newTestTable(ws, "dw", "TGT", char("CODE", 8), char("LABEL", 10))
	code := tgt.FindColumn("CODE")
	code.SetFormat("$8.")
	code.SetDescription("Customer's code")
	dt := newTestTransform(t, ws, "T", src, tgt)
	_, err := dt.AddMapping(src.Columns(), []*Column{code})
	require.NoError(t, err)

	items, _, err := dt.SelectItems(codegen.NewSegment(""), []*Table{src}, tgt, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"CODE format = $8. label = 'Customer''s code'",
		`" " as LABEL length = 10`,
	}, items)
}

func TestDataTransform_MappingStatement(t *testing.T) {
	dt, src, tgt := newCodegenTransform(t)
	dt.TableOptions(src, true).SetOption("where", "(ID > 0)")
	seg := codegen.NewSegment("")

	require.NoError(t, dt.MappingStatement(seg, src, tgt))
	expected := strings.Join([]string{
		"proc sql;",
		"   create table dw.TGT as",
		"      select",
		"         ID,",
		"         NAME as FULL_NAME length = 40,",
		"         (strip(put(AMOUNT, best32.))) as AMOUNT_TXT length = 32,",
		"         . as EXTRA length = 8",
		"      from src.S (where=(ID > 0));",
		"quit;",
		"%let trans_rc = %sysfunc(max(&trans_rc, &sqlrc));",
		"",
		"",
	}, "\n")
	assert.Equal(t, expected, seg.String())
}

func TestDataTransform_MappingStatement_View(t *testing.T) {
	dt, src, tgt := newCodegenTransform(t)
	tgt.SetView(true)
	seg := codegen.NewSegment("")
	require.NoError(t, dt.MappingStatement(seg, src, tgt))
	assert.Contains(t, seg.String(), "create view dw.TGT as")
}

func TestDataTransform_CompleteCode(t *testing.T) {
	dt, _, _ := newCodegenTransform(t)
	dt.SetDescription("loads the target")
	dt.PreProcess().SetEnabled(true)
	dt.PreProcess().SetText("%put start;")
	cas := dt.Workspace().NewConditionActionSet("checks")
	require.NoError(t, cas.Add(ConditionAction{Condition: "rc > 4", Action: ActionSetReturnCode, Argument: "8"}))
	dt.AddConditionActionSet(cas)

	seg := codegen.NewSegment("SASApp")
	seg.RowCount = true
	seg.Diagnostics = true
	require.NoError(t, dt.CompleteCode(seg))
	code := seg.String()

	assert.Contains(t, code, " * Transform:     Load")
	assert.Contains(t, code, "%let transformID = %quote("+dt.ID().String()+");")
	assert.Contains(t, code, "%let etls_recnt = -1;")
	assert.Contains(t, code, "/*---- Start of PreProcess code ----*/\n%put start;\n")
	assert.Contains(t, code, "%let etls_recnt = &sqlobs;")
	assert.Contains(t, code, "put 'NOTE-    EXTRA';")
	assert.Contains(t, code, "%if %eval((&trans_rc gt 4)) %then %do;\n   %let trans_rc = 8;\n%end;")
	assert.NotContains(t, code, "rsubmit")
	assert.NotContains(t, code, validVarNameOption)
	assert.Less(t, strings.Index(code, "%put start;"), strings.Index(code, "proc sql;"))
	assert.Less(t, strings.Index(code, "proc sql;"), strings.Index(code, "%if %eval"))
}

func TestDataTransform_CompleteCode_Remote(t *testing.T) {
	dt, _, _ := newCodegenTransform(t)
	dt.SetServer("SASApp2")
	seg := codegen.NewSegment("SASApp")

	require.NoError(t, dt.CompleteCode(seg))
	code := seg.String()
	assert.Contains(t, code, "%syslput transformID = &transformID /remote=SASApp2;\n")
	assert.Contains(t, code, "rsubmit SASApp2 wait=yes;\n")
	assert.Contains(t, code, "\n   proc sql;\n")
	assert.Contains(t, code, "   %sysrput trans_rc = &trans_rc;\nendrsubmit;\n")
	assert.NotContains(t, code, "%sysrput etls_recnt")
	assert.Equal(t, "SASApp", seg.Server)
}

func TestDataTransform_CompleteCode_Quoting(t *testing.T) {
	ws := newTestWorkspace()
	src := newTestTable(ws, "src", "S", char("Full Name", 20))
	tgt := newTestTable(ws, "dw", "Target Table", char("Full Name", 20))
	tgt.SetQuoted(true)
	dt := newTestTransform(t, ws, "T", src, tgt)
	_, err := dt.MapAllColumns()
	require.NoError(t, err)

	seg := codegen.NewSegment("")
	require.NoError(t, dt.CompleteCode(seg))
	require.NoError(t, dt.CompleteCode(seg))
	code := seg.String()

	assert.True(t, seg.Quoting)
	assert.Equal(t, 1, strings.Count(code, validVarNameOption))
	assert.Contains(t, code, `create table dw."Target Table"n as`)
	assert.Contains(t, code, `"Full Name"n`)
}

func TestDataTransform_CompleteCode_Incomplete(t *testing.T) {
	ws := newTestWorkspace()
	src := newTestTable(ws, "src", "S", num("ID"))
	tgt := newTestTable(ws, "dw", "TGT", num("KEY"))
	dt := newTestTransform(t, ws, "T", src, tgt)

	err := dt.CompleteCode(codegen.NewSegment(""))
	require.ErrorIs(t, err, ErrTransformIncomplete)
	var ge *GenerationError
	require.True(t, errors.As(err, &ge))
	assert.Equal(t, dt.ID(), ge.TransformID)
	assert.Equal(t, "T", ge.TransformName)
}

func TestDataTransform_CompleteCode_FailureLeavesSegment(t *testing.T) {
	ws := newTestWorkspace()
	src := newTestTable(ws, "src", "S", num("ID"))
	tgt := newTestTable(ws, "dw", "Target Table", num("KEY"))
	tgt.SetQuoted(true)
	dt := newTestTransform(t, ws, "T", src, tgt)
	dt.SetServer("SASApp2")

	seg := codegen.NewSegment("SASApp")
	seg.AddLine("%put before;")
	err := dt.CompleteCode(seg)
	require.ErrorIs(t, err, ErrTransformIncomplete)

	seg.AddLine("%put after;")
	assert.Equal(t, "%put before;\n%put after;\n", seg.String())
	assert.Equal(t, "SASApp", seg.Server)
	assert.False(t, seg.Quoting)
}

func TestDataTransform_CompleteCode_UserWritten(t *testing.T) {
	ws := newTestWorkspace()
	src := newTestTable(ws, "src", "S", num("ID"))
	tgt := newTestTable(ws, "dw", "TGT", num("KEY"))
	dt := newTestTransform(t, ws, "T", src, tgt)
	dt.SetUserWritten(true)
	dt.SetUserCode("data dw.TGT; set src.S(rename=(ID=KEY)); run;")

	seg := codegen.NewSegment("")
	require.NoError(t, dt.CompleteCode(seg))
	assert.Contains(t, seg.String(), "data dw.TGT; set src.S(rename=(ID=KEY)); run;\n")
	assert.NotContains(t, seg.String(), "proc sql;")
}

func TestDataTransform_StagingViewName(t *testing.T) {
	dt, _, _ := newCodegenTransform(t)
	name := dt.StagingViewName()
	assert.Regexp(t, `^work\.V[0-9A-Z]{7}$`, name)
	assert.Equal(t, name, dt.StagingViewName())
}
