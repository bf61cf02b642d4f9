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
	"fmt"
	"slices"
	"strings"

	"github.com/greenmaskio/etlmodel/internal/codegen"
)

const (
	stagingViewPrefix  = "V"
	validVarNameOption = "options validvarname=any;"
)

// CompleteCode - generates header, setup, body, completion and footer of the transform. Any
// failure is returned as a GenerationError and leaves seg untouched
func (dt *DataTransform) CompleteCode(seg *codegen.Segment) error {
	work := seg.Fork()
	steps := []func(seg *codegen.Segment) error{
		dt.GeneratedCodeHeader,
		dt.TransformSetup,
		dt.GeneratedCode,
		dt.TransformCompletion,
		dt.GeneratedCodeFooter,
	}
	for _, step := range steps {
		if err := step(work); err != nil {
			return newGenerationError(&dt.Transform, err)
		}
	}
	if seg.IsRemote(dt.server) {
		work.Quoting = seg.Quoting
	}
	seg.Merge(work)
	return nil
}

// GeneratedCodeHeader - step comment, status macro variables and the remote submit block start
// when the transform runs on another server
func (dt *DataTransform) GeneratedCodeHeader(seg *codegen.Segment) error {
	seg.AddLine(codegen.CommentBlock(
		codegen.CommentField{Label: "Step", Value: dt.kind},
		codegen.CommentField{Label: "Transform", Value: dt.name},
		codegen.CommentField{Label: "Description", Value: dt.description},
		codegen.CommentField{Label: "Source Tables", Value: tableNames(dt.sources)},
		codegen.CommentField{Label: "Target Tables", Value: tableNames(dt.targets)},
	))
	seg.NewLine()
	seg.AddLinef("%%let transformID = %%quote(%s);", dt.id)
	seg.AddLine("%let trans_rc = 0;")
	if seg.RowCount || dt.collectRowCount {
		seg.AddLine("%let etls_recnt = -1;")
	}
	if seg.IsRemote(dt.server) {
		seg.AddLinef("%%syslput transformID = &transformID /remote=%s;", dt.server)
		seg.AddLinef("%%syslput trans_rc = &trans_rc /remote=%s;", dt.server)
		seg.AddLinef("rsubmit %s wait=yes;", dt.server)
		seg.Indent()
		seg.Server = dt.server
		if dt.UsesQuotedNames() {
			seg.Quoting = true
			seg.AddLine(validVarNameOption)
		}
	} else if dt.UsesQuotedNames() && !seg.Quoting {
		seg.Quoting = true
		seg.AddLine(validVarNameOption)
	}
	seg.NewLine()
	return nil
}

// TransformSetup - execution options and pre-process code
func (dt *DataTransform) TransformSetup(seg *codegen.Segment) error {
	dt.setupCode(seg)
	return nil
}

// GeneratedCode - user code verbatim for user written transforms, the body of the kind otherwise
func (dt *DataTransform) GeneratedCode(seg *codegen.Segment) error {
	if dt.userWritten {
		seg.AddLine(dt.userCode)
		seg.NewLine()
		return nil
	}
	if errs := dt.Validate().Errors(); len(errs) > 0 {
		return fmt.Errorf("%s: %w", errs[0].Msg, ErrTransformIncomplete)
	}
	body := dt.def.Body
	if body == nil {
		body = OrdinaryMappingBody
	}
	return body(dt, seg)
}

// TransformCompletion - condition action sets and post-process code
func (dt *DataTransform) TransformCompletion(seg *codegen.Segment) error {
	return dt.completionCode(seg)
}

// GeneratedCodeFooter - closes the remote submit block and returns the status to the local session
func (dt *DataTransform) GeneratedCodeFooter(seg *codegen.Segment) error {
	if !seg.IsRemote(dt.server) {
		return nil
	}
	seg.AddLine("%sysrput trans_rc = &trans_rc;")
	if seg.RowCount || dt.collectRowCount {
		seg.AddLine("%sysrput etls_recnt = &etls_recnt;")
	}
	seg.Unindent()
	seg.AddLine("endrsubmit;")
	seg.NewLine()
	seg.Server = seg.DefaultServer
	return nil
}

// OrdinaryMappingBody - one mapping statement per source and target pair
func OrdinaryMappingBody(dt *DataTransform, seg *codegen.Segment) error {
	for _, src := range dt.sources {
		for _, tgt := range dt.targets {
			if err := dt.MappingStatement(seg, src, tgt); err != nil {
				return err
			}
		}
	}
	return nil
}

// MappingStatement - proc sql step creating tgt from src
func (dt *DataTransform) MappingStatement(seg *codegen.Segment, src, tgt *Table) error {
	return dt.MappingStatementInto(seg, src, tgt, dt.TableRef(seg, tgt, false), tgt.view)
}

// MappingStatementInto - proc sql step selecting the columns of tgt from src into the table or
// view named into
func (dt *DataTransform) MappingStatementInto(seg *codegen.Segment, src, tgt *Table, into string, view bool) error {
	items, unmapped, err := dt.SelectItems(seg, []*Table{src}, tgt, nil)
	if err != nil {
		return err
	}
	kind := "table"
	if view {
		kind = "view"
	}
	seg.AddLine("proc sql;")
	seg.Indent()
	seg.AddLinef("create %s %s as", kind, into)
	seg.Indent()
	seg.AddLine("select")
	writeSelectList(seg, items)
	seg.AddLinef("from %s;", dt.TableRef(seg, src, true))
	seg.Unindent()
	seg.Unindent()
	seg.AddLine("quit;")
	dt.StepStatus(seg, true)
	dt.UnmappedNote(seg, tgt, unmapped)
	seg.NewLine()
	return nil
}

func writeSelectList(seg *codegen.Segment, items []string) {
	seg.Indent()
	for i, item := range items {
		if i < len(items)-1 {
			item += ","
		}
		seg.AddLine(item)
	}
	seg.Unindent()
}

// SelectItems - select list producing every column of tgt from sources. A column written by a
// derived mapping with an expression gets the expression, a column copied from a source gets the
// source column and a column without a usable mapping gets a typed null placeholder and is
// returned in unmapped. aliases, when set, qualify source column references
func (dt *DataTransform) SelectItems(seg *codegen.Segment, sources []*Table, tgt *Table, aliases map[*Table]string) (
	[]string, []*Column, error,
) {
	qualify := func(c *Column) string {
		return aliases[c.table]
	}
	var (
		items    []string
		unmapped []*Column
	)
	for _, tc := range tgt.columns {
		name := codegen.QuoteName(tc.name, seg.Quoting)
		m := dt.OrdinaryMappingForTarget(tc)
		if m != nil && m.typ == MappingTypeDerived && dt.DoesMappingHaveExpression(m) {
			text, err := m.expression.render(seg.Server, seg.Quoting, qualify)
			if err != nil {
				return nil, nil, fmt.Errorf("mapping to column %s: %w", tc.name, err)
			}
			items = append(items, "("+strings.TrimSpace(text)+") as "+name+columnAttributes(tc, nil))
			continue
		}
		var sc *Column
		if m != nil {
			idx := slices.IndexFunc(m.sources, func(c *Column) bool {
				return slices.Contains(sources, c.table)
			})
			if idx >= 0 {
				sc = m.sources[idx]
			}
		}
		if sc == nil {
			unmapped = append(unmapped, tc)
			items = append(items, nullPlaceholder(tc)+" as "+name+columnAttributes(tc, nil))
			continue
		}
		item := codegen.QuoteName(sc.name, seg.Quoting)
		if prefix := qualify(sc); prefix != "" {
			item = prefix + "." + item
		}
		if sc.name != tc.name {
			item += " as " + name
		}
		items = append(items, item+columnAttributes(tc, sc))
	}
	return items, unmapped, nil
}

// columnAttributes - length, format, informat and label of tc. Attributes equal to those of the
// source column sc are omitted
func columnAttributes(tc, sc *Column) string {
	var parts []string
	if tc.length > 0 && (sc == nil || sc.length != tc.length) {
		parts = append(parts, fmt.Sprintf("length = %d", tc.length))
	}
	if tc.format != "" && (sc == nil || sc.format != tc.format) {
		parts = append(parts, "format = "+tc.format)
	}
	if tc.informat != "" && (sc == nil || sc.informat != tc.informat) {
		parts = append(parts, "informat = "+tc.informat)
	}
	if tc.description != "" && (sc == nil || sc.description != tc.description) {
		parts = append(parts, "label = "+codegen.QuoteString(tc.description))
	}
	if len(parts) == 0 {
		return ""
	}
	return " " + strings.Join(parts, " ")
}

func nullPlaceholder(c *Column) string {
	if c.typ == ColumnTypeNumeric {
		return "."
	}
	return `" "`
}

// TableRef - reference to t with the data set options of the transform for the current server
func (dt *DataTransform) TableRef(seg *codegen.Segment, t *Table, isSource bool) string {
	ref := t.Ref(seg.Quoting)
	if o := dt.TableOptions(t, isSource); o != nil {
		if opts := o.TableOptions(seg.Server); opts != "" {
			ref += " (" + opts + ")"
		}
	}
	return ref
}

// StagingViewName - work view the transform can stage mapped rows in
func (dt *DataTransform) StagingViewName() string {
	return workLibrary + "." + hashedName(stagingViewPrefix, dt.id)
}

// StepStatus - row count and return code bookkeeping after a step. sql selects the proc sql
// status variables
func (dt *DataTransform) StepStatus(seg *codegen.Segment, sql bool) {
	if sql {
		if seg.RowCount || dt.collectRowCount {
			seg.AddLine("%let etls_recnt = &sqlobs;")
		}
		seg.AddLine("%let trans_rc = %sysfunc(max(&trans_rc, &sqlrc));")
		return
	}
	seg.AddLine("%let trans_rc = %sysfunc(max(&trans_rc, &syserr));")
}

// UnmappedNote - diagnostic note listing target columns without a mapping
func (dt *DataTransform) UnmappedNote(seg *codegen.Segment, tgt *Table, unmapped []*Column) {
	if !seg.Diagnostics || len(unmapped) == 0 {
		return
	}
	seg.AddLine("data _null_;")
	seg.Indent()
	seg.AddLinef("put %s;", codegen.QuoteString(
		fmt.Sprintf("NOTE: The following column(s) in table %s do not have a mapping:", tgt.name)))
	for _, c := range unmapped {
		seg.AddLinef("put %s;", codegen.QuoteString("NOTE-    "+c.name))
	}
	seg.Unindent()
	seg.AddLine("run;")
}

func tableNames(tables []*Table) string {
	names := make([]string, 0, len(tables))
	for _, t := range tables {
		names = append(names, t.Ref(false))
	}
	return strings.Join(names, ", ")
}
