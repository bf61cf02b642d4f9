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
	"bytes"
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/greenmaskio/etlmodel/internal/codegen"
	"github.com/greenmaskio/etlmodel/internal/omr"
)

const (
	expressionAttrText       = "TextRole"
	expressionAttrValue      = "StoredText"
	expressionAssocColumns   = "AssociatedObjects"
	expressionTemplateMarker = "{{"
)

// ColumnRef - template action referring to the remembered column name
func ColumnRef(name string) string {
	return fmt.Sprintf("{{ col %s }}", strconv.Quote(name))
}

// TextExpression - expression text of a derived mapping. The text is a Go template, the col
// function resolves names against the remembered columns and renders them according to the
// quoting setting of the generated code. Sprig functions are available as well.
type TextExpression struct {
	object
	owner      omr.ObjectID
	text       string
	remembered []*Column
}

func (e *TextExpression) Owner() omr.ObjectID {
	return e.owner
}

func (e *TextExpression) Text() string {
	return e.text
}

func (e *TextExpression) SetText(v string) {
	setField(&e.object, "Text", &e.text, v)
}

// RememberedColumns - columns the expression text refers to
func (e *TextExpression) RememberedColumns() []*Column {
	return slices.Clone(e.remembered)
}

func (e *TextExpression) AddRememberedColumn(c *Column) {
	appendItem(&e.object, "RememberedColumns", &e.remembered, c)
}

func (e *TextExpression) RemoveRememberedColumn(c *Column) {
	removeItem(&e.object, "RememberedColumns", &e.remembered, c)
}

// ReplaceRememberedColumn - re-points the remembered column old to c. col references to old in
// the text are rewritten to the name of c
func (e *TextExpression) ReplaceRememberedColumn(old, c *Column) {
	if old != c && old.name != c.name {
		e.retargetColumnRefs(old, c.name)
	}
	replaceItem(&e.object, "RememberedColumns", &e.remembered, old, c)
}

// retargetColumnRefs - rewrites the col references resolving to the remembered column c so they
// refer to name. Must run before c is renamed or replaced
func (e *TextExpression) retargetColumnRefs(c *Column, name string) {
	if !e.ContainsRememberedColumn(c) {
		return
	}
	text := columnRefRegexp.ReplaceAllStringFunc(e.text, func(action string) string {
		quoted := columnRefRegexp.FindStringSubmatch(action)[1]
		ref, err := strconv.Unquote(quoted)
		if err != nil || e.rememberedByName(ref) != c {
			return action
		}
		return strings.Replace(action, quoted, strconv.Quote(name), 1)
	})
	e.SetText(text)
}

// ContainsRememberedColumn - pointer membership check
func (e *TextExpression) ContainsRememberedColumn(c *Column) bool {
	return slices.Contains(e.remembered, c)
}

// IsEmpty - expression has no text
func (e *TextExpression) IsEmpty() bool {
	return strings.TrimSpace(e.text) == ""
}

// GetText - renders the expression for server
func (e *TextExpression) GetText(server string, quoting bool) (string, error) {
	return e.render(server, quoting, nil)
}

// render - renders the text. qualify, when set, prefixes column references, e.g. with a table
// alias
func (e *TextExpression) render(server string, quoting bool, qualify func(c *Column) string) (string, error) {
	if !strings.Contains(e.text, expressionTemplateMarker) {
		return e.text, nil
	}
	funcs := expressionFuncMap()
	funcs["col"] = func(name string) (string, error) {
		c := e.rememberedByName(name)
		if c == nil {
			return "", fmt.Errorf("column \"%s\" is not remembered by the expression: %w", name, ErrColumnNotFound)
		}
		ref := codegen.QuoteName(c.name, quoting)
		if qualify != nil {
			if prefix := qualify(c); prefix != "" {
				ref = prefix + "." + ref
			}
		}
		return ref, nil
	}
	funcs["server"] = func() string {
		return server
	}
	tmpl, err := template.New("expression").Funcs(funcs).Option("missingkey=error").Parse(e.text)
	if err != nil {
		return "", fmt.Errorf("cannot parse expression: %w", err)
	}
	buf := bytes.NewBuffer(nil)
	if err = tmpl.Execute(buf, nil); err != nil {
		return "", fmt.Errorf("cannot render expression: %w", err)
	}
	return buf.String(), nil
}

// expressionFuncMap - sprig text functions without access to the environment
func expressionFuncMap() template.FuncMap {
	funcs := sprig.TxtFuncMap()
	delete(funcs, "env")
	delete(funcs, "expandenv")
	return funcs
}

func (e *TextExpression) rememberedByName(name string) *Column {
	for _, c := range e.remembered {
		if c.name == name {
			return c
		}
	}
	for _, c := range e.remembered {
		if strings.EqualFold(c.name, name) {
			return c
		}
	}
	return nil
}

func (e *TextExpression) IsChanged() bool {
	return e.changed
}

func (e *TextExpression) SaveToOMR(ctx context.Context, a *omr.Adapter) error {
	if !e.changed {
		return nil
	}
	p, err := a.Acquire(ctx, e.id, omr.TypeTextExpression)
	if err != nil {
		return err
	}
	ids := make([]omr.ObjectID, 0, len(e.remembered))
	for _, c := range e.remembered {
		ids = append(ids, c.id)
	}
	p.Set(expressionAttrText, "Expression").
		Set(expressionAttrValue, e.text).
		SetAssociation(expressionAssocColumns, ids...)
	if err = a.Update(ctx, p); err != nil {
		return err
	}
	e.markClean()
	return nil
}

func (e *TextExpression) DeleteFromOMR(ctx context.Context, a *omr.Adapter) error {
	if e.IsNew() {
		return nil
	}
	return a.Delete(ctx, e.id, omr.TypeTextExpression)
}

func (e *TextExpression) UpdateIDs(idMap omr.IDMap) {
	e.updateID(idMap)
	e.owner = idMap.Resolve(e.owner)
}

func (ws *Workspace) loadTextExpression(ctx context.Context, a *omr.Adapter, id omr.ObjectID, owner omr.ObjectID) (
	*TextExpression, error,
) {
	p, err := a.Acquire(ctx, id, omr.TypeTextExpression)
	if err != nil {
		return nil, err
	}
	e := &TextExpression{
		object: object{ws: ws, id: p.ID},
		owner:  owner,
		text:   p.String(expressionAttrValue),
	}
	for _, colID := range p.Association(expressionAssocColumns) {
		c := ws.columns[colID]
		if c == nil {
			return nil, fmt.Errorf("expression %s refers to column %s: %w", id, colID, ErrColumnNotFound)
		}
		e.remembered = append(e.remembered, c)
	}
	return e, nil
}
