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

package jobfile

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/greenmaskio/etlmodel/internal/model"
	"github.com/greenmaskio/etlmodel/internal/transforms"
)

const workTableRefPrefix = "@"

// Builder - creates the model objects of a job file in a workspace
type Builder struct {
	ws                 *model.Workspace
	registry           *transforms.Registry
	disableExpressions bool
	job                *model.Job
	transforms         map[string]*model.DataTransform
}

func NewBuilder(ws *model.Workspace, registry *transforms.Registry) *Builder {
	return &Builder{
		ws:       ws,
		registry: registry,
	}
}

// SetAllowExpressions - false turns expressions off for every transform whatever its kind allows
func (b *Builder) SetAllowExpressions(v bool) *Builder {
	b.disableExpressions = !v
	return b
}

// Build - creates the job with its tables and transforms in file order. The whole import is one
// undo step and nothing is left in the workspace journal when it fails
func (b *Builder) Build(f *File) (*model.Job, error) {
	b.transforms = make(map[string]*model.DataTransform)
	err := b.ws.Batch("Import job "+f.Name, func() error {
		b.job = b.ws.NewJob(f.Name)
		b.job.SetDescription(f.Description)
		b.job.SetServer(f.Server)
		for _, t := range f.Tables {
			if err := b.buildTable(t); err != nil {
				return fmt.Errorf("table %s.%s: %w", t.Library, t.Name, err)
			}
		}
		for _, t := range f.Transforms {
			if err := b.buildTransform(t); err != nil {
				return fmt.Errorf("transform %s: %w", t.Name, err)
			}
		}
		for _, t := range f.Transforms {
			for _, name := range t.Successors {
				to, ok := b.transforms[name]
				if !ok {
					return fmt.Errorf("successor %s of %s: %w", name, t.Name, ErrTransformNotFound)
				}
				if err := b.job.AddSuccessor(b.transforms[t.Name], to); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	log.Debug().
		Str("Job", f.Name).
		Int("Tables", len(f.Tables)).
		Int("Transforms", len(f.Transforms)).
		Msg("job imported")
	return b.job, nil
}

func (b *Builder) buildTable(def *Table) error {
	if def.Name == "" || def.Library == "" {
		return fmt.Errorf("name and library are required: %w", ErrInvalidReference)
	}
	if b.job.TableByName(def.Library, def.Name) != nil {
		return fmt.Errorf("duplicate table: %w", model.ErrTableAlreadyAttached)
	}
	t := b.ws.NewPhysicalTable(def.Name, def.Library)
	t.SetDescription(def.Description)
	t.SetView(def.View)
	t.SetQuoted(def.Quoted)
	if def.CaseSensitive {
		t.SetCaseSensitive(true)
	}
	for _, cd := range def.Columns {
		typ, err := model.ParseColumnType(cd.Type)
		if err != nil {
			return fmt.Errorf("column %s: %w", cd.Name, err)
		}
		c := t.NewColumn(cd.Name, typ, cd.Length)
		c.SetDescription(cd.Description)
		c.SetFormat(cd.Format)
		c.SetInformat(cd.Informat)
		if len(cd.Notes) > 0 {
			c.SetNotes(cd.Notes)
		}
	}
	b.job.AddTable(t)
	return nil
}

func (b *Builder) buildTransform(def *Transform) error {
	if _, ok := b.transforms[def.Name]; ok {
		return fmt.Errorf("duplicate transform name: %w", ErrInvalidReference)
	}
	dt, err := b.registry.NewTransform(b.ws, def.Kind, def.Name)
	if err != nil {
		return err
	}
	b.transforms[def.Name] = dt
	b.job.AddTransform(dt)

	dt.SetDescription(def.Description)
	dt.SetServer(def.Server)
	dt.SetCollectRowCount(def.CollectRowCount)
	if b.disableExpressions {
		dt.SetAllowExpressions(false)
	}
	for name, value := range def.Properties {
		dt.SetProperty(name, value)
	}
	if def.UserCode != "" {
		dt.SetUserWritten(true)
		dt.SetUserCode(def.UserCode)
	}
	setSourceCode(dt.PreProcess(), def.PreProcess)
	setSourceCode(dt.PostProcess(), def.PostProcess)

	for _, ref := range def.Sources {
		t, err := b.table(ref)
		if err != nil {
			return err
		}
		if err = dt.AddSource(t); err != nil {
			return err
		}
	}
	for _, ref := range def.Targets {
		t, err := b.table(ref)
		if err != nil {
			return err
		}
		if err = dt.AddTarget(t); err != nil {
			return err
		}
	}
	if def.WorkTarget {
		if _, err = dt.NewWorkTarget(); err != nil {
			return err
		}
	}

	for _, ref := range def.Exclude {
		c, err := b.column(dt, ref)
		if err != nil {
			return err
		}
		dt.ExcludeFromMapping(c, true)
		dt.ExcludeFromPropagation(c, true)
	}
	for _, md := range def.Mappings {
		if err = b.buildMapping(dt, md); err != nil {
			return err
		}
	}
	if def.Propagate {
		if _, err = dt.PropagateColumnsToTargetTables(); err != nil {
			return err
		}
	}
	if def.MapAll {
		if _, err = dt.MapAllColumns(); err != nil {
			return err
		}
	}
	for _, sd := range def.Sort {
		c, err := b.column(dt, sd.Column)
		if err != nil {
			return err
		}
		if err = dt.AddSortColumn(c, sd.Descending); err != nil {
			return err
		}
	}
	for _, od := range def.TableOptions {
		t, err := b.table(od.Table)
		if err != nil {
			return err
		}
		o := dt.TableOptions(t, od.Source)
		if o == nil {
			return fmt.Errorf("options of %s: %w", od.Table, model.ErrTableNotAttached)
		}
		o.SetOptions(od.Options)
	}
	for _, sd := range def.ConditionSets {
		s := b.ws.NewConditionActionSet(sd.Name)
		for _, item := range sd.Items {
			err = s.Add(model.ConditionAction{
				Condition: item.Condition,
				Action:    model.ActionType(item.Action),
				Argument:  item.Argument,
			})
			if err != nil {
				return fmt.Errorf("condition set %s: %w", sd.Name, err)
			}
		}
		dt.AddConditionActionSet(s)
	}
	return nil
}

func (b *Builder) buildMapping(dt *model.DataTransform, def *Mapping) error {
	sources, err := b.columns(dt, def.Sources)
	if err != nil {
		return err
	}
	targets, err := b.columns(dt, def.Targets)
	if err != nil {
		return err
	}
	if def.Expression != "" {
		_, err = dt.AddDerivedMapping(sources, targets, def.Expression)
	} else {
		_, err = dt.AddMapping(sources, targets)
	}
	if err != nil {
		return fmt.Errorf("mapping to %s: %w", strings.Join(def.Targets, ", "), err)
	}
	return nil
}

// table - registered table library.name or the first work table of the transform @name
func (b *Builder) table(ref string) (*model.Table, error) {
	if name, ok := strings.CutPrefix(ref, workTableRefPrefix); ok {
		dt, ok := b.transforms[name]
		if !ok {
			return nil, fmt.Errorf("work table %s: %w", ref, ErrTransformNotFound)
		}
		if len(dt.WorkTables()) == 0 {
			return nil, fmt.Errorf("transform %s has no work table: %w", name, ErrTableNotFound)
		}
		return dt.WorkTables()[0], nil
	}
	library, name, ok := strings.Cut(ref, ".")
	if !ok {
		return nil, fmt.Errorf("table %s: %w", ref, ErrInvalidReference)
	}
	t := b.job.TableByName(library, name)
	if t == nil {
		return nil, fmt.Errorf("table %s: %w", ref, ErrTableNotFound)
	}
	return t, nil
}

// column - column of a table attached to dt
func (b *Builder) column(dt *model.DataTransform, ref string) (*model.Column, error) {
	idx := strings.LastIndex(ref, ".")
	if idx <= 0 {
		return nil, fmt.Errorf("column %s: %w", ref, ErrInvalidReference)
	}
	t, err := b.table(ref[:idx])
	if err != nil {
		return nil, err
	}
	if !isAttached(dt, t) {
		return nil, fmt.Errorf("column %s: %w", ref, model.ErrTableNotAttached)
	}
	c := t.FindColumn(ref[idx+1:])
	if c == nil {
		return nil, fmt.Errorf("column %s: %w", ref, ErrColumnNotFound)
	}
	return c, nil
}

func (b *Builder) columns(dt *model.DataTransform, refs []string) ([]*model.Column, error) {
	res := make([]*model.Column, 0, len(refs))
	for _, ref := range refs {
		c, err := b.column(dt, ref)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, nil
}

func isAttached(dt *model.DataTransform, t *model.Table) bool {
	for _, list := range [][]*model.Table{dt.Sources(), dt.Targets()} {
		for _, at := range list {
			if at == t {
				return true
			}
		}
	}
	return false
}

func setSourceCode(s *model.SourceCode, text string) {
	if text == "" {
		return
	}
	s.SetText(text)
	s.SetEnabled(true)
}
