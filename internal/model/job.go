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
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/greenmaskio/etlmodel/internal/codegen"
	"github.com/greenmaskio/etlmodel/internal/omr"
)

const (
	jobAttrName            = "Name"
	jobAttrDescription     = "Desc"
	jobAttrServer          = "Server"
	jobAssocTables         = "Tables"
	jobAssocTransforms     = "Transforms"
	jobAssocSuccessorsPref = "Successors."
)

// Job - data object registry and the transforms of one job connected by control flow
type Job struct {
	object
	name        string
	description string
	server      string
	tables      []*Table
	transforms  []*DataTransform
	successors  map[*DataTransform][]*DataTransform
	deleted     []deleter
}

func (ws *Workspace) NewJob(name string) *Job {
	return &Job{
		object:     newObject(ws),
		name:       name,
		successors: make(map[*DataTransform][]*DataTransform),
	}
}

func (j *Job) Name() string {
	return j.name
}

func (j *Job) SetName(v string) {
	setField(&j.object, "Name", &j.name, v)
}

func (j *Job) Description() string {
	return j.description
}

func (j *Job) SetDescription(v string) {
	setField(&j.object, "Description", &j.description, v)
}

// Server - default server of the job. Transforms on other servers are submitted remotely
func (j *Job) Server() string {
	return j.server
}

func (j *Job) SetServer(v string) {
	setField(&j.object, "Server", &j.server, v)
}

func (j *Job) Tables() []*Table {
	return slices.Clone(j.tables)
}

// AddTable - registers a persistent table in the job
func (j *Job) AddTable(t *Table) {
	appendItem(&j.object, "Tables", &j.tables, t)
}

// RemoveTable - unregisters t. Tables still used by a transform of the job are kept
func (j *Job) RemoveTable(t *Table) error {
	for _, dt := range j.transforms {
		if slices.Contains(dt.sources, t) || slices.Contains(dt.targets, t) {
			return fmt.Errorf("table %s is used by transform %s: %w", t.name, dt.name, ErrUnsupportedOperation)
		}
	}
	removeItem(&j.object, "Tables", &j.tables, t)
	return nil
}

// TableByName - registered table by library and name
func (j *Job) TableByName(library, name string) *Table {
	for _, t := range j.tables {
		if strings.EqualFold(t.library, library) && t.name == name {
			return t
		}
	}
	return nil
}

func (j *Job) Transforms() []*DataTransform {
	return slices.Clone(j.transforms)
}

func (j *Job) AddTransform(dt *DataTransform) {
	appendItem(&j.object, "Transforms", &j.transforms, dt)
}

// TransformByName - first transform named name
func (j *Job) TransformByName(name string) *DataTransform {
	for _, dt := range j.transforms {
		if dt.name == name {
			return dt
		}
	}
	return nil
}

// RemoveTransform - removes dt with its control flow edges and detaches its tables. The stored
// transform is deleted on the next save
func (j *Job) RemoveTransform(dt *DataTransform) error {
	if !slices.Contains(j.transforms, dt) {
		return fmt.Errorf("transform %s: %w", dt.name, ErrTransformNotFound)
	}
	return j.ws.Batch("Remove transform "+dt.name, func() error {
		for _, t := range slices.Clone(dt.sources) {
			if err := dt.RemoveSource(t); err != nil {
				return err
			}
		}
		for _, t := range slices.Clone(dt.targets) {
			if err := dt.RemoveTarget(t); err != nil {
				return err
			}
		}
		for from := range j.successors {
			j.RemoveSuccessor(from, dt)
		}
		for _, to := range j.Successors(dt) {
			j.RemoveSuccessor(dt, to)
		}
		removeItem(&j.object, "Transforms", &j.transforms, dt)
		stageDelete(&j.object, &j.deleted, dt)
		return nil
	})
}

// Successors - transforms that run after dt by explicit control flow
func (j *Job) Successors(dt *DataTransform) []*DataTransform {
	return slices.Clone(j.successors[dt])
}

// AddSuccessor - to runs after from
func (j *Job) AddSuccessor(from, to *DataTransform) error {
	for _, dt := range []*DataTransform{from, to} {
		if !slices.Contains(j.transforms, dt) {
			return fmt.Errorf("transform %s: %w", dt.name, ErrTransformNotFound)
		}
	}
	if from == to {
		return fmt.Errorf("transform %s follows itself: %w", from.name, ErrControlFlowCycle)
	}
	if slices.Contains(j.successors[from], to) {
		return nil
	}
	j.setSuccessors(from, append(slices.Clone(j.successors[from]), to))
	return nil
}

func (j *Job) RemoveSuccessor(from, to *DataTransform) {
	if !slices.Contains(j.successors[from], to) {
		return
	}
	j.setSuccessors(from, slices.DeleteFunc(slices.Clone(j.successors[from]), func(dt *DataTransform) bool {
		return dt == to
	}))
}

func (j *Job) setSuccessors(from *DataTransform, next []*DataTransform) {
	before := slices.Clone(j.successors[from])
	apply := func(list []*DataTransform) {
		if len(list) == 0 {
			delete(j.successors, from)
		} else {
			j.successors[from] = slices.Clone(list)
		}
		j.changed = true
	}
	apply(next)
	j.journal().record(&Edit{
		Kind:     EditList,
		ObjectID: j.id,
		Field:    "Successors",
		Before:   before,
		After:    next,
		undo: func() {
			apply(before)
		},
		redo: func() {
			apply(next)
		},
	})
}

// ControlOrderedTransforms - transforms in execution order. A transform runs after its explicit
// predecessors and after the transforms producing the tables it reads. Ties are broken by the
// order the transforms were added in
func (j *Job) ControlOrderedTransforms() ([]*DataTransform, error) {
	index := make(map[*DataTransform]int, len(j.transforms))
	for i, dt := range j.transforms {
		index[dt] = i
	}
	deps := make([][]int, len(j.transforms))
	for i, dt := range j.transforms {
		for _, to := range j.successors[dt] {
			if k, ok := index[to]; ok {
				deps[k] = append(deps[k], i)
			}
		}
		for _, t := range dt.sources {
			for _, producer := range j.ws.producers[t] {
				if k, ok := index[producer]; ok && k != i && !slices.Contains(deps[i], k) {
					deps[i] = append(deps[i], k)
				}
			}
		}
	}
	order, err := topoSort(len(j.transforms), func(i int) []int {
		return deps[i]
	})
	if err != nil {
		return nil, fmt.Errorf("job %s: %w", j.name, err)
	}
	res := make([]*DataTransform, 0, len(order))
	for _, i := range order {
		res = append(res, j.transforms[i])
	}
	return res, nil
}

// topoSort - indices in execution order, deps(i) yields the indices that run before i. When
// several nodes are ready the smallest index goes first
func topoSort(n int, deps func(i int) []int) ([]int, error) {
	if n <= 0 {
		return nil, nil
	}
	indeg := make([]int, n)
	out := make([][]int, n)
	for i := range n {
		for _, d := range deps(i) {
			if d < 0 || d >= n {
				return nil, fmt.Errorf("dependency index out of range: %d depends on %d", i, d)
			}
			indeg[i]++
			out[d] = append(out[d], i)
		}
	}
	var ready []int
	for i := range n {
		if indeg[i] == 0 {
			ready = append(ready, i)
		}
	}
	order := make([]int, 0, n)
	for len(ready) > 0 {
		i := ready[0]
		ready = ready[1:]
		order = append(order, i)
		for _, k := range out[i] {
			indeg[k]--
			if indeg[k] == 0 {
				pos, _ := slices.BinarySearch(ready, k)
				ready = slices.Insert(ready, pos, k)
			}
		}
	}
	if len(order) != n {
		return nil, ErrControlFlowCycle
	}
	return order, nil
}

// GenerateCode - code of every transform in control order. Once a transform uses name literals
// quoting stays enabled for the rest of the job
func (j *Job) GenerateCode(seg *codegen.Segment) error {
	ordered, err := j.ControlOrderedTransforms()
	if err != nil {
		return err
	}
	if seg.DefaultServer == "" {
		seg.DefaultServer = j.server
		seg.Server = j.server
	}
	seg.AddLine(codegen.CommentBlock(
		codegen.CommentField{Label: "Job", Value: j.name},
		codegen.CommentField{Label: "Description", Value: j.description},
		codegen.CommentField{Label: "Server", Value: seg.DefaultServer},
	))
	seg.NewLine()
	var errs []error
	for _, dt := range ordered {
		if err = dt.CompleteCode(seg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// IsChanged - own state, any registered table or any transform changed
func (j *Job) IsChanged() bool {
	if j.changed || len(j.deleted) > 0 {
		return true
	}
	for _, t := range j.tables {
		if t.IsChanged() {
			return true
		}
	}
	return slices.ContainsFunc(j.transforms, func(dt *DataTransform) bool {
		return dt.IsChanged()
	})
}

func (j *Job) IsComplete() bool {
	return !j.Validate().IsFatal()
}

// Validate - warnings of every transform plus control flow cycles
func (j *Job) Validate() ValidationWarnings {
	var res ValidationWarnings
	if _, err := j.ControlOrderedTransforms(); err != nil {
		res = append(res, NewValidationWarning().
			SetObject(j.id, j.name).
			SetMsg("control flow contains a cycle"))
	}
	for _, dt := range j.transforms {
		res = append(res, dt.Validate()...)
	}
	return res
}

// SaveToOMR - writes tables, transforms and the job record through one adapter. Permanent ids are
// applied to the model even when the save fails so a retry does not create duplicate records
func (j *Job) SaveToOMR(ctx context.Context, repo *omr.Repository) (omr.IDMap, error) {
	a := repo.NewAdapter("Save job " + j.name)
	defer a.Close()
	err := j.save(ctx, a)
	idMap := a.IDMap()
	j.UpdateIDs(idMap)
	if err != nil {
		return idMap, fmt.Errorf("job %s: %w", j.name, err)
	}
	log.Info().
		Str("Job", j.name).
		Str("ID", j.id.String()).
		Int("NewObjects", len(idMap)).
		Msg("job saved")
	return idMap, nil
}

func (j *Job) save(ctx context.Context, a *omr.Adapter) error {
	if !j.IsChanged() {
		return nil
	}
	for _, t := range j.tables {
		if err := t.SaveToOMR(ctx, a); err != nil {
			return err
		}
	}
	for _, dt := range j.transforms {
		if err := dt.SaveToOMR(ctx, a); err != nil {
			return err
		}
	}
	for len(j.deleted) > 0 {
		if err := j.deleted[0].DeleteFromOMR(ctx, a); err != nil {
			return err
		}
		j.deleted = j.deleted[1:]
	}
	p, err := a.Acquire(ctx, j.id, omr.TypeJob)
	if err != nil {
		return err
	}
	transformIDs := make([]omr.ObjectID, 0, len(j.transforms))
	for _, dt := range j.transforms {
		transformIDs = append(transformIDs, dt.id)
	}
	for name := range p.Associations {
		if strings.HasPrefix(name, jobAssocSuccessorsPref) {
			delete(p.Associations, name)
		}
	}
	for i, dt := range j.transforms {
		var ids []omr.ObjectID
		for _, to := range j.successors[dt] {
			ids = append(ids, to.id)
		}
		p.SetAssociation(jobAssocSuccessorsPref+strconv.Itoa(i), ids...)
	}
	p.Set(jobAttrName, j.name).
		Set(jobAttrDescription, j.description).
		Set(jobAttrServer, j.server).
		SetAssociation(jobAssocTables, tableIDs(j.tables)...).
		SetAssociation(jobAssocTransforms, transformIDs...)
	if err = a.Update(ctx, p); err != nil {
		return err
	}
	j.markClean()
	return nil
}

// LoadJob - reads the job with id, its tables and transforms. resolve maps stored kind names to
// transform kinds
func (ws *Workspace) LoadJob(ctx context.Context, repo *omr.Repository, id omr.ObjectID, resolve KindResolver) (
	*Job, error,
) {
	a := repo.NewAdapter("Load job " + id.String())
	defer a.Close()
	p, err := a.Acquire(ctx, id, omr.TypeJob)
	if err != nil {
		return nil, err
	}
	j := ws.NewJob(p.String(jobAttrName))
	j.id = p.ID
	j.description = p.String(jobAttrDescription)
	j.server = p.String(jobAttrServer)
	if j.tables, err = ws.loadTables(ctx, a, p.Association(jobAssocTables)); err != nil {
		return nil, fmt.Errorf("job %s: %w", j.name, err)
	}
	byID := make(map[omr.ObjectID]*DataTransform)
	for _, dtID := range p.Association(jobAssocTransforms) {
		dt, err := ws.LoadDataTransform(ctx, a, dtID, resolve)
		if err != nil {
			return nil, fmt.Errorf("job %s: %w", j.name, err)
		}
		j.transforms = append(j.transforms, dt)
		byID[dt.id] = dt
	}
	for i, dt := range j.transforms {
		for _, toID := range p.Association(jobAssocSuccessorsPref + strconv.Itoa(i)) {
			to, ok := byID[toID]
			if !ok {
				return nil, fmt.Errorf("job %s successor %s: %w", j.name, toID, ErrTransformNotFound)
			}
			j.successors[dt] = append(j.successors[dt], to)
		}
	}
	j.markClean()
	ws.journal.Clear()
	return j, nil
}

// DeleteFromOMR - deletes the transforms and the job record. Registered tables are shared data
// objects and are kept
func (j *Job) DeleteFromOMR(ctx context.Context, repo *omr.Repository) error {
	if j.IsNew() {
		return nil
	}
	a := repo.NewAdapter("Delete job " + j.name)
	defer a.Close()
	for _, dt := range j.transforms {
		if err := dt.DeleteFromOMR(ctx, a); err != nil {
			return fmt.Errorf("job %s: %w", j.name, err)
		}
	}
	for _, d := range j.deleted {
		if err := d.DeleteFromOMR(ctx, a); err != nil {
			return fmt.Errorf("job %s: %w", j.name, err)
		}
	}
	j.deleted = nil
	return a.Delete(ctx, j.id, omr.TypeJob)
}

// UpdateIDs - replaces new object ids of the job and everything it contains
func (j *Job) UpdateIDs(idMap omr.IDMap) {
	j.updateID(idMap)
	for _, t := range j.tables {
		t.UpdateIDs(idMap)
	}
	for _, dt := range j.transforms {
		dt.UpdateIDs(idMap)
	}
	j.ws.rekey()
}
