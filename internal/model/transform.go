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
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/greenmaskio/etlmodel/internal/codegen"
	"github.com/greenmaskio/etlmodel/internal/omr"
)

const (
	DBIDirectExecDefault = ""
	DBIDirectExecYes     = "YES"
	DBIDirectExecNo      = "NO"
)

const (
	transformAttrKind            = "TransformRole"
	transformAttrName            = "Name"
	transformAttrDescription     = "Desc"
	transformAttrServer          = "Server"
	transformAttrUserWritten     = "IsUserWritten"
	transformAttrUserCode        = "UserCode"
	transformAttrDBIDirectExec   = "DBIDirectExec"
	transformAttrCollectRowCount = "CollectRowCount"
	transformAttrProperties      = "Properties"
	transformAssocPreProcess     = "PreProcess"
	transformAssocPostProcess    = "PostProcess"
	transformAssocConditionSets  = "ConditionActionSets"
)

// Transform - state every step of a job has regardless of the data it moves: identification,
// execution server, user written code, pre and post process code and condition action sets
type Transform struct {
	object
	kind            string
	name            string
	description     string
	server          string
	userWritten     bool
	userCode        string
	dbiDirectExec   string
	collectRowCount bool
	properties      map[string]string
	preProcess      *SourceCode
	postProcess     *SourceCode
	conditionSets   []*ConditionActionSet
	deleted         []deleter
}

func newTransform(ws *Workspace, kind, name string) Transform {
	return Transform{
		object:      newObject(ws),
		kind:        kind,
		name:        name,
		properties:  make(map[string]string),
		preProcess:  ws.NewSourceCode(SidePreProcess),
		postProcess: ws.NewSourceCode(SidePostProcess),
	}
}

// Kind - name of the transform kind, e.g. Extract
func (t *Transform) Kind() string {
	return t.kind
}

func (t *Transform) Name() string {
	return t.name
}

func (t *Transform) SetName(v string) {
	setField(&t.object, "Name", &t.name, v)
}

func (t *Transform) Description() string {
	return t.description
}

func (t *Transform) SetDescription(v string) {
	setField(&t.object, "Description", &t.description, v)
}

// Server - application server the step runs on. Empty means the job default
func (t *Transform) Server() string {
	return t.server
}

func (t *Transform) SetServer(v string) {
	setField(&t.object, "Server", &t.server, v)
}

func (t *Transform) IsUserWritten() bool {
	return t.userWritten
}

func (t *Transform) SetUserWritten(v bool) {
	setField(&t.object, "UserWritten", &t.userWritten, v)
}

func (t *Transform) UserCode() string {
	return t.userCode
}

func (t *Transform) SetUserCode(v string) {
	setField(&t.object, "UserCode", &t.userCode, v)
}

func (t *Transform) DBIDirectExec() string {
	return t.dbiDirectExec
}

// SetDBIDirectExec - accepts YES, NO or empty string for the server default
func (t *Transform) SetDBIDirectExec(v string) error {
	norm := strings.ToUpper(strings.TrimSpace(v))
	switch norm {
	case DBIDirectExecDefault, DBIDirectExecYes, DBIDirectExecNo:
	default:
		return fmt.Errorf("DBI direct exec value \"%s\": %w", v, ErrInvalidOption)
	}
	setField(&t.object, "DBIDirectExec", &t.dbiDirectExec, norm)
	return nil
}

func (t *Transform) CollectRowCount() bool {
	return t.collectRowCount
}

func (t *Transform) SetCollectRowCount(v bool) {
	setField(&t.object, "CollectRowCount", &t.collectRowCount, v)
}

// Property - kind specific property such as the load technique of a table loader
func (t *Transform) Property(name string) string {
	return t.properties[name]
}

func (t *Transform) Properties() map[string]string {
	return maps.Clone(t.properties)
}

// SetProperty - sets the property. An empty value removes it
func (t *Transform) SetProperty(name, value string) {
	next := maps.Clone(t.properties)
	if next == nil {
		next = make(map[string]string)
	}
	if value == "" {
		delete(next, name)
	} else {
		next[name] = value
	}
	setMap(&t.object, "Properties", &t.properties, next)
}

func (t *Transform) PreProcess() *SourceCode {
	return t.preProcess
}

func (t *Transform) PostProcess() *SourceCode {
	return t.postProcess
}

func (t *Transform) ConditionActionSets() []*ConditionActionSet {
	return slices.Clone(t.conditionSets)
}

func (t *Transform) AddConditionActionSet(s *ConditionActionSet) {
	appendItem(&t.object, "ConditionActionSets", &t.conditionSets, s)
}

func (t *Transform) RemoveConditionActionSet(s *ConditionActionSet) {
	if removeItem(&t.object, "ConditionActionSets", &t.conditionSets, s) {
		stageDelete(&t.object, &t.deleted, s)
	}
}

// isChanged - own flag or any contained pre/post code or condition set changed
func (t *Transform) isChanged() bool {
	if t.changed || len(t.deleted) > 0 || t.preProcess.IsChanged() || t.postProcess.IsChanged() {
		return true
	}
	return slices.ContainsFunc(t.conditionSets, func(s *ConditionActionSet) bool {
		return s.IsChanged()
	})
}

// Warning - error severity finding about the transform
func (t *Transform) Warning(msg string) *ValidationWarning {
	return NewValidationWarning().
		SetObject(t.id, t.name).
		SetMsg(msg)
}

func (t *Transform) validate() ValidationWarnings {
	var res ValidationWarnings
	if t.name == "" {
		res = append(res, t.Warning("transform has no name"))
	}
	if t.userWritten && strings.TrimSpace(t.userCode) == "" {
		res = append(res, t.Warning("user written transform has no code"))
	}
	for _, s := range t.conditionSets {
		for _, ca := range s.items {
			if err := ca.Validate(); err != nil {
				res = append(res, t.Warning("invalid condition action").
					AddMeta("ConditionActionSet", s.name).
					AddMeta("Error", err.Error()))
			}
		}
	}
	return res
}

// saveChildren - writes pre/post code and condition sets and deletes removed children
func (t *Transform) saveChildren(ctx context.Context, a *omr.Adapter) error {
	if err := t.preProcess.SaveToOMR(ctx, a); err != nil {
		return err
	}
	if err := t.postProcess.SaveToOMR(ctx, a); err != nil {
		return err
	}
	for _, s := range t.conditionSets {
		if err := s.SaveToOMR(ctx, a); err != nil {
			return err
		}
	}
	for len(t.deleted) > 0 {
		if err := t.deleted[0].DeleteFromOMR(ctx, a); err != nil {
			return err
		}
		t.deleted = t.deleted[1:]
	}
	return nil
}

func (t *Transform) saveAttributes(p *omr.Proxy) {
	ids := make([]omr.ObjectID, 0, len(t.conditionSets))
	for _, s := range t.conditionSets {
		ids = append(ids, s.id)
	}
	p.Set(transformAttrKind, t.kind).
		Set(transformAttrName, t.name).
		Set(transformAttrDescription, t.description).
		Set(transformAttrServer, t.server).
		Set(transformAttrUserWritten, t.userWritten).
		Set(transformAttrUserCode, t.userCode).
		Set(transformAttrDBIDirectExec, t.dbiDirectExec).
		Set(transformAttrCollectRowCount, t.collectRowCount).
		Set(transformAttrProperties, maps.Clone(t.properties)).
		SetAssociation(transformAssocPreProcess, t.preProcess.id).
		SetAssociation(transformAssocPostProcess, t.postProcess.id).
		SetAssociation(transformAssocConditionSets, ids...)
}

func (t *Transform) loadAttributes(ctx context.Context, a *omr.Adapter, p *omr.Proxy) error {
	t.id = p.ID
	t.kind = p.String(transformAttrKind)
	t.name = p.String(transformAttrName)
	t.description = p.String(transformAttrDescription)
	t.server = p.String(transformAttrServer)
	t.userWritten = p.Bool(transformAttrUserWritten)
	t.userCode = p.String(transformAttrUserCode)
	t.dbiDirectExec = p.String(transformAttrDBIDirectExec)
	t.collectRowCount = p.Bool(transformAttrCollectRowCount)
	t.properties = p.StringMap(transformAttrProperties)
	var err error
	if id := p.FirstAssociation(transformAssocPreProcess); id != "" {
		if t.preProcess, err = t.ws.loadSourceCode(ctx, a, id); err != nil {
			return err
		}
	}
	if id := p.FirstAssociation(transformAssocPostProcess); id != "" {
		if t.postProcess, err = t.ws.loadSourceCode(ctx, a, id); err != nil {
			return err
		}
	}
	t.conditionSets = nil
	for _, id := range p.Association(transformAssocConditionSets) {
		s, err := t.ws.loadConditionActionSet(ctx, a, id)
		if err != nil {
			return err
		}
		t.conditionSets = append(t.conditionSets, s)
	}
	return nil
}

// deleteChildren - deletes pre/post code, condition sets and staged removed children
func (t *Transform) deleteChildren(ctx context.Context, a *omr.Adapter) error {
	children := []deleter{t.preProcess, t.postProcess}
	for _, s := range t.conditionSets {
		children = append(children, s)
	}
	children = append(children, t.deleted...)
	for _, d := range children {
		if err := d.DeleteFromOMR(ctx, a); err != nil {
			return err
		}
	}
	t.deleted = nil
	return nil
}

func (t *Transform) updateIDs(idMap omr.IDMap) {
	t.updateID(idMap)
	t.preProcess.UpdateIDs(idMap)
	t.postProcess.UpdateIDs(idMap)
	for _, s := range t.conditionSets {
		s.UpdateIDs(idMap)
	}
}

func (t *Transform) markAllClean() {
	t.markClean()
	t.preProcess.markClean()
	t.postProcess.markClean()
	for _, s := range t.conditionSets {
		s.markClean()
	}
}

// setupCode - validvarname, DBI direct exec option and pre-process code
func (t *Transform) setupCode(seg *codegen.Segment) {
	switch t.dbiDirectExec {
	case DBIDirectExecYes:
		seg.AddLine("options DBIDIRECTEXEC;")
	case DBIDirectExecNo:
		seg.AddLine("options NODBIDIRECTEXEC;")
	}
	t.preProcess.generate(seg)
}

// completionCode - condition action sets and post-process code
func (t *Transform) completionCode(seg *codegen.Segment) error {
	for _, s := range t.conditionSets {
		if err := s.generate(seg, t.name); err != nil {
			return err
		}
	}
	t.postProcess.generate(seg)
	return nil
}
