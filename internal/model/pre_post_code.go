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

	"github.com/greenmaskio/etlmodel/internal/codegen"
	"github.com/greenmaskio/etlmodel/internal/omr"
)

const (
	SidePreProcess  = "PreProcess"
	SidePostProcess = "PostProcess"

	sourceCodeAttrSide    = "Side"
	sourceCodeAttrEnabled = "Enabled"
	sourceCodeAttrText    = "StoredText"
)

// SourceCode - user code run before or after the transform body
type SourceCode struct {
	object
	side    string
	enabled bool
	text    string
}

func (s *SourceCode) Side() string {
	return s.side
}

func (s *SourceCode) IsEnabled() bool {
	return s.enabled
}

func (s *SourceCode) SetEnabled(v bool) {
	setField(&s.object, "Enabled", &s.enabled, v)
}

func (s *SourceCode) Text() string {
	return s.text
}

func (s *SourceCode) SetText(v string) {
	setField(&s.object, "Text", &s.text, v)
}

// IsEmitted - enabled and has text
func (s *SourceCode) IsEmitted() bool {
	return s.enabled && s.text != ""
}

func (s *SourceCode) IsChanged() bool {
	return s.changed
}

// generate - emits the code surrounded by a marker comment
func (s *SourceCode) generate(seg *codegen.Segment) {
	if !s.IsEmitted() {
		return
	}
	seg.AddLinef("/*---- Start of %s code ----*/", s.side)
	seg.AddLine(s.text)
	seg.AddLinef("/*---- End of %s code ----*/", s.side)
	seg.NewLine()
}

func (s *SourceCode) SaveToOMR(ctx context.Context, a *omr.Adapter) error {
	if !s.changed {
		return nil
	}
	p, err := a.Acquire(ctx, s.id, omr.TypeSourceCode)
	if err != nil {
		return err
	}
	p.Set(sourceCodeAttrSide, s.side).
		Set(sourceCodeAttrEnabled, s.enabled).
		Set(sourceCodeAttrText, s.text)
	if err = a.Update(ctx, p); err != nil {
		return err
	}
	s.markClean()
	return nil
}

func (s *SourceCode) DeleteFromOMR(ctx context.Context, a *omr.Adapter) error {
	if s.IsNew() {
		return nil
	}
	return a.Delete(ctx, s.id, omr.TypeSourceCode)
}

func (s *SourceCode) UpdateIDs(idMap omr.IDMap) {
	s.updateID(idMap)
}

func (ws *Workspace) loadSourceCode(ctx context.Context, a *omr.Adapter, id omr.ObjectID) (*SourceCode, error) {
	p, err := a.Acquire(ctx, id, omr.TypeSourceCode)
	if err != nil {
		return nil, err
	}
	return &SourceCode{
		object:  object{ws: ws, id: p.ID},
		side:    p.String(sourceCodeAttrSide),
		enabled: p.Bool(sourceCodeAttrEnabled),
		text:    p.String(sourceCodeAttrText),
	}, nil
}
