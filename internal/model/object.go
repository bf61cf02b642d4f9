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
	"maps"
	"slices"

	"github.com/greenmaskio/etlmodel/internal/omr"
)

// object - state shared by every repository backed model object
type object struct {
	ws      *Workspace
	id      omr.ObjectID
	changed bool
}

func newObject(ws *Workspace) object {
	return object{
		ws:      ws,
		id:      omr.NewObjectID(),
		changed: true,
	}
}

func (o *object) ID() omr.ObjectID {
	return o.id
}

// IsNew - the object was never written to the repository
func (o *object) IsNew() bool {
	return o.id.IsNew()
}

func (o *object) Workspace() *Workspace {
	return o.ws
}

func (o *object) markChanged() {
	o.changed = true
}

func (o *object) markClean() {
	o.changed = false
}

func (o *object) updateID(idMap omr.IDMap) {
	o.id = idMap.Resolve(o.id)
}

func (o *object) journal() *Journal {
	if o.ws == nil {
		return nil
	}
	return o.ws.journal
}

// deleter - object that can remove its own repository record
type deleter interface {
	ID() omr.ObjectID
	DeleteFromOMR(ctx context.Context, a *omr.Adapter) error
}

// setField - assigns v to dst when it differs, marks the owner changed and records the edit
func setField[T comparable](o *object, field string, dst *T, v T) {
	if *dst == v {
		return
	}
	old := *dst
	*dst = v
	o.changed = true
	o.journal().record(&Edit{
		Kind:     EditSetAttribute,
		ObjectID: o.id,
		Field:    field,
		Before:   old,
		After:    v,
		undo: func() {
			*dst = old
			o.changed = true
		},
		redo: func() {
			*dst = v
			o.changed = true
		},
	})
}

// setMap - replaces the string map at ptr with a copy of next when the content differs
func setMap(o *object, field string, ptr *map[string]string, next map[string]string) {
	if maps.Equal(*ptr, next) {
		return
	}
	old := maps.Clone(*ptr)
	next = maps.Clone(next)
	if next == nil {
		next = make(map[string]string)
	}
	*ptr = maps.Clone(next)
	o.changed = true
	o.journal().record(&Edit{
		Kind:     EditSetAttribute,
		ObjectID: o.id,
		Field:    field,
		Before:   old,
		After:    next,
		undo: func() {
			*ptr = maps.Clone(old)
			o.changed = true
		},
		redo: func() {
			*ptr = maps.Clone(next)
			o.changed = true
		},
	})
}

// recordList - records a collection change made in place. before is the collection content
// prior to the change
func recordList[T any](o *object, field string, ptr *[]T, before []T) {
	after := slices.Clone(*ptr)
	o.changed = true
	o.journal().record(&Edit{
		Kind:     EditList,
		ObjectID: o.id,
		Field:    field,
		Before:   before,
		After:    after,
		undo: func() {
			*ptr = slices.Clone(before)
			o.changed = true
		},
		redo: func() {
			*ptr = slices.Clone(after)
			o.changed = true
		},
	})
}

// appendItem - appends v to the collection when it is not present yet
func appendItem[T comparable](o *object, field string, ptr *[]T, v T) bool {
	if slices.Contains(*ptr, v) {
		return false
	}
	before := slices.Clone(*ptr)
	*ptr = append(*ptr, v)
	recordList(o, field, ptr, before)
	return true
}

// removeItem - removes every occurrence of v from the collection
func removeItem[T comparable](o *object, field string, ptr *[]T, v T) bool {
	if !slices.Contains(*ptr, v) {
		return false
	}
	before := slices.Clone(*ptr)
	*ptr = slices.DeleteFunc(*ptr, func(item T) bool {
		return item == v
	})
	recordList(o, field, ptr, before)
	return true
}

// replaceItem - replaces every occurrence of old with v
func replaceItem[T comparable](o *object, field string, ptr *[]T, old, v T) bool {
	if old == v || !slices.Contains(*ptr, old) {
		return false
	}
	before := slices.Clone(*ptr)
	res := make([]T, 0, len(*ptr))
	for _, item := range *ptr {
		if item == old {
			item = v
		}
		if item == v && slices.Contains(res, v) {
			continue
		}
		res = append(res, item)
	}
	*ptr = res
	recordList(o, field, ptr, before)
	return true
}

// stageDelete - remembers a removed child so its record is deleted on the next save
func stageDelete(o *object, ptr *[]deleter, d deleter) {
	if d.ID().IsNew() {
		return
	}
	appendItem(o, "deleted", ptr, d)
}
