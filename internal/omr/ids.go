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

package omr

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// newObjectPrefix marks identifiers of objects that were created in memory and were never written
// to the repository.
const newObjectPrefix = "$"

var (
	ErrObjectNotFound = errors.New("repository object not found")
	ErrTypeMismatch   = errors.New("repository object type mismatch")
	ErrEmptyObjectID  = errors.New("empty object id")
)

type ObjectID string

// IsNew - reports whether the id is a temporary "new object" identifier
func (id ObjectID) IsNew() bool {
	return strings.HasPrefix(string(id), newObjectPrefix)
}

func (id ObjectID) String() string {
	return string(id)
}

type ObjectType string

const (
	TypeColumn             ObjectType = "Column"
	TypePhysicalTable      ObjectType = "PhysicalTable"
	TypeWorkTable          ObjectType = "WorkTable"
	TypeMapping            ObjectType = "FeatureMap"
	TypeClassifierMap      ObjectType = "ClassifierMap"
	TypeTextExpression     ObjectType = "TextExpression"
	TypeTransform          ObjectType = "TransformationStep"
	TypeTableOptions       ObjectType = "PropertySet"
	TypeSourceCode         ObjectType = "SourceCode"
	TypeConditionActionSet ObjectType = "ConditionActionSet"
	TypeJob                ObjectType = "Job"
)

// IDMap - maps temporary ids to the permanent ids assigned by the repository on save
type IDMap map[ObjectID]ObjectID

// Resolve - returns the permanent id for id if it was assigned, otherwise id itself
func (m IDMap) Resolve(id ObjectID) ObjectID {
	if permanent, ok := m[id]; ok {
		return permanent
	}
	return id
}

// NewObjectID - generates a temporary id for an object that is not stored yet
func NewObjectID() ObjectID {
	return ObjectID(newObjectPrefix + uuid.NewString())
}

// NewPermanentID - generates the id the repository assigns to a stored object
func NewPermanentID() ObjectID {
	return ObjectID(uuid.NewString())
}
