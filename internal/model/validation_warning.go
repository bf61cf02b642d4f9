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

	"github.com/greenmaskio/etlmodel/internal/omr"
)

const (
	ErrorValidationSeverity   = "error"
	WarningValidationSeverity = "warning"
)

// ValidationWarnings - findings of a completeness check. Error severity findings make the checked
// object incomplete and block code generation
type ValidationWarnings []*ValidationWarning

func (re ValidationWarnings) IsFatal() bool {
	return slices.ContainsFunc(re, func(warning *ValidationWarning) bool {
		return warning.Severity == ErrorValidationSeverity
	})
}

// Errors - error severity findings only
func (re ValidationWarnings) Errors() ValidationWarnings {
	var res ValidationWarnings
	for _, w := range re {
		if w.Severity == ErrorValidationSeverity {
			res = append(res, w)
		}
	}
	return res
}

// ValidationWarning - finding about one model object, usually a transform or the job
type ValidationWarning struct {
	ObjectID omr.ObjectID   `json:"object_id,omitempty"`
	Object   string         `json:"object,omitempty"`
	Msg      string         `json:"msg,omitempty"`
	Severity string         `json:"severity,omitempty"`
	Meta     map[string]any `json:"meta,omitempty"`
}

func NewValidationWarning() *ValidationWarning {
	return &ValidationWarning{
		Severity: ErrorValidationSeverity,
		Meta:     make(map[string]any),
	}
}

// SetObject - object the finding is about
func (re *ValidationWarning) SetObject(id omr.ObjectID, name string) *ValidationWarning {
	re.ObjectID = id
	re.Object = name
	return re
}

func (re *ValidationWarning) SetMsg(msg string) *ValidationWarning {
	re.Msg = msg
	return re
}

func (re *ValidationWarning) SetMsgf(msg string, args ...any) *ValidationWarning {
	re.Msg = fmt.Sprintf(msg, args...)
	return re
}

func (re *ValidationWarning) SetSeverity(severity string) *ValidationWarning {
	re.Severity = severity
	return re
}

func (re *ValidationWarning) AddMeta(key string, value any) *ValidationWarning {
	re.Meta[key] = value
	return re
}
