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
	"fmt"

	pkgerrors "github.com/pkg/errors"

	"github.com/greenmaskio/etlmodel/internal/omr"
)

var (
	// ErrUnsupportedOperation - the operation exceeds what the transform kind allows, e.g. adding
	// more sources than the maximum
	ErrUnsupportedOperation = errors.New("unsupported operation")
	// ErrInvalidOption - invalid option value
	ErrInvalidOption        = errors.New("invalid option value")
	ErrTableNotAttached     = errors.New("table is not attached to transform")
	ErrTableAlreadyAttached = errors.New("table is already attached to transform")
	ErrColumnNotFound       = errors.New("column not found")
	ErrMappingNotFound      = errors.New("mapping not found")
	ErrExpressionsDisabled  = errors.New("transform does not allow expressions")
	ErrInvalidCondition     = errors.New("invalid condition")
	ErrControlFlowCycle     = errors.New("control flow cycle detected")
	ErrTransformNotFound    = errors.New("transform not found")
	ErrTransformIncomplete  = errors.New("transform is incomplete")
)

// GenerationError - code generation failure of a single transform
type GenerationError struct {
	TransformID   omr.ObjectID
	TransformName string
	Err           error
}

func newGenerationError(t *Transform, err error) *GenerationError {
	var ge *GenerationError
	if errors.As(err, &ge) {
		return ge
	}
	return &GenerationError{
		TransformID:   t.ID(),
		TransformName: t.Name(),
		Err:           pkgerrors.WithStack(err),
	}
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("code generation failed for transform \"%s\" (%s): %s", e.TransformName, e.TransformID, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}
