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

package transforms

import (
	"github.com/greenmaskio/etlmodel/internal/codegen"
	"github.com/greenmaskio/etlmodel/internal/model"
)

const UserWrittenKindName = "UserWritten"

// UserWrittenDefinition - runs user code verbatim. Sources and targets only document the data
// flow and no mapping is required
var UserWrittenDefinition = NewDefinition(
	NewProperties(
		UserWrittenKindName,
		"Run user written code with any number of documented sources and targets",
	),
	userWrittenBody,
).SetLimits(Unlimited, Unlimited).
	SetRequirements(model.Requirements{}).
	SetInit(func(dt *model.DataTransform) {
		dt.SetUserWritten(true)
	})

func userWrittenBody(dt *model.DataTransform, seg *codegen.Segment) error {
	seg.AddLine(dt.UserCode())
	seg.NewLine()
	return nil
}

func init() {
	DefaultRegistry.MustRegister(UserWrittenDefinition)
}
