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
	"github.com/greenmaskio/etlmodel/internal/model"
)

const ExtractKindName = "Extract"

// ExtractDefinition - selects mapped columns of one source into one target
var ExtractDefinition = NewDefinition(
	NewProperties(
		ExtractKindName,
		"Select rows and map columns from a source table into a target table or view",
	),
	model.OrdinaryMappingBody,
)

func init() {
	DefaultRegistry.MustRegister(ExtractDefinition)
}
