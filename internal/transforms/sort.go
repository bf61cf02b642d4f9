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
	"strings"

	"github.com/greenmaskio/etlmodel/internal/codegen"
	"github.com/greenmaskio/etlmodel/internal/model"
)

const SortKindName = "Sort"

// SortDefinition - maps the source into a staging view and sorts it into the target
var SortDefinition = NewDefinition(
	NewProperties(
		SortKindName,
		"Sort the rows of a source table by the sort columns of the target",
	),
	sortBody,
).SetAllowExpressions(false).
	SetValidator(validateSort)

func sortBody(dt *model.DataTransform, seg *codegen.Segment) error {
	staging := dt.StagingViewName()
	for _, src := range dt.Sources() {
		for _, tgt := range dt.Targets() {
			if err := dt.MappingStatementInto(seg, src, tgt, staging, true); err != nil {
				return err
			}
			seg.AddLinef("proc sort data=%s out=%s;", staging, dt.TableRef(seg, tgt, false))
			seg.Indent()
			seg.AddLinef("by %s;", sortByList(dt, seg.Quoting))
			seg.Unindent()
			seg.AddLine("run;")
			dt.StepStatus(seg, false)
			seg.NewLine()
		}
	}
	return nil
}

func sortByList(dt *model.DataTransform, quoting bool) string {
	var parts []string
	for _, sc := range dt.SortColumns() {
		name := codegen.QuoteName(sc.Column.Name(), quoting)
		if sc.Descending {
			name = "descending " + name
		}
		parts = append(parts, name)
	}
	return strings.Join(parts, " ")
}

func validateSort(dt *model.DataTransform) model.ValidationWarnings {
	if len(dt.SortColumns()) > 0 {
		return nil
	}
	return model.ValidationWarnings{
		dt.Warning("sort has no sort columns"),
	}
}

func init() {
	DefaultRegistry.MustRegister(SortDefinition)
}
