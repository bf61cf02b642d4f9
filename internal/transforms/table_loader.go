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
	"fmt"
	"strings"

	"github.com/greenmaskio/etlmodel/internal/codegen"
	"github.com/greenmaskio/etlmodel/internal/model"
)

const (
	TableLoaderKindName = "TableLoader"

	// PropertyLoadTechnique - Append or Replace
	PropertyLoadTechnique = "LoadTechnique"
	LoadTechniqueAppend   = "Append"
	LoadTechniqueReplace  = "Replace"
)

// TableLoaderDefinition - loads the mapped source rows into a persistent target
var TableLoaderDefinition = NewDefinition(
	NewProperties(
		TableLoaderKindName,
		"Load a target table by appending rows or replacing its content",
	).AddMeta(PropertyLoadTechnique, []string{LoadTechniqueAppend, LoadTechniqueReplace}),
	tableLoaderBody,
).SetAllowExpressions(false).
	SetValidator(validateTableLoader)

// LoadTechnique - configured technique, Append when unset
func LoadTechnique(dt *model.DataTransform) string {
	v := strings.TrimSpace(dt.Property(PropertyLoadTechnique))
	if v == "" {
		return LoadTechniqueAppend
	}
	return v
}

func tableLoaderBody(dt *model.DataTransform, seg *codegen.Segment) error {
	replace := strings.EqualFold(LoadTechnique(dt), LoadTechniqueReplace)
	for _, src := range dt.Sources() {
		for _, tgt := range dt.Targets() {
			ref := dt.TableRef(seg, tgt, false)
			if replace {
				seg.AddLinef("%%if %%sysfunc(exist(%s)) %%then %%do;", tgt.Ref(seg.Quoting))
				seg.Indent()
				seg.AddLine("proc sql;")
				seg.Indent()
				seg.AddLinef("drop table %s;", tgt.Ref(seg.Quoting))
				seg.Unindent()
				seg.AddLine("quit;")
				seg.Unindent()
				seg.AddLine("%end;")
				if err := dt.MappingStatement(seg, src, tgt); err != nil {
					return err
				}
				continue
			}
			staging := dt.StagingViewName()
			if err := dt.MappingStatementInto(seg, src, tgt, staging, true); err != nil {
				return err
			}
			seg.AddLinef("proc append base=%s data=%s force;", ref, staging)
			seg.AddLine("run;")
			dt.StepStatus(seg, false)
			seg.NewLine()
		}
	}
	return nil
}

func validateTableLoader(dt *model.DataTransform) model.ValidationWarnings {
	technique := LoadTechnique(dt)
	if strings.EqualFold(technique, LoadTechniqueAppend) || strings.EqualFold(technique, LoadTechniqueReplace) {
		return nil
	}
	return model.ValidationWarnings{
		dt.Warning(fmt.Sprintf("unknown load technique \"%s\"", technique)).
			AddMeta("AllowedValues", []string{LoadTechniqueAppend, LoadTechniqueReplace}),
	}
}

func init() {
	DefaultRegistry.MustRegister(TableLoaderDefinition)
}
