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
	SQLJoinKindName = "SQLJoin"

	// PropertyJoinCondition - where clause joining the sources. Table aliases are t1, t2 and so on
	// in the order of the sources
	PropertyJoinCondition = "JoinCondition"

	sqlJoinMinSources = 2
	sqlJoinMaxSources = 8
	sqlJoinAliasPref  = "t"
)

// SQLJoinDefinition - joins several sources into one target
var SQLJoinDefinition = NewDefinition(
	NewProperties(
		SQLJoinKindName,
		"Join source tables with a single proc sql select into a target table",
	),
	sqlJoinBody,
).SetLimits(sqlJoinMaxSources, defaultMaxTargets).
	SetValidator(validateSQLJoin)

// JoinAlias - alias of the source at position idx
func JoinAlias(idx int) string {
	return fmt.Sprintf("%s%d", sqlJoinAliasPref, idx+1)
}

func sqlJoinBody(dt *model.DataTransform, seg *codegen.Segment) error {
	sources := dt.Sources()
	aliases := make(map[*model.Table]string, len(sources))
	from := make([]string, 0, len(sources))
	for i, src := range sources {
		aliases[src] = JoinAlias(i)
		from = append(from, dt.TableRef(seg, src, true)+" as "+JoinAlias(i))
	}
	condition := strings.TrimSpace(dt.Property(PropertyJoinCondition))
	for _, tgt := range dt.Targets() {
		items, unmapped, err := dt.SelectItems(seg, sources, tgt, aliases)
		if err != nil {
			return err
		}
		kind := "table"
		if tgt.IsView() {
			kind = "view"
		}
		seg.AddLine("proc sql;")
		seg.Indent()
		seg.AddLinef("create %s %s as", kind, dt.TableRef(seg, tgt, false))
		seg.Indent()
		seg.AddLine("select")
		seg.Indent()
		for i, item := range items {
			if i < len(items)-1 {
				item += ","
			}
			seg.AddLine(item)
		}
		seg.Unindent()
		if condition == "" {
			seg.AddLinef("from %s;", strings.Join(from, ", "))
		} else {
			seg.AddLinef("from %s", strings.Join(from, ", "))
			seg.AddLinef("where %s;", condition)
		}
		seg.Unindent()
		seg.Unindent()
		seg.AddLine("quit;")
		dt.StepStatus(seg, true)
		dt.UnmappedNote(seg, tgt, unmapped)
		seg.NewLine()
	}
	return nil
}

func validateSQLJoin(dt *model.DataTransform) model.ValidationWarnings {
	var res model.ValidationWarnings
	if n := len(dt.Sources()); n < sqlJoinMinSources {
		res = append(res, dt.Warning(fmt.Sprintf("join needs at least %d source tables", sqlJoinMinSources)).
			AddMeta("Sources", n))
	}
	if strings.TrimSpace(dt.Property(PropertyJoinCondition)) == "" {
		res = append(res, dt.Warning("join has no condition: the result is a cartesian product").
			SetSeverity(model.WarningValidationSeverity))
	}
	return res
}

func init() {
	DefaultRegistry.MustRegister(SQLJoinDefinition)
}
