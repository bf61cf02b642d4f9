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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{name: "CustomerID", expected: "customerid"},
		{name: "CUSTOMER_ID", expected: "customerid"},
		{name: "customer-id", expected: "customerid"},
		{name: "XMLParser", expected: "xmlparser"},
		{name: "__", expected: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeName(tt.name))
		})
	}
}

func TestSplitName(t *testing.T) {
	assert.Equal(t, []string{"XML", "Parser"}, splitName("XMLParser"))
	assert.Equal(t, []string{"customer", "Id"}, splitName("customerId"))
	assert.Equal(t, []string{"A", "B"}, splitName("A__B"))
}

func TestMappingRules(t *testing.T) {
	ws := newTestWorkspace()
	src := newTestTable(ws, "src", "S", num("Amount"), char("CODE", 5), num("CustomerId"))
	tgt := newTestTable(ws, "dw", "T", num("AMOUNT"), num("CODE"), char("AMOUNT", 10), num("CUSTOMER_ID"))
	sensitive := newTestTable(ws, "dw", "C", num("AMOUNT"))
	sensitive.SetCaseSensitive(true)

	tests := []struct {
		name       string
		rule       MappingRule
		src, tgt   *Column
		ok         bool
		expression string
	}{
		{name: "exact case insensitive", rule: ExactNameRule{}, src: src.Columns()[0], tgt: tgt.Columns()[0], ok: true},
		{name: "exact case sensitive target", rule: ExactNameRule{}, src: src.Columns()[0], tgt: sensitive.Columns()[0]},
		{name: "exact type differs", rule: ExactNameRule{}, src: src.Columns()[1], tgt: tgt.Columns()[1]},
		{
			name: "char to numeric", rule: TypeConversionRule{}, src: src.Columns()[1], tgt: tgt.Columns()[1],
			ok: true, expression: "input(" + ColumnRef("CODE") + ", best32.)",
		},
		{
			name: "numeric to char", rule: TypeConversionRule{}, src: src.Columns()[0], tgt: tgt.Columns()[2],
			ok: true, expression: "strip(put(" + ColumnRef("Amount") + ", best32.))",
		},
		{name: "conversion needs a type change", rule: TypeConversionRule{}, src: src.Columns()[0], tgt: tgt.Columns()[0]},
		{name: "normalized", rule: NormalizedNameRule{}, src: src.Columns()[2], tgt: tgt.Columns()[3], ok: true},
		{name: "normalized type differs", rule: NormalizedNameRule{}, src: src.Columns()[0], tgt: tgt.Columns()[2]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, expression := tt.rule.CanMap(tt.src, tt.tgt)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expression, expression)
		})
	}
}
