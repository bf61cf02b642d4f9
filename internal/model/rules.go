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
	"strings"
	"unicode"
)

// MappingRule - decides whether a source column can be mapped to a target column. A non-empty
// expression means the mapping is derived and the expression computes the target value. An empty
// expression gives a one-to-one mapping even when the column types differ.
type MappingRule interface {
	Name() string
	CanMap(src, tgt *Column) (ok bool, expression string)
}

// DefaultMappingRules - exact name, exact name with type conversion, normalized name
func DefaultMappingRules() []MappingRule {
	return []MappingRule{
		ExactNameRule{},
		TypeConversionRule{},
		NormalizedNameRule{},
	}
}

// ExactNameRule - same name and type. Case sensitivity follows the target table
type ExactNameRule struct{}

func (ExactNameRule) Name() string {
	return "ExactName"
}

func (ExactNameRule) CanMap(src, tgt *Column) (bool, string) {
	if src.typ != tgt.typ || !namesEqual(src.name, tgt.name, targetCaseSensitive(tgt)) {
		return false, ""
	}
	return true, ""
}

// TypeConversionRule - same name, numeric to character or character to numeric
type TypeConversionRule struct{}

func (TypeConversionRule) Name() string {
	return "TypeConversion"
}

func (TypeConversionRule) CanMap(src, tgt *Column) (bool, string) {
	if src.typ == tgt.typ || !namesEqual(src.name, tgt.name, targetCaseSensitive(tgt)) {
		return false, ""
	}
	switch {
	case src.typ == ColumnTypeNumeric && tgt.typ == ColumnTypeCharacter:
		return true, fmt.Sprintf("strip(put(%s, best32.))", ColumnRef(src.name))
	case src.typ == ColumnTypeCharacter && tgt.typ == ColumnTypeNumeric:
		return true, fmt.Sprintf("input(%s, best32.)", ColumnRef(src.name))
	}
	return false, ""
}

// NormalizedNameRule - same type and equal names after case folding, separator stripping and
// camel case splitting, e.g. CustomerID and CUSTOMER_ID
type NormalizedNameRule struct{}

func (NormalizedNameRule) Name() string {
	return "NormalizedName"
}

func (NormalizedNameRule) CanMap(src, tgt *Column) (bool, string) {
	if src.typ != tgt.typ {
		return false, ""
	}
	n := NormalizeName(src.name)
	return n != "" && n == NormalizeName(tgt.name), ""
}

func targetCaseSensitive(tgt *Column) bool {
	return tgt.table != nil && tgt.table.IsCaseSensitive()
}

// NormalizeName - lower case name without separators
func NormalizeName(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, token := range splitName(s) {
		sb.WriteString(strings.ToLower(token))
	}
	return sb.String()
}

// splitName - splits on separators and camel case boundaries. XMLParser gives XML and Parser
func splitName(s string) []string {
	var (
		tokens  []string
		current strings.Builder
	)
	runes := []rune(s)
	for i, r := range runes {
		if isNameSeparator(r) {
			if current.Len() > 0 {
				tokens = append(tokens, current.String())
				current.Reset()
			}
			continue
		}
		if i > 0 && startsToken(runes, i) && current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
		current.WriteRune(r)
	}
	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}
	return tokens
}

func isNameSeparator(r rune) bool {
	return r == '_' || r == '-' || r == ' ' || r == '.'
}

func startsToken(runes []rune, i int) bool {
	r, prev := runes[i], runes[i-1]
	if !unicode.IsUpper(r) {
		return false
	}
	if !unicode.IsUpper(prev) {
		return !isNameSeparator(prev)
	}
	return i+1 < len(runes) && unicode.IsLower(runes[i+1])
}
