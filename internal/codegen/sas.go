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

package codegen

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mitchellh/go-wordwrap"
)

const (
	commentBlockWidth = 76
	commentLabelWidth = 14
)

var validNameRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,31}$`)

// IsValidName - reports whether name can be used without a name literal
func IsValidName(name string) bool {
	return validNameRegexp.MatchString(name)
}

// QuoteName - returns name as a name literal when quoting is enabled and name is not a valid
// plain identifier
func QuoteName(name string, quoting bool) string {
	if !quoting || IsValidName(name) {
		return name
	}
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"n`
}

// TableRef - library qualified table reference
func TableRef(library, name string, quoting bool) string {
	if library == "" {
		return QuoteName(name, quoting)
	}
	return library + "." + QuoteName(name, quoting)
}

// QuoteString - single quoted string constant
func QuoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// CommentField - labeled row of a comment block
type CommentField struct {
	Label string
	Value string
}

// CommentBlock - boxed comment with word-wrapped values
func CommentBlock(fields ...CommentField) string {
	border := "/*" + strings.Repeat("=", commentBlockWidth-3) + "*"
	valueWidth := commentBlockWidth - commentLabelWidth - 5

	var sb strings.Builder
	sb.WriteString(border)
	sb.WriteByte('\n')
	for _, f := range fields {
		label := f.Label
		if label != "" {
			label += ":"
		}
		wrapped := strings.Split(wordwrap.WrapString(f.Value, uint(valueWidth)), "\n")
		for i, line := range wrapped {
			if i > 0 {
				label = ""
			}
			// Comment terminators inside values would close the block early
			line = strings.ReplaceAll(line, "*/", "* /")
			sb.WriteString(fmt.Sprintf(" * %-*s %-*s*\n", commentLabelWidth, label, valueWidth, line))
		}
	}
	sb.WriteString(" *" + strings.Repeat("=", commentBlockWidth-3) + "*/")
	return sb.String()
}
