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
	"strings"
)

const indentUnit = "   "

// Segment - accumulating buffer of generated code. Besides the text it carries the generation
// context shared by every step of a job: the server the code is submitted to, whether name
// literals are enabled and which instrumentation is requested.
type Segment struct {
	sb     strings.Builder
	indent int
	// DefaultServer - server the job runs on. Transforms assigned to another server are wrapped
	// into a remote submit block
	DefaultServer string
	// Server - server the code currently being generated runs on
	Server string
	// Quoting - name literals ("name"n) are enabled
	Quoting bool
	// RowCount - emit row count collection after each statement
	RowCount bool
	// Diagnostics - emit notes about unmapped target columns
	Diagnostics bool
}

func NewSegment(defaultServer string) *Segment {
	return &Segment{
		DefaultServer: defaultServer,
		Server:        defaultServer,
	}
}

// Fork - empty segment with the generation context and indentation of s. Code generated into the
// fork reaches s only through Merge
func (s *Segment) Fork() *Segment {
	return &Segment{
		indent:        s.indent,
		DefaultServer: s.DefaultServer,
		Server:        s.Server,
		Quoting:       s.Quoting,
		RowCount:      s.RowCount,
		Diagnostics:   s.Diagnostics,
	}
}

// Merge - appends the text of f and takes over its server, quoting and indentation
func (s *Segment) Merge(f *Segment) {
	s.sb.WriteString(f.sb.String())
	s.indent = f.indent
	s.Server = f.Server
	s.Quoting = f.Quoting
}

// Add - appends text. Every line of text is prefixed with the current indentation
func (s *Segment) Add(text string) *Segment {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line != "" {
			s.sb.WriteString(strings.Repeat(indentUnit, s.indent))
			s.sb.WriteString(line)
		}
		if i < len(lines)-1 {
			s.sb.WriteByte('\n')
		}
	}
	return s
}

// AddLine - appends text followed by a new line
func (s *Segment) AddLine(text string) *Segment {
	return s.Add(text).NewLine()
}

func (s *Segment) AddLinef(format string, args ...any) *Segment {
	return s.AddLine(fmt.Sprintf(format, args...))
}

func (s *Segment) NewLine() *Segment {
	s.sb.WriteByte('\n')
	return s
}

func (s *Segment) Indent() *Segment {
	s.indent++
	return s
}

func (s *Segment) Unindent() *Segment {
	if s.indent > 0 {
		s.indent--
	}
	return s
}

// IsRemote - reports whether code for server must be submitted remotely
func (s *Segment) IsRemote(server string) bool {
	return server != "" && !strings.EqualFold(server, s.DefaultServer)
}

func (s *Segment) Len() int {
	return s.sb.Len()
}

func (s *Segment) String() string {
	return s.sb.String()
}
