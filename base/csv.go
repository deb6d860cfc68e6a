// Copyright 2026 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package base

import (
	"bufio"
	"io"
	"strings"
)

// Escape quotes a CSV field containing a comma, a quote or a line break.
func Escape(text string) string {
	return EscapeSep(text, ",")
}

// EscapeSep quotes a field containing sep, a quote or a line break. Quotes inside the
// field are doubled.
func EscapeSep(text, sep string) string {
	if !strings.Contains(text, sep) && !strings.ContainsAny(text, "\"\r\n") {
		return text
	}
	return "\"" + strings.ReplaceAll(text, "\"", "\"\"") + "\""
}

// JoinLine escapes fields and joins them with sep.
func JoinLine(sep string, fields ...string) string {
	escaped := make([]string, len(fields))
	for i, field := range fields {
		escaped[i] = EscapeSep(field, sep)
	}
	return strings.Join(escaped, sep)
}

// MaxLineSize is the longest line a CSV scanner accepts.
const MaxLineSize = 64 << 20

// NewLineScanner returns a line scanner whose buffer grows up to MaxLineSize, so that a
// long vector fits on one line.
func NewLineScanner(r io.Reader) *bufio.Scanner {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
	return sc
}

// ReadLines splits every record of a CSV stream into fields and passes them to handler
// with the record number. Quoted fields may contain sep and line breaks. Reading stops
// early when handler returns false.
func ReadLines(sc *bufio.Scanner, sep string, handler func(int, []string) bool) error {
	var (
		record  int
		fields  []string
		field   strings.Builder
		quoted  bool
		pending bool
	)
	for sc.Scan() {
		line := sc.Text()
		if pending {
			// a quoted field spans lines
			field.WriteString("\r\n")
		}
		for i := 0; i < len(line); {
			switch {
			case quoted && line[i] == '"':
				if i+1 < len(line) && line[i+1] == '"' {
					field.WriteByte('"')
					i += 2
					continue
				}
				quoted = false
				i++
			case !quoted && line[i] == '"':
				quoted = true
				i++
			case !quoted && sep != "" && strings.HasPrefix(line[i:], sep):
				fields = append(fields, field.String())
				field.Reset()
				i += len(sep)
			default:
				field.WriteByte(line[i])
				i++
			}
		}
		if quoted {
			pending = true
			continue
		}
		pending = false
		fields = append(fields, field.String())
		field.Reset()
		if !handler(record, fields) {
			return nil
		}
		fields = nil
		record++
	}
	return sc.Err()
}
