/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"fmt"
	"strings"
)

// maxResolvePasses caps nested variable resolution so a self-referential
// value cannot loop forever.
const maxResolvePasses = 4

// invalidNameLetters are the characters a variable name may not contain.
// The trailing space is intentional.
const invalidNameLetters = `\/,()$:<> `

// Table holds the story's variables. Lookup is exact-match case-sensitive.
// One table lives for the duration of a running story and is mutated only by
// the set-variable instruction.
type Table struct {
	vars map[string]string
}

// NewTable builds a table preloaded with the story's initial variables.
func NewTable(initial map[string]string) *Table {
	t := &Table{vars: make(map[string]string, len(initial))}
	for k, v := range initial {
		t.vars[k] = v
	}
	return t
}

// Set stores a variable after validating its name.
func (t *Table) Set(name, value string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	t.vars[name] = value
	return nil
}

// Get looks up a variable value.
func (t *Table) Get(name string) (string, bool) {
	v, ok := t.vars[name]
	return v, ok
}

// Len returns the number of stored variables.
func (t *Table) Len() int { return len(t.vars) }

// Snapshot copies the table contents, for saving play progress.
func (t *Table) Snapshot() map[string]string {
	out := make(map[string]string, len(t.vars))
	for k, v := range t.vars {
		out[k] = v
	}
	return out
}

// ValidateName rejects blank variable names and names containing any
// character that would break the token syntax.
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("variable name cannot be blank")
	}
	if i := strings.IndexAny(name, invalidNameLetters); i >= 0 {
		return fmt.Errorf("variable name %q contains invalid letter %q", name, name[i])
	}
	return nil
}

// span is one matched variable token: the byte range it occupies in the line
// and the value to put there.
type span struct {
	from, to int
	value    string
}

// Resolve replaces every known "( $name )" token in the line with the
// variable's value. Unknown names stay in the line untouched. The scan
// repeats on its own output so a value that is itself a token resolves too,
// up to maxResolvePasses total passes.
func (t *Table) Resolve(line string) string {
	for pass := 0; pass < maxResolvePasses; pass++ {
		spans := t.scan(line)
		if len(spans) == 0 {
			return line
		}
		line = rewrite(line, spans)
	}
	return line
}

// scan finds all variable tokens with known names, left to right. A token is
// "(", optional spaces, "$", a run of word characters and spaces, ")". The
// name is the run with all spaces removed.
func (t *Table) scan(line string) []span {
	var spans []span
	for i := 0; i < len(line); {
		if line[i] != '(' {
			i++
			continue
		}
		from := i
		j := i + 1
		for j < len(line) && line[j] == ' ' {
			j++
		}
		if j >= len(line) || line[j] != '$' {
			i++
			continue
		}
		j++
		nameStart := j
		for j < len(line) && isNameOrSpace(line[j]) {
			j++
		}
		if j == nameStart || j >= len(line) || line[j] != ')' {
			i++
			continue
		}
		name := strings.ReplaceAll(line[nameStart:j], " ", "")
		i = j + 1

		value, ok := t.vars[name]
		if !ok {
			continue
		}
		spans = append(spans, span{from: from, to: i, value: value})
	}
	return spans
}

func isNameOrSpace(b byte) bool {
	return b == ' ' || isNameByte(b)
}

// rewrite applies the spans left to right. Replacing a span changes the
// positions of everything after it, so a running delta shifts each later
// span before it is applied.
func rewrite(line string, spans []span) string {
	delta := 0
	for _, s := range spans {
		from := s.from + delta
		to := s.to + delta
		delta += len(s.value) - (to - from)
		line = line[:from] + s.value + line[to:]
	}
	return line
}
