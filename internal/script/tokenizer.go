/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package script implements the story scripting line model: the tokenizer,
// the typed command catalogue, the condition engine, and variable
// substitution. Lines arrive as raw text, one at a time, from the reader.
package script

import "strings"

// ParseCommand splits a script line of the form "<name: arguments>" or
// "<name>" into its command name and raw argument text. A line that is not a
// command (dialog text, usually) reports ok=false.
//
// The command name must start with a lowercase letter and may contain
// letters, digits and underscores. Argument text is returned trimmed.
func ParseCommand(line string) (name, args string, ok bool) {
	line = strings.TrimSpace(line)
	if len(line) < 3 || line[0] != '<' || line[len(line)-1] != '>' {
		return "", "", false
	}
	inner := line[1 : len(line)-1]

	pos := 0
	if !(inner[pos] >= 'a' && inner[pos] <= 'z') {
		return "", "", false
	}
	for pos < len(inner) && isNameByte(inner[pos]) {
		pos++
	}
	name = inner[:pos]

	if pos == len(inner) {
		return name, "", true
	}
	if inner[pos] != ':' {
		return "", "", false
	}
	args = strings.TrimSpace(inner[pos+1:])
	return name, args, true
}

func isNameByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}

// SplitArgs splits raw argument text on commas, trimming each piece.
// Empty argument text yields no arguments.
func SplitArgs(args string) []string {
	if strings.TrimSpace(args) == "" {
		return nil
	}
	parts := strings.Split(args, ",")
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.TrimSpace(p)
	}
	return out
}

// IsComment reports whether the line is blank or an author comment. The
// reader ignores these completely.
func IsComment(line string) bool {
	trimmed := strings.TrimSpace(line)
	return trimmed == "" || strings.HasPrefix(trimmed, "#")
}
