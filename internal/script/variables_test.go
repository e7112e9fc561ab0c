/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import "testing"

func TestResolveBasic(t *testing.T) {
	tbl := NewTable(map[string]string{"x": "A", "y": "BB"})

	got := tbl.Resolve("(  $x ) and ($y)")
	if got != "A and BB" {
		t.Fatalf("Resolve = %q, want %q", got, "A and BB")
	}
}

func TestResolveUnknownNameUntouched(t *testing.T) {
	tbl := NewTable(nil)
	if got := tbl.Resolve("($z)"); got != "($z)" {
		t.Fatalf("unknown variable rewritten: %q", got)
	}

	// Mixed known and unknown in one line.
	tbl = NewTable(map[string]string{"known": "V"})
	got := tbl.Resolve("<show: ($known), ($unknown)>")
	if got != "<show: V, ($unknown)>" {
		t.Fatalf("Resolve = %q", got)
	}
}

func TestResolveSpanShift(t *testing.T) {
	// The first replacement is shorter than its token and the second is
	// longer, so both spans only line up if the running delta is applied.
	tbl := NewTable(map[string]string{"a": "1", "b": "longer value"})
	got := tbl.Resolve("start ($a) middle ($b) end")
	if got != "start 1 middle longer value end" {
		t.Fatalf("Resolve = %q", got)
	}
}

func TestResolveNested(t *testing.T) {
	tbl := NewTable(map[string]string{
		"outer": "($inner)",
		"inner": "deep",
	})
	if got := tbl.Resolve("($outer)"); got != "deep" {
		t.Fatalf("nested Resolve = %q", got)
	}
}

func TestResolveSelfReferenceTerminates(t *testing.T) {
	tbl := NewTable(map[string]string{"x": "($x)"})
	// Must not hang; after the pass cap the token is still there.
	if got := tbl.Resolve("($x)"); got != "($x)" {
		t.Fatalf("self reference = %q", got)
	}
}

func TestResolveCaseSensitive(t *testing.T) {
	tbl := NewTable(map[string]string{"Name": "A"})
	if got := tbl.Resolve("($name)"); got != "($name)" {
		t.Fatalf("lookup should be case-sensitive, got %q", got)
	}
}

func TestResolveInternalSpaces(t *testing.T) {
	tbl := NewTable(map[string]string{"myvar": "ok"})
	if got := tbl.Resolve("(   $my var   )"); got != "ok" {
		t.Fatalf("spaced token = %q", got)
	}
}

func TestValidateName(t *testing.T) {
	if err := ValidateName("player_score2"); err != nil {
		t.Fatalf("valid name rejected: %v", err)
	}
	bad := []string{"", "has space", "a/b", `a\b`, "a,b", "a(b", "a)b", "a$b", "a:b", "a<b", "a>b"}
	for _, name := range bad {
		if err := ValidateName(name); err == nil {
			t.Fatalf("ValidateName(%q) should fail", name)
		}
	}
}

func TestTableSetAndSnapshot(t *testing.T) {
	tbl := NewTable(nil)
	if err := tbl.Set("hp", "100"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := tbl.Set("bad name", "x"); err == nil {
		t.Fatalf("invalid name should not be stored")
	}
	if v, ok := tbl.Get("hp"); !ok || v != "100" {
		t.Fatalf("Get = %q, %v", v, ok)
	}

	snap := tbl.Snapshot()
	snap["hp"] = "0"
	if v, _ := tbl.Get("hp"); v != "100" {
		t.Fatalf("snapshot must be a copy")
	}
}
