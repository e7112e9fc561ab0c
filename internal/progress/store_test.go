/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package progress

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "progress.sqlite"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSaveAndLoad(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	snap := Snapshot{
		StoryTitle: "Test Story",
		Chapter:    "Chapter 2",
		Scene:      "The Garden",
		Variables:  map[string]string{"hp": "90", "met_rave": "true"},
	}
	if err := s.Save(ctx, snap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load(ctx, "Test Story")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Chapter != "Chapter 2" || got.Scene != "The Garden" {
		t.Fatalf("position = %q / %q", got.Chapter, got.Scene)
	}
	if got.Variables["hp"] != "90" || got.Variables["met_rave"] != "true" {
		t.Fatalf("variables = %v", got.Variables)
	}
	if got.SavedAt.IsZero() {
		t.Fatalf("saved_at not recorded")
	}
}

func TestSaveOverwrites(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, ch := range []string{"Chapter 1", "Chapter 2"} {
		if err := s.Save(ctx, Snapshot{StoryTitle: "Story", Chapter: ch, Scene: "s"}); err != nil {
			t.Fatalf("Save %s: %v", ch, err)
		}
	}
	got, err := s.Load(ctx, "Story")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Chapter != "Chapter 2" {
		t.Fatalf("chapter = %q, want the later save", got.Chapter)
	}

	titles, err := s.Titles(ctx)
	if err != nil {
		t.Fatalf("Titles: %v", err)
	}
	if len(titles) != 1 {
		t.Fatalf("titles = %v, want one row per story", titles)
	}
}

func TestLoadMissing(t *testing.T) {
	s := openTestStore(t)
	_, err := s.Load(context.Background(), "Never Played")
	if !errors.Is(err, ErrNoProgress) {
		t.Fatalf("got %v, want ErrNoProgress", err)
	}
}

func TestDelete(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if err := s.Save(ctx, Snapshot{StoryTitle: "Story", Chapter: "c", Scene: "s"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s.Delete(ctx, "Story"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Load(ctx, "Story"); !errors.Is(err, ErrNoProgress) {
		t.Fatalf("progress not deleted: %v", err)
	}

	// Deleting again is not an error.
	if err := s.Delete(ctx, "Story"); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
}

func TestSaveRequiresTitle(t *testing.T) {
	s := openTestStore(t)
	if err := s.Save(context.Background(), Snapshot{Chapter: "c"}); err == nil {
		t.Fatalf("empty title should be rejected")
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.sqlite")
	ctx := context.Background()

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s1.Save(ctx, Snapshot{StoryTitle: "Story", Chapter: "c", Scene: "s"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	if _, err := s2.Load(ctx, "Story"); err != nil {
		t.Fatalf("Load after reopen: %v", err)
	}
}
