/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package progress persists local play progress: the variable table and the
// last chapter/scene, keyed by story title. One row per story; saving
// overwrites the previous snapshot.
package progress

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	applog "novelplay/internal/log"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	dbFileName = "progress.sqlite"

	// schemaVersion tracks the local SQLite schema. Bump on breaking
	// changes and add a migration.
	schemaVersion = 1
)

// ErrNoProgress is returned when a story has no saved progress.
var ErrNoProgress = errors.New("no saved progress for story")

// Snapshot is one story's saved position.
type Snapshot struct {
	StoryTitle string
	Chapter    string
	Scene      string
	Variables  map[string]string
	SavedAt    time.Time
}

// Store wraps the progress database.
type Store struct {
	db  *sql.DB
	log *slog.Logger
}

// DefaultPath returns the per-user progress database location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "NovelPlay", dbFileName), nil
}

// Open opens (creating if needed) the progress database at path and brings
// the schema up to date.
func Open(path string) (*Store, error) {
	l := applog.WithComponent("progress")

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create progress dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := ensureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	l.Debug("progress store opened", slog.String("path", path))
	return &Store{db: db, log: l}, nil
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

func ensureSchema(ctx context.Context, db *sql.DB) error {
	const create = `
CREATE TABLE IF NOT EXISTS meta (
  key   TEXT PRIMARY KEY,
  value TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS progress (
  story_title TEXT PRIMARY KEY,
  chapter     TEXT NOT NULL,
  scene       TEXT NOT NULL,
  variables   TEXT NOT NULL,
  saved_at    TIMESTAMP NOT NULL
);`
	if _, err := db.ExecContext(ctx, create); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	_, err := db.ExecContext(ctx,
		"INSERT INTO meta(key, value) VALUES('schema_version', ?) ON CONFLICT(key) DO NOTHING;",
		fmt.Sprint(schemaVersion))
	if err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	return nil
}

// Save writes a story's progress, replacing any previous snapshot.
func (s *Store) Save(ctx context.Context, snap Snapshot) error {
	if snap.StoryTitle == "" {
		return errors.New("story title is required")
	}
	vars, err := json.Marshal(snap.Variables)
	if err != nil {
		return fmt.Errorf("marshal variables: %w", err)
	}
	savedAt := snap.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
INSERT INTO progress(story_title, chapter, scene, variables, saved_at)
VALUES(?, ?, ?, ?, ?)
ON CONFLICT(story_title) DO UPDATE SET
  chapter   = excluded.chapter,
  scene     = excluded.scene,
  variables = excluded.variables,
  saved_at  = excluded.saved_at;`,
		snap.StoryTitle, snap.Chapter, snap.Scene, string(vars), savedAt)
	if err != nil {
		return fmt.Errorf("save progress: %w", err)
	}

	s.log.Debug("progress saved",
		slog.String("story", snap.StoryTitle),
		slog.String("chapter", snap.Chapter),
		slog.String("scene", snap.Scene),
	)
	return nil
}

// Load returns a story's saved progress, or ErrNoProgress when none exists.
func (s *Store) Load(ctx context.Context, storyTitle string) (Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT chapter, scene, variables, saved_at
FROM progress WHERE story_title = ?;`, storyTitle)

	snap := Snapshot{StoryTitle: storyTitle}
	var vars string
	err := row.Scan(&snap.Chapter, &snap.Scene, &vars, &snap.SavedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, fmt.Errorf("%w: %s", ErrNoProgress, storyTitle)
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("load progress: %w", err)
	}
	if err := json.Unmarshal([]byte(vars), &snap.Variables); err != nil {
		return Snapshot{}, fmt.Errorf("decode variables: %w", err)
	}
	return snap, nil
}

// Delete removes a story's saved progress. Deleting a story with no
// progress is not an error.
func (s *Store) Delete(ctx context.Context, storyTitle string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM progress WHERE story_title = ?;", storyTitle)
	if err != nil {
		return fmt.Errorf("delete progress: %w", err)
	}
	return nil
}

// Titles lists the stories that have saved progress, most recent first.
func (s *Store) Titles(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT story_title FROM progress ORDER BY saved_at DESC;")
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		titles = append(titles, t)
	}
	return titles, rows.Err()
}
