/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package player interprets story scripts: it owns the running story's
// state (variables, sprites, timing, audio) and executes one typed command
// at a time on a fixed per-frame cadence supplied by the host loop.
package player

import (
	"fmt"
	"image/color"
	"log/slog"
	"strings"

	"novelplay/internal/audio"
	"novelplay/internal/container"
	applog "novelplay/internal/log"
	"novelplay/internal/remote"
	"novelplay/internal/script"
	"novelplay/internal/timing"
)

// Story is one running story: the container, the variable table, the timing
// components and the audio channels, all with a lifetime of exactly one
// playthrough. Everything here is owned by the main thread; the only
// cross-thread traffic is the remote receipt queue, drained once per frame.
type Story struct {
	Container *container.Container
	Vars      *script.Table
	Clock     *timing.Clock
	Rest      *timing.RestGate
	Fade      *timing.ScreenFade
	Audio     *audio.Manager

	Queue  *remote.Queue
	Remote *remote.Worker // nil when the story has no remote endpoint

	main   *Reader
	afters *AfterManager

	// Dialog holds the text lines shown since the last halt; the renderer
	// reads it, the reader appends to it.
	Dialog []string

	sprites map[script.SpriteType]map[string]*SpriteState
	fonts   map[string]*container.FontSprite

	currentChapter string
	currentScene   string
	finished       bool

	log *slog.Logger
}

// NewStory builds the running-story context around an opened container.
func NewStory(c *container.Container, am *audio.Manager) *Story {
	s := &Story{
		Container: c,
		Vars:      script.NewTable(c.Detail().Variables),
		Clock:     &timing.Clock{},
		Rest:      &timing.RestGate{},
		Fade:      &timing.ScreenFade{},
		Audio:     am,
		Queue:     &remote.Queue{},
		sprites:   map[script.SpriteType]map[string]*SpriteState{},
		fonts:     map[string]*container.FontSprite{},
		log:       applog.WithComponent("player"),
	}
	s.afters = &AfterManager{story: s}
	return s
}

// Start positions the main reader at the story's start script, or at the
// given chapter and scene when both are non-empty.
func (s *Story) Start(chapter, scene string) error {
	if chapter == "" || scene == "" {
		start := s.Container.Detail().StartScript
		if len(start) == 0 {
			return fmt.Errorf("story has no start script")
		}
		for ch, sc := range start {
			chapter, scene = ch, sc
		}
	}
	return s.GoToScene(chapter, scene)
}

// GoToScene replaces the main reader with the named scene's script.
// Entering a new chapter plays the chapter script before the scene script.
func (s *Story) GoToScene(chapter, scene string) error {
	chapters := s.Container.Detail().Scripts
	ch, ok := chapters[chapter]
	if !ok {
		return fmt.Errorf("chapter %q not found", chapter)
	}
	sceneScript, ok := ch.Scenes[scene]
	if !ok {
		return fmt.Errorf("scene %q not found in chapter %q", scene, chapter)
	}

	var text string
	if chapter != s.currentChapter {
		text = ch.Script + "\n" + sceneScript
	} else {
		text = sceneScript
	}
	s.currentChapter = chapter
	s.currentScene = scene
	s.main = newReader(s, splitLines(text), false)

	s.log.Info("scene started",
		slog.String("chapter", chapter),
		slog.String("scene", scene),
	)
	return nil
}

// Position returns the current chapter and scene names.
func (s *Story) Position() (chapter, scene string) {
	return s.currentChapter, s.currentScene
}

// Finished reports whether the story has ended, either by running out of
// script or by an explicit exit command.
func (s *Story) Finished() bool { return s.finished }

// Advance is the viewer's "continue" input: it releases an interactive
// halt. Timed pauses (halt-auto, rest) ignore it.
func (s *Story) Advance() {
	if s.main != nil {
		s.main.releaseHalt()
	}
}

// Update runs one frame. Order matters: clock first, then cross-thread
// receipts, then timers, then script execution.
func (s *Story) Update(dt float64) {
	if s.finished {
		return
	}
	s.Clock.Advance(dt)
	delta := s.Clock.Delta()

	s.Queue.Drain()
	s.Fade.Update(delta)
	s.afters.Tick(delta)
	s.updateSprites(delta)

	if s.main == nil {
		return
	}
	s.main.run(delta)
	if s.main.finished && !s.Fade.Busy() {
		s.finished = true
		s.log.Info("story finished")
	}
}

// Paused reports whether the main reader is currently held: an interactive
// halt, a timed halt, a rest, or an outstanding remote request.
func (s *Story) Paused() bool {
	return s.main != nil && s.main.paused()
}

// CallReusable runs a reusable script by name. Background scripts never
// pause, so the whole script executes within the current frame.
func (s *Story) CallReusable(name, arguments string) {
	body, ok := s.Container.Detail().Reusables[name]
	if !ok {
		s.log.Warn("reusable script not found", slog.String("script", name))
		return
	}
	s.applyScriptArguments(arguments)
	r := newReader(s, splitLines(body), true)
	r.run(s.Clock.Delta())
}

// applyScriptArguments sets "name=value" argument pairs as variables before
// a reusable script runs, so the script body can reference them.
func (s *Story) applyScriptArguments(arguments string) {
	if strings.TrimSpace(arguments) == "" {
		return
	}
	for _, pair := range strings.Split(arguments, ";") {
		name, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		if err := s.Vars.Set(strings.TrimSpace(name), strings.TrimSpace(value)); err != nil {
			s.log.Warn("bad script argument", slog.String("arg", pair), slog.Any("err", err))
		}
	}
}

// beginSceneFade starts the fade cycle that swaps scenes behind a full
// cover. The scene switch happens in the hold callback, invisible to the
// viewer.
func (s *Story) beginSceneFade(cmd script.SceneWithFade) {
	c, err := parseHexColor(cmd.HexColor)
	if err != nil {
		s.log.Warn("bad fade color", slog.String("color", cmd.HexColor), slog.Any("err", err))
		c = color.NRGBA{}
	}
	inRate := timing.FadeScale.Value(cmd.FadeInRow) * fadeRateUnits
	outRate := timing.FadeScale.Value(cmd.FadeOutRow) * fadeRateUnits

	started := s.Fade.Start(c, 0, inRate, outRate, cmd.HoldSeconds, func() {
		if err := s.GoToScene(cmd.Chapter, cmd.Scene); err != nil {
			s.log.Error("scene transition failed", slog.Any("err", err))
		}
	})
	if !started {
		s.log.Debug("scene fade dropped, another fade is active")
	}
}

// fadeRateUnits converts the fade scale's per-second rate into opacity
// units per second across the full 0-255 range.
const fadeRateUnits = 255.0

// parseHexColor reads "#rrggbb" or "rrggbb".
func parseHexColor(s string) (color.NRGBA, error) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return color.NRGBA{}, fmt.Errorf("hex color %q: want 6 digits", s)
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
		return color.NRGBA{}, fmt.Errorf("hex color %q: %v", s, err)
	}
	return color.NRGBA{R: r, G: g, B: b, A: 255}, nil
}

// splitLines breaks script text into lines, tolerating either line ending.
func splitLines(text string) []string {
	return strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
}
