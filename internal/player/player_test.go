/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package player

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"novelplay/internal/audio"
	"novelplay/internal/container"
	"novelplay/internal/remote"
	"novelplay/internal/script"
)

// fixture describes the story container a test wants: scenes all live in
// chapter "Chapter 1" and the start scene is the first key of scenes unless
// start names another.
type fixture struct {
	start         string
	chapterScript string
	scenes        map[string]string
	reusables     map[string]string
	variables     map[string]string
	assets        []fixtureAsset
}

type fixtureAsset struct {
	section string
	name    string
	ext     string
	data    []byte
}

const testFooterSize = 50

// buildStoryFile assembles a container file from the fixture: asset bytes,
// detail JSON, general JSON, footer.
func buildStoryFile(t *testing.T, fx fixture) string {
	t.Helper()

	var buf bytes.Buffer
	detail := map[string]any{}
	for _, a := range fx.assets {
		from := buf.Len()
		buf.Write(a.data)
		section, _ := detail[a.section].(map[string][]string)
		if section == nil {
			section = map[string][]string{}
			detail[a.section] = section
		}
		section[a.name] = []string{fmt.Sprintf("%d-%d", from, buf.Len()), a.ext}
	}

	start := fx.start
	if start == "" {
		for name := range fx.scenes {
			start = name
			break
		}
	}
	detail["StoryStartScript"] = map[string]string{"Chapter 1": start}
	detail["StoryScript"] = map[string]any{
		"Chapter 1": []any{fx.chapterScript, fx.scenes},
	}
	if fx.reusables != nil {
		detail["StoryReusables"] = fx.reusables
	}
	if fx.variables != nil {
		detail["StoryVariables"] = fx.variables
	}

	detailJSON, err := json.Marshal(detail)
	if err != nil {
		t.Fatalf("marshal detail: %v", err)
	}
	generalJSON, err := json.Marshal(map[string]any{
		"StoryInfo":       map[string]string{"Title": "Player Test"},
		"StoryWindowSize": []int{640, 480},
	})
	if err != nil {
		t.Fatalf("marshal general: %v", err)
	}

	detailFrom := buf.Len()
	buf.Write(detailJSON)
	detailTo := buf.Len()
	buf.Write(generalJSON)
	generalTo := buf.Len()

	writeRange := func(from, to, width int) {
		s := fmt.Sprintf("%d-%d", from, to)
		if len(s) >= width {
			t.Fatalf("range %q too wide for footer", s)
		}
		buf.WriteString(s)
		buf.WriteString(strings.Repeat("X", width-len(s)))
	}
	writeRange(detailFrom, detailTo, testFooterSize/2)
	writeRange(detailTo, generalTo, testFooterSize/2)

	path := filepath.Join(t.TempDir(), "story.lvna")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write container: %v", err)
	}
	return path
}

func newTestStory(t *testing.T, fx fixture) *Story {
	t.Helper()
	c, err := container.Open(buildStoryFile(t, fx))
	if err != nil {
		t.Fatalf("open container: %v", err)
	}
	s := NewStory(c, audio.NewManager())
	if err := s.Start("", ""); err != nil {
		t.Fatalf("start story: %v", err)
	}
	return s
}

func pngAsset(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewNRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestDialogAndHaltAdvance(t *testing.T) {
	s := newTestStory(t, fixture{scenes: map[string]string{
		"intro": "hello\n<halt>\nworld",
	}})

	s.Update(0.016)
	if got := strings.Join(s.Dialog, "|"); got != "hello" {
		t.Fatalf("dialog = %q", got)
	}
	if !s.Paused() {
		t.Fatalf("reader should be halted")
	}

	// More frames while halted change nothing.
	s.Update(0.016)
	if len(s.Dialog) != 1 {
		t.Fatalf("halted reader consumed lines")
	}

	s.Advance()
	s.Update(0.016)
	if got := strings.Join(s.Dialog, "|"); got != "hello|world" {
		t.Fatalf("dialog = %q", got)
	}
	if !s.Finished() {
		t.Fatalf("story should have finished")
	}
}

func TestCaseElseBranch(t *testing.T) {
	s := newTestStory(t, fixture{
		variables: map[string]string{"hp": "30"},
		scenes: map[string]string{
			"intro": strings.Join([]string{
				"<case: ($hp), more than, 40>",
				"strong",
				"<case_else>",
				"weak",
				"<case_end>",
				"<halt>",
			}, "\n"),
		},
	})

	s.Update(0.016)
	if got := strings.Join(s.Dialog, "|"); got != "weak" {
		t.Fatalf("dialog = %q, want the else branch only", got)
	}
}

func TestOrCaseReevaluation(t *testing.T) {
	s := newTestStory(t, fixture{
		variables: map[string]string{"mood": "sad"},
		scenes: map[string]string{
			"intro": strings.Join([]string{
				"<case: ($mood), is, happy, mood_check>",
				"smile",
				"<or_case: ($mood), is, sad, mood_check>",
				"frown",
				"<case_else>",
				"blank stare",
				"<case_end>",
				"<halt>",
			}, "\n"),
		},
	})

	s.Update(0.016)
	if got := strings.Join(s.Dialog, "|"); got != "frown" {
		t.Fatalf("dialog = %q, want the or-case branch only", got)
	}
}

func TestExecutedBranchSkipsAlternates(t *testing.T) {
	s := newTestStory(t, fixture{
		variables: map[string]string{"mood": "happy"},
		scenes: map[string]string{
			"intro": strings.Join([]string{
				"<case: ($mood), is, happy, mood_check>",
				"smile",
				"<or_case: ($mood), is, happy, mood_check>",
				"never shown",
				"<case_else>",
				"also never shown",
				"<case_end>",
				"after",
				"<halt>",
			}, "\n"),
		},
	})

	s.Update(0.016)
	if got := strings.Join(s.Dialog, "|"); got != "smile|after" {
		t.Fatalf("dialog = %q", got)
	}
}

func TestRestPacing(t *testing.T) {
	s := newTestStory(t, fixture{scenes: map[string]string{
		"intro": "before\n<rest: 1>\nafter\n<halt>",
	}})

	s.Update(0.4)
	if got := strings.Join(s.Dialog, "|"); got != "before" {
		t.Fatalf("dialog = %q", got)
	}
	if !s.Paused() {
		t.Fatalf("rest should pause the reader")
	}

	s.Update(0.4) // 0.4 accumulated
	s.Update(0.4) // 0.8
	s.Update(0.4) // 1.2, still pausing this frame
	if len(s.Dialog) != 1 {
		t.Fatalf("rest released too early: %v", s.Dialog)
	}
	s.Update(0.4) // gate opens
	if got := strings.Join(s.Dialog, "|"); got != "before|after" {
		t.Fatalf("dialog = %q", got)
	}
}

func TestHaltAutoIgnoresAdvance(t *testing.T) {
	s := newTestStory(t, fixture{scenes: map[string]string{
		"intro": "<halt_auto: 1>\ndone\n<halt>",
	}})

	s.Update(0.016)
	if !s.Paused() {
		t.Fatalf("halt_auto should pause")
	}

	// The viewer cannot click through a timed halt.
	s.Advance()
	s.Update(0.5)
	if len(s.Dialog) != 0 {
		t.Fatalf("advance released a timed halt")
	}

	s.Update(0.6)
	if got := strings.Join(s.Dialog, "|"); got != "done" {
		t.Fatalf("dialog = %q", got)
	}
}

func TestAfterTimerRunsReusable(t *testing.T) {
	s := newTestStory(t, fixture{
		reusables: map[string]string{
			"grant_bonus": "<variable_set: bonus, yes>",
		},
		scenes: map[string]string{
			"intro": "<after: 1, grant_bonus>\n<halt>",
		},
	})

	s.Update(0.4)
	if _, ok := s.Vars.Get("bonus"); ok {
		t.Fatalf("timer fired early")
	}
	for i := 0; i < 3; i++ {
		s.Update(0.4)
	}
	if v, _ := s.Vars.Get("bonus"); v != "yes" {
		t.Fatalf("bonus = %q, timer never ran", v)
	}
	if s.afters.Pending() != 0 {
		t.Fatalf("expired timer still pending")
	}
}

func TestAfterCancel(t *testing.T) {
	s := newTestStory(t, fixture{
		reusables: map[string]string{
			"grant_bonus": "<variable_set: bonus, yes>",
		},
		scenes: map[string]string{
			"intro": "<after: 0.5, grant_bonus>\n<after_cancel: grant_bonus>\n<halt>",
		},
	})

	for i := 0; i < 5; i++ {
		s.Update(0.4)
	}
	if _, ok := s.Vars.Get("bonus"); ok {
		t.Fatalf("cancelled timer ran")
	}
	if s.afters.Pending() != 0 {
		t.Fatalf("cancelled timer still pending")
	}
}

func TestCallPassesArguments(t *testing.T) {
	s := newTestStory(t, fixture{
		reusables: map[string]string{
			"greet": "<variable_set: greeting, hi ($who)>",
		},
		scenes: map[string]string{
			"intro": "<call: greet, who=Rave>\n<halt>",
		},
	})

	s.Update(0.016)
	if v, _ := s.Vars.Get("greeting"); v != "hi Rave" {
		t.Fatalf("greeting = %q", v)
	}
}

func TestSceneChange(t *testing.T) {
	s := newTestStory(t, fixture{
		start: "intro",
		scenes: map[string]string{
			"intro":  "first\n<scene: Chapter 1, ending>",
			"ending": "last\n<halt>",
		},
	})

	s.Update(0.016)
	if _, scene := s.Position(); scene != "ending" {
		t.Fatalf("scene = %q", scene)
	}
	s.Update(0.016)
	if got := strings.Join(s.Dialog, "|"); got != "first|last" {
		t.Fatalf("dialog = %q", got)
	}
}

func TestSceneWithFadeSwitchesBehindCover(t *testing.T) {
	s := newTestStory(t, fixture{
		start: "intro",
		scenes: map[string]string{
			"intro":  "<scene_with_fade: 000000, 100, 100, 0.5, Chapter 1, ending>",
			"ending": "arrived\n<halt>",
		},
	})

	s.Update(0.016)
	if _, scene := s.Position(); scene != "intro" {
		t.Fatalf("scene switched before the cover was opaque")
	}
	if !s.Fade.Busy() {
		t.Fatalf("screen fade not started")
	}
	if s.Finished() {
		t.Fatalf("story finished mid-transition")
	}

	// Row 100 fades at full speed; a handful of frames covers fade-in plus
	// the 0.5s hold.
	for i := 0; i < 20 && !s.Paused(); i++ {
		s.Update(0.25)
	}
	if _, scene := s.Position(); scene != "ending" {
		t.Fatalf("scene = %q after the hold expired", scene)
	}
	if got := strings.Join(s.Dialog, "|"); got != "arrived" {
		t.Fatalf("dialog = %q", got)
	}
}

func TestVolumeCommandMapsToUnitRange(t *testing.T) {
	s := newTestStory(t, fixture{scenes: map[string]string{
		"intro": "<volume_music: 50>\n<volume_fx: 300>\n<volume_voice: -10>\n<halt>",
	}})

	s.Update(0.016)
	if v := s.Audio.Volume(audio.Music); v != 0.5 {
		t.Fatalf("music volume = %v", v)
	}
	if v := s.Audio.Volume(audio.FX); v != 1.0 {
		t.Fatalf("fx volume = %v, want clamp to full", v)
	}
	if v := s.Audio.Volume(audio.Voice); v != 0 {
		t.Fatalf("voice volume = %v, want clamp to silent", v)
	}
}

func TestRemoteGetStoresValue(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(remote.Response{Code: remote.CodeSuccess, Value: "42"})
	}))
	t.Cleanup(srv.Close)

	s := newTestStory(t, fixture{scenes: map[string]string{
		"intro": "<remote_get: answer_slot, answer>\nafter remote\n<halt>",
	}})
	s.Remote = remote.NewWorker(
		remote.NewClient(srv.URL, "key", "Player Test", time.Second, false),
		s.Queue,
	)

	s.Update(0.016)
	if len(s.Dialog) != 0 {
		t.Fatalf("reader did not pause on the remote round-trip")
	}

	deadline := time.Now().Add(5 * time.Second)
	for s.Remote.InFlight() > 0 {
		if time.Now().After(deadline) {
			t.Fatalf("remote request never completed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	s.Update(0.016)
	if v, _ := s.Vars.Get("answer"); v != "42" {
		t.Fatalf("answer = %q", v)
	}
	if got := strings.Join(s.Dialog, "|"); got != "after remote" {
		t.Fatalf("dialog = %q", got)
	}
}

func TestSpriteMovementStops(t *testing.T) {
	s := newTestStory(t, fixture{
		assets: []fixtureAsset{{
			section: "StoryCharacter_ImageLocations",
			name:    "hero_idle", ext: ".png", data: pngAsset(t, 4, 4),
		}},
		scenes: map[string]string{
			"intro": strings.Join([]string{
				"<load_character: hero_idle, hero>",
				"<character_show: hero>",
				"<character_move: hero, 2, right, 0, top>",
				"<character_stop_movement_condition: hero, right, 100>",
				"<character_start_moving: hero>",
				"<halt>",
			}, "\n"),
		},
	})

	s.Update(0.016)
	st := s.sprites[script.SpriteCharacter]["hero"]
	if st == nil || !st.Visible {
		t.Fatalf("hero not loaded and shown")
	}
	if !st.Moving {
		t.Fatalf("hero not moving")
	}

	// 2 px/frame at the 60 fps reference is 120 px/s; the right edge starts
	// at 4 and must stop at 100.
	for i := 0; i < 100 && st.Moving; i++ {
		s.Update(0.1)
	}
	if st.Moving {
		t.Fatalf("stop condition never triggered, x = %v", st.X)
	}
	if right := st.X + st.width(); right < 100 {
		t.Fatalf("stopped short: right edge = %v", right)
	}
}

func TestSpriteFadeUntil(t *testing.T) {
	s := newTestStory(t, fixture{
		assets: []fixtureAsset{{
			section: "StoryCharacter_ImageLocations",
			name:    "hero_idle", ext: ".png", data: pngAsset(t, 4, 4),
		}},
		scenes: map[string]string{
			"intro": strings.Join([]string{
				"<load_character: hero_idle, hero>",
				"<character_fade_current_value: hero, 200>",
				"<character_fade_until: hero, 100>",
				"<character_fade_speed: hero, 100, fade out>",
				"<halt>",
			}, "\n"),
		},
	})

	s.Update(0.016)
	st := s.sprites[script.SpriteCharacter]["hero"]
	if st == nil {
		t.Fatalf("hero not loaded")
	}
	if st.Opacity != 200 {
		t.Fatalf("opacity = %v after fade_current_value", st.Opacity)
	}
	if !st.Fading {
		t.Fatalf("fade not running")
	}

	for i := 0; i < 100 && st.Fading; i++ {
		s.Update(0.1)
	}
	if st.Fading {
		t.Fatalf("fade never reached its target")
	}
	if st.Opacity != 100 {
		t.Fatalf("opacity = %v, want snap to the fade_until value", st.Opacity)
	}
}

func TestSpriteFlipAndHideAll(t *testing.T) {
	s := newTestStory(t, fixture{
		assets: []fixtureAsset{{
			section: "StoryCharacter_ImageLocations",
			name:    "hero_idle", ext: ".png", data: pngAsset(t, 4, 4),
		}},
		scenes: map[string]string{
			"intro": strings.Join([]string{
				"<load_character: hero_idle, hero>",
				"<character_show: hero>",
				"<character_flip_horizontal: hero>",
				"<character_flip_both: hero>",
				"<character_hide_all>",
				"<halt>",
			}, "\n"),
		},
	})

	s.Update(0.016)
	st := s.sprites[script.SpriteCharacter]["hero"]
	if st == nil {
		t.Fatalf("hero not loaded")
	}
	// horizontal, then both: horizontal toggles back, vertical stays.
	if st.FlippedH || !st.FlippedV {
		t.Fatalf("flips = h:%v v:%v", st.FlippedH, st.FlippedV)
	}
	if st.Visible {
		t.Fatalf("hide_all left the sprite visible")
	}
}

func TestChapterScriptRunsOnChapterEntry(t *testing.T) {
	s := newTestStory(t, fixture{
		start:         "intro",
		chapterScript: "<variable_set: chapter_seen, yes>",
		scenes: map[string]string{
			"intro": "<halt>",
		},
	})

	s.Update(0.016)
	if v, _ := s.Vars.Get("chapter_seen"); v != "yes" {
		t.Fatalf("chapter script did not run before the scene")
	}
}
