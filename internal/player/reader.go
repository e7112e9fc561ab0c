/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package player

import (
	"context"
	"log/slog"

	"novelplay/internal/audio"
	"novelplay/internal/container"
	"novelplay/internal/remote"
	"novelplay/internal/script"
)

// flow tells the reader loop whether to keep executing lines this frame.
type flow int

const (
	flowNext flow = iota
	flowStop
)

// unnamedCondition is the skip marker for a false case that carries no
// condition name.
const unnamedCondition = "(case)"

// Reader executes script lines one at a time. The main reader honors every
// pause source; background readers (reusable scripts, after timers) never
// pause and never consume dialog text, so they always finish within the
// frame that starts them.
type Reader struct {
	story      *Story
	lines      []string
	pos        int
	background bool

	// skipName is set while lines are skipped because a condition with
	// this name evaluated false. seekCaseEnd is set after a branch has
	// executed and the remaining alternates must be skipped.
	skipName    string
	seekCaseEnd bool

	halted            bool
	haltAutoRemaining float64
	waitRemote        bool
	finished          bool
}

func newReader(s *Story, lines []string, background bool) *Reader {
	return &Reader{story: s, lines: lines, background: background}
}

// paused reports whether any pause source is holding the reader.
func (r *Reader) paused() bool {
	if r.background {
		return false
	}
	if r.halted || r.haltAutoRemaining > 0 || r.story.Rest.PauseRequired() {
		return true
	}
	return r.waitRemote && r.story.Remote != nil && r.story.Remote.InFlight() > 0
}

// releaseHalt ends an interactive halt. Timed pauses are unaffected.
func (r *Reader) releaseHalt() { r.halted = false }

// run executes lines until a pause begins, the script ends, or the reader
// is replaced by a scene change.
func (r *Reader) run(delta float64) {
	if r.finished {
		return
	}
	if r.background {
		for !r.finished && r.step() == flowNext {
		}
		return
	}

	if r.haltAutoRemaining > 0 {
		r.haltAutoRemaining -= delta
		if r.haltAutoRemaining > 0 {
			return
		}
		r.haltAutoRemaining = 0
	}
	if r.story.Rest.Tick(delta) {
		return
	}
	if r.halted {
		return
	}
	if r.waitRemote {
		if r.story.Remote != nil && r.story.Remote.InFlight() > 0 {
			return
		}
		r.waitRemote = false
	}

	for !r.finished && r.step() == flowNext {
	}
}

// step reads and executes one line: resolve variables, apply the skip
// gates, tokenize, bind, dispatch.
func (r *Reader) step() flow {
	if r.pos >= len(r.lines) {
		r.finished = true
		return flowStop
	}
	line := r.lines[r.pos]
	r.pos++

	if script.IsComment(line) {
		return flowNext
	}
	resolved := r.story.Vars.Resolve(line)

	if !script.ShouldEvaluateLine(resolved, r.skipName) {
		return flowNext
	}

	name, args, isCommand := script.ParseCommand(resolved)

	// A finished branch skips everything up to its structural markers.
	if r.seekCaseEnd && !isStructuralMarker(name, isCommand) {
		return flowNext
	}

	if !isCommand {
		if !r.background {
			r.story.Dialog = append(r.story.Dialog, resolved)
		}
		return flowNext
	}

	cmd, err := script.Bind(name, args)
	if err != nil {
		r.story.log.Warn("bad command arguments", slog.String("line", resolved), slog.Any("err", err))
		return flowNext
	}
	return r.exec(cmd)
}

func isStructuralMarker(name string, isCommand bool) bool {
	if !isCommand {
		return false
	}
	switch name {
	case "case_end", "or_case", "case_else":
		return true
	}
	return false
}

// exec dispatches one bound command. This is the single tag switch over the
// command union; no variant reaches into another's representation.
func (r *Reader) exec(cmd script.Command) flow {
	s := r.story

	switch c := cmd.(type) {

	// Flow and variables.
	case script.VariableSet:
		if err := s.Vars.Set(c.Name, c.Value); err != nil {
			s.log.Warn("variable not set", slog.String("name", c.Name), slog.Any("err", err))
		}

	case script.Case:
		if !r.evalCondition(c.Value1, c.Operator, c.Value2) {
			r.skipName = conditionName(c.ConditionName)
		}

	case script.OrCase:
		switch {
		case r.seekCaseEnd:
			// A branch already ran; stay skipping.
		case r.skipName != "":
			if r.skipName != conditionName(c.ConditionName) {
				break
			}
			if r.evalCondition(c.Value1, c.Operator, c.Value2) {
				r.skipName = ""
			}
		default:
			// The previous branch executed, skip the alternates.
			r.seekCaseEnd = true
		}

	case script.CaseElse:
		if r.skipName != "" {
			r.skipName = ""
		} else {
			r.seekCaseEnd = true
		}

	case script.CaseEnd:
		r.skipName = ""
		r.seekCaseEnd = false

	case script.Halt:
		if r.background {
			break
		}
		r.halted = true
		return flowStop

	case script.HaltAuto:
		if r.background {
			break
		}
		r.halted = false
		r.haltAutoRemaining = c.Seconds
		return flowStop

	case script.Unhalt:
		r.halted = false

	case script.Rest:
		if r.background {
			break
		}
		s.Rest.Setup(c.Seconds)
		return flowStop

	case script.BlankLine:
		if !r.background {
			s.Dialog = append(s.Dialog, "")
		}

	// Audio.
	case script.PlayMusic:
		r.playAsset(container.Music, audio.Music, c.Name, c.Loop)

	case script.PlayAudio:
		r.playAsset(container.Audio, audioChannel(c.Channel), c.Name, false)

	case script.StopAudio:
		s.Audio.Stop(audioChannel(c.Channel))

	case script.Volume:
		level := c.Level
		if level < 0 {
			level = 0
		} else if level > 100 {
			level = 100
		}
		s.Audio.SetVolume(audioChannel(c.Channel), float64(level)/100)

	// Sprites.
	case script.SpriteLoad:
		s.loadSprite(c)
	case script.SpriteShow:
		s.showSprite(c.Type, c.Name, true)
	case script.SpriteHide:
		if c.All {
			s.hideAllSprites(c.Type)
		} else {
			s.showSprite(c.Type, c.Name, false)
		}
	case script.SpriteFlip:
		s.flipSprite(c)

	case script.MovementSpeed:
		s.setMovementSpeed(c)
	case script.MovementDelay:
		s.setMovementDelay(c)
	case script.StartMoving:
		s.setMoving(c.Type, c.Alias, true)
	case script.StopMoving:
		s.setMoving(c.Type, c.Alias, false)
	case script.MovementStopCondition:
		s.setMovementStop(c)

	case script.FadeSpeed:
		s.setFadeSpeed(c)
	case script.FadeUntil:
		s.setFadeUntil(c)
	case script.FadeCurrentValue:
		s.setFadeValue(c)
	case script.FadeDelay:
		s.setAnimDelay(c.Type, c.Alias, animFade, c.Frames)

	case script.ScaleBy:
		s.setScaleBy(c)
	case script.ScaleUntil:
		s.setScaleUntil(c)
	case script.ScaleCurrentValue:
		s.setScaleValue(c)
	case script.ScaleDelay:
		s.setAnimDelay(c.Type, c.Alias, animScale, c.Frames)

	case script.RotateSpeed:
		s.setRotateSpeed(c)
	case script.RotateUntil:
		s.setRotateUntil(c)
	case script.RotateCurrentValue:
		s.setRotateValue(c)
	case script.RotateDelay:
		s.setAnimDelay(c.Type, c.Alias, animRotate, c.Frames)

	// Scenes and reusable scripts.
	case script.SceneLoad:
		if err := s.GoToScene(c.Chapter, c.Scene); err != nil {
			s.log.Error("scene load failed", slog.Any("err", err))
			return flowNext
		}
		r.finished = true
		return flowStop

	case script.SceneWithFade:
		s.beginSceneFade(c)
		r.finished = true
		return flowStop

	case script.Call:
		s.CallReusable(c.Script, c.Arguments)

	case script.After:
		s.afters.Schedule(c.Seconds, c.Script, c.Arguments)
	case script.AfterCancel:
		s.afters.Cancel(c.Script)
	case script.AfterCancelAll:
		s.afters.CancelAll()

	// Remote.
	case script.RemoteSave:
		return r.submitRemote(func(w *remote.Worker) {
			key, value, _ := splitKeyValue(c.Arguments)
			w.Save(context.Background(), key, value, nil)
		})

	case script.RemoteGet:
		variable := c.Variable
		return r.submitRemote(func(w *remote.Worker) {
			w.Get(context.Background(), c.Key, func(resp remote.Response, err error) {
				if err != nil || !resp.Code.OK() || variable == "" {
					return
				}
				if serr := s.Vars.Set(variable, resp.Value); serr != nil {
					s.log.Warn("remote value not stored", slog.Any("err", serr))
				}
			})
		})

	case script.RemoteCall:
		return r.submitRemote(func(w *remote.Worker) {
			w.Call(context.Background(), c.Command, c.Arguments, nil)
		})

	case script.Exit:
		r.finished = true
		s.finished = true
		return flowStop

	case script.Unrecognized:
		s.log.Warn("unrecognized command", slog.String("name", c.Name))
	}

	return flowNext
}

// evalCondition evaluates a case line. A malformed between operand is an
// authoring error worth surfacing, but it must not kill the playthrough, so
// it logs and the branch is treated as false.
func (r *Reader) evalCondition(v1, op, v2 string) bool {
	ok, err := script.Condition{Value1: v1, Value2: v2, Operator: op}.Evaluate()
	if err != nil {
		r.story.log.Error("condition evaluation failed", slog.Any("err", err))
		return false
	}
	return ok
}

func conditionName(name string) string {
	if name == "" {
		return unnamedCondition
	}
	return name
}

// submitRemote runs op on the worker and pauses the main reader until the
// round-trip finishes. Stories without a remote endpoint log and move on.
func (r *Reader) submitRemote(op func(*remote.Worker)) flow {
	if r.story.Remote == nil {
		r.story.log.Warn("remote command ignored, no remote endpoint configured")
		return flowNext
	}
	op(r.story.Remote)
	if r.background {
		return flowNext
	}
	r.waitRemote = true
	return flowStop
}

// playAsset fetches a sound from the container and starts it.
func (r *Reader) playAsset(ct container.ContentType, ch audio.Channel, name string, loop bool) {
	s := r.story
	data, ok := s.Container.AssetBytes(ct, name)
	if !ok {
		s.log.Warn("audio asset not found", slog.String("name", name))
		return
	}
	ext, _ := s.Container.AssetExtension(ct, name)
	if err := s.Audio.Play(ch, name, data, ext, loop); err != nil {
		s.log.Warn("audio playback failed", slog.String("name", name), slog.Any("err", err))
	}
}

// audioChannel maps the script's channel tag onto the audio manager's.
func audioChannel(ch script.Channel) audio.Channel {
	switch ch {
	case script.ChannelMusic:
		return audio.Music
	case script.ChannelFX:
		return audio.FX
	case script.ChannelVoice:
		return audio.Voice
	case script.ChannelText:
		return audio.Text
	}
	return audio.All
}

// splitKeyValue splits "key, value" remote-save arguments.
func splitKeyValue(args string) (key, value string, ok bool) {
	parts := script.SplitArgs(args)
	if len(parts) < 2 {
		if len(parts) == 1 {
			return parts[0], "", false
		}
		return "", "", false
	}
	return parts[0], parts[1], true
}
