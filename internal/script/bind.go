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
	"strconv"
	"strings"
)

// BindError reports a recognized command whose arguments do not fit any of
// its variants. Unrecognized command names are not bind errors.
type BindError struct {
	Name   string
	Reason string
}

func (e *BindError) Error() string {
	return fmt.Sprintf("command %q: %s", e.Name, e.Reason)
}

func bindErrf(name, format string, a ...any) error {
	return &BindError{Name: name, Reason: fmt.Sprintf(format, a...)}
}

// Bind converts a tokenized command name and raw argument text into a typed
// Command. The variant is chosen by name plus argument count; commands with
// an optional trailing argument bind their short variant when it is absent.
//
// An unknown name binds to Unrecognized without error. A known name with an
// argument list that fits no variant returns a BindError.
func Bind(name, args string) (Command, error) {
	if spriteType, suffix, ok := splitSpritePrefix(name); ok {
		if cmd, err, handled := bindSpriteCommand(name, spriteType, suffix, args); handled {
			if err != nil {
				return nil, err
			}
			return cmd, nil
		}
	}

	parts := SplitArgs(args)
	n := len(parts)

	switch name {
	case "variable_set":
		if n != 2 {
			return nil, bindErrf(name, "want name and value, got %d arguments", n)
		}
		return VariableSet{Name: parts[0], Value: parts[1]}, nil

	case "case":
		switch n {
		case 3:
			return Case{Value1: parts[0], Operator: parts[1], Value2: parts[2]}, nil
		case 4:
			return Case{Value1: parts[0], Operator: parts[1], Value2: parts[2], ConditionName: parts[3]}, nil
		}
		return nil, bindErrf(name, "want 3 or 4 arguments, got %d", n)

	case "or_case":
		if n != 4 {
			return nil, bindErrf(name, "want 4 arguments, got %d", n)
		}
		return OrCase{Value1: parts[0], Operator: parts[1], Value2: parts[2], ConditionName: parts[3]}, nil

	case "case_else":
		return CaseElse{}, nil
	case "case_end":
		return CaseEnd{}, nil

	case "halt":
		return Halt{}, nil
	case "halt_auto":
		secs, err := floatArg(name, parts, n, 0)
		if err != nil {
			return nil, err
		}
		return HaltAuto{Seconds: clampDuration(secs)}, nil
	case "unhalt":
		return Unhalt{}, nil
	case "rest":
		secs, err := floatArg(name, parts, n, 0)
		if err != nil {
			return nil, err
		}
		return Rest{Seconds: clampDuration(secs)}, nil
	case "line":
		return BlankLine{}, nil
	case "exit":
		return Exit{}, nil

	case "play_music":
		switch n {
		case 1:
			return PlayMusic{Name: parts[0]}, nil
		case 2:
			return PlayMusic{Name: parts[0], Loop: strings.EqualFold(parts[1], "loop")}, nil
		}
		return nil, bindErrf(name, "want music name with optional loop, got %d arguments", n)

	case "play_sound":
		if n != 1 {
			return nil, bindErrf(name, "want sound name, got %d arguments", n)
		}
		return PlayAudio{Channel: ChannelFX, Name: parts[0]}, nil
	case "play_voice":
		if n != 1 {
			return nil, bindErrf(name, "want voice name, got %d arguments", n)
		}
		return PlayAudio{Channel: ChannelVoice, Name: parts[0]}, nil
	case "dialog_text_sound":
		if n != 1 {
			return nil, bindErrf(name, "want sound name, got %d arguments", n)
		}
		return PlayAudio{Channel: ChannelText, Name: parts[0]}, nil

	case "stop_music":
		return StopAudio{Channel: ChannelMusic}, nil
	case "stop_fx":
		return StopAudio{Channel: ChannelFX}, nil
	case "stop_voice":
		return StopAudio{Channel: ChannelVoice}, nil
	case "stop_all_audio":
		return StopAudio{Channel: ChannelAll}, nil

	case "volume_music", "volume_fx", "volume_voice", "volume_text":
		level, err := intArg(name, parts, n, 0)
		if err != nil {
			return nil, err
		}
		return Volume{Channel: volumeChannel(name), Level: level}, nil

	case "load_character":
		return bindSpriteLoad(name, SpriteCharacter, parts)
	case "load_object":
		return bindSpriteLoad(name, SpriteObject, parts)
	case "load_dialog_sprite":
		return bindSpriteLoad(name, SpriteDialog, parts)
	case "load_background":
		return bindSpriteLoad(name, SpriteBackground, parts)
	case "load_font_sprite":
		return bindSpriteLoad(name, SpriteFontSheet, parts)

	case "scene":
		if n != 2 {
			return nil, bindErrf(name, "want chapter and scene, got %d arguments", n)
		}
		return SceneLoad{Chapter: parts[0], Scene: parts[1]}, nil

	case "scene_with_fade":
		if n != 6 {
			return nil, bindErrf(name, "want 6 arguments, got %d", n)
		}
		inRow, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, bindErrf(name, "fade-in row %q is not a number", parts[1])
		}
		outRow, err := strconv.Atoi(parts[2])
		if err != nil {
			return nil, bindErrf(name, "fade-out row %q is not a number", parts[2])
		}
		hold, err := strconv.ParseFloat(parts[3], 64)
		if err != nil {
			return nil, bindErrf(name, "hold seconds %q is not a number", parts[3])
		}
		return SceneWithFade{
			HexColor:    strings.ToLower(parts[0]),
			FadeInRow:   inRow,
			FadeOutRow:  outRow,
			HoldSeconds: clampDuration(hold),
			Chapter:     parts[4],
			Scene:       parts[5],
		}, nil

	case "call":
		switch n {
		case 1:
			return Call{Script: parts[0]}, nil
		case 2:
			return Call{Script: parts[0], Arguments: parts[1]}, nil
		}
		return nil, bindErrf(name, "want script name with optional arguments, got %d arguments", n)

	case "after":
		if n != 2 && n != 3 {
			return nil, bindErrf(name, "want seconds and script name, got %d arguments", n)
		}
		secs, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return nil, bindErrf(name, "seconds %q is not a number", parts[0])
		}
		cmd := After{Seconds: clampDuration(secs), Script: parts[1]}
		if n == 3 {
			cmd.Arguments = parts[2]
		}
		return cmd, nil

	case "after_cancel":
		if n != 1 {
			return nil, bindErrf(name, "want script name, got %d arguments", n)
		}
		return AfterCancel{Script: parts[0]}, nil
	case "after_cancel_all":
		return AfterCancelAll{}, nil

	case "remote_save":
		return RemoteSave{Arguments: args}, nil
	case "remote_get":
		switch n {
		case 1:
			return RemoteGet{Key: parts[0]}, nil
		case 2:
			return RemoteGet{Key: parts[0], Variable: parts[1]}, nil
		}
		return nil, bindErrf(name, "want key with optional variable, got %d arguments", n)
	case "remote_call":
		switch n {
		case 1:
			return RemoteCall{Command: parts[0]}, nil
		case 2:
			return RemoteCall{Command: parts[0], Arguments: parts[1]}, nil
		}
		return nil, bindErrf(name, "want command with optional arguments, got %d arguments", n)
	}

	return Unrecognized{Name: name, Args: args}, nil
}

// splitSpritePrefix recognizes the sprite-targeting command families by their
// name prefix. The longer dialog_sprite prefix is tried before the others so
// "dialog_sprite_show" never matches a shorter family.
func splitSpritePrefix(name string) (SpriteType, string, bool) {
	for _, p := range []struct {
		prefix string
		t      SpriteType
	}{
		{"dialog_sprite_", SpriteDialog},
		{"character_", SpriteCharacter},
		{"object_", SpriteObject},
		{"background_", SpriteBackground},
	} {
		if rest, ok := strings.CutPrefix(name, p.prefix); ok {
			return p.t, rest, true
		}
	}
	return 0, "", false
}

// bindSpriteCommand binds the per-sprite-type command suffixes. handled is
// false when the suffix is not a sprite operation, so the caller can fall
// through to the flat catalogue.
func bindSpriteCommand(name string, t SpriteType, suffix, args string) (cmd Command, err error, handled bool) {
	parts := SplitArgs(args)
	n := len(parts)

	oneAlias := func() (string, error) {
		if n != 1 {
			return "", bindErrf(name, "want alias, got %d arguments", n)
		}
		return parts[0], nil
	}

	switch suffix {
	case "show":
		alias, e := oneAlias()
		return SpriteShow{Type: t, Name: alias}, e, true
	case "hide":
		alias, e := oneAlias()
		return SpriteHide{Type: t, Name: alias}, e, true
	case "hide_all":
		return SpriteHide{Type: t, All: true}, nil, true

	case "flip_both", "flip_horizontal", "flip_vertical":
		alias, e := oneAlias()
		axis := strings.TrimPrefix(suffix, "flip_")
		return SpriteFlip{Type: t, Alias: alias, Axis: axis}, e, true

	case "move":
		if n != 5 {
			return nil, bindErrf(name, "want alias, x, x direction, y, y direction, got %d arguments", n), true
		}
		x, e1 := strconv.Atoi(parts[1])
		y, e2 := strconv.Atoi(parts[3])
		if e1 != nil || e2 != nil {
			return nil, bindErrf(name, "movement amounts must be numbers"), true
		}
		return MovementSpeed{
			Type:       t,
			Alias:      parts[0],
			X:          x,
			XDirection: ParseSide(parts[2]),
			Y:          y,
			YDirection: ParseSide(parts[4]),
		}, nil, true

	case "move_delay":
		if n != 3 {
			return nil, bindErrf(name, "want alias, x delay, y delay, got %d arguments", n), true
		}
		x, e1 := strconv.Atoi(parts[1])
		y, e2 := strconv.Atoi(parts[2])
		if e1 != nil || e2 != nil {
			return nil, bindErrf(name, "delays must be numbers"), true
		}
		return MovementDelay{Type: t, Alias: parts[0], X: x, Y: y}, nil, true

	case "start_moving":
		alias, e := oneAlias()
		return StartMoving{Type: t, Alias: alias}, e, true
	case "stop_moving":
		alias, e := oneAlias()
		return StopMoving{Type: t, Alias: alias}, e, true

	case "stop_movement_condition":
		// The two-argument variant omits the side to check; the reader
		// derives it from the movement direction.
		switch n {
		case 2:
			return MovementStopCondition{
				Type:         t,
				Alias:        parts[0],
				StopLocation: strings.ToLower(parts[1]),
			}, nil, true
		case 3:
			return MovementStopCondition{
				Type:         t,
				Alias:        parts[0],
				Side:         ParseSide(parts[1]),
				StopLocation: strings.ToLower(parts[2]),
			}, nil, true
		}
		return nil, bindErrf(name, "want 2 or 3 arguments, got %d", n), true

	case "fade_speed":
		row, dir, e := aliasRowKeyword(name, parts, n)
		return FadeSpeed{Type: t, Alias: first(parts), SpeedRow: row, Direction: ParseDirection(dir)}, e, true
	case "fade_until":
		v, e := aliasFloat(name, parts, n)
		return FadeUntil{Type: t, Alias: first(parts), Value: v}, e, true
	case "fade_current_value":
		v, e := aliasInt(name, parts, n)
		return FadeCurrentValue{Type: t, Alias: first(parts), Value: v}, e, true
	case "fade_delay":
		v, e := aliasInt(name, parts, n)
		return FadeDelay{Type: t, Alias: first(parts), Frames: v}, e, true

	case "scale_by":
		row, dir, e := aliasRowKeyword(name, parts, n)
		return ScaleBy{Type: t, Alias: first(parts), SpeedRow: row, Direction: strings.ToLower(dir)}, e, true
	case "scale_until":
		v, e := aliasFloat(name, parts, n)
		return ScaleUntil{Type: t, Alias: first(parts), Value: v}, e, true
	case "scale_current_value":
		v, e := aliasFloat(name, parts, n)
		return ScaleCurrentValue{Type: t, Alias: first(parts), Value: v}, e, true
	case "scale_delay":
		v, e := aliasInt(name, parts, n)
		return ScaleDelay{Type: t, Alias: first(parts), Frames: v}, e, true

	case "rotate_speed":
		row, dir, e := aliasRowKeyword(name, parts, n)
		return RotateSpeed{Type: t, Alias: first(parts), SpeedRow: row, Direction: ParseDirection(dir)}, e, true
	case "rotate_until":
		if n != 2 {
			return nil, bindErrf(name, "want alias and stop angle, got %d arguments", n), true
		}
		return RotateUntil{Type: t, Alias: parts[0], Until: strings.ToLower(parts[1])}, nil, true
	case "rotate_current_value":
		v, e := aliasFloat(name, parts, n)
		return RotateCurrentValue{Type: t, Alias: first(parts), Value: v}, e, true
	case "rotate_delay":
		v, e := aliasInt(name, parts, n)
		return RotateDelay{Type: t, Alias: first(parts), Frames: v}, e, true
	}

	return nil, nil, false
}

func bindSpriteLoad(name string, t SpriteType, parts []string) (Command, error) {
	switch len(parts) {
	case 2:
		return SpriteLoad{Type: t, Name: parts[0], Alias: parts[1]}, nil
	case 3:
		return SpriteLoad{Type: t, Name: parts[0], Alias: parts[1], LoadAs: parts[2]}, nil
	}
	return nil, bindErrf(name, "want sprite name and alias, got %d arguments", len(parts))
}

// aliasRowKeyword parses the (alias, speed row, keyword) argument shape
// shared by the fade/scale/rotate speed commands.
func aliasRowKeyword(name string, parts []string, n int) (row int, keyword string, err error) {
	if n != 3 {
		return 0, "", bindErrf(name, "want alias, speed row, direction, got %d arguments", n)
	}
	row, convErr := strconv.Atoi(parts[1])
	if convErr != nil {
		return 0, "", bindErrf(name, "speed row %q is not a number", parts[1])
	}
	return row, parts[2], nil
}

func aliasFloat(name string, parts []string, n int) (float64, error) {
	if n != 2 {
		return 0, bindErrf(name, "want alias and value, got %d arguments", n)
	}
	v, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return 0, bindErrf(name, "value %q is not a number", parts[1])
	}
	return v, nil
}

func aliasInt(name string, parts []string, n int) (int, error) {
	if n != 2 {
		return 0, bindErrf(name, "want alias and value, got %d arguments", n)
	}
	v, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, bindErrf(name, "value %q is not a number", parts[1])
	}
	return v, nil
}

func floatArg(name string, parts []string, n, idx int) (float64, error) {
	if n != idx+1 {
		return 0, bindErrf(name, "want %d argument(s), got %d", idx+1, n)
	}
	v, err := strconv.ParseFloat(parts[idx], 64)
	if err != nil {
		return 0, bindErrf(name, "argument %q is not a number", parts[idx])
	}
	return v, nil
}

func intArg(name string, parts []string, n, idx int) (int, error) {
	if n != idx+1 {
		return 0, bindErrf(name, "want %d argument(s), got %d", idx+1, n)
	}
	v, err := strconv.Atoi(parts[idx])
	if err != nil {
		return 0, bindErrf(name, "argument %q is not a number", parts[idx])
	}
	return v, nil
}

func volumeChannel(name string) Channel {
	switch name {
	case "volume_music":
		return ChannelMusic
	case "volume_fx":
		return ChannelFX
	case "volume_voice":
		return ChannelVoice
	}
	return ChannelText
}

// first returns the first argument or "" when the argument list is empty,
// so error paths can still fill the alias field of a zero-value command.
func first(parts []string) string {
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}
