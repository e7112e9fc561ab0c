/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package script

import (
	"math"
	"strings"
)

// Op tags each command variant. Execution is a single switch over this tag.
type Op int

const (
	OpUnknownCommand Op = iota
	OpVariableSet
	OpCase
	OpOrCase
	OpCaseElse
	OpCaseEnd
	OpHalt
	OpHaltAuto
	OpUnhalt
	OpRest
	OpBlankLine
	OpPlayMusic
	OpPlayAudio
	OpStopAudio
	OpVolume
	OpSpriteLoad
	OpSpriteShow
	OpSpriteHide
	OpSpriteFlip
	OpMovementSpeed
	OpMovementDelay
	OpStartMoving
	OpStopMoving
	OpMovementStopCondition
	OpFadeSpeed
	OpFadeUntil
	OpFadeCurrentValue
	OpFadeDelay
	OpScaleBy
	OpScaleUntil
	OpScaleCurrentValue
	OpScaleDelay
	OpRotateSpeed
	OpRotateUntil
	OpRotateCurrentValue
	OpRotateDelay
	OpSceneLoad
	OpSceneWithFade
	OpCall
	OpAfter
	OpAfterCancel
	OpAfterCancelAll
	OpRemoteSave
	OpRemoteGet
	OpRemoteCall
	OpExit
)

// Command is one parsed, typed scripting instruction. Variants are plain
// records; they are created by Bind and consumed once by the dispatch switch.
type Command interface {
	Op() Op
}

// SpriteType selects which sprite group a sprite command targets.
type SpriteType int

const (
	SpriteCharacter SpriteType = iota
	SpriteObject
	SpriteDialog
	SpriteBackground
	SpriteFontSheet
)

func (s SpriteType) String() string {
	switch s {
	case SpriteCharacter:
		return "character"
	case SpriteObject:
		return "object"
	case SpriteDialog:
		return "dialog_sprite"
	case SpriteBackground:
		return "background"
	case SpriteFontSheet:
		return "font_sprite"
	}
	return "unknown"
}

// Channel selects a logical audio channel.
type Channel int

const (
	ChannelMusic Channel = iota
	ChannelFX
	ChannelVoice
	ChannelText
	ChannelAll
)

func (c Channel) String() string {
	switch c {
	case ChannelMusic:
		return "music"
	case ChannelFX:
		return "fx"
	case ChannelVoice:
		return "voice"
	case ChannelText:
		return "text"
	case ChannelAll:
		return "all"
	}
	return "unknown"
}

// Side is the rectangle side checked by a movement stop condition.
// Unrecognized input degrades to SideUnknown instead of failing the bind;
// the reader decides whether that is fatal at execution time.
type Side int

const (
	SideUnknown Side = iota
	SideLeft
	SideRight
	SideTop
	SideBottom
)

// ParseSide maps a keyword to a Side, lower-casing first.
func ParseSide(s string) Side {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left":
		return SideLeft
	case "right":
		return SideRight
	case "top":
		return SideTop
	case "bottom":
		return SideBottom
	}
	return SideUnknown
}

// Direction is a fade/rotate direction keyword with the same degrade-to-
// Unknown policy as Side.
type Direction int

const (
	DirectionUnknown Direction = iota
	DirectionIn
	DirectionOut
	DirectionClockwise
	DirectionCounterclockwise
)

// ParseDirection maps a keyword to a Direction, lower-casing first.
func ParseDirection(s string) Direction {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fade in", "in":
		return DirectionIn
	case "fade out", "out":
		return DirectionOut
	case "clockwise":
		return DirectionClockwise
	case "counterclockwise", "counter clockwise":
		return DirectionCounterclockwise
	}
	return DirectionUnknown
}

// Duration bounds for clamped duration fields (seconds).
const (
	minDuration = 0.01
	maxDuration = 100.0
)

// clampDuration silently clamps a duration into [0.01, 100.0].
func clampDuration(v float64) float64 {
	if math.IsNaN(v) || v < minDuration {
		return minDuration
	}
	if v > maxDuration {
		return maxDuration
	}
	return v
}

// ----- Flow / variables -----

type VariableSet struct {
	Name  string
	Value string
}

func (VariableSet) Op() Op { return OpVariableSet }

// Case opens a conditional block. ConditionName is empty for the short
// variant (three arguments, no name).
type Case struct {
	Value1        string
	Operator      string
	Value2        string
	ConditionName string
}

func (Case) Op() Op { return OpCase }

// OrCase re-tests with a new condition while a case block is active.
type OrCase struct {
	Value1        string
	Operator      string
	Value2        string
	ConditionName string
}

func (OrCase) Op() Op { return OpOrCase }

type CaseElse struct{}

func (CaseElse) Op() Op { return OpCaseElse }

type CaseEnd struct{}

func (CaseEnd) Op() Op { return OpCaseEnd }

// Halt pauses the main reader until the viewer advances.
type Halt struct{}

func (Halt) Op() Op { return OpHalt }

// HaltAuto pauses the main reader for a fixed duration; viewer input cannot
// shorten it. Seconds is clamped at construction.
type HaltAuto struct {
	Seconds float64
}

func (HaltAuto) Op() Op { return OpHaltAuto }

type Unhalt struct{}

func (Unhalt) Op() Op { return OpUnhalt }

// Rest pauses the main reader for a fixed duration and, unlike HaltAuto,
// stacks when re-issued mid-count. Seconds is clamped at construction.
type Rest struct {
	Seconds float64
}

func (Rest) Op() Op { return OpRest }

// BlankLine is the <line> directive: an intentionally blank dialog line.
type BlankLine struct{}

func (BlankLine) Op() Op { return OpBlankLine }

// ----- Audio -----

type PlayMusic struct {
	Name string
	Loop bool
}

func (PlayMusic) Op() Op { return OpPlayMusic }

type PlayAudio struct {
	Channel Channel
	Name    string
}

func (PlayAudio) Op() Op { return OpPlayAudio }

type StopAudio struct {
	Channel Channel
}

func (StopAudio) Op() Op { return OpStopAudio }

// Volume sets a channel's volume from the author-facing 0-100 scale.
type Volume struct {
	Channel Channel
	Level   int
}

func (Volume) Op() Op { return OpVolume }

// ----- Sprites -----

// SpriteLoad loads a sprite from the container. LoadAs, when set, forces a
// fresh instance stored under that name instead of the cached original.
type SpriteLoad struct {
	Type   SpriteType
	Name   string
	Alias  string
	LoadAs string
}

func (SpriteLoad) Op() Op { return OpSpriteLoad }

type SpriteShow struct {
	Type SpriteType
	Name string
}

func (SpriteShow) Op() Op { return OpSpriteShow }

// SpriteHide hides one sprite by alias, or every sprite of the type when
// All is set.
type SpriteHide struct {
	Type SpriteType
	Name string
	All  bool
}

func (SpriteHide) Op() Op { return OpSpriteHide }

type SpriteFlip struct {
	Type  SpriteType
	Alias string
	// Axis is "horizontal", "vertical" or "both", lower-cased on bind.
	Axis string
}

func (SpriteFlip) Op() Op { return OpSpriteFlip }

// ----- Movement -----

type MovementSpeed struct {
	Type       SpriteType
	Alias      string
	X          int
	XDirection Side // SideLeft or SideRight; SideUnknown on bad input
	Y          int
	YDirection Side // SideTop or SideBottom; SideUnknown on bad input
}

func (MovementSpeed) Op() Op { return OpMovementSpeed }

type MovementDelay struct {
	Type  SpriteType
	Alias string
	X     int
	Y     int
}

func (MovementDelay) Op() Op { return OpMovementDelay }

type StartMoving struct {
	Type  SpriteType
	Alias string
}

func (StartMoving) Op() Op { return OpStartMoving }

type StopMoving struct {
	Type  SpriteType
	Alias string
}

func (StopMoving) Op() Op { return OpStopMoving }

// MovementStopCondition stops a sprite once a side reaches a location.
// The two-argument short variant omits the side; the checked side is then
// derived from the movement direction at run time (Side stays SideUnknown).
type MovementStopCondition struct {
	Type  SpriteType
	Alias string
	Side  Side
	// StopLocation is either a pixel coordinate or a position keyword such
	// as "start of display"; keywords are lower-cased on bind.
	StopLocation string
}

func (MovementStopCondition) Op() Op { return OpMovementStopCondition }

// ----- Fade / scale / rotate -----

type FadeSpeed struct {
	Type      SpriteType
	Alias     string
	SpeedRow  int
	Direction Direction
}

func (FadeSpeed) Op() Op { return OpFadeSpeed }

type FadeUntil struct {
	Type  SpriteType
	Alias string
	Value float64
}

func (FadeUntil) Op() Op { return OpFadeUntil }

type FadeCurrentValue struct {
	Type  SpriteType
	Alias string
	Value int
}

func (FadeCurrentValue) Op() Op { return OpFadeCurrentValue }

type FadeDelay struct {
	Type   SpriteType
	Alias  string
	Frames int
}

func (FadeDelay) Op() Op { return OpFadeDelay }

type ScaleBy struct {
	Type     SpriteType
	Alias    string
	SpeedRow int
	// Direction is "scale up" or "scale down", lower-cased on bind.
	Direction string
}

func (ScaleBy) Op() Op { return OpScaleBy }

type ScaleUntil struct {
	Type  SpriteType
	Alias string
	Value float64
}

func (ScaleUntil) Op() Op { return OpScaleUntil }

type ScaleCurrentValue struct {
	Type  SpriteType
	Alias string
	Value float64
}

func (ScaleCurrentValue) Op() Op { return OpScaleCurrentValue }

type ScaleDelay struct {
	Type   SpriteType
	Alias  string
	Frames int
}

func (ScaleDelay) Op() Op { return OpScaleDelay }

type RotateSpeed struct {
	Type      SpriteType
	Alias     string
	SpeedRow  int
	Direction Direction
}

func (RotateSpeed) Op() Op { return OpRotateSpeed }

// RotateUntil keeps Until as text because the keyword "forever" is allowed
// alongside a numeric angle.
type RotateUntil struct {
	Type  SpriteType
	Alias string
	Until string
}

func (RotateUntil) Op() Op { return OpRotateUntil }

type RotateCurrentValue struct {
	Type  SpriteType
	Alias string
	Value float64
}

func (RotateCurrentValue) Op() Op { return OpRotateCurrentValue }

type RotateDelay struct {
	Type   SpriteType
	Alias  string
	Frames int
}

func (RotateDelay) Op() Op { return OpRotateDelay }

// ----- Scenes -----

type SceneLoad struct {
	Chapter string
	Scene   string
}

func (SceneLoad) Op() Op { return OpSceneLoad }

// SceneWithFade transitions to another scene behind a full-screen fade.
// HoldSeconds is clamped at construction.
type SceneWithFade struct {
	HexColor    string
	FadeInRow   int
	FadeOutRow  int
	HoldSeconds float64
	Chapter     string
	Scene       string
}

func (SceneWithFade) Op() Op { return OpSceneWithFade }

// ----- Reusable scripts -----

type Call struct {
	Script    string
	Arguments string
}

func (Call) Op() Op { return OpCall }

// After schedules a reusable script to run once the duration elapses.
// Seconds is clamped at construction.
type After struct {
	Seconds   float64
	Script    string
	Arguments string
}

func (After) Op() Op { return OpAfter }

type AfterCancel struct {
	Script string
}

func (AfterCancel) Op() Op { return OpAfterCancel }

type AfterCancelAll struct{}

func (AfterCancelAll) Op() Op { return OpAfterCancelAll }

// ----- Remote -----

type RemoteSave struct {
	Arguments string
}

func (RemoteSave) Op() Op { return OpRemoteSave }

// RemoteGet fetches a saved value; the two-argument variant stores it into
// a variable.
type RemoteGet struct {
	Key      string
	Variable string
}

func (RemoteGet) Op() Op { return OpRemoteGet }

type RemoteCall struct {
	Command   string
	Arguments string
}

func (RemoteCall) Op() Op { return OpRemoteCall }

type Exit struct{}

func (Exit) Op() Op { return OpExit }

// Unrecognized carries a command whose name is not in the catalogue. Binding
// it is not an error; the interpreter decides whether to log or to stop.
type Unrecognized struct {
	Name string
	Args string
}

func (Unrecognized) Op() Op { return OpUnknownCommand }
