/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package player

import (
	"log/slog"
	"math"
	"strconv"

	"novelplay/internal/container"
	"novelplay/internal/script"
	"novelplay/internal/timing"
)

// refFrameRate converts the speed tables' per-frame step values into
// per-second rates. The tables were calibrated against a 60 fps cadence;
// applying rate*delta keeps the on-screen speed identical at any frame rate.
const refFrameRate = 60.0

// animKind indexes the per-animation frame-delay counters.
type animKind int

const (
	animFade animKind = iota
	animScale
	animRotate
	animKinds
)

// SpriteState is one on-screen sprite instance: its decoded image plus every
// per-sprite animation the script can drive. All fields are main-thread only.
type SpriteState struct {
	Sprite  *container.Sprite
	Alias   string
	Visible bool

	X, Y float64

	// Movement. Velocities are px/sec, already signed by direction.
	velocityX, velocityY float64
	moveDelayX           int
	moveDelayY           int
	moveCounterX         int
	moveCounterY         int
	Moving               bool
	stopSide             script.Side
	stopLocation         string
	stopSet              bool

	FlippedH bool
	FlippedV bool

	// Opacity runs 0..255 like the screen fade.
	Opacity       float64
	fadeRate      float64
	fadeTarget    float64
	fadeTargetSet bool
	Fading        bool

	Scale          float64
	scaleRate      float64
	scaleTarget    float64
	scaleTargetSet bool
	Scaling        bool

	// Angle is degrees, counterclockwise positive.
	Angle           float64
	rotateRate      float64
	rotateForever   bool
	rotateTarget    float64
	rotateTargetSet bool
	Rotating        bool

	delay   [animKinds]int
	counter [animKinds]int
}

// contentType maps a script sprite type onto the container's asset section.
func contentType(t script.SpriteType) (container.ContentType, bool) {
	switch t {
	case script.SpriteCharacter:
		return container.Character, true
	case script.SpriteObject:
		return container.Object, true
	case script.SpriteDialog:
		return container.DialogSprite, true
	case script.SpriteBackground:
		return container.Background, true
	}
	return 0, false
}

// loadSprite decodes an asset and registers it under its alias. Font sheets
// are not positional sprites; they load into the font table instead.
func (s *Story) loadSprite(cmd script.SpriteLoad) {
	if cmd.Type == script.SpriteFontSheet {
		fs := s.Container.FontSpriteSheet(cmd.Name)
		if fs == nil {
			s.log.Warn("font sheet not found", slog.String("name", cmd.Name))
			return
		}
		s.fonts[cmd.Name] = fs
		return
	}

	ct, ok := contentType(cmd.Type)
	if !ok {
		return
	}
	sprite := s.Container.Sprite(ct, cmd.Name, container.SpriteOptions{
		GeneralAlias: cmd.Alias,
		LoadAs:       cmd.LoadAs,
	})
	if sprite == nil {
		s.log.Warn("sprite not found",
			slog.String("type", cmd.Type.String()),
			slog.String("name", cmd.Name),
		)
		return
	}

	key := cmd.Alias
	if cmd.LoadAs != "" {
		key = cmd.LoadAs
	}
	if key == "" {
		key = cmd.Name
	}
	if s.sprites[cmd.Type] == nil {
		s.sprites[cmd.Type] = map[string]*SpriteState{}
	}
	s.sprites[cmd.Type][key] = &SpriteState{
		Sprite:  sprite,
		Alias:   key,
		Opacity: 255,
		Scale:   1,
	}
}

// spriteState looks up a loaded sprite by alias; misses log and return nil so
// every caller degrades to a no-op.
func (s *Story) spriteState(t script.SpriteType, alias string) *SpriteState {
	st := s.sprites[t][alias]
	if st == nil {
		s.log.Warn("sprite not loaded",
			slog.String("type", t.String()),
			slog.String("alias", alias),
		)
	}
	return st
}

func (s *Story) showSprite(t script.SpriteType, alias string, visible bool) {
	if st := s.spriteState(t, alias); st != nil {
		st.Visible = visible
	}
}

func (s *Story) hideAllSprites(t script.SpriteType) {
	for _, st := range s.sprites[t] {
		st.Visible = false
	}
}

func (s *Story) flipSprite(cmd script.SpriteFlip) {
	st := s.spriteState(cmd.Type, cmd.Alias)
	if st == nil {
		return
	}
	switch cmd.Axis {
	case "horizontal":
		st.FlippedH = !st.FlippedH
	case "vertical":
		st.FlippedV = !st.FlippedV
	case "both":
		st.FlippedH = !st.FlippedH
		st.FlippedV = !st.FlippedV
	}
}

// ----- Movement -----

func (s *Story) setMovementSpeed(cmd script.MovementSpeed) {
	st := s.spriteState(cmd.Type, cmd.Alias)
	if st == nil {
		return
	}
	st.velocityX = float64(cmd.X) * refFrameRate
	if cmd.XDirection == script.SideLeft {
		st.velocityX = -st.velocityX
	}
	st.velocityY = float64(cmd.Y) * refFrameRate
	if cmd.YDirection == script.SideTop {
		st.velocityY = -st.velocityY
	}
}

func (s *Story) setMovementDelay(cmd script.MovementDelay) {
	st := s.spriteState(cmd.Type, cmd.Alias)
	if st == nil {
		return
	}
	st.moveDelayX = cmd.X
	st.moveDelayY = cmd.Y
}

func (s *Story) setMoving(t script.SpriteType, alias string, moving bool) {
	if st := s.spriteState(t, alias); st != nil {
		st.Moving = moving
	}
}

func (s *Story) setMovementStop(cmd script.MovementStopCondition) {
	st := s.spriteState(cmd.Type, cmd.Alias)
	if st == nil {
		return
	}
	st.stopSide = cmd.Side
	st.stopLocation = cmd.StopLocation
	st.stopSet = true
}

// ----- Fade -----

func (s *Story) setFadeSpeed(cmd script.FadeSpeed) {
	st := s.spriteState(cmd.Type, cmd.Alias)
	if st == nil {
		return
	}
	rate := timing.FadeScale.Value(cmd.SpeedRow) * fadeRateUnits
	switch cmd.Direction {
	case script.DirectionIn:
		st.fadeRate = rate
	case script.DirectionOut:
		st.fadeRate = -rate
	default:
		s.log.Warn("bad fade direction", slog.String("alias", cmd.Alias))
		return
	}
	st.Fading = true
}

func (s *Story) setFadeUntil(cmd script.FadeUntil) {
	st := s.spriteState(cmd.Type, cmd.Alias)
	if st == nil {
		return
	}
	st.fadeTarget = clamp(cmd.Value, 0, 255)
	st.fadeTargetSet = true
}

func (s *Story) setFadeValue(cmd script.FadeCurrentValue) {
	st := s.spriteState(cmd.Type, cmd.Alias)
	if st == nil {
		return
	}
	st.Opacity = clamp(float64(cmd.Value), 0, 255)
}

// ----- Scale -----

func (s *Story) setScaleBy(cmd script.ScaleBy) {
	st := s.spriteState(cmd.Type, cmd.Alias)
	if st == nil {
		return
	}
	rate := timing.ScaleScale.Value(cmd.SpeedRow) * refFrameRate
	switch cmd.Direction {
	case "scale up":
		st.scaleRate = rate
	case "scale down":
		st.scaleRate = -rate
	default:
		s.log.Warn("bad scale direction", slog.String("direction", cmd.Direction))
		return
	}
	st.Scaling = true
}

func (s *Story) setScaleUntil(cmd script.ScaleUntil) {
	st := s.spriteState(cmd.Type, cmd.Alias)
	if st == nil {
		return
	}
	st.scaleTarget = math.Max(cmd.Value, 0)
	st.scaleTargetSet = true
}

func (s *Story) setScaleValue(cmd script.ScaleCurrentValue) {
	st := s.spriteState(cmd.Type, cmd.Alias)
	if st == nil {
		return
	}
	st.Scale = math.Max(cmd.Value, 0)
}

// ----- Rotate -----

func (s *Story) setRotateSpeed(cmd script.RotateSpeed) {
	st := s.spriteState(cmd.Type, cmd.Alias)
	if st == nil {
		return
	}
	rate := timing.RotateScale.Value(cmd.SpeedRow) * refFrameRate
	switch cmd.Direction {
	case script.DirectionCounterclockwise:
		st.rotateRate = rate
	case script.DirectionClockwise:
		st.rotateRate = -rate
	default:
		s.log.Warn("bad rotate direction", slog.String("alias", cmd.Alias))
		return
	}
	st.Rotating = true
}

func (s *Story) setRotateUntil(cmd script.RotateUntil) {
	st := s.spriteState(cmd.Type, cmd.Alias)
	if st == nil {
		return
	}
	if cmd.Until == "forever" {
		st.rotateForever = true
		st.rotateTargetSet = false
		return
	}
	deg, err := strconv.ParseFloat(cmd.Until, 64)
	if err != nil {
		s.log.Warn("bad rotate target", slog.String("value", cmd.Until))
		return
	}
	st.rotateForever = false
	st.rotateTarget = deg
	st.rotateTargetSet = true
}

func (s *Story) setRotateValue(cmd script.RotateCurrentValue) {
	st := s.spriteState(cmd.Type, cmd.Alias)
	if st == nil {
		return
	}
	st.Angle = cmd.Value
}

func (s *Story) setAnimDelay(t script.SpriteType, alias string, kind animKind, frames int) {
	st := s.spriteState(t, alias)
	if st == nil {
		return
	}
	if frames < 0 {
		frames = 0
	}
	st.delay[kind] = frames
}

// ----- Per-frame update -----

// updateSprites advances every sprite animation by one frame.
func (s *Story) updateSprites(delta float64) {
	for _, states := range s.sprites {
		for _, st := range states {
			s.updateSprite(st, delta)
		}
	}
}

func (s *Story) updateSprite(st *SpriteState, delta float64) {
	if st.Moving {
		s.moveSprite(st, delta)
	}
	if st.Fading && st.applyDelayed(animFade) {
		st.Opacity += st.fadeRate * delta
		if st.fadeTargetSet && reached(st.Opacity, st.fadeTarget, st.fadeRate) {
			st.Opacity = st.fadeTarget
			st.Fading = false
		}
		if st.Opacity <= 0 || st.Opacity >= 255 {
			st.Opacity = clamp(st.Opacity, 0, 255)
			st.Fading = false
		}
	}
	if st.Scaling && st.applyDelayed(animScale) {
		st.Scale += st.scaleRate * delta
		if st.scaleTargetSet && reached(st.Scale, st.scaleTarget, st.scaleRate) {
			st.Scale = st.scaleTarget
			st.Scaling = false
		}
		if st.Scale <= 0 {
			st.Scale = 0
			st.Scaling = false
		}
	}
	if st.Rotating && st.applyDelayed(animRotate) {
		st.Angle += st.rotateRate * delta
		switch {
		case st.rotateForever:
			st.Angle = math.Mod(st.Angle, 360)
		case st.rotateTargetSet && reached(st.Angle, st.rotateTarget, st.rotateRate):
			st.Angle = st.rotateTarget
			st.Rotating = false
		}
	}
}

// moveSprite applies the per-axis velocities, honoring the every-Nth-frame
// movement delays, then checks the stop condition.
func (s *Story) moveSprite(st *SpriteState, delta float64) {
	if applyCounter(&st.moveCounterX, st.moveDelayX) {
		st.X += st.velocityX * delta
	}
	if applyCounter(&st.moveCounterY, st.moveDelayY) {
		st.Y += st.velocityY * delta
	}
	if st.stopSet {
		s.checkMovementStop(st)
	}
}

// checkMovementStop stops the sprite once the watched side crosses the stop
// location. An unset side falls back to the side the sprite is moving toward.
func (s *Story) checkMovementStop(st *SpriteState) {
	side := st.stopSide
	if side == script.SideUnknown {
		side = movementSide(st)
		if side == script.SideUnknown {
			return
		}
	}

	location, ok := s.resolveStopLocation(side, st.stopLocation)
	if !ok {
		s.log.Warn("bad movement stop location", slog.String("location", st.stopLocation))
		st.stopSet = false
		return
	}

	var coord, toward float64
	switch side {
	case script.SideLeft:
		coord, toward = st.X, st.velocityX
	case script.SideRight:
		coord, toward = st.X+st.width(), st.velocityX
	case script.SideTop:
		coord, toward = st.Y, st.velocityY
	case script.SideBottom:
		coord, toward = st.Y+st.height(), st.velocityY
	}

	if reached(coord, location, toward) {
		st.Moving = false
		st.stopSet = false
	}
}

// movementSide picks the side being moved toward; horizontal wins when the
// sprite moves diagonally.
func movementSide(st *SpriteState) script.Side {
	switch {
	case st.velocityX > 0:
		return script.SideRight
	case st.velocityX < 0:
		return script.SideLeft
	case st.velocityY > 0:
		return script.SideBottom
	case st.velocityY < 0:
		return script.SideTop
	}
	return script.SideUnknown
}

// resolveStopLocation turns a stop location into a coordinate: either a
// number, or a display-edge keyword resolved against the story window.
func (s *Story) resolveStopLocation(side script.Side, location string) (float64, bool) {
	if v, err := strconv.ParseFloat(location, 64); err == nil {
		return v, true
	}
	w, h := s.Container.General().Window()
	switch location {
	case "start of display":
		return 0, true
	case "end of display":
		if side == script.SideTop || side == script.SideBottom {
			return float64(h), true
		}
		return float64(w), true
	case "top of display":
		return 0, true
	case "bottom of display":
		return float64(h), true
	}
	return 0, false
}

func (st *SpriteState) width() float64 {
	if st.Sprite == nil || st.Sprite.Image == nil {
		return 0
	}
	return float64(st.Sprite.Image.Bounds().Dx()) * st.Scale
}

func (st *SpriteState) height() float64 {
	if st.Sprite == nil || st.Sprite.Image == nil {
		return 0
	}
	return float64(st.Sprite.Image.Bounds().Dy()) * st.Scale
}

// applyDelayed gates one animation kind behind its every-Nth-frame delay.
func (st *SpriteState) applyDelayed(kind animKind) bool {
	return applyCounter(&st.counter[kind], st.delay[kind])
}

func applyCounter(counter *int, delay int) bool {
	if delay <= 1 {
		return true
	}
	*counter++
	if *counter < delay {
		return false
	}
	*counter = 0
	return true
}

// reached reports whether value has met target moving in rate's direction.
func reached(value, target, rate float64) bool {
	if rate > 0 {
		return value >= target
	}
	if rate < 0 {
		return value <= target
	}
	return false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
