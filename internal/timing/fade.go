/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package timing

import "image/color"

// fadePhase is the screen fade's current state.
type fadePhase int

const (
	fadeIdle fadePhase = iota
	fadeIn
	fadeOut
)

// maxOpacity is full coverage; opacity counts in the 0-255 range the
// renderer expects.
const maxOpacity = 255.0

// ScreenFade covers the whole window with a colored overlay for scene
// transitions: fade in to full coverage, hold for a fixed time, fire a
// callback (the scene switch happens there, behind the cover), then fade
// back out. One instance lives per running story.
type ScreenFade struct {
	phase       fadePhase
	color       color.NRGBA
	opacity     float64
	inRate      float64
	outRate     float64
	holdSeconds float64
	holdElapsed float64
	onHold      func()
	holdFired   bool
}

// Start begins a fade cycle. The request is dropped when a fade is already
// in progress, so overlapping scene transitions cannot corrupt the state.
// Rates are opacity units per second; onHoldExpired runs exactly once, when
// full coverage has been held for holdSeconds.
func (f *ScreenFade) Start(c color.NRGBA, initialOpacity, fadeInRate, fadeOutRate, holdSeconds float64, onHoldExpired func()) bool {
	if f.Busy() {
		return false
	}
	f.phase = fadeIn
	f.color = c
	f.opacity = clampOpacity(initialOpacity)
	f.inRate = fadeInRate
	f.outRate = fadeOutRate
	f.holdSeconds = holdSeconds
	f.holdElapsed = 0
	f.onHold = onHoldExpired
	f.holdFired = false
	return true
}

// Busy reports whether a fade cycle is in progress: fading in (including
// the hold at full coverage) or fading out and not yet fully clear.
func (f *ScreenFade) Busy() bool {
	switch f.phase {
	case fadeIn:
		return true
	case fadeOut:
		return f.opacity > 0
	}
	return false
}

// Update advances the fade by the frame delta.
func (f *ScreenFade) Update(delta float64) {
	switch f.phase {
	case fadeIdle:
		return

	case fadeIn:
		f.opacity = clampOpacity(f.opacity + f.inRate*delta)
		if f.opacity < maxOpacity {
			return
		}
		f.holdElapsed += delta
		if f.holdElapsed <= f.holdSeconds {
			return
		}
		if !f.holdFired && f.onHold != nil {
			f.onHold()
		}
		f.holdFired = true
		f.phase = fadeOut
		// Re-run so the fade-out starts this frame, not the next one.
		f.Update(delta)

	case fadeOut:
		f.opacity = clampOpacity(f.opacity - f.outRate*delta)
		if f.opacity <= 0 {
			f.phase = fadeIdle
		}
	}
}

// Overlay returns the cover color with the current opacity baked into the
// alpha channel, and whether the overlay should be drawn at all. It is a
// pure read; drawing while idle is a no-op.
func (f *ScreenFade) Overlay() (color.NRGBA, bool) {
	if f.phase == fadeIdle {
		return color.NRGBA{}, false
	}
	c := f.color
	c.A = uint8(f.opacity)
	return c, true
}

// Opacity returns the current overlay opacity in [0, 255].
func (f *ScreenFade) Opacity() float64 { return f.opacity }

func clampOpacity(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > maxOpacity {
		return maxOpacity
	}
	return v
}
