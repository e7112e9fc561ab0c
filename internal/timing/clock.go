/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package timing holds the frame-driven state machines: the shared
// animation clock, the rest gate, the screen fade, and the conversion from
// author-facing speed rows to per-second rates. Everything here is advanced
// once per presentation frame by the host loop and multiplies by the frame
// delta, so rates are frame-rate independent.
package timing

// Clock carries the delta time of the current frame. One instance lives per
// running story and is passed by reference into every component that
// animates; nothing here is global.
type Clock struct {
	delta   float64
	elapsed float64
	frame   uint64
}

// Advance records the seconds elapsed since the previous frame. Called
// exactly once per frame, before anything reads Delta.
func (c *Clock) Advance(dt float64) {
	if dt < 0 {
		dt = 0
	}
	c.delta = dt
	c.elapsed += dt
	c.frame++
}

// Delta returns the current frame's delta time in seconds.
func (c *Clock) Delta() float64 { return c.delta }

// Elapsed returns the total seconds advanced since the story started.
func (c *Clock) Elapsed() float64 { return c.elapsed }

// Frame returns the number of frames advanced so far.
func (c *Clock) Frame() uint64 { return c.frame }
