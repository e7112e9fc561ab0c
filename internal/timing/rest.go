/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package timing

// RestGate pauses the main story reader for a fixed duration. Unlike an
// interactive halt, viewer input cannot cut a rest short.
//
// A rest issued while another rest is still counting extends the current
// target instead of restarting it; reusable scripts may issue the same rest
// repeatedly and the waits stack.
type RestGate struct {
	accumulated float64
	target      float64
}

// Setup starts counting toward the given duration in seconds, or extends the
// target when a rest is already in progress.
func (g *RestGate) Setup(seconds float64) {
	if seconds <= 0 {
		return
	}
	if g.target > 0 && g.accumulated > 0 && g.accumulated <= g.target {
		g.target += seconds
		return
	}
	g.target = seconds
	g.accumulated = 0
}

// Tick advances the gate by the frame delta and reports whether the main
// reader must stay paused this frame. Reaching the target resets the gate.
func (g *RestGate) Tick(delta float64) bool {
	if g.target == 0 {
		return false
	}
	if g.accumulated >= g.target {
		g.accumulated = 0
		g.target = 0
		return false
	}
	g.accumulated += delta
	return true
}

// PauseRequired reports whether a rest is in progress, without advancing it.
func (g *RestGate) PauseRequired() bool { return g.target > 0 }
