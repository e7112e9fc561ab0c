/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package player

import "log/slog"

// afterTimer is one pending deferred script run.
type afterTimer struct {
	remaining float64
	script    string
	arguments string
}

// AfterManager owns the story's deferred script timers. Scheduling the same
// script again restarts its timer; expired timers run the script as a
// background reader within the same frame.
type AfterManager struct {
	story  *Story
	timers []*afterTimer
}

// Schedule arms a timer that runs the named reusable script after the given
// number of seconds. A timer already armed for that script is restarted.
func (m *AfterManager) Schedule(seconds float64, script, arguments string) {
	for _, t := range m.timers {
		if t.script == script {
			t.remaining = seconds
			t.arguments = arguments
			return
		}
	}
	m.timers = append(m.timers, &afterTimer{
		remaining: seconds,
		script:    script,
		arguments: arguments,
	})
}

// Cancel drops the pending timer for the named script, if any.
func (m *AfterManager) Cancel(script string) {
	for i, t := range m.timers {
		if t.script == script {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return
		}
	}
}

// CancelAll drops every pending timer.
func (m *AfterManager) CancelAll() { m.timers = nil }

// Pending returns the number of armed timers.
func (m *AfterManager) Pending() int { return len(m.timers) }

// Tick advances every timer and runs the ones that expired this frame.
// Expired timers are removed before their scripts run, so a script that
// re-schedules itself gets a fresh timer.
func (m *AfterManager) Tick(delta float64) {
	var due []*afterTimer
	kept := m.timers[:0]
	for _, t := range m.timers {
		t.remaining -= delta
		if t.remaining <= 0 {
			due = append(due, t)
			continue
		}
		kept = append(kept, t)
	}
	m.timers = kept

	for _, t := range due {
		m.story.log.Debug("timer expired", slog.String("script", t.script))
		m.story.CallReusable(t.script, t.arguments)
	}
}
