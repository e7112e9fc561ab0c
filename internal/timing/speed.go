/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package timing

import "math"

// Scale converts an author-facing integer speed row into a per-second rate.
// Row 1 is the slowest value; each row adds Step. Rows outside [1, MaxRow]
// clamp to the nearest bound.
type Scale struct {
	Initial float64
	Step    float64
	MaxRow  int
}

// Value returns the rate at the given row, rounded to 4 decimal places.
func (s Scale) Value(row int) float64 {
	if row < 1 {
		row = 1
	} else if row > s.MaxRow {
		row = s.MaxRow
	}
	v := s.Initial + float64(row-1)*s.Step
	return math.Round(v*10000) / 10000
}

// One scale per animation category. Each has its own slowest value and
// increment; all share the 1..100 row range the editor exposes.
var (
	// FadeScale rates are opacity units per second (opacity spans 0-255).
	FadeScale = Scale{Initial: 0.01, Step: 0.02, MaxRow: 100}

	// MoveScale rates are pixels per second per movement unit.
	MoveScale = Scale{Initial: 0.5, Step: 0.5, MaxRow: 100}

	// ScaleScale rates are sprite scale factor change per second.
	ScaleScale = Scale{Initial: 0.0001, Step: 0.0002, MaxRow: 100}

	// RotateScale rates are degrees per second.
	RotateScale = Scale{Initial: 0.02, Step: 0.05, MaxRow: 100}
)
