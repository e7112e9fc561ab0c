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

// Operator names as they appear in script text.
const (
	OperatorIs             = "is"
	OperatorIsNot          = "is not"
	OperatorMoreThan       = "more than"
	OperatorSameOrMoreThan = "same or more than"
	OperatorLessThan       = "less than"
	OperatorSameOrLessThan = "same or less than"
	OperatorBetween        = "between"
	OperatorNotBetween     = "not between"
)

// Condition is one boolean check taken from a case line. It is stateless
// beyond its own evaluation.
type Condition struct {
	Value1   string
	Value2   string
	Operator string
}

// RangeFormatError reports a between/not-between operand that is not in the
// "<low> and <high>" shape. Unlike ordinary type mismatches, which evaluate
// to false, this propagates to the caller.
type RangeFormatError struct {
	Value1 string
	Value2 string
}

func (e *RangeFormatError) Error() string {
	return fmt.Sprintf("cannot read between operator values: %s, %s", e.Value1, e.Value2)
}

// Evaluate applies the operator to the two operand strings.
//
// Equality is always literal string comparison, never numeric, so "5" and
// "5.0" are not equal. The ordering operators parse both operands as
// numbers and evaluate to false, without error, when either fails to parse.
// An unknown operator evaluates to false without error.
func (c Condition) Evaluate() (bool, error) {
	switch c.Operator {
	case OperatorIs:
		return c.Value1 == c.Value2, nil
	case OperatorIsNot:
		return c.Value1 != c.Value2, nil

	case OperatorLessThan, OperatorMoreThan, OperatorSameOrLessThan, OperatorSameOrMoreThan:
		a, err1 := strconv.ParseFloat(c.Value1, 64)
		b, err2 := strconv.ParseFloat(c.Value2, 64)
		if err1 != nil || err2 != nil {
			return false, nil
		}
		switch c.Operator {
		case OperatorLessThan:
			return a < b, nil
		case OperatorMoreThan:
			return a > b, nil
		case OperatorSameOrLessThan:
			return a <= b, nil
		}
		return a >= b, nil

	case OperatorBetween, OperatorNotBetween:
		low, high, err := c.parseRangeOperand()
		if err != nil {
			return false, err
		}
		a, err2 := strconv.ParseFloat(c.Value1, 64)
		if err2 != nil {
			return false, &RangeFormatError{Value1: c.Value1, Value2: c.Value2}
		}
		inRange := a >= low && a <= high
		if c.Operator == OperatorBetween {
			return inRange, nil
		}
		return !inRange, nil
	}

	return false, nil
}

// parseRangeOperand reads Value2 as "<low> and <high>". The 'and' keyword is
// case-insensitive and internal whitespace collapses, so "5  AND  10" works.
// Both bounds are inclusive; the shape itself is strict.
func (c Condition) parseRangeOperand() (low, high float64, err error) {
	fields := strings.Fields(c.Value2)
	if len(fields) != 3 || !strings.EqualFold(fields[1], "and") {
		return 0, 0, &RangeFormatError{Value1: c.Value1, Value2: c.Value2}
	}
	low, err1 := strconv.ParseFloat(fields[0], 64)
	high, err2 := strconv.ParseFloat(fields[2], 64)
	if err1 != nil || err2 != nil {
		return 0, 0, &RangeFormatError{Value1: c.Value1, Value2: c.Value2}
	}
	return low, high, nil
}

// ShouldEvaluateLine gates line execution while the reader is skipping a
// false condition block. An empty falseConditionName means the reader is not
// skipping, so every line is evaluated. While skipping, only the structural
// markers that can end or branch the block are let through.
func ShouldEvaluateLine(line, falseConditionName string) bool {
	if falseConditionName == "" {
		return true
	}
	trimmed := strings.TrimSpace(line)
	return strings.HasPrefix(trimmed, "<case_end>") ||
		strings.HasPrefix(trimmed, "<or_case") ||
		strings.HasPrefix(trimmed, "<case_else>")
}
