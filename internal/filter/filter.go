/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package filter models a single tag match rule: a metadata field, a
// comparison and its operands.
package filter

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/friendsincode/dynbias/internal/meta"
)

var (
	// ErrNumericField indicates a numeric-only condition applied to a text field.
	ErrNumericField = errors.New("condition requires a numeric field")
	// ErrUnknownCondition indicates a condition value outside the known set.
	ErrUnknownCondition = errors.New("unknown filter condition")
)

// Condition is the comparison a filter applies. Equals, GreaterThan and
// LessThan share their values with query.NumberComparison.
type Condition int

const (
	Equals Condition = iota
	GreaterThan
	LessThan
	Between
	OlderThan
	Contains
)

var conditionNames = map[Condition]string{
	Equals:      "equals",
	GreaterThan: "greater",
	LessThan:    "less",
	Between:     "between",
	OlderThan:   "older",
	Contains:    "contains",
}

// ConditionName returns the persisted name of c, or "" for unknown values.
func ConditionName(c Condition) string {
	return conditionNames[c]
}

// ConditionForName resolves a persisted condition name. Unknown names yield
// Equals.
func ConditionForName(name string) Condition {
	for c, n := range conditionNames {
		if n == name {
			return c
		}
	}
	return Equals
}

// String implements fmt.Stringer.
func (c Condition) String() string {
	if n, ok := conditionNames[c]; ok {
		return n
	}
	return "condition(" + strconv.Itoa(int(c)) + ")"
}

// Filter is one comparison rule. NumValue and NumValue2 are the operands of
// numeric conditions; OlderThan reads NumValue as seconds before now. Value is
// the operand of textual conditions.
type Filter struct {
	Field     meta.Field
	Condition Condition
	NumValue  int64
	NumValue2 int64
	Value     string
	Invert    bool
}

// IsNumeric reports whether the filter compares integer values. Contains is
// always textual, and so is Equals on a text field.
func (f Filter) IsNumeric() bool {
	return f.Condition != Contains && f.Field.IsNumeric()
}

// Validate checks that the condition can be applied to the field.
func (f Filter) Validate() error {
	switch f.Condition {
	case Equals, Contains:
		return nil
	case GreaterThan, LessThan, Between, OlderThan:
		if !f.Field.IsNumeric() {
			return fmt.Errorf("%s on field %d: %w", f.Condition, f.Field, ErrNumericField)
		}
		return nil
	}
	return fmt.Errorf("%d: %w", int(f.Condition), ErrUnknownCondition)
}

// Bounds returns the operands of a Between condition in ascending order.
func (f Filter) Bounds() (lo, hi int64) {
	if f.NumValue <= f.NumValue2 {
		return f.NumValue, f.NumValue2
	}
	return f.NumValue2, f.NumValue
}

// DisplayString renders the filter for humans, e.g. `Artist contains "beat"`.
// Invert is not part of the rendering.
func (f Filter) DisplayString(reg *meta.Registry) string {
	label := reg.Label(f.Field)

	if !f.IsNumeric() {
		switch f.Condition {
		case Contains:
			return fmt.Sprintf("%s contains %q", label, f.Value)
		case Equals:
			return fmt.Sprintf("%s equals %q", label, f.Value)
		}
		return fmt.Sprintf("%s %s %q", label, f.Condition, f.Value)
	}

	switch f.Condition {
	case Equals:
		return fmt.Sprintf("%s equals %s", label, f.displayNumber(f.NumValue))
	case GreaterThan:
		return fmt.Sprintf("%s greater than %s", label, f.displayNumber(f.NumValue))
	case LessThan:
		return fmt.Sprintf("%s less than %s", label, f.displayNumber(f.NumValue))
	case Between:
		lo, hi := f.Bounds()
		return fmt.Sprintf("%s between %s and %s", label, f.displayNumber(lo), f.displayNumber(hi))
	case OlderThan:
		return fmt.Sprintf("%s older than %s", label, displayAge(f.NumValue))
	}
	return fmt.Sprintf("%s %s %d", label, f.Condition, f.NumValue)
}

func (f Filter) displayNumber(v int64) string {
	switch {
	case f.Field.IsDate():
		return time.Unix(v, 0).UTC().Format("2006-01-02")
	case f.Field == meta.Filesize && v >= 0:
		return humanize.Bytes(uint64(v))
	}
	return strconv.FormatInt(v, 10)
}

func displayAge(seconds int64) string {
	now := time.Unix(0, 0)
	return strings.TrimSpace(humanize.RelTime(now, now.Add(time.Duration(seconds)*time.Second), "", ""))
}
