/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package query defines the predicate trees handed to a collection and the
// streaming interface collections answer them through.
package query

import (
	"crypto/sha1"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/friendsincode/dynbias/internal/meta"
)

// NumberComparison is the operator of a NumberFilter.
type NumberComparison int

const (
	Equals NumberComparison = iota
	GreaterThan
	LessThan
)

func (c NumberComparison) String() string {
	switch c {
	case Equals:
		return "="
	case GreaterThan:
		return ">"
	case LessThan:
		return "<"
	}
	return "?" + strconv.Itoa(int(c))
}

// Node is one predicate of a plan.
type Node interface {
	String() string
	isNode()
}

// NumberFilter compares an integer field against Value.
type NumberFilter struct {
	Field   meta.Field
	Value   int64
	Compare NumberComparison
}

// TextFilter matches a field case-insensitively, by substring or, when Exact,
// by whole value.
type TextFilter struct {
	Field meta.Field
	Value string
	Exact bool
}

// And matches when every child matches. An empty And matches everything.
type And []Node

// Or matches when any child matches. An empty Or matches nothing.
type Or []Node

// Nothing matches no track.
type Nothing struct{}

func (NumberFilter) isNode() {}
func (TextFilter) isNode()   {}
func (And) isNode()          {}
func (Or) isNode()           {}
func (Nothing) isNode()      {}

func (n NumberFilter) String() string {
	return "f" + strconv.FormatInt(int64(n.Field), 10) + n.Compare.String() + strconv.FormatInt(n.Value, 10)
}

func (n TextFilter) String() string {
	op := "~"
	if n.Exact {
		op = "=="
	}
	return "f" + strconv.FormatInt(int64(n.Field), 10) + op + strconv.Quote(strings.ToLower(n.Value))
}

func (n And) String() string { return group("AND", n) }

func (n Or) String() string { return group("OR", n) }

func (Nothing) String() string { return "NOTHING" }

func group(op string, nodes []Node) string {
	parts := make([]string, len(nodes))
	for i, c := range nodes {
		parts[i] = c.String()
	}
	return "(" + op + " " + strings.Join(parts, " ") + ")"
}

// Plan is a predicate tree plus the projection a collection should return.
type Plan struct {
	Root    Node
	Returns meta.Field
	// TimeRelative marks plans whose operands were derived from the current
	// time. Their results go stale on their own.
	TimeRelative bool
}

// UIDs returns a plan projecting unique ids for root.
func UIDs(root Node) Plan {
	return Plan{Root: root, Returns: meta.UniqueID}
}

// String returns the canonical text form of the plan.
func (p Plan) String() string {
	root := "ALL"
	if p.Root != nil {
		root = p.Root.String()
	}
	return "RETURN f" + strconv.FormatInt(int64(p.Returns), 10) + " WHERE " + root
}

// Key returns a stable hash identifying the plan.
func (p Plan) Key() string {
	sum := sha1.Sum([]byte(p.String()))
	return hex.EncodeToString(sum[:])
}

// Cacheable reports whether results of the plan can be kept across runs.
func (p Plan) Cacheable() bool {
	return !p.TimeRelative
}
