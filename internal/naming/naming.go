// Package naming normalizes user supplied identifiers and derives
// collision-free names for generated columns and constraints.
package naming

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Normalize trims surrounding whitespace and converts s to Unicode NFC, so
// visually identical names typed on different systems compare equal.
func Normalize(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// Fold returns the case-folded form of a normalized name. Two names collide
// when their folded forms are equal.
func Fold(s string) string {
	return cases.Fold().String(Normalize(s))
}

// Set is a set of names compared by folded form.
type Set map[string]struct{}

// NewSet returns a set containing names.
func NewSet(names ...string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		s.Add(n)
	}
	return s
}

// Add inserts name.
func (s Set) Add(name string) {
	s[Fold(name)] = struct{}{}
}

// Has reports whether a name folding to the same form is present.
func (s Set) Has(name string) bool {
	_, ok := s[Fold(name)]
	return ok
}

// Unique returns base if taken reports it free, otherwise the first of
// base_1, base_2, ... that is free.
func Unique(base string, taken func(string) (bool, error)) (string, error) {
	name := base
	for i := 1; ; i++ {
		used, err := taken(name)
		if err != nil {
			return "", err
		}
		if !used {
			return name, nil
		}
		name = base + "_" + strconv.Itoa(i)
	}
}

// UniqueIn is Unique against an in-memory set.
func UniqueIn(base string, set Set) string {
	name, _ := Unique(base, func(n string) (bool, error) { return set.Has(n), nil })
	return name
}
