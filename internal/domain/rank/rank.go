// Package rank defines the competitive tiers players are bucketed by.
package rank

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownRank is returned by Parse for strings that name no tier.
var ErrUnknownRank = errors.New("unknown rank")

// AvgPrefix prefixes the display name of synthetic average records.
const AvgPrefix = "$avg"

// Rank is a competitive tier. The zero value is Z, so a record that never
// had a rank set is bucketed as unranked.
type Rank uint8

// Z (unranked) first, then the tiers in display order and the All (population) sentinel.
const (
	Z Rank = iota
	XPlus
	X
	U
	SS
	SPlus
	S
	SMinus
	APlus
	A
	AMinus
	BPlus
	B
	BMinus
	CPlus
	C
	CMinus
	DPlus
	D
	All
)

// Count is the number of Rank values, sentinels included.
const Count = int(All) + 1

var labels = [Count]string{
	"Z", "X+", "X", "U", "SS", "S+", "S", "S-",
	"A+", "A", "A-", "B+", "B", "B-",
	"C+", "C", "C-", "D+", "D", "ALL",
}

// String returns the tier label, e.g. "S+".
func (r Rank) String() string {
	if !r.Valid() {
		return fmt.Sprintf("Rank(%d)", uint8(r))
	}
	return labels[r]
}

// Ident spells the tier with Plus/Minus, e.g. "SPlus".
func (r Rank) Ident() string {
	if !r.Valid() {
		return Z.Ident()
	}
	s := labels[r]
	s = strings.ReplaceAll(s, "+", "Plus")
	return strings.ReplaceAll(s, "-", "Minus")
}

// AvgName is the display name of the synthetic average for r.
func (r Rank) AvgName() string { return AvgPrefix + r.Ident() }

// Valid reports whether r is a defined value.
func (r Rank) Valid() bool { return int(r) < Count }

// IsTier reports whether r is a real competitive tier (not Z or All).
func (r Rank) IsTier() bool { return r > Z && r < All }

// Parse accepts "s+", "S+", "splus", "SPlus", "z", "all" and so on.
func Parse(s string) (Rank, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	if norm == "" {
		return Z, fmt.Errorf("%w: empty", ErrUnknownRank)
	}
	if norm != "ALL" {
		norm = strings.ReplaceAll(norm, "PLUS", "+")
		norm = strings.ReplaceAll(norm, "MINUS", "-")
	}
	for i, l := range labels {
		if l == norm {
			return Rank(i), nil
		}
	}
	return Z, fmt.Errorf("%w: %q", ErrUnknownRank, s)
}

// ParseOrZ is Parse with unknown input mapped to Z.
func ParseOrZ(s string) Rank {
	r, err := Parse(s)
	if err != nil {
		return Z
	}
	return r
}

// ParseAvgName extracts the rank from a "$avg<Ident>" display name.
func ParseAvgName(name string) (Rank, bool) {
	if len(name) <= len(AvgPrefix) || !strings.EqualFold(name[:len(AvgPrefix)], AvgPrefix) {
		return Z, false
	}
	r, err := Parse(name[len(AvgPrefix):])
	if err != nil {
		return Z, false
	}
	return r, true
}

// Tiers returns the real tiers X+ through D in display order.
func Tiers() []Rank {
	out := make([]Rank, 0, int(All)-1)
	for r := XPlus; r < All; r++ {
		out = append(out, r)
	}
	return out
}

// Display returns the buckets a player can land in: every tier, then Z.
func Display() []Rank {
	return append(Tiers(), Z)
}

// MarshalText encodes the lowercase label, matching the remote API.
func (r Rank) MarshalText() ([]byte, error) {
	return []byte(strings.ToLower(r.String())), nil
}

// UnmarshalText never fails: unknown labels decode to Z.
func (r *Rank) UnmarshalText(b []byte) error {
	*r = ParseOrZ(string(b))
	return nil
}
