// Package model contains domain models passed between layers.
package model

import "github.com/okian/osker/internal/domain/rank"

// Player is one raw ranking record: the three performance rates plus the
// optional rating values supplied by the ranking API.
//
// Derived metrics need PPS > 0 and APM >= 0; other inputs yield NaN or Inf.
type Player struct {
	ID        string    `json:"id,omitempty"`
	Name      string    `json:"name,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	APM       float64   `json:"apm"`
	PPS       float64   `json:"pps"`
	VS        float64   `json:"vs"`
	Rank      rank.Rank `json:"rank"`
	TR        *float64  `json:"tr,omitempty"`
	Glicko    *float64  `json:"glicko,omitempty"`
	RD        *float64  `json:"rd,omitempty"`
	Synthetic bool      `json:"synthetic"`
}

// FromStats builds a stat-only record with no identity, rank or ratings.
func FromStats(apm, pps, vs float64) Player {
	return Player{APM: apm, PPS: pps, VS: vs, Rank: rank.Z, Synthetic: true}
}

// Float returns a pointer to v for the optional fields.
func Float(v float64) *float64 { return &v }

// HasRating reports whether the record carries a true rating.
func (p Player) HasRating() bool { return p.TR != nil }
