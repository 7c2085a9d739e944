// Package types contains the serialized views of domain records.
package types

import (
	"math"

	"github.com/okian/osker/internal/domain/calc"
	"github.com/okian/osker/internal/domain/model"
)

// MetricsView is calc.Metrics truncated for display. Undefined metrics are null.
type MetricsView struct {
	APP               *float64 `json:"app"`
	DSSeconds         *float64 `json:"ds_seconds"`
	DSPieces          *float64 `json:"ds_pieces"`
	APPDSPerPiece     *float64 `json:"app_ds_per_piece"`
	CheeseIndex       *float64 `json:"cheese_index"`
	GarbageEfficiency *float64 `json:"garbage_efficiency"`
	Area              *float64 `json:"area"`
	SkillRatingArea   *float64 `json:"skill_rating_area"`
	SkillRating       *float64 `json:"skill_rating"`
	WeightedAPP       *float64 `json:"weighted_app"`
	VSAPM             *float64 `json:"vs_apm"`
	Opener            *float64 `json:"opener"`
	Plonk             *float64 `json:"plonk"`
	Stride            *float64 `json:"stride"`
	InfiniteDownstack *float64 `json:"infinite_downstack"`
	EstimatedGlicko   *float64 `json:"estimated_glicko"`
	EstimatedTR       *float64 `json:"estimated_tr"`
	// TRAccuracy is omitted for records without a TR.
	TRAccuracy *float64 `json:"tr_accuracy,omitempty"`
}

// PlayerView is a record with its derived metrics.
type PlayerView struct {
	ID        string      `json:"id,omitempty"`
	Name      string      `json:"name,omitempty"`
	AvatarURL string      `json:"avatar_url,omitempty"`
	Rank      string      `json:"rank"`
	APM       *float64    `json:"apm"`
	PPS       *float64    `json:"pps"`
	VS        *float64    `json:"vs"`
	TR        *float64    `json:"tr,omitempty"`
	Glicko    *float64    `json:"glicko,omitempty"`
	RD        *float64    `json:"rd,omitempty"`
	Synthetic bool        `json:"synthetic"`
	Metrics   MetricsView `json:"metrics"`
}

// Entry is one leaderboard row.
type Entry struct {
	Position int        `json:"position"`
	Player   PlayerView `json:"player"`
}

// MetricValue is a single computed metric.
type MetricValue struct {
	Player string   `json:"player,omitempty"`
	Metric string   `json:"metric"`
	Value  *float64 `json:"value"`
}

// Finite returns a pointer to v, or nil when v is NaN or infinite.
func Finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Display truncates v to the precision of metric k; non-finite values become nil.
func Display(v float64, k calc.Kind) *float64 {
	return Finite(calc.Truncate(v, k.Precision()))
}

func optional(v *float64, precision int) *float64 {
	if v == nil {
		return nil
	}
	return Finite(calc.Truncate(*v, precision))
}

// NewMetricsView truncates every metric of m.
func NewMetricsView(m calc.Metrics, hasRating bool) MetricsView {
	v := MetricsView{
		APP:               Display(m.APP, calc.KindAPP),
		DSSeconds:         Display(m.DSSeconds, calc.KindDSSeconds),
		DSPieces:          Display(m.DSPieces, calc.KindDSPieces),
		APPDSPerPiece:     Display(m.APPDSPerPiece, calc.KindAPPDSPerPiece),
		CheeseIndex:       Display(m.CheeseIndex, calc.KindCheeseIndex),
		GarbageEfficiency: Display(m.GarbageEfficiency, calc.KindGarbageEfficiency),
		Area:              Display(m.Area, calc.KindArea),
		SkillRatingArea:   Display(m.SkillRatingArea, calc.KindSkillRatingArea),
		SkillRating:       Display(m.SkillRating, calc.KindSkillRating),
		WeightedAPP:       Display(m.WeightedAPP, calc.KindWeightedAPP),
		VSAPM:             Display(m.VSAPM, calc.KindVSAPM),
		Opener:            Display(m.Opener, calc.KindOpener),
		Plonk:             Display(m.Plonk, calc.KindPlonk),
		Stride:            Display(m.Stride, calc.KindStride),
		InfiniteDownstack: Display(m.InfiniteDownstack, calc.KindInfiniteDownstack),
		EstimatedGlicko:   Display(m.EstimatedGlicko, calc.KindEstimatedGlicko),
		EstimatedTR:       Display(m.EstimatedTR, calc.KindEstimatedTR),
	}
	if hasRating {
		v.TRAccuracy = Display(m.TRAccuracy, calc.KindTRAccuracy)
	}
	return v
}

// NewPlayerView builds the view of p, computing its metrics.
func NewPlayerView(p model.Player) PlayerView {
	return PlayerView{
		ID:        p.ID,
		Name:      p.Name,
		AvatarURL: p.AvatarURL,
		Rank:      p.Rank.String(),
		APM:       optional(&p.APM, 2),
		PPS:       optional(&p.PPS, 2),
		VS:        optional(&p.VS, 2),
		TR:        optional(p.TR, 2),
		Glicko:    optional(p.Glicko, 2),
		RD:        optional(p.RD, 2),
		Synthetic: p.Synthetic,
		Metrics:   NewMetricsView(calc.Derive(p), p.HasRating()),
	}
}

// NewPlayerViews maps NewPlayerView over players.
func NewPlayerViews(players []model.Player) []PlayerView {
	out := make([]PlayerView, len(players))
	for i, p := range players {
		out[i] = NewPlayerView(p)
	}
	return out
}

// Get returns the displayed value of metric k.
func (v MetricsView) Get(k calc.Kind) *float64 {
	switch k {
	case calc.KindAPP:
		return v.APP
	case calc.KindDSSeconds:
		return v.DSSeconds
	case calc.KindDSPieces:
		return v.DSPieces
	case calc.KindAPPDSPerPiece:
		return v.APPDSPerPiece
	case calc.KindCheeseIndex:
		return v.CheeseIndex
	case calc.KindGarbageEfficiency:
		return v.GarbageEfficiency
	case calc.KindArea:
		return v.Area
	case calc.KindSkillRatingArea:
		return v.SkillRatingArea
	case calc.KindSkillRating:
		return v.SkillRating
	case calc.KindWeightedAPP:
		return v.WeightedAPP
	case calc.KindVSAPM:
		return v.VSAPM
	case calc.KindOpener:
		return v.Opener
	case calc.KindPlonk:
		return v.Plonk
	case calc.KindStride:
		return v.Stride
	case calc.KindInfiniteDownstack:
		return v.InfiniteDownstack
	case calc.KindEstimatedGlicko:
		return v.EstimatedGlicko
	case calc.KindEstimatedTR:
		return v.EstimatedTR
	case calc.KindTRAccuracy:
		return v.TRAccuracy
	default:
		return nil
	}
}
