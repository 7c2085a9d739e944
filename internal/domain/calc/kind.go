package calc

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/okian/osker/internal/domain/model"
)

// ErrUnknownKind is returned by ParseKind.
var ErrUnknownKind = errors.New("unknown metric")

// Kind names one derived metric.
type Kind uint8

const (
	KindAPP Kind = iota
	KindDSSeconds
	KindDSPieces
	KindAPPDSPerPiece
	KindCheeseIndex
	KindGarbageEfficiency
	KindArea
	KindSkillRatingArea
	KindSkillRating
	KindWeightedAPP
	KindVSAPM
	KindOpener
	KindPlonk
	KindStride
	KindInfiniteDownstack
	KindEstimatedGlicko
	KindEstimatedTR
	KindTRAccuracy

	kindCount
)

type kindInfo struct {
	name      string
	precision int
	fn        func(model.Player) float64
}

var kinds = [kindCount]kindInfo{
	KindAPP:               {"app", 4, APP},
	KindDSSeconds:         {"ds_seconds", 4, DSSeconds},
	KindDSPieces:          {"ds_pieces", 4, DSPieces},
	KindAPPDSPerPiece:     {"app_ds_per_piece", 4, APPDSPerPiece},
	KindCheeseIndex:       {"cheese_index", 4, CheeseIndex},
	KindGarbageEfficiency: {"garbage_efficiency", 4, GarbageEfficiency},
	KindArea:              {"area", 4, Area},
	KindSkillRatingArea:   {"skill_rating_area", 4, SkillRatingArea},
	KindSkillRating:       {"skill_rating", 4, SkillRating},
	KindWeightedAPP:       {"weighted_app", 4, WeightedAPP},
	KindVSAPM:             {"vs_apm", 4, VSAPM},
	KindOpener:            {"opener", 4, Opener},
	KindPlonk:             {"plonk", 4, Plonk},
	KindStride:            {"stride", 4, Stride},
	KindInfiniteDownstack: {"infinite_downstack", 4, InfiniteDownstack},
	KindEstimatedGlicko:   {"estimated_glicko", 4, EstimatedGlicko},
	KindEstimatedTR:       {"estimated_tr", 2, EstimatedTR},
	KindTRAccuracy:        {"tr_accuracy", 2, TRAccuracy},
}

// String returns the snake_case metric name.
func (k Kind) String() string {
	if k >= kindCount {
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
	return kinds[k].name
}

// Precision is the number of decimals the metric is displayed with.
func (k Kind) Precision() int {
	if k >= kindCount {
		return 4
	}
	return kinds[k].precision
}

// Kinds lists every metric in display order.
func Kinds() []Kind {
	out := make([]Kind, kindCount)
	for i := range out {
		out[i] = Kind(i)
	}
	return out
}

// ParseKind accepts names like "app", "ds-pieces" or "EstimatedTR".
func ParseKind(s string) (Kind, error) {
	norm := normalizeKind(s)
	for i, k := range kinds {
		if normalizeKind(k.name) == norm {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

func normalizeKind(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("_", "", "-", "", " ", "").Replace(s)
}

// Compute evaluates one metric. Unknown kinds yield NaN.
func Compute(p model.Player, k Kind) float64 {
	if k >= kindCount {
		return math.NaN()
	}
	return kinds[k].fn(p)
}

// Metrics is every derived metric of one record. Values are untruncated.
type Metrics struct {
	APP               float64
	DSSeconds         float64
	DSPieces          float64
	APPDSPerPiece     float64
	CheeseIndex       float64
	GarbageEfficiency float64
	Area              float64
	SkillRatingArea   float64
	SkillRating       float64
	WeightedAPP       float64
	VSAPM             float64
	Opener            float64
	Plonk             float64
	Stride            float64
	InfiniteDownstack float64
	EstimatedGlicko   float64
	EstimatedTR       float64
	TRAccuracy        float64
}

// Derive computes every metric of p.
func Derive(p model.Player) Metrics {
	return Metrics{
		APP:               APP(p),
		DSSeconds:         DSSeconds(p),
		DSPieces:          DSPieces(p),
		APPDSPerPiece:     APPDSPerPiece(p),
		CheeseIndex:       CheeseIndex(p),
		GarbageEfficiency: GarbageEfficiency(p),
		Area:              Area(p),
		SkillRatingArea:   SkillRatingArea(p),
		SkillRating:       SkillRating(p),
		WeightedAPP:       WeightedAPP(p),
		VSAPM:             VSAPM(p),
		Opener:            Opener(p),
		Plonk:             Plonk(p),
		Stride:            Stride(p),
		InfiniteDownstack: InfiniteDownstack(p),
		EstimatedGlicko:   EstimatedGlicko(p),
		EstimatedTR:       EstimatedTR(p),
		TRAccuracy:        TRAccuracy(p),
	}
}

// Get returns the value of metric k.
func (m Metrics) Get(k Kind) float64 {
	switch k {
	case KindAPP:
		return m.APP
	case KindDSSeconds:
		return m.DSSeconds
	case KindDSPieces:
		return m.DSPieces
	case KindAPPDSPerPiece:
		return m.APPDSPerPiece
	case KindCheeseIndex:
		return m.CheeseIndex
	case KindGarbageEfficiency:
		return m.GarbageEfficiency
	case KindArea:
		return m.Area
	case KindSkillRatingArea:
		return m.SkillRatingArea
	case KindSkillRating:
		return m.SkillRating
	case KindWeightedAPP:
		return m.WeightedAPP
	case KindVSAPM:
		return m.VSAPM
	case KindOpener:
		return m.Opener
	case KindPlonk:
		return m.Plonk
	case KindStride:
		return m.Stride
	case KindInfiniteDownstack:
		return m.InfiniteDownstack
	case KindEstimatedGlicko:
		return m.EstimatedGlicko
	case KindEstimatedTR:
		return m.EstimatedTR
	case KindTRAccuracy:
		return m.TRAccuracy
	default:
		return math.NaN()
	}
}
