// Package calc derives advanced statistics from a player's raw rates.
//
// Every function is pure and evaluates its formula in a fixed order so
// results are reproducible to the last truncated digit. Degenerate inputs
// (APM or PPS of zero) produce NaN or Inf; nothing here panics.
package calc

import (
	"math"

	"github.com/okian/osker/internal/domain/model"
)

// glickoScale is the denominator of the Glicko to TR logistic.
var glickoScale = math.Sqrt((3*(math.Ln10*math.Ln10))*(60*60) + 2500*((64*(math.Pi*math.Pi))+(147*(math.Ln10*math.Ln10))))

// Truncate rounds x to n decimal places.
func Truncate(x float64, n int) float64 {
	f := math.Pow(10, float64(n))
	return math.Round(x*f) / f
}

// APP is attack per piece.
func APP(p model.Player) float64 {
	return p.APM / (p.PPS * 60)
}

// DSSeconds is downstack per second.
func DSSeconds(p model.Player) float64 {
	return (p.VS / 100) - (p.APM / 60)
}

// DSPieces is downstack per piece.
func DSPieces(p model.Player) float64 {
	return DSSeconds(p) / p.PPS
}

// APPDSPerPiece is attack plus downstack per piece.
func APPDSPerPiece(p model.Player) float64 {
	return DSPieces(p) + APP(p)
}

// CheeseIndex estimates how messy the garbage a player sends is.
func CheeseIndex(p model.Player) float64 {
	return (DSPieces(p) * 150) + ((VSAPM(p) - 2) * 50) + ((0.6 - APP(p)) * 125)
}

// GarbageEfficiency is how well a player uses received garbage.
func GarbageEfficiency(p model.Player) float64 {
	return ((APP(p) * DSSeconds(p)) / p.PPS) * 2
}

// Area is the weighted sum of every rate.
func Area(p model.Player) float64 {
	return p.APM*APMWeight +
		p.PPS*PPSWeight +
		p.VS*VSWeight +
		APP(p)*APPWeight +
		DSSeconds(p)*DSSWeight +
		DSPieces(p)*DSPWeight +
		GarbageEfficiency(p)*GEWeight
}

// SkillRatingArea is Area with the skill-rating weights.
func SkillRatingArea(p model.Player) float64 {
	return p.APM*SRAPMWeight +
		p.PPS*SRPPSWeight +
		p.VS*SRVSWeight +
		APP(p)*SRAPPWeight +
		DSSeconds(p)*SRDSSWeight +
		DSPieces(p)*SRDSPWeight +
		GarbageEfficiency(p)*SRGEWeight
}

// SkillRating maps SkillRatingArea onto a bounded scale. The floor is 0.001.
func SkillRating(p model.Player) float64 {
	sr := 11.2*math.Atan((SkillRatingArea(p)-93)/130) + 1
	if sr <= 0 {
		return 0.001
	}
	return sr
}

// WeightedAPP is APP discounted by the cheese index.
func WeightedAPP(p model.Player) float64 {
	return APP(p) - 5*math.Tan(((CheeseIndex(p)/-30)+1)*math.Pi/180)
}

// VSAPM is versus score per attack.
func VSAPM(p model.Player) float64 {
	return p.VS / p.APM
}

// EstimatedGlicko fits a Glicko rating from the rates alone.
func EstimatedGlicko(p model.Player) float64 {
	x := p.PPS*(150+((VSAPM(p)-1.66)*35)) + APP(p)*290 + DSPieces(p)*700
	return 0.000013*(x*x*x) - 0.0196*(x*x) + (12.645 * x) - 1005.4
}

// EstimatedTR converts EstimatedGlicko to the 0..25000 TR scale.
func EstimatedTR(p model.Player) float64 {
	return 25000 / (1 + math.Pow(10, ((1500-EstimatedGlicko(p))*math.Pi)/glickoScale))
}

// TRAccuracy is EstimatedTR minus the actual TR, or 0 without a TR.
func TRAccuracy(p model.Player) float64 {
	if p.TR == nil {
		return 0
	}
	return EstimatedTR(p) - *p.TR
}
