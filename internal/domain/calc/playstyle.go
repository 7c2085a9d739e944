package calc

import (
	"math"

	"github.com/okian/osker/internal/domain/model"
)

// Expected rates at a given skill rating. The playstyle metrics compare a
// player's rates with these curves; the coefficients are empirical fits.

func apmBaseline(sr float64) float64 {
	return (0.069 * math.Pow(1.0017, pow5(sr)/4700)) + sr/360
}

func ppsBaseline(sr float64) float64 {
	return 0.0084264*math.Pow(2.14, -2*(sr/2.7+1.03)) - sr/5750 + 0.0067
}

func vsAPMBaseline(sr float64) float64 {
	d := (sr - 16) / 36
	return -(d * d) + 2.133
}

func appBaseline(sr float64) float64 {
	return 0.1368803292*math.Pow(1.0024, pow5(sr)/2800) + sr/54
}

func dsPiecesBaseline(sr float64) float64 {
	return 0.02136327583*math.Pow(14, (sr-14.75)/3.9) + sr/152 + 0.022
}

func geBaseline(sr float64) float64 {
	return sr/350 + 0.005948424455*math.Pow(3.8, (sr-6.1)/4) + 0.006
}

func pow5(x float64) float64 { return x * x * x * x * x }

// deviation holds each rate's relative distance from its expected value.
type deviation struct {
	apm, pps, vsAPM, app, dsPieces, ge float64
}

func deviationOf(p model.Player) deviation {
	sr := SkillRating(p)
	area := SkillRatingArea(p)
	return deviation{
		apm:      (p.APM/area)/apmBaseline(sr) - 1,
		pps:      (p.PPS/area)/ppsBaseline(sr) - 1,
		vsAPM:    VSAPM(p)/vsAPMBaseline(sr) - 1,
		app:      APP(p)/appBaseline(sr) - 1,
		dsPieces: DSPieces(p)/dsPiecesBaseline(sr) - 1,
		ge:       GarbageEfficiency(p)/geBaseline(sr) - 1,
	}
}

// Opener scores how much a player relies on fast, attack-heavy openers.
func Opener(p model.Player) float64 {
	d := deviationOf(p)
	return ((d.apm +
		d.pps*0.75 +
		d.vsAPM*-10 +
		d.app*0.75 +
		d.dsPieces*-0.25) / 3.5) + 0.5
}

// Plonk scores slow, efficient play. Truncated to 4 places.
func Plonk(p model.Player) float64 {
	d := deviationOf(p)
	x := ((d.ge +
		d.app +
		d.dsPieces*0.75 +
		d.pps*-1) / 2.73) + 0.5
	return Truncate(x, 4)
}

// Stride scores fast, low-attack play. Truncated to 4 places.
func Stride(p model.Player) float64 {
	d := deviationOf(p)
	x := ((d.apm*-0.25 +
		d.pps +
		d.app*-2 +
		d.dsPieces*-0.5) * 0.79) + 0.5
	return Truncate(x, 4)
}

// InfiniteDownstack scores reliance on digging. Truncated to 4 places.
func InfiniteDownstack(p model.Player) float64 {
	d := deviationOf(p)
	x := ((d.dsPieces +
		d.app*-0.75 +
		d.apm*0.5 +
		d.vsAPM*1.5 +
		d.pps*0.5) * 0.9) + 0.5
	return Truncate(x, 4)
}
