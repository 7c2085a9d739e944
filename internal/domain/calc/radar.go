package calc

import "github.com/okian/osker/internal/domain/model"

var radarLabels = []string{
	"APM", "PPS", "VS", "APP", "DS/Seconds", "DS/Pieces",
	"APP+DS/Piece", "VS/APM", "Cheese Index", "Garbage Efficiency",
}

// RadarLabels names the axes of Radar in order.
func RadarLabels() []string {
	out := make([]string, len(radarLabels))
	copy(out, radarLabels)
	return out
}

// Radar returns the weighted comparison vector of p, one value per RadarLabels axis.
func Radar(p model.Player) []float64 {
	return []float64{
		p.APM * APMWeight,
		p.PPS * PPSWeight,
		p.VS * VSWeight,
		APP(p) * APPWeight,
		DSSeconds(p) * DSSWeight,
		DSPieces(p) * DSPWeight,
		APPDSPerPiece(p) * DSAPPWeight,
		VSAPM(p) * VSAPMWeight,
		CheeseIndex(p) * CIWeight,
		GarbageEfficiency(p) * GEWeight,
	}
}
