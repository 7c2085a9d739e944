package calc

// Area weights. Each raw or derived stat is scaled by its weight before
// summing into Area; the radar chart uses the same scale per axis.
const (
	APMWeight   = 1.0
	PPSWeight   = 45.0
	VSWeight    = 0.444
	APPWeight   = 185.0
	DSSWeight   = 175.0
	DSPWeight   = 450.0
	DSAPPWeight = 140.0
	VSAPMWeight = 60.0
	CIWeight    = 1.25
	GEWeight    = 315.0
)

// Skill-rating area weights.
const (
	SRAPMWeight = 0.0
	SRPPSWeight = 135.0
	SRVSWeight  = 0.0
	SRAPPWeight = 290.0
	SRDSSWeight = 0.0
	SRDSPWeight = 700.0
	SRGEWeight  = 0.0
)
