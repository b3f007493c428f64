package usecase

import (
	"math"

	"urbansetu/model"
)

const (
	esgWeightEnvironmental = 0.4
	esgWeightSocial        = 0.3
	esgWeightGovernance    = 0.3
)

var energyRatingPoints = map[string]float64{
	"A": 30, "B": 25, "C": 20, "D": 15, "E": 10, "F": 5, "G": 0,
}

// ESGBreakdown holds the three 0-100 pillar scores and the weighted composite.
type ESGBreakdown struct {
	Environmental float64 `json:"environmental"`
	Social        float64 `json:"social"`
	Governance    float64 `json:"governance"`
	Composite     float64 `json:"composite"`
}

func roundTo1(v float64) float64 {
	return math.Round(v*10) / 10
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func environmentalScore(e model.ESGEnvironmental) float64 {
	score := energyRatingPoints[e.EnergyRating]
	if e.SolarPanels {
		score += 15
	}
	if e.RainwaterHarvesting {
		score += 15
	}
	if e.WasteManagement {
		score += 10
	}
	if e.GreenCertified {
		score += 15
	}
	score += clamp(e.GreenSpacePercent, 0, 100) * 0.15
	return clamp(score, 0, 100)
}

func socialScore(s model.ESGSocial) float64 {
	var score float64
	if s.Accessibility {
		score += 25
	}
	score += clamp(float64(s.CommunityAmenities), 0, 5) * 5
	score += clamp(float64(s.SafetyFeatures), 0, 5) * 5

	// Unknown distance (zero) earns nothing.
	switch km := s.PublicTransportKm; {
	case km <= 0:
	case km <= 0.5:
		score += 25
	case km <= 1:
		score += 20
	case km <= 2:
		score += 15
	case km <= 5:
		score += 5
	}
	return clamp(score, 0, 100)
}

func governanceScore(g model.ESGGovernance) float64 {
	var score float64
	if g.LegalCompliance {
		score += 25
	}
	if g.ClearTitle {
		score += 25
	}
	if g.RegisteredBuilder {
		score += 20
	}
	score += clamp(float64(g.Transparency), 0, 5) * 6
	return clamp(score, 0, 100)
}

// ScoreESG computes the pillar scores and 0.4E + 0.3S + 0.3G, each rounded
// to one decimal. Nil details score zero.
func ScoreESG(d *model.ESGDetails) ESGBreakdown {
	if d == nil {
		return ESGBreakdown{}
	}
	e := environmentalScore(d.Environmental)
	s := socialScore(d.Social)
	g := governanceScore(d.Governance)
	return ESGBreakdown{
		Environmental: roundTo1(e),
		Social:        roundTo1(s),
		Governance:    roundTo1(g),
		Composite:     roundTo1(esgWeightEnvironmental*e + esgWeightSocial*s + esgWeightGovernance*g),
	}
}
