// Package service contains the core business logic for colis/trajet matching.
package service

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/amara/cobagage/internal/model"
	"github.com/amara/cobagage/pkg/cityname"
)

// ─── Errors ─────────────────────────────────────────────────

var (
	ErrColisNotFound  = errors.New("colis not found")
	ErrTrajetNotFound = errors.New("trajet not found")

	// ErrInvalidInput wraps every validation failure. Raised before any
	// scoring begins; no partial result is ever returned.
	ErrInvalidInput = errors.New("invalid match input")
)

// ─── Constants ──────────────────────────────────────────────

const (
	// PrimaryMatchGuarantee is the floor applied when departure, arrival
	// and date all match exactly (25 + 25 + 20).
	PrimaryMatchGuarantee = 70.0

	// RecommendedThreshold and ViableThreshold derive the result booleans.
	RecommendedThreshold = 70.0
	ViableThreshold      = 50.0
	ExactMatchScore      = 100.0

	// DefaultFlexibilityDays applies when a colis leaves flexibility unset.
	DefaultFlexibilityDays = 1

	// ResultTTL is the advisory lifetime of a match result. The core only
	// stamps ExpiresAt; enforcement lives in the external cache layer.
	ResultTTL = 24 * time.Hour
)

// DefaultUrgency applies when a colis leaves urgency unset.
const DefaultUrgency = model.UrgencyMedium

// urgencyTolerance maps urgency to the tolerated date deviation in days.
// Higher urgency means less tolerance for delay.
var urgencyTolerance = map[model.UrgencyLevel]int{
	model.UrgencyLow:      5,
	model.UrgencyMedium:   3,
	model.UrgencyHigh:     1,
	model.UrgencyCritical: 0,
}

// ─── Match Scorer ───────────────────────────────────────────

// CalculateMatch scores one (colis, trajet) pair.
//
// FINAL_SCORE = PRIMARY (max 70) + SECONDARY (max 30)
//
// Primary criteria: departure city 25, arrival city 25, date 20.
// Secondary criteria: weight fit 15, time flexibility 10, delay tolerance 5.
//
// GUARANTEE: when all three primary criteria match exactly, the final
// score is at least PrimaryMatchGuarantee even if secondary is 0.
//
// Pure over its inputs plus the wall clock (timestamps); safe to call
// concurrently from any number of goroutines.
func CalculateMatch(input model.MatchInput) (*model.MatchResult, error) {
	if err := validateMatchInput(input); err != nil {
		return nil, err
	}

	colis, trajet := input.Colis, input.Trajet

	flexibility := colis.Flexibilite
	if flexibility <= 0 {
		flexibility = DefaultFlexibilityDays
	}
	urgency := colis.Urgence
	if urgency == "" {
		urgency = DefaultUrgency
	}

	// ── Primary criteria (70 points max) ────────────────
	departure := calculateCityScore(colis.VilleEnvoi, trajet.VilleDepart)
	arrival := calculateCityScore(colis.VilleReception, trajet.VilleArrivee)
	date := calculateDateScore(colis.DateEnvoi, trajet.DateVoyage, flexibility)

	primaryTotal := departure.Score + arrival.Score + date.Score

	// ── Secondary criteria (30 points max) ──────────────
	weight := calculateWeightScore(colis.Poids, trajet.KilosDisponibles)
	flexScore := calculateFlexibilityScore(date.DaysDifference, flexibility)
	urgencyScore := calculateUrgencyScore(date.DaysDifference, urgency)

	secondaryTotal := weight.Score + flexScore + urgencyScore

	// ── Final score ─────────────────────────────────────
	rawScore := primaryTotal + secondaryTotal

	isExactPrimary := departure.Score == model.CityMatchExact &&
		arrival.Score == model.CityMatchExact &&
		date.Score == model.DateMatchExact

	finalScore := rawScore
	guaranteedMinimum := 0.0
	if isExactPrimary {
		finalScore = math.Max(rawScore, PrimaryMatchGuarantee)
		guaranteedMinimum = PrimaryMatchGuarantee
	}

	breakdown := &model.MatchScoreBreakdown{
		Primary: model.PrimaryBreakdown{
			Departure: departure,
			Arrival:   arrival,
			Date:      date,
			Total:     primaryTotal,
		},
		Secondary: model.SecondaryBreakdown{
			WeightCompatibility: weight,
			TimeFlexibility: model.FlexibilityScore{
				Score:                 flexScore,
				FlexibilityLevel:      flexibility,
				DaysWithinFlexibility: math.Max(0, float64(flexibility)-float64(date.DaysDifference)),
			},
			AcceptableDelay: model.DelayScore{
				Score:          urgencyScore,
				UrgencyLevel:   urgency,
				DaysDifference: date.DaysDifference,
				Acceptable:     urgencyScore > 0,
			},
			Total: secondaryTotal,
		},
		Final:               finalScore,
		IsExactPrimaryMatch: isExactPrimary,
		GuaranteedMinimum:   guaranteedMinimum,
	}

	now := time.Now()
	return &model.MatchResult{
		ColisID:       colis.ID,
		TrajetID:      trajet.ID,
		Score:         finalScore,
		Breakdown:     breakdown,
		IsRecommended: finalScore >= RecommendedThreshold,
		IsExactMatch:  finalScore == ExactMatchScore,
		IsViable:      finalScore >= ViableThreshold,
		CalculatedAt:  now,
		ExpiresAt:     now.Add(ResultTTL),
	}, nil
}

// ─── Primary criteria ───────────────────────────────────────

// calculateCityScore rates a city pair. Applied identically to the
// departure pair and the arrival pair.
//
//	exact match after normalization → 25
//	same region (alias table)       → 10
//	otherwise                       →  0
func calculateCityScore(colisCity, trajetCity string) model.CityScore {
	pair := model.CityPair{Colis: colisCity, Trajet: trajetCity}

	nColis := cityname.Normalize(colisCity)
	nTrajet := cityname.Normalize(trajetCity)

	if nColis == nTrajet {
		return model.CityScore{Matched: true, Score: model.CityMatchExact, Level: model.CityMatchExact, Cities: pair}
	}
	if cityname.DefaultRegions.Contains(nColis, nTrajet) {
		return model.CityScore{Matched: false, Score: model.CityMatchSameRegion, Level: model.CityMatchSameRegion, Cities: pair}
	}
	return model.CityScore{Matched: false, Score: model.CityMatchNone, Level: model.CityMatchNone, Cities: pair}
}

// calculateDateScore rates date proximity.
//
//	same calendar day  → 20
//	±1 day             → 15
//	±2 days            → 10
//	±3 days            →  5
//	>3 but ≤flexibility → max(1, 5 − (Δ − 3))
//	outside            →  0
//
// A colis with no desired date gets a fixed neutral 5 with an infinite
// day difference.
func calculateDateScore(colisDate *time.Time, trajetDate time.Time, flexibility int) model.DateScore {
	if colisDate == nil || colisDate.IsZero() {
		return model.DateScore{
			Matched:        false,
			Score:          5, // neutral for no date
			Level:          model.DateMatchNone,
			DaysDifference: model.InfiniteDays,
			ColisDate:      nil,
			TrajetDate:     trajetDate,
		}
	}

	daysDiff := calendarDaysBetween(*colisDate, trajetDate)
	ds := model.DateScore{
		DaysDifference: model.Days(daysDiff),
		ColisDate:      colisDate,
		TrajetDate:     trajetDate,
	}

	switch {
	case daysDiff == 0:
		ds.Matched, ds.Score, ds.Level = true, model.DateMatchExact, model.DateMatchExact
	case daysDiff <= 1:
		ds.Matched, ds.Score, ds.Level = true, model.DateMatchPlusMinus1, model.DateMatchPlusMinus1
	case daysDiff <= 2:
		ds.Matched, ds.Score, ds.Level = true, model.DateMatchPlusMinus2, model.DateMatchPlusMinus2
	case daysDiff <= 3:
		ds.Matched, ds.Score, ds.Level = true, model.DateMatchPlusMinus3, model.DateMatchPlusMinus3
	case daysDiff <= float64(flexibility):
		// Partial credit inside the sender's flexibility window.
		ds.Matched = true
		ds.Score = math.Max(1, 5-(daysDiff-3))
		ds.Level = model.DateMatchNone
	default:
		ds.Matched, ds.Score, ds.Level = false, model.DateMatchNone, model.DateMatchNone
	}
	return ds
}

// ─── Secondary criteria ─────────────────────────────────────

// calculateWeightScore rates capacity fit by the available/required ratio.
//
//	ratio ∈ [1, 1.5] → 15 (perfect fit)
//	ratio ≤ 2.0      → 12 (good fit)
//	ratio ≤ 3.0      → 10 (adequate)
//	ratio ≤ 5.0      →  8 (plenty of space)
//	ratio > 5.0      →  5 (excessive; possible data quality issue)
//
// available < required scores 0 with CanAccommodate=false. Candidate
// search pre-filters by capacity, so that branch only fires on direct
// scoring calls.
func calculateWeightScore(packageWeight, availableWeight float64) model.WeightScore {
	ws := model.WeightScore{
		Ratio:           availableWeight / packageWeight,
		PackageWeight:   packageWeight,
		AvailableWeight: availableWeight,
	}

	if availableWeight < packageWeight {
		ws.Score, ws.CanAccommodate = 0, false
		return ws
	}

	ws.CanAccommodate = true
	switch ratio := ws.Ratio; {
	case ratio <= 1.5:
		ws.Score = 15
	case ratio <= 2.0:
		ws.Score = 12
	case ratio <= 3.0:
		ws.Score = 10
	case ratio <= 5.0:
		ws.Score = 8
	default:
		ws.Score = 5
	}
	return ws
}

// calculateFlexibilityScore rewards matches well inside the sender's
// flexibility window.
//
//	score = 10 × (1 − Δ/(flexibility+1)), rounded to one decimal
//
// Δ==0 scores the full 10; Δ beyond the window scores 0. The infinite
// Δ of a dateless colis always lands in the 0 branch.
func calculateFlexibilityScore(daysDifference model.Days, flexibility int) float64 {
	d := float64(daysDifference)
	if d == 0 {
		return 10
	}
	if d > float64(flexibility) {
		return 0
	}
	return round1(10 * (1 - d/float64(flexibility+1)))
}

// calculateUrgencyScore rates how acceptable the date deviation is given
// the sender's urgency.
//
//	score = 5 × (1 − Δ/(tolerance+1)), rounded to one decimal
//
// Critical urgency (tolerance 0) only accepts an exact date.
func calculateUrgencyScore(daysDifference model.Days, urgency model.UrgencyLevel) float64 {
	tolerance := urgencyTolerance[urgency]
	d := float64(daysDifference)

	if d > float64(tolerance) {
		return 0
	}
	if tolerance == 0 {
		if d == 0 {
			return 5
		}
		return 0
	}
	return round1(5 * (1 - d/float64(tolerance+1)))
}

// ─── Helpers ────────────────────────────────────────────────

// calendarDaysBetween returns the absolute difference in whole calendar
// days, ignoring the time-of-day component of both values.
func calendarDaysBetween(a, b time.Time) float64 {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	da := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	db := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return math.Abs(db.Sub(da).Hours() / 24)
}

// round1 rounds to one decimal place.
func round1(x float64) float64 {
	return math.Round(x*10) / 10
}

// validateMatchInput checks required fields before any scoring begins.
func validateMatchInput(input model.MatchInput) error {
	colis, trajet := input.Colis, input.Trajet

	switch {
	case colis == nil || colis.ID == "":
		return fmt.Errorf("%w: colis: missing id", ErrInvalidInput)
	case trajet == nil || trajet.ID == "":
		return fmt.Errorf("%w: trajet: missing id", ErrInvalidInput)
	case colis.VilleEnvoi == "":
		return fmt.Errorf("%w: colis: missing villeEnvoi", ErrInvalidInput)
	case colis.VilleReception == "":
		return fmt.Errorf("%w: colis: missing villeReception", ErrInvalidInput)
	case trajet.VilleDepart == "":
		return fmt.Errorf("%w: trajet: missing villeDepart", ErrInvalidInput)
	case trajet.VilleArrivee == "":
		return fmt.Errorf("%w: trajet: missing villeArrivee", ErrInvalidInput)
	case colis.Poids <= 0:
		return fmt.Errorf("%w: colis: poids must be positive", ErrInvalidInput)
	case trajet.KilosDisponibles <= 0:
		return fmt.Errorf("%w: trajet: kilosDisponibles must be positive", ErrInvalidInput)
	case trajet.DateVoyage.IsZero():
		return fmt.Errorf("%w: trajet: dateVoyage is required", ErrInvalidInput)
	case colis.Urgence != "" && !colis.Urgence.Valid():
		return fmt.Errorf("%w: colis: unknown urgence %q", ErrInvalidInput, colis.Urgence)
	}
	return nil
}
