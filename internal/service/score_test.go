package service

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/amara/cobagage/internal/model"
)

// ─── Test fixtures ──────────────────────────────────────────

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := date(y, m, d)
	return &t
}

func baseColis() *model.Colis {
	return &model.Colis{
		ID:             "c1",
		UserID:         "u1",
		VilleEnvoi:     "Paris",
		VilleReception: "Lyon",
		Poids:          5,
		DateEnvoi:      datePtr(2024, time.June, 1),
		Flexibilite:    1,
		Urgence:        model.UrgencyMedium,
	}
}

func baseTrajet() *model.Trajet {
	return &model.Trajet{
		ID:               "t1",
		UserID:           "u2",
		VilleDepart:      "Paris",
		VilleArrivee:     "Lyon",
		DateVoyage:       date(2024, time.June, 1),
		KilosDisponibles: 10,
		PrixParKilo:      8,
	}
}

func mustMatch(t *testing.T, colis *model.Colis, trajet *model.Trajet) *model.MatchResult {
	t.Helper()
	result, err := CalculateMatch(model.MatchInput{Colis: colis, Trajet: trajet})
	if err != nil {
		t.Fatalf("CalculateMatch: %v", err)
	}
	return result
}

// ─── Reference scenarios ────────────────────────────────────

func TestCalculateMatch_PerfectCitiesAndDate(t *testing.T) {
	// Paris→Lyon, 5kg into 10kg, same day: 25+25+20 primary,
	// weight ratio 2.0 → 12, flexibility 10, urgency 5 → raw 97.
	result := mustMatch(t, baseColis(), baseTrajet())

	b := result.Breakdown
	if b.Primary.Departure.Score != 25 || !b.Primary.Departure.Matched {
		t.Errorf("departure = %+v, want exact 25", b.Primary.Departure)
	}
	if b.Primary.Arrival.Score != 25 || !b.Primary.Arrival.Matched {
		t.Errorf("arrival = %+v, want exact 25", b.Primary.Arrival)
	}
	if b.Primary.Date.Score != 20 || !b.Primary.Date.Matched {
		t.Errorf("date = %+v, want exact 20", b.Primary.Date)
	}
	if b.Secondary.WeightCompatibility.Score != 12 {
		t.Errorf("weight score = %v, want 12 (ratio 2.0)", b.Secondary.WeightCompatibility.Score)
	}
	if b.Secondary.TimeFlexibility.Score != 10 {
		t.Errorf("flexibility score = %v, want 10", b.Secondary.TimeFlexibility.Score)
	}
	if b.Secondary.AcceptableDelay.Score != 5 {
		t.Errorf("urgency score = %v, want 5", b.Secondary.AcceptableDelay.Score)
	}
	if result.Score != 97 {
		t.Errorf("final score = %v, want 97", result.Score)
	}
	if !result.IsRecommended || result.IsExactMatch || !result.IsViable {
		t.Errorf("flags = (rec=%v exact=%v viable=%v), want (true, false, true)",
			result.IsRecommended, result.IsExactMatch, result.IsViable)
	}
	if !b.IsExactPrimaryMatch || b.GuaranteedMinimum != PrimaryMatchGuarantee {
		t.Errorf("guarantee = (%v, %v), want (true, 70)", b.IsExactPrimaryMatch, b.GuaranteedMinimum)
	}
}

func TestCalculateMatch_InfeasibleCapacityStillGuaranteed(t *testing.T) {
	// Capacity below weight zeroes the weight sub-score but the exact
	// primary match still holds the 70 floor; flexibility and urgency
	// keep contributing: 70 + 0 + 10 + 5 = 85.
	trajet := baseTrajet()
	trajet.KilosDisponibles = 4

	result := mustMatch(t, baseColis(), trajet)

	ws := result.Breakdown.Secondary.WeightCompatibility
	if ws.Score != 0 || ws.CanAccommodate {
		t.Errorf("weight = %+v, want score 0 and canAccommodate=false", ws)
	}
	if result.Score != 85 {
		t.Errorf("final score = %v, want 85", result.Score)
	}
}

func TestCalculateMatch_NoDesiredDate(t *testing.T) {
	colis := baseColis()
	colis.DateEnvoi = nil

	result := mustMatch(t, colis, baseTrajet())

	ds := result.Breakdown.Primary.Date
	if ds.Score != 5 || ds.Matched {
		t.Errorf("date = %+v, want neutral 5, matched=false", ds)
	}
	if !ds.DaysDifference.IsInfinite() {
		t.Errorf("daysDifference = %v, want infinite", ds.DaysDifference)
	}
	if got := result.Breakdown.Secondary.TimeFlexibility.Score; got != 0 {
		t.Errorf("flexibility score = %v, want 0 for infinite difference", got)
	}
	if got := result.Breakdown.Secondary.AcceptableDelay.Score; got != 0 {
		t.Errorf("urgency score = %v, want 0 for infinite difference", got)
	}
}

func TestCalculateMatch_FullHundred(t *testing.T) {
	// Perfect fit ratio (≤1.5) lifts secondary to the full 30.
	colis := baseColis()
	colis.Poids = 10

	result := mustMatch(t, colis, baseTrajet())

	if result.Score != 100 {
		t.Errorf("final score = %v, want 100", result.Score)
	}
	if !result.IsExactMatch {
		t.Error("IsExactMatch should be true at 100")
	}
}

// ─── Properties ─────────────────────────────────────────────

func TestCalculateMatch_Deterministic(t *testing.T) {
	colis, trajet := baseColis(), baseTrajet()
	a := mustMatch(t, colis, trajet)
	b := mustMatch(t, colis, trajet)

	if a.Score != b.Score {
		t.Errorf("scores differ: %v vs %v", a.Score, b.Score)
	}
	if *a.Breakdown != *b.Breakdown {
		t.Errorf("breakdowns differ:\n%+v\n%+v", a.Breakdown, b.Breakdown)
	}
}

func TestCalculateMatch_GuaranteeFloor(t *testing.T) {
	// Exact primary match with the worst possible secondary: dateless is
	// impossible here (date must match exactly), so force secondary low
	// via an infeasible capacity and critical urgency on a same-day pair.
	colis := baseColis()
	colis.Urgence = model.UrgencyCritical
	trajet := baseTrajet()
	trajet.KilosDisponibles = 4 // weight sub-score 0

	result := mustMatch(t, colis, trajet)

	if result.Score < PrimaryMatchGuarantee {
		t.Errorf("final score = %v, want >= %v under exact primary match", result.Score, PrimaryMatchGuarantee)
	}
}

func TestCalculateMatch_ScoreBounds(t *testing.T) {
	urgencies := []model.UrgencyLevel{model.UrgencyLow, model.UrgencyMedium, model.UrgencyHigh, model.UrgencyCritical}
	weights := []float64{1, 5, 9.9, 10, 50}
	offsets := []int{0, 1, 2, 3, 4, 10, -2, -6}
	flexes := []int{1, 2, 5, 10}

	for _, u := range urgencies {
		for _, w := range weights {
			for _, off := range offsets {
				for _, f := range flexes {
					colis := baseColis()
					colis.Poids = w
					colis.Urgence = u
					colis.Flexibilite = f
					d := date(2024, time.June, 1).AddDate(0, 0, off)
					colis.DateEnvoi = &d

					result := mustMatch(t, colis, baseTrajet())

					if result.Score < 0 || result.Score > 100 {
						t.Fatalf("score %v out of [0,100] for w=%v off=%d flex=%d urg=%s", result.Score, w, off, f, u)
					}
					if p := result.Breakdown.Primary.Total; p < 0 || p > 70 {
						t.Fatalf("primary total %v out of [0,70]", p)
					}
					if s := result.Breakdown.Secondary.Total; s < 0 || s > 30 {
						t.Fatalf("secondary total %v out of [0,30]", s)
					}
				}
			}
		}
	}
}

func TestDateScore_Monotonic(t *testing.T) {
	// Beyond the matching thresholds, a growing date gap never raises
	// the date sub-score.
	prev := math.Inf(1)
	for off := 0; off <= 12; off++ {
		ds := calculateDateScore(datePtr(2024, time.June, 1), date(2024, time.June, 1+off), 5)
		if ds.Score > prev {
			t.Fatalf("date score increased from %v to %v at offset %d", prev, ds.Score, off)
		}
		prev = ds.Score
	}
}

// ─── Sub-score tables ───────────────────────────────────────

func TestCalculateCityScore(t *testing.T) {
	cases := []struct {
		name        string
		colisCity   string
		trajetCity  string
		wantScore   float64
		wantMatched bool
	}{
		{"exact", "Paris", "Paris", 25, true},
		{"exact after normalization", "  PARIS ", "paris", 25, true},
		{"exact with accents", "Orléans", "Orleans", 25, true},
		{"exact with cedex suffix", "Lyon Cedex", "Lyon", 25, true},
		{"same region", "Paris", "Boulogne-Billancourt", 10, false},
		{"same region lyon", "Villeurbanne", "Lyon", 10, false},
		{"unrelated", "Paris", "Marseille", 0, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := calculateCityScore(c.colisCity, c.trajetCity)
			if got.Score != c.wantScore || got.Matched != c.wantMatched {
				t.Errorf("calculateCityScore(%q, %q) = (score %v, matched %v), want (%v, %v)",
					c.colisCity, c.trajetCity, got.Score, got.Matched, c.wantScore, c.wantMatched)
			}
			if got.Cities.Colis != c.colisCity || got.Cities.Trajet != c.trajetCity {
				t.Errorf("cities should carry the original strings, got %+v", got.Cities)
			}
		})
	}
}

func TestCalculateDateScore_Tiers(t *testing.T) {
	trajetDate := date(2024, time.June, 10)
	cases := []struct {
		name        string
		colisDay    int
		flexibility int
		wantScore   float64
		wantMatched bool
	}{
		{"same day", 10, 1, 20, true},
		{"one day out", 11, 1, 15, true},
		{"one day early", 9, 1, 15, true},
		{"two days out", 12, 1, 10, true},
		{"three days out", 13, 1, 5, true},
		{"four days out, no flexibility", 14, 1, 0, false},
		{"four days inside flexibility", 14, 5, 4, true}, // max(1, 5-(4-3))
		{"seven days inside flexibility", 17, 8, 1, true}, // clamped at 1
		{"outside flexibility", 18, 5, 0, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := calculateDateScore(datePtr(2024, time.June, c.colisDay), trajetDate, c.flexibility)
			if got.Score != c.wantScore || got.Matched != c.wantMatched {
				t.Errorf("day %d flex %d = (score %v, matched %v), want (%v, %v)",
					c.colisDay, c.flexibility, got.Score, got.Matched, c.wantScore, c.wantMatched)
			}
		})
	}
}

func TestCalculateDateScore_IgnoresTimeOfDay(t *testing.T) {
	colisDate := time.Date(2024, time.June, 10, 23, 45, 0, 0, time.UTC)
	trajetDate := time.Date(2024, time.June, 10, 1, 0, 0, 0, time.UTC)
	got := calculateDateScore(&colisDate, trajetDate, 1)
	if got.Score != 20 || got.DaysDifference != 0 {
		t.Errorf("same calendar day = (score %v, diff %v), want (20, 0)", got.Score, got.DaysDifference)
	}
}

func TestCalculateWeightScore_Tiers(t *testing.T) {
	cases := []struct {
		name      string
		weight    float64
		available float64
		wantScore float64
		wantYes   bool
	}{
		{"cannot accommodate", 5, 4, 0, false},
		{"perfect fit", 10, 10, 15, true},
		{"slight excess", 10, 15, 15, true},
		{"good fit", 10, 20, 12, true},
		{"adequate", 10, 30, 10, true},
		{"plenty of space", 10, 50, 8, true},
		{"excessive space", 10, 51, 5, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := calculateWeightScore(c.weight, c.available)
			if got.Score != c.wantScore || got.CanAccommodate != c.wantYes {
				t.Errorf("weight %v into %v = (score %v, canAccommodate %v), want (%v, %v)",
					c.weight, c.available, got.Score, got.CanAccommodate, c.wantScore, c.wantYes)
			}
		})
	}
}

func TestCalculateFlexibilityScore(t *testing.T) {
	cases := []struct {
		daysDiff model.Days
		flex     int
		want     float64
	}{
		{0, 1, 10},
		{1, 1, 5},    // 10 * (1 - 1/2)
		{1, 3, 7.5},  // 10 * (1 - 1/4)
		{2, 3, 5},    // 10 * (1 - 2/4)
		{2, 1, 0},    // outside window
		{model.InfiniteDays, 10, 0},
	}
	for _, c := range cases {
		if got := calculateFlexibilityScore(c.daysDiff, c.flex); got != c.want {
			t.Errorf("flexibility(diff=%v, flex=%d) = %v, want %v", c.daysDiff, c.flex, got, c.want)
		}
	}
}

func TestCalculateUrgencyScore(t *testing.T) {
	cases := []struct {
		daysDiff model.Days
		urgency  model.UrgencyLevel
		want     float64
	}{
		{0, model.UrgencyMedium, 5},
		{2, model.UrgencyMedium, 2.5}, // 5 * (1 - 2/4)
		{3, model.UrgencyMedium, 1.3}, // 5 * (1 - 3/4), rounded
		{4, model.UrgencyMedium, 0},
		{5, model.UrgencyLow, 0.8}, // 5 * (1 - 5/6), rounded
		{6, model.UrgencyLow, 0},
		{1, model.UrgencyHigh, 2.5},
		{2, model.UrgencyHigh, 0},
		{0, model.UrgencyCritical, 5},
		{1, model.UrgencyCritical, 0},
		{model.InfiniteDays, model.UrgencyLow, 0},
	}
	for _, c := range cases {
		if got := calculateUrgencyScore(c.daysDiff, c.urgency); got != c.want {
			t.Errorf("urgency(diff=%v, %s) = %v, want %v", c.daysDiff, c.urgency, got, c.want)
		}
	}
}

// ─── Validation ─────────────────────────────────────────────

func TestCalculateMatch_Validation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*model.Colis, *model.Trajet)
	}{
		{"missing colis id", func(c *model.Colis, _ *model.Trajet) { c.ID = "" }},
		{"missing trajet id", func(_ *model.Colis, tr *model.Trajet) { tr.ID = "" }},
		{"missing villeEnvoi", func(c *model.Colis, _ *model.Trajet) { c.VilleEnvoi = "" }},
		{"missing villeReception", func(c *model.Colis, _ *model.Trajet) { c.VilleReception = "" }},
		{"missing villeDepart", func(_ *model.Colis, tr *model.Trajet) { tr.VilleDepart = "" }},
		{"missing villeArrivee", func(_ *model.Colis, tr *model.Trajet) { tr.VilleArrivee = "" }},
		{"zero poids", func(c *model.Colis, _ *model.Trajet) { c.Poids = 0 }},
		{"negative poids", func(c *model.Colis, _ *model.Trajet) { c.Poids = -1 }},
		{"zero capacity", func(_ *model.Colis, tr *model.Trajet) { tr.KilosDisponibles = 0 }},
		{"zero trajet date", func(_ *model.Colis, tr *model.Trajet) { tr.DateVoyage = time.Time{} }},
		{"unknown urgency", func(c *model.Colis, _ *model.Trajet) { c.Urgence = "extreme" }},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			colis, trajet := baseColis(), baseTrajet()
			c.mutate(colis, trajet)

			_, err := CalculateMatch(model.MatchInput{Colis: colis, Trajet: trajet})
			if err == nil {
				t.Fatal("expected a validation error")
			}
			if !errors.Is(err, ErrInvalidInput) {
				t.Errorf("error %v should wrap ErrInvalidInput", err)
			}
		})
	}
}

func TestCalculateMatch_DefaultsApplyWhenUnset(t *testing.T) {
	colis := baseColis()
	colis.Flexibilite = 0
	colis.Urgence = ""

	result := mustMatch(t, colis, baseTrajet())

	if got := result.Breakdown.Secondary.TimeFlexibility.FlexibilityLevel; got != DefaultFlexibilityDays {
		t.Errorf("flexibility level = %d, want default %d", got, DefaultFlexibilityDays)
	}
	if got := result.Breakdown.Secondary.AcceptableDelay.UrgencyLevel; got != DefaultUrgency {
		t.Errorf("urgency level = %s, want default %s", got, DefaultUrgency)
	}
}
