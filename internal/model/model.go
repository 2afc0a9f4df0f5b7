// Package model contains domain models for the cobagage marketplace.
// These structs map to the PostgreSQL schema defined in migrations/001_create_schema.up.sql.
package model

import (
	"encoding/json"
	"math"
	"time"
)

// ─── Enums ──────────────────────────────────────────────────

// UrgencyLevel is the sender's tolerance for date deviation.
type UrgencyLevel string

const (
	UrgencyLow      UrgencyLevel = "low"
	UrgencyMedium   UrgencyLevel = "medium"
	UrgencyHigh     UrgencyLevel = "high"
	UrgencyCritical UrgencyLevel = "critical"
)

// Valid reports whether u is one of the known urgency levels.
func (u UrgencyLevel) Valid() bool {
	switch u {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return true
	}
	return false
}

// City match levels double as the point values awarded.
const (
	CityMatchExact      = 25.0
	CityMatchSameRegion = 10.0
	CityMatchNone       = 0.0
)

// Date match levels double as the point values awarded.
const (
	DateMatchExact      = 20.0
	DateMatchPlusMinus1 = 15.0
	DateMatchPlusMinus2 = 10.0
	DateMatchPlusMinus3 = 5.0
	DateMatchNone       = 0.0
)

// ─── Days ───────────────────────────────────────────────────

// Days is a day count that may be infinite (package with no desired date).
type Days float64

// InfiniteDays marks an unbounded date difference.
var InfiniteDays = Days(math.Inf(1))

// IsInfinite reports whether the day count is unbounded.
func (d Days) IsInfinite() bool {
	return math.IsInf(float64(d), 1)
}

// MarshalJSON renders infinite day counts as null; encoding/json has no
// representation for +Inf.
func (d Days) MarshalJSON() ([]byte, error) {
	if d.IsInfinite() {
		return []byte("null"), nil
	}
	return json.Marshal(float64(d))
}

// UnmarshalJSON maps null back to InfiniteDays.
func (d *Days) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = InfiniteDays
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*d = Days(v)
	return nil
}

// ─── Domain Models ──────────────────────────────────────────

// UserPublic is the subset of user fields safe to expose alongside a
// counterpart record (for downstream display).
type UserPublic struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Phone *string `json:"phone,omitempty"`
}

// Colis is a shipment request created by a sender. Immutable once it is
// matched against; the matching core never mutates it.
type Colis struct {
	ID             string       `json:"id"`
	UserID         string       `json:"userId"`
	VilleEnvoi     string       `json:"villeEnvoi"`
	VilleReception string       `json:"villeReception"`
	Poids          float64      `json:"poids"` // kilograms, > 0
	DateEnvoi      *time.Time   `json:"dateEnvoi,omitempty"`
	Flexibilite    int          `json:"flexibilite,omitempty"` // days; 0 = unset, defaults to 1
	Urgence        UrgencyLevel `json:"urgence,omitempty"`     // "" = unset, defaults to medium
	User           *UserPublic  `json:"user,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
	UpdatedAt      time.Time    `json:"updatedAt"`
}

// Trajet is a travel offer created by a traveler.
type Trajet struct {
	ID               string      `json:"id"`
	UserID           string      `json:"userId"`
	VilleDepart      string      `json:"villeDepart"`
	VilleArrivee     string      `json:"villeArrivee"`
	DateVoyage       time.Time   `json:"dateVoyage"`       // required, always concrete
	KilosDisponibles float64     `json:"kilosDisponibles"` // kilograms, > 0
	PrixParKilo      float64     `json:"prixParKilo"`
	User             *UserPublic `json:"user,omitempty"`
	CreatedAt        time.Time   `json:"createdAt"`
	UpdatedAt        time.Time   `json:"updatedAt"`
}

// MatchInput is the ephemeral pairing of one Colis and one Trajet.
// Not persisted.
type MatchInput struct {
	Colis  *Colis  `json:"colis"`
	Trajet *Trajet `json:"trajet"`
}

// ─── Matching DTOs ──────────────────────────────────────────

// DateWindow is an inclusive [Start, End] search window.
type DateWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// MatchOptions controls a batch search.
type MatchOptions struct {
	MinScore         float64 `json:"minScore,omitempty"`         // 0–100, default 0
	Limit            int     `json:"limit,omitempty"`            // default: no limit
	DateSearchRadius int     `json:"dateSearchRadius,omitempty"` // days, default from config
	IncludeBreakdown *bool   `json:"includeBreakdown,omitempty"` // default true; colis direction only
}

// WantBreakdown reports whether breakdowns should be included (default true).
func (o MatchOptions) WantBreakdown() bool {
	return o.IncludeBreakdown == nil || *o.IncludeBreakdown
}

// CityPair carries the original (non-normalized) city strings for diagnostics.
type CityPair struct {
	Colis  string `json:"colis"`
	Trajet string `json:"trajet"`
}

// CityScore is the departure or arrival sub-score.
// Matched is true only on an exact match after normalization.
type CityScore struct {
	Matched bool     `json:"matched"`
	Score   float64  `json:"score"`
	Level   float64  `json:"level"`
	Cities  CityPair `json:"cities"`
}

// DateScore is the date proximity sub-score.
type DateScore struct {
	Matched        bool       `json:"matched"`
	Score          float64    `json:"score"`
	Level          float64    `json:"level"`
	DaysDifference Days       `json:"daysDifference"`
	ColisDate      *time.Time `json:"colisDate"`
	TrajetDate     time.Time  `json:"trajetDate"`
}

// WeightScore is the weight compatibility sub-score.
type WeightScore struct {
	Score           float64 `json:"score"`
	Ratio           float64 `json:"ratio"`
	PackageWeight   float64 `json:"packageWeight"`
	AvailableWeight float64 `json:"availableWeight"`
	CanAccommodate  bool    `json:"canAccommodate"`
}

// FlexibilityScore is the time flexibility sub-score.
type FlexibilityScore struct {
	Score                 float64 `json:"score"`
	FlexibilityLevel      int     `json:"flexibilityLevel"`
	DaysWithinFlexibility float64 `json:"daysWithinFlexibility"`
}

// DelayScore is the urgency / acceptable delay sub-score.
type DelayScore struct {
	Score          float64      `json:"score"`
	UrgencyLevel   UrgencyLevel `json:"urgencyLevel"`
	DaysDifference Days         `json:"daysDifference"`
	Acceptable     bool         `json:"acceptable"`
}

// PrimaryBreakdown groups the first 70 points of the score.
type PrimaryBreakdown struct {
	Departure CityScore `json:"departure"`
	Arrival   CityScore `json:"arrival"`
	Date      DateScore `json:"date"`
	Total     float64   `json:"total"`
}

// SecondaryBreakdown groups the remaining 30 points.
type SecondaryBreakdown struct {
	WeightCompatibility WeightScore      `json:"weightCompatibility"`
	TimeFlexibility     FlexibilityScore `json:"timeFlexibility"`
	AcceptableDelay     DelayScore       `json:"acceptableDelay"`
	Total               float64          `json:"total"`
}

// MatchScoreBreakdown records every sub-score of a scoring call.
// Produced fresh per call; never mutated afterward.
type MatchScoreBreakdown struct {
	Primary             PrimaryBreakdown   `json:"primary"`
	Secondary           SecondaryBreakdown `json:"secondary"`
	Final               float64            `json:"final"`
	IsExactPrimaryMatch bool               `json:"isExactPrimaryMatch"`
	GuaranteedMinimum   float64            `json:"guaranteedMinimum"`
}

// MatchResult is the scored outcome for one (colis, trajet) pair.
// Breakdown is nil when the caller opted out of it.
type MatchResult struct {
	ColisID       string               `json:"colisId"`
	TrajetID      string               `json:"trajetId"`
	Score         float64              `json:"score"`
	Breakdown     *MatchScoreBreakdown `json:"breakdown"`
	IsRecommended bool                 `json:"isRecommended"` // score >= 70
	IsExactMatch  bool                 `json:"isExactMatch"`  // score == 100
	IsViable      bool                 `json:"isViable"`      // score >= 50
	CalculatedAt  time.Time            `json:"calculatedAt"`
	ExpiresAt     time.Time            `json:"expiresAt"` // advisory: CalculatedAt + 24h
}

// SearchParams echoes the window a colis-direction search used.
type SearchParams struct {
	DateRange DateWindow `json:"dateRange"`
	MinWeight float64    `json:"minWeight"`
}

// ColisMatchResults is the aggregate for a package-direction search.
type ColisMatchResults struct {
	ColisID            string        `json:"colisId"`
	TotalMatches       int           `json:"totalMatches"`
	RecommendedMatches int           `json:"recommendedMatches"`
	ExactMatches       int           `json:"exactMatches"`
	Matches            []MatchResult `json:"matches"`
	SearchParams       SearchParams  `json:"searchParams"`
	GeneratedAt        time.Time     `json:"generatedAt"`
}

// TrajetMatchResults is the aggregate for a trip-direction search.
type TrajetMatchResults struct {
	TrajetID           string        `json:"trajetId"`
	TotalMatches       int           `json:"totalMatches"`
	RecommendedMatches int           `json:"recommendedMatches"`
	ExactMatches       int           `json:"exactMatches"`
	Matches            []MatchResult `json:"matches"`
	GeneratedAt        time.Time     `json:"generatedAt"`
}
