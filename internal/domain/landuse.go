package domain

import (
	"math"
	"strconv"
	"strings"
)

// Category is a land-use class in the fixed aggregation taxonomy.
type Category string

const (
	CategoryAgriculture   Category = "Agriculture"
	CategoryResidential   Category = "Residential"
	CategoryCommercial    Category = "Commercial & Retail"
	CategoryIndustrial    Category = "Industrial"
	CategoryNature        Category = "Nature & Parks"
	CategoryInstitutional Category = "Institutional"
	CategoryMixed         Category = "Mixed / Other"
)

// Categories lists every category in declaration order. Ties for the
// dominant category resolve to the earlier entry.
var Categories = []Category{
	CategoryAgriculture,
	CategoryResidential,
	CategoryCommercial,
	CategoryIndustrial,
	CategoryNature,
	CategoryInstitutional,
	CategoryMixed,
}

// categoryKeywords is checked top to bottom; the first category with a
// keyword contained in the tag wins. Order matters: "greenhouse" must hit
// Agriculture before "house" hits Residential.
var categoryKeywords = []struct {
	category Category
	keywords []string
}{
	{CategoryAgriculture, []string{"farmland", "farmyard", "orchard", "vineyard", "meadow", "greenhouse"}},
	{CategoryResidential, []string{"residential", "apartments", "house", "detached"}},
	{CategoryCommercial, []string{"commercial", "retail", "supermarket", "mall"}},
	{CategoryIndustrial, []string{"industrial", "warehouse", "manufacturing", "brownfield", "construction"}},
	{CategoryNature, []string{"forest", "wood", "nature_reserve", "park", "water", "grass", "scrub"}},
	{CategoryInstitutional, []string{"institutional", "education", "school", "hospital", "religious", "university"}},
}

const (
	// LandUseTagWeight applies to landuse=* and natural=* features.
	LandUseTagWeight = 10.0
	// BuildingTagWeight applies to building=* features.
	BuildingTagWeight = 1.0

	sparseWeightThreshold = 30.0
	builtUpRoadThreshold  = 15
	inferredTotalWeight   = 100.0
)

// ignoredRoadKinds are highway subtypes that are neither weighted nor
// counted as roads.
var ignoredRoadKinds = map[string]bool{
	"track":   true,
	"path":    true,
	"footway": true,
}

// TaggedFeature is a land-use, natural, building or highway element reduced
// to its primary tag and weight.
type TaggedFeature struct {
	PrimaryTag string  `json:"primary_tag"`
	Weight     float64 `json:"weight"`
	IsRoad     bool    `json:"is_road"`
	RoadKind   string  `json:"road_kind,omitempty"`
}

// ClassifyTag resolves a primary tag to its category by first-match
// containment against the keyword table.
func ClassifyTag(tag string) Category {
	for _, entry := range categoryKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(tag, kw) {
				return entry.category
			}
		}
	}
	return CategoryMixed
}

// CategoryProfile accumulates weight per category. The sum of Weights always
// equals TotalWeight.
type CategoryProfile struct {
	Weights     map[Category]float64
	TotalWeight float64
}

// NewCategoryProfile returns a profile with every category at zero.
func NewCategoryProfile() *CategoryProfile {
	w := make(map[Category]float64, len(Categories))
	for _, c := range Categories {
		w[c] = 0
	}
	return &CategoryProfile{Weights: w}
}

// Add credits weight to a category and to the total.
func (p *CategoryProfile) Add(c Category, weight float64) {
	p.Weights[c] += weight
	p.TotalWeight += weight
}

// LandUseDiagnostics explains how a land-use summary was derived.
type LandUseDiagnostics struct {
	IsRuralInferred bool    `json:"is_rural_deduced"`
	RoadCount       int     `json:"paved_roads_found"`
	MappedWeight    float64 `json:"mapped_structures_weight"`
}

// LandUseSummary is the aggregated land-use profile around a coordinate.
type LandUseSummary struct {
	RadiusMeters   int                  `json:"radius_meters,omitempty"`
	DominantZone   Category             `json:"dominant_zone"`
	ContextSummary string               `json:"ai_context_summary"`
	Percentages    map[Category]float64 `json:"area_profile_percentages"`
	Diagnostics    LandUseDiagnostics   `json:"diagnostics"`
}

// AggregateLandUse folds tagged features into a category profile.
//
// Roads other than tracks, paths and footways are counted but carry no
// weight. When the observed weight is below 30 the remainder up to 100 is
// inferred: rural (85% Agriculture, 15% Nature & Parks) when fewer than 15
// roads were seen, built-up (80% Residential, 20% Commercial & Retail)
// otherwise. MappedWeight reports the observed weight before inference.
func AggregateLandUse(features []TaggedFeature) (LandUseSummary, error) {
	profile := NewCategoryProfile()
	roads := 0

	for _, f := range features {
		if f.IsRoad {
			if !ignoredRoadKinds[f.RoadKind] {
				roads++
			}
			continue
		}
		if f.PrimaryTag == "" || f.Weight <= 0 {
			continue
		}
		profile.Add(ClassifyTag(f.PrimaryTag), f.Weight)
	}

	observed := profile.TotalWeight
	rural := false
	if observed < sparseWeightThreshold {
		missing := inferredTotalWeight - observed
		if roads < builtUpRoadThreshold {
			rural = true
			profile.Weights[CategoryAgriculture] += missing * 0.85
			profile.Weights[CategoryNature] += missing * 0.15
		} else {
			profile.Weights[CategoryResidential] += missing * 0.80
			profile.Weights[CategoryCommercial] += missing * 0.20
		}
		profile.TotalWeight += missing
	}

	if profile.TotalWeight == 0 {
		return LandUseSummary{}, ErrInsufficientData
	}

	percentages := make(map[Category]float64, len(Categories))
	dominant := Categories[0]
	for _, c := range Categories {
		pct := roundTo(profile.Weights[c]/profile.TotalWeight*100, 1)
		percentages[c] = pct
		if pct > percentages[dominant] {
			dominant = c
		}
	}

	return LandUseSummary{
		DominantZone:   dominant,
		ContextSummary: "Context: " + strconv.FormatFloat(percentages[dominant], 'f', 1, 64) + "% " + string(dominant) + " environment.",
		Percentages:    percentages,
		Diagnostics: LandUseDiagnostics{
			IsRuralInferred: rural,
			RoadCount:       roads,
			MappedWeight:    roundTo(observed, 1),
		},
	}, nil
}

func roundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
