package domain

import "time"

// SafetySection is the scored safety view of a report with the counts that
// produced it.
type SafetySection struct {
	SafetyAssessment
	PoliceStations  int `json:"police_stations"`
	Hospitals       int `json:"hospitals"`
	CrimeNewsCount  int `json:"crime_news_count"`
	ArticlesFetched int `json:"articles_fetched"`
}

// Report is the full assessment of one coordinate.
type Report struct {
	Query         Geo                        `json:"query"`
	Location      Location                   `json:"location"`
	SummaryCounts map[string]int             `json:"summary"`
	Places        map[string][]SpatialRecord `json:"places"`
	Safety        SafetySection              `json:"safety"`
	LandUse       *LandUseSummary            `json:"landuse,omitempty"`
	Degraded      []string                   `json:"degraded,omitempty"`
	GeneratedAt   time.Time                  `json:"generated_at"`
}

// ReportInput is the cleaned data a report is assembled from. Places must
// already be deduplicated; UniqueArticles is the surviving article count
// and ArticlesFetched the count before deduplication.
type ReportInput struct {
	Query           Geo
	Location        Location
	Places          map[PlaceType][]SpatialRecord
	UniqueArticles  int
	ArticlesFetched int
	LandUse         *LandUseSummary
}

// BuildReport derives summary counts and the safety score from cleaned
// inputs. Every place type is present in the summary, with zero when no
// records were found.
func BuildReport(in ReportInput) Report {
	summary := make(map[string]int, len(PlaceTypes))
	places := make(map[string][]SpatialRecord, len(PlaceTypes))
	for _, pt := range PlaceTypes {
		recs := in.Places[pt]
		if recs == nil {
			recs = []SpatialRecord{}
		}
		summary[pt.SummaryKey()] = len(recs)
		places[pt.SummaryKey()] = recs
	}

	police := len(in.Places[PlacePolice])
	hospitals := len(in.Places[PlaceHospital])

	return Report{
		Query:         in.Query,
		Location:      in.Location,
		SummaryCounts: summary,
		Places:        places,
		Safety: SafetySection{
			SafetyAssessment: ScoreSafety(police, hospitals, in.UniqueArticles),
			PoliceStations:   police,
			Hospitals:        hospitals,
			CrimeNewsCount:   in.UniqueArticles,
			ArticlesFetched:  in.ArticlesFetched,
		},
		LandUse:     in.LandUse,
		GeneratedAt: clock.Now().UTC(),
	}
}
