// Package domain holds the aggregation and scoring core of the location
// intelligence service. Everything here is pure: no I/O, no goroutines, no
// shared mutable state beyond the package clock.
//
// # Spatial deduplication
//
// Point-of-interest feeds return the same physical place several times (a
// hospital mapped as a node and as a building way, a clinic inside the
// hospital grounds). [DeduplicatePlaces] visits records in feed order and
// drops any record within 50 m (haversine, Earth radius 6,371,000 m) of an
// already accepted one. The first-seen record stays the representative of
// its cluster; there is no re-ranking by name quality. The result is
// sorted by distance from the query point, rounded to the meter.
//
// # Text deduplication
//
// News feeds syndicate the same story under slightly different headlines.
// [DeduplicateArticles] compares each lowercased title with every accepted
// title using the Ratcliff/Obershelp ratio and drops it when any ratio
// exceeds 0.6. The pass is nearest-prior-neighbor, not transitive: counts
// downstream are calibrated against exactly this behavior.
//
// # Land-use aggregation
//
// Tags are weighted by class (landuse/natural 10, building 1) and mapped to
// seven categories by first-match keyword containment:
//
//	Agriculture          farmland farmyard orchard vineyard meadow greenhouse
//	Residential          residential apartments house detached
//	Commercial & Retail  commercial retail supermarket mall
//	Industrial           industrial warehouse manufacturing brownfield construction
//	Nature & Parks       forest wood nature_reserve park water grass scrub
//	Institutional        institutional education school hospital religious university
//	Mixed / Other        anything else
//
// Roads count toward density but carry no weight. When fewer than 30 weight
// points are mapped, the rest of a 100-point profile is inferred: rural when
// fewer than 15 roads were seen, built-up otherwise.
//
// # Safety score
//
//	score = 85 - min(3*crime, 60) + min(4*police, 15) + min(2*hospitals, 10)
//
// followed by context penalties for missing services, a clamp to [10, 100]
// and truncation. Labels: >=80 Safe, >=60 Moderate, >=40 Caution, else
// High Risk.
package domain
