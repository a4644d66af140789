// Command assess replays a recorded fixture through the assessment pipeline
// and prints the resulting report. No network calls are made, which makes
// it useful for checking scoring and deduplication changes against known
// inputs.
//
// Usage:
//
//	go run ./cmd/assess -fixture data/fixtures/pune_shivajinagar.json
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/location-intel-service/internal/domain"
	"github.com/couchcryptid/location-intel-service/internal/observability"
	"github.com/couchcryptid/location-intel-service/internal/pipeline"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		log.Fatal(err)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("assess", flag.ContinueOnError)
	fixturePath := fs.String("fixture", "", "path to a recorded fixture JSON file")
	out := fs.String("out", "", "write the report here instead of stdout")
	landUseRadius := fs.Int("landuse-radius", 300, "land-use radius reported in the summary, in meters")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *fixturePath == "" {
		fs.Usage()
		return fmt.Errorf("missing required flag: -fixture")
	}

	f, err := loadFixture(*fixturePath)
	if err != nil {
		return err
	}

	// A fixed clock keeps GeneratedAt reproducible across runs.
	if !f.GeneratedAt.IsZero() {
		domain.SetClock(clockwork.NewFakeClockAt(f.GeneratedAt))
		defer domain.SetClock(nil)
	}

	report, err := assess(context.Background(), f, *landUseRadius)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	data = append(data, '\n')

	if *out == "" {
		_, err = stdout.Write(data)
		return err
	}
	if err := os.WriteFile(*out, data, 0o600); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	log.Printf("wrote report: %s (score %d, %s)", *out, report.Safety.Score, report.Safety.Risk)
	return nil
}

func assess(ctx context.Context, f *fixture, landUseRadius int) (domain.Report, error) {
	src := fixtureSource{f: f, radiusMeters: landUseRadius}
	p := pipeline.New(pipeline.Sources{
		Places:   src,
		LandUse:  src,
		News:     src,
		Geocoder: src,
	}, pipeline.Settings{
		CollaboratorTimeout: 5 * time.Second,
		PlaceDedupMeters:    domain.DefaultPlaceThresholdMeters,
		SimilarityThreshold: domain.DefaultSimilarityThreshold,
		NewsRegion:          "India",
	}, slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting())

	return p.Assess(ctx, f.Lat, f.Lon)
}
