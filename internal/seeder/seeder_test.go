package seeder

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/kryds/internal/adapters/http/api"
	service "github.com/okian/kryds/internal/app"
	"github.com/okian/kryds/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func quietLogger() logger.Logger {
	return logger.New(logger.WithWriter(io.Discard))
}

func TestGenerate(t *testing.T) {
	Convey("Given a seeded generator", t, func() {
		cfg := &Config{Observers: 3, Sightings: 20, Year: 2024, Seed: 42}

		uploads := Generate(cfg)

		Convey("Then every observer gets its sightings inside the year", func() {
			So(len(uploads), ShouldEqual, 3)
			So(uploads[0].Code, ShouldEqual, "S1")
			for _, u := range uploads {
				So(len(u.Observations), ShouldEqual, 20)
				for _, s := range u.Observations {
					day, err := time.Parse("02-01-2006", s.Date)
					So(err, ShouldBeNil)
					So(day.Year(), ShouldEqual, 2024)
					So(s.TripStart < s.TripEnd, ShouldBeTrue)
				}
			}
		})

		Convey("Then trip notes are stamped on every sighting", func() {
			tagged := Generate(&Config{Observers: 1, Sightings: 5, Year: 2024, Seed: 42, TripNotes: "#boligbirding"})
			for _, s := range tagged[0].Observations {
				So(s.TripNotes, ShouldEqual, "#boligbirding")
			}
			So(uploads[0].Observations[0].TripNotes, ShouldBeEmpty)
		})

		Convey("Then the same seed generates the same data", func() {
			So(Generate(cfg), ShouldResemble, uploads)
		})

		Convey("Then expected totals count distinct species", func() {
			exp := Expected([]Upload{{Code: "A", Observations: []Sighting{
				{Species: "Allike"}, {Species: "Stær"}, {Species: "Allike"},
			}}})
			So(exp, ShouldResemble, map[string]int{"A": 2})
		})
	})
}

func TestVerify(t *testing.T) {
	Convey("Given expected totals", t, func() {
		expected := map[string]int{"A": 3, "B": 3, "C": 1}

		Convey("When the scoreboard agrees", func() {
			n, err := Verify(expected, Scoreboard{Standings: []Standing{
				{Rank: 1, Code: "A", Total: 3},
				{Rank: 1, Code: "B", Total: 3},
				{Rank: 3, Code: "X", Total: 2},
				{Rank: 4, Code: "C", Total: 1},
			}})

			Convey("Then it passes", func() {
				So(err, ShouldBeNil)
				So(n, ShouldEqual, 4)
			})
		})

		Convey("When totals, ranks or observers are off", func() {
			_, err := Verify(expected, Scoreboard{Standings: []Standing{
				{Rank: 1, Code: "A", Total: 2},
				{Rank: 1, Code: "B", Total: 3},
			}})

			Convey("Then every problem is reported", func() {
				So(errors.Is(err, ErrMismatch), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "A has 2 species, want 3")
				So(err.Error(), ShouldContainSubstring, "outscores")
				So(err.Error(), ShouldContainSubstring, "B has rank 1, want 2")
				So(err.Error(), ShouldContainSubstring, "C is missing")
			})
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a running kryds API", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		svc := service.New(
			service.WithLogger(quietLogger()),
			service.WithClock(func() time.Time { return time.Date(2026, time.June, 10, 12, 0, 0, 0, time.UTC) }),
			service.WithLocation(time.UTC),
		)
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		mux := http.NewServeMux()
		api.NewServer(svc, svc, 1<<20, quietLogger()).Register(ctx, mux)
		srv := httptest.NewServer(mux)
		defer srv.Close()

		out := filepath.Join(t.TempDir(), "out", "uploads.json")
		cfg := &Config{
			BaseURL:    srv.URL,
			Observers:  5,
			Sightings:  30,
			Year:       2025,
			Seed:       7,
			Workers:    2,
			Timeout:    5 * time.Second,
			OutputFile: out,
		}

		Convey("When seeding", func() {
			stats, err := Run(ctx, cfg, quietLogger())

			Convey("Then the scoreboard verifies", func() {
				So(err, ShouldBeNil)
				So(stats.ObserversRegistered, ShouldEqual, 5)
				So(stats.UploadsSuccessful, ShouldEqual, 5)
				So(stats.SightingsUploaded, ShouldEqual, 150)
				So(stats.StandingsVerified, ShouldEqual, 5)
			})

			Convey("Then the uploads were saved", func() {
				_, err := os.Stat(out)
				So(err, ShouldBeNil)
			})

			Convey("And seeding again replaces the sightings", func() {
				cfg.Seed = 8
				stats, err := Run(ctx, cfg, quietLogger())
				So(err, ShouldBeNil)
				So(stats.ObserversExisting, ShouldEqual, 5)
			})
		})

		Convey("When the config is unusable", func() {
			cfg.Workers = 0
			_, err := Run(ctx, cfg, quietLogger())
			So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
		})
	})
}
