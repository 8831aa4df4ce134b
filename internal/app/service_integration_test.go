package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	service "github.com/okian/kryds/internal/app"
	"github.com/okian/kryds/internal/domain/datenorm"
	"github.com/okian/kryds/internal/domain/matrix"
	"github.com/okian/kryds/internal/domain/model"
	"github.com/okian/kryds/internal/domain/projection"
	"github.com/okian/kryds/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func sighting(species string, m time.Month, d int) model.Observation {
	return model.Observation{Species: species, Date: datenorm.Date{Year: 2026, Month: m, Day: d}}
}

func seed(ctx context.Context, svc *service.Service) {
	So(svc.AddObserver(ctx, "X", "Xenia"), ShouldBeNil)
	So(svc.AddObserver(ctx, "Y", ""), ShouldBeNil)
	So(svc.AddObserver(ctx, "Z", ""), ShouldBeNil)

	_, err := svc.ReplaceObservations(ctx, "X", []model.Observation{
		sighting("Allike", time.January, 5),
		sighting("Solsort, han", time.March, 10),
		sighting("Måge sp.", time.March, 11),
	})
	So(err, ShouldBeNil)
	_, err = svc.ReplaceObservations(ctx, "Y", []model.Observation{sighting("Allike", time.January, 7)})
	So(err, ShouldBeNil)
	_, err = svc.ReplaceObservations(ctx, "Z", []model.Observation{sighting("Stær", time.February, 1)})
	So(err, ShouldBeNil)
}

func TestServiceIntegration(t *testing.T) {
	Convey("Given a service with three observers", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		svc := newService()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()
		seed(ctx, svc)

		Convey("When building the matrix", func() {
			m, err := svc.Matrix(ctx, 0)

			Convey("Then species are reduced and cells hold DD-MM-YYYY", func() {
				So(err, ShouldBeNil)
				So(m.Year, ShouldEqual, 2026)
				So(m.Species, ShouldResemble, []string{"Allike", "Solsort", "Stær"})
				So(m.Cells[1], ShouldResemble, []string{"10-03-2026", "", ""})
			})
		})

		Convey("When computing the scoreboard for everybody", func() {
			sb, err := svc.Scoreboard(ctx, service.Query{})
			So(err, ShouldBeNil)

			Convey("Then standings are ranked with shared places", func() {
				So(len(sb.Standings), ShouldEqual, 3)
				So(sb.Standings[0].Code, ShouldEqual, "X")
				So(sb.Standings[0].Rank, ShouldEqual, 1)
				So(sb.Standings[0].Name, ShouldEqual, "Xenia")
				So(sb.Standings[1].Rank, ShouldEqual, 2)
				So(sb.Standings[2].Rank, ShouldEqual, 2)
			})

			Convey("Then blockers and latest crossings are listed", func() {
				So(sb.Standings[0].Blockers, ShouldResemble, []string{"Solsort"})
				So(sb.Standings[1].Blockers, ShouldResemble, []string{})
				So(sb.Standings[0].Latest[0].Species, ShouldEqual, "Solsort")
				So(sb.Standings[0].Latest[1].Raw, ShouldEqual, "05-01-2026")
			})

			Convey("Then species rows carry scarcity", func() {
				So(sb.Species[0].Species, ShouldEqual, "Allike")
				So(sb.Species[0].Tier, ShouldEqual, matrix.TierPair)
				So(sb.Species[0].Cells, ShouldResemble, map[string]string{"X": "05-01-2026", "Y": "07-01-2026"})
			})
		})

		Convey("When the selection is empty", func() {
			sb, err := svc.Scoreboard(ctx, service.Query{Observers: []string{}})
			So(err, ShouldBeNil)
			tl, err := svc.Timeline(ctx, service.Query{Observers: []string{}})
			So(err, ShouldBeNil)

			Convey("Then every aggregate is empty", func() {
				So(sb.Standings, ShouldBeEmpty)
				So(sb.Species, ShouldBeEmpty)
				So(tl.Days, ShouldBeEmpty)
				So(tl.Leaders, ShouldBeEmpty)
			})
		})

		Convey("When sorting species by latest for Y and Z", func() {
			sb, err := svc.Scoreboard(ctx, service.Query{Observers: []string{"Y", "Z"}, Sort: projection.SortLatest})
			So(err, ShouldBeNil)

			Convey("Then only their species appear, newest first", func() {
				So(len(sb.Species), ShouldEqual, 2)
				So(sb.Species[0].Species, ShouldEqual, "Stær")
				So(sb.Species[1].Tier, ShouldEqual, matrix.TierSingle)
			})
		})

		Convey("When computing the timeline", func() {
			tl, err := svc.Timeline(ctx, service.Query{})
			So(err, ShouldBeNil)

			Convey("Then it runs from January 1 to today", func() {
				So(len(tl.Days), ShouldEqual, 161)
				So(tl.Days[0], ShouldEqual, "01-01-2026")
				So(tl.Days[160], ShouldEqual, "10-06-2026")
				So(tl.Series["X"][160], ShouldEqual, 2)
				So(tl.Leaders[5], ShouldResemble, []string{"X"})
				So(tl.Leaders[0], ShouldResemble, []string{"X", "Y", "Z"})
			})
		})

		Convey("When listing an observer's firsts", func() {
			list, err := svc.ObserverList(ctx, "X", 0, projection.ListNewest)
			So(err, ShouldBeNil)

			Convey("Then they are ordered newest first", func() {
				So(list.Total, ShouldEqual, 2)
				So(list.Crossings[0].Species, ShouldEqual, "Solsort")
				So(list.Observer.Name, ShouldEqual, "Xenia")
			})

			Convey("And an unknown observer is not found", func() {
				_, err := svc.ObserverList(ctx, "Q", 0, projection.ListNewest)
				So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When building a single observer's matrix", func() {
			m, err := svc.ObserverMatrix(ctx, "X", 2026)
			So(err, ShouldBeNil)

			Convey("Then it holds one column, newest first", func() {
				So(m.Species, ShouldResemble, []string{"Solsort", "Allike"})
				So(len(m.Observers), ShouldEqual, 1)
				So(m.Cells, ShouldResemble, [][]string{{"10-03-2026"}, {"05-01-2026"}})
			})

			Convey("And an unknown observer is not found", func() {
				_, err := svc.ObserverMatrix(ctx, "Q", 2026)
				So(errors.Is(err, service.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When computing the dashboard", func() {
			d, err := svc.Dashboard(ctx, service.Query{Observers: []string{"X"}})
			So(err, ShouldBeNil)

			Convey("Then all three parts agree", func() {
				So(d.Scoreboard.Standings[0].Total, ShouldEqual, 2)
				So(d.Timeline.Series["X"][len(d.Timeline.Days)-1], ShouldEqual, 2)
				So(d.Trend.Dates, ShouldResemble, []string{"05-01-2026", "10-03-2026"})
			})
		})

		Convey("When deleting an observer", func() {
			So(svc.DeleteObserver(ctx, "Z"), ShouldBeNil)
			m, err := svc.Matrix(ctx, 2026)

			Convey("Then their column and species disappear", func() {
				So(err, ShouldBeNil)
				So(m.Species, ShouldResemble, []string{"Allike", "Solsort"})
			})
		})
	})
}

func TestServiceAnalyze(t *testing.T) {
	Convey("Given a supplied matrix with an unparseable date", t, func() {
		ctx := context.Background()
		svc := newService()
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		raw := types.Matrix{
			Year:      2026,
			Species:   []string{"A", "B"},
			Observers: []matrix.Observer{{Code: "X"}, {Code: "Y"}},
			Cells:     [][]string{{"2026-01-05", "05-01-2026"}, {"", "someday"}},
		}

		d, err := svc.Analyze(ctx, raw, service.Query{})
		So(err, ShouldBeNil)

		Convey("Then the cell counts for totals but not for the timeline", func() {
			So(d.Scoreboard.Unparseable, ShouldEqual, 1)
			So(d.Scoreboard.Standings[0].Code, ShouldEqual, "Y")
			So(d.Scoreboard.Standings[0].Total, ShouldEqual, 2)
			So(d.Timeline.Series["Y"][len(d.Timeline.Days)-1], ShouldEqual, 1)
		})

		Convey("When the shape is wrong", func() {
			raw.Cells = raw.Cells[:1]
			_, err := svc.Analyze(ctx, raw, service.Query{})

			Convey("Then it is invalid input", func() {
				So(errors.Is(err, service.ErrInvalidInput), ShouldBeTrue)
				So(errors.Is(err, matrix.ErrInvalidMatrixShape), ShouldBeTrue)
			})
		})
	})
}

func TestServiceAnalyzeUnstarted(t *testing.T) {
	Convey("Given a service that was never started", t, func() {
		svc := service.New()

		Convey("When analyzing a matrix with an unparseable cell", func() {
			raw := types.Matrix{
				Species:   []string{"A"},
				Observers: []matrix.Observer{{Code: "X"}},
				Cells:     [][]string{{"garbage"}},
			}

			Convey("Then it reports the cell instead of failing", func() {
				var d types.Dashboard
				var err error
				So(func() { d, err = svc.Analyze(context.Background(), raw, service.Query{Year: 2025}) }, ShouldNotPanic)
				So(err, ShouldBeNil)
				So(d.Scoreboard.Unparseable, ShouldEqual, 1)
				So(d.Scoreboard.Standings[0].Total, ShouldEqual, 1)
			})
		})
	})
}

func TestServiceTripFilter(t *testing.T) {
	Convey("Given a service that only counts tagged trips", t, func() {
		ctx := context.Background()
		svc := newService(service.WithTripFilter("#boligbirding"))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()

		So(svc.AddObserver(ctx, "X", ""), ShouldBeNil)
		tagged := sighting("Allike", time.January, 5)
		tagged.TripID, tagged.TripNotes = "t1", "Fra køkkenvinduet #boligbirding"
		away := sighting("Havørn", time.January, 6)
		away.TripID, away.TripNotes = "t2", "Kalvebod Fælled"
		_, err := svc.ReplaceObservations(ctx, "X", []model.Observation{tagged, away})
		So(err, ShouldBeNil)

		Convey("When building the matrix", func() {
			m, err := svc.Matrix(ctx, 2026)

			Convey("Then untagged trips are left out", func() {
				So(err, ShouldBeNil)
				So(m.Species, ShouldResemble, []string{"Allike"})
				So(m.Observers[0].Observations, ShouldEqual, 1)
				So(svc.GetStats()["tripFilter"], ShouldEqual, "#boligbirding")
			})
		})
	})
}
