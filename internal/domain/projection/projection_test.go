package projection_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/kryds/internal/domain/aggregate"
	"github.com/okian/kryds/internal/domain/datenorm"
	"github.com/okian/kryds/internal/domain/matrix"
	"github.com/okian/kryds/internal/domain/projection"
	"github.com/okian/kryds/internal/domain/timeline"
	. "github.com/smartystreets/goconvey/convey"
)

func speciesOf(rows []projection.Row) []string {
	out := make([]string, len(rows))
	for k, r := range rows {
		out[k] = r.Species
	}
	return out
}

func TestSortSpecies(t *testing.T) {
	Convey("Given Danish species names", t, func() {
		m, err := matrix.FromCodes(
			[]string{"Ørn", "Allike", "Zebra", "Ænder", "Bynkefugl"},
			[]string{"X", "Y"},
			[][]string{
				{"01-03-2026", ""},
				{"05-01-2026", "2026-04-01"},
				{"", "01-04-2026"},
				{"?", ""},
				{"", ""},
			},
		)
		So(err, ShouldBeNil)

		Convey("When sorting alphabetically", func() {
			rows := projection.SortSpecies(m.View(), projection.SortAlphabetical)

			Convey("Then æ and ø sort after z and unseen rows are dropped", func() {
				So(speciesOf(rows), ShouldResemble, []string{"Allike", "Zebra", "Ænder", "Ørn"})
			})
		})

		Convey("When sorting by latest", func() {
			rows := projection.SortSpecies(m.View(), projection.SortLatest)

			Convey("Then newest first, ties alphabetical, undated last", func() {
				So(speciesOf(rows), ShouldResemble, []string{"Allike", "Zebra", "Ørn", "Ænder"})
			})
		})

		Convey("When restricted to X", func() {
			rows := projection.SortSpecies(m.Restrict([]string{"X"}), projection.SortLatest)

			Convey("Then only X's rows remain, ordered by X's dates", func() {
				So(speciesOf(rows), ShouldResemble, []string{"Ørn", "Allike", "Ænder"})
			})
		})

		Convey("When restricted to nobody", func() {
			So(projection.SortSpecies(m.Restrict(nil), projection.SortAlphabetical), ShouldBeEmpty)
		})
	})

	Convey("Given the reference collation example", t, func() {
		So(projection.SortNames([]string{"Ørn", "Allike", "Zebra"}), ShouldResemble, []string{"Allike", "Zebra", "Ørn"})
	})

	Convey("Given many goroutines sorting at once", t, func() {
		names := []string{"Ørn", "Allike", "Åmus", "Zebra", "Ænder", "Bogfinke"}
		want := []string{"Allike", "Bogfinke", "Zebra", "Ænder", "Ørn", "Åmus"}

		const workers = 8
		results := make([][]string, workers*25)
		var wg sync.WaitGroup
		for w := range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for k := range 25 {
					results[w*25+k] = projection.SortNames(names)
				}
			}()
		}
		wg.Wait()

		for _, got := range results {
			So(got, ShouldResemble, want)
		}
	})

	Convey("Given sort mode strings", t, func() {
		mode, err := projection.ParseSortMode("")
		So(err, ShouldBeNil)
		So(mode, ShouldEqual, projection.SortAlphabetical)
		_, err = projection.ParseSortMode("random")
		So(err, ShouldNotBeNil)
		lm, err := projection.ParseListMode("oldest")
		So(err, ShouldBeNil)
		So(lm, ShouldEqual, projection.ListOldest)
	})
}

func TestSortObserversByTotal(t *testing.T) {
	Convey("Given observers with tied totals", t, func() {
		m, err := matrix.FromCodes(
			[]string{"A", "B", "C"},
			[]string{"W", "X", "Y", "Z"},
			[][]string{
				{"01-01-2026", "01-01-2026", "", "01-01-2026"},
				{"", "01-01-2026", "", "01-01-2026"},
				{"", "", "01-01-2026", ""},
			},
		)
		So(err, ShouldBeNil)

		sorted := projection.SortObserversByTotal(m.View())

		Convey("Then totals descend and ties keep column order", func() {
			So(sorted, ShouldResemble, []matrix.Total{
				{Code: "X", Count: 2}, {Code: "Z", Count: 2}, {Code: "W", Count: 1}, {Code: "Y", Count: 1},
			})
		})

		Convey("Then competition ranks are shared on ties", func() {
			ranks := projection.Rank(sorted)
			So(ranks[0].Rank, ShouldEqual, 1)
			So(ranks[1].Rank, ShouldEqual, 1)
			So(ranks[2].Rank, ShouldEqual, 3)
			So(ranks[3].Rank, ShouldEqual, 3)
		})
	})
}

func TestSingleObserverView(t *testing.T) {
	Convey("Given observer X with two dated species and one unparseable", t, func() {
		m, err := matrix.FromCodes(
			[]string{"Allike", "Bogfinke", "Stær", "Musvit"},
			[]string{"X", "Y"},
			[][]string{
				{"12-01-2026", "01-01-2026"},
				{"05-03-2026", ""},
				{"", "02-02-2026"},
				{"unknown", ""},
			},
		)
		So(err, ShouldBeNil)

		single, err := projection.SingleObserverView(m, "X")
		So(err, ShouldBeNil)

		Convey("Then species are X's, newest first, unparseable last", func() {
			So(single.Species(), ShouldResemble, []string{"Bogfinke", "Allike", "Musvit"})
			So(single.Codes(), ShouldResemble, []string{"X"})
			So(single.Raw(0, 0), ShouldEqual, "05-03-2026")
		})

		Convey("Then its total equals X's unrestricted total", func() {
			full := aggregate.Aggregate(m.View()).Totals
			So(aggregate.Aggregate(single.View()).Totals[0].Count, ShouldEqual, full[0].Count)
		})

		Convey("When the code is unknown", func() {
			_, err := projection.SingleObserverView(m, "Q")
			So(errors.Is(err, matrix.ErrUnknownObserver), ShouldBeTrue)
		})
	})
}

func TestObserverList(t *testing.T) {
	Convey("Given an observer's crossings", t, func() {
		m, err := matrix.FromCodes(
			[]string{"Stær", "Allike", "Ørn"},
			[]string{"X"},
			[][]string{{"03-01-2026"}, {"01-01-2026"}, {"02-01-2026"}},
		)
		So(err, ShouldBeNil)

		names := func(mode projection.ListMode) []string {
			list, err := projection.ObserverList(m, "X", mode)
			So(err, ShouldBeNil)
			out := make([]string, len(list))
			for k, c := range list {
				out[k] = c.Species
			}
			return out
		}

		Convey("Then each mode orders as named", func() {
			So(names(projection.ListAlphabetical), ShouldResemble, []string{"Allike", "Stær", "Ørn"})
			So(names(projection.ListNewest), ShouldResemble, []string{"Stær", "Ørn", "Allike"})
			So(names(projection.ListOldest), ShouldResemble, []string{"Allike", "Ørn", "Stær"})
		})
	})
}

func TestFilterObservers(t *testing.T) {
	Convey("Given a matrix of three observers", t, func() {
		m, err := matrix.FromCodes(
			[]string{"A", "B"},
			[]string{"X", "Y", "Z"},
			[][]string{
				{"01-01-2026", "02-01-2026", ""},
				{"", "", "03-01-2026"},
			},
		)
		So(err, ShouldBeNil)

		Convey("When filtering to a subset out of order", func() {
			v := projection.FilterObservers(m, []string{"Z", "X"})

			Convey("Then columns keep matrix order and aggregates follow the subset", func() {
				So(v.Codes(), ShouldResemble, []string{"X", "Z"})
				So(aggregate.Blockers(v), ShouldResemble, map[string][]string{"X": {"A"}, "Z": {"B"}})
				So(v.ScarcityTier(0), ShouldEqual, matrix.TierSingle)
			})
		})

		Convey("When filtering to observers the matrix does not have", func() {
			v := projection.FilterObservers(m, []string{"Q"})
			res := aggregate.Aggregate(v)
			tl := timeline.Build(v, 2026, datenorm.Date{Year: 2026, Month: time.June, Day: 10})

			Convey("Then every aggregate is empty and nothing fails", func() {
				So(v.Empty(), ShouldBeTrue)
				So(res.Totals, ShouldBeEmpty)
				So(res.Blockers, ShouldBeEmpty)
				So(tl.Series, ShouldBeEmpty)
				So(projection.SortSpecies(v, projection.SortAlphabetical), ShouldBeEmpty)
			})
		})
	})
}
