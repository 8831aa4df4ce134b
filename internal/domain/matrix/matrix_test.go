package matrix_test

import (
	"errors"
	"testing"

	"github.com/okian/kryds/internal/domain/matrix"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNew(t *testing.T) {
	Convey("Given matrix dimensions", t, func() {
		Convey("When rows and columns agree with the lists", func() {
			m, err := matrix.FromCodes(
				[]string{"Allike", "Ørn"},
				[]string{"X", "Y"},
				[][]string{{"01-01-2026", ""}, {"", "bad date"}},
			)

			Convey("Then the matrix is built with presence and parsed dates", func() {
				So(err, ShouldBeNil)
				So(m.Rows(), ShouldEqual, 2)
				So(m.Cols(), ShouldEqual, 2)
				So(m.Present(0, 0), ShouldBeTrue)
				So(m.Present(0, 1), ShouldBeFalse)
				So(m.Raw(1, 1), ShouldEqual, "bad date")
				v, ok := m.Value(0, 0)
				So(ok, ShouldBeTrue)
				So(v.Valid(), ShouldBeTrue)
			})

			Convey("Then observer names default to codes", func() {
				So(m.ObserverAt(0).Name, ShouldEqual, "X")
			})

			Convey("Then unparseable cells are listed", func() {
				bad := m.Unparseable()
				So(len(bad), ShouldEqual, 1)
				So(bad[0].Species, ShouldEqual, "Ørn")
				So(bad[0].Observer, ShouldEqual, "Y")
			})
		})

		Convey("When the row count disagrees with the species list", func() {
			_, err := matrix.FromCodes([]string{"A", "B"}, []string{"X"}, [][]string{{""}})

			Convey("Then construction fails fast", func() {
				So(errors.Is(err, matrix.ErrInvalidMatrixShape), ShouldBeTrue)
			})
		})

		Convey("When a row is short", func() {
			_, err := matrix.FromCodes([]string{"A"}, []string{"X", "Y"}, [][]string{{""}})

			Convey("Then construction fails fast", func() {
				So(errors.Is(err, matrix.ErrInvalidMatrixShape), ShouldBeTrue)
			})
		})

		Convey("When identifiers repeat", func() {
			_, errObs := matrix.FromCodes([]string{"A"}, []string{"X", "X"}, [][]string{{"", ""}})
			_, errSp := matrix.FromCodes([]string{"A", "A"}, []string{"X"}, [][]string{{""}, {""}})

			Convey("Then construction fails fast", func() {
				So(errors.Is(errObs, matrix.ErrInvalidMatrixShape), ShouldBeTrue)
				So(errors.Is(errSp, matrix.ErrInvalidMatrixShape), ShouldBeTrue)
			})
		})
	})
}

func TestView(t *testing.T) {
	Convey("Given a 3 species x 4 observer matrix", t, func() {
		m, err := matrix.FromCodes(
			[]string{"A", "B", "C"},
			[]string{"W", "X", "Y", "Z"},
			[][]string{
				{"01-01-2026", "02-01-2026", "03-01-2026", "04-01-2026"},
				{"", "05-01-2026", "", "06-01-2026"},
				{"", "", "", "07-01-2026"},
			},
		)
		So(err, ShouldBeNil)

		Convey("When viewing every observer", func() {
			v := m.View()

			Convey("Then totals count present cells per column", func() {
				So(v.Totals(), ShouldResemble, []matrix.Total{
					{Code: "W", Count: 1}, {Code: "X", Count: 2}, {Code: "Y", Count: 1}, {Code: "Z", Count: 3},
				})
			})

			Convey("Then scarcity tiers follow row counts", func() {
				So(v.ScarcityTier(0), ShouldEqual, matrix.TierCommon)
				So(v.ScarcityTier(1), ShouldEqual, matrix.TierPair)
				So(v.ScarcityTier(2), ShouldEqual, matrix.TierSingle)
			})
		})

		Convey("When restricting to a subset in a different order", func() {
			v := m.Restrict([]string{"Z", "W", "nobody"})

			Convey("Then columns keep matrix order and unknown codes vanish", func() {
				So(v.Codes(), ShouldResemble, []string{"W", "Z"})
			})

			Convey("Then tiers are recomputed for the subset", func() {
				So(v.ScarcityTier(0), ShouldEqual, matrix.TierPair)
				So(v.ScarcityTier(1), ShouldEqual, matrix.TierSingle)
				So(v.SeenBy(1), ShouldResemble, []string{"Z"})
			})

			Convey("Then the latest date is taken over the subset only", func() {
				d, ok := v.Latest(0)
				So(ok, ShouldBeTrue)
				So(d.String(), ShouldEqual, "04-01-2026")
			})
		})

		Convey("When restricting to nobody", func() {
			v := m.Restrict(nil)

			Convey("Then the view is empty and totals are empty", func() {
				So(v.Empty(), ShouldBeTrue)
				So(v.Totals(), ShouldBeEmpty)
				So(v.ScarcityTier(0), ShouldEqual, matrix.TierNone)
			})
		})
	})

	Convey("Given tier names", t, func() {
		So(matrix.TierFor(0).String(), ShouldEqual, "none")
		So(matrix.TierFor(1).String(), ShouldEqual, "single")
		So(matrix.TierFor(2).String(), ShouldEqual, "pair")
		So(matrix.TierFor(3).String(), ShouldEqual, "triple")
		So(matrix.TierFor(9).String(), ShouldEqual, "common")
	})
}
