package api

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestErrorKinds(t *testing.T) {
	Convey("Given an operation error", t, func() {
		cause := errors.New("boom")
		err := WrapKind("api.get_scoreboard", ErrBadRequest, cause)

		Convey("Then both kind and cause match", func() {
			So(errors.Is(err, ErrBadRequest), ShouldBeTrue)
			So(errors.Is(err, cause), ShouldBeTrue)
			So(err.Error(), ShouldEqual, "api.get_scoreboard: bad request: boom")
		})

		Convey("Then the other constructors render the operation", func() {
			So(NewKind("api.analyze", ErrBodyTooLarge).Error(), ShouldEqual, "api.analyze: request body too large")
			So(Wrap("api.get_matrix", cause).Error(), ShouldEqual, "api.get_matrix: boom")
			So(Wrap("api.get_matrix", nil), ShouldBeNil)
		})
	})
}

func TestSplitCodes(t *testing.T) {
	Convey("Given observer lists", t, func() {
		So(splitCodes(""), ShouldResemble, []string{})
		So(splitCodes(" X ,,Y"), ShouldResemble, []string{"X", "Y"})
	})
}
