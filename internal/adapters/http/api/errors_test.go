package api

import (
	"errors"
	"net/http"
	"testing"

	service "github.com/okian/hotpath/internal/app"
	"github.com/okian/hotpath/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestErrorKinds(t *testing.T) {
	Convey("Given an error with a kind and no cause", t, func() {
		err := NewKind("api.rank_feed", ErrMissingCandidates)

		Convey("Then it matches its kind and the bad request family", func() {
			So(err.Error(), ShouldEqual, "api.rank_feed: bad request: missing candidates")
			So(errors.Is(err, ErrMissingCandidates), ShouldBeTrue)
			So(errors.Is(err, ErrBadRequest), ShouldBeTrue)
			status, code := statusFor(err)
			So(status, ShouldEqual, http.StatusBadRequest)
			So(code, ShouldEqual, "bad_request")
		})
	})

	Convey("Given errors wrapped from lower layers", t, func() {
		cases := []struct {
			cause  error
			status int
			code   string
		}{
			{model.ErrInvalidTask, http.StatusBadRequest, "bad_request"},
			{service.ErrBackpressure, http.StatusTooManyRequests, "backpressure"},
			{service.ErrNotStarted, http.StatusTooManyRequests, "backpressure"},
			{service.ErrEngineFault, http.StatusInternalServerError, "engine_fault"},
			{errors.New("other"), http.StatusInternalServerError, "internal"},
		}

		Convey("Then each maps to its status and keeps its cause", func() {
			for _, tc := range cases {
				err := Wrap("api.op", tc.cause)
				status, code := statusFor(err)
				So(status, ShouldEqual, tc.status)
				So(code, ShouldEqual, tc.code)
				So(errors.Is(err, tc.cause), ShouldBeTrue)
			}
		})
	})

	Convey("Given a limit error", t, func() {
		err := WrapKind("api.rank_feed", ErrLimitExceeded, errors.New("too many"))

		Convey("Then it maps to 413", func() {
			status, code := statusFor(err)
			So(status, ShouldEqual, http.StatusRequestEntityTooLarge)
			So(code, ShouldEqual, "limit_exceeded")
			So(err.Error(), ShouldEqual, "api.rank_feed: limit exceeded: too many")
		})
	})
}
