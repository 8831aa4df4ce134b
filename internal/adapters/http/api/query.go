package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	service "github.com/okian/kryds/internal/app"
	"github.com/okian/kryds/internal/domain/projection"
)

const maxYear = 9999

// parseQuery reads year, observers, sort and latest. An "observers" parameter
// that is present but empty selects nobody.
func parseQuery(op string, r *http.Request) (service.Query, error) {
	values := r.URL.Query()
	var q service.Query

	year, err := parseYear(values)
	if err != nil {
		return q, WrapKind(op, ErrBadRequest, err)
	}
	q.Year = year

	if raw, ok := values["observers"]; ok {
		q.Observers = splitCodes(strings.Join(raw, ","))
	}

	mode, err := projection.ParseSortMode(values.Get("sort"))
	if err != nil {
		return q, WrapKind(op, ErrBadRequest, err)
	}
	q.Sort = mode

	if s := values.Get("latest"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return q, WrapKind(op, ErrBadRequest, fmt.Errorf("latest must be a non-negative integer, got %q", s))
		}
		q.Latest = n
	}
	return q, nil
}

func parseYear(values url.Values) (int, error) {
	s := values.Get("year")
	if s == "" {
		return 0, nil
	}
	year, err := strconv.Atoi(s)
	if err != nil || year < 1 || year > maxYear {
		return 0, fmt.Errorf("year must be between 1 and %d, got %q", maxYear, s)
	}
	return year, nil
}

// splitCodes returns the non-blank comma separated codes, never nil.
func splitCodes(s string) []string {
	out := []string{}
	for _, code := range strings.Split(s, ",") {
		if code = strings.TrimSpace(code); code != "" {
			out = append(out, code)
		}
	}
	return out
}

// decodeBody decodes a JSON body capped at limit bytes.
func decodeBody(op string, w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return WrapKind(op, ErrBodyTooLarge, err)
		}
		return WrapKind(op, ErrBadRequest, err)
	}
	return nil
}
