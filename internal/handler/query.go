package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/HoussemEK/Direction-Project/internal/domain"
	"github.com/google/uuid"
)

func queryBool(r *http.Request, name string) (*bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, domain.ErrValidation(name + " must be true or false")
	}
	return &v, nil
}

func queryInt(r *http.Request, name string) (*int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, domain.ErrValidation(name + " must be an integer")
	}
	return &v, nil
}

func queryUUID(r *http.Request, name string) (*uuid.UUID, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	v, err := uuid.Parse(raw)
	if err != nil {
		return nil, domain.ErrValidation(name + " must be a uuid")
	}
	return &v, nil
}

// queryDate accepts YYYY-MM-DD or RFC 3339.
func queryDate(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if v, err := time.Parse(layout, raw); err == nil {
			return &v, nil
		}
	}
	return nil, domain.ErrValidation(name + " must be a date (YYYY-MM-DD)")
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
