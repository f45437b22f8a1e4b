package validators

import (
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/LLTIGER/pulse-architects-sub001/pkg/errors"
)

// QueryInt reads an optional integer parameter bounded to [min, max].
func QueryInt(r *http.Request, key string, fallback, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, key+" must be numeric").
			WithDetails(map[string]any{"field": key})
	}
	if value < min || value > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, key+" out of range").
			WithDetails(map[string]any{"field": key, "min": min, "max": max})
	}
	return value, nil
}

// QueryString returns the trimmed parameter, or fallback when it is absent.
// Values longer than maxLen are rejected rather than truncated.
func QueryString(r *http.Request, key, fallback string, maxLen int) (string, error) {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		return fallback, nil
	}
	if maxLen > 0 && len(value) > maxLen {
		return "", pkgerrors.New(pkgerrors.CodeValidation, key+" too long").
			WithDetails(map[string]any{"field": key, "max": maxLen})
	}
	return value, nil
}
