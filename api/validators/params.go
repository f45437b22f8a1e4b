package validators

import (
	"strings"

	"github.com/google/uuid"

	pkgerrors "github.com/LLTIGER/pulse-architects-sub001/pkg/errors"
)

// ParseUUID parses a path or query value, reporting the field on failure.
func ParseUUID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+field).WithDetails(map[string]any{"field": field})
	}
	return id, nil
}
