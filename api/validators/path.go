package validators

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/angelmondragon/rvstore-backend/pkg/errors"
)

// PathInt64 reads a positive integer route parameter.
func PathInt64(r *http.Request, key string) (int64, error) {
	raw := strings.TrimSpace(chi.URLParam(r, key))
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || value <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "path parameter must be a positive integer").
			WithDetails(map[string]any{"field": key})
	}
	return value, nil
}

// PathString reads a non-empty route parameter such as a barcode.
func PathString(r *http.Request, key string, maxLen int) (string, error) {
	value := SanitizeString(chi.URLParam(r, key), maxLen)
	if value == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "path parameter is required").
			WithDetails(map[string]any{"field": key})
	}
	return value, nil
}
