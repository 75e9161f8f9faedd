package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

type removePagesRequest struct {
	Indices []int `json:"indices" validate:"required,min=1,dive,min=0"`
}

type movePageRequest struct {
	From *int `json:"from" validate:"required,min=0"`
	To   *int `json:"to" validate:"required,min=0"`
}

// decodeJSON reads a bounded JSON body into dst and validates it.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := validate.Struct(dst); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	return nil
}
