package helpers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// MaxBodyBytes caps JSON request bodies.
const MaxBodyBytes = 1 << 20

// Validator is implemented by request bodies that check themselves.
// A nil or empty result means the body is valid.
type Validator interface {
	Validate() []string
}

// DecodeAndValidate decodes a single JSON object from the body into dest,
// rejecting unknown fields, then runs dest's Validate if it has one. On
// failure the 400 response has already been written and false is returned.
func DecodeAndValidate(w http.ResponseWriter, r *http.Request, dest any) bool {
	if err := decodeBody(w, r, dest); err != nil {
		WriteJSONError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error())
		return false
	}
	v, ok := dest.(Validator)
	if !ok {
		return true
	}
	if problems := v.Validate(); len(problems) > 0 {
		WriteValidationError(w, problems)
		return false
	}
	return true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dest any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.DisallowUnknownFields()

	var tooLarge *http.MaxBytesError
	err := dec.Decode(dest)
	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		return errors.New("request body is required")
	case errors.As(err, &tooLarge):
		return fmt.Errorf("request body must not exceed %d bytes", tooLarge.Limit)
	default:
		return err
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}
