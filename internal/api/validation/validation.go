// Package validation checks inbound request payloads before they are proxied
// or queued.
package validation

import (
	"bytes"
	"io"
	"math"
	"net/url"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/cuongbtq/video-gateway/internal/api/domain"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func instance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Required checks that every field exists in body and is not null. All
// missing fields are reported together, in the order given.
func Required(body map[string]any, fields ...string) error {
	var missing []string
	for _, field := range fields {
		if v, ok := body[field]; !ok || v == nil {
			missing = append(missing, field)
		}
	}

	if len(missing) > 0 {
		return &domain.ValidationError{MissingFields: missing}
	}
	return nil
}

// RequiredQuery is Required for query parameters. An empty value counts as
// missing.
func RequiredQuery(values url.Values, fields ...string) error {
	var missing []string
	for _, field := range fields {
		if values.Get(field) == "" {
			missing = append(missing, field)
		}
	}

	if len(missing) > 0 {
		return &domain.ValidationError{MissingFields: missing}
	}
	return nil
}

// DecodeBody reads a JSON object. An empty body decodes to an empty object.
// Numbers are kept as json.Number so they are forwarded unchanged. Anything
// after the object other than whitespace makes the body invalid.
func DecodeBody(r io.Reader) (map[string]any, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]any{}, nil
	}

	if !json.Valid(data) {
		return nil, domain.ErrInvalidBody
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var body map[string]any
	if err := dec.Decode(&body); err != nil || body == nil {
		return nil, domain.ErrInvalidBody
	}
	return body, nil
}

// NonNegativeInt reads body[field] as an integer >= 0.
func NonNegativeInt(body map[string]any, field string) (int, error) {
	n, ok := toInt(body[field])
	if !ok {
		return 0, &domain.InvalidFieldError{Field: field, Reason: "must be an integer"}
	}
	if n < 0 {
		return 0, &domain.InvalidFieldError{Field: field, Reason: "must not be negative"}
	}
	return n, nil
}

// OptionalNonNegativeInt is NonNegativeInt with a default for absent or null
// fields.
func OptionalNonNegativeInt(body map[string]any, field string, def int) (int, error) {
	if v, ok := body[field]; !ok || v == nil {
		return def, nil
	}
	return NonNegativeInt(body, field)
}

// URL reads body[field] as an absolute URL.
func URL(body map[string]any, field string) (string, error) {
	s, ok := body[field].(string)
	if !ok {
		return "", &domain.InvalidFieldError{Field: field, Reason: "must be a string"}
	}
	if err := instance().Var(s, "required,url"); err != nil {
		return "", &domain.InvalidFieldError{Field: field, Reason: "must be a valid URL"}
	}
	return s, nil
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
		// 5.0 and 1e2 are integers too
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return floatToInt(f)
	case float64:
		return floatToInt(n)
	case int:
		return n, true
	case int64:
		return int(n), true
	default:
		return 0, false
	}
}

func floatToInt(f float64) (int, bool) {
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int(f), true
}
