package service

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/yourusername/clever-forecast/internal/models"
)

// RequestValidator validates game requests before any artifact is touched
type RequestValidator struct {
	validate *validator.Validate
}

// NewRequestValidator creates a new request validator
func NewRequestValidator() *RequestValidator {
	return &RequestValidator{validate: validator.New()}
}

// ValidateRequest returns every violation found in req
func (v *RequestValidator) ValidateRequest(req *models.GameRequest) []string {
	var violations []string

	if err := v.validate.Struct(req); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) {
			for _, fe := range fieldErrors {
				violations = append(violations, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
			}
		} else {
			violations = append(violations, err.Error())
		}
	}

	if req.Market.RequiresLine() && !req.BettingLine.Valid {
		violations = append(violations, fmt.Sprintf("betting_line is required for %s", req.Market))
	}

	features := req.Features
	if len(features.Names) != len(features.Values) {
		violations = append(violations, fmt.Sprintf("features has %d names for %d values", len(features.Names), len(features.Values)))
	}
	seen := make(map[string]struct{}, len(features.Names))
	for _, name := range features.Names {
		if _, dup := seen[name]; dup {
			violations = append(violations, fmt.Sprintf("feature %q is listed twice", name))
		}
		seen[name] = struct{}{}
	}
	for i, value := range features.Values {
		if math.IsNaN(value) || math.IsInf(value, 0) {
			violations = append(violations, fmt.Sprintf("feature value %d is not finite", i))
		}
	}

	// Validate optional scoring rates if present
	rates := []struct {
		side string
		rate *models.TeamRate
	}{
		{"home_rate", req.HomeRate},
		{"away_rate", req.AwayRate},
	}
	for _, r := range rates {
		if r.rate != nil && (math.IsNaN(r.rate.Mean) || math.IsInf(r.rate.Mean, 0)) {
			violations = append(violations, fmt.Sprintf("%s mean must be finite", r.side))
		}
	}

	return violations
}

// Validate wraps ValidateRequest into a single ErrInvalidRequest error
func (v *RequestValidator) Validate(req *models.GameRequest) error {
	violations := v.ValidateRequest(req)
	if len(violations) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", models.ErrInvalidRequest, strings.Join(violations, "; "))
}
