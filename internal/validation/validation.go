// Package validation provides centralized input validation for series names.
package validation

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	defaults "github.com/xtxerr/roundrobin/config"
	"github.com/xtxerr/roundrobin/internal/errors"
)

// =============================================================================
// Name Validation
// =============================================================================

// NameRules defines the validation rules for names.
type NameRules struct {
	MinLength    int
	MaxLength    int
	AllowDots    bool
	AllowHyphens bool
	AllowUnders  bool
	AllowColons  bool
}

// SeriesNameRules returns the rules for series names such as
// "router-01:ifInOctets.Gi0_0".
func SeriesNameRules() NameRules {
	return NameRules{
		MinLength:    1,
		MaxLength:    defaults.MaxSeriesNameLength,
		AllowDots:    true,
		AllowHyphens: true,
		AllowUnders:  true,
		AllowColons:  true,
	}
}

// ValidateName validates a name according to the given rules.
func ValidateName(name string, rules NameRules) error {
	length := utf8.RuneCountInString(name)
	if length < rules.MinLength {
		return fmt.Errorf("name too short: minimum %d characters required", rules.MinLength)
	}
	if length > rules.MaxLength {
		return fmt.Errorf("name too long: maximum %d characters allowed", rules.MaxLength)
	}

	if strings.HasPrefix(name, ".") {
		return fmt.Errorf("name cannot start with '.'")
	}

	for i, r := range name {
		if r < 32 || r == 127 {
			return fmt.Errorf("name cannot contain control characters at position %d", i)
		}
		if r == '/' || r == '\\' {
			return fmt.Errorf("name cannot contain path separators at position %d", i)
		}
		if !isAllowedNameChar(r, rules) {
			return fmt.Errorf("invalid character '%c' at position %d", r, i)
		}
	}

	return nil
}

func isAllowedNameChar(r rune, rules NameRules) bool {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return true
	}
	switch r {
	case '.':
		return rules.AllowDots
	case '-':
		return rules.AllowHyphens
	case '_':
		return rules.AllowUnders
	case ':':
		return rules.AllowColons
	}
	return false
}

// ValidateSeriesName validates a series name with SeriesNameRules.
// The returned error wraps errors.ErrInvalidName.
func ValidateSeriesName(name string) error {
	if err := ValidateName(name, SeriesNameRules()); err != nil {
		return fmt.Errorf("series %q: %v: %w", name, err, errors.ErrInvalidName)
	}
	return nil
}

// =============================================================================
// Series References
// =============================================================================

// SeriesRef is a series name split into its source and metric parts.
type SeriesRef struct {
	Source string
	Metric string
}

// ParseSeriesRef parses a "source:metric" series name. A name without a
// colon has an empty Source.
func ParseSeriesRef(name string) (*SeriesRef, error) {
	if err := ValidateSeriesName(name); err != nil {
		return nil, err
	}

	source, metric, found := strings.Cut(name, ":")
	if !found {
		return &SeriesRef{Metric: name}, nil
	}
	if source == "" || metric == "" {
		return nil, fmt.Errorf("series %q: expected 'source:metric': %w", name, errors.ErrInvalidName)
	}
	return &SeriesRef{Source: source, Metric: metric}, nil
}

// String returns the series name.
func (r *SeriesRef) String() string {
	if r.Source == "" {
		return r.Metric
	}
	return r.Source + ":" + r.Metric
}
