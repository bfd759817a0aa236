// Package scrape drives a browser page through chart pages and merges the
// values read from their tooltips into per-country record files.
package scrape

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jmylchreest/chartscrape/internal/chart"
	"github.com/jmylchreest/chartscrape/internal/records"
)

// Config is the complete description of one run.
type Config struct {
	// Input is a page URL, or a URL list file when Recursive is set.
	Input string `validate:"required"`
	// Output is the country file, or a directory when Recursive is set.
	Output    string `validate:"required"`
	Recursive bool

	Reset       bool
	OnDuplicate records.DuplicatePolicy `validate:"oneof=stop-list skip"`
	Order       chart.Order             `validate:"oneof=right-to-left left-to-right"`

	ReadyInterval   time.Duration `validate:"gt=0"`
	ReadyTimeout    time.Duration `validate:"gte=0"`
	TooltipInterval time.Duration `validate:"gt=0"`
	TooltipTimeout  time.Duration `validate:"gte=0"`

	MaxScrollRetries int `validate:"gt=0"`
	// StripSelector names the decorative element removed before hovering;
	// empty leaves the page untouched.
	StripSelector string
}

// DefaultConfig returns a Config with every tunable at its default.
func DefaultConfig() Config {
	return Config{
		OnDuplicate:      records.StopList,
		Order:            chart.RightToLeft,
		ReadyInterval:    chart.DefaultReadyPolicy.Interval,
		ReadyTimeout:     chart.DefaultReadyPolicy.Timeout,
		TooltipInterval:  chart.DefaultTooltipPolicy.Interval,
		TooltipTimeout:   chart.DefaultTooltipPolicy.Timeout,
		MaxScrollRetries: chart.DefaultMaxScrollRetries,
		StripSelector:    chart.DefaultStripSelector,
	}
}

// ReadyPolicy is the page readiness wait.
func (c Config) ReadyPolicy() chart.Policy {
	return chart.Policy{Interval: c.ReadyInterval, Timeout: c.ReadyTimeout}
}

// TooltipPolicy is the per-bar tooltip wait.
func (c Config) TooltipPolicy() chart.Policy {
	return chart.Policy{Interval: c.TooltipInterval, Timeout: c.TooltipTimeout}
}

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

var validate = validator.New()

// Validate checks field constraints and, in single mode, that Input is a
// page URL.
func (c Config) Validate() error {
	var problems []string

	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		for _, e := range verrs {
			problems = append(problems, e.Field()+" "+formatValidationError(e))
		}
	}

	if !c.Recursive && c.Input != "" {
		if err := validate.Var(c.Input, "http_url"); err != nil {
			problems = append(problems, "Input must be an http(s) URL outside recursive mode")
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", e.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", e.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", e.Param())
	default:
		return fmt.Sprintf("failed validation '%s'", e.Tag())
	}
}
