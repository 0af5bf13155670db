package progress

import (
	"fmt"
	"math"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// DefaultLocale is the locale used by the package-level helpers.
var DefaultLocale = language.German

// formatOptions holds per-call number formatting options.
type formatOptions struct {
	placeholder string
	limit       *float64
}

// FormatOption is a functional option for FormatNumber.
type FormatOption func(*formatOptions)

// WithPlaceholder returns placeholder verbatim when the value is exactly zero.
// An empty placeholder is ignored.
func WithPlaceholder(placeholder string) FormatOption {
	return func(o *formatOptions) {
		o.placeholder = placeholder
	}
}

// WithLimit drops all fraction digits for values >= limit.
func WithLimit(limit float64) FormatOption {
	return func(o *formatOptions) {
		o.limit = &limit
	}
}

// Formatter formats numbers and dates for one locale.
type Formatter struct {
	tag     language.Tag
	printer *message.Printer
}

// NewFormatter creates a Formatter for the given locale.
func NewFormatter(tag language.Tag) *Formatter {
	return &Formatter{
		tag:     tag,
		printer: message.NewPrinter(tag),
	}
}

// ParseLocale parses a BCP 47 tag such as "de-DE".
func ParseLocale(s string) (language.Tag, error) {
	tag, err := language.Parse(s)
	if err != nil {
		return language.Und, fmt.Errorf("parse locale %q: %w", s, err)
	}
	return tag, nil
}

// Locale returns the formatter's locale.
func (f *Formatter) Locale() language.Tag {
	return f.tag
}

// Number formats value with locale grouping and exactly fractionDigits
// fraction digits.
func (f *Formatter) Number(value float64, fractionDigits int, opts ...FormatOption) string {
	var o formatOptions
	for _, opt := range opts {
		opt(&o)
	}

	if o.placeholder != "" && value == 0 {
		return o.placeholder
	}
	if o.limit != nil && value >= *o.limit {
		fractionDigits = 0
	}
	if fractionDigits < 0 {
		fractionDigits = 0
	}

	return f.printer.Sprintf("%v", number.Decimal(roundHalfAway(value, fractionDigits),
		number.MinFractionDigits(fractionDigits),
		number.MaxFractionDigits(fractionDigits),
	))
}

// roundHalfAway rounds value to digits fraction digits with ties away from
// zero. x/text alone would round ties to even.
func roundHalfAway(value float64, digits int) float64 {
	scale := math.Pow10(digits)
	scaled := value * scale
	if math.IsInf(scaled, 0) || math.IsNaN(scaled) {
		return value
	}
	return math.Round(scaled) / scale
}

// Count formats an integer count with locale grouping.
func (f *Formatter) Count(n int64) string {
	return f.printer.Sprintf("%v", number.Decimal(n))
}

// FormatDate formats t as dd.mm.yyyy.
func FormatDate(t time.Time) string {
	return t.Format("02.01.2006")
}

// FormatClock formats t as HH:MM.
func FormatClock(t time.Time) string {
	return t.Format("15:04")
}

var defaultFormatter = NewFormatter(DefaultLocale)

// FormatNumber formats value using the default locale.
func FormatNumber(value float64, fractionDigits int, opts ...FormatOption) string {
	return defaultFormatter.Number(value, fractionDigits, opts...)
}
