package widget

import (
	"fmt"
	"strings"
	"time"

	"github.com/ligustah/impfwidget/internal/feed"
	"github.com/ligustah/impfwidget/internal/progress"
)

// Family is the widget size class.
type Family string

const (
	// FamilySmall renders compact rows without percentages.
	FamilySmall Family = "small"
	// FamilyMedium renders blocks with a percentage label.
	FamilyMedium Family = "medium"
)

// ParseFamily parses "small" or "medium".
func ParseFamily(s string) (Family, error) {
	switch Family(strings.ToLower(s)) {
	case FamilySmall:
		return FamilySmall, nil
	case FamilyMedium:
		return FamilyMedium, nil
	default:
		return "", fmt.Errorf("widget: unknown family %q", s)
	}
}

// DefaultRefreshInterval is how long a widget stays current.
const DefaultRefreshInterval = 8 * time.Hour

// Placeholder is shown instead of a zero percentage or a missing date.
const Placeholder = "n/v"

// Glyphs.
const (
	GlyphSyringe = "💉"
	GlyphTrend   = "↑"
	GlyphSegment = "▩"
)

// Labels.
const (
	Title            = "Impffortschritt"
	LabelFirstDose   = "Erstimpfung"
	LabelSecondDose  = "Zweitimpfung"
	percentSeparator = "%"
)

// Colours.
const (
	ColorBackground = "#000000"
	ColorBlock      = "#99999915"
	ColorGreen      = "#00cc00"
	ColorGray       = "#d0d0d0"
	ColorLabel      = "#777777"
)

// Fonts.
var (
	FontXLarge = Font{Size: 26, Weight: WeightBold}
	FontLarge  = Font{Size: 20, Weight: WeightMedium}
	FontMedium = Font{Size: 14, Weight: WeightMedium}
	FontNormal = Font{Size: 12, Weight: WeightMedium}
	FontSmall  = Font{Size: 11, Weight: WeightBold}
	FontSmall2 = Font{Size: 10, Weight: WeightBold}
	FontXSmall = Font{Size: 9, Weight: WeightBold}
	FontIcon   = Font{Size: 16, Weight: WeightMedium}
)

// Widget is a complete layout handed to a renderer.
type Widget struct {
	Family       Family      `json:"family"`
	Background   string      `json:"background"`
	Padding      Padding     `json:"padding"`
	Status       feed.Status `json:"status"`
	RefreshAfter time.Time   `json:"refresh_after"`
	Root         Node        `json:"root"`
}

// Input holds everything Build needs.
type Input struct {
	Snapshot feed.Snapshot
	Status   feed.Status
	Family   Family

	// Population is the percentage divisor.
	// Default: progress.GermanyPopulation
	Population int64

	// RefreshInterval sets Widget.RefreshAfter relative to Now.
	// Default: DefaultRefreshInterval
	RefreshInterval time.Duration

	// Now is the render time.
	// Default: time.Now()
	Now time.Time

	// Formatter formats numbers.
	// Default: German locale
	Formatter *progress.Formatter
}

// Build lays out a widget for in.
func Build(in Input) Widget {
	if in.Family == "" {
		in.Family = FamilyMedium
	}
	if in.Population <= 0 {
		in.Population = progress.GermanyPopulation
	}
	if in.RefreshInterval <= 0 {
		in.RefreshInterval = DefaultRefreshInterval
	}
	if in.Now.IsZero() {
		in.Now = time.Now()
	}
	if in.Formatter == nil {
		in.Formatter = progress.NewFormatter(progress.DefaultLocale)
	}
	if in.Status == 0 {
		in.Status = feed.StatusOK
	}

	b := builder{in: in}

	root := Stack(Vertical).Add(b.header())

	first, second := in.Snapshot.FirstDoseCount, in.Snapshot.SecondDoseCount
	if in.Family == FamilySmall {
		root = root.Add(
			b.row(first, LabelFirstDose),
			b.row(second, LabelSecondDose),
		)
	} else {
		root = root.Add(
			b.block(first, LabelFirstDose),
			Spacer(3),
			b.block(second, LabelSecondDose),
		)
	}

	stateBar := Stack(Horizontal, WithPadding(0, 0, 0, 0)).Add(Spacer(6))
	root = root.Add(Spacer(3), stateBar, Spacer(15))

	return Widget{
		Family:       in.Family,
		Background:   ColorBackground,
		Status:       in.Status,
		RefreshAfter: in.Now.Add(in.RefreshInterval),
		Root:         root,
	}
}

type builder struct {
	in Input
}

func (b builder) header() Node {
	updated := Placeholder
	if !b.in.Snapshot.ReportDate.IsZero() {
		updated = progress.FormatDate(b.in.Snapshot.ReportDate)
	}
	updated += " " + progress.FormatClock(b.in.Now)

	titles := Stack(Vertical, WithPadding(0, 0, 0, 0)).Add(
		Text(Title, FontMedium, "", 0, 0.9),
		Text(updated, FontXSmall, ColorLabel, 0, 0.9),
	)

	return Stack(Horizontal, WithPadding(4, 8, 4, 4)).Add(
		Text(GlyphSyringe, FontIcon, "", 0, 0.9),
		Spacer(3),
		titles,
	)
}

// row is the compact small-family layout.
func (b builder) row(count int64, name string) Node {
	label := Stack(Horizontal, WithPadding(4, 0, 0, 5)).Add(
		Spacer(0),
		Text(b.in.Formatter.Count(count), FontSmall2, ColorGray, 1, 1),
		Text(GlyphTrend, FontSmall2, ColorGreen, 1, 1),
		Text(strings.ToUpper(name), FontSmall2, ColorLabel, 1, 1),
	)

	pct := progress.Percent(count, b.in.Population)
	bar := Stack(Horizontal, WithPadding(0, 0, 0, 5)).Add(Spacer(10))
	bar = bar.Add(segments(pct)...)
	bar = bar.Add(Spacer(0))

	return Stack(Vertical, WithBackground(ColorBlock), WithCornerRadius(12)).Add(
		label,
		bar,
		Spacer(2),
	)
}

// block is the medium-family layout with a percentage label.
func (b builder) block(count int64, name string) Node {
	label := Stack(Horizontal, WithPadding(4, 0, 0, 5)).Add(
		Spacer(2),
		Text(b.in.Formatter.Count(count), FontSmall2, ColorGray, 1, 1),
		Text(GlyphTrend, FontSmall2, ColorGray, 1, 1),
		Text(strings.ToUpper(name), FontSmall2, ColorLabel, 1, 1),
	)

	pct := progress.Percent(count, b.in.Population)
	bar := Stack(Horizontal, WithPadding(0, 0, 0, 5)).Add(
		Text(b.in.Formatter.Number(pct, 2, progress.WithPlaceholder(Placeholder)), FontSmall2, ColorGray, 1, 1),
		Text(percentSeparator, FontSmall2, ColorGray, 1, 1),
	)
	bar = bar.Add(segments(pct)...)
	bar = bar.Add(Spacer(2))

	return Stack(Vertical, WithBackground(ColorBlock), WithCornerRadius(5)).Add(
		label,
		bar,
	)
}

func segments(pct float64) []Node {
	flags := progress.Bar(pct, progress.DefaultSegments)
	nodes := make([]Node, len(flags))
	for i, filled := range flags {
		if filled {
			nodes[i] = Text(GlyphSegment, FontNormal, ColorGreen, 1, 1)
		} else {
			nodes[i] = Text(GlyphSegment, FontSmall, ColorGray, 1, 1)
		}
	}
	return nodes
}
