package progress

// GermanyPopulation is the divisor used for population percentages.
const GermanyPopulation int64 = 83_190_556

// DefaultSegments is the number of segments in a progress bar.
const DefaultSegments = 10

// Percent returns raw as a percentage of total.
// The result is not clamped; a raw count above total yields more than 100.
// A non-positive total yields 0.
// Exact shares stay exact: 10 of 100 is 10, not 10.000000000000002.
func Percent(raw, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return float64(raw) * 100 / float64(total)
}

// Bar splits percent into segments equally wide buckets and reports which
// are filled. Segment i is filled iff percent > i*(100/segments).
func Bar(percent float64, segments int) []bool {
	if segments <= 0 {
		return nil
	}

	step := 100 / float64(segments)
	flags := make([]bool, segments)
	for i := range flags {
		flags[i] = percent > float64(i)*step
	}
	return flags
}

// Filled returns the number of filled segments in a bar.
func Filled(bar []bool) int {
	n := 0
	for _, f := range bar {
		if f {
			n++
		}
	}
	return n
}
