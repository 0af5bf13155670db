// Package progress turns vaccination counts into progress figures.
//
// It computes population percentages, splits them into fixed-width bar
// segments and formats numbers the way a German locale would.
//
// # Usage
//
//	pct := progress.Percent(snap.FirstDoseCount, progress.GermanyPopulation)
//	bar := progress.Bar(pct, progress.DefaultSegments)
//	label := progress.FormatNumber(pct, 2, progress.WithPlaceholder("n/v"))
//
// # Bar Segments
//
// Segment i of a ten-segment bar is filled iff percent > i*10. The
// comparison is strict, so exactly 50% leaves segment 5 unfilled:
//
//	Bar(0)   = [ ][ ][ ][ ][ ][ ][ ][ ][ ][ ]
//	Bar(50)  = [x][x][x][x][x][ ][ ][ ][ ][ ]
//	Bar(55)  = [x][x][x][x][x][x][ ][ ][ ][ ]
//	Bar(100) = [x][x][x][x][x][x][x][x][x][x]
package progress
