// Package feed fetches vaccination snapshots from the public JSON feed.
//
// The feed is an array of objects; only the first element is read:
//
//	[{"cumsum_latest": 100, "cumsum2_latest": 40, "date": "2021-01-05"}, ...]
//
// cumsum_latest counts everyone with at least one dose, so the first-dose
// count is cumsum_latest - cumsum2_latest.
//
// # Errors
//
// [Fetcher.Fetch] returns a [*FetchError] with one of three kinds:
//   - [KindNetwork]: transport failure or non-success status
//   - [KindParse]: invalid JSON, wrong shape, bad date or inconsistent counts
//   - [KindMissingField]: empty feed, or a field absent, null or non-numeric
//
// [Fetcher.Load] never fails: it folds the error into a [Result] carrying an
// empty snapshot and a sentinel [Status].
package feed
