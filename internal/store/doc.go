// Package store archives vaccination snapshots in a gocloud.dev blob bucket.
//
// # Storage Layout
//
//	{bucket}/{prefix}latest.json
//	{bucket}/{prefix}snapshots/2021-01-05.json
//	{bucket}/{prefix}snapshots/2021-01-06.json
//
// # Record Format
//
//	{"first_dose_count": 60, "second_dose_count": 40, "report_date": "2021-01-05"}
package store
