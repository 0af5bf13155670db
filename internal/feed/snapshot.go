package feed

import "time"

// DateLayout is the layout of report dates in JSON output.
const DateLayout = "2006-01-02"

// Snapshot holds cumulative vaccination counts at a report date.
type Snapshot struct {
	FirstDoseCount  int64     `json:"first_dose_count"`
	SecondDoseCount int64     `json:"second_dose_count"`
	ReportDate      time.Time `json:"report_date"`
}

// IsZero reports whether s is the empty snapshot.
func (s Snapshot) IsZero() bool {
	return s.FirstDoseCount == 0 && s.SecondDoseCount == 0 && s.ReportDate.IsZero()
}

// Status is a sentinel code describing how a snapshot was obtained.
type Status int

// Status codes mirror HTTP semantics.
const (
	StatusOK       Status = 200
	StatusNotFound Status = 404
	StatusOffline  Status = 418
	StatusError    Status = 500
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNotFound:
		return "notfound"
	case StatusOffline:
		return "offline"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Result is the non-failing outcome of a fetch. On failure Snapshot is
// empty, Status is a sentinel and Err holds the cause.
type Result struct {
	Snapshot Snapshot
	Status   Status
	Err      error
}

// OK reports whether the fetch succeeded.
func (r Result) OK() bool {
	return r.Status == StatusOK
}

// statusFor maps a fetch error onto a sentinel status.
func statusFor(err error) Status {
	switch {
	case err == nil:
		return StatusOK
	case IsKind(err, KindNetwork):
		return StatusOffline
	case IsKind(err, KindParse), IsKind(err, KindMissingField):
		return StatusNotFound
	default:
		return StatusError
	}
}
