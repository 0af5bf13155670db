package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"gocloud.dev/blob"
	"gocloud.dev/gcerrors"

	"github.com/ligustah/impfwidget/internal/feed"
)

// ErrNoSnapshot is returned when the archive holds no snapshot.
var ErrNoSnapshot = errors.New("store: no snapshot")

const (
	latestKey      = "latest.json"
	snapshotPrefix = "snapshots/"
)

// Archive stores snapshots in a blob bucket.
type Archive struct {
	bucket *blob.Bucket
	prefix string
	owned  bool
}

// Open opens the bucket at url (mem://, file://, s3://, gs://).
// The caller must Close the archive.
func Open(ctx context.Context, url string) (*Archive, error) {
	bkt, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("open bucket: %w", err)
	}
	return &Archive{bucket: bkt, owned: true}, nil
}

// New wraps an already open bucket. Objects are stored under prefix.
// Close does not close the bucket.
func New(bucket *blob.Bucket, prefix string) *Archive {
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return &Archive{bucket: bucket, prefix: prefix}
}

// Close releases the bucket if Open created it.
func (a *Archive) Close() error {
	if !a.owned {
		return nil
	}
	return a.bucket.Close()
}

// record is the stored form of a snapshot.
type record struct {
	FirstDoseCount  int64  `json:"first_dose_count"`
	SecondDoseCount int64  `json:"second_dose_count"`
	ReportDate      string `json:"report_date"`
}

// Save writes snap under its report date and as the latest snapshot.
func (a *Archive) Save(ctx context.Context, snap feed.Snapshot) error {
	if snap.ReportDate.IsZero() {
		return errors.New("store: snapshot has no report date")
	}

	data, err := json.Marshal(record{
		FirstDoseCount:  snap.FirstDoseCount,
		SecondDoseCount: snap.SecondDoseCount,
		ReportDate:      snap.ReportDate.Format(feed.DateLayout),
	})
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	opts := &blob.WriterOptions{ContentType: "application/json"}
	if err := a.bucket.WriteAll(ctx, a.key(dateKey(snap)), data, opts); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := a.bucket.WriteAll(ctx, a.key(latestKey), data, opts); err != nil {
		return fmt.Errorf("write latest: %w", err)
	}
	return nil
}

// Latest returns the most recently saved snapshot.
func (a *Archive) Latest(ctx context.Context) (feed.Snapshot, error) {
	return a.read(ctx, a.key(latestKey))
}

// Get returns the snapshot for a report date in yyyy-mm-dd form.
func (a *Archive) Get(ctx context.Context, date string) (feed.Snapshot, error) {
	return a.read(ctx, a.key(snapshotPrefix+date+".json"))
}

// Dates lists archived report dates in ascending order.
func (a *Archive) Dates(ctx context.Context) ([]string, error) {
	var dates []string
	iter := a.bucket.List(&blob.ListOptions{Prefix: a.key(snapshotPrefix)})
	for {
		obj, err := iter.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("list snapshots: %w", err)
		}
		name := strings.TrimSuffix(path.Base(obj.Key), ".json")
		dates = append(dates, name)
	}
	sort.Strings(dates)
	return dates, nil
}

func (a *Archive) read(ctx context.Context, key string) (feed.Snapshot, error) {
	data, err := a.bucket.ReadAll(ctx, key)
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return feed.Snapshot{}, ErrNoSnapshot
		}
		return feed.Snapshot{}, fmt.Errorf("read %s: %w", key, err)
	}

	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return feed.Snapshot{}, fmt.Errorf("decode %s: %w", key, err)
	}

	date, err := time.Parse(feed.DateLayout, rec.ReportDate)
	if err != nil {
		return feed.Snapshot{}, fmt.Errorf("decode %s: %w", key, err)
	}

	return feed.Snapshot{
		FirstDoseCount:  rec.FirstDoseCount,
		SecondDoseCount: rec.SecondDoseCount,
		ReportDate:      date,
	}, nil
}

func (a *Archive) key(name string) string {
	return a.prefix + name
}

func dateKey(snap feed.Snapshot) string {
	return snapshotPrefix + snap.ReportDate.Format(feed.DateLayout) + ".json"
}
