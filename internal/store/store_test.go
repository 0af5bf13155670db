package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/memblob"

	"github.com/ligustah/impfwidget/internal/feed"
)

func openMem(t *testing.T) *Archive {
	t.Helper()

	a, err := Open(context.Background(), "mem://")
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func snapshotOn(day int, first, second int64) feed.Snapshot {
	return feed.Snapshot{
		FirstDoseCount:  first,
		SecondDoseCount: second,
		ReportDate:      time.Date(2021, time.January, day, 0, 0, 0, 0, time.UTC),
	}
}

func TestSaveAndLatest(t *testing.T) {
	ctx := context.Background()
	a := openMem(t)

	if err := a.Save(ctx, snapshotOn(5, 60, 40)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := a.Save(ctx, snapshotOn(6, 70, 45)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	latest, err := a.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest != snapshotOn(6, 70, 45) {
		t.Errorf("unexpected latest %+v", latest)
	}

	old, err := a.Get(ctx, "2021-01-05")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if old.FirstDoseCount != 60 || old.SecondDoseCount != 40 {
		t.Errorf("unexpected snapshot %+v", old)
	}

	dates, err := a.Dates(ctx)
	if err != nil {
		t.Fatalf("Dates: %v", err)
	}
	if len(dates) != 2 || dates[0] != "2021-01-05" || dates[1] != "2021-01-06" {
		t.Errorf("unexpected dates %v", dates)
	}
}

func TestLatestEmpty(t *testing.T) {
	a := openMem(t)

	_, err := a.Latest(context.Background())
	if !errors.Is(err, ErrNoSnapshot) {
		t.Errorf("expected ErrNoSnapshot, got %v", err)
	}
}

func TestSaveRejectsEmptySnapshot(t *testing.T) {
	a := openMem(t)

	if err := a.Save(context.Background(), feed.Snapshot{}); err == nil {
		t.Error("expected error for snapshot without date")
	}
}

func TestPrefix(t *testing.T) {
	ctx := context.Background()
	bucket, err := blob.OpenBucket(ctx, "mem://")
	if err != nil {
		t.Fatalf("open bucket: %v", err)
	}
	defer bucket.Close()

	a := New(bucket, "widgets/de")
	if err := a.Save(ctx, snapshotOn(5, 1, 1)); err != nil {
		t.Fatalf("Save: %v", err)
	}

	exists, err := bucket.Exists(ctx, "widgets/de/latest.json")
	if err != nil {
		t.Fatalf("Exists: %v", err)
	}
	if !exists {
		t.Error("expected latest.json under prefix")
	}

	// Closing a wrapped archive leaves the bucket usable.
	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := bucket.Exists(ctx, "widgets/de/snapshots/2021-01-05.json"); err != nil {
		t.Errorf("bucket closed unexpectedly: %v", err)
	}
}

func TestCorruptRecord(t *testing.T) {
	ctx := context.Background()
	bucket, err := blob.OpenBucket(ctx, "mem://")
	if err != nil {
		t.Fatalf("open bucket: %v", err)
	}
	defer bucket.Close()

	if err := bucket.WriteAll(ctx, "latest.json", []byte("{not json"), nil); err != nil {
		t.Fatalf("WriteAll: %v", err)
	}

	a := New(bucket, "")
	_, err = a.Latest(ctx)
	if err == nil || errors.Is(err, ErrNoSnapshot) {
		t.Errorf("expected decode error, got %v", err)
	}
}
