//go:build integration

// Package testutils provides a fake feed and a MinIO archive for integration tests.
package testutils

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// FeedEntry is one element of the vaccination feed.
type FeedEntry struct {
	Cumulative       int64  `json:"cumsum_latest"`
	CumulativeSecond int64  `json:"cumsum2_latest"`
	Date             string `json:"date"`
}

// FeedServer serves a fixed feed body and counts requests.
type FeedServer struct {
	*httptest.Server
	requests atomic.Int64
}

// Requests returns how many requests were served.
func (s *FeedServer) Requests() int64 {
	return s.requests.Load()
}

// FeedURL returns the URL of the feed document.
func (s *FeedServer) FeedURL() string {
	return s.URL + "/feed.json"
}

// StartTestFeedServer serves entries as JSON at /feed.json.
func StartTestFeedServer(t *testing.T, entries ...FeedEntry) *FeedServer {
	t.Helper()

	body, err := json.Marshal(entries)
	if err != nil {
		t.Fatalf("marshal feed: %v", err)
	}

	fs := &FeedServer{}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fs.requests.Add(1)
		if r.URL.Path != "/feed.json" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	}))
	t.Cleanup(fs.Close)
	return fs
}

// MinioEnv describes a running MinIO container.
type MinioEnv struct {
	Container testcontainers.Container
	BucketURL string
	Endpoint  string
}

// Close terminates the container.
func (e *MinioEnv) Close(ctx context.Context) error {
	if e.Container != nil {
		return e.Container.Terminate(ctx)
	}
	return nil
}

// StartMinioContainer starts MinIO with bucketName created and returns an
// s3:// bucket URL for gocloud. AWS credentials are set for the test.
func StartMinioContainer(t *testing.T, ctx context.Context, bucketName string) *MinioEnv {
	t.Helper()

	const (
		accessKey = "minioadmin"
		secretKey = "minioadmin"
	)

	networkName := fmt.Sprintf("impfwidget-net-%d", time.Now().UnixNano())
	network, err := testcontainers.GenericNetwork(ctx, testcontainers.GenericNetworkRequest{
		NetworkRequest: testcontainers.NetworkRequest{Name: networkName},
	})
	if err != nil {
		t.Fatalf("create network: %v", err)
	}
	t.Cleanup(func() { network.Remove(ctx) })

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:          "minio/minio:latest",
			ExposedPorts:   []string{"9000/tcp"},
			Networks:       []string{networkName},
			NetworkAliases: map[string][]string{networkName: {"minio"}},
			Env: map[string]string{
				"MINIO_ROOT_USER":     accessKey,
				"MINIO_ROOT_PASSWORD": secretKey,
			},
			Cmd:        []string{"server", "/data"},
			WaitingFor: wait.ForHTTP("/minio/health/ready").WithPort("9000"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start minio container: %v", err)
	}

	makeBucket(t, ctx, networkName, accessKey, secretKey, bucketName)

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "9000")
	if err != nil {
		t.Fatalf("get container port: %v", err)
	}
	endpoint := fmt.Sprintf("%s:%s", host, port.Port())

	t.Setenv("AWS_ACCESS_KEY_ID", accessKey)
	t.Setenv("AWS_SECRET_ACCESS_KEY", secretKey)

	return &MinioEnv{
		Container: container,
		BucketURL: fmt.Sprintf("s3://%s?endpoint=http://%s&use_path_style=true&disable_https=true&region=us-east-1",
			bucketName, endpoint),
		Endpoint: endpoint,
	}
}

// makeBucket runs a one-shot minio/mc container on the shared network.
func makeBucket(t *testing.T, ctx context.Context, networkName, accessKey, secretKey, bucketName string) {
	t.Helper()

	script := fmt.Sprintf("/usr/bin/mc alias set local http://minio:9000 %s %s && /usr/bin/mc mb local/%s; exit 0",
		accessKey, secretKey, bucketName)

	mc, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:      "minio/mc:latest",
			Networks:   []string{networkName},
			Entrypoint: []string{"/bin/sh", "-c"},
			Cmd:        []string{script},
			WaitingFor: wait.ForExit(),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start mc container: %v", err)
	}
	defer mc.Terminate(ctx)
}
