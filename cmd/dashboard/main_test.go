package main

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/signalsfoundry/rlnc-dashboard/internal/config"
	"github.com/signalsfoundry/rlnc-dashboard/internal/logging"
)

func listen(t *testing.T) net.Listener {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("net.Listen: %v", err)
	}
	t.Cleanup(func() { _ = lis.Close() })
	return lis
}

func TestDashboardStartupSmoke(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	httpLis := listen(t)
	grpcLis := listen(t)
	cfg := config.Default()
	cfg.LogLevel = "warn"
	log := logging.New(logging.Config{Level: cfg.LogLevel, Output: io.Discard})

	errCh := make(chan error, 1)
	go func() {
		errCh <- run(ctx, cfg, log, httpLis, grpcLis)
	}()

	base := "http://" + httpLis.Addr().String()
	resp, err := http.Get(base + "/api/playback")
	if err != nil {
		t.Fatalf("GET /api/playback: %v", err)
	}
	var body struct {
		State struct {
			MaxStep int `json:"max_step"`
		} `json:"state"`
	}
	err = json.NewDecoder(resp.Body).Decode(&body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("decode playback: %v", err)
	}
	if body.State.MaxStep != 49 {
		t.Fatalf("max_step = %d, want 49", body.State.MaxStep)
	}

	resp, err = http.Get(base + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	metrics, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	for _, name := range []string{"playback_current_step", "go_goroutines", "dashboard_http_requests_total"} {
		if !strings.Contains(string(metrics), name) {
			t.Fatalf("/metrics missing %q", name)
		}
	}

	conn, err := grpc.NewClient(grpcLis.Addr().String(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("grpc.NewClient: %v", err)
	}
	defer conn.Close()
	hc, err := healthpb.NewHealthClient(conn).Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		t.Fatalf("health Check: %v", err)
	}
	if hc.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("health status = %v, want SERVING", hc.GetStatus())
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("run did not return after cancellation")
	}
}

func TestRunFailsOnBadDataset(t *testing.T) {
	cfg := config.Default()
	cfg.Dataset = "testdata/does-not-exist.yaml"

	err := run(context.Background(), cfg, logging.Noop(), listen(t), nil)
	if err == nil || !strings.Contains(err.Error(), "does-not-exist.yaml") {
		t.Fatalf("run() error = %v, want dataset path in error", err)
	}
}

func TestLoadStoreFromFile(t *testing.T) {
	store, err := loadStore(context.Background(), "../../kb/testdata/small.yaml", logging.Noop())
	if err != nil {
		t.Fatalf("loadStore: %v", err)
	}
	if got := len(store.Nodes()); got != 2 {
		t.Fatalf("len(Nodes()) = %d, want 2", got)
	}
}
