package api

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestServer_ServesOnLoopback(t *testing.T) {
	cfg := testConfig(t)
	srv := NewServer(cfg)

	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	addr := srv.Addr()
	if !strings.HasPrefix(addr, "127.0.0.1:") || strings.HasSuffix(addr, ":0") {
		t.Fatalf("Addr() = %q, want a bound loopback port", addr)
	}

	done := make(chan error, 1)
	go func() { done <- srv.Start() }()

	req, _ := http.NewRequest(http.MethodGet, "http://"+addr+"/project", nil)
	req.Header.Set("Authorization", "Bearer "+testToken)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET /project error = %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Start() returned %v after shutdown", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Start() did not return after Shutdown")
	}
}
