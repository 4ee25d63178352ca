package server

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGracefulShutdownOrder(t *testing.T) {
	t.Parallel()

	srv := New(http.NewServeMux(), 0, time.Second, time.Second, time.Second, discardLogger())

	var order []string
	srv.OnShutdown("audit-worker", func(ctx context.Context) error {
		order = append(order, "audit-worker")
		return nil
	})
	srv.OnShutdown("webhook-worker", func(ctx context.Context) error {
		order = append(order, "webhook-worker")
		return nil
	})

	if err := srv.gracefulShutdown(); err != nil {
		t.Fatalf("gracefulShutdown failed: %v", err)
	}

	if len(order) != 2 || order[0] != "webhook-worker" || order[1] != "audit-worker" {
		t.Errorf("shutdown order = %v, want last registered first", order)
	}
}

func TestGracefulShutdownCollectsErrors(t *testing.T) {
	t.Parallel()

	srv := New(http.NewServeMux(), 0, time.Second, time.Second, time.Second, discardLogger())

	failure := errors.New("drain failed")
	var ran bool
	srv.OnShutdown("healthy", func(ctx context.Context) error {
		ran = true
		return nil
	})
	srv.OnShutdown("failing", func(ctx context.Context) error {
		return failure
	})

	err := srv.gracefulShutdown()
	if !errors.Is(err, failure) {
		t.Fatalf("gracefulShutdown error = %v, want %v wrapped", err, failure)
	}
	if !ran {
		t.Error("a failing component must not stop the remaining hooks")
	}
}
