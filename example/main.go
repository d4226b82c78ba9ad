package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jpalmerr/poolbridge"
	"github.com/jpalmerr/poolbridge/example/mockpool"
)

func main() {
	// two simulated controllers, one of them unreliable
	go serveMock(":11000", mockpool.Options{})
	go serveMock(":11001", mockpool.Options{FailureRate: 0.2, SlowRate: 0.1, SlowDelay: 15 * time.Second})
	time.Sleep(100 * time.Millisecond)

	garden, err := poolbridge.NewTargetConfig("localhost:11000",
		poolbridge.WithName("Back Garden"),
		poolbridge.WithPollInterval(5*time.Second),
	)
	if err != nil {
		slog.Error("failed to create target", "error", err)
		os.Exit(1)
	}

	spa, err := poolbridge.NewTargetConfig("localhost:11001",
		poolbridge.WithName("Spa"),
		poolbridge.WithPollInterval(10*time.Second),
	)
	if err != nil {
		slog.Error("failed to create target", "error", err)
		os.Exit(1)
	}

	b, err := poolbridge.New(
		poolbridge.WithTargets(garden, spa),
		poolbridge.WithPort(8080),
		poolbridge.WithTitle("Pool Bridge Demo"),
		poolbridge.WithUpdateCallback(func(u poolbridge.TargetUpdate) {
			if !u.Outcome.OK() {
				slog.Info("refresh failed", "target", u.Target.Name(), "state", u.State, "reason", u.Outcome.Reason)
			}
		}),
	)
	if err != nil {
		slog.Error("failed to create bridge", "error", err)
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════════════════╗")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Pool Bridge Demo                                    ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Open http://localhost:8080 in your browser          ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Targets:                                            ║")
	fmt.Println("  ║   • Back Garden (reliable, 5s interval)               ║")
	fmt.Println("  ║   • Spa (20% failures, some slow answers, 10s)        ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ║   Press Ctrl+C to stop                                ║")
	fmt.Println("  ║                                                       ║")
	fmt.Println("  ╚═══════════════════════════════════════════════════════╝")
	fmt.Println()

	// set up context with signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := b.Start(ctx); err != nil {
		slog.Error("bridge error", "error", err)
		os.Exit(1)
	}
}

func serveMock(addr string, opts mockpool.Options) {
	opts.Logger = slog.Default().With("mock", addr)
	if err := http.ListenAndServe(addr, mockpool.New(opts)); err != nil {
		slog.Error("mock server error", "addr", addr, "error", err)
	}
}
