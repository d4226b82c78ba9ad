// Standalone mock pool controller for testing the CLI.
//
// Usage:
//
//	go run ./example/cmd/mockserver
//
// Then in another terminal:
//
//	go run ./cmd/poolbridge serve -c example/config.yaml
package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/jpalmerr/poolbridge/example/mockpool"
)

func main() {
	addr := flag.StringP("addr", "a", ":11000", "listen address")
	failureRate := flag.Float64("failure-rate", 0, "share of requests answered with HTTP 500")
	slowRate := flag.Float64("slow-rate", 0, "share of requests answered after --slow-delay")
	slowDelay := flag.Duration("slow-delay", 15*time.Second, "delay of slow answers")
	flag.Parse()

	fmt.Printf("Mock pool controller starting on %s\n", *addr)
	fmt.Printf("Status document: http://localhost%s%s\n", *addr, mockpool.Path)
	fmt.Println("Press Ctrl+C to stop")
	fmt.Println()

	ctrl := mockpool.New(mockpool.Options{
		FailureRate: *failureRate,
		SlowRate:    *slowRate,
		SlowDelay:   *slowDelay,
	})

	if err := http.ListenAndServe(*addr, ctrl); err != nil {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}
