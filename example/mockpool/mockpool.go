// Package mockpool simulates a pool controller's /api/v1/pool/info endpoint
// for demos and manual testing.
//
// Readings drift slowly, the pump cycles between on and off, and a small
// share of requests fail with HTTP 500 or answer slowly so the bridge's
// degraded state can be seen on the dashboard.
package mockpool

import (
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"
)

// Path is where the status document is served.
const Path = "/api/v1/pool/info"

// Options control how often the mock misbehaves. Zero values disable failures.
type Options struct {
	// FailureRate is the share of requests answered with HTTP 500, 0..1.
	FailureRate float64

	// SlowRate is the share of requests delayed by SlowDelay, 0..1.
	SlowRate  float64
	SlowDelay time.Duration

	Logger *slog.Logger
}

// Controller is a simulated pool controller.
type Controller struct {
	opts Options
	rng  *rand.Rand

	mu         sync.Mutex
	pumpOn     bool
	rpm        float64
	powerTotal float64
	waterTemp  float64
	ph         float64
	orp        float64
	lastTick   time.Time
}

// New creates a Controller with plausible starting values.
func New(opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Controller{
		opts:       opts,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		pumpOn:     true,
		rpm:        1450,
		powerTotal: 987654,
		waterTemp:  26.5,
		ph:         7.2,
		orp:        720,
		lastTick:   time.Now(),
	}
}

// ServeHTTP serves the status document at [Path] and 404 elsewhere.
func (c *Controller) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != Path {
		http.NotFound(w, r)
		return
	}

	c.mu.Lock()
	fail := c.rng.Float64() < c.opts.FailureRate
	slow := c.rng.Float64() < c.opts.SlowRate
	c.mu.Unlock()

	if slow {
		c.opts.Logger.Info("answering slowly", "delay", c.opts.SlowDelay)
		select {
		case <-time.After(c.opts.SlowDelay):
		case <-r.Context().Done():
			return
		}
	}
	if fail {
		c.opts.Logger.Info("simulating controller failure")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(c.Document()); err != nil {
		c.opts.Logger.Error("failed to write response", "error", err)
	}
}

// Document advances the simulation and returns the current status document.
func (c *Controller) Document() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.advance(time.Now())

	pumpState, rpm, power := "off", 0.0, 0.0
	if c.pumpOn {
		pumpState, rpm, power = "on", c.rpm, c.rpm*0.29
	}

	return map[string]any{
		"state": map[string]any{
			"cards": map[string]any{
				"pumps": []any{map[string]any{
					"state":        pumpState,
					"rpm":          round(rpm, 0),
					"power":        round(power, 0),
					"powerTotal":   round(c.powerTotal, 0),
					"slabClose":    false,
					"waterPresent": true,
				}},
				"electrolyzer": map[string]any{"state": pumpState},
			},
			"spotlight": map[string]any{"state": "off", "mode": "white"},
			"roller":    map[string]any{"state": "open", "mode": "manual", "position": 0},
			"remote":    map[string]any{"number": 1, "state": "paired"},
			"filtration": map[string]any{
				"mode":       "auto",
				"actualProg": "P1",
				"state":      pumpState,
				"swimming":   map[string]any{"remainTime": 0},
				"pause":      map[string]any{"remainTime": 0},
			},
			"metrics": map[string]any{
				"waterTemperature":    round(c.waterTemp, 1),
				"airTemperature":      round(c.waterTemp-3.5, 1),
				"ph":                  round(c.ph, 2),
				"phAlarmLimits":       []any{6.8, 7.8},
				"orp":                 round(c.orp, 0),
				"orpAlarmLimits":      []any{650, 800},
				"freeChlorine":        round((c.orp-600)/100, 2),
				"salinity":            4.5,
				"salinityAlarmLimits": []any{3.5},
				"waterHardness":       15,
				"filterClogging":      12,
			},
		},
	}
}

// advance moves the simulation forward to now. Callers hold c.mu.
func (c *Controller) advance(now time.Time) {
	elapsed := now.Sub(c.lastTick)
	c.lastTick = now

	// toggle the pump roughly every ten minutes
	if c.rng.Float64() < elapsed.Minutes()/10 {
		c.pumpOn = !c.pumpOn
		c.opts.Logger.Info("pump toggled", "on", c.pumpOn)
	}
	if c.pumpOn {
		c.powerTotal += c.rpm * 0.29 * elapsed.Hours()
	}

	c.waterTemp = clamp(c.waterTemp+c.rng.NormFloat64()*0.05, 18, 32)
	c.ph = clamp(c.ph+c.rng.NormFloat64()*0.02, 6.5, 8.2)
	c.orp = clamp(c.orp+c.rng.NormFloat64()*3, 600, 850)
	c.rpm = clamp(c.rpm+c.rng.NormFloat64()*10, 1200, 1800)
}

func clamp(v, lo, hi float64) float64 {
	return max(lo, min(hi, v))
}

func round(v float64, places int) float64 {
	p := 1.0
	for range places {
		p *= 10
	}
	return float64(int64(v*p+0.5)) / p
}
