// Command genmock generates a mock Citizen trending API response and either
// writes it to a file or serves it over HTTP, so the service can be run and
// tested without hitting the real endpoint.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock/trending.json
//	go run ./cmd/genmock -addr :9091          # serve at /api/incident/trending
//
// Incident ages are fixed relative to generation time so the fixture
// exercises every recency tier.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// mockIncident mirrors the wire shape of a trending API record.
type mockIncident struct {
	Key          string         `json:"key"`
	Title        string         `json:"title"`
	Latitude     float64        `json:"latitude"`
	Longitude    float64        `json:"longitude"`
	Address      string         `json:"address"`
	Neighborhood string         `json:"neighborhood"`
	CityCode     string         `json:"cityCode"`
	Severity     string         `json:"severity"`
	Categories   []string       `json:"categories"`
	Source       string         `json:"source"`
	HasVod       bool           `json:"hasVod"`
	Nib          map[string]any `json:"nib,omitempty"`
	Updates      []mockUpdate   `json:"updates"`
	CS           int64          `json:"cs"`
	TS           int64          `json:"ts"`
}

type mockUpdate struct {
	TS   int64  `json:"ts"`
	Text string `json:"text"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the fixture JSON")
	addr := flag.String("addr", "", "serve the fixture over HTTP at this address instead of writing a file")
	flag.Parse()

	if *out == "" && *addr == "" {
		flag.Usage()
		return fmt.Errorf("one of -out or -addr is required")
	}

	if *addr != "" {
		mux := http.NewServeMux()
		mux.HandleFunc("GET /api/incident/trending", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			// Regenerate per request so ages stay fresh while serving.
			if err := json.NewEncoder(w).Encode(buildResponse(time.Now())); err != nil {
				log.Printf("encode response: %v", err)
			}
		})
		log.Printf("serving mock trending feed at http://%s/api/incident/trending", *addr)
		return http.ListenAndServe(*addr, mux)
	}

	data, err := json.MarshalIndent(buildResponse(time.Now()), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		return fmt.Errorf("write fixture: %w", err)
	}
	log.Printf("wrote fixture: %s", *out)
	return nil
}

// buildResponse returns a trending payload with one incident per recency
// tier, centered on lower Manhattan.
func buildResponse(now time.Time) map[string]any {
	ms := func(age time.Duration) int64 { return now.Add(-age).UnixMilli() }

	incidents := []mockIncident{
		{
			Key:          "mock-critical",
			Title:        "Structure Fire",
			Latitude:     40.7145,
			Longitude:    -74.0071,
			Address:      "123 Broadway",
			Neighborhood: "Financial District",
			CityCode:     "nyc",
			Severity:     "high",
			Categories:   []string{"fire"},
			Source:       "911",
			HasVod:       true,
			Nib:          map[string]any{"text": "FDNY on scene of a structure fire."},
			Updates: []mockUpdate{
				{TS: ms(10 * time.Minute), Text: "Fire reported on the third floor."},
				{TS: ms(5 * time.Minute), Text: "FDNY on scene."},
			},
			CS: ms(10 * time.Minute),
			TS: ms(5 * time.Minute),
		},
		{
			Key:        "mock-recent",
			Title:      "Vehicle Collision",
			Latitude:   40.7102,
			Longitude:  -74.0120,
			Severity:   "medium",
			Categories: []string{"traffic"},
			Updates: []mockUpdate{
				{TS: ms(45 * time.Minute), Text: "Two-car collision, lanes blocked."},
			},
			CS: ms(45 * time.Minute),
			TS: ms(45 * time.Minute),
		},
		{
			Key:        "mock-moderate",
			Title:      "Police Activity",
			Latitude:   40.7180,
			Longitude:  -74.0020,
			Categories: []string{"police"},
			CS:         ms(3 * time.Hour),
			TS:         ms(3 * time.Hour),
		},
		{
			Key:       "mock-aging",
			Title:     "Water Main Break",
			Latitude:  40.7090,
			Longitude: -74.0010,
			CS:        ms(18 * time.Hour),
			TS:        ms(18 * time.Hour),
		},
		{
			Key:       "mock-old",
			Title:     "Road Closure",
			Latitude:  40.7130,
			Longitude: -74.0150,
			CS:        ms(72 * time.Hour),
			TS:        ms(72 * time.Hour),
		},
	}

	return map[string]any{"results": incidents}
}
