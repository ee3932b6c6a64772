package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"
)

type target struct {
	Method       string `json:"method"`
	Path         string `json:"path"`
	ExpectStatus int    `json:"expect_status"`
	Critical     bool   `json:"critical"`
}

type config struct {
	Targets []target `json:"targets"`
}

type probe struct {
	Target   target
	Status   int
	Pass     bool
	Error    error
	Duration time.Duration
}

// defaultTargets covers the unauthenticated surface: liveness, the public
// catalog and the auth wall in front of protected resources.
func defaultTargets() []target {
	return []target{
		{Method: http.MethodGet, Path: "/health", ExpectStatus: http.StatusOK, Critical: true},
		{Method: http.MethodGet, Path: "/ready", ExpectStatus: http.StatusOK, Critical: true},
		{Method: http.MethodGet, Path: "/metrics", ExpectStatus: http.StatusOK},
		{Method: http.MethodGet, Path: "/api/v1/education-levels", ExpectStatus: http.StatusOK, Critical: true},
		{Method: http.MethodGet, Path: "/api/v1/programs/search?limit=1", ExpectStatus: http.StatusOK, Critical: true},
		{Method: http.MethodGet, Path: "/api/v1/universities", ExpectStatus: http.StatusOK},
		{Method: http.MethodGet, Path: "/api/v1/applications", ExpectStatus: http.StatusUnauthorized, Critical: true},
		{Method: http.MethodGet, Path: "/api/v1/dashboard", ExpectStatus: http.StatusUnauthorized},
	}
}

func main() {
	var (
		base        string
		targetsPath string
		timeout     time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&targetsPath, "targets", "", "Optional JSON targets file overriding the built-in probe set")
	flag.DurationVar(&timeout, "timeout", 5*time.Second, "HTTP client timeout")
	flag.Parse()

	targets := defaultTargets()
	if targetsPath != "" {
		loaded, err := loadTargets(targetsPath)
		if err != nil {
			log.Fatalf("failed to load targets: %v", err)
		}
		targets = loaded
	}

	client := &http.Client{Timeout: timeout}
	var (
		probes   []probe
		breaking int
		warnings int
	)

	for _, t := range targets {
		p := runProbe(client, base, t)
		if !p.Pass {
			if t.Critical {
				breaking++
			} else {
				warnings++
			}
		}
		probes = append(probes, p)
	}

	printReport(probes)

	fmt.Printf("Failures: %d critical, %d warnings\n", breaking, warnings)
	if breaking > 0 {
		os.Exit(1)
	}
}

func loadTargets(path string) ([]target, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("no targets defined in %s", path)
	}
	return cfg.Targets, nil
}

func runProbe(client *http.Client, base string, tgt target) probe {
	p := probe{Target: tgt}

	method := strings.ToUpper(strings.TrimSpace(tgt.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := tgt.Path
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	url := strings.TrimRight(base, "/") + path

	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		p.Error = err
		return p
	}

	start := time.Now()
	resp, err := client.Do(req)
	p.Duration = time.Since(start)
	if err != nil {
		p.Error = err
		return p
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	p.Status = resp.StatusCode
	expected := tgt.ExpectStatus
	if expected == 0 {
		expected = http.StatusOK
	}
	p.Pass = p.Status == expected
	return p
}

func printReport(results []probe) {
	fmt.Println("Smoke Report")
	fmt.Println("============")
	for _, res := range results {
		status := "PASS"
		if res.Error != nil {
			status = "ERROR"
		} else if !res.Pass {
			status = "FAIL"
		}
		fmt.Printf("[%s] %s %s\n", status, res.Target.Method, res.Target.Path)
		if res.Error != nil {
			fmt.Printf("  Error: %v\n", res.Error)
			continue
		}
		fmt.Printf("  Status: %d (want %d) in %s | Critical: %t\n", res.Status, res.Target.ExpectStatus, res.Duration, res.Target.Critical)
	}
}
