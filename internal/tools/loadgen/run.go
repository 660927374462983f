package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Config drives one synthetic traffic run against a deployment. Token must
// be a valid user or team bearer token; without it every request lands as
// 401, which is itself a useful smoke signal.
type Config struct {
	BaseURL     string
	Token       string
	Profile     string
	Duration    time.Duration
	RPS         int
	Concurrency int
	Seed        int64
}

type Result struct {
	TotalRequests int
	Failures      int
	StatusClasses map[string]int
}

type worker struct {
	client    *http.Client
	baseURL   string
	token     string
	rng       *rand.Rand
	sessionID string
}

// Run generates plugin-shaped traffic: session starts, heartbeats, session
// ends, log batches and dashboard reads, mixed per the chosen profile.
func Run(ctx context.Context, cfg Config) (*Result, error) {
	profile := normalizeProfile(cfg.Profile)
	if cfg.RPS <= 0 {
		cfg.RPS = 10
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.Duration <= 0 {
		cfg.Duration = 10 * time.Second
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")

	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	var (
		mu     sync.Mutex
		result = &Result{StatusClasses: make(map[string]int)}
		wg     sync.WaitGroup
	)
	interval := time.Second / time.Duration(cfg.RPS)

	for i := 0; i < cfg.Concurrency; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			w := &worker{
				client:  &http.Client{Timeout: 5 * time.Second},
				baseURL: baseURL,
				token:   cfg.Token,
				rng:     rand.New(rand.NewSource(cfg.Seed + int64(id))),
			}
			ticker := time.NewTicker(interval * time.Duration(cfg.Concurrency))
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					status, err := w.step(ctx, profile)
					mu.Lock()
					result.TotalRequests++
					if err != nil || status >= 500 {
						result.Failures++
					}
					if err == nil {
						result.StatusClasses[classifyStatusClass(status)]++
					}
					mu.Unlock()
				}
			}
		}(i)
	}
	wg.Wait()
	return result, nil
}

func (w *worker) step(ctx context.Context, profile string) (int, error) {
	switch profile {
	case "sessions":
		return w.sessionStep(ctx)
	case "logs":
		return w.logStep(ctx)
	default:
		if w.rng.Intn(3) == 0 {
			return w.readStep(ctx)
		}
		if w.rng.Intn(2) == 0 {
			return w.sessionStep(ctx)
		}
		return w.logStep(ctx)
	}
}

func (w *worker) sessionStep(ctx context.Context) (int, error) {
	if w.sessionID == "" {
		body := map[string]any{
			"device_name": fmt.Sprintf("loadgen-%02d", w.rng.Intn(8)),
			"is_remote":   w.rng.Intn(2) == 0,
			"repo_name":   fmt.Sprintf("repo-%02d", w.rng.Intn(4)),
			"branch":      "main",
		}
		status, resp, err := w.post(ctx, "/api/v1/sessions/start", body)
		if err != nil || status != http.StatusCreated {
			return status, err
		}
		var payload struct {
			Data struct {
				SessionID string `json:"session_id"`
			} `json:"data"`
		}
		if err := json.Unmarshal(resp, &payload); err == nil {
			w.sessionID = payload.Data.SessionID
		}
		return status, nil
	}

	// every tenth beat ends the session and starts fresh next tick
	if w.rng.Intn(10) == 0 {
		status, _, err := w.post(ctx, "/api/v1/sessions/"+w.sessionID+"/end", nil)
		w.sessionID = ""
		return status, err
	}
	body := map[string]any{"files": []string{fmt.Sprintf("src/file_%d.go", w.rng.Intn(30))}}
	status, _, err := w.post(ctx, "/api/v1/sessions/"+w.sessionID+"/heartbeat", body)
	if status == http.StatusNotFound || status == http.StatusBadRequest {
		w.sessionID = ""
	}
	return status, err
}

var logLevels = []string{"DEBUG", "INFO", "WARN", "ERROR"}

func (w *worker) logStep(ctx context.Context) (int, error) {
	n := 1 + w.rng.Intn(5)
	entries := make([]map[string]any, 0, n)
	for i := 0; i < n; i++ {
		entries = append(entries, map[string]any{
			"level":   logLevels[w.rng.Intn(len(logLevels))],
			"message": fmt.Sprintf("synthetic event %d", w.rng.Intn(1000)),
		})
	}
	status, _, err := w.post(ctx, "/api/v1/logs", map[string]any{"logs": entries})
	return status, err
}

func (w *worker) readStep(ctx context.Context) (int, error) {
	paths := []string{
		"/api/v1/activity?view=byUser",
		"/api/v1/activity?view=byUser&includeStale=true",
		"/api/v1/admin/users",
		"/api/v1/admin/repos",
	}
	return w.get(ctx, paths[w.rng.Intn(len(paths))])
}

func (w *worker) post(ctx context.Context, path string, body any) (int, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return 0, nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.baseURL+path, &buf)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	w.authorize(req)
	resp, err := w.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	return resp.StatusCode, data, nil
}

func (w *worker) get(ctx context.Context, path string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.baseURL+path, nil)
	if err != nil {
		return 0, err
	}
	w.authorize(req)
	resp, err := w.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	return resp.StatusCode, nil
}

func (w *worker) authorize(req *http.Request) {
	if w.token != "" {
		req.Header.Set("Authorization", "Bearer "+w.token)
	}
}

func classifyStatusClass(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500 && status < 600:
		return "5xx"
	default:
		return "other"
	}
}

func normalizeProfile(profile string) string {
	p := strings.ToLower(strings.TrimSpace(profile))
	switch p {
	case "sessions", "logs", "mixed":
		return p
	case "":
		return "mixed"
	default:
		return p
	}
}
