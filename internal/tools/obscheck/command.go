package obscheck

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/crewsight/crewsight/internal/tools/common"
	"github.com/crewsight/crewsight/internal/tools/loadgen"
	"github.com/crewsight/crewsight/internal/tools/ui"
)

type options struct {
	grafanaURL      string
	grafanaUser     string
	grafanaPassword string
	serviceName     string
	window          time.Duration
	ci              bool
	baseURL         string
	token           string
}

// NewCommand builds the obscheck command tree. It drives synthetic plugin
// traffic through a running deployment and walks one request from metric
// exemplar to trace to correlated logs.
func NewCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{Use: "obscheck", Short: "Verify metrics, traces and logs correlation"}
	f := cmd.PersistentFlags()
	f.StringVar(&opts.grafanaURL, "grafana-url", "http://localhost:3000", "Grafana base URL")
	f.StringVar(&opts.grafanaUser, "grafana-user", "admin", "Grafana username")
	f.StringVar(&opts.grafanaPassword, "grafana-password", "admin", "Grafana password")
	f.StringVar(&opts.serviceName, "service-name", "crewsight", "OTel service name")
	f.DurationVar(&opts.window, "window", 20*time.Minute, "query lookback window")
	f.BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	f.StringVar(&opts.baseURL, "base-url", "http://localhost:8080", "API base URL for traffic")
	f.StringVar(&opts.token, "token", "", "bearer token for synthetic traffic")
	cmd.AddCommand(newRunCommand(opts))
	return cmd
}

func newRunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Generate plugin traffic and validate exemplar->trace->log path",
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := run(opts, "obscheck run", func(ctx context.Context) ([]string, error) {
				gc := &grafanaClient{opts: opts, http: &http.Client{Timeout: 20 * time.Second}}
				return checkPipeline(ctx, gc, opts)
			})
			if opts.ci {
				common.PrintCIResult(err == nil, "obscheck run", details, err)
			}
			if err != nil {
				os.Exit(4)
			}
			return nil
		},
	}
}

func checkPipeline(ctx context.Context, gc *grafanaClient, opts *options) ([]string, error) {
	traffic, err := loadgen.Run(ctx, loadgen.Config{
		BaseURL:     opts.baseURL,
		Token:       opts.token,
		Profile:     "mixed",
		Duration:    6 * time.Second,
		RPS:         20,
		Concurrency: 6,
		Seed:        42,
	})
	if err != nil {
		return nil, err
	}
	details := []string{fmt.Sprintf("traffic generated total=%d failures=%d", traffic.TotalRequests, traffic.Failures)}

	// give the collector a couple of export cycles before querying
	cutoff := time.Now().Add(-2 * time.Minute)
	time.Sleep(8 * time.Second)

	traceID, err := gc.latestExemplarTraceID(ctx, cutoff)
	if err != nil {
		return details, err
	}
	details = append(details, "exemplar trace_id="+traceID)

	if err := gc.traceExists(ctx, traceID); err != nil {
		return details, err
	}
	details = append(details, "tempo trace lookup: ok")

	if err := gc.logsCarryTrace(ctx, traceID); err != nil {
		return details, err
	}
	details = append(details, "loki trace correlation: ok")
	return details, nil
}

func run(opts *options, title string, fn func(context.Context) ([]string, error)) ([]string, error) {
	if opts.ci {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
		defer cancel()
		return fn(ctx)
	}
	return ui.Run(title, fn)
}

type grafanaClient struct {
	opts *options
	http *http.Client
}

func (g *grafanaClient) get(ctx context.Context, path string, out any) error {
	base, err := url.Parse(g.opts.grafanaURL)
	if err != nil {
		return err
	}
	rel, err := url.Parse(path)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base.ResolveReference(rel).String(), nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(g.opts.grafanaUser, g.opts.grafanaPassword)
	resp, err := g.http.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("grafana request failed: %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, out)
}

// latestExemplarTraceID finds the freshest trace_id exemplar attached to the
// request duration histogram within the lookback window.
func (g *grafanaClient) latestExemplarTraceID(ctx context.Context, notBefore time.Time) (string, error) {
	start := time.Now().Add(-g.opts.window).Unix()
	end := time.Now().Unix()
	path := fmt.Sprintf("/api/datasources/proxy/uid/mimir/api/v1/query_exemplars?query=http_server_duration_milliseconds_bucket&start=%d&end=%d", start, end)

	var payload struct {
		Data []struct {
			Exemplars []struct {
				Labels    map[string]string `json:"labels"`
				Timestamp float64           `json:"timestamp"`
			} `json:"exemplars"`
		} `json:"data"`
	}
	if err := g.get(ctx, path, &payload); err != nil {
		return "", err
	}

	var best string
	var bestTS float64
	for _, series := range payload.Data {
		for _, e := range series.Exemplars {
			if e.Timestamp <= 0 || int64(e.Timestamp) < notBefore.Unix() {
				continue
			}
			if tid := e.Labels["trace_id"]; len(tid) == 32 && e.Timestamp > bestTS {
				bestTS = e.Timestamp
				best = tid
			}
		}
	}
	if best == "" {
		return "", fmt.Errorf("no recent trace_id exemplar found")
	}
	return best, nil
}

func (g *grafanaClient) traceExists(ctx context.Context, traceID string) error {
	path := "/api/datasources/proxy/uid/tempo/api/traces/" + traceID
	var lastErr error
	for attempt := 0; attempt < 5; attempt++ {
		var payload struct {
			Batches []json.RawMessage `json:"batches"`
		}
		if err := g.get(ctx, path, &payload); err != nil {
			lastErr = err
		} else if len(payload.Batches) > 0 {
			return nil
		} else {
			lastErr = fmt.Errorf("tempo trace has no batches yet")
		}
		time.Sleep(2 * time.Second)
	}
	return lastErr
}

func (g *grafanaClient) logsCarryTrace(ctx context.Context, traceID string) error {
	nowNS := time.Now().UnixNano()
	startNS := nowNS - int64(30*time.Minute)
	queries := []string{
		fmt.Sprintf("{service_name=%q} | json | trace_id=%q", g.opts.serviceName, traceID),
		fmt.Sprintf("{service_name=~\".+\"} | json | trace_id=%q", traceID),
	}
	for _, raw := range queries {
		path := fmt.Sprintf("/api/datasources/proxy/uid/loki/loki/api/v1/query_range?query=%s&start=%d&end=%d&limit=1&direction=backward",
			url.QueryEscape(raw), startNS, nowNS)
		var payload struct {
			Data struct {
				Result []json.RawMessage `json:"result"`
			} `json:"data"`
		}
		if err := g.get(ctx, path, &payload); err != nil {
			return err
		}
		if len(payload.Data.Result) > 0 {
			return nil
		}
	}
	return fmt.Errorf("no correlated loki logs found for trace_id %s", traceID)
}
