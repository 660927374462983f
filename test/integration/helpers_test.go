package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/crewsight/crewsight/internal/app"
	"github.com/crewsight/crewsight/internal/config"
	"github.com/crewsight/crewsight/internal/domain"
	"github.com/crewsight/crewsight/internal/identifier"
)

var dbCounter atomic.Int64

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error"`
}

type testServer struct {
	baseURL string
	client  *http.Client
	db      *gorm.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	cfg := &config.Config{
		Profile:                   "test",
		HTTPAddr:                  "127.0.0.1:0",
		DBDriver:                  "sqlite",
		DBDSN:                     fmt.Sprintf("file:integ_%d?mode=memory&cache=shared", dbCounter.Add(1)),
		SessionSecret:             strings.Repeat("s", 32),
		SessionTTL:                time.Hour,
		SessionIssuer:             "crewsight",
		SessionAudience:           "dashboard",
		APIRateLimitRPM:           10000,
		LogIngestRateLimitRPM:     10000,
		OTELMetricsExportInterval: time.Second,
	}
	a, err := app.Build(context.Background(), cfg)
	if err != nil {
		t.Fatalf("build app: %v", err)
	}
	srv := httptest.NewServer(a.Server.Handler)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	return &testServer{
		baseURL: srv.URL,
		client:  &http.Client{Jar: jar, Timeout: 5 * time.Second},
		db:      a.DB,
	}
}

type requestOptions struct {
	bearer  string
	headers map[string]string
}

func (s *testServer) do(t *testing.T, method, path string, body any, opts *requestOptions) (*http.Response, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, s.baseURL+path, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if opts != nil {
		if opts.bearer != "" {
			req.Header.Set("Authorization", "Bearer "+opts.bearer)
		}
		for k, v := range opts.headers {
			req.Header.Set(k, v)
		}
	}
	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("%s %s: decode envelope: %v", method, path, err)
	}
	return resp, env
}

type setupResult struct {
	TeamID    string `json:"team_id"`
	TeamToken string `json:"team_token"`
	AdminID   string `json:"admin_id"`
	UserToken string `json:"user_token"`
}

// bootstrap runs the one-time setup and returns the minted tokens.
func (s *testServer) bootstrap(t *testing.T, password string) setupResult {
	t.Helper()
	resp, env := s.do(t, http.MethodPost, "/api/v1/setup", map[string]string{
		"team_name":          "alpha",
		"admin_name":         "ana",
		"dashboard_password": password,
	}, nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("setup failed: status=%d error=%q", resp.StatusCode, env.Error)
	}
	var result setupResult
	if err := json.Unmarshal(env.Data, &result); err != nil {
		t.Fatalf("decode setup result: %v", err)
	}
	return result
}

// seedMember inserts an extra non-admin user directly; the API has no user
// provisioning endpoint yet.
func (s *testServer) seedMember(t *testing.T, teamID, name string) *domain.User {
	t.Helper()
	user := &domain.User{
		ID:                identifier.New(),
		TeamID:            teamID,
		Name:              name,
		Role:              domain.RoleMember,
		IsActive:          true,
		StaleTimeoutHours: 1,
		UserToken:         identifier.NewToken(),
	}
	if err := s.db.Create(user).Error; err != nil {
		t.Fatalf("seed member: %v", err)
	}
	return user
}

func (s *testServer) cookieValue(t *testing.T, name string) string {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, s.baseURL, nil)
	if err != nil {
		t.Fatalf("parse base url: %v", err)
	}
	for _, c := range s.client.Jar.Cookies(req.URL) {
		if c.Name == name {
			return c.Value
		}
	}
	return ""
}
