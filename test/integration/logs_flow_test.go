package integration

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/crewsight/crewsight/internal/domain"
	"github.com/crewsight/crewsight/internal/identifier"
)

func TestLogIngestAndAdminBrowse(t *testing.T) {
	s := newTestServer(t)
	boot := s.bootstrap(t, "dashboard-password")
	member := s.seedMember(t, boot.TeamID, "bob")

	// member submits a batch
	resp, env := s.do(t, http.MethodPost, "/api/v1/logs", map[string]any{
		"logs": []map[string]any{
			{"level": "INFO", "message": "hook fired", "hook": "PostToolUse"},
			{"level": "ERROR", "message": "upload failed", "error": map[string]string{"kind": "timeout"}},
		},
	}, &requestOptions{bearer: member.UserToken})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("submit logs: status=%d error=%q", resp.StatusCode, env.Error)
	}
	var received struct {
		Received int `json:"received"`
	}
	if err := json.Unmarshal(env.Data, &received); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if received.Received != 2 {
		t.Fatalf("received=%d, want 2", received.Received)
	}

	// a bad entry anywhere rejects the whole batch
	resp, env = s.do(t, http.MethodPost, "/api/v1/logs", map[string]any{
		"logs": []map[string]any{
			{"level": "INFO", "message": "ok"},
			{"level": "verbose", "message": "bad level"},
		},
	}, &requestOptions{bearer: member.UserToken})
	if resp.StatusCode != http.StatusBadRequest || env.Error == "" {
		t.Fatalf("bad batch: status=%d error=%q", resp.StatusCode, env.Error)
	}

	// admin browses via the team token; member is refused
	resp, env = s.do(t, http.MethodGet, "/api/v1/admin/logs?level=ERROR", nil, &requestOptions{bearer: boot.TeamToken})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("browse: status=%d error=%q", resp.StatusCode, env.Error)
	}
	var page struct {
		Logs  []domain.PluginLog `json:"logs"`
		Total int64              `json:"total"`
		Users []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"users"`
	}
	if err := json.Unmarshal(env.Data, &page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	if page.Total != 1 || len(page.Logs) != 1 || page.Logs[0].Message != "upload failed" {
		t.Fatalf("unexpected page %+v", page)
	}
	if page.Logs[0].UserID != member.ID {
		t.Fatalf("log attributed to %s, want submitter %s", page.Logs[0].UserID, member.ID)
	}
	// the browse payload carries the team roster for the filter dropdown
	if len(page.Users) != 2 {
		t.Fatalf("expected 2 filterable users, got %+v", page.Users)
	}
	for _, u := range page.Users {
		if u.ID == "" || u.Name == "" {
			t.Fatalf("user ref missing fields: %+v", u)
		}
	}

	resp, _ = s.do(t, http.MethodGet, "/api/v1/admin/logs", nil, &requestOptions{bearer: member.UserToken})
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("member browse must 403, got %d", resp.StatusCode)
	}
}

func TestLogPruneEndpoint(t *testing.T) {
	s := newTestServer(t)
	boot := s.bootstrap(t, "dashboard-password")
	admin := &requestOptions{bearer: boot.TeamToken}

	old := &domain.PluginLog{
		ID:        identifier.New(),
		UserID:    boot.AdminID,
		Level:     "INFO",
		Message:   "ancient",
		CreatedAt: time.Now().UTC().AddDate(0, 0, -40),
	}
	fresh := &domain.PluginLog{
		ID:        identifier.New(),
		UserID:    boot.AdminID,
		Level:     "INFO",
		Message:   "recent",
		CreatedAt: time.Now().UTC().AddDate(0, 0, -5),
	}
	if err := s.db.Create(old).Error; err != nil {
		t.Fatalf("seed old log: %v", err)
	}
	if err := s.db.Create(fresh).Error; err != nil {
		t.Fatalf("seed fresh log: %v", err)
	}

	// out-of-range retention is rejected
	resp, env := s.do(t, http.MethodDelete, "/api/v1/admin/logs?days=0", nil, admin)
	if resp.StatusCode != http.StatusBadRequest || env.Error == "" {
		t.Fatalf("days=0: status=%d error=%q", resp.StatusCode, env.Error)
	}

	// default retention removes only the 40-day-old row
	resp, env = s.do(t, http.MethodDelete, "/api/v1/admin/logs", nil, admin)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("prune: status=%d error=%q", resp.StatusCode, env.Error)
	}
	var pruned struct {
		Deleted int64 `json:"deleted"`
	}
	if err := json.Unmarshal(env.Data, &pruned); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if pruned.Deleted != 1 {
		t.Fatalf("deleted=%d, want 1", pruned.Deleted)
	}

	var remaining int64
	if err := s.db.Model(&domain.PluginLog{}).Count(&remaining).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if remaining != 1 {
		t.Fatalf("remaining=%d, want 1", remaining)
	}
}
