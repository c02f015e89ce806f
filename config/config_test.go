package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.General.DefaultTimeout != 30*time.Second {
		t.Fatalf("expected 30s default timeout, got %v", cfg.General.DefaultTimeout)
	}
	if cfg.Workflow.MaxSites != 5 {
		t.Fatalf("expected max_sites 5, got %d", cfg.Workflow.MaxSites)
	}
	if cfg.Servers.WebSearch.Provider != "serper" {
		t.Fatalf("expected serper provider default, got %q", cfg.Servers.WebSearch.Provider)
	}
	if cfg.Servers.WebSearch.APIKey != "" {
		t.Fatalf("expected web_search unconfigured by default")
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("AGENTFLOW_SERVERS_WEB_SEARCH_API_KEY", "test-key")
	t.Setenv("AGENTFLOW_WORKFLOW_MAX_SITES", "9")
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Servers.WebSearch.APIKey != "test-key" {
		t.Fatalf("env override not applied, got %q", cfg.Servers.WebSearch.APIKey)
	}
	if cfg.Workflow.MaxSites != 9 {
		t.Fatalf("env override not applied, got %d", cfg.Workflow.MaxSites)
	}
}

func TestLoadConfigRejectsMalformedDiscoveredFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("general: [unclosed"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(prev) })
	if _, err := LoadConfig(""); err == nil {
		t.Fatalf("expected error for malformed config found on the search path")
	}
}

func TestScheduleValidation(t *testing.T) {
	w := WorkflowConfig{
		MaxProcessingTime: time.Minute,
		MaxSites:          3,
		Schedules:         []ScheduleConfig{{Cron: "", Request: "daily digest"}},
	}
	if err := w.Validate(); err == nil {
		t.Fatalf("expected validation failure for empty cron")
	}
	w.Schedules[0].Cron = "0 7 * * *"
	if err := w.Validate(); err != nil {
		t.Fatalf("expected valid schedule, got %v", err)
	}
}
