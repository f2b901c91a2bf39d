package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tubescribe/internal/config"
	"tubescribe/internal/pipeline"
)

func TestRun_Version(t *testing.T) {
	var out, errOut bytes.Buffer
	if err := run(context.Background(), &out, &errOut, []string{"version"}); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "tubescribe") {
		t.Errorf("version output = %q", out.String())
	}
}

func TestRun_VersionJSON(t *testing.T) {
	var out, errOut bytes.Buffer
	if err := run(context.Background(), &out, &errOut, []string{"-json", "version"}); err != nil {
		t.Fatalf("run: %v", err)
	}
	var info map[string]string
	if err := json.Unmarshal(out.Bytes(), &info); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, out.String())
	}
	if info["version"] == "" {
		t.Error("version field missing from JSON output")
	}
}

func TestRun_NoArgsPrintsUsage(t *testing.T) {
	var out, errOut bytes.Buffer
	if err := run(context.Background(), &out, &errOut, nil); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "Usage: tubescribe") {
		t.Errorf("usage output = %q", out.String())
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	var out, errOut bytes.Buffer
	err := run(context.Background(), &out, &errOut, []string{"frobnicate"})
	if err == nil || !strings.Contains(err.Error(), "unknown command") {
		t.Errorf("err = %v", err)
	}
}

func TestRun_UnknownFlag(t *testing.T) {
	var out, errOut bytes.Buffer
	err := run(context.Background(), &out, &errOut, []string{"-frobnicate"})
	if err == nil || !strings.Contains(err.Error(), "unknown flag") {
		t.Errorf("err = %v", err)
	}
}

func TestRun_TranscribeRequiresInput(t *testing.T) {
	var out, errOut bytes.Buffer
	err := run(context.Background(), &out, &errOut, []string{"transcribe"})
	if err == nil || !strings.Contains(err.Error(), "usage:") {
		t.Errorf("err = %v", err)
	}
}

func TestRun_ChannelRequiresID(t *testing.T) {
	var out, errOut bytes.Buffer
	err := run(context.Background(), &out, &errOut, []string{"channel"})
	if err == nil || !strings.Contains(err.Error(), "usage:") {
		t.Errorf("err = %v", err)
	}
}

func TestRun_ExplicitConfigMustExist(t *testing.T) {
	var out, errOut bytes.Buffer
	missing := filepath.Join(t.TempDir(), "absent.yaml")
	err := run(context.Background(), &out, &errOut, []string{"-config", missing, "serve"})
	if err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestWriteOutputFiles(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	res := &pipeline.Result{
		VideoID:   "dQw4w9WgXcQ",
		Title:     "Test Video",
		PlainText: "hello world",
		WordCount: 2,
	}

	if err := writeOutputFiles(&out, dir, "# Test Video\n", res); err != nil {
		t.Fatalf("writeOutputFiles: %v", err)
	}

	md, err := os.ReadFile(filepath.Join(dir, "dQw4w9WgXcQ.md"))
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	if !strings.HasPrefix(string(md), "# Test Video") {
		t.Errorf("report content = %q", md)
	}

	txt, err := os.ReadFile(filepath.Join(dir, "dQw4w9WgXcQ.txt"))
	if err != nil {
		t.Fatalf("transcript not written: %v", err)
	}
	if strings.TrimSpace(string(txt)) != "hello world" {
		t.Errorf("transcript content = %q", txt)
	}

	data, err := os.ReadFile(filepath.Join(dir, "dQw4w9WgXcQ.json"))
	if err != nil {
		t.Fatalf("data not written: %v", err)
	}
	var decoded pipeline.Result
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("data is not JSON: %v", err)
	}
	if decoded.VideoID != "dQw4w9WgXcQ" || decoded.WordCount != 2 {
		t.Errorf("decoded = %+v", decoded)
	}

	// The saved paths are reported on stdout.
	if got := out.String(); !strings.Contains(got, ".md") || !strings.Contains(got, ".json") {
		t.Errorf("saved-file listing = %q", got)
	}
}

func TestFillEnvKeys(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-env")
	t.Setenv("OPENAI_API_KEY", "sk-env-openai")

	cfg := config.Default()
	fillEnvKeys(cfg)
	if cfg.Summary.Anthropic.APIKey != "sk-env" {
		t.Errorf("anthropic key = %q", cfg.Summary.Anthropic.APIKey)
	}
	if cfg.Summary.OpenAI.APIKey != "sk-env-openai" {
		t.Errorf("openai key = %q", cfg.Summary.OpenAI.APIKey)
	}

	// A key from the config file wins over the environment.
	cfg2 := config.Default()
	cfg2.Summary.Anthropic.APIKey = "sk-file"
	fillEnvKeys(cfg2)
	if cfg2.Summary.Anthropic.APIKey != "sk-file" {
		t.Errorf("anthropic key = %q, want config value preserved", cfg2.Summary.Anthropic.APIKey)
	}
}

func TestLoadConfigOrDefault_ExplicitMissing(t *testing.T) {
	_, _, err := loadConfigOrDefault(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected error for explicit missing path")
	}
}

func TestLoadConfigOrDefault_ReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tubescribe.yaml")
	if err := os.WriteFile(path, []byte("listen:\n  port: 9999\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, cfgPath, err := loadConfigOrDefault(path)
	if err != nil {
		t.Fatalf("loadConfigOrDefault: %v", err)
	}
	if cfgPath != path {
		t.Errorf("path = %q", cfgPath)
	}
	if cfg.Listen.Port != 9999 {
		t.Errorf("port = %d, want 9999", cfg.Listen.Port)
	}
	if len(cfg.YouTube.PreferredLanguages) == 0 {
		t.Error("defaults not applied to sparse config")
	}
}
