package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type sample struct {
	Name    string        `yaml:"name"`
	Key     string        `yaml:"key"`
	Timeout time.Duration `yaml:"timeout"`
	Tags    []string      `yaml:"tags"`
}

func (s *sample) Validate() error {
	if s.Name == "" {
		return errors.New("name is required")
	}
	return nil
}

func writeFile(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_ExpandsEnvAndKeepsDefaults(t *testing.T) {
	t.Setenv("SAMPLE_KEY", "secret")
	p := writeFile(t, "key: ${SAMPLE_KEY}\ntimeout: 90s\n")

	s := sample{Name: "default", Tags: []string{"heb", "eng"}}
	if err := Load(p, &s); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Key != "secret" {
		t.Errorf("key = %q", s.Key)
	}
	if s.Timeout != 90*time.Second {
		t.Errorf("timeout = %v", s.Timeout)
	}
	if s.Name != "default" || len(s.Tags) != 2 {
		t.Errorf("defaults lost: %+v", s)
	}
}

func TestLoad_Errors(t *testing.T) {
	if err := Load(filepath.Join(t.TempDir(), "missing.yaml"), &sample{Name: "x"}); err == nil {
		t.Error("expected error for missing file")
	}

	p := writeFile(t, "name: [unclosed\n")
	if err := Load(p, &sample{}); err == nil || !strings.Contains(err.Error(), "parse") {
		t.Errorf("parse err = %v", err)
	}

	p = writeFile(t, "name: \"\"\n")
	if err := Load(p, &sample{}); err == nil || !strings.Contains(err.Error(), "validation") {
		t.Errorf("validation err = %v", err)
	}
}

func TestLoadOptional(t *testing.T) {
	s := sample{Name: "default"}
	if err := LoadOptional(filepath.Join(t.TempDir(), "absent.yaml"), &s); err != nil {
		t.Fatalf("missing file: %v", err)
	}
	if err := LoadOptional("", &s); err != nil {
		t.Fatalf("empty name: %v", err)
	}
	if err := LoadOptional("", &sample{}); err == nil {
		t.Error("defaults are not validated")
	}

	p := writeFile(t, "name: from-file\n")
	if err := LoadOptional(p, &s); err != nil || s.Name != "from-file" {
		t.Errorf("LoadOptional = %v, name %q", err, s.Name)
	}
}
