package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSiteYAML(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoad_SiteDefaults(t *testing.T) {
	dir := t.TempDir()
	writeSiteYAML(t, dir, "suumo.yaml",
		"id: suumo_chintai\nname: SUUMO\nurl_template: https://example.jp/?page={page}\n")
	t.Setenv("SITE_CONFIG_DIR", dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	site := cfg.Sites["suumo_chintai"]
	if site == nil {
		t.Fatal("site not loaded")
	}
	if site.MaxPages != 10 || site.AccessLegCap != 3 {
		t.Errorf("defaults not applied: %+v", site)
	}
	if site.Table != "room_ver2" || site.OnFetchError != FetchPolicySkip {
		t.Errorf("defaults not applied: %+v", site)
	}
}

func TestLoad_MismatchedTablesRejected(t *testing.T) {
	dir := t.TempDir()
	writeSiteYAML(t, dir, "a.yaml",
		"id: site_a\nname: A\nurl_template: https://a.example.jp/?page={page}\ntable: room_ver2\n")
	writeSiteYAML(t, dir, "b.yaml",
		"id: site_b\nname: B\nurl_template: https://b.example.jp/?page={page}\ntable: room_other\n")
	t.Setenv("SITE_CONFIG_DIR", dir)

	if _, err := Load(); err == nil {
		t.Fatal("sites with disagreeing snapshot tables must be rejected")
	}
}

func TestLoad_SharedTableAccepted(t *testing.T) {
	dir := t.TempDir()
	writeSiteYAML(t, dir, "a.yaml",
		"id: site_a\nname: A\nurl_template: https://a.example.jp/?page={page}\n")
	writeSiteYAML(t, dir, "b.yaml",
		"id: site_b\nname: B\nurl_template: https://b.example.jp/?page={page}\n")
	t.Setenv("SITE_CONFIG_DIR", dir)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Sites) != 2 {
		t.Errorf("loaded %d sites, want 2", len(cfg.Sites))
	}
}
