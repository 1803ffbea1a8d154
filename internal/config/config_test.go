package config

import (
	"os"
	"testing"
)

func validConfig() Config {
	cfg := Config{
		HTTP:    HTTPConfig{Port: 8080},
		Catalog: CatalogConfig{Path: "data/catalog.csv"},
		Encoder: EncoderConfig{
			Provider: "openai",
			OpenAI:   OpenAIConfig{Model: "text-embedding-3-small"},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_MissingCatalogPath(t *testing.T) {
	cfg := validConfig()
	cfg.Catalog.Path = ""

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for missing catalog path")
	}
}

func TestValidate_UnknownProvider(t *testing.T) {
	cfg := validConfig()
	cfg.Encoder.Provider = "word2vec"

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
	expected := `encoder.provider must be "openai" or "clip", got "word2vec"`
	if err.Error() != expected {
		t.Errorf("unexpected error message:\ngot:  %q\nwant: %q", err.Error(), expected)
	}
}

func TestValidate_CLIPNeedsBaseURL(t *testing.T) {
	cfg := validConfig()
	cfg.Encoder.Provider = "clip"
	cfg.Encoder.CLIP.BaseURL = ""

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for clip provider without base_url")
	}
}

func TestValidate_DiversityRange(t *testing.T) {
	cfg := validConfig()
	cfg.Search.Diversity = 1.5

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for diversity > 1")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.HTTP.WriteTimeoutSec != 30 {
		t.Errorf("expected WriteTimeoutSec=30, got %d", cfg.HTTP.WriteTimeoutSec)
	}
	if cfg.HTTP.ShutdownSec != 10 {
		t.Errorf("expected ShutdownSec=10, got %d", cfg.HTTP.ShutdownSec)
	}
	if cfg.Database.ReadinessTimeout != 10 {
		t.Errorf("expected ReadinessTimeout=10, got %d", cfg.Database.ReadinessTimeout)
	}
	if cfg.Encoder.Provider != "openai" {
		t.Errorf("expected provider=openai, got %s", cfg.Encoder.Provider)
	}
	if cfg.Search.Diversity != 0.3 {
		t.Errorf("expected Diversity=0.3, got %v", cfg.Search.Diversity)
	}
	if cfg.Search.Alpha != 0.6 {
		t.Errorf("expected Alpha=0.6, got %v", cfg.Search.Alpha)
	}
	if cfg.Search.MinUnique != 2 {
		t.Errorf("expected MinUnique=2, got %d", cfg.Search.MinUnique)
	}
	if cfg.Search.EncodeBatch != 64 {
		t.Errorf("expected EncodeBatch=64, got %d", cfg.Search.EncodeBatch)
	}
	if cfg.Search.EncodeWorkers != 4 {
		t.Errorf("expected EncodeWorkers=4, got %d", cfg.Search.EncodeWorkers)
	}
}

func TestApplyDefaults_CacheNamespaceFollowsModel(t *testing.T) {
	cfg := Config{Encoder: EncoderConfig{Provider: "openai", OpenAI: OpenAIConfig{Model: "my-model"}}}
	cfg.ApplyDefaults()
	if cfg.Search.CacheNamespace != "my-model" {
		t.Errorf("expected namespace my-model, got %s", cfg.Search.CacheNamespace)
	}

	cfg = Config{Encoder: EncoderConfig{Provider: "clip"}}
	cfg.ApplyDefaults()
	if cfg.Search.CacheNamespace != "clip" {
		t.Errorf("expected namespace clip, got %s", cfg.Search.CacheNamespace)
	}
}

func TestDatabaseEnabled(t *testing.T) {
	var d DatabaseConfig
	if d.Enabled() {
		t.Error("empty addrs should disable the cache store")
	}
	d.Addrs = []string{"localhost:6379"}
	if !d.Enabled() {
		t.Error("addrs present should enable the cache store")
	}
}

func TestExpandEnvVars(t *testing.T) {
	os.Setenv("REKO_TEST_VAR", "hello")
	defer os.Unsetenv("REKO_TEST_VAR")

	got := string(expandEnvVars([]byte("a: ${REKO_TEST_VAR}\nb: ${REKO_UNSET:-fallback}\n")))
	want := "a: hello\nb: fallback\n"
	if got != want {
		t.Errorf("expandEnvVars:\ngot:  %q\nwant: %q", got, want)
	}
}

func TestGetEnv(t *testing.T) {
	os.Unsetenv("ENV")
	if env := GetEnv(); env != "local" {
		t.Errorf("expected local, got %s", env)
	}

	os.Setenv("ENV", "prod")
	defer os.Unsetenv("ENV")
	if env := GetEnv(); env != "prod" {
		t.Errorf("expected prod, got %s", env)
	}
}
