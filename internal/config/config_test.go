package config

import "testing"

func validConfig() Config {
	return Config{
		HTTP: HTTPConfig{Port: 8080},
		Corpus: CorpusConfig{
			PolicyPath: "data/compliance_policy.md",
			EmailPath:  "data/email_dump.txt",
			LedgerPath: "data/transaction_ledger.csv",
		},
	}
}

func TestValidate_MissingCorpusPaths(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"policy", func(c *Config) { c.Corpus.PolicyPath = "" }},
		{"email", func(c *Config) { c.Corpus.EmailPath = "" }},
		{"ledger", func(c *Config) { c.Corpus.LedgerPath = "" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected error for missing %s path", tc.name)
			}
		})
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_OverlapLargerThanChunk(t *testing.T) {
	cfg := validConfig()
	cfg.Chunking.MaxChars = 100
	cfg.Chunking.OverlapChars = 100

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error when overlap >= max chunk size")
	}
}

func TestValidate_CacheEnabledWithoutAddrs(t *testing.T) {
	cfg := validConfig()
	cfg.Cache.Enabled = true

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error when cache is enabled without addrs")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()

	if cfg.HTTP.Port != 8080 {
		t.Errorf("expected Port=8080, got %d", cfg.HTTP.Port)
	}
	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Chunking.MaxChars != 2000 {
		t.Errorf("expected MaxChars=2000, got %d", cfg.Chunking.MaxChars)
	}
	if cfg.Chunking.OverlapChars != 200 {
		t.Errorf("expected OverlapChars=200, got %d", cfg.Chunking.OverlapChars)
	}
	if cfg.Chunking.MinChars != 50 {
		t.Errorf("expected MinChars=50, got %d", cfg.Chunking.MinChars)
	}
	if cfg.Retrieval.PolicyTopK != 3 {
		t.Errorf("expected PolicyTopK=3, got %d", cfg.Retrieval.PolicyTopK)
	}
	if cfg.Retrieval.EmailTopK != 5 {
		t.Errorf("expected EmailTopK=5, got %d", cfg.Retrieval.EmailTopK)
	}
	if cfg.Retrieval.CandidatePool != 2000 {
		t.Errorf("expected CandidatePool=2000, got %d", cfg.Retrieval.CandidatePool)
	}
	if cfg.Embedding.Model != "text-embedding-3-small" {
		t.Errorf("expected default embedding model, got %q", cfg.Embedding.Model)
	}
	if cfg.Embedding.Dimensions != 1536 {
		t.Errorf("expected Dimensions=1536, got %d", cfg.Embedding.Dimensions)
	}
	if cfg.Pipeline.StageTimeoutSec != 30 {
		t.Errorf("expected StageTimeoutSec=30, got %d", cfg.Pipeline.StageTimeoutSec)
	}
}

func TestApplyDefaults_DoesNotOverrideExplicit(t *testing.T) {
	cfg := Config{
		Chunking:  ChunkingConfig{MaxChars: 500, OverlapChars: 50},
		Retrieval: RetrievalConfig{PolicyTopK: 10},
	}
	cfg.ApplyDefaults()

	if cfg.Chunking.MaxChars != 500 {
		t.Errorf("expected MaxChars=500, got %d", cfg.Chunking.MaxChars)
	}
	if cfg.Chunking.OverlapChars != 50 {
		t.Errorf("expected OverlapChars=50, got %d", cfg.Chunking.OverlapChars)
	}
	if cfg.Retrieval.PolicyTopK != 10 {
		t.Errorf("expected PolicyTopK=10, got %d", cfg.Retrieval.PolicyTopK)
	}
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("AUDITDEX_TEST_KEY", "secret")

	in := []byte("api_key: ${AUDITDEX_TEST_KEY}\nmodel: ${AUDITDEX_TEST_MODEL:-text-embedding-3-small}\n")
	out := string(expandEnvVars(in))

	want := "api_key: secret\nmodel: text-embedding-3-small\n"
	if out != want {
		t.Errorf("unexpected expansion:\ngot:  %q\nwant: %q", out, want)
	}
}
