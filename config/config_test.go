package config

import (
	"errors"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GRIDOPS_INVENTORY_SPREADSHEET_ID", "inv-sheet")
	t.Setenv("GRIDOPS_METADATA_SPREADSHEET_ID", "meta-sheet")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.RateLimitMaxCalls != 100 {
		t.Errorf("RateLimitMaxCalls = %d, want 100", cfg.RateLimitMaxCalls)
	}
	if cfg.RateLimitWindow != 60*time.Second {
		t.Errorf("RateLimitWindow = %v, want 60s", cfg.RateLimitWindow)
	}
	if cfg.CacheMaxSize != 1000 {
		t.Errorf("CacheMaxSize = %d, want 1000", cfg.CacheMaxSize)
	}
	if cfg.CacheShortTTL != 5*time.Minute {
		t.Errorf("CacheShortTTL = %v, want 5m", cfg.CacheShortTTL)
	}
	if cfg.CacheLongTTL != 24*time.Hour {
		t.Errorf("CacheLongTTL = %v, want 24h", cfg.CacheLongTTL)
	}
	if cfg.MaxConnectionAttempts != 3 {
		t.Errorf("MaxConnectionAttempts = %d, want 3", cfg.MaxConnectionAttempts)
	}
	if cfg.ServiceAccountKeyFile != "service_account.json" {
		t.Errorf("ServiceAccountKeyFile = %q, want default", cfg.ServiceAccountKeyFile)
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("GRIDOPS_INVENTORY_SPREADSHEET_ID", "")
	t.Setenv("GRIDOPS_METADATA_SPREADSHEET_ID", "")

	_, err := Load()
	if !errors.Is(err, ErrMissingInventoryID) {
		t.Errorf("Load error = %v, want ErrMissingInventoryID", err)
	}
}

func TestLoad_ExpandsKeyFile(t *testing.T) {
	t.Setenv("GRIDOPS_INVENTORY_SPREADSHEET_ID", "inv")
	t.Setenv("GRIDOPS_METADATA_SPREADSHEET_ID", "meta")
	t.Setenv("SECRETS_DIR", "/var/run/secrets")
	t.Setenv("GRIDOPS_SERVICE_ACCOUNT_KEY_FILE", "${SECRETS_DIR}/sa.json")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ServiceAccountKeyFile != "/var/run/secrets/sa.json" {
		t.Errorf("ServiceAccountKeyFile = %q, want expanded path", cfg.ServiceAccountKeyFile)
	}
}

func TestLoad_MissingExpansionVar(t *testing.T) {
	t.Setenv("GRIDOPS_INVENTORY_SPREADSHEET_ID", "inv")
	t.Setenv("GRIDOPS_METADATA_SPREADSHEET_ID", "meta")
	t.Setenv("GRIDOPS_SERVICE_ACCOUNT_KEY_FILE", "${GRIDOPS_UNSET_SECRET_DIR}/sa.json")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing expansion variable")
	}
}

func TestExpandEnvStrict(t *testing.T) {
	t.Setenv("GRIDOPS_TEST_VALUE", "hello")

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "plain", in: "no vars", want: "no vars"},
		{name: "braced", in: "${GRIDOPS_TEST_VALUE}/x", want: "hello/x"},
		{name: "escaped dollar", in: "cost: $$5", want: "cost: $5"},
		{name: "missing", in: "${GRIDOPS_TEST_MISSING_VALUE}", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandEnvStrict(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ExpandEnvStrict failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("ExpandEnvStrict(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
