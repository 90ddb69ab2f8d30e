package config

import (
	"strings"
	"testing"
)

const testKeyHex = "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff"

func validBase() Config {
	return Config{
		App:    AppConfig{Env: "local", Port: 8080},
		DB:     DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "piivault"},
		Redis:  RedisConfig{Host: "localhost", Port: 6379},
		Auth:   AuthConfig{JWTSecret: "secret"},
		Crypto: CryptoConfig{MasterKeyHex: testKeyHex},
	}
}

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestValidate_LocalDefaults(t *testing.T) {
	c := validBase()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
	if c.Blob.Dir != "./data" {
		t.Fatalf("expected blob dir default, got %q", c.Blob.Dir)
	}
	if c.Crypto.KeyRef != "local" {
		t.Fatalf("expected key ref default, got %q", c.Crypto.KeyRef)
	}
	if len(c.Crypto.Key) != 32 {
		t.Fatalf("expected 32-byte decoded key, got %d", len(c.Crypto.Key))
	}
}

func TestValidate_ProductionRequiresExplicitStorage(t *testing.T) {
	c := validBase()
	c.App.Env = "production"
	c.Auth.JWTIssuer = "piivault"
	c.Auth.JWTAudience = "piivault-api"
	err := c.Validate()
	if err == nil {
		t.Fatalf("expected error for production without DB_SSLMODE and BLOB_DIR")
	}
	if !strings.Contains(err.Error(), "DB_SSLMODE") || !strings.Contains(err.Error(), "BLOB_DIR") {
		t.Fatalf("expected DB_SSLMODE and BLOB_DIR errors, got %v", err)
	}
}

func TestDecodeMasterKey_RejectsBadSizes(t *testing.T) {
	cases := []struct {
		name string
		hex  string
		ok   bool
	}{
		{"aes128", strings.Repeat("ab", 16), true},
		{"aes192", strings.Repeat("ab", 24), true},
		{"aes256", strings.Repeat("ab", 32), true},
		{"short", strings.Repeat("ab", 8), false},
		{"odd-length", "abc", false},
		{"not-hex", strings.Repeat("zz", 16), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeMasterKey(tc.hex)
			if tc.ok && err != nil {
				t.Fatalf("unexpected err: %v", err)
			}
			if !tc.ok && err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
