package bootstrap

import (
	"strings"
	"testing"
)

func validConfig() AppConfig {
	return AppConfig{
		SessionKey:       "a-strong-session-key-0123456789abcdef",
		JWTSecret:        "a-strong-jwt-secret-0123456789abcdef",
		StorageType:      StorageLocal,
		StorageLocalPath: "./uploads",
		StorageLocalURL:  "/files",
		StorageS3Bucket:  "souqhub",
	}
}

func TestValidateApp(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		mutate  func(*AppConfig)
		wantErr string
	}{
		{"valid local", "dev", func(*AppConfig) {}, ""},
		{"storage disabled", "dev", func(c *AppConfig) { c.StorageType = StorageNone }, ""},
		{"short jwt secret", "dev", func(c *AppConfig) { c.JWTSecret = "short" }, "jwt_secret"},
		{"dev secret in prod", "prod", func(c *AppConfig) { c.JWTSecret = "dev-only-jwt-secret-change-me-0123456789" }, "production"},
		{"dev session key in prod", "prod", func(c *AppConfig) { c.SessionKey = "dev-only-change-me-please-0123456789ABCDEF" }, "session_key"},
		{"unknown storage", "dev", func(c *AppConfig) { c.StorageType = "ftp" }, "storage_type"},
		{"local url must be a prefix", "dev", func(c *AppConfig) { c.StorageLocalURL = "/" }, "storage_local_url"},
		{"s3 needs region", "dev", func(c *AppConfig) { c.StorageType = StorageS3 }, "storage_s3_region"},
		{"s3 needs bucket", "dev", func(c *AppConfig) {
			c.StorageType = StorageS3
			c.StorageS3Region = "me-central-1"
			c.StorageS3Bucket = ""
		}, "storage_s3_bucket"},
		{"s3 keys in pairs", "dev", func(c *AppConfig) {
			c.StorageType = StorageS3
			c.StorageS3Region = "me-central-1"
			c.StorageS3AccessKey = "AKIA"
		}, "together"},
		{"s3 endpoint must be absolute", "dev", func(c *AppConfig) {
			c.StorageType = StorageS3
			c.StorageS3Region = "us-east-1"
			c.StorageS3Endpoint = "minio:9000"
		}, "storage_s3_endpoint"},
		{"bad admin email", "dev", func(c *AppConfig) { c.AdminEmail = "not-an-email" }, "admin_email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := validateApp(tt.env, cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDeriveKey(t *testing.T) {
	a := deriveKey("secret", "csrf")
	if len(a) != 32 {
		t.Fatalf("expected 32-byte key, got %d", len(a))
	}
	if string(a) == string(deriveKey("secret", "other")) {
		t.Error("different purposes must yield different keys")
	}
}
