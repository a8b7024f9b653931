package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Storage settings mirror the server's storage_* keys.
type StorageProfile struct {
	Type        string `yaml:"type"`
	LocalPath   string `yaml:"local_path"`
	LocalURL    string `yaml:"local_url"`
	S3Bucket    string `yaml:"s3_bucket"`
	S3Region    string `yaml:"s3_region"`
	S3Endpoint  string `yaml:"s3_endpoint"`
	S3AccessKey string `yaml:"s3_access_key"`
	S3SecretKey string `yaml:"s3_secret_key"`
	PublicURL   string `yaml:"public_url"`
}

// Profile is the CLI configuration, read from ~/.souqhub/config.yaml and
// overridden by SOUQHUB_* environment variables.
type Profile struct {
	MongoURI                 string         `yaml:"mongo_uri"`
	MongoDatabase            string         `yaml:"mongo_database"`
	JWTSecret                string         `yaml:"jwt_secret"`
	RequireEmailConfirmation bool           `yaml:"require_email_confirmation"`
	BaseURL                  string         `yaml:"base_url"`
	SessionFile              string         `yaml:"session_file"`
	Storage                  StorageProfile `yaml:"storage"`
}

// DefaultProfile matches the server defaults for a local setup.
func DefaultProfile() Profile {
	return Profile{
		MongoURI:      "mongodb://localhost:27017",
		MongoDatabase: "souqhub",
		JWTSecret:     "dev-only-jwt-secret-change-me-0123456789",
		BaseURL:       "http://localhost:8080",
		Storage: StorageProfile{
			Type:      "local",
			LocalPath: "./uploads",
			LocalURL:  "/files",
			S3Bucket:  "souqhub",
		},
	}
}

// configDir is ~/.souqhub.
func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("find home directory: %w", err)
	}
	return filepath.Join(home, ".souqhub"), nil
}

// LoadProfile reads path over the defaults. A missing file is not an error.
func LoadProfile(path string) (Profile, error) {
	p := DefaultProfile()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return p, nil
	}
	if err != nil {
		return p, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, fmt.Errorf("parse %s: %w", path, err)
	}
	return p, nil
}

// ApplyEnv overrides p with the SOUQHUB_* variables the server also reads.
func (p *Profile) ApplyEnv(getenv func(string) string) {
	str := func(key string, dst *string) {
		if v := getenv("SOUQHUB_" + key); v != "" {
			*dst = v
		}
	}
	str("MONGO_URI", &p.MongoURI)
	str("MONGO_DATABASE", &p.MongoDatabase)
	str("JWT_SECRET", &p.JWTSecret)
	str("BASE_URL", &p.BaseURL)
	str("SESSION_FILE", &p.SessionFile)
	str("STORAGE_TYPE", &p.Storage.Type)
	str("STORAGE_LOCAL_PATH", &p.Storage.LocalPath)
	str("STORAGE_LOCAL_URL", &p.Storage.LocalURL)
	str("STORAGE_S3_BUCKET", &p.Storage.S3Bucket)
	str("STORAGE_S3_REGION", &p.Storage.S3Region)
	str("STORAGE_S3_ENDPOINT", &p.Storage.S3Endpoint)
	str("STORAGE_S3_ACCESS_KEY", &p.Storage.S3AccessKey)
	str("STORAGE_S3_SECRET_KEY", &p.Storage.S3SecretKey)
	str("STORAGE_PUBLIC_URL", &p.Storage.PublicURL)
	if v := getenv("SOUQHUB_REQUIRE_EMAIL_CONFIRMATION"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			p.RequireEmailConfirmation = b
		}
	}
}

// sessionPath returns where the backend session is kept between runs.
func (p Profile) sessionPath() (string, error) {
	if p.SessionFile != "" {
		return p.SessionFile, nil
	}
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "session.json"), nil
}
