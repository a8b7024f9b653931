// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dalemusser/souqhub/internal/app/backend/mongobackend"
	"github.com/dalemusser/souqhub/internal/app/system/auth"
	"github.com/dalemusser/souqhub/internal/app/system/inputval"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// Storage backends accepted by storage_type.
const (
	StorageLocal = "local"
	StorageS3    = "s3"
	StorageNone  = "none"
)

// appConfigKeys defines the configuration keys for SouqHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: SOUQHUB_MONGO_URI, SOUQHUB_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "souqhub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	// Browser sessions
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "souqhub-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_idle_timeout", Default: "30m", Desc: "Close browser sessions idle this long (e.g., 30m, 2h)"},
	{Name: "session_load_wait", Default: "2s", Desc: "How long a request waits for a new session to finish loading"},
	{Name: "session_refresh_every", Default: "1m", Desc: "Minimum gap between backend session refreshes of one browser"},

	// Backend tokens
	{Name: "jwt_secret", Default: "dev-only-jwt-secret-change-me-0123456789", Desc: "Access token signing secret (32+ bytes)"},
	{Name: "access_token_ttl", Default: "1h", Desc: "Access token lifetime"},
	{Name: "refresh_token_ttl", Default: "720h", Desc: "Refresh token lifetime"},
	{Name: "require_email_confirmation", Default: false, Desc: "Block sign-in until an operator confirms the email"},

	{Name: "base_url", Default: "http://localhost:8080", Desc: "Public base URL (sign-up redirect links)"},

	// Listing image storage
	{Name: "storage_type", Default: StorageLocal, Desc: "Storage backend: 'local', 's3', or 'none'"},
	{Name: "storage_local_path", Default: "./uploads", Desc: "Local storage path for uploaded images"},
	{Name: "storage_local_url", Default: "/files", Desc: "URL prefix for serving local files"},
	{Name: "storage_s3_bucket", Default: "souqhub", Desc: "S3 bucket that holds the storage buckets as prefixes"},
	{Name: "storage_s3_region", Default: "", Desc: "AWS region for S3"},
	{Name: "storage_s3_endpoint", Default: "", Desc: "S3-compatible endpoint (MinIO etc.); blank for AWS"},
	{Name: "storage_s3_access_key", Default: "", Desc: "S3 access key (blank uses the default credential chain)"},
	{Name: "storage_s3_secret_key", Default: "", Desc: "S3 secret key"},
	{Name: "storage_public_url", Default: "", Desc: "Base URL for public S3 objects"},

	// Administrator bootstrap
	{Name: "admin_email", Default: "", Desc: "Email of the administrator (created/promoted on startup)"},
	{Name: "admin_password", Default: "", Desc: "Password used when the administrator account has to be created"},
	{Name: "admin_username", Default: "admin", Desc: "Username for a newly created administrator profile"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles .env files, config files,
// environment variables (WAFFLE_* for core, SOUQHUB_* for app) and flags,
// merged with precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "SOUQHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		SessionKey:          appValues.String("session_key"),
		SessionName:         appValues.String("session_name"),
		SessionDomain:       appValues.String("session_domain"),
		SessionIdleTimeout:  appValues.Duration("session_idle_timeout", 30*time.Minute),
		SessionLoadWait:     appValues.Duration("session_load_wait", 2*time.Second),
		SessionRefreshEvery: appValues.Duration("session_refresh_every", auth.DefaultRefreshEvery),

		JWTSecret:                appValues.String("jwt_secret"),
		AccessTokenTTL:           appValues.Duration("access_token_ttl", mongobackend.DefaultAccessTTL),
		RefreshTokenTTL:          appValues.Duration("refresh_token_ttl", mongobackend.DefaultRefreshTTL),
		RequireEmailConfirmation: appValues.Bool("require_email_confirmation"),

		BaseURL: appValues.String("base_url"),

		StorageType:        strings.ToLower(strings.TrimSpace(appValues.String("storage_type"))),
		StorageLocalPath:   appValues.String("storage_local_path"),
		StorageLocalURL:    appValues.String("storage_local_url"),
		StorageS3Bucket:    appValues.String("storage_s3_bucket"),
		StorageS3Region:    appValues.String("storage_s3_region"),
		StorageS3Endpoint:  appValues.String("storage_s3_endpoint"),
		StorageS3AccessKey: appValues.String("storage_s3_access_key"),
		StorageS3SecretKey: appValues.String("storage_s3_secret_key"),
		StoragePublicURL:   appValues.String("storage_public_url"),

		AdminEmail:    appValues.String("admin_email"),
		AdminPassword: appValues.String("admin_password"),
		AdminUsername: appValues.String("admin_username"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// SouqHub checks the MongoDB URI format, the token secret, the storage
// settings and the administrator email before anything connects.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	return validateApp(coreCfg.Env, appCfg)
}

// validateApp holds the checks that do not need WAFFLE.
func validateApp(env string, appCfg AppConfig) error {
	if len(appCfg.JWTSecret) < mongobackend.MinSecretLength {
		return fmt.Errorf("jwt_secret must be at least %d bytes", mongobackend.MinSecretLength)
	}
	if env == "prod" && strings.HasPrefix(appCfg.JWTSecret, "dev-only") {
		return fmt.Errorf("jwt_secret must be changed in production")
	}
	if env == "prod" && strings.HasPrefix(appCfg.SessionKey, "dev-only") {
		return fmt.Errorf("session_key must be changed in production")
	}

	switch appCfg.StorageType {
	case StorageNone:
	case StorageLocal:
		if appCfg.StorageLocalPath == "" {
			return fmt.Errorf("storage_type=local requires storage_local_path")
		}
		if !strings.HasPrefix(appCfg.StorageLocalURL, "/") || appCfg.StorageLocalURL == "/" {
			return fmt.Errorf("storage_local_url must be a path prefix such as /files")
		}
	case StorageS3:
		if appCfg.StorageS3Region == "" {
			return fmt.Errorf("storage_type=s3 requires storage_s3_region")
		}
		if appCfg.StorageS3Bucket == "" {
			return fmt.Errorf("storage_type=s3 requires storage_s3_bucket")
		}
		if (appCfg.StorageS3AccessKey == "") != (appCfg.StorageS3SecretKey == "") {
			return fmt.Errorf("storage_s3_access_key and storage_s3_secret_key must be set together")
		}
		for key, v := range map[string]string{"storage_s3_endpoint": appCfg.StorageS3Endpoint, "storage_public_url": appCfg.StoragePublicURL} {
			if v == "" {
				continue
			}
			if u, err := url.Parse(v); err != nil || u.Scheme == "" || u.Host == "" {
				return fmt.Errorf("%s must be an absolute URL", key)
			}
		}
	default:
		return fmt.Errorf("storage_type must be 'local', 's3' or 'none', got %q", appCfg.StorageType)
	}

	if appCfg.AdminEmail != "" && !inputval.IsValidEmail(appCfg.AdminEmail) {
		return fmt.Errorf("admin_email %q is not a valid email address", appCfg.AdminEmail)
	}
	return nil
}
