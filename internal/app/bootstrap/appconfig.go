// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables (SOUQHUB_*), configuration
// files, or command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig
// covers ports, TLS, logging level and request limits; AppConfig covers the
// marketplace itself.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Browser session cookies
	SessionKey          string        // Secret key for signing session cookies (must be strong in production)
	SessionName         string        // Cookie name (default: souqhub-session)
	SessionDomain       string        // Cookie domain (blank means current host)
	SessionIdleTimeout  time.Duration // Idle browser sessions are closed after this long
	SessionLoadWait     time.Duration // How long a request waits for a new session to load
	SessionRefreshEvery time.Duration // Minimum gap between backend session refreshes per browser

	// Backend auth tokens
	JWTSecret                string
	AccessTokenTTL           time.Duration
	RefreshTokenTTL          time.Duration
	RequireEmailConfirmation bool

	// Base URL used for sign-up redirect links
	BaseURL string

	// Blob storage for listing images: "local", "s3", or "none"
	StorageType        string
	StorageLocalPath   string // Local storage root (e.g., "./uploads")
	StorageLocalURL    string // URL prefix for serving local files (e.g., "/files")
	StorageS3Bucket    string // S3 bucket holding every storage bucket as a prefix
	StorageS3Region    string
	StorageS3Endpoint  string // optional; MinIO or other S3-compatible endpoint
	StorageS3AccessKey string // optional; default credential chain when empty
	StorageS3SecretKey string
	StoragePublicURL   string // optional; base URL for public S3 objects

	// Administrator bootstrap
	AdminEmail    string
	AdminPassword string
	AdminUsername string
}
