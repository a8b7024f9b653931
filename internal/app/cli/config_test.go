package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadProfile_MissingFileGivesDefaults(t *testing.T) {
	p, err := LoadProfile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultProfile(), p)
}

func TestLoadProfile_OverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
mongo_uri: mongodb://db.internal:27017
require_email_confirmation: true
storage:
  type: s3
  s3_region: me-central-1
`), 0o600))

	p, err := LoadProfile(path)
	require.NoError(t, err)
	assert.Equal(t, "mongodb://db.internal:27017", p.MongoURI)
	assert.Equal(t, "souqhub", p.MongoDatabase, "unset keys keep defaults")
	assert.True(t, p.RequireEmailConfirmation)
	assert.Equal(t, "s3", p.Storage.Type)
	assert.Equal(t, "me-central-1", p.Storage.S3Region)
}

func TestLoadProfile_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mongo_uri: [unclosed"), 0o600))
	_, err := LoadProfile(path)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"SOUQHUB_MONGO_DATABASE":             "souqhub_test",
		"SOUQHUB_STORAGE_TYPE":               "none",
		"SOUQHUB_REQUIRE_EMAIL_CONFIRMATION": "true",
		"SOUQHUB_SESSION_FILE":               "/tmp/s.json",
	}
	p := DefaultProfile()
	p.ApplyEnv(func(k string) string { return env[k] })

	assert.Equal(t, "souqhub_test", p.MongoDatabase)
	assert.Equal(t, "none", p.Storage.Type)
	assert.True(t, p.RequireEmailConfirmation)
	assert.Equal(t, DefaultProfile().MongoURI, p.MongoURI)

	path, err := p.sessionPath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/s.json", path)
}
