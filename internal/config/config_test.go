package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FileValuesAndDefaults(t *testing.T) {
	path := writeConfig(t, `
database:
  mysql:
    dsn: "user:pass@tcp(db:3306)/students"
jwt:
  secret: "s3cret"
llm:
  model: "gpt-4o-mini"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "user:pass@tcp(db:3306)/students", cfg.Database.MySQL.DSN)
	assert.Equal(t, "s3cret", cfg.JWT.Secret)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)

	assert.Equal(t, "3001", cfg.Server.Port)
	assert.Equal(t, 24, cfg.JWT.AccessTokenExpireHours)
	assert.Equal(t, 30*time.Second, cfg.LLM.Timeout())
	assert.Equal(t, 15*time.Second, cfg.Database.StatementTimeout())
	assert.Equal(t, PolicyDegrade, cfg.Pipeline.SynthesisFailurePolicy)
	assert.Equal(t, PolicyAnswer, cfg.Pipeline.ExecutionErrorPolicy)
	assert.Equal(t, "query-audit", cfg.Kafka.Topic)
	assert.Empty(t, cfg.Kafka.BrokerList())
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, `
database:
  mysql:
    dsn: "from-file"
jwt:
  secret: "from-file"
`)
	t.Setenv("SQLCHAT_JWT_SECRET", "from-env")
	t.Setenv("SQLCHAT_KAFKA_BROKERS", "k1:9092, k2:9092")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.JWT.Secret)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.BrokerList())
}

func TestLoad_EnvOnly(t *testing.T) {
	t.Setenv("SQLCHAT_JWT_SECRET", "env-secret")
	t.Setenv("SQLCHAT_DATABASE_MYSQL_DSN", "env-dsn")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "env-secret", cfg.JWT.Secret)
	assert.Equal(t, "env-dsn", cfg.Database.MySQL.DSN)
}

func TestLoad_MissingRequired(t *testing.T) {
	path := writeConfig(t, "server:\n  port: \"8080\"\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt.secret")
	assert.Contains(t, err.Error(), "database.mysql.dsn")
}

func TestLoad_InvalidPolicy(t *testing.T) {
	path := writeConfig(t, `
database:
  mysql:
    dsn: "dsn"
jwt:
  secret: "s"
pipeline:
  synthesis_failure_policy: "ignore"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "synthesis_failure_policy")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
