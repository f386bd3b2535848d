// internal/common/config/config_test.go
package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetDSN(t *testing.T) {
	cfg := PostgresConfig{
		Host: "db.internal", Port: 5432, Database: "stayflow",
		User: "svc", Password: "secret", SSLMode: "require",
	}
	assert.Equal(t,
		"host=db.internal port=5432 user=svc password=secret dbname=stayflow sslmode=require",
		cfg.GetDSN())
}

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	applyDefaults(&cfg)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Database.Postgres.Host)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.Equal(t, 7, cfg.Messaging.SweepLookbackDays)
	assert.Equal(t, 30, cfg.Messaging.SweepLookaheadDays)
	assert.Equal(t, 60, cfg.Messaging.SweepToleranceMins)
	assert.Equal(t, 30, cfg.Messaging.SweepLockTTLMins)
	assert.Equal(t, "ap-southeast-1", cfg.Email.AWSRegion)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestApplyDefaults_CronSecretFromEnv(t *testing.T) {
	t.Setenv("CRON_SECRET", "from-env")
	var cfg Config
	applyDefaults(&cfg)
	assert.Equal(t, "from-env", cfg.Server.CronSecret)
}

func TestValidateConfig(t *testing.T) {
	valid := Config{}
	applyDefaults(&valid)
	valid.Database.Postgres.Database = "stayflow"
	valid.Database.Postgres.User = "svc"
	valid.Email.FromAddress = "noreply@stayflow.example"

	assert.NoError(t, validateConfig(&valid))

	missingDB := valid
	missingDB.Database.Postgres.Database = ""
	assert.Error(t, validateConfig(&missingDB))

	missingFrom := valid
	missingFrom.Email.FromAddress = ""
	assert.Error(t, validateConfig(&missingFrom))

	badTolerance := valid
	badTolerance.Messaging.SweepToleranceMins = 0
	assert.Error(t, validateConfig(&badTolerance))
}
