package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type ConfigTestSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (s *ConfigTestSuite) SetupTest() {
	for _, key := range []string{
		"RUN_ADDRESS", "NODE_ID", "STORAGE", "DATA_FILE", "DATABASE_URI", "MIGRATIONS_DIR",
		"SYNC_MODE", "SYNC_ADDRESS", "SYNC_DOWNLINK_ADDRESS", "HANDSHAKE_TIMEOUT", "SAVE_DEBOUNCE", "RECONNECT", "JWT_SECRET",
	} {
		// Setenv восстановит исходное значение после теста.
		s.T().Setenv(key, "")
		s.Require().NoError(os.Unsetenv(key))
	}
}

func (s *ConfigTestSuite) TestDefaults() {
	conf, err := load([]string{"-j", "secret"})
	s.Require().NoError(err)
	s.Equal("localhost:8080", conf.RunAddress)
	s.Equal(StorageFile, conf.Storage)
	s.Equal(SyncNone, conf.SyncMode)
	s.Equal(5*time.Second, conf.HandshakeTimeout)
	s.Equal(500*time.Millisecond, conf.SaveDebounce)
	s.NotEmpty(conf.NodeID)
	s.False(conf.Reconnect)
}

func (s *ConfigTestSuite) TestEnvOverridesFlags() {
	s.T().Setenv("RUN_ADDRESS", ":9999")
	s.T().Setenv("NODE_ID", "bar-1")
	s.T().Setenv("HANDSHAKE_TIMEOUT", "2s")
	s.T().Setenv("RECONNECT", "true")

	conf, err := load([]string{"-a", ":7777", "-n", "flag-node", "-handshake", "9s", "-j", "secret"})
	s.Require().NoError(err)
	s.Equal(":9999", conf.RunAddress)
	s.Equal("bar-1", conf.NodeID)
	s.Equal(2*time.Second, conf.HandshakeTimeout)
	s.True(conf.Reconnect)
}

func (s *ConfigTestSuite) TestValidation() {
	cases := []struct {
		name string
		args []string
	}{
		{name: "no secret", args: nil},
		{name: "unknown storage", args: []string{"-j", "x", "-s", "redis"}},
		{name: "postgres without dsn", args: []string{"-j", "x", "-s", "postgres"}},
		{name: "client without address", args: []string{"-j", "x", "-sync", "client"}},
		{name: "unknown sync mode", args: []string{"-j", "x", "-sync", "mesh"}},
		{name: "downlink without uplink", args: []string{"-j", "x", "-sync-downlink", ":9091"}},
		{name: "downlink on server", args: []string{"-j", "x", "-sync", "server", "-sync-addr", ":9090", "-sync-downlink", ":9091"}},
	}
	for _, c := range cases {
		s.Run(c.name, func() {
			_, err := load(c.args)
			s.Require().ErrorIs(err, ErrInvalidConfig)
		})
	}

	conf, err := load([]string{"-j", "x", "-sync", "server", "-sync-addr", ":9090", "-s", "none"})
	s.Require().NoError(err)
	s.Equal(SyncServer, conf.SyncMode)
	s.Equal(":9090", conf.SyncAddress)
}

func (s *ConfigTestSuite) TestDownlink() {
	s.T().Setenv("SYNC_DOWNLINK_ADDRESS", ":9191")

	conf, err := load([]string{"-j", "x", "-s", "none", "-sync", "client", "-sync-addr", "hub:9090", "-sync-downlink", ":9091"})
	s.Require().NoError(err)
	s.Equal(SyncClient, conf.SyncMode)
	s.Equal("hub:9090", conf.SyncAddress)
	s.Equal(":9191", conf.DownlinkAddress)
}

func (s *ConfigTestSuite) TestEnvFile() {
	path := filepath.Join(s.T().TempDir(), ".env")
	s.Require().NoError(os.WriteFile(path, []byte("NODE_ID=from-file\nJWT_SECRET=file-secret\n"), 0o600))
	s.T().Setenv("JWT_SECRET", "env-secret")

	s.Require().NoError(loadEnvFile(path))
	// Setenv зарегистрирует восстановление NODE_ID, выставленного из файла.
	s.T().Setenv("NODE_ID", os.Getenv("NODE_ID"))

	conf, err := load(nil)
	s.Require().NoError(err)
	s.Equal("from-file", conf.NodeID)
	s.Equal("env-secret", conf.JWTSecret)
}

func (s *ConfigTestSuite) TestMissingEnvFile() {
	s.NoError(loadEnvFile(filepath.Join(s.T().TempDir(), "absent.env")))
}
