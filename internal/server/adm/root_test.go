package adm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dmitrijs2005/codereg/internal/common"
	"github.com/dmitrijs2005/codereg/internal/server/auth"
	"github.com/dmitrijs2005/codereg/internal/server/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	migrateErr error
	indexed    int
	reindexErr error
	doi        string
	closed     bool
}

func (f *fakeBackend) Migrate(context.Context) error            { return f.migrateErr }
func (f *fakeBackend) Reindex(context.Context) (int, error)     { return f.indexed, f.reindexErr }
func (f *fakeBackend) Allocate(context.Context) (string, error) { return f.doi, nil }
func (f *fakeBackend) Close() error {
	f.closed = true
	return nil
}

// run executes the root command with args against b and returns stdout.
func run(t *testing.T, b *fakeBackend, args ...string) (string, *config.Config, error) {
	t.Helper()
	var got *config.Config
	cmd := newRootCommand(func(_ context.Context, cfg *config.Config) (Backend, error) {
		got = cfg
		return b, nil
	})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), got, err
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"migrate", "reindex", "allocate", "token"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestInvalidFormat(t *testing.T) {
	_, _, err := run(t, &fakeBackend{}, "migrate", "--format", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestMigrate(t *testing.T) {
	b := &fakeBackend{}
	out, _, err := run(t, b, "migrate")
	require.NoError(t, err)
	assert.Equal(t, "migrations applied\n", out)
	assert.True(t, b.closed)

	b = &fakeBackend{migrateErr: errors.New("locked")}
	_, _, err = run(t, b, "migrate")
	require.Error(t, err)
	assert.True(t, b.closed)
}

func TestReindex_ReportsCountEvenOnPartialFailure(t *testing.T) {
	b := &fakeBackend{indexed: 3, reindexErr: &common.SyncError{Target: "index", Err: errors.New("503")}}
	out, _, err := run(t, b, "reindex", "--format", "json")
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrSync))

	var got map[string]int
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 3, got["indexed"])
}

func TestAllocate(t *testing.T) {
	b := &fakeBackend{doi: "10.11578/dc.20240101.1"}
	out, _, err := run(t, b, "allocate")
	require.NoError(t, err)
	assert.Equal(t, "10.11578/dc.20240101.1", strings.TrimSpace(out))
}

func TestConfigFileAndDSNOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "adm.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database_dsn: postgres://file\ndoi_prefix: \"10.5555\"\n"), 0o600))

	_, cfg, err := run(t, &fakeBackend{}, "migrate", "-c", path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://file", cfg.DatabaseDSN)
	assert.Equal(t, "10.5555", cfg.DOIPrefix)

	_, cfg, err = run(t, &fakeBackend{}, "migrate", "-c", path, "--dsn", "postgres://flag")
	require.NoError(t, err)
	assert.Equal(t, "postgres://flag", cfg.DatabaseDSN)
}

func TestToken_RoundTrips(t *testing.T) {
	out, _, err := run(t, &fakeBackend{}, "token", "--user", "root", "--role", common.RoleAdmin, "--site", "ORNL")
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.LoadDefaults()
	p, err := auth.ParseToken(strings.TrimSpace(out), []byte(cfg.SecretKey))
	require.NoError(t, err)
	assert.Equal(t, "root", p.UserID)
	assert.Equal(t, "ORNL", p.Site)
	assert.True(t, p.HasRole(common.RoleAdmin))
}

func TestToken_RequiresUser(t *testing.T) {
	_, _, err := run(t, &fakeBackend{}, "token")
	require.Error(t, err)
}
