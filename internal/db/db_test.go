package db

import (
	"net/url"
	"strings"
	"testing"

	"github.com/notekeeper/apiserver/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{
		Host:     "db",
		Port:     5433,
		User:     "notes",
		Password: "p@ss/word",
		DBName:   "notes_db",
	})

	u, err := url.Parse(dsn)
	require.NoError(t, err)
	assert.Equal(t, "postgres", u.Scheme)
	assert.Equal(t, "db:5433", u.Host)
	assert.Equal(t, "/notes_db", u.Path)
	assert.Equal(t, "notes", u.User.Username())
	password, _ := u.User.Password()
	assert.Equal(t, "p@ss/word", password)
	assert.Equal(t, "disable", u.Query().Get("sslmode"))
}

func TestDSNWithSSL(t *testing.T) {
	dsn := DSN(config.DatabaseConfig{Host: "db", Port: 5432, UseSSL: true})

	u, err := url.Parse(dsn)
	require.NoError(t, err)
	assert.Equal(t, "require", u.Query().Get("sslmode"))
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)

	ups, downs := 0, 0
	for _, entry := range entries {
		name := entry.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups++
		case strings.HasSuffix(name, ".down.sql"):
			downs++
		}
	}
	assert.Positive(t, ups)
	assert.Equal(t, ups, downs)
}
