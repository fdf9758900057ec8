package postgres

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warriorguo/jobflow/store"
)

// getTestConfig returns a test configuration
// You can set environment variables to override defaults:
// - POSTGRES_HOST
// - POSTGRES_PORT
// - POSTGRES_USER
// - POSTGRES_PASSWORD
// - POSTGRES_DB
func getTestConfig() *Config {
	config := DefaultConfig()

	if host := os.Getenv("POSTGRES_HOST"); host != "" {
		config.Host = host
	}
	if port := os.Getenv("POSTGRES_PORT"); port != "" {
		fmt.Sscanf(port, "%d", &config.Port)
	}
	if user := os.Getenv("POSTGRES_USER"); user != "" {
		config.User = user
	}
	if password := os.Getenv("POSTGRES_PASSWORD"); password != "" {
		config.Password = password
	}
	if db := os.Getenv("POSTGRES_DB"); db != "" {
		config.Database = db
	}

	return config
}

// skipIfNoPostgres skips the test if PostgreSQL is not available
func skipIfNoPostgres(t *testing.T) store.Store {
	s, err := NewPostgresStore(getTestConfig())
	if err != nil {
		t.Skipf("PostgreSQL not available: %v", err)
		return nil
	}
	return s
}

func TestPostgresStore_SetGetList(t *testing.T) {
	s := skipIfNoPostgres(t)
	if s == nil {
		return
	}
	defer s.(*pgStore).Close()

	ctx := context.Background()

	assert.Nil(t, s.Set(ctx, "/test/", "key1", []byte("value1")))
	assert.Nil(t, s.Set(ctx, "/test/", "key1", []byte("value2")))
	assert.Nil(t, s.Set(ctx, "/test/", "key2", []byte{0, 1, 2}))

	value, err := s.Get(ctx, "/test/", "key1")
	assert.Nil(t, err)
	assert.Equal(t, []byte("value2"), value)

	value, err = s.Get(ctx, "/test/", "non-existent")
	assert.Nil(t, err)
	assert.Nil(t, value)

	keys := []string{}
	assert.Nil(t, s.List(ctx, "/test/", func(key string) bool {
		keys = append(keys, key)
		return true
	}))
	assert.Equal(t, []string{"key1", "key2"}, keys)

	assert.Nil(t, s.Remove(ctx, "/test/", "key1"))
	assert.Nil(t, s.Remove(ctx, "/test/", "key2"))
}

func newMockStore(t *testing.T) (store.Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.Nil(t, err)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS " + tableName).WillReturnResult(sqlmock.NewResult(0, 0))
	s, err := NewPostgresStoreWithDB(sqlx.NewDb(db, "postgres"))
	require.Nil(t, err)
	return s, mock
}

func TestPostgresStore_Mock(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT value FROM " + tableName)).
		WithArgs("/p/", "k").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow([]byte("v")))
	value, err := s.Get(ctx, "/p/", "k")
	assert.Nil(t, err)
	assert.Equal(t, []byte("v"), value)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT value FROM " + tableName)).
		WithArgs("/p/", "none").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))
	value, err = s.Get(ctx, "/p/", "none")
	assert.Nil(t, err)
	assert.Nil(t, value)

	mock.ExpectExec("INSERT INTO " + tableName).
		WithArgs("/p/", "k", []byte("v2")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	assert.Nil(t, s.Set(ctx, "/p/", "k", []byte("v2")))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT key FROM " + tableName)).
		WithArgs("/p/").
		WillReturnRows(sqlmock.NewRows([]string{"key"}).AddRow("a").AddRow("b").AddRow("c"))
	keys := []string{}
	assert.Nil(t, s.List(ctx, "/p/", func(key string) bool {
		keys = append(keys, key)
		return len(keys) < 2
	}))
	assert.Equal(t, []string{"a", "b"}, keys)

	assert.Nil(t, mock.ExpectationsWereMet())
}

func TestConfig_Validate(t *testing.T) {
	assert.Nil(t, DefaultConfig().Validate())

	c := DefaultConfig()
	c.Host = ""
	assert.NotNil(t, c.Validate())

	c = DefaultConfig()
	c.Port = 70000
	assert.NotNil(t, c.Validate())

	c = DefaultConfig()
	c.SSLMode = "sometimes"
	assert.NotNil(t, c.Validate())

	c = DefaultConfig()
	c.SSLMode = ""
	assert.Nil(t, c.Validate())
	assert.Equal(t, "disable", c.SSLMode)
}

func TestConfig_DSN(t *testing.T) {
	assert.Equal(t,
		"host=localhost port=5432 user=postgres password=postgres dbname=jobflow sslmode=disable",
		DefaultConfig().DSN())
}

func TestParseDSN(t *testing.T) {
	c, err := ParseDSN("host=db port=5433 user=u password=p dbname=d sslmode=require junk")
	assert.Nil(t, err)
	assert.Equal(t, "db", c.Host)
	assert.Equal(t, 5433, c.Port)
	assert.Equal(t, "u", c.User)
	assert.Equal(t, "p", c.Password)
	assert.Equal(t, "d", c.Database)
	assert.Equal(t, "require", c.SSLMode)

	_, err = ParseDSN("sslmode=bogus")
	assert.NotNil(t, err)
}
