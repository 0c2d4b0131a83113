package auth

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const (
	sqliteCreateUsers = `CREATE TABLE users (
    id TEXT NOT NULL PRIMARY KEY,
    user_role TEXT NOT NULL DEFAULT 'member',
    first_name TEXT,
    last_name TEXT,
    username TEXT NOT NULL UNIQUE,
    email TEXT NOT NULL UNIQUE,
    password_hash TEXT,
    status TEXT NOT NULL DEFAULT 'active',
    login_attempts INTEGER DEFAULT 0,
    login_attempt_at TIMESTAMP,
    loggedin_at TIMESTAMP,
    disabled_at TIMESTAMP,
    reseted_at TIMESTAMP,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    deleted_at TIMESTAMP
);`

	sqliteCreateRefreshTokens = `CREATE TABLE refresh_tokens (
    id TEXT NOT NULL PRIMARY KEY,
    user_id TEXT NOT NULL,
    device TEXT,
    issued_at TIMESTAMP NOT NULL,
    expires_at TIMESTAMP NOT NULL,
    revoked_at TIMESTAMP,
    replaced_by TEXT,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    FOREIGN KEY (user_id) REFERENCES users (id) ON DELETE CASCADE
);`

	sqliteCreatePasswordReset = `CREATE TABLE password_reset (
    id TEXT NOT NULL PRIMARY KEY,
    user_id TEXT,
    status TEXT NOT NULL DEFAULT 'requested',
    email TEXT NOT NULL,
    expires_at TIMESTAMP NOT NULL,
    reseted_at TIMESTAMP,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    deleted_at TIMESTAMP
);`
)

func setupAuthDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared&_pragma=foreign_keys(1)")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	for _, ddl := range []string{sqliteCreateUsers, sqliteCreateRefreshTokens, sqliteCreatePasswordReset} {
		_, err = bunDB.Exec(ddl)
		require.NoError(t, err)
	}

	t.Cleanup(func() {
		_ = bunDB.Close()
		_ = sqldb.Close()
	})

	return bunDB
}

func seedUser(t *testing.T, db *bun.DB, mutate ...func(*User)) *User {
	t.Helper()

	hash, err := HashPassword("correct horse battery staple")
	require.NoError(t, err)

	user := &User{
		ID:           uuid.New(),
		Role:         RoleMember,
		Username:     "ada-" + uuid.NewString()[:8],
		Email:        "ada-" + uuid.NewString()[:8] + "@internum.example",
		PasswordHash: hash,
		Status:       UserStatusActive,
	}

	for _, m := range mutate {
		m(user)
	}

	_, err = db.NewInsert().Model(user).Exec(context.Background())
	require.NoError(t, err)

	return user
}

func seedRefreshToken(t *testing.T, db *bun.DB, userID uuid.UUID, mutate ...func(*RefreshToken)) *RefreshToken {
	t.Helper()

	now := time.Now()
	token := &RefreshToken{
		ID:        uuid.New(),
		UserID:    userID,
		Device:    "test",
		IssuedAt:  now,
		ExpiresAt: now.Add(time.Hour),
	}

	for _, m := range mutate {
		m(token)
	}

	_, err := db.NewInsert().Model(token).Exec(context.Background())
	require.NoError(t, err)

	return token
}
