package auth

import (
	"context"
	"testing"
)

func TestZZDiag(t *testing.T) {
	db := setupAuthDB(t)
	repo := NewUsersRepository(db)
	ctx := context.Background()

	_, err := repo.GetByUsername(ctx, "nobody")
	t.Logf("err=%+v type=%T", err, err)
}
