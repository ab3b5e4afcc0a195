package auth

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"

	"github.com/evalforge/evalforge/internal/common/uuid"
	"github.com/evalforge/evalforge/internal/tracksrv/config"
	"github.com/evalforge/evalforge/internal/tracksrv/db"
)

var once sync.Once

func newDb(t *testing.T) context.Context {
	t.Helper()
	once.Do(func() {
		config.TestInit()
		if err := db.Init(context.Background()); err != nil {
			panic(err)
		}
	})
	ctx := log.Logger.WithContext(context.Background())
	ctx, err := db.ConnCtx(ctx)
	if err != nil {
		t.Fatalf("unable to get db connection: %v", err)
	}
	return ctx
}

// registerTestUser registers an account with a unique name and returns the
// view, the generated username, and the password.
func registerTestUser(t *testing.T, ctx context.Context) (*UserView, string, string) {
	t.Helper()
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
	username := "acct_" + suffix
	password := "pw_" + suffix
	view, apperr := RegisterUser(ctx, &RegisterUserRequest{
		Username:        username,
		Email:           username + "@example.com",
		Password:        password,
		ConfirmPassword: password,
	})
	require.Nil(t, apperr)
	return view, username, password
}
