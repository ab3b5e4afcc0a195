package resourcemanager

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/require"

	"github.com/evalforge/evalforge/internal/common/uuid"
	"github.com/evalforge/evalforge/internal/tracksrv/config"
	"github.com/evalforge/evalforge/internal/tracksrv/db"
	"github.com/evalforge/evalforge/internal/tracksrv/db/models"
	"github.com/evalforge/evalforge/internal/tracksrv/trackcommon"
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

// newTestPrincipal creates a throwaway user and group and returns a context
// authenticated as that user acting in that group.
func newTestPrincipal(t *testing.T, ctx context.Context) (context.Context, uuid.UUID) {
	t.Helper()
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:12]
	user := &models.User{
		Username:         "tester_" + suffix,
		Email:            "tester_" + suffix + "@example.com",
		PasswordHash:     "unused",
		PasswordExpireOn: time.Now().Add(24 * time.Hour),
	}
	require.Nil(t, db.DB(ctx).CreateUser(ctx, user))

	userCtx := &trackcommon.UserContext{UserID: user.UserID, Username: user.Username}
	ctx = trackcommon.WithUserContext(ctx, userCtx)

	group, apperr := CreateGroup(ctx, &GroupInput{Name: "grp_" + suffix})
	require.Nil(t, apperr)
	userCtx.GroupID = group.ID
	return ctx, group.ID
}
