package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"user-crud-service/internal/domain/user"
)

func TestUserRepo_CreateAssignsSequentialIDs(t *testing.T) {
	repo := NewUserRepo(zaptest.NewLogger(t))
	ctx := context.Background()

	id1, err := repo.Create(ctx, &user.User{Name: "KIM", Email: "test1@test.com"})
	require.NoError(t, err)
	id2, err := repo.Create(ctx, &user.User{Name: "LEE", Email: "test2@test.com"})
	require.NoError(t, err)

	assert.Equal(t, int64(1), id1)
	assert.Equal(t, int64(2), id2)

	users, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []user.User{
		{ID: 1, Name: "KIM", Email: "test1@test.com"},
		{ID: 2, Name: "LEE", Email: "test2@test.com"},
	}, users)
}

func TestUserRepo_UniqueEmail(t *testing.T) {
	repo := NewUserRepo(zaptest.NewLogger(t))
	ctx := context.Background()

	_, err := repo.Create(ctx, &user.User{Name: "KIM", Email: "test1@test.com"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, &user.User{Name: "LEE", Email: "test2@test.com"})
	require.NoError(t, err)

	_, err = repo.Create(ctx, &user.User{Name: "PARK", Email: "test1@test.com"})
	assert.True(t, user.IsUniqueViolation(err, user.FieldEmail))

	email := "test1@test.com"
	err = repo.Update(ctx, 2, user.Patch{Email: &email})
	assert.True(t, user.IsUniqueViolation(err, user.FieldEmail))

	// Re-saving its own email is not a violation.
	own := "test2@test.com"
	assert.NoError(t, repo.Update(ctx, 2, user.Patch{Email: &own}))
}

func TestUserRepo_GetUpdateDelete(t *testing.T) {
	repo := NewUserRepo(zaptest.NewLogger(t))
	ctx := context.Background()

	_, err := repo.GetByID(ctx, 1)
	assert.ErrorIs(t, err, user.ErrNotFound)

	found, err := repo.GetByEmail(ctx, "test1@test.com")
	require.NoError(t, err)
	assert.Nil(t, found)

	id, err := repo.Create(ctx, &user.User{Name: "KIM", Email: "test1@test.com"})
	require.NoError(t, err)

	name := "PARK"
	require.NoError(t, repo.Update(ctx, id, user.Patch{Name: &name}))

	got, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, &user.User{ID: id, Name: "PARK", Email: "test1@test.com"}, got)

	require.NoError(t, repo.Delete(ctx, id))
	assert.ErrorIs(t, repo.Delete(ctx, id), user.ErrNotFound)
	assert.ErrorIs(t, repo.Update(ctx, id, user.Patch{Name: &name}), user.ErrNotFound)

	users, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestUserRepo_ConcurrentCreatesKeepEmailsUnique(t *testing.T) {
	repo := NewUserRepo(zaptest.NewLogger(t))
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.Create(ctx, &user.User{Name: "KIM", Email: "same@test.com"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, conflicts int
	for err := range errs {
		if err == nil {
			ok++
		} else if user.IsUniqueViolation(err, user.FieldEmail) {
			conflicts++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 9, conflicts)
}
