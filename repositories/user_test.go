package repositories

import (
	"strings"
	"testing"

	"chat-gateway/auth"
	"chat-gateway/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) IUserRepository {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions(t.TempDir()).WithLoggingLevel(badger.ERROR))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewUserRepository(db)
}

func TestUserRepository_CreateUser(t *testing.T) {
	req := require.New(t)
	repo := newTestRepo(t)

	user, err := repo.CreateUser("alice@example.com", "hashed-password")
	req.NoError(err)
	req.NotEmpty(user.ID)
	req.Equal("alice@example.com", user.Email)
	req.Equal([]string{"user"}, user.Roles)
	req.True(user.Active)

	// Username is drawn from the anonymous generator, never from the email.
	req.True(strings.HasPrefix(user.Username, "user "))
	req.Len(user.Username, len("user ")+9)

	// Second account on the same email is refused.
	_, err = repo.CreateUser("alice@example.com", "another-hash")
	req.ErrorIs(err, errors.ErrUserAlreadyExists)
}

func TestUserRepository_GetUserByEmail(t *testing.T) {
	req := require.New(t)
	repo := newTestRepo(t)

	created, err := repo.CreateUser("bob@example.com", "hash-bob")
	req.NoError(err)

	fetched, err := repo.GetUserByEmail("bob@example.com")
	req.NoError(err)
	req.Equal(created.ID, fetched.ID)
	req.Equal("hash-bob", fetched.PasswordHash)

	_, err = repo.GetUserByEmail("nobody@example.com")
	req.ErrorIs(err, errors.ErrUserNotFound)
}

func TestUserRepository_GetUserByID(t *testing.T) {
	req := require.New(t)
	repo := newTestRepo(t)

	created, err := repo.CreateUser("carol@example.com", "hash-carol")
	req.NoError(err)

	fetched, err := repo.GetUserByID(created.ID)
	req.NoError(err)
	req.Equal(created.Email, fetched.Email)
	req.Equal(created.Username, fetched.Username)

	_, err = repo.GetUserByID("does-not-exist")
	req.ErrorIs(err, errors.ErrUserNotFound)
}

func TestUserRepository_GetOrCreateGoogleUser(t *testing.T) {
	t.Run("creates a fresh user on first sign-in", func(t *testing.T) {
		req := require.New(t)
		repo := newTestRepo(t)

		profile := auth.GoogleProfile{
			ID:    "google-1",
			Email: "dave@example.com",
			Name:  "Dave Example",
		}

		user, err := repo.GetOrCreateGoogleUser(profile)
		req.NoError(err)
		req.NotEmpty(user.ID)
		req.Equal("google-1", user.GoogleID)
		req.Equal("Dave Example", user.FullName)
		req.True(strings.HasPrefix(user.Username, "user "))

		// Second sign-in resolves to the same account.
		again, err := repo.GetOrCreateGoogleUser(profile)
		req.NoError(err)
		req.Equal(user.ID, again.ID)
	})

	t.Run("links an existing local account by email", func(t *testing.T) {
		req := require.New(t)
		repo := newTestRepo(t)

		local, err := repo.CreateUser("eve@example.com", "hash-eve")
		req.NoError(err)

		linked, err := repo.GetOrCreateGoogleUser(auth.GoogleProfile{
			ID:    "google-2",
			Email: "eve@example.com",
		})
		req.NoError(err)
		req.Equal(local.ID, linked.ID)
		req.Equal("google-2", linked.GoogleID)

		// The local password survives the link.
		fetched, err := repo.GetUserByEmail("eve@example.com")
		req.NoError(err)
		req.Equal("hash-eve", fetched.PasswordHash)
		req.Equal("google-2", fetched.GoogleID)
	})
}

func TestUserRepository_ListUsers(t *testing.T) {
	req := require.New(t)
	repo := newTestRepo(t)

	emails := []string{"u1@example.com", "u2@example.com", "u3@example.com"}
	for _, email := range emails {
		_, err := repo.CreateUser(email, "hash")
		req.NoError(err)
	}

	users, err := repo.ListUsers()
	req.NoError(err)
	req.Len(users, len(emails))

	listed := make(map[string]struct{})
	for _, u := range users {
		listed[u.Email] = struct{}{}
	}
	for _, email := range emails {
		req.Contains(listed, email)
	}
}
