//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	goerrors "errors"
	"fmt"
	"math/rand/v2"
	"time"

	"chat-gateway/auth"
	"chat-gateway/errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
)

type IUserRepository interface {
	CreateUser(email, hashedPassword string) (User, error)
	GetUserByEmail(email string) (User, error)
	GetUserByID(id string) (User, error)
	GetOrCreateGoogleUser(profile auth.GoogleProfile) (User, error)
	ListUsers() ([]User, error)
}

// User is the domain-friendly representation of a user in the repository layer.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	FullName     string    `json:"fullname,omitempty"`
	GoogleID     string    `json:"google_id,omitempty"`
	PasswordHash string    `json:"-"`
	Roles        []string  `json:"roles"`
	Active       bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// storedUser is the on-disk shape. Unlike User it carries the password hash.
type storedUser struct {
	User
	PasswordHash string `json:"password_hash,omitempty"`
}

type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) IUserRepository {
	return &UserRepository{db: db}
}

// Key layout: the user record lives under user:<id>; email, google id and
// username each get an index key pointing back to the id so lookups and
// uniqueness checks stay single Get calls.
func userKey(id string) []byte       { return []byte("user:" + id) }
func emailKey(email string) []byte   { return []byte("user_email:" + email) }
func googleKey(gid string) []byte    { return []byte("user_google:" + gid) }
func usernameKey(name string) []byte { return []byte("user_name:" + name) }

// CreateUser persists a local account. The caller provides an already
// hashed password; plain passwords never reach this layer.
func (r *UserRepository) CreateUser(email, hashedPassword string) (User, error) {
	var created User
	err := r.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(emailKey(email)); err == nil {
			return errors.ErrUserAlreadyExists
		} else if !goerrors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		username, err := generateUsername(txn)
		if err != nil {
			return err
		}

		created = User{
			ID:        uuid.New().String(),
			Email:     email,
			Username:  username,
			Roles:     []string{"user"},
			Active:    true,
			CreatedAt: time.Now().UTC(),
		}
		return writeUser(txn, created, hashedPassword)
	})
	if err != nil {
		return User{}, err
	}
	return created, nil
}

func (r *UserRepository) GetUserByEmail(email string) (User, error) {
	var user User
	err := r.db.View(func(txn *badger.Txn) error {
		id, err := lookupIndex(txn, emailKey(email))
		if err != nil {
			return err
		}
		user, err = readUser(txn, id)
		return err
	})
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (r *UserRepository) GetUserByID(id string) (User, error) {
	var user User
	err := r.db.View(func(txn *badger.Txn) error {
		var err error
		user, err = readUser(txn, id)
		return err
	})
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// GetOrCreateGoogleUser upserts a user from a verified Google profile.
// Matching follows the google id first, then the email, so a local account
// that later signs in with Google is linked instead of duplicated.
func (r *UserRepository) GetOrCreateGoogleUser(profile auth.GoogleProfile) (User, error) {
	var user User
	err := r.db.Update(func(txn *badger.Txn) error {
		if id, err := lookupIndex(txn, googleKey(profile.ID)); err == nil {
			user, err = readUser(txn, id)
			return err
		} else if !goerrors.Is(err, errors.ErrUserNotFound) {
			return err
		}

		if id, err := lookupIndex(txn, emailKey(profile.Email)); err == nil {
			user, err = readUser(txn, id)
			if err != nil {
				return err
			}
			user.GoogleID = profile.ID
			stored, err := readStoredUser(txn, id)
			if err != nil {
				return err
			}
			return writeUser(txn, user, stored.PasswordHash)
		} else if !goerrors.Is(err, errors.ErrUserNotFound) {
			return err
		}

		username, err := generateUsername(txn)
		if err != nil {
			return err
		}
		user = User{
			ID:        uuid.New().String(),
			Email:     profile.Email,
			Username:  username,
			FullName:  profile.Name,
			GoogleID:  profile.ID,
			Roles:     []string{"user"},
			Active:    true,
			CreatedAt: time.Now().UTC(),
		}
		return writeUser(txn, user, "")
	})
	if err != nil {
		return User{}, err
	}
	return user, nil
}

// ListUsers iterates the user prefix. Used by the viewer tool only.
func (r *UserRepository) ListUsers() ([]User, error) {
	var users []User
	err := r.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		prefix := []byte("user:")
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var stored storedUser
				if err := json.Unmarshal(val, &stored); err != nil {
					return err
				}
				users = append(users, toUser(stored))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

func writeUser(txn *badger.Txn, user User, passwordHash string) error {
	stored := storedUser{User: user, PasswordHash: passwordHash}
	data, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}
	if err := txn.Set(userKey(user.ID), data); err != nil {
		return err
	}
	if err := txn.Set(emailKey(user.Email), []byte(user.ID)); err != nil {
		return err
	}
	if err := txn.Set(usernameKey(user.Username), []byte(user.ID)); err != nil {
		return err
	}
	if user.GoogleID != "" {
		return txn.Set(googleKey(user.GoogleID), []byte(user.ID))
	}
	return nil
}

func readUser(txn *badger.Txn, id string) (User, error) {
	stored, err := readStoredUser(txn, id)
	if err != nil {
		return User{}, err
	}
	return toUser(stored), nil
}

func readStoredUser(txn *badger.Txn, id string) (storedUser, error) {
	item, err := txn.Get(userKey(id))
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return storedUser{}, errors.ErrUserNotFound
	}
	if err != nil {
		return storedUser{}, err
	}
	var stored storedUser
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &stored)
	})
	return stored, err
}

func toUser(stored storedUser) User {
	user := stored.User
	user.PasswordHash = stored.PasswordHash
	return user
}

func lookupIndex(txn *badger.Txn, key []byte) (string, error) {
	item, err := txn.Get(key)
	if goerrors.Is(err, badger.ErrKeyNotFound) {
		return "", errors.ErrUserNotFound
	}
	if err != nil {
		return "", err
	}
	var id string
	err = item.Value(func(val []byte) error {
		id = string(val)
		return nil
	})
	return id, err
}

// generateUsername draws "user NNNNNNNNN" names until one is free.
// Collisions are vanishingly rare with a billion candidates, so the loop
// terminates almost always on the first draw.
func generateUsername(txn *badger.Txn) (string, error) {
	for {
		name := fmt.Sprintf("user %09d", rand.IntN(1_000_000_000))
		_, err := txn.Get(usernameKey(name))
		if goerrors.Is(err, badger.ErrKeyNotFound) {
			return name, nil
		}
		if err != nil {
			return "", err
		}
	}
}
