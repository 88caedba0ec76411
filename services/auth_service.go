//go:generate go run go.uber.org/mock/mockgen -source=auth_service.go -destination=../mocks/mock_auth_service.go -package=mocks
package services

import (
	"context"
	"fmt"
	"time"

	"chat-gateway/auth"
	"chat-gateway/errors"
	"chat-gateway/repositories"

	"golang.org/x/oauth2"
)

type Token string

type IAuthService interface {
	Register(email, password string) (Token, error)
	Login(email, password string) (Token, error)
	LoginWithGoogle(ctx context.Context, code string) (Token, error)
	IssueToken(username, userID string) (Token, error)
	GoogleLoginURL(state string) string
}

// IGoogleAuthenticator abstracts the OAuth round trips so the service can be
// tested without talking to Google.
type IGoogleAuthenticator interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	FetchProfile(ctx context.Context, token *oauth2.Token) (auth.GoogleProfile, error)
}

type AuthService struct {
	userRepository repositories.IUserRepository
	tokens         *auth.TokenManager
	google         IGoogleAuthenticator
	tokenDuration  time.Duration
}

func NewAuthService(
	repo repositories.IUserRepository,
	tokens *auth.TokenManager,
	google IGoogleAuthenticator,
	tokenDuration time.Duration,
) IAuthService {
	return &AuthService{
		userRepository: repo,
		tokens:         tokens,
		google:         google,
		tokenDuration:  tokenDuration,
	}
}

func (s *AuthService) Register(email, password string) (Token, error) {
	valReq := auth.RegisterRequest{
		Email:    email,
		Password: password,
	}

	// 1. Validate business rules (email format, password complexity)
	// We check this before any expensive cryptographic operation.
	if err := auth.ValidateRegister(valReq); err != nil {
		return "", fmt.Errorf("%w: %v", errors.ErrInvalidPassword, err)
	}

	// 2. Hash the password using Argon2id
	// Done in the service layer to keep the repository unaware of plain passwords.
	hashedPassword, err := auth.HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hashing failed: %w", err)
	}

	// 3. Persist the user with the generated hash
	user, err := s.userRepository.CreateUser(email, hashedPassword)
	if err != nil {
		return "", err // Will propagate ErrUserAlreadyExists if email is taken
	}

	// 4. Generate the initial session token
	return s.mint(user)
}

func (s *AuthService) Login(email, password string) (Token, error) {
	// 1. Retrieve user by email from storage
	user, err := s.userRepository.GetUserByEmail(email)
	if err != nil {
		// Generic error to prevent user enumeration attacks
		return "", errors.ErrInvalidCredentials
	}

	// 2. Compare the provided password with the stored hash
	match, err := auth.ComparePassword(password, user.PasswordHash)
	if err != nil || !match {
		return "", errors.ErrInvalidCredentials
	}

	return s.mint(user)
}

// LoginWithGoogle completes the OAuth callback: the authorization code is
// exchanged, the profile fetched, the local user upserted, and a session
// token minted for them.
func (s *AuthService) LoginWithGoogle(ctx context.Context, code string) (Token, error) {
	token, err := s.google.Exchange(ctx, code)
	if err != nil {
		return "", err
	}

	profile, err := s.google.FetchProfile(ctx, token)
	if err != nil {
		return "", err
	}

	user, err := s.userRepository.GetOrCreateGoogleUser(profile)
	if err != nil {
		return "", err
	}

	return s.mint(user)
}

// IssueToken mints a token from caller-provided identity data.
// It backs the plain token endpoint used by tests and local tooling.
func (s *AuthService) IssueToken(username, userID string) (Token, error) {
	signed, err := s.tokens.GenerateToken(username, userID, s.tokenDuration)
	if err != nil {
		return "", errors.ErrTokenGeneration
	}
	return Token(signed), nil
}

func (s *AuthService) GoogleLoginURL(state string) string {
	return s.google.AuthCodeURL(state)
}

func (s *AuthService) mint(user repositories.User) (Token, error) {
	signed, err := s.tokens.GenerateToken(user.Username, user.ID, s.tokenDuration)
	if err != nil {
		return "", errors.ErrTokenGeneration
	}
	return Token(signed), nil
}
