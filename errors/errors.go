package errors

import "fmt"

var (
	ErrUnauthorized       = fmt.Errorf("invalid or expired token")
	ErrMalformedPayload   = fmt.Errorf("malformed payload")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrInvalidPassword    = fmt.Errorf("password does not meet complexity requirements")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrUserAlreadyExists  = fmt.Errorf("user already exists")
	ErrUserNotFound       = fmt.Errorf("user not found")
	ErrGoogleAuth         = fmt.Errorf("google authentication failed")
)
