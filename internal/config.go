package internal

import (
	"fmt"
	"time"
)

type Config struct {
	Host              string        `env:"HOST,default=0.0.0.0"`
	Port              int           `env:"PORT,required=true"`
	SecretKey         string        `env:"SECRET_KEY,required=true"`
	TokenIssuer       string        `env:"TOKEN_ISSUER,default=chat-gateway"`
	AuthTokenDuration time.Duration `env:"AUTH_TOKEN_DURATION,required=true"`
	BadgerFilepath    string        `env:"BADGER_FILEPATH,required=true"`
	LogLevel          string        `env:"LOG_LEVEL,required=true"`
	SendBufferSize    int           `env:"SEND_BUFFER_SIZE,default=256"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`

	GoogleClientID      string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret  string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectURL   string `env:"GOOGLE_REDIRECT_URL"`
	FrontendRedirectURL string `env:"FRONTEND_REDIRECT_URL"`
}

func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
