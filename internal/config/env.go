package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables holding the secrets.
const (
	EnvPracticumToken = "PRACTICUM"
	EnvTelegramToken  = "TELEGRAM"
	EnvChatID         = "CHAT_ID"
)

var ErrMissingCredentials = errors.New("missing credentials")

// MissingCredentialsError lists every required variable that is empty.
type MissingCredentialsError struct {
	Missing []string
}

func (e *MissingCredentialsError) Error() string {
	return "missing required environment variables: " + strings.Join(e.Missing, ", ")
}

func (e *MissingCredentialsError) Is(target error) bool { return target == ErrMissingCredentials }

// Credentials are loaded once at startup and never change afterwards.
type Credentials struct {
	PracticumToken string
	TelegramToken  string
	ChatID         string
}

// Check returns *MissingCredentialsError when any credential is empty.
func (c Credentials) Check() error {
	var missing []string
	if strings.TrimSpace(c.PracticumToken) == "" {
		missing = append(missing, EnvPracticumToken)
	}
	if strings.TrimSpace(c.TelegramToken) == "" {
		missing = append(missing, EnvTelegramToken)
	}
	if strings.TrimSpace(c.ChatID) == "" {
		missing = append(missing, EnvChatID)
	}
	if len(missing) > 0 {
		return &MissingCredentialsError{Missing: missing}
	}
	return nil
}

// CredentialsFrom reads the secrets through getenv.
func CredentialsFrom(getenv func(string) string) Credentials {
	return Credentials{
		PracticumToken: strings.TrimSpace(getenv(EnvPracticumToken)),
		TelegramToken:  strings.TrimSpace(getenv(EnvTelegramToken)),
		ChatID:         strings.TrimSpace(getenv(EnvChatID)),
	}
}

// LoadCredentials loads dotenv files into the process environment and then
// reads the secrets. Variables already set in the environment win.
//
// With no files given, "./.env" is loaded if it exists. Explicit files must exist.
func LoadCredentials(files ...string) (Credentials, error) {
	if len(files) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Credentials{}, err
		}
	} else if err := godotenv.Load(files...); err != nil {
		return Credentials{}, err
	}
	return CredentialsFrom(os.Getenv), nil
}
