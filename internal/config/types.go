package config

// DefaultEndpoint is the homework status API.
const DefaultEndpoint = "https://practicum.yandex.ru/api/user_api/homework_statuses/"

// Config holds the non-secret settings. Secrets live in Credentials and are
// never read from (or written to) the config file.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "10m").
type Config struct {
	Practicum PracticumConfig `json:"practicum"`
	Telegram  TelegramConfig  `json:"telegram"`
	Relay     RelayConfig     `json:"relay"`
	Notifier  NotifierConfig  `json:"notifier"`
	Logging   LoggingConfig   `json:"logging"`
	Storage   StorageConfig   `json:"storage"`
}

type PracticumConfig struct {
	Endpoint string `json:"endpoint"`
	// RequestTimeout bounds one status request. "0s" leaves it unbounded.
	RequestTimeout string `json:"request_timeout"`
}

type TelegramConfig struct {
	SendTimeout string `json:"send_timeout"`
	// ThreadID targets a forum topic inside CHAT_ID (0 = none).
	ThreadID int `json:"thread_id,omitempty"`
}

// Empty homework list handling.
const (
	EmptyIgnore = "ignore"
	EmptyError  = "error"
)

// Send error handling.
const (
	SendErrorsPropagate = "propagate"
	SendErrorsLog       = "log"
)

type RelayConfig struct {
	// Schedule accepts cron ("*/10 * * * *", "@every 10m"), a duration ("10m") or HH:MM.
	Schedule       string `json:"schedule"`
	EmptyHomeworks string `json:"empty_homeworks"`
	SendErrors     string `json:"send_errors"`
	// ReportErrors relays loop failures to the chat (deduplicated).
	ReportErrors bool `json:"report_errors"`
	Greeting     bool `json:"greeting"`
}

type NotifierConfig struct {
	RatePerSec  int `json:"rate_per_sec"`
	HistorySize int `json:"history_size"`
}

type LoggingConfig struct {
	Level   string        `json:"level"`
	Console bool          `json:"console"`
	File    LogFileConfig `json:"file"`
}

type LogFileConfig struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path,omitempty"`
}

// StorageConfig configures the delivery journal. Driver: "none", "file", "sqlite".
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// Default returns the built-in configuration. A config file is decoded on top
// of it, so omitted fields keep these values.
func Default() Config {
	return Config{
		Practicum: PracticumConfig{
			Endpoint:       DefaultEndpoint,
			RequestTimeout: "0s",
		},
		Telegram: TelegramConfig{
			SendTimeout: "10s",
		},
		Relay: RelayConfig{
			Schedule:       "@every 600s",
			EmptyHomeworks: EmptyIgnore,
			SendErrors:     SendErrorsPropagate,
			ReportErrors:   true,
		},
		Notifier: NotifierConfig{
			RatePerSec:  1,
			HistorySize: 100,
		},
		Logging: LoggingConfig{
			Level:   "DEBUG",
			Console: true,
		},
		Storage: StorageConfig{
			Driver: "none",
		},
	}
}
