// Package secrets holds server-side secrets in memguard enclaves so that
// they are encrypted at rest in process memory and only decrypted for the
// moment they are read.
package secrets

import (
	"sync"

	"github.com/awnumar/memguard"
)

// Secret names, also the environment variables they are loaded from.
const (
	AdminCode             = "ADMIN_CODE"
	TelegramBotToken      = "TELEGRAM_BOT_TOKEN"
	TelegramAuthToken     = "TELEGRAM_AUTH_TOKEN"
	TelegramWebhookSecret = "TELEGRAM_WEBHOOK_SECRET"
)

// Names lists every secret the server reads.
var Names = []string{AdminCode, TelegramBotToken, TelegramAuthToken, TelegramWebhookSecret}

// Store is a thread-safe set of named secrets.
type Store struct {
	mu       sync.RWMutex
	enclaves map[string]*memguard.Enclave
}

// New returns an empty Store.
func New() *Store {
	return &Store{enclaves: make(map[string]*memguard.Enclave)}
}

// FromEnv loads every secret in Names through lookup (normally os.LookupEnv).
// The Telegram auth token defaults to the bot token when unset.
func FromEnv(lookup func(string) (string, bool)) *Store {
	s := New()
	for _, name := range Names {
		if v, ok := lookup(name); ok {
			s.Set(name, v)
		}
	}
	if _, ok := s.Get(TelegramAuthToken); !ok {
		if bot, ok := s.Get(TelegramBotToken); ok {
			s.Set(TelegramAuthToken, bot)
		}
	}
	return s
}

// Set stores value under name. An empty value removes the secret.
func (s *Store) Set(name, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if value == "" {
		delete(s.enclaves, name)
		return
	}
	s.enclaves[name] = memguard.NewEnclave([]byte(value))
}

// Get returns the secret called name. A missing or empty secret is
// reported as absent.
func (s *Store) Get(name string) (string, bool) {
	s.mu.RLock()
	enclave, ok := s.enclaves[name]
	s.mu.RUnlock()
	if !ok || enclave == nil {
		return "", false
	}
	buf, err := enclave.Open()
	if err != nil {
		return "", false
	}
	defer buf.Destroy()
	return string(buf.Bytes()), true
}
