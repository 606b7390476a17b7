package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

const BotTokenEnv = "BOT_TOKEN"

var (
	botToken string
	tokenMu  sync.RWMutex
)

// LoadEnvFile loads variables from path into the environment without
// overriding ones already set. A missing file is ignored.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Printf("No env file at %s, using process environment.", path)
			return nil
		}
		return fmt.Errorf("failed to load env file '%s': %w", path, err)
	}
	return nil
}

// LoadBotTokenFromEnv reads BOT_TOKEN and stores it for later retrieval.
func LoadBotTokenFromEnv() error {
	raw := strings.TrimSpace(os.Getenv(BotTokenEnv))
	if raw == "" {
		return fmt.Errorf("%s environment variable not set", BotTokenEnv)
	}
	tokenMu.Lock()
	botToken = raw
	tokenMu.Unlock()
	return nil
}

// GetBotToken returns the loaded bot token ("" if unset).
func GetBotToken() string {
	tokenMu.RLock()
	defer tokenMu.RUnlock()
	return botToken
}
