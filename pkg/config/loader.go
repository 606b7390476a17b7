package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

var (
	loadedConfig *BotConfig

	configMutex sync.RWMutex
)

// LoadConfig reads the YAML file at filePath, applies defaults and
// validates the result. A missing file is not an error: defaults are used.
func LoadConfig(filePath string) error {
	log.Printf("Loading configuration from %s...", filePath)

	cfg := &BotConfig{}
	yamlFile, err := os.ReadFile(filePath)
	switch {
	case errors.Is(err, os.ErrNotExist):
		log.Printf("Configuration file %s not found, using defaults.", filePath)
	case err != nil:
		return fmt.Errorf("failed to read config file '%s': %w", filePath, err)
	default:
		if err := yaml.Unmarshal(yamlFile, cfg); err != nil {
			return fmt.Errorf("failed to unmarshal YAML from '%s': %w", filePath, err)
		}
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	configMutex.Lock()
	loadedConfig = cfg
	configMutex.Unlock()

	log.Printf("Configuration loaded and validated successfully. Machines file: %s", cfg.Storage.MachinesCSV)
	return nil
}

func GetConfig() *BotConfig {
	configMutex.RLock()
	defer configMutex.RUnlock()

	if loadedConfig == nil {
		log.Println("Warning: GetConfig() called before configuration was loaded.")
	}
	return loadedConfig
}
