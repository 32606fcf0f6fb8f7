package config

import "time"

type SuggestionConfig struct {
	APIKey   string        `yaml:"api_key"`
	Model    string        `yaml:"model"`
	Endpoint string        `yaml:"endpoint"`
	Timeout  time.Duration `yaml:"timeout"`
}

func loadSuggestionConfig() *SuggestionConfig {
	return &SuggestionConfig{
		APIKey:   getEnv("GEMINI_API_KEY", ""),
		Model:    getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		Endpoint: getEnv("GEMINI_ENDPOINT", "https://generativelanguage.googleapis.com/v1beta"),
		Timeout:  getEnvAsDuration("SUGGESTION_TIMEOUT", 20*time.Second),
	}
}
