package config

func Defaults() *Config {
	return &Config{
		General: GeneralConfig{
			BaseURL:      "http://localhost:5700",
			DefaultAgent: "pdf-to-markdown",
			AgentsDir:    "~/.courier/agents.d",
			LogLevel:     "info",
		},
		Stream: StreamConfig{
			Transport:      "sse",
			SubmitTimeout:  120,
			MaxAttachBytes: 50 * 1024 * 1024,
		},
		History: HistoryConfig{
			Enabled: true,
			DBPath:  "~/.courier/history.db",
		},
		Telegram: TelegramConfig{
			Enabled: false,
		},
	}
}
