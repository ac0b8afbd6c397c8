package config

import "time"

// DefaultConfig returns the configuration written on first run.
func DefaultConfig() *Config {
	return &Config{
		General: GeneralConfig{
			Mode: "dictation",
		},
		Recording: RecordingConfig{
			Device:          "",
			BufferSecs:      30,
			Timeout:         5 * time.Minute,
			TrimSensitivity: 0.3,
		},
		Transcription: TranscriptionConfig{
			Provider: "openai",
			Language: "",
			Model:    "",
			Threads:  0,
		},
		Injection: InjectionConfig{
			Method:           "auto",
			KeystrokeDelay:   2 * time.Millisecond,
			SettleDelay:      150 * time.Millisecond,
			RestoreClipboard: true,
			TypingTimeout:    10 * time.Second,
			ClipboardTimeout: 3 * time.Second,
		},
		Plugins: PluginsConfig{
			Dir:   "",
			Watch: true,
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    "",
		},
		LLM: LLMConfig{
			Enabled:   false,
			Provider:  "openai",
			Model:     "gpt-4o-mini",
			MaxTokens: 512,
		},
		Notifications: NotificationsConfig{
			Enabled: true,
		},
		Providers: make(map[string]ProviderConfig),
	}
}
