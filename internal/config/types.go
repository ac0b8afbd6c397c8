package config

import "time"

type Config struct {
	General       GeneralConfig             `toml:"general"`
	Recording     RecordingConfig           `toml:"recording"`
	Transcription TranscriptionConfig       `toml:"transcription"`
	Injection     InjectionConfig           `toml:"injection"`
	Plugins       PluginsConfig             `toml:"plugins"`
	History       HistoryConfig             `toml:"history"`
	LLM           LLMConfig                 `toml:"llm"`
	Notifications NotificationsConfig       `toml:"notifications"`
	Providers     map[string]ProviderConfig `toml:"providers"`
}

// GeneralConfig holds global settings that apply across the application.
type GeneralConfig struct {
	// Mode is a free-form session label carried into plugin processing
	// ("dictation", "email", "code", ...).
	Mode string `toml:"mode"`
}

// RecordingConfig tunes capture. The PCM format itself is fixed at
// 16 kHz mono s16le end to end; only the source and session bounds vary.
type RecordingConfig struct {
	Device     string        `toml:"device"`
	BufferSecs int           `toml:"buffer_secs"` // ring capacity in seconds of audio
	Timeout    time.Duration `toml:"timeout"`     // cap on a single session
	// TrimSensitivity scales the silence threshold, 0.0 (lenient) to 1.0
	// (aggressive).
	TrimSensitivity float64 `toml:"trim_sensitivity"`
}

type TranscriptionConfig struct {
	Provider  string `toml:"provider"` // "openai" or "whisper-cli"
	Language  string `toml:"language"` // ISO-639-1, empty = auto-detect
	Model     string `toml:"model"`
	Threads   int    `toml:"threads"` // CPU threads for local transcription (0 = auto: NumCPU-1)
	Translate bool   `toml:"translate"`
}

type InjectionConfig struct {
	Method           string        `toml:"method"` // "auto", "keystrokes", "clipboard"
	KeystrokeDelay   time.Duration `toml:"keystroke_delay"`
	SettleDelay      time.Duration `toml:"settle_delay"`
	RestoreClipboard bool          `toml:"restore_clipboard"`
	TypingTimeout    time.Duration `toml:"typing_timeout"`
	ClipboardTimeout time.Duration `toml:"clipboard_timeout"`
}

type PluginsConfig struct {
	Dir   string `toml:"dir"`   // manifest directory, empty = default
	Watch bool   `toml:"watch"` // hot reload manifests on change
}

type HistoryConfig struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"` // database directory, empty = default
}

// LLMConfig configures the generation backend used by command plugins.
type LLMConfig struct {
	Enabled   bool   `toml:"enabled"`
	Provider  string `toml:"provider"`
	Model     string `toml:"model"`
	MaxTokens int    `toml:"max_tokens"`
}

type NotificationsConfig struct {
	Enabled bool `toml:"enabled"`
}

// ProviderConfig holds the API key for a provider.
type ProviderConfig struct {
	APIKey string `toml:"api_key"`
}
