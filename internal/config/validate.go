package config

import "fmt"

var isoLanguageCodes = map[string]bool{
	"en": true, "es": true, "fr": true, "de": true, "it": true, "pt": true,
	"nl": true, "pl": true, "ru": true, "uk": true, "tr": true, "ar": true,
	"he": true, "hi": true, "ja": true, "ko": true, "zh": true, "sv": true,
	"no": true, "da": true, "fi": true, "cs": true, "el": true, "hu": true,
	"ro": true, "id": true, "th": true, "vi": true, "ca": true, "ms": true,
}

func isValidLanguageCode(code string) bool {
	return isoLanguageCodes[code]
}

func (c *Config) Validate() error {
	if c.General.Mode == "" {
		return fmt.Errorf("invalid general.mode: empty")
	}

	if c.Recording.BufferSecs <= 0 {
		return fmt.Errorf("invalid recording.buffer_secs: %d", c.Recording.BufferSecs)
	}
	if c.Recording.Timeout <= 0 {
		return fmt.Errorf("invalid recording.timeout: %v", c.Recording.Timeout)
	}
	if c.Recording.TrimSensitivity < 0 || c.Recording.TrimSensitivity > 1 {
		return fmt.Errorf("invalid recording.trim_sensitivity: %v (must be between 0.0 and 1.0)", c.Recording.TrimSensitivity)
	}

	switch c.Transcription.Provider {
	case "openai":
		if c.APIKeyFor("openai") == "" {
			return fmt.Errorf("OpenAI API key required: not found in config (providers.openai.api_key) or environment variable (OPENAI_API_KEY)")
		}
	case "whisper-cli":
		if c.Transcription.Model == "" {
			return fmt.Errorf("invalid transcription.model: whisper-cli needs a model file path")
		}
	case "":
		return fmt.Errorf("invalid transcription.provider: empty")
	default:
		return fmt.Errorf("invalid transcription.provider: %s (must be openai or whisper-cli)", c.Transcription.Provider)
	}

	if c.Transcription.Language != "" && !isValidLanguageCode(c.Transcription.Language) {
		return fmt.Errorf("invalid transcription.language: %s (use empty string for auto-detect or ISO-639-1 codes like 'en', 'es', 'fr')", c.Transcription.Language)
	}

	switch c.Injection.Method {
	case "auto", "keystrokes", "clipboard":
	default:
		return fmt.Errorf("invalid injection.method: %s (must be auto, keystrokes or clipboard)", c.Injection.Method)
	}
	if c.Injection.KeystrokeDelay < 0 {
		return fmt.Errorf("invalid injection.keystroke_delay: %v", c.Injection.KeystrokeDelay)
	}
	if c.Injection.TypingTimeout <= 0 {
		return fmt.Errorf("invalid injection.typing_timeout: %v", c.Injection.TypingTimeout)
	}
	if c.Injection.ClipboardTimeout <= 0 {
		return fmt.Errorf("invalid injection.clipboard_timeout: %v", c.Injection.ClipboardTimeout)
	}

	if c.LLM.Enabled {
		if c.LLM.Provider != "openai" {
			return fmt.Errorf("invalid llm.provider: %s (must be openai)", c.LLM.Provider)
		}
		if c.APIKeyFor(c.LLM.Provider) == "" {
			return fmt.Errorf("LLM API key required: not found in config (providers.%s.api_key) or environment", c.LLM.Provider)
		}
		if c.LLM.MaxTokens <= 0 {
			return fmt.Errorf("invalid llm.max_tokens: %d", c.LLM.MaxTokens)
		}
	}

	return nil
}
