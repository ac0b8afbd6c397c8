package transcriber

import "errors"

// ErrModelNotLoaded reports that the transcription engine's model is not
// available: the whisper-cli binary or its model file is missing. The
// pipeline surfaces it as a session error rather than retrying.
var ErrModelNotLoaded = errors.New("transcription model not loaded")

// ErrTranscriptionFailed wraps engine failures during a transcription call.
var ErrTranscriptionFailed = errors.New("transcription failed")
