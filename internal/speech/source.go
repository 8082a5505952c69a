package speech

import (
	"context"
	"errors"
)

var (
	ErrNoDevice           = errors.New("audio input device not available")
	ErrWaitTimeout        = errors.New("listening timed out while waiting for phrase to start")
	ErrUnintelligible     = errors.New("speech could not be understood")
	ErrServiceUnavailable = errors.New("speech recognition service unavailable")
)

const (
	unintelligibleMessage = "⚠️ Could not understand the audio."
	unavailableMessage    = "❌ Speech Recognition service unavailable."
)

// Source is an audio input that must be opened before reading and closed
// afterwards. Read returns one buffer of mono 16-bit samples.
type Source interface {
	Open(ctx context.Context) error
	Read() ([]int16, error)
	SampleRate() int
	Close() error
}

// MessageFor maps a capture error to the text returned to the user.
func MessageFor(err error) string {
	if errors.Is(err, ErrUnintelligible) {
		return unintelligibleMessage
	}
	return unavailableMessage
}
