//go:build !portaudio
// +build !portaudio

package speech

import (
	"context"
	"fmt"
)

// MicrophoneSource stub when portaudio is not available
type MicrophoneSource struct {
	sampleRate int
}

func NewMicrophoneSource(sampleRate int) *MicrophoneSource {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &MicrophoneSource{sampleRate: sampleRate}
}

func (m *MicrophoneSource) SampleRate() int {
	return m.sampleRate
}

func (m *MicrophoneSource) Open(_ context.Context) error {
	return fmt.Errorf("%w: rebuild with -tags portaudio", ErrNoDevice)
}

func (m *MicrophoneSource) Read() ([]int16, error) {
	return nil, ErrNoDevice
}

func (m *MicrophoneSource) Close() error {
	return nil
}
