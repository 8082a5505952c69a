//go:build portaudio
// +build portaudio

package speech

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"
	"go.uber.org/zap"

	"newsbot/internal/logger"
)

const framesPerBuffer = 1024

// MicrophoneSource reads from the default input device through portaudio.
type MicrophoneSource struct {
	sampleRate int
	log        *zap.Logger

	mu     sync.Mutex
	stream *portaudio.Stream
	buffer []int16
}

func NewMicrophoneSource(sampleRate int) *MicrophoneSource {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	return &MicrophoneSource{sampleRate: sampleRate, log: logger.Named("microphone")}
}

func (m *MicrophoneSource) SampleRate() int {
	return m.sampleRate
}

func (m *MicrophoneSource) Open(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stream != nil {
		return errors.New("microphone already open")
	}
	if err := portaudio.Initialize(); err != nil {
		return fmt.Errorf("initializing portaudio: %w", err)
	}

	m.buffer = make([]int16, framesPerBuffer)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(m.sampleRate), framesPerBuffer, m.buffer)
	if err != nil {
		portaudio.Terminate()
		return fmt.Errorf("opening stream: %w: %v", ErrNoDevice, err)
	}
	if err := stream.Start(); err != nil {
		stream.Close()
		portaudio.Terminate()
		return fmt.Errorf("starting stream: %w", err)
	}
	m.stream = stream
	m.log.Info("microphone started", zap.Int("sample_rate", m.sampleRate))
	return nil
}

func (m *MicrophoneSource) Read() ([]int16, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stream == nil {
		return nil, errors.New("microphone not open")
	}
	if err := m.stream.Read(); err != nil && !errors.Is(err, portaudio.InputOverflowed) {
		return nil, fmt.Errorf("reading from stream: %w", err)
	}
	out := make([]int16, len(m.buffer))
	copy(out, m.buffer)
	return out, nil
}

func (m *MicrophoneSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stream == nil {
		return nil
	}
	m.stream.Stop()
	err := m.stream.Close()
	m.stream = nil
	portaudio.Terminate()
	m.log.Info("microphone released")
	return err
}
