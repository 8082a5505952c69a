package speech

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"newsbot/internal/logger"
)

// Service captures one utterance from a Source and transcribes it.
type Service struct {
	source        Source
	listener      func() *Listener
	recognizer    Recognizer
	recordingsDir string
	now           func() time.Time
	log           *zap.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithRecordingsDir keeps a WAV copy of every captured phrase in dir.
func WithRecordingsDir(dir string) Option {
	return func(s *Service) {
		s.recordingsDir = dir
	}
}

func NewService(source Source, recognizer Recognizer, opts ...Option) *Service {
	s := &Service{
		source:     source,
		listener:   NewListener,
		recognizer: recognizer,
		now:        time.Now,
		log:        logger.Named("speech"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Capture opens the source, calibrates for ambient noise, records one
// phrase and returns its transcript. The source is closed on every path.
func (s *Service) Capture(ctx context.Context) (string, error) {
	if err := s.source.Open(ctx); err != nil {
		s.log.Warn("open audio source failed", zap.Error(err))
		return "", fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer func() {
		if err := s.source.Close(); err != nil {
			s.log.Warn("close audio source failed", zap.Error(err))
		}
	}()

	listener := s.listener()
	s.log.Info("listening")
	if err := listener.AdjustForAmbientNoise(ctx, s.source, DefaultCalibration); err != nil {
		return "", s.deviceError(ctx, err)
	}
	samples, err := listener.Listen(ctx, s.source)
	if err != nil {
		if errors.Is(err, ErrWaitTimeout) {
			return "", fmt.Errorf("%w: %v", ErrUnintelligible, err)
		}
		return "", s.deviceError(ctx, err)
	}

	rate := s.source.SampleRate()
	if s.recordingsDir != "" {
		if path, err := saveRecording(s.recordingsDir, samples, rate, s.now()); err != nil {
			s.log.Warn("save recording failed", zap.Error(err))
		} else {
			s.log.Debug("recording saved", zap.String("path", path))
		}
	}
	data, err := EncodeFLAC(samples, rate)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnintelligible, err)
	}
	text, err := s.recognizer.Recognize(ctx, data, rate)
	if err != nil {
		s.log.Warn("recognition failed", zap.Error(err))
		return "", err
	}
	s.log.Info("recognized", zap.String("text", text))
	return text, nil
}

func (s *Service) deviceError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	s.log.Warn("audio read failed", zap.Error(err))
	return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
}
