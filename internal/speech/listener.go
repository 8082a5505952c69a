package speech

import (
	"context"
	"fmt"
	"math"
	"time"
)

const (
	DefaultSampleRate  = 16000
	DefaultCalibration = time.Second
)

// Listener detects a spoken phrase by comparing buffer energy with a
// threshold that adapts to the ambient noise level.
type Listener struct {
	EnergyThreshold float64
	DynamicEnergy   bool
	// DampingBase is raised to the buffer duration in seconds.
	DampingBase float64
	EnergyRatio float64

	// PauseThreshold is the silence that ends a phrase.
	PauseThreshold time.Duration
	// NonSpeakingDuration is the silence kept on both sides of a phrase.
	NonSpeakingDuration time.Duration
	PhraseLimit         time.Duration
	// Timeout bounds the wait for a phrase to start. Zero waits forever.
	Timeout time.Duration
}

func NewListener() *Listener {
	return &Listener{
		EnergyThreshold:     300,
		DynamicEnergy:       true,
		DampingBase:         0.15,
		EnergyRatio:         1.5,
		PauseThreshold:      800 * time.Millisecond,
		NonSpeakingDuration: 500 * time.Millisecond,
		PhraseLimit:         15 * time.Second,
		Timeout:             10 * time.Second,
	}
}

// AdjustForAmbientNoise reads from src for duration and moves the energy
// threshold towards the observed noise level.
func (l *Listener) AdjustForAmbientNoise(ctx context.Context, src Source, duration time.Duration) error {
	if duration <= 0 {
		duration = DefaultCalibration
	}
	var elapsed time.Duration
	for elapsed < duration {
		if err := ctx.Err(); err != nil {
			return err
		}
		buf, err := src.Read()
		if err != nil {
			return fmt.Errorf("calibrate: %w", err)
		}
		if len(buf) == 0 {
			continue
		}
		step := bufferDuration(len(buf), src.SampleRate())
		elapsed += step
		l.adapt(rms(buf), step)
	}
	return nil
}

// Listen blocks until a phrase starts, records it until a pause or the
// phrase limit, and returns the recorded samples.
func (l *Listener) Listen(ctx context.Context, src Source) ([]int16, error) {
	rate := src.SampleRate()

	var (
		elapsed time.Duration
		lead    [][]int16
		leadDur time.Duration
		first   []int16
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		buf, err := src.Read()
		if err != nil {
			return nil, fmt.Errorf("listen: %w", err)
		}
		if len(buf) == 0 {
			continue
		}
		step := bufferDuration(len(buf), rate)
		elapsed += step
		if l.Timeout > 0 && elapsed > l.Timeout {
			return nil, ErrWaitTimeout
		}

		energy := rms(buf)
		if energy > l.EnergyThreshold {
			first = buf
			break
		}
		if l.DynamicEnergy {
			l.adapt(energy, step)
		}
		lead = append(lead, buf)
		leadDur += step
		for len(lead) > 1 && leadDur-bufferDuration(len(lead[0]), rate) >= l.NonSpeakingDuration {
			leadDur -= bufferDuration(len(lead[0]), rate)
			lead = lead[1:]
		}
	}

	frames := append(lead, first)
	phrase := bufferDuration(len(first), rate)
	var pause time.Duration
	var silent int
	for {
		if l.PhraseLimit > 0 && phrase > l.PhraseLimit {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		buf, err := src.Read()
		if err != nil {
			return nil, fmt.Errorf("listen: %w", err)
		}
		if len(buf) == 0 {
			continue
		}
		step := bufferDuration(len(buf), rate)
		phrase += step
		frames = append(frames, buf)
		if rms(buf) > l.EnergyThreshold {
			pause = 0
			silent = 0
			continue
		}
		pause += step
		silent++
		if pause > l.PauseThreshold {
			break
		}
	}

	// keep only NonSpeakingDuration of the trailing silence
	if silent > 0 {
		keep := silent
		var kept time.Duration
		for i := len(frames) - 1; i >= len(frames)-silent; i-- {
			kept += bufferDuration(len(frames[i]), rate)
			if kept > l.NonSpeakingDuration {
				keep = len(frames) - 1 - i
				break
			}
		}
		frames = frames[:len(frames)-silent+keep]
	}

	var total int
	for _, f := range frames {
		total += len(f)
	}
	samples := make([]int16, 0, total)
	for _, f := range frames {
		samples = append(samples, f...)
	}
	return samples, nil
}

func (l *Listener) adapt(energy float64, step time.Duration) {
	damping := math.Pow(l.DampingBase, step.Seconds())
	target := energy * l.EnergyRatio
	l.EnergyThreshold = l.EnergyThreshold*damping + target*(1-damping)
}

func bufferDuration(n, rate int) time.Duration {
	if rate <= 0 {
		rate = DefaultSampleRate
	}
	return time.Duration(n) * time.Second / time.Duration(rate)
}

// rms calculates the root-mean-square of the buffer.
func rms(buffer []int16) float64 {
	if len(buffer) == 0 {
		return 0
	}
	var sumSquares float64
	for _, sample := range buffer {
		val := float64(sample)
		sumSquares += val * val
	}
	return math.Sqrt(sumSquares / float64(len(buffer)))
}
