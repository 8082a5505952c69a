package speech

import (
	"errors"
	"fmt"
	"io"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"
	"github.com/orcaman/writerseeker"
)

const (
	flacBlockSize    = 4096
	flacMinBlockSize = 16
	bitsPerSample    = 16
)

var errNoSamples = errors.New("no audio samples to encode")

// EncodeFLAC encodes mono 16-bit PCM as a FLAC stream with verbatim subframes.
func EncodeFLAC(samples []int16, sampleRate int) ([]byte, error) {
	if len(samples) == 0 {
		return nil, errNoSamples
	}
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	// FLAC forbids blocks shorter than flacMinBlockSize; pad the tail with silence.
	if tail := len(samples) % flacBlockSize; tail != 0 && tail < flacMinBlockSize {
		padded := make([]int16, len(samples)+flacMinBlockSize-tail)
		copy(padded, samples)
		samples = padded
	}

	info := &meta.StreamInfo{
		BlockSizeMin:  flacMinBlockSize,
		BlockSizeMax:  flacBlockSize,
		SampleRate:    uint32(sampleRate),
		NChannels:     1,
		BitsPerSample: bitsPerSample,
		NSamples:      uint64(len(samples)),
	}

	// Emulate a file in RAM so the encoder can rewrite the stream info on close.
	out := &writerseeker.WriterSeeker{}
	enc, err := flac.NewEncoder(out, info)
	if err != nil {
		return nil, fmt.Errorf("creating FLAC encoder: %w", err)
	}

	for num, start := 0, 0; start < len(samples); num, start = num+1, start+flacBlockSize {
		end := min(start+flacBlockSize, len(samples))
		block := make([]int32, end-start)
		for i, s := range samples[start:end] {
			block[i] = int32(s)
		}
		f := &frame.Frame{
			Header: frame.Header{
				HasFixedBlockSize: true,
				BlockSize:         uint16(len(block)),
				SampleRate:        uint32(sampleRate),
				Channels:          frame.ChannelsMono,
				BitsPerSample:     bitsPerSample,
				Num:               uint64(num),
			},
			Subframes: []*frame.Subframe{{
				SubHeader: frame.SubHeader{Pred: frame.PredVerbatim},
				Samples:   block,
				NSamples:  len(block),
			}},
		}
		if err := enc.WriteFrame(f); err != nil {
			enc.Close()
			return nil, fmt.Errorf("writing FLAC frame: %w", err)
		}
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("closing FLAC encoder: %w", err)
	}
	return io.ReadAll(out.Reader())
}
