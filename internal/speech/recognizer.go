package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"newsbot/internal/logger"
)

const (
	GoogleSpeechEndpoint = "http://www.google.com/speech-api/v2/recognize"
	DefaultLanguage      = "en-US"

	recognizeTimeout = 15 * time.Second
)

// Recognizer turns a FLAC recording into text.
type Recognizer interface {
	Recognize(ctx context.Context, flacData []byte, sampleRate int) (string, error)
}

type alternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
}

type result struct {
	Alternative []alternative `json:"alternative"`
	Final       bool          `json:"final"`
}

type response struct {
	Result []result `json:"result"`
}

// GoogleRecognizer calls the Google speech-api v2 endpoint.
type GoogleRecognizer struct {
	Endpoint string
	Language string
	APIKey   string

	httpClient *http.Client
	log        *zap.Logger
}

func NewGoogleRecognizer(language, apiKey string) *GoogleRecognizer {
	if language == "" {
		language = DefaultLanguage
	}
	return &GoogleRecognizer{
		Endpoint:   GoogleSpeechEndpoint,
		Language:   language,
		APIKey:     apiKey,
		httpClient: &http.Client{Timeout: recognizeTimeout},
		log:        logger.Named("recognizer"),
	}
}

func (g *GoogleRecognizer) Recognize(ctx context.Context, flacData []byte, sampleRate int) (string, error) {
	req, err := g.buildRequest(ctx, flacData, sampleRate)
	if err != nil {
		return "", err
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrServiceUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		g.log.Warn("recognition request failed", zap.Int("status", resp.StatusCode))
		return "", fmt.Errorf("%w: status %s", ErrServiceUnavailable, resp.Status)
	}

	transcript, confidence, err := parseTranscript(string(body))
	if err != nil {
		return "", err
	}
	g.log.Debug("recognized", zap.String("transcript", transcript), zap.Float64("confidence", confidence))
	return transcript, nil
}

func (g *GoogleRecognizer) buildRequest(ctx context.Context, flacData []byte, sampleRate int) (*http.Request, error) {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	data := url.Values{}
	data.Set("client", "chromium")
	data.Set("lang", g.Language)
	if g.APIKey != "" {
		data.Set("key", g.APIKey)
	}
	data.Set("pFilter", "0")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.Endpoint+"?"+data.Encode(), bytes.NewReader(flacData))
	if err != nil {
		return nil, fmt.Errorf("build recognition request: %w", err)
	}
	req.Header.Set("Content-Type", fmt.Sprintf("audio/x-flac; rate=%d", sampleRate))
	return req, nil
}

// parseTranscript reads the newline-delimited JSON reply and returns the
// highest-confidence alternative of the first non-empty result.
func parseTranscript(body string) (string, float64, error) {
	for _, line := range strings.Split(body, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var r response
		if err := json.Unmarshal([]byte(line), &r); err != nil {
			return "", 0, fmt.Errorf("%w: decode response: %v", ErrServiceUnavailable, err)
		}
		if len(r.Result) == 0 {
			continue
		}
		best, ok := bestAlternative(r.Result[0].Alternative)
		if !ok {
			return "", 0, ErrUnintelligible
		}
		return best.Transcript, best.Confidence, nil
	}
	return "", 0, ErrUnintelligible
}

func bestAlternative(alternatives []alternative) (alternative, bool) {
	var best alternative
	highest := -1.0
	for _, alt := range alternatives {
		if alt.Confidence > highest {
			highest = alt.Confidence
			best = alt
		}
	}
	if strings.TrimSpace(best.Transcript) == "" {
		return alternative{}, false
	}
	return best, true
}
