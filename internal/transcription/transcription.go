// Package transcription turns survey voice notes into text. Only PCM WAV
// uploads are accepted; the widget records in that format and anything else
// is rejected before it reaches the speech API.
package transcription

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"

	"github.com/medassist-ai/intake-platform/pkg/logging"
)

// ErrUnsupportedAudio is returned for anything that is not mono/stereo PCM WAV.
var ErrUnsupportedAudio = errors.New("transcription: unsupported audio format")

// Transcriber converts recorded audio to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, language string) (string, error)
}

// wavInfo is the subset of the RIFF header recognition needs.
type wavInfo struct {
	AudioFormat   uint16
	NumChannels   uint16
	SampleRate    uint32
	BitsPerSample uint16
}

// parseWAVHeader validates the RIFF/WAVE framing and extracts the format
// chunk.
func parseWAVHeader(data []byte) (*wavInfo, error) {
	if len(data) < 44 {
		return nil, fmt.Errorf("%w: truncated header", ErrUnsupportedAudio)
	}
	if !bytes.Equal(data[0:4], []byte("RIFF")) || !bytes.Equal(data[8:12], []byte("WAVE")) {
		return nil, fmt.Errorf("%w: not a WAV file", ErrUnsupportedAudio)
	}
	if !bytes.Equal(data[12:16], []byte("fmt ")) {
		return nil, fmt.Errorf("%w: missing fmt chunk", ErrUnsupportedAudio)
	}

	info := &wavInfo{
		AudioFormat:   binary.LittleEndian.Uint16(data[20:22]),
		NumChannels:   binary.LittleEndian.Uint16(data[22:24]),
		SampleRate:    binary.LittleEndian.Uint32(data[24:28]),
		BitsPerSample: binary.LittleEndian.Uint16(data[34:36]),
	}
	if info.AudioFormat != 1 {
		return nil, fmt.Errorf("%w: only PCM is supported", ErrUnsupportedAudio)
	}
	if info.NumChannels == 0 || info.NumChannels > 2 {
		return nil, fmt.Errorf("%w: %d channels", ErrUnsupportedAudio, info.NumChannels)
	}
	if info.SampleRate < 8000 || info.SampleRate > 48000 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrUnsupportedAudio, info.SampleRate)
	}
	return info, nil
}

// GoogleTranscriber calls Google Cloud Speech-to-Text.
type GoogleTranscriber struct {
	client          *speech.Client
	defaultLanguage string
	logger          *logging.Logger
}

// NewGoogleTranscriber builds a transcriber from service-account JSON
// credentials. Empty credentials disable transcription (returns nil).
func NewGoogleTranscriber(ctx context.Context, credentialsJSON, defaultLanguage string, logger *logging.Logger) (*GoogleTranscriber, error) {
	if credentialsJSON == "" {
		return nil, nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if defaultLanguage == "" {
		defaultLanguage = "en-US"
	}

	client, err := speech.NewClient(ctx, option.WithCredentialsJSON([]byte(credentialsJSON)))
	if err != nil {
		return nil, fmt.Errorf("transcription: create speech client: %w", err)
	}
	return &GoogleTranscriber{
		client:          client,
		defaultLanguage: defaultLanguage,
		logger:          logger.Component("transcription"),
	}, nil
}

// Close releases the underlying gRPC connection.
func (g *GoogleTranscriber) Close() error {
	if g == nil || g.client == nil {
		return nil
	}
	return g.client.Close()
}

// Transcribe runs synchronous recognition on a PCM WAV voice note and
// returns the joined transcript.
func (g *GoogleTranscriber) Transcribe(ctx context.Context, audio []byte, language string) (string, error) {
	info, err := parseWAVHeader(audio)
	if err != nil {
		return "", err
	}
	if language == "" {
		language = g.defaultLanguage
	}

	resp, err := g.client.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:          speechpb.RecognitionConfig_LINEAR16,
			SampleRateHertz:   int32(info.SampleRate),
			AudioChannelCount: int32(info.NumChannels),
			LanguageCode:      language,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		return "", fmt.Errorf("transcription: recognize: %w", err)
	}

	var parts []string
	for _, result := range resp.Results {
		if len(result.Alternatives) > 0 {
			parts = append(parts, result.Alternatives[0].Transcript)
		}
	}
	transcript := strings.TrimSpace(strings.Join(parts, " "))

	g.logger.Info("voice note transcribed",
		"language", language,
		"sample_rate", info.SampleRate,
		"transcript_chars", len(transcript),
	)
	return transcript, nil
}

var _ Transcriber = (*GoogleTranscriber)(nil)
