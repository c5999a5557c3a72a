package stt

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/hkguide/server/domain"
	"github.com/hkguide/server/domain/repositories"
)

const (
	defaultEncoding   = "LINEAR16"
	defaultSampleRate = 16000
	defaultLocale     = "en-US"
	eventBufferSize   = 16
)

// GoogleCaptureConfig holds configuration for the Google streaming recognizer
type GoogleCaptureConfig struct {
	Encoding        string
	SampleRate      int
	Locale          string
	CredentialsFile string
}

// ValidateGoogleCaptureConfig validates the GoogleCaptureConfig
func ValidateGoogleCaptureConfig(config GoogleCaptureConfig) error {
	if config.Encoding != "" {
		if _, err := getAudioEncoding(config.Encoding); err != nil {
			return err
		}
	}
	if config.SampleRate != 0 && (config.SampleRate < 8000 || config.SampleRate > 48000) {
		return fmt.Errorf("sample_rate must be between 8000 and 48000, got %d", config.SampleRate)
	}
	return nil
}

// NewGoogleCaptureConfigFromEnv creates a configuration from environment variables
func NewGoogleCaptureConfigFromEnv() GoogleCaptureConfig {
	config := GoogleCaptureConfig{
		Encoding:        os.Getenv("SPEECH_ENCODING"),
		Locale:          os.Getenv("SPEECH_LOCALE"),
		CredentialsFile: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
	}
	if v := os.Getenv("SPEECH_SAMPLE_RATE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.SampleRate = n
		}
	}
	return config
}

// recognizeStream is the part of the gRPC stream the capture uses.
type recognizeStream interface {
	Send(*speechpb.StreamingRecognizeRequest) error
	Recv() (*speechpb.StreamingRecognizeResponse, error)
	CloseSend() error
}

type streamOpener func(ctx context.Context) (recognizeStream, io.Closer, error)

// GoogleCapture implements SpeechCapture on Google Cloud streaming recognition.
type GoogleCapture struct {
	logger     *zap.Logger
	encoding   speechpb.RecognitionConfig_AudioEncoding
	sampleRate int32
	locale     string
	open       streamOpener

	mu     sync.Mutex
	stream recognizeStream
	active bool
}

var _ repositories.SpeechCapture = (*GoogleCapture)(nil)

// NewGoogleCapture creates a capture adapter. The speech client is created per
// recording so an idle session holds no connection.
func NewGoogleCapture(config GoogleCaptureConfig, logger *zap.Logger) (*GoogleCapture, error) {
	if err := ValidateGoogleCaptureConfig(config); err != nil {
		return nil, err
	}

	enc := config.Encoding
	if enc == "" {
		enc = defaultEncoding
		logger.Info("Using default encoding", zap.String("encoding", enc))
	}
	encoding, _ := getAudioEncoding(enc)

	sampleRate := config.SampleRate
	if sampleRate == 0 {
		sampleRate = defaultSampleRate
		logger.Info("Using default sample rate", zap.Int("sampleRate", sampleRate))
	}

	locale := config.Locale
	if locale == "" {
		locale = defaultLocale
	}

	var opts []option.ClientOption
	if config.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(config.CredentialsFile))
	}

	open := func(ctx context.Context) (recognizeStream, io.Closer, error) {
		client, err := speech.NewClient(ctx, opts...)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create speech client: %w", err)
		}
		stream, err := client.StreamingRecognize(ctx)
		if err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to create streaming recognize: %w", err)
		}
		return stream, client, nil
	}

	return newGoogleCapture(logger, encoding, int32(sampleRate), locale, open), nil
}

func newGoogleCapture(logger *zap.Logger, encoding speechpb.RecognitionConfig_AudioEncoding, sampleRate int32, locale string, open streamOpener) *GoogleCapture {
	return &GoogleCapture{
		logger:     logger,
		encoding:   encoding,
		sampleRate: sampleRate,
		locale:     locale,
		open:       open,
	}
}

// Start opens a recognition stream with interim results enabled.
func (g *GoogleCapture) Start(ctx context.Context, locale string) (<-chan repositories.CaptureEvent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.active {
		return nil, domain.ErrAlreadyRecording
	}
	if locale == "" {
		locale = g.locale
	}

	streamCtx, cancel := context.WithCancel(ctx)
	stream, closer, err := g.open(streamCtx)
	if err != nil {
		cancel()
		g.logger.Error("Speech engine unavailable", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrCaptureUnavailable, err)
	}

	if err := stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_StreamingConfig{
			StreamingConfig: &speechpb.StreamingRecognitionConfig{
				Config: &speechpb.RecognitionConfig{
					Encoding:                   g.encoding,
					SampleRateHertz:            g.sampleRate,
					LanguageCode:               locale,
					EnableAutomaticPunctuation: true,
				},
				InterimResults:  true,
				SingleUtterance: false,
			},
		},
	}); err != nil {
		_ = stream.CloseSend()
		closeQuietly(closer)
		cancel()
		return nil, fmt.Errorf("%w: failed to send streaming config: %v", domain.ErrCaptureUnavailable, err)
	}

	events := make(chan repositories.CaptureEvent, eventBufferSize)
	g.stream = stream
	g.active = true

	g.logger.Info("Speech capture started", zap.String("locale", locale))

	go g.receive(streamCtx, cancel, stream, closer, events)

	return events, nil
}

// receive turns recognizer responses into capture events. Final results are
// accumulated; the terminal Final is emitted once the stream ends.
func (g *GoogleCapture) receive(ctx context.Context, cancel context.CancelFunc, stream recognizeStream, closer io.Closer, events chan<- repositories.CaptureEvent) {
	defer func() {
		close(events)
		closeQuietly(closer)
		cancel()

		g.mu.Lock()
		if g.stream == stream {
			g.stream = nil
			g.active = false
		}
		g.mu.Unlock()
	}()

	emit := func(ev repositories.CaptureEvent) bool {
		select {
		case events <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	var finals []string
	for {
		resp, err := stream.Recv()
		if err == io.EOF {
			text := strings.Join(finals, " ")
			if text == "" {
				emit(repositories.CaptureEvent{Kind: repositories.CaptureEnded})
				return
			}
			emit(repositories.CaptureEvent{Kind: repositories.CaptureFinal, Text: text})
			return
		}
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				g.logger.Debug("Speech stream cancelled")
				return
			}
			g.logger.Error("Failed to receive recognition response", zap.Error(err))
			emit(repositories.CaptureEvent{Kind: repositories.CaptureError, Reason: err.Error()})
			return
		}
		if resp.Error != nil && resp.Error.Code != 0 {
			emit(repositories.CaptureEvent{Kind: repositories.CaptureError, Reason: resp.Error.Message})
			return
		}

		var interim string
		for _, result := range resp.Results {
			if len(result.Alternatives) == 0 {
				continue
			}
			transcript := strings.TrimSpace(result.Alternatives[0].Transcript)
			if result.IsFinal {
				finals = append(finals, transcript)
			} else {
				interim += transcript
			}
		}

		text := strings.TrimSpace(strings.Join(append(append([]string{}, finals...), interim), " "))
		if text == "" {
			continue
		}
		if !emit(repositories.CaptureEvent{Kind: repositories.CapturePartial, Text: text}) {
			return
		}
	}
}

// Stop half-closes the stream. The recognizer then flushes its last results
// and the terminal event follows.
func (g *GoogleCapture) Stop() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.active || g.stream == nil {
		return nil
	}
	g.active = false
	if err := g.stream.CloseSend(); err != nil {
		return fmt.Errorf("failed to close send stream: %w", err)
	}
	g.logger.Info("Speech capture stopped")
	return nil
}

// Feed forwards device audio to the recognizer. Audio arriving while not
// recording is dropped.
func (g *GoogleCapture) Feed(chunk []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.active || g.stream == nil || len(chunk) == 0 {
		return nil
	}
	if err := g.stream.Send(&speechpb.StreamingRecognizeRequest{
		StreamingRequest: &speechpb.StreamingRecognizeRequest_AudioContent{
			AudioContent: chunk,
		},
	}); err != nil {
		return fmt.Errorf("failed to send audio data: %w", err)
	}
	return nil
}

// Recording reports whether a stream is open for audio.
func (g *GoogleCapture) Recording() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}

func closeQuietly(c io.Closer) {
	if c != nil {
		_ = c.Close()
	}
}

// getAudioEncoding converts string encoding to Google Speech API enum
func getAudioEncoding(encoding string) (speechpb.RecognitionConfig_AudioEncoding, error) {
	switch strings.ToUpper(encoding) {
	case "WAV", "LINEAR16", "PCM":
		return speechpb.RecognitionConfig_LINEAR16, nil
	case "FLAC":
		return speechpb.RecognitionConfig_FLAC, nil
	case "MULAW":
		return speechpb.RecognitionConfig_MULAW, nil
	case "AMR":
		return speechpb.RecognitionConfig_AMR, nil
	case "AMR_WB":
		return speechpb.RecognitionConfig_AMR_WB, nil
	case "OGG_OPUS":
		return speechpb.RecognitionConfig_OGG_OPUS, nil
	case "WEBM_OPUS":
		return speechpb.RecognitionConfig_WEBM_OPUS, nil
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED, fmt.Errorf("unsupported encoding: %s", encoding)
	}
}
