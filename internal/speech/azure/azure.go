// Package azure implements the live speech synthesis provider backed
// by the Azure text-to-speech service. Audio is received as binary
// websocket frames; word-boundary timing arrives as a side channel of
// JSON events during the same session.
package azure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/wangjess/oppia/internal/secrets"
	"github.com/wangjess/oppia/internal/speech"
)

// SecretName is the cloud secret holding the Azure TTS API key.
const SecretName = "AZURE_TTS_API_KEY"

// Session event names emitted by the synthesis service.
const (
	eventWordBoundary = "synthesis.wordboundary"
	eventCompleted    = "synthesis.completed"
	eventFailed       = "synthesis.failed"
)

// The service reports audio offsets in 100-nanosecond ticks.
const ticksPerMillisecond = 10000

// Provider synthesizes speech through the Azure websocket endpoint.
type Provider struct {
	secrets secrets.Provider
	region  string
	dialer  *websocket.Dialer

	// endpoint overrides the regional endpoint URL; used in tests.
	endpoint string
}

// New creates a live Azure provider for the given resource region.
func New(secretProvider secrets.Provider, region string) *Provider {
	return &Provider{
		secrets: secretProvider,
		region:  region,
		dialer:  &websocket.Dialer{HandshakeTimeout: 5 * time.Second},
	}
}

// NewWithEndpoint creates a provider that dials a fixed endpoint
// instead of the regional one.
func NewWithEndpoint(secretProvider secrets.Provider, endpoint string) *Provider {
	p := New(secretProvider, "")
	p.endpoint = endpoint
	return p
}

// ID returns the provider identifier.
func (p *Provider) ID() string {
	return speech.ProviderAzure
}

// Synthesize converts normalized text into MP3 audio with word-level
// timing. It fails fast, before any network call, when the credential
// is absent or the accent code has no voice mapping.
func (p *Provider) Synthesize(ctx context.Context, text, accentCode string) ([]byte, []speech.TimingToken, error) {
	apiKey, ok := p.secrets.GetSecret(SecretName)
	if !ok {
		return nil, nil, speech.ErrCredentialMissing
	}

	voiceCode, ok := voiceCodeForAccent(accentCode)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", speech.ErrUnsupportedAccent, accentCode)
	}

	ssml := convertPlaintextToSSML(text, accentCode, voiceCode)

	header := http.Header{}
	header.Set("Ocp-Apim-Subscription-Key", apiKey)

	conn, _, err := p.dialer.DialContext(ctx, p.endpointURL(), header)
	if err != nil {
		return nil, nil, p.classify(ctx, fmt.Errorf("%w: dial: %v", speech.ErrSynthesisFailed, err))
	}
	defer conn.Close()

	taskID := uuid.NewString()
	if err := p.sendSpeakRequest(conn, taskID, ssml); err != nil {
		return nil, nil, p.classify(ctx, fmt.Errorf("%w: %v", speech.ErrSynthesisFailed, err))
	}

	log.Debug("synthesis session started",
		"task", taskID,
		"accent", accentCode,
		"voice", voiceCode,
		"textLength", len(text))

	resultCh := make(chan sessionResult, 1)
	go func() {
		resultCh <- readSession(conn)
	}()

	select {
	case res := <-resultCh:
		if res.err != nil {
			return nil, nil, res.err
		}
		log.Info("synthesis completed",
			"task", taskID,
			"audioBytes", len(res.audio),
			"timings", len(res.timings))
		return res.audio, res.timings, nil
	case <-ctx.Done():
		// Unblock the read loop before abandoning the session.
		conn.Close()
		return nil, nil, p.classify(ctx, fmt.Errorf("%w: %v", speech.ErrSynthesisFailed, ctx.Err()))
	}
}

func (p *Provider) endpointURL() string {
	if p.endpoint != "" {
		return p.endpoint
	}
	return fmt.Sprintf("wss://%s.tts.speech.microsoft.com/cognitiveservices/websocket/v1", p.region)
}

// classify maps a context deadline to the timeout error; everything
// else surfaces unchanged.
func (p *Provider) classify(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return speech.ErrSynthesisTimeout
	}
	return err
}

type speakRequest struct {
	Header  requestHeader `json:"header"`
	Payload speakPayload  `json:"payload"`
}

type requestHeader struct {
	Action string `json:"action"`
	TaskID string `json:"task_id"`
}

type speakPayload struct {
	SSML         string `json:"ssml"`
	OutputFormat string `json:"output_format"`
}

func (p *Provider) sendSpeakRequest(conn *websocket.Conn, taskID, ssml string) error {
	req := speakRequest{
		Header: requestHeader{Action: "speak", TaskID: taskID},
		Payload: speakPayload{
			SSML:         ssml,
			OutputFormat: "audio-24khz-160kbitrate-mono-mp3",
		},
	}
	data, err := json.Marshal(req)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

type sessionEvent struct {
	Header struct {
		Event string `json:"event"`
	} `json:"header"`
	Payload struct {
		Text             string  `json:"text"`
		AudioOffsetTicks float64 `json:"audio_offset_ticks"`
		Error            string  `json:"error"`
	} `json:"payload"`
}

type sessionResult struct {
	audio   []byte
	timings []speech.TimingToken
	err     error
}

// readSession drains one synthesis session: binary frames accumulate
// audio, word-boundary events accumulate timing, and a completed or
// failed event ends the session. The timing accumulator is owned by
// this single call and never shared.
func readSession(conn *websocket.Conn) sessionResult {
	var audio []byte
	boundaries := newWordBoundaryCollection()

	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			return sessionResult{err: fmt.Errorf("%w: connection closed: %v", speech.ErrSynthesisFailed, err)}
		}

		switch messageType {
		case websocket.BinaryMessage:
			audio = append(audio, payload...)
		case websocket.TextMessage:
			var event sessionEvent
			if err := json.Unmarshal(payload, &event); err != nil {
				return sessionResult{err: fmt.Errorf("%w: malformed event: %v", speech.ErrSynthesisFailed, err)}
			}
			switch event.Header.Event {
			case eventWordBoundary:
				boundaries.record(event.Payload.Text, event.Payload.AudioOffsetTicks)
			case eventCompleted:
				return sessionResult{audio: audio, timings: boundaries.tokens}
			case eventFailed:
				// Carry the provider's error text verbatim.
				return sessionResult{err: fmt.Errorf("%w: %s", speech.ErrSynthesisFailed, event.Payload.Error)}
			}
		}
	}
}

// wordBoundaryCollection accumulates per-token time offsets in
// utterance order, converting the service's native ticks to
// milliseconds.
type wordBoundaryCollection struct {
	tokens []speech.TimingToken
}

func newWordBoundaryCollection() *wordBoundaryCollection {
	return &wordBoundaryCollection{}
}

func (w *wordBoundaryCollection) record(token string, offsetTicks float64) {
	w.tokens = append(w.tokens, speech.TimingToken{
		Token:       token,
		OffsetMsecs: offsetTicks / ticksPerMillisecond,
	})
}
