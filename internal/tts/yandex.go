package tts

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"

	ttsv3 "github.com/yandex-cloud/go-genproto/yandex/cloud/ai/tts/v3"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/metadata"
)

// YandexEndpoint is the SpeechKit v3 gRPC endpoint.
const YandexEndpoint = "tts.api.cloud.yandex.net:443"

const (
	defaultYandexVoice = "marina"
	defaultYandexModel = "general"
)

// ErrFolderIDEmpty indicates that the Yandex folder is not configured.
var ErrFolderIDEmpty = errors.New("yandex folder id cannot be empty")

// YandexSynthesizer synthesizes speech with Yandex SpeechKit.
type YandexSynthesizer struct {
	client   ttsv3.SynthesizerClient
	conn     *grpc.ClientConn
	apiKey   string
	folderID string
	voice    string
}

// NewYandexSynthesizer opens a TLS connection to endpoint. An empty endpoint
// selects YandexEndpoint.
func NewYandexSynthesizer(endpoint, apiKey, folderID, voice string) (*YandexSynthesizer, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyEmpty
	}

	if folderID == "" {
		return nil, ErrFolderIDEmpty
	}

	if endpoint == "" {
		endpoint = YandexEndpoint
	}

	conn, err := grpc.NewClient(endpoint, grpc.WithTransportCredentials(credentials.NewTLS(&tls.Config{
		MinVersion: tls.VersionTLS12,
	})))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to TTS service: %w", err)
	}

	return newYandexSynthesizer(ttsv3.NewSynthesizerClient(conn), conn, apiKey, folderID, voice), nil
}

func newYandexSynthesizer(
	client ttsv3.SynthesizerClient,
	conn *grpc.ClientConn,
	apiKey, folderID, voice string,
) *YandexSynthesizer {
	if voice == "" {
		voice = defaultYandexVoice
	}

	return &YandexSynthesizer{
		client:   client,
		conn:     conn,
		apiKey:   apiKey,
		folderID: folderID,
		voice:    voice,
	}
}

// Synthesize streams an utterance and returns the concatenated MP3 chunks.
func (s *YandexSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if text == "" {
		return nil, ErrTextEmpty
	}

	ctx = metadata.AppendToOutgoingContext(ctx,
		"authorization", "Api-Key "+s.apiKey,
		"x-folder-id", s.folderID,
	)

	stream, err := s.client.UtteranceSynthesis(ctx, s.buildRequest(text))
	if err != nil {
		return nil, fmt.Errorf("failed to start synthesis: %w", err)
	}

	var audio bytes.Buffer

	for {
		resp, recvErr := stream.Recv()
		if errors.Is(recvErr, io.EOF) {
			break
		}

		if recvErr != nil {
			return nil, fmt.Errorf("failed to receive audio data: %w", recvErr)
		}

		if chunk := resp.GetAudioChunk(); chunk != nil {
			audio.Write(chunk.GetData())
		}
	}

	if audio.Len() == 0 {
		return nil, ErrEmptyAudio
	}

	return audio.Bytes(), nil
}

func (s *YandexSynthesizer) buildRequest(text string) *ttsv3.UtteranceSynthesisRequest {
	req := &ttsv3.UtteranceSynthesisRequest{}
	req.SetModel(defaultYandexModel)
	req.SetText(text)

	voiceHint := &ttsv3.Hints{}
	voiceHint.SetVoice(s.voice)
	req.SetHints([]*ttsv3.Hints{voiceHint})

	container := &ttsv3.ContainerAudio{}
	container.SetContainerAudioType(ttsv3.ContainerAudio_MP3)

	audioSpec := &ttsv3.AudioFormatOptions{}
	audioSpec.SetContainerAudio(container)
	req.SetOutputAudioSpec(audioSpec)
	req.SetLoudnessNormalizationType(ttsv3.UtteranceSynthesisRequest_LUFS)

	return req
}

// Close releases the gRPC connection.
func (s *YandexSynthesizer) Close() error {
	if s.conn == nil {
		return nil
	}

	return s.conn.Close()
}
