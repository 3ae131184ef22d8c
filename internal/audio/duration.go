// Package audio measures synthesized narration audio.
package audio

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"github.com/hajimehoshi/go-mp3"
)

// The go-mp3 decoder always produces 16-bit little-endian stereo PCM.
const (
	DECODED_CHANNELS        = 2
	DECODED_BYTES_PER_VALUE = 2
	DECODED_FRAME_BYTES     = DECODED_CHANNELS * DECODED_BYTES_PER_VALUE
)

const (
	ERR_FMT_DECODE_MP3       = "failed to decode mp3 stream: %w"
	ERR_FMT_INVALID_RATE     = "%w: sample rate %d"
	ERR_FMT_UNKNOWN_LENGTH   = "%w: decoder reported length %d"
	ERR_FMT_EMPTY_AUDIO_DATA = "%w: %d bytes"
)

var (
	// ErrEmptyAudio indicates that there is no audio to measure.
	ErrEmptyAudio = errors.New("audio data is empty")
	// ErrInvalidStream indicates that the stream decoded to no usable samples.
	ErrInvalidStream = errors.New("invalid audio stream")
)

// MP3Meter measures MP3 playback length by decoding the stream.
type MP3Meter struct{}

// NewMP3Meter creates a meter for MP3 data.
func NewMP3Meter() *MP3Meter {
	return &MP3Meter{}
}

// Measure returns the playback length of an MP3 buffer in seconds.
func (m *MP3Meter) Measure(data []byte) (float64, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf(ERR_FMT_EMPTY_AUDIO_DATA, ErrEmptyAudio, len(data))
	}

	decoder, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf(ERR_FMT_DECODE_MP3, err)
	}

	sampleRate := decoder.SampleRate()
	if sampleRate <= 0 {
		return 0, fmt.Errorf(ERR_FMT_INVALID_RATE, ErrInvalidStream, sampleRate)
	}

	length := decoder.Length()
	if length <= 0 {
		return 0, fmt.Errorf(ERR_FMT_UNKNOWN_LENGTH, ErrInvalidStream, length)
	}

	samples := float64(length) / DECODED_FRAME_BYTES

	return samples / float64(sampleRate), nil
}

// FormatDuration renders seconds as m:ss.cc for logs and tables.
func FormatDuration(seconds float64) string {
	if seconds < 0 {
		return "-" + FormatDuration(-seconds)
	}

	centis := int64(math.Round(seconds * 100))
	minutes := centis / 6000
	rest := centis % 6000

	return fmt.Sprintf("%d:%02d.%02d", minutes, rest/100, rest%100)
}
