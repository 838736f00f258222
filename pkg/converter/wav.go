package converter

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/wav"

	"github.com/dskvich/whisper-telegram-bot/pkg/domain"
)

// DecodeWAV loads a PCM WAV file as mono float32 samples in [-1, 1]. The
// speech engine only accepts 16 kHz, so any other rate is rejected.
func DecodeWAV(path string) ([]float32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: opening wav: %w", domain.ErrConversion, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: %s is not a valid wav file", domain.ErrConversion, path)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: reading pcm: %w", domain.ErrConversion, err)
	}
	if buf == nil || buf.Format == nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConversion, errors.New("wav has no pcm data"))
	}

	if buf.Format.SampleRate != SampleRate {
		return nil, fmt.Errorf("%w: expected %d Hz, got %d Hz", domain.ErrConversion, SampleRate, buf.Format.SampleRate)
	}

	bitDepth := int(dec.BitDepth)
	if bitDepth == 0 {
		bitDepth = 16
	}

	return downmix(toFloat32(buf.Data, bitDepth), buf.Format.NumChannels), nil
}

func toFloat32(data []int, bitDepth int) []float32 {
	out := make([]float32, len(data))
	scale := 1.0 / float64(int64(1)<<(bitDepth-1))
	for i, v := range data {
		out[i] = float32(max(-1.0, min(1.0, float64(v)*scale)))
	}
	return out
}

func downmix(in []float32, channels int) []float32 {
	if channels <= 1 {
		return in
	}
	frames := len(in) / channels
	out := make([]float32, frames)
	for i := range out {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += in[i*channels+c]
		}
		out[i] = sum / float32(channels)
	}
	return out
}
