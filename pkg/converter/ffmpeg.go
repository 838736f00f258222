package converter

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"github.com/dskvich/whisper-telegram-bot/pkg/domain"
	"github.com/dskvich/whisper-telegram-bot/pkg/logger"
)

const (
	SampleRate = 16000
	Channels   = 1
)

type FFmpeg struct {
	binary string
}

func NewFFmpeg(binary string) *FFmpeg {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpeg{binary: binary}
}

// Available probes the binary the same way a conversion would.
func (f *FFmpeg) Available(ctx context.Context) error {
	path, err := exec.LookPath(f.binary)
	if err != nil {
		return fmt.Errorf("%w: looking for `%s`: %w", domain.ErrConversion, f.binary, err)
	}
	if err := exec.CommandContext(ctx, path, "-version").Run(); err != nil {
		return fmt.Errorf("%w: running `%s -version`: %w", domain.ErrConversion, f.binary, err)
	}
	return nil
}

// Format is the container and codec a download is normalized to.
type Format int

const (
	// PCM is 16-bit mono 16 kHz WAV, the input whisper.cpp decodes.
	PCM Format = iota
	// Opus is mono 16 kHz Ogg/Opus, small enough for upload APIs with a size cap.
	Opus
)

const opusBitrate = "32k"

func (f Format) Extension() string {
	if f == Opus {
		return ".ogg"
	}
	return ".wav"
}

func (f Format) String() string {
	if f == Opus {
		return "opus"
	}
	return "pcm"
}

// Convert resamples inputPath to mono 16 kHz in the given format.
func (f *FFmpeg) Convert(ctx context.Context, inputPath, outputPath string, format Format) error {
	path, err := exec.LookPath(f.binary)
	if err != nil {
		return fmt.Errorf("%w: looking for `%s`: %w", domain.ErrConversion, f.binary, err)
	}

	slog.InfoContext(ctx, "Converting audio", "inputPath", inputPath, "format", format)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, path, ffmpegArgs(inputPath, outputPath, format)...)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		slog.ErrorContext(ctx, "ffmpeg failed", "stderr", strings.TrimSpace(stderr.String()), logger.Err(err))
		return fmt.Errorf("%w: running `%s`: %w", domain.ErrConversion, f.binary, err)
	}

	slog.InfoContext(ctx, "Conversion successful", "outputPath", outputPath)

	return nil
}

func ffmpegArgs(inputPath, outputPath string, format Format) []string {
	args := []string{"-nostdin", "-i", inputPath, "-vn"}

	switch format {
	case Opus:
		args = append(args, "-acodec", "libopus", "-b:a", opusBitrate)
	default:
		args = append(args, "-acodec", "pcm_s16le")
	}

	return append(args,
		"-ac", strconv.Itoa(Channels),
		"-ar", strconv.Itoa(SampleRate),
		"-loglevel", "error",
		"-y",
		outputPath,
	)
}
