package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"beatforge/internal/services"
)

// Runner invokes ffmpeg for the five operations the pipeline needs: frame
// extraction, parameterized re-encoding, demuxer-level concatenation of
// same-codec segments, stream-copy trimming, and audio/video muxing.
type Runner struct {
	binary string
}

// NewRunner constructs a Runner for the given ffmpeg binary ("" uses PATH).
func NewRunner(binary string) *Runner {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffmpeg"
	}
	return &Runner{binary: binary}
}

// EncodeSpec describes one re-encode invocation.
type EncodeSpec struct {
	Input  string
	Output string
	// TrimStart/Duration select a window of the input; zero values are omitted.
	TrimStart float64
	Duration  float64
	// Filters are -vf entries joined with commas.
	Filters []string
	// Codec parameters. Codec defaults to libx264, PixelFormat to yuv420p.
	Codec       string
	Preset      string
	CRF         int
	PixelFormat string
	// FrameRate forces the output rate when > 0.
	FrameRate int
	// DropAudio strips the audio stream from the output.
	DropAudio bool
	// FastStart relocates the moov atom for streaming playback.
	FastStart bool
}

// Encode re-encodes input to output with explicit codec parameters.
func (r *Runner) Encode(ctx context.Context, spec EncodeSpec) error {
	if spec.Input == "" || spec.Output == "" {
		return errors.New("ffmpeg encode: input and output required")
	}

	args := []string{"-hide_banner", "-y"}
	if spec.TrimStart > 0 {
		args = append(args, "-ss", formatSeconds(spec.TrimStart))
	}
	args = append(args, "-i", spec.Input)
	if spec.Duration > 0 {
		args = append(args, "-t", formatSeconds(spec.Duration))
	}
	if len(spec.Filters) > 0 {
		args = append(args, "-vf", strings.Join(spec.Filters, ","))
	}

	codec := spec.Codec
	if codec == "" {
		codec = "libx264"
	}
	pixFmt := spec.PixelFormat
	if pixFmt == "" {
		pixFmt = "yuv420p"
	}
	args = append(args, "-c:v", codec, "-pix_fmt", pixFmt)
	if spec.Preset != "" {
		args = append(args, "-preset", spec.Preset)
	}
	if spec.CRF > 0 {
		args = append(args, "-crf", strconv.Itoa(spec.CRF))
	}
	if spec.FrameRate > 0 {
		args = append(args, "-r", strconv.Itoa(spec.FrameRate))
	}
	if spec.DropAudio {
		args = append(args, "-an")
	}
	if spec.FastStart {
		args = append(args, "-movflags", "+faststart")
	}
	args = append(args, spec.Output)

	return r.run(ctx, "encode", args)
}

// ExtractFrame grabs a single frame at the given timestamp.
func (r *Runner) ExtractFrame(ctx context.Context, input string, timestamp float64, output string) error {
	args := []string{
		"-hide_banner", "-y",
		"-ss", formatSeconds(timestamp),
		"-i", input,
		"-vframes", "1",
		"-q:v", "2",
		output,
	}
	return r.run(ctx, "extract frame", args)
}

// ConcatCopy joins the files listed in listFile with the concat demuxer using
// stream copy. Valid only when every listed file shares identical codec
// parameters. A maxDuration > 0 hard-truncates the output.
func (r *Runner) ConcatCopy(ctx context.Context, listFile, output string, maxDuration float64) error {
	args := []string{
		"-hide_banner", "-y",
		"-f", "concat", "-safe", "0",
		"-i", listFile,
		"-c", "copy",
	}
	if maxDuration > 0 {
		args = append(args, "-t", formatSeconds(maxDuration))
	}
	args = append(args, output)
	return r.run(ctx, "concat", args)
}

// TrimCopy stream-copies the first duration seconds of input into output.
func (r *Runner) TrimCopy(ctx context.Context, input, output string, duration float64) error {
	args := []string{
		"-hide_banner", "-y",
		"-i", input,
		"-t", formatSeconds(duration),
		"-c", "copy",
		output,
	}
	return r.run(ctx, "trim", args)
}

// Mux combines a video track and an audio track into one container, copying
// the video stream, encoding audio to audioCodec, and marking the container
// for streaming-optimized playback.
func (r *Runner) Mux(ctx context.Context, videoPath, audioPath, output, audioCodec string) error {
	if audioCodec == "" {
		audioCodec = "aac"
	}
	args := []string{
		"-hide_banner", "-y",
		"-i", videoPath,
		"-i", audioPath,
		"-map", "0:v:0", "-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", audioCodec,
		"-movflags", "+faststart",
		output,
	}
	return r.run(ctx, "mux", args)
}

// DecodePCM decodes the input's audio into mono float32 little-endian samples
// at the given rate, written to output as a raw stream.
func (r *Runner) DecodePCM(ctx context.Context, input, output string, sampleRate int) error {
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	args := []string{
		"-hide_banner", "-y",
		"-i", input,
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		"-f", "f32le",
		output,
	}
	return r.run(ctx, "decode pcm", args)
}

func (r *Runner) run(ctx context.Context, operation string, args []string) error {
	cmd := exec.CommandContext(ctx, r.binary, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		diag := services.TruncateDiagnostic(string(output), 500)
		return services.Wrap(services.ErrExternalTool, "ffmpeg", operation, diag, err)
	}
	return nil
}

// WriteConcatList writes a concat-demuxer list file naming each segment in
// order. Paths are made absolute and single quotes escaped per the demuxer's
// quoting rules.
func WriteConcatList(path string, segments []string) error {
	var b strings.Builder
	for _, segment := range segments {
		abs, err := filepath.Abs(segment)
		if err != nil {
			return fmt.Errorf("resolve segment path %q: %w", segment, err)
		}
		escaped := strings.ReplaceAll(abs, "'", `'\''`)
		fmt.Fprintf(&b, "file '%s'\n", escaped)
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
