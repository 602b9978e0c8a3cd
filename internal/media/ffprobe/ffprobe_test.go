package ffprobe

import (
	"encoding/json"
	"testing"
)

const sampleJSON = `{
  "streams": [
    {"index": 0, "codec_name": "h264", "codec_type": "video", "width": 1920, "height": 1080, "r_frame_rate": "30000/1001", "bit_rate": "4500000"},
    {"index": 1, "codec_name": "aac", "codec_type": "audio", "sample_rate": "48000", "channels": 2, "bit_rate": "192000"}
  ],
  "format": {"filename": "clip.mp4", "nb_streams": 2, "duration": "12.480000", "size": "7340032", "bit_rate": "4700000", "format_name": "mov,mp4,m4a,3gp,3g2,mj2"}
}`

func parseSample(t *testing.T) Result {
	t.Helper()
	var result Result
	if err := json.Unmarshal([]byte(sampleJSON), &result); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	return result
}

func TestResultAccessors(t *testing.T) {
	result := parseSample(t)

	video, ok := result.FirstVideoStream()
	if !ok || video.CodecName != "h264" {
		t.Fatalf("unexpected video stream: %#v", video)
	}
	audio, ok := result.FirstAudioStream()
	if !ok || audio.Channels != 2 {
		t.Fatalf("unexpected audio stream: %#v", audio)
	}
	if got := result.DurationSeconds(); got != 12.48 {
		t.Fatalf("duration: got %v", got)
	}
	if got := result.BitRate(); got != 4700000 {
		t.Fatalf("bitrate: got %d", got)
	}
	if got := audio.SampleRateValue(); got != 48000 {
		t.Fatalf("sample rate: got %d", got)
	}
}

func TestFrameRateRational(t *testing.T) {
	result := parseSample(t)
	video, _ := result.FirstVideoStream()

	got := video.FrameRate(30)
	if got < 29.9 || got > 29.98 {
		t.Fatalf("expected ~29.97, got %v", got)
	}

	bad := Stream{RFrameRate: "0/0"}
	if bad.FrameRate(24) != 24 {
		t.Fatal("expected fallback for zero denominator")
	}
	empty := Stream{}
	if empty.FrameRate(30) != 30 {
		t.Fatal("expected fallback for empty rate")
	}
}
