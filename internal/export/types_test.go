package export

import (
	"errors"
	"testing"
)

func ptr(v float64) *float64 { return &v }

func TestToRequestDefaults(t *testing.T) {
	req, dropped := ExportRequest{VideoPath: " /v.mp4 "}.ToRequest()
	if len(dropped) != 0 {
		t.Fatalf("dropped = %v", dropped)
	}
	if req.VideoLocator != "/v.mp4" {
		t.Errorf("VideoLocator = %q", req.VideoLocator)
	}
	if req.VideoTrim.Start != 0 || req.VideoTrim.End != DefaultTrimEnd {
		t.Errorf("VideoTrim = %+v", req.VideoTrim)
	}
	if req.AudioTrim != req.VideoTrim {
		t.Errorf("AudioTrim = %+v, want video trim", req.AudioTrim)
	}
}

func TestToRequestClips(t *testing.T) {
	in := ExportRequest{
		VideoPath:      "/v.mp4",
		VideoTrimStart: ptr(1),
		VideoTrimEnd:   ptr(9),
		AudioTrimStart: ptr(2),
		AudioClips: []ClipInput{
			{ID: "audio-1", Name: "voice", StartTime: 1, Duration: 2, BlobBase64: EncodePayload([]byte("abc"))},
			{ID: "audio-2", StartTime: 1, Duration: 2, BlobBase64: "data:audio/webm;base64," + EncodePayload([]byte("xyz"))},
			{ID: "audio-3", StartTime: 1, Duration: 2},
			{StartTime: 1, Duration: 2, BlobBase64: "YQ=="},
			{ID: "audio-5", StartTime: 1, Duration: 2, BlobBase64: "%%%"},
			{ID: "audio-6", StartTime: 1, Duration: 0, BlobBase64: "YQ=="},
		},
	}

	req, dropped := in.ToRequest()
	if len(req.Clips) != 2 {
		t.Fatalf("len(Clips) = %d, want 2", len(req.Clips))
	}
	if string(req.Clips[0].Source) != "abc" || string(req.Clips[1].Source) != "xyz" {
		t.Errorf("payloads = %q %q", req.Clips[0].Source, req.Clips[1].Source)
	}
	if len(dropped) != 4 {
		t.Fatalf("len(dropped) = %d, want 4", len(dropped))
	}
	for _, err := range dropped {
		if !errors.Is(err, ErrInvalidClip) {
			t.Errorf("dropped error %v does not unwrap to ErrInvalidClip", err)
		}
	}
	if req.AudioTrim.Start != 2 || req.AudioTrim.End != 9 {
		t.Errorf("AudioTrim = %+v", req.AudioTrim)
	}
}

func TestToRequestClampsNegativeStart(t *testing.T) {
	req, _ := ExportRequest{
		VideoPath:      "/v.mp4",
		VideoTrimStart: ptr(-1),
		VideoTrimEnd:   ptr(4),
		AudioTrimStart: ptr(-3),
	}.ToRequest()

	if req.VideoTrim.Start != 0 || req.VideoTrim.End != 4 {
		t.Errorf("VideoTrim = %+v, want {0 4}", req.VideoTrim)
	}
	if req.AudioTrim.Start != 0 {
		t.Errorf("AudioTrim.Start = %v, want 0", req.AudioTrim.Start)
	}
}
