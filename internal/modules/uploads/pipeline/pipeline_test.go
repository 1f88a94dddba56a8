package pipeline

import (
	"errors"
	"testing"

	"github.com/uc4u2/candidate-intake/internal/models"
	"go.uber.org/zap"
)

func TestValidate(t *testing.T) {
	small := []byte("%PDF-1.7")
	big := make([]byte, 2<<20)

	tests := []struct {
		name    string
		file    File
		limits  Limits
		wantErr error
		wantMsg string
	}{
		{"no file", nil, DefaultLimits(), ErrNoFile, "No file selected"},
		{"too large", BytesFile("a.pdf", "application/pdf", big), Limits{MaxFileMB: 1}, nil, "File exceeds 1MB limit"},
		{"fractional limit", BytesFile("a.pdf", "application/pdf", big), Limits{MaxFileMB: 1.5}, nil, "File exceeds 1.5MB limit"},
		{"type not allowed", BytesFile("a.txt", "text/plain", small), DefaultLimits(), ErrTypeNotAllowed, "File type is not allowed"},
		{"pdf by extension", BytesFile("A.PDF", "application/octet-stream", small), DefaultLimits(), nil, ""},
		{"pdf with no type", BytesFile("cv.pdf", "", small), DefaultLimits(), nil, ""},
		{"params and case", BytesFile("p.png", "Image/PNG; q=1", small), DefaultLimits(), nil, ""},
		{"empty allow-list", BytesFile("a.txt", "text/plain", small), Limits{MaxFileMB: 10}, nil, ""},
		{"no size limit", BytesFile("a.pdf", "application/pdf", big), Limits{}, nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.file, tt.limits)
			if tt.wantMsg == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("err = %v, want *ValidationError", err)
			}
			if ve.Error() != tt.wantMsg {
				t.Fatalf("message = %q, want %q", ve.Error(), tt.wantMsg)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNormalizeContentType(t *testing.T) {
	tests := []struct {
		name, ct, want string
	}{
		{"cv.pdf", "", "application/pdf"},
		{"CV.PDF", "application/octet-stream", "application/pdf"},
		{"photo.jpg", "", "application/octet-stream"},
		{"photo.jpg", "application/octet-stream", "application/octet-stream"},
		{"doc.pdf", "image/png", "image/png"},
		{"a.txt", "text/plain; charset=utf-8", "text/plain"},
	}
	for _, tt := range tests {
		if got := NormalizeContentType(tt.name, tt.ct); got != tt.want {
			t.Errorf("NormalizeContentType(%q, %q) = %q, want %q", tt.name, tt.ct, got, tt.want)
		}
	}
}

func TestLimitsWithStorage(t *testing.T) {
	off := false
	l := DefaultLimits().WithStorage(&models.StorageLimits{
		AllowedMIME:     []string{" Text/Plain ", ""},
		MaxFileMB:       2,
		ScanningEnabled: &off,
	})
	if len(l.AllowedMIME) != 1 || l.AllowedMIME[0] != "text/plain" {
		t.Fatalf("allowed = %v", l.AllowedMIME)
	}
	if l.MaxFileMB != 2 || l.MaxFiles != DefaultMaxFiles || l.ScanningEnabled {
		t.Fatalf("limits = %+v", l)
	}
	if l.MaxFileBytes() != 2*1024*1024 {
		t.Fatalf("MaxFileBytes = %d", l.MaxFileBytes())
	}
	if got := DefaultLimits().WithStorage(nil); got.MaxFileMB != DefaultMaxFileMB {
		t.Fatalf("nil storage changed limits: %+v", got)
	}
}

func TestUploadProgress(t *testing.T) {
	tests := []struct {
		loaded, total, size int64
		wantTotal           int64
		wantPct             int
	}{
		{50, 200, 0, 200, 25},
		{1, 3, 0, 3, 33},
		{10, 0, 40, 40, 25},
		{5, 0, 0, 1, 100},
		{300, 200, 0, 200, 100},
	}
	for _, tt := range tests {
		p := uploadProgress(tt.loaded, tt.total, tt.size)
		if p.Stage != StageUpload || p.Total != tt.wantTotal || p.Percent != tt.wantPct {
			t.Errorf("uploadProgress(%d, %d, %d) = %+v", tt.loaded, tt.total, tt.size, p)
		}
	}
}

func TestServerMessage(t *testing.T) {
	tests := []struct {
		body, want string
	}{
		{`{"error":"Quota exceeded"}`, "Quota exceeded"},
		{`{"message":"Expired link"}`, "Expired link"},
		{`{"error":{"nested":true},"message":"Fallback"}`, "Fallback"},
		{`<?xml version="1.0"?><Error><Code>AccessDenied</Code><Message>Request has expired</Message></Error>`, "Request has expired"},
		{`plain text`, ""},
		{``, ""},
	}
	for _, tt := range tests {
		if got := ServerMessage([]byte(tt.body)); got != tt.want {
			t.Errorf("ServerMessage(%q) = %q, want %q", tt.body, got, tt.want)
		}
	}
}

func TestTracker(t *testing.T) {
	tr := NewTracker()
	first, err := tr.Begin("resume")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tr.Begin("resume"); !errors.Is(err, ErrUploadInFlight) {
		t.Fatalf("second Begin err = %v", err)
	}
	if _, err := tr.Begin("cover"); err != nil {
		t.Fatalf("other key: %v", err)
	}

	tr.Abandon("resume")
	if first.Current() {
		t.Fatal("abandoned attempt still current")
	}
	second, err := tr.Begin("resume")
	if err != nil {
		t.Fatalf("Begin after Abandon: %v", err)
	}
	if second.Token <= first.Token {
		t.Fatalf("tokens not increasing: %d then %d", first.Token, second.Token)
	}

	first.End()
	if !tr.InFlight("resume") || !second.Current() {
		t.Fatal("ending a stale attempt released the newer one")
	}
	second.End()
	if tr.InFlight("resume") {
		t.Fatal("key still in flight after End")
	}
}

func TestEmitRecovers(t *testing.T) {
	ran := false
	emit(zap.NewNop(), "OnProgress", func() {
		ran = true
		panic("boom")
	})
	if !ran {
		t.Fatal("callback did not run")
	}
}

func TestStageErrorMessages(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&ReservationError{}, "Failed to reserve upload"},
		{&ReservationError{Err: errors.New("Submission locked")}, "Submission locked"},
		{&TransferError{}, "Upload failed"},
		{&TransferError{Status: 502}, "Upload failed (status 502)"},
		{&TransferError{Status: 403, Message: "Request has expired"}, "Request has expired"},
		{&CommitError{}, "Failed to finalize upload"},
	}
	for _, tt := range tests {
		se := stageErr(StageUpload, "resume", tt.err)
		if se.Error() != tt.want {
			t.Errorf("%T: %q, want %q", tt.err, se.Error(), tt.want)
		}
		if !errors.Is(se, tt.err) {
			t.Errorf("%T not unwrapped", tt.err)
		}
	}
}
