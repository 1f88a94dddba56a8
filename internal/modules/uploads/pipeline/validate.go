package pipeline

import (
	"fmt"
	"mime"
	"strconv"
	"strings"

	"github.com/uc4u2/candidate-intake/internal/models"
)

const (
	DefaultMaxFileMB = 10
	DefaultMaxFiles  = 10
)

// DefaultAllowedMIME is the allow-list used when none is configured.
var DefaultAllowedMIME = []string{"application/pdf", "image/jpeg", "image/png", "image/heic"}

// Limits bound what may be uploaded. A zero MaxFileMB or empty AllowedMIME
// disables that check; MaxFiles <= 0 means no file count limit.
type Limits struct {
	AllowedMIME     []string
	MaxFileMB       float64
	MaxFiles        int
	ScanningEnabled bool
}

// DefaultLimits returns the built-in limits.
func DefaultLimits() Limits {
	return Limits{
		AllowedMIME:     append([]string(nil), DefaultAllowedMIME...),
		MaxFileMB:       DefaultMaxFileMB,
		MaxFiles:        DefaultMaxFiles,
		ScanningEnabled: true,
	}
}

// MaxFileBytes is MaxFileMB in bytes.
func (l Limits) MaxFileBytes() int64 {
	return int64(l.MaxFileMB * 1024 * 1024)
}

// WithStorage overlays the limits a server sent for one submission.
func (l Limits) WithStorage(s *models.StorageLimits) Limits {
	if s == nil {
		return l
	}
	if len(s.AllowedMIME) > 0 {
		l.AllowedMIME = make([]string, 0, len(s.AllowedMIME))
		for _, m := range s.AllowedMIME {
			if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
				l.AllowedMIME = append(l.AllowedMIME, m)
			}
		}
	}
	if s.MaxFileMB > 0 {
		l.MaxFileMB = s.MaxFileMB
	}
	if s.MaxFiles > 0 {
		l.MaxFiles = s.MaxFiles
	}
	if s.ScanningEnabled != nil {
		l.ScanningEnabled = *s.ScanningEnabled
	}
	return l
}

// NormalizeContentType picks the content type sent for a file. A missing or
// generic type on a .pdf name becomes application/pdf; parameters are dropped.
func NormalizeContentType(name, contentType string) string {
	ct := strings.TrimSpace(contentType)
	if ct == "" || strings.EqualFold(ct, "application/octet-stream") {
		if strings.HasSuffix(strings.ToLower(name), ".pdf") {
			return "application/pdf"
		}
		if ct == "" {
			return "application/octet-stream"
		}
	}
	if mediaType, _, err := mime.ParseMediaType(ct); err == nil {
		return mediaType
	}
	return ct
}

// Validate checks f against l without any network access.
func Validate(f File, l Limits) error {
	if f == nil {
		return &ValidationError{Reason: ErrNoFile.Error(), Err: ErrNoFile}
	}
	if limit := l.MaxFileBytes(); limit > 0 && f.Size() > limit {
		return &ValidationError{Reason: fmt.Sprintf("File exceeds %sMB limit", formatMB(l.MaxFileMB))}
	}
	if len(l.AllowedMIME) > 0 {
		lowered := strings.ToLower(NormalizeContentType(f.Name(), f.ContentType()))
		if !contains(l.AllowedMIME, lowered) {
			return &ValidationError{Reason: ErrTypeNotAllowed.Error(), Err: ErrTypeNotAllowed}
		}
	}
	return nil
}

func formatMB(mb float64) string {
	return strconv.FormatFloat(mb, 'f', -1, 64)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(strings.TrimSpace(item), v) {
			return true
		}
	}
	return false
}
