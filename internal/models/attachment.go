package models

import (
	"bytes"
	"encoding/json"
	"strings"
)

// ScanStatus is the malware-scan state of an attachment. The zero value means
// the server has not reported a status.
type ScanStatus string

const (
	ScanUnset   ScanStatus = ""
	ScanPending ScanStatus = "pending"
	ScanClean   ScanStatus = "clean"
	ScanBlocked ScanStatus = "blocked"
)

func (s *ScanStatus) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*s = ScanUnset
		return nil
	}
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*s = ScanStatus(strings.ToLower(strings.TrimSpace(v)))
	return nil
}

// Attachment is a file bound to one field of one submission.
type Attachment struct {
	ID               RecordID   `json:"id"`
	SubmissionID     RecordID   `json:"submission_id,omitempty"`
	FieldKey         string     `json:"field_key"`
	OriginalFilename string     `json:"original_filename"`
	ContentType      string     `json:"content_type"`
	FileSize         int64      `json:"file_size"`
	ScanStatus       ScanStatus `json:"scan_status,omitempty"`
}

// UploadProvider names the transport a reservation asks for.
type UploadProvider string

const (
	ProviderLocal UploadProvider = "local"
	ProviderS3    UploadProvider = "s3"
)

// UploadDescriptor tells the client where and how to send file bytes.
type UploadDescriptor struct {
	Provider UploadProvider    `json:"provider"`
	URL      string            `json:"url"`
	Method   string            `json:"method,omitempty"`
	Fields   map[string]string `json:"fields,omitempty"`
	Headers  map[string]string `json:"headers,omitempty"`
}

// NormalizedProvider lowercases the provider and defaults it to local.
func (d UploadDescriptor) NormalizedProvider() UploadProvider {
	p := UploadProvider(strings.ToLower(strings.TrimSpace(string(d.Provider))))
	if p == "" {
		return ProviderLocal
	}
	return p
}

// UploadReservation is the server reply to a reserve call. Upload is nil when
// the server already stored the file.
type UploadReservation struct {
	File   Attachment        `json:"file"`
	Upload *UploadDescriptor `json:"upload,omitempty"`
}

// UploadContext selects the recruiter or the candidate flavour of the upload
// endpoints. Candidate calls are made with the intake token and without a
// company header.
type UploadContext string

const (
	ContextRecruiter UploadContext = "recruiter"
	ContextCandidate UploadContext = "candidate"
)

// FileDownload is the content of a stored attachment. URL is set when the
// content was fetched from a storage link the API handed out.
type FileDownload struct {
	Filename    string
	ContentType string
	Body        []byte
	URL         string
}
