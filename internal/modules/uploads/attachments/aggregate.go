package attachments

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/uc4u2/candidate-intake/internal/models"
)

// QuestionnairePrefix prefixes the field key of a questionnaire document.
const QuestionnairePrefix = "questionnaire_"

var (
	ErrBlockedAttachment = errors.New("One or more uploads were blocked by antivirus scanning. Please replace them before submitting.")
	ErrPendingScan       = errors.New("File uploads are still pending antivirus scanning. Please wait until they complete.")
)

// MissingAttachmentsError lists required field keys that have no file.
type MissingAttachmentsError struct {
	Keys []string
}

func (e *MissingAttachmentsError) Error() string {
	return "Please upload the required questionnaire documents before submitting."
}

// MaxFilesError is returned when a new key would exceed the per-submission
// file limit.
type MaxFilesError struct {
	Max int
}

func (e *MaxFilesError) Error() string {
	return fmt.Sprintf("Maximum of %d files reached for this submission.", e.Max)
}

// QuestionnaireKey is the upload field key for a questionnaire template.
func QuestionnaireKey(templateID models.RecordID) string {
	return QuestionnairePrefix + templateID.String()
}

// RequiredKeys returns the questionnaire keys that must carry a file before
// submit, in assignment order. Assignments without a required flag count as
// required.
func RequiredKeys(assignments []models.QuestionnaireAssignment) []string {
	out := make([]string, 0, len(assignments))
	for _, a := range assignments {
		if a.TemplateID.IsZero() || !a.IsRequired() {
			continue
		}
		out = append(out, QuestionnaireKey(a.TemplateID))
	}
	return out
}

// Aggregate is the set of files attached to one submission, at most one per
// field key. It is safe for concurrent use.
type Aggregate struct {
	mu    sync.RWMutex
	files []models.Attachment
}

// New starts an aggregate from the files a submission already has. Later
// entries for the same key replace earlier ones.
func New(files []models.Attachment) *Aggregate {
	a := &Aggregate{}
	for _, f := range files {
		a.Put(f)
	}
	return a
}

// Put stores att, replacing any file bound to the same field key.
func (a *Aggregate) Put(att models.Attachment) {
	a.mu.Lock()
	defer a.mu.Unlock()
	next := a.files[:0:0]
	for _, f := range a.files {
		if f.FieldKey != att.FieldKey {
			next = append(next, f)
		}
	}
	a.files = append(next, att)
}

func (a *Aggregate) Get(key string) (models.Attachment, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, f := range a.files {
		if f.FieldKey == key {
			return f, true
		}
	}
	return models.Attachment{}, false
}

// List returns a copy of the files in insertion order.
func (a *Aggregate) List() []models.Attachment {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]models.Attachment, len(a.files))
	copy(out, a.files)
	return out
}

// Remove drops the file bound to key and reports whether there was one.
func (a *Aggregate) Remove(key string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, f := range a.files {
		if f.FieldKey == key {
			a.files = append(a.files[:i:i], a.files[i+1:]...)
			return true
		}
	}
	return false
}

func (a *Aggregate) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.files)
}

// CanAcceptNew reports whether a file for key fits under maxFiles. Replacing
// the file of an existing key always fits; maxFiles <= 0 means no limit.
func (a *Aggregate) CanAcceptNew(key string, maxFiles int) error {
	if maxFiles <= 0 {
		return nil
	}
	if _, ok := a.Get(key); ok {
		return nil
	}
	if a.Len() >= maxFiles {
		return &MaxFilesError{Max: maxFiles}
	}
	return nil
}

// CheckSubmit applies the submit gate: every required key has a file, no
// file was blocked by the scanner, and every reported scan is clean. Files
// without a reported status pass.
func (a *Aggregate) CheckSubmit(required []string) error {
	files := a.List()

	present := make(map[string]struct{}, len(files))
	for _, f := range files {
		present[f.FieldKey] = struct{}{}
	}
	var missing []string
	for _, key := range required {
		if _, ok := present[key]; !ok {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return &MissingAttachmentsError{Keys: missing}
	}

	for _, f := range files {
		if status(f) == models.ScanBlocked {
			return ErrBlockedAttachment
		}
	}
	for _, f := range files {
		if s := status(f); s != models.ScanUnset && s != models.ScanClean {
			return ErrPendingScan
		}
	}
	return nil
}

// Pending lists the keys whose scan has not finished.
func (a *Aggregate) Pending() []string {
	var out []string
	for _, f := range a.List() {
		if s := status(f); s != models.ScanUnset && s != models.ScanClean && s != models.ScanBlocked {
			out = append(out, f.FieldKey)
		}
	}
	return out
}

func status(f models.Attachment) models.ScanStatus {
	return models.ScanStatus(strings.ToLower(strings.TrimSpace(string(f.ScanStatus))))
}
