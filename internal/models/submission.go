package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// SubmissionStatus tracks a candidate's progress through an intake form.
type SubmissionStatus string

const (
	SubmissionInvited    SubmissionStatus = "invited"
	SubmissionInProgress SubmissionStatus = "in_progress"
	SubmissionSubmitted  SubmissionStatus = "submitted"
	SubmissionConverted  SubmissionStatus = "converted"
)

// Submission is one candidate's answers to a template.
type Submission struct {
	ID          RecordID         `json:"id"`
	TemplateID  RecordID         `json:"template_id"`
	Status      SubmissionStatus `json:"status"`
	Responses   map[string]any   `json:"responses"`
	Files       []Attachment     `json:"files"`
	RecruiterID RecordID         `json:"recruiter_id,omitempty"`
	InviteName  string           `json:"invite_name,omitempty"`
	InviteEmail string           `json:"invite_email,omitempty"`
	InvitePhone string           `json:"invite_phone,omitempty"`
	IntakeToken string           `json:"intake_token,omitempty"`
	SubmittedAt *time.Time       `json:"submitted_at,omitempty"`
}

// ReadOnly reports whether the submission no longer accepts edits.
func (s Submission) ReadOnly() bool {
	return SubmissionStatus(strings.ToLower(string(s.Status))) == SubmissionSubmitted
}

// QuestionnaireAssignment links an extra questionnaire document to a
// submission. Required is nil when the server leaves it unset, which means
// required.
type QuestionnaireAssignment struct {
	TemplateID RecordID `json:"template_id"`
	Name       string   `json:"name"`
	Required   *bool    `json:"required,omitempty"`
	SortOrder  int      `json:"sort_order"`
}

// IsRequired applies the unset-means-required rule.
func (q QuestionnaireAssignment) IsRequired() bool {
	return q.Required == nil || *q.Required
}

// StorageLimits are the per-submission upload limits a server may send.
type StorageLimits struct {
	AllowedMIME     []string `json:"allowed_mime,omitempty"`
	MaxFileMB       float64  `json:"max_file_mb,omitempty"`
	MaxFiles        int      `json:"max_files,omitempty"`
	ScanningEnabled *bool    `json:"scanning_enabled,omitempty"`
}

// UnmarshalJSON accepts snake_case and camelCase keys, and an allow-list
// given either as an array or as a comma separated string.
func (l *StorageLimits) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	pick := func(keys ...string) json.RawMessage {
		for _, k := range keys {
			if v, ok := raw[k]; ok && string(v) != "null" {
				return v
			}
		}
		return nil
	}

	var out StorageLimits
	if v := pick("allowed_mime", "allowedMime"); v != nil {
		var list []string
		if err := json.Unmarshal(v, &list); err != nil {
			var joined string
			if err := json.Unmarshal(v, &joined); err != nil {
				return err
			}
			list = strings.Split(joined, ",")
		}
		for _, m := range list {
			if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
				out.AllowedMIME = append(out.AllowedMIME, m)
			}
		}
	}
	if v := pick("max_file_mb", "maxFileMb", "maxFileMB"); v != nil {
		f, err := looseFloat(v)
		if err != nil {
			return err
		}
		out.MaxFileMB = f
	}
	if v := pick("max_files", "maxFiles", "max_files_per_submission"); v != nil {
		f, err := looseFloat(v)
		if err != nil {
			return err
		}
		out.MaxFiles = int(f)
	}
	if v := pick("scanning_enabled", "scanningEnabled"); v != nil {
		var b bool
		if err := json.Unmarshal(v, &b); err != nil {
			return err
		}
		out.ScanningEnabled = &b
	}
	*l = out
	return nil
}

func looseFloat(v json.RawMessage) (float64, error) {
	var f float64
	if err := json.Unmarshal(v, &f); err == nil {
		return f, nil
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return 0, err
	}
	return strconv.ParseFloat(strings.TrimSpace(s), 64)
}

// IntakeBundle is what the public intake endpoint returns for a token.
type IntakeBundle struct {
	Template       Template                  `json:"template"`
	Submission     Submission                `json:"submission"`
	Questionnaires []QuestionnaireAssignment `json:"questionnaires,omitempty"`
	Storage        *StorageLimits            `json:"storage,omitempty"`
}
