package fields

import (
	"strings"

	"github.com/uc4u2/candidate-intake/internal/models"
)

// ParseOptions reads editor option text: one option per line, either
// "value" or "value|label". Blank lines are skipped and order_index follows
// the surviving lines.
func ParseOptions(text string) []models.FieldOption {
	if text == "" {
		return nil
	}
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	out := make([]models.FieldOption, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		value, label := line, line
		if strings.Contains(line, "|") {
			parts := strings.Split(line, "|")
			value = strings.TrimSpace(parts[0])
			label = strings.TrimSpace(parts[1])
			if label == "" {
				label = value
			}
		}
		out = append(out, models.FieldOption{Value: value, Label: label, OrderIndex: len(out)})
	}
	return out
}

// FormatOptions is the inverse of ParseOptions. Labels equal to their value
// are written as the bare value.
func FormatOptions(options []models.FieldOption) string {
	lines := make([]string, 0, len(options))
	for _, opt := range options {
		value, label := opt.Value, opt.Label
		if value == "" && label == "" {
			continue
		}
		if value == "" {
			value = label
		}
		if label != "" && label != value {
			lines = append(lines, value+"|"+label)
			continue
		}
		lines = append(lines, value)
	}
	return strings.Join(lines, "\n")
}
