package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/uc4u2/candidate-intake/internal/models"
	"github.com/uc4u2/candidate-intake/internal/modules/forms/fields"
)

// DefaultSection holds fields that do not name a section.
const DefaultSection = "Candidate details"

const placeholderPrefix = "__"

// bookingKeys are captured by the slot booking step before the form is shown.
var bookingKeys = map[string]struct{}{
	"candidate_name":     {},
	"full_name":          {},
	"name":               {},
	"email":              {},
	"email_address":      {},
	"phone":              {},
	"phone_number":       {},
	"candidate_email":    {},
	"candidate_phone":    {},
	"candidate_position": {},
	"linkedin":           {},
	"other_link":         {},
}

// IsBookingKey reports whether key, once canonicalized, is collected by
// booking rather than the form.
func IsBookingKey(key string) bool {
	_, ok := bookingKeys[fields.NormalizeKey(key)]
	return ok
}

// Control is the input a field is presented with.
type Control string

const (
	ControlText     Control = "text"
	ControlTextarea Control = "textarea"
	ControlCheckbox Control = "checkbox"
	ControlSelect   Control = "select"
	ControlNumber   Control = "number"
	ControlEmail    Control = "email"
	ControlDate     Control = "date"
	ControlTime     Control = "time"
	ControlDateTime Control = "datetime"
	ControlFile     Control = "file"
)

// Field is one renderable input.
type Field struct {
	Key         string
	Label       string
	Type        models.FieldType
	Control     Control
	Section     string
	Required    bool
	Multi       bool
	Placeholder string
	HelperText  string
	Accept      string
	Options     []models.FieldOption
	OrderIndex  int
}

// Section is a titled group of fields in display order.
type Section struct {
	Title  string
	Fields []Field
}

// BuildSections turns a template's fields into display sections. Booking
// fields, hidden fields and placeholder keys are left out; the rest are
// ordered by order_index and grouped by section in first-seen order.
func BuildSections(tpl *models.Template) []Section {
	if tpl == nil || len(tpl.Fields) == 0 {
		return nil
	}

	list := make([]Field, 0, len(tpl.Fields))
	for _, def := range tpl.Fields {
		f, ok := fromDefinition(def)
		if !ok {
			continue
		}
		list = append(list, f)
	}
	sort.SliceStable(list, func(i, j int) bool { return list[i].OrderIndex < list[j].OrderIndex })

	var order []string
	grouped := map[string][]Field{}
	for _, f := range list {
		title := f.Section
		if title == "" {
			title = DefaultSection
		}
		if _, ok := grouped[title]; !ok {
			order = append(order, title)
		}
		grouped[title] = append(grouped[title], f)
	}

	out := make([]Section, 0, len(order))
	for _, title := range order {
		if len(grouped[title]) == 0 {
			continue
		}
		out = append(out, Section{Title: title, Fields: grouped[title]})
	}
	return out
}

// BuildSectionsFromRaw is BuildSections for field entries straight off the
// wire, in any of the shapes fields.Coerce understands.
func BuildSectionsFromRaw(raw []any) []Section {
	defs := make([]models.FieldDefinition, 0, len(raw))
	for _, entry := range raw {
		defs = append(defs, fields.Coerce(entry))
	}
	return BuildSections(&models.Template{Fields: defs})
}

func fromDefinition(def models.FieldDefinition) (Field, bool) {
	key := strings.TrimSpace(def.Key)
	if key == "" && def.ID != nil {
		key = def.ID.String()
	}
	if key == "" || IsBookingKey(key) || strings.HasPrefix(key, placeholderPrefix) {
		return Field{}, false
	}
	if def.Config.Hidden() {
		return Field{}, false
	}

	typ := models.FieldType(strings.ToLower(string(def.ResolvedType())))
	label := strings.TrimSpace(def.Label)
	if label == "" {
		label = key
	}
	return Field{
		Key:         key,
		Label:       label,
		Type:        typ,
		Control:     controlFor(typ),
		Section:     strings.TrimSpace(def.SectionName()),
		Required:    def.IsRequired,
		Multi:       typ.IsMulti(),
		Placeholder: def.Config.Placeholder(),
		HelperText:  def.Config.HelperText(),
		Accept:      def.Config.Accept(),
		Options:     def.Config.Options(),
		OrderIndex:  def.OrderIndex,
	}, true
}

func controlFor(typ models.FieldType) Control {
	switch typ {
	case models.FieldCheckbox, models.FieldCheckboxSingle, "boolean":
		return ControlCheckbox
	case models.FieldTextarea:
		return ControlTextarea
	case models.FieldSelect, models.FieldRadio,
		models.FieldMultiSelect, models.FieldMultiselect, models.FieldCheckboxes, models.FieldCheckboxGroup:
		return ControlSelect
	case models.FieldNumber, "integer", "decimal":
		return ControlNumber
	case models.FieldEmail:
		return ControlEmail
	case models.FieldDate:
		return ControlDate
	case "time":
		return ControlTime
	case "datetime":
		return ControlDateTime
	case models.FieldFile:
		return ControlFile
	}
	return ControlText
}

// NormalizeResponse shapes a response value for field: a list of strings for
// multi-valued fields, a bool for checkboxes, the value as given otherwise.
func NormalizeResponse(f Field, value any) any {
	if f.Multi {
		return toStrings(value)
	}
	if f.Control == ControlCheckbox {
		return truthy(value)
	}
	switch v := value.(type) {
	case []string:
		if len(v) == 0 {
			return ""
		}
		return v[0]
	case []any:
		if len(v) == 0 {
			return ""
		}
		return v[0]
	}
	return value
}

func toStrings(value any) []string {
	switch v := value.(type) {
	case nil:
		return []string{}
	case []string:
		out := make([]string, 0, len(v))
		for _, s := range v {
			if s != "" {
				out = append(out, s)
			}
		}
		return out
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if item == nil {
				continue
			}
			if s := fmt.Sprint(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if strings.TrimSpace(v) == "" {
			return []string{}
		}
		return []string{v}
	}
	return []string{fmt.Sprint(value)}
}

func truthy(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "", "0", "false", "no", "off":
			return false
		}
		return true
	case float64:
		return v != 0
	case int:
		return v != 0
	case nil:
		return false
	}
	return true
}

// FormatBytes renders a byte count the way the intake page lists files.
func FormatBytes(n int64) string {
	if n < 0 {
		return ""
	}
	units := []string{"B", "KB", "MB", "GB"}
	value := float64(n)
	i := 0
	for value >= 1024 && i < len(units)-1 {
		value /= 1024
		i++
	}
	if value == float64(int64(value)) {
		return fmt.Sprintf("%d %s", int64(value), units[i])
	}
	return fmt.Sprintf("%.1f %s", value, units[i])
}
