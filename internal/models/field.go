package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// FieldType names the input control a field renders as.
type FieldType string

const (
	FieldText           FieldType = "text"
	FieldTextarea       FieldType = "textarea"
	FieldEmail          FieldType = "email"
	FieldPhone          FieldType = "phone"
	FieldNumber         FieldType = "number"
	FieldDate           FieldType = "date"
	FieldSelect         FieldType = "select"
	FieldRadio          FieldType = "radio"
	FieldCheckbox       FieldType = "checkbox"
	FieldCheckboxSingle FieldType = "checkbox_single"
	FieldFile           FieldType = "file"

	// Older payloads and the recruiting blueprint still use these.
	FieldMultiSelect   FieldType = "multi_select"
	FieldMultiselect   FieldType = "multiselect"
	FieldCheckboxes    FieldType = "checkboxes"
	FieldCheckboxGroup FieldType = "checkbox_group"
)

// EditorFieldTypes lists the types the template editor offers, in menu order.
var EditorFieldTypes = []FieldType{
	FieldText, FieldTextarea, FieldEmail, FieldPhone, FieldNumber, FieldDate,
	FieldSelect, FieldRadio, FieldCheckbox, FieldCheckboxSingle, FieldFile,
}

// RequiresOptions reports whether the type needs a non-empty option list.
func (t FieldType) RequiresOptions() bool {
	switch t {
	case FieldSelect, FieldRadio, FieldCheckbox:
		return true
	}
	return false
}

// IsMulti reports whether responses to this type are lists.
func (t FieldType) IsMulti() bool {
	switch FieldType(strings.ToLower(string(t))) {
	case FieldMultiSelect, FieldMultiselect, FieldCheckboxes, FieldCheckboxGroup:
		return true
	}
	return false
}

// SupportsPlaceholder reports whether a placeholder is meaningful for the type.
func (t FieldType) SupportsPlaceholder() bool {
	switch t {
	case FieldText, FieldTextarea, FieldEmail, FieldPhone, FieldNumber:
		return true
	}
	return false
}

// SupportsMaxLength reports whether max_length applies to the type.
func (t FieldType) SupportsMaxLength() bool {
	return t == FieldText || t == FieldTextarea
}

// FieldOption is one choice of a select, radio or checkbox field.
type FieldOption struct {
	Value      string `json:"value"`
	Label      string `json:"label"`
	OrderIndex int    `json:"order_index"`
}

// FieldConfig is the open attribute bag of a field. Unknown keys survive a
// decode/encode cycle untouched.
type FieldConfig map[string]any

const (
	ConfigPlaceholder = "placeholder"
	ConfigHelperText  = "helper_text"
	ConfigOptions     = "options"
	ConfigAccept      = "accept"
	ConfigMaxLength   = "max_length"
	ConfigHidden      = "hidden"
)

func (c FieldConfig) str(key string) string {
	if c == nil {
		return ""
	}
	switch v := c[key].(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func (c FieldConfig) Placeholder() string { return c.str(ConfigPlaceholder) }
func (c FieldConfig) HelperText() string  { return c.str(ConfigHelperText) }
func (c FieldConfig) Accept() string      { return c.str(ConfigAccept) }

// MaxLength returns the configured max_length when it is a positive integer.
func (c FieldConfig) MaxLength() (int, bool) {
	if c == nil {
		return 0, false
	}
	var n int
	switch v := c[ConfigMaxLength].(type) {
	case int:
		n = v
	case int64:
		n = int(v)
	case float64:
		n = int(v)
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return 0, false
		}
		n = int(i)
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, false
		}
		n = i
	default:
		return 0, false
	}
	return n, n > 0
}

// Hidden reports whether the field is flagged hidden.
func (c FieldConfig) Hidden() bool {
	if c == nil {
		return false
	}
	switch v := c[ConfigHidden].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(strings.TrimSpace(v), "true")
	case float64:
		return v != 0
	}
	return false
}

// Options returns the option list. Entries may be option objects, scalars, or
// a value->label map; maps come back sorted by value.
func (c FieldConfig) Options() []FieldOption {
	if c == nil {
		return nil
	}
	return CoerceOptions(c[ConfigOptions])
}

// Clone returns a shallow copy. A nil config clones to an empty one.
func (c FieldConfig) Clone() FieldConfig {
	out := make(FieldConfig, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// CoerceOptions folds the loose option shapes found in stored templates into
// FieldOption values.
func CoerceOptions(raw any) []FieldOption {
	switch v := raw.(type) {
	case []FieldOption:
		out := make([]FieldOption, len(v))
		copy(out, v)
		return out
	case []string:
		out := make([]FieldOption, 0, len(v))
		for i, s := range v {
			out = append(out, FieldOption{Value: s, Label: s, OrderIndex: i})
		}
		return out
	case []any:
		out := make([]FieldOption, 0, len(v))
		for i, item := range v {
			opt, ok := coerceOption(item, i)
			if ok {
				out = append(out, opt)
			}
		}
		return out
	case map[string]any:
		out := make([]FieldOption, 0, len(v))
		for value, label := range v {
			out = append(out, FieldOption{Value: value, Label: fmt.Sprint(label)})
		}
		sortOptionsByValue(out)
		for i := range out {
			out[i].OrderIndex = i
		}
		return out
	}
	return nil
}

func coerceOption(item any, index int) (FieldOption, bool) {
	switch v := item.(type) {
	case FieldOption:
		return v, true
	case string:
		return FieldOption{Value: v, Label: v, OrderIndex: index}, true
	case float64, bool, json.Number, int:
		s := fmt.Sprint(v)
		return FieldOption{Value: s, Label: s, OrderIndex: index}, true
	case map[string]any:
		value := firstString(v, "value", "id", "key", "name", "label")
		if value == "" {
			return FieldOption{}, false
		}
		label := firstString(v, "label", "name")
		if label == "" {
			label = value
		}
		opt := FieldOption{Value: value, Label: label, OrderIndex: index}
		if n, ok := v["order_index"].(float64); ok {
			opt.OrderIndex = int(n)
		}
		return opt, true
	}
	return FieldOption{}, false
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				return v
			}
		case float64, json.Number, int:
			return fmt.Sprint(v)
		}
	}
	return ""
}

func sortOptionsByValue(opts []FieldOption) {
	sort.Slice(opts, func(i, j int) bool { return opts[i].Value < opts[j].Value })
}

// FieldDefinition is the canonical shape of one template field. Type and
// FieldType carry the same value under the two names used on the wire.
type FieldDefinition struct {
	ID         *RecordID   `json:"id"`
	Section    *string     `json:"section"`
	Key        string      `json:"key"`
	Label      string      `json:"label"`
	Type       FieldType   `json:"type"`
	FieldType  FieldType   `json:"field_type"`
	IsRequired bool        `json:"is_required"`
	OrderIndex int         `json:"order_index"`
	Config     FieldConfig `json:"config"`
}

// SectionName returns the section label or "" when the field has none.
func (f FieldDefinition) SectionName() string {
	if f.Section == nil {
		return ""
	}
	return *f.Section
}

// ResolvedType returns Type, falling back to FieldType and then text.
func (f FieldDefinition) ResolvedType() FieldType {
	if t := FieldType(strings.TrimSpace(string(f.Type))); t != "" {
		return t
	}
	if t := FieldType(strings.TrimSpace(string(f.FieldType))); t != "" {
		return t
	}
	return FieldText
}

// UnmarshalJSON accepts the field shapes written by older editors: field_type
// or type, required or is_required, order or order_index, group or section,
// help_text or description for the helper text, and options beside config.
// A missing requiredness flag means required.
func (f *FieldDefinition) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	var raw struct {
		ID          *RecordID   `json:"id"`
		Section     *string     `json:"section"`
		Group       *string     `json:"group"`
		Key         looseString `json:"key"`
		Label       looseString `json:"label"`
		Type        looseString `json:"type"`
		FieldType   looseString `json:"field_type"`
		IsRequired  *looseBool  `json:"is_required"`
		Required    *looseBool  `json:"required"`
		OrderIndex  *looseInt   `json:"order_index"`
		Order       *looseInt   `json:"order"`
		Config      any         `json:"config"`
		HelpText    looseString `json:"help_text"`
		Description looseString `json:"description"`
		Options     any         `json:"options"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := FieldDefinition{
		ID:    raw.ID,
		Key:   string(raw.Key),
		Label: string(raw.Label),
	}
	if out.ID != nil && out.ID.IsZero() {
		out.ID = nil
	}

	switch {
	case raw.Section != nil:
		out.Section = raw.Section
	case raw.Group != nil:
		out.Section = raw.Group
	}

	typ := FieldType(strings.TrimSpace(string(raw.Type)))
	fieldType := FieldType(strings.TrimSpace(string(raw.FieldType)))
	if typ == "" {
		typ = fieldType
	}
	if fieldType == "" {
		fieldType = typ
	}
	if typ == "" {
		typ, fieldType = FieldText, FieldText
	}
	out.Type, out.FieldType = typ, fieldType

	switch {
	case raw.IsRequired != nil:
		out.IsRequired = bool(*raw.IsRequired)
	case raw.Required != nil:
		out.IsRequired = bool(*raw.Required)
	default:
		out.IsRequired = true
	}

	switch {
	case raw.OrderIndex != nil:
		out.OrderIndex = int(*raw.OrderIndex)
	case raw.Order != nil:
		out.OrderIndex = int(*raw.Order)
	}

	cfg := FieldConfig{}
	if m, ok := raw.Config.(map[string]any); ok {
		cfg = FieldConfig(m)
	}
	if cfg.HelperText() == "" {
		if s := strings.TrimSpace(string(raw.HelpText)); s != "" {
			cfg[ConfigHelperText] = s
		} else if s := strings.TrimSpace(string(raw.Description)); s != "" {
			cfg[ConfigHelperText] = s
		}
	}
	if _, ok := cfg[ConfigOptions]; !ok && raw.Options != nil {
		cfg[ConfigOptions] = raw.Options
	}
	out.Config = cfg

	*f = out
	return nil
}

type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case nil:
		*s = ""
	case string:
		*s = looseString(t)
	default:
		*s = looseString(fmt.Sprint(t))
	}
	return nil
}

type looseBool bool

func (b *looseBool) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case bool:
		*b = looseBool(t)
	case float64:
		*b = t != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "1", "true", "yes", "on":
			*b = true
		default:
			*b = false
		}
	default:
		*b = false
	}
	return nil
}

type looseInt int

func (n *looseInt) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case float64:
		*n = looseInt(t)
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(t))
		if err == nil {
			*n = looseInt(i)
		}
	}
	return nil
}
