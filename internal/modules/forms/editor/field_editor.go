package editor

import (
	"strconv"
	"strings"

	"github.com/uc4u2/candidate-intake/internal/models"
	"github.com/uc4u2/candidate-intake/internal/modules/forms/fields"
	"go.uber.org/zap"
)

// ReservedKeys are captured by the booking step and may not be taken by new
// or renamed template fields.
var ReservedKeys = []string{"candidate_name", "candidate_email", "candidate_phone"}

// State is the field dialog state.
type State int

const (
	StateClosed State = iota
	StateCreating
	StateEditing
	StateValidating
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateCreating:
		return "creating"
	case StateEditing:
		return "editing"
	case StateValidating:
		return "validating"
	}
	return "unknown"
}

// Draft holds the dialog inputs as the user typed them.
type Draft struct {
	Label       string
	Key         string
	Type        models.FieldType
	Required    bool
	Placeholder string
	HelperText  string
	OptionsText string
	Accept      string
	MaxLength   string
}

// FieldEditor drives the add/edit dialog for one field at a time over a
// canonical field list. Every change to the list leaves order_index equal
// to position.
type FieldEditor struct {
	fields   []models.FieldDefinition
	reserved map[string]struct{}
	onChange func([]models.FieldDefinition)
	log      *zap.Logger

	state      State
	index      int
	draft      Draft
	initialKey string
	keyEdited  bool
	errs       ValidationErrors

	pendingDelete int
}

// Option configures a FieldEditor.
type Option func(*FieldEditor)

// WithReservedKeys replaces the default reserved key set.
func WithReservedKeys(keys ...string) Option {
	return func(e *FieldEditor) {
		e.reserved = make(map[string]struct{}, len(keys))
		for _, k := range keys {
			e.reserved[fields.NormalizeKey(k)] = struct{}{}
		}
	}
}

// WithOnChange registers a callback that receives the list after every
// committed mutation.
func WithOnChange(fn func([]models.FieldDefinition)) Option {
	return func(e *FieldEditor) { e.onChange = fn }
}

func WithLogger(log *zap.Logger) Option {
	return func(e *FieldEditor) {
		if log != nil {
			e.log = log
		}
	}
}

// NewFieldEditor starts a closed editor over defs.
func NewFieldEditor(defs []models.FieldDefinition, opts ...Option) *FieldEditor {
	e := &FieldEditor{
		fields:        fields.Renumber(defs),
		log:           zap.NewNop(),
		index:         -1,
		pendingDelete: -1,
	}
	WithReservedKeys(ReservedKeys...)(e)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Fields returns a copy of the current list.
func (e *FieldEditor) Fields() []models.FieldDefinition {
	out := make([]models.FieldDefinition, len(e.fields))
	copy(out, e.fields)
	return out
}

func (e *FieldEditor) State() State { return e.state }

// Index is the position being edited, or -1.
func (e *FieldEditor) Index() int { return e.index }

func (e *FieldEditor) Draft() Draft { return e.draft }

// Errors returns the per-input problems from the last rejected commit.
func (e *FieldEditor) Errors() ValidationErrors {
	out := make(ValidationErrors, len(e.errs))
	for k, v := range e.errs {
		out[k] = v
	}
	return out
}

// OpenCreate opens the dialog for a new field keyed field_<n+1>.
func (e *FieldEditor) OpenCreate() error {
	if e.state != StateClosed {
		return ErrInvalidTransition
	}
	key := fields.NormalizeKeyOr(fields.FallbackKey(len(e.fields)), "field")
	e.draft = Draft{Key: key, Type: models.FieldText, Required: true}
	e.initialKey = key
	e.keyEdited = false
	e.index = -1
	e.errs = nil
	e.state = StateCreating
	return nil
}

// OpenEdit loads field i into the dialog.
func (e *FieldEditor) OpenEdit(i int) error {
	if e.state != StateClosed {
		return ErrInvalidTransition
	}
	if i < 0 || i >= len(e.fields) {
		return ErrIndexOutOfRange
	}
	f := e.fields[i]
	d := Draft{
		Label:       f.Label,
		Key:         f.Key,
		Type:        f.ResolvedType(),
		Required:    f.IsRequired,
		Placeholder: f.Config.Placeholder(),
		HelperText:  f.Config.HelperText(),
		OptionsText: fields.FormatOptions(f.Config.Options()),
		Accept:      f.Config.Accept(),
	}
	if n, ok := f.Config.MaxLength(); ok {
		d.MaxLength = strconv.Itoa(n)
	}
	e.draft = d
	e.initialKey = f.Key
	e.keyEdited = true
	e.index = i
	e.errs = nil
	e.state = StateEditing
	return nil
}

// SetLabel updates the label. On a new field the key follows the label
// until it is typed by hand; an existing field keeps its key.
func (e *FieldEditor) SetLabel(label string) {
	e.draft.Label = label
	if !e.keyEdited {
		e.draft.Key = fields.NormalizeKey(label)
	}
}

// SetKey records a hand-typed key and stops the label from driving it.
func (e *FieldEditor) SetKey(key string) {
	e.draft.Key = key
	e.keyEdited = true
}

// Update applies fn to the dialog inputs. Label and key changes made here
// behave like SetLabel and SetKey.
func (e *FieldEditor) Update(fn func(d *Draft)) {
	before := e.draft
	fn(&e.draft)
	switch {
	case e.draft.Key != before.Key:
		e.keyEdited = true
	case e.draft.Label != before.Label && !e.keyEdited:
		e.draft.Key = fields.NormalizeKey(e.draft.Label)
	}
}

// Cancel closes the dialog without touching the list.
func (e *FieldEditor) Cancel() {
	e.close()
}

// Commit validates the draft and, when it passes, writes it into the list
// and closes the dialog. On failure the dialog stays open and the list is
// unchanged; the first failing rule is returned.
func (e *FieldEditor) Commit() ([]models.FieldDefinition, error) {
	if e.state != StateCreating && e.state != StateEditing {
		return nil, ErrInvalidTransition
	}
	back := e.state
	e.state = StateValidating

	key, errs := e.validate()
	if len(errs) > 0 {
		e.errs = errs
		e.state = back
		err := errs.first()
		e.log.Debug("field rejected", zap.String("key", key), zap.Error(err))
		return nil, err
	}

	d := e.draft
	typ := d.Type
	if typ == "" {
		typ = models.FieldText
	}
	field := models.FieldDefinition{
		Key:        key,
		Label:      strings.TrimSpace(d.Label),
		Type:       typ,
		FieldType:  typ,
		IsRequired: d.Required,
		Config:     buildConfig(d, typ),
	}

	next := make([]models.FieldDefinition, 0, len(e.fields)+1)
	next = append(next, e.fields...)
	if e.index >= 0 {
		field.ID = next[e.index].ID
		field.Section = next[e.index].Section
		next[e.index] = field
	} else {
		next = append(next, field)
	}

	e.apply(next)
	e.close()
	return e.Fields(), nil
}

func (e *FieldEditor) validate() (string, ValidationErrors) {
	errs := ValidationErrors{}
	d := e.draft

	if strings.TrimSpace(d.Label) == "" {
		errs[InputLabel] = ErrLabelRequired
	}

	// NormalizeKey output always has the canonical key pattern.
	key := fields.NormalizeKey(d.Key)
	switch {
	case key == "":
		errs[InputKey] = ErrKeyRequired
	case e.keyTaken(key):
		errs[InputKey] = &fields.DuplicateKeyError{Key: key}
	case e.isReserved(key) && key != e.initialKey:
		errs[InputKey] = &ReservedKeyError{Key: key}
	}

	if d.Type.RequiresOptions() && len(fields.ParseOptions(d.OptionsText)) == 0 {
		errs[InputOptions] = ErrMissingOptions
	}
	return key, errs
}

func (e *FieldEditor) keyTaken(key string) bool {
	for i, f := range e.fields {
		if i != e.index && strings.EqualFold(f.Key, key) {
			return true
		}
	}
	return false
}

func (e *FieldEditor) isReserved(key string) bool {
	_, ok := e.reserved[key]
	return ok
}

// buildConfig keeps only the settings that apply to the field type.
func buildConfig(d Draft, typ models.FieldType) models.FieldConfig {
	cfg := models.FieldConfig{}
	if v := strings.TrimSpace(d.Placeholder); v != "" && typ.SupportsPlaceholder() {
		cfg[models.ConfigPlaceholder] = v
	}
	if v := strings.TrimSpace(d.HelperText); v != "" {
		cfg[models.ConfigHelperText] = v
	}
	if typ.RequiresOptions() {
		if opts := fields.ParseOptions(d.OptionsText); len(opts) > 0 {
			cfg[models.ConfigOptions] = opts
		}
	}
	if v := strings.TrimSpace(d.Accept); v != "" && typ == models.FieldFile {
		cfg[models.ConfigAccept] = v
	}
	if typ.SupportsMaxLength() {
		if n, err := strconv.Atoi(strings.TrimSpace(d.MaxLength)); err == nil && n > 0 {
			cfg[models.ConfigMaxLength] = n
		}
	}
	return cfg
}

// MoveUp swaps field i with the one above it. Out of range is a no-op.
func (e *FieldEditor) MoveUp(i int) []models.FieldDefinition {
	return e.swap(i, i-1)
}

// MoveDown swaps field i with the one below it. Out of range is a no-op.
func (e *FieldEditor) MoveDown(i int) []models.FieldDefinition {
	return e.swap(i, i+1)
}

func (e *FieldEditor) swap(i, j int) []models.FieldDefinition {
	if i < 0 || j < 0 || i >= len(e.fields) || j >= len(e.fields) {
		return e.Fields()
	}
	next := e.Fields()
	next[i], next[j] = next[j], next[i]
	e.apply(next)
	return e.Fields()
}

// RequestDelete marks field i for deletion. Nothing is removed until
// ConfirmDelete.
func (e *FieldEditor) RequestDelete(i int) error {
	if i < 0 || i >= len(e.fields) {
		return ErrIndexOutOfRange
	}
	e.pendingDelete = i
	return nil
}

// PendingDelete returns the field awaiting delete confirmation.
func (e *FieldEditor) PendingDelete() (models.FieldDefinition, bool) {
	if e.pendingDelete < 0 || e.pendingDelete >= len(e.fields) {
		return models.FieldDefinition{}, false
	}
	return e.fields[e.pendingDelete], true
}

// ConfirmDelete removes the pending field.
func (e *FieldEditor) ConfirmDelete() ([]models.FieldDefinition, error) {
	i := e.pendingDelete
	if i < 0 || i >= len(e.fields) {
		e.pendingDelete = -1
		return nil, ErrNoPendingDelete
	}
	next := make([]models.FieldDefinition, 0, len(e.fields)-1)
	next = append(next, e.fields[:i]...)
	next = append(next, e.fields[i+1:]...)
	e.pendingDelete = -1
	e.apply(next)
	e.log.Debug("field deleted", zap.Int("index", i))
	return e.Fields(), nil
}

func (e *FieldEditor) CancelDelete() {
	e.pendingDelete = -1
}

func (e *FieldEditor) apply(next []models.FieldDefinition) {
	e.fields = fields.NormalizeFields(next, nil).Fields
	if e.onChange != nil {
		e.onChange(e.Fields())
	}
}

func (e *FieldEditor) close() {
	e.state = StateClosed
	e.index = -1
	e.draft = Draft{}
	e.initialKey = ""
	e.keyEdited = false
	e.errs = nil
}
