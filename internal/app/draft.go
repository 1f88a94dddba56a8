package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/uc4u2/candidate-intake/internal/models"
	"github.com/uc4u2/candidate-intake/internal/modules/drafts"
	"github.com/uc4u2/candidate-intake/internal/modules/forms/blueprint"
	"github.com/uc4u2/candidate-intake/internal/modules/forms/editor"
	"github.com/uc4u2/candidate-intake/internal/modules/forms/fields"
	"go.uber.org/zap"
)

func draftTable() map[string]command {
	return map[string]command{
		"new":             {"draft new [-from-template id] [-name n] <profession>", (*App).draftNew},
		"list":            {"draft list [-profession p]", (*App).draftList},
		"show":            {"draft show <draft-id>", (*App).draftShow},
		"fields":          {"draft fields <draft-id>", (*App).draftFields},
		"set-fields":      {"draft set-fields <draft-id> <file|->", (*App).draftSetFields},
		"add-field":       {"draft add-field -label l [field flags] <draft-id>", (*App).draftAddField},
		"edit-field":      {"draft edit-field [field flags] <draft-id> <index|key>", (*App).draftEditField},
		"move":            {"draft move <draft-id> <index|key> <up|down>", (*App).draftMove},
		"delete-field":    {"draft delete-field [-yes] <draft-id> <index|key>", (*App).draftDeleteField},
		"apply-blueprint": {"draft apply-blueprint [-profession p] [-force] <draft-id>", (*App).draftApplyBlueprint},
		"history":         {"draft history <draft-id>", (*App).draftHistory},
		"restore":         {"draft restore <draft-id> <version>", (*App).draftRestore},
		"publish":         {"draft publish <draft-id>", (*App).draftPublish},
	}
}

func (a *App) cmdDraft(ctx context.Context, args []string) error {
	table := draftTable()
	if len(args) == 0 {
		names := make([]string, 0, len(table))
		for name := range table {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(a.errOut, "  %s\n", table[name].usage)
		}
		return ErrUsage
	}
	sub, ok := table[args[0]]
	if !ok {
		fmt.Fprintf(a.errOut, "unknown draft command %q\n", args[0])
		return ErrUsage
	}
	return sub.run(a, ctx, args[1:])
}

// openDraft loads a draft and opens an editing session on it.
func (a *App) openDraft(ctx context.Context, id string) (*drafts.Service, *models.TemplateDraftModel, *editor.Session, error) {
	svc, err := a.Drafts()
	if err != nil {
		return nil, nil, nil, err
	}
	d, err := svc.Get(ctx, id)
	if err != nil {
		return nil, nil, nil, err
	}
	return svc, d, svc.Session(d), nil
}

// saveSession stores the session's fields with a schema rebuilt from them.
func (a *App) saveSession(ctx context.Context, svc *drafts.Service, id string, sess *editor.Session) (*models.TemplateDraftModel, error) {
	meta := sess.Metadata()
	defs := sess.Fields()
	return svc.Save(ctx, id, models.Template{
		ID:            meta.ID,
		ProfessionKey: meta.ProfessionKey,
		Name:          meta.Name,
		Description:   meta.Description,
		Status:        meta.Status,
		Locale:        meta.Locale,
		EmailSubject:  meta.EmailSubject,
		EmailBody:     meta.EmailBody,
		Schema:        fields.BuildSchema(meta.Name, meta.Description, sess.Schema(), defs),
		Fields:        defs,
	})
}

func (a *App) draftNew(ctx context.Context, args []string) error {
	fs := a.flagSet("draft new")
	fromTemplate := fs.String("from-template", "", "start from an existing template on the server")
	name := fs.String("name", "", "template name (defaults to the blueprint name)")
	rest, err := a.parse(fs, args, 1)
	if err != nil {
		return err
	}
	profession := fields.NormalizeKey(rest[0])

	var tpl models.Template
	switch {
	case strings.TrimSpace(*fromTemplate) != "":
		c, err := a.Client()
		if err != nil {
			return err
		}
		if tpl, err = c.GetTemplate(ctx, models.RecordID(strings.TrimSpace(*fromTemplate))); err != nil {
			return err
		}
	case blueprint.Get(profession) != nil:
		tpl = blueprint.Get(profession).Template()
	default:
		tpl = models.Template{ProfessionKey: profession, Status: models.TemplateDraft}
	}
	if tpl.ProfessionKey == "" {
		tpl.ProfessionKey = profession
	}
	if v := strings.TrimSpace(*name); v != "" {
		tpl.Name = v
	}

	svc, err := a.Drafts()
	if err != nil {
		return err
	}
	d, err := svc.Create(ctx, tpl)
	if err != nil {
		return err
	}
	a.printf("%s\n", d.ID)
	return nil
}

func (a *App) draftList(ctx context.Context, args []string) error {
	fs := a.flagSet("draft list")
	profession := fs.String("profession", "", "only drafts for this profession")
	if _, err := a.parse(fs, args, 0); err != nil {
		return err
	}
	svc, err := a.Drafts()
	if err != nil {
		return err
	}
	items, err := svc.List(ctx, *profession)
	if err != nil {
		return err
	}
	for _, d := range items {
		remote := "-"
		if d.TemplateID != nil {
			remote = *d.TemplateID
		}
		a.printf("%s  v%-3d %-20s %-8s %s\n", d.ID, d.Version, d.ProfessionKey, remote, d.Name)
	}
	return nil
}

func (a *App) draftShow(ctx context.Context, args []string) error {
	rest, err := a.parse(a.flagSet("draft show"), args, 1)
	if err != nil {
		return err
	}
	_, d, _, err := a.openDraft(ctx, rest[0])
	if err != nil {
		return err
	}
	d.History = nil
	return a.writeJSON(d)
}

func (a *App) draftFields(ctx context.Context, args []string) error {
	rest, err := a.parse(a.flagSet("draft fields"), args, 1)
	if err != nil {
		return err
	}
	_, _, sess, err := a.openDraft(ctx, rest[0])
	if err != nil {
		return err
	}
	a.printf("%s\n", sess.FieldsText())
	return nil
}

func (a *App) draftSetFields(ctx context.Context, args []string) error {
	rest, err := a.parse(a.flagSet("draft set-fields"), args, 2)
	if err != nil {
		return err
	}
	text, err := a.readArg(rest[1])
	if err != nil {
		return err
	}
	svc, _, sess, err := a.openDraft(ctx, rest[0])
	if err != nil {
		return err
	}
	if err := sess.SetFieldsText(text); err != nil {
		return err
	}
	d, err := a.saveSession(ctx, svc, rest[0], sess)
	if err != nil {
		return err
	}
	a.printf("saved %d field(s), version %d\n", len(d.Fields), d.Version)
	return nil
}

// readArg reads a file argument, or the input stream for "-".
func (a *App) readArg(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(a.in)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// fieldFlags are the dialog inputs exposed as flags.
type fieldFlags struct {
	label       *string
	key         *string
	typ         *string
	required    *bool
	placeholder *string
	helper      *string
	options     *string
	accept      *string
	maxLength   *string
}

func addFieldFlags(fs *flag.FlagSet) fieldFlags {
	return fieldFlags{
		label:       fs.String("label", "", "field label"),
		key:         fs.String("key", "", "field key (derived from the label when omitted)"),
		typ:         fs.String("type", string(models.FieldText), "field type"),
		required:    fs.Bool("required", true, "whether an answer is required"),
		placeholder: fs.String("placeholder", "", "placeholder text"),
		helper:      fs.String("helper", "", "helper text"),
		options:     fs.String("options", "", `options, one per line or separated by ";", as value or value|label`),
		accept:      fs.String("accept", "", "accepted file types for file fields"),
		maxLength:   fs.String("max-length", "", "maximum answer length for text fields"),
	}
}

// apply copies the flags that were set on the command line into the editor.
// On a new field every flag applies.
func (f fieldFlags) apply(fs *flag.FlagSet, ed *editor.FieldEditor, all bool) {
	set := map[string]bool{}
	fs.Visit(func(fl *flag.Flag) { set[fl.Name] = true })
	use := func(name string) bool { return all || set[name] }

	if set["label"] || (all && *f.label != "") {
		ed.SetLabel(*f.label)
	}
	if set["key"] {
		ed.SetKey(*f.key)
	}
	ed.Update(func(d *editor.Draft) {
		if use("type") {
			d.Type = models.FieldType(strings.ToLower(strings.TrimSpace(*f.typ)))
		}
		if use("required") {
			d.Required = *f.required
		}
		if use("placeholder") {
			d.Placeholder = *f.placeholder
		}
		if use("helper") {
			d.HelperText = *f.helper
		}
		if use("options") {
			d.OptionsText = strings.ReplaceAll(*f.options, ";", "\n")
		}
		if use("accept") {
			d.Accept = *f.accept
		}
		if use("max-length") {
			d.MaxLength = *f.maxLength
		}
	})
}

func (a *App) draftAddField(ctx context.Context, args []string) error {
	fs := a.flagSet("draft add-field")
	ff := addFieldFlags(fs)
	rest, err := a.parse(fs, args, 1)
	if err != nil {
		return err
	}
	svc, _, sess, err := a.openDraft(ctx, rest[0])
	if err != nil {
		return err
	}
	ed := sess.FieldEditor()
	if err := ed.OpenCreate(); err != nil {
		return err
	}
	ff.apply(fs, ed, true)
	return a.commitField(ctx, svc, rest[0], sess, ed)
}

func (a *App) draftEditField(ctx context.Context, args []string) error {
	fs := a.flagSet("draft edit-field")
	ff := addFieldFlags(fs)
	rest, err := a.parse(fs, args, 2)
	if err != nil {
		return err
	}
	svc, _, sess, err := a.openDraft(ctx, rest[0])
	if err != nil {
		return err
	}
	i, err := fieldIndex(sess.Fields(), rest[1])
	if err != nil {
		return err
	}
	ed := sess.FieldEditor()
	if err := ed.OpenEdit(i); err != nil {
		return err
	}
	ff.apply(fs, ed, false)
	return a.commitField(ctx, svc, rest[0], sess, ed)
}

func (a *App) commitField(ctx context.Context, svc *drafts.Service, id string, sess *editor.Session, ed *editor.FieldEditor) error {
	if _, err := ed.Commit(); err != nil {
		for input, e := range ed.Errors() {
			fmt.Fprintf(a.errOut, "  %s: %v\n", input, e)
		}
		return err
	}
	d, err := a.saveSession(ctx, svc, id, sess)
	if err != nil {
		return err
	}
	a.printf("saved %d field(s), version %d\n", len(d.Fields), d.Version)
	return nil
}

// fieldIndex resolves a position or a key to an index into defs.
func fieldIndex(defs []models.FieldDefinition, ref string) (int, error) {
	if n, err := strconv.Atoi(ref); err == nil {
		if n < 0 || n >= len(defs) {
			return 0, fmt.Errorf("field %d: %w", n, editor.ErrIndexOutOfRange)
		}
		return n, nil
	}
	key := fields.NormalizeKey(ref)
	for i, f := range defs {
		if strings.EqualFold(f.Key, key) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("no field with key %q", ref)
}

func (a *App) draftMove(ctx context.Context, args []string) error {
	rest, err := a.parse(a.flagSet("draft move"), args, 3)
	if err != nil {
		return err
	}
	svc, _, sess, err := a.openDraft(ctx, rest[0])
	if err != nil {
		return err
	}
	i, err := fieldIndex(sess.Fields(), rest[1])
	if err != nil {
		return err
	}
	ed := sess.FieldEditor()
	switch strings.ToLower(rest[2]) {
	case "up":
		ed.MoveUp(i)
	case "down":
		ed.MoveDown(i)
	default:
		fmt.Fprintf(a.errOut, "direction must be up or down, got %q\n", rest[2])
		return ErrUsage
	}
	if _, err := a.saveSession(ctx, svc, rest[0], sess); err != nil {
		return err
	}
	for _, f := range sess.Fields() {
		a.printf("%2d  %s\n", f.OrderIndex, f.Key)
	}
	return nil
}

func (a *App) draftDeleteField(ctx context.Context, args []string) error {
	fs := a.flagSet("draft delete-field")
	yes := fs.Bool("yes", false, "delete without asking")
	rest, err := a.parse(fs, args, 2)
	if err != nil {
		return err
	}
	svc, _, sess, err := a.openDraft(ctx, rest[0])
	if err != nil {
		return err
	}
	i, err := fieldIndex(sess.Fields(), rest[1])
	if err != nil {
		return err
	}
	ed := sess.FieldEditor()
	if err := ed.RequestDelete(i); err != nil {
		return err
	}
	pending, _ := ed.PendingDelete()
	if !*yes && !a.ask(fmt.Sprintf("Delete field %q (%s)?", pending.Label, pending.Key)) {
		ed.CancelDelete()
		a.printf("kept %s\n", pending.Key)
		return nil
	}
	if _, err := ed.ConfirmDelete(); err != nil {
		return err
	}
	if _, err := a.saveSession(ctx, svc, rest[0], sess); err != nil {
		return err
	}
	a.printf("deleted %s\n", pending.Key)
	return nil
}

func (a *App) draftApplyBlueprint(ctx context.Context, args []string) error {
	fs := a.flagSet("draft apply-blueprint")
	profession := fs.String("profession", "", "blueprint to apply (defaults to the draft's profession)")
	force := fs.Bool("force", false, "replace existing fields without asking")
	rest, err := a.parse(fs, args, 1)
	if err != nil {
		return err
	}
	svc, _, sess, err := a.openDraft(ctx, rest[0])
	if err != nil {
		return err
	}
	confirm := func() bool {
		return *force || a.ask("Replace the current fields with the starter template?")
	}

	var applied bool
	if p := strings.TrimSpace(*profession); p != "" {
		meta := sess.Metadata()
		meta.ProfessionKey = fields.NormalizeKey(p)
		sess.SetMetadata(meta)
	}
	applied, err = sess.ApplyDefaultBlueprint(confirm)
	if err != nil {
		return err
	}
	if !applied {
		a.printf("blueprint not applied\n")
		return nil
	}
	d, err := a.saveSession(ctx, svc, rest[0], sess)
	if err != nil {
		return err
	}
	a.printf("applied %s blueprint: %d field(s), version %d\n", d.ProfessionKey, len(d.Fields), d.Version)
	return nil
}

func (a *App) draftHistory(ctx context.Context, args []string) error {
	rest, err := a.parse(a.flagSet("draft history"), args, 1)
	if err != nil {
		return err
	}
	svc, err := a.Drafts()
	if err != nil {
		return err
	}
	history, err := svc.History(ctx, rest[0])
	if err != nil {
		return err
	}
	for _, h := range history {
		a.printf("v%-3d %s  %d field(s)  %s\n", h.Version, h.SavedAt.Format("2006-01-02 15:04:05"), len(h.Fields), h.Name)
	}
	return nil
}

func (a *App) draftRestore(ctx context.Context, args []string) error {
	rest, err := a.parse(a.flagSet("draft restore"), args, 2)
	if err != nil {
		return err
	}
	version, err := strconv.Atoi(strings.TrimPrefix(rest[1], "v"))
	if err != nil {
		fmt.Fprintf(a.errOut, "invalid version %q\n", rest[1])
		return ErrUsage
	}
	svc, err := a.Drafts()
	if err != nil {
		return err
	}
	d, err := svc.Restore(ctx, rest[0], version)
	if err != nil {
		return err
	}
	a.printf("restored v%d as version %d\n", version, d.Version)
	return nil
}

// draftPublish sends the draft to the forms API, creating the template on
// first publish and updating it afterwards.
func (a *App) draftPublish(ctx context.Context, args []string) error {
	rest, err := a.parse(a.flagSet("draft publish"), args, 1)
	if err != nil {
		return err
	}
	svc, d, sess, err := a.openDraft(ctx, rest[0])
	if err != nil {
		return err
	}
	payload, err := sess.Payload()
	if err != nil {
		return err
	}
	c, err := a.Client()
	if err != nil {
		return err
	}

	var out models.Template
	if payload.ID.IsZero() {
		out, err = c.CreateTemplate(ctx, payload)
	} else {
		out, err = c.UpdateTemplate(ctx, payload.ID, payload)
	}
	if err != nil {
		return fmt.Errorf("publish draft %s: %w", d.ID, err)
	}
	if out.ID.IsZero() {
		return errors.New("publish: server did not return a template id")
	}

	payload.ID = out.ID
	if _, err := svc.Save(ctx, d.ID, payload); err != nil {
		return err
	}
	if _, err := svc.MarkPublished(ctx, d.ID, out.ID); err != nil {
		return err
	}
	a.logger.Info("template published", zap.String("draft_id", d.ID), zap.String("template_id", out.ID.String()))
	a.printf("published template %s\n", out.ID)
	return nil
}
