package app

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/uc4u2/candidate-intake/internal/client"
	"github.com/uc4u2/candidate-intake/internal/models"
	"github.com/uc4u2/candidate-intake/internal/modules/forms/blueprint"
	"github.com/uc4u2/candidate-intake/internal/modules/forms/editor"
	"go.uber.org/zap"
)

// ErrUsage marks a malformed command line. The usage text has already been
// written when it is returned.
var ErrUsage = errors.New("usage error")

type command struct {
	usage string
	run   func(a *App, ctx context.Context, args []string) error
}

// commandTable lists the top-level commands.
func commandTable() map[string]command {
	return map[string]command{
		"blueprints":  {"blueprints", (*App).cmdBlueprints},
		"blueprint":   {"blueprint <profession>", (*App).cmdBlueprint},
		"templates":   {"templates [-status s] [-profession p] [-archived]", (*App).cmdTemplates},
		"draft":       {"draft <new|list|show|fields|set-fields|add-field|edit-field|move|delete-field|apply-blueprint|history|restore|publish> ...", (*App).cmdDraft},
		"render":      {"render <intake-token>", (*App).cmdRender},
		"upload":      {"upload (-token t | -submission id) -field key <file>", (*App).cmdUpload},
		"download":    {"download (-token t | -submission id) [-o path] <file-id>", (*App).cmdDownload},
		"check":       {"check <intake-token>", (*App).cmdCheck},
		"submit":      {"submit [-responses file] <intake-token>", (*App).cmdSubmit},
		"submissions": {"submissions [-status s] [-profession p]", (*App).cmdSubmissions},
	}
}

// Run executes one CLI command.
func (a *App) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		a.usage(a.errOut)
		return ErrUsage
	}
	name := args[0]
	if name == "help" || name == "-h" || name == "--help" {
		a.usage(a.out)
		return nil
	}
	cmd, ok := commandTable()[name]
	if !ok {
		fmt.Fprintf(a.errOut, "unknown command %q\n\n", name)
		a.usage(a.errOut)
		return ErrUsage
	}
	a.logger.Debug("command", zap.String("command", name))
	return cmd.run(a, ctx, args[1:])
}

func (a *App) usage(w io.Writer) {
	table := commandTable()
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Fprintln(w, "usage: intakectl [-config path] <command> [flags] [args]")
	fmt.Fprintln(w)
	for _, name := range names {
		fmt.Fprintf(w, "  %s\n", table[name].usage)
	}
}

// flagSet returns a flag set that reports errors to the error writer
// instead of exiting.
func (a *App) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

func (a *App) parse(fs *flag.FlagSet, args []string, positional int) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, ErrUsage
		}
		return nil, fmt.Errorf("%w: %v", ErrUsage, err)
	}
	rest := fs.Args()
	if len(rest) != positional {
		fmt.Fprintf(a.errOut, "%s: expected %d argument(s), got %d\n", fs.Name(), positional, len(rest))
		return nil, ErrUsage
	}
	return rest, nil
}

func (a *App) cmdBlueprints(_ context.Context, args []string) error {
	if _, err := a.parse(a.flagSet("blueprints"), args, 0); err != nil {
		return err
	}
	for _, p := range blueprint.Professions() {
		a.printf("%-20s %s\n", p.Key, p.Label)
	}
	return nil
}

func (a *App) cmdBlueprint(_ context.Context, args []string) error {
	rest, err := a.parse(a.flagSet("blueprint"), args, 1)
	if err != nil {
		return err
	}
	bp := blueprint.Get(rest[0])
	if bp == nil {
		return fmt.Errorf("profession %q: %w", rest[0], editor.ErrNoBlueprint)
	}
	return a.writeJSON(bp)
}

func (a *App) cmdTemplates(ctx context.Context, args []string) error {
	fs := a.flagSet("templates")
	status := fs.String("status", "", "only templates with this status")
	profession := fs.String("profession", "", "only templates for this profession")
	archived := fs.Bool("archived", false, "include archived templates")
	if _, err := a.parse(fs, args, 0); err != nil {
		return err
	}
	c, err := a.Client()
	if err != nil {
		return err
	}
	list, err := c.ListTemplates(ctx, client.TemplateFilter{
		Status:          models.TemplateStatus(*status),
		Profession:      *profession,
		IncludeArchived: *archived,
	})
	if err != nil {
		return err
	}
	for _, t := range list {
		a.printf("%-8s %-10s %-20s %s (%d fields)\n", t.ID, t.Status, t.ProfessionKey, t.Name, len(t.Fields))
	}
	return nil
}

func (a *App) cmdSubmissions(ctx context.Context, args []string) error {
	fs := a.flagSet("submissions")
	status := fs.String("status", "", "only submissions with this status")
	profession := fs.String("profession", "", "only submissions for this profession")
	if _, err := a.parse(fs, args, 0); err != nil {
		return err
	}
	c, err := a.Client()
	if err != nil {
		return err
	}
	list, err := c.ListSubmissions(ctx, client.SubmissionFilter{
		Status:     models.SubmissionStatus(*status),
		Profession: *profession,
	})
	if err != nil {
		return err
	}
	for _, s := range list {
		a.printf("%-8s %-12s %-24s %d file(s)\n", s.ID, s.Status, strings.TrimSpace(s.InviteName), len(s.Files))
	}
	return nil
}
