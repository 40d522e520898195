package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/andresharpe/cute-sub002/internal/bulk"
	"github.com/andresharpe/cute-sub002/internal/input"
	"github.com/andresharpe/cute-sub002/internal/models"
	"github.com/andresharpe/cute-sub002/internal/progress"
)

// Errors that turn a finished run into a non-zero exit.
var (
	ErrCancelled      = errors.New("run cancelled before completion")
	ErrEntriesFailed  = errors.New("some entries failed")
	ErrDeleteDeclined = errors.New("delete not confirmed")
)

// contentFlags are shared by the content subcommands.
type contentFlags struct {
	contentType string
	ids         []string
	dryRun      bool
	yes         bool
	file        string
}

// newContentCmd creates the 'content' command group.
func newContentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "content",
		Short: "Bulk operations on entries",
		Long: `Bulk operations on the entries of a content type.

Commands:
  publish    - Publish drafts and changed entries
  unpublish  - Unpublish published entries
  delete     - Unpublish, then delete entries
  upsert     - Create or update entries from a file`,
	}

	cmd.AddCommand(newMutationCmd(models.Publish, "Publish drafts and changed entries",
		"Publishes every entry of the content type that is a draft or has changed since\n"+
			"its last publish, using asynchronous bulk actions. Entries the API refuses to\n"+
			"publish are reported as failures."))
	cmd.AddCommand(newMutationCmd(models.Unpublish, "Unpublish published entries",
		"Unpublishes every entry of the content type that carries a publish timestamp,\n"+
			"using asynchronous bulk actions."))
	cmd.AddCommand(newMutationCmd(models.Delete, "Unpublish, then delete entries",
		"Unpublishes published entries with bulk actions, then deletes every listed entry\n"+
			"with one call per entry. Entries whose unpublish failed are not deleted."))
	cmd.AddCommand(newMutationCmd(models.Upsert, "Create or update entries from a file",
		"Reads payloads from a JSON, YAML, CSV or TSV file and creates or updates one\n"+
			"entry per record. Records with an id and version update that entry; records\n"+
			"without an id are created."))

	return cmd
}

func newMutationCmd(kind models.MutationKind, short, long string) *cobra.Command {
	var f contentFlags

	cmd := &cobra.Command{
		Use:   kind.String(),
		Short: short,
		Long:  long,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMutation(cmd, kind, f)
		},
	}

	cmd.Flags().StringVarP(&f.contentType, "content-type", "t", "", "Content type ID")
	if kind == models.Upsert {
		cmd.Flags().StringVarP(&f.file, "file", "f", "", "Payload file (.json, .yaml, .yml, .csv, .tsv)")
		_ = cmd.MarkFlagRequired("file")
	} else {
		cmd.Flags().StringSliceVar(&f.ids, "ids", nil, "Only these entry IDs (comma-separated)")
		_ = cmd.MarkFlagRequired("content-type")
	}
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, "Report what would change without changing anything")
	if kind == models.Delete {
		cmd.Flags().BoolVarP(&f.yes, "yes", "y", false, "Do not ask for confirmation")
	}

	return cmd
}

// buildRequest turns flags into a bulk request, loading payloads for upsert.
func buildRequest(kind models.MutationKind, f contentFlags) (bulk.Request, error) {
	req := bulk.Request{
		Kind:        kind,
		ContentType: f.contentType,
		OnlyIDs:     f.ids,
		DryRun:      f.dryRun,
	}
	if kind == models.Upsert {
		payloads, err := input.LoadPayloads(f.file, f.contentType)
		if err != nil {
			return req, err
		}
		req.Payloads = payloads
	}
	return req, req.Validate()
}

func runMutation(cmd *cobra.Command, kind models.MutationKind, f contentFlags) error {
	logger := GetLogger()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = GetContext()
	}

	req, err := buildRequest(kind, f)
	if err != nil {
		return err
	}

	if kind == models.Delete && !f.dryRun && !f.yes {
		if !interactive() {
			return errors.Wrap(ErrDeleteDeclined, "use --yes to delete without a terminal")
		}
		scope := "all entries"
		if len(f.ids) > 0 {
			scope = fmt.Sprintf("%d selected entries", len(f.ids))
		}
		ok, err := newPrompter(os.Stdin, cmd.ErrOrStderr()).confirm(
			fmt.Sprintf("Delete %s of content type '%s'?", scope, f.contentType))
		if err != nil {
			return err
		}
		if !ok {
			return ErrDeleteDeclined
		}
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	rt, err := newRuntime(cfg)
	if err != nil {
		return err
	}

	ui := progress.New(os.Stderr, progressMode(), logger.Zerolog())
	if ui.IsTerminal() {
		logger.SetOutput(ui.Writer())
		defer logger.SetOutput(os.Stderr)
	}

	logger.Info().
		Str("kind", kind.String()).
		Str("content_type", f.contentType).
		Str("space", cfg.SpaceID).
		Str("environment", cfg.Environment).
		Bool("dry_run", f.dryRun).
		Msg("bulk run starting")

	report, runErr := rt.orchestrator.Run(ctx, req, ui.Handle)
	ui.Wait()

	printReport(cmd.OutOrStdout(), report)
	return runOutcome(report, runErr)
}

// printReport writes the summary and every permanent failure.
func printReport(w io.Writer, report bulk.Report) {
	fmt.Fprintln(w, report.Summary())
	for _, f := range report.Failed() {
		reason := f.Reason
		if reason == "" && f.Err != nil {
			reason = f.Err.Error()
		}
		fmt.Fprintf(w, "  failed %s: %s\n", f.ID, reason)
	}
	if final := report.Final(); report.Cancelled() && final.Pending > 0 {
		fmt.Fprintf(w, "  %d entries not processed\n", final.Pending)
	}
}

// runOutcome decides the command error for a finished run.
func runOutcome(report bulk.Report, runErr error) error {
	switch {
	case runErr != nil:
		var de *bulk.DispatchError
		if errors.As(runErr, &de) {
			return errors.Wrapf(ErrEntriesFailed, "%d of %d", len(report.Failed()), report.Final().Requested)
		}
		return runErr
	case report.Cancelled():
		return ErrCancelled
	case len(report.Failed()) > 0:
		return errors.Wrapf(ErrEntriesFailed, "%d of %d", len(report.Failed()), report.Final().Requested)
	}
	return nil
}
