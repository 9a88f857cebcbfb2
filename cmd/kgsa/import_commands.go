package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"kgsa/internal/config"
	"kgsa/internal/journal"
	"kgsa/internal/logging"
	"kgsa/internal/prompt"
	"kgsa/internal/reconcile"
	"kgsa/internal/zeraki"
)

const (
	runKindStudents = "students"
	runKindGrades   = "grades"
)

var errImportCancelled = errors.New("import cancelled")

type importFlags struct {
	file      string
	gradClass string
	dryRun    bool
	form      string
	examType  string
	examDate  string
}

func newImportCommand(ctx *commandContext) *cobra.Command {
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import a Zeraki export into Airtable",
	}
	importCmd.AddCommand(newImportStudentsCommand(ctx))
	importCmd.AddCommand(newImportGradesCommand(ctx))
	return importCmd
}

func addCommonImportFlags(cmd *cobra.Command, flags *importFlags) {
	cmd.Flags().StringVarP(&flags.file, "file", "f", "", "CSV export to import (chosen from the import directory when omitted)")
	cmd.Flags().StringVar(&flags.gradClass, "grad-class", "", "Graduation class the rows belong to")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "Walk every prompt without writing to Airtable")
}

func newImportStudentsCommand(ctx *commandContext) *cobra.Command {
	var flags importFlags
	cmd := &cobra.Command{
		Use:   "students",
		Short: "Create or update student records from a roster export",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, ctx, flags, runKindStudents)
		},
	}
	addCommonImportFlags(cmd, &flags)
	return cmd
}

func newImportGradesCommand(ctx *commandContext) *cobra.Command {
	var flags importFlags
	cmd := &cobra.Command{
		Use:   "grades",
		Short: "Create or update test score records from an exam export",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, ctx, flags, runKindGrades)
		},
	}
	addCommonImportFlags(cmd, &flags)
	cmd.Flags().StringVar(&flags.form, "form", "", "Form the exam was sat in, e.g. \"Form 4\"")
	cmd.Flags().StringVar(&flags.examType, "exam-type", "", "Exam type, e.g. \"KCSE\"")
	cmd.Flags().StringVar(&flags.examDate, "exam-date", "", "Exam date (YYYY-MM-DD)")
	return cmd
}

func runImport(cmd *cobra.Command, ctx *commandContext, flags importFlags, kind string) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	lock := flock.New(cfg.LockPath())
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire import lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another import is already running (lock %s)", cfg.LockPath())
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("failed to release import lock", logging.Error(err))
		}
	}()

	runCtx := cmd.Context()
	if runCtx == nil {
		runCtx = context.Background()
	}
	p := newPrompter(cmd)

	path, err := resolveImportFile(runCtx, p, cfg, flags.file)
	if errors.Is(err, errImportCancelled) {
		fmt.Fprintln(out, "Import cancelled.")
		return nil
	}
	if err != nil {
		return err
	}

	sheet, err := zeraki.ParseFile(path, zeraki.Options{Strict: cfg.Import.StrictHeaders})
	if err != nil {
		return err
	}
	for _, warning := range sheet.Warnings {
		logger.Warn("export cell ignored", "file", filepath.Base(path), "detail", warning)
	}
	if len(sheet.Rows) == 0 {
		fmt.Fprintf(out, "%s has no rows to import.\n", filepath.Base(path))
		return nil
	}

	store, err := ctx.store(logger)
	if err != nil {
		return err
	}

	fromName, nameErr := zeraki.ParseExamFileName(path)
	partition, err := resolvePartition(runCtx, p, store, cfg, flags.gradClass, fromName, nameErr)
	if errors.Is(err, errImportCancelled) {
		fmt.Fprintln(out, "Import cancelled.")
		return nil
	}
	if err != nil {
		return err
	}

	var exam reconcile.Exam
	if kind == runKindGrades {
		exam = resolveExam(flags, fromName, nameErr)
		if err := exam.Validate(); err != nil {
			return fmt.Errorf("%w (pass --form and --exam-type, or name the file \"C<year> - <type> - <form> - <date>.csv\")", err)
		}
	}

	dryRun := cfg.Import.DryRun
	if cmd.Flags().Changed("dry-run") {
		dryRun = flags.dryRun
	}

	return ctx.withJournal(func(j *journal.Journal) error {
		spec := journal.RunSpec{
			Kind:       kind,
			SourceFile: filepath.Base(path),
			Partition:  partition,
			DryRun:     dryRun,
		}
		if kind == runKindGrades {
			spec.Exam = exam.String()
		}
		run, err := j.BeginRun(runCtx, spec)
		if err != nil {
			return err
		}
		runLogger := logger.With(logging.FieldRunID, run.ID)
		runLogger.Info("import started",
			"kind", kind,
			"file", spec.SourceFile,
			"rows", len(sheet.Rows),
			"grad_class", partition,
			"dry_run", dryRun,
		)

		opts := []reconcile.Option{
			reconcile.WithDryRun(dryRun),
			reconcile.WithRecorder(j.Recorder(run.ID)),
			reconcile.WithLogger(runLogger),
		}
		var summary reconcile.Summary
		var runErr error
		switch kind {
		case runKindGrades:
			summary, runErr = reconcile.NewGradeReconciler(store, p, cfg.Tables.Students, cfg.Tables.Scores, opts...).
				Run(runCtx, partition, exam, sheet.Rows)
		default:
			summary, runErr = reconcile.NewStudentReconciler(store, p, cfg.Tables.Students, opts...).
				Run(runCtx, partition, sheet.Rows)
		}

		if err := j.FinishRun(context.WithoutCancel(runCtx), run.ID, summary, runErr); err != nil {
			runLogger.Warn("failed to finish journal run", logging.Error(err))
		}
		logSummary(runLogger, summary, runErr)
		fmt.Fprintln(out)
		fmt.Fprint(out, renderSummary(run.ID, kind, dryRun, summary))
		return runErr
	})
}

func resolveImportFile(ctx context.Context, p prompt.Prompter, cfg *config.Config, flagValue string) (string, error) {
	if strings.TrimSpace(flagValue) != "" {
		path, err := config.ExpandPath(flagValue)
		if err != nil {
			return "", err
		}
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("inspect export %q: %w", path, err)
		}
		return path, nil
	}

	files, err := listExports(cfg.Import.Dir)
	if err != nil {
		return "", err
	}
	if len(files) == 0 {
		return "", fmt.Errorf("no CSV exports found in %s (pass --file)", cfg.Import.Dir)
	}
	resp, err := p.Choose(ctx, fmt.Sprintf("Which export in %s should be imported?", cfg.Import.Dir), files, true)
	if err != nil {
		return "", err
	}
	if !resp.Yes() {
		return "", errImportCancelled
	}
	return filepath.Join(cfg.Import.Dir, resp.Value), nil
}

func listExports(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read import dir: %w", err)
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			continue
		}
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return names, nil
}

func resolvePartition(ctx context.Context, p prompt.Prompter, store importStore, cfg *config.Config, flagValue string, fromName zeraki.ExamFile, nameErr error) (string, error) {
	if value := strings.TrimSpace(flagValue); value != "" {
		return value, nil
	}
	if nameErr == nil && fromName.GradClass != "" {
		return fromName.GradClass, nil
	}
	choices, err := store.Choices(ctx, cfg.Tables.Students, reconcile.FieldGradClass)
	if err != nil {
		return "", fmt.Errorf("load graduation classes: %w", err)
	}
	resp, err := p.Choose(ctx, "Which graduation class are these students in?", choices, true)
	if err != nil {
		return "", err
	}
	if !resp.Yes() {
		return "", errImportCancelled
	}
	return resp.Value, nil
}

func resolveExam(flags importFlags, fromName zeraki.ExamFile, nameErr error) reconcile.Exam {
	var exam reconcile.Exam
	if nameErr == nil {
		exam = fromName.Exam
	}
	if v := strings.TrimSpace(flags.form); v != "" {
		exam.Form = v
	}
	if v := strings.TrimSpace(flags.examType); v != "" {
		exam.Type = v
	}
	if v := strings.TrimSpace(flags.examDate); v != "" {
		exam.Date = v
	}
	return exam
}

func logSummary(logger *slog.Logger, summary reconcile.Summary, runErr error) {
	attrs := []any{
		"total", summary.Total,
		"created", summary.Created,
		"updated", summary.Updated,
		"unchanged", summary.Unchanged,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"with_errors", summary.WithErrors,
	}
	switch {
	case runErr != nil:
		logger.Error("import aborted", append(attrs, logging.Error(runErr))...)
	case summary.Cancelled:
		logger.Warn("import cancelled by operator", attrs...)
	default:
		logger.Info("import finished", attrs...)
	}
}
