package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"leadmail/internal/adapters/email"
	"leadmail/internal/adapters/http/perf"
	"leadmail/internal/app"
	"leadmail/internal/application/orchestrators"
	"leadmail/internal/application/projections"
	"leadmail/internal/config"
	emailDomain "leadmail/internal/domain/email"
	"leadmail/internal/domain/lead"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "leadmail",
		Short:         "Import lead files and send individualized campaign email",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newParseCmd(), newSendCmd(), newGenerateCmd())
	return root
}

// loadConfig reads the environment and installs the process logger on stderr.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	slog.SetDefault(app.NewLogger(cfg, cmd.ErrOrStderr()))
	return cfg, nil
}

// progressLogger reports row batches while a large file is processed.
type progressLogger struct {
	file string
}

// OnBatch implements lead.Observer.
func (p progressLogger) OnBatch(batch, first, last int) {
	slog.Debug("leads_import_progress", "file", p.file, "batch", batch, "first_row", first, "last_row", last)
}

func importFile(ctx context.Context, cfg config.Config, path string) (lead.Result, error) {
	return orchestrators.ExecuteImportLeads(ctx, orchestrators.ImportLeadsInput{
		Name:        path,
		MaxFileSize: cfg.MaxFileSize,
		Observer:    progressLogger{file: path},
	}, orchestrators.ImportLeadsDeps{})
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newParseCmd() *cobra.Command {
	var (
		asJSON bool
		sample int
	)
	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Validate and deduplicate a CSV, XLSX or XLS lead file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			res, err := importFile(cmd.Context(), cfg, args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), res)
			}
			printSummary(cmd.OutOrStdout(), projections.QueryGetImportSummary(projections.GetImportSummaryQuery{
				Result:     res,
				SampleSize: sample,
			}))
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the full processing result as JSON")
	cmd.Flags().IntVar(&sample, "sample", projections.DefaultSampleSize, "records and errors to show per section")
	return cmd
}

func printSummary(w io.Writer, s projections.ImportSummary) {
	m := s.Metadata
	fmt.Fprintf(w, "Total rows:         %d\n", m.TotalRows)
	fmt.Fprintf(w, "Valid emails:       %d\n", m.ValidEmails)
	fmt.Fprintf(w, "Invalid emails:     %d\n", m.InvalidEmails)
	fmt.Fprintf(w, "Duplicates removed: %d\n", m.DuplicatesRemoved)
	fmt.Fprintf(w, "Empty rows:         %d\n", s.EmptyRows)
	for _, g := range s.ErrorGroups {
		fmt.Fprintf(w, "\n%s (%d)\n", g.Reason, g.Count)
		for _, e := range g.Samples {
			fmt.Fprintf(w, "  row %d %s\n", e.Row, e.Email)
		}
	}
	if len(s.SampleRecords) > 0 {
		fmt.Fprintln(w, "\nSample records:")
		for _, r := range s.SampleRecords {
			b, _ := json.Marshal(r)
			fmt.Fprintf(w, "  %s\n", b)
		}
	}
}

type sendOptions struct {
	subject  string
	text     string
	html     string
	campaign string
	from     string
	generate bool
	dryRun   bool
	retry    bool
}

func newSendCmd() *cobra.Command {
	var opts sendOptions
	cmd := &cobra.Command{
		Use:   "send <file>",
		Short: "Import a lead file, personalize the template per lead and dispatch in batches",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runSend(cmd, cfg, args[0], opts)
		},
	}
	cmd.Flags().StringVar(&opts.subject, "subject", "", "subject template, e.g. \"Hello {{firstName}}\"")
	cmd.Flags().StringVar(&opts.text, "text", "", "plain-text body template")
	cmd.Flags().StringVar(&opts.html, "html", "", "HTML body template")
	cmd.Flags().StringVar(&opts.campaign, "campaign", "", "campaign tag attached to every message")
	cmd.Flags().StringVar(&opts.from, "from", "", "sender address (defaults to LEADMAIL_FROM)")
	cmd.Flags().BoolVar(&opts.generate, "generate", false, "write each message with the content generator instead of a template")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "run the whole pipeline against the noop sender")
	cmd.Flags().BoolVar(&opts.retry, "retry", false, "re-send failed messages once after the run")
	cmd.MarkFlagsMutuallyExclusive("generate", "subject")
	return cmd
}

func runSend(cmd *cobra.Command, cfg config.Config, path string, opts sendOptions) error {
	ctx := cmd.Context()
	collector := perf.NewCollector(perf.DefaultRingSize)

	res, err := importFile(ctx, cfg, path)
	if err != nil {
		return err
	}

	var messages []emailDomain.Message
	if opts.generate {
		gen, err := app.NewGenerator(ctx, cfg, collector)
		if err != nil {
			return err
		}
		out, err := orchestrators.ExecuteGenerateMessages(ctx, orchestrators.GenerateMessagesInput{Records: res.Data},
			orchestrators.GenerateEmailDeps{Generator: gen, Brand: cfg.Brand})
		if err != nil {
			return err
		}
		messages = out.Messages
	} else {
		out, err := orchestrators.ExecuteComposeMessages(ctx, orchestrators.ComposeInput{
			Records:  res.Data,
			Template: emailDomain.Template{Subject: opts.subject, Text: opts.text, HTML: opts.html},
			Campaign: opts.campaign,
		})
		if err != nil {
			return err
		}
		messages = out.Messages
	}
	if len(messages) == 0 {
		return fmt.Errorf("%s: no addressable leads", path)
	}

	var sender email.Sender
	if opts.dryRun {
		sender = email.NewTimedSender(email.NewNoopSender(), config.ProviderNoop, collector)
	} else if sender, err = app.NewSender(cfg, collector); err != nil {
		return err
	}

	from := opts.from
	if from == "" {
		from = cfg.From
	}
	input := orchestrators.DispatchInput{
		From:            from,
		ReplyTo:         cfg.ReplyTo,
		BatchSize:       cfg.BatchSize,
		InterBatchDelay: cfg.BatchDelay,
	}
	deps := orchestrators.DispatchDeps{EmailSender: sender, UnsubscribeURL: cfg.UnsubscribeURL}

	input.Messages = messages
	result, err := orchestrators.ExecuteDispatchIndividually(ctx, input, deps)
	if err != nil {
		return err
	}
	if opts.retry && result.Failed > 0 {
		input.Messages = orchestrators.FailedMessages(messages, result)
		retried, err := orchestrators.ExecuteDispatchIndividually(ctx, input, deps)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Retried %d: %d succeeded\n", len(input.Messages), retried.Successful)
		result = mergeRetry(result, retried)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Sent %d emails, %d failed\n", result.Successful, result.Failed)
	for _, d := range result.Details {
		if d.Status == emailDomain.StatusError {
			fmt.Fprintf(w, "  %s: %s\n", d.Recipient, d.Error)
		}
	}
	return nil
}

// mergeRetry replaces the failed details of first with the retry outcomes, in order.
// PRE: retry covers exactly the failed details of first, in the same order
// INVARIANT: Successful + Failed == len(Details)
func mergeRetry(first, retry emailDomain.DispatchResult) emailDomain.DispatchResult {
	merged := emailDomain.DispatchResult{Details: make([]emailDomain.DispatchDetail, 0, len(first.Details))}
	next := 0
	for _, d := range first.Details {
		if d.Status == emailDomain.StatusError && next < len(retry.Details) {
			d = retry.Details[next]
			next++
		}
		if d.Status == emailDomain.StatusSuccess {
			merged.Successful++
		} else {
			merged.Failed++
		}
		merged.Details = append(merged.Details, d)
	}
	return merged
}

func newGenerateCmd() *cobra.Command {
	var fields []string
	cmd := &cobra.Command{
		Use:     "generate",
		Short:   "Print generated email copy for one lead",
		Example: "  leadmail generate --field name=Jo --field company=Acme --field email=jo@acme.com",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			parsed, err := parseFields(fields)
			if err != nil {
				return err
			}
			gen, err := app.NewGenerator(cmd.Context(), cfg, nil)
			if err != nil {
				return err
			}
			content := orchestrators.ExecuteGenerateEmail(cmd.Context(), orchestrators.GenerateEmailInput{Fields: parsed},
				orchestrators.GenerateEmailDeps{Generator: gen, Brand: cfg.Brand})
			return writeJSON(cmd.OutOrStdout(), content)
		},
	}
	cmd.Flags().StringArrayVar(&fields, "field", nil, "lead field as key=value (repeatable)")
	return cmd
}

// parseFields turns key=value flags into a field map; a repeated key keeps the last value.
func parseFields(pairs []string) (map[string]string, error) {
	fields := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid --field %q: want key=value", p)
		}
		fields[k] = strings.TrimSpace(v)
	}
	return fields, nil
}
