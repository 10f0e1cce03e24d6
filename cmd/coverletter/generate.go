package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"coverletter-backend/internal/generation"
	"coverletter-backend/internal/ingest"
	"coverletter-backend/internal/page"
	"coverletter-backend/internal/shared/config"
	"coverletter-backend/internal/shared/telemetry"
)

type generateOptions struct {
	resumePath   string
	jobPath      string
	mediaType    string
	outDir       string
	copy         bool
	generatorURL string
	verbose      bool
}

func newGenerateCmd() *cobra.Command {
	var opts generateOptions
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a cover letter and print it",
		Long:  "Extract the resume, read the job description from a file or stdin (--job -), request a cover letter and print it.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.resumePath, "resume", "r", "", "Path to the resume (PDF, DOCX or TXT)")
	cmd.Flags().StringVarP(&opts.jobPath, "job", "j", "", "Path to the job description, or - for stdin")
	cmd.Flags().StringVar(&opts.mediaType, "type", "", "Media type of the resume; detected from content when empty")
	cmd.Flags().StringVarP(&opts.outDir, "out", "o", "", "Directory to write Cover_Letter.txt into")
	cmd.Flags().BoolVar(&opts.copy, "copy", false, "Copy the letter to the system clipboard")
	cmd.Flags().StringVar(&opts.generatorURL, "generator-url", "", "Generation endpoint (overrides GENERATOR_URL)")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Log progress to stderr")
	_ = cmd.MarkFlagRequired("resume")
	_ = cmd.MarkFlagRequired("job")
	return cmd
}

func runGenerate(cmd *cobra.Command, opts generateOptions) error {
	telemetry.SetOutput(cmd.ErrOrStderr())
	if opts.verbose {
		telemetry.SetLevel("debug")
	} else {
		telemetry.SetLevel("error")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if opts.generatorURL != "" {
		cfg.GeneratorURL = opts.generatorURL
	}
	client, err := generation.NewClient(cfg.GeneratorURL, cfg.GeneratorTimeout)
	if err != nil {
		return err
	}

	file, err := readResume(opts.resumePath, opts.mediaType)
	if err != nil {
		return err
	}
	job, err := readJob(cmd.InOrStdin(), opts.jobPath)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	pg := page.NewController("cli", nil, client)
	if err := pg.IngestResume(ctx, ingest.FromPicker(file)); err != nil {
		return fmt.Errorf("%s (%w)", ingest.UserMessage(err), err)
	}
	pg.ChangeJobDescription(job)

	text, err := pg.Generate(ctx)
	if errors.Is(err, page.ErrNotReady) {
		return fmt.Errorf("resume and job description must both contain text: %w", err)
	}
	if err != nil {
		return fmt.Errorf("%s (%w)", text, err)
	}

	if _, err := fmt.Fprintln(cmd.OutOrStdout(), text); err != nil {
		return err
	}

	if opts.outDir != "" {
		export, err := pg.DownloadLetter()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(opts.outDir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		path := filepath.Join(opts.outDir, export.FileName)
		if err := os.WriteFile(path, export.Body, 0o644); err != nil {
			return fmt.Errorf("failed to write letter: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Saved %s\n", path)
	}

	if opts.copy {
		if err := pg.CopyLetter(systemClipboard{}); err != nil {
			return fmt.Errorf("failed to copy letter: %w", err)
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "Copied to clipboard")
	}
	return nil
}

func readJob(stdin io.Reader, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if strings.TrimSpace(path) == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read job description: %w", err)
	}
	return string(data), nil
}

// systemClipboard adapts github.com/atotto/clipboard to letter.Clipboard.
type systemClipboard struct{}

func (systemClipboard) WriteAll(text string) error {
	return clipboard.WriteAll(text)
}
