package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"coverletter-backend/internal/ingest"
)

func newExtractCmd() *cobra.Command {
	var (
		resumePath string
		mediaType  string
	)
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Print the plain text extracted from a resume",
		RunE: func(cmd *cobra.Command, _ []string) error {
			file, err := readResume(resumePath, mediaType)
			if err != nil {
				return err
			}
			text, err := ingest.New(nil).Extract(cmd.Context(), file)
			if err != nil {
				if errors.Is(err, ingest.ErrUnsupportedFileType) || errors.Is(err, ingest.ErrExtractionFailure) {
					return fmt.Errorf("%s (%w)", ingest.UserMessage(err), err)
				}
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
			return err
		},
	}
	cmd.Flags().StringVarP(&resumePath, "resume", "r", "", "Path to the resume (PDF, DOCX or TXT)")
	cmd.Flags().StringVar(&mediaType, "type", "", "Media type of the resume; detected from content when empty")
	_ = cmd.MarkFlagRequired("resume")
	return cmd
}
