package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yungbote/savestats/internal/app"
	"github.com/yungbote/savestats/internal/ingestion/pipeline"
)

var (
	processFile  string
	processKey   string
	processToken string
	processJSON  bool
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Ingest one save from local disk (--file) or object storage (--key)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireToken(processToken); err != nil {
			return err
		}
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Ingest(cmd.Context(), app.IngestRequest{
			Token:    processToken,
			FilePath: processFile,
			Key:      processKey,
		})
		if err != nil {
			return err
		}
		if processJSON {
			return writeJSON(cmd.OutOrStdout(), res)
		}
		return writeSummary(cmd.OutOrStdout(), res)
	},
}

func init() {
	rootCmd.AddCommand(processCmd)
	processCmd.Flags().StringVar(&processFile, "file", "", "path to a local save file")
	processCmd.Flags().StringVar(&processKey, "key", "", "object key of an uploaded save")
	processCmd.Flags().StringVar(&processToken, "token", "", "access token from login")
	processCmd.Flags().BoolVar(&processJSON, "json", false, "print the interchange document instead of a summary")
	processCmd.MarkFlagsMutuallyExclusive("file", "key")
	processCmd.MarkFlagsOneRequired("file", "key")
}

// writeJSON prints the interchange document for a processed file and the
// plain summary object for a skipped one.
func writeJSON(w io.Writer, res pipeline.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if res.Skipped() {
		return enc.Encode(res)
	}
	return enc.Encode(res.Interchange())
}

func writeSummary(w io.Writer, res pipeline.Result) error {
	lines := []string{
		fmt.Sprintf("outcome: %s", res.Outcome),
		fmt.Sprintf("file: %s", res.FileName),
		fmt.Sprintf("checksum: %s", res.Checksum),
	}
	if res.Skipped() {
		lines = append(lines, "file was already processed; nothing written")
	} else {
		lines = append(lines,
			fmt.Sprintf("polities processed: %d", res.PolitiesProcessed),
			fmt.Sprintf("events written: %d", res.EventsWritten),
			fmt.Sprintf("income entries written: %d", res.IncomeEntriesWritten),
		)
		if len(res.SkippedTags) > 0 {
			lines = append(lines, fmt.Sprintf("skipped polities: %s", strings.Join(res.SkippedTags, ", ")))
		}
	}
	_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
	return err
}
