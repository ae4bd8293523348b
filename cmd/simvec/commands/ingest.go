package commands

import (
	"bufio"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file...]",
	Short: "Ingest records into the snapshot",
	Long: `Ingest vector records from JSONL files into the snapshot, creating it if
it does not exist.

Each line is one record:

  {"id": "doc-1", "vector": [0.1, 0.2, ...], "payload": {"title": "..."}}

With --text, each non-empty line of the input files is instead treated as a
document to embed (requires --openai-api-key).

Examples:
  simvec ingest vectors.jsonl
  simvec ingest --text docs.txt --openai-api-key $KEY`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().Bool("text", false, "treat input lines as text documents to embed")
}

type ingestRecord struct {
	ID      string    `json:"id"`
	Vector  []float32 `json:"vector"`
	Payload payload   `json:"payload"`
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	asText, _ := cmd.Flags().GetBool("text")

	db, err := openDB(ctx, true)
	if err != nil {
		return err
	}
	defer db.Close()

	total, failed := 0, 0
	for _, file := range args {
		f, err := os.Open(file)
		if err != nil {
			return err
		}

		scanner := bufio.NewScanner(f)
		scanner.Buffer(make([]byte, 0, 1024*1024), 16*1024*1024)
		line := 0
		for scanner.Scan() {
			line++
			raw := scanner.Bytes()
			if len(raw) == 0 {
				continue
			}

			var insertErr error
			if asText {
				_, insertErr = db.InsertText(ctx, "", string(raw), payload{"source": file, "line": line})
			} else {
				var rec ingestRecord
				if err := json.Unmarshal(raw, &rec); err != nil {
					insertErr = fmt.Errorf("parse: %w", err)
				} else {
					_, insertErr = db.Insert(ctx, rec.ID, rec.Vector, rec.Payload)
				}
			}

			total++
			if insertErr != nil {
				failed++
				fmt.Fprintf(os.Stderr, "%s:%d: %v\n", file, line, insertErr)
			}
		}
		closeErr := f.Close()
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("read %s: %w", file, err)
		}
		if closeErr != nil {
			return closeErr
		}
	}

	if err := saveDB(ctx, db); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	fmt.Printf("Ingested %d records (%d failed), snapshot now holds %d\n",
		total-failed, failed, db.Len())
	return nil
}
