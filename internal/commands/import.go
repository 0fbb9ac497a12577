package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cleared-dev/ledger/internal/importer"
)

func newImportCommand(opts *globalOptions) *cobra.Command {
	var format, dir string

	cmd := &cobra.Command{
		Use:   "import [file.csv...]",
		Short: "Post every row of one or more CSV files",
		Long: "Post every row of one or more CSV files. Each row is posted as its own\n" +
			"transaction; failing rows are reported and the rest are still posted.\n" +
			"Without arguments, CSV files in <dir>/import are imported and moved to\n" +
			"<dir>/import/processed when every row was posted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			parser := importer.DefaultRegistry().Get(format)
			if parser == nil {
				return fmt.Errorf("unknown import format %q", format)
			}

			ctx := cmd.Context()
			a, err := openApp(ctx, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			files := args
			scanned := len(args) == 0
			if scanned {
				infos, err := importer.Scan(dir)
				if err != nil {
					return err
				}
				for _, fi := range infos {
					files = append(files, fi.Path)
				}
				if len(files) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing to import")
					return nil
				}
			}

			imp := importer.New(a.db, a.journal, a.retry, a.log)
			out := cmd.OutOrStdout()
			failed := 0
			for _, path := range files {
				reqs, err := parseFile(parser, path)
				if err != nil {
					return err
				}

				res := imp.Run(ctx, reqs)
				fmt.Fprintf(out, "%s: posted %d, failed %d\n", filepath.Base(path), len(res.Posted), len(res.Failed))
				for _, f := range res.Failed {
					fmt.Fprintf(out, "  %v\n", describe(f))
				}
				failed += len(res.Failed)

				if scanned && len(res.Failed) == 0 {
					if err := importer.MarkProcessed(dir, filepath.Base(path)); err != nil {
						a.log.Warn("could not move imported file", zap.String("file", path), zap.Error(err))
					}
				}
			}

			if failed > 0 {
				return fmt.Errorf("%d rows failed", failed)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "ledger", "file format (ledger, ledger-semicolon)")
	cmd.Flags().StringVar(&dir, "dir", ".", "directory containing import/ when no files are given")
	return cmd
}

func parseFile(p importer.Parser, path string) ([]importer.PostingRequest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	reqs, err := p.Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return reqs, nil
}
