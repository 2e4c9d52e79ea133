package main

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/lk2023060901/file-ingest-service/internal/pkg/workerpool"
	"github.com/lk2023060901/file-ingest-service/internal/uploader"
	"github.com/spf13/cobra"
)

type resultJSON struct {
	Path    string               `json:"path"`
	Status  string               `json:"status"`
	Message string               `json:"message"`
	File    *uploader.RemoteFile `json:"file,omitempty"`
}

func newUploadCmd(opts *rootOptions) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload files that do not yet exist on the server",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := opts.resolve()
			if err != nil {
				return err
			}
			defer r.log.Sync()

			pool, err := workerpool.New(&workerpool.Config{Workers: r.cfg.Concurrency}, r.log)
			if err != nil {
				return err
			}
			defer pool.Shutdown(5 * time.Second)

			results := uploader.UploadAll(cmd.Context(), r.operation(), args, pool)
			if err := writeResults(cmd.OutOrStdout(), results, jsonOutput, len(args) > 1); err != nil {
				return err
			}

			for _, res := range results {
				if !res.OK() {
					return errSilent
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print results as JSON")
	return cmd
}

func writeResults(w io.Writer, results []*uploader.Result, jsonOutput, withPath bool) error {
	if jsonOutput {
		out := make([]resultJSON, len(results))
		for i, res := range results {
			out[i] = resultJSON{Path: res.Path, Status: res.Status.String(), Message: res.Message, File: res.File}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	for _, res := range results {
		var err error
		if withPath {
			_, err = fmt.Fprintf(w, "%s: %s\n", res.Path, res.Message)
		} else {
			_, err = fmt.Fprintln(w, res.Message)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
