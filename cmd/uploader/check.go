package main

import (
	"fmt"
	"net/http"

	"github.com/lk2023060901/file-ingest-service/internal/uploader"
	"github.com/spf13/cobra"
)

func newCheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check <file>",
		Short: "Report whether a file with the same name already exists on the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := opts.resolve()
			if err != nil {
				return err
			}
			defer r.log.Sync()

			client, err := uploader.NewClient(r.cfg.Endpoint, &http.Client{Timeout: r.cfg.Timeout})
			if err != nil {
				return err
			}

			exists, err := client.Exists(cmd.Context(), args[0])
			if err != nil {
				r.log.Debug(err.Error())
				return fmt.Errorf("%s", uploader.MsgCheckFailed)
			}
			if exists {
				fmt.Fprintln(cmd.OutOrStdout(), "exists")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "not found")
			}
			return nil
		},
	}
}
