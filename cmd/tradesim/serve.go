package main

import (
	"github.com/spf13/cobra"
)

func buildServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the dashboard, the price poller and the notifiers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadApp()
			if err != nil {
				return err
			}
			defer app.Close()

			return app.Serve(cmd.Context())
		},
	}
}
