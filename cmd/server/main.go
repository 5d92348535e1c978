package main // parishd: the parish sacrament booking service

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/iliyamo/parish-booking/internal/config"
)

func main() {
	config.LoadDotEnv() // .env is optional; real environment variables win

	rootCmd := &cobra.Command{
		Use:   "parishd",
		Short: "Parish sacrament booking service",
		Long: `parishd serves the wedding and baptism booking API.
Parishioners submit a date, staff confirm or decline it and attach review comments.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
