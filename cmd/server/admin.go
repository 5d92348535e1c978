package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/iliyamo/parish-booking/internal/config"
	"github.com/iliyamo/parish-booking/internal/database"
	"github.com/iliyamo/parish-booking/internal/model"
	"github.com/iliyamo/parish-booking/internal/utils"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			db, err := database.Open(cfg.DBDriver, cfg.DSN())
			if err != nil {
				return err
			}
			defer db.Close()
			if err := database.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			fmt.Printf("%s schema applied (%s)\n", color.New(color.FgGreen).Sprint("✓"), cfg.DBDriver)
			return nil
		},
	}
}

func tokenCmd() *cobra.Command {
	var (
		sub, role, secret string
		ttl               int
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a development access token",
		Long: `Mint an access token signed with JWT_SECRET, valid for ACCESS_TOKEN_TTL_MIN minutes.
In production tokens are issued by the account service; use this for local testing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			tc, err := config.LoadTokenConfig()
			if err != nil {
				return err
			}
			if secret == "" {
				secret = tc.JWTSecret
			}
			if !cmd.Flags().Changed("ttl") {
				ttl = tc.AccessTTLMin
			}
			if secret == "" {
				return fmt.Errorf("JWT_SECRET is not set (or pass --secret)")
			}
			if ttl <= 0 {
				return fmt.Errorf("--ttl must be positive")
			}
			if role != model.RoleParishioner && role != model.RoleStaff {
				return fmt.Errorf("role must be %s or %s", model.RoleParishioner, model.RoleStaff)
			}
			tok, err := utils.NewAccessToken(secret, sub, role, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stderr, "%s %s as %s, expires %s\n",
				color.New(color.FgYellow).Sprint("dev token"), sub, role, tok.Exp.Format("2006-01-02 15:04 MST"))
			fmt.Println(tok.Token)
			return nil
		},
	}
	cmd.Flags().StringVar(&sub, "sub", "", "subject (account id)")
	cmd.Flags().StringVar(&role, "role", model.RoleParishioner, "PARISHIONER or STAFF")
	cmd.Flags().StringVar(&secret, "secret", "", "signing secret (default $JWT_SECRET)")
	cmd.Flags().IntVar(&ttl, "ttl", 0, "lifetime in minutes (default $ACCESS_TOKEN_TTL_MIN)")
	_ = cmd.MarkFlagRequired("sub")
	return cmd
}
