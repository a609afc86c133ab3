package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/Kyoronginus/accountlink/internal/adapters/dynamo"
	"github.com/Kyoronginus/accountlink/internal/bootstrap"
	"github.com/Kyoronginus/accountlink/internal/devseed"
	"github.com/Kyoronginus/accountlink/internal/domain/account"
	"github.com/Kyoronginus/accountlink/internal/domain/linking"
	"github.com/Kyoronginus/accountlink/internal/service"
)

func newMigrateCmd(cmdCtx *commandContext) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run PostgreSQL migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			db, err := bootstrap.ConnectDB(ctx, cmdCtx.Config.Postgres, cmdCtx.Logger)
			if err != nil {
				return fmt.Errorf("connect db: %w", err)
			}
			defer func() {
				if closeErr := db.Close(); closeErr != nil {
					cmdCtx.Logger.Warn("db close failed", "error", closeErr)
				}
			}()

			cmdCtx.Logger.Info("running database migrations")
			if err := bootstrap.RunMigrations(ctx, db, cmdCtx.Logger); err != nil {
				return err
			}
			cmdCtx.Logger.Info("migrations completed successfully")
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "maximum time to wait for migrations")
	return cmd
}

func newEnsureTableCmd(cmdCtx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ensure-table",
		Short: "Create the DynamoDB accounts table and email index if missing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := cmdCtx.Config
			if cfg.DynamoDB.TableName == "" {
				return errors.New("DYNAMODB_TABLE_NAME is required")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), defaultCommandTimeout)
			defer cancel()

			awsCfg, err := bootstrap.LoadAWSConfig(ctx, cfg.AWS)
			if err != nil {
				return err
			}
			client := bootstrap.NewDynamoDBClient(awsCfg, cfg.AWS)
			created, err := dynamo.EnsureTable(ctx, client, cfg.DynamoDB.TableName, cfg.DynamoDB.EmailIndex)
			if err != nil {
				return err
			}
			state := "exists"
			if created {
				state = "created"
			}
			return writef(cmd.OutOrStdout(), "table %s %s\n", cfg.DynamoDB.TableName, state)
		},
	}
}

func newAccountCmd(cmdCtx *commandContext) *cobra.Command {
	cmd := &cobra.Command{Use: "account", Short: "Inspect accounts"}

	var email, id string
	show := &cobra.Command{
		Use:   "show",
		Short: "Print one account by --email or --id",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), defaultCommandTimeout)
			defer cancel()
			return cmdCtx.withAdmin(ctx, func(admin *service.AccountAdminService) error {
				var (
					acct *account.Account
					err  error
				)
				if id != "" {
					acct, err = admin.GetByID(ctx, id)
				} else {
					acct, err = admin.GetByEmail(ctx, email)
				}
				if err != nil {
					return err
				}
				return printAccount(cmd.OutOrStdout(), acct)
			})
		},
	}
	show.Flags().StringVar(&email, "email", "", "account email")
	show.Flags().StringVar(&id, "id", "", "account id")
	show.MarkFlagsOneRequired("email", "id")
	show.MarkFlagsMutuallyExclusive("email", "id")

	cmd.AddCommand(show)
	return cmd
}

func newDecideCmd(cmdCtx *commandContext) *cobra.Command {
	var email, provider, phase string
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "decide",
		Short: "Evaluate the linking policy for an email and provider without writing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := account.ParseProvider(provider)
			if err != nil {
				return err
			}
			ph, err := linking.ParsePhase(phase)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), defaultCommandTimeout)
			defer cancel()
			return cmdCtx.withLinking(ctx, func(linker *service.LinkingService) error {
				d, _, err := linker.Evaluate(ctx, email, p, ph)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), d)
				}
				return printDecision(cmd.OutOrStdout(), d)
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address to resolve")
	cmd.Flags().StringVar(&provider, "provider", "", "requesting provider (email, google, facebook, oauth)")
	cmd.Flags().StringVar(&phase, "phase", "login", "registration or login")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the decision as JSON")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("provider")
	return cmd
}

func newLinkCmd(cmdCtx *commandContext) *cobra.Command {
	var id, provider string
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Add a provider to an account's linked methods",
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := account.ParseProvider(provider)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), defaultCommandTimeout)
			defer cancel()
			return cmdCtx.withAdmin(ctx, func(admin *service.AccountAdminService) error {
				acct, err := admin.LinkMethod(ctx, id, p)
				if err != nil {
					return err
				}
				cmdCtx.Logger.Info("linked method", "account_id", acct.ID, "provider", p)
				return printAccount(cmd.OutOrStdout(), acct)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "account id")
	cmd.Flags().StringVar(&provider, "provider", "", "provider to link")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("provider")
	return cmd
}

func newSeedCmd(cmdCtx *commandContext) *cobra.Command {
	var allowProd bool
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create demo accounts for local development",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmdCtx.Config.IsDev && !allowProd {
				return errors.New("refusing to seed outside dev mode; pass --allow-non-dev to override")
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), defaultCommandTimeout)
			defer cancel()
			store, release, err := cmdCtx.OpenStore(ctx)
			if err != nil {
				return err
			}
			defer release()
			return devseed.Run(ctx, store, cmdCtx.Logger, time.Now())
		},
	}
	cmd.Flags().BoolVar(&allowProd, "allow-non-dev", false, "seed even when DEV is not set")
	return cmd
}

func printAccount(w io.Writer, acct *account.Account) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	rows := [][2]string{
		{"ID", acct.ID},
		{"Email", acct.Email},
		{"Name", acct.Name},
		{"Primary", acct.PrimaryAuthMethod.String()},
		{"Linked", fmt.Sprint(acct.LinkedAuthMethods.Strings())},
		{"Created", acct.CreatedAt.Format(time.RFC3339)},
		{"Updated", acct.UpdatedAt.Format(time.RFC3339)},
	}
	for _, r := range rows {
		if _, err := fmt.Fprintf(tw, "%s:\t%s\n", r[0], r[1]); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func printDecision(w io.Writer, d linking.Decision) error {
	if err := writef(w, "Action:  %s\nReason:  %s\n", d.Action, d.Reason); err != nil {
		return err
	}
	if d.AccountID != "" {
		if err := writef(w, "Account: %s\n", d.AccountID); err != nil {
			return err
		}
	}
	if d.ShouldLinkMethod {
		if err := writef(w, "Links:   %s\n", d.Provider); err != nil {
			return err
		}
	}
	if d.Message != "" {
		return writef(w, "Message: %s\n", d.Message)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}
