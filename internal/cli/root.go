// Package cli wires the assistant into cobra commands.
package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/homefix-assistant/server/internal/agent/graph"
	"github.com/homefix-assistant/server/internal/agent/repo"
)

// App builds the dependencies lazily so record commands work without
// model credentials.
type App struct {
	Records func(ctx context.Context) (*repo.Records, error)
	Runner  func(ctx context.Context, records *repo.Records) (graph.Runner, error)
}

func NewRootCommand(app *App) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "homefix",
		Short: "Home maintenance assistant",
		Long: alertTitleStyle.Render("Home Maintenance Assistant") + `

Chat about a household problem, book a technician, and review the
bookings, issues, tickets and escalations recorded along the way.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(newChatCommand(app), newRecordsCommand(app), newClearDataCommand(app))
	return rootCmd
}

func newChatCommand(app *App) *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			records, err := app.Records(ctx)
			if err != nil {
				return err
			}
			runner, err := app.Runner(ctx, records)
			if err != nil {
				return err
			}
			return NewChat(runner, records, cmd.InOrStdin(), cmd.OutOrStdout()).Run(ctx, sessionID)
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "resume the session with this id")
	return cmd
}

func newRecordsCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:       "records [bookings|issues|tickets|escalations]",
		Short:     "Print stored records as JSON",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"bookings", "issues", "tickets", "escalations"},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			records, err := app.Records(ctx)
			if err != nil {
				return err
			}

			tables := repo.Tables
			if len(args) == 1 {
				t, err := repo.ParseTable(args[0])
				if err != nil {
					return err
				}
				tables = []repo.Table{t}
			}

			out := cmd.OutOrStdout()
			for _, t := range tables {
				rows, err := records.Raw(ctx, t)
				if err != nil {
					return err
				}
				if rows == nil {
					rows = []json.RawMessage{}
				}
				b, err := json.MarshalIndent(rows, "", "  ")
				if err != nil {
					return fmt.Errorf("encode %s: %w", t, err)
				}
				if len(tables) > 1 {
					fmt.Fprintln(out, dimStyle.Render(fmt.Sprintf("%s (%d)", t, len(rows))))
				}
				fmt.Fprintln(out, string(b))
			}
			return nil
		},
	}
}

func newClearDataCommand(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "clear-data",
		Short: "Empty every record table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			records, err := app.Records(ctx)
			if err != nil {
				return err
			}
			if err := records.ClearAll(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All records cleared.")
			return nil
		},
	}
}
