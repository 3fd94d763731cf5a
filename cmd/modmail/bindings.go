package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/edgard/modmail/internal/config"
	"github.com/edgard/modmail/internal/database"
)

func newBindingsCommand(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bindings",
		Short: "inspect the user to thread bindings",
	}

	countCmd := &cobra.Command{
		Use:   "count",
		Short: "print the number of bindings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), *configPath, func(ctx context.Context, store database.Store) error {
				n, err := store.CountBindings(ctx)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), n)
				return err
			})
		},
	}

	var userID int64
	var threadID int
	lookupCmd := &cobra.Command{
		Use:   "lookup",
		Short: "find the binding of a user or a thread",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if (userID == 0) == (threadID == 0) {
				return errors.New("exactly one of --user or --thread is required")
			}
			return withStore(cmd.Context(), *configPath, func(ctx context.Context, store database.Store) error {
				var b *database.Binding
				var err error
				if userID != 0 {
					b, err = store.GetBindingByUser(ctx, userID)
				} else {
					b, err = store.GetBindingByThread(ctx, threadID)
				}
				if err != nil {
					return err
				}
				if b == nil {
					return errors.New("binding not found")
				}
				return printBindings(cmd.OutOrStdout(), []database.Binding{*b})
			})
		},
	}
	lookupCmd.Flags().Int64Var(&userID, "user", 0, "user id")
	lookupCmd.Flags().IntVar(&threadID, "thread", 0, "thread id")

	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list the newest bindings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStore(cmd.Context(), *configPath, func(ctx context.Context, store database.Store) error {
				bindings, err := store.ListBindings(ctx, limit)
				if err != nil {
					return err
				}
				return printBindings(cmd.OutOrStdout(), bindings)
			})
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 50, "maximum number of bindings to print")

	cmd.AddCommand(countCmd, lookupCmd, listCmd)
	return cmd
}

func withStore(ctx context.Context, configPath string, fn func(context.Context, database.Store) error) error {
	dbCfg, err := config.LoadDatabase(configPath)
	if err != nil {
		return err
	}

	db, err := database.NewDB(dbCfg.Path)
	if err != nil {
		return err
	}
	defer database.CloseDB(db)

	return fn(ctx, database.NewStore(db, nil))
}

func printBindings(w io.Writer, bindings []database.Binding) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "USER\tTHREAD\tCREATED")
	for _, b := range bindings {
		created := "-"
		if b.CreatedAt.Valid {
			created = b.CreatedAt.Time.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%d\t%d\t%s\n", b.UserID, b.ThreadID, created)
	}
	return tw.Flush()
}
