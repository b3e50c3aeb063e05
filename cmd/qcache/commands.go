package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/goliatone/go-query-cache/internal/model"
	"github.com/goliatone/go-query-cache/querycache"
	"github.com/spf13/cobra"
)

func pingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check the database and cache connections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			return withApp(ctx, func(a *app) error {
				if err := a.db.PingContext(ctx); err != nil {
					return fmt.Errorf("database: %w", err)
				}
				if err := a.container.Store().Ping(ctx); err != nil {
					return fmt.Errorf("cache: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "ok")
				return nil
			})
		},
	}
}

func usersCmd() *cobra.Command {
	var (
		name    string
		tag     string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "users",
		Short: "List users by name through the query cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			switch {
			case noCache:
				ctx = querycache.WithoutCache(ctx)
			case tag != "":
				ctx = querycache.WithCache(ctx, querycache.Tag(tag))
			default:
				ctx = querycache.WithCache(ctx)
			}

			return withApp(ctx, func(a *app) error {
				users, err := querycache.Select[model.User](ctx, a.container.Cache(), model.ByName(a.db, name))
				if err != nil {
					return err
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tNAME\tEMAIL\tAGE")
				for _, u := range users {
					age := "-"
					if u.Age != nil {
						age = fmt.Sprint(*u.Age)
					}
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", u.ID, u.Name, u.Email, age)
				}
				return w.Flush()
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "test", "User name to match")
	cmd.Flags().StringVar(&tag, "tag", "", "Store the result under this tag")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Bypass the cache")
	return cmd
}

func invalidateCmd() *cobra.Command {
	var tags []string

	cmd := &cobra.Command{
		Use:   "invalidate",
		Short: "Drop cached reads stored under a tag",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(tags) == 0 {
				return fmt.Errorf("at least one --tag is required")
			}
			ctx := cmd.Context()
			return withApp(ctx, func(a *app) error {
				// Table keys are indexed per process, so only tags reach entries
				// stored by other runs.
				if err := a.container.Cache().Invalidate(ctx, querycache.Mutation{Tags: tags}); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "invalidated %d tags\n", len(tags))
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Tag to invalidate (repeatable)")
	return cmd
}
