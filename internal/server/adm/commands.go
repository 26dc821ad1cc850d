package adm

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/codereg/internal/server/auth"
	"github.com/dmitrijs2005/codereg/internal/server/models"
	"github.com/spf13/cobra"
)

// NewMigrateCommand creates the migrate command.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "migrate",
		Short:        "Apply pending schema migrations",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withBackend(cmd.Context(), func(b Backend) error {
				if err := b.Migrate(cmd.Context()); err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
				return rootOpts.print(cmd.OutOrStdout(), "migrations applied", map[string]bool{"migrated": true})
			})
		},
	}
}

// NewReindexCommand creates the reindex command.
func NewReindexCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Push every approved record to the search index",
		Long: `Push the approved snapshot of every circulating record to the search index.

Hidden and deleted records are skipped. Records that fail to index are
reported and the command exits non-zero; the rest are still indexed.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withBackend(cmd.Context(), func(b Backend) error {
				n, err := b.Reindex(cmd.Context())
				if perr := rootOpts.print(cmd.OutOrStdout(), fmt.Sprintf("%d records indexed", n),
					map[string]int{"indexed": n}); perr != nil {
					return perr
				}
				if err != nil {
					return fmt.Errorf("reindex: %w", err)
				}
				return nil
			})
		},
	}
}

// NewAllocateCommand creates the allocate command.
func NewAllocateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "allocate",
		Short:        "Reserve the next DOI outside any record transition",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rootOpts.withBackend(cmd.Context(), func(b Backend) error {
				doi, err := b.Allocate(cmd.Context())
				if err != nil {
					return fmt.Errorf("allocate: %w", err)
				}
				return rootOpts.print(cmd.OutOrStdout(), doi, map[string]string{"doi": doi})
			})
		},
	}
}

type tokenOptions struct {
	user  string
	site  string
	roles []string
	ttl   time.Duration
}

// NewTokenCommand creates the token command. It needs no database.
func NewTokenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &tokenOptions{}

	cmd := &cobra.Command{
		Use:          "token",
		Short:        "Issue an access token for a principal",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.user == "" {
				return fmt.Errorf("--user is required")
			}
			p := models.Principal{UserID: opts.user, Site: opts.site, Roles: opts.roles}
			token, err := auth.GenerateToken(p, []byte(rootOpts.config.SecretKey), opts.ttl)
			if err != nil {
				return fmt.Errorf("token: %w", err)
			}
			return rootOpts.print(cmd.OutOrStdout(), token, map[string]string{"access_token": token})
		},
	}

	cmd.Flags().StringVarP(&opts.user, "user", "u", "", "user id")
	cmd.Flags().StringVarP(&opts.site, "site", "s", "", "home site code")
	cmd.Flags().StringSliceVarP(&opts.roles, "role", "r", nil, "role to grant (repeatable)")
	cmd.Flags().DurationVar(&opts.ttl, "ttl", time.Hour, "token validity")

	return cmd
}
