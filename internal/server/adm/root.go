// Package adm implements registryadm, the operator tool for the registry:
// schema migration, batch re-indexing, manual DOI allocation and access token
// issuance.
package adm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"

	"github.com/dmitrijs2005/codereg/internal/logging"
	"github.com/dmitrijs2005/codereg/internal/server"
	"github.com/dmitrijs2005/codereg/internal/server/config"
	"github.com/spf13/cobra"
)

// Backend is the slice of the registry the admin commands drive.
type Backend interface {
	Migrate(ctx context.Context) error
	Reindex(ctx context.Context) (int, error)
	Allocate(ctx context.Context) (string, error)
	Close() error
}

// OpenFunc connects a Backend for cfg.
type OpenFunc func(ctx context.Context, cfg *config.Config) (Backend, error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	DSN        string
	Format     string // "json" | "text"

	config *config.Config
	open   OpenFunc
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the registryadm root command backed by the
// PostgreSQL registry.
func NewRootCommand() *cobra.Command {
	return newRootCommand(openCore)
}

func newRootCommand(open OpenFunc) *cobra.Command {
	opts := &RootOptions{open: open}

	cmd := &cobra.Command{
		Use:   "registryadm",
		Short: "Operator tool for the software registry",
		// main reports the error
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return opts.loadConfig()
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to a JSON or YAML config file")
	cmd.PersistentFlags().StringVarP(&opts.DSN, "dsn", "d", "", "PostgreSQL DSN (overrides the config file)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	// Add subcommands
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewReindexCommand(opts))
	cmd.AddCommand(NewAllocateCommand(opts))
	cmd.AddCommand(NewTokenCommand(opts))

	return cmd
}

func (o *RootOptions) loadConfig() error {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	if o.ConfigPath != "" {
		if err := config.LoadFile(cfg, o.ConfigPath); err != nil {
			return err
		}
	}
	if o.DSN != "" {
		cfg.DatabaseDSN = o.DSN
	}
	o.config = cfg
	return nil
}

// withBackend opens the backend, runs fn and closes it again.
func (o *RootOptions) withBackend(ctx context.Context, fn func(Backend) error) error {
	b, err := o.open(ctx, o.config)
	if err != nil {
		return err
	}
	defer b.Close()
	return fn(b)
}

// print writes v as JSON, or text as a line, depending on --format.
func (o *RootOptions) print(w io.Writer, text string, v any) error {
	if o.Format == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(w, text)
	return err
}

type coreBackend struct {
	core *server.Core
}

func openCore(ctx context.Context, cfg *config.Config) (Backend, error) {
	core, err := server.NewCore(ctx, cfg, logging.New(cfg.LogFormat, os.Stderr))
	if err != nil {
		return nil, err
	}
	return &coreBackend{core: core}, nil
}

func (b *coreBackend) Migrate(ctx context.Context) error {
	return b.core.Repos.RunMigrations(ctx, b.core.DB)
}

func (b *coreBackend) Reindex(ctx context.Context) (int, error) {
	return b.core.Workflow.ReindexApproved(ctx)
}

func (b *coreBackend) Allocate(ctx context.Context) (string, error) {
	return b.core.Allocator.Allocate(ctx)
}

func (b *coreBackend) Close() error {
	return b.core.Close()
}
