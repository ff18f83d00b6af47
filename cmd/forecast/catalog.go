package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yourusername/clever-forecast/internal/registry"
	"github.com/yourusername/clever-forecast/internal/service"
)

var activateOnRegister bool

func init() {
	catalogRegisterCmd.Flags().BoolVar(&activateOnRegister, "activate", false, "Activate the artifact after registering it")
	catalogCmd.AddCommand(catalogRegisterCmd, catalogActivateCmd)
	rootCmd.AddCommand(catalogCmd)
}

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the Postgres model catalog",
}

var catalogRegisterCmd = &cobra.Command{
	Use:   "register <artifact path>",
	Short: "Register an artifact file, relative to the artifact root, in the catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withCatalog(cmd, func(ctx context.Context, catalog *service.CatalogService) error {
			record, err := catalog.Register(ctx, args[0])
			if err != nil {
				return err
			}
			if activateOnRegister {
				if record, err = catalog.Activate(ctx, record.ID); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s/%s/%s/%s\t%s\tactive=%t\n",
				record.ID, record.Sport, record.Market, record.State, record.Family, record.Version, record.Active)
			return nil
		})
	},
}

var catalogActivateCmd = &cobra.Command{
	Use:   "activate <record id>",
	Short: "Make a catalog record the active version of its slot",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid record id: %w", err)
		}
		return withCatalog(cmd, func(ctx context.Context, catalog *service.CatalogService) error {
			record, err := catalog.Activate(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s/%s/%s/%s\t%s\tactive\n",
				record.ID, record.Sport, record.Market, record.State, record.Family, record.Version)
			return nil
		})
	},
}

func withCatalog(cmd *cobra.Command, fn func(context.Context, *service.CatalogService) error) error {
	if !cfg.Database.Enabled {
		return fmt.Errorf("the model catalog requires database.enabled")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := buildApp(ctx, cfg, appLog)
	if err != nil {
		return err
	}
	defer a.close()

	files := registry.NewFileStore(cfg.Registry.ArtifactRoot)
	return fn(ctx, service.NewCatalogService(a.repos.Models, files, a.registry, appLog))
}
