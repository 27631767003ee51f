package main

import (
	"context"
	"fmt"
	"os"

	"github.com/ariefcatur/go-digital-orders/internal/app"
	"github.com/ariefcatur/go-digital-orders/internal/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "opsctl",
		Short:         "Operator tooling for the digital orders service",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("actor", "ops", "Actor recorded in the audit trail")

	root.AddCommand(settingsCmd())
	root.AddCommand(notifyCmd())
	root.AddCommand(deliverCmd())
	root.AddCommand(reconcileCmd())
	root.AddCommand(auditCmd())
	return root
}

// withDeps opens the engine without the artifact store; the api process owns
// it, so deliveries started here travel over delivery.requested.
func withDeps(cmd *cobra.Command, fn func(ctx context.Context, d *app.Deps) error) error {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	d, err := app.Open(ctx, cfg, cfg.ServiceName+"-opsctl", app.WithoutArtifacts())
	if err != nil {
		return err
	}
	defer d.Close()
	return fn(ctx, d)
}

func actor(cmd *cobra.Command) string {
	a, _ := cmd.Flags().GetString("actor")
	return a
}
