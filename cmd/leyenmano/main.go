package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/gamezxlan/ley-en-mano-backend/internal/interfaces/cli/migrate"
	"github.com/gamezxlan/ley-en-mano-backend/internal/interfaces/cli/server"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "leyenmano",
		Short: "Ley en Mano backend",
		Long:  `Ley en Mano backend: quota-gated legal consultations with provider-driven billing reconciliation.`,
	}

	rootCmd.AddCommand(
		server.NewCommand(),
		migrate.NewCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
