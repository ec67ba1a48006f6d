// Command condoctl performs operator tasks against the condo database.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:           "condoctl",
		Short:         "Operator tool for the condo backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("database-url", "", "Postgres DSN (defaults to DATABASE_URL)")

	rootCmd.AddCommand(
		schemaCmd(),
		seedCmd(),
		createAdminCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
