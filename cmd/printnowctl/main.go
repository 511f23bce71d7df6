package main

import (
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	_ "go.uber.org/automaxprocs"
)

var Version = "dev"

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "printnowctl",
		Short:         "Operator tools for the PrintNow backend",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")

	root.AddCommand(migrateCmd())
	root.AddCommand(markPaidCmd())
	root.AddCommand(expireSessionsCmd())
	root.AddCommand(codeCmd())
	return root
}

func openDB(cmd *cobra.Command) (*sql.DB, error) {
	url, _ := cmd.Flags().GetString("database-url")
	if url == "" {
		return nil, fmt.Errorf("--database-url or DATABASE_URL is required")
	}
	conn, err := sql.Open("postgres", url)
	if err != nil {
		return nil, err
	}
	if err := conn.PingContext(cmd.Context()); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}
