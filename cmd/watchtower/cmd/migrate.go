package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fleetsight/watchtower/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending schema migrations",
	RunE:  runMigrate,
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show migration status",
	RunE:  runMigrateStatus,
}

func init() {
	migrateCmd.AddCommand(migrateStatusCmd)
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	st, err := openStore("")
	if err != nil {
		return err
	}
	defer st.DB().Close()

	if err := store.MigrateUp(st.DB()); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	fmt.Println("migrations applied")
	return nil
}

func runMigrateStatus(cmd *cobra.Command, args []string) error {
	st, err := openStore("")
	if err != nil {
		return err
	}
	defer st.DB().Close()

	statuses, err := store.MigrateStatus(st.DB())
	if err != nil {
		return err
	}
	for _, s := range statuses {
		state := "pending"
		if s.Applied {
			state = "applied"
		}
		fmt.Printf("%-40s %s\n", s.ID, state)
	}
	return nil
}
