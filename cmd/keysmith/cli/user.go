package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/stackmint/keysmith/internal/store"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage registered users",
		Long:  "List and delete users registered through the public API.",
	}

	cmd.AddCommand(newUserListCmd())
	cmd.AddCommand(newUserDeleteCmd())

	return cmd
}

// ---------- user list ----------

func newUserListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all registered users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserList(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runUserList(jsonOutput bool) error {
	cfg := loadConfig()
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	users, err := st.ListUsersWithKeys(context.Background())
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	type userRow struct {
		ID    int64  `json:"id"`
		Name  string `json:"name"`
		Email string `json:"email_address"`
		Key   string `json:"api_key"`
	}

	rows := make([]userRow, len(users))
	for i, u := range users {
		key := "-"
		if u.KeyValue != nil {
			key = *u.KeyValue
		}
		rows[i] = userRow{
			ID:    u.ID,
			Name:  u.FirstName + " " + u.LastName,
			Email: u.Email,
			Key:   key,
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	if len(rows) == 0 {
		fmt.Println("No users registered.")
		return nil
	}

	fmt.Printf("%-6s %-24s %-32s %-60s\n", "ID", "NAME", "EMAIL", "KEY")
	fmt.Printf("%-6s %-24s %-32s %-60s\n", "--", "----", "-----", "---")
	for _, u := range rows {
		fmt.Printf("%-6d %-24s %-32s %-60s\n", u.ID, u.Name, u.Email, u.Key)
	}

	return nil
}

// ---------- user delete ----------

func newUserDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a user and all keys it owns",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserDelete(args[0])
		},
	}

	return cmd
}

func runUserDelete(idArg string) error {
	id, err := strconv.ParseInt(idArg, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid user id %q", idArg)
	}

	cfg := loadConfig()
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	if err := st.DeleteUserCascade(context.Background(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no user with id %d", id)
		}
		return fmt.Errorf("delete user: %w", err)
	}

	fmt.Printf("Deleted user %d and all associated keys\n", id)
	return nil
}
