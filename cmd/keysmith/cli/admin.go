package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/stackmint/keysmith/internal/service"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage admin accounts",
		Long:  "Create and list administrative accounts that can manage keys through the admin API.",
	}

	cmd.AddCommand(newAdminCreateCmd())
	cmd.AddCommand(newAdminListCmd())

	return cmd
}

// ---------- admin create ----------

func newAdminCreateCmd() *cobra.Command {
	var (
		email    string
		password string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new admin account",
		Example: `  keysmith admin create --email admin@example.com --password secret123
  keysmith admin create --email admin@example.com  # prompts for password`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminCreate(email, password)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Admin email address (required)")
	cmd.Flags().StringVar(&password, "password", "", "Admin password (prompted if omitted)")
	cmd.MarkFlagRequired("email")

	return cmd
}

func runAdminCreate(email, password string) error {
	if !strings.Contains(email, "@") {
		return fmt.Errorf("invalid email address: %q", email)
	}

	// Prompt for password if not provided
	if password == "" {
		fmt.Print("Password: ")
		pwBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Println()
		password = string(pwBytes)

		fmt.Print("Confirm password: ")
		confirmBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		fmt.Println()

		if password != string(confirmBytes) {
			return fmt.Errorf("passwords do not match")
		}
	}

	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	cfg := loadConfig()
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	authSvc := service.NewAuthService(st, jwtSecret(cfg), service.DefaultSessionTTL)
	if _, err := authSvc.RegisterAdmin(context.Background(), email, password); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}

	fmt.Printf("Created admin account %q\n", email)
	return nil
}

// ---------- admin list ----------

func newAdminListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all admin accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAdminList(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runAdminList(jsonOutput bool) error {
	cfg := loadConfig()
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	admins, err := st.ListAdmins(context.Background())
	if err != nil {
		return fmt.Errorf("list admins: %w", err)
	}

	type adminRow struct {
		ID      int64  `json:"id"`
		Email   string `json:"email"`
		Created string `json:"created_at"`
	}

	rows := make([]adminRow, len(admins))
	for i, a := range admins {
		rows[i] = adminRow{
			ID:      a.ID,
			Email:   a.Email,
			Created: a.CreatedAt.Format("2006-01-02 15:04"),
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	if len(rows) == 0 {
		fmt.Println("No admin accounts configured. Use 'keysmith admin create' to create one.")
		return nil
	}

	fmt.Printf("%-6s %-32s %-18s\n", "ID", "EMAIL", "CREATED")
	fmt.Printf("%-6s %-32s %-18s\n", "--", "-----", "-------")
	for _, a := range rows {
		fmt.Printf("%-6d %-32s %-18s\n", a.ID, a.Email, a.Created)
	}

	return nil
}
