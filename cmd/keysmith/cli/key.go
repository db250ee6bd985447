package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/stackmint/keysmith/internal/keygen"
	"github.com/stackmint/keysmith/internal/model"
	"github.com/stackmint/keysmith/internal/store"
)

func newKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "key",
		Aliases: []string{"apikey"},
		Short:   "Manage API keys",
		Long:    "Create, list, deactivate, and delete API keys issued by Keysmith.",
	}

	cmd.AddCommand(newKeyCreateCmd())
	cmd.AddCommand(newKeyListCmd())
	cmd.AddCommand(newKeyRevokeCmd())
	cmd.AddCommand(newKeyDeleteCmd())

	return cmd
}

// ---------- key create ----------

func newKeyCreateCmd() *cobra.Command {
	var ownerEmail string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new API key",
		Long:  "Generate a new API key, optionally bound to an existing user by email.",
		Example: `  keysmith key create
  keysmith key create --email jane@example.com`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyCreate(ownerEmail)
		},
	}

	cmd.Flags().StringVar(&ownerEmail, "email", "", "Email of the user to own the key (optional)")

	return cmd
}

func runKeyCreate(ownerEmail string) error {
	cfg := loadConfig()
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()

	var ownerID *int64
	if ownerEmail != "" {
		owner, err := st.GetUserByEmail(ctx, ownerEmail)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("no user registered with email %q", ownerEmail)
			}
			return fmt.Errorf("look up user: %w", err)
		}
		ownerID = &owner.ID
	}

	rawKey, err := keygen.Generate()
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}

	apiKey := &model.APIKey{
		KeyValue: rawKey,
		UserID:   ownerID,
		IsActive: true,
	}
	if err := st.CreateAPIKey(ctx, apiKey); err != nil {
		return fmt.Errorf("create api key: %w", err)
	}

	fmt.Println("API key created:")
	fmt.Println()
	fmt.Printf("  Key: %s\n", rawKey)
	if ownerEmail != "" {
		fmt.Printf("  Owner: %s\n", ownerEmail)
	}
	fmt.Println()
	return nil
}

// ---------- key list ----------

func newKeyListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyList(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runKeyList(jsonOutput bool) error {
	cfg := loadConfig()
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	keys, err := st.ListAPIKeys(context.Background())
	if err != nil {
		return fmt.Errorf("list api keys: %w", err)
	}

	type keyRow struct {
		ID       int64  `json:"id"`
		Key      string `json:"api_key"`
		Active   bool   `json:"active"`
		Status   string `json:"status"`
		LastUsed string `json:"last_used"`
	}

	now := time.Now()
	rows := make([]keyRow, len(keys))
	for i := range keys {
		k := &keys[i]
		lastUsed := "never"
		if k.LastUsedAt != nil {
			lastUsed = k.LastUsedAt.Format("2006-01-02 15:04")
		}
		rows[i] = keyRow{
			ID:       k.ID,
			Key:      k.KeyValue,
			Active:   k.IsActive,
			Status:   string(k.Status(now)),
			LastUsed: lastUsed,
		}
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	if len(rows) == 0 {
		fmt.Println("No API keys issued. Use 'keysmith key create' to create one.")
		return nil
	}

	fmt.Printf("%-6s %-60s %-8s %-9s %-18s\n", "ID", "KEY", "ACTIVE", "STATUS", "LAST USED")
	fmt.Printf("%-6s %-60s %-8s %-9s %-18s\n", "--", "---", "------", "------", "---------")
	for _, k := range rows {
		active := "yes"
		if !k.Active {
			active = "no"
		}
		fmt.Printf("%-6d %-60s %-8s %-9s %-18s\n", k.ID, k.Key, active, k.Status, k.LastUsed)
	}

	return nil
}

// ---------- key revoke ----------

func newKeyRevokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revoke <id>",
		Short: "Deactivate an API key by ID",
		Long:  "Deactivate an API key. Validation requests using the key start failing as inactive.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyRevoke(args[0])
		},
	}

	return cmd
}

func runKeyRevoke(idArg string) error {
	id, err := strconv.ParseInt(idArg, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid key id %q", idArg)
	}

	cfg := loadConfig()
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	if err := st.SetAPIKeyActive(context.Background(), id, false); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no API key with id %d", id)
		}
		return fmt.Errorf("deactivate api key: %w", err)
	}

	fmt.Printf("Deactivated API key %d\n", id)
	return nil
}

// ---------- key delete ----------

func newKeyDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an API key by ID",
		Long:  "Permanently delete an API key record. The key cannot be recovered.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeyDelete(args[0])
		},
	}

	return cmd
}

func runKeyDelete(idArg string) error {
	id, err := strconv.ParseInt(idArg, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid key id %q", idArg)
	}

	cfg := loadConfig()
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	if err := st.DeleteAPIKey(context.Background(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("no API key with id %d", id)
		}
		return fmt.Errorf("delete api key: %w", err)
	}

	fmt.Printf("Deleted API key %d\n", id)
	return nil
}
