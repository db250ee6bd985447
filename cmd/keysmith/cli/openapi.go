package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/stackmint/keysmith/internal/openapi"
)

func newOpenAPICmd() *cobra.Command {
	var (
		outputFile string
		baseURL    string
	)

	cmd := &cobra.Command{
		Use:   "openapi",
		Short: "Generate the OpenAPI specification",
		Long:  "Generate the OpenAPI 3.1 specification for the Keysmith HTTP API.",
		Example: `  keysmith openapi                  # print spec to stdout
  keysmith openapi -o openapi.json  # write spec to file`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOpenAPI(baseURL, outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write spec to file instead of stdout")
	cmd.Flags().StringVar(&baseURL, "base-url", "http://localhost:3000", "Server URL to embed in the spec")

	return cmd
}

func runOpenAPI(baseURL, outputFile string) error {
	spec := openapi.GenerateSpec(baseURL)

	jsonBytes, err := json.MarshalIndent(spec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal spec: %w", err)
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, jsonBytes, 0644); err != nil {
			return fmt.Errorf("write spec: %w", err)
		}
		fmt.Printf("Wrote OpenAPI spec to %s\n", outputFile)
		return nil
	}

	fmt.Println(string(jsonBytes))
	return nil
}
