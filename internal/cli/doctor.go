package cli

import (
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check connectivity to the policy service",
		Run:   runDoctor,
	}
	RootCmd.AddCommand(cmd)
}

func runDoctor(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	client := newPolicyClient(cfg)

	code, body, err := client.Status(cmd.Context())
	if err != nil {
		fmt.Fprintf(os.Stderr, "API Status: OFFLINE (connectivity): %v\n", err)
		os.Exit(1)
	}
	if code != http.StatusOK {
		fmt.Fprintf(os.Stderr, "API Status: HTTP %d\nResponse: %s\n", code, body)
		os.Exit(1)
	}
	fmt.Printf("API Status: ONLINE\nResponse: %s\n", body)
}
