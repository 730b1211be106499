package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/animus-ai/animus/internal/agent"
	"github.com/animus-ai/animus/internal/soul"
)

func init() {
	soulCmd := &cobra.Command{
		Use:   "soul",
		Short: "Portable agent identity snapshots",
	}

	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Export an agent's soul as JSON",
		Long:  "Export an agent's soul as JSON. With --publish, also asks the policy service to publish it and prints the content identifier.",
		Run:   runSoulExport,
	}
	exportCmd.Flags().String("id", "", "Agent id (required)")
	exportCmd.Flags().Bool("publish", false, "Publish via the policy service")
	exportCmd.MarkFlagRequired("id")

	soulCmd.AddCommand(exportCmd)
	RootCmd.AddCommand(soulCmd)
}

func runSoulExport(cmd *cobra.Command, args []string) {
	id, _ := cmd.Flags().GetString("id")
	publish, _ := cmd.Flags().GetBool("publish")

	cfg := loadConfig()
	reg := openRegistry(cfg)
	defer reg.Close()

	ag, err := reg.Get(cmd.Context(), id)
	if err != nil {
		exitErr("load agent", err)
	}

	s := agent.ExportSoul(ag)
	text, err := soul.Serialize(s)
	if err != nil {
		exitErr("serialize soul", err)
	}
	fmt.Println(text)

	if publish {
		client := newPolicyClient(cfg)
		cid, err := client.ExportSoul(cmd.Context(), ag.ID)
		if err != nil {
			exitErr("publish soul", err)
		}
		fmt.Printf("Exported: %s\n", cid)
	}
}
