package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jihwankim/chaos-scheduler/pkg/emergency"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Args:  cobra.NoArgs,
	Short: "Ask a running scheduler to stop and clean up",
	Long: `Creates the emergency stop file watched by "run". The running scheduler
stops firing, clears the network and exits. Use --reset to remove the file
before the next run.`,
	RunE: runStop,
}

func init() {
	stopCmd.Flags().Bool("reset", false, "remove the stop file instead of creating it")
}

func runStop(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctrl := emergency.New(emergency.Config{StopFile: cfg.Emergency.StopFile})
	if reset, _ := cmd.Flags().GetBool("reset"); reset {
		if err := ctrl.RemoveStopFile(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Removed", ctrl.GetStopFilePath())
		return nil
	}

	if err := ctrl.CreateStopFile(); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Created", ctrl.GetStopFilePath())
	return nil
}
