package main

import (
	"fmt"
	"math/rand"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jihwankim/chaos-scheduler/pkg/faults"
	"github.com/jihwankim/chaos-scheduler/pkg/injection"
	"github.com/jihwankim/chaos-scheduler/pkg/profile"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles [name]",
	Args:  cobra.MaximumNArgs(1),
	Short: "List fault profiles or show the triggers of one",
	RunE:  runProfiles,
}

func runProfiles(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tDESCRIPTION")
		for _, name := range profile.Presets() {
			p, _ := profile.Lookup(name)
			fmt.Fprintf(w, "%s\t%s\n", p.Name, p.Description)
		}
		return w.Flush()
	}

	preset, err := profile.Lookup(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Built against a dry-run backend so nothing is touched.
	reg := faults.NewRegistry(injection.NewDryRun(nil),
		faults.WithPartitionDefaults(cfg.PartitionParams()),
		faults.WithLatencyDefaults(cfg.LatencyParams()),
	)
	p, err := preset.Factory(reg, rand.New(rand.NewSource(1)))
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s: %s\n\n", p.Name(), p.Description())
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tTRIGGER\tFAULT")
	for i, t := range p.Triggers() {
		fmt.Fprintf(w, "%d\t%s\t%s\n", i+1, t.Name(), describeFault(t.Fault()))
	}
	return w.Flush()
}

func describeFault(f faults.Fault) string {
	if s, ok := f.(fmt.Stringer); ok {
		return s.String()
	}
	return f.Name()
}
