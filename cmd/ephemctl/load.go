package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/signalsfoundry/ephemeris-registry/body"
	"github.com/signalsfoundry/ephemeris-registry/kernel"
	"github.com/signalsfoundry/ephemeris-registry/model"
)

func newLoadCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "load PATH...",
		Short: "Load kernels and print the entities and coverage they provide",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			reg := a.newRegistry()
			defer reg.Close()

			opts := append(a.walkOptions(), kernel.WithForce(force))
			for _, p := range args {
				if _, err := reg.Load(ctx, p, opts...); err != nil {
					return fmt.Errorf("load %s: %w", p, err)
				}
			}
			return printSummary(cmd.OutOrStdout(), reg)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "reload kernels named more than once")
	return cmd
}

func printSummary(out io.Writer, reg *kernel.Registry) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KERNEL\tTYPE\tIDS")
	for _, rec := range reg.Loaded() {
		fmt.Fprintf(tw, "%s\t%s\t%d\n", rec.Path(), rec.File.Type, len(rec.IDs))
	}
	fmt.Fprintln(tw)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tPOSITION\tROTATION")
	for _, e := range reg.Entities(body.CategoryBody) {
		pos, _ := reg.Coverage(model.ChannelPosition, e.ID)
		rot, _ := reg.Coverage(model.ChannelRotation, e.ID)
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", e.ID, e.Name, e.Category, pos, rot)
	}
	return tw.Flush()
}
