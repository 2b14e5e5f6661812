package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aster-lang/aster/targets"
)

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "List supported build targets",
	Run: func(cmd *cobra.Command, args []string) {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tTRIPLE\tOS")
		for _, target := range targets.All() {
			fmt.Fprintf(w, "%s\t%s\t%s\n", target.Name, target.Triple, target.OS)
		}
		w.Flush()
	},
}
