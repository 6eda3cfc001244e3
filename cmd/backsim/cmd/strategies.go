package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quantlab/backsim/strategy"
	"github.com/quantlab/backsim/strategy/builtins"
)

var strategiesCmd = &cobra.Command{
	Use:   "strategies",
	Short: "List the available strategies",
	Run: func(cmd *cobra.Command, args []string) {
		reg := strategy.NewRegistry()
		builtins.RegisterAll(reg, nil)
		for _, name := range reg.List() {
			fmt.Println(name)
		}
	},
}

func init() {
	rootCmd.AddCommand(strategiesCmd)
}
