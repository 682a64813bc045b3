// Command bdisasm renders a .bvm image's ROM back into assembly-like text.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"bric/disasm"
	"bric/vm"
)

func main() {
	var noLines bool

	rootCmd := &cobra.Command{
		Use:   "bdisasm [image.bvm]",
		Short: "Disassemble a .bvm image's ROM",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}

			img, err := vm.Deserialize(data)
			if err != nil {
				return fmt.Errorf("deserializing %s: %w", args[0], err)
			}

			fmt.Fprint(os.Stdout, disasm.ROM(img.ROM, !noLines))
			return nil
		},
	}
	rootCmd.Flags().BoolVar(&noLines, "no-addrs", false, "Omit the address prefix on each line")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
