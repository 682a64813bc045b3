// Command basm assembles a .basm source file into a .bvm image.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"bric/asm"
)

func main() {
	var output string

	rootCmd := &cobra.Command{
		Use:   "basm [source.basm]",
		Short: "Assemble a source file into a .bvm image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading source: %w", err)
			}

			img, err := asm.Assemble(string(src))
			if err != nil {
				return fmt.Errorf("assembling %s: %w", args[0], err)
			}

			data, err := img.Serialize()
			if err != nil {
				return fmt.Errorf("serializing image: %w", err)
			}

			if output == "" {
				output = trimExt(args[0]) + ".bvm"
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", output, err)
			}

			fmt.Fprintf(os.Stdout, "wrote %s (%d ROM words)\n", output, len(img.ROM))
			return nil
		},
	}
	rootCmd.Flags().StringVarP(&output, "output", "o", "", "Output .bvm path (default: source name with .bvm extension)")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func trimExt(path string) string {
	for i := len(path) - 1; i >= 0 && path[i] != '/'; i-- {
		if path[i] == '.' {
			return path[:i]
		}
	}
	return path
}
