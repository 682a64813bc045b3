// Command bvm runs a .bvm image to completion or until a "q" quit command
// arrives on stdin, mirroring the original background-stdin-reader runner.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"bric/vm"
)

func main() {
	var withUART bool

	rootCmd := &cobra.Command{
		Use:   "bvm [image.bvm]",
		Short: "Run a .bvm image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(args[0], withUART)
		},
	}
	rootCmd.Flags().BoolVar(&withUART, "uart", false, "Mount a UART device and echo its output to stdout")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(path string, withUART bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	img, err := vm.Deserialize(data)
	if err != nil {
		return fmt.Errorf("deserializing %s: %w", path, err)
	}

	var v *vm.VM
	var u *vm.UART
	if withUART {
		v, u, err = vm.ConnectUART(img)
	} else {
		v, err = vm.New(img)
	}
	if err != nil {
		return fmt.Errorf("instantiating vm: %w", err)
	}

	commands := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			commands <- strings.TrimSpace(scanner.Text())
		}
		close(commands)
	}()

	uartEchoEnabled := withUART

	for {
		select {
		case cmd, ok := <-commands:
			if !ok {
				commands = nil
				break
			}
			switch cmd {
			case "q":
				return nil
			case "u":
				uartEchoEnabled = !uartEchoEnabled
			}
		default:
		}

		if u != nil {
			vm.SyncUART(v, u)
			if uartEchoEnabled {
				for {
					b, ok := u.GetOutput()
					if !ok {
						break
					}
					os.Stdout.Write([]byte{b})
				}
			}
		}

		err := v.Cycle()
		if err == nil {
			continue
		}

		var halted *vm.HaltedError
		if errors.As(err, &halted) {
			fmt.Fprintln(os.Stdout, "Execution halted")
			return nil
		}
		return fmt.Errorf("execution error: %w", err)
	}
}
