// Command bdb is an interactive REPL debugger for .bvm images and .bdb
// coredumps: step/continue execution, inspect registers/memory/ROM,
// register breakpoints, disassemble, and drive UART traffic.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"bric/debugger"
	"bric/disasm"
	"bric/vm"
)

func main() {
	var coredump bool
	var useUART bool
	var maxIter int

	rootCmd := &cobra.Command{
		Use:   "bdb [image.bvm|image.bdb]",
		Short: "Interactive debugger for .bvm images and .bdb coredumps",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return repl(args[0], coredump, useUART, maxIter)
		},
	}
	rootCmd.Flags().BoolVarP(&coredump, "coredump", "c", false, "Load a .bdb coredump instead of a .bvm image")
	rootCmd.Flags().BoolVarP(&useUART, "uart", "u", false, "Mount a UART device (not available with --coredump)")
	rootCmd.Flags().IntVarP(&maxIter, "max-iter", "m", 0xffff, "Max cycles to run for the 'c' command")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func makeDebugger(input []byte, coredump, useUART bool) (*debugger.Debugger, error) {
	if coredump {
		return debugger.Deserialize(input)
	}

	img, err := vm.Deserialize(input)
	if err != nil {
		return nil, err
	}

	if useUART {
		v, u, err := vm.ConnectUART(img)
		if err != nil {
			return nil, err
		}
		return debugger.NewWithUART(v, u), nil
	}

	v, err := vm.New(img)
	if err != nil {
		return nil, err
	}
	return debugger.New(v), nil
}

func repl(path string, coredump, useUART bool, maxIter int) error {
	input, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	d, err := makeDebugger(input, coredump, useUART)
	if err != nil {
		return fmt.Errorf("error deserializing: %w", err)
	}

	stdin := bufio.NewScanner(os.Stdin)

	for {
		if d.UART != nil {
			for {
				b, ok := d.ReadUARTOut()
				if !ok {
					break
				}
				fmt.Printf("uart>> %q\n", b)
			}
		}

		fmt.Print("bdb> ")
		if !stdin.Scan() {
			return nil
		}
		line := strings.TrimSpace(stdin.Text())

		switch {
		case line == "q":
			return nil
		case line == "c":
			if _, err := d.Run(maxIter); err != nil {
				fmt.Fprintf(os.Stderr, "execution error: %v\n", err)
			}
		case line == "s":
			if err := d.Step(); err != nil {
				fmt.Fprintf(os.Stderr, "execution error: %v\n", err)
			}
		case line == "dis":
			fmt.Print(disasm.ROM(d.InspectROM(), true))
		case line == "u":
			if d.UART == nil {
				fmt.Fprintln(os.Stderr, "UART not activated")
				continue
			}
			fmt.Println("capturing uart input... enter `quit_uart` to leave")
			for {
				fmt.Print("uart> ")
				if !stdin.Scan() {
					return nil
				}
				uartLine := stdin.Text()
				if uartLine == "quit_uart" {
					break
				}
				for _, c := range uartLine {
					d.WriteUARTByte(byte(c))
				}
			}
		case line == "":
		case strings.HasPrefix(line, "i"):
			handleInspect(d, line)
		case strings.HasPrefix(line, "b") || strings.HasPrefix(line, "rb"):
			handleBreakpoint(d, line)
		default:
			fmt.Fprintln(os.Stderr, "unknown input")
		}
	}
}

func handleInspect(d *debugger.Debugger, line string) {
	parts := strings.Fields(line)
	if len(parts) < 2 || parts[0] != "i" {
		fmt.Fprintln(os.Stderr, "unrecognized input")
		return
	}

	switch parts[1] {
	case "reg":
		if len(parts) < 3 {
			fmt.Fprintln(os.Stderr, "not enough arguments for `i reg`")
			return
		}
		reg, ok := registerFromName(parts[2])
		if !ok {
			fmt.Fprintln(os.Stderr, "invalid register name")
			return
		}
		regs := d.InspectReg()
		var val vm.Word
		if reg == vm.RegStarA {
			val = d.InspectMem(regs.A, 1)[0]
		} else {
			val = regs.Get(reg)
		}
		fmt.Printf("%s = %#04x\n", parts[2], val)

	case "mem", "rom":
		if len(parts) != 4 {
			fmt.Fprintf(os.Stderr, "not enough arguments for `i %s`\n", parts[1])
			return
		}
		startAddr, err := numberLiteral(parts[2])
		if err != nil {
			fmt.Fprintln(os.Stderr, "invalid starting address")
			return
		}
		length, err := numberLiteral(parts[3])
		if err != nil {
			fmt.Fprintln(os.Stderr, "invalid length")
			return
		}

		var dump []vm.Word
		if parts[1] == "mem" {
			dump = d.InspectMem(startAddr, int(length))
		} else {
			dump = d.InspectROM()
			if int(startAddr)+int(length) <= len(dump) {
				dump = dump[startAddr : startAddr+length]
			}
		}
		for i, w := range dump {
			if i%16 == 0 {
				fmt.Printf("\n%#06x\t", int(startAddr)+i)
			}
			fmt.Printf("%#06x ", w)
		}
		fmt.Println()

	case "ci":
		pc := d.VM.PC
		rom := d.InspectROM()
		if int(pc) >= len(rom) {
			fmt.Fprintln(os.Stderr, "PC points outside of valid ROM range")
			return
		}
		fmt.Println(disasm.Inst(rom[pc]))

	case "pc":
		fmt.Printf("PC = %d\n", d.VM.PC)

	default:
		fmt.Fprintln(os.Stderr, "unrecognized input")
	}
}

func handleBreakpoint(d *debugger.Debugger, line string) {
	parts := strings.Fields(line)
	if len(parts) < 2 || (parts[0] != "b" && parts[0] != "rb") {
		fmt.Fprintln(os.Stderr, "unrecognized input")
		return
	}

	addr, err := numberLiteral(parts[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, "unable to parse breakpoint address")
		return
	}

	if parts[0] == "b" {
		d.RegisterBreakpoint(addr)
		fmt.Printf("registered new breakpoint at %#04x\n", addr)
		return
	}

	for _, bp := range d.Breakpoints() {
		if bp == addr {
			d.RemoveBreakpoint(addr)
			fmt.Printf("removed breakpoint at %#04x\n", addr)
			return
		}
	}
	fmt.Fprintln(os.Stderr, "that breakpoint does not exist")
}

func registerFromName(name string) (vm.Register, bool) {
	switch name {
	case "A":
		return vm.RegA, true
	case "*A":
		return vm.RegStarA, true
	case "D":
		return vm.RegD, true
	case "E":
		return vm.RegE, true
	case "F":
		return vm.RegF, true
	case "G":
		return vm.RegG, true
	case "H":
		return vm.RegH, true
	default:
		return 0, false
	}
}

func numberLiteral(tok string) (vm.Word, error) {
	switch {
	case strings.HasPrefix(tok, "0x"):
		v, err := strconv.ParseUint(tok[2:], 16, 32)
		return vm.Word(v), err
	case strings.HasPrefix(tok, "0b"):
		v, err := strconv.ParseUint(tok[2:], 2, 32)
		return vm.Word(v), err
	default:
		v, err := strconv.ParseUint(tok, 10, 32)
		return vm.Word(v), err
	}
}
