// Package debugger wraps a vm.VM with breakpoints, inspection, and a
// serializable session format.
package debugger

import (
	"errors"
	"runtime/debug"

	"bric/vm"
)

// Debugger owns exactly one VM plus a breakpoint set over ROM addresses.
type Debugger struct {
	VM          *vm.VM
	UART        *vm.UART
	breakpoints map[vm.Word]struct{}
	Halted      bool
}

// New wraps v in a Debugger with no breakpoints set.
func New(v *vm.VM) *Debugger {
	return &Debugger{VM: v, breakpoints: map[vm.Word]struct{}{}}
}

// NewWithUART wraps v and mounts a UART alongside it, mirroring the
// image's UART setup so the debugger can drive UART traffic directly.
func NewWithUART(v *vm.VM, u *vm.UART) *Debugger {
	d := New(v)
	d.UART = u
	return d
}

// Step executes exactly one cycle. A HaltedError sets d.Halted and is
// not returned as an error (it is the canonical, non-fatal terminator);
// any other error is returned to the caller as a fatal condition.
func (d *Debugger) Step() error {
	if d.UART != nil {
		vm.SyncUART(d.VM, d.UART)
	}
	err := d.VM.Cycle()
	if err == nil {
		return nil
	}
	var halted *vm.HaltedError
	if errors.As(err, &halted) {
		d.Halted = true
		return nil
	}
	return err
}

// Run executes up to maxIter cycles, stopping early on halt or when the
// PC matches a breakpoint after a cycle completes. It returns the number
// of cycles actually executed.
func (d *Debugger) Run(maxIter int) (int, error) {
	gcPercent := debug.SetGCPercent(-1)
	defer debug.SetGCPercent(gcPercent)

	for i := 0; i < maxIter; i++ {
		if err := d.Step(); err != nil {
			return i, err
		}
		if d.Halted {
			return i + 1, nil
		}
		if _, ok := d.breakpoints[d.VM.PC]; ok {
			return i + 1, nil
		}
	}
	return maxIter, nil
}

// RegisterBreakpoint arms a breakpoint at a ROM address.
func (d *Debugger) RegisterBreakpoint(addr vm.Word) { d.breakpoints[addr] = struct{}{} }

// RemoveBreakpoint disarms a breakpoint at a ROM address.
func (d *Debugger) RemoveBreakpoint(addr vm.Word) { delete(d.breakpoints, addr) }

// Breakpoints returns the currently armed breakpoint addresses.
func (d *Debugger) Breakpoints() []vm.Word {
	out := make([]vm.Word, 0, len(d.breakpoints))
	for a := range d.breakpoints {
		out = append(out, a)
	}
	return out
}

// InspectReg returns the latch register file.
func (d *Debugger) InspectReg() vm.Registers { return d.VM.Regs }

// InspectMem returns a copy of RAM[addr:addr+length].
func (d *Debugger) InspectMem(addr vm.Word, length int) []vm.Word {
	return d.VM.RAM.Slice(addr, length)
}

// InspectROM returns a copy of the full ROM.
func (d *Debugger) InspectROM() []vm.Word { return d.VM.ROM.Words() }

// SetReg writes one latch register directly (RegNone/RegStarA are not
// valid targets here; use SetRAM for memory).
func (d *Debugger) SetReg(reg vm.Register, val vm.Word) { d.VM.Regs.Set(reg, val) }

// SetRAM writes addr directly, bypassing access-level checks and
// callbacks, the same as the VM's own bootstrap writes.
func (d *Debugger) SetRAM(addr, val vm.Word) { d.VM.RAM.SetRaw(addr, val) }

// SetPC moves the program counter directly.
func (d *Debugger) SetPC(pc vm.Word) { d.VM.PC = pc }

// WriteUARTByte pushes a byte onto the UART's input FIFO. No-op if no
// UART is mounted.
func (d *Debugger) WriteUARTByte(b byte) {
	if d.UART != nil {
		d.UART.PutInput(b)
	}
}

// ReadUARTOut pops the oldest queued UART output byte, if any.
func (d *Debugger) ReadUARTOut() (byte, bool) {
	if d.UART == nil {
		return 0, false
	}
	return d.UART.GetOutput()
}
