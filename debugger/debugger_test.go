package debugger

import (
	"bytes"
	"testing"

	"bric/vm"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

func scenarioS2ROM() []vm.Word {
	return []vm.Word{
		vm.Encode(vm.Instruction{IsData: true, Data: 0x1234}),
		vm.EncodeRaw(vm.RegD, vm.RegA, 0b000, true, true, false, false, false, false),
		vm.Encode(vm.Instruction{IsData: true, Data: 0}),
		vm.EncodeRaw(vm.RegStarA, vm.RegD, 0b000, true, true, true, false, false, false),
		vm.Encode(vm.Instruction{IsData: true, Data: 0x512}),
		vm.JumpAlways,
		0,
	}
}

func TestDebuggerStepUntilHalt(t *testing.T) {
	img := vm.NewImage(0, scenarioS2ROM(), vm.RegisterInits{})
	v, err := vm.New(img)
	assert(t, err == nil, "vm.New failed: %v", err)

	d := New(v)
	for i := 0; i < 6; i++ {
		assert(t, !d.Halted, "should not be halted before cycle %d", i+1)
		assert(t, d.Step() == nil, "step %d should not error", i+1)
	}
	assert(t, d.Step() == nil, "7th step should report halt, not error")
	assert(t, d.Halted, "expected Halted after running past end of ROM")
}

func TestDebuggerRunStopsAtBreakpoint(t *testing.T) {
	img := vm.NewImage(0, scenarioS2ROM(), vm.RegisterInits{})
	v, err := vm.New(img)
	assert(t, err == nil, "vm.New failed: %v", err)

	d := New(v)
	d.RegisterBreakpoint(3)

	n, err := d.Run(100)
	assert(t, err == nil, "run failed: %v", err)
	assert(t, n == 3, "expected 3 cycles executed before breakpoint at PC=3, got %d", n)
	assert(t, d.VM.PC == 3, "expected PC==3 at breakpoint, got %d", d.VM.PC)
	assert(t, !d.Halted, "should not be halted when stopped at a breakpoint")
}

func TestDebuggerRunHaltsWithoutBreakpoints(t *testing.T) {
	img := vm.NewImage(0, scenarioS2ROM(), vm.RegisterInits{})
	v, err := vm.New(img)
	assert(t, err == nil, "vm.New failed: %v", err)

	d := New(v)
	n, err := d.Run(100)
	assert(t, err == nil, "run failed: %v", err)
	assert(t, n == 7, "expected 7 cycles to reach halt, got %d", n)
	assert(t, d.Halted, "expected Halted after Run exhausts ROM")
}

func TestDebuggerInspectAndMutate(t *testing.T) {
	img := vm.NewImage(0, scenarioS2ROM(), vm.RegisterInits{})
	v, err := vm.New(img)
	assert(t, err == nil, "vm.New failed: %v", err)

	d := New(v)
	d.SetReg(vm.RegD, 0x42)
	assert(t, d.InspectReg().D == 0x42, "expected D==0x42 after SetReg, got %#04x", d.InspectReg().D)

	d.SetRAM(10, 0x99)
	mem := d.InspectMem(10, 1)
	assert(t, mem[0] == 0x99, "expected RAM[10]==0x99, got %#04x", mem[0])

	d.SetPC(3)
	assert(t, d.VM.PC == 3, "expected PC==3 after SetPC, got %d", d.VM.PC)

	rom := d.InspectROM()
	assert(t, len(rom) == len(scenarioS2ROM()), "expected ROM length %d, got %d", len(scenarioS2ROM()), len(rom))
}

func TestDebuggerUARTRoundTrip(t *testing.T) {
	img := vm.NewImage(0, scenarioS2ROM(), vm.RegisterInits{})
	v, u, err := vm.ConnectUART(img)
	assert(t, err == nil, "ConnectUART failed: %v", err)

	d := NewWithUART(v, u)
	d.WriteUARTByte('z')
	assert(t, d.UART.InFlags()&0b010 != 0, "expected data-available flag set after WriteUARTByte")

	_, ok := d.ReadUARTOut()
	assert(t, !ok, "expected no queued output bytes yet")
}

func TestDebuggerUARTNoOpWithoutUART(t *testing.T) {
	img := vm.NewImage(0, scenarioS2ROM(), vm.RegisterInits{})
	v, err := vm.New(img)
	assert(t, err == nil, "vm.New failed: %v", err)

	d := New(v)
	d.WriteUARTByte('x') // must not panic
	_, ok := d.ReadUARTOut()
	assert(t, !ok, "expected no output with no UART mounted")
}

func TestSessionSerializeRoundTrip(t *testing.T) {
	img := vm.NewImage(0, scenarioS2ROM(), vm.RegisterInits{})
	v, err := vm.New(img)
	assert(t, err == nil, "vm.New failed: %v", err)

	d := New(v)
	d.RegisterBreakpoint(2)
	d.RegisterBreakpoint(5)
	assert(t, d.Step() == nil, "step failed: %v", err)

	data, err := d.Serialize()
	assert(t, err == nil, "serialize failed: %v", err)

	d2, err := Deserialize(data)
	assert(t, err == nil, "deserialize failed: %v", err)

	bps := d2.Breakpoints()
	assert(t, len(bps) == 2, "expected 2 breakpoints restored, got %d", len(bps))
	assert(t, d2.VM.PC == d.VM.PC, "expected matching PC, got %d vs %d", d2.VM.PC, d.VM.PC)
	assert(t, d2.VM.Regs.D == d.VM.Regs.D, "expected matching D register")

	data2, err := d2.Serialize()
	assert(t, err == nil, "re-serialize failed: %v", err)
	assert(t, bytes.Equal(data, data2), "expected stable round-trip serialization")
}
