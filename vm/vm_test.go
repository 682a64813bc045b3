package vm

import (
	"errors"
	"testing"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

func TestDecodeEncodeRoundTrip(t *testing.T) {
	for w := 0; w <= 0xFFFF; w++ {
		word := Word(w)
		inst, err := Decode(word)
		assert(t, err == nil, "decode(%#04x) returned error: %v", word, err)
		got := Encode(inst)
		assert(t, got == word, "encode(decode(%#04x)) = %#04x, want %#04x", word, got, word)
	}
}

func TestRegionMapOverlap(t *testing.T) {
	_, err := newRegionMap([]region{
		{Start: 0, End: 10, Level: ReadOnly},
		{Start: 5, End: 15, Level: ReadOnly},
	})
	assert(t, err != nil, "expected overlap error")

	_, err = newRegionMap([]region{
		{Start: 0, End: 10, Level: ReadOnly},
		{Start: 11, End: 15, Level: ReadOnly},
	})
	assert(t, err == nil, "adjacent non-overlapping regions should succeed: %v", err)
}

func TestRegionMapStartAfterEnd(t *testing.T) {
	_, err := newRegionMap([]region{{Start: 10, End: 5, Level: ReadOnly}})
	assert(t, err != nil, "expected start>end error")
}

func TestRAMAccessLevels(t *testing.T) {
	ram, err := NewRAM([]region{
		{Start: 0, End: 0, Level: ReadOnly},
		{Start: 1, End: 1, Level: NoAccess},
	})
	assert(t, err == nil, "NewRAM failed: %v", err)

	ram.SetRaw(0, 42)
	ram.Write(0, 99)
	assert(t, ram.Read(0) == 42, "write to ReadOnly region should be dropped, got %d", ram.Read(0))

	ram.SetRaw(1, 7)
	assert(t, ram.Read(1) == 0, "read from NoAccess region should return 0, got %d", ram.Read(1))

	ram.Write(2, 123)
	assert(t, ram.Read(2) == 123, "write to ReadWrite gap should succeed, got %d", ram.Read(2))
}

func TestRAMCallback(t *testing.T) {
	ram, err := NewRAM(nil)
	assert(t, err == nil, "NewRAM failed: %v", err)

	var seen Word
	ram.RegisterCallback(10, func(v Word) { seen = v })
	ram.Write(10, 55)
	assert(t, seen == 55, "callback did not observe write, got %d", seen)

	ram.RegisterCallback(10, func(v Word) { seen = v * 2 })
	ram.Write(10, 4)
	assert(t, seen == 8, "later registration should overwrite callback, got %d", seen)
}

func TestALUWrap(t *testing.T) {
	x, y := Word(0xFFFF), Word(2)
	out, err := aluResult(true, 0b000, x, y, 0)
	assert(t, err == nil, "add errored: %v", err)
	assert(t, out == 1, "0xFFFF+2 should wrap to 1, got %#04x", out)

	out, err = aluResult(true, 0b001, Word(0), Word(1), 0)
	assert(t, err == nil, "sub errored: %v", err)
	assert(t, out == 0xFFFF, "0-1 should wrap to 0xFFFF, got %#04x", out)
}

func TestASRIsSignPreservingLeftShift(t *testing.T) {
	out, err := aluResult(true, 0b100, Word(0x8001), 0, 0)
	assert(t, err == nil, "asr errored: %v", err)
	assert(t, out == 0x8002, "asr(0x8001) should be 0x8002 (sign-preserving left shift), got %#04x", out)
}

func TestInvalidOpCombination(t *testing.T) {
	// All eight op codes are mapped for u=0 (logic); only u=1 (arithmetic)
	// leaves codes 0b101-0b111 undefined.
	_, err := aluResult(true, 0b101, 0, 0, 0xDEAD)
	var invalid *InvalidInstructionError
	assert(t, errors.As(err, &invalid), "expected InvalidInstructionError, got %v", err)
}

func oneInstructionImage(word Word) *Image {
	return NewImage(0, []Word{word, 0}, RegisterInits{})
}

func TestScenarioS1(t *testing.T) {
	img := oneInstructionImage(0x9234)
	v, err := New(img)
	assert(t, err == nil, "New failed: %v", err)

	assert(t, v.Cycle() == nil, "cycle 1 should not error")
	assert(t, v.Regs.A == 0x1234, "A should be 0x1234, got %#04x", v.Regs.A)
	assert(t, v.PC == 1, "PC should be 1, got %#04x", v.PC)

	err = v.Cycle()
	var halted *HaltedError
	assert(t, errors.As(err, &halted), "expected HaltedError, got %v", err)
	assert(t, halted.PC == 2, "halted PC should be 2, got %d", halted.PC)
}

// TestScenarioS2 mirrors the reference implementation's own unit test,
// cycling six hand-encoded instructions equivalent to:
//
//	A = 0x1234
//	D = add, 0, A
//	A = 0
//	*A = add, 0, D
//	A = 0x512
//	JMP
func TestScenarioS2(t *testing.T) {
	rom := []Word{
		Encode(Instruction{IsData: true, Data: 0x1234}),
		EncodeRaw(RegD, RegA, 0b000, true, true, false, false, false, false),
		Encode(Instruction{IsData: true, Data: 0}),
		EncodeRaw(RegStarA, RegD, 0b000, true, true, true, false, false, false),
		Encode(Instruction{IsData: true, Data: 0x512}),
		JumpAlways,
		0,
	}
	img := NewImage(0, rom, RegisterInits{})
	v, err := New(img)
	assert(t, err == nil, "New failed: %v", err)

	for i := 0; i < 6; i++ {
		assert(t, v.Cycle() == nil, "cycle %d should not error", i+1)
	}

	assert(t, v.Regs.A == 0x512, "A should be 0x512, got %#04x", v.Regs.A)
	assert(t, v.Regs.D == 0x1234, "D should be 0x1234, got %#04x", v.Regs.D)
	assert(t, v.PC == 0x512, "PC should be 0x512, got %#04x", v.PC)
	assert(t, v.RAM.Read(0) == 0x1234, "RAM[0] should be 0x1234, got %#04x", v.RAM.Read(0))
	assert(t, v.RAM.Read(1) == 0, "RAM[1] should be 0, got %#04x", v.RAM.Read(1))

	var halted *HaltedError
	err = v.Cycle()
	assert(t, errors.As(err, &halted), "expected HaltedError on 7th cycle, got %v", err)
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	img := NewImage(5, []Word{1, 2, 3, 0}, RegisterInits{A: 1, D: 2, E: 3, F: 4, G: 5, H: 6})
	img.Mappings = []RomMapping{{RomAddr: 0, Length: 3, RamAddr: 0x100}}
	img.RAM[0x200] = 0xBEEF

	data, err := img.Serialize()
	assert(t, err == nil, "serialize failed: %v", err)

	got, err := Deserialize(data)
	assert(t, err == nil, "deserialize failed: %v", err)

	assert(t, got.PC == img.PC, "PC mismatch")
	assert(t, got.Registers == img.Registers, "register inits mismatch")
	assert(t, len(got.ROM) == len(img.ROM), "ROM length mismatch")
	for i := range img.ROM {
		assert(t, got.ROM[i] == img.ROM[i], "ROM[%d] mismatch", i)
	}
	assert(t, got.RAM == img.RAM, "RAM snapshot mismatch")
	assert(t, len(got.Mappings) == 1 && got.Mappings[0] == img.Mappings[0], "mapping mismatch")

	reSerialized, err := got.Serialize()
	assert(t, err == nil, "re-serialize failed: %v", err)
	assert(t, string(reSerialized) == string(data), "re-serialized bytes differ from original")
}

func TestUARTRoundTrip(t *testing.T) {
	img := NewImage(0, []Word{0}, RegisterInits{})
	v, u, err := ConnectUART(img)
	assert(t, err == nil, "ConnectUART failed: %v", err)

	u.PutInput('x')
	SyncUART(v, u)
	assert(t, v.RAM.Read(UARTIFlags)&uartFlagDA != 0, "DA flag should be set after PutInput")

	v.RAM.Write(UARTOFlags, uartStrobeIR)
	assert(t, u.InputByte() == Word('x'), "input byte should be latched after IR strobe")

	v.RAM.Write(UARTOut, Word('y'))
	v.RAM.Write(UARTOFlags, uartStrobeOW)
	out, ok := u.GetOutput()
	assert(t, ok && out == 'y', "expected output byte 'y', got %v ok=%v", out, ok)

	_, err = New(img)
	assert(t, err == nil, "rebuilding VM after ConnectUART mutation should still succeed: %v", err)
}
