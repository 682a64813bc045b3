package asm

import (
	"testing"

	"bric/vm"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

func TestScenarioS3Define(t *testing.T) {
	src := "[macros]\ndefine X 7\n[text]\nA = X\n"
	img, err := Assemble(src)
	assert(t, err == nil, "assemble failed: %v", err)
	assert(t, len(img.ROM) == 16, "expected 16 ROM words (instruction + padding, zero-filled to a 16-word boundary), got %d", len(img.ROM))
	assert(t, img.ROM[0] == vm.Encode(vm.Instruction{IsData: true, Data: 7}), "expected Data(7), got %#04x", img.ROM[0])
}

func TestScenarioS4Consts(t *testing.T) {
	src := "[text]\nA = 0\n[consts 0x100]\nM = 1\nM = 2\nM = 3\n"
	img, err := Assemble(src)
	assert(t, err == nil, "assemble failed: %v", err)

	assert(t, len(img.Mappings) == 1, "expected one mapping, got %d", len(img.Mappings))
	m := img.Mappings[0]
	assert(t, m.RamAddr == 0x100, "expected mount 0x100, got %#04x", m.RamAddr)
	assert(t, m.Length == 3, "expected 3 const words, got %d", m.Length)

	constsStart := int(m.RomAddr)
	assert(t, img.ROM[constsStart] == 1 && img.ROM[constsStart+1] == 2 && img.ROM[constsStart+2] == 3,
		"expected consts [1,2,3] at %d, got %v", constsStart, img.ROM[constsStart:constsStart+3])
}

func TestScenarioS5ForwardLabel(t *testing.T) {
	src := "[text]\nA = forward\nA = 0\nlabel forward:\nA = 1\n"
	img, err := Assemble(src)
	assert(t, err == nil, "assemble failed: %v", err)

	inst, err := vm.Decode(img.ROM[0])
	assert(t, err == nil, "decode failed: %v", err)
	assert(t, inst.IsData, "expected Data instruction at index 0")
	assert(t, inst.Data == 2, "forward label should resolve to ROM index 2, got %d", inst.Data)
}

func TestDefaultConstsMount(t *testing.T) {
	src := "[text]\nA = 0\n"
	img, err := Assemble(src)
	assert(t, err == nil, "assemble failed: %v", err)
	assert(t, len(img.Mappings) == 0, "no [consts] section should produce no mapping, got %v", img.Mappings)
}

func TestMacroExpansion(t *testing.T) {
	src := "[macros]\nbegin setA(val)\nA = val\nend\n[text]\nsetA(9)\n"
	img, err := Assemble(src)
	assert(t, err == nil, "assemble failed: %v", err)
	inst, err := vm.Decode(img.ROM[0])
	assert(t, err == nil, "decode failed: %v", err)
	assert(t, inst.IsData && inst.Data == 9, "expected Data(9) from macro expansion, got %+v", inst)
}

func TestRolRorMnemonicSwap(t *testing.T) {
	src := "[text]\nD = rol, A\n"
	img, err := Assemble(src)
	assert(t, err == nil, "assemble failed: %v", err)
	inst, err := vm.Decode(img.ROM[0])
	assert(t, err == nil, "decode failed: %v", err)
	assert(t, !inst.IsData, "expected ALU instruction")
	assert(t, inst.Alu.Op == 0b111, "'rol' should emit op 0b111 (ror's code) per the preserved mnemonic swap, got %03b", inst.Alu.Op)
}

func TestSectionOrderRejected(t *testing.T) {
	src := "[text]\nA = 0\n[macros]\ndefine X 1\n"
	_, err := Assemble(src)
	assert(t, err != nil, "expected section-order error")
}

func TestMissingTextSectionRejected(t *testing.T) {
	src := "[macros]\ndefine X 1\n"
	_, err := Assemble(src)
	assert(t, err != nil, "expected missing [text] error")
}

func TestAssembleScenarioS2Program(t *testing.T) {
	src := "[text]\n" +
		"A = 0x1234\n" +
		"D = add, 0, A\n" +
		"A = 0\n" +
		"*A = add, 0, D\n" +
		"A = 0x512\n" +
		"JMP\n"

	img, err := Assemble(src)
	assert(t, err == nil, "assemble failed: %v", err)

	v, err := vm.New(img)
	assert(t, err == nil, "vm.New failed: %v", err)

	for i := 0; i < 6; i++ {
		assert(t, v.Cycle() == nil, "cycle %d should not error", i+1)
	}

	assert(t, v.Regs.A == 0x512, "A should be 0x512, got %#04x", v.Regs.A)
	assert(t, v.Regs.D == 0x1234, "D should be 0x1234, got %#04x", v.Regs.D)
	assert(t, v.PC == 0x512, "PC should be 0x512, got %#04x", v.PC)
	assert(t, v.RAM.Read(0) == 0x1234, "RAM[0] should be 0x1234, got %#04x", v.RAM.Read(0))
	assert(t, v.RAM.Read(1) == 0, "RAM[1] should be 0, got %#04x", v.RAM.Read(1))
}
