package disasm

import (
	"strings"
	"testing"

	"bric/vm"
)

func assert(t *testing.T, cond bool, format string, args ...any) {
	t.Helper()
	if !cond {
		t.Fatalf(format, args...)
	}
}

func TestInstData(t *testing.T) {
	word := vm.Encode(vm.Instruction{IsData: true, Data: 0x1234})
	got := Inst(word)
	assert(t, got == "A = 4660", "expected decimal rendering, got %q", got)
}

func TestInstJumpAlways(t *testing.T) {
	got := Inst(vm.JumpAlways)
	assert(t, strings.HasSuffix(got, "; JMP"), "expected JMP suffix, got %q", got)
}

func TestInstArithmeticAdd(t *testing.T) {
	word := vm.EncodeRaw(vm.RegD, vm.RegA, 0b000, true, true, false, false, false, false)
	got := Inst(word)
	assert(t, strings.HasPrefix(got, "D = "), "expected D target prefix, got %q", got)
	assert(t, strings.Contains(got, "add"), "expected 'add' mnemonic, got %q", got)
}

func TestInstRolRorDistinctFromAssembler(t *testing.T) {
	// disasm maps op 0b110 to "rol" and 0b111 to "ror" directly from the
	// execution table, independent of the assembler's swapped mnemonics.
	rol := Inst(vm.EncodeRaw(vm.RegD, vm.RegA, 0b110, false, false, false, false, false, false))
	ror := Inst(vm.EncodeRaw(vm.RegD, vm.RegA, 0b111, false, false, false, false, false, false))
	assert(t, strings.Contains(rol, "rol"), "expected 'rol' for op 0b110, got %q", rol)
	assert(t, strings.Contains(ror, "ror"), "expected 'ror' for op 0b111, got %q", ror)
}

func TestInstJLEvsJGEDistinctBitPatterns(t *testing.T) {
	jle := Inst(vm.EncodeRaw(vm.RegNone, vm.RegA, 0b000, true, false, false, true, true, false))
	jge := Inst(vm.EncodeRaw(vm.RegNone, vm.RegA, 0b000, true, false, false, false, true, true))
	assert(t, strings.HasSuffix(jle, "; JLE"), "expected JLE suffix, got %q", jle)
	assert(t, strings.HasSuffix(jge, "; JGE"), "expected JGE suffix, got %q", jge)
}

func TestROMMultiLine(t *testing.T) {
	rom := []vm.Word{
		vm.Encode(vm.Instruction{IsData: true, Data: 1}),
		vm.Encode(vm.Instruction{IsData: true, Data: 2}),
	}
	out := ROM(rom, true)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	assert(t, len(lines) == 2, "expected 2 lines, got %d", len(lines))
	assert(t, strings.HasPrefix(lines[0], "0x0000:\t"), "expected address prefix, got %q", lines[0])
	assert(t, strings.HasPrefix(lines[1], "0x0001:\t"), "expected address prefix, got %q", lines[1])
}
