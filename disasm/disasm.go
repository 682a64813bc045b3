// Package disasm renders ROM words back into assembly-like text on a
// best-effort basis: words no assembler would produce still decode to
// some textual form where possible.
package disasm

import (
	"fmt"
	"strings"

	"bric/vm"
)

// Inst renders a single ROM word. Unmapped (u,op) combinations render
// with an empty mnemonic rather than erroring, per §4.5.
func Inst(word vm.Word) string {
	inst, err := vm.Decode(word)
	if err != nil {
		return ""
	}

	if inst.IsData {
		return fmt.Sprintf("A = %d", inst.Data)
	}

	f := inst.Alu
	var b strings.Builder

	if f.Target != vm.RegNone {
		fmt.Fprintf(&b, "%s = ", f.Target)
	}

	x, y := f.Source.String(), "A"
	if f.SW {
		x, y = "A", f.Source.String()
	}
	if f.ZX {
		x = "0"
	}

	combined := uint8(f.Op)
	if f.U {
		combined |= 0b1000
	}
	switch combined {
	case 0:
		fmt.Fprintf(&b, "and, %s, %s", y, x)
	case 1:
		fmt.Fprintf(&b, "or, %s, %s", y, x)
	case 2:
		fmt.Fprintf(&b, "xor, %s, %s", y, x)
	case 3:
		fmt.Fprintf(&b, "not, %s", x)
	case 4:
		fmt.Fprintf(&b, "lsl, %s", x)
	case 5:
		fmt.Fprintf(&b, "lsr, %s", x)
	case 6:
		fmt.Fprintf(&b, "rol, %s", x)
	case 7:
		fmt.Fprintf(&b, "ror, %s", x)
	case 8:
		fmt.Fprintf(&b, "add, %s, %s", x, y)
	case 9:
		fmt.Fprintf(&b, "sub, %s, %s", x, y)
	case 10:
		fmt.Fprintf(&b, "inc, %s", x)
	case 11:
		fmt.Fprintf(&b, "dec, %s", x)
	case 12:
		fmt.Fprintf(&b, "asr, %s", x)
	default:
		// unmapped (u,op) combination: no assembler mnemonic exists for it
	}

	switch {
	case f.LT && f.EQ && f.GT:
		b.WriteString("; JMP")
	case f.LT && f.EQ && !f.GT:
		b.WriteString("; JLE")
	case !f.LT && f.EQ && f.GT:
		b.WriteString("; JGE")
	case !f.LT && !f.EQ && f.GT:
		b.WriteString("; JGT")
	case !f.LT && f.EQ && !f.GT:
		b.WriteString("; JEQ")
	case f.LT && !f.EQ && !f.GT:
		b.WriteString("; JLT")
	case f.LT && !f.EQ && f.GT:
		b.WriteString("; JNE")
	}

	return b.String()
}

// ROM renders every word of rom, one line per word. When lines is true,
// each line is prefixed with its hex address.
func ROM(rom []vm.Word, lines bool) string {
	var b strings.Builder
	for idx, word := range rom {
		if lines {
			fmt.Fprintf(&b, "0x%04x:\t", idx)
		}
		b.WriteString(Inst(word))
		b.WriteByte('\n')
	}
	return b.String()
}
