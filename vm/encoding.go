package vm

// Bit 15 selects the instruction variant: 1 marks a Data instruction
// (load low 15 bits into A), 0 marks an Alu instruction.
const bit15 Word = 1 << 15

// AluFields is the decoded form of an Alu instruction word. Field order
// mirrors the bit layout table: gt(0) eq(1) lt(2) target(3-5) zx(6) sw(7)
// op(8-10) u(11) source(12-14).
type AluFields struct {
	GT     bool
	EQ     bool
	LT     bool
	Target Register
	ZX     bool
	SW     bool
	Op     uint8
	U      bool
	Source Register
}

// Instruction is the decoded form of a ROM word: either a Data load or an
// Alu instruction.
type Instruction struct {
	IsData bool
	Data   Word // valid when IsData
	Alu    AluFields
}

// Decode splits a raw ROM word into its Data or Alu variant. Register
// fields are always in range because they are 3 bits wide; ParseRegister
// is still called for documentation/parity with the design note that
// decoding must reject out-of-range codes.
func Decode(w Word) (Instruction, error) {
	if w&bit15 != 0 {
		return Instruction{IsData: true, Data: w & ^bit15}, nil
	}

	target, err := ParseRegister((w >> 3) & 0x7)
	if err != nil {
		return Instruction{}, err
	}
	source, err := ParseRegister((w >> 12) & 0x7)
	if err != nil {
		return Instruction{}, err
	}

	return Instruction{
		IsData: false,
		Alu: AluFields{
			GT:     w&(1<<0) != 0,
			EQ:     w&(1<<1) != 0,
			LT:     w&(1<<2) != 0,
			Target: target,
			ZX:     w&(1<<6) != 0,
			SW:     w&(1<<7) != 0,
			Op:     uint8((w >> 8) & 0x7),
			U:      w&(1<<11) != 0,
			Source: source,
		},
	}, nil
}

// Encode packs an Instruction back into its raw word form.
func Encode(inst Instruction) Word {
	if inst.IsData {
		return bit15 | (inst.Data & ^bit15)
	}

	f := inst.Alu
	var w Word
	if f.GT {
		w |= 1 << 0
	}
	if f.EQ {
		w |= 1 << 1
	}
	if f.LT {
		w |= 1 << 2
	}
	w |= Word(f.Target&0x7) << 3
	if f.ZX {
		w |= 1 << 6
	}
	if f.SW {
		w |= 1 << 7
	}
	w |= Word(f.Op&0x7) << 8
	if f.U {
		w |= 1 << 11
	}
	w |= Word(f.Source&0x7) << 12
	return w
}

// EncodeRaw packs the flag/field triple directly, used by the assembler
// where fields are computed individually rather than built up into an
// AluFields value.
func EncodeRaw(target, source Register, op uint8, u, zx, sw, lt, eq, gt bool) Word {
	return Encode(Instruction{Alu: AluFields{
		GT: gt, EQ: eq, LT: lt,
		Target: target, ZX: zx, SW: sw,
		Op: op, U: u, Source: source,
	}})
}

// JumpAlways is the canonical "always branch" ALU word emitted for a bare
// JMP line: lt=eq=gt=1, everything else zero.
const JumpAlways Word = 0b0000000000000111
