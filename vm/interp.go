package vm

import "fmt"

// VM is the runtime state the interpreter cycles over: registers, PC,
// RAM, and ROM. It owns all of these exclusively, plus any callbacks
// registered on its RAM.
type VM struct {
	Regs Registers
	PC   Word
	RAM  *RAM
	ROM  *ROM
}

// New builds a runtime VM from an Image: it constructs RAM regions from
// the image's ROM->RAM mappings and read-only blocks (both become
// ReadOnly regions; any overlap between them is a construction error),
// loads the image's raw RAM snapshot, copies ROM content into RAM per
// each mapping over that snapshot, and seeds the register file and PC.
func New(img *Image) (*VM, error) {
	regions := make([]region, 0, len(img.Mappings)+len(img.RomBlocks))
	for _, m := range img.Mappings {
		if m.Length == 0 {
			continue
		}
		regions = append(regions, region{Start: m.RamAddr, End: m.RamAddr + m.Length - 1, Level: ReadOnly})
	}
	for _, b := range img.RomBlocks {
		if b.Length == 0 {
			continue
		}
		regions = append(regions, region{Start: b.RamAddr, End: b.RamAddr + b.Length - 1, Level: ReadOnly})
	}

	ram, err := NewRAM(regions)
	if err != nil {
		return nil, err
	}

	for i := 0; i < RAMLen; i++ {
		ram.SetRaw(Word(i), img.RAM[i])
	}
	for _, m := range img.Mappings {
		for i := Word(0); i < m.Length; i++ {
			w, ok := boundedROMWord(img.ROM, int(m.RomAddr)+int(i))
			if !ok {
				continue
			}
			ram.SetRaw(m.RamAddr+i, w)
		}
	}

	vm := &VM{
		PC:  img.PC,
		RAM: ram,
		ROM: NewROM(img.ROM),
		Regs: Registers{
			A: img.Registers.A, D: img.Registers.D, E: img.Registers.E,
			F: img.Registers.F, G: img.Registers.G, H: img.Registers.H,
		},
	}
	return vm, nil
}

func boundedROMWord(rom []Word, idx int) (Word, bool) {
	if idx < 0 || idx >= len(rom) {
		return 0, false
	}
	return rom[idx], true
}

// ToImage regenerates a fresh, serializable Image from the current
// runtime state. Callbacks and the original region labels are lost: the
// resulting image carries no mappings or read-only blocks, matching the
// "VM may regenerate a fresh image... callbacks and original regions are
// lost by design" lifecycle rule.
func (v *VM) ToImage() *Image {
	img := &Image{
		PC:  v.PC,
		ROM: v.ROM.Words(),
		Registers: RegisterInits{
			A: v.Regs.A, D: v.Regs.D, E: v.Regs.E, F: v.Regs.F, G: v.Regs.G, H: v.Regs.H,
		},
	}
	copy(img.RAM[:], v.RAM.Slice(0, RAMLen))
	return img
}

// readOperand resolves a register for reading: RegStarA reads RAM[A],
// RegNone (the source field of the canonical JMP word, which otherwise
// has no operand of interest) reads as 0, everything else reads the
// latch file directly.
func (v *VM) readOperand(reg Register) Word {
	switch reg {
	case RegStarA:
		return v.RAM.Read(v.Regs.A)
	case RegNone:
		return 0
	default:
		return v.Regs.Get(reg)
	}
}

// writeTarget stores output into the target register: RegNone discards
// it, RegStarA writes through RAM (honoring access levels and
// callbacks), everything else stores into the latch file.
func (v *VM) writeTarget(reg Register, output Word) {
	switch reg {
	case RegNone:
	case RegStarA:
		v.RAM.Write(v.Regs.A, output)
	default:
		v.Regs.Set(reg, output)
	}
}

// aluResult computes the ALU operation table's output for operands x,y.
// Any (u,op) pair not in the table is an InvalidInstructionError.
func aluResult(u bool, op uint8, x, y Word, raw Word) (Word, error) {
	if u {
		switch op {
		case 0b000:
			return x + y, nil
		case 0b001:
			return x - y, nil
		case 0b010:
			return x + 1, nil
		case 0b011:
			return x - 1, nil
		case 0b100: // "asr": sign-preserving LEFT shift, preserved per reference
			return (x & 0x8000) | (x << 1), nil
		default:
			return 0, &InvalidInstructionError{Instruction: raw}
		}
	}
	switch op {
	case 0b000:
		return x & y, nil
	case 0b001:
		return x | y, nil
	case 0b010:
		return x ^ y, nil
	case 0b011:
		return ^x, nil
	case 0b100:
		return x << 1, nil
	case 0b101:
		return x >> 1, nil
	case 0b110: // rol
		return (x << 1) | (x >> 15), nil
	case 0b111: // ror
		return (x >> 1) | (x << 15), nil
	default:
		return 0, &InvalidInstructionError{Instruction: raw}
	}
}

// Cycle executes one fetch/decode/execute step. It returns a
// *HaltedError (wrapping ErrHalted) when PC has advanced past the end of
// ROM; that is the canonical, non-fatal terminator. Any other returned
// error indicates a decode or execution defect and should abort the run.
func (v *VM) Cycle() error {
	word, ok := v.ROM.At(int(v.PC))
	if !ok {
		return &HaltedError{PC: v.PC}
	}

	inst, err := Decode(word)
	if err != nil {
		return err
	}

	if inst.IsData {
		v.Regs.A = inst.Data
		v.PC++
		return nil
	}

	f := inst.Alu
	other := v.readOperand(f.Source)

	var x, y Word
	if f.SW {
		x, y = v.Regs.A, other
	} else {
		x, y = other, v.Regs.A
	}
	if f.ZX {
		x = 0
	}

	output, err := aluResult(f.U, f.Op, x, y, word)
	if err != nil {
		return err
	}

	signed := int16(output)
	lt := signed < 0
	gt := signed > 0
	eq := signed == 0

	taken := (lt && f.LT) || (gt && f.GT) || (eq && f.EQ)
	if taken {
		v.PC = v.Regs.A - 1
	}

	v.writeTarget(f.Target, output)

	v.PC++
	return nil
}

func (v *VM) String() string {
	return fmt.Sprintf("PC=%#04x A=%#04x D=%#04x E=%#04x F=%#04x G=%#04x H=%#04x",
		v.PC, v.Regs.A, v.Regs.D, v.Regs.E, v.Regs.F, v.Regs.G, v.Regs.H)
}
