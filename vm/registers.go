package vm

// Word is the machine's native 16-bit unit: memory cells, ROM words,
// registers, and the PC are all words. Arithmetic wraps modulo 2^16 by
// virtue of Go's uint16 semantics.
type Word = uint16

// Register identifies one of the eight register codes packed into an ALU
// instruction's source/target fields.
type Register uint8

const (
	RegNone Register = 0
	RegA    Register = 1
	RegStarA Register = 2 // *A, pseudo-register for RAM[A]
	RegD    Register = 3
	RegE    Register = 4
	RegF    Register = 5
	RegG    Register = 6
	RegH    Register = 7
)

func (r Register) String() string {
	switch r {
	case RegNone:
		return "None"
	case RegA:
		return "A"
	case RegStarA:
		return "*A"
	case RegD:
		return "D"
	case RegE:
		return "E"
	case RegF:
		return "F"
	case RegG:
		return "G"
	case RegH:
		return "H"
	default:
		return "?"
	}
}

// ParseRegister converts a 3-bit field value into a Register, rejecting
// codes above 7. The field width already guarantees this in practice, but
// the check is kept explicit per the bit-layout design note.
func ParseRegister(code uint16) (Register, error) {
	if code > 7 {
		return 0, &InstParseError{Value: code, Message: "register code out of range"}
	}
	return Register(code), nil
}

// Registers is the named 16-bit latch file: A, D, E, F, G, H. *A and None
// are not storage cells and are not represented here.
type Registers struct {
	A, D, E, F, G, H Word
}

// Get returns the latch value for a storage register. RegNone and
// RegStarA are not valid inputs and panic; callers resolve those via the
// RAM before calling Get.
func (r *Registers) Get(reg Register) Word {
	switch reg {
	case RegA:
		return r.A
	case RegD:
		return r.D
	case RegE:
		return r.E
	case RegF:
		return r.F
	case RegG:
		return r.G
	case RegH:
		return r.H
	default:
		panic("vm: Get called with non-latch register")
	}
}

// Set stores into a latch register. Writes to RegNone are dropped by
// callers before reaching Set; RegStarA is resolved through RAM instead.
func (r *Registers) Set(reg Register, v Word) {
	switch reg {
	case RegA:
		r.A = v
	case RegD:
		r.D = v
	case RegE:
		r.E = v
	case RegF:
		r.F = v
	case RegG:
		r.G = v
	case RegH:
		r.H = v
	case RegNone:
		// discard
	default:
		panic("vm: Set called with non-latch register")
	}
}
