package asm

import (
	"strings"

	"bric/vm"
)

// aluOp describes the (u, op) pair a mnemonic emits, and how many
// operands its syntax takes.
type aluOp struct {
	u        bool
	op       uint8
	operands int
}

// mnemonics maps mnemonic text to its (u,op) pair. rol and ror are
// intentionally swapped relative to the operation table in §4.3: typing
// "rol" emits the ror opcode and vice versa, preserving the reference
// assembler's defect byte-for-byte (see SPEC_FULL.md Open Question 1).
var mnemonics = map[string]aluOp{
	"add": {true, 0b000, 2},
	"sub": {true, 0b001, 2},
	"inc": {true, 0b010, 1},
	"dec": {true, 0b011, 1},
	"asr": {true, 0b100, 1},
	"and": {false, 0b000, 2},
	"or":  {false, 0b001, 2},
	"xor": {false, 0b010, 2},
	"not": {false, 0b011, 1},
	"lsl": {false, 0b100, 1},
	"lsr": {false, 0b101, 1},
	"rol": {false, 0b111, 1},
	"ror": {false, 0b110, 1},
}

// jumpFlags maps a jump condition keyword to its (lt,eq,gt) triple.
// JGE is intentionally identical to JLE, preserving the reference
// assembler's JLE/JGE flag collision (SPEC_FULL.md Open Question 2):
// JGE can never trigger as "greater or equal" under this mapping.
var jumpFlags = map[string][3]bool{
	"JLT": {true, false, false},
	"JEQ": {false, true, false},
	"JGT": {false, false, true},
	"JLE": {true, true, false},
	"JGE": {true, true, false},
	"JMP": {true, true, true},
	"JNE": {true, false, true},
}

func registerFromToken(tok string) (vm.Register, bool) {
	switch tok {
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

// textOutput is the intermediate result of the text pass: ROM words plus
// the label tables needed for the const pass's second pass.
type textOutput struct {
	rom        []vm.Word
	labelDefs  map[string]int
	labelUses  map[string][]int
	lastLine   int
}

var reLabelDef = "label "

// TextPass tokenizes the preprocessed [text] lines into ROM words,
// collecting label definitions and uses for later resolution.
func TextPass(lines []string) (*textOutput, error) {
	out := &textOutput{labelDefs: map[string]int{}, labelUses: map[string][]int{}}

	for i, raw := range lines {
		lineNo := i + 1
		out.lastLine = lineNo
		line := strings.TrimSpace(stripComment(raw))
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, reLabelDef) && strings.HasSuffix(line, ":") {
			name := strings.TrimSpace(line[len(reLabelDef) : len(line)-1])
			if !reIdent.MatchString(name) {
				return nil, parseErrf(lineNo, line, "invalid label name %q", name)
			}
			if _, exists := out.labelDefs[name]; exists {
				return nil, parseErrf(lineNo, line, "duplicate label %q", name)
			}
			out.labelDefs[name] = len(out.rom)
			continue
		}

		if line == "JMP" {
			out.rom = append(out.rom, vm.JumpAlways)
			continue
		}

		word, label, err := parseInstructionLine(lineNo, line)
		if err != nil {
			return nil, err
		}
		if label != "" {
			out.labelUses[label] = append(out.labelUses[label], len(out.rom))
		}
		out.rom = append(out.rom, word)
	}

	out.rom = append(out.rom, 0)
	return out, nil
}

// parseInstructionLine parses "[TARGET =] OPERATION [; JCOND]". label is
// non-empty when the line is a bare identifier (a label use); in that
// case word is a Data(0) placeholder.
func parseInstructionLine(lineNo int, line string) (word vm.Word, label string, err error) {
	body := line
	var jcond string
	if idx := strings.IndexByte(line, ';'); idx >= 0 {
		body = strings.TrimSpace(line[:idx])
		jcond = strings.TrimSpace(line[idx+1:])
	}

	target := vm.RegA
	hasExplicitTarget := false
	if idx := strings.IndexByte(body, '='); idx >= 0 {
		targetTok := strings.TrimSpace(body[:idx])
		reg, ok := registerFromToken(targetTok)
		if !ok {
			return 0, "", parseErrf(lineNo, line, "invalid target register %q", targetTok)
		}
		target = reg
		hasExplicitTarget = true
		body = strings.TrimSpace(body[idx+1:])
	} else {
		target = vm.RegNone
	}

	tokens := splitOperands(body)
	mnemonic := tokens[0]

	if spec, ok := mnemonics[mnemonic]; ok {
		return assembleALU(lineNo, line, target, spec, tokens[1:], jcond)
	}

	if jcond != "" {
		return 0, "", parseErrf(lineNo, line, "jump condition only valid on ALU instructions")
	}

	if val, ok := numberLiteral(mnemonic); ok {
		if val > 0x7FFF {
			return 0, "", parseErrf(lineNo, line, "data literal %#x exceeds 0x7FFF", val)
		}
		if hasExplicitTarget && target != vm.RegA {
			return 0, "", parseErrf(lineNo, line, "data instructions may only target A")
		}
		return vm.Encode(vm.Instruction{IsData: true, Data: val}), "", nil
	}

	if reIdent.MatchString(mnemonic) {
		if hasExplicitTarget && target != vm.RegA {
			return 0, "", parseErrf(lineNo, line, "label loads may only target A")
		}
		return vm.Encode(vm.Instruction{IsData: true, Data: 0}), mnemonic, nil
	}

	return 0, "", parseErrf(lineNo, line, "unrecognized operation %q", mnemonic)
}

func splitOperands(body string) []string {
	parts := strings.Split(body, ",")
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.TrimSpace(p)
	}
	return out
}

func assembleALU(lineNo int, line string, target vm.Register, spec aluOp, operands []string, jcond string) (vm.Word, string, error) {
	if len(operands) != spec.operands {
		return 0, "", parseErrf(lineNo, line, "operation expects %d operand(s), got %d", spec.operands, len(operands))
	}

	var source vm.Register
	var sw, zx bool
	var err error

	if spec.operands == 1 {
		source, sw, zx, err = parseOneOperand(lineNo, line, operands[0])
	} else {
		source, sw, zx, err = parseTwoOperands(lineNo, line, operands[0], operands[1], spec)
	}
	if err != nil {
		return 0, "", err
	}

	lt, eq, gt := false, false, false
	if jcond != "" {
		flags, ok := jumpFlags[jcond]
		if !ok {
			return 0, "", parseErrf(lineNo, line, "unknown jump condition %q", jcond)
		}
		lt, eq, gt = flags[0], flags[1], flags[2]
	}

	return vm.EncodeRaw(target, source, spec.op, spec.u, zx, sw, lt, eq, gt), "", nil
}

func parseOneOperand(lineNo int, line, tok string) (source vm.Register, sw, zx bool, err error) {
	if tok == "A" {
		return vm.RegA, true, false, nil
	}
	if tok == "0" {
		return vm.RegA, false, true, nil
	}
	reg, ok := registerFromToken(tok)
	if !ok {
		return 0, false, false, parseErrf(lineNo, line, "invalid operand %q", tok)
	}
	return reg, false, false, nil
}

func parseTwoOperands(lineNo int, line, x, y string, spec aluOp) (source vm.Register, sw, zx bool, err error) {
	arithmetic := spec.u && (spec.op == 0b000 || spec.op == 0b001)

	switch {
	case x == "A":
		if arithmetic && y == "0" {
			return 0, false, false, parseErrf(lineNo, line, "zero is not accepted as the right operand of arithmetic")
		}
		reg, ok := registerFromToken(y)
		if !ok {
			return 0, false, false, parseErrf(lineNo, line, "invalid operand %q", y)
		}
		return reg, true, false, nil

	case y == "A":
		if x == "0" {
			return vm.RegA, false, true, nil
		}
		reg, ok := registerFromToken(x)
		if !ok {
			return 0, false, false, parseErrf(lineNo, line, "invalid operand %q", x)
		}
		return reg, false, false, nil

	case x == "0":
		if arithmetic && y == "0" {
			return 0, false, false, parseErrf(lineNo, line, "zero is not accepted as the right operand")
		}
		reg, ok := registerFromToken(y)
		if !ok {
			return 0, false, false, parseErrf(lineNo, line, "invalid operand %q", y)
		}
		return reg, true, true, nil

	default:
		return 0, false, false, parseErrf(lineNo, line, "one operand must be A, or the pair must be (0, y): got (%s, %s)", x, y)
	}
}
