// Package asm implements the two-pass assembler pipeline: preprocess,
// text pass, const pass.
package asm

import (
	"regexp"
	"strconv"
	"strings"

	"bric/vm"
)

// reIdent matches label and macro/define names.
var reIdent = regexp.MustCompile(`^[A-Za-z._]+$`)

// reNumber matches the number literal grammar: 0x hex, 0b binary, or
// plain decimal.
var reNumber = regexp.MustCompile(`^(0x[0-9a-fA-F]+|0b[01]+|[0-9]+)$`)

// numberLiteral parses a number literal token into a Word.
func numberLiteral(tok string) (vm.Word, bool) {
	if !reNumber.MatchString(tok) {
		return 0, false
	}
	switch {
	case strings.HasPrefix(tok, "0x"):
		v, err := strconv.ParseUint(tok[2:], 16, 32)
		return vm.Word(v), err == nil
	case strings.HasPrefix(tok, "0b"):
		v, err := strconv.ParseUint(tok[2:], 2, 32)
		return vm.Word(v), err == nil
	default:
		v, err := strconv.ParseUint(tok, 10, 32)
		return vm.Word(v), err == nil
	}
}

// registers, keywords, and mnemonics are reserved names: macros and
// defines may not collide with any of them.
var reservedRegisters = map[string]bool{
	"A": true, "*A": true, "D": true, "E": true, "F": true, "G": true, "H": true,
}

var reservedKeywords = map[string]bool{
	"begin": true, "end": true, "label": true,
}

var reservedMnemonics = map[string]bool{
	"and": true, "or": true, "xor": true, "add": true, "sub": true,
	"inc": true, "dec": true, "not": true, "lsl": true, "lsr": true,
	"asr": true, "rol": true, "ror": true,
}

func isReserved(name string) bool {
	return reservedRegisters[name] || reservedKeywords[name] || reservedMnemonics[name]
}
