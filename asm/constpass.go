package asm

import (
	"strings"

	"bric/vm"
)

// DefaultConstsMount is the RAM address used for the constants block
// when a source has no [consts N] section.
const DefaultConstsMount vm.Word = 0xFFF0

// padToBoundary pads rom with zeros until its length is a multiple of
// 16. A ROM whose length is already a multiple of 16 is left unchanged.
func padToBoundary(rom []vm.Word) []vm.Word {
	more := (0x10 - len(rom)%0x10) % 0x10
	for i := 0; i < more; i++ {
		rom = append(rom, 0)
	}
	return rom
}

// ConstPass pads rom to a 16-word boundary, then streams the [consts N]
// section, appending constant words to rom and resolving every label
// use recorded by the text pass. It returns the final Image.
func ConstPass(pc vm.Word, rom []vm.Word, mount vm.Word, constsText string, labelDefs map[string]int, labelUses map[string][]int, lastLine int) (*vm.Image, error) {
	rom = padToBoundary(rom)
	constsStart := len(rom)

	lines := splitLines(constsText)
	for i, raw := range lines {
		lineNo := lastLine + i + 1
		line := strings.TrimSpace(stripComment(raw))
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, reLabelDef) && strings.HasSuffix(line, ":") {
			name := strings.TrimSpace(line[len(reLabelDef) : len(line)-1])
			if !reIdent.MatchString(name) {
				return nil, parseErrf(lineNo, line, "invalid label name %q", name)
			}
			if _, exists := labelDefs[name]; exists {
				return nil, parseErrf(lineNo, line, "duplicate label %q", name)
			}
			labelDefs[name] = int(mount) + (len(rom) - constsStart)
			continue
		}

		if strings.HasPrefix(line, "M") {
			idx := strings.IndexByte(line, '=')
			if idx < 0 {
				return nil, parseErrf(lineNo, line, "expected 'M = VALUE'")
			}
			valTok := strings.TrimSpace(line[idx+1:])
			val, ok := numberLiteral(valTok)
			if !ok {
				return nil, parseErrf(lineNo, line, "invalid number literal %q", valTok)
			}
			rom = append(rom, val)
			continue
		}

		return nil, parseErrf(lineNo, line, "unrecognized consts-section line")
	}

	constsLen := len(rom) - constsStart

	for name, uses := range labelUses {
		addr, ok := labelDefs[name]
		if !ok {
			return nil, parseErrf(0, "", "label %q used but never defined", name)
		}
		if addr > 0x7FFF {
			return nil, parseErrf(0, "", "label %q resolves to %#x, exceeds 0x7FFF", name, addr)
		}
		for _, useIdx := range uses {
			rom[useIdx] |= vm.Word(addr)
		}
	}

	img := vm.NewImage(pc, rom, vm.RegisterInits{})
	if constsLen > 0 {
		img.Mappings = []vm.RomMapping{{RomAddr: vm.Word(constsStart), Length: vm.Word(constsLen), RamAddr: mount}}
	}
	return img, nil
}
