package asm

import (
	"regexp"
	"strings"

	"bric/vm"
)

var (
	reMacrosHeader = regexp.MustCompile(`^\s*\[macros\]\s*$`)
	reTextHeader   = regexp.MustCompile(`^\s*\[text\]\s*$`)
	reConstsHeader = regexp.MustCompile(`^\s*\[consts\s+(0x[0-9a-fA-F]+|0b[01]+|[0-9]+)\s*\]\s*$`)
)

type sectionKind int

const (
	sectionMacros sectionKind = iota
	sectionText
	sectionConsts
)

type section struct {
	kind  sectionKind
	mount vm.Word // only meaningful for sectionConsts
	lines []string
}

// splitSections partitions source into its [macros]/[text]/[consts N]
// blocks, enforcing that [text] is present and that sections appear in
// the order macros -> text -> consts.
func splitSections(source string) ([]section, error) {
	lines := splitLines(source)

	var sections []section
	var current *section
	seen := map[sectionKind]bool{}
	lastKind := -1

	flush := func() {
		if current != nil {
			sections = append(sections, *current)
		}
	}

	for i, line := range lines {
		lineNo := i + 1
		switch {
		case reMacrosHeader.MatchString(line):
			if lastKind > int(sectionMacros) {
				return nil, parseErrf(lineNo, line, "sections must appear in order macros -> text -> consts")
			}
			flush()
			current = &section{kind: sectionMacros}
			seen[sectionMacros] = true
			lastKind = int(sectionMacros)
		case reTextHeader.MatchString(line):
			if lastKind > int(sectionText) {
				return nil, parseErrf(lineNo, line, "sections must appear in order macros -> text -> consts")
			}
			flush()
			current = &section{kind: sectionText}
			seen[sectionText] = true
			lastKind = int(sectionText)
		case reConstsHeader.MatchString(line):
			m := reConstsHeader.FindStringSubmatch(line)
			mount, ok := numberLiteral(m[1])
			if !ok {
				return nil, parseErrf(lineNo, line, "invalid consts mount literal %q", m[1])
			}
			if lastKind > int(sectionConsts) {
				return nil, parseErrf(lineNo, line, "sections must appear in order macros -> text -> consts")
			}
			flush()
			current = &section{kind: sectionConsts, mount: mount}
			seen[sectionConsts] = true
			lastKind = int(sectionConsts)
		default:
			if current == nil {
				if strings.TrimSpace(line) != "" {
					return nil, parseErrf(lineNo, line, "content before any section header")
				}
				continue
			}
			current.lines = append(current.lines, line)
		}
	}
	flush()

	if !seen[sectionText] {
		return nil, parseErrf(0, "", "[text] section is mandatory")
	}

	return sections, nil
}

func findSection(sections []section, kind sectionKind) *section {
	for i := range sections {
		if sections[i].kind == kind {
			return &sections[i]
		}
	}
	return nil
}

// Assemble runs the full pipeline (sectioning -> preprocess -> text pass
// -> const pass) over source and returns the resulting Image.
func Assemble(source string) (*vm.Image, error) {
	sections, err := splitSections(source)
	if err != nil {
		return nil, err
	}

	var macrosText, textText, constsText string
	mount := DefaultConstsMount

	if s := findSection(sections, sectionMacros); s != nil {
		macrosText = strings.Join(s.lines, "\n")
	}
	if s := findSection(sections, sectionText); s != nil {
		textText = strings.Join(s.lines, "\n")
	}
	if s := findSection(sections, sectionConsts); s != nil {
		constsText = strings.Join(s.lines, "\n")
		mount = s.mount
	}

	expanded, err := Preprocess(macrosText, textText)
	if err != nil {
		return nil, err
	}

	tp, err := TextPass(expanded)
	if err != nil {
		return nil, err
	}

	img, err := ConstPass(0, tp.rom, mount, constsText, tp.labelDefs, tp.labelUses, tp.lastLine)
	if err != nil {
		return nil, err
	}

	return img, nil
}
