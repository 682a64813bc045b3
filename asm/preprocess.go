package asm

import (
	"regexp"
	"strconv"
	"strings"

	"bric/vm"
)

type macro struct {
	params []string
	body   []string
}

var reBegin = regexp.MustCompile(`^begin\s+([A-Za-z._]+)\(\s*([A-Za-z0-9_., ]*)\s*\)\s*$`)
var reDefine = regexp.MustCompile(`^define\s+(\S+)\s+(\S+)$`)
var reMacroCall = regexp.MustCompile(`^([A-Za-z._]+)\(\s*(.*?)\s*\)$`)

// preprocessor holds the macro/define tables collected from [macros].
type preprocessor struct {
	macros  map[string]macro
	defines map[string]vm.Word
}

// parseMacros scans the [macros] block, populating macro and define
// tables. Name collisions with registers, keywords, mnemonics, or
// earlier definitions are rejected.
func parseMacros(lines []string, lineBase int) (*preprocessor, error) {
	p := &preprocessor{macros: map[string]macro{}, defines: map[string]vm.Word{}}

	for i := 0; i < len(lines); i++ {
		lineNo := lineBase + i + 1
		line := strings.TrimSpace(stripComment(lines[i]))
		if line == "" {
			continue
		}

		if m := reDefine.FindStringSubmatch(line); m != nil {
			name, valTok := m[1], m[2]
			if err := p.checkCollision(name, lineNo, line); err != nil {
				return nil, err
			}
			val, ok := numberLiteral(valTok)
			if !ok {
				return nil, parseErrf(lineNo, line, "invalid number literal %q", valTok)
			}
			p.defines[name] = val
			continue
		}

		if m := reBegin.FindStringSubmatch(line); m != nil {
			name := m[1]
			var params []string
			if strings.TrimSpace(m[2]) != "" {
				for _, a := range strings.Split(m[2], ",") {
					params = append(params, strings.TrimSpace(a))
				}
			}
			if err := p.checkCollision(name, lineNo, line); err != nil {
				return nil, err
			}

			var body []string
			j := i + 1
			for ; j < len(lines); j++ {
				bodyLine := strings.TrimSpace(stripComment(lines[j]))
				if bodyLine == "end" {
					break
				}
				body = append(body, lines[j])
			}
			if j == len(lines) {
				return nil, parseErrf(lineNo, line, "macro %q missing end", name)
			}
			p.macros[name] = macro{params: params, body: body}
			i = j
			continue
		}

		return nil, parseErrf(lineNo, line, "unrecognized macros-section line")
	}

	return p, nil
}

func (p *preprocessor) checkCollision(name string, line int, text string) error {
	if isReserved(name) {
		return parseErrf(line, text, "name %q collides with a reserved register, keyword, or mnemonic", name)
	}
	if _, ok := p.defines[name]; ok {
		return parseErrf(line, text, "name %q already defines a constant", name)
	}
	if _, ok := p.macros[name]; ok {
		return parseErrf(line, text, "name %q already defines a macro", name)
	}
	return nil
}

func stripComment(line string) string {
	if idx := strings.IndexByte(line, '#'); idx >= 0 {
		return line[:idx]
	}
	return line
}

// rvalueSub replaces occurrences of name where it appears as an rvalue
// (immediately after "=" and terminated by whitespace or ";") with
// replacement, across the given lines.
func rvalueSub(lines []string, name, replacement string) []string {
	re := regexp.MustCompile(`(=\s*)` + regexp.QuoteMeta(name) + `(\s|;|$)`)
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = re.ReplaceAllString(l, "${1}"+replacement+"${2}")
	}
	return out
}

// expandMacroCalls replaces line-anchored calls NAME(arg1, arg2, ...)
// with the macro's body, substituting each formal parameter as an
// rvalue wherever it appears in the body. Iterates to a fixpoint so
// nested macro calls are fully expanded.
func (p *preprocessor) expandMacroCalls(lines []string) ([]string, error) {
	const maxIterations = 10000
	for iter := 0; iter < maxIterations; iter++ {
		changed := false
		var out []string
		for _, line := range lines {
			trimmed := strings.TrimSpace(line)
			m := reMacroCall.FindStringSubmatch(trimmed)
			if m == nil {
				out = append(out, line)
				continue
			}
			name, argText := m[1], m[2]
			mac, ok := p.macros[name]
			if !ok {
				out = append(out, line)
				continue
			}
			var args []string
			if strings.TrimSpace(argText) != "" {
				for _, a := range strings.Split(argText, ",") {
					args = append(args, strings.TrimSpace(a))
				}
			}
			if len(args) != len(mac.params) {
				return nil, parseErrf(0, trimmed, "macro %q expects %d args, got %d", name, len(mac.params), len(args))
			}

			body := append([]string(nil), mac.body...)
			for i, param := range mac.params {
				body = rvalueSub(body, param, args[i])
			}
			out = append(out, body...)
			changed = true
		}
		lines = out
		if !changed {
			return lines, nil
		}
	}
	return nil, parseErrf(0, "", "macro expansion did not reach a fixpoint")
}

// expandDefines replaces rvalue occurrences of every define name with
// its stored word value's decimal text.
func (p *preprocessor) expandDefines(lines []string) []string {
	for name, val := range p.defines {
		lines = rvalueSub(lines, name, strconv.FormatUint(uint64(val), 10))
	}
	return lines
}

// Preprocess expands the [macros] and [text] blocks into plain
// instruction text per §4.4.1: macro call expansion to a fixpoint,
// then define substitution, both restricted to rvalue positions.
func Preprocess(macrosText, textText string) ([]string, error) {
	macrosLines := splitLines(macrosText)
	p, err := parseMacros(macrosLines, 0)
	if err != nil {
		return nil, err
	}

	textLines := splitLines(textText)
	expanded, err := p.expandMacroCalls(textLines)
	if err != nil {
		return nil, err
	}
	expanded = p.expandDefines(expanded)
	return expanded, nil
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
}
