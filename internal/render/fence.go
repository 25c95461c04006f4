package render

import (
	"regexp"
	"strings"

	"github.com/alecthomas/chroma/v2/lexers"
)

// fenceRe matches a fenced code block delimiter and its info string
var fenceRe = regexp.MustCompile("^( {0,3})(`{3,}|~{3,})[ \t]*([^\\s`]*)(.*)$")

type fence struct {
	indent string
	marker string
	lang   string
	rest   string
}

func parseFence(line string) (fence, bool) {
	m := fenceRe.FindStringSubmatch(strings.TrimRight(line, "\r"))
	if m == nil {
		return fence{}, false
	}
	// backtick info strings may not contain backticks
	if m[2][0] == '`' && strings.Contains(m[4], "`") {
		return fence{}, false
	}
	return fence{indent: m[1], marker: m[2], lang: m[3], rest: m[4]}, true
}

// closes reports whether f terminates a block opened with open
func (f fence) closes(open fence) bool {
	return f.marker[0] == open.marker[0] &&
		len(f.marker) >= len(open.marker) &&
		f.lang == "" && strings.TrimSpace(f.rest) == ""
}

// FenceLanguages returns the language tag of every fenced code block in md,
// in order. Blocks without a tag yield "".
func FenceLanguages(md string) []string {
	var langs []string
	var open *fence
	for _, line := range strings.Split(md, "\n") {
		f, ok := parseFence(line)
		if !ok {
			continue
		}
		if open == nil {
			langs = append(langs, f.lang)
			open = &f
			continue
		}
		if f.closes(*open) {
			open = nil
		}
	}
	return langs
}

// CanonicalLanguage maps a fence tag to the highlighter's name for it.
// Unknown tags return "" and false.
func CanonicalLanguage(tag string) (string, bool) {
	if tag == "" {
		return "", false
	}
	lexer := lexers.Get(tag)
	if lexer == nil {
		return "", false
	}
	cfg := lexer.Config()
	if len(cfg.Aliases) > 0 {
		return strings.ToLower(cfg.Aliases[0]), true
	}
	return strings.ToLower(cfg.Name), true
}

// NormalizeFences rewrites fence tags to canonical highlighter names, drops
// tags no lexer knows, and closes a block left open at the end of md so
// partial responses render as code.
func NormalizeFences(md string) string {
	lines := strings.Split(md, "\n")
	var open *fence
	changed := false

	for i, line := range lines {
		f, ok := parseFence(line)
		if !ok {
			continue
		}
		if open != nil {
			if f.closes(*open) {
				open = nil
			}
			continue
		}

		open = &f
		if f.lang == "" {
			continue
		}
		lang, _ := CanonicalLanguage(f.lang)
		if lang != f.lang {
			lines[i] = f.indent + f.marker + lang + f.rest
			if lang == "" {
				lines[i] = f.indent + f.marker
			}
			changed = true
		}
	}

	if open != nil {
		if len(lines) > 0 && lines[len(lines)-1] != "" {
			lines = append(lines, open.indent+open.marker)
		} else {
			lines[len(lines)-1] = open.indent + open.marker
		}
		changed = true
	}

	if !changed {
		return md
	}
	return strings.Join(lines, "\n")
}
