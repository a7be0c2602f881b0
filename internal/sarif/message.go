package sarif

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

type Message struct {
	Text      string   `json:"text,omitempty"`
	Markdown  string   `json:"markdown,omitempty"`
	ID        string   `json:"id,omitempty"`
	Arguments []string `json:"arguments,omitempty"`
}

// RichText is a message ready for display: Plain has embedded links reduced
// to their text, Markdown keeps markup (falls back to the plain source text).
type RichText struct {
	Plain    string
	Markdown string
}

// Empty reports whether both renditions are blank.
func (t RichText) Empty() bool {
	return strings.TrimSpace(t.Plain) == "" && strings.TrimSpace(t.Markdown) == ""
}

// embedded links: [text](target), with \[ \] escapes left alone.
var linkRe = regexp.MustCompile(`\[((?:\\.|[^\]\\])*)\]\(([^)]*)\)`)

// Rich renders the message with its arguments substituted.
func (m *Message) Rich() RichText {
	if m == nil {
		return RichText{}
	}
	text := norm.NFC.String(substitute(m.Text, m.Arguments))
	md := m.Markdown
	if md == "" {
		md = m.Text
	}
	md = norm.NFC.String(substitute(md, m.Arguments))
	return RichText{
		Plain:    stripLinks(text),
		Markdown: md,
	}
}

// substitute replaces {N} placeholders with args[N]; "{{" and "}}" are
// literal braces. Placeholders without an argument are kept verbatim.
func substitute(s string, args []string) string {
	if !strings.ContainsAny(s, "{}") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '{' && i+1 < len(s) && s[i+1] == '{':
			b.WriteByte('{')
			i++
		case c == '}' && i+1 < len(s) && s[i+1] == '}':
			b.WriteByte('}')
			i++
		case c == '{':
			end := strings.IndexByte(s[i:], '}')
			if end < 0 {
				b.WriteString(s[i:])
				return b.String()
			}
			n, err := strconv.Atoi(s[i+1 : i+end])
			if err != nil || n < 0 || n >= len(args) {
				b.WriteString(s[i : i+end+1])
			} else {
				b.WriteString(args[n])
			}
			i += end
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func stripLinks(s string) string {
	if !strings.Contains(s, "](") {
		return unescapeBrackets(s)
	}
	return unescapeBrackets(linkRe.ReplaceAllString(s, "$1"))
}

func unescapeBrackets(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	r := strings.NewReplacer(`\[`, "[", `\]`, "]")
	return r.Replace(s)
}
