package assertion

import (
	"fmt"
	"strings"
	"unicode"
)

// tokenState is a state of the argument list scanner.
type tokenState int

const (
	stateSeparator tokenState = iota
	stateBare
	stateBareEscape
	stateQuoted
	stateQuotedEscape
)

// token is one raw argument. Quoted and escaped tokens are never
// auto-converted to numbers.
type token struct {
	text    string
	quoted  bool
	escaped bool
}

// literal reports whether the token must be kept verbatim as a
// string by auto-conversion.
func (t token) literal() bool {
	return t.quoted || t.escaped
}

// tokenizer splits an argument list in a single left-to-right
// pass. Separators are commas and whitespace outside quotes;
// runs of separators never produce empty arguments, while an
// empty quoted string always does.
type tokenizer struct {
	state  tokenState
	quote  rune
	buf    strings.Builder
	cur    token
	tokens []token
}

func tokenize(s string) ([]token, error) {
	t := &tokenizer{}
	for _, r := range s {
		t.step(r)
	}
	return t.finish()
}

func (t *tokenizer) step(r rune) {
	switch t.state {
	case stateSeparator:
		switch {
		case isSeparator(r):
		case r == '"' || r == '\'':
			t.quote = r
			t.cur = token{quoted: true}
			t.state = stateQuoted
		case r == '\\':
			t.cur = token{escaped: true}
			t.state = stateBareEscape
		default:
			t.cur = token{}
			t.buf.WriteRune(r)
			t.state = stateBare
		}

	case stateBare:
		switch {
		case isSeparator(r):
			t.emit()
			t.state = stateSeparator
		case r == '"' || r == '\'':
			t.emit()
			t.quote = r
			t.cur = token{quoted: true}
			t.state = stateQuoted
		case r == '\\':
			t.cur.escaped = true
			t.state = stateBareEscape
		default:
			t.buf.WriteRune(r)
		}

	case stateBareEscape:
		t.writeEscaped(r, isSeparator(r) || r == '"' || r == '\'')
		t.state = stateBare

	case stateQuoted:
		switch r {
		case t.quote:
			t.emit()
			t.state = stateSeparator
		case '\\':
			t.state = stateQuotedEscape
		default:
			t.buf.WriteRune(r)
		}

	case stateQuotedEscape:
		t.writeEscaped(r, r == t.quote)
		t.state = stateQuoted
	}
}

// writeEscaped writes the rune following a backslash. n, r and t
// become control characters and the backslash is dropped before a
// backslash or a special rune. Any other escape is kept verbatim,
// e.g. \d stays \d.
func (t *tokenizer) writeEscaped(r rune, special bool) {
	if c, ok := controlEscape(r); ok {
		t.buf.WriteRune(c)
		return
	}
	if r != '\\' && !special {
		t.buf.WriteRune('\\')
	}
	t.buf.WriteRune(r)
}

func (t *tokenizer) finish() ([]token, error) {
	switch t.state {
	case stateBare:
		t.emit()
	case stateBareEscape:
		t.buf.WriteRune('\\')
		t.emit()
	case stateQuoted, stateQuotedEscape:
		return nil, fmt.Errorf(
			"unterminated %c-quoted argument", t.quote,
		)
	}
	return t.tokens, nil
}

func (t *tokenizer) emit() {
	t.cur.text = t.buf.String()
	t.tokens = append(t.tokens, t.cur)
	t.buf.Reset()
	t.cur = token{}
}

func isSeparator(r rune) bool {
	return r == ',' || unicode.IsSpace(r)
}

// controlEscape maps n, r and t to their control characters.
func controlEscape(r rune) (rune, bool) {
	switch r {
	case 'n':
		return '\n', true
	case 'r':
		return '\r', true
	case 't':
		return '\t', true
	}
	return 0, false
}

var controlReplacer = strings.NewReplacer(
	`\r`, "\r",
	`\n`, "\n",
	`\t`, "\t",
)

// unescapeControl replaces the \n, \r and \t escape sequences in
// text that was not scanned by the tokenizer.
func unescapeControl(s string) string {
	return controlReplacer.Replace(s)
}
