package asm

import (
	"fmt"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Line tokenizer
// ---------------------------------------------------------------------------

// token is one whitespace-separated field of a source line. Quoted fields
// are unquoted; quoted records whether the field was written in quotes.
type token struct {
	text   string
	quoted bool
	sigil  byte // ':' for :"..." symbols, 0 otherwise
}

// splitLine breaks a line into tokens, dropping a trailing ';' comment.
func splitLine(line string) ([]token, error) {
	var toks []token
	i := 0
	for i < len(line) {
		c := line[i]
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == ',':
			i++
		case c == ';':
			return toks, nil
		case c == '"' || (c == ':' && i+1 < len(line) && line[i+1] == '"'):
			var sigil byte
			if c == ':' {
				sigil = ':'
				i++
			}
			end, err := closingQuote(line, i)
			if err != nil {
				return nil, err
			}
			s, err := strconv.Unquote(line[i : end+1])
			if err != nil {
				return nil, fmt.Errorf("bad string %s: %w", line[i:end+1], err)
			}
			toks = append(toks, token{text: s, quoted: true, sigil: sigil})
			i = end + 1
		default:
			start := i
			for i < len(line) && !strings.ContainsRune(" \t\r,;", rune(line[i])) {
				i++
			}
			toks = append(toks, token{text: line[start:i]})
		}
	}
	return toks, nil
}

// closingQuote returns the index of the quote closing the string that opens
// at line[start].
func closingQuote(line string, start int) (int, error) {
	for i := start + 1; i < len(line); i++ {
		switch line[i] {
		case '\\':
			i++
		case '"':
			return i, nil
		}
	}
	return 0, fmt.Errorf("unterminated string")
}
