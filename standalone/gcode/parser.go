package gcode

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"atcguard/standalone"
)

// MaxLineLength is the longest line the parser buffers
const MaxLineLength = 256

var (
	// ErrLineOverflow is returned when a line exceeds MaxLineLength
	ErrLineOverflow = errors.New("line overflow")
	// ErrBadNumber is returned for a word letter without a valid value
	ErrBadNumber = errors.New("bad number format")
)

// Parser handles G-code parsing and assembles lines from a byte stream
type Parser struct {
	lineBuffer []byte
	overflow   bool
}

// NewParser creates a new G-code parser
func NewParser() *Parser {
	return &Parser{
		lineBuffer: make([]byte, 0, MaxLineLength),
	}
}

// Feed adds one byte from the stream. When c ends a line it returns the
// line and true; an overlong line is reported once with ErrLineOverflow.
func (p *Parser) Feed(c byte) (string, bool, error) {
	switch c {
	case '\r', '\n':
		if p.overflow {
			p.overflow = false
			p.lineBuffer = p.lineBuffer[:0]
			return "", true, ErrLineOverflow
		}
		line := string(p.lineBuffer)
		p.lineBuffer = p.lineBuffer[:0]
		return line, true, nil
	}

	if len(p.lineBuffer) >= MaxLineLength {
		p.overflow = true
		return "", false, nil
	}
	p.lineBuffer = append(p.lineBuffer, c)
	return "", false, nil
}

// ParseLine parses a single line of G-code into one command per G, M or T
// word. Parameter words apply to every command on the line. A line holding
// only a comment yields a single command with no Type.
func (p *Parser) ParseLine(line string) ([]*standalone.GCodeCommand, error) {
	line = strings.TrimSpace(line)
	if len(line) == 0 {
		return nil, nil
	}

	var (
		cmds    []*standalone.GCodeCommand
		params  = make(map[byte]float64)
		comment string
	)

	i := 0
	for i < len(line) {
		c := line[i]

		// Skip whitespace
		if c == ' ' || c == '\t' {
			i++
			continue
		}

		// Comments run to the end of the line
		if c == ';' || c == '(' {
			comment = line[i:]
			break
		}

		if !isLetter(c) {
			return nil, fmt.Errorf("%w: unexpected %q", ErrBadNumber, c)
		}
		letter := toUpper(c)
		i++

		start := i
		for i < len(line) && isNumberByte(line[i]) {
			i++
		}
		word := line[start:i]
		if word == "" {
			return nil, fmt.Errorf("%w: %c has no value", ErrBadNumber, letter)
		}

		switch letter {
		case 'G', 'M', 'T':
			n, err := strconv.Atoi(word)
			if err != nil {
				return nil, fmt.Errorf("%w: %c%s", ErrBadNumber, letter, word)
			}
			cmds = append(cmds, &standalone.GCodeCommand{Type: letter, Number: n})
		default:
			v, err := strconv.ParseFloat(word, 64)
			if err != nil {
				return nil, fmt.Errorf("%w: %c%s", ErrBadNumber, letter, word)
			}
			params[letter] = v
		}
	}

	if len(cmds) == 0 {
		cmds = append(cmds, &standalone.GCodeCommand{})
	}
	for _, cmd := range cmds {
		cmd.Parameters = params
		cmd.Comment = comment
	}
	return cmds, nil
}

func isNumberByte(c byte) bool {
	return (c >= '0' && c <= '9') || c == '.' || c == '-' || c == '+'
}

// isLetter checks if a byte is a letter
func isLetter(c byte) bool {
	return (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

// toUpper converts a byte to uppercase
func toUpper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}
