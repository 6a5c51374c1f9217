package query

import (
	"fmt"
	"strings"
)

// Terminator is the two-byte line terminator used in both directions.
const Terminator = "\n\r"

// escapeTable maps protocol-significant characters to their two-character
// backslash sequences. Order matters when escaping: the backslash goes first
// because every other sequence contains one.
var escapeTable = []struct {
	raw     string
	escaped string
}{
	{"\\", `\\`},
	{"/", `\/`},
	{" ", `\s`},
	{"|", `\p`},
	{"\a", `\a`},
	{"\b", `\b`},
	{"\f", `\f`},
	{"\n", `\n`},
	{"\r", `\r`},
	{"\t", `\t`},
	{"\v", `\v`},
}

// Escape replaces protocol-significant characters with their escape
// sequences.
func Escape(raw string) string {
	for _, e := range escapeTable {
		raw = strings.ReplaceAll(raw, e.raw, e.escaped)
	}
	return raw
}

// unescapeTable maps the second byte of an escape sequence back to the raw
// character.
var unescapeTable = func() map[byte]byte {
	table := make(map[byte]byte, len(escapeTable))
	for _, e := range escapeTable {
		table[e.escaped[1]] = e.raw[0]
	}
	return table
}()

// Unescape reverses Escape. It decodes in a single left-to-right scan so a
// decoded backslash is never re-read as the start of another sequence.
// Unknown sequences pass through untouched.
func Unescape(raw string) string {
	if !strings.Contains(raw, `\`) {
		return raw
	}
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		if raw[i] == '\\' && i+1 < len(raw) {
			if decoded, ok := unescapeTable[raw[i+1]]; ok {
				b.WriteByte(decoded)
				i++
				continue
			}
		}
		b.WriteByte(raw[i])
	}
	return b.String()
}

type param struct {
	key   string
	value string
}

// Command describes one protocol command: a verb, positional flags, and
// ordered key/value parameters. Parameters render in insertion order so the
// wire form is deterministic.
type Command struct {
	verb   string
	flags  []string
	params []param
}

// NewCommand starts a command with the given verb.
func NewCommand(verb string) *Command {
	return &Command{verb: verb}
}

// Flag appends a positional flag rendered as -name.
func (c *Command) Flag(name string) *Command {
	c.flags = append(c.flags, name)
	return c
}

// String appends a string parameter. The value is escaped when rendered.
func (c *Command) String(key, value string) *Command {
	c.params = append(c.params, param{key: key, value: value})
	return c
}

// Int appends an integer parameter.
func (c *Command) Int(key string, value int) *Command {
	return c.String(key, fmt.Sprintf("%d", value))
}

// Verb returns the command verb.
func (c *Command) Verb() string {
	return c.verb
}

// Bytes renders the command as one escaped line including the terminator.
func (c *Command) Bytes() []byte {
	var b strings.Builder
	b.WriteString(c.verb)
	for _, flag := range c.flags {
		b.WriteString(" -")
		b.WriteString(flag)
	}
	for _, p := range c.params {
		b.WriteString(" ")
		b.WriteString(p.key)
		b.WriteString("=")
		b.WriteString(Escape(p.value))
	}
	b.WriteString(Terminator)
	return []byte(b.String())
}

// ParseLineToMap splits a data line into key/value pairs. Tokens containing
// "=" split on the first "=" with the value unescaped; bare tokens become
// flags mapped to the empty string.
func ParseLineToMap(line string) map[string]string {
	result := make(map[string]string)
	for _, part := range strings.Split(line, " ") {
		if key, value, found := strings.Cut(part, "="); found {
			result[key] = Unescape(value)
		} else if part != "" {
			result[part] = ""
		}
	}
	return result
}

// ParseLineToList splits a multi-record line on the "|" separator and parses
// each non-empty record with ParseLineToMap.
func ParseLineToList(line string) []map[string]string {
	var records []map[string]string
	for _, segment := range strings.Split(line, "|") {
		if segment == "" {
			continue
		}
		records = append(records, ParseLineToMap(segment))
	}
	return records
}
