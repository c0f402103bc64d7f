// Package cif reads and writes the subset of CIF 1.1 used for crystal
// structures and project descriptions: data blocks, tag/value pairs, loops,
// quoted strings and semicolon text fields. Tags are case-insensitive and
// stored lower-cased; block and item order is preserved.
package cif

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ErrUnknownValue is returned by Number for the CIF placeholders "?" and ".".
var ErrUnknownValue = errors.New("cif: value unknown or inapplicable")

// Document is a parsed CIF file.
type Document struct {
	Blocks []*Block
}

// Block is one data_ block.
type Block struct {
	Name  string
	items []item
}

// item is either a single tag/value pair or a loop.
type item struct {
	tag   string
	value string
	loop  *Loop
}

// Loop is a loop_ table.
type Loop struct {
	Tags []string
	Rows [][]string
}

// NewBlock returns an empty block.
func NewBlock(name string) *Block { return &Block{Name: name} }

// Block returns the block with the given name (case-insensitive).
func (d *Document) Block(name string) (*Block, bool) {
	for _, b := range d.Blocks {
		if strings.EqualFold(b.Name, name) {
			return b, true
		}
	}
	return nil, false
}

// Value returns the value of a non-looped tag.
func (b *Block) Value(tag string) (string, bool) {
	tag = strings.ToLower(tag)
	for _, it := range b.items {
		if it.loop == nil && it.tag == tag {
			return it.value, true
		}
	}
	return "", false
}

// FirstValue returns the value of the first tag present, for data names with
// several spellings across dictionary versions.
func (b *Block) FirstValue(tags ...string) (string, bool) {
	for _, t := range tags {
		if v, ok := b.Value(t); ok {
			return v, true
		}
	}
	return "", false
}

// Set adds or replaces a tag/value pair.
func (b *Block) Set(tag, value string) {
	tag = strings.ToLower(tag)
	for i, it := range b.items {
		if it.loop == nil && it.tag == tag {
			b.items[i].value = value
			return
		}
	}
	b.items = append(b.items, item{tag: tag, value: value})
}

// Loop returns the loop that contains tag.
func (b *Block) Loop(tag string) (*Loop, bool) {
	tag = strings.ToLower(tag)
	for _, it := range b.items {
		if it.loop != nil && it.loop.index(tag) >= 0 {
			return it.loop, true
		}
	}
	return nil, false
}

// AddLoop appends a loop. Every row must have one value per tag.
func (b *Block) AddLoop(tags []string, rows [][]string) error {
	l := &Loop{Tags: make([]string, len(tags))}
	for i, t := range tags {
		l.Tags[i] = strings.ToLower(t)
	}
	for i, r := range rows {
		if len(r) != len(tags) {
			return fmt.Errorf("cif: loop row %d has %d values for %d tags", i, len(r), len(tags))
		}
		l.Rows = append(l.Rows, append([]string(nil), r...))
	}
	b.items = append(b.items, item{loop: l})
	return nil
}

func (l *Loop) index(tag string) int {
	for i, t := range l.Tags {
		if t == tag {
			return i
		}
	}
	return -1
}

// Column returns the values of tag, or nil when the loop lacks it.
func (l *Loop) Column(tag string) []string {
	i := l.index(strings.ToLower(tag))
	if i < 0 {
		return nil
	}
	out := make([]string, len(l.Rows))
	for r, row := range l.Rows {
		out[r] = row[i]
	}
	return out
}

// Has reports whether the loop carries tag.
func (l *Loop) Has(tag string) bool { return l.index(strings.ToLower(tag)) >= 0 }

// Number parses a numeric CIF value, dropping a trailing standard
// uncertainty such as "3.8910(2)".
func Number(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "?" || s == "." {
		return 0, ErrUnknownValue
	}
	if i := strings.IndexByte(s, '('); i > 0 && strings.HasSuffix(s, ")") {
		s = s[:i]
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("cif: %q is not a number", s)
	}
	return v, nil
}

// Format renders v the way it is written into CIF files.
func Format(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

type token struct {
	text   string
	quoted bool
	line   int
}

func tokenize(r io.Reader) ([]token, error) {
	var toks []token
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	var text *strings.Builder
	textStart := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if text != nil {
			if strings.HasPrefix(line, ";") {
				toks = append(toks, token{text: strings.TrimSuffix(text.String(), "\n"), quoted: true, line: textStart})
				text = nil
				line = line[1:]
			} else {
				text.WriteString(line)
				text.WriteByte('\n')
				continue
			}
		} else if strings.HasPrefix(line, ";") {
			text = &strings.Builder{}
			textStart = lineNo
			if rest := line[1:]; strings.TrimSpace(rest) != "" {
				text.WriteString(rest)
				text.WriteByte('\n')
			}
			continue
		}
		lineToks, err := splitLine(line, lineNo)
		if err != nil {
			return nil, err
		}
		toks = append(toks, lineToks...)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if text != nil {
		return nil, fmt.Errorf("cif: line %d: unterminated text field", textStart)
	}
	return toks, nil
}

func isSpace(c byte) bool { return c == ' ' || c == '\t' || c == '\r' }

func splitLine(line string, lineNo int) ([]token, error) {
	var out []token
	i := 0
	for i < len(line) {
		c := line[i]
		switch {
		case isSpace(c):
			i++
		case c == '#':
			return out, nil
		case c == '\'' || c == '"':
			// A quote only closes when followed by whitespace or end of line.
			end := -1
			for j := i + 1; j < len(line); j++ {
				if line[j] == c && (j+1 == len(line) || isSpace(line[j+1])) {
					end = j
					break
				}
			}
			if end < 0 {
				return nil, fmt.Errorf("cif: line %d: unterminated quoted string", lineNo)
			}
			out = append(out, token{text: line[i+1 : end], quoted: true, line: lineNo})
			i = end + 1
		default:
			j := i
			for j < len(line) && !isSpace(line[j]) {
				j++
			}
			out = append(out, token{text: line[i:j], line: lineNo})
			i = j
		}
	}
	return out, nil
}

func isTag(t token) bool { return !t.quoted && strings.HasPrefix(t.text, "_") }

func isKeyword(t token, kw string) bool {
	return !t.quoted && strings.EqualFold(t.text, kw)
}

func isBlockHeader(t token) bool {
	return !t.quoted && len(t.text) >= 5 && strings.EqualFold(t.text[:5], "data_")
}

// Parse reads a CIF document.
func Parse(r io.Reader) (*Document, error) {
	toks, err := tokenize(r)
	if err != nil {
		return nil, err
	}
	doc := &Document{}
	var cur *Block
	for i := 0; i < len(toks); {
		t := toks[i]
		switch {
		case isBlockHeader(t):
			cur = NewBlock(t.text[5:])
			doc.Blocks = append(doc.Blocks, cur)
			i++
		case cur == nil:
			return nil, fmt.Errorf("cif: line %d: %q before the first data_ block", t.line, t.text)
		case isKeyword(t, "loop_"):
			i++
			var tags []string
			for i < len(toks) && isTag(toks[i]) {
				tags = append(tags, toks[i].text)
				i++
			}
			if len(tags) == 0 {
				return nil, fmt.Errorf("cif: line %d: loop_ without tags", t.line)
			}
			var values []string
			for i < len(toks) && !isTag(toks[i]) && !isKeyword(toks[i], "loop_") && !isBlockHeader(toks[i]) {
				values = append(values, toks[i].text)
				i++
			}
			if len(values)%len(tags) != 0 {
				return nil, fmt.Errorf("cif: line %d: loop has %d values for %d tags", t.line, len(values), len(tags))
			}
			rows := make([][]string, 0, len(values)/len(tags))
			for k := 0; k < len(values); k += len(tags) {
				rows = append(rows, values[k:k+len(tags)])
			}
			if err := cur.AddLoop(tags, rows); err != nil {
				return nil, err
			}
		case isTag(t):
			if i+1 >= len(toks) || isTag(toks[i+1]) || isKeyword(toks[i+1], "loop_") || isBlockHeader(toks[i+1]) {
				return nil, fmt.Errorf("cif: line %d: tag %s has no value", t.line, t.text)
			}
			cur.Set(t.text, toks[i+1].text)
			i += 2
		default:
			return nil, fmt.Errorf("cif: line %d: unexpected value %q", t.line, t.text)
		}
	}
	return doc, nil
}

// ParseString is Parse over a string.
func ParseString(s string) (*Document, error) { return Parse(strings.NewReader(s)) }

func quote(v string) string {
	if strings.Contains(v, "\n") {
		return "\n;" + v + "\n;"
	}
	if v == "" {
		return "''"
	}
	lower := strings.ToLower(v)
	needs := strings.ContainsAny(v, " \t") || strings.ContainsAny(v[:1], "_#$'\"[];") ||
		lower == "loop_" || strings.HasPrefix(lower, "data_")
	if !needs {
		return v
	}
	if !strings.Contains(v, "' ") && !strings.HasSuffix(v, "'") {
		return "'" + v + "'"
	}
	return "\"" + v + "\""
}

// Write renders the document.
func (d *Document) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for i, b := range d.Blocks {
		if i > 0 {
			fmt.Fprintln(bw)
		}
		fmt.Fprintf(bw, "data_%s\n\n", b.Name)
		for _, it := range b.items {
			if it.loop == nil {
				fmt.Fprintf(bw, "%s %s\n", it.tag, quote(it.value))
				continue
			}
			fmt.Fprintln(bw, "\nloop_")
			for _, t := range it.loop.Tags {
				fmt.Fprintln(bw, t)
			}
			for _, row := range it.loop.Rows {
				vals := make([]string, len(row))
				for k, v := range row {
					vals[k] = quote(v)
				}
				fmt.Fprintln(bw, strings.Join(vals, " "))
			}
			fmt.Fprintln(bw)
		}
	}
	return bw.Flush()
}

// String renders the document to a string.
func (d *Document) String() string {
	var b strings.Builder
	_ = d.Write(&b)
	return b.String()
}
