package tinybasic

import (
	"sort"

	"github.com/google/btree"
)

// programLine is one stored line: its number and the statement text that
// followed the number, verbatim.
type programLine struct {
	Number int
	Text   string
}

func (l programLine) Less(than btree.Item) bool {
	return l.Number < than.(programLine).Number
}

// Program stores program lines ordered by line number. Ordinal lookups run
// against a sorted snapshot that Sort rebuilds after every edit.
type Program struct {
	lines *btree.BTree

	numbers []int    // sorted line numbers, valid when !dirty
	texts   []string // statement text aligned with numbers
	dirty   bool
}

// NewProgram returns an empty program.
func NewProgram() *Program {
	return &Program{lines: btree.New(4)}
}

// Store creates or overwrites line number with text.
func (p *Program) Store(number int, text string) {
	p.lines.ReplaceOrInsert(programLine{Number: number, Text: text})
	p.dirty = true
}

// Len returns the number of stored lines.
func (p *Program) Len() int {
	return p.lines.Len()
}

// Text returns the statement text stored under number.
func (p *Program) Text(number int) (string, bool) {
	item := p.lines.Get(programLine{Number: number})
	if item == nil {
		return "", false
	}
	return item.(programLine).Text, true
}

// Sort rebuilds the ordered snapshot if the program changed since the last
// call.
func (p *Program) Sort() {
	if !p.dirty && p.numbers != nil {
		return
	}
	p.numbers = make([]int, 0, p.lines.Len())
	p.texts = make([]string, 0, p.lines.Len())
	p.lines.Ascend(func(item btree.Item) bool {
		line := item.(programLine)
		p.numbers = append(p.numbers, line.Number)
		p.texts = append(p.texts, line.Text)
		return true
	})
	p.dirty = false
}

// Numbers returns the line numbers in ascending order.
func (p *Program) Numbers() []int {
	p.Sort()
	return append([]int(nil), p.numbers...)
}

// Statements returns the statement texts in ascending line order.
func (p *Program) Statements() []string {
	p.Sort()
	return append([]string(nil), p.texts...)
}

// Ordinal returns the position of number within the sorted line numbers.
func (p *Program) Ordinal(number int) (int, bool) {
	p.Sort()
	i := sort.SearchInts(p.numbers, number)
	if i < len(p.numbers) && p.numbers[i] == number {
		return i, true
	}
	return 0, false
}
