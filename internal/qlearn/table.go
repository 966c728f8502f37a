package qlearn

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// NumActions is the number of relative actions: turn left, straight, turn right.
const NumActions = 3

// Values holds one estimate per relative action, indexed by action+1.
type Values [NumActions]float64

// Best returns the index of the highest value. Ties go to the lowest index.
func (v Values) Best() int {
	best := 0
	for i := 1; i < len(v); i++ {
		if v[i] > v[best] {
			best = i
		}
	}
	return best
}

// Max returns the highest value.
func (v Values) Max() float64 {
	return v[v.Best()]
}

// FormatError reports malformed persisted table content.
type FormatError struct {
	Offset int // Byte offset of the offending entry
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("qlearn: malformed table at offset %d: %s", e.Offset, e.Reason)
}

// Table maps visited states to their action values. Entries are created on
// first access and never removed.
type Table struct {
	entries map[State]Values
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{entries: make(map[State]Values)}
}

// Lookup returns the values of s without materializing it.
func (t *Table) Lookup(s State) (Values, bool) {
	v, ok := t.entries[s]
	return v, ok
}

// LookupOrInsertDefault returns the values of s, inserting zeros if s was
// never visited.
func (t *Table) LookupOrInsertDefault(s State) Values {
	v, ok := t.entries[s]
	if !ok {
		t.entries[s] = v
	}
	return v
}

// Set overwrites one action value.
func (t *Table) Set(s State, action int, value float64) {
	v := t.entries[s]
	v[action] = value
	t.entries[s] = v
}

// Len returns the number of visited states.
func (t *Table) Len() int {
	return len(t.entries)
}

// States returns the visited states in key order.
func (t *Table) States() []State {
	keys := make([]State, 0, len(t.entries))
	for s := range t.entries {
		keys = append(keys, s)
	}
	slices.SortFunc(keys, func(a, b State) int {
		return strings.Compare(a.String(), b.String())
	})
	return keys
}

// Clone returns an independent copy of the table.
func (t *Table) Clone() *Table {
	c := &Table{entries: make(map[State]Values, len(t.entries))}
	for s, v := range t.entries {
		c.entries[s] = v
	}
	return c
}

// Equal reports whether both tables hold the same entries.
func (t *Table) Equal(other *Table) bool {
	if t.Len() != other.Len() {
		return false
	}
	for s, v := range t.entries {
		if ov, ok := other.entries[s]; !ok || ov != v {
			return false
		}
	}
	return true
}

// MarshalText encodes the table as
//
//	{True-False-...: [0.0, 1.5, -0.1], ...}
//
// with entries in key order.
func (t *Table) MarshalText() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, s := range t.States() {
		if i > 0 {
			b.WriteString(", ")
		}
		v := t.entries[s]
		b.WriteString(s.String())
		b.WriteString(": [")
		for j, x := range v {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString(formatValue(x))
		}
		b.WriteByte(']')
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

// UnmarshalText replaces the table with the decoded content.
func (t *Table) UnmarshalText(data []byte) error {
	parsed, err := ParseTable(data)
	if err != nil {
		return err
	}
	t.entries = parsed.entries
	return nil
}

// ParseTable decodes the MarshalText format. Blank input yields an empty
// table.
func ParseTable(data []byte) (*Table, error) {
	t := NewTable()
	text := strings.TrimSpace(string(data))
	if text == "" {
		return t, nil
	}
	if !strings.HasPrefix(text, "{") || !strings.HasSuffix(text, "}") {
		return nil, &FormatError{Reason: "missing enclosing braces"}
	}

	body := text[1 : len(text)-1]
	offset := 1
	for strings.TrimSpace(body) != "" {
		end := strings.Index(body, "]")
		if end < 0 {
			return nil, &FormatError{Offset: offset, Reason: "unterminated value list"}
		}
		s, v, err := parseEntry(body[:end+1])
		if err != nil {
			return nil, &FormatError{Offset: offset, Reason: err.Error()}
		}
		if _, dup := t.entries[s]; dup {
			return nil, &FormatError{Offset: offset, Reason: fmt.Sprintf("duplicate state %s", s)}
		}
		t.entries[s] = v

		offset += end + 1
		body = body[end+1:]
		if body == "" {
			break
		}
		if !strings.HasPrefix(body, ", ") {
			return nil, &FormatError{Offset: offset, Reason: "expected \", \" between entries"}
		}
		offset += 2
		body = body[2:]
	}
	return t, nil
}

// parseEntry decodes "key: [v0, v1, v2]".
func parseEntry(entry string) (State, Values, error) {
	key, list, ok := strings.Cut(entry, ": ")
	if !ok {
		return State{}, Values{}, fmt.Errorf("entry %q has no key separator", entry)
	}
	s, err := ParseState(strings.TrimSpace(key))
	if err != nil {
		return State{}, Values{}, err
	}

	list = strings.TrimSpace(list)
	if !strings.HasPrefix(list, "[") || !strings.HasSuffix(list, "]") {
		return State{}, Values{}, fmt.Errorf("values %q are not bracketed", list)
	}
	items := strings.Split(list[1:len(list)-1], ",")
	if len(items) != NumActions {
		return State{}, Values{}, fmt.Errorf("expected %d values, got %d", NumActions, len(items))
	}

	var v Values
	for i, item := range items {
		x, err := strconv.ParseFloat(strings.TrimSpace(item), 64)
		if err != nil {
			return State{}, Values{}, fmt.Errorf("non-numeric value %q", strings.TrimSpace(item))
		}
		v[i] = x
	}
	return s, v, nil
}

// formatValue prints the shortest representation that reads back exactly,
// keeping a ".0" on integral values.
func formatValue(x float64) string {
	s := strconv.FormatFloat(x, 'g', -1, 64)
	if strings.ContainsAny(s, ".eIN") {
		return s
	}
	return s + ".0"
}
