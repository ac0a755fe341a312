package labels

import (
	"os"
	"strconv"
	"strings"
)

// Table maps class indices to names.
type Table []string

// Load reads one label per non-empty line.
func Load(path string) (Table, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(string(b)), nil
}

func Parse(s string) Table {
	var tags Table
	for _, l := range strings.Split(s, "\n") {
		l = strings.TrimSpace(l)
		if l != "" {
			tags = append(tags, l)
		}
	}
	return tags
}

func (t Table) Name(i int) string {
	if i < 0 || i >= len(t) {
		return "class_" + strconv.Itoa(i)
	}
	return t[i]
}

func (t Table) Names(indices []int) []string {
	out := make([]string, len(indices))
	for i, idx := range indices {
		out[i] = t.Name(idx)
	}
	return out
}
