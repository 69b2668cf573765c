package labels

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrUnknownClass is returned when a class name or id is not in the list
var ErrUnknownClass = errors.New("unknown class")

// Labels maps detector class ids to names
type Labels struct {
	names []string
}

// Default returns the COCO label set
func Default() *Labels {
	names := make([]string, len(coco))
	copy(names, coco)
	return &Labels{names: names}
}

// New builds a label set from names, in class id order
func New(names []string) *Labels {
	out := make([]string, len(names))
	copy(out, names)
	return &Labels{names: out}
}

// LoadFile reads one class name per line. Blank lines are dropped.
func LoadFile(path string) (*Labels, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read labels file: %w", err)
	}
	var names []string
	for _, l := range strings.Split(string(b), "\n") {
		l = strings.TrimSpace(strings.TrimRight(l, "\r"))
		if l != "" {
			names = append(names, l)
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("labels file %s is empty", path)
	}
	return &Labels{names: names}, nil
}

// Names returns a copy of the class names
func (l *Labels) Names() []string {
	out := make([]string, len(l.names))
	copy(out, l.names)
	return out
}

// Len returns the number of classes
func (l *Labels) Len() int { return len(l.names) }

// IndexOf returns the class id for name
func (l *Labels) IndexOf(name string) (int, error) {
	for i, n := range l.names {
		if n == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrUnknownClass, name)
}

// Name returns the class name for id
func (l *Labels) Name(id int) (string, error) {
	if id < 0 || id >= len(l.names) {
		return "", fmt.Errorf("%w: id %d", ErrUnknownClass, id)
	}
	return l.names[id], nil
}
