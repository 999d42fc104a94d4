// Package common keeps the enumerations shared by configuration and
// conversion, so that neither has to import the other to name them.
package common

import (
	"fmt"
	"strings"
)

// OutputMode specifies what kind of HTML document is produced.
type OutputMode int

const (
	// OutputModeFragment writes translated markup as is, ready to be injected
	// into an existing page.
	OutputModeFragment OutputMode = iota
	// OutputModePage wraps translated markup into a complete HTML document.
	OutputModePage
)

var outputModeNames = []string{
	OutputModeFragment: "fragment",
	OutputModePage:     "page",
}

// ErrInvalidOutputMode is returned when parsing an unknown output mode.
var ErrInvalidOutputMode = fmt.Errorf("not a valid OutputMode, try [%s]", strings.Join(outputModeNames, ", "))

func (m OutputMode) String() string {
	if m < 0 || int(m) >= len(outputModeNames) {
		return fmt.Sprintf("OutputMode(%d)", m)
	}
	return outputModeNames[m]
}

// OutputModeNames returns the names of all output modes.
func OutputModeNames() []string {
	return append([]string(nil), outputModeNames...)
}

// ParseOutputMode converts a name into OutputMode. Names are case insensitive.
func ParseOutputMode(name string) (OutputMode, error) {
	for i, n := range outputModeNames {
		if strings.EqualFold(n, name) {
			return OutputMode(i), nil
		}
	}
	return OutputModeFragment, fmt.Errorf("%s is %w", name, ErrInvalidOutputMode)
}

func (m OutputMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *OutputMode) UnmarshalText(text []byte) error {
	v, err := ParseOutputMode(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
