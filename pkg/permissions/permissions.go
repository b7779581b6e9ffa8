// Package permissions defines the four-level access lattice used by every
// gated call in the control core. Centralizing the comparison here keeps a
// single source of truth for the ordering; no caller ever string-compares
// levels.
package permissions

import "fmt"

// Level is an ordered permission level. Higher values include the access of
// every lower value.
type Level int

const (
	ReadOnly Level = iota + 1
	ReadExecute
	ReadExecuteWrite
	Admin
)

// Check reports whether an effective level satisfies a required level.
// Pure comparison, no failure mode.
func Check(effective, required Level) bool {
	return effective >= required
}

// Valid reports whether l is one of the defined levels.
func (l Level) Valid() bool {
	return l >= ReadOnly && l <= Admin
}

func (l Level) String() string {
	switch l {
	case ReadOnly:
		return "read_only"
	case ReadExecute:
		return "read_execute"
	case ReadExecuteWrite:
		return "read_execute_write"
	case Admin:
		return "admin"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Parse converts a config/API string into a Level.
func Parse(s string) (Level, error) {
	switch s {
	case "read_only":
		return ReadOnly, nil
	case "read_execute":
		return ReadExecute, nil
	case "read_execute_write":
		return ReadExecuteWrite, nil
	case "admin":
		return Admin, nil
	default:
		return 0, fmt.Errorf("unknown permission level: %q", s)
	}
}
