package escalation

import (
	"fmt"
	"strings"
)

// Severity orders how urgently a conversation needs a human.
type Severity int

const (
	Low Severity = iota
	Medium
	High
	Critical
)

var severityNames = [...]string{"low", "medium", "high", "critical"}

func (s Severity) String() string {
	if s < Low || s > Critical {
		return fmt.Sprintf("severity(%d)", int(s))
	}
	return severityNames[s]
}

// Max returns the more severe of a and b.
func Max(a, b Severity) Severity {
	if b > a {
		return b
	}
	return a
}

// ParseSeverity maps a name such as "high" to its Severity.
func ParseSeverity(v string) (Severity, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	for i, name := range severityNames {
		if name == v {
			return Severity(i), nil
		}
	}
	return Low, fmt.Errorf("unknown severity %q", v)
}

func (s Severity) MarshalText() ([]byte, error) {
	if s < Low || s > Critical {
		return nil, fmt.Errorf("invalid severity %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(b []byte) error {
	v, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}
