package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validation collects every problem found in a document so the user can fix
// them in one pass.
type Validation struct {
	Errors   []error
	Warnings []string
}

func (v *Validation) addErr(format string, args ...any) {
	v.Errors = append(v.Errors, fmt.Errorf(format, args...))
}

func (v *Validation) addWarn(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}

func (v Validation) OK() bool { return len(v.Errors) == 0 }

// Err joins the collected errors, or returns nil.
func (v Validation) Err() error {
	return errors.Join(v.Errors...)
}

func (v *Validation) merge(other Validation) {
	v.Errors = append(v.Errors, other.Errors...)
	v.Warnings = append(v.Warnings, other.Warnings...)
}

func trimList(xs []string) []string {
	seen := map[string]bool{}
	var ys []string
	for _, x := range xs {
		x = strings.TrimSpace(x)
		if x == "" {
			continue
		}
		key := strings.ToLower(x)
		if seen[key] {
			continue
		}
		seen[key] = true
		ys = append(ys, x)
	}
	return ys
}
