package config

import (
	"errors"
	"fmt"
)

// Problems collects invalid settings so a bad deployment reports all of
// them in one go.
type Problems struct {
	errs []error
}

// Check records a problem when ok is false.
func (p *Problems) Check(ok bool, format string, args ...any) {
	if !ok {
		p.errs = append(p.errs, fmt.Errorf(format, args...))
	}
}

func (p *Problems) Err() error {
	return errors.Join(p.errs...)
}
