// Package contract provides runtime validators for response bodies.
package contract

// Contract checks a candidate value. An empty result means the candidate
// passed; otherwise each entry describes one violation.
type Contract interface {
	Validate(candidate any) []string
}

// Func adapts a function to the Contract interface.
type Func func(candidate any) []string

func (f Func) Validate(candidate any) []string {
	if f == nil {
		return nil
	}
	return f(candidate)
}

type unknown struct{}

func (unknown) Validate(any) []string { return nil }

// Unknown returns a contract that accepts every candidate.
func Unknown() Contract { return unknown{} }

// IsUnknown reports whether c is nil or the permissive contract.
func IsUnknown(c Contract) bool {
	if c == nil {
		return true
	}
	_, ok := c.(unknown)
	return ok
}
