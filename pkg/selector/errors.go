package selector

import "fmt"

// SyntaxError reports a malformed selector. Token is the offending input at
// Pos (a byte offset), or "EOF" when the selector ended early.
type SyntaxError struct {
	Pos   int
	Token string
	Msg   string
}

// Error implements the error interface.
func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s at position %d near %q", e.Msg, e.Pos, e.Token)
}
