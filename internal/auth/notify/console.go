// Package notify delivers password reset tokens to users.
package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
)

// ConsoleSender prints the reset mail to a writer instead of sending it.
type ConsoleSender struct {
	From string
	Out  io.Writer

	mu sync.Mutex
}

func NewConsoleSender(from string, out io.Writer) *ConsoleSender {
	if out == nil {
		out = os.Stdout
	}
	return &ConsoleSender{From: from, Out: out}
}

func (s *ConsoleSender) Deliver(_ context.Context, email, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := fmt.Fprintf(s.Out, "\nfrom: %s\nto: %s\nsubject: %s\nmessage:\n%s\n",
		s.From, email, resetSubject, resetBody(token))
	return err
}
