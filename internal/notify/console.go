package notify

import (
	"fmt"
	"io"
	"sync"
)

// ConsoleDeliverer writes alerts to a writer instead of a real mail
// transport. It is the default when no SMTP relay is configured.
type ConsoleDeliverer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleDeliverer creates a deliverer writing to out.
func NewConsoleDeliverer(out io.Writer) *ConsoleDeliverer {
	return &ConsoleDeliverer{out: out}
}

// Deliver renders the alert to the writer. It only fails when the
// writer does.
func (c *ConsoleDeliverer) Deliver(to, subject, body string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := fmt.Fprintf(c.out, "To: %s\nSubject: %s\n\n%s\n", to, subject, body)
	return err == nil
}
