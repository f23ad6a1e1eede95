package ledger

import "github.com/google/uuid"

// Command is an optimistic mutation: Apply runs immediately, Compensate runs
// exactly once if the network effect fails. Failed commands are not retried;
// rapid repeated actions are independent commands that roll back
// independently.
type Command struct {
	ID         string
	Apply      func()
	Compensate func()
}

func Optimistic(apply, compensate func()) *Command {
	return &Command{
		ID:         uuid.NewString(),
		Apply:      apply,
		Compensate: compensate,
	}
}

// Run applies the local mutation, invokes the network effect, and compensates
// on failure. The effect's error is returned so callers can log it; the
// ledger itself is already rolled back by then.
func (c *Command) Run(effect func() error) error {
	c.Apply()
	if err := effect(); err != nil {
		c.Compensate()
		return err
	}
	return nil
}

// AddCommand is an optimistic +1 for (messageID, emoji).
func AddCommand(l *Ledger, messageID, emoji string) *Command {
	return Optimistic(
		func() { l.Apply(messageID, emoji, 1) },
		func() { l.Apply(messageID, emoji, -1) },
	)
}

// RemoveCommand is an optimistic -1 for (messageID, emoji).
func RemoveCommand(l *Ledger, messageID, emoji string) *Command {
	return Optimistic(
		func() { l.Apply(messageID, emoji, -1) },
		func() { l.Apply(messageID, emoji, 1) },
	)
}
