package agent

import (
	"errors"
	"slices"

	"github.com/flemzord/fitagent/internal/provider"
)

// errConversationShrunk is returned when a replacement would drop messages.
var errConversationShrunk = errors.New("agent: replacement conversation is shorter than the current one")

// Conversation is the ordered message log of one run. It only grows.
//
// It is owned by a single agent and mutated only by the goroutine driving
// the run.
type Conversation struct {
	msgs []provider.LLMMessage
}

// Append adds messages at the end of the log.
func (c *Conversation) Append(msgs ...provider.LLMMessage) {
	c.msgs = append(c.msgs, msgs...)
}

// Messages returns a copy of the log.
func (c *Conversation) Messages() []provider.LLMMessage {
	return slices.Clone(c.msgs)
}

// Len returns the number of messages.
func (c *Conversation) Len() int { return len(c.msgs) }

// Replace swaps the log for msgs, which must extend the current log.
func (c *Conversation) Replace(msgs []provider.LLMMessage) error {
	if len(msgs) < len(c.msgs) {
		return errConversationShrunk
	}
	c.msgs = slices.Clone(msgs)
	return nil
}

// FirstUser returns the text of the first user message.
func (c *Conversation) FirstUser() (string, bool) {
	for _, m := range c.msgs {
		if m.Role == provider.MessageRoleUser {
			return m.Content, true
		}
	}
	return "", false
}

// Last returns the most recent message.
func (c *Conversation) Last() (provider.LLMMessage, bool) {
	if len(c.msgs) == 0 {
		return provider.LLMMessage{}, false
	}
	return c.msgs[len(c.msgs)-1], true
}
