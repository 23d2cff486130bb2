package archive

import "time"

// Message is a single turn in an exported conversation. Immutable once
// loaded. Messages without a timestamp are kept for text search but excluded
// from timing computations.
type Message struct {
	Role      string // "user" or "assistant"
	Text      string
	Timestamp time.Time
}

// Conversation is one exported chat session, tagged with the workstation
// folder it was collected from.
type Conversation struct {
	ID         string
	Title      string
	Station    int // workstation number from the CSN folder name
	CreateTime time.Time
	UpdateTime time.Time
	Messages   []Message // sorted by timestamp ascending where present
}

// UserMessages returns the participant-authored, non-empty messages in
// timestamp order. This is the stream the classifier scans.
func (c *Conversation) UserMessages() []Message {
	var out []Message
	for _, m := range c.Messages {
		if m.Role == "user" && m.Text != "" {
			out = append(out, m)
		}
	}
	return out
}

// ActiveDuration is the gap between the first and last timestamped user
// message. Conversations with fewer than two timestamped user messages have
// zero active duration.
func (c *Conversation) ActiveDuration() time.Duration {
	var first, last time.Time
	for _, m := range c.UserMessages() {
		if m.Timestamp.IsZero() {
			continue
		}
		if first.IsZero() || m.Timestamp.Before(first) {
			first = m.Timestamp
		}
		if last.IsZero() || m.Timestamp.After(last) {
			last = m.Timestamp
		}
	}
	if first.IsZero() || last.IsZero() {
		return 0
	}
	return last.Sub(first)
}
