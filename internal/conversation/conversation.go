// Package conversation rebuilds ordered per-session conversations
// from the flat chat turn log. Conversations are request-scoped
// read models: rebuilt on every query, never persisted.
package conversation

import (
	"sort"
	"time"

	"zapview/internal/db"
)

// Role is the dashboard-facing side of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// roleFor maps the stored turn kind to a Role. Anything that is
// not an inbound human turn counts as the assistant.
func roleFor(kind string) Role {
	if kind == db.KindHuman {
		return RoleUser
	}
	return RoleAssistant
}

// Message is a single turn of a conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Conversation is the reconstructed message sequence for one
// session id, ascending by turn timestamp. Timestamps parallels
// Messages entry for entry.
type Conversation struct {
	SessionID       string      `json:"session_id"`
	Messages        []Message   `json:"messages"`
	Timestamps      []time.Time `json:"created_at_list"`
	LastMessage     Message     `json:"last_message"`
	LastMessageTime time.Time   `json:"last_message_time"`
}

// Result carries the reconstructed conversations plus the number
// of rows excluded for missing or invalid timestamps. Malformed
// rows never fail the batch; the caller may log the count.
type Result struct {
	Conversations map[string]*Conversation
	Malformed     int
}

// Reconstruct groups rows by session id and orders each group
// ascending by timestamp. Input order is irrelevant except as a
// tie-break: rows with identical timestamps keep arrival order.
// Sessions with no valid rows are not materialized.
func Reconstruct(rows []db.Turn) Result {
	res := Result{Conversations: make(map[string]*Conversation)}

	for _, row := range rows {
		if row.CreatedAt.IsZero() {
			res.Malformed++
			continue
		}
		c, ok := res.Conversations[row.SessionID]
		if !ok {
			c = &Conversation{SessionID: row.SessionID}
			res.Conversations[row.SessionID] = c
		}
		c.Messages = append(c.Messages, Message{
			Role:    roleFor(row.Kind),
			Content: row.Content,
		})
		c.Timestamps = append(c.Timestamps, row.CreatedAt)
	}

	for _, c := range res.Conversations {
		c.finalize()
	}
	return res
}

// ReconstructOne rebuilds a single session from rows, ignoring
// rows for other session ids. Returns nil when no valid rows
// remain. The second return value is the malformed-row count.
func ReconstructOne(sessionID string, rows []db.Turn) (*Conversation, int) {
	matching := rows[:0:0]
	for _, row := range rows {
		if row.SessionID == sessionID {
			matching = append(matching, row)
		}
	}
	res := Reconstruct(matching)
	return res.Conversations[sessionID], res.Malformed
}

// finalize sorts messages chronologically and resolves the last
// message. "Last" is decided by comparing timestamps, not by
// position: groups are built incrementally from a source query
// whose order is not guaranteed.
func (c *Conversation) finalize() {
	order := make([]int, len(c.Messages))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return c.Timestamps[order[a]].Before(c.Timestamps[order[b]])
	})

	msgs := make([]Message, len(order))
	times := make([]time.Time, len(order))
	for i, idx := range order {
		msgs[i] = c.Messages[idx]
		times[i] = c.Timestamps[idx]
	}
	c.Messages = msgs
	c.Timestamps = times

	for i, ts := range c.Timestamps {
		if c.LastMessageTime.IsZero() || ts.After(c.LastMessageTime) {
			c.LastMessage = c.Messages[i]
			c.LastMessageTime = ts
		}
	}
}

// Recent returns up to n conversations ordered by last message
// time, newest first. Ties break on session id so the order is
// deterministic across calls.
func Recent(convs map[string]*Conversation, n int) []*Conversation {
	out := make([]*Conversation, 0, len(convs))
	for _, c := range convs {
		out = append(out, c)
	}
	sort.Slice(out, func(a, b int) bool {
		if !out[a].LastMessageTime.Equal(out[b].LastMessageTime) {
			return out[a].LastMessageTime.After(out[b].LastMessageTime)
		}
		return out[a].SessionID < out[b].SessionID
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}
