// Package export writes the messages that pass the filter in the formats
// downstream jobs consume: plain text, JSON lines, and chat-style
// fine-tuning conversations.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"chatfilter/internal/domain"
)

// Format selects an export encoding.
type Format string

const (
	FormatText  Format = "text"
	FormatJSONL Format = "jsonl"
	FormatSFT   Format = "sft"
)

// Formats lists every supported format.
var Formats = []Format{FormatText, FormatJSONL, FormatSFT}

func ParseFormat(s string) (Format, error) {
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown export format %q (want text, jsonl or sft)", s)
}

// Write encodes msgs in format f and returns the number of records written.
// For text and jsonl a record is one message; for sft it is one conversation.
func Write(w io.Writer, f Format, msgs []domain.Message) (int, error) {
	switch f {
	case FormatText:
		return WriteText(w, msgs)
	case FormatJSONL:
		return WriteJSONL(w, msgs)
	case FormatSFT:
		return WriteSFT(w, msgs)
	default:
		return 0, fmt.Errorf("unknown export format %q", f)
	}
}

// WriteText writes each message's content followed by a blank line.
func WriteText(w io.Writer, msgs []domain.Message) (int, error) {
	for i, m := range msgs {
		if _, err := io.WriteString(w, m.Content+"\n\n"); err != nil {
			return i, fmt.Errorf("write message %d: %w", i, err)
		}
	}
	return len(msgs), nil
}

type record struct {
	CreatedAt *time.Time `json:"createdAt"`
	AuthorID  string     `json:"authorId"`
	Content   string     `json:"content"`
}

// WriteJSONL writes one JSON object per message. A missing timestamp is
// written as null.
func WriteJSONL(w io.Writer, msgs []domain.Message) (int, error) {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i, m := range msgs {
		rec := record{AuthorID: m.AuthorID, Content: m.Content}
		if !m.CreatedAt.IsZero() {
			ts := m.CreatedAt
			rec.CreatedAt = &ts
		}
		if err := enc.Encode(rec); err != nil {
			return i, fmt.Errorf("write record %d: %w", i, err)
		}
	}
	return len(msgs), nil
}

// Turn is one side of a fine-tuning conversation.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Conversation is one line of the sft export.
type Conversation struct {
	Messages []Turn `json:"messages"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turns merges runs of consecutive messages by the same author into one turn,
// joined with newlines. A message whose text already ends the turn being built
// is dropped. Empty turns are skipped. Emoji and mentions are rewritten.
func Turns(msgs []domain.Message) []string {
	var (
		turns   []string
		current strings.Builder
		author  string
	)
	flush := func() {
		if current.Len() > 0 {
			turns = append(turns, Anonymize(current.String()))
		}
		current.Reset()
	}

	for i, m := range msgs {
		if i > 0 && m.AuthorID != author {
			flush()
		}
		author = m.AuthorID
		if current.Len() > 0 {
			if strings.HasSuffix(current.String(), m.Content) {
				continue
			}
			current.WriteByte('\n')
		}
		current.WriteString(m.Content)
	}
	flush()
	return turns
}

// Conversations pairs turns into user/assistant exchanges. An odd final turn
// becomes a conversation with only the user side.
func Conversations(turns []string) []Conversation {
	convs := make([]Conversation, 0, (len(turns)+1)/2)
	for i := 0; i < len(turns); i += 2 {
		c := Conversation{Messages: []Turn{{Role: RoleUser, Content: turns[i]}}}
		if i+1 < len(turns) {
			c.Messages = append(c.Messages, Turn{Role: RoleAssistant, Content: turns[i+1]})
		}
		convs = append(convs, c)
	}
	return convs
}

// WriteSFT writes msgs as chat fine-tuning data, one conversation per line.
func WriteSFT(w io.Writer, msgs []domain.Message) (int, error) {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	convs := Conversations(Turns(msgs))
	for i, c := range convs {
		if err := enc.Encode(c); err != nil {
			return i, fmt.Errorf("write conversation %d: %w", i, err)
		}
	}
	return len(convs), nil
}
