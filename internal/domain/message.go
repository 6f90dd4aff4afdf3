package domain

import (
	"context"
	"time"
)

// NullContent is what a SQL NULL content value becomes once coerced to text.
const NullContent = "None"

// Message is one row of the messages table.
type Message struct {
	CreatedAt time.Time `json:"createdAt"`
	Content   string    `json:"content"`
	AuthorID  string    `json:"authorId"`
}

// MessageSource reads the full message dataset from a relational store.
type MessageSource interface {
	LoadMessages(ctx context.Context) ([]Message, error)
}
