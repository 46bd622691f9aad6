package model

import (
	"context"

	"github.com/homefix-assistant/server/internal/agent/conversation"
)

type ConversationRepository interface {
	// SaveSnapshot stores the full session state, replacing any previous one
	SaveSnapshot(ctx context.Context, snapshot *conversation.Snapshot) error

	// LoadSnapshot returns the stored session; a missing session yields an
	// error for which errx.IsNotFound is true
	LoadSnapshot(ctx context.Context, sessionID string) (*conversation.Snapshot, error)

	// DeleteSnapshot removes the stored session
	DeleteSnapshot(ctx context.Context, sessionID string) error
}
