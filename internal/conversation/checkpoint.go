package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// CheckpointStore keeps per-conversation agent state in Redis so a
// conversation survives process restarts but expires after a quiet period.
type CheckpointStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCheckpointStore creates a checkpoint store with the given idle TTL.
func NewCheckpointStore(client *redis.Client, ttl time.Duration) *CheckpointStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CheckpointStore{client: client, ttl: ttl}
}

func checkpointKey(conversationID uuid.UUID) string {
	return "agent_state:" + conversationID.String()
}

// Load returns the saved state, or a zero state on first contact or after expiry.
func (s *CheckpointStore) Load(ctx context.Context, conversationID uuid.UUID) (AgentState, error) {
	raw, err := s.client.Get(ctx, checkpointKey(conversationID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return AgentState{Intent: IntentUnknown}, nil
		}
		return AgentState{}, fmt.Errorf("conversation: load checkpoint: %w", err)
	}

	var state AgentState
	if err := json.Unmarshal(raw, &state); err != nil {
		// A corrupt checkpoint restarts the conversation instead of wedging it.
		return AgentState{Intent: IntentUnknown}, nil
	}
	return state, nil
}

// Save persists the state and refreshes the idle TTL.
func (s *CheckpointStore) Save(ctx context.Context, conversationID uuid.UUID, state AgentState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("conversation: encode checkpoint: %w", err)
	}
	if err := s.client.Set(ctx, checkpointKey(conversationID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("conversation: save checkpoint: %w", err)
	}
	return nil
}

// Clear drops the state, used when a booking flow finishes.
func (s *CheckpointStore) Clear(ctx context.Context, conversationID uuid.UUID) error {
	if err := s.client.Del(ctx, checkpointKey(conversationID)).Err(); err != nil {
		return fmt.Errorf("conversation: clear checkpoint: %w", err)
	}
	return nil
}
