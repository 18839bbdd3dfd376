package conversation

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "relay"

// record is the CBOR wire form of State.
type record struct {
	Mode             string `cbor:"1,keyasint"`
	SelectedTicketID int64  `cbor:"2,keyasint,omitempty"`
	Page             int    `cbor:"3,keyasint,omitempty"`
	UpdatedAt        int64  `cbor:"4,keyasint"`
}

// RedisStore keeps states in Redis so pending flows survive restarts.
// A positive ttl becomes the key expiry.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore wraps an existing client. Keys are "<prefix>:conversation:<user id>".
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix + ":conversation:"}
}

func (s *RedisStore) Load(ctx context.Context, userID int64) (State, bool, error) {
	data, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return State{}, false, nil
	}
	if err != nil {
		return State{}, false, fmt.Errorf("conversation: load %d: %w", userID, err)
	}
	state, err := decodeState(data)
	if err != nil {
		return State{}, false, fmt.Errorf("conversation: decode %d: %w", userID, err)
	}
	return state, true, nil
}

func (s *RedisStore) Save(ctx context.Context, userID int64, state State, ttl time.Duration) error {
	data, err := encodeState(state)
	if err != nil {
		return fmt.Errorf("conversation: encode %d: %w", userID, err)
	}
	if err := s.client.Set(ctx, s.key(userID), data, ttl).Err(); err != nil {
		return fmt.Errorf("conversation: save %d: %w", userID, err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, userID int64) error {
	if err := s.client.Del(ctx, s.key(userID)).Err(); err != nil {
		return fmt.Errorf("conversation: delete %d: %w", userID, err)
	}
	return nil
}

func (s *RedisStore) key(userID int64) string {
	return s.prefix + strconv.FormatInt(userID, 10)
}

func encodeState(state State) ([]byte, error) {
	rec := record{
		Mode:             string(state.Mode),
		SelectedTicketID: state.SelectedTicketID,
		Page:             state.Page,
	}
	if !state.UpdatedAt.IsZero() {
		rec.UpdatedAt = state.UpdatedAt.UnixNano()
	}
	return cbor.Marshal(rec)
}

func decodeState(data []byte) (State, error) {
	var rec record
	if err := cbor.Unmarshal(data, &rec); err != nil {
		return State{}, err
	}
	state := State{
		Mode:             Mode(rec.Mode),
		SelectedTicketID: rec.SelectedTicketID,
		Page:             rec.Page,
	}
	if rec.UpdatedAt != 0 {
		state.UpdatedAt = time.Unix(0, rec.UpdatedAt).UTC()
	}
	return state, nil
}
