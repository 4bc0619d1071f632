package sessioncache

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUnknownAction    = errors.New("unknown cache action")
	ErrMalformedMessage = errors.New("malformed cache message")
)

type Action string

const (
	ActionCacheUpdated Action = "cache-updated"
	ActionItemAdded    Action = "item-added"
	ActionItemUpdated  Action = "item-updated"
	ActionItemRemoved  Action = "item-removed"
	ActionInvalidated  Action = "invalidated"
)

// Envelope is what travels on the bus. Payload is decoded according to Action.
type Envelope struct {
	Action    Action          `json:"action"`
	OriginID  string          `json:"origin_id"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Message is one of CacheUpdated, ItemAdded, ItemUpdated, ItemRemoved or
// Invalidated.
type Message interface {
	Action() Action
}

type CacheUpdated struct {
	Period      Period    `json:"period"`
	Items       []Item    `json:"items"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

type ItemAdded struct {
	Item Item `json:"item"`
}

type ItemUpdated struct {
	ID    uuid.UUID `json:"id"`
	Patch ItemPatch `json:"patch"`
}

type ItemRemoved struct {
	ID uuid.UUID `json:"id"`
}

type Invalidated struct {
	Period Period `json:"period"`
}

func (CacheUpdated) Action() Action { return ActionCacheUpdated }
func (ItemAdded) Action() Action    { return ActionItemAdded }
func (ItemUpdated) Action() Action  { return ActionItemUpdated }
func (ItemRemoved) Action() Action  { return ActionItemRemoved }
func (Invalidated) Action() Action  { return ActionInvalidated }

// EncodeMessage wraps msg in an envelope stamped with origin and at.
func EncodeMessage(origin string, at time.Time, msg Message) ([]byte, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encoding %s payload: %w", msg.Action(), err)
	}

	data, err := json.Marshal(Envelope{
		Action:    msg.Action(),
		OriginID:  origin,
		Timestamp: at,
		Payload:   payload,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding envelope: %w", err)
	}

	return data, nil
}

// DecodeMessage reads an envelope and its typed payload. Actions outside the
// known set fail with ErrUnknownAction.
func DecodeMessage(data []byte) (Envelope, Message, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, nil, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}

	var msg Message

	switch env.Action {
	case ActionCacheUpdated:
		msg = &CacheUpdated{}
	case ActionItemAdded:
		msg = &ItemAdded{}
	case ActionItemUpdated:
		msg = &ItemUpdated{}
	case ActionItemRemoved:
		msg = &ItemRemoved{}
	case ActionInvalidated:
		msg = &Invalidated{}
	default:
		return env, nil, fmt.Errorf("%w: %q", ErrUnknownAction, env.Action)
	}

	if len(env.Payload) == 0 {
		return env, nil, fmt.Errorf("%w: %s without payload", ErrMalformedMessage, env.Action)
	}

	if err := json.Unmarshal(env.Payload, msg); err != nil {
		return env, nil, fmt.Errorf("%w: %s payload: %w", ErrMalformedMessage, env.Action, err)
	}

	return env, deref(msg), nil
}

func deref(msg Message) Message {
	switch m := msg.(type) {
	case *CacheUpdated:
		return *m
	case *ItemAdded:
		return *m
	case *ItemUpdated:
		return *m
	case *ItemRemoved:
		return *m
	case *Invalidated:
		return *m
	}

	return msg
}
