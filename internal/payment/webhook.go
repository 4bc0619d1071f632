package payment

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Event is one inbound provider notification about a payment.
type Event struct {
	ProviderPaymentID string
	RawPayload        []byte
}

type notification struct {
	Type   string `json:"type"`
	Action string `json:"action"`
	Data   struct {
		ID json.RawMessage `json:"id"`
	} `json:"data"`
}

// ParseWebhook decodes a provider notification body. Notifications about
// anything but payments return ErrIgnoredEvent.
func ParseWebhook(body []byte) (Event, error) {
	var n notification
	if err := json.Unmarshal(body, &n); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	if n.Type != "payment" && !strings.HasPrefix(n.Action, "payment.") {
		return Event{}, fmt.Errorf("%w: type %q", ErrIgnoredEvent, n.Type)
	}

	id, err := rawID(n.Data.ID)
	if err != nil {
		return Event{}, err
	}

	return Event{ProviderPaymentID: id, RawPayload: body}, nil
}

// ParseQuery builds an event from the query string variant of the
// notification (?type=payment&data.id=123 or ?topic=payment&id=123).
func ParseQuery(get func(key string) string) (Event, error) {
	kind := get("type")
	if kind == "" {
		kind = get("topic")
	}

	if kind != "payment" {
		return Event{}, fmt.Errorf("%w: type %q", ErrIgnoredEvent, kind)
	}

	id := get("data.id")
	if id == "" {
		id = get("id")
	}

	if err := checkID(id); err != nil {
		return Event{}, err
	}

	return Event{ProviderPaymentID: id}, nil
}

// checkID accepts provider payment ids, which are decimal integers. Anything
// else would end up in the provider API path.
func checkID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: missing payment id", ErrMalformedEvent)
	}

	if _, err := strconv.ParseUint(id, 10, 64); err != nil {
		return fmt.Errorf("%w: payment id %q is not numeric", ErrMalformedEvent, id)
	}

	return nil
}

// rawID accepts the payment id as a JSON string or number.
func rawID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", fmt.Errorf("%w: missing payment id", ErrMalformedEvent)
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if err := checkID(s); err != nil {
			return "", err
		}

		return s, nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("%w: payment id %s", ErrMalformedEvent, raw)
	}

	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return "", fmt.Errorf("%w: payment id %s", ErrMalformedEvent, raw)
	}

	return n.String(), nil
}
