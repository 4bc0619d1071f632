package sessioncache_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/studiobooks/internal/sessioncache"
)

func TestDecodeMessage(t *testing.T) {
	type testCase struct {
		name       string
		data       string
		wantAction sessioncache.Action
		wantErr    error
	}

	tests := []testCase{
		{
			name:       "ItemRemoved",
			data:       `{"action":"item-removed","origin_id":"tab-1","timestamp":"2024-05-10T12:00:00Z","payload":{"id":"6f1c1f3e-8a51-4c53-9a57-0a4c0e2f7d10"}}`,
			wantAction: sessioncache.ActionItemRemoved,
		},
		{
			name:       "Invalidated",
			data:       `{"action":"invalidated","origin_id":"tab-1","timestamp":"2024-05-10T12:00:00Z","payload":{"period":{"year":2024,"month":5}}}`,
			wantAction: sessioncache.ActionInvalidated,
		},
		{
			name:    "UnknownAction",
			data:    `{"action":"cache-cleared","origin_id":"tab-1","payload":{}}`,
			wantErr: sessioncache.ErrUnknownAction,
		},
		{
			name:    "MissingAction",
			data:    `{"origin_id":"tab-1","payload":{}}`,
			wantErr: sessioncache.ErrUnknownAction,
		},
		{
			name:    "NotJSON",
			data:    `item-added`,
			wantErr: sessioncache.ErrMalformedMessage,
		},
		{
			name:    "MissingPayload",
			data:    `{"action":"item-added","origin_id":"tab-1"}`,
			wantErr: sessioncache.ErrMalformedMessage,
		},
		{
			name:    "WrongPayloadShape",
			data:    `{"action":"item-removed","origin_id":"tab-1","payload":{"id":42}}`,
			wantErr: sessioncache.ErrMalformedMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, msg, err := sessioncache.DecodeMessage([]byte(tt.data))

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantAction, env.Action)
			assert.Equal(t, tt.wantAction, msg.Action())
			assert.Equal(t, "tab-1", env.OriginID)
		})
	}
}

func TestEncodeMessage(t *testing.T) {
	at := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	id := uuid.New()
	paid := int64(12000)

	data, err := sessioncache.EncodeMessage("tab-9", at, sessioncache.ItemUpdated{
		ID:    id,
		Patch: sessioncache.ItemPatch{AmountPaid: &paid},
	})
	require.NoError(t, err)

	env, msg, err := sessioncache.DecodeMessage(data)
	require.NoError(t, err)
	assert.Equal(t, "tab-9", env.OriginID)
	assert.Equal(t, at, env.Timestamp)

	updated, ok := msg.(sessioncache.ItemUpdated)
	require.True(t, ok)
	assert.Equal(t, id, updated.ID)
	assert.Equal(t, paid, *updated.Patch.AmountPaid)
	assert.Nil(t, updated.Patch.Title)
}

func TestPeriod(t *testing.T) {
	p := sessioncache.PeriodOf(time.Date(2024, 12, 31, 23, 0, 0, 0, time.UTC))

	assert.Equal(t, "2024-12", p.String())
	assert.Equal(t, sessioncache.Period{Year: 2025, Month: time.January}, p.Add(1))
	assert.Equal(t, sessioncache.Period{Year: 2024, Month: time.November}, p.Add(-1))
	assert.Equal(t, time.Date(2024, 12, 31, 23, 59, 59, 999999999, time.UTC), p.End())
}
