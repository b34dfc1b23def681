package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	events []OrderSettled
	err    error
	closed bool
}

func (r *recorder) PublishOrderSettled(_ context.Context, event OrderSettled) error {
	r.events = append(r.events, event)
	return r.err
}

func (r *recorder) Close() error {
	r.closed = true
	return r.err
}

func TestMulti(t *testing.T) {
	errBroker := errors.New("broker down")
	ok := &recorder{}
	failing := &recorder{err: errBroker}

	event := NewOrderSettled(7, uuid.New(), decimal.NewFromInt(20), decimal.NewFromInt(80), 8)
	err := Multi{ok, failing}.PublishOrderSettled(t.Context(), event)

	require.ErrorIs(t, err, errBroker)
	assert.Len(t, ok.events, 1)
	assert.Len(t, failing.events, 1)

	require.ErrorIs(t, Multi{ok, failing}.Close(), errBroker)
	assert.True(t, ok.closed)
}

func TestOrderSettledJSON(t *testing.T) {
	event := NewOrderSettled(7, uuid.New(), decimal.RequireFromString("19.90"), decimal.NewFromInt(0), 8)

	data, err := json.Marshal(event)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "19.9", decoded["total"])
	assert.InDelta(t, 7, decoded["order_id"], 0)
	assert.NotEmpty(t, decoded["event_id"])
}
