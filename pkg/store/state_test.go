package store

import (
	"testing"

	"github.com/ssargent/brokerdb/pkg/codec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_EntitiesOrder(t *testing.T) {
	state := NewState()

	// Added out of order on purpose
	require.NoError(t, state.Add(&codec.Client{ID: "c"}))
	require.NoError(t, state.Add(&codec.Subscription{ClientID: "c", Topic: "t"}))
	require.NoError(t, state.Add(&codec.Retain{StoreID: 1}))
	require.NoError(t, state.Add(&codec.ClientMessage{ClientID: "c", StoreID: 1}))
	require.NoError(t, state.Add(&codec.MessageStore{StoreID: 1, Topic: "t"}))
	require.NoError(t, state.Add(&codec.Config{LastDBID: 1}))

	var order []codec.ChunkType
	for _, e := range state.Entities() {
		order = append(order, e.ChunkType())
	}
	assert.Equal(t, []codec.ChunkType{
		codec.ChunkConfig,
		codec.ChunkMessageStore,
		codec.ChunkClientMessage,
		codec.ChunkRetain,
		codec.ChunkSubscription,
		codec.ChunkClient,
	}, order)
	assert.Equal(t, 6, state.Len())
}

func TestState_ConfigLastWins(t *testing.T) {
	state := NewState()
	require.NoError(t, state.Add(&codec.Config{LastDBID: 1}))
	require.NoError(t, state.Add(&codec.Config{LastDBID: 2}))

	assert.Equal(t, uint64(2), state.Config.LastDBID)
	assert.Equal(t, 1, state.Len())
	assert.Equal(t, 1, state.Counts()[codec.ChunkConfig])
}

func TestState_AddNil(t *testing.T) {
	state := NewState()
	assert.Error(t, state.Add(nil))
}

func TestState_Summary(t *testing.T) {
	summary := sampleState().Summary()

	assert.Equal(t, Summary{
		Clients:        2,
		ClientMessages: 1,
		Messages:       2,
		Retained:       1,
		Subscriptions:  1,
		PayloadBytes:   int64(len("21.5") + len("online")),
		LastDBID:       3,
		Shutdown:       true,
	}, summary)
}

func TestState_Lookups(t *testing.T) {
	state := sampleState()

	c, ok := state.Client("dev-01")
	require.True(t, ok)
	assert.Equal(t, uint16(12), c.LastMID)

	_, ok = state.Client("missing")
	assert.False(t, ok)

	m, ok := state.Message(3)
	require.True(t, ok)
	assert.Equal(t, "status", m.Topic)

	_, ok = state.Message(2)
	assert.False(t, ok)
}

func TestState_ClientView(t *testing.T) {
	state := sampleState()

	view, ok := state.ClientView("dev-01")
	require.True(t, ok)
	assert.Equal(t, "dev-01", view.Client.ID)
	assert.Len(t, view.Messages, 1)
	assert.Len(t, view.Subscriptions, 1)

	view, ok = state.ClientView("dev-02")
	require.True(t, ok)
	assert.Empty(t, view.Messages)
	assert.Empty(t, view.Subscriptions)

	_, ok = state.ClientView("nobody")
	assert.False(t, ok)
}

func TestState_Validate(t *testing.T) {
	assert.Empty(t, sampleState().Validate())

	state := NewState()
	require.NoError(t, state.Add(&codec.Config{LastDBID: 5}))
	require.NoError(t, state.Add(&codec.MessageStore{StoreID: 2}))
	require.NoError(t, state.Add(&codec.MessageStore{StoreID: 2}))
	require.NoError(t, state.Add(&codec.MessageStore{StoreID: 9}))
	require.NoError(t, state.Add(&codec.Retain{StoreID: 4}))
	require.NoError(t, state.Add(&codec.ClientMessage{ClientID: "c", MID: 1, StoreID: 7}))

	issues := state.Validate()
	require.Len(t, issues, 4)

	assert.Equal(t, "MSG_STORE 2: duplicate store id", issues[0].String())
	assert.Equal(t, "MSG_STORE 9: store id beyond last_db_id", issues[1].String())
	assert.Equal(t, "CLIENT_MSG c/1: references missing store id 7", issues[2].String())
	assert.Equal(t, "RETAIN 4: references missing store id", issues[3].String())
}
