package store

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/ssargent/brokerdb/pkg/codec"
)

// State is a flat snapshot of broker state: what a checkpoint writes and what
// a load produces. It holds records, not live broker structures.
type State struct {
	Config         *codec.Config
	Messages       []*codec.MessageStore
	ClientMessages []*codec.ClientMessage
	Retains        []*codec.Retain
	Subscriptions  []*codec.Subscription
	Clients        []*codec.Client
}

// NewState returns an empty state
func NewState() *State {
	return &State{}
}

// Add folds a decoded entity into the state. A second config record
// replaces the first.
func (s *State) Add(e codec.Entity) error {
	switch v := e.(type) {
	case *codec.Config:
		s.Config = v
	case *codec.MessageStore:
		s.Messages = append(s.Messages, v)
	case *codec.ClientMessage:
		s.ClientMessages = append(s.ClientMessages, v)
	case *codec.Retain:
		s.Retains = append(s.Retains, v)
	case *codec.Subscription:
		s.Subscriptions = append(s.Subscriptions, v)
	case *codec.Client:
		s.Clients = append(s.Clients, v)
	default:
		return fmt.Errorf("state: unsupported entity %T", e)
	}
	return nil
}

// Entities lists every record in checkpoint order: config, message store,
// client messages, retains, subscriptions, clients. Message bodies come
// before anything that refers to them.
func (s *State) Entities() []codec.Entity {
	out := make([]codec.Entity, 0, s.Len())
	if s.Config != nil {
		out = append(out, s.Config)
	}
	for _, m := range s.Messages {
		out = append(out, m)
	}
	for _, m := range s.ClientMessages {
		out = append(out, m)
	}
	for _, r := range s.Retains {
		out = append(out, r)
	}
	for _, sub := range s.Subscriptions {
		out = append(out, sub)
	}
	for _, c := range s.Clients {
		out = append(out, c)
	}
	return out
}

// Len returns the number of records in the state
func (s *State) Len() int {
	n := len(s.Messages) + len(s.ClientMessages) + len(s.Retains) + len(s.Subscriptions) + len(s.Clients)
	if s.Config != nil {
		n++
	}
	return n
}

// Counts returns the number of records per chunk type
func (s *State) Counts() map[codec.ChunkType]int {
	counts := map[codec.ChunkType]int{
		codec.ChunkMessageStore:  len(s.Messages),
		codec.ChunkClientMessage: len(s.ClientMessages),
		codec.ChunkRetain:        len(s.Retains),
		codec.ChunkSubscription:  len(s.Subscriptions),
		codec.ChunkClient:        len(s.Clients),
		codec.ChunkConfig:        0,
	}
	if s.Config != nil {
		counts[codec.ChunkConfig] = 1
	}
	return counts
}

// Summary returns entity counts and totals
func (s *State) Summary() Summary {
	sum := Summary{
		Clients:        len(s.Clients),
		ClientMessages: len(s.ClientMessages),
		Messages:       len(s.Messages),
		Retained:       len(s.Retains),
		Subscriptions:  len(s.Subscriptions),
	}
	for _, m := range s.Messages {
		sum.PayloadBytes += int64(len(m.Payload))
	}
	if s.Config != nil {
		sum.LastDBID = s.Config.LastDBID
		sum.Shutdown = s.Config.Shutdown
	}
	return sum
}

// Client returns the session with the given id
func (s *State) Client(id string) (*codec.Client, bool) {
	for _, c := range s.Clients {
		if c.ID == id {
			return c, true
		}
	}
	return nil, false
}

// Message returns the stored message with the given store id
func (s *State) Message(storeID uint64) (*codec.MessageStore, bool) {
	for _, m := range s.Messages {
		if m.StoreID == storeID {
			return m, true
		}
	}
	return nil, false
}

// ClientView gathers one client's session, queued messages and
// subscriptions.
type ClientView struct {
	Client        *codec.Client          `json:"client"`
	Messages      []*codec.ClientMessage `json:"messages"`
	Subscriptions []*codec.Subscription  `json:"subscriptions"`
}

// ClientView returns everything recorded for client id
func (s *State) ClientView(id string) (*ClientView, bool) {
	c, ok := s.Client(id)
	if !ok {
		return nil, false
	}
	view := &ClientView{Client: c}
	for _, m := range s.ClientMessages {
		if m.ClientID == id {
			view.Messages = append(view.Messages, m)
		}
	}
	for _, sub := range s.Subscriptions {
		if sub.ClientID == id {
			view.Subscriptions = append(view.Subscriptions, sub)
		}
	}
	return view, true
}

// Validate checks cross-record references: every client message and retain
// must name a stored message, store ids must be unique, and no store id may
// exceed the config's last_db_id. The codec does not check these.
func (s *State) Validate() []Issue {
	var issues []Issue

	stored := make(map[uint64]bool, len(s.Messages))
	for _, m := range s.Messages {
		key := strconv.FormatUint(m.StoreID, 10)
		if stored[m.StoreID] {
			issues = append(issues, Issue{codec.ChunkMessageStore, key, "duplicate store id"})
		}
		stored[m.StoreID] = true
		if s.Config != nil && m.StoreID > s.Config.LastDBID {
			issues = append(issues, Issue{codec.ChunkMessageStore, key, "store id beyond last_db_id"})
		}
	}

	for _, m := range s.ClientMessages {
		if !stored[m.StoreID] {
			key := m.ClientID + "/" + strconv.FormatUint(uint64(m.MID), 10)
			issues = append(issues, Issue{codec.ChunkClientMessage, key, fmt.Sprintf("references missing store id %d", m.StoreID)})
		}
	}
	for _, r := range s.Retains {
		if !stored[r.StoreID] {
			key := strconv.FormatUint(r.StoreID, 10)
			issues = append(issues, Issue{codec.ChunkRetain, key, "references missing store id"})
		}
	}

	sort.SliceStable(issues, func(i, j int) bool {
		return issues[i].Chunk < issues[j].Chunk
	})
	return issues
}
