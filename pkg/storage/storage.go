// Package storage keeps a queryable copy of a broker state in pebble. Each
// record is stored under its own key with the encoded chunk as the value, so
// a single client or message can be read without decoding the whole
// persistence file.
package storage

import (
	"bytes"
	"context"
	"encoding/binary"

	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"
	"github.com/segmentio/ksuid"
	"github.com/ssargent/brokerdb/pkg/codec"
	"github.com/ssargent/brokerdb/pkg/store"
)

// Key prefixes, one per record kind. The order of prefixes below is the
// order Load rebuilds them in.
var (
	prefixConfig        = []byte("cfg/")
	prefixMessage       = []byte("msg/")
	prefixClientMessage = []byte("cmsg/")
	prefixRetain        = []byte("ret/")
	prefixSubscription  = []byte("sub/")
	prefixClient        = []byte("client/")

	keyExportID = []byte("meta/export")
)

var recordPrefixes = [][]byte{
	prefixConfig,
	prefixMessage,
	prefixClientMessage,
	prefixRetain,
	prefixSubscription,
	prefixClient,
}

// ErrNotFound is returned when a lookup has no matching record
var ErrNotFound = errors.New("record not found")

// Index is a pebble database holding one exported state
type Index struct {
	db *pebble.DB
}

// Open opens or creates the index at path
func Open(path string) (*Index, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, errors.Wrapf(err, "open index %s", path)
	}
	return &Index{db: db}, nil
}

// Export replaces the contents of the index with state in a single batch and
// returns the id assigned to this export
func (s *Index) Export(ctx context.Context, state *store.State) (ksuid.KSUID, error) {
	batch := s.db.NewBatch()
	defer batch.Close()

	for _, prefix := range recordPrefixes {
		if err := batch.DeleteRange(prefix, prefixEnd(prefix), nil); err != nil {
			return ksuid.Nil, errors.Wrap(err, "clear index")
		}
	}

	for _, e := range state.Entities() {
		if err := ctx.Err(); err != nil {
			return ksuid.Nil, errors.Wrap(err, "export cancelled")
		}
		value, err := codec.Marshal(e)
		if err != nil {
			return ksuid.Nil, errors.Wrapf(err, "encode %s", e.ChunkType())
		}
		if err := batch.Set(recordKey(e), value, nil); err != nil {
			return ksuid.Nil, errors.Wrap(err, "stage record")
		}
	}

	id := ksuid.New()
	if err := batch.Set(keyExportID, id.Bytes(), nil); err != nil {
		return ksuid.Nil, errors.Wrap(err, "stage export id")
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return ksuid.Nil, errors.Wrap(err, "commit export")
	}
	return id, nil
}

// ExportID returns the id of the last export
func (s *Index) ExportID() (ksuid.KSUID, error) {
	data, err := s.get(keyExportID)
	if err != nil {
		return ksuid.Nil, err
	}
	return ksuid.FromBytes(data)
}

// Client returns the session record for id
func (s *Index) Client(id string) (*codec.Client, error) {
	e, err := s.record(clientKey(id))
	if err != nil {
		return nil, err
	}
	return e.(*codec.Client), nil
}

// Message returns the stored message with the given store id
func (s *Index) Message(storeID uint64) (*codec.MessageStore, error) {
	e, err := s.record(storeIDKey(prefixMessage, storeID))
	if err != nil {
		return nil, err
	}
	return e.(*codec.MessageStore), nil
}

// Subscriptions returns every subscription held by client id, ordered by
// topic
func (s *Index) Subscriptions(clientID string) ([]*codec.Subscription, error) {
	var subs []*codec.Subscription
	err := s.scan(clientPrefix(prefixSubscription, clientID), func(e codec.Entity) error {
		subs = append(subs, e.(*codec.Subscription))
		return nil
	})
	return subs, err
}

// Load rebuilds a State from the index. Records come back in key order
// within each kind: messages and retains by store id, client messages by
// client, direction and mid, subscriptions by client and topic, clients by id.
func (s *Index) Load(ctx context.Context) (*store.State, error) {
	state := store.NewState()
	for _, prefix := range recordPrefixes {
		err := s.scan(prefix, func(e codec.Entity) error {
			if err := ctx.Err(); err != nil {
				return errors.Wrap(err, "load cancelled")
			}
			return state.Add(e)
		})
		if err != nil {
			return nil, err
		}
	}
	return state, nil
}

// Close closes the underlying database
func (s *Index) Close() error {
	return s.db.Close()
}

func (s *Index) get(key []byte) ([]byte, error) {
	data, closer, err := s.db.Get(key)
	if err == pebble.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "index get")
	}
	defer closer.Close()

	// The slice is only valid until closer is closed
	return append([]byte(nil), data...), nil
}

func (s *Index) record(key []byte) (codec.Entity, error) {
	data, err := s.get(key)
	if err != nil {
		return nil, err
	}
	e, err := codec.Unmarshal(data)
	if err != nil {
		return nil, errors.Wrapf(err, "decode record %q", key)
	}
	return e, nil
}

func (s *Index) scan(prefix []byte, fn func(codec.Entity) error) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixEnd(prefix),
	})
	if err != nil {
		return errors.Wrap(err, "index iterator")
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		e, err := codec.Unmarshal(iter.Value())
		if err != nil {
			return errors.Wrapf(err, "decode record %q", iter.Key())
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return iter.Error()
}

// recordKey returns the key an entity is stored under. Store ids are
// big-endian so key order is numeric order; client ids are terminated with a
// zero byte so one client's prefix never matches another's.
func recordKey(e codec.Entity) []byte {
	switch v := e.(type) {
	case *codec.Config:
		return prefixConfig
	case *codec.MessageStore:
		return storeIDKey(prefixMessage, v.StoreID)
	case *codec.ClientMessage:
		key := clientPrefix(prefixClientMessage, v.ClientID)
		key = append(key, byte(v.Direction))
		key = binary.BigEndian.AppendUint16(key, v.MID)
		return binary.BigEndian.AppendUint64(key, v.StoreID)
	case *codec.Retain:
		return storeIDKey(prefixRetain, v.StoreID)
	case *codec.Subscription:
		return append(clientPrefix(prefixSubscription, v.ClientID), v.Topic...)
	case *codec.Client:
		return clientKey(v.ID)
	}
	return nil
}

func storeIDKey(prefix []byte, id uint64) []byte {
	key := append([]byte(nil), prefix...)
	return binary.BigEndian.AppendUint64(key, id)
}

func clientPrefix(prefix []byte, clientID string) []byte {
	key := append([]byte(nil), prefix...)
	key = append(key, clientID...)
	return append(key, 0)
}

func clientKey(id string) []byte {
	key := append([]byte(nil), prefixClient...)
	return append(key, id...)
}

// prefixEnd returns the smallest key greater than every key with prefix
func prefixEnd(prefix []byte) []byte {
	end := bytes.Clone(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
