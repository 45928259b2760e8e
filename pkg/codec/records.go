package codec

import "fmt"

// Entity is a record that can be written as a chunk. The concrete types are
// *Config, *Client, *ClientMessage, *MessageStore, *Retain and *Subscription.
type Entity interface {
	ChunkType() ChunkType
}

// Config carries broker-wide persistence settings. One per file.
type Config struct {
	LastDBID uint64 // highest store id handed out
	Shutdown bool   // written during a clean shutdown
	DBIDSize uint8  // width of store ids in bytes, normally 8
}

// Client is a persisted client session.
type Client struct {
	ID                    string
	SessionExpiryTime     int64 // unix seconds, 0 if the session does not expire
	SessionExpiryInterval uint32
	LastMID               uint16 // last message id issued to the client
}

// Direction of a queued client message.
type Direction uint8

const (
	DirectionIn  Direction = 0
	DirectionOut Direction = 1
)

func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "in"
	case DirectionOut:
		return "out"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

// MessageState is the delivery state of a queued client message.
type MessageState uint8

const (
	StateInvalid MessageState = iota
	StatePublishQoS0
	StatePublishQoS1
	StateWaitForPuback
	StatePublishQoS2
	StateWaitForPubrec
	StateResendPubrel
	StateWaitForPubrel
	StateResendPubcomp
	StateWaitForPubcomp
	StateSendPubrec
	StateQueued
)

var messageStateNames = [...]string{
	"invalid",
	"publish_qos0",
	"publish_qos1",
	"wait_for_puback",
	"publish_qos2",
	"wait_for_pubrec",
	"resend_pubrel",
	"wait_for_pubrel",
	"resend_pubcomp",
	"wait_for_pubcomp",
	"send_pubrec",
	"queued",
}

func (s MessageState) String() string {
	if int(s) < len(messageStateNames) {
		return messageStateNames[s]
	}
	return fmt.Sprintf("state(%d)", uint8(s))
}

// ClientMessage is a message queued for or by a client. StoreID refers to
// the MessageStore record holding the body.
type ClientMessage struct {
	ClientID  string
	StoreID   uint64
	MID       uint16
	QoS       uint8
	State     MessageState
	Retain    bool
	Dup       bool
	Direction Direction
}

// MessageStore is a de-duplicated message body.
type MessageStore struct {
	StoreID        uint64
	ExpiryTime     int64
	SourceID       string
	SourceUsername string
	SourceMID      uint16
	SourcePort     uint16
	Topic          string
	QoS            uint8
	Retain         bool
	Payload        []byte
}

// Retain marks the MessageStore record holding a retained publication.
type Retain struct {
	StoreID uint64
}

// Subscription is a client's subscription to a topic filter.
type Subscription struct {
	ClientID   string
	Topic      string
	Identifier uint32 // MQTTv5 subscription identifier, 0 if unused
	QoS        uint8
	Options    uint8
}

func (*Config) ChunkType() ChunkType        { return ChunkConfig }
func (*Client) ChunkType() ChunkType        { return ChunkClient }
func (*ClientMessage) ChunkType() ChunkType { return ChunkClientMessage }
func (*MessageStore) ChunkType() ChunkType  { return ChunkMessageStore }
func (*Retain) ChunkType() ChunkType        { return ChunkRetain }
func (*Subscription) ChunkType() ChunkType  { return ChunkSubscription }

// Fixed part sizes in bytes.
const (
	configFixedSize        = 16
	clientFixedSize        = 16
	clientMessageFixedSize = 16
	messageStoreFixedSize  = 32
	retainFixedSize        = 8
	subscriptionFixedSize  = 16
)

// FixedSize returns the size of the fixed part of a chunk type, or 0 for
// types this build does not know.
func FixedSize(t ChunkType) int {
	switch t {
	case ChunkConfig:
		return configFixedSize
	case ChunkClient:
		return clientFixedSize
	case ChunkClientMessage:
		return clientMessageFixedSize
	case ChunkMessageStore:
		return messageStoreFixedSize
	case ChunkRetain:
		return retainFixedSize
	case ChunkSubscription:
		return subscriptionFixedSize
	default:
		return 0
	}
}

// Wire views of the fixed parts. Field order is the on-disk order.

type configWire struct {
	LastDBID uint64
	Shutdown bool
	DBIDSize uint8
}

func (w *configWire) pack(b *fieldBuffer) {
	b.u64(&w.LastDBID)
	b.flag(&w.Shutdown)
	b.u8(&w.DBIDSize)
	b.pad(6)
}

type clientWire struct {
	SessionExpiryTime     int64
	SessionExpiryInterval uint32
	LastMID               uint16
	IDLen                 uint16
}

func (w *clientWire) pack(b *fieldBuffer) {
	b.i64(&w.SessionExpiryTime)
	b.u32(&w.SessionExpiryInterval)
	b.u16(&w.LastMID)
	b.u16(&w.IDLen)
}

type clientMessageWire struct {
	StoreID   uint64
	MID       uint16
	IDLen     uint16
	QoS       uint8
	State     uint8
	RetainDup uint8 // retain in the high nibble, dup in the low nibble
	Direction uint8
}

func (w *clientMessageWire) pack(b *fieldBuffer) {
	b.u64(&w.StoreID)
	b.u16(&w.MID)
	b.u16(&w.IDLen)
	b.u8(&w.QoS)
	b.u8(&w.State)
	b.u8(&w.RetainDup)
	b.u8(&w.Direction)
}

type messageStoreWire struct {
	StoreID           uint64
	ExpiryTime        int64
	PayloadLen        uint32
	SourceMID         uint16
	SourceIDLen       uint16
	SourceUsernameLen uint16
	TopicLen          uint16
	SourcePort        uint16
	QoS               uint8
	Retain            bool
}

func (w *messageStoreWire) pack(b *fieldBuffer) {
	b.u64(&w.StoreID)
	b.i64(&w.ExpiryTime)
	b.u32(&w.PayloadLen)
	b.u16(&w.SourceMID)
	b.u16(&w.SourceIDLen)
	b.u16(&w.SourceUsernameLen)
	b.u16(&w.TopicLen)
	b.u16(&w.SourcePort)
	b.u8(&w.QoS)
	b.flag(&w.Retain)
}

type retainWire struct {
	StoreID uint64
}

func (w *retainWire) pack(b *fieldBuffer) {
	b.u64(&w.StoreID)
}

type subscriptionWire struct {
	Identifier uint32
	IDLen      uint16
	TopicLen   uint16
	QoS        uint8
	Options    uint8
}

func (w *subscriptionWire) pack(b *fieldBuffer) {
	b.u32(&w.Identifier)
	b.u16(&w.IDLen)
	b.u16(&w.TopicLen)
	b.u8(&w.QoS)
	b.u8(&w.Options)
	b.pad(6)
}
