package replication

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang/snappy"
	"github.com/google/uuid"
)

// MessageType represents the type of peer message
type MessageType uint8

const (
	// Requests
	MsgPing MessageType = iota + 1
	MsgReplicate

	// Replies
	MsgAck
	MsgError
)

// String returns the string representation of a MessageType
func (t MessageType) String() string {
	switch t {
	case MsgPing:
		return "ping"
	case MsgReplicate:
		return "replicate"
	case MsgAck:
		return "ack"
	case MsgError:
		return "error"
	default:
		return "unknown"
	}
}

// Message is the envelope of every frame on the nng transport
type Message struct {
	ID        string      `json:"id"`
	Type      MessageType `json:"type"`
	Timestamp int64       `json:"timestamp"`
	Data      []byte      `json:"data,omitempty"`
}

// ReplicateRequest carries one write to a follower. Key and value are
// bytes so that JSON carries them as base64 and never rewrites invalid UTF-8.
type ReplicateRequest struct {
	Key   []byte `json:"key"`
	Value []byte `json:"value"`
}

// AckMessage answers a ping or a replicate request
type AckMessage struct {
	NodeID int `json:"node_id"`
}

// ErrorMessage reports a rejected request
type ErrorMessage struct {
	Message string `json:"message"`
}

// NewMessage creates a new message with a fresh ID
func NewMessage(msgType MessageType, data any) (*Message, error) {
	return newMessage(uuid.NewString(), msgType, data)
}

// NewReply creates a reply correlated with request
func NewReply(request *Message, msgType MessageType, data any) (*Message, error) {
	return newMessage(request.ID, msgType, data)
}

func newMessage(id string, msgType MessageType, data any) (*Message, error) {
	msg := &Message{
		ID:        id,
		Type:      msgType,
		Timestamp: time.Now().UnixNano(),
	}
	if data != nil {
		dataBytes, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		msg.Data = dataBytes
	}
	return msg, nil
}

// Decode decodes message data into the provided value
func (m *Message) Decode(v any) error {
	return json.Unmarshal(m.Data, v)
}

// EncodeFrame serialises a message and compresses it with snappy.
func EncodeFrame(m *Message) ([]byte, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}
	return snappy.Encode(nil, raw), nil
}

// DecodeFrame reverses EncodeFrame.
func DecodeFrame(frame []byte) (*Message, error) {
	raw, err := snappy.Decode(nil, frame)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress frame: %w", err)
	}
	var m Message
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message: %w", err)
	}
	return &m, nil
}
