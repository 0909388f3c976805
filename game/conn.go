// File: game/conn.go
package game

import (
	"encoding/json"
	"sync"

	"golang.org/x/net/websocket"
)

// PlayerConnection is the capability a match holds for a client session.
// The match never sees the concrete transport; tests substitute a mock.
type PlayerConnection interface {
	// Emit marshals an event envelope and sends it.
	Emit(event string, data interface{}) error
	// SendRaw sends an already-serialized envelope. Broadcast serializes
	// once and fans the same bytes out to every session.
	SendRaw(raw []byte) error
	Close() error
	RemoteAddr() string
}

// Envelope is the wire frame for every message in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope marshals data into an Envelope.
func NewEnvelope(event string, data interface{}) (Envelope, error) {
	if data == nil {
		return Envelope{Event: event}, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{Event: event, Data: raw}, nil
}

// WSConnection adapts a websocket connection to PlayerConnection. Writes
// are serialized by a mutex; the broadcast path and direct emits may race
// otherwise.
type WSConnection struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// NewWSConnection wraps a websocket connection.
func NewWSConnection(conn *websocket.Conn) *WSConnection {
	return &WSConnection{conn: conn}
}

func (w *WSConnection) Emit(event string, data interface{}) error {
	env, err := NewEnvelope(event, data)
	if err != nil {
		return err
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return w.SendRaw(raw)
}

func (w *WSConnection) SendRaw(raw []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return websocket.Message.Send(w.conn, string(raw))
}

func (w *WSConnection) Close() error {
	return w.conn.Close()
}

func (w *WSConnection) RemoteAddr() string {
	if addr := w.conn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return "unknown"
}
