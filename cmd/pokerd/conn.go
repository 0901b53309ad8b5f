package main

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/opencardroom/pokerd/pkg/transport"
)

// wsConnection adapts a gorilla/websocket connection to the room.Connection
// interface, serializing writes behind a mutex since the Room's goroutine
// (Send) and this connection's own read loop in serveWS (sendReply) write to
// it concurrently (spec.md §9 Design Note "keep the transport library out of the
// domain packages" — pkg/room only ever sees this through the Connection
// interface it declares).
type wsConnection struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func newWSConnection(conn *websocket.Conn) *wsConnection {
	return &wsConnection{conn: conn}
}

func (w *wsConnection) Send(tag transport.OutboundTag, payload interface{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.WriteJSON(transport.OutboundEnvelope{Tag: tag, Payload: payload})
}

func (w *wsConnection) sendReply(reply transport.Reply) {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.WriteJSON(reply)
}

func (w *wsConnection) readEnvelope() (transport.InboundEnvelope, error) {
	var env transport.InboundEnvelope
	_, data, err := w.conn.ReadMessage()
	if err != nil {
		return env, err
	}
	err = json.Unmarshal(data, &env)
	return env, err
}

func (w *wsConnection) close() error {
	return w.conn.Close()
}
