// Package bridge exposes the in-process command bus to remote
// publishers. Each WebSocket client sends JSON envelopes that are decoded
// by topic kind and republished on the transport node, so remote commands
// and local ones travel the same path into the systems' mailboxes.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	ws "github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/hydrosim/systems/internal/transport"
	"github.com/hydrosim/systems/pkg/core"
)

const (
	writeWait           = 10 * time.Second
	ackChSize           = 64
	instrumentationName = "github.com/hydrosim/systems/internal/bridge"
)

// Envelope is the wire format for one inbound command.
type Envelope struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// Ack reports the fate of one envelope back to the client.
type Ack struct {
	Topic string `json:"topic"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

// Server accepts WebSocket clients and republishes their envelopes.
type Server struct {
	node     *transport.Node
	logger   *slog.Logger
	server   *http.Server
	upgrader ws.Upgrader

	received metric.Int64Counter
	rejected metric.Int64Counter
}

// NewServer creates a bridge listening on addr. Call Start to serve.
func NewServer(addr string, node *transport.Node, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		node:   node,
		logger: logger,
		upgrader: ws.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}

	m := otel.Meter(instrumentationName)
	var err error
	s.received, err = m.Int64Counter(
		"bridge.envelopes.received",
		metric.WithDescription("Envelopes accepted and republished"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating received counter: %w", err)
	}
	s.rejected, err = m.Int64Counter(
		"bridge.envelopes.rejected",
		metric.WithDescription("Envelopes dropped due to decode or topic errors"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating rejected counter: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	s.server = &http.Server{Addr: addr, Handler: mux}
	return s, nil
}

// Start serves until Close. It blocks; run it on its own goroutine.
func (s *Server) Start() error {
	s.logger.Info("command bridge listening", "addr", s.server.Addr)
	err := s.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Close shuts the listener and rejects further clients.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), writeWait)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	s.logger.Info("command client connected", "remote", r.RemoteAddr)

	acks := make(chan Ack, ackChSize)
	done := make(chan struct{})

	go s.writeLoop(conn, acks, done)
	s.readLoop(conn, acks)
	close(done)

	_ = conn.Close()
	s.logger.Info("command client disconnected", "remote", r.RemoteAddr)
}

// readLoop decodes envelopes until the connection drops.
func (s *Server) readLoop(conn *ws.Conn, acks chan<- Ack) {
	ctx := context.Background()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !ws.IsCloseError(err, ws.CloseNormalClosure, ws.CloseGoingAway) {
				s.logger.Warn("websocket read failed", "error", err)
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			s.rejected.Add(ctx, 1)
			s.sendAck(acks, Ack{OK: false, Error: "malformed envelope"})
			continue
		}

		if err := s.republish(env); err != nil {
			s.rejected.Add(ctx, 1)
			s.sendAck(acks, Ack{Topic: env.Topic, OK: false, Error: err.Error()})
			continue
		}
		s.received.Add(ctx, 1)
		s.sendAck(acks, Ack{Topic: env.Topic, OK: true})
	}
}

// republish decodes the payload by topic kind and publishes it.
func (s *Server) republish(env Envelope) error {
	topic, err := core.ValidTopic(env.Topic)
	if err != nil {
		return err
	}

	switch {
	case strings.HasSuffix(topic, "/cmd_vel"):
		var msg core.Twist
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			return fmt.Errorf("malformed twist payload: %w", err)
		}
		s.node.Publish(topic, msg)
	case strings.HasSuffix(topic, "/cmd_pos"):
		var msg core.Double
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			return fmt.Errorf("malformed double payload: %w", err)
		}
		s.node.Publish(topic, msg)
	default:
		return fmt.Errorf("no payload type for topic %s", topic)
	}
	return nil
}

// sendAck queues an ack without ever blocking the read loop.
func (s *Server) sendAck(acks chan<- Ack, ack Ack) {
	select {
	case acks <- ack:
	default:
	}
}

// writeLoop delivers acks until the connection's read side finishes.
func (s *Server) writeLoop(conn *ws.Conn, acks <-chan Ack, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case ack := <-acks:
			data, err := json.Marshal(ack)
			if err != nil {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(ws.TextMessage, data); err != nil {
				s.logger.Warn("websocket write failed", "error", err)
				return
			}
		}
	}
}
