package polygon

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"Tradia/internal/domain/models"
	drepo "Tradia/internal/domain/repository"
	applogger "Tradia/pkg/logger"

	"github.com/gorilla/websocket"
)

// Stream implements MarketStream backed by the Polygon trades WebSocket.
type Stream struct {
	apiKey         string
	websocketURL   string
	reconnectDelay time.Duration
	pingInterval   time.Duration
	logger         *applogger.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	symbols   []string
}

// NewStream creates a Polygon MarketStream.
func NewStream(apiKey, websocketURL string, reconnectDelay, pingInterval time.Duration, l *applogger.Logger) drepo.MarketStream {
	return &Stream{
		apiKey:         apiKey,
		websocketURL:   websocketURL,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
		logger:         l,
	}
}

// Connect dials the WebSocket and authenticates.
func (s *Stream) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.websocketURL, nil)
	if err != nil {
		return fmt.Errorf("polygon connect: %w", err)
	}

	auth := map[string]string{"action": "auth", "params": s.apiKey}
	if err := conn.WriteJSON(auth); err != nil {
		_ = conn.Close()
		return fmt.Errorf("polygon auth: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.connected = true
	s.mu.Unlock()

	if s.logger != nil {
		s.logger.Info("polygon stream connected")
	}
	return nil
}

// Subscribe subscribes to trade events for the given symbols.
func (s *Stream) Subscribe(_ context.Context, symbols []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil || !s.connected {
		return fmt.Errorf("polygon not connected")
	}

	channels := make([]string, len(symbols))
	for i, sym := range symbols {
		channels[i] = "T." + sym
	}
	msg := map[string]string{"action": "subscribe", "params": strings.Join(channels, ",")}
	if err := s.conn.WriteJSON(msg); err != nil {
		return fmt.Errorf("polygon subscribe: %w", err)
	}

	s.symbols = symbols
	if s.logger != nil {
		s.logger.Info("polygon subscribed", applogger.Int("symbols", len(symbols)))
	}
	return nil
}

type wsEvent struct {
	Ev  string  `json:"ev"`
	Sym string  `json:"sym"`
	P   float64 `json:"p"`
	S   float64 `json:"s"`
	T   int64   `json:"t"` // ms
}

// Read streams Trade events and errors until the connection drops or ctx ends.
func (s *Stream) Read(ctx context.Context) (<-chan *models.Trade, <-chan error) {
	trades := make(chan *models.Trade, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(s.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.mu.Lock()
				conn := s.conn
				s.mu.Unlock()
				if conn != nil {
					_ = conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(trades)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			s.mu.Lock()
			conn := s.conn
			s.mu.Unlock()
			if conn == nil {
				errs <- fmt.Errorf("polygon conn nil")
				return
			}

			_, b, err := conn.ReadMessage()
			if err != nil {
				errs <- fmt.Errorf("polygon read: %w", err)
				return
			}

			// Polygon frames are JSON arrays of events; skip status frames.
			var events []wsEvent
			if err := json.Unmarshal(b, &events); err != nil {
				continue
			}
			for _, ev := range events {
				if ev.Ev != "T" {
					continue
				}
				trade := &models.Trade{
					Symbol:    ev.Sym,
					Timestamp: ev.T / 1000,
					Price:     ev.P,
					Volume:    ev.S,
				}
				select {
				case trades <- trade:
				default:
					// drop on backpressure
				}
			}
		}
	}()

	return trades, errs
}

// Reconnect closes, waits, reconnects and resubscribes.
func (s *Stream) Reconnect(ctx context.Context) error {
	_ = s.Close()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.reconnectDelay):
	}
	if err := s.Connect(ctx); err != nil {
		return err
	}
	s.mu.Lock()
	symbols := s.symbols
	s.mu.Unlock()
	if len(symbols) == 0 {
		return nil
	}
	return s.Subscribe(ctx, symbols)
}

// Close closes the WebSocket connection.
func (s *Stream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}

// IsConnected indicates connection status.
func (s *Stream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}
