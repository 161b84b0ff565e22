package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Connection timing shared with the relay server.
const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 64
)

// ErrClosed is returned for operations on a closed RemoteStore.
var ErrClosed = errors.New("remote store closed")

// RemoteStore implements Store over a WebSocket connection to a relay.
// Requests are matched to replies by ID; change pushes fan out to
// local subscribers by path.
type RemoteStore struct {
	conn *websocket.Conn
	send chan Message

	mu      sync.Mutex
	pending map[string]chan Message
	subs    map[string]map[chan Change]struct{}

	done      chan struct{}
	closeOnce sync.Once
}

// Dial connects to a relay and starts the read/write pumps.
func Dial(ctx context.Context, url string) (*RemoteStore, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial relay %s: %w", url, err)
	}
	s := &RemoteStore{
		conn:    conn,
		send:    make(chan Message, sendBuffer),
		pending: map[string]chan Message{},
		subs:    map[string]map[chan Change]struct{}{},
		done:    make(chan struct{}),
	}
	go s.readPump()
	go s.writePump()
	return s, nil
}

// Close tears down the connection and fails all pending requests.
func (s *RemoteStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.conn.Close()
		s.mu.Lock()
		for id, ch := range s.pending {
			close(ch)
			delete(s.pending, id)
		}
		for path, subs := range s.subs {
			for ch := range subs {
				close(ch)
			}
			delete(s.subs, path)
		}
		s.mu.Unlock()
	})
	return nil
}

// Get implements Store.
func (s *RemoteStore) Get(ctx context.Context, path string, out any) error {
	reply, err := s.request(ctx, Message{Op: OpGet, Path: path})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(reply.Doc, out); err != nil {
		return fmt.Errorf("decode document %q: %w", path, err)
	}
	return nil
}

// Set implements Store.
func (s *RemoteStore) Set(ctx context.Context, path string, doc any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encode document %q: %w", path, err)
	}
	_, err = s.request(ctx, Message{Op: OpSet, Path: path, Doc: raw})
	return err
}

// Update implements Store.
func (s *RemoteStore) Update(ctx context.Context, path string, partial map[string]any) error {
	raw, err := json.Marshal(partial)
	if err != nil {
		return fmt.Errorf("encode update %q: %w", path, err)
	}
	_, err = s.request(ctx, Message{Op: OpUpdate, Path: path, Doc: raw})
	return err
}

// Subscribe implements Store. The relay sends the current snapshot and
// pushes every later change; the channel closes when ctx is cancelled
// or the connection drops.
func (s *RemoteStore) Subscribe(ctx context.Context, path string) (<-chan Change, error) {
	// The relay pushes the snapshot right behind the subscribe ack, so
	// the channel must be registered before the request goes out.
	ch := make(chan Change, subscriberBuffer)
	s.mu.Lock()
	if s.subs[path] == nil {
		s.subs[path] = map[chan Change]struct{}{}
	}
	s.subs[path][ch] = struct{}{}
	s.mu.Unlock()

	if _, err := s.request(ctx, Message{Op: OpSubscribe, Path: path}); err != nil {
		s.mu.Lock()
		if subs, ok := s.subs[path]; ok {
			delete(subs, ch)
		}
		s.mu.Unlock()
		return nil, err
	}

	go func() {
		select {
		case <-ctx.Done():
		case <-s.done:
			return
		}
		s.mu.Lock()
		if subs, ok := s.subs[path]; ok {
			if _, live := subs[ch]; live {
				delete(subs, ch)
				close(ch)
			}
		}
		s.mu.Unlock()
	}()
	return ch, nil
}

func (s *RemoteStore) request(ctx context.Context, msg Message) (Message, error) {
	msg.ID = uuid.NewString()
	reply := make(chan Message, 1)
	s.mu.Lock()
	s.pending[msg.ID] = reply
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.pending, msg.ID)
		s.mu.Unlock()
	}()

	select {
	case s.send <- msg:
	case <-s.done:
		return Message{}, ErrClosed
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}

	select {
	case resp, ok := <-reply:
		if !ok {
			return Message{}, ErrClosed
		}
		if resp.Error != "" {
			if resp.Error == ErrNotFound.Error() {
				return Message{}, ErrNotFound
			}
			return Message{}, fmt.Errorf("relay: %s", resp.Error)
		}
		return resp, nil
	case <-s.done:
		return Message{}, ErrClosed
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}

func (s *RemoteStore) readPump() {
	defer s.Close()
	s.conn.SetReadLimit(512 * 1024)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		var msg Message
		if err := s.conn.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Op {
		case OpChange:
			s.dispatchChange(msg)
		default:
			s.mu.Lock()
			if ch, ok := s.pending[msg.ID]; ok {
				ch <- msg
				delete(s.pending, msg.ID)
			}
			s.mu.Unlock()
		}
	}
}

func (s *RemoteStore) dispatchChange(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subs[msg.Path] {
		select {
		case ch <- Change{Path: msg.Path, Doc: msg.Doc}:
		default:
		}
	}
}

func (s *RemoteStore) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.Close()
	}()
	for {
		select {
		case msg := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-s.done:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			s.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
