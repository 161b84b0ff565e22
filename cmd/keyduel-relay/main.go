// Package main runs the keyduel relay: a WebSocket server that hosts
// the shared match documents both duel participants read and write.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"keyduel/internal/docstore"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
	sendBuffer     = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The relay carries no credentials or cookies, so cross-origin
	// clients are fine.
	CheckOrigin: func(*http.Request) bool { return true },
}

func main() {
	addr := flag.String("addr", ":8091", "listen address")
	flag.Parse()

	logger := log.New(os.Stderr, "[Relay] ", log.LstdFlags)
	srv := &server{
		store:  docstore.NewMemStore(),
		logger: logger,
	}

	http.HandleFunc("/ws", srv.handleWS)
	logger.Printf("listening on %s", *addr)
	if err := http.ListenAndServe(*addr, nil); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}

type server struct {
	store  *docstore.MemStore
	logger *log.Logger
}

func (s *server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Printf("upgrade failed: %v", err)
		return
	}
	c := newClient(s, conn)
	s.logger.Printf("client connected from %s", conn.RemoteAddr())
	go c.writePump()
	c.readPump()
}

// client is one relay connection. Writes go through the send channel
// so only writePump touches the socket.
type client struct {
	server *server
	conn   *websocket.Conn
	send   chan docstore.Message
	done   chan struct{}

	// cancel tears down every subscription this connection opened.
	ctx    context.Context
	cancel context.CancelFunc

	closeOnce sync.Once
}

func newClient(s *server, conn *websocket.Conn) *client {
	ctx, cancel := context.WithCancel(context.Background())
	return &client{
		server: s,
		conn:   conn,
		send:   make(chan docstore.Message, sendBuffer),
		done:   make(chan struct{}),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.done)
	})
}

func (c *client) readPump() {
	defer func() {
		c.close()
		if err := c.conn.Close(); err != nil {
			// Best-effort socket close.
			_ = err
		}
		c.server.logger.Printf("client disconnected from %s", c.conn.RemoteAddr())
	}()
	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		var msg docstore.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.server.logger.Printf("read error: %v", err)
			}
			return
		}
		c.handle(msg)
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		if err := c.conn.Close(); err != nil {
			// Best-effort socket close.
			_ = err
		}
	}()
	for {
		select {
		case msg := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-c.done:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// enqueue drops the message when the connection is too slow rather
// than blocking the store fan-out.
func (c *client) enqueue(msg docstore.Message) {
	select {
	case <-c.done:
	case c.send <- msg:
	default:
		c.server.logger.Printf("dropping message for slow client %s", c.conn.RemoteAddr())
	}
}

func (c *client) handle(msg docstore.Message) {
	switch msg.Op {
	case docstore.OpGet:
		c.handleGet(msg)
	case docstore.OpSet:
		c.handleSet(msg)
	case docstore.OpUpdate:
		c.handleUpdate(msg)
	case docstore.OpSubscribe:
		c.handleSubscribe(msg)
	default:
		c.reply(msg.ID, nil, "unknown op "+msg.Op)
	}
}

func (c *client) handleGet(msg docstore.Message) {
	var doc json.RawMessage
	if err := c.server.store.Get(c.ctx, msg.Path, &doc); err != nil {
		c.reply(msg.ID, nil, err.Error())
		return
	}
	c.reply(msg.ID, doc, "")
}

func (c *client) handleSet(msg docstore.Message) {
	if err := c.server.store.Set(c.ctx, msg.Path, msg.Doc); err != nil {
		c.reply(msg.ID, nil, err.Error())
		return
	}
	c.reply(msg.ID, nil, "")
}

func (c *client) handleUpdate(msg docstore.Message) {
	var partial map[string]any
	if err := json.Unmarshal(msg.Doc, &partial); err != nil {
		c.reply(msg.ID, nil, "malformed update: "+err.Error())
		return
	}
	if err := c.server.store.Update(c.ctx, msg.Path, partial); err != nil {
		c.reply(msg.ID, nil, err.Error())
		return
	}
	c.reply(msg.ID, nil, "")
}

// handleSubscribe acks the request, then forwards the snapshot and
// every later change as push messages until the connection goes away.
func (c *client) handleSubscribe(msg docstore.Message) {
	changes, err := c.server.store.Subscribe(c.ctx, msg.Path)
	if err != nil {
		c.reply(msg.ID, nil, err.Error())
		return
	}
	c.reply(msg.ID, nil, "")
	go func() {
		for change := range changes {
			c.enqueue(docstore.Message{
				Op:   docstore.OpChange,
				Path: change.Path,
				Doc:  change.Doc,
			})
		}
	}()
}

func (c *client) reply(id string, doc json.RawMessage, errText string) {
	c.enqueue(docstore.Message{
		ID:    id,
		Op:    docstore.OpResult,
		Doc:   doc,
		Error: errText,
	})
}
