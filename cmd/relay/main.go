// Command relay is the fan-out counterpart of the WebSocket store adapter:
// it keeps the last written document per room and rebroadcasts every write to
// the room's subscribers. It never merges documents; last write wins.
package main

import (
	"flag"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/decktable/decktable-go/internal/room"
)

var addr = flag.String("addr", ":8081", "listen address")

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // trusted-LAN tool, no origin policy
	},
}

type envelope struct {
	Type string         `json:"type"`
	Room string         `json:"room"`
	Doc  *room.Document `json:"doc,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan envelope
}

type op struct {
	c   *client
	env envelope
}

// hub owns all relay state. The run goroutine is the only one that touches
// docs, clients and the per-client room sets, and the only one that sends on
// or closes a client's send channel, so no operation can race a disconnect.
type hub struct {
	docs    map[string]*room.Document
	clients map[*client]map[string]bool

	register   chan *client
	unregister chan *client
	ops        chan op
}

func newHub() *hub {
	return &hub{
		docs:       make(map[string]*room.Document),
		clients:    make(map[*client]map[string]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		ops:        make(chan op),
	}
}

func (h *hub) run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = make(map[string]bool)

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}

		case o := <-h.ops:
			h.handle(o.c, o.env)
		}
	}
}

func (h *hub) handle(c *client, env envelope) {
	rooms, ok := h.clients[c]
	if !ok {
		return
	}
	switch env.Type {
	case "subscribe":
		rooms[env.Room] = true
		if doc := h.docs[env.Room]; doc != nil {
			h.push(c, envelope{Type: "snapshot", Room: env.Room, Doc: doc.Clone()})
		}
	case "unsubscribe":
		delete(rooms, env.Room)
	case "fetch":
		h.push(c, envelope{Type: "snapshot", Room: env.Room, Doc: h.docs[env.Room].Clone()})
	case "write":
		if env.Doc == nil {
			return
		}
		h.docs[env.Room] = env.Doc.Clone()
		for target, subs := range h.clients {
			if subs[env.Room] {
				h.push(target, envelope{Type: "snapshot", Room: env.Room, Doc: env.Doc.Clone()})
			}
		}
	}
}

// push delivers to one client without blocking the hub loop.
func (h *hub) push(c *client, env envelope) {
	select {
	case c.send <- env:
	default:
		// Slow consumer: drop, the client's polling fallback re-fetches.
	}
}

func (h *hub) serve(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("upgrade failed: %v", err)
		return
	}
	c := &client{
		conn: conn,
		send: make(chan envelope, 16),
	}
	h.register <- c
	go c.writePump()
	h.readPump(c)
}

func (h *hub) readPump(c *client) {
	defer func() {
		h.unregister <- c
		c.conn.Close()
	}()
	for {
		var env envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			return
		}
		h.ops <- op{c: c, env: env}
	}
}

func (c *client) writePump() {
	for env := range c.send {
		if err := c.conn.WriteJSON(env); err != nil {
			return
		}
	}
}

func main() {
	flag.Parse()

	h := newHub()
	go h.run()
	http.HandleFunc("/ws", h.serve)

	log.Printf("relay listening on %s", *addr)
	if err := http.ListenAndServe(*addr, nil); err != nil {
		log.Fatal(err)
	}
}
