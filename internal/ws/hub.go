package ws

// Subscriber abstracts a realtime client.
type Subscriber interface {
	Send([]byte) error
	Close()
}

// Hub manages subscriptions by room key and delivers each published payload
// to exactly the subscribers of the matching room. Membership is owned by
// the run goroutine, so no lock is needed on the hot path.
type Hub struct {
	rooms     map[string]map[Subscriber]struct{}
	join      chan subscription
	leave     chan subscription
	broadcast chan message
}

type message struct {
	room    string
	payload []byte
}

type subscription struct {
	room   string
	client Subscriber
}

// NewHub creates an initialized Hub with its delivery goroutine running.
func NewHub() *Hub {
	h := &Hub{
		rooms:     make(map[string]map[Subscriber]struct{}),
		join:      make(chan subscription),
		leave:     make(chan subscription),
		broadcast: make(chan message),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case sub := <-h.join:
			if _, ok := h.rooms[sub.room]; !ok {
				h.rooms[sub.room] = make(map[Subscriber]struct{})
			}
			h.rooms[sub.room][sub.client] = struct{}{}
		case sub := <-h.leave:
			if clients, ok := h.rooms[sub.room]; ok {
				delete(clients, sub.client)
				if len(clients) == 0 {
					delete(h.rooms, sub.room)
				}
			}
		case msg := <-h.broadcast:
			clients, ok := h.rooms[msg.room]
			if !ok {
				// Publishing to an empty room is a silent no-op.
				continue
			}
			for c := range clients {
				if err := c.Send(msg.payload); err != nil {
					c.Close()
					delete(clients, c)
				}
			}
			if len(clients) == 0 {
				delete(h.rooms, msg.room)
			}
		}
	}
}

// Join subscribes a client to a room. Joining twice is the same as once.
func (h *Hub) Join(room string, client Subscriber) {
	h.join <- subscription{room: room, client: client}
}

// Leave removes a client from a room.
func (h *Hub) Leave(room string, client Subscriber) {
	h.leave <- subscription{room: room, client: client}
}

// Publish sends payload to every current subscriber of the room.
func (h *Hub) Publish(room string, payload []byte) {
	h.broadcast <- message{room: room, payload: payload}
}
