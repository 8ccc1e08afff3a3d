package ws

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Server-to-client frame types.
const (
	FrameMessage      = "message"
	FrameSubscribed   = "subscribed"
	FrameUnsubscribed = "unsubscribed"
	FrameTopicClosed  = "topic_closed"
	FrameSent         = "sent"
	FramePong         = "pong"
	FrameError        = "error"
)

const writeWait = 10 * time.Second

// Envelope wraps every frame the server writes.
type Envelope struct {
	Type    string      `json:"type"`
	Topic   string      `json:"topic,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
}

// Conn is the write side of a websocket connection.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	Close() error
}

// Presence records which users hold a live connection.
type Presence interface {
	SetUserOnline(userID uint) error
	SetUserOffline(userID uint) error
	RefreshUserOnline(userID uint) error
}

type HubConfig struct {
	PingInterval time.Duration
	PongTimeout  time.Duration
	SendBuffer   int
	MessageRate  rate.Limit
	MessageBurst int
}

func DefaultHubConfig() HubConfig {
	return HubConfig{
		PingInterval: 30 * time.Second,
		PongTimeout:  90 * time.Second,
		SendBuffer:   64,
		MessageRate:  10,
		MessageBurst: 20,
	}
}

// Client is one websocket connection. A user may hold several.
type Client struct {
	ID           uint64
	UserID       uint
	SupportsGzip bool

	conn     Conn
	send     chan []byte
	done     chan struct{}
	doneOnce sync.Once
	lastPong atomic.Int64
	limiter  *rate.Limiter

	// topics is guarded by Hub.mu.
	topics map[string]struct{}
}

// Allow reports whether the client may send another chat message now.
func (c *Client) Allow() bool {
	return c.limiter.Allow()
}

func (c *Client) close() {
	c.doneOnce.Do(func() { close(c.done) })
}

// Hub tracks connections and topic subscriptions and fans frames out to them.
// Delivery is best effort: a client whose queue is full misses the frame.
type Hub struct {
	cfg HubConfig
	log *zap.Logger

	clients    map[uint64]*Client
	topics     map[string]map[uint64]*Client
	clientsMux sync.RWMutex
	nextID     atomic.Uint64

	fanout   Fanout
	presence Presence

	stop     chan struct{}
	stopOnce sync.Once
}

func NewHub(cfg HubConfig, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	def := DefaultHubConfig()
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = def.PingInterval
	}
	if cfg.PongTimeout <= 0 {
		cfg.PongTimeout = def.PongTimeout
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = def.SendBuffer
	}
	if cfg.MessageRate <= 0 {
		cfg.MessageRate = def.MessageRate
	}
	if cfg.MessageBurst <= 0 {
		cfg.MessageBurst = def.MessageBurst
	}

	hub := &Hub{
		cfg:     cfg,
		log:     log,
		clients: make(map[uint64]*Client),
		topics:  make(map[string]map[uint64]*Client),
		stop:    make(chan struct{}),
	}
	hub.fanout = localFanout{hub: hub}

	go hub.connectionHealthChecker()
	return hub
}

// SetFanout routes hub events through f, e.g. a Redis relay shared by all instances.
func (h *Hub) SetFanout(f Fanout) {
	if f == nil {
		f = localFanout{hub: h}
	}
	h.fanout = f
}

func (h *Hub) SetPresence(p Presence) {
	h.presence = p
}

func (h *Hub) Config() HubConfig {
	return h.cfg
}

// Register adds a connection and starts its writer.
func (h *Hub) Register(userID uint, conn Conn, supportsGzip bool) *Client {
	c := &Client{
		ID:           h.nextID.Add(1),
		UserID:       userID,
		SupportsGzip: supportsGzip,
		conn:         conn,
		send:         make(chan []byte, h.cfg.SendBuffer),
		done:         make(chan struct{}),
		limiter:      rate.NewLimiter(h.cfg.MessageRate, h.cfg.MessageBurst),
		topics:       make(map[string]struct{}),
	}
	c.lastPong.Store(time.Now().UnixNano())

	h.clientsMux.Lock()
	h.clients[c.ID] = c
	total := len(h.clients)
	h.clientsMux.Unlock()

	if h.presence != nil {
		if err := h.presence.SetUserOnline(userID); err != nil {
			h.log.Warn("set user online failed", zap.Uint("user_id", userID), zap.Error(err))
		}
	}

	go h.writePump(c)

	h.log.Debug("client connected",
		zap.Uint("user_id", userID),
		zap.Uint64("conn_id", c.ID),
		zap.Int("total", total),
		zap.Bool("gzip", supportsGzip),
	)
	return c
}

// Unregister drops a connection and all of its subscriptions. Safe to call twice.
func (h *Hub) Unregister(c *Client) {
	h.clientsMux.Lock()
	if _, ok := h.clients[c.ID]; !ok {
		h.clientsMux.Unlock()
		return
	}
	delete(h.clients, c.ID)
	for topic := range c.topics {
		h.removeSubscriber(topic, c)
	}
	c.topics = map[string]struct{}{}
	remaining := h.userConnections(c.UserID)
	total := len(h.clients)
	h.clientsMux.Unlock()

	c.close()

	if remaining == 0 && h.presence != nil {
		if err := h.presence.SetUserOffline(c.UserID); err != nil {
			h.log.Warn("set user offline failed", zap.Uint("user_id", c.UserID), zap.Error(err))
		}
	}
	h.log.Debug("client disconnected",
		zap.Uint("user_id", c.UserID),
		zap.Uint64("conn_id", c.ID),
		zap.Int("total", total),
	)
}

// Touch records a pong from the client.
func (h *Hub) Touch(c *Client) {
	c.lastPong.Store(time.Now().UnixNano())
	if h.presence != nil {
		if err := h.presence.RefreshUserOnline(c.UserID); err != nil {
			h.log.Debug("refresh presence failed", zap.Uint("user_id", c.UserID), zap.Error(err))
		}
	}
}

// Subscribe attaches the client to topic. Returns false if the client is gone.
func (h *Hub) Subscribe(c *Client, topic string) bool {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	if _, ok := h.clients[c.ID]; !ok {
		return false
	}
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[uint64]*Client)
		h.topics[topic] = subs
	}
	subs[c.ID] = c
	c.topics[topic] = struct{}{}
	return true
}

// UnsubscribeClient detaches one connection from topic.
func (h *Hub) UnsubscribeClient(c *Client, topic string) bool {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	if _, ok := c.topics[topic]; !ok {
		return false
	}
	delete(c.topics, topic)
	h.removeSubscriber(topic, c)
	return true
}

// Publish fans payload out to topic subscribers on every instance.
func (h *Hub) Publish(topic string, payload interface{}) error {
	data, err := json.Marshal(Envelope{Type: FrameMessage, Topic: topic, Payload: payload})
	if err != nil {
		return err
	}
	return h.fanout.Broadcast(Event{Kind: EventPublish, Topic: topic, Data: data})
}

// Unsubscribe removes every connection of userID from topic on every instance.
func (h *Hub) Unsubscribe(userID uint, topic string) {
	h.broadcastOrApply(Event{Kind: EventUnsubscribe, Topic: topic, UserID: userID})
}

// CloseTopic drops all subscribers of topic on every instance.
func (h *Hub) CloseTopic(topic string) {
	h.broadcastOrApply(Event{Kind: EventCloseTopic, Topic: topic})
}

func (h *Hub) broadcastOrApply(ev Event) {
	if err := h.fanout.Broadcast(ev); err != nil {
		h.log.Warn("hub fanout failed, applying locally", zap.String("kind", ev.Kind), zap.String("topic", ev.Topic), zap.Error(err))
		h.Apply(ev)
	}
}

// Apply executes an event against this instance's connections.
func (h *Hub) Apply(ev Event) {
	switch ev.Kind {
	case EventPublish:
		h.deliver(ev.Topic, ev.Data)
	case EventUnsubscribe:
		h.revoke(ev.Topic, func(c *Client) bool { return c.UserID == ev.UserID }, FrameUnsubscribed)
	case EventCloseTopic:
		h.revoke(ev.Topic, func(*Client) bool { return true }, FrameTopicClosed)
	default:
		h.log.Warn("unknown hub event", zap.String("kind", ev.Kind))
	}
}

func (h *Hub) deliver(topic string, data []byte) {
	h.clientsMux.RLock()
	subs := make([]*Client, 0, len(h.topics[topic]))
	for _, c := range h.topics[topic] {
		subs = append(subs, c)
	}
	h.clientsMux.RUnlock()

	for _, c := range subs {
		h.enqueue(c, data)
	}
}

func (h *Hub) revoke(topic string, match func(*Client) bool, frame string) {
	h.clientsMux.Lock()
	var revoked []*Client
	for _, c := range h.topics[topic] {
		if match(c) {
			revoked = append(revoked, c)
			delete(c.topics, topic)
			h.removeSubscriber(topic, c)
		}
	}
	h.clientsMux.Unlock()

	if len(revoked) == 0 {
		return
	}
	data, _ := json.Marshal(Envelope{Type: frame, Topic: topic})
	for _, c := range revoked {
		h.enqueue(c, data)
	}
}

// Send queues v for a single connection.
func (h *Hub) Send(c *Client, v interface{}) bool {
	data, err := json.Marshal(v)
	if err != nil {
		h.log.Error("marshal frame failed", zap.Uint("user_id", c.UserID), zap.Error(err))
		return false
	}
	return h.enqueue(c, data)
}

func (h *Hub) enqueue(c *Client, data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		h.log.Warn("client send queue full, dropping frame",
			zap.Uint("user_id", c.UserID),
			zap.Uint64("conn_id", c.ID),
		)
		return false
	}
}

// IsUserOnline reports whether userID has a connection on this instance.
func (h *Hub) IsUserOnline(userID uint) bool {
	h.clientsMux.RLock()
	defer h.clientsMux.RUnlock()
	return h.userConnections(userID) > 0
}

func (h *Hub) Count() int {
	h.clientsMux.RLock()
	defer h.clientsMux.RUnlock()
	return len(h.clients)
}

// Subscribers counts local connections subscribed to topic.
func (h *Hub) Subscribers(topic string) int {
	h.clientsMux.RLock()
	defer h.clientsMux.RUnlock()
	return len(h.topics[topic])
}

// Close stops background work and disconnects every client.
func (h *Hub) Close() {
	h.stopOnce.Do(func() { close(h.stop) })

	h.clientsMux.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.clientsMux.RUnlock()

	for _, c := range clients {
		h.Unregister(c)
	}
}

// removeSubscriber requires clientsMux held for writing.
func (h *Hub) removeSubscriber(topic string, c *Client) {
	subs, ok := h.topics[topic]
	if !ok {
		return
	}
	delete(subs, c.ID)
	if len(subs) == 0 {
		delete(h.topics, topic)
	}
}

// userConnections requires clientsMux held.
func (h *Hub) userConnections(userID uint) int {
	n := 0
	for _, c := range h.clients {
		if c.UserID == userID {
			n++
		}
	}
	return n
}

// writePump is the only writer of c.conn.
func (h *Hub) writePump(c *Client) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			frameType, frame := websocket.TextMessage, data
			if c.SupportsGzip && len(data) > 512 {
				if compressed, err := compressData(data); err == nil && len(compressed) < len(data) {
					frameType, frame = websocket.BinaryMessage, compressed
				}
			}
			if err := c.conn.WriteMessage(frameType, frame); err != nil {
				h.log.Debug("write failed", zap.Uint("user_id", c.UserID), zap.Error(err))
				h.Unregister(c)
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				h.log.Debug("ping failed", zap.Uint("user_id", c.UserID), zap.Error(err))
				h.Unregister(c)
				return
			}
		}
	}
}

// connectionHealthChecker removes connections that stopped answering pings.
func (h *Hub) connectionHealthChecker() {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.stop:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-h.cfg.PongTimeout).UnixNano()
			h.clientsMux.RLock()
			var dead []*Client
			for _, c := range h.clients {
				if c.lastPong.Load() < cutoff {
					dead = append(dead, c)
				}
			}
			h.clientsMux.RUnlock()

			for _, c := range dead {
				h.log.Info("removing dead connection", zap.Uint("user_id", c.UserID))
				h.Unregister(c)
			}
		}
	}
}

func compressData(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)
	if _, err := gzipWriter.Write(data); err != nil {
		return nil, err
	}
	if err := gzipWriter.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecompressMessage inflates a gzip-compressed client frame.
func DecompressMessage(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(io.LimitReader(reader, 1<<20))
}
