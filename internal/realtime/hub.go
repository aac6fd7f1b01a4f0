package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/frahmantamala/audit-workflow/internal"
	"github.com/frahmantamala/audit-workflow/internal/core/events"
	"github.com/frahmantamala/audit-workflow/internal/core/identity"
	"github.com/frahmantamala/audit-workflow/internal/metrics"
	"github.com/frahmantamala/audit-workflow/internal/request"
	"github.com/frahmantamala/audit-workflow/internal/transport"
)

const (
	defaultPingInterval = 30 * time.Second
	defaultWriteTimeout = 10 * time.Second
	defaultSendBuffer   = 32
	maxInboundMessage   = 1024
)

// ProfileLookup reloads the actor after a profile.changed event.
type ProfileLookup interface {
	AuthContextFor(ctx context.Context, profileID string) (identity.AuthContext, error)
}

type HubConfig struct {
	PingInterval time.Duration
	WriteTimeout time.Duration
	SendBuffer   int
}

func HubConfigFrom(cfg internal.RealtimeConfig) HubConfig {
	return HubConfig{
		PingInterval: cfg.PingInterval,
		WriteTimeout: cfg.WriteTimeout,
		SendBuffer:   cfg.SendBuffer,
	}
}

func (c *HubConfig) applyDefaults() {
	if c.PingInterval <= 0 {
		c.PingInterval = defaultPingInterval
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = defaultWriteTimeout
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = defaultSendBuffer
	}
}

type Hub struct {
	*transport.BaseHandler

	mu       sync.RWMutex
	clients  map[*Client]struct{}
	lookup   ProfileLookup
	cfg      HubConfig
	upgrader websocket.Upgrader
}

func NewHub(base *transport.BaseHandler, lookup ProfileLookup, cfg HubConfig, checkOrigin func(r *http.Request) bool) *Hub {
	cfg.applyDefaults()
	return &Hub{
		BaseHandler: base,
		clients:     make(map[*Client]struct{}),
		lookup:      lookup,
		cfg:         cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
	}
}

// Client is one websocket connection and the actor it was opened for.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once

	mu    sync.RWMutex
	actor identity.AuthContext
}

func (c *Client) Actor() identity.AuthContext {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.actor
}

func (c *Client) setActor(actor identity.AuthContext) {
	c.mu.Lock()
	c.actor = actor
	c.mu.Unlock()
}

// ServeWS upgrades an authenticated request. It expects the auth middleware
// to have placed the actor on the context.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.Actor(w, r)
	if !ok {
		return
	}
	if actor.IsSuspended() {
		h.HandleServiceError(w, r, internal.ErrAccountSuspended)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.Logger.Warn("websocket upgrade failed", "profile_id", actor.ProfileID, "error", err)
		return
	}

	client := &Client{
		hub:   h,
		conn:  conn,
		send:  make(chan []byte, h.cfg.SendBuffer),
		done:  make(chan struct{}),
		actor: actor,
	}
	h.register(client)

	go client.writePump()
	go client.readPump()
}

// Run dispatches envelopes until the stream closes or ctx ends.
func (h *Hub) Run(ctx context.Context, stream <-chan Envelope) {
	for {
		select {
		case <-ctx.Done():
			return
		case env, ok := <-stream:
			if !ok {
				return
			}
			h.Dispatch(ctx, env)
		}
	}
}

// Dispatch delivers env to every client allowed to see it.
func (h *Hub) Dispatch(ctx context.Context, env Envelope) {
	if env.Type == events.EventTypeProfileChanged {
		h.refreshProfile(ctx, env)
	}

	payload, err := json.Marshal(env)
	if err != nil {
		h.Logger.Error("failed to encode realtime envelope", "event_type", env.Type, "error", err)
		return
	}

	for _, c := range h.snapshot() {
		if !Allowed(c.Actor(), env) {
			continue
		}
		select {
		case c.send <- payload:
		default:
			h.Logger.Warn("realtime client too slow, disconnecting", "profile_id", c.Actor().ProfileID)
			h.unregister(c)
		}
	}
}

// Allowed reports whether actor may receive env.
func Allowed(actor identity.AuthContext, env Envelope) bool {
	if actor.IsSuspended() {
		return false
	}
	switch env.Type {
	case events.EventTypeNotificationCreated:
		return env.UserID != "" && env.UserID == actor.ProfileID
	case events.EventTypeProfileChanged:
		return env.ProfileID == actor.ProfileID && env.OrganizationID == actor.OrganizationID
	case events.EventTypeRequestChanged, events.EventTypeCommentAdded:
		if env.Request == nil || env.OrganizationID != actor.OrganizationID {
			return false
		}
		return request.CanViewSnapshot(actor, *env.Request)
	}
	return false
}

func (h *Hub) refreshProfile(ctx context.Context, env Envelope) {
	for _, c := range h.snapshot() {
		if c.Actor().ProfileID != env.ProfileID {
			continue
		}
		actor, err := h.lookup.AuthContextFor(ctx, env.ProfileID)
		if err != nil {
			h.Logger.Warn("failed to reload realtime profile, disconnecting", "profile_id", env.ProfileID, "error", err)
			h.unregister(c)
			continue
		}
		if actor.IsSuspended() {
			h.Logger.Info("disconnecting suspended profile", "profile_id", env.ProfileID)
			h.unregister(c)
			continue
		}
		c.setActor(actor)
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	for _, c := range h.snapshot() {
		h.unregister(c)
	}
}

func (h *Hub) snapshot() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		out = append(out, c)
	}
	return out
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	metrics.RealtimeClientConnected()
	h.Logger.Debug("realtime client connected", "profile_id", c.Actor().ProfileID)
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()
	if !ok {
		return
	}
	metrics.RealtimeClientDisconnected()
	c.close()
}

func (c *Client) close() {
	c.once.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		c.hub.unregister(c)
	}()

	for {
		select {
		case <-c.done:
			return
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(c.hub.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump only watches for pongs and the peer closing.
func (c *Client) readPump() {
	defer c.hub.unregister(c)

	wait := 2 * c.hub.cfg.PingInterval
	c.conn.SetReadLimit(maxInboundMessage)
	_ = c.conn.SetReadDeadline(time.Now().Add(wait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
