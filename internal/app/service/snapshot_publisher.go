package service

import (
	"github.com/beanline/storefront/internal/cart"
	"github.com/beanline/storefront/internal/session"
	"github.com/beanline/storefront/internal/websocket"
	"github.com/beanline/storefront/pkg/logger"
	"github.com/beanline/storefront/pkg/money"
)

// HubPublisher forwards cart snapshots to the session's websockets.
type HubPublisher struct {
	hub       *websocket.Hub
	formatter *money.Formatter
}

var _ session.Presence = (*HubPublisher)(nil)

func NewHubPublisher(hub *websocket.Hub, formatter *money.Formatter) *HubPublisher {
	return &HubPublisher{hub: hub, formatter: formatter}
}

func (p *HubPublisher) PublishSnapshot(sessionID string, snap cart.Snapshot) {
	if !p.hub.IsSessionOnline(sessionID) {
		return
	}
	event := CartEvent{Type: "cart", Cart: NewCartView(snap, p.formatter)}
	if err := p.hub.SendToSession(sessionID, event); err != nil {
		logger.Warn("Failed to publish cart snapshot", map[string]interface{}{
			"session_id": sessionID,
			"error":      err.Error(),
		})
	}
}

// IsSessionOnline reports whether the session has an open socket.
func (p *HubPublisher) IsSessionOnline(sessionID string) bool {
	return p.hub.IsSessionOnline(sessionID)
}

func (p *HubPublisher) SessionClosed(sessionID string) {
	p.hub.DropSession(sessionID)
}
