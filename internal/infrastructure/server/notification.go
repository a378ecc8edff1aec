package server

import (
	"context"
	"fmt"
	"sync"

	"github.com/FreePeak/golang-widget-sdk/internal/domain/shared"
)

// NotificationChannel is a channel for sending notifications to one session.
type NotificationChannel chan shared.JSONRPCNotification

// notifSession is one registered recipient of server-initiated
// notifications.
type notifSession struct {
	id        string
	userAgent string
	notifChan NotificationChannel
}

// NotificationSender delivers server-initiated JSON-RPC notifications to
// connected sessions.
type NotificationSender struct {
	sessions sync.Map
}

// NewNotificationSender creates a new NotificationSender.
func NewNotificationSender() *NotificationSender {
	return &NotificationSender{}
}

// RegisterSession registers a session's notification channel.
func (n *NotificationSender) RegisterSession(id, userAgent string, ch NotificationChannel) {
	n.sessions.Store(id, &notifSession{id: id, userAgent: userAgent, notifChan: ch})
}

// UnregisterSession removes a session and closes its channel.
func (n *NotificationSender) UnregisterSession(id string) {
	if value, ok := n.sessions.LoadAndDelete(id); ok {
		close(value.(*notifSession).notifChan)
	}
}

// Send delivers a notification to a specific session.
func (n *NotificationSender) Send(ctx context.Context, sessionID, method string, params map[string]interface{}) error {
	value, ok := n.sessions.Load(sessionID)
	if !ok {
		return fmt.Errorf("session %s not found", sessionID)
	}
	session := value.(*notifSession)

	notification := shared.JSONRPCNotification{
		JSONRPC: shared.JSONRPCVersion,
		Method:  method,
		Params:  params,
	}

	select {
	case session.notifChan <- notification:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("notification channel for session %s is full or closed", sessionID)
	}
}

// Broadcast delivers a notification to all connected sessions. Sessions
// with full channels are skipped; a slow consumer must not block the rest.
func (n *NotificationSender) Broadcast(ctx context.Context, method string, params map[string]interface{}) {
	notification := shared.JSONRPCNotification{
		JSONRPC: shared.JSONRPCVersion,
		Method:  method,
		Params:  params,
	}

	n.sessions.Range(func(_, value interface{}) bool {
		session := value.(*notifSession)
		select {
		case session.notifChan <- notification:
		case <-ctx.Done():
			return false
		default:
		}
		return true
	})
}
