// Package domain defines the core entities and error types shared by the
// provider adapters and transports.
package domain

import (
	"strings"

	"github.com/google/uuid"
)

// ClientSession represents an active client connection to a provider server.
type ClientSession struct {
	ID        string
	UserAgent string
	Connected bool
}

// NewClientSession creates a new ClientSession with a unique ID.
func NewClientSession(userAgent string) *ClientSession {
	return &ClientSession{
		ID:        uuid.New().String(),
		UserAgent: userAgent,
		Connected: true,
	}
}

// ServerStatus is the lifecycle status of one live transport listener.
type ServerStatus string

// Server statuses. Transitions are monotonic except error, which cleanup
// moves to stopped.
const (
	ServerStatusStarting ServerStatus = "starting"
	ServerStatusRunning  ServerStatus = "running"
	ServerStatusStopping ServerStatus = "stopping"
	ServerStatusStopped  ServerStatus = "stopped"
	ServerStatusError    ServerStatus = "error"
)

// ServerInfo describes one live provider server instance.
type ServerInfo struct {
	Provider  string
	Transport string
	Status    ServerStatus
	Host      string
	Port      int
	Err       error
}

// Widget resource URI convention: every bundled component is addressable
// as ui://widget/<type>.html. The MIME type is distinct from plain HTML to
// signal that the document must be sandboxed by the host.
const (
	WidgetURIPrefix = "ui://widget/"
	WidgetURISuffix = ".html"
	WidgetMIMEType  = "text/html+skybridge"
)

// WidgetURI returns the deterministic resource URI for a component type.
func WidgetURI(componentType string) string {
	return WidgetURIPrefix + componentType + WidgetURISuffix
}

// TypeFromWidgetURI parses the component type out of a widget resource URI.
// It reports false for URIs that do not follow the widget convention.
func TypeFromWidgetURI(uri string) (string, bool) {
	if !strings.HasPrefix(uri, WidgetURIPrefix) || !strings.HasSuffix(uri, WidgetURISuffix) {
		return "", false
	}
	componentType := uri[len(WidgetURIPrefix) : len(uri)-len(WidgetURISuffix)]
	if componentType == "" || strings.ContainsAny(componentType, "/\\") {
		return "", false
	}
	return componentType, true
}
