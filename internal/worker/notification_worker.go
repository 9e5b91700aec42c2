package worker

import (
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}

// Forwarder relays dispatched events to an external sink.
type Forwarder interface {
	Register(dispatcher events.Dispatcher)
}

// StartEventForwarder subscribes forwarder to every ticket event.
func StartEventForwarder(dispatcher events.Dispatcher, forwarder Forwarder) {
	if dispatcher == nil || forwarder == nil {
		return
	}
	forwarder.Register(dispatcher)
}
