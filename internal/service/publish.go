package service

import (
	"shareit/internal/domain"

	"github.com/rs/zerolog"
)

// publish emits one domain event after a committed mutation. Failures are
// logged with the entity id under idField and never reach the caller.
func publish(bus domain.EventPublisher, logger *zerolog.Logger, eventType, idField string, id int64, payload any) {
	if bus == nil {
		return
	}
	if err := bus.PublishJSON(eventType, payload); err != nil {
		logger.Error().Err(err).Str("event_type", eventType).Int64(idField, id).Msg("publish event error")
	}
}
