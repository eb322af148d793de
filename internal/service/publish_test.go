package service

import (
	"bytes"
	"errors"
	"testing"

	"shareit/internal/events"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestPublish(t *testing.T) {
	t.Run("NilBus", func(t *testing.T) {
		assert.NotPanics(t, func() {
			publish(nil, newLogger(), events.EventUserCreated, "user_id", 1, events.UserEventPayload{UserID: 1})
		})
	})

	t.Run("Delivers", func(t *testing.T) {
		bus := newBus()
		payload := events.RequestEventPayload{RequestID: 3, RequesterID: 4}
		publish(bus, newLogger(), events.EventRequestCreated, "request_id", 3, payload)
		bus.AssertCalled(t, "PublishJSON", events.EventRequestCreated, payload)
	})

	t.Run("FailureIsLogged", func(t *testing.T) {
		var buf bytes.Buffer
		logger := zerolog.New(&buf)
		bus := new(mockEventBus)
		bus.On("PublishJSON", mock.Anything, mock.Anything).Return(errors.New("bus down"))

		publish(bus, &logger, events.EventCommentCreated, "comment_id", 7, events.CommentEventPayload{CommentID: 7})

		out := buf.String()
		assert.Contains(t, out, `"message":"publish event error"`)
		assert.Contains(t, out, `"event_type":"comment_created"`)
		assert.Contains(t, out, `"comment_id":7`)
		assert.Contains(t, out, `"error":"bus down"`)
	})
}
