package handlers

import (
	"littletoes/internal/session"
	"littletoes/internal/stream"
)

// feedSink forwards controller events onto a session's stream feed. It
// never calls back into the controller; clients that want the full
// snapshot refetch it after a state event.
type feedSink struct {
	feed *stream.Feed
}

func (s feedSink) StateChanged(state session.State) {
	s.feed.Publish(stream.Event{
		Type: stream.EventState,
		Data: map[string]string{"state": string(state)},
	})
}

func (s feedSink) WorkingMessage(msg string) {
	s.feed.Publish(stream.Event{
		Type: stream.EventWorking,
		Data: map[string]string{"message": msg},
	})
}
