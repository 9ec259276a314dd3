package httpapi

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mkowalski/repochecker/internal/snapshot"
)

// schedulerEventSink mirrors internal/scheduler.EventSink's shape without
// importing that package, confirming *Hub satisfies it structurally.
type schedulerEventSink interface {
	Notify(key string)
}

func TestServer_HubSatisfiesEventSinkShape(t *testing.T) {
	srv := New(snapshot.New(), nil)

	var sink schedulerEventSink = srv.Hub()
	assert.NotNil(t, sink)
}
