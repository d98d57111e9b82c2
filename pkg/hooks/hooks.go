// Package hooks notifies external collaborators of sync events.
//
// Collaborators implement the Sink interface and register for the
// events they care about. Dispatch is synchronous and best effort:
// a failing sink is logged and never aborts the update run.
package hooks

import (
	log "github.com/sirupsen/logrus"
)

// EventKind identifies a sync engine milestone.
type EventKind string

const (
	SubscriptionAdded   = EventKind("subscription_added")
	SubscriptionRemoved = EventKind("subscription_removed")
	SubscriptionUpdated = EventKind("subscription_updated")
	EpisodeDownloaded   = EventKind("episode_downloaded")
	UpdatesComplete     = EventKind("updates_complete")
)

// Events lists all known event kinds.
var Events = []EventKind{
	SubscriptionAdded,
	SubscriptionRemoved,
	SubscriptionUpdated,
	EpisodeDownloaded,
	UpdatesComplete,
}

// ValidEvent reports whether name is a known event kind.
func ValidEvent(name string) bool {
	for _, kind := range Events {
		if string(kind) == name {
			return true
		}
	}
	return false
}

// Event is the payload delivered to sinks.
type Event struct {
	Kind EventKind
	// Subscription is the name of the affected subscription.
	// Empty for UpdatesComplete.
	Subscription string
	// ContentDir is the subscription's download directory
	ContentDir string
	// Files holds the produced file paths for EpisodeDownloaded
	Files []string
}

// Sink receives events. Implementations decide whether to hand off
// to another goroutine; Handle is called from the update path.
type Sink interface {
	Handle(event Event) error
}

// Dispatcher fans events out to registered sinks.
type Dispatcher struct {
	sinks map[EventKind][]Sink
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{sinks: make(map[EventKind][]Sink)}
}

// Register subscribes sink to the given event kinds.
func (d *Dispatcher) Register(sink Sink, kinds ...EventKind) {
	for _, kind := range kinds {
		d.sinks[kind] = append(d.sinks[kind], sink)
	}
}

// Emit delivers the event to every sink registered for its kind.
// Sink errors are logged and swallowed.
func (d *Dispatcher) Emit(event Event) {
	for _, sink := range d.sinks[event.Kind] {
		if err := sink.Handle(event); err != nil {
			log.WithError(err).WithFields(log.Fields{
				"event":        event.Kind,
				"subscription": event.Subscription,
			}).Error("hook failed")
		}
	}
}
