// Package events implements the library's lifecycle event hook surface:
// handlers registered by section-and-name, dispatched synchronously in
// registration order. It generalises the teacher's backend.Update
// tagged-interface dispatch (one Go type per update kind, type-switched at
// the consumer) into a name-addressed registry, since this library's
// events carry heterogeneous payloads per call site rather than a closed
// set of connection-level updates.
package events

import "sync"

// Section groups related event names, matching the table in this
// library's external interface documentation.
type Section string

const (
	SectionMessage Section = "message"
	SectionFolder  Section = "folder"
	SectionFlag    Section = "flag"
)

// Message section event names.
const (
	MessageNew      = "new"
	MessageMoved    = "moved"
	MessageCopied   = "copied"
	MessageDeleted  = "deleted"
	MessageRestored = "restored"
)

// Folder section event names.
const (
	FolderNew     = "new"
	FolderMoved   = "moved"
	FolderDeleted = "deleted"
)

// Flag section event names.
const (
	FlagNew     = "new"
	FlagDeleted = "deleted"
)

// Handler receives an event's payload. Its concrete shape depends on the
// section: *MessagePayload, *FolderPayload or *FlagPayload.
type Handler func(payload interface{})

// MessagePayload is delivered for every message section event.
type MessagePayload struct {
	Message interface{} // *message.Message from query, a sequence number or imapkit.UID from client; interface{} to avoid an import cycle
	// Destination is the target folder name for moved/copied events.
	Destination string
}

// FolderPayload is delivered for every folder section event.
type FolderPayload struct {
	Name string
	// OldName is set for moved events.
	OldName string
}

// FlagPayload is delivered for every flag section event.
type FlagPayload struct {
	Message interface{} // a sequence number (uint32) or imapkit.UID
	Flag    string
}

type key struct {
	section Section
	name    string
}

// Dispatcher is a per-client registry of event handlers. It is safe for
// concurrent registration and dispatch, though this library only ever
// dispatches from within an already-serialized command call.
type Dispatcher struct {
	mu       sync.Mutex
	handlers map[key][]Handler
}

// NewDispatcher returns an empty Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[key][]Handler)}
}

// On registers handler for section/name, appended after any existing
// handlers for the same key.
func (d *Dispatcher) On(section Section, name string, handler Handler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	k := key{section, name}
	d.handlers[k] = append(d.handlers[k], handler)
}

// Off removes every handler registered for section/name.
func (d *Dispatcher) Off(section Section, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.handlers, key{section, name})
}

// Emit invokes every handler registered for section/name, in registration
// order. A handler's error does not stop dispatch and does not propagate
// to the command that triggered the event, per this library's design:
// Emit has no return value to surface one.
func (d *Dispatcher) Emit(section Section, name string, payload interface{}) {
	d.mu.Lock()
	handlers := append([]Handler(nil), d.handlers[key{section, name}]...)
	d.mu.Unlock()

	for _, h := range handlers {
		func() {
			defer func() { recover() }()
			h(payload)
		}()
	}
}
