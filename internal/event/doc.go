// Package event provides the runtime model shared by generated artifacts.
//
// Events are property holders: every value an event carries is exposed as a
// named, typed Property. Generated event objects implement Event, generated
// dispatch adapters implement Listener.
//
// # Capabilities
//
// Two root capabilities are predefined:
//
//	EventType        eventsys.Event          every event type extends it
//	CancellableType  eventsys.Cancellable    adds the "cancelled" property
//
// # Properties
//
// Properties are looked up by name and type. GetterProperty exposes the
// current value; a nil value means the property is absent. SetterProperty
// additionally accepts new values for mutable properties.
//
// # Errors
//
// Generators report failures with the error types declared in errors.go.
// Configuration, installation and lookup errors are fatal and match their
// sentinels with errors.Is. A listener whose required property is missing
// is not an error: the target is simply not called.
package event
