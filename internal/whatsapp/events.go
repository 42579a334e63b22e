package whatsapp

// ConnectionEvent is the closed set of transport notifications a session
// reacts to.
type ConnectionEvent interface {
	isConnectionEvent()
}

// PairingEvent carries a scannable pairing code. The transport may emit it
// repeatedly until a connection succeeds.
type PairingEvent struct {
	Code string
}

// OpenEvent signals the transport is connected and logged in.
type OpenEvent struct{}

// ClosedEvent signals the transport closed. LoggedOut distinguishes a
// remote-initiated logout (credentials invalid) from a recoverable drop.
type ClosedEvent struct {
	LoggedOut bool
	Err       error
}

func (PairingEvent) isConnectionEvent() {}
func (OpenEvent) isConnectionEvent()    {}
func (ClosedEvent) isConnectionEvent()  {}
