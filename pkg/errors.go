package pkg

import "errors"

var (
	// ErrShortMessage is returned when a datagram does not contain exactly one wire message
	ErrShortMessage = errors.New("datagram is not a complete message")

	// ErrUnknownMessageType is returned when a message carries an unrecognized tag
	ErrUnknownMessageType = errors.New("unknown message type")

	// ErrNoSuccessor is returned when an operation needs a successor and none is known
	ErrNoSuccessor = errors.New("no successor known")

	// ErrTransportClosed is returned when a send is attempted on a closed transport
	ErrTransportClosed = errors.New("transport closed")
)
