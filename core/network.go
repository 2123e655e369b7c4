package core

import (
	"errors"

	"sensenode/protocol"
)

var (
	ErrNetworkUnavailable = errors.New("network context unavailable")
	ErrSendRejected       = errors.New("send rejected")
)

// Role is the node's position in the tree network.
type Role uint8

const (
	RoleEndDevice Role = iota
)

// TreeParams configures the tree network layer.
type TreeParams struct {
	AppID   uint32
	Channel uint8
	// Layer is the router layer this node attaches below; 0 lets the
	// network pick.
	Layer uint8
}

// Destination selects who a report is addressed to.
type Destination uint8

const (
	// DestParent sends straight to the root; routers relay transparently.
	DestParent Destination = iota
	// DestNeighbourAbove hands the report to the next router up, which
	// receives it in its application and re-sends it.
	DestNeighbourAbove
)

// Addr returns the network layer address for d.
func (d Destination) Addr() uint32 {
	if d == DestNeighbourAbove {
		return protocol.AddrNeighbourAbove
	}
	return protocol.AddrParent
}

func (d Destination) String() string {
	if d == DestNeighbourAbove {
		return "neighbour_above"
	}
	return "parent"
}

// NetworkContext is the handle returned by Configure. Opaque to the core.
type NetworkContext interface{}

// TxRequest is one outbound packet.
type TxRequest struct {
	Src        uint32
	Dst        Destination
	Payload    []byte
	CallbackID uint8 // echoed in TransmitComplete, not sent
	Sequence   uint8 // sent to the receiver
	Secure     bool
}

// NetworkGateway is the radio network stack as the application sees it.
// Transmit completion comes back as TransmitComplete through Machine.Handle.
type NetworkGateway interface {
	Configure(role Role, tree TreeParams) (NetworkContext, error)
	Init(ctx NetworkContext) error
	Start(ctx NetworkContext) error
	Pause(ctx NetworkContext) error
	Resume(ctx NetworkContext) error
	// Send queues req. An error means nothing will go on the air and no
	// completion will follow.
	Send(ctx NetworkContext, req TxRequest) error
	RegisterKey(key uint32) error
	// Address is this node's own serial address.
	Address() uint32
}

// RCCalibrator is implemented by radios whose sleep timer runs off an RC
// oscillator that needs trimming after each wake.
type RCCalibrator interface {
	CalibrateRC(stored uint16) uint16
}
