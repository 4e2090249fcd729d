// Package multicast implements an optional, low-latency control channel
// between sibling relay processes of the same simulation run (each relay
// hosts its own *core.Scheduler replica behind its own REST facade; the
// gossip layer in internal/telemetry/gossip reconciles their telemetry
// deltas on a periodic TTL+fanout schedule, which is too slow for an
// operator-issued ignite/suppress/wind command that every replica should
// apply on the same tick). Uses a UDP multicast group join
// (golang.org/x/net/ipv4) to fan core.Command values out to every
// relay that joined the group, instead of a point-to-point protocol.
package multicast

import (
	"encoding/json"
	"fmt"
	"net"

	"golang.org/x/net/ipv4"
)

// DefaultGroup is the multicast group address control messages are sent
// to when the caller does not configure one explicitly.
const DefaultGroup = "239.0.118.1:7400"

// Message is the wire form of a core.Command broadcast between relays.
// It mirrors core.Command's fields directly rather than importing
// internal/core, so this package stays usable without pulling in the
// scheduler (facade packages depend on core, never the reverse).
type Message struct {
	SenderID         string  `json:"sender_id"`
	Kind             string  `json:"kind"`
	CellX            int     `json:"cell_x,omitempty"`
	CellY            int     `json:"cell_y,omitempty"`
	Intensity        float64 `json:"intensity,omitempty"`
	Strength         float64 `json:"strength,omitempty"`
	WindSpeedMS      float64 `json:"wind_speed_ms,omitempty"`
	WindDirectionDeg float64 `json:"wind_direction_deg,omitempty"`
	DroneID          int     `json:"drone_id,omitempty"`
}

// Channel joins a UDP multicast group and exchanges Messages with every
// other relay that joined the same group. It is safe for one goroutine to
// call Listen while another calls Send.
type Channel struct {
	selfID string
	conn   *net.UDPConn
	pc     *ipv4.PacketConn
	group  *net.UDPAddr
}

// Join resolves groupAddr (host:port; an empty groupAddr uses
// DefaultGroup) and joins it on the named interface. An empty ifaceName
// picks the first interface that is up, non-loopback and
// multicast-capable; a named interface that does not exist is an error,
// with no fallback to another interface.
func Join(selfID, groupAddr, ifaceName string) (*Channel, error) {
	if groupAddr == "" {
		groupAddr = DefaultGroup
	}
	group, err := net.ResolveUDPAddr("udp4", groupAddr)
	if err != nil {
		return nil, fmt.Errorf("multicast: resolve group address: %w", err)
	}

	iface, err := resolveInterface(ifaceName)
	if err != nil {
		return nil, fmt.Errorf("multicast: resolve interface: %w", err)
	}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: group.Port})
	if err != nil {
		return nil, fmt.Errorf("multicast: listen: %w", err)
	}

	pc := ipv4.NewPacketConn(conn)
	if err := pc.JoinGroup(iface, group); err != nil {
		conn.Close()
		return nil, fmt.Errorf("multicast: join group: %w", err)
	}
	if err := pc.SetMulticastInterface(iface); err != nil {
		conn.Close()
		return nil, fmt.Errorf("multicast: set multicast interface: %w", err)
	}
	_ = pc.SetMulticastLoopback(true)

	return &Channel{selfID: selfID, conn: conn, pc: pc, group: group}, nil
}

func resolveInterface(name string) (*net.Interface, error) {
	if name != "" {
		return net.InterfaceByName(name)
	}
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	for i := range ifaces {
		iface := ifaces[i]
		if iface.Flags&net.FlagUp != 0 && iface.Flags&net.FlagLoopback == 0 && iface.Flags&net.FlagMulticast != 0 {
			return &iface, nil
		}
	}
	return nil, fmt.Errorf("no usable multicast-capable interface found")
}

// Send encodes msg as JSON and writes it to the joined group, stamping
// SenderID so Listen can ignore a relay's own echoes.
func (c *Channel) Send(msg Message) error {
	msg.SenderID = c.selfID
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("multicast: encode message: %w", err)
	}
	_, err = c.conn.WriteToUDP(data, c.group)
	return err
}

// Listen blocks, decoding inbound Messages and invoking handle for each
// one not originated by this Channel's own selfID. It returns when the
// underlying connection is closed.
func (c *Channel) Listen(handle func(Message)) error {
	buf := make([]byte, 4096)
	for {
		n, _, err := c.conn.ReadFromUDP(buf)
		if err != nil {
			return err
		}
		var msg Message
		if err := json.Unmarshal(buf[:n], &msg); err != nil {
			continue
		}
		if msg.SenderID == c.selfID {
			continue
		}
		handle(msg)
	}
}

// Close leaves the multicast group and releases the socket.
func (c *Channel) Close() error {
	_ = c.pc.LeaveGroup(c.group)
	return c.conn.Close()
}
