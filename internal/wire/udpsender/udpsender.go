// Package udpsender sends finished MoldUDP64 packets over UDP, either to a
// multicast group or a unicast destination.
// Delivery is fire-and-forget: send failures are logged, never retried.
package udpsender

import (
	"fmt"
	"log"
	"net"

	"golang.org/x/net/ipv4"
)

// DefaultMulticastTTL bounds how far a multicast packet travels.
const DefaultMulticastTTL = 1

// Sender transmits MoldUDP64 packets to one destination.
type Sender struct {
	conn *net.UDPConn
	dst  *net.UDPAddr
	name string
}

// NewUnicast resolves a unicast UDP destination at addr ("host:port") and
// opens an unconnected sending socket for it.
func NewUnicast(addr string) (*Sender, error) {
	dst, err := net.ResolveUDPAddr("udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("udpsender: resolve %s: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: 0})
	if err != nil {
		return nil, fmt.Errorf("udpsender: open socket for %s: %w", addr, err)
	}
	return &Sender{conn: conn, dst: dst, name: addr}, nil
}

// NewMulticast opens a sending socket for a multicast group address
// ("224.x.x.x:port") with TTL (DefaultMulticastTTL if 0) and an outgoing
// interface (nil uses the system default route).
func NewMulticast(groupAddr string, ttl int, iface *net.Interface) (*Sender, error) {
	if ttl <= 0 {
		ttl = DefaultMulticastTTL
	}
	dst, err := net.ResolveUDPAddr("udp4", groupAddr)
	if err != nil {
		return nil, fmt.Errorf("udpsender: resolve group %s: %w", groupAddr, err)
	}

	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: 0})
	if err != nil {
		return nil, fmt.Errorf("udpsender: listen for multicast send: %w", err)
	}

	pconn := ipv4.NewPacketConn(conn)
	if iface != nil {
		if err := pconn.SetMulticastInterface(iface); err != nil {
			conn.Close()
			return nil, fmt.Errorf("udpsender: set multicast interface: %w", err)
		}
	}
	if err := pconn.SetMulticastTTL(ttl); err != nil {
		conn.Close()
		return nil, fmt.Errorf("udpsender: set multicast ttl: %w", err)
	}
	if err := pconn.SetMulticastLoopback(true); err != nil {
		conn.Close()
		return nil, fmt.Errorf("udpsender: set multicast loopback: %w", err)
	}

	return &Sender{conn: conn, dst: dst, name: groupAddr}, nil
}

// Send transmits buf to the configured destination. Failures are logged
// and swallowed, matching the best-effort delivery semantics of the wire
// feed: the producer side has already committed the event to the journal.
func (s *Sender) Send(buf []byte) error {
	if _, err := s.conn.WriteToUDP(buf, s.dst); err != nil {
		log.Printf("udpsender: send to %s failed: %v", s.name, err)
	}
	return nil
}

// Close releases the underlying socket.
func (s *Sender) Close() error {
	return s.conn.Close()
}
