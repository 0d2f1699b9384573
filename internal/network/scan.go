package network

import (
	"context"
	"errors"
	"fmt"
	"net"
	"slices"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
)

// scanPorts are tried in order; a refused connect also proves the host
// is up.
var scanPorts = []string{"80", "443", "22", "53"}

type dialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

type lookupFunc func(ctx context.Context, addr string) ([]string, error)

// Scanner looks for neighbours among the first hosts of the local /24.
type Scanner struct {
	hosts   int
	timeout time.Duration
	dial    dialFunc
	lookup  lookupFunc
}

func NewScanner(hosts int, timeout time.Duration) *Scanner {
	d := &net.Dialer{}
	return &Scanner{
		hosts:   hosts,
		timeout: timeout,
		dial:    d.DialContext,
		lookup:  net.DefaultResolver.LookupAddr,
	}
}

// Scan returns self followed by the hosts .1 to .N of self's subnet that
// answer. The gateway at .1 is always listed.
func (s *Scanner) Scan(ctx context.Context, self Device) []Device {
	devices := []Device{self}

	ip := net.ParseIP(self.IPAddress).To4()
	if s.hosts <= 0 || ip == nil || ip.IsLoopback() {
		return devices
	}

	found := make([]*Device, s.hosts)
	var g errgroup.Group
	for i := range s.hosts {
		addr := net.IPv4(ip[0], ip[1], ip[2], byte(i+1)).String()
		if addr == self.IPAddress {
			continue
		}
		g.Go(func() error {
			if s.alive(ctx, addr) {
				found[i] = &Device{
					ID:         fmt.Sprintf("device-%d", i+1),
					Name:       s.name(ctx, addr),
					Status:     "Active",
					IPAddress:  addr,
					MACAddress: "Unknown",
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, d := range found {
		if d != nil {
			devices = append(devices, *d)
		}
	}

	gateway := net.IPv4(ip[0], ip[1], ip[2], 1).String()
	if !slices.ContainsFunc(devices, func(d Device) bool { return d.IPAddress == gateway }) {
		devices = append(devices, Device{
			ID:         "router",
			Name:       "Router",
			Status:     "Active",
			IPAddress:  gateway,
			MACAddress: "Unknown",
		})
	}
	return devices
}

func (s *Scanner) alive(ctx context.Context, addr string) bool {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	for _, port := range scanPorts {
		conn, err := s.dial(ctx, "tcp", net.JoinHostPort(addr, port))
		if err == nil {
			conn.Close()
			return true
		}
		if errors.Is(err, syscall.ECONNREFUSED) {
			return true
		}
		if ctx.Err() != nil {
			return false
		}
	}
	return false
}

func (s *Scanner) name(ctx context.Context, addr string) string {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	names, err := s.lookup(ctx, addr)
	if err != nil || len(names) == 0 {
		return "Unknown Device"
	}
	return strings.TrimSuffix(names[0], ".")
}
