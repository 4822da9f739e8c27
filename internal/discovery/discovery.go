// Package discovery keeps a liveness-pruned table of reachable peers on
// the local broadcast domain. Each instance periodically announces
// itself as a JSON datagram on a fixed UDP port and records every
// announcement it hears. Entries older than the liveness window are
// evicted lazily when the table is read.
package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sort"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

const (
	DefaultPort = 5050

	defaultInterval = 2 * time.Second
	defaultWindow   = 10 * time.Second
	maxDatagram     = 1024
)

type Peer struct {
	Addr     string    `json:"addr"`
	Name     string    `json:"username"`
	LastSeen time.Time `json:"last_seen"`
}

// announcement is the discovery wire format:
// {"type":"discovery","username":...}.
type announcement struct {
	Type string `json:"type"`
	Name string `json:"username"`
}

type Directory struct {
	port     int
	interval time.Duration
	window   time.Duration
	logger   *zap.Logger

	mu           sync.Mutex
	peers        map[string]Peer
	listening    bool
	broadcasting bool
	name         string

	ctx    context.Context
	cancel context.CancelFunc
	group  *errgroup.Group

	listenConn net.PacketConn
}

type Option func(*Directory)

func WithPort(port int) Option {
	return func(d *Directory) { d.port = port }
}

func WithInterval(interval time.Duration) Option {
	return func(d *Directory) { d.interval = interval }
}

func WithWindow(window time.Duration) Option {
	return func(d *Directory) { d.window = window }
}

func New(logger *zap.Logger, opts ...Option) *Directory {
	d := &Directory{
		port:     DefaultPort,
		interval: defaultInterval,
		window:   defaultWindow,
		logger:   logger,
		peers:    make(map[string]Peer),
	}
	for _, opt := range opts {
		opt(d)
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.ctx = ctx
	d.cancel = cancel
	d.group, _ = errgroup.WithContext(ctx)
	return d
}

// StartListening begins the receive loop. Idempotent; a malformed
// datagram never terminates the loop.
func (d *Directory) StartListening() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.listening {
		return nil
	}

	// SO_REUSEPORT lets several instances on one machine share the
	// discovery port.
	lc := net.ListenConfig{Control: setSockopt(unix.SO_REUSEPORT)}
	conn, err := lc.ListenPacket(d.ctx, "udp4", fmt.Sprintf(":%d", d.port))
	if err != nil {
		return fmt.Errorf("discovery listen: %w", err)
	}
	d.listenConn = conn
	d.listening = true
	d.logger.Info("discovery listening", zap.String("addr", conn.LocalAddr().String()))

	d.group.Go(func() error {
		d.listenLoop(conn)
		return nil
	})
	return nil
}

func (d *Directory) listenLoop(conn net.PacketConn) {
	buf := make([]byte, maxDatagram)
	for {
		n, from, err := conn.ReadFrom(buf)
		if err != nil {
			if d.ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			d.logger.Warn("discovery read failed", zap.Error(err))
			continue
		}

		var msg announcement
		if json.Unmarshal(buf[:n], &msg) != nil || msg.Type != "discovery" || msg.Name == "" {
			continue
		}

		host, _, err := net.SplitHostPort(from.String())
		if err != nil {
			continue
		}
		d.mu.Lock()
		d.peers[host] = Peer{Addr: host, Name: msg.Name, LastSeen: time.Now()}
		d.mu.Unlock()
	}
}

// StartBroadcasting begins announcing name on the broadcast address at
// a fixed interval. Idempotent; a failed send is logged and the loop
// carries on.
func (d *Directory) StartBroadcasting(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.name = name
	if d.broadcasting {
		return nil
	}

	lc := net.ListenConfig{Control: setSockopt(unix.SO_BROADCAST)}
	conn, err := lc.ListenPacket(d.ctx, "udp4", ":0")
	if err != nil {
		return fmt.Errorf("discovery broadcast: %w", err)
	}
	d.broadcasting = true
	d.logger.Info("discovery broadcasting", zap.String("username", name))

	d.group.Go(func() error {
		defer conn.Close()
		d.broadcastLoop(conn)
		return nil
	})
	return nil
}

func (d *Directory) broadcastLoop(conn net.PacketConn) {
	dest := &net.UDPAddr{IP: net.IPv4bcast, Port: d.port}
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		d.mu.Lock()
		payload, _ := json.Marshal(announcement{Type: "discovery", Name: d.name})
		d.mu.Unlock()

		if _, err := conn.WriteTo(payload, dest); err != nil {
			d.logger.Warn("discovery broadcast failed", zap.Error(err))
		}

		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// setSockopt builds a ListenConfig control hook enabling one boolean
// socket option before bind.
func setSockopt(opt int) func(network, address string, c syscall.RawConn) error {
	return func(_, _ string, c syscall.RawConn) error {
		var sockErr error
		if err := c.Control(func(fd uintptr) {
			sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, opt, 1)
		}); err != nil {
			return err
		}
		return sockErr
	}
}

// Peers returns every peer seen within the liveness window and evicts
// the rest. Filtering out the caller's own entry is the caller's job.
func (d *Directory) Peers() []Peer {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	active := make([]Peer, 0, len(d.peers))
	for addr, p := range d.peers {
		if now.Sub(p.LastSeen) < d.window {
			active = append(active, p)
		} else {
			delete(d.peers, addr)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].Addr < active[j].Addr })
	return active
}

// LocalAddr reports the listener's bound address, or nil before
// StartListening.
func (d *Directory) LocalAddr() net.Addr {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.listenConn == nil {
		return nil
	}
	return d.listenConn.LocalAddr()
}

// Stop tears down both loops and waits for them to exit, so tests can
// start and stop a Directory without leaking goroutines or sockets.
func (d *Directory) Stop() error {
	d.cancel()
	d.mu.Lock()
	if d.listenConn != nil {
		d.listenConn.Close()
	}
	d.mu.Unlock()
	return d.group.Wait()
}
