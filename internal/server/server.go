// Package server implements the wolhook listener.
//
// The server:
//  1. Binds every configured UDP port (0, 7 and 9 by default). If any port
//     fails to bind, startup fails and nothing is left listening.
//  2. Runs one receive loop per port; all loops share one context and stop
//     together when it is cancelled.
//  3. Parses each datagram inline as a magic packet.
//  4. Runs the configured command for every packet addressed to the target
//     MAC. Executions are independent and may overlap.
//
// Malformed packets and packets for other addresses are logged and counted,
// never propagated: one bad datagram must not affect the others.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/merlos/wolhook/internal/hook"
	"github.com/merlos/wolhook/internal/metrics"
	"github.com/merlos/wolhook/internal/sockopt"
	"github.com/merlos/wolhook/pkg/protocol"
)

// maxDatagramSize is large enough that no UDP payload is truncated, so
// LengthError always reports the real size.
const maxDatagramSize = 64 * 1024

// Options holds server startup configuration.
type Options struct {
	// Address is the local IP to bind, e.g. "0.0.0.0".
	Address string

	// Ports are the UDP ports to listen on. Port 0 binds an ephemeral port.
	Ports []uint16

	// ReadBuffer is the requested socket receive buffer size. Zero keeps the
	// system default.
	ReadBuffer int

	// Target is the MAC address that triggers Command.
	Target protocol.MAC

	// Command is the program and arguments to run.
	Command []string

	// Runner executes Command. Defaults to &hook.ExecRunner{}.
	Runner hook.Runner

	// Debounce, when positive, suppresses triggers from a remote IP that
	// already triggered within the window.
	Debounce time.Duration

	// Metrics receives packet and command counters. Defaults to metrics.New().
	Metrics *metrics.Metrics

	// Log is the structured logger.
	Log *slog.Logger
}

// Server is a wolhook listener instance.
type Server struct {
	opts      *Options
	debounce  *debouncer
	listeners []*portListener
	inflight  sync.WaitGroup
}

type portListener struct {
	port  uint16
	label string
	conn  net.PacketConn
	log   *slog.Logger
}

// New creates a Server with the given options.
func New(opts *Options) (*Server, error) {
	if len(opts.Command) == 0 {
		return nil, hook.ErrEmptyCommand
	}
	if opts.Runner == nil {
		opts.Runner = &hook.ExecRunner{}
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.New()
	}
	if opts.Log == nil {
		opts.Log = slog.Default()
	}

	s := &Server{opts: opts}
	if opts.Debounce > 0 {
		d, err := newDebouncer(opts.Debounce)
		if err != nil {
			return nil, err
		}
		s.debounce = d
	}
	return s, nil
}

// Run binds all ports and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if err := s.Bind(ctx); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Bind opens a socket for every configured port. If any port fails, the
// sockets already opened are closed and a *protocol.BindError is returned.
func (s *Server) Bind(ctx context.Context) error {
	warnUnprivileged(s.opts.Log, s.opts.Ports)

	lc := net.ListenConfig{Control: sockopt.Broadcast}
	for _, port := range s.opts.Ports {
		addr := net.JoinHostPort(s.opts.Address, strconv.Itoa(int(port)))
		conn, err := lc.ListenPacket(ctx, "udp", addr)
		if err != nil {
			s.closeAll()
			return &protocol.BindError{Port: port, Err: err}
		}

		l := &portListener{
			port:  port,
			label: strconv.Itoa(int(port)),
			conn:  conn,
			log:   s.opts.Log.With("port", port),
		}
		if uc, ok := conn.(*net.UDPConn); ok && s.opts.ReadBuffer > 0 {
			if err := uc.SetReadBuffer(s.opts.ReadBuffer); err != nil {
				l.log.Warn("failed to set read buffer size", "err", err)
			}
		}
		s.listeners = append(s.listeners, l)
		l.log.Info("listening for wake-on-LAN packets", "local_addr", conn.LocalAddr().String())
	}
	return nil
}

// Addrs returns the local addresses of the bound sockets, in port order.
func (s *Server) Addrs() []net.Addr {
	addrs := make([]net.Addr, len(s.listeners))
	for i, l := range s.listeners {
		addrs[i] = l.conn.LocalAddr()
	}
	return addrs
}

// Serve runs one receive loop per bound socket until ctx is cancelled, then
// closes the sockets and waits for running commands to finish.
func (s *Server) Serve(ctx context.Context) error {
	if len(s.listeners) == 0 {
		return errors.New("server has no bound ports")
	}

	s.opts.Log.Info("waiting for wake-on-LAN packets",
		"target_mac", s.opts.Target,
		"command", s.opts.Command,
		"ports", len(s.listeners),
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, l := range s.listeners {
		g.Go(func() error { return s.receive(gctx, l) })
	}
	g.Go(func() error {
		<-gctx.Done()
		s.closeAll()
		return nil
	})

	err := g.Wait()
	s.inflight.Wait()
	return err
}

// receive is the main loop for one socket.
func (s *Server) receive(ctx context.Context, l *portListener) error {
	buf := make([]byte, maxDatagramSize)
	for {
		n, src, err := l.conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			ioErr := &protocol.IOError{Op: fmt.Sprintf("read udp %s", l.conn.LocalAddr()), Err: err}
			if errors.Is(err, net.ErrClosed) {
				return ioErr
			}
			l.log.Warn("UDP read error", "err", ioErr)
			s.opts.Metrics.ReadErrors.WithLabelValues(l.label).Inc()
			continue
		}
		s.handlePacket(ctx, l, buf[:n], src)
	}
}

// handlePacket processes a single received datagram. The buffer is only
// read synchronously; it is reused by the next ReadFrom.
func (s *Server) handlePacket(ctx context.Context, l *portListener, raw []byte, src net.Addr) {
	log := l.log.With("remote", src.String())

	mac, err := protocol.ParseMagicPacket(raw)
	if err != nil {
		result := metrics.ResultInvalid
		if errors.Is(err, protocol.ErrInvalidPacketSize) {
			result = metrics.ResultWrongSize
		}
		s.opts.Metrics.Packets.WithLabelValues(l.label, result).Inc()
		log.Info("received invalid wake-on-LAN packet", "err", err)
		return
	}

	if mac != s.opts.Target {
		s.opts.Metrics.Packets.WithLabelValues(l.label, metrics.ResultOtherMAC).Inc()
		log.Info("received wake-on-LAN packet for different MAC address",
			"desired_mac", s.opts.Target,
			"received_mac", mac,
		)
		return
	}

	if s.debounce != nil && !s.debounce.allow(remoteKey(src), time.Now()) {
		s.opts.Metrics.Packets.WithLabelValues(l.label, metrics.ResultDebounced).Inc()
		log.Info("suppressing repeated wake-on-LAN packet", "mac", mac, "window", s.opts.Debounce)
		return
	}

	s.opts.Metrics.Packets.WithLabelValues(l.label, metrics.ResultMatched).Inc()
	log.Info("received wake-on-LAN packet", "mac", mac)
	s.trigger(ctx, log)
}

// trigger starts the command in the background. The command's context is
// detached from ctx so shutdown lets it finish; Serve waits for it.
func (s *Server) trigger(ctx context.Context, log *slog.Logger) {
	log = log.With("event_id", uuid.NewString(), "command", s.opts.Command)
	runCtx := context.WithoutCancel(ctx)

	s.inflight.Add(1)
	s.opts.Metrics.InFlight.Inc()
	go func() {
		defer s.inflight.Done()
		defer s.opts.Metrics.InFlight.Dec()

		res, err := s.opts.Runner.Run(runCtx, s.opts.Command)
		outcome := hook.Report(log, res, err)
		s.opts.Metrics.Commands.WithLabelValues(outcome.String()).Inc()
	}()
}

func (s *Server) closeAll() {
	for _, l := range s.listeners {
		if err := l.conn.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			l.log.Warn("closing UDP socket", "err", err)
		}
	}
}

// warnUnprivileged logs once when a port below 1024 is requested without
// root. Binding may still succeed with CAP_NET_BIND_SERVICE.
func warnUnprivileged(log *slog.Logger, ports []uint16) {
	if sockopt.CanBindPrivileged() {
		return
	}
	for _, p := range ports {
		if p != 0 && p < 1024 {
			log.Warn("not running as root; binding privileged ports may fail", "port", p)
			return
		}
	}
}

// remoteKey returns the source IP of addr, used as the debounce key.
func remoteKey(addr net.Addr) string {
	if a, ok := addr.(*net.UDPAddr); ok {
		return a.IP.String()
	}
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}
