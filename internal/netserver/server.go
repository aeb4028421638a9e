// Package netserver is the TCP front door to the matching engine: it accepts
// connections, decodes wire.Request frames, and dispatches them onto
// engine.Engine, writing back wire.Report frames. Generalized from the
// teacher's internal/net/server.go, which dispatched into a single
// equities engine interface; this version dispatches into the new
// multi-symbol engine.Engine and reports over the generalized wire package.
package netserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"vellum/internal/common"
	"vellum/internal/engine"
	"vellum/internal/wire"
	"vellum/internal/workerpool"
)

const (
	maxRecvSize        = 4 * 1024
	defaultWorkers     = 10
	defaultConnTimeout = 5 * time.Second
)

var (
	ErrImproperConversion = errors.New("improper type conversion")
	ErrClientDoesNotExist = errors.New("client does not exist")
)

// clientSession tracks one connected client's TCP conn.
type clientSession struct {
	conn net.Conn
}

// clientMessage links a decoded request to the connection it arrived on.
type clientMessage struct {
	clientAddress string
	request       any
}

// Server accepts client connections and drives them against an engine.Engine.
type Server struct {
	address string
	port    int
	engine  *engine.Engine

	pool   workerpool.Pool
	cancel context.CancelFunc

	sessionsMu sync.Mutex
	sessions   map[string]clientSession

	requests chan clientMessage
}

// New constructs a server bound to address:port, dispatching into eng.
func New(address string, port int, eng *engine.Engine) *Server {
	return &Server{
		address:  address,
		port:     port,
		engine:   eng,
		pool:     workerpool.New(defaultWorkers),
		sessions: make(map[string]clientSession),
		requests: make(chan clientMessage, 1),
	}
}

func (s *Server) Shutdown() {
	log.Info().Msg("server shutting down")
	if s.cancel != nil {
		s.cancel()
	}
}

// Run listens and serves until ctx is cancelled or Shutdown is called.
func (s *Server) Run(ctx context.Context) error {
	defer s.Shutdown()

	ctx, s.cancel = context.WithCancel(ctx)
	t, ctx := tomb.WithContext(ctx)

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf("%s:%d", s.address, s.port))
	if err != nil {
		log.Error().Err(err).Msg("unable to start listener")
		return err
	}
	defer func() {
		if err := listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			log.Error().Err(err).Msg("unable to close listener")
		}
	}()
	// Accept does not watch ctx, so close the listener to unblock it.
	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	t.Go(func() error {
		s.pool.Setup(t, s.handleConnection)
		return nil
	})
	t.Go(func() error {
		return s.dispatchLoop(t)
	})

	log.Info().Str("address", listener.Addr().String()).Msg("server running")

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
			conn, err := listener.Accept()
			if err != nil {
				log.Error().Err(err).Msg("error accepting client")
				continue
			}
			log.Info().Str("address", conn.RemoteAddr().String()).Msg("new client connected")
			s.addSession(conn)
			s.pool.AddTask(conn)
		}
	}
}

// dispatchLoop handles decoded requests one at a time, off the worker pool.
func (s *Server) dispatchLoop(t *tomb.Tomb) error {
	for {
		select {
		case <-t.Dying():
			return nil
		case msg := <-s.requests:
			if err := s.handleRequest(msg); err != nil {
				log.Error().Err(err).Str("client", msg.clientAddress).Msg("error handling request")
				s.reportError(msg.clientAddress, err)
			}
		}
	}
}

func (s *Server) handleRequest(msg clientMessage) error {
	switch req := msg.request.(type) {
	case wire.NewOrderRequest:
		order := req.Order()
		trades, err := s.engine.Submit(order)
		if err != nil {
			return err
		}
		for _, tr := range trades {
			s.reportTrade(msg.clientAddress, tr)
		}
		return nil
	case wire.CancelOrderRequest:
		s.engine.CancelOrder(req.Symbol, req.Side, req.Price, req.OrderID)
		return nil
	default:
		return wire.ErrInvalidMessageType
	}
}

func (s *Server) reportTrade(clientAddress string, trade common.Trade) {
	report := wire.Report{
		Type:      wire.ExecutionReport,
		Symbol:    trade.Symbol,
		Side:      trade.AggressorSide,
		Timestamp: trade.Timestamp,
		Quantity:  trade.Quantity,
		Price:     trade.Price,
	}
	s.write(clientAddress, report.Encode())
}

func (s *Server) reportError(clientAddress string, err error) {
	report := wire.Report{
		Type: wire.ErrorReport,
		Err:  err.Error(),
	}
	s.write(clientAddress, report.Encode())
}

func (s *Server) write(clientAddress string, payload []byte) {
	s.sessionsMu.Lock()
	session, ok := s.sessions[clientAddress]
	s.sessionsMu.Unlock()
	if !ok {
		return
	}
	if _, err := session.conn.Write(payload); err != nil {
		log.Error().Err(err).Str("client", clientAddress).Msg("unable to write report")
		s.deleteSession(clientAddress)
	}
}

// handleConnection reads one frame off conn, decodes it, and forwards it to
// dispatchLoop, then resubmits conn to the pool for its next frame. Any
// error returned here kills the server's tomb, per tomb.v2 semantics, so
// connection-level errors are logged and swallowed instead.
func (s *Server) handleConnection(t *tomb.Tomb, task any) error {
	conn, ok := task.(net.Conn)
	if !ok {
		return ErrImproperConversion
	}

	if err := conn.SetDeadline(time.Now().Add(defaultConnTimeout)); err != nil {
		log.Error().Err(err).Str("address", conn.RemoteAddr().String()).Msg("failed setting deadline")
		s.deleteSession(conn.RemoteAddr().String())
		return nil
	}

	buf := make([]byte, maxRecvSize)
	n, err := conn.Read(buf)
	if err != nil {
		log.Error().Err(err).Str("address", conn.RemoteAddr().String()).Msg("error reading from connection")
		s.deleteSession(conn.RemoteAddr().String())
		return nil
	}

	req, err := wire.Decode(buf[:n])
	if err != nil {
		log.Error().Err(err).Str("address", conn.RemoteAddr().String()).Msg("error decoding frame")
		return nil
	}

	s.requests <- clientMessage{
		clientAddress: conn.RemoteAddr().String(),
		request:       req,
	}
	s.pool.AddTask(conn)
	return nil
}

func (s *Server) addSession(conn net.Conn) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	s.sessions[conn.RemoteAddr().String()] = clientSession{conn: conn}
}

func (s *Server) deleteSession(address string) {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()
	delete(s.sessions, address)
}
