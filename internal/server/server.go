// Package server accepts TCP connections, frames line-delimited JSON
// messages per connection, and dispatches them to the coordinator.
// Per-connection errors never reach the accept loop or other
// connections.
package server

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/textordeath/server/internal/codec"
	"github.com/textordeath/server/internal/game"
	"github.com/textordeath/server/internal/httpapi"
	"github.com/textordeath/server/internal/player"
	"github.com/textordeath/server/internal/registry"
)

// Lines longer than this are a protocol violation.
const maxLineBytes = 64 << 10

type Server struct {
	addr      string
	adminAddr string
	reg       *registry.Registry
	coord     *game.Coordinator
	log       *zap.Logger
}

func New(addr, adminAddr string, reg *registry.Registry, coord *game.Coordinator, log *zap.Logger) *Server {
	return &Server{
		addr:      addr,
		adminAddr: adminAddr,
		reg:       reg,
		coord:     coord,
		log:       log,
	}
}

// Run listens on the game and admin ports until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.addr, err)
	}

	admin := &http.Server{
		Addr:    s.adminAddr,
		Handler: httpapi.SetupRoutes(s.coord),
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.log.Info("listening", zap.String("addr", s.addr))
		return s.acceptLoop(ctx, ln)
	})

	g.Go(func() error {
		s.log.Info("admin api listening", zap.String("addr", s.adminAddr))
		if err := admin.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		_ = ln.Close()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = admin.Shutdown(shutCtx)
		return nil
	})

	return g.Wait()
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	for {
		c, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.log.Warn("accept failed", zap.Error(err))
			continue
		}
		s.log.Info("new connection", zap.String("remote", c.RemoteAddr().String()))
		go s.handle(ctx, newConn(c))
	}
}

// handle runs one connection's receive loop. The connection is
// unauthenticated until a join succeeds; before that only player_join
// is accepted and anything else drops the connection.
func (s *Server) handle(ctx context.Context, cn *conn) {
	id := uuid.NewString()
	var joined *player.Player

	defer func() {
		_ = cn.Close()
		if joined == nil {
			return
		}
		if _, ok := s.reg.Remove(id); ok {
			s.log.Info("player disconnected",
				zap.String("player", joined.Name),
				zap.String("id", id))
			s.coord.PlayerLeft(joined)
		}
	}()

	sc := bufio.NewScanner(cn.c)
	sc.Buffer(make([]byte, 0, 4096), maxLineBytes)

	for sc.Scan() {
		if ctx.Err() != nil {
			return
		}
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}

		msg, err := codec.Decode(line)
		if err != nil {
			s.log.Warn("dropping connection: bad message",
				zap.String("id", id),
				zap.Error(err))
			return
		}

		if joined == nil {
			if msg.Type != codec.KindPlayerJoin {
				s.log.Warn("dropping connection: message before join",
					zap.String("id", id),
					zap.String("kind", string(msg.Type)))
				return
			}
			p, err := s.handleJoin(ctx, id, cn, msg)
			if err != nil {
				s.log.Warn("dropping connection: bad join payload",
					zap.String("id", id),
					zap.Error(err))
				return
			}
			joined = p
			continue
		}

		switch msg.Type {
		case codec.KindPlayerResponse:
			var resp codec.ResponseData
			if err := msg.DecodeData(&resp); err != nil {
				s.log.Warn("dropping connection: bad response payload",
					zap.String("id", id),
					zap.Error(err))
				return
			}
			s.coord.HandleResponse(id, resp.Text, resp.Complete)

		case codec.KindHeartbeat:
			// keepalive, nothing to do

		default:
			s.log.Warn("dropping connection: unexpected kind",
				zap.String("id", id),
				zap.String("kind", string(msg.Type)))
			return
		}
	}

	if err := sc.Err(); err != nil {
		s.log.Info("connection read error", zap.String("id", id), zap.Error(err))
	}
}

// handleJoin registers the player and replies on the same connection.
// A full server sends an explicit rejection and leaves the connection
// open so the client may retry once a slot frees up; a join payload
// that fails to decode is a protocol error and drops the connection.
func (s *Server) handleJoin(ctx context.Context, id string, cn *conn, msg codec.Message) (*player.Player, error) {
	req := codec.JoinRequest{Name: "Anonymous"}
	if len(msg.Data) > 0 {
		if err := msg.DecodeData(&req); err != nil {
			return nil, err
		}
	}
	if req.Name == "" {
		req.Name = "Anonymous"
	}

	p := player.NewHuman(id, req.Name, cn)
	if err := s.reg.Add(p); err != nil {
		s.log.Info("join rejected",
			zap.String("name", req.Name),
			zap.Error(err))
		s.reply(cn, codec.JoinReply{Success: false, Reason: "server full"})
		return nil, nil
	}

	s.reply(cn, codec.JoinReply{Success: true, PlayerID: id})
	s.log.Info("player joined",
		zap.String("name", req.Name),
		zap.String("id", id),
		zap.Int("total", s.reg.Len()))

	s.coord.PlayerJoined(ctx, p)
	return p, nil
}

func (s *Server) reply(cn *conn, r codec.JoinReply) {
	msg, err := codec.New(codec.KindPlayerJoin, r)
	if err != nil {
		return
	}
	line, err := codec.Encode(msg)
	if err != nil {
		return
	}
	if err := cn.Send(line); err != nil {
		s.log.Warn("join reply failed", zap.Error(err))
	}
}
