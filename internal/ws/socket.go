// Package ws streams live auction state to connected browser views over
// Socket.IO: a per-second countdown frame plus a full state frame whenever
// the server-declared status changes.
package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	socketio "github.com/googollee/go-socket.io"
	"github.com/rs/zerolog"

	"github.com/ankuaru/bidconsole/internal/auction"
	"github.com/ankuaru/bidconsole/internal/bidder"
	"github.com/ankuaru/bidconsole/internal/gateway"
)

type ConnCtx struct {
	ID       string
	Watching string // auction id, "" when idle
}

type Server struct {
	gw   *gateway.Client
	bd   *bidder.Bidder
	log  zerolog.Logger
	poll time.Duration
	io   *socketio.Server

	mu      sync.Mutex
	watches map[string]*watch // auctionID -> active watch
}

// watch is one live auction room: a countdown clock plus a status poller
// shared by every connection watching that auction.
type watch struct {
	auction  *auction.Auction
	clock    *auction.Clock
	refs     int
	stopPoll chan struct{}
}

func New(gw *gateway.Client, bd *bidder.Bidder, poll time.Duration, log zerolog.Logger) *Server {
	return &Server{
		gw:      gw,
		bd:      bd,
		log:     log,
		poll:    poll,
		watches: make(map[string]*watch),
	}
}

// Mount attaches the Socket.IO server with handlers to the given Gin engine.
func (srv *Server) Mount(r *gin.Engine) *socketio.Server {
	io := socketio.NewServer(nil)
	srv.io = io

	io.OnConnect("/", func(s socketio.Conn) error {
		s.SetContext(&ConnCtx{ID: uuid.NewString()})
		srv.log.Info().Str("sid", s.ID()).Msg("socket connected")
		return nil
	})

	// auction:watch
	io.OnEvent("/", "auction:watch", func(s socketio.Conn, payload struct {
		AuctionID string `json:"auctionId"`
	}) map[string]any {
		ctx := s.Context().(*ConnCtx)
		if ctx.Watching != "" {
			srv.release(ctx.Watching)
			s.Leave(ctx.Watching)
			ctx.Watching = ""
		}
		a, err := srv.fetch(payload.AuctionID)
		if err != nil {
			return srv.err(s, "auction_not_found", err.Error())
		}
		ctx.Watching = a.ID
		s.Join(a.ID)
		srv.acquire(a)
		srv.log.Info().Str("sid", s.ID()).Str("auction", a.ID).Msg("auction:watch")
		srv.emitStateTo(s, a)
		return map[string]any{"ok": true}
	})

	// auction:unwatch
	io.OnEvent("/", "auction:unwatch", func(s socketio.Conn) map[string]any {
		ctx := s.Context().(*ConnCtx)
		if ctx.Watching != "" {
			srv.release(ctx.Watching)
			s.Leave(ctx.Watching)
			ctx.Watching = ""
		}
		return map[string]any{"ok": true}
	})

	io.OnError("/", func(s socketio.Conn, e error) {
		srv.log.Error().Str("sid", s.ID()).Err(e).Msg("socket error")
	})
	io.OnDisconnect("/", func(s socketio.Conn, reason string) {
		if ctx, ok := s.Context().(*ConnCtx); ok && ctx.Watching != "" {
			srv.release(ctx.Watching)
		}
		srv.log.Info().Str("sid", s.ID()).Str("reason", reason).Msg("socket disconnected")
	})

	go io.Serve()

	r.GET("/socket.io/*any", gin.WrapH(io))
	r.POST("/socket.io/*any", gin.WrapH(io))
	r.OPTIONS("/socket.io/*any", func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		c.Status(http.StatusNoContent)
	})

	return io
}

// acquire starts the shared clock and status poller for an auction on its
// first watcher and bumps the refcount for later ones.
func (srv *Server) acquire(a *auction.Auction) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if w, ok := srv.watches[a.ID]; ok {
		w.refs++
		return
	}
	w := &watch{auction: a, clock: auction.NewClock(), refs: 1, stopPoll: make(chan struct{})}
	srv.watches[a.ID] = w
	w.clock.Start(a, func(v auction.PhaseView) {
		srv.io.BroadcastToRoom("/", a.ID, "auction:tick", v)
	})
	go srv.pollStatus(a.ID, w.stopPoll)
}

// release drops one watcher and tears the room down when nobody is left.
func (srv *Server) release(auctionID string) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	w, ok := srv.watches[auctionID]
	if !ok {
		return
	}
	w.refs--
	if w.refs > 0 {
		return
	}
	w.clock.Stop()
	close(w.stopPoll)
	delete(srv.watches, auctionID)
}

// pollStatus re-reads the auction record on the configured interval. When
// the server-declared status changes, the countdown restarts from the new
// snapshot and the room gets a fresh state frame.
func (srv *Server) pollStatus(auctionID string, stop chan struct{}) {
	ticker := time.NewTicker(srv.poll)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			a, err := srv.fetch(auctionID)
			if err != nil {
				srv.log.Debug().Err(err).Str("auction", auctionID).Msg("status poll failed")
				continue
			}
			srv.mu.Lock()
			w, ok := srv.watches[auctionID]
			if ok && w.auction.Status != a.Status {
				srv.log.Info().Str("auction", auctionID).
					Str("from", string(w.auction.Status)).Str("to", string(a.Status)).
					Msg("phase transition")
				w.clock.Stop()
				w.auction = a
				w.clock = auction.NewClock()
				w.clock.Start(a, func(v auction.PhaseView) {
					srv.io.BroadcastToRoom("/", a.ID, "auction:tick", v)
				})
				srv.io.BroadcastToRoom("/", a.ID, "auction:status", map[string]any{
					"auction": a,
				})
			}
			srv.mu.Unlock()
		}
	}
}

func (srv *Server) fetch(auctionID string) (*auction.Auction, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.gw.GetAuction(ctx, auctionID)
}

// emitStateTo sends the full picture to one connection: the record, the
// current phase view, and this bidder's own state when logged in.
func (srv *Server) emitStateTo(s socketio.Conn, a *auction.Auction) {
	payload := map[string]any{
		"auction": a,
		"view":    auction.Resolve(a, time.Now()),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if state, mine, err := srv.bd.State(ctx, a.ID); err == nil {
		payload["bidState"] = state
		if mine != nil {
			payload["myBid"] = mine
		}
	}
	s.Emit("auction:state", payload)
}

func (srv *Server) err(s socketio.Conn, code, message string) map[string]any {
	s.Emit("error", map[string]any{"code": code, "message": message})
	return map[string]any{"error": message}
}
