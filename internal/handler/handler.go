// Package handler exposes the console's local REST surface. Every error
// is recovered at this boundary: the response carries a message and the
// console stays interactive.
package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ankuaru/bidconsole/internal/auction"
	"github.com/ankuaru/bidconsole/internal/bidder"
	"github.com/ankuaru/bidconsole/internal/commit"
	"github.com/ankuaru/bidconsole/internal/gateway"
	"github.com/ankuaru/bidconsole/internal/session"
)

type Handler struct {
	gw   *gateway.Client
	bd   *bidder.Bidder
	sess *session.Session
	log  zerolog.Logger
	now  func() time.Time
}

func New(gw *gateway.Client, bd *bidder.Bidder, sess *session.Session, log zerolog.Logger) *Handler {
	return &Handler{gw: gw, bd: bd, sess: sess, log: log, now: time.Now}
}

func (h *Handler) Register(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
	})

	api := r.Group("/api")
	api.POST("/session/register", h.register)
	api.POST("/session/login", h.login)
	api.POST("/session/logout", h.logout)
	api.GET("/session", h.currentSession)

	api.GET("/auctions", h.listAuctions)
	api.GET("/auctions/:id", h.getAuction)
	api.GET("/auctions/:id/bids", h.listBids)
	api.POST("/auctions/:id/bid", h.placeBid)
	api.POST("/auctions/:id/reveal", h.reveal)
	api.POST("/auctions/:id/close", h.closeAuction)

	api.GET("/bids", h.myBids)
	api.GET("/notifications", h.notifications)
	api.POST("/notifications/:id/read", h.markRead)

	api.GET("/users/:id/auctions", h.userAuctions)
	api.GET("/users/:id/rating", h.userRating)
	api.POST("/users/:id/follow", h.follow)
	api.DELETE("/users/:id/follow", h.unfollow)
	api.GET("/following", h.following)
	api.GET("/rating", h.myRating)
}

func (h *Handler) register(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	auth, err := h.gw.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.sess.Set(auth.Token, auth.User)
	c.JSON(http.StatusCreated, gin.H{"user": auth.User})
}

func (h *Handler) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	auth, err := h.gw.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.sess.Set(auth.Token, auth.User)
	c.JSON(http.StatusOK, gin.H{"user": auth.User})
}

func (h *Handler) logout(c *gin.Context) {
	h.sess.Clear()
	c.Status(http.StatusNoContent)
}

func (h *Handler) currentSession(c *gin.Context) {
	if !h.sess.Authenticated() {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not_logged_in"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": h.sess.User()})
}

func (h *Handler) listAuctions(c *gin.Context) {
	auctions, err := h.gw.GetAuctions(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"auctions": auctions})
}

// getAuction returns the record with the derived phase view and, when a
// user is logged in, their bid state for it.
func (h *Handler) getAuction(c *gin.Context) {
	a, err := h.gw.GetAuction(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	resp := gin.H{
		"auction": a,
		"view":    auction.Resolve(a, h.now()),
	}
	if h.sess.Authenticated() {
		if state, mine, err := h.bd.State(c.Request.Context(), a.ID); err == nil {
			resp["bidState"] = state
			if mine != nil {
				resp["myBid"] = mine
			}
		}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) listBids(c *gin.Context) {
	bids, err := h.gw.GetAuctionBids(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bids": bids})
}

func (h *Handler) placeBid(c *gin.Context) {
	var req struct {
		Amount string `json:"amount"`
	}
	if err := c.BindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	a, err := h.gw.GetAuction(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	digest, err := h.bd.PlaceBid(c.Request.Context(), a, req.Amount)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"digest": digest, "state": bidder.StateCommitted})
}

func (h *Handler) reveal(c *gin.Context) {
	var req struct {
		Amount string `json:"amount"`
		Nonce  string `json:"nonce"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
			return
		}
	}
	a, err := h.gw.GetAuction(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	var manual *bidder.ManualSecret
	if req.Amount != "" || req.Nonce != "" {
		manual = &bidder.ManualSecret{Amount: req.Amount, Nonce: req.Nonce}
	}
	mine, err := h.bd.Reveal(c.Request.Context(), a, manual)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": bidder.StateRevealed, "myBid": mine})
}

func (h *Handler) closeAuction(c *gin.Context) {
	res, err := h.bd.Close(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": res})
}

func (h *Handler) myBids(c *gin.Context) {
	bids, err := h.gw.GetMyBids(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bids": bids})
}

func (h *Handler) notifications(c *gin.Context) {
	items, err := h.gw.GetNotifications(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": items})
}

func (h *Handler) markRead(c *gin.Context) {
	if err := h.gw.MarkNotificationRead(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) userAuctions(c *gin.Context) {
	auctions, err := h.gw.GetUserAuctions(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"auctions": auctions})
}

func (h *Handler) userRating(c *gin.Context) {
	summary, err := h.gw.GetUserRating(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rating": summary})
}

func (h *Handler) myRating(c *gin.Context) {
	summary, err := h.gw.GetRatingSummary(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rating": summary})
}

func (h *Handler) follow(c *gin.Context) {
	if err := h.gw.FollowUser(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) unfollow(c *gin.Context) {
	if err := h.gw.UnfollowUser(c.Request.Context(), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) following(c *gin.Context) {
	users, err := h.gw.GetFollowing(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"following": users})
}

// fail maps domain errors onto status codes. Validation failures are 400s
// caught before any gateway call; a missing secret is 422 with a code the
// UI uses to open the manual-entry dialog.
func (h *Handler) fail(c *gin.Context, err error) {
	var below *commit.BelowMinimumError
	var apiErr *gateway.APIError
	switch {
	case errors.Is(err, commit.ErrEmptyAmount), errors.Is(err, commit.ErrInvalidAmount), errors.As(err, &below):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation", "message": err.Error()})
	case errors.Is(err, gateway.ErrUnauthenticated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not_logged_in", "message": err.Error()})
	case errors.Is(err, bidder.ErrNoSecret):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "missing_secret", "message": err.Error()})
	case errors.Is(err, bidder.ErrNotBid), errors.Is(err, gateway.ErrNoBid):
		c.JSON(http.StatusNotFound, gin.H{"error": "no_bid", "message": err.Error()})
	case errors.Is(err, bidder.ErrInvalidPhase):
		c.JSON(http.StatusConflict, gin.H{"error": "invalid_phase", "message": err.Error()})
	case errors.As(err, &apiErr):
		c.JSON(apiErr.Status, gin.H{"error": "upstream", "message": apiErr.Message})
	default:
		h.log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream", "message": err.Error()})
	}
}
