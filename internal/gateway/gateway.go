// Package gateway is the console's sole channel to the remote marketplace
// API. All auction truth (bid storage, commitment verification, winner
// selection, phase transitions) lives on the server; this client only
// reads records and submits the operations the bidder asks for.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ankuaru/bidconsole/internal/auction"
	"github.com/ankuaru/bidconsole/internal/session"
)

// ErrNoBid marks the expected 404 from the my-bid endpoint: the user has
// not committed a bid on that auction.
var ErrNoBid = errors.New("no bid placed")

// ErrUnauthenticated blocks state-changing calls before they hit the wire
// when no user is logged in.
var ErrUnauthenticated = errors.New("not logged in")

// APIError is a non-2xx response decoded into the server's message shape.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api status %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL string
	http    *http.Client
	sess    *session.Session
	log     zerolog.Logger
}

func New(baseURL string, sess *session.Session, log zerolog.Logger) *Client {
	return newClient(&http.Client{Timeout: 20 * time.Second}, baseURL, sess, log)
}

// newClient exists for tests, which inject an httptest server URL.
func newClient(hc *http.Client, baseURL string, sess *session.Session, log zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    hc,
		sess:    sess,
		log:     log,
	}
}

type AuthResponse struct {
	Token string        `json:"token"`
	User  *auction.User `json:"user"`
}

func (c *Client) Register(ctx context.Context, username, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/register", map[string]string{
		"username": username, "email": email, "password": password,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"email": email, "password": password,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetAuctions(ctx context.Context) ([]auction.Auction, error) {
	var out struct {
		Auctions []auction.Auction `json:"auctions"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auctions", nil, &out); err != nil {
		return nil, err
	}
	return out.Auctions, nil
}

func (c *Client) GetUserAuctions(ctx context.Context, userID string) ([]auction.Auction, error) {
	var out struct {
		Auctions []auction.Auction `json:"auctions"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auctions/user/"+userID, nil, &out); err != nil {
		return nil, err
	}
	return out.Auctions, nil
}

func (c *Client) GetAuction(ctx context.Context, id string) (*auction.Auction, error) {
	var out struct {
		Auction *auction.Auction `json:"auction"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auctions/"+id, nil, &out); err != nil {
		return nil, err
	}
	if out.Auction == nil {
		return nil, &APIError{Status: http.StatusBadGateway, Message: "malformed auction response"}
	}
	return out.Auction, nil
}

func (c *Client) GetAuctionBids(ctx context.Context, id string) ([]auction.Bid, error) {
	var out struct {
		Bids []auction.Bid `json:"bids"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auctions/"+id+"/bids", nil, &out); err != nil {
		return nil, err
	}
	return out.Bids, nil
}

// PlaceBid submits the commitment digest. The amount itself never goes
// over the wire at commit time; it is disclosed only at reveal.
func (c *Client) PlaceBid(ctx context.Context, auctionID, commitHash string) (*auction.Bid, error) {
	if !c.sess.Authenticated() {
		return nil, ErrUnauthenticated
	}
	var out struct {
		Bid *auction.Bid `json:"bid"`
	}
	err := c.do(ctx, http.MethodPost, "/api/auctions/"+auctionID+"/bids", map[string]string{
		"commitHash": commitHash,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.Bid, nil
}

func (c *Client) RevealBid(ctx context.Context, auctionID, amount, nonce string) error {
	if !c.sess.Authenticated() {
		return ErrUnauthenticated
	}
	return c.do(ctx, http.MethodPost, "/api/auctions/"+auctionID+"/reveal", map[string]string{
		"amount": amount, "nonce": nonce,
	}, nil)
}

// GetMyBid returns ErrNoBid on 404; not having bid is an expected state,
// not a failure.
func (c *Client) GetMyBid(ctx context.Context, auctionID string) (*auction.Bid, error) {
	if !c.sess.Authenticated() {
		return nil, ErrUnauthenticated
	}
	var out auction.Bid
	err := c.do(ctx, http.MethodGet, "/api/auctions/"+auctionID+"/my-bid", nil, &out)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, ErrNoBid
		}
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetMyBids(ctx context.Context) ([]auction.BidWithAuction, error) {
	if !c.sess.Authenticated() {
		return nil, ErrUnauthenticated
	}
	var out struct {
		Bids []auction.BidWithAuction `json:"bids"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/auctions/my-bids", nil, &out); err != nil {
		return nil, err
	}
	return out.Bids, nil
}

func (c *Client) CloseAuction(ctx context.Context, auctionID string) (*auction.CloseResult, error) {
	if !c.sess.Authenticated() {
		return nil, ErrUnauthenticated
	}
	var out struct {
		Auction struct {
			auction.Auction
			ClosedAt time.Time `json:"closedAt"`
		} `json:"auction"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/auctions/"+auctionID+"/close", nil, &out); err != nil {
		return nil, err
	}
	return &auction.CloseResult{
		WinnerID:   out.Auction.WinnerID,
		WinningBid: out.Auction.WinningBid,
		BidCount:   out.Auction.BidCount,
		ClosedAt:   out.Auction.ClosedAt,
	}, nil
}

func (c *Client) GetNotifications(ctx context.Context) ([]auction.Notification, error) {
	if !c.sess.Authenticated() {
		return nil, ErrUnauthenticated
	}
	var out []auction.Notification
	if err := c.do(ctx, http.MethodGet, "/api/auth/notifications/me", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	if !c.sess.Authenticated() {
		return ErrUnauthenticated
	}
	return c.do(ctx, http.MethodPatch, "/api/auth/notifications/"+id+"/read", nil, nil)
}

func (c *Client) FollowUser(ctx context.Context, userID string) error {
	if !c.sess.Authenticated() {
		return ErrUnauthenticated
	}
	return c.do(ctx, http.MethodPost, "/api/auth/follow/"+userID, nil, nil)
}

func (c *Client) UnfollowUser(ctx context.Context, userID string) error {
	if !c.sess.Authenticated() {
		return ErrUnauthenticated
	}
	return c.do(ctx, http.MethodDelete, "/api/auth/follow/"+userID, nil, nil)
}

func (c *Client) GetFollowing(ctx context.Context) ([]auction.User, error) {
	if !c.sess.Authenticated() {
		return nil, ErrUnauthenticated
	}
	// The endpoint has shipped both a bare array and a wrapped object;
	// accept either.
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/api/auth/following/me", nil, &raw); err != nil {
		return nil, err
	}
	var users []auction.User
	if err := json.Unmarshal(raw, &users); err == nil {
		return users, nil
	}
	var wrapped struct {
		Following []auction.User `json:"following"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil {
		return wrapped.Following, nil
	}
	return nil, nil
}

func (c *Client) GetUserRating(ctx context.Context, userID string) (*auction.RatingSummary, error) {
	var out auction.RatingSummary
	if err := c.do(ctx, http.MethodGet, "/api/auth/ratings/"+userID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) GetRatingSummary(ctx context.Context) (*auction.RatingSummary, error) {
	if !c.sess.Authenticated() {
		return nil, ErrUnauthenticated
	}
	var out auction.RatingSummary
	if err := c.do(ctx, http.MethodGet, "/api/auth/ratings/me/summary", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// do runs one request/response cycle. There is no retry policy: failures
// surface immediately and the user retries by hand.
func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if tok := c.sess.Token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error().Err(err).Str("method", method).Str("endpoint", endpoint).Msg("gateway request failed")
		return fmt.Errorf("gateway %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	return json.Unmarshal(b, out)
}

// decodeError extracts the server's message from whichever of the shapes
// it uses ({message}, {error}, {detail}), appending validation details
// when present so the user sees more than "Validation error".
func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Message: resp.Status}
	b, err := io.ReadAll(resp.Body)
	if err != nil || len(b) == 0 {
		return apiErr
	}
	var body struct {
		Message string `json:"message"`
		Err     string `json:"error"`
		Detail  string `json:"detail"`
		Details []struct {
			Path    []string `json:"path"`
			Message string   `json:"message"`
		} `json:"details"`
	}
	if json.Unmarshal(b, &body) != nil {
		return apiErr
	}
	switch {
	case body.Message != "":
		apiErr.Message = body.Message
	case body.Err != "":
		apiErr.Message = body.Err
	case body.Detail != "":
		apiErr.Message = body.Detail
	}
	if len(body.Details) > 0 {
		parts := make([]string, 0, len(body.Details))
		for _, d := range body.Details {
			parts = append(parts, strings.Join(d.Path, ".")+": "+d.Message)
		}
		apiErr.Message += " | " + strings.Join(parts, ", ")
	}
	return apiErr
}
