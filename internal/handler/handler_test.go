package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/ankuaru/bidconsole/internal/auction"
	"github.com/ankuaru/bidconsole/internal/bidder"
	"github.com/ankuaru/bidconsole/internal/gateway"
	"github.com/ankuaru/bidconsole/internal/session"
	"github.com/ankuaru/bidconsole/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// upstream is a minimal fake of the marketplace API covering the routes
// these tests touch.
func upstream(t *testing.T, a *auction.Auction, myBid func() *auction.Bid) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/auctions/"+a.ID, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"auction": a})
	})
	mux.HandleFunc("POST /api/auctions/"+a.ID+"/bids", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"bid": auction.Bid{
			ID: "bid-1", AuctionID: a.ID, CommitHash: body["commitHash"],
		}})
	})
	mux.HandleFunc("GET /api/auctions/"+a.ID+"/my-bid", func(w http.ResponseWriter, r *http.Request) {
		if b := myBid(); b != nil {
			json.NewEncoder(w).Encode(b)
			return
		}
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"message": "No bid found"})
	})
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"token": "test-token",
			"user":  auction.User{ID: "user-1", Username: "alice"},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newConsole(t *testing.T, api string, loggedIn bool) (*gin.Engine, *store.Store) {
	t.Helper()
	dir := t.TempDir()
	st, err := store.New(dir)
	if err != nil {
		t.Fatalf("should be able to create store: %v", err)
	}
	sess := session.Load(dir)
	if loggedIn {
		sess.Set("test-token", &auction.User{ID: "user-1", Username: "alice"})
	}
	gw := gateway.New(api, sess, zerolog.Nop())
	bd := bidder.New(gw, st, sess, zerolog.Nop())
	h := New(gw, bd, sess, zerolog.Nop())

	r := gin.New()
	h.Register(r)
	return r, st
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func openAuction() *auction.Auction {
	return &auction.Auction{
		ID:           "auction-1",
		Title:        "Yirgacheffe lot 42",
		ReservePrice: "100",
		Status:       auction.StatusOpen,
		StartAt:      time.Now().Add(-time.Hour),
		EndAt:        time.Now().Add(time.Hour),
	}
}

func TestPlaceBidEndToEnd(t *testing.T) {
	api := upstream(t, openAuction(), func() *auction.Bid { return nil })
	r, st := newConsole(t, api.URL, true)

	w := doJSON(t, r, http.MethodPost, "/api/auctions/auction-1/bid", map[string]string{"amount": "120.50"})
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Digest string `json:"digest"`
		State  string `json:"state"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Digest) != 64 {
		t.Fatalf("expected a sha256 hex digest, got %q", resp.Digest)
	}
	if resp.State != "Committed" {
		t.Fatalf("expected Committed, got %s", resp.State)
	}
	if _, ok := st.Load("auction-1", "user-1"); !ok {
		t.Fatal("secret should be persisted locally")
	}
}

func TestPlaceBidBelowReserve(t *testing.T) {
	api := upstream(t, openAuction(), func() *auction.Bid { return nil })
	r, st := newConsole(t, api.URL, true)

	w := doJSON(t, r, http.MethodPost, "/api/auctions/auction-1/bid", map[string]string{"amount": "50"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	if _, ok := st.Load("auction-1", "user-1"); ok {
		t.Fatal("no secret for a rejected amount")
	}
}

func TestPlaceBidLoggedOut(t *testing.T) {
	api := upstream(t, openAuction(), func() *auction.Bid { return nil })
	r, _ := newConsole(t, api.URL, false)

	w := doJSON(t, r, http.MethodPost, "/api/auctions/auction-1/bid", map[string]string{"amount": "120"})
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", w.Code, w.Body.String())
	}
}

func TestPlaceBidWrongPhase(t *testing.T) {
	a := openAuction()
	a.Status = auction.StatusReveal
	api := upstream(t, a, func() *auction.Bid { return nil })
	r, _ := newConsole(t, api.URL, true)

	w := doJSON(t, r, http.MethodPost, "/api/auctions/auction-1/bid", map[string]string{"amount": "120"})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", w.Code, w.Body.String())
	}
}

func TestRevealWithoutSecretAsksForManualEntry(t *testing.T) {
	a := openAuction()
	a.Status = auction.StatusReveal
	api := upstream(t, a, func() *auction.Bid {
		return &auction.Bid{ID: "bid-1", AuctionID: a.ID}
	})
	r, _ := newConsole(t, api.URL, true)

	w := doJSON(t, r, http.MethodPost, "/api/auctions/auction-1/reveal", nil)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", w.Code, w.Body.String())
	}
	var resp map[string]string
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp["error"] != "missing_secret" {
		t.Fatalf("expected missing_secret code, got %v", resp)
	}
}

func TestRevealWithoutBid(t *testing.T) {
	a := openAuction()
	a.Status = auction.StatusReveal
	api := upstream(t, a, func() *auction.Bid { return nil })
	r, _ := newConsole(t, api.URL, true)

	w := doJSON(t, r, http.MethodPost, "/api/auctions/auction-1/reveal", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", w.Code, w.Body.String())
	}
}

func TestGetAuctionIncludesPhaseView(t *testing.T) {
	api := upstream(t, openAuction(), func() *auction.Bid { return nil })
	r, _ := newConsole(t, api.URL, false)

	w := doJSON(t, r, http.MethodGet, "/api/auctions/auction-1", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Auction *auction.Auction  `json:"auction"`
		View    auction.PhaseView `json:"view"`
	}
	json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Auction == nil || resp.Auction.ID != "auction-1" {
		t.Fatalf("expected the auction record, got %s", w.Body.String())
	}
	if resp.View.Phase != auction.PhaseOpen {
		t.Fatalf("expected Open phase view, got %+v", resp.View)
	}
}

func TestSessionLifecycle(t *testing.T) {
	api := upstream(t, openAuction(), func() *auction.Bid { return nil })
	r, _ := newConsole(t, api.URL, false)

	if w := doJSON(t, r, http.MethodGet, "/api/session", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 while logged out, got %d", w.Code)
	}

	w := doJSON(t, r, http.MethodPost, "/api/session/login", map[string]string{
		"email": "alice@example.com", "password": "secret",
	})
	if w.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", w.Code, w.Body.String())
	}

	if w := doJSON(t, r, http.MethodGet, "/api/session", nil); w.Code != http.StatusOK {
		t.Fatalf("expected 200 after login, got %d", w.Code)
	}

	if w := doJSON(t, r, http.MethodPost, "/api/session/logout", nil); w.Code != http.StatusNoContent {
		t.Fatalf("logout failed: %d", w.Code)
	}
	if w := doJSON(t, r, http.MethodGet, "/api/session", nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	api := upstream(t, openAuction(), func() *auction.Bid { return nil })
	r, _ := newConsole(t, api.URL, false)

	w := doJSON(t, r, http.MethodGet, "/health", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
