// Package bidder coordinates the sealed-bid workflow for the logged-in
// user: committing a concealed bid, keeping the secret local, and
// disclosing it during the reveal phase.
package bidder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ankuaru/bidconsole/internal/auction"
	"github.com/ankuaru/bidconsole/internal/commit"
	"github.com/ankuaru/bidconsole/internal/gateway"
	"github.com/ankuaru/bidconsole/internal/session"
	"github.com/ankuaru/bidconsole/internal/store"
)

var (
	ErrInvalidPhase = errors.New("invalid phase for action")
	// ErrNoSecret means neither the local store nor the reveal request
	// carried the bid secret. The caller should ask the user to enter the
	// amount and nonce by hand.
	ErrNoSecret = errors.New("no stored bid secret; manual amount and nonce required")
	ErrNotBid   = errors.New("no committed bid to reveal")
)

// State is the bidder's position in one auction. Committed moves to
// Revealed during the reveal phase and never back.
type State string

const (
	StateNoBid     State = "NoBid"
	StateCommitted State = "Committed"
	StateRevealed  State = "Revealed"
)

// Gateway is the slice of the remote API the coordinator needs.
type Gateway interface {
	GetAuction(ctx context.Context, id string) (*auction.Auction, error)
	PlaceBid(ctx context.Context, auctionID, commitHash string) (*auction.Bid, error)
	RevealBid(ctx context.Context, auctionID, amount, nonce string) error
	GetMyBid(ctx context.Context, auctionID string) (*auction.Bid, error)
	CloseAuction(ctx context.Context, auctionID string) (*auction.CloseResult, error)
}

type Bidder struct {
	gw    Gateway
	store *store.Store
	sess  *session.Session
	log   zerolog.Logger
	now   func() time.Time
}

func New(gw Gateway, st *store.Store, sess *session.Session, log zerolog.Logger) *Bidder {
	return &Bidder{gw: gw, store: st, sess: sess, log: log, now: time.Now}
}

// PlaceBid validates the amount, persists the secret, then sends the
// commitment digest. The secret is written before the network call so a
// crash mid-request cannot lose what reveal will need; a failed request
// leaves it in place for retry.
func (b *Bidder) PlaceBid(ctx context.Context, a *auction.Auction, amount string) (string, error) {
	user := b.sess.User()
	if user == nil {
		return "", gateway.ErrUnauthenticated
	}
	if view := auction.Resolve(a, b.now()); view.Phase != auction.PhaseOpen {
		return "", fmt.Errorf("%w: bidding is only open during the Open phase (now %s)", ErrInvalidPhase, view.Phase)
	}
	minimum := a.ReservePrice
	if minimum == "" {
		minimum = a.MinBid
	}
	if err := commit.ValidateAmount(amount, minimum); err != nil {
		return "", err
	}

	nonce := commit.NewNonce()
	if err := b.store.Save(a.ID, user.ID, store.Commitment{Amount: amount, Nonce: nonce}); err != nil {
		return "", fmt.Errorf("persist bid secret: %w", err)
	}

	digest := commit.Digest(a.ID, user.ID, amount, nonce)
	if _, err := b.gw.PlaceBid(ctx, a.ID, digest); err != nil {
		b.log.Warn().Err(err).Str("auction", a.ID).Msg("commit failed; local secret kept for retry")
		return "", err
	}
	b.log.Info().Str("auction", a.ID).Str("digest", digest).Msg("bid committed")
	return digest, nil
}

// ManualSecret carries a user-entered amount and nonce for reveals on a
// machine that does not hold the local copy.
type ManualSecret struct {
	Amount string
	Nonce  string
}

// Reveal discloses the bid secret to the server. It prefers the locally
// stored copy and falls back to manual when the store has nothing. On
// success the my-bid record is re-fetched so callers see revealed status.
func (b *Bidder) Reveal(ctx context.Context, a *auction.Auction, manual *ManualSecret) (*auction.Bid, error) {
	user := b.sess.User()
	if user == nil {
		return nil, gateway.ErrUnauthenticated
	}
	if view := auction.Resolve(a, b.now()); view.Phase != auction.PhaseReveal {
		return nil, fmt.Errorf("%w: reveal is only possible during the Reveal phase (now %s)", ErrInvalidPhase, view.Phase)
	}
	mine, err := b.gw.GetMyBid(ctx, a.ID)
	if err != nil {
		if errors.Is(err, gateway.ErrNoBid) {
			return nil, ErrNotBid
		}
		return nil, err
	}
	if mine.Revealed {
		return mine, nil
	}

	secret, ok := b.store.Load(a.ID, user.ID)
	if !ok {
		if manual == nil || manual.Amount == "" || manual.Nonce == "" {
			return nil, ErrNoSecret
		}
		secret = store.Commitment{Amount: manual.Amount, Nonce: manual.Nonce}
	}

	if err := b.gw.RevealBid(ctx, a.ID, secret.Amount, secret.Nonce); err != nil {
		b.log.Warn().Err(err).Str("auction", a.ID).Msg("reveal failed; local secret untouched")
		return nil, err
	}
	b.log.Info().Str("auction", a.ID).Msg("bid revealed")
	return b.gw.GetMyBid(ctx, a.ID)
}

// State derives the bidder's state for one auction from the server's
// my-bid record. The server record is authoritative; the local store only
// holds the secret, not the state.
func (b *Bidder) State(ctx context.Context, auctionID string) (State, *auction.Bid, error) {
	mine, err := b.gw.GetMyBid(ctx, auctionID)
	if err != nil {
		if errors.Is(err, gateway.ErrNoBid) {
			return StateNoBid, nil, nil
		}
		return StateNoBid, nil, err
	}
	if mine.Revealed {
		return StateRevealed, mine, nil
	}
	return StateCommitted, mine, nil
}

// Close asks the server to close the auction and determine the winner.
// Creator-only; the server enforces ownership.
func (b *Bidder) Close(ctx context.Context, auctionID string) (*auction.CloseResult, error) {
	res, err := b.gw.CloseAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	b.log.Info().Str("auction", auctionID).Str("winner", res.WinnerID).Int("bids", res.BidCount).Msg("auction closed")
	return res, nil
}
