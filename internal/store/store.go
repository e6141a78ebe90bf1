// Package store persists the bidder's own bid secrets on disk, standing in
// for the browser localStorage the web client used. Entries live until the
// key is reused; this is a convenience cache, not a guaranteed backup, and
// reveal always has a manual-entry path when an entry is missing.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Commitment is the local half of a sealed bid: the plaintext the digest
// was computed over. Only these two fields ever leave the machine, and only
// during reveal.
type Commitment struct {
	Amount string `json:"amount"`
	Nonce  string `json:"nonce"`
}

type Store struct {
	dir string
}

// New creates the state directory if needed. Secrets live here, so the
// directory is owner-only.
func New(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save writes the commitment for (auctionID, bidderID), overwriting any
// prior entry for the same pair. At most one live commitment exists per
// pair.
func (s *Store) Save(auctionID, bidderID string, c Commitment) error {
	b, err := json.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path(auctionID, bidderID), b, 0o600)
}

// Load returns the stored commitment and true, or a zero value and false
// when no entry exists or the stored bytes fail to parse. It never returns
// an error: a missing or corrupt entry is an expected, recoverable state.
func (s *Store) Load(auctionID, bidderID string) (Commitment, bool) {
	b, err := os.ReadFile(s.path(auctionID, bidderID))
	if err != nil {
		return Commitment{}, false
	}
	var c Commitment
	if err := json.Unmarshal(b, &c); err != nil {
		return Commitment{}, false
	}
	if c.Amount == "" || c.Nonce == "" {
		return Commitment{}, false
	}
	return c, true
}

// Delete removes the entry for (auctionID, bidderID) if present.
func (s *Store) Delete(auctionID, bidderID string) {
	_ = os.Remove(s.path(auctionID, bidderID))
}

// path mirrors the web client's localStorage key layout:
// bid_<auctionId>_<userId>.
func (s *Store) path(auctionID, bidderID string) string {
	name := "bid_" + sanitize(auctionID) + "_" + sanitize(bidderID) + ".json"
	return filepath.Join(s.dir, name)
}

func sanitize(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return '_'
		}
	}, id)
}
