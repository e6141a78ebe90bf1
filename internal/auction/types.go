package auction

import "time"

// Status is the server-declared auction status. The server is the
// transition authority; clients only refine it into a Phase view.
type Status string

const (
	StatusScheduled Status = "SCHEDULED"
	StatusOpen      Status = "OPEN"
	StatusReveal    Status = "REVEAL"
	StatusClosed    Status = "CLOSED"
)

type Auction struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	AuctionCategory string    `json:"auctionCategory"`
	ItemDescription string    `json:"itemDescription"`
	ReservePrice    string    `json:"reservePrice"`
	MinBid          string    `json:"minBid"`
	AuctionType     string    `json:"auctionType"` // "SELL" | "BUY"
	Visibility      string    `json:"visibility"`  // "PUBLIC" | "FOLLOWERS" | "CUSTOM"
	StartAt         time.Time `json:"startAt"`
	EndAt           time.Time `json:"endAt"`
	Status          Status    `json:"status"`
	CreatorID       string    `json:"creatorId"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
	CurrentBid      string    `json:"currentBid,omitempty"`
	BidCount        int       `json:"bidCount,omitempty"`
	WinnerID        string    `json:"winnerId,omitempty"`
	WinningBid      string    `json:"winningBid,omitempty"`
}

// Bid is the server's record of a commitment. Amount stays empty until the
// bidder reveals; the console never reads the digest back for its own bids.
type Bid struct {
	ID         string    `json:"id"`
	AuctionID  string    `json:"auctionId"`
	BidderID   string    `json:"bidderId"`
	Amount     string    `json:"amount,omitempty"`
	CommitHash string    `json:"commitHash,omitempty"`
	Revealed   bool      `json:"revealed"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// BidWithAuction is the dashboard's "my bids" row.
type BidWithAuction struct {
	Bid
	Auction *Auction `json:"auction,omitempty"`
}

type CloseResult struct {
	WinnerID   string    `json:"winnerId"`
	WinningBid string    `json:"winningBid"`
	BidCount   int       `json:"bidCount"`
	ClosedAt   time.Time `json:"closedAt"`
}

type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// RatingSummary aggregates the ratings a trader has received.
type RatingSummary struct {
	AverageRating float64 `json:"averageRating"`
	TotalRatings  int     `json:"totalRatings"`
}

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}
