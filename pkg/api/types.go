package api

import (
	"github.com/uhyunpark/bilateral/pkg/app/core/coin"
	"github.com/uhyunpark/bilateral/pkg/app/core/settlement"
)

// API request and response types for REST endpoints and WebSocket messages.
// Orders themselves are sent and returned in their own JSON form.

// CancelRequest is the body of POST /asks/{id}/cancel and /bids/{id}/cancel.
// The caller is the address recovered from Signature over
// "cancel_ask:<id>:<nonce>" (or cancel_bid).
type CancelRequest struct {
	Nonce     uint64      `json:"nonce"`
	Signature string      `json:"signature"`
	Funds     []coin.Coin `json:"funds,omitempty"`
}

// MatchRequest is the body of POST /matches, signed over
// "match:<ask_id>:<bid_id>:<nonce>".
type MatchRequest struct {
	AskID     string      `json:"ask_id"`
	BidID     string      `json:"bid_id"`
	Nonce     uint64      `json:"nonce"`
	Signature string      `json:"signature"`
	Funds     []coin.Coin `json:"funds,omitempty"`
}

// InstructionsResponse carries what the host ledger must execute.
type InstructionsResponse struct {
	Instructions []settlement.Instruction `json:"instructions"`
}

// ErrorResponse represents an API error. Messages lists every violated rule
// of a validation failure.
type ErrorResponse struct {
	Error    string   `json:"error"`
	Message  string   `json:"message,omitempty"`
	Messages []string `json:"messages,omitempty"`
}

// WSSubscribeRequest represents a WebSocket subscription request
type WSSubscribeRequest struct {
	Op       string   `json:"op"`       // "subscribe" or "unsubscribe"
	Channels []string `json:"channels"` // "asks", "bids", "matches"
}
