package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/diogoX451/bazaar/pkg/types"
)

// bidEpsilon absorve o erro de ponto flutuante em B*(1+r)
const bidEpsilon = 1e-9

// MinimumBid é o menor lance aceito no estado atual do leilão
func MinimumBid(a *types.Auction, rate float64) float64 {
	high, ok := a.HighBid()
	if !ok {
		return a.Price.Amount
	}
	return high.Amount * (1 + rate)
}

// EvaluateBid aplica as regras de lance sem alterar o leilão.
// Retorna "" quando o lance é aceito, ou o motivo da recusa.
func EvaluateBid(a *types.Auction, bidder uuid.UUID, amount, rate float64, now time.Time) string {
	if a.Expired(now) {
		return types.ReasonExpired
	}
	if bidder == a.Lister {
		return types.ReasonOwnListing
	}

	high, ok := a.HighBid()
	if !ok {
		if amount+bidEpsilon < a.Price.Amount {
			return types.ReasonBidTooLow
		}
		return ""
	}

	// empate nunca vence, mesmo com taxa zero
	if amount <= high.Amount {
		return types.ReasonBidTooLow
	}
	if amount+bidEpsilon < high.Amount*(1+rate) {
		return types.ReasonBidTooLow
	}
	return ""
}

// PlaceBid avalia e, se aceito, anexa o lance. Devolve o resultado pronto para
// a resposta, incluindo quem deve ser reembolsado.
func PlaceBid(a *types.Auction, req types.BidRequest, rate float64, now time.Time) types.BidResult {
	result := types.BidResult{BidRequest: req, HighBid: a.CurrentPrice()}

	if reason := EvaluateBid(a, req.Actor, req.Amount, rate, now); reason != "" {
		result.Error = reason
		return result
	}

	if prev, ok := a.HighBid(); ok {
		bidder := prev.Bidder
		result.PreviousBidder = &bidder
	}

	a.Bids = append(a.Bids, types.Bid{Bidder: req.Actor, Amount: req.Amount, PlacedAt: now})
	result.Successful = true
	result.HighBid = req.Amount
	return result
}
