package domain

import (
	"strings"
	"time"
)

// Deal is a single historical trade record. Deals are append-only on the
// backend and identified by a backend-assigned id.
type Deal struct {
	DealID     uint64    `json:"deal_id"`
	Login      uint64    `json:"login"`
	Symbol     string    `json:"symbol"`
	Action     string    `json:"action"`
	Volume     float64   `json:"volume"`
	Price      float64   `json:"price"`
	Profit     float64   `json:"profit"`
	Commission float64   `json:"commission"`
	Swap       float64   `json:"swap"`
	Time       time.Time `json:"time"`
	Comment    string    `json:"comment"`
}

// Position is an open position snapshot for a trading account.
type Position struct {
	PositionID   uint64    `json:"position_id"`
	Login        uint64    `json:"login"`
	Symbol       string    `json:"symbol"`
	Action       string    `json:"action"`
	Volume       float64   `json:"volume"`
	PriceOpen    float64   `json:"price_open"`
	PriceCurrent float64   `json:"price_current"`
	Profit       float64   `json:"profit"`
	Storage      float64   `json:"storage"`
	TimeCreate   time.Time `json:"time_create"`
	TimeUpdate   time.Time `json:"time_update"`
	Comment      string    `json:"comment"`
	ExternalID   string    `json:"external_id"`
	Reason       string    `json:"reason"`
	ContractSize float64   `json:"contract_size"`
}

// PositionSummary aggregates the open positions of one account.
type PositionSummary struct {
	Login          uint64    `json:"login"`
	TotalPositions int       `json:"total_positions"`
	BuyPositions   int       `json:"buy_positions"`
	SellPositions  int       `json:"sell_positions"`
	TotalVolume    float64   `json:"total_volume"`
	TotalProfit    float64   `json:"total_profit"`
	Symbols        []string  `json:"symbols"`
	LastUpdate     time.Time `json:"last_update"`
}

// SummarizePositions builds a PositionSummary from a position list.
func SummarizePositions(login uint64, positions []Position) *PositionSummary {
	summary := &PositionSummary{
		Login:          login,
		TotalPositions: len(positions),
		Symbols:        []string{},
		LastUpdate:     time.Now().UTC(),
	}

	seen := make(map[string]bool)
	for _, p := range positions {
		if strings.Contains(p.Action, "Buy") {
			summary.BuyPositions++
		} else if strings.Contains(p.Action, "Sell") {
			summary.SellPositions++
		}
		summary.TotalVolume += p.Volume
		summary.TotalProfit += p.Profit
		if !seen[p.Symbol] {
			seen[p.Symbol] = true
			summary.Symbols = append(summary.Symbols, p.Symbol)
		}
	}
	return summary
}
