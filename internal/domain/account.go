package domain

// Account represents the financial state of a trading account. Like User
// it is a point-in-time snapshot fetched fresh from the backend.
type Account struct {
	Login          uint64  `json:"login"`
	Balance        float64 `json:"balance"`
	Credit         float64 `json:"credit"`
	Margin         float64 `json:"margin"`
	MarginFree     float64 `json:"margin_free"`
	MarginLevel    float64 `json:"margin_level"`
	Profit         float64 `json:"profit"`
	Storage        float64 `json:"storage"`
	Floating       float64 `json:"floating"`
	Equity         float64 `json:"equity"`
	Currency       string  `json:"currency"`
	CurrencyDigits uint32  `json:"currency_digits"`
}
