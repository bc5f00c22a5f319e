package models

// Requests for signal-history and subscription HTTP endpoints. Defined in
// domain for consistency and reuse.

type RecentSignalsRequest struct {
	Limit     int    `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=500"`
	Symbol    string `query:"symbol" json:"symbol" validate:"omitempty,max=32"`
	Direction string `query:"direction" json:"direction" validate:"omitempty,oneof=BUY SELL ALERT"`
}

type SignalStatsRequest struct {
	Hours int    `query:"hours" json:"hours" default:"24" validate:"gte=1,lte=720"`
	Since string `query:"since" json:"since"`
}

type SubscriptionEnabledRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}
