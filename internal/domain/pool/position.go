package pool

import "time"

// Position is a liquidity provider's share balance.
type Position struct {
	Provider  string    `json:"provider"`
	Shares    int64     `json:"shares"`
	UpdatedAt time.Time `json:"updated_at"`
}
