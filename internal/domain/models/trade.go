package models

type TradeDirection string

const (
	TradeLong  TradeDirection = "Long"
	TradeShort TradeDirection = "Short"
)

type TradeStatus string

const (
	TradeOpen   TradeStatus = "Open"
	TradeClosed TradeStatus = "Closed"
)

// Trade is one trade journal entry. Optional prices are nil when unset.
type Trade struct {
	ID           string         `json:"id"`
	EntryDate    string         `json:"entryDate"`
	Pair         string         `json:"pair"`
	Direction    TradeDirection `json:"direction"`
	Status       TradeStatus    `json:"status"`
	EntryPrice   float64        `json:"entryPrice"`
	ExitPrice    *float64       `json:"exitPrice,omitempty"`
	StopLoss     *float64       `json:"stopLoss,omitempty"`
	TakeProfit   *float64       `json:"takeProfit,omitempty"`
	PositionSize *float64       `json:"positionSize,omitempty"`
	PnL          *float64       `json:"pnl,omitempty"`
	Notes        string         `json:"notes,omitempty"`
}

func (t Trade) Clone() Trade {
	out := t
	out.ExitPrice = copyFloat(t.ExitPrice)
	out.StopLoss = copyFloat(t.StopLoss)
	out.TakeProfit = copyFloat(t.TakeProfit)
	out.PositionSize = copyFloat(t.PositionSize)
	out.PnL = copyFloat(t.PnL)
	return out
}

// Trades is the journal in insertion order.
type Trades []Trade

// Upsert replaces the trade with t.ID or appends t.
func (ts Trades) Upsert(t Trade) Trades {
	out := ts.Clone()
	for i := range out {
		if out[i].ID == t.ID {
			out[i] = t.Clone()
			return out
		}
	}
	return append(out, t.Clone())
}

// Remove drops the trade with the given id and reports whether it existed.
func (ts Trades) Remove(id string) (Trades, bool) {
	out := make(Trades, 0, len(ts))
	found := false
	for _, t := range ts {
		if t.ID == id {
			found = true
			continue
		}
		out = append(out, t.Clone())
	}
	return out, found
}

func (ts Trades) Clone() Trades {
	if ts == nil {
		return nil
	}
	out := make(Trades, len(ts))
	for i, t := range ts {
		out[i] = t.Clone()
	}
	return out
}

func copyFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	f := *v
	return &f
}
