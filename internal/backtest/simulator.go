package backtest

import (
	"fmt"

	"ganymede/internal/domain"
)

// Account is the simulated broker state: uninvested cash and the quantity of
// the asset held. It is owned exclusively by one Simulator and mutated only
// through Step.
type Account struct {
	Cash           float64
	Holdings       float64
	CommissionRate float64
}

// Simulator executes position changes bar by bar against a simulated
// account, recording one equity point per bar and one trade per fill.
// Sizing is all-or-nothing: entering converts the full cash balance to
// holdings at the bar's close, exiting converts all holdings back to cash.
// There is no margin and no short selling.
type Simulator struct {
	account Account
	equity  []domain.EquityPoint
	trades  []domain.Trade
}

// NewSimulator creates a Simulator with the given starting cash and
// commission rate.
func NewSimulator(initialCash, commissionRate float64) *Simulator {
	return &Simulator{
		account: Account{
			Cash:           initialCash,
			CommissionRate: commissionRate,
		},
	}
}

// Step processes a single bar atomically: it executes the bar's position
// change, if any, at the bar's closing price, then marks the account to
// market and appends the bar's equity point. It returns the executed trade,
// or nil when the bar produced no fill.
//
// An enter while already holding, an exit while already flat, and an enter
// with no cash are all no-ops: the guards make repeated signals idempotent
// and prevent double fills.
func (s *Simulator) Step(bar domain.Bar, change domain.PositionChange) *domain.Trade {
	var trade *domain.Trade

	switch change {
	case domain.ChangeEnter:
		if s.account.Holdings == 0 && s.account.Cash > 0 && bar.Close > 0 {
			// Commission comes off the cash side before conversion.
			qty := s.account.Cash * (1 - s.account.CommissionRate) / bar.Close
			s.account.Cash = 0
			s.account.Holdings = qty
			trade = &domain.Trade{
				Timestamp: bar.Timestamp,
				Side:      domain.SideBuy,
				Price:     bar.Close,
				Quantity:  qty,
				CashAfter: 0,
			}
		}
	case domain.ChangeExit:
		if s.account.Holdings > 0 {
			qty := s.account.Holdings
			proceeds := qty * bar.Close * (1 - s.account.CommissionRate)
			s.account.Holdings = 0
			s.account.Cash += proceeds
			trade = &domain.Trade{
				Timestamp: bar.Timestamp,
				Side:      domain.SideSell,
				Price:     bar.Close,
				Quantity:  qty,
				CashAfter: s.account.Cash,
			}
		}
	}

	if s.account.Cash < 0 || s.account.Holdings < 0 {
		panic(fmt.Sprintf("backtest: account invariant violated at %s: cash=%v holdings=%v",
			bar.Timestamp.Format("2006-01-02T15:04:05Z07:00"), s.account.Cash, s.account.Holdings))
	}

	if trade != nil {
		s.trades = append(s.trades, *trade)
	}
	s.equity = append(s.equity, domain.EquityPoint{
		Timestamp: bar.Timestamp,
		Equity:    s.account.Cash + s.account.Holdings*bar.Close,
	})
	return trade
}

// Account returns a snapshot of the current account state.
func (s *Simulator) Account() Account {
	return s.account
}

// Equity returns the equity curve recorded so far, one point per bar stepped.
func (s *Simulator) Equity() []domain.EquityPoint {
	return s.equity
}

// Trades returns the append-only trade log.
func (s *Simulator) Trades() []domain.Trade {
	return s.trades
}
