// Package account tracks the running monetary balance of a simulation run.
// Balances are mutated only from within the single-threaded event loop, so no
// locking is needed.
package account

import "github.com/xzhou2018/FleetSim/core/logger"

// Account is the EUR ledger credited by market settlements and debited by
// energy purchases.
type Account struct {
	balance float64
	log     logger.Logger
}

// New returns an account with a zero balance.
func New(log logger.Logger) *Account {
	return &Account{log: log}
}

// Balance returns the current balance in EUR.
func (a *Account) Balance() float64 { return a.balance }

// Credit adds amount EUR to the balance.
func (a *Account) Credit(amount float64, reason string) {
	a.balance += amount
	if a.log != nil {
		a.log.Debugw("account credit", map[string]any{
			"amount_eur":  amount,
			"balance_eur": a.balance,
			"reason":      reason,
		})
	}
}

// Debit removes amount EUR from the balance. The balance may go negative;
// solvency is not modelled.
func (a *Account) Debit(amount float64, reason string) {
	a.balance -= amount
	if a.log != nil {
		a.log.Debugw("account debit", map[string]any{
			"amount_eur":  amount,
			"balance_eur": a.balance,
			"reason":      reason,
		})
	}
}
