package scenario

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"fastjob.dev/devtools/internal/api"
	"fastjob.dev/devtools/internal/obs"
)

var (
	DefaultMaxWithdraw = decimal.NewFromInt(10)
	DefaultReserve     = decimal.NewFromInt(5)
	DefaultTolerance   = decimal.RequireFromString("0.01")
)

// WithdrawResult captures the balances observed by a withdrawal run.
type WithdrawResult struct {
	Before   decimal.Decimal
	Amount   decimal.Decimal
	After    decimal.Decimal
	Expected decimal.Decimal
	Matched  bool
}

// Withdrawal reads the wallet balance, withdraws a small amount and checks
// that the balance dropped by exactly that amount.
type Withdrawal struct {
	client *api.Client
	report *Reporter

	MaxAmount decimal.Decimal
	Reserve   decimal.Decimal
	Tolerance decimal.Decimal
	// Strict turns a balance mismatch into ErrBalanceMismatch instead of a
	// printed diagnostic.
	Strict bool
	// GuardReserve stops the run with ErrReserveNotCovered when the balance
	// does not exceed Reserve. Without it the non-positive amount is posted
	// and the server decides.
	GuardReserve bool
}

func NewWithdrawal(client *api.Client, report *Reporter) *Withdrawal {
	if report == nil {
		report = NewReporter(nil)
	}
	return &Withdrawal{
		client:    client,
		report:    report,
		MaxAmount: DefaultMaxWithdraw,
		Reserve:   DefaultReserve,
		Tolerance: DefaultTolerance,
	}
}

// Amount returns min(MaxAmount, balance - Reserve).
func (w *Withdrawal) Amount(balance decimal.Decimal) decimal.Decimal {
	return decimal.Min(w.MaxAmount, balance.Sub(w.Reserve))
}

// Run performs the check. The returned result is filled as far as the run
// got, even when an error is returned.
func (w *Withdrawal) Run(ctx context.Context) (WithdrawResult, error) {
	var res WithdrawResult
	w.report.Heading("=== Testing Withdraw Endpoint ===")

	w.report.Heading("1. Checking current wallet balance...")
	wallet, err := w.client.GetWallet(ctx)
	if err != nil {
		w.report.Line("❌ Failed to get wallet info: %v", err)
		return res, w.abort(StepReadBalance, err)
	}
	res.Before = wallet.AvailableBalance
	w.report.Line("Current balance: $%s", res.Before)

	if !res.Before.IsPositive() {
		w.report.Line("❌ Insufficient balance for withdraw test")
		return res, w.abort(StepReadBalance, ErrInsufficientBalance)
	}

	res.Amount = w.Amount(res.Before)
	if !res.Amount.IsPositive() {
		if w.GuardReserve {
			w.report.Line("❌ Balance $%s does not cover the $%s reserve", res.Before, w.Reserve)
			return res, w.abort(StepWithdraw, ErrReserveNotCovered)
		}
		obs.Logger().Warn().
			Str("balance", res.Before.String()).
			Str("amount", res.Amount.String()).
			Msg("balance does not cover reserve; posting non-positive amount")
	}

	w.report.Heading("2. Testing withdraw of $%s...", res.Amount)
	out, err := w.client.Withdraw(ctx, api.WithdrawRequest{Amount: res.Amount.String()})
	if err != nil {
		w.report.Line("❌ Withdraw failed: %v", err)
		return res, w.abort(StepWithdraw, err)
	}
	w.report.Line("✅ Withdraw successful!")
	w.report.Line("Previous balance: $%s", nullDecimal(out.PreviousBalance))
	w.report.Line("New balance: $%s", nullDecimal(out.NewBalance))
	w.report.Line("Transaction ID: %s", orNA(out.TransactionID))

	w.report.Heading("3. Verifying wallet balance updated...")
	after, err := w.client.GetWallet(ctx)
	if err != nil {
		w.report.Line("❌ Failed to check updated balance: %v", err)
		return res, w.abort(StepVerifyBalance, err)
	}
	res.After = after.AvailableBalance
	res.Expected = res.Before.Sub(res.Amount)
	w.report.Line("New balance: $%s", res.After)

	res.Matched = res.After.Sub(res.Expected).Abs().LessThan(w.Tolerance)
	if res.Matched {
		w.report.Line("✅ Balance updated correctly!")
		return res, nil
	}
	w.report.Line("❌ Balance mismatch. Expected: $%s, Got: $%s", res.Expected, res.After)
	obs.Logger().Warn().
		Str("expected", res.Expected.String()).
		Str("got", res.After.String()).
		Bool("strict", w.Strict).
		Msg("balance mismatch after withdraw")
	if w.Strict {
		return res, &StepError{Step: StepVerifyBalance, Err: ErrBalanceMismatch}
	}
	return res, nil
}

func (w *Withdrawal) abort(step Step, err error) error {
	obs.Logger().Debug().Err(err).Str("step", step.String()).Msg("withdraw check aborted")
	return &StepError{Step: step, Err: err}
}

func nullDecimal(d decimal.NullDecimal) string {
	if !d.Valid {
		return "N/A"
	}
	return d.Decimal.String()
}

func orNA(v any) string {
	if v == nil {
		return "N/A"
	}
	if f, ok := v.(float64); ok {
		return decimal.NewFromFloat(f).String()
	}
	return fmt.Sprint(v)
}
