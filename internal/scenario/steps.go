package scenario

import (
	"errors"
	"fmt"
)

// Step names a stage of a scenario.
type Step int

const (
	StepRegister Step = iota + 1
	StepLogin
	StepProfile
	StepListBanks
	StepCreateBankAccount
	StepListBankAccounts
	StepReadBalance
	StepWithdraw
	StepVerifyBalance
)

var stepNames = map[Step]string{
	StepRegister:          "registration",
	StepLogin:             "login",
	StepProfile:           "user info",
	StepListBanks:         "list banks",
	StepCreateBankAccount: "create bank account",
	StepListBankAccounts:  "list user bank accounts",
	StepReadBalance:       "read balance",
	StepWithdraw:          "withdraw",
	StepVerifyBalance:     "verify balance",
}

func (s Step) String() string {
	if name, ok := stepNames[s]; ok {
		return name
	}
	return fmt.Sprintf("step(%d)", int(s))
}

var (
	ErrNoToken             = errors.New("no jwt token available")
	ErrNoBanks             = errors.New("no banks available for user's region")
	ErrInvalidBank         = errors.New("no valid bank id found")
	ErrNoBankAccounts      = errors.New("no bank accounts listed")
	ErrInsufficientBalance = errors.New("insufficient balance for withdraw test")
	ErrReserveNotCovered   = errors.New("balance does not cover the reserve")
	ErrBalanceMismatch     = errors.New("balance mismatch after withdraw")
)

// StepError reports the step a scenario stopped at.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s step: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// FailedStep returns the step recorded in err, if any.
func FailedStep(err error) (Step, bool) {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.Step, true
	}
	return 0, false
}
