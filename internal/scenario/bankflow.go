package scenario

import (
	"context"
	"fmt"

	"fastjob.dev/devtools/internal/api"
	"fastjob.dev/devtools/internal/obs"
)

const (
	DefaultAccountNumber = "1234567890"
	// PlaceholderImage stands in for a scanned bank book; the API only checks
	// that a data URI is present.
	PlaceholderImage = "data:image/jpeg;base64,/9j/4AAQSkZJRgABAQEAAAAAAAD..."
)

// Credentials identify the account the bank flow registers.
type Credentials struct {
	Username string
	Password string
	Email    string
	// Country, when set, overrides the server's IP-based detection.
	Country string
}

// registration is the outcome of the register step.
type registration int

const (
	registeredWithToken registration = iota
	registeredNeedsLogin
)

// BankFlow drives registration through bank account creation against a
// running API. The client's response hook should print through the same
// Reporter so raw responses interleave with step output.
type BankFlow struct {
	client *api.Client
	report *Reporter

	AccountNumber     string
	VerificationImage string
}

func NewBankFlow(client *api.Client, report *Reporter) *BankFlow {
	if report == nil {
		report = NewReporter(nil)
	}
	return &BankFlow{
		client:            client,
		report:            report,
		AccountNumber:     DefaultAccountNumber,
		VerificationImage: PlaceholderImage,
	}
}

// Run executes every step in order and stops at the first failure, which
// is returned as a *StepError. A nil error means all steps passed.
func (f *BankFlow) Run(ctx context.Context, creds Credentials) error {
	f.report.Banner("🚀 Starting Bank Account System Test")

	state, err := f.register(ctx, creds)
	if err != nil {
		return f.abort(StepRegister, err)
	}
	switch state {
	case registeredWithToken:
	case registeredNeedsLogin:
		if err := f.login(ctx, creds); err != nil {
			return f.abort(StepLogin, err)
		}
	}

	if _, err := f.profile(ctx); err != nil {
		return f.abort(StepProfile, err)
	}

	banks, err := f.listBanks(ctx)
	if err != nil {
		return f.abort(StepListBanks, err)
	}
	if len(banks) == 0 {
		f.report.Failure("No banks available for user's region")
		return f.abort(StepListBanks, ErrNoBanks)
	}

	bank := banks[0]
	if bank.ID <= 0 {
		f.report.Failure("No valid bank ID found")
		return f.abort(StepCreateBankAccount, ErrInvalidBank)
	}
	if err := f.createBankAccount(ctx, bank.ID, creds.Username+" Test Account"); err != nil {
		return f.abort(StepCreateBankAccount, err)
	}

	if _, err := f.listBankAccounts(ctx); err != nil {
		return f.abort(StepListBankAccounts, err)
	}

	f.report.Blank()
	f.report.Rule()
	f.report.Success("All steps completed successfully")
	f.report.Line("Summary:")
	f.report.Line("✅ User registration with country detection")
	f.report.Line("✅ Banks filtered by user's region")
	f.report.Line("✅ Bank account creation with verification image")
	f.report.Line("✅ Bank account listed with verification status")
	return nil
}

func (f *BankFlow) abort(step Step, err error) error {
	f.report.Blank()
	f.report.Failure("Test failed at %s step", step)
	obs.Logger().Debug().Err(err).Str("step", step.String()).Msg("bank flow aborted")
	return &StepError{Step: step, Err: err}
}

func (f *BankFlow) register(ctx context.Context, creds Credentials) (registration, error) {
	f.report.Step("STEP 1: User Registration", "Creating account for "+creds.Username)

	resp, err := f.client.Register(ctx, api.RegisterRequest{
		Username:       creds.Username,
		Password:       creds.Password,
		PasswordVerify: creds.Password,
		Email:          creds.Email,
		Country:        creds.Country,
	})
	if err != nil {
		f.report.Failure("Registration failed: %v", err)
		return 0, err
	}
	if resp.JWT == "" {
		f.report.Success("User registered, but manual login required")
		return registeredNeedsLogin, nil
	}
	f.client.SetToken(resp.JWT)
	f.report.Success("User registered and logged in successfully")
	return registeredWithToken, nil
}

func (f *BankFlow) login(ctx context.Context, creds Credentials) error {
	f.report.Step("STEP 1b: User Login", "Logging in as "+creds.Username)

	resp, err := f.client.Login(ctx, api.LoginRequest{
		UsernameOrEmail: creds.Username,
		Password:        creds.Password,
	})
	if err != nil {
		f.report.Failure("Login failed: %v", err)
		return err
	}
	f.client.SetToken(resp.JWT)
	f.report.Success("Login successful")
	return nil
}

func (f *BankFlow) profile(ctx context.Context) (*api.MyUserInfo, error) {
	f.report.Step("STEP 2: Get User Info", "Checking user's detected country")
	if err := f.requireToken(); err != nil {
		return nil, err
	}

	info, err := f.client.GetMyUser(ctx)
	if err != nil {
		f.report.Failure("Failed to get user info: %v", err)
		return nil, err
	}
	f.report.Success("User country detected as: %s", info.Country())
	return info, nil
}

func (f *BankFlow) listBanks(ctx context.Context) ([]api.Bank, error) {
	f.report.Step("STEP 3: List Banks", "Getting banks available in user's region")
	if err := f.requireToken(); err != nil {
		return nil, err
	}

	banks, err := f.client.ListBanks(ctx)
	if err != nil {
		f.report.Failure("Failed to list banks: %v", err)
		return nil, err
	}
	f.report.Success("Found %d banks available", len(banks))
	for _, bank := range banks {
		f.report.Item("%s (%s)", orUnknown(bank.Name), orUnknown(bank.Country))
	}
	return banks, nil
}

func (f *BankFlow) createBankAccount(ctx context.Context, bankID int64, accountName string) error {
	f.report.Step("STEP 4: Create Bank Account", "Adding bank account "+f.AccountNumber)
	if err := f.requireToken(); err != nil {
		return err
	}

	_, err := f.client.CreateBankAccount(ctx, api.CreateBankAccountRequest{
		BankID:            bankID,
		AccountNumber:     f.AccountNumber,
		AccountName:       accountName,
		IsDefault:         true,
		VerificationImage: f.VerificationImage,
	})
	if err != nil {
		f.report.Failure("Failed to create bank account: %v", err)
		return err
	}
	f.report.Success("Bank account created successfully (pending verification)")
	return nil
}

func (f *BankFlow) listBankAccounts(ctx context.Context) ([]api.BankAccount, error) {
	f.report.Step("STEP 5: List User Bank Accounts", "Getting user's registered bank accounts")
	if err := f.requireToken(); err != nil {
		return nil, err
	}

	accounts, err := f.client.ListBankAccounts(ctx)
	if err != nil {
		f.report.Failure("Failed to list user bank accounts: %v", err)
		return nil, err
	}
	f.report.Success("Found %d bank accounts", len(accounts))
	for _, acc := range accounts {
		verified := "⏳ Pending Verification"
		if acc.IsVerified {
			verified = "✅ Verified"
		}
		line := fmt.Sprintf("%s - %s - %s", orUnknown(acc.AccountName), orUnknown(acc.BankName), verified)
		if acc.IsDefault {
			line += " ⭐ Default"
		}
		f.report.Item("%s", line)
	}
	if len(accounts) == 0 {
		return nil, ErrNoBankAccounts
	}
	return accounts, nil
}

func (f *BankFlow) requireToken() error {
	if f.client.Token() == "" {
		f.report.Failure("No JWT token available")
		return ErrNoToken
	}
	return nil
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
