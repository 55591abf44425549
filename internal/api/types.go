package api

import "github.com/shopspring/decimal"

// RegisterRequest is the body of POST /api/v3/user/register.
type RegisterRequest struct {
	Username       string `json:"username"`
	Password       string `json:"password"`
	PasswordVerify string `json:"password_verify"`
	Email          string `json:"email"`
	ShowNSFW       bool   `json:"show_nsfw"`
	CaptchaUUID    string `json:"captcha_uuid"`
	CaptchaAnswer  string `json:"captcha_answer"`
	Honeypot       string `json:"honeypot"`
	Country        string `json:"country,omitempty"`
}

// LoginRequest is the body of POST /api/v3/user/login.
type LoginRequest struct {
	UsernameOrEmail string `json:"username_or_email"`
	Password        string `json:"password"`
}

// LoginResponse is returned by both register and login. JWT is empty when
// the account still needs an explicit login (or verification).
type LoginResponse struct {
	JWT                 string `json:"jwt,omitempty"`
	RegistrationCreated bool   `json:"registration_created"`
	VerifyEmailSent     bool   `json:"verify_email_sent"`
}

// LocalUser is the subset of the profile the tools look at.
type LocalUser struct {
	ID      int64  `json:"id"`
	Email   string `json:"email,omitempty"`
	Country string `json:"country,omitempty"`
}

// LocalUserView nests LocalUser as the API does.
type LocalUserView struct {
	LocalUser LocalUser `json:"local_user"`
}

// MyUserInfo is returned by GET /api/v3/user.
type MyUserInfo struct {
	LocalUserView LocalUserView `json:"local_user_view"`
}

// Country returns the nested country, or "Unknown" when absent.
func (m MyUserInfo) Country() string {
	if c := m.LocalUserView.LocalUser.Country; c != "" {
		return c
	}
	return "Unknown"
}

type Bank struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Country string `json:"country"`
}

// ListBanksResponse is returned by GET /api/v1/banks.
type ListBanksResponse struct {
	Banks []Bank `json:"banks"`
}

// CreateBankAccountRequest is the body of POST /api/v1/user/bank_account/create.
type CreateBankAccountRequest struct {
	BankID            int64  `json:"bank_id"`
	AccountNumber     string `json:"account_number"`
	AccountName       string `json:"account_name"`
	IsDefault         bool   `json:"is_default"`
	VerificationImage string `json:"verification_image,omitempty"`
}

type BankAccount struct {
	ID            int64  `json:"id"`
	BankID        int64  `json:"bank_id"`
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
	IsVerified    bool   `json:"is_verified"`
	IsDefault     bool   `json:"is_default"`
}

// BankAccountResponse is returned by the create endpoint.
type BankAccountResponse struct {
	BankAccount BankAccount `json:"bank_account"`
}

// ListBankAccountsResponse is returned by GET /api/v1/user/bank_accounts.
type ListBankAccountsResponse struct {
	BankAccounts []BankAccount `json:"bank_accounts"`
}

// Wallet is returned by GET /api/v4/account/wallet. The balance is accepted
// both as a JSON number and as a decimal string.
type Wallet struct {
	AvailableBalance decimal.Decimal `json:"available_balance"`
}

// WithdrawRequest is the body of POST /api/v4/account/wallet/withdraw.
type WithdrawRequest struct {
	Amount string `json:"amount"`
}

type WithdrawResponse struct {
	PreviousBalance decimal.NullDecimal `json:"previous_balance"`
	NewBalance      decimal.NullDecimal `json:"new_balance"`
	TransactionID   any                 `json:"transaction_id"`
}
