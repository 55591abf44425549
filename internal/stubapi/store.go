package stubapi

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"fastjob.dev/devtools/internal/api"
	"fastjob.dev/devtools/internal/ids"
)

var (
	ErrUserExists        = errors.New("user_already_exists")
	ErrNotFound          = errors.New("not_found")
	ErrIncorrectLogin    = errors.New("incorrect_login")
	ErrBankNotFound      = errors.New("bank_not_found")
	ErrBankRegion        = errors.New("bank_not_available_in_region")
	ErrAccountExists     = errors.New("bank_account_already_exists")
	ErrInvalidAmount     = errors.New("invalid_amount")
	ErrInsufficientFunds = errors.New("insufficient_balance")
)

// DefaultBanks seeds the stub when no banks are configured.
var DefaultBanks = []api.Bank{
	{ID: 1, Name: "Bangkok Bank", Country: "TH"},
	{ID: 2, Name: "Kasikornbank", Country: "TH"},
	{ID: 3, Name: "Siam Commercial Bank", Country: "TH"},
	{ID: 4, Name: "Vietcombank", Country: "VN"},
}

// User is a registered stub account.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Country      string
	Published    time.Time
}

type storedAccount struct {
	api.BankAccount
	UserID int64
}

// Withdrawal is the ledger entry of a wallet withdrawal.
type Withdrawal struct {
	TransactionID   string
	UserID          int64
	Amount          decimal.Decimal
	PreviousBalance decimal.Decimal
	NewBalance      decimal.Decimal
	CreatedAt       time.Time
}

// Store holds users, banks, bank accounts and wallets in memory.
type Store struct {
	mu            sync.RWMutex
	nextUserID    int64
	nextAccountID int64
	users         map[int64]*User
	logins        map[string]int64 // lower-cased username or email -> user id
	banks         map[int64]api.Bank
	accounts      []storedAccount
	wallets       map[int64]decimal.Decimal
	withdrawals   []Withdrawal
}

// NewStore creates a store seeded with banks.
func NewStore(banks []api.Bank) *Store {
	s := &Store{
		users:   make(map[int64]*User),
		logins:  make(map[string]int64),
		banks:   make(map[int64]api.Bank, len(banks)),
		wallets: make(map[int64]decimal.Decimal),
	}
	for _, b := range banks {
		s.banks[b.ID] = b
	}
	return s
}

// CreateUser registers a user with an opening wallet balance.
func (s *Store) CreateUser(u User, balance decimal.Decimal) (User, error) {
	username := strings.ToLower(strings.TrimSpace(u.Username))
	email := strings.ToLower(strings.TrimSpace(u.Email))

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.logins[username]; ok {
		return User{}, ErrUserExists
	}
	if email != "" {
		if _, ok := s.logins[email]; ok {
			return User{}, ErrUserExists
		}
	}

	s.nextUserID++
	u.ID = s.nextUserID
	u.Published = time.Now().UTC()
	stored := u
	s.users[u.ID] = &stored
	s.logins[username] = u.ID
	if email != "" {
		s.logins[email] = u.ID
	}
	s.wallets[u.ID] = balance
	return u, nil
}

// FindLogin resolves a username or email.
func (s *Store) FindLogin(usernameOrEmail string) (User, error) {
	key := strings.ToLower(strings.TrimSpace(usernameOrEmail))
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.logins[key]
	if !ok {
		return User{}, ErrNotFound
	}
	return *s.users[id], nil
}

func (s *Store) User(id int64) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return *u, nil
}

// Banks returns the banks of country ordered by id.
func (s *Store) Banks(country string) []api.Bank {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := []api.Bank{}
	for _, b := range s.banks {
		if strings.EqualFold(b.Country, country) {
			res = append(res, b)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i].ID < res[j].ID })
	return res
}

// CreateBankAccount validates and records a bank account for userID. The
// first account of a user is always the default one.
func (s *Store) CreateBankAccount(userID int64, req api.CreateBankAccountRequest) (api.BankAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return api.BankAccount{}, ErrNotFound
	}
	bank, ok := s.banks[req.BankID]
	if !ok {
		return api.BankAccount{}, ErrBankNotFound
	}
	if !strings.EqualFold(bank.Country, u.Country) {
		return api.BankAccount{}, ErrBankRegion
	}

	hasAny := false
	for _, acc := range s.accounts {
		if acc.UserID != userID {
			continue
		}
		hasAny = true
		if acc.BankID == req.BankID && acc.AccountNumber == req.AccountNumber {
			return api.BankAccount{}, ErrAccountExists
		}
	}

	isDefault := req.IsDefault || !hasAny
	if isDefault {
		for i := range s.accounts {
			if s.accounts[i].UserID == userID {
				s.accounts[i].IsDefault = false
			}
		}
	}

	s.nextAccountID++
	acc := api.BankAccount{
		ID:            s.nextAccountID,
		BankID:        bank.ID,
		BankName:      bank.Name,
		AccountNumber: req.AccountNumber,
		AccountName:   req.AccountName,
		IsVerified:    false,
		IsDefault:     isDefault,
	}
	s.accounts = append(s.accounts, storedAccount{BankAccount: acc, UserID: userID})
	return acc, nil
}

// BankAccounts lists the accounts of userID in creation order.
func (s *Store) BankAccounts(userID int64) []api.BankAccount {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := []api.BankAccount{}
	for _, acc := range s.accounts {
		if acc.UserID == userID {
			res = append(res, acc.BankAccount)
		}
	}
	return res
}

// VerifyBankAccount marks an account as verified, as an admin would.
func (s *Store) VerifyBankAccount(accountID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.accounts {
		if s.accounts[i].ID == accountID {
			s.accounts[i].IsVerified = true
			return nil
		}
	}
	return ErrNotFound
}

func (s *Store) Balance(userID int64) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bal, ok := s.wallets[userID]
	if !ok {
		return decimal.Zero, ErrNotFound
	}
	return bal, nil
}

func (s *Store) SetBalance(userID int64, balance decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.wallets[userID]; !ok {
		return ErrNotFound
	}
	s.wallets[userID] = balance
	return nil
}

// Withdraw debits amount from the wallet of userID.
func (s *Store) Withdraw(userID int64, amount decimal.Decimal) (Withdrawal, error) {
	if !amount.IsPositive() {
		return Withdrawal{}, ErrInvalidAmount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bal, ok := s.wallets[userID]
	if !ok {
		return Withdrawal{}, ErrNotFound
	}
	if bal.LessThan(amount) {
		return Withdrawal{}, ErrInsufficientFunds
	}

	w := Withdrawal{
		TransactionID:   ids.New(),
		UserID:          userID,
		Amount:          amount,
		PreviousBalance: bal,
		NewBalance:      bal.Sub(amount),
		CreatedAt:       time.Now().UTC(),
	}
	s.wallets[userID] = w.NewBalance
	s.withdrawals = append(s.withdrawals, w)
	return w, nil
}

// Withdrawals returns the withdrawals of userID in order.
func (s *Store) Withdrawals(userID int64) []Withdrawal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []Withdrawal
	for _, w := range s.withdrawals {
		if w.UserID == userID {
			res = append(res, w)
		}
	}
	return res
}
