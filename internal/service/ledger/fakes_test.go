package ledger

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/finvault/walletd/internal/apperrors"
	"github.com/finvault/walletd/internal/events"
	"github.com/finvault/walletd/internal/models"
	"github.com/finvault/walletd/internal/repository"
)

var errInjected = errors.New("injected storage failure")

// memStorage is an in-memory repository.Storage. InTx snapshots the state
// and restores it when fn fails, mirroring the rollback the real storage
// gets from postgres. failUpdateBalanceOn injects a failure into the
// n-th UpdateBalance call (1-based) to exercise the rollback paths.
type memStorage struct {
	mu sync.Mutex

	users        map[uuid.UUID]models.User
	wallets      map[uuid.UUID]models.Wallet
	transactions map[uuid.UUID]models.Transaction
	txOrder      []uuid.UUID
	audits       []models.AuditRecord

	failUpdateBalanceOn int
	updateBalanceCalls  int
}

func newMemStorage() *memStorage {
	return &memStorage{
		users:        make(map[uuid.UUID]models.User),
		wallets:      make(map[uuid.UUID]models.Wallet),
		transactions: make(map[uuid.UUID]models.Transaction),
	}
}

func (m *memStorage) User() repository.UserRepo               { return memUserRepo{m} }
func (m *memStorage) Wallet() repository.WalletRepo           { return memWalletRepo{m} }
func (m *memStorage) Transaction() repository.TransactionRepo { return memTransactionRepo{m} }
func (m *memStorage) Audit() repository.AuditRepo             { return memAuditRepo{m} }

func (m *memStorage) InTx(_ context.Context, fn func(repository.Storage) error) error {
	m.mu.Lock()
	users := maps.Clone(m.users)
	wallets := maps.Clone(m.wallets)
	transactions := maps.Clone(m.transactions)
	txOrder := slices.Clone(m.txOrder)
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.users = users
		m.wallets = wallets
		m.transactions = transactions
		m.txOrder = txOrder
		m.mu.Unlock()
		return err
	}

	return nil
}

// addUser seeds a user bypassing registration
func (m *memStorage) addUser(email string) models.User {
	m.mu.Lock()
	defer m.mu.Unlock()

	user := models.User{
		ID:        uuid.New(),
		Email:     email,
		Name:      email,
		CreatedAt: time.Now(),
	}
	m.users[user.ID] = user
	return user
}

// setBalance seeds the user's wallet with the given balance
func (m *memStorage) setBalance(userID uuid.UUID, balance decimal.Decimal) models.Wallet {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, w := range m.wallets {
		if w.UserID == userID {
			w.Balance = balance
			m.wallets[id] = w
			return w
		}
	}

	wallet := models.Wallet{
		ID:        uuid.New(),
		UserID:    userID,
		Balance:   balance,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	m.wallets[wallet.ID] = wallet
	return wallet
}

type memUserRepo struct{ m *memStorage }

func (r memUserRepo) CreateUser(_ context.Context, arg repository.CreateUserParams) (models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, u := range r.m.users {
		if u.Email == arg.Email {
			return models.User{}, apperrors.ErrEmailTaken
		}
	}

	user := models.User{
		ID:             uuid.New(),
		Email:          arg.Email,
		Name:           arg.Name,
		HashedPassword: arg.HashedPassword,
		CreatedAt:      time.Now(),
	}
	r.m.users[user.ID] = user
	return user, nil
}

func (r memUserRepo) GetUserByID(_ context.Context, id uuid.UUID) (models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	user, ok := r.m.users[id]
	if !ok {
		return models.User{}, apperrors.ErrUserNotFound
	}
	return user, nil
}

func (r memUserRepo) GetUserByEmail(_ context.Context, email string) (models.User, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, u := range r.m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return models.User{}, apperrors.ErrUserNotFound
}

type memWalletRepo struct{ m *memStorage }

func (r memWalletRepo) CreateWallet(_ context.Context, userID uuid.UUID) (models.Wallet, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, w := range r.m.wallets {
		if w.UserID == userID {
			return w, nil
		}
	}

	wallet := models.Wallet{
		ID:        uuid.New(),
		UserID:    userID,
		Balance:   decimal.Zero,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	r.m.wallets[wallet.ID] = wallet
	return wallet, nil
}

func (r memWalletRepo) GetWalletByUserID(_ context.Context, userID uuid.UUID, _ bool) (models.Wallet, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	for _, w := range r.m.wallets {
		if w.UserID == userID {
			return w, nil
		}
	}
	return models.Wallet{}, apperrors.ErrWalletNotFound
}

func (r memWalletRepo) GetWalletByID(_ context.Context, id uuid.UUID, _ bool) (models.Wallet, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	wallet, ok := r.m.wallets[id]
	if !ok {
		return models.Wallet{}, apperrors.ErrWalletNotFound
	}
	return wallet, nil
}

func (r memWalletRepo) UpdateBalance(_ context.Context, id uuid.UUID, balance decimal.Decimal) (models.Wallet, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	r.m.updateBalanceCalls++
	if r.m.failUpdateBalanceOn != 0 && r.m.updateBalanceCalls == r.m.failUpdateBalanceOn {
		return models.Wallet{}, errInjected
	}

	wallet, ok := r.m.wallets[id]
	if !ok {
		return models.Wallet{}, apperrors.ErrWalletNotFound
	}

	wallet.Balance = balance
	wallet.UpdatedAt = time.Now()
	r.m.wallets[id] = wallet
	return wallet, nil
}

func (r memWalletRepo) DeleteWallet(_ context.Context, id uuid.UUID) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	if _, ok := r.m.wallets[id]; !ok {
		return apperrors.ErrWalletNotFound
	}
	delete(r.m.wallets, id)
	return nil
}

type memTransactionRepo struct{ m *memStorage }

func (r memTransactionRepo) CreateTransaction(_ context.Context, arg repository.CreateTransactionParams) (models.Transaction, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	tr := models.Transaction{
		ID:                    uuid.New(),
		WalletID:              arg.WalletID,
		SenderID:              arg.SenderID,
		ReceiverID:            arg.ReceiverID,
		Type:                  arg.Type,
		Status:                arg.Status,
		Amount:                arg.Amount,
		Description:           arg.Description,
		OriginalTransactionID: arg.OriginalTransactionID,
		CreatedAt:             time.Now(),
		UpdatedAt:             time.Now(),
	}
	r.m.transactions[tr.ID] = tr
	r.m.txOrder = append(r.m.txOrder, tr.ID)
	return tr, nil
}

func (r memTransactionRepo) GetTransactionByID(_ context.Context, id uuid.UUID) (models.Transaction, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	tr, ok := r.m.transactions[id]
	if !ok {
		return models.Transaction{}, apperrors.ErrTransactionNotFound
	}
	return tr, nil
}

func (r memTransactionRepo) UpdateTransaction(_ context.Context, arg repository.UpdateTransactionParams) (models.Transaction, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	tr, ok := r.m.transactions[arg.ID]
	if !ok {
		return models.Transaction{}, apperrors.ErrTransactionNotFound
	}

	tr.Status = arg.Status
	if arg.ReversedByID != nil {
		tr.ReversedByID = arg.ReversedByID
	}
	if arg.ReversedAt != nil {
		tr.ReversedAt = arg.ReversedAt
	}
	tr.UpdatedAt = time.Now()
	r.m.transactions[arg.ID] = tr
	return tr, nil
}

func (r memTransactionRepo) ListTransactions(_ context.Context, opts repository.ListTransactionsOpts) ([]models.Transaction, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	var result []models.Transaction
	skipped := 0
	for i := len(r.m.txOrder) - 1; i >= 0; i-- {
		tr := r.m.transactions[r.m.txOrder[i]]
		if tr.WalletID != opts.WalletID {
			continue
		}
		if skipped < opts.Offset {
			skipped++
			continue
		}
		result = append(result, tr)
		if len(result) == limit {
			break
		}
	}
	return result, nil
}

func (r memTransactionRepo) ListLinkedTransactions(_ context.Context, originalID uuid.UUID) ([]models.Transaction, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var result []models.Transaction
	for _, id := range r.m.txOrder {
		tr := r.m.transactions[id]
		if tr.OriginalTransactionID != nil && *tr.OriginalTransactionID == originalID {
			result = append(result, tr)
		}
	}
	return result, nil
}

type memAuditRepo struct{ m *memStorage }

func (r memAuditRepo) CreateRecord(_ context.Context, arg repository.CreateAuditRecordParams) (models.AuditRecord, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	record := models.AuditRecord{
		ID:            uuid.New(),
		EventID:       arg.EventID,
		EventType:     arg.EventType,
		TransactionID: arg.TransactionID,
		WalletID:      arg.WalletID,
		UserID:        arg.UserID,
		Payload:       arg.Payload,
		RecordedAt:    time.Now(),
	}
	r.m.audits = append(r.m.audits, record)
	return record, nil
}

func (r memAuditRepo) ListRecords(_ context.Context, eventType string, limit int) ([]models.AuditRecord, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()

	var result []models.AuditRecord
	for _, rec := range r.m.audits {
		if eventType != "" && rec.EventType != eventType {
			continue
		}
		result = append(result, rec)
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

// recordingPublisher collects published events in order
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	names := make([]string, 0, len(p.events))
	for _, e := range p.events {
		names = append(names, e.EventName())
	}
	return names
}
