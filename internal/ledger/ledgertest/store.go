// Package ledgertest provides an in-memory ledger.Store with real
// rollback semantics for engine tests.
package ledgertest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"simtrade/internal/ledger"
)

type state struct {
	players     map[uint]*ledger.Player
	accounts    map[uint]*ledger.Account
	holdings    map[string]*ledger.Holding
	trades      []ledger.Trade
	conversions []ledger.Conversion
	nextID      uint
}

func newState() *state {
	return &state{
		players:  make(map[uint]*ledger.Player),
		accounts: make(map[uint]*ledger.Account),
		holdings: make(map[string]*ledger.Holding),
		nextID:   1,
	}
}

// Store keeps the whole ledger in maps. Tx works on a deep copy that
// replaces the live state only when fn succeeds, mirroring the database
// rollback the engine relies on. The single mutex also serializes
// transactions the way row locks do for one player.
type Store struct {
	mu sync.Mutex
	st *state

	// injectable failures for mid-transaction rollback tests
	FailAppendTrade      error
	FailAppendConversion error
}

func New() *Store {
	return &Store{st: newState()}
}

func holdingKey(accountID uint, instrumentID string) string {
	return fmt.Sprintf("%d|%s", accountID, instrumentID)
}

func (s *state) clone() *state {
	c := newState()
	c.nextID = s.nextID
	for id, p := range s.players {
		cp := *p
		if p.LastTradeAt != nil {
			t := *p.LastTradeAt
			cp.LastTradeAt = &t
		}
		if p.LastActiveAt != nil {
			t := *p.LastActiveAt
			cp.LastActiveAt = &t
		}
		c.players[id] = &cp
	}
	for id, a := range s.accounts {
		ca := *a
		c.accounts[id] = &ca
	}
	for k, h := range s.holdings {
		ch := *h
		c.holdings[k] = &ch
	}
	c.trades = append([]ledger.Trade(nil), s.trades...)
	c.conversions = append([]ledger.Conversion(nil), s.conversions...)
	return c
}

func (s *Store) Tx(ctx context.Context, fn func(ledger.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(&memTx{st: work, store: s}); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *Store) Player(ctx context.Context, id uint) (*ledger.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.st.players[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Store) Players(ctx context.Context) ([]ledger.Player, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ledger.Player, 0, len(s.st.players))
	for _, p := range s.st.players {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) Account(ctx context.Context, id uint) (*ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.st.accounts[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	ca := *a
	return &ca, nil
}

func (s *Store) AccountsByPlayer(ctx context.Context, playerID uint) ([]ledger.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ledger.Account
	for _, a := range s.st.accounts {
		if a.PlayerID == playerID {
			out = append(out, *a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) HoldingsByAccount(ctx context.Context, accountID uint) ([]ledger.Holding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ledger.Holding
	for _, h := range s.st.holdings {
		if h.AccountID == accountID {
			out = append(out, *h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].InstrumentID < out[j].InstrumentID })
	return out, nil
}

func (s *Store) TradesByAccount(ctx context.Context, accountID uint, limit int) ([]ledger.Trade, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []ledger.Trade
	for i := len(s.st.trades) - 1; i >= 0; i-- {
		if s.st.trades[i].AccountID != accountID {
			continue
		}
		out = append(out, s.st.trades[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) CreatePlayer(ctx context.Context, p *ledger.Player) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == 0 {
		p.ID = s.st.nextID
		s.st.nextID++
	} else if p.ID >= s.st.nextID {
		s.st.nextID = p.ID + 1
	}
	cp := *p
	s.st.players[p.ID] = &cp
	return nil
}

func (s *Store) CreateAccount(ctx context.Context, a *ledger.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == 0 {
		a.ID = s.st.nextID
		s.st.nextID++
	} else if a.ID >= s.st.nextID {
		s.st.nextID = a.ID + 1
	}
	ca := *a
	s.st.accounts[a.ID] = &ca
	return nil
}

// Trades snapshots every recorded trade, oldest first.
func (s *Store) Trades() []ledger.Trade {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ledger.Trade(nil), s.st.trades...)
}

// Conversions snapshots every recorded conversion, oldest first.
func (s *Store) Conversions() []ledger.Conversion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]ledger.Conversion(nil), s.st.conversions...)
}

type memTx struct {
	st    *state
	store *Store
}

func (t *memTx) PlayerForUpdate(id uint) (*ledger.Player, error) {
	p, ok := t.st.players[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return p, nil
}

func (t *memTx) AccountForUpdate(id uint) (*ledger.Account, error) {
	a, ok := t.st.accounts[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return a, nil
}

func (t *memTx) HoldingForUpdate(accountID uint, instrumentID string) (*ledger.Holding, error) {
	return t.st.holdings[holdingKey(accountID, instrumentID)], nil
}

func (t *memTx) SavePlayer(p *ledger.Player) error {
	t.st.players[p.ID] = p
	return nil
}

func (t *memTx) SaveAccount(a *ledger.Account) error {
	if a.ID == 0 {
		a.ID = t.st.nextID
		t.st.nextID++
	}
	t.st.accounts[a.ID] = a
	return nil
}

func (t *memTx) SaveHolding(h *ledger.Holding) error {
	if h.ID == 0 {
		h.ID = t.st.nextID
		t.st.nextID++
	}
	t.st.holdings[holdingKey(h.AccountID, h.InstrumentID)] = h
	return nil
}

func (t *memTx) DeleteHolding(h *ledger.Holding) error {
	delete(t.st.holdings, holdingKey(h.AccountID, h.InstrumentID))
	return nil
}

func (t *memTx) AppendTrade(tr *ledger.Trade) error {
	if err := t.store.FailAppendTrade; err != nil {
		return err
	}
	t.st.trades = append(t.st.trades, *tr)
	return nil
}

func (t *memTx) AppendConversion(c *ledger.Conversion) error {
	if err := t.store.FailAppendConversion; err != nil {
		return err
	}
	t.st.conversions = append(t.st.conversions, *c)
	return nil
}
