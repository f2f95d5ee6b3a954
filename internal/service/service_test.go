package service

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/predixlabs/forecast-ledger/internal/domain"
)

// The service tests run against an in-memory transactional fake of the store
// layer. Each InTx call works on a deep copy of the state; the copy replaces
// the live state only when the closure succeeds, which gives the tests real
// rollback semantics without a database.

type betID struct {
	voter     common.Hash
	marketKey uint64
	answerKey uint64
}

type deliveryID struct {
	chainID  uint16
	sequence uint64
}

type memState struct {
	config    *domain.PlatformConfig
	markets   map[uint64]domain.Market
	answers   map[uint64]map[uint64]domain.Answer
	bets      map[betID]domain.Bet
	crossBets map[deliveryID]domain.CrossChainBet
	replays   map[deliveryID]bool
	balances  map[common.Hash]map[common.Hash]uint64
	mints     map[common.Hash]domain.MintInfo
}

func newMemState() *memState {
	return &memState{
		markets:   make(map[uint64]domain.Market),
		answers:   make(map[uint64]map[uint64]domain.Answer),
		bets:      make(map[betID]domain.Bet),
		crossBets: make(map[deliveryID]domain.CrossChainBet),
		replays:   make(map[deliveryID]bool),
		balances:  make(map[common.Hash]map[common.Hash]uint64),
		mints:     make(map[common.Hash]domain.MintInfo),
	}
}

func (st *memState) clone() *memState {
	c := newMemState()
	if st.config != nil {
		cfg := *st.config
		c.config = &cfg
	}
	for k, v := range st.markets {
		c.markets[k] = v
	}
	for mk, reg := range st.answers {
		inner := make(map[uint64]domain.Answer, len(reg))
		for ak, a := range reg {
			inner[ak] = a
		}
		c.answers[mk] = inner
	}
	for k, v := range st.bets {
		c.bets[k] = v
	}
	for k, v := range st.crossBets {
		c.crossBets[k] = v
	}
	for k, v := range st.replays {
		c.replays[k] = v
	}
	for mint, holders := range st.balances {
		inner := make(map[common.Hash]uint64, len(holders))
		for h, amt := range holders {
			inner[h] = amt
		}
		c.balances[mint] = inner
	}
	for k, v := range st.mints {
		c.mints[k] = v
	}
	return c
}

func (st *memState) stores() domain.Stores {
	return domain.Stores{
		Config:         (*memConfigStore)(st),
		Markets:        (*memMarketStore)(st),
		Answers:        (*memAnswerStore)(st),
		Bets:           (*memBetStore)(st),
		CrossChainBets: (*memCrossChainStore)(st),
		Replays:        (*memReplayStore)(st),
		Balances:       (*memBalanceStore)(st),
		Mints:          (*memMintStore)(st),
	}
}

// memTx commits the cloned state only when fn succeeds.
type memTx struct {
	mu    sync.Mutex
	state *memState
}

func (t *memTx) InTx(ctx context.Context, fn func(ctx context.Context, s domain.Stores) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	work := t.state.clone()
	if err := fn(ctx, work.stores()); err != nil {
		return err
	}
	t.state = work
	return nil
}

type memConfigStore memState

func (s *memConfigStore) Get(_ context.Context) (domain.PlatformConfig, error) {
	if s.config == nil {
		return domain.PlatformConfig{}, domain.ErrNotInitialized
	}
	return *s.config, nil
}

func (s *memConfigStore) Put(_ context.Context, cfg domain.PlatformConfig) error {
	s.config = &cfg
	return nil
}

type memMarketStore memState

func (s *memMarketStore) Create(_ context.Context, m domain.Market) error {
	if _, ok := s.markets[m.Key]; ok {
		return domain.ErrMarketExists
	}
	s.markets[m.Key] = m
	return nil
}

func (s *memMarketStore) Get(_ context.Context, key uint64) (domain.Market, error) {
	m, ok := s.markets[key]
	if !ok {
		return domain.Market{}, domain.ErrNotFound
	}
	return m, nil
}

func (s *memMarketStore) GetForUpdate(ctx context.Context, key uint64) (domain.Market, error) {
	return s.Get(ctx, key)
}

func (s *memMarketStore) Update(_ context.Context, m domain.Market) error {
	if _, ok := s.markets[m.Key]; !ok {
		return domain.ErrNotFound
	}
	s.markets[m.Key] = m
	return nil
}

func (s *memMarketStore) ListTerminalBefore(_ context.Context, cutoff time.Time, limit int) ([]domain.Market, error) {
	var out []domain.Market
	for _, m := range s.markets {
		switch m.Status {
		case domain.MarketStatusSuccess:
			if m.SucceededAt.Before(cutoff) {
				out = append(out, m)
			}
		case domain.MarketStatusAdjourned:
			if m.AdjournedAt.Before(cutoff) {
				out = append(out, m)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memAnswerStore memState

func (s *memAnswerStore) Add(_ context.Context, a domain.Answer) error {
	reg := s.answers[a.MarketKey]
	if reg == nil {
		reg = make(map[uint64]domain.Answer)
		s.answers[a.MarketKey] = reg
	}
	if _, ok := reg[a.Key]; ok {
		return domain.ErrAnswerExists
	}
	reg[a.Key] = a
	return nil
}

func (s *memAnswerStore) Get(_ context.Context, marketKey, answerKey uint64) (domain.Answer, error) {
	a, ok := s.answers[marketKey][answerKey]
	if !ok {
		return domain.Answer{}, domain.ErrNotFound
	}
	return a, nil
}

func (s *memAnswerStore) List(_ context.Context, marketKey uint64) ([]domain.Answer, error) {
	reg := s.answers[marketKey]
	out := make([]domain.Answer, 0, len(reg))
	for _, a := range reg {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *memAnswerStore) Count(_ context.Context, marketKey uint64) (int, error) {
	return len(s.answers[marketKey]), nil
}

func (s *memAnswerStore) AddStake(_ context.Context, marketKey, answerKey, amount uint64) error {
	a, ok := s.answers[marketKey][answerKey]
	if !ok {
		return domain.ErrNotFound
	}
	a.TotalStaked += amount
	s.answers[marketKey][answerKey] = a
	return nil
}

type memBetStore memState

func (s *memBetStore) Get(_ context.Context, voter common.Hash, marketKey, answerKey uint64) (domain.Bet, error) {
	b, ok := s.bets[betID{voter, marketKey, answerKey}]
	if !ok {
		return domain.Bet{}, domain.ErrNotFound
	}
	return b, nil
}

func (s *memBetStore) GetForUpdate(ctx context.Context, voter common.Hash, marketKey, answerKey uint64) (domain.Bet, error) {
	return s.Get(ctx, voter, marketKey, answerKey)
}

func (s *memBetStore) Upsert(_ context.Context, b domain.Bet) error {
	s.bets[betID{b.Voter, b.MarketKey, b.AnswerKey}] = b
	return nil
}

func (s *memBetStore) ListByMarket(_ context.Context, marketKey uint64) ([]domain.Bet, error) {
	var out []domain.Bet
	for id, b := range s.bets {
		if id.marketKey == marketKey {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *memBetStore) ListByVoter(_ context.Context, voter common.Hash, marketKey uint64) ([]domain.Bet, error) {
	var out []domain.Bet
	for id, b := range s.bets {
		if id.voter == voter && id.marketKey == marketKey {
			out = append(out, b)
		}
	}
	return out, nil
}

type memCrossChainStore memState

func (s *memCrossChainStore) Create(_ context.Context, b domain.CrossChainBet) error {
	id := deliveryID{b.ChainID, b.Sequence}
	if _, ok := s.crossBets[id]; ok {
		return domain.ErrAlreadyProcessed
	}
	s.crossBets[id] = b
	return nil
}

func (s *memCrossChainStore) Get(_ context.Context, chainID uint16, sequence uint64) (domain.CrossChainBet, error) {
	b, ok := s.crossBets[deliveryID{chainID, sequence}]
	if !ok {
		return domain.CrossChainBet{}, domain.ErrNotFound
	}
	return b, nil
}

func (s *memCrossChainStore) ListByMarket(_ context.Context, marketKey uint64) ([]domain.CrossChainBet, error) {
	var out []domain.CrossChainBet
	for _, b := range s.crossBets {
		if b.MarketKey == marketKey {
			out = append(out, b)
		}
	}
	return out, nil
}

type memReplayStore memState

func (s *memReplayStore) Mark(_ context.Context, chainID uint16, sequence uint64) error {
	id := deliveryID{chainID, sequence}
	if s.replays[id] {
		return domain.ErrAlreadyProcessed
	}
	s.replays[id] = true
	return nil
}

type memBalanceStore memState

func (s *memBalanceStore) Transfer(_ context.Context, mint, from, to common.Hash, amount uint64) error {
	if amount == 0 {
		return nil
	}
	holders := s.balances[mint]
	if holders[from] < amount {
		return domain.ErrInsufficientFunds
	}
	holders[from] -= amount
	holders[to] += amount
	return nil
}

func (s *memBalanceStore) Deposit(_ context.Context, mint, to common.Hash, amount uint64) error {
	holders := s.balances[mint]
	if holders == nil {
		holders = make(map[common.Hash]uint64)
		s.balances[mint] = holders
	}
	holders[to] += amount
	return nil
}

func (s *memBalanceStore) Balance(_ context.Context, mint, holder common.Hash) (uint64, error) {
	return s.balances[mint][holder], nil
}

type memMintStore memState

func (s *memMintStore) Get(_ context.Context, mint common.Hash) (domain.MintInfo, error) {
	if info, ok := s.mints[mint]; ok {
		return info, nil
	}
	return domain.MintInfo{Mint: mint}, nil
}

func (s *memMintStore) Put(_ context.Context, info domain.MintInfo) error {
	s.mints[info.Mint] = info
	return nil
}

// feeFreeCalculator stands in for the mint fee calculator in tests that do
// not exercise fee-on-transfer behavior.
type feeFreeCalculator struct{}

func (feeFreeCalculator) TransferFee(context.Context, common.Hash, uint64) (uint64, error) {
	return 0, nil
}

func (feeFreeCalculator) InverseTransferFee(context.Context, common.Hash, uint64) (uint64, error) {
	return 0, nil
}

// flatFeeCalculator charges a fixed fee on every transfer, both directions.
type flatFeeCalculator struct{ fee uint64 }

func (c flatFeeCalculator) TransferFee(context.Context, common.Hash, uint64) (uint64, error) {
	return c.fee, nil
}

func (c flatFeeCalculator) InverseTransferFee(context.Context, common.Hash, uint64) (uint64, error) {
	return c.fee, nil
}

// memBus records published events so tests can assert on post-commit fanout.
type memBus struct {
	mu        sync.Mutex
	published []string // channel names in publish order
}

func (b *memBus) Publish(_ context.Context, channel string, _ []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, channel)
	return nil
}

func (b *memBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	return nil, nil
}

func (b *memBus) StreamAppend(context.Context, string, []byte) error {
	return nil
}

func (b *memBus) channels() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.published...)
}

// fixture bundles the services under test over one shared in-memory state.
type fixture struct {
	tx      *memTx
	bus     *memBus
	admin   *AdminService
	betting *BettingService
	relay   *RelayService
	now     time.Time
}

var (
	testOwner      = common.HexToHash("0x01")
	testVoter      = common.HexToHash("0x02")
	testVoterB     = common.HexToHash("0x03")
	testCreator    = common.HexToHash("0x04")
	testStakeMint  = common.HexToHash("0x10")
	testRewardMint = common.HexToHash("0x11")
	testServiceAcc = common.HexToHash("0x20")
	testTreasury   = common.HexToHash("0x21")
)

func newFixture(t *testing.T, fees domain.FeeCalculator) *fixture {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)
	tx := &memTx{state: newMemState()}
	bus := &memBus{}
	events := NewEventPublisher(bus, logger)

	f := &fixture{
		tx:      tx,
		bus:     bus,
		admin:   NewAdminService(tx, events, logger),
		betting: NewBettingService(tx, fees, events, logger),
		relay:   NewRelayService(tx, events, logger),
		now:     time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
	f.admin.now = f.clock()
	f.betting.now = f.clock()
	f.relay.now = f.clock()
	return f
}

func (f *fixture) clock() func() time.Time {
	return func() time.Time { return f.now }
}

// advance moves the fixture clock forward.
func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func (f *fixture) state() *memState {
	return f.tx.state
}

func (f *fixture) market(t *testing.T, key uint64) domain.Market {
	t.Helper()
	m, ok := f.state().markets[key]
	if !ok {
		t.Fatalf("market %d not found", key)
	}
	return m
}

func (f *fixture) balance(mint, holder common.Hash) uint64 {
	return f.state().balances[mint][holder]
}

func (f *fixture) deposit(mint, holder common.Hash, amount uint64) {
	holders := f.state().balances[mint]
	if holders == nil {
		holders = make(map[common.Hash]uint64)
		f.state().balances[mint] = holders
	}
	holders[holder] += amount
}

// initConfig installs the standard platform config with the given reward APR.
func (f *fixture) initConfig(t *testing.T, aprBP uint64) {
	t.Helper()
	err := f.admin.InitializeConfig(context.Background(), InitializeConfigParams{
		Owner:             testOwner,
		RewardMint:        testRewardMint,
		RewardAPRBP:       aprBP,
		ServiceFeeAccount: testServiceAcc,
		TreasuryAccount:   testTreasury,
	})
	if err != nil {
		t.Fatalf("InitializeConfig: %v", err)
	}
}

// draftApproved drafts a market with the standard fee config, registers the
// given answers and approves it.
func (f *fixture) draftApproved(t *testing.T, key uint64, answers ...uint64) {
	t.Helper()
	ctx := context.Background()
	err := f.admin.DraftMarket(ctx, testOwner, DraftMarketParams{
		Key:           key,
		Creator:       testCreator,
		StakeMint:     testStakeMint,
		Title:         "will it settle",
		CreatorFeeBP:  500,
		PlatformFeeBP: 200,
	})
	if err != nil {
		t.Fatalf("DraftMarket: %v", err)
	}
	if err := f.admin.AddAnswers(ctx, testOwner, key, answers); err != nil {
		t.Fatalf("AddAnswers: %v", err)
	}
	if err := f.admin.ApproveMarket(ctx, testOwner, key); err != nil {
		t.Fatalf("ApproveMarket: %v", err)
	}
}
