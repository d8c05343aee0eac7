package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"profitshare-hertz/biz/basic"
	"profitshare-hertz/biz/dal/memory"
	"profitshare-hertz/biz/model"
)

type stubGraph struct {
	first  []string
	second []string
}

func (g *stubGraph) FirstGeneration(ctx context.Context, userID string) ([]string, error) {
	return g.first, nil
}

func (g *stubGraph) SecondGeneration(ctx context.Context, userID string) ([]string, error) {
	return g.second, nil
}

// failingRecordStore 第 failOn 次 Create 返回错误，用于触发回滚
type failingRecordStore struct {
	*memory.RecordStore
	failOn int
	calls  int
}

func (s *failingRecordStore) Create(ctx context.Context, rec *model.CommissionRecord) error {
	s.calls++
	if s.calls == s.failOn {
		return basic.DBFailedErr
	}
	return s.RecordStore.Create(ctx, rec)
}

func newTestEngine(graph ReferralGraph) (*CommissionEngine, *WalletLedger, *memory.RecordStore) {
	wallets := memory.NewWalletStore()
	records := memory.NewRecordStore()
	states := memory.NewTradeStateStore()
	ledger := NewWalletLedger(wallets)
	engine := NewCommissionEngine(ledger, records, states, graph, DefaultCommissionRates())
	return engine, ledger, records
}

func TestProcessTradeProfitDistribution(t *testing.T) {
	graph := &stubGraph{first: []string{"ref1"}, second: []string{"ref2"}}
	engine, ledger, records := newTestEngine(graph)
	ctx := context.Background()

	err := engine.ProcessTradeProfit(ctx, "trader", "strat1", "trade1", mustDecimal(t, "1000"))
	if err != nil {
		t.Fatalf("ProcessTradeProfit failed: %v", err)
	}

	trader, _ := ledger.GetWallet(ctx, "trader")
	if !trader.Balance.Equal(mustDecimal(t, "900")) {
		t.Errorf("trader balance = %s, want 900", trader.Balance)
	}
	ref1, _ := ledger.GetWallet(ctx, "ref1")
	if !ref1.Balance.Equal(mustDecimal(t, "200")) {
		t.Errorf("ref1 balance = %s, want 200", ref1.Balance)
	}
	ref2, _ := ledger.GetWallet(ctx, "ref2")
	if !ref2.Balance.Equal(mustDecimal(t, "100")) {
		t.Errorf("ref2 balance = %s, want 100", ref2.Balance)
	}

	recs, _ := records.ListAll(ctx)
	if len(recs) != 4 {
		t.Fatalf("record count = %d, want 4", len(recs))
	}
	var platformFee, userNet decimal.Decimal
	for _, rec := range recs {
		if rec.Status != model.RecordStatusCompleted {
			t.Errorf("record %s status = %s, want completed", rec.RecordID, rec.Status)
		}
		if rec.TradeID != "trade1" {
			t.Errorf("record %s trade_id = %s", rec.RecordID, rec.TradeID)
		}
		switch {
		case rec.Type == model.RecordTypePlatform:
			platformFee = rec.Amount
			if rec.UserID != model.PlatformAccountID {
				t.Errorf("platform record user = %s", rec.UserID)
			}
		case rec.Type == model.RecordTypeTeam && rec.Generation == 0:
			userNet = rec.Amount
		}
	}
	if !platformFee.Equal(mustDecimal(t, "100")) {
		t.Errorf("platform fee = %s, want 100", platformFee)
	}
	// platformFee + userNet 必须严格等于利润
	if !platformFee.Add(userNet).Equal(mustDecimal(t, "1000")) {
		t.Errorf("fee + net = %s, want 1000", platformFee.Add(userNet))
	}
}

func TestProcessTradeProfitConservation(t *testing.T) {
	graph := &stubGraph{}
	engine, ledger, _ := newTestEngine(graph)
	ctx := context.Background()

	// 带小数的利润也必须精确守恒
	profit := mustDecimal(t, "333.33")
	if err := engine.ProcessTradeProfit(ctx, "trader", "s", "trade-frac", profit); err != nil {
		t.Fatalf("ProcessTradeProfit failed: %v", err)
	}
	fee := profit.Mul(mustDecimal(t, "0.10")).Round(2)
	trader, _ := ledger.GetWallet(ctx, "trader")
	if !trader.Balance.Add(fee).Equal(profit) {
		t.Errorf("userNet(%s) + fee(%s) != profit(%s)", trader.Balance, fee, profit)
	}
}

func TestProcessTradeProfitIdempotent(t *testing.T) {
	graph := &stubGraph{first: []string{"ref1"}}
	engine, ledger, records := newTestEngine(graph)
	ctx := context.Background()

	if err := engine.ProcessTradeProfit(ctx, "trader", "s", "trade1", mustDecimal(t, "1000")); err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	err := engine.ProcessTradeProfit(ctx, "trader", "s", "trade1", mustDecimal(t, "1000"))
	if !basic.Is(err, basic.DuplicateTradeErr) {
		t.Fatalf("second call err = %v, want DuplicateTradeErr", err)
	}

	trader, _ := ledger.GetWallet(ctx, "trader")
	if !trader.Balance.Equal(mustDecimal(t, "900")) {
		t.Errorf("trader balance = %s, want 900 after duplicate call", trader.Balance)
	}
	recs, _ := records.ListAll(ctx)
	if len(recs) != 3 {
		t.Errorf("record count = %d, want 3 after duplicate call", len(recs))
	}
}

func TestProcessTradeProfitRejectsBadParams(t *testing.T) {
	engine, _, _ := newTestEngine(&stubGraph{})
	ctx := context.Background()

	if err := engine.ProcessTradeProfit(ctx, "", "s", "t1", mustDecimal(t, "10")); !basic.Is(err, basic.ParamsErr) {
		t.Errorf("empty user err = %v, want ParamsErr", err)
	}
	if err := engine.ProcessTradeProfit(ctx, "u", "s", "", mustDecimal(t, "10")); !basic.Is(err, basic.ParamsErr) {
		t.Errorf("empty trade err = %v, want ParamsErr", err)
	}
	if err := engine.ProcessTradeProfit(ctx, "u", "s", "t1", decimal.Zero); !basic.Is(err, basic.ParamsErr) {
		t.Errorf("zero profit err = %v, want ParamsErr", err)
	}
}

func TestProcessTradeProfitRollbackOnFailure(t *testing.T) {
	wallets := memory.NewWalletStore()
	records := &failingRecordStore{RecordStore: memory.NewRecordStore(), failOn: 3}
	states := memory.NewTradeStateStore()
	ledger := NewWalletLedger(wallets)
	graph := &stubGraph{first: []string{"ref1"}}
	engine := NewCommissionEngine(ledger, records, states, graph, DefaultCommissionRates())
	ctx := context.Background()

	// 第三步（一代佣金）落流水失败，前两步必须回滚
	err := engine.ProcessTradeProfit(ctx, "trader", "s", "trade1", mustDecimal(t, "1000"))
	if err == nil {
		t.Fatal("expected distribution failure")
	}

	trader, werr := ledger.GetWallet(ctx, "trader")
	if werr == nil && !trader.Balance.IsZero() {
		t.Errorf("trader balance = %s after rollback, want 0", trader.Balance)
	}
	if _, werr := ledger.GetWallet(ctx, "ref1"); werr == nil {
		ref1, _ := ledger.GetWallet(ctx, "ref1")
		if !ref1.Balance.IsZero() {
			t.Errorf("ref1 balance = %s after rollback, want 0", ref1.Balance)
		}
	}
	for _, rec := range listAll(t, records.RecordStore) {
		if rec.Status == model.RecordStatusCompleted {
			t.Errorf("record %s still completed after rollback", rec.RecordID)
		}
	}

	// 回滚后的 tradeId 不再接受重放
	err = engine.ProcessTradeProfit(ctx, "trader", "s", "trade1", mustDecimal(t, "1000"))
	if !basic.Is(err, basic.StateMutationErr) {
		t.Errorf("replay after rollback err = %v, want StateMutationErr", err)
	}
}

func TestProcessTradeProfitPublishesRecords(t *testing.T) {
	graph := &stubGraph{first: []string{"ref1"}, second: []string{"ref2"}}
	engine, _, _ := newTestEngine(graph)

	var published []*model.CommissionRecord
	engine.SetPublisher(func(rec *model.CommissionRecord) {
		published = append(published, rec)
	})

	if err := engine.ProcessTradeProfit(context.Background(), "trader", "s", "trade1", mustDecimal(t, "1000")); err != nil {
		t.Fatalf("ProcessTradeProfit failed: %v", err)
	}
	if len(published) != 4 {
		t.Errorf("published %d records, want 4", len(published))
	}
}

func listAll(t *testing.T, records *memory.RecordStore) []*model.CommissionRecord {
	t.Helper()
	recs, err := records.ListAll(context.Background())
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	return recs
}
