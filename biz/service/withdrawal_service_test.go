package service

import (
	"context"
	"sync"
	"testing"

	"profitshare-hertz/biz/basic"
	"profitshare-hertz/biz/dal/memory"
	"profitshare-hertz/biz/model"
)

func newTestWithdrawal(t *testing.T) (*WithdrawalService, *WalletLedger, *memory.RecordStore) {
	t.Helper()
	wallets := memory.NewWalletStore()
	records := memory.NewRecordStore()
	ledger := NewWalletLedger(wallets)
	return NewWithdrawalService(ledger, records), ledger, records
}

func TestRequestWithdrawalInsufficient(t *testing.T) {
	svc, ledger, records := newTestWithdrawal(t)
	ctx := context.Background()

	_ = ledger.Credit(ctx, "user1", mustDecimal(t, "300"), true)
	_, err := svc.RequestWithdrawal(ctx, "user1", mustDecimal(t, "500"))
	if !basic.Is(err, basic.InsufficientBalanceErr) {
		t.Fatalf("err = %v, want InsufficientBalanceErr", err)
	}

	w, _ := ledger.GetWallet(ctx, "user1")
	if !w.Balance.Equal(mustDecimal(t, "300")) || !w.Frozen.IsZero() {
		t.Errorf("wallet changed: balance=%s frozen=%s", w.Balance, w.Frozen)
	}
	recs, _ := records.ListAll(ctx)
	if len(recs) != 0 {
		t.Errorf("record count = %d, want 0", len(recs))
	}
}

func TestWithdrawalHappyPath(t *testing.T) {
	svc, ledger, _ := newTestWithdrawal(t)
	ctx := context.Background()

	_ = ledger.Credit(ctx, "user1", mustDecimal(t, "1000"), true)
	rec, err := svc.RequestWithdrawal(ctx, "user1", mustDecimal(t, "400"))
	if err != nil {
		t.Fatalf("RequestWithdrawal failed: %v", err)
	}
	if rec.Type != model.RecordTypeWithdrawal || rec.Status != model.RecordStatusPending {
		t.Errorf("record type=%s status=%s", rec.Type, rec.Status)
	}
	if !rec.Amount.Equal(mustDecimal(t, "-400")) {
		t.Errorf("record amount = %s, want -400", rec.Amount)
	}

	w, _ := ledger.GetWallet(ctx, "user1")
	if !w.Balance.Equal(mustDecimal(t, "600")) || !w.Frozen.Equal(mustDecimal(t, "400")) {
		t.Fatalf("after request: balance=%s frozen=%s", w.Balance, w.Frozen)
	}

	if err := svc.CompleteWithdrawal(ctx, rec.RecordID); err != nil {
		t.Fatalf("CompleteWithdrawal failed: %v", err)
	}
	w, _ = ledger.GetWallet(ctx, "user1")
	if !w.Frozen.IsZero() {
		t.Errorf("frozen = %s, want 0", w.Frozen)
	}
	if !w.TotalWithdrawal.Equal(mustDecimal(t, "400")) {
		t.Errorf("total_withdrawal = %s, want 400", w.TotalWithdrawal)
	}
	if !w.Balance.Equal(mustDecimal(t, "600")) {
		t.Errorf("balance = %s, want 600", w.Balance)
	}
}

func TestCompleteWithdrawalTwiceRejected(t *testing.T) {
	svc, ledger, _ := newTestWithdrawal(t)
	ctx := context.Background()

	_ = ledger.Credit(ctx, "user1", mustDecimal(t, "1000"), true)
	rec, _ := svc.RequestWithdrawal(ctx, "user1", mustDecimal(t, "400"))
	if err := svc.CompleteWithdrawal(ctx, rec.RecordID); err != nil {
		t.Fatalf("CompleteWithdrawal failed: %v", err)
	}
	err := svc.CompleteWithdrawal(ctx, rec.RecordID)
	if !basic.Is(err, basic.StateMutationErr) {
		t.Errorf("second complete err = %v, want StateMutationErr", err)
	}
}

func TestCompleteWithdrawalConcurrent(t *testing.T) {
	svc, ledger, _ := newTestWithdrawal(t)
	ctx := context.Background()

	// 两笔各 400 的待处理提现，同一笔被并发 complete 也只能落定一次，
	// 另一笔的冻结资金不能被吃掉
	_ = ledger.Credit(ctx, "user1", mustDecimal(t, "1000"), true)
	rec, _ := svc.RequestWithdrawal(ctx, "user1", mustDecimal(t, "400"))
	other, _ := svc.RequestWithdrawal(ctx, "user1", mustDecimal(t, "400"))

	const n = 8
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- svc.CompleteWithdrawal(ctx, rec.RecordID)
		}()
	}
	wg.Wait()
	close(errs)

	ok := 0
	for err := range errs {
		if err == nil {
			ok++
		} else if !basic.Is(err, basic.StateMutationErr) {
			t.Errorf("unexpected err: %v", err)
		}
	}
	if ok != 1 {
		t.Fatalf("complete succeeded %d times, want exactly 1", ok)
	}

	w, _ := ledger.GetWallet(ctx, "user1")
	if !w.TotalWithdrawal.Equal(mustDecimal(t, "400")) {
		t.Errorf("total_withdrawal = %s, want 400", w.TotalWithdrawal)
	}
	if !w.Frozen.Equal(mustDecimal(t, "400")) {
		t.Errorf("frozen = %s, want 400 still held by the other pending withdrawal", w.Frozen)
	}

	if err := svc.CompleteWithdrawal(ctx, other.RecordID); err != nil {
		t.Fatalf("complete other failed: %v", err)
	}
	w, _ = ledger.GetWallet(ctx, "user1")
	if !w.Frozen.IsZero() || !w.TotalWithdrawal.Equal(mustDecimal(t, "800")) {
		t.Errorf("after both: frozen=%s total_withdrawal=%s", w.Frozen, w.TotalWithdrawal)
	}
}

func TestRejectWithdrawalReleasesFunds(t *testing.T) {
	svc, ledger, records := newTestWithdrawal(t)
	ctx := context.Background()

	_ = ledger.Credit(ctx, "user1", mustDecimal(t, "1000"), true)
	rec, _ := svc.RequestWithdrawal(ctx, "user1", mustDecimal(t, "400"))

	if err := svc.RejectWithdrawal(ctx, rec.RecordID); err != nil {
		t.Fatalf("RejectWithdrawal failed: %v", err)
	}
	w, _ := ledger.GetWallet(ctx, "user1")
	if !w.Balance.Equal(mustDecimal(t, "1000")) || !w.Frozen.IsZero() {
		t.Errorf("after reject: balance=%s frozen=%s", w.Balance, w.Frozen)
	}
	if !w.TotalWithdrawal.IsZero() {
		t.Errorf("total_withdrawal = %s, want 0", w.TotalWithdrawal)
	}
	stored, _ := records.Get(ctx, rec.RecordID)
	if stored.Status != model.RecordStatusFailed {
		t.Errorf("record status = %s, want failed", stored.Status)
	}
}

func TestWithdrawalNotFound(t *testing.T) {
	svc, _, _ := newTestWithdrawal(t)
	ctx := context.Background()

	if err := svc.CompleteWithdrawal(ctx, "missing"); !basic.Is(err, basic.NotFoundErr) {
		t.Errorf("complete err = %v, want NotFoundErr", err)
	}
	if err := svc.RejectWithdrawal(ctx, "missing"); !basic.Is(err, basic.NotFoundErr) {
		t.Errorf("reject err = %v, want NotFoundErr", err)
	}
}

func TestWithdrawalRejectsNonWithdrawalRecord(t *testing.T) {
	svc, _, records := newTestWithdrawal(t)
	ctx := context.Background()

	rec := &model.CommissionRecord{
		RecordID: "r1",
		UserID:   "user1",
		Type:     model.RecordTypeTeam,
		Amount:   mustDecimal(t, "100"),
		Status:   model.RecordStatusPending,
	}
	if err := records.Create(ctx, rec); err != nil {
		t.Fatalf("seed record failed: %v", err)
	}
	if err := svc.CompleteWithdrawal(ctx, "r1"); !basic.Is(err, basic.NotFoundErr) {
		t.Errorf("err = %v, want NotFoundErr for non-withdrawal record", err)
	}
}
