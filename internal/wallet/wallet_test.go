package wallet

import (
	"path/filepath"
	"testing"
)

func TestInitIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	if err := s.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := s.AppendBurn(BurnRecord{ID: "1", BurnKey: "7", Fee: "0", Spend: "0", Network: "anvil"}); err != nil {
		t.Fatalf("AppendBurn: %v", err)
	}
	if err := s.Init(); err != nil {
		t.Fatalf("second Init: %v", err)
	}
	records, err := s.ListBurns()
	if err != nil {
		t.Fatalf("ListBurns: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("Init on a non-empty store changed its contents: got %d records", len(records))
	}
}

func TestNextIDIsLengthPlusOne(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	if err := s.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	id, err := s.NextBurnID()
	if err != nil {
		t.Fatalf("NextBurnID: %v", err)
	}
	if id != "1" {
		t.Fatalf("expected id 1 for an empty store, got %s", id)
	}
	if err := s.AppendBurn(BurnRecord{ID: id, BurnKey: "1", Network: "anvil"}); err != nil {
		t.Fatalf("AppendBurn: %v", err)
	}
	id2, err := s.NextBurnID()
	if err != nil {
		t.Fatalf("NextBurnID: %v", err)
	}
	if id2 != "2" {
		t.Fatalf("expected id 2 after one append, got %s", id2)
	}
}

func TestAppendCoinPersists(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	if err := s.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := s.AppendCoin(CoinRecord{ID: "1", BurnKey: "1", Amount: "1000", Network: "anvil"}); err != nil {
		t.Fatalf("AppendCoin: %v", err)
	}
	coins, err := s.ListCoins()
	if err != nil {
		t.Fatalf("ListCoins: %v", err)
	}
	if len(coins) != 1 || coins[0].Amount != "1000" {
		t.Fatalf("unexpected coins after append: %+v", coins)
	}
}

func TestWriteAtomicLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	if err := s.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if err := s.AppendBurn(BurnRecord{ID: "1", BurnKey: "1", Network: "anvil"}); err != nil {
		t.Fatalf("AppendBurn: %v", err)
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*.tmp-*"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("expected no leftover temp files, found %v", matches)
	}
}

func TestSummarizeCounts(t *testing.T) {
	dir := t.TempDir()
	s := New(dir)
	if err := s.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	_ = s.AppendBurn(BurnRecord{ID: "1", Network: "anvil"})
	_ = s.AppendCoin(CoinRecord{ID: "1", Network: "anvil"})
	_ = s.AppendCoin(CoinRecord{ID: "2", Network: "anvil"})
	summary, err := s.Summarize()
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if summary.BurnCount != 1 || summary.CoinCount != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}
