package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/taxtracker/ledger/shared/models"
)

// ---- helpers ----

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(DriverSQLite, filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := Initialize(context.Background(), db, DriverSQLite); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return db
}

func newTestRepos(t *testing.T) (*LedgerWriteRepository, *LedgerReadRepository) {
	db := newTestDB(t)
	return NewLedgerWriteRepository(db), NewLedgerReadRepository(db, nil, 0)
}

func strPtr(s string) *string { return &s }

func addTx(t *testing.T, w *LedgerWriteRepository, kind, date string, data models.Payload) int64 {
	t.Helper()
	id, err := w.AddTransaction(context.Background(), &models.Transaction{
		Type: kind, Date: strPtr(date), Data: data, CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("add %s: %v", kind, err)
	}
	return id
}

func blankProfile() models.BusinessProfile {
	return models.BusinessProfile{
		ID: 1, Name: strPtr(""), RCNumber: strPtr(""), TIN: strPtr(""),
		FiscalYearStart: strPtr(FiscalYearStart(time.Now())),
	}
}

// ---- tests ----

func TestInitializeIsIdempotent(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	w := NewLedgerWriteRepository(db)
	r := NewLedgerReadRepository(db, nil, 0)

	want := models.BusinessProfile{
		ID: 1, Name: strPtr("Acme Ltd"), RCNumber: strPtr("RC123"), TIN: strPtr("TIN-9"),
		FiscalYearStart: strPtr("2024-04-01"),
	}
	if err := w.WriteProfile(ctx, &want); err != nil {
		t.Fatalf("write profile: %v", err)
	}
	if err := Initialize(ctx, db, DriverSQLite); err != nil {
		t.Fatalf("second initialize: %v", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM business_info`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected exactly one profile row, got %d", count)
	}
	got, err := r.ReadProfile(ctx)
	if err != nil {
		t.Fatalf("read profile: %v", err)
	}
	if !reflect.DeepEqual(*got, want) {
		t.Errorf("profile changed by re-initialize: got %+v want %+v", *got, want)
	}
}

func TestReadProfileDefaults(t *testing.T) {
	_, r := newTestRepos(t)
	got, err := r.ReadProfile(context.Background())
	if err != nil {
		t.Fatalf("read profile: %v", err)
	}
	if !reflect.DeepEqual(*got, blankProfile()) {
		t.Errorf("got %+v", *got)
	}
}

func TestWriteProfileStoresNullForMissingFields(t *testing.T) {
	ctx := context.Background()
	w, r := newTestRepos(t)

	if err := w.WriteProfile(ctx, &models.BusinessProfile{Name: strPtr("Only Name")}); err != nil {
		t.Fatalf("write profile: %v", err)
	}
	got, err := r.ReadProfile(ctx)
	if err != nil {
		t.Fatalf("read profile: %v", err)
	}
	if got.Name == nil || *got.Name != "Only Name" {
		t.Errorf("name: got %v", got.Name)
	}
	if got.RCNumber != nil || got.TIN != nil || got.FiscalYearStart != nil {
		t.Errorf("expected NULL fields, got %+v", got)
	}
}

func TestAddTransactionRoundTrip(t *testing.T) {
	ctx := context.Background()
	w, r := newTestRepos(t)

	payload := models.Payload{
		"amount":   json.Number("500"),
		"rate":     json.Number("0.075"),
		"big":      json.Number("9007199254740993"),
		"customer": "Acme",
		"paid":     true,
		"note":     nil,
		"items":    []any{"a", map[string]any{"qty": json.Number("2")}},
	}
	first := addTx(t, w, models.KindSale, "2024-03-01", payload)
	second := addTx(t, w, models.KindExpense, "2024-03-02", models.Payload{"amount": json.Number("20")})
	if second <= first {
		t.Fatalf("ids not increasing: %d then %d", first, second)
	}

	txs, err := r.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(txs))
	}
	got := txs[0]
	if got.ID != first || got.Type != models.KindSale || got.Date == nil || *got.Date != "2024-03-01" {
		t.Errorf("unexpected row %+v", got)
	}
	if !reflect.DeepEqual(got.Data, payload) {
		t.Errorf("payload round trip: got %#v want %#v", got.Data, payload)
	}
	if got.CreatedAt.IsZero() {
		t.Error("createdAt not set")
	}
}

func TestAddTransactionRejectsUnknownKind(t *testing.T) {
	w, r := newTestRepos(t)
	for _, kind := range []string{"refund", ""} {
		_, err := w.AddTransaction(context.Background(), &models.Transaction{Type: kind, CreatedAt: time.Now()})
		if err == nil || !strings.Contains(err.Error(), "CHECK constraint failed") {
			t.Errorf("kind %q: expected constraint violation, got %v", kind, err)
		}
	}
	txs, _ := r.ListTransactions(context.Background())
	if len(txs) != 0 {
		t.Errorf("rejected rows were stored: %+v", txs)
	}
}

func TestIDsAreNotReusedAfterDelete(t *testing.T) {
	ctx := context.Background()
	w, _ := newTestRepos(t)
	first := addTx(t, w, models.KindSale, "2024-01-01", nil)
	if err := w.DeleteTransaction(ctx, first); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := w.ClearAll(ctx, "2024-01-01"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if next := addTx(t, w, models.KindSale, "2024-01-02", nil); next <= first {
		t.Errorf("id %d reissued after %d", next, first)
	}
}

func TestUpdateTransaction(t *testing.T) {
	ctx := context.Background()
	w, r := newTestRepos(t)
	id := addTx(t, w, models.KindExpense, "2024-05-01", models.Payload{"amount": json.Number("10")})

	tests := []struct {
		name     string
		id       int64
		wantDate string
		wantData models.Payload
	}{
		{
			name:     "existing id overwrites date and payload",
			id:       id,
			wantDate: "2024-05-02",
			wantData: models.Payload{"amount": json.Number("12"), "vendor": "Shell"},
		},
		{
			name:     "missing id succeeds and changes nothing",
			id:       id + 100,
			wantDate: "2024-05-02",
			wantData: models.Payload{"amount": json.Number("12"), "vendor": "Shell"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := w.UpdateTransaction(ctx, tt.id, strPtr("2024-05-02"), models.Payload{"amount": json.Number("12"), "vendor": "Shell"})
			if err != nil {
				t.Fatalf("update: %v", err)
			}
			txs, err := r.ListTransactions(ctx)
			if err != nil {
				t.Fatalf("list: %v", err)
			}
			if len(txs) != 1 {
				t.Fatalf("expected 1 row, got %d", len(txs))
			}
			if txs[0].Type != models.KindExpense || *txs[0].Date != tt.wantDate || !reflect.DeepEqual(txs[0].Data, tt.wantData) {
				t.Errorf("got %+v", txs[0])
			}
		})
	}
}

func TestDeleteTransaction(t *testing.T) {
	ctx := context.Background()
	w, r := newTestRepos(t)
	keep := addTx(t, w, models.KindSale, "2024-01-01", nil)
	drop := addTx(t, w, models.KindSale, "2024-01-02", nil)

	if err := w.DeleteTransaction(ctx, drop+50); err != nil {
		t.Fatalf("delete missing id: %v", err)
	}
	txs, _ := r.ListTransactions(ctx)
	if len(txs) != 2 {
		t.Fatalf("missing-id delete changed the store: %d rows", len(txs))
	}

	if err := w.DeleteTransaction(ctx, drop); err != nil {
		t.Fatalf("delete: %v", err)
	}
	txs, _ = r.ListTransactions(ctx)
	if len(txs) != 1 || txs[0].ID != keep {
		t.Errorf("unexpected rows after delete: %+v", txs)
	}
}

func TestClearAll(t *testing.T) {
	ctx := context.Background()
	w, r := newTestRepos(t)
	addTx(t, w, models.KindSale, "2024-01-01", models.Payload{"amount": json.Number("1")})
	addTx(t, w, models.KindExpense, "2024-01-02", nil)
	if err := w.WriteProfile(ctx, &models.BusinessProfile{Name: strPtr("Acme"), TIN: strPtr("1")}); err != nil {
		t.Fatalf("write profile: %v", err)
	}

	if err := w.ClearAll(ctx, FiscalYearStart(time.Now())); err != nil {
		t.Fatalf("clear: %v", err)
	}
	txs, err := r.ListTransactions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txs) != 0 {
		t.Errorf("expected no transactions, got %d", len(txs))
	}
	got, err := r.ReadProfile(ctx)
	if err != nil {
		t.Fatalf("read profile: %v", err)
	}
	if !reflect.DeepEqual(*got, blankProfile()) {
		t.Errorf("profile not reset: %+v", *got)
	}
}

func TestClearAllRollsBackOnFailure(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w, r := newTestRepos(t)
	addTx(t, w, models.KindSale, "2024-01-01", nil)
	cancel()

	if err := w.ClearAll(ctx, "2024-01-01"); err == nil {
		t.Fatal("expected error with cancelled context")
	}
	txs, err := r.ListTransactions(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txs) != 1 {
		t.Errorf("partial clear observed: %d rows", len(txs))
	}
}

func TestListTransactionsSurfacesCorruptPayload(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "truncated object", data: `{not json`},
		{name: "trailing garbage", data: `{"a":1} junk`},
		{name: "second document", data: `{"a":1}{"b":2}`},
		{name: "not an object", data: `[1,2]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newTestDB(t)
			r := NewLedgerReadRepository(db, nil, 0)
			if _, err := db.Exec(`INSERT INTO transactions (type, tx_date, data) VALUES ('sale', '2024-01-01', $1)`, tt.data); err != nil {
				t.Fatalf("seed: %v", err)
			}
			if _, err := r.ListTransactions(context.Background()); err == nil {
				t.Errorf("[%s] expected decode error for %q", tt.name, tt.data)
			}
		})
	}
}

func TestDecodePayloadAllowsTrailingWhitespace(t *testing.T) {
	p, err := decodePayload(sql.NullString{String: "{\"amount\":12.50}\n  ", Valid: true})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p["amount"] != json.Number("12.50") {
		t.Errorf("amount: got %#v", p["amount"])
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	if _, err := Open("mysql", "x"); err == nil {
		t.Error("expected error")
	}
}

func TestFiscalYearStart(t *testing.T) {
	got := FiscalYearStart(time.Date(2031, time.August, 14, 0, 0, 0, 0, time.UTC))
	if got != "2031-01-01" {
		t.Errorf("got %s", got)
	}
}
