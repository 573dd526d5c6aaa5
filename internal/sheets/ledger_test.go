package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"duetmenu/internal/models"

	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

func setupMockServer(ctx context.Context) (*http.ServeMux, *httptest.Server, *LedgerService) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	srv, _ := sheets.NewService(ctx, option.WithEndpoint(server.URL), option.WithoutAuthentication())
	s := &LedgerService{
		service:       srv,
		spreadsheetID: "ledger_tid",
		rowCache:      make(map[string]int),
	}
	return mux, server, s
}

func sampleRecord(id string) *models.OrderRecord {
	return &models.OrderRecord{
		ID:    id,
		Total: 1.30,
		Items: []models.CartLine{
			{ID: 1, DishID: "1", DishName: "爱心煎蛋", Price: 0.50, Quantity: 1},
			{ID: 2, DishID: "8", DishName: "洋葱炒牛肉", Price: 0.80, Quantity: 1},
		},
		Timestamp: time.Date(2026, 8, 28, 18, 30, 0, 0, time.UTC),
	}
}

func TestLedgerService_TestConnection(t *testing.T) {
	ctx := context.Background()
	mux, server, s := setupMockServer(ctx)
	defer server.Close()
	mux.HandleFunc("/v4/spreadsheets/ledger_tid/values/Orders!A1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{Values: [][]interface{}{{"ID"}}})
	})
	err := s.TestConnection(ctx)
	if err != nil {
		t.Errorf("TestConnection failed: %v", err)
	}
}

func TestLedgerService_TestConnection_Unreachable(t *testing.T) {
	ctx := context.Background()
	_, server, s := setupMockServer(ctx)
	server.Close()
	if err := s.TestConnection(ctx); err == nil {
		t.Error("Expected error when spreadsheet is unreachable")
	}
}

func TestLedgerService_AppendOrder(t *testing.T) {
	ctx := context.Background()
	mux, server, s := setupMockServer(ctx)
	defer server.Close()
	mux.HandleFunc("/v4/spreadsheets/ledger_tid/values/Orders!A:A:append", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.AppendValuesResponse{
			Updates: &sheets.UpdateValuesResponse{
				UpdatedRange: "Orders!A10:D10",
			},
		})
	})
	err := s.AppendOrder(ctx, sampleRecord("1756400000000"))
	if err != nil {
		t.Errorf("AppendOrder failed: %v", err)
	}
}

func TestLedgerService_AppendOrder_NilRecord(t *testing.T) {
	ctx := context.Background()
	_, server, s := setupMockServer(ctx)
	defer server.Close()
	if err := s.AppendOrder(ctx, nil); err == nil {
		t.Error("Expected error for nil record")
	}
}

func TestLedgerService_FindOrderRow_FullScan(t *testing.T) {
	ctx := context.Background()
	mux, server, s := setupMockServer(ctx)
	defer server.Close()
	mux.HandleFunc("/v4/spreadsheets/ledger_tid/values/Orders!A:A", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{
			Values: [][]interface{}{{"ID"}, {"1756400000000"}},
		})
	})
	row, err := s.FindOrderRow(ctx, "1756400000000")
	if err != nil {
		t.Errorf("FindOrderRow failed: %v", err)
	}
	if row != 2 {
		t.Errorf("Expected row 2, got %d", row)
	}
	if cached, ok := s.getCachedRow("1756400000000"); !ok || cached != 2 {
		t.Errorf("Expected cached row 2, got %d", cached)
	}
}

func TestLedgerService_FindOrderRow_Missing(t *testing.T) {
	ctx := context.Background()
	mux, server, s := setupMockServer(ctx)
	defer server.Close()
	mux.HandleFunc("/v4/spreadsheets/ledger_tid/values/Orders!A:A", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{
			Values: [][]interface{}{{"ID"}},
		})
	})
	_, err := s.FindOrderRow(ctx, "absent")
	if !errors.Is(err, ErrRowNotFound) {
		t.Errorf("Expected ErrRowNotFound, got %v", err)
	}
}

func TestLedgerService_DeleteOrderRow(t *testing.T) {
	ctx := context.Background()
	mux, server, s := setupMockServer(ctx)
	defer server.Close()
	s.setCachedRow("1756400000000", 3)
	mux.HandleFunc("/v4/spreadsheets/ledger_tid/values/Orders!A3:D3:clear", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ClearValuesResponse{})
	})
	err := s.DeleteOrderRow(ctx, "1756400000000")
	if err != nil {
		t.Errorf("DeleteOrderRow failed: %v", err)
	}
	if _, ok := s.getCachedRow("1756400000000"); ok {
		t.Error("Expected order to be removed from cache")
	}
}

func TestLedgerService_ReplaceLedger(t *testing.T) {
	ctx := context.Background()
	mux, server, s := setupMockServer(ctx)
	defer server.Close()
	mux.HandleFunc("/v4/spreadsheets/ledger_tid/values/Orders!A2:Z:clear", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ClearValuesResponse{})
	})
	mux.HandleFunc("/v4/spreadsheets/ledger_tid/values/Orders!A2", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.UpdateValuesResponse{})
	})
	records := []models.OrderRecord{*sampleRecord("1756400000000"), *sampleRecord("1756400000001")}
	err := s.ReplaceLedger(ctx, records)
	if err != nil {
		t.Errorf("ReplaceLedger failed: %v", err)
	}
	if row, _ := s.getCachedRow("1756400000000"); row != 2 {
		t.Errorf("Expected cached row 2, got %d", row)
	}
	if row, _ := s.getCachedRow("1756400000001"); row != 3 {
		t.Errorf("Expected cached row 3, got %d", row)
	}
}

func TestLedgerService_ReplaceLedger_Empty(t *testing.T) {
	ctx := context.Background()
	mux, server, s := setupMockServer(ctx)
	defer server.Close()
	mux.HandleFunc("/v4/spreadsheets/ledger_tid/values/Orders!A2:Z:clear", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ClearValuesResponse{})
	})
	if err := s.ReplaceLedger(ctx, nil); err != nil {
		t.Errorf("ReplaceLedger failed: %v", err)
	}
}

func TestLedgerService_GetServiceAccountEmail(t *testing.T) {
	dir := t.TempDir()
	credsPath := filepath.Join(dir, "creds.json")
	creds := `{"type":"service_account","client_email":"kiosk@example.iam.gserviceaccount.com"}`
	if err := os.WriteFile(credsPath, []byte(creds), 0o600); err != nil {
		t.Fatalf("write creds: %v", err)
	}

	s := &LedgerService{}
	email, err := s.GetServiceAccountEmail(credsPath)
	if err != nil {
		t.Errorf("GetServiceAccountEmail failed: %v", err)
	}
	if email != "kiosk@example.iam.gserviceaccount.com" {
		t.Errorf("Unexpected email: %s", email)
	}
}

func TestOrderRowValues(t *testing.T) {
	values := orderRowValues(sampleRecord("1756400000000"))
	if len(values) != 4 {
		t.Fatalf("Expected 4 columns, got %d", len(values))
	}
	if values[0] != "1756400000000" {
		t.Errorf("Unexpected id column: %v", values[0])
	}
	if values[1] != "2026-08-28 18:30:00" {
		t.Errorf("Unexpected timestamp column: %v", values[1])
	}
	if values[2] != "爱心煎蛋 x1, 洋葱炒牛肉 x1" {
		t.Errorf("Unexpected summary column: %v", values[2])
	}
	if values[3] != 1.30 {
		t.Errorf("Unexpected total column: %v", values[3])
	}
}
