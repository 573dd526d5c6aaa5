package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"duetmenu/internal/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// ErrRowNotFound reports that an order has no row in the ledger sheet.
var ErrRowNotFound = errors.New("order row not found")

// LedgerService mirrors the submitted order history into a shared Google
// spreadsheet so the household budget lives outside the kiosk. One row per
// order: id, timestamp, dish summary, total.
type LedgerService struct {
	service       *sheets.Service
	spreadsheetID string
	rowCache      map[string]int
	cacheMu       sync.RWMutex
}

func NewLedgerService(credentialsFile, spreadsheetID string) (*LedgerService, error) {
	ctx := context.Background()

	// Читаем файл учетных данных сервисного аккаунта
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %v", err)
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %v", err)
	}

	client := config.Client(ctx)

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %v", err)
	}

	return &LedgerService{
		service:       srv,
		spreadsheetID: spreadsheetID,
		rowCache:      make(map[string]int),
	}, nil
}

// TestConnection проверяет подключение к таблице
func (s *LedgerService) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, "Orders!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %v", err)
	}
	return nil
}

// GetServiceAccountEmail возвращает email сервисного аккаунта
func (s *LedgerService) GetServiceAccountEmail(credentialsFile string) (string, error) {
	file, err := os.ReadFile(credentialsFile)
	if err != nil {
		return "", err
	}

	var creds struct {
		ClientEmail string `json:"client_email"`
	}
	if err := json.Unmarshal(file, &creds); err != nil {
		return "", err
	}
	return creds.ClientEmail, nil
}

// AppendOrder добавляет строку заказа в конец листа.
func (s *LedgerService) AppendOrder(ctx context.Context, record *models.OrderRecord) error {
	if record == nil {
		return fmt.Errorf("order record is nil")
	}

	valueRange := &sheets.ValueRange{
		Values: [][]interface{}{orderRowValues(record)},
	}

	_, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, "Orders!A:A", valueRange).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()

	return err
}

// DeleteOrderRow removes the row that corresponds to orderID.
func (s *LedgerService) DeleteOrderRow(ctx context.Context, orderID string) error {
	rowIdx, err := s.FindOrderRow(ctx, orderID)
	if err != nil {
		return err
	}

	rangeData := fmt.Sprintf("Orders!A%d:D%d", rowIdx, rowIdx)
	_, err = s.service.Spreadsheets.Values.Clear(s.spreadsheetID, rangeData, &sheets.ClearValuesRequest{}).
		Context(ctx).
		Do()
	if err == nil {
		s.deleteCacheRow(orderID)
	}
	return err
}

// FindOrderRow locates row index (1-based) for orderID in column A with cache.
func (s *LedgerService) FindOrderRow(ctx context.Context, orderID string) (int, error) {
	if orderID == "" {
		return 0, fmt.Errorf("order id is required")
	}

	if row, ok := s.getCachedRow(orderID); ok {
		return row, nil
	}

	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, "Orders!A:A").Context(ctx).Do()
	if err != nil {
		return 0, err
	}

	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if fmt.Sprintf("%v", row[0]) == orderID {
			rowIdx := i + 1 // Values are zero-based; sheet rows are 1-based
			s.setCachedRow(orderID, rowIdx)
			return rowIdx, nil
		}
	}

	return 0, ErrRowNotFound
}

// ReplaceLedger полностью перезаписывает лист заказов.
func (s *LedgerService) ReplaceLedger(ctx context.Context, records []models.OrderRecord) error {
	_, err := s.service.Spreadsheets.Values.Clear(s.spreadsheetID, "Orders!A2:Z", &sheets.ClearValuesRequest{}).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to clear orders sheet: %v", err)
	}

	var values [][]interface{}
	for _, record := range records {
		values = append(values, orderRowValues(&record))
	}
	if len(values) == 0 {
		return nil
	}

	valueRange := &sheets.ValueRange{Values: values}
	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, "Orders!A2", valueRange).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to update orders sheet: %v", err)
	}

	s.cacheMu.Lock()
	s.rowCache = make(map[string]int)
	for i, record := range records {
		s.rowCache[record.ID] = i + 2 // +2 because data starts at row 2
	}
	s.cacheMu.Unlock()

	return nil
}

func (s *LedgerService) getCachedRow(id string) (int, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	row, ok := s.rowCache[id]
	return row, ok
}

func (s *LedgerService) setCachedRow(id string, row int) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache[id] = row
}

func (s *LedgerService) deleteCacheRow(id string) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	delete(s.rowCache, id)
}

func orderRowValues(record *models.OrderRecord) []interface{} {
	parts := make([]string, 0, len(record.Items))
	for _, line := range record.Items {
		parts = append(parts, fmt.Sprintf("%s x%d", line.DishName, line.Quantity))
	}

	return []interface{}{
		record.ID,
		record.Timestamp.Format("2006-01-02 15:04:05"),
		strings.Join(parts, ", "),
		record.Total,
	}
}
