package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"duetmenu/internal/domain"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const sheetName = "订单历史"

// XLSXExporter writes the submitted order history into an Excel workbook,
// one row per order line, newest order first.
type XLSXExporter struct {
	history domain.HistoryService
	dir     string
	logger  *zerolog.Logger
}

func NewXLSXExporter(history domain.HistoryService, dir string, logger *zerolog.Logger) *XLSXExporter {
	return &XLSXExporter{history: history, dir: dir, logger: logger}
}

func (e *XLSXExporter) Export(ctx context.Context) (string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	records := e.history.List(ctx)

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	headers := []string{"订单号", "下单时间", "菜品", "数量", "单价", "小计"}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, header)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	totalStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E2EFDA"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})

	row := 2
	for _, record := range records {
		for _, line := range record.Items {
			_ = f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), record.ShortID())
			_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), record.Timestamp.Format("02.01.2006 15:04"))
			_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), line.DishName)
			_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), line.Quantity)
			_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), line.Price)
			_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), line.Subtotal())
			row++
		}

		// Итоговая строка по заказу
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), "总计")
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), record.Total)
		_ = f.SetCellStyle(sheetName, fmt.Sprintf("A%d", row), fmt.Sprintf("F%d", row), totalStyle)
		row++
	}

	_ = f.SetColWidth(sheetName, "A", "A", 12)
	_ = f.SetColWidth(sheetName, "B", "B", 20)
	_ = f.SetColWidth(sheetName, "C", "C", 25)
	_ = f.SetColWidth(sheetName, "D", "F", 10)

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("orders_export_%s.xlsx", time.Now().Format("2006-01-02_15-04-05"))
	filePath := filepath.Join(e.dir, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	e.logger.Info().Str("file_path", filePath).Int("orders", len(records)).Msg("Excel file created")
	return filePath, nil
}
