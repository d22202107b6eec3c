package report

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"luthier-backend/internal/record"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	historyFileName = "historico_servicos.xlsx"
	historySheet    = "Histórico"
)

type column struct {
	header string
	width  float64
	value  func(record.ServiceRecord) any
}

var historyColumns = []column{
	{"Nº Serviço", 14, func(r record.ServiceRecord) any { return r.ServiceNumber }},
	{"Cliente", 28, func(r record.ServiceRecord) any { return r.Client }},
	{"Contacto", 16, func(r record.ServiceRecord) any { return r.Contact }},
	{"Instrumento", 16, func(r record.ServiceRecord) any { return r.InstrumentType }},
	{"Marca", 16, func(r record.ServiceRecord) any { return r.Brand }},
	{"Modelo", 20, func(r record.ServiceRecord) any { return r.Model }},
	{"Nº Série", 18, func(r record.ServiceRecord) any { return r.SerialNumber }},
	{"Estado", 20, func(r record.ServiceRecord) any { return r.CanonicalStatus().Label() }},
	{"Data de Entrada", 16, func(r record.ServiceRecord) any { return dateValue(r.IntakeDate) }},
	{"Data de Entrega", 16, func(r record.ServiceRecord) any { return dateValue(r.DeliveryDate) }},
	{"Serviços (€)", 14, func(r record.ServiceRecord) any { return r.ServicesTotal().InexactFloat64() }},
	{"Produtos (€)", 14, func(r record.ServiceRecord) any { return r.ProductsTotal().InexactFloat64() }},
	{"Preço Total (€)", 16, func(r record.ServiceRecord) any { return r.TotalPrice.InexactFloat64() }},
}

// ExportHistory renders the service history as a single-sheet workbook,
// one row per record in the given order.
func ExportHistory(records []record.ServiceRecord) (Artifact, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", historySheet); err != nil {
		return Artifact{}, fmt.Errorf("failed to rename sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6E6E6"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to create header style: %w", err)
	}
	moneyFmt := "#,##0.00"
	moneyStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &moneyFmt})
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to create money style: %w", err)
	}

	for i, col := range historyColumns {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return Artifact{}, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(historySheet, name, name, col.width); err != nil {
			return Artifact{}, fmt.Errorf("failed to set column width: %w", err)
		}
		if err := setCell(f, i+1, 1, col.header, headerStyle); err != nil {
			return Artifact{}, err
		}
	}

	firstMoney := len(historyColumns) - 3
	for rowIdx, r := range records {
		row := rowIdx + 2
		for i, col := range historyColumns {
			style := 0
			if i >= firstMoney {
				style = moneyStyle
			}
			if err := setCell(f, i+1, row, col.value(r), style); err != nil {
				return Artifact{}, err
			}
		}
	}

	if err := f.SetPanes(historySheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return Artifact{}, fmt.Errorf("failed to freeze header: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		return Artifact{}, fmt.Errorf("failed to write workbook: %w", err)
	}
	return Artifact{Name: historyFileName, ContentType: xlsxContentType, Data: buf.Bytes()}, nil
}

func setCell(f *excelize.File, col, row int, value any, style int) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	if err := f.SetCellValue(historySheet, cell, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", cell, err)
	}
	if style != 0 {
		if err := f.SetCellStyle(historySheet, cell, cell, style); err != nil {
			return fmt.Errorf("failed to style %s: %w", cell, err)
		}
	}
	return nil
}
