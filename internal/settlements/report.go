package settlements

import (
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const reportSheet = "Settlements"

var reportHeader = []any{
	"Supplier", "Type", "Items", "Units", "Gross sales", "Commission", "Payout", "Our margin",
}

// WriteSettlementReport renders one row per supplier plus a totals row as XLSX.
func WriteSettlementReport(w io.Writer, periodStart, periodEnd time.Time, rows []Settlement) error {
	f := excelize.NewFile()
	defer f.Close()

	if _, err := f.NewSheet(reportSheet); err != nil {
		return err
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}
	index, err := f.GetSheetIndex(reportSheet)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)

	title := fmt.Sprintf("Supplier settlements %s to %s", periodStart.Format(dateLayout), periodEnd.Format(dateLayout))
	if err := f.SetCellValue(reportSheet, "A1", title); err != nil {
		return err
	}
	if err := f.SetSheetRow(reportSheet, "A3", &reportHeader); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return err
	}
	boldMoney, err := f.NewStyle(&excelize.Style{NumFmt: 2, Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(reportSheet, "A1", "A1", bold); err != nil {
		return err
	}
	if err := f.SetCellStyle(reportSheet, "A3", "H3", bold); err != nil {
		return err
	}

	totals := Settlement{
		GrossSales:       decimal.Zero,
		CommissionAmount: decimal.Zero,
		PayoutAmount:     decimal.Zero,
		OurMargin:        decimal.Zero,
	}
	rowNum := 4
	for _, row := range rows {
		values := []any{
			row.SupplierName,
			string(row.SupplierType),
			row.ItemCount,
			row.UnitsSold,
			row.GrossSales.InexactFloat64(),
			row.CommissionAmount.InexactFloat64(),
			row.PayoutAmount.InexactFloat64(),
			row.OurMargin.InexactFloat64(),
		}
		if err := f.SetSheetRow(reportSheet, fmt.Sprintf("A%d", rowNum), &values); err != nil {
			return err
		}
		totals.ItemCount += row.ItemCount
		totals.UnitsSold += row.UnitsSold
		totals.GrossSales = totals.GrossSales.Add(row.GrossSales)
		totals.CommissionAmount = totals.CommissionAmount.Add(row.CommissionAmount)
		totals.PayoutAmount = totals.PayoutAmount.Add(row.PayoutAmount)
		totals.OurMargin = totals.OurMargin.Add(row.OurMargin)
		rowNum++
	}

	totalRow := []any{
		"Total", "",
		totals.ItemCount,
		totals.UnitsSold,
		totals.GrossSales.InexactFloat64(),
		totals.CommissionAmount.InexactFloat64(),
		totals.PayoutAmount.InexactFloat64(),
		totals.OurMargin.InexactFloat64(),
	}
	if err := f.SetSheetRow(reportSheet, fmt.Sprintf("A%d", rowNum), &totalRow); err != nil {
		return err
	}
	if err := f.SetCellStyle(reportSheet, fmt.Sprintf("A%d", rowNum), fmt.Sprintf("D%d", rowNum), bold); err != nil {
		return err
	}
	if err := f.SetCellStyle(reportSheet, fmt.Sprintf("E%d", rowNum), fmt.Sprintf("H%d", rowNum), boldMoney); err != nil {
		return err
	}
	if rowNum > 4 {
		if err := f.SetCellStyle(reportSheet, "E4", fmt.Sprintf("H%d", rowNum-1), money); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(reportSheet, "A", "A", 32); err != nil {
		return err
	}
	if err := f.SetColWidth(reportSheet, "E", "H", 14); err != nil {
		return err
	}

	_, err = f.WriteTo(w)
	return err
}
