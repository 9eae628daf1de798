package xlsxGenerator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mintlite/invest_tracker/internal/model"
	"github.com/mintlite/invest_tracker/utils"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Portfolio"

type XLSXGenerator struct{}

func New() *XLSXGenerator {
	return &XLSXGenerator{}
}

func (g *XLSXGenerator) Generate(ctx context.Context, summary model.PortfolioSummary, holdings []model.Holding) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XLSXGenerator.Generate"

	slog.Debug("Generate start", slog.String("rqID", rqID), slog.String("op", op))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	if err := g.fillSheet(f, summary, holdings); err != nil {
		slog.Error("got error while filling sheet", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while saving file to bytes buffer", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	slog.Debug("Generate completed", slog.String("rqID", rqID), slog.String("op", op))

	return buf.Bytes(), ".xlsx", nil
}

func (g *XLSXGenerator) fillSheet(f *excelize.File, summary model.PortfolioSummary, holdings []model.Holding) error {
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Font: &excelize.Font{
			Bold: true,
			Size: 11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{"#cfe2f3"},
		},
	})
	if err != nil {
		return err
	}

	headers := []string{"Symbol", "Name", "Asset class", "Quantity", "Cost basis", "Current price", "Market value", "Unrealized gain", "Return %", "Price updated"}
	for i, header := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return err
		}
	}

	lastHeaderCell, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", lastHeaderCell, headerStyle); err != nil {
		return err
	}

	for i, h := range holdings {
		row := i + 2
		values := []any{
			h.Symbol,
			h.Name,
			string(h.AssetClass),
			h.Quantity.String(),
			h.CostBasis.StringFixed(2),
			h.CurrentPrice.StringFixed(2),
			h.MarketValue.StringFixed(2),
			h.UnrealizedGain.StringFixed(2),
			h.ReturnPercentage.StringFixed(2),
			h.PriceUpdatedAt.Format("2006-01-02 15:04:05"),
		}
		for j, value := range values {
			cell, err := excelize.CoordinatesToCellName(j+1, row)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return err
			}
		}
	}

	totalsRow := len(holdings) + 3
	totals := map[string]any{
		fmt.Sprintf("A%d", totalsRow): "Total",
		fmt.Sprintf("G%d", totalsRow): summary.TotalValue.StringFixed(2),
		fmt.Sprintf("H%d", totalsRow): summary.TotalGain.StringFixed(2),
		fmt.Sprintf("I%d", totalsRow): summary.ReturnPercentage.StringFixed(2),
	}
	for cell, value := range totals {
		if err := f.SetCellValue(sheetName, cell, value); err != nil {
			return err
		}
	}

	return nil
}
