package export

import (
	"fmt"
	"strings"
	"time"

	"arb-console/internal/domain"
)

// csvHeader is the fixed column order of a trade export. Spreadsheet
// importers rely on it staying stable.
var csvHeader = []string{
	"Date", "Time", "Pair", "Direction",
	"Amount In", "Token In", "Amount Out", "Token Out",
	"Profit", "Profit %", "Gas Cost", "Execution Time (ms)", "Slippage",
	"AI Confidence", "Status", "Tx Hash",
}

// RenderTradesCSV renders trades as CSV. Every field is double-quoted so
// pairs, reasoning text, and hashes survive any embedded commas.
func RenderTradesCSV(trades []domain.Trade) string {
	var sb strings.Builder

	writeRow(&sb, csvHeader)

	for _, t := range trades {
		ts := time.UnixMilli(t.Timestamp).UTC()
		writeRow(&sb, []string{
			ts.Format("2006-01-02"),
			ts.Format("15:04:05"),
			t.Pair,
			string(t.Direction),
			formatFloat(t.AmountIn),
			t.TokenIn,
			formatFloat(t.AmountOut),
			t.TokenOut,
			formatFloat(t.Profit),
			formatFloat(t.ProfitPercent),
			formatFloat(t.GasCost),
			fmt.Sprintf("%d", t.ExecutionTimeMs),
			formatFloat(t.Slippage),
			formatFloat(t.AIConfidence),
			string(t.Status),
			t.TxHash,
		})
	}

	return sb.String()
}

// Filename builds the export file name for the given moment.
func Filename(now time.Time) string {
	return fmt.Sprintf("trades_export_%s.csv", now.UTC().Format("2006-01-02"))
}

func writeRow(sb *strings.Builder, fields []string) {
	for i, f := range fields {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteByte('"')
		sb.WriteString(strings.ReplaceAll(f, `"`, `""`))
		sb.WriteByte('"')
	}
	sb.WriteByte('\n')
}

func formatFloat(v float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.6f", v), "0"), ".")
}
