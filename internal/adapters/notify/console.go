package notify

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"

	"github.com/alejandrodnm/copybot/internal/domain"
)

// maxClosedRows limita el detalle de cierres impreso; el resto queda en la DB.
const maxClosedRows = 20

// Console implementa ports.Notifier escribiendo tablas a stdout. Es el único
// sitio donde se redondea: todo lo almacenado conserva precisión completa.
type Console struct {
	out io.Writer
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

// PrintRun imprime el informe del run y el detalle de posiciones cerradas.
func (c *Console) PrintRun(run domain.BacktestRun) error {
	r := run.Results

	fmt.Fprintf(c.out, "\nBACKTEST %s  (%s → %s, ran %s)\n",
		run.ID[:min(8, len(run.ID))],
		run.StartDate.Format("2006-01-02"),
		run.EndDate.Format("2006-01-02"),
		run.RanAt.Format(time.RFC3339),
	)

	table := tablewriter.NewWriter(c.out)
	table.Header("Metric", "Value")
	table.Append("Total Trades", fmt.Sprintf("%d", r.TotalTrades))
	table.Append("Winning Trades", fmt.Sprintf("%d", r.WinningTrades))
	table.Append("Losing Trades", fmt.Sprintf("%d", r.LosingTrades))
	table.Append("Win Rate", pct(r.WinRate))
	table.Append("Initial Balance", usdc(r.InitialBalance))
	table.Append("Final Balance", usdc(r.FinalBalance))
	table.Append("Total P&L", usdc(r.TotalPnL))
	table.Append("ROI", pct(r.ROI))
	table.Append("Average Win", usdc(r.AvgWin))
	table.Append("Average Loss", usdc(r.AvgLoss))
	table.Append("Profit Factor", r.ProfitFactor.StringFixed(2))
	table.Append("Max Drawdown", pct(r.MaxDrawdown))
	table.Append("Sharpe Ratio", r.SharpeRatio.StringFixed(2))
	table.Append("Total Fees", usdc(r.TotalFees))
	table.Append("Total Slippage", usdc(r.TotalSlippage))
	table.Render()

	c.printClosed(run.Closed)
	return nil
}

func (c *Console) printClosed(closed []domain.ClosedPosition) {
	if len(closed) == 0 {
		fmt.Fprintln(c.out, "no closed positions")
		return
	}

	rows := closed
	if len(rows) > maxClosedRows {
		rows = rows[:maxClosedRows]
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Market", "Side", "Entry", "Exit", "Size", "P&L")
	for i, cp := range rows {
		table.Append(
			fmt.Sprintf("%d", i+1),
			cp.Position.MarketID,
			string(cp.Position.Side),
			cp.Position.EntryPrice.StringFixed(2),
			cp.ExitPrice.StringFixed(2),
			cp.Position.Size.StringFixed(2),
			usdc(cp.PnL),
		)
	}
	table.Render()

	if len(closed) > maxClosedRows {
		fmt.Fprintf(c.out, "... y %d cierres más (ver storage)\n", len(closed)-maxClosedRows)
	}
}

func usdc(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

func pct(d decimal.Decimal) string {
	return d.StringFixed(2) + "%"
}
