package reporter

import (
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/02ricardosouza/robot02-cripto/internal/models"
	"github.com/02ricardosouza/robot02-cripto/internal/registry"
)

// PrintWallet 以表格形式输出账户中非零余额的资产
func PrintWallet(w io.Writer, balances []models.Balance) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("账户余额")
	t.AppendHeader(table.Row{"资产", "可用", "冻结", "合计"})
	for _, b := range balances {
		if b.Total() == 0 {
			continue
		}
		t.AppendRow(table.Row{b.Asset, b.Free, b.Locked, b.Total()})
	}
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})
	t.Render()
}

// PrintTrades 输出成交流水和简单的买卖汇总
func PrintTrades(w io.Writer, trades []models.TradeRecord) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("成交流水")
	t.AppendHeader(table.Row{"时间", "方向", "价格", "数量", "金额", "模拟"})

	var bought, sold float64
	for _, tr := range trades {
		t.AppendRow(table.Row{
			tr.Timestamp.Format("2006-01-02 15:04:05"),
			tr.Side, tr.Price, tr.Quantity, tr.TotalValue, tr.Simulated,
		})
		if tr.Side == models.Buy {
			bought += tr.TotalValue
		} else {
			sold += tr.TotalValue
		}
	}
	t.AppendFooter(table.Row{"", "", "", "买入/卖出总额", bought, sold})
	t.Render()
}

// PrintBots 输出注册表中所有机器人的状态
func PrintBots(w io.Writer, statuses []registry.Status) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("机器人")
	t.AppendHeader(table.Row{"ID", "交易对", "运行中", "模拟", "仓位"})
	for _, s := range statuses {
		t.AppendRow(table.Row{s.ID, s.Symbol, s.Running, s.Simulated, s.Position})
	}
	t.Render()
}
