package journal

import (
	"io"
	"text/template"
	"time"

	"github.com/shopspring/decimal"
)

// SessionReport summarises one replay session.
type SessionReport struct {
	SessionID  string
	Created    time.Time
	Instrument string
	Timeframe  string
	Seed       int64

	StartBalance float64
	EndBalance   float64
	EndEquity    float64
	NetPL        float64
	ReturnPct    float64

	Trades       int
	Wins         int
	Losses       int
	WinRate      float64
	ProfitFactor float64
	MaxDDPct     float64

	Notes []string
}

// Summarize fills the trade and drawdown statistics from journal rows.
// StartBalance must already be set.
func (r *SessionReport) Summarize(trades []TradeRecord, equity []EquitySnapshot) {
	var grossProfit, grossLoss float64
	r.Trades = len(trades)
	r.Wins, r.Losses = 0, 0
	for _, t := range trades {
		if !t.Closed() {
			continue
		}
		switch {
		case t.RealizedPL > 0:
			r.Wins++
			grossProfit += t.RealizedPL
		case t.RealizedPL < 0:
			r.Losses++
			grossLoss -= t.RealizedPL
		}
	}
	if n := r.Wins + r.Losses; n > 0 {
		r.WinRate = float64(r.Wins) / float64(n)
	}
	if grossLoss > 0 {
		r.ProfitFactor = grossProfit / grossLoss
	}

	r.EndBalance = r.StartBalance + grossProfit - grossLoss
	r.EndEquity = r.EndBalance
	peak := r.StartBalance
	r.MaxDDPct = 0
	for _, e := range equity {
		if e.Equity > peak {
			peak = e.Equity
		}
		if peak > 0 {
			if dd := (peak - e.Equity) / peak * 100; dd > r.MaxDDPct {
				r.MaxDDPct = dd
			}
		}
	}
	if n := len(equity); n > 0 {
		r.EndBalance = equity[n-1].Balance
		r.EndEquity = equity[n-1].Equity
	}

	r.NetPL = r.EndEquity - r.StartBalance
	if r.StartBalance != 0 {
		r.ReturnPct = r.NetPL / r.StartBalance * 100
	}
}

var reportFuncs = template.FuncMap{
	"money": money,
	"pct":   func(x float64) string { return decimal.NewFromFloat(x).StringFixed(2) },
	"mul100": func(x float64) float64 {
		return x * 100.0
	},
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
}

var reportTmpl = template.Must(template.New("session").Funcs(reportFuncs).Parse(SessionOrgTemplate))

// WriteSessionReport renders the report as an Org-mode document.
func (r *SessionReport) WriteSessionReport(w io.Writer) error {
	return reportTmpl.Execute(w, r)
}

func money(x float64) string {
	return decimal.NewFromFloat(x).StringFixed(2)
}

const SessionOrgTemplate = `* REPLAY: {{.Instrument}} {{if .Timeframe}}{{.Timeframe}}{{else}}(timeframe?){{end}}
:PROPERTIES:
:SESSION_ID:  {{if .SessionID}}{{.SessionID}}{{else}}(session-id?){{end}}
:INSTRUMENT:  {{.Instrument}}
:TIMEFRAME:   {{.Timeframe}}
:SEED:        {{.Seed}}
:START_BAL:   {{money .StartBalance}}
:END_BAL:     {{money .EndBalance}}
:END_EQUITY:  {{money .EndEquity}}
:NET_PL:      {{money .NetPL}}
:RETURN_PCT:  {{pct .ReturnPct}}
:MAX_DD_PCT:  {{pct .MaxDDPct}}
:TRADES:      {{.Trades}}
:WINS:        {{.Wins}}
:LOSSES:      {{.Losses}}
:WIN_RATE:    {{pct (mul100 .WinRate)}}
:PROFIT_FAC:  {{if ne .ProfitFactor 0.0}}{{pct .ProfitFactor}}{{else}}(profit-factor?){{end}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Performance Summary
- Final equity:     *{{money .EndEquity}}*
- Return:           *{{pct .ReturnPct}}%*
- Max Drawdown:     *{{pct .MaxDDPct}}%*
- Win Rate:         *{{pct (mul100 .WinRate)}}%*

** Trade Distribution
| Outcome | Count |
|---------+-------|
| Wins    | {{.Wins}} |
| Losses  | {{.Losses}} |
| Fills   | {{.Trades}} |
{{- if .Notes }}

** Observations
{{- range .Notes }}
- {{.}}
{{- end }}
{{- end }}
`
