package report

import (
	"fmt"
	"io"
	"math"
	"math/big"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"MomentumScreener/internal/model"
)

const billion = 1_000_000_000

// Fixed2 renders v with exactly two decimals. Rounding works on the exact
// binary value and breaks exact ties to even, so 2.675 gives "2.67" and
// 0.125 gives "0.12".
func Fixed2(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', 2, 64)
	}
	return exactDecimal(v).RoundBank(2).StringFixed(2)
}

// exactDecimal returns the decimal equal to the binary value of v, which must be finite.
func exactDecimal(v float64) decimal.Decimal {
	frac, exp := math.Frexp(v)
	mant := big.NewInt(int64(frac * (1 << 53)))
	e := exp - 53
	if e >= 0 {
		return decimal.NewFromBigInt(mant.Lsh(mant, uint(e)), 0)
	}
	// mant * 2^e == mant * 5^-e * 10^e
	five := new(big.Int).Exp(big.NewInt(5), big.NewInt(int64(-e)), nil)
	return decimal.NewFromBigInt(mant.Mul(mant, five), int32(e))
}

// Percent renders a percentage such as "12.34%".
func Percent(v float64) string {
	return Fixed2(v) + "%"
}

// MarketCap renders a capitalization as "<value>B" from one billion up, else "<value>M".
func MarketCap(v float64) string {
	if v >= billion {
		return Fixed2(v/billion) + "B"
	}
	return Fixed2(v/1_000_000) + "M"
}

// ResultLines builds the persisted result file: one line per survivor and a
// closing benchmark line when the benchmark return is known.
func ResultLines(res *model.ScanResult) []string {
	lines := make([]string, 0, len(res.Survivors)+1)
	for _, c := range res.Survivors {
		fields := []string{c.Ticker, Fixed2(c.QuarterlyReturn), Fixed2(c.SemiannualReturn)}
		if c.ShortTermReturn != nil {
			fields = append(fields, Fixed2(*c.ShortTermReturn))
		}
		lines = append(lines, strings.Join(fields, ", "))
	}
	if res.BenchmarkReturn != nil {
		lines = append(lines, fmt.Sprintf("%s, %s", benchmarkLabel(res), Fixed2(*res.BenchmarkReturn)))
	}
	return lines
}

func benchmarkLabel(res *model.ScanResult) string {
	if res.BenchmarkSymbol == "" {
		return "SP500"
	}
	return res.BenchmarkSymbol
}

// Table writes the human-readable report.
func Table(w io.Writer, res *model.ScanResult) error {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Momentum screen | %s | %s tickers analyzed\n\n",
		res.StartedAt.Format("2006-01-02 15:04"), humanize.Comma(int64(res.Analyzed))))

	if len(res.Survivors) == 0 {
		b.WriteString("No tickers met every criterion.\n")
	} else {
		tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', tabwriter.AlignRight)
		fmt.Fprintln(tw, "Ticker\tQuarter\tHalf-year\tMarket cap\tShort-term\t")
		for _, c := range res.Survivors {
			marketCap, shortTerm := "-", "-"
			if c.MarketCap != nil {
				marketCap = MarketCap(*c.MarketCap)
			}
			if c.ShortTermReturn != nil {
				shortTerm = Percent(*c.ShortTermReturn)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n",
				c.Ticker, Percent(c.QuarterlyReturn), Percent(c.SemiannualReturn), marketCap, shortTerm)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	b.WriteString("\nStages:\n")
	for _, st := range res.Stages {
		b.WriteString(fmt.Sprintf("  %-18s %5d -> %d", st.Stage, st.In, st.Out))
		if reasons := formatReasons(ReasonCounts(res, st.Stage)); reasons != "" {
			b.WriteString("  (" + reasons + ")")
		}
		b.WriteString("\n")
	}

	if res.BenchmarkReturn != nil {
		b.WriteString(fmt.Sprintf("\n%s short-term return: %s\n", benchmarkLabel(res), Percent(*res.BenchmarkReturn)))
	}
	if res.Degraded {
		b.WriteString("Benchmark data unavailable: relative-strength and drawdown stages skipped.\n")
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Text returns the report as a string.
func Text(res *model.ScanResult) string {
	var b strings.Builder
	_ = Table(&b, res)
	return b.String()
}

// ReasonCounts tallies exclusions by reason for a stage.
func ReasonCounts(res *model.ScanResult, stage model.Stage) map[model.Reason]int {
	out := make(map[model.Reason]int)
	for _, e := range res.ExclusionsAt(stage) {
		out[e.Reason]++
	}
	return out
}

func formatReasons(counts map[model.Reason]int) string {
	keys := make([]string, 0, len(counts))
	for r := range counts {
		keys = append(keys, string(r))
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s %d", k, counts[model.Reason(k)]))
	}
	return strings.Join(parts, ", ")
}
