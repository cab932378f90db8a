package collector

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultNasdaqURL serves the same file as ftp.nasdaqtrader.com/symboldirectory.
const DefaultNasdaqURL = "https://www.nasdaqtrader.com/dynamic/SymDir/nasdaqtraded.txt"

// NasdaqDirectory reads the pipe-delimited NASDAQ symbol directory and keeps
// common stocks only (no ETFs, no test issues).
type NasdaqDirectory struct {
	URL    string
	Client *http.Client
}

// NewNasdaqDirectory creates a directory reader. An empty url uses DefaultNasdaqURL.
func NewNasdaqDirectory(url, proxyURL string) *NasdaqDirectory {
	if url == "" {
		url = DefaultNasdaqURL
	}
	return &NasdaqDirectory{URL: url, Client: newHTTPClient(proxyURL)}
}

func (n *NasdaqDirectory) Name() string { return "nasdaq" }

func (n *NasdaqDirectory) FetchSymbols(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")
	resp, err := n.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch symbol directory: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch symbol directory: status %d", resp.StatusCode)
	}
	return ParseSymbolDirectory(resp.Body)
}

// ParseSymbolDirectory parses a nasdaqtraded.txt body. The last row is the
// "File Creation Time" footer and is dropped.
func ParseSymbolDirectory(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.Comma = '|'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse symbol directory: %w", err)
	}
	if len(rows) < 2 {
		return nil, errors.New("parse symbol directory: no rows")
	}

	col := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		col[strings.TrimSpace(h)] = i
	}
	for _, name := range []string{"Symbol", "Test Issue", "ETF"} {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("parse symbol directory: missing column %q", name)
		}
	}

	body := rows[1 : len(rows)-1]
	symbols := make([]string, 0, len(body))
	for _, row := range body {
		if len(row) <= col["Symbol"] || len(row) <= col["Test Issue"] || len(row) <= col["ETF"] {
			continue
		}
		if row[col["Test Issue"]] != "N" || row[col["ETF"]] != "N" {
			continue
		}
		sym := strings.TrimSpace(row[col["Symbol"]])
		if sym == "" {
			continue
		}
		symbols = append(symbols, sym)
	}
	return symbols, nil
}
