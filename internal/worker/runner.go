package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"math"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

// LocalRunner executes tool calls against the local workspace and
// public data endpoints. One runner is shared by every worker in a run;
// all methods are safe for concurrent use.
type LocalRunner struct {
	workDir string
	http    *http.Client
}

// NewLocalRunner creates a runner rooted at workDir. The directory is
// created if missing.
func NewLocalRunner(workDir string) (*LocalRunner, error) {
	if workDir == "" {
		workDir = "."
	}
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return nil, fmt.Errorf("creating workspace: %w", err)
	}
	return &LocalRunner{
		workDir: workDir,
		http:    &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// WorkDir returns the workspace root.
func (r *LocalRunner) WorkDir() string {
	return r.workDir
}

// Execute dispatches one tool call by name.
func (r *LocalRunner) Execute(ctx context.Context, name string, input json.RawMessage) (string, bool) {
	var args map[string]interface{}
	if len(input) > 0 {
		if err := json.Unmarshal(input, &args); err != nil {
			return fmt.Sprintf("invalid tool input: %v", err), true
		}
	}

	switch name {
	case "get_stock_price":
		return r.getStockPrice(ctx, strArg(args, "symbol"))
	case "get_price_history":
		return r.getPriceHistory(ctx, strArg(args, "symbol"), strArg(args, "period"))
	case "search_web":
		return r.searchWeb(ctx, strArg(args, "query"), intArg(args, "max_results", 5))
	case "extract_metrics":
		return r.extractMetrics(strArg(args, "text"))
	case "build_report":
		return r.buildReport(strArg(args, "file_name"), strArg(args, "title"), strArg(args, "content"))
	case "read_file":
		return r.readFile(strArg(args, "file_path"))
	case "write_file":
		return r.writeFile(strArg(args, "file_path"), strArg(args, "content"))
	case "append_to_file":
		return r.appendToFile(strArg(args, "file_path"), strArg(args, "content"))
	case "list_files":
		return r.listFiles(strArg(args, "path"))
	default:
		return fmt.Sprintf("unknown tool: %s", name), true
	}
}

func strArg(args map[string]interface{}, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func intArg(args map[string]interface{}, key string, def int) int {
	if v, ok := args[key].(float64); ok && v > 0 {
		return int(v)
	}
	return def
}

// resolve maps a tool-supplied path into the workspace, rejecting
// escapes above the root.
func (r *LocalRunner) resolve(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("empty path")
	}
	full := filepath.Join(r.workDir, filepath.Clean("/"+path))
	rel, err := filepath.Rel(r.workDir, full)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "", fmt.Errorf("path %s escapes the workspace", path)
	}
	return full, nil
}

func (r *LocalRunner) readFile(path string) (string, bool) {
	full, err := r.resolve(path)
	if err != nil {
		return err.Error(), true
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return fmt.Sprintf("failed to read %s: %v", path, err), true
	}
	return string(data), false
}

func (r *LocalRunner) writeFile(path, content string) (string, bool) {
	full, err := r.resolve(path)
	if err != nil {
		return err.Error(), true
	}
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return fmt.Sprintf("failed to create directory for %s: %v", path, err), true
	}
	if err := os.WriteFile(full, []byte(content), 0644); err != nil {
		return fmt.Sprintf("failed to write %s: %v", path, err), true
	}
	return fmt.Sprintf("Successfully wrote %d characters to %s", len(content), path), false
}

func (r *LocalRunner) appendToFile(path, content string) (string, bool) {
	full, err := r.resolve(path)
	if err != nil {
		return err.Error(), true
	}
	f, err := os.OpenFile(full, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Sprintf("failed to open %s: %v", path, err), true
	}
	defer f.Close()
	if _, err := f.WriteString(content); err != nil {
		return fmt.Sprintf("failed to append to %s: %v", path, err), true
	}
	return fmt.Sprintf("Successfully appended %d characters to %s", len(content), path), false
}

func (r *LocalRunner) listFiles(path string) (string, bool) {
	if path == "" {
		path = "."
	}
	full, err := r.resolve(path)
	if err != nil {
		return err.Error(), true
	}
	entries, err := os.ReadDir(full)
	if err != nil {
		return fmt.Sprintf("failed to list %s: %v", path, err), true
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return fmt.Sprintf("No files found in %s", path), false
	}
	sort.Strings(names)

	var b strings.Builder
	fmt.Fprintf(&b, "Files in %s:\n", path)
	for _, n := range names {
		fmt.Fprintf(&b, "- %s\n", n)
	}
	return b.String(), false
}

func (r *LocalRunner) buildReport(fileName, title, content string) (string, bool) {
	if fileName == "" {
		fileName = "report.md"
	}
	var b strings.Builder
	if title != "" {
		fmt.Fprintf(&b, "# %s\n\n", title)
	}
	b.WriteString(content)
	fmt.Fprintf(&b, "\n\n---\nGenerated: %s\n", time.Now().Format("2006-01-02 15:04:05"))

	msg, isErr := r.writeFile(fileName, b.String())
	if isErr {
		return msg, true
	}
	return fmt.Sprintf("Report written to %s (%d characters)", fileName, b.Len()), false
}

// chartQuote is one OHLCV series from the chart payload. Yahoo omits
// some arrays entirely for certain symbols.
type chartQuote struct {
	High   []float64 `json:"high"`
	Low    []float64 `json:"low"`
	Close  []float64 `json:"close"`
	Volume []float64 `json:"volume"`
}

// chartResponse is the subset of the Yahoo Finance chart payload the
// finance tools consume.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				Currency           string  `json:"currency"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				PreviousClose      float64 `json:"chartPreviousClose"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []chartQuote `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func (r *LocalRunner) fetchChart(ctx context.Context, symbol, rng string) (*chartResponse, error) {
	endpoint := fmt.Sprintf(
		"https://query1.finance.yahoo.com/v8/finance/chart/%s?range=%s&interval=1d",
		url.PathEscape(strings.ToUpper(symbol)), url.QueryEscape(rng))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "loom/1.0")

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("quote endpoint returned %s", resp.Status)
	}

	var chart chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&chart); err != nil {
		return nil, fmt.Errorf("decoding quote response: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("quote error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 {
		return nil, fmt.Errorf("no data for symbol %s", symbol)
	}
	return &chart, nil
}

func (r *LocalRunner) getStockPrice(ctx context.Context, symbol string) (string, bool) {
	if symbol == "" {
		return "symbol is required", true
	}
	chart, err := r.fetchChart(ctx, symbol, "1d")
	if err != nil {
		return fmt.Sprintf("failed to fetch price for %s: %v", symbol, err), true
	}

	meta := chart.Chart.Result[0].Meta
	change := meta.RegularMarketPrice - meta.PreviousClose
	changePct := 0.0
	if meta.PreviousClose != 0 {
		changePct = change / meta.PreviousClose * 100
	}

	return fmt.Sprintf(
		"Stock Price Information for %s:\n"+
			"- Current Price: %.2f %s\n"+
			"- Previous Close: %.2f\n"+
			"- Change: %+.2f (%+.2f%%)\n"+
			"- Data retrieved: %s",
		meta.Symbol, meta.RegularMarketPrice, meta.Currency,
		meta.PreviousClose, change, changePct,
		time.Now().Format("2006-01-02 15:04:05")), false
}

var validPeriods = map[string]bool{"1mo": true, "3mo": true, "6mo": true, "1y": true}

func (r *LocalRunner) getPriceHistory(ctx context.Context, symbol, period string) (string, bool) {
	if symbol == "" {
		return "symbol is required", true
	}
	if !validPeriods[period] {
		period = "3mo"
	}

	chart, err := r.fetchChart(ctx, symbol, period)
	if err != nil {
		return fmt.Sprintf("failed to fetch history for %s: %v", symbol, err), true
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return fmt.Sprintf("no historical data for %s", symbol), true
	}
	return summarizePriceHistory(symbol, period, result.Indicators.Quote[0])
}

// summarizePriceHistory computes period statistics from one quote
// series. Missing high/low series produce a tool error rather than a
// panic; a missing volume series reports zero average volume.
func summarizePriceHistory(symbol, period string, quote chartQuote) (string, bool) {
	var closes, highs, lows, volumes []float64
	for i := range quote.Close {
		if quote.Close[i] == 0 {
			continue
		}
		closes = append(closes, quote.Close[i])
		if i < len(quote.High) {
			highs = append(highs, quote.High[i])
		}
		if i < len(quote.Low) {
			lows = append(lows, quote.Low[i])
		}
		if i < len(quote.Volume) {
			volumes = append(volumes, quote.Volume[i])
		}
	}
	if len(closes) < 2 {
		return fmt.Sprintf("not enough historical data for %s", symbol), true
	}
	if len(highs) == 0 || len(lows) == 0 {
		return fmt.Sprintf("incomplete price data for %s: missing high/low series", symbol), true
	}

	high := highs[0]
	for _, v := range highs {
		if v > high {
			high = v
		}
	}
	low := lows[0]
	for _, v := range lows {
		if v > 0 && v < low {
			low = v
		}
	}
	avgVolume := 0.0
	if len(volumes) > 0 {
		var volSum float64
		for _, v := range volumes {
			volSum += v
		}
		avgVolume = volSum / float64(len(volumes))
	}

	totalReturn := (closes[len(closes)-1] - closes[0]) / closes[0] * 100
	volatility := dailyVolatility(closes)

	return fmt.Sprintf(
		"Price History for %s (%s):\n"+
			"- Current Price: %.2f\n"+
			"- Period High: %.2f\n"+
			"- Period Low: %.2f\n"+
			"- Period Return: %+.2f%%\n"+
			"- Average Volume: %.0f\n"+
			"- Volatility: %.2f%%",
		strings.ToUpper(symbol), period,
		closes[len(closes)-1], high, low, totalReturn,
		avgVolume, volatility), false
}

// dailyVolatility is the standard deviation of daily percentage
// changes, in percent.
func dailyVolatility(closes []float64) float64 {
	var changes []float64
	for i := 1; i < len(closes); i++ {
		if closes[i-1] != 0 {
			changes = append(changes, (closes[i]-closes[i-1])/closes[i-1]*100)
		}
	}
	if len(changes) == 0 {
		return 0
	}

	var sum float64
	for _, c := range changes {
		sum += c
	}
	mean := sum / float64(len(changes))

	var sq float64
	for _, c := range changes {
		sq += (c - mean) * (c - mean)
	}
	return math.Sqrt(sq / float64(len(changes)))
}

var (
	searchResultRe  = regexp.MustCompile(`(?s)<a[^>]+class="result__a"[^>]+href="([^"]+)"[^>]*>(.*?)</a>`)
	searchSnippetRe = regexp.MustCompile(`(?s)<a[^>]+class="result__snippet"[^>]*>(.*?)</a>`)
	tagRe           = regexp.MustCompile(`<[^>]+>`)
)

func stripTags(s string) string {
	return strings.TrimSpace(html.UnescapeString(tagRe.ReplaceAllString(s, "")))
}

func (r *LocalRunner) searchWeb(ctx context.Context, query string, maxResults int) (string, bool) {
	if query == "" {
		return "query is required", true
	}

	endpoint := "https://html.duckduckgo.com/html/?q=" + url.QueryEscape(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Sprintf("failed to build search request: %v", err), true
	}
	req.Header.Set("User-Agent", "loom/1.0")

	resp, err := r.http.Do(req)
	if err != nil {
		return fmt.Sprintf("search failed: %v", err), true
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 2<<20))
	if err != nil {
		return fmt.Sprintf("failed to read search response: %v", err), true
	}

	page := string(body)
	links := searchResultRe.FindAllStringSubmatch(page, maxResults)
	snippets := searchSnippetRe.FindAllStringSubmatch(page, maxResults)

	if len(links) == 0 {
		return fmt.Sprintf("No search results found for: %s", query), false
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Web Search Results for: %q\n\n", query)
	for i, link := range links {
		fmt.Fprintf(&b, "%d. %s\n   URL: %s\n", i+1, stripTags(link[2]), html.UnescapeString(link[1]))
		if i < len(snippets) {
			fmt.Fprintf(&b, "   Description: %s\n", stripTags(snippets[i][1]))
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Search completed at: %s", time.Now().Format("2006-01-02 15:04:05"))
	return b.String(), false
}

var metricRe = regexp.MustCompile(`[$]?-?\d[\d,]*\.?\d*%?`)

func (r *LocalRunner) extractMetrics(text string) (string, bool) {
	if text == "" {
		return "text is required", true
	}

	matches := metricRe.FindAllString(text, -1)
	if len(matches) == 0 {
		return "No numeric values found in the provided text.", false
	}

	var dollars, percents, plain []string
	for _, m := range matches {
		switch {
		case strings.HasPrefix(m, "$"):
			dollars = append(dollars, m)
		case strings.HasSuffix(m, "%"):
			percents = append(percents, m)
		default:
			plain = append(plain, m)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Extracted %d numeric values:\n", len(matches))
	if len(dollars) > 0 {
		fmt.Fprintf(&b, "- Dollar amounts: %s\n", strings.Join(dollars, ", "))
	}
	if len(percents) > 0 {
		fmt.Fprintf(&b, "- Percentages: %s\n", strings.Join(percents, ", "))
	}
	if len(plain) > 0 {
		fmt.Fprintf(&b, "- Other values: %s\n", strings.Join(plain, ", "))
	}
	return b.String(), false
}
