// Package worker implements the external capabilities the engine
// consumes: single-agent and team workers backed by the Anthropic API,
// the judge, and the local tool suites agents can call.
package worker

import (
	"github.com/anthropics/anthropic-sdk-go"
)

// Tool suite names as they appear in plan allowlists. A node's
// allowlist selects whole suites, not individual tools.
const (
	SuiteYFinance      = "YFinanceTools"
	SuiteWebSearch     = "WebSearchTools"
	SuiteDataProcessor = "DataProcessorTools"
	SuiteReportBuilder = "ReportBuilderTools"
	SuiteFileEditor    = "FileEditor"
)

// KnownSuite reports whether name is a registered tool suite.
func KnownSuite(name string) bool {
	_, ok := suiteDefinitions[name]
	return ok
}

// DefinitionsFor returns the tool schemas for the given suite
// allowlist, skipping unknown suite names.
func DefinitionsFor(allowlist []string) []anthropic.ToolUnionParam {
	var defs []anthropic.ToolUnionParam
	for _, suite := range allowlist {
		defs = append(defs, suiteDefinitions[suite]...)
	}
	return defs
}

func stringProp(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

func intProp(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "integer",
		"description": description,
	}
}

var suiteDefinitions = map[string][]anthropic.ToolUnionParam{
	SuiteYFinance: {
		{
			OfTool: &anthropic.ToolParam{
				Name:        "get_stock_price",
				Description: anthropic.String("Get the current price, previous close, and day change for a stock symbol."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{
						"symbol": stringProp("Stock symbol, e.g. 'TSLA' or 'AAPL'"),
					},
					Required: []string{"symbol"},
				},
			},
		},
		{
			OfTool: &anthropic.ToolParam{
				Name:        "get_price_history",
				Description: anthropic.String("Get historical price statistics for a stock symbol: period high/low, return, and volatility."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{
						"symbol": stringProp("Stock symbol, e.g. 'TSLA' or 'AAPL'"),
						"period": stringProp("Time period: '1mo', '3mo', '6mo', or '1y' (default '3mo')"),
					},
					Required: []string{"symbol"},
				},
			},
		},
	},
	SuiteWebSearch: {
		{
			OfTool: &anthropic.ToolParam{
				Name:        "search_web",
				Description: anthropic.String("Search the web and return result titles, URLs, and snippets."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{
						"query":       stringProp("Search query"),
						"max_results": intProp("Maximum number of results (default 5)"),
					},
					Required: []string{"query"},
				},
			},
		},
	},
	SuiteDataProcessor: {
		{
			OfTool: &anthropic.ToolParam{
				Name:        "extract_metrics",
				Description: anthropic.String("Extract numeric values, percentages, and dollar amounts from text and compute basic statistics."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{
						"text": stringProp("Text to extract numeric data from"),
					},
					Required: []string{"text"},
				},
			},
		},
	},
	SuiteReportBuilder: {
		{
			OfTool: &anthropic.ToolParam{
				Name:        "build_report",
				Description: anthropic.String("Write a formatted markdown report to a file in the workspace."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{
						"file_name": stringProp("Report file name, e.g. 'analysis.md'"),
						"title":     stringProp("Report title"),
						"content":   stringProp("Report body in markdown"),
					},
					Required: []string{"file_name", "content"},
				},
			},
		},
	},
	SuiteFileEditor: {
		{
			OfTool: &anthropic.ToolParam{
				Name:        "read_file",
				Description: anthropic.String("Read the contents of a file in the workspace."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{
						"file_path": stringProp("Path to the file, relative to the workspace"),
					},
					Required: []string{"file_path"},
				},
			},
		},
		{
			OfTool: &anthropic.ToolParam{
				Name:        "write_file",
				Description: anthropic.String("Write content to a file, overwriting existing content. Parent directories are created as needed."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{
						"file_path": stringProp("Path to the file, relative to the workspace"),
						"content":   stringProp("Content to write"),
					},
					Required: []string{"file_path", "content"},
				},
			},
		},
		{
			OfTool: &anthropic.ToolParam{
				Name:        "append_to_file",
				Description: anthropic.String("Append content to the end of a file."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{
						"file_path": stringProp("Path to the file, relative to the workspace"),
						"content":   stringProp("Content to append"),
					},
					Required: []string{"file_path", "content"},
				},
			},
		},
		{
			OfTool: &anthropic.ToolParam{
				Name:        "list_files",
				Description: anthropic.String("List files in a workspace directory."),
				InputSchema: anthropic.ToolInputSchemaParam{
					Properties: map[string]interface{}{
						"path": stringProp("Directory path relative to the workspace (default '.')"),
					},
					Required: []string{},
				},
			},
		},
	},
}
