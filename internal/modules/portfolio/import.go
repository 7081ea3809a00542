package portfolio

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/aristath/alphaseeker/internal/domain"
)

// importFieldSeparator accepts ASCII and full-width commas.
var importFieldSeparator = regexp.MustCompile(`[,，]`)

// ImportLine is one parsed batch-import row.
type ImportLine struct {
	Line        int               `json:"line"`
	DisplayName string            `json:"display_name"`
	AssetClass  domain.AssetClass `json:"asset_class"`
	Symbol      string            `json:"symbol"`
	UnitCost    float64           `json:"unit_cost"`
	Quantity    float64           `json:"quantity"`
}

// ImportError reports a skipped row.
type ImportError struct {
	Line   int    `json:"line"`
	Text   string `json:"text"`
	Reason string `json:"reason"`
}

// ParseImport parses batch text of the form "name, type, code, cost, qty" per line.
// Blank lines and lines starting with '#' are ignored; malformed rows are reported and
// skipped. The type column is free text classified by domain.GuessAssetClass. An empty
// code falls back to the name as the symbol.
func ParseImport(text string) ([]ImportLine, []ImportError) {
	var lines []ImportLine
	var skipped []ImportError

	for i, raw := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		lineNo := i + 1
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		line, err := parseImportLine(trimmed)
		if err != nil {
			skipped = append(skipped, ImportError{Line: lineNo, Text: trimmed, Reason: err.Error()})
			continue
		}
		line.Line = lineNo
		lines = append(lines, line)
	}

	return lines, skipped
}

func parseImportLine(text string) (ImportLine, error) {
	parts := importFieldSeparator.Split(text, -1)
	if len(parts) < 5 {
		return ImportLine{}, fmt.Errorf("expected 5 fields (name, type, code, cost, qty), got %d", len(parts))
	}
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}

	name := parts[0]
	if name == "" {
		return ImportLine{}, fmt.Errorf("name is required")
	}
	cost, err := strconv.ParseFloat(parts[3], 64)
	if err != nil {
		return ImportLine{}, fmt.Errorf("invalid cost %q", parts[3])
	}
	qty, err := strconv.ParseFloat(parts[4], 64)
	if err != nil {
		return ImportLine{}, fmt.Errorf("invalid quantity %q", parts[4])
	}

	symbol := domain.NormalizeSymbol(parts[2])
	if symbol == "" {
		symbol = domain.NormalizeSymbol(name)
	}
	class := domain.GuessAssetClass(parts[1])

	if err := domain.ValidateBuy(symbol, class, qty, cost); err != nil {
		return ImportLine{}, err
	}

	return ImportLine{
		DisplayName: name,
		AssetClass:  class,
		Symbol:      symbol,
		UnitCost:    cost,
		Quantity:    qty,
	}, nil
}
