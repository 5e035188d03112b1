package agent

import (
	"context"
	"regexp"
	"strconv"
	"strings"
)

var (
	nameRe    = regexp.MustCompile(`(?i)\b(?:my name is|i am|this is)\s+([A-Za-z ,.'-]+)`)
	addressRe = regexp.MustCompile(`(?i)(?:my address is|deliver to|address[:\-]?)\s*(.+)`)
	removeRe  = regexp.MustCompile(`\bremove(?: item)?\s+(\d+)`)
	updateRe  = regexp.MustCompile(`\b(?:update|change)(?: item)?\s+(\d+)(?:\s+to)?(?:\s+(?:size\s+)?(small|medium|large))?(?:\s+(?:qty|quantity)\s+(\d+))?`)
	addRe     = regexp.MustCompile(`(?:\badd\b|\bi want to order\b|\bi'd like\b|\bi want\b|\bi'll have\b|\bget me\b|\border\b)\s*(?:(?:a|an|the)\s+)?(\d+)?\s*(small|medium|large)?\s*([a-z][a-z ]*)`)
	cartTail  = regexp.MustCompile(`\s+to (?:my |the )?cart$`)
)

const defaultSize = "medium"

// HeuristicParser reads messages with fixed keyword and regex rules. It needs
// no network and is the fallback for the model-backed parser.
type HeuristicParser struct{}

// NewHeuristicParser creates a rule-based parser.
func NewHeuristicParser() *HeuristicParser {
	return &HeuristicParser{}
}

// Parse never returns an error.
func (p *HeuristicParser) Parse(_ context.Context, text string) (ParsedIntent, error) {
	return parseHeuristic(text), nil
}

//nolint:gocyclo // Rule order is the precedence; keeping it in one place keeps it readable.
func parseHeuristic(text string) ParsedIntent {
	trimmed := strings.TrimSpace(text)
	tx := strings.ToLower(trimmed)
	words := strings.Fields(tx)

	switch {
	case tx == "":
		return ParsedIntent{Action: ActionUnknown}
	case strings.Contains(tx, "menu") && len(words) <= 2:
		return ParsedIntent{Action: ActionMenu}
	case tx == "clear" || strings.Contains(tx, "clear cart") || strings.Contains(tx, "empty cart") || strings.Contains(tx, "empty my cart"):
		return ParsedIntent{Action: ActionClear}
	case strings.Contains(tx, "checkout") || strings.Contains(tx, "check out"):
		return ParsedIntent{Action: ActionCheckout}
	}

	if m := nameRe.FindStringSubmatch(trimmed); m != nil {
		if name := strings.Trim(strings.TrimSpace(m[1]), ",."); name != "" {
			return ParsedIntent{Action: ActionName, Name: name}
		}
	}
	if m := addressRe.FindStringSubmatch(trimmed); m != nil {
		if addr := strings.TrimSpace(m[1]); addr != "" {
			return ParsedIntent{Action: ActionAddress, Address: addr}
		}
	}
	if m := removeRe.FindStringSubmatch(tx); m != nil {
		return ParsedIntent{Action: ActionRemove, Index: atoi(m[1])}
	}
	if m := updateRe.FindStringSubmatch(tx); m != nil {
		return ParsedIntent{Action: ActionUpdate, Index: atoi(m[1]), Size: m[2], Qty: atoi(m[3])}
	}
	if m := addRe.FindStringSubmatch(tx); m != nil {
		item := strings.TrimSpace(cartTail.ReplaceAllString(strings.TrimSpace(m[3]), ""))
		qty := 1
		if m[1] != "" {
			qty = atoi(m[1])
		}
		size := m[2]
		if size == "" {
			size = defaultSize
		}
		return ParsedIntent{Action: ActionAdd, Item: titleCase(item), Size: size, Qty: qty}
	}
	if strings.Contains(tx, "cart") {
		return ParsedIntent{Action: ActionShow}
	}
	return ParsedIntent{Action: ActionUnknown, Raw: trimmed}
}

func atoi(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// titleCase upper-cases the first letter of each word and lower-cases the rest.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}
