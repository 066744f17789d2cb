package procurement

import (
	"strings"

	"github.com/google/uuid"
)

// minSignificantWordLen is the shortest word considered for overlap matching
const minSignificantWordLen = 4

// LineMatch links an invoice line to its purchase order and receipt lines
type LineMatch struct {
	LineIndex   int               // index of the invoice line
	Description string            // invoice line description
	OrderItem   *PurchaseOrderItem
	ReceiptItem *GoodsReceiptItem // nil when the order item was never received
}

// IsMatched returns true when an order item was found for the line
func (m LineMatch) IsMatched() bool {
	return m.OrderItem != nil
}

// LineMatcher links invoice lines to purchase order items and receipt items.
// Implementations are interchangeable so the matching heuristic can be
// replaced without touching variance or tolerance logic.
type LineMatcher interface {
	// Match resolves each invoice line description against the order's items
	// and joins receipt items by order item id. The result has one entry per
	// invoice line, in input order; unmatched lines have OrderItem == nil.
	Match(descriptions []string, order *PurchaseOrder, receipt *GoodsReceipt) []LineMatch
}

// HeuristicLineMatcher matches invoice lines to order items by description:
// exact case-insensitive match first, then substring containment in either
// direction, then overlap on significant words. First hit wins and a matched
// order item is not offered to later lines.
//
// Lines with near-identical descriptions ("Steel Plate 3mm" vs "4mm") can
// mis-link under the word-overlap pass; no confidence score is surfaced.
type HeuristicLineMatcher struct{}

// NewHeuristicLineMatcher creates the default description-based matcher
func NewHeuristicLineMatcher() *HeuristicLineMatcher {
	return &HeuristicLineMatcher{}
}

// Match implements LineMatcher
func (m *HeuristicLineMatcher) Match(descriptions []string, order *PurchaseOrder, receipt *GoodsReceipt) []LineMatch {
	index := newOrderItemIndex(order)
	receiptByOrderItem := make(map[uuid.UUID]*GoodsReceiptItem, len(receipt.Items))
	for idx := range receipt.Items {
		receiptByOrderItem[receipt.Items[idx].OrderItemID] = &receipt.Items[idx]
	}

	matches := make([]LineMatch, len(descriptions))
	for lineIdx, description := range descriptions {
		match := LineMatch{LineIndex: lineIdx, Description: description}
		if orderItem := index.take(description); orderItem != nil {
			match.OrderItem = orderItem
			match.ReceiptItem = receiptByOrderItem[orderItem.ID]
		}
		matches[lineIdx] = match
	}
	return matches
}

// orderItemIndex precomputes lookup maps over an order's items so matching a
// line is O(words) instead of a nested scan over all items
type orderItemIndex struct {
	items   []*PurchaseOrderItem
	claimed map[uuid.UUID]bool
	exact   map[string]*PurchaseOrderItem   // normalized description -> item
	byWord  map[string][]*PurchaseOrderItem // significant word -> items containing it
}

func newOrderItemIndex(order *PurchaseOrder) *orderItemIndex {
	idx := &orderItemIndex{
		items:   make([]*PurchaseOrderItem, 0, len(order.Items)),
		claimed: make(map[uuid.UUID]bool),
		exact:   make(map[string]*PurchaseOrderItem, len(order.Items)),
		byWord:  make(map[string][]*PurchaseOrderItem),
	}
	for i := range order.Items {
		item := &order.Items[i]
		idx.items = append(idx.items, item)
		normalized := normalizeDescription(item.Description)
		if _, exists := idx.exact[normalized]; !exists {
			idx.exact[normalized] = item
		}
		for _, word := range significantWords(normalized) {
			idx.byWord[word] = append(idx.byWord[word], item)
		}
	}
	return idx
}

// take finds the best order item for a description and claims it so the same
// item is not matched twice. Returns nil when nothing matches.
func (idx *orderItemIndex) take(description string) *PurchaseOrderItem {
	normalized := normalizeDescription(description)
	if normalized == "" {
		return nil
	}

	// Pass 1: exact case-insensitive match
	if item, ok := idx.exact[normalized]; ok && !idx.claimed[item.ID] {
		idx.claimed[item.ID] = true
		return item
	}

	// Pass 2: substring containment in either direction
	for _, item := range idx.items {
		if idx.claimed[item.ID] {
			continue
		}
		itemDesc := normalizeDescription(item.Description)
		if strings.Contains(itemDesc, normalized) || strings.Contains(normalized, itemDesc) {
			idx.claimed[item.ID] = true
			return item
		}
	}

	// Pass 3: overlap on any significant word, via the precomputed index
	for _, word := range significantWords(normalized) {
		for _, item := range idx.byWord[word] {
			if !idx.claimed[item.ID] {
				idx.claimed[item.ID] = true
				return item
			}
		}
	}

	return nil
}

func normalizeDescription(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// significantWords returns the words longer than three characters
func significantWords(normalized string) []string {
	fields := strings.Fields(normalized)
	words := make([]string, 0, len(fields))
	for _, field := range fields {
		if len(field) >= minSignificantWordLen {
			words = append(words, field)
		}
	}
	return words
}
