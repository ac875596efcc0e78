package knowledge

import (
	"fmt"
	"strings"

	"github.com/ermiller24/executive-layer/internal/graph"
)

// Item is one retrieved knowledge entry folded into a Document.
type Item struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Score       float64 `json:"score"`
}

// Document is the folded result of a retrieval pass: the topics that
// matched, the knowledge items gathered under them, and a rendered text
// block suitable for splicing into a prompt. A Document may be empty.
type Document struct {
	Topics []graph.VectorHit `json:"topics,omitempty"`
	Items  []Item            `json:"items,omitempty"`
	Text   string            `json:"text"`
}

// IsEmpty reports whether the document carries no retrieved content.
func (d Document) IsEmpty() bool {
	return len(d.Topics) == 0 && len(d.Items) == 0
}

// ItemFromVectorHit converts a vector hit into a document item.
func ItemFromVectorHit(hit graph.VectorHit) Item {
	return Item{
		Name:        hit.Name,
		Description: hit.Description,
		Score:       hit.Score,
	}
}

// ItemFromHybridHit converts a hybrid hit's target into a document item,
// carrying the source's similarity score.
func ItemFromHybridHit(hit graph.HybridHit) Item {
	return Item{
		Name:        hit.TargetName,
		Description: hit.TargetDescription,
		Score:       hit.Score,
	}
}

// FoldDocument assembles a Document, rendering each item as a scored
// name/description line. Duplicate item names keep their first occurrence.
func FoldDocument(topics []graph.VectorHit, items []Item) Document {
	seen := make(map[string]bool, len(items))
	deduped := make([]Item, 0, len(items))
	for _, item := range items {
		if seen[item.Name] {
			continue
		}
		seen[item.Name] = true
		deduped = append(deduped, item)
	}

	var sb strings.Builder
	for i, item := range deduped {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "- %s: %s (relevance %.2f)", item.Name, item.Description, item.Score)
	}

	return Document{
		Topics: topics,
		Items:  deduped,
		Text:   sb.String(),
	}
}
