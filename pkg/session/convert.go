package session

import (
	"strings"

	"github.com/agentd/core/pkg/store"
	"github.com/agentd/core/pkg/tools"
)

// resultToStoreParts joins a tool result's parts into the single text
// part the tool-role message carries. A failed result with no parts
// still surfaces its error text so the model sees why the call failed.
func resultToStoreParts(result tools.Result) []store.Part {
	var texts []string
	for _, p := range result.Parts {
		if p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	if len(texts) == 0 && !result.OK && result.Error != "" {
		texts = append(texts, result.Error)
	}
	return []store.Part{{Type: store.PartText, Text: strings.Join(texts, "\n")}}
}
