package prompt

import (
	"strings"

	"github.com/ent0n29/aurora/internal/ai"
	"github.com/ent0n29/aurora/internal/chat"
	"github.com/ent0n29/aurora/internal/memory"
)

const contextPreamble = "These are the most relevant pieces of information I found in your past conversations:"

// Assemble builds the generation prompt from the bounded short-term window
// and the retrieved long-term memories. The synthetic context entry comes
// first so the model sees priming context ahead of the dialogue, then the
// recent turns oldest-first. With no memories the context entry is omitted
// entirely; with no recent turns the prompt is the context entry alone.
func Assemble(recent []chat.Turn, memories []memory.Match) []ai.Message {
	prompt := make([]ai.Message, 0, len(recent)+1)

	if len(memories) > 0 {
		texts := make([]string, 0, len(memories))
		for _, m := range memories {
			texts = append(texts, m.Metadata.Text)
		}
		prompt = append(prompt, ai.Message{
			Role:    chat.RoleUser,
			Content: contextPreamble + "\n" + strings.Join(texts, "\n"),
		})
	}

	for _, t := range recent {
		prompt = append(prompt, ai.Message{Role: t.Role, Content: t.Content})
	}

	return prompt
}
