package conversation

import (
	"context"
	"fmt"
	"strings"
)

// ReplyRequest is everything the assistant gets to work with when no rule
// matched.
type ReplyRequest struct {
	BusinessID string
	Message    string
	Memory     ContactMemory
	Knowledge  []string
}

// Responder produces a free-form reply for messages the rule engine could
// not answer. Implementations must respect ctx cancellation.
type Responder interface {
	Reply(ctx context.Context, req ReplyRequest) (string, error)
}

// KnowledgeSource supplies snippets relevant to a message for grounding the
// assistant.
type KnowledgeSource interface {
	Relevant(ctx context.Context, businessID, message string, limit int) ([]string, error)
}

// buildSystemPrompt assembles the assistant instructions from business
// knowledge and short-term contact state.
func buildSystemPrompt(req ReplyRequest) string {
	var b strings.Builder
	b.WriteString("You are a customer support assistant for a business. ")
	b.WriteString("Answer briefly and helpfully using only the business information below. ")
	b.WriteString("If the information does not cover the question, say you will connect the customer with a team member.\n")

	if len(req.Knowledge) > 0 {
		b.WriteString("\nBusiness information:\n")
		for _, snippet := range req.Knowledge {
			b.WriteString("- ")
			b.WriteString(snippet)
			b.WriteString("\n")
		}
	}

	if req.Memory.LastIntent != "" {
		fmt.Fprintf(&b, "\nThe customer's previous topic was %q.\n", req.Memory.LastIntent)
	}
	if req.Memory.MessageCount > 0 {
		fmt.Fprintf(&b, "This is message %d of the conversation.\n", req.Memory.MessageCount+1)
	}
	return b.String()
}
