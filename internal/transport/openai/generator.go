package openai

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/scranton-labs/auditdex/internal/domain"
	"github.com/scranton-labs/auditdex/internal/usecase/evidence"
)

const generatorSystemPrompt = `You are a senior corporate compliance auditor. Write a concise audit
analysis in Markdown, grounded ONLY in the evidence provided. Cite
transaction IDs, email senders and policy sections when you reference
them. If the evidence does not support a finding, say so plainly.
Never invent transactions, emails or policy text.`

// Generator turns the bounded evidence payload into the final audit
// narrative via a chat completion.
type Generator struct {
	client *openai.Client
	model  string
	logger *zap.Logger
}

// NewGenerator creates the narrative generator.
func NewGenerator(cfg *Config, model string) *Generator {
	return &Generator{
		client: newClient(cfg.APIKey, cfg.BaseURL),
		model:  model,
		logger: cfg.Logger,
	}
}

// Generate implements the generator collaborator contract.
func (g *Generator) Generate(ctx context.Context, payload evidence.Payload) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: generatorSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildAnalysisPrompt(payload)},
		},
		Temperature: 0.2,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrNarrativeFailed, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: empty completion", domain.ErrNarrativeFailed)
	}

	answer := strings.TrimSpace(resp.Choices[0].Message.Content)
	if answer == "" {
		return "", fmt.Errorf("%w: blank completion", domain.ErrNarrativeFailed)
	}
	return answer, nil
}

// buildAnalysisPrompt renders the capped evidence payload as sections
// the model can cite from. Empty categories are named explicitly so
// the model does not guess at missing evidence.
func buildAnalysisPrompt(p evidence.Payload) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Audit query (%s): %s\n", p.QueryType, p.Query)

	b.WriteString("\n## Policy Excerpts\n")
	if len(p.PolicySnippets) == 0 {
		b.WriteString("(none retrieved)\n")
	}
	for _, s := range p.PolicySnippets {
		b.WriteString("- " + s + "\n")
	}

	b.WriteString("\n## Emails\n")
	if len(p.Emails) == 0 {
		b.WriteString("(none retrieved)\n")
	}
	for _, e := range p.Emails {
		fmt.Fprintf(&b, "- From %s to %s on %s, subject %q: %s\n",
			e.From, e.To, e.Date, e.Subject, e.Body)
	}

	b.WriteString("\n## Transactions with Violations\n")
	if len(p.ViolatedTxs) == 0 {
		b.WriteString("(none found)\n")
	}
	for _, t := range p.ViolatedTxs {
		fmt.Fprintf(&b, "- %s %s %s $%.2f (%s): %s\n",
			t.ID, t.Date, t.Employee, t.Amount, t.Category, t.Description)
		for _, v := range t.Violations {
			fmt.Fprintf(&b, "  - [%s/%s] %s (%s)\n", v.Severity, v.Kind, v.Description, v.RuleRef)
		}
	}

	b.WriteString("\n## Fraud Alerts\n")
	if len(p.FraudAlerts) == 0 {
		b.WriteString("(none found)\n")
	}
	for _, a := range p.FraudAlerts {
		fmt.Fprintf(&b, "- [%s/%s] %s: %s (total $%.2f, transactions %s, %s)\n",
			a.Severity, a.Kind, a.Employee, a.Description, a.TotalAmount,
			strings.Join(a.EvidenceTransactionIDs, ", "), a.RuleRef)
	}

	fmt.Fprintf(&b, "\nTotals across all evidence: %d policy sections, %d emails, %d transactions (%d with violations), %d fraud alerts.\n",
		p.Stats.PolicyChunks, p.Stats.Emails, p.Stats.Transactions, p.Stats.ViolatedTxs, p.Stats.FraudAlerts)

	b.WriteString("\nWrite the audit analysis now.")
	return b.String()
}
