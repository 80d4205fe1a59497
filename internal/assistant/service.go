// Package assistant is the conversational layer: a tool-calling junior
// analyst that answers questions about the user's pipeline, grounded in
// deck content, council results and live research.
package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/venturesight/dealdesk/internal/config"
	"github.com/venturesight/dealdesk/internal/model"
	"github.com/venturesight/dealdesk/internal/store"
	"github.com/venturesight/dealdesk/pkg/anthropic"
	"github.com/venturesight/dealdesk/pkg/brave"
)

const associateSystemPrompt = `You are the VentureSight AI Associate, an elite investment analyst.
CURRENT DATE: %s

YOUR MISSION:
You are an expert Senior Investment Analyst. Your goal is to provide high-leverage, long-form intelligence to a Venture Capital Partner. You assist in evaluating deals, managing their pipeline, and performing deep due diligence.

RESPONSE STYLE:
- **Depth Over Brevity**: Generally provide detailed, multi-paragraph responses. Even for simple questions, provide context, potential implications, and analytical "next steps".
- **Structured Explanations**: Use headers, bullet points, and tables. Avoid blocks of text.
- **Root Cause & Rationale**: Always explain **WHY** you are drawing a conclusion based on the data.
- **Proactive Insights**: If you see a risk in a deck, don't just state it; explain how it fits into the broader market narrative.

GUARDRAILS & SAFETY PROTOCOLS:
- **Topic Enforcement**: You are a specialized Venture Capital assistant. If a user asks about general topics (e.g., cooking, sports, politics, or general life advice), politely decline and state that your expertise is limited to startup and investment analysis.
- **No Financial Advice**: You provide data-driven analysis to assist in decision-making. You DO NOT provide regulated financial advice. Include a subtle disclaimer when making high-stakes scoring comparisons.
- **Contextual Integrity**: Prioritize the provided SELECTED DECK CONTENT and KEY METRICS from tools over your internal general knowledge. If a startup is in the CRM, never guess its details.
- **Professional Tone**: Maintain an elite, analytical, yet helpful "Junior Analyst" persona.

OPERATIONAL BOUNDARIES:
- **Be Proactive**: If the user asks "How is my pipeline?", don't explain what a pipeline is. USE get_pipeline_summary.
- **Tool Preference**: If the user mentions a startup from the CRM, YOU MUST use get_deal_details to get the latest structured results before answering.
- **Deep-Dive Comparisons**: For "Compare A and B", USE get_deal_details for BOTH startups to retrieve their full metrics before answering.
- **Metric Verification**: Always cite the specific metrics (TAM, Team Size, Series) found in the tools.

%s

Cite your sources. Mention if you are pulling from an official Investment Council memo or search_web.`

// retrievalHits is how many chunks the context builder and the
// search_decks tool pull per query.
const retrievalHits = 5

// exhaustedReply is returned when the tool budget runs out before the
// model produces a tool-free turn.
const exhaustedReply = "I gathered a lot of data but ran out of analysis steps. Ask me to continue and I will summarize what I found."

// Deals is the slice of the document pipeline the assistant drives.
type Deals interface {
	List(ctx context.Context, filter store.DocumentFilter) ([]model.Document, error)
	GetAnalysis(ctx context.Context, documentID string) (*model.Analysis, error)
	Delete(ctx context.Context, documentID string) error
	TriggerAnalysis(ctx context.Context, documentID string) error
}

// Researcher runs live market research.
type Researcher interface {
	AnalyzeTAM(ctx context.Context, deckText, industry, country string) (*model.MarketResearch, error)
	AnalyzeCompetitors(ctx context.Context, name, tagline, industry, description string) ([]model.Competitor, error)
}

// Retriever searches indexed deck content.
type Retriever interface {
	Search(ctx context.Context, query string, documentIDs []string, limit int, threshold float64) ([]model.Chunk, error)
}

// ThesisManager reads and updates the investment thesis.
type ThesisManager interface {
	Get(ctx context.Context, userID string) (*model.Thesis, error)
	Update(ctx context.Context, userID string, t *model.Thesis) (*model.Thesis, error)
}

// Service is the assistant.
type Service struct {
	ai        anthropic.Client
	store     store.Store
	deals     Deals
	research  Researcher
	retrieval Retriever
	thesis    ThesisManager
	search    brave.Client
	model     string
	cfg       config.AssistantConfig
}

// New creates an assistant Service.
func New(
	ai anthropic.Client,
	st store.Store,
	deals Deals,
	research Researcher,
	retrieval Retriever,
	thesis ThesisManager,
	search brave.Client,
	aiCfg config.AnthropicConfig,
	cfg config.AssistantConfig,
) *Service {
	return &Service{
		ai:        ai,
		store:     st,
		deals:     deals,
		research:  research,
		retrieval: retrieval,
		thesis:    thesis,
		search:    search,
		model:     aiCfg.SonnetModel,
		cfg:       cfg,
	}
}

// ChatRequest is one user turn.
type ChatRequest struct {
	UserID         string   `json:"user_id"`
	ConversationID string   `json:"conversation_id,omitempty"`
	DocumentIDs    []string `json:"document_ids,omitempty"`
	Query          string   `json:"query"`
}

// ChatReply is the assistant's answer plus the conversation it landed in.
type ChatReply struct {
	ConversationID string `json:"conversation_id"`
	Reply          string `json:"reply"`
}

// Respond answers one user turn. The model may call tools; the loop is
// bounded, and intermediate tool traffic is never persisted. Only the user
// query and the final assistant text are appended to the conversation.
func (s *Service) Respond(ctx context.Context, req ChatRequest) (*ChatReply, error) {
	if req.UserID == "" {
		return nil, eris.New("assistant: user id is required")
	}
	if strings.TrimSpace(req.Query) == "" {
		return nil, eris.New("assistant: query is empty")
	}

	conv, err := s.resolveConversation(ctx, req)
	if err != nil {
		return nil, err
	}

	history, err := s.store.ListMessages(ctx, conv.ID, s.cfg.HistoryLimit)
	if err != nil {
		return nil, eris.Wrap(err, "assistant: load history")
	}

	system := s.buildSystemPrompt(ctx, req)
	messages := make([]anthropic.Message, 0, len(history)+1)
	for _, m := range history {
		messages = append(messages, anthropic.Message{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, anthropic.Message{Role: "user", Content: req.Query})

	reply, err := s.runToolLoop(ctx, req, system, messages)
	if err != nil {
		return nil, err
	}

	s.persistTurn(ctx, conv.ID, req.Query, reply)
	return &ChatReply{ConversationID: conv.ID, Reply: reply}, nil
}

// runToolLoop drives the model until it produces a tool-free turn or the
// loop budget is exhausted. Tool results (including failures) go back to
// the model as tool_result blocks.
func (s *Service) runToolLoop(ctx context.Context, req ChatRequest, system string, messages []anthropic.Message) (string, error) {
	tools := toolRegistry()
	lastText := ""

	for i := 0; i < s.cfg.MaxToolLoops; i++ {
		resp, err := s.ai.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     s.model,
			MaxTokens: 4096,
			System:    []anthropic.SystemBlock{{Text: system}},
			Messages:  messages,
			Tools:     tools,
		})
		if err != nil {
			return "", eris.Wrap(err, "assistant: create message")
		}
		resp.Usage.LogCost(s.model, "assistant")

		if text := strings.TrimSpace(resp.Text()); text != "" {
			lastText = text
		}

		toolUses := collectToolUses(resp)
		if len(toolUses) == 0 {
			if lastText == "" {
				lastText = "I'm ready to help."
			}
			return lastText, nil
		}

		messages = append(messages, assistantTurn(resp))

		results := make([]anthropic.RequestBlock, 0, len(toolUses))
		for _, use := range toolUses {
			out, isErr := s.executeTool(ctx, req.UserID, req.DocumentIDs, use.Name, use.Input)
			results = append(results, anthropic.RequestBlock{
				Type:    "tool_result",
				ToolID:  use.ID,
				Text:    out,
				IsError: isErr,
			})
		}
		messages = append(messages, anthropic.Message{Role: "user", Blocks: results})
	}

	zap.L().Warn("assistant: tool loop budget exhausted",
		zap.String("user_id", req.UserID),
		zap.Int("budget", s.cfg.MaxToolLoops),
	)
	if lastText == "" {
		return exhaustedReply, nil
	}
	return lastText, nil
}

// buildSystemPrompt assembles the per-turn context: thesis, council
// results for targeted decks, direct deck excerpts and retrieval hits.
// Every section is best-effort; context gaps degrade the answer, they do
// not fail the turn.
func (s *Service) buildSystemPrompt(ctx context.Context, req ChatRequest) string {
	var sections []string

	if th, err := s.thesis.Get(ctx, req.UserID); err == nil && th != nil && !th.Empty() {
		sections = append(sections, th.PromptContext())
	}

	for _, docID := range req.DocumentIDs {
		doc, err := s.store.GetDocument(ctx, docID)
		if err != nil || doc == nil || doc.UserID != req.UserID {
			continue
		}
		excerpt := truncate(doc.RawText, s.cfg.ExcerptCap)
		sections = append(sections, fmt.Sprintf("=== SELECTED DECK CONTENT ===\n-- Startup: %s\n%s", doc.Name, excerpt))

		if analysis, err := s.deals.GetAnalysis(ctx, docID); err == nil {
			sections = append(sections, renderCouncilContext(analysis))
		}
	}

	if hits := s.retrieveContext(ctx, req); hits != "" {
		sections = append(sections, hits)
	}

	extra := ""
	if len(sections) > 0 {
		extra = strings.Join(sections, "\n\n")
	}
	return fmt.Sprintf(associateSystemPrompt, time.Now().Format("January 2, 2006"), extra)
}

func (s *Service) retrieveContext(ctx context.Context, req ChatRequest) string {
	docIDs := req.DocumentIDs
	if len(docIDs) == 0 {
		docs, err := s.deals.List(ctx, store.DocumentFilter{UserID: req.UserID})
		if err != nil {
			return ""
		}
		for _, d := range docs {
			docIDs = append(docIDs, d.ID)
		}
	}
	if len(docIDs) == 0 {
		return ""
	}

	chunks, err := s.retrieval.Search(ctx, req.Query, docIDs, retrievalHits, 0)
	if err != nil || len(chunks) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("=== RELEVANT DECK EXCERPTS ===\n")
	for _, c := range chunks {
		fmt.Fprintf(&b, "-- Source Deck: %s\n%s\n\n", c.DocumentID, c.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderCouncilContext(a *model.Analysis) string {
	var b strings.Builder
	fmt.Fprintf(&b, "=== INVESTMENT COUNCIL RESULTS ===\nFinal Score: %.0f/100 (%s)\n",
		a.Consensus.FinalScore, valueOr(a.Consensus.Recommendation, "n/a"))
	if a.Consensus.Summary != "" {
		fmt.Fprintf(&b, "Summary: %s\n", a.Consensus.Summary)
	}
	for _, cs := range a.Consensus.CategoryScores {
		fmt.Fprintf(&b, "- %s: %.1f/10\n", cs.Category, cs.Score)
	}
	if len(a.Consensus.KeyStrengths) > 0 {
		fmt.Fprintf(&b, "Strengths: %s\n", strings.Join(a.Consensus.KeyStrengths, "; "))
	}
	if len(a.Consensus.KeyWeaknesses) > 0 {
		fmt.Fprintf(&b, "Weaknesses: %s\n", strings.Join(a.Consensus.KeyWeaknesses, "; "))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (s *Service) resolveConversation(ctx context.Context, req ChatRequest) (*model.Conversation, error) {
	if req.ConversationID != "" {
		conv, err := s.store.GetConversation(ctx, req.ConversationID)
		if err != nil {
			return nil, eris.Wrap(err, "assistant: load conversation")
		}
		if conv == nil || conv.UserID != req.UserID {
			return nil, eris.Errorf("assistant: conversation not found: %s", req.ConversationID)
		}
		return conv, nil
	}

	conv := &model.Conversation{
		ID:     uuid.NewString(),
		UserID: req.UserID,
		Title:  conversationTitle(req.Query),
	}
	if len(req.DocumentIDs) == 1 {
		conv.DocumentID = req.DocumentIDs[0]
	}
	if err := s.store.CreateConversation(ctx, conv); err != nil {
		return nil, eris.Wrap(err, "assistant: create conversation")
	}
	return conv, nil
}

// persistTurn appends the user query and final reply. Persistence failure
// loses history but never the answer.
func (s *Service) persistTurn(ctx context.Context, conversationID, query, reply string) {
	for _, msg := range []*model.Message{
		{ConversationID: conversationID, Role: model.MessageRoleUser, Content: query},
		{ConversationID: conversationID, Role: model.MessageRoleAssistant, Content: reply},
	} {
		if err := s.store.AppendMessage(ctx, msg); err != nil {
			zap.L().Warn("assistant: failed to persist message",
				zap.String("conversation_id", conversationID),
				zap.String("role", msg.Role),
				zap.Error(err),
			)
		}
	}
}

// Conversations lists the user's chat threads, newest first.
func (s *Service) Conversations(ctx context.Context, userID string) ([]model.Conversation, error) {
	convs, err := s.store.ListConversations(ctx, userID)
	if err != nil {
		return nil, eris.Wrap(err, "assistant: list conversations")
	}
	return convs, nil
}

// History returns the persisted turns of one conversation.
func (s *Service) History(ctx context.Context, userID, conversationID string) ([]model.Message, error) {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return nil, eris.Wrap(err, "assistant: load conversation")
	}
	if conv == nil || conv.UserID != userID {
		return nil, eris.Errorf("assistant: conversation not found: %s", conversationID)
	}
	msgs, err := s.store.ListMessages(ctx, conversationID, s.cfg.HistoryLimit)
	if err != nil {
		return nil, eris.Wrap(err, "assistant: load history")
	}
	return msgs, nil
}

func collectToolUses(resp *anthropic.MessageResponse) []anthropic.ContentBlock {
	var uses []anthropic.ContentBlock
	for _, b := range resp.Content {
		if b.Type == "tool_use" {
			uses = append(uses, b)
		}
	}
	return uses
}

// assistantTurn converts a response into the assistant request message that
// precedes the tool results, preserving block order.
func assistantTurn(resp *anthropic.MessageResponse) anthropic.Message {
	blocks := make([]anthropic.RequestBlock, 0, len(resp.Content))
	for _, b := range resp.Content {
		switch b.Type {
		case "tool_use":
			blocks = append(blocks, anthropic.RequestBlock{
				Type:      "tool_use",
				ToolID:    b.ID,
				ToolName:  b.Name,
				ToolInput: b.Input,
			})
		case "text":
			if b.Text != "" {
				blocks = append(blocks, anthropic.RequestBlock{Type: "text", Text: b.Text})
			}
		}
	}
	return anthropic.Message{Role: "assistant", Blocks: blocks}
}

func conversationTitle(query string) string {
	title := strings.TrimSpace(query)
	if len(title) > 60 {
		title = truncate(title, 57) + "..."
	}
	return title
}

// truncate cuts s to at most limit bytes without splitting a UTF-8 rune.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}
