package conversation

import (
	"context"
	"errors"
	"time"

	"github.com/convodesk/platform/internal/leads"
	"github.com/convodesk/platform/internal/observability/metrics"
	"github.com/convodesk/platform/internal/rules"
	"github.com/convodesk/platform/pkg/logging"
)

// IntentMatcher is the slice of the rule engine the pipeline needs.
type IntentMatcher interface {
	Match(ctx context.Context, businessID, message string) (rules.MatchResult, error)
}

// Service runs the inbound message pipeline: match a rule, fall back to the
// assistant, persist the exchange, refresh contact memory, and capture a
// lead the first time a contact shows real intent.
type Service struct {
	matcher       IntentMatcher
	store         Store
	memory        *MemoryStore
	leads         leads.Repository
	knowledge     KnowledgeSource
	responder     Responder
	metrics       *metrics.EngineMetrics
	logger        *logging.Logger
	fallbackReply string
}

// ServiceOptions carries the optional collaborators.
type ServiceOptions struct {
	Memory        *MemoryStore
	Leads         leads.Repository
	Knowledge     KnowledgeSource
	Responder     Responder
	Metrics       *metrics.EngineMetrics
	FallbackReply string
}

// NewService wires the pipeline. Matcher and store are required; everything
// in opts degrades gracefully when absent.
func NewService(matcher IntentMatcher, store Store, logger *logging.Logger, opts ServiceOptions) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if opts.FallbackReply == "" {
		opts.FallbackReply = "I'm here to help! How can I assist you today?"
	}
	return &Service{
		matcher:       matcher,
		store:         store,
		memory:        opts.Memory,
		leads:         opts.Leads,
		knowledge:     opts.Knowledge,
		responder:     opts.Responder,
		metrics:       opts.Metrics,
		logger:        logger,
		fallbackReply: opts.FallbackReply,
	}
}

// ProcessInbound handles one message end to end. It always produces a
// reply: rule match first, assistant second, static fallback last. Storage
// and memory failures are logged but never surface to the contact.
func (s *Service) ProcessInbound(ctx context.Context, businessID string, inbound InboundMessage) (*InboundResult, error) {
	if err := inbound.Validate(); err != nil {
		return nil, err
	}

	memory := s.loadMemory(ctx, businessID, inbound)

	match, err := s.matcher.Match(ctx, businessID, inbound.Text)
	if err != nil {
		s.logger.Error("rule matching failed, using fallback intent",
			"error", err, "business_id", businessID, "channel", inbound.Channel)
	}

	result := &InboundResult{
		Intent:  match.Intent,
		RuleID:  match.RuleID,
		Matched: match.Matched,
	}
	if match.Matched {
		result.Reply = match.Response
	} else {
		result.Reply, result.FromAssist = s.assist(ctx, businessID, inbound, memory)
	}

	s.persist(ctx, businessID, inbound, result)
	s.refreshMemory(ctx, businessID, inbound, memory, result)

	if match.Matched {
		result.LeadCaptured = s.captureLead(ctx, businessID, inbound, match.Intent)
	}

	return result, nil
}

// Transcript returns the stored exchanges for a contact, oldest first.
func (s *Service) Transcript(ctx context.Context, businessID, channel, contactID string, limit int) ([]*Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.store.Transcript(ctx, businessID, channel, contactID, limit)
}

func (s *Service) loadMemory(ctx context.Context, businessID string, inbound InboundMessage) ContactMemory {
	if s.memory == nil {
		return ContactMemory{}
	}
	memory, err := s.memory.Load(ctx, businessID, inbound.Channel, inbound.ContactID)
	if err != nil {
		s.logger.Warn("contact memory unavailable",
			"error", err, "business_id", businessID, "contact_id", inbound.ContactID)
		return ContactMemory{}
	}
	return memory
}

// assist asks the responder for a grounded reply. Any failure falls back to
// the static greeting so the contact always hears something.
func (s *Service) assist(ctx context.Context, businessID string, inbound InboundMessage, memory ContactMemory) (string, bool) {
	if s.responder == nil {
		return s.fallbackReply, false
	}

	var snippets []string
	if s.knowledge != nil {
		var err error
		snippets, err = s.knowledge.Relevant(ctx, businessID, inbound.Text, 5)
		if err != nil {
			s.logger.Warn("knowledge lookup failed",
				"error", err, "business_id", businessID)
		}
	}

	reply, err := s.responder.Reply(ctx, ReplyRequest{
		BusinessID: businessID,
		Message:    inbound.Text,
		Memory:     memory,
		Knowledge:  snippets,
	})
	if err != nil {
		s.logger.Error("assistant reply failed",
			"error", err, "business_id", businessID, "channel", inbound.Channel)
		s.metrics.ObserveAssistant("error")
		return s.fallbackReply, false
	}
	s.metrics.ObserveAssistant("ok")
	return reply, true
}

func (s *Service) persist(ctx context.Context, businessID string, inbound InboundMessage, result *InboundResult) {
	if _, err := s.store.Append(ctx, &Message{
		BusinessID:  businessID,
		Channel:     inbound.Channel,
		ContactID:   inbound.ContactID,
		UserMessage: inbound.Text,
		BotResponse: result.Reply,
		Intent:      result.Intent,
		RuleID:      result.RuleID,
	}); err != nil {
		s.logger.Error("failed to persist conversation",
			"error", err, "business_id", businessID, "contact_id", inbound.ContactID)
	}
}

func (s *Service) refreshMemory(ctx context.Context, businessID string, inbound InboundMessage, memory ContactMemory, result *InboundResult) {
	if s.memory == nil {
		return
	}
	memory.MessageCount++
	memory.LastIntent = result.Intent
	memory.LastActivity = time.Now().UTC()
	if result.Intent == rules.FallbackIntent {
		memory.FallbackCount++
	}
	if err := s.memory.Save(ctx, businessID, inbound.Channel, inbound.ContactID, memory); err != nil {
		s.logger.Warn("failed to refresh contact memory",
			"error", err, "business_id", businessID, "contact_id", inbound.ContactID)
	}
}

// captureLead records the contact as a lead the first time a non-fallback
// intent fires. Failures are logged and swallowed: lead capture must never
// break the reply path.
func (s *Service) captureLead(ctx context.Context, businessID string, inbound InboundMessage, intent string) bool {
	if s.leads == nil {
		return false
	}

	_, err := s.leads.FindByContact(ctx, businessID, inbound.Channel, inbound.ContactID)
	if err == nil {
		return false
	}
	if !errors.Is(err, leads.ErrLeadNotFound) {
		s.logger.Warn("lead lookup failed, skipping capture",
			"error", err, "business_id", businessID, "contact_id", inbound.ContactID)
		return false
	}

	if _, err := s.leads.Create(ctx, &leads.CreateLeadRequest{
		BusinessID:   businessID,
		Channel:      inbound.Channel,
		ContactID:    inbound.ContactID,
		SourceIntent: intent,
	}); err != nil {
		s.logger.Warn("lead capture failed",
			"error", err, "business_id", businessID, "contact_id", inbound.ContactID)
		return false
	}

	s.metrics.ObserveLeadCaptured()
	s.logger.Info("lead captured from conversation",
		"business_id", businessID, "channel", inbound.Channel, "intent", intent)
	return true
}
