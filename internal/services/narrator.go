package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jwebster45206/anima-narrator/pkg/narrative"
	"github.com/jwebster45206/anima-narrator/pkg/prompts"
	"github.com/jwebster45206/anima-narrator/pkg/state"
	"github.com/jwebster45206/anima-narrator/pkg/textfilter"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/jwebster45206/anima-narrator/internal/services"

// DefaultNarratorTimeout bounds a single narrator call.
const DefaultNarratorTimeout = 90 * time.Second

// NarratorService turns a command and the current state into a narrative turn
// by prompting the LLM and parsing its JSON reply.
type NarratorService struct {
	llm     LLMService
	rating  string
	filter  *textfilter.Filter // nil when the rating allows profanity
	timeout time.Duration
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewNarratorService wraps llm. Non-positive timeouts use DefaultNarratorTimeout.
func NewNarratorService(llm LLMService, rating string, timeout time.Duration, logger *slog.Logger) *NarratorService {
	if timeout <= 0 {
		timeout = DefaultNarratorTimeout
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &NarratorService{
		llm:     llm,
		rating:  rating,
		filter:  textfilter.ForRating(rating),
		timeout: timeout,
		logger:  logger,
		tracer:  otel.Tracer(tracerName),
	}
}

// Narrate implements engine.Narrator.
func (n *NarratorService) Narrate(ctx context.Context, command string, ps *state.PromptState) (*narrative.Response, error) {
	history := 0
	if ps != nil {
		history = len(ps.RecentMemory)
	}
	ctx, span := n.tracer.Start(ctx, "narrator.narrate",
		trace.WithAttributes(
			attribute.Bool("narrator.system_command", strings.HasPrefix(command, prompts.SystemCommandPrefix)),
			attribute.Int("narrator.history", history),
			attribute.String("narrator.rating", n.rating),
		))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	messages, err := prompts.BuildMessages(ps, command, n.rating)
	if err != nil {
		return nil, n.fail(span, fmt.Errorf("failed to build prompt: %w", err))
	}

	start := time.Now()
	resp, err := n.llm.Chat(ctx, messages)
	if err != nil {
		return nil, n.fail(span, fmt.Errorf("LLM call failed: %w", err))
	}
	span.SetAttributes(attribute.String("llm.model", resp.Model))

	parsed, err := narrative.Parse(resp.Message)
	if err != nil {
		n.logger.Warn("Unusable narrator reply",
			"model", resp.Model,
			"reply_length", len(resp.Message),
			"error", err)
		return nil, n.fail(span, err)
	}

	if n.filter.Contains(parsed.Narrative) {
		parsed.Narrative = n.filter.Apply(parsed.Narrative)
		span.SetAttributes(attribute.Bool("narrative.filtered", true))
	}

	span.SetAttributes(
		attribute.Bool("narrative.roll_required", parsed.RequiredRoll != nil),
		attribute.Bool("narrative.state_update", parsed.StateUpdate != nil),
		attribute.Int("narrative.dropped", len(parsed.Dropped)),
	)
	n.logger.Debug("Narrator turn parsed",
		"model", resp.Model,
		"duration_ms", time.Since(start).Milliseconds(),
		"roll_required", parsed.RequiredRoll != nil,
		"dropped", parsed.Dropped)
	return parsed, nil
}

func (n *NarratorService) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
