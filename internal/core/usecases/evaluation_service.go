package usecases

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/togrefusjon/togrefusjon/internal/core/domain"
	"github.com/togrefusjon/togrefusjon/internal/core/ports"
	"github.com/togrefusjon/togrefusjon/internal/core/rules"
	"github.com/togrefusjon/togrefusjon/internal/pkg/metrics"
)

// EvaluationService is the on-demand entry point: one delay check for a
// journey, optionally followed by a rule evaluation for a ticket riding it.
type EvaluationService struct {
	tickets   ports.TicketRepository
	journeys  *JourneyService
	delays    *DelayService
	publisher ports.EventPublisher
	config    rules.Config
}

// NewEvaluationService creates a new EvaluationService.
func NewEvaluationService(
	tickets ports.TicketRepository,
	journeys *JourneyService,
	delays *DelayService,
	publisher ports.EventPublisher,
	config rules.Config,
) *EvaluationService {
	return &EvaluationService{
		tickets:   tickets,
		journeys:  journeys,
		delays:    delays,
		publisher: publisher,
		config:    config,
	}
}

// Evaluation bundles the delay check with the rule outcome for the API.
type Evaluation struct {
	Journey *domain.JourneyInstance `json:"journey"`
	Delay   domain.DelayResult      `json:"delay"`
	Outcome *rules.Outcome          `json:"outcome,omitempty"`
	Amount  int                     `json:"amount_nok,omitempty"`
	Summary string                  `json:"summary,omitempty"`
}

// CheckJourney runs one delay check for a journey instance and persists the
// result. The check itself cannot fail; only lookup and persistence can.
func (s *EvaluationService) CheckJourney(ctx context.Context, journeyID string, source domain.CheckSource) (*domain.JourneyInstance, domain.DelayResult, error) {
	journey, err := s.journeys.GetByID(ctx, journeyID)
	if err != nil {
		return nil, domain.DelayResult{}, fmt.Errorf("get journey %s: %w", journeyID, err)
	}
	if journey == nil {
		return nil, domain.DelayResult{}, fmt.Errorf("journey %s not found", journeyID)
	}

	result := s.delays.Detect(ctx, journey.TrainNumber, journey.PlannedDeparture, journey.FromStopPlaceID, source)
	result.Operator = journey.Operator
	metrics.DelayChecksTotal.WithLabelValues(string(result.Status), string(source)).Inc()

	if err := s.journeys.AttachDelayResult(ctx, journey, &result); err != nil {
		return journey, result, err
	}
	journey.LastDelayResult = &result
	journey.LastDelayCheckAt = &result.CheckedAt
	return journey, result, nil
}

// CheckAndEvaluate is CheckJourney plus, when ticketID is non-empty, a rule
// evaluation for that ticket against the fresh delay result.
func (s *EvaluationService) CheckAndEvaluate(ctx context.Context, journeyID, ticketID string) (*Evaluation, error) {
	journey, result, err := s.CheckJourney(ctx, journeyID, domain.SourceManual)
	if err != nil {
		return nil, err
	}

	eval := &Evaluation{Journey: journey, Delay: result}
	if ticketID == "" {
		return eval, nil
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, fmt.Errorf("get ticket %s: %w", ticketID, err)
	}
	if ticket == nil {
		return nil, fmt.Errorf("ticket %s not found", ticketID)
	}

	outcome := rules.Evaluate(rules.NewInput(*ticket, *journey, result, nil), s.config)
	eval.Outcome = &outcome
	eval.Amount = rules.Amount(ticket.PriceNOK, outcome.CompensationPct)
	eval.Summary = rules.Summary(outcome, ticket.PriceNOK)
	return eval, nil
}

// EvaluateTicket runs the full pipeline for one ticket: find-or-create the
// journey instance, check its delay, and combine the base and operator
// rules into an outcome.
func (s *EvaluationService) EvaluateTicket(ctx context.Context, ticketID string, fmOverride *bool) (*Evaluation, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, fmt.Errorf("get ticket %s: %w", ticketID, err)
	}
	if ticket == nil {
		return nil, fmt.Errorf("ticket %s not found", ticketID)
	}

	journey, err := s.journeys.FindOrCreate(ctx, ticket)
	if err != nil {
		return nil, err
	}

	journey, result, err := s.CheckJourney(ctx, journey.ID, domain.SourceManual)
	if err != nil {
		return nil, err
	}

	outcome := rules.Evaluate(rules.NewInput(*ticket, *journey, result, fmOverride), s.config)
	eval := &Evaluation{
		Journey: journey,
		Delay:   result,
		Outcome: &outcome,
		Amount:  rules.Amount(ticket.PriceNOK, outcome.CompensationPct),
		Summary: rules.Summary(outcome, ticket.PriceNOK),
	}

	if s.publisher != nil {
		if payload, err := json.Marshal(outcome); err == nil {
			_ = s.publisher.PublishClaimEvaluated(ctx, ticket.ID, payload)
		}
	}

	return eval, nil
}
