package workflows

import (
	"context"
	"fmt"

	"github.com/togrefusjon/togrefusjon/internal/core/domain"
	"github.com/togrefusjon/togrefusjon/internal/core/ports"
	"github.com/togrefusjon/togrefusjon/internal/core/usecases"
)

// ClaimActivities holds the activity implementations for the claim workflow.
type ClaimActivities struct {
	Tickets     ports.TicketRepository
	Journeys    *usecases.JourneyService
	Evaluations *usecases.EvaluationService
}

// RegisterJourney resolves a ticket onto its journey instance, creating the
// instance on first sight, and returns the instance ID.
func (a *ClaimActivities) RegisterJourney(ctx context.Context, ticketID string) (string, error) {
	ticket, err := a.Tickets.GetByID(ctx, ticketID)
	if err != nil {
		return "", fmt.Errorf("get ticket %s: %w", ticketID, err)
	}
	if ticket == nil {
		return "", fmt.Errorf("ticket %s not found", ticketID)
	}

	journey, err := a.Journeys.FindOrCreate(ctx, ticket)
	if err != nil {
		return "", fmt.Errorf("register journey for ticket %s: %w", ticketID, err)
	}

	if ticket.Status != domain.TicketTracked {
		_ = a.Tickets.UpdateStatus(ctx, ticket.ID, domain.TicketTracked)
	}
	return journey.ID, nil
}

// CheckDelay runs one delay check for a journey instance and returns the
// resulting status string.
func (a *ClaimActivities) CheckDelay(ctx context.Context, journeyID string) (string, error) {
	_, result, err := a.Evaluations.CheckJourney(ctx, journeyID, domain.SourceAuto)
	if err != nil {
		return "", err
	}
	return string(result.Status), nil
}

// EvaluateClaim runs the rule evaluation for a ticket against its latest
// delay evidence and returns the condensed result.
func (a *ClaimActivities) EvaluateClaim(ctx context.Context, ticketID string, fmOverride *bool) (ClaimResult, error) {
	eval, err := a.Evaluations.EvaluateTicket(ctx, ticketID, fmOverride)
	if err != nil {
		return ClaimResult{}, err
	}

	result := ClaimResult{
		DelayStatus: string(eval.Delay.Status),
		AmountNOK:   eval.Amount,
		Summary:     eval.Summary,
	}
	if eval.Journey != nil {
		result.JourneyID = eval.Journey.ID
	}
	if eval.Outcome != nil {
		result.Eligibility = string(eval.Outcome.Status)
		result.CompensationPct = eval.Outcome.CompensationPct
	}
	return result, nil
}
