package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// TaskQueue is the queue the claim worker listens on.
const TaskQueue = "claim-evaluation"

// delayRecheckInterval is how long the workflow sleeps before re-checking a
// journey whose delay evidence is still UNKNOWN (feed data often lags the
// actual departure).
const delayRecheckInterval = 30 * time.Minute

// maxDelayChecks bounds the UNKNOWN re-check loop.
const maxDelayChecks = 4

// ClaimInput starts one claim evaluation for a ticket.
type ClaimInput struct {
	TicketID string

	// ForceMajeure, when non-nil, is a caseworker override of the
	// journey's own force-majeure flag.
	ForceMajeure *bool
}

// ClaimResult is the condensed outcome returned to the workflow starter.
type ClaimResult struct {
	JourneyID       string
	DelayStatus     string
	Eligibility     string
	CompensationPct int
	AmountNOK       int
	Summary         string
}

// ClaimWorkflow drives one ticket through the full pipeline: register the
// journey instance, gather delay evidence (waiting out the feed lag when
// the evidence is not in yet), then evaluate the compensation rules and
// publish the outcome.
func ClaimWorkflow(ctx workflow.Context, input ClaimInput) (ClaimResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting claim workflow", "ticketID", input.TicketID)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 30 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	// Step 1: resolve the ticket onto its journey instance.
	var journeyID string
	if err := workflow.ExecuteActivity(ctx, "RegisterJourney", input.TicketID).Get(ctx, &journeyID); err != nil {
		return ClaimResult{}, err
	}

	// Step 2: delay evidence. UNKNOWN usually means the feed has not
	// published the run yet, so wait and retry rather than fail.
	var status string
	for attempt := 1; ; attempt++ {
		if err := workflow.ExecuteActivity(ctx, "CheckDelay", journeyID).Get(ctx, &status); err != nil {
			return ClaimResult{}, err
		}
		if status != "UNKNOWN" || attempt >= maxDelayChecks {
			break
		}
		logger.Info("Delay evidence not available yet, sleeping", "journeyID", journeyID, "attempt", attempt)
		if err := workflow.Sleep(ctx, delayRecheckInterval); err != nil {
			return ClaimResult{}, err
		}
	}

	// Step 3: rule evaluation. Publishes the outcome event as a side
	// effect, which downstream claim-letter generation consumes.
	var result ClaimResult
	if err := workflow.ExecuteActivity(ctx, "EvaluateClaim", input.TicketID, input.ForceMajeure).Get(ctx, &result); err != nil {
		return ClaimResult{}, err
	}
	result.JourneyID = journeyID
	result.DelayStatus = status

	logger.Info("Claim evaluated",
		"ticketID", input.TicketID,
		"eligibility", result.Eligibility,
		"amountNOK", result.AmountNOK)
	return result, nil
}
