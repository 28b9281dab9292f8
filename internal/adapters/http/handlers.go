package http

import (
	"regexp"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/togrefusjon/togrefusjon/internal/core/domain"
)

var (
	serviceDateRe   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	departureTimeRe = regexp.MustCompile(`^\d{2}:\d{2}$`)
)

// createTicketRequest is the POST /v1/tickets body.
type createTicketRequest struct {
	UserID          string  `json:"user_id"`
	ServiceDate     string  `json:"service_date"`   // YYYY-MM-DD
	DepartureTime   string  `json:"departure_time"` // HH:MM, local
	TrainNumber     string  `json:"train_number"`
	Operator        string  `json:"operator"`
	FromStation     string  `json:"from_station"`
	ToStation       string  `json:"to_station"`
	FromStopPlaceID string  `json:"from_stop_place_id,omitempty"`
	ToStopPlaceID   string  `json:"to_stop_place_id,omitempty"`
	LineCode        string  `json:"line_code,omitempty"`
	PriceNOK        float64 `json:"price_nok"`
	Source          string  `json:"source,omitempty"`
}

func (r *createTicketRequest) validate() string {
	switch {
	case strings.TrimSpace(r.UserID) == "":
		return "user_id is required"
	case !serviceDateRe.MatchString(r.ServiceDate):
		return "service_date must be YYYY-MM-DD"
	case !departureTimeRe.MatchString(r.DepartureTime):
		return "departure_time must be HH:MM"
	case strings.TrimSpace(r.TrainNumber) == "":
		return "train_number is required"
	case strings.TrimSpace(r.Operator) == "":
		return "operator is required"
	case strings.TrimSpace(r.FromStation) == "" && r.FromStopPlaceID == "":
		return "from_station or from_stop_place_id is required"
	case strings.TrimSpace(r.ToStation) == "" && r.ToStopPlaceID == "":
		return "to_station or to_stop_place_id is required"
	case r.PriceNOK < 0:
		return "price_nok must not be negative"
	}
	if _, err := time.Parse("2006-01-02", r.ServiceDate); err != nil {
		return "service_date is not a valid date"
	}
	return ""
}

// CreateTicketHandler registers a ticket and binds it to its journey
// instance, so the checker starts gathering delay evidence for it.
func CreateTicketHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req createTicketRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if msg := req.validate(); msg != "" {
			return errBadRequest(c, msg)
		}

		source := domain.TicketSource(req.Source)
		if source == "" {
			source = domain.TicketSourceManual
		}

		ticket := &domain.Ticket{
			UserID:          req.UserID,
			ServiceDate:     req.ServiceDate,
			DepartureTime:   req.DepartureTime,
			TrainNumber:     strings.TrimSpace(req.TrainNumber),
			Operator:        strings.TrimSpace(req.Operator),
			FromStation:     strings.TrimSpace(req.FromStation),
			ToStation:       strings.TrimSpace(req.ToStation),
			FromStopPlaceID: req.FromStopPlaceID,
			ToStopPlaceID:   req.ToStopPlaceID,
			LineCode:        req.LineCode,
			PriceNOK:        req.PriceNOK,
			Currency:        "NOK",
			Source:          source,
			Status:          domain.TicketImported,
		}

		if err := deps.Tickets.Create(c.Context(), ticket); err != nil {
			return errInternal(c, err.Error())
		}

		// Register the physical journey so the batch checker picks it up.
		// Resolution failures leave the ticket imported but untracked; the
		// evaluate endpoint retries resolution on demand.
		journey, err := deps.Journeys.FindOrCreate(c.Context(), ticket)
		if err == nil {
			ticket.Status = domain.TicketTracked
			_ = deps.Tickets.UpdateStatus(c.Context(), ticket.ID, domain.TicketTracked)
		}

		resp := fiber.Map{"ticket": ticket}
		if journey != nil {
			resp["journey"] = journey
		}
		if err != nil {
			resp["warning"] = "journey not registered: " + err.Error()
		}
		return c.Status(201).JSON(resp)
	}
}

// GetTicketHandler returns one ticket by ID.
func GetTicketHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		ticket, err := deps.Tickets.GetByID(c.Context(), id)
		if err != nil {
			return errInternal(c, err.Error())
		}
		if ticket == nil {
			return errNotFound(c, "ticket not found: "+id)
		}
		return c.JSON(ticket)
	}
}

// ListTicketsHandler lists a user's tickets, newest service date first.
func ListTicketsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Query("user_id")
		if userID == "" {
			return errBadRequest(c, "user_id query parameter is required")
		}

		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 50)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 200 {
			limit = 50
		}

		tickets, err := deps.Tickets.ListByUser(c.Context(), userID, offset+limit)
		if err != nil {
			return errInternal(c, err.Error())
		}

		total := len(tickets)
		if offset >= total {
			tickets = nil
		} else {
			end := offset + limit
			if end > total {
				end = total
			}
			tickets = tickets[offset:end]
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: tickets, Pagination: pg})
	}
}

// EvaluateTicketHandler runs a fresh delay check and the full rule
// evaluation for a ticket. An optional force_majeure query parameter lets a
// caseworker override the journey's own flag.
func EvaluateTicketHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		var fmOverride *bool
		if raw := c.Query("force_majeure"); raw != "" {
			switch raw {
			case "true":
				v := true
				fmOverride = &v
			case "false":
				v := false
				fmOverride = &v
			default:
				return errBadRequest(c, "force_majeure must be true or false")
			}
		}

		eval, err := deps.Evaluations.EvaluateTicket(c.Context(), id, fmOverride)
		if err != nil {
			if strings.Contains(err.Error(), "not found") {
				return errNotFound(c, err.Error())
			}
			return errInternal(c, err.Error())
		}
		return c.JSON(eval)
	}
}

// GetJourneyHandler returns one journey instance by ID.
func GetJourneyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		journey, err := deps.Journeys.GetByID(c.Context(), id)
		if err != nil {
			return errInternal(c, err.Error())
		}
		if journey == nil {
			return errNotFound(c, "journey not found: "+id)
		}
		return c.JSON(journey)
	}
}

// GetJourneyByKeyHandler looks a journey instance up by its natural key,
// e.g. "VY:R20:2026-03-15:NSR:StopPlace:59872:NSR:StopPlace:320".
func GetJourneyByKeyHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Query("natural_key")
		if key == "" {
			return errBadRequest(c, "natural_key query parameter is required")
		}
		if _, err := domain.ParseNaturalKey(key); err != nil {
			return errBadRequest(c, err.Error())
		}

		journey, err := deps.Journeys.GetByNaturalKey(c.Context(), key)
		if err != nil {
			return errInternal(c, err.Error())
		}
		if journey == nil {
			return errNotFound(c, "no journey for key "+key)
		}
		return c.JSON(journey)
	}
}

// DelayCheckHandler triggers a manual delay check for a journey instance.
// With a ticket_id query parameter the check is followed by a rule
// evaluation for that ticket.
func DelayCheckHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")

		if ticketID := c.Query("ticket_id"); ticketID != "" {
			eval, err := deps.Evaluations.CheckAndEvaluate(c.Context(), id, ticketID)
			if err != nil {
				if strings.Contains(err.Error(), "not found") {
					return errNotFound(c, err.Error())
				}
				return errInternal(c, err.Error())
			}
			return c.JSON(eval)
		}

		journey, result, err := deps.Evaluations.CheckJourney(c.Context(), id, domain.SourceManual)
		if err != nil {
			if strings.Contains(err.Error(), "not found") {
				return errNotFound(c, err.Error())
			}
			return errInternal(c, err.Error())
		}
		return c.JSON(fiber.Map{"journey": journey, "delay": result})
	}
}

// SearchStopPlacesHandler searches the stop-place registry by name prefix.
func SearchStopPlacesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		name := c.Query("name")
		if name == "" {
			return errBadRequest(c, "name query parameter is required")
		}
		if len(name) > 200 {
			return errBadRequest(c, "name too long (max 200 characters)")
		}

		limit := c.QueryInt("limit", 10)
		if limit <= 0 || limit > 50 {
			limit = 10
		}

		stops, err := deps.Stops.SearchByName(c.Context(), name, limit)
		if err != nil {
			return errInternal(c, err.Error())
		}

		c.Set("Cache-Control", "public, max-age=3600")
		return c.JSON(stops)
	}
}

// GetStopPlaceHandler returns one stop place by NSR ID.
func GetStopPlaceHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		stop, err := deps.Stops.GetByID(c.Context(), id)
		if err != nil {
			return errInternal(c, err.Error())
		}
		if stop == nil {
			return errNotFound(c, "stop place not found: "+id)
		}

		c.Set("Cache-Control", "public, max-age=3600")
		return c.JSON(stop)
	}
}

// operatorSchemeResponse flattens a scheme for the API.
type operatorSchemeResponse struct {
	Operator     domain.Operator `json:"operator"`
	Name         string          `json:"name"`
	LegalBasis   string          `json:"legal_basis"`
	LongDistance *schemeRuleJSON `json:"long_distance,omitempty"`
	Other        *schemeRuleJSON `json:"other,omitempty"`
}

type schemeRuleJSON struct {
	MinDelayMinutes int    `json:"min_delay_minutes"`
	CompensationPct int    `json:"compensation_pct"`
	Description     string `json:"description"`
}

// OperatorSchemeHandler returns an operator's published travel-guarantee
// terms as loaded into the rule engine.
func OperatorSchemeHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		code := c.Params("code")
		operator := domain.NormalizeOperator(code)

		scheme, ok := deps.Rules.Schemes[operator]
		if !ok {
			return errNotFound(c, "no compensation scheme for operator "+code)
		}

		resp := operatorSchemeResponse{
			Operator:   operator,
			Name:       scheme.Name,
			LegalBasis: scheme.LegalBasis,
		}
		if r := scheme.LongDistance; r != nil {
			resp.LongDistance = &schemeRuleJSON{r.MinDelayMinutes, r.CompensationPct, r.Description}
		}
		if r := scheme.Other; r != nil {
			resp.Other = &schemeRuleJSON{r.MinDelayMinutes, r.CompensationPct, r.Description}
		}

		c.Set("Cache-Control", "public, max-age=3600")
		return c.JSON(resp)
	}
}
