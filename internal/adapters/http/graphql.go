package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/togrefusjon/togrefusjon/internal/core/domain"
)

// delayToMap flattens a delay result for GraphQL. Unknown delay figures
// become nulls rather than zeroes.
func delayToMap(r *domain.DelayResult) map[string]interface{} {
	if r == nil {
		return nil
	}
	m := map[string]interface{}{
		"status":       string(r.Status),
		"train_number": r.TrainNumber,
		"source":       string(r.Source),
		"checked_at":   r.CheckedAt.Format(time.RFC3339),
		"message":      r.Message,
	}
	if r.DepartureDelay.Known {
		m["departure_delay_minutes"] = r.DepartureDelay.Value
	}
	if r.ArrivalDelay.Known {
		m["arrival_delay_minutes"] = r.ArrivalDelay.Value
	}
	return m
}

func journeyToMap(j *domain.JourneyInstance) map[string]interface{} {
	if j == nil {
		return nil
	}
	m := map[string]interface{}{
		"id":                 j.ID,
		"natural_key":        j.NaturalKey,
		"operator":           j.Operator,
		"train_number":       j.TrainNumber,
		"service_date":       j.ServiceDate,
		"from_stop_place_id": j.FromStopPlaceID,
		"to_stop_place_id":   j.ToStopPlaceID,
		"planned_departure":  j.PlannedDeparture.Format(time.RFC3339),
		"cancelled":          j.Cancelled,
		"force_majeure":      j.ForceMajeure,
		"matching_quality":   string(j.MatchingQuality),
		"rule_version":       j.RuleVersion,
	}
	if !j.PlannedArrival.IsZero() {
		m["planned_arrival"] = j.PlannedArrival.Format(time.RFC3339)
	}
	if j.LastDelayResult != nil {
		m["last_delay_result"] = delayToMap(j.LastDelayResult)
	}
	if j.LastDelayCheckAt != nil {
		m["last_delay_check_at"] = j.LastDelayCheckAt.Format(time.RFC3339)
	}
	return m
}

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	stopPlaceType := graphql.NewObject(graphql.ObjectConfig{
		Name: "StopPlace",
		Fields: graphql.Fields{
			"id":   &graphql.Field{Type: graphql.String},
			"name": &graphql.Field{Type: graphql.String},
		},
	})

	delayResultType := graphql.NewObject(graphql.ObjectConfig{
		Name: "DelayResult",
		Fields: graphql.Fields{
			"status":                  &graphql.Field{Type: graphql.String},
			"train_number":            &graphql.Field{Type: graphql.String},
			"departure_delay_minutes": &graphql.Field{Type: graphql.Int},
			"arrival_delay_minutes":   &graphql.Field{Type: graphql.Int},
			"source":                  &graphql.Field{Type: graphql.String},
			"checked_at":              &graphql.Field{Type: graphql.String},
			"message":                 &graphql.Field{Type: graphql.String},
		},
	})

	journeyType := graphql.NewObject(graphql.ObjectConfig{
		Name: "JourneyInstance",
		Fields: graphql.Fields{
			"id":                  &graphql.Field{Type: graphql.String},
			"natural_key":         &graphql.Field{Type: graphql.String},
			"operator":            &graphql.Field{Type: graphql.String},
			"train_number":        &graphql.Field{Type: graphql.String},
			"service_date":        &graphql.Field{Type: graphql.String},
			"from_stop_place_id":  &graphql.Field{Type: graphql.String},
			"to_stop_place_id":    &graphql.Field{Type: graphql.String},
			"planned_departure":   &graphql.Field{Type: graphql.String},
			"planned_arrival":     &graphql.Field{Type: graphql.String},
			"cancelled":           &graphql.Field{Type: graphql.Boolean},
			"force_majeure":       &graphql.Field{Type: graphql.Boolean},
			"matching_quality":    &graphql.Field{Type: graphql.String},
			"rule_version":        &graphql.Field{Type: graphql.String},
			"last_delay_result":   &graphql.Field{Type: delayResultType},
			"last_delay_check_at": &graphql.Field{Type: graphql.String},
		},
	})

	ticketType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Ticket",
		Fields: graphql.Fields{
			"id":             &graphql.Field{Type: graphql.String},
			"user_id":        &graphql.Field{Type: graphql.String},
			"service_date":   &graphql.Field{Type: graphql.String},
			"departure_time": &graphql.Field{Type: graphql.String},
			"train_number":   &graphql.Field{Type: graphql.String},
			"operator":       &graphql.Field{Type: graphql.String},
			"from_station":   &graphql.Field{Type: graphql.String},
			"to_station":     &graphql.Field{Type: graphql.String},
			"price_nok":      &graphql.Field{Type: graphql.Float},
			"status":         &graphql.Field{Type: graphql.String},
		},
	})

	schemeRuleType := graphql.NewObject(graphql.ObjectConfig{
		Name: "SchemeRule",
		Fields: graphql.Fields{
			"min_delay_minutes": &graphql.Field{Type: graphql.Int},
			"compensation_pct":  &graphql.Field{Type: graphql.Int},
			"description":       &graphql.Field{Type: graphql.String},
		},
	})

	schemeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "OperatorScheme",
		Fields: graphql.Fields{
			"operator":      &graphql.Field{Type: graphql.String},
			"name":          &graphql.Field{Type: graphql.String},
			"legal_basis":   &graphql.Field{Type: graphql.String},
			"long_distance": &graphql.Field{Type: schemeRuleType},
			"other":         &graphql.Field{Type: schemeRuleType},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"journey": &graphql.Field{
				Type:        journeyType,
				Description: "Get a journey instance by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					j, err := deps.Journeys.GetByID(p.Context, p.Args["id"].(string))
					if err != nil {
						return nil, err
					}
					return journeyToMap(j), nil
				},
			},
			"journeyByKey": &graphql.Field{
				Type:        journeyType,
				Description: "Get a journey instance by its natural key",
				Args: graphql.FieldConfigArgument{
					"natural_key": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					j, err := deps.Journeys.GetByNaturalKey(p.Context, p.Args["natural_key"].(string))
					if err != nil {
						return nil, err
					}
					return journeyToMap(j), nil
				},
			},
			"stopPlaces": &graphql.Field{
				Type:        graphql.NewList(stopPlaceType),
				Description: "Search the stop-place registry by name",
				Args: graphql.FieldConfigArgument{
					"name":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"limit": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 10},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					name := p.Args["name"].(string)
					limit := p.Args["limit"].(int)
					return deps.Stops.SearchByName(p.Context, name, limit)
				},
			},
			"ticket": &graphql.Field{
				Type:        ticketType,
				Description: "Get a ticket by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Tickets.GetByID(p.Context, p.Args["id"].(string))
				},
			},
			"userTickets": &graphql.Field{
				Type:        graphql.NewList(ticketType),
				Description: "List a user's tickets, newest service date first",
				Args: graphql.FieldConfigArgument{
					"user_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"limit":   &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 50},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					userID := p.Args["user_id"].(string)
					limit := p.Args["limit"].(int)
					return deps.Tickets.ListByUser(p.Context, userID, limit)
				},
			},
			"operatorScheme": &graphql.Field{
				Type:        schemeType,
				Description: "An operator's travel-guarantee terms",
				Args: graphql.FieldConfigArgument{
					"operator": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					operator := domain.NormalizeOperator(p.Args["operator"].(string))
					scheme, ok := deps.Rules.Schemes[operator]
					if !ok {
						return nil, nil
					}
					m := map[string]interface{}{
						"operator":    string(operator),
						"name":        scheme.Name,
						"legal_basis": scheme.LegalBasis,
					}
					if r := scheme.LongDistance; r != nil {
						m["long_distance"] = map[string]interface{}{
							"min_delay_minutes": r.MinDelayMinutes,
							"compensation_pct":  r.CompensationPct,
							"description":       r.Description,
						}
					}
					if r := scheme.Other; r != nil {
						m["other"] = map[string]interface{}{
							"min_delay_minutes": r.MinDelayMinutes,
							"compensation_pct":  r.CompensationPct,
							"description":       r.Description,
						}
					}
					return m, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid request body"})
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.Context(),
		})

		return c.JSON(result)
	}
}
