// Package entur implements the real-time feed port against the Entur
// Journey Planner v3 GraphQL API.
//
// https://developer.entur.org/pages-intro-introduction
package entur

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/togrefusjon/togrefusjon/internal/core/domain"
	"github.com/togrefusjon/togrefusjon/internal/pkg/metrics"
)

// DefaultBaseURL is the public Journey Planner endpoint.
const DefaultBaseURL = "https://api.entur.io/journey-planner/v3/graphql"

const departuresQuery = `
query GetDepartures($stopPlaceId: String!, $numberOfDepartures: Int!) {
  stopPlace(id: $stopPlaceId) {
    id
    name
    estimatedCalls(numberOfDepartures: $numberOfDepartures) {
      aimedDepartureTime
      aimedArrivalTime
      expectedDepartureTime
      expectedArrivalTime
      actualDepartureTime
      actualArrivalTime
      cancellation
      serviceJourney {
        id
        line {
          id
          publicCode
        }
      }
      destinationDisplay {
        frontText
      }
      quay {
        id
      }
    }
  }
}`

const serviceJourneyQuery = `
query GetServiceJourney($id: String!, $date: String!) {
  serviceJourney(id: $id) {
    id
    line {
      id
      publicCode
    }
    estimatedCalls(date: $date) {
      aimedDepartureTime
      aimedArrivalTime
      expectedDepartureTime
      expectedArrivalTime
      actualDepartureTime
      actualArrivalTime
      cancellation
      quay {
        id
        stopPlace {
          id
        }
      }
      destinationDisplay {
        frontText
      }
    }
  }
}`

// Client queries the Entur Journey Planner API. Entur requires every
// consumer to identify itself with an ET-Client-Name header.
type Client struct {
	baseURL    string
	clientName string
	httpc      *http.Client
}

// New creates an Entur client.
func New(baseURL, clientName string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if clientName == "" {
		clientName = "togrefusjon-dev-unknown"
	}
	return &Client{
		baseURL:    baseURL,
		clientName: clientName,
		httpc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphqlError struct {
	Message string `json:"message"`
}

type estimatedCall struct {
	AimedDepartureTime    *time.Time `json:"aimedDepartureTime"`
	AimedArrivalTime      *time.Time `json:"aimedArrivalTime"`
	ExpectedDepartureTime *time.Time `json:"expectedDepartureTime"`
	ExpectedArrivalTime   *time.Time `json:"expectedArrivalTime"`
	ActualDepartureTime   *time.Time `json:"actualDepartureTime"`
	ActualArrivalTime     *time.Time `json:"actualArrivalTime"`
	Cancellation          bool       `json:"cancellation"`
	ServiceJourney        *struct {
		ID   string `json:"id"`
		Line struct {
			ID         string `json:"id"`
			PublicCode string `json:"publicCode"`
		} `json:"line"`
	} `json:"serviceJourney"`
	DestinationDisplay *struct {
		FrontText string `json:"frontText"`
	} `json:"destinationDisplay"`
	Quay *struct {
		ID        string `json:"id"`
		StopPlace *struct {
			ID string `json:"id"`
		} `json:"stopPlace"`
	} `json:"quay"`
}

type departuresResponse struct {
	StopPlace *struct {
		ID             string          `json:"id"`
		Name           string          `json:"name"`
		EstimatedCalls []estimatedCall `json:"estimatedCalls"`
	} `json:"stopPlace"`
}

type serviceJourneyResponse struct {
	ServiceJourney *struct {
		ID   string `json:"id"`
		Line struct {
			ID         string `json:"id"`
			PublicCode string `json:"publicCode"`
		} `json:"line"`
		EstimatedCalls []estimatedCall `json:"estimatedCalls"`
	} `json:"serviceJourney"`
}

// Departures lists upcoming estimated calls from a stop place.
func (c *Client) Departures(ctx context.Context, stopPlaceID string, limit int) ([]domain.EstimatedCall, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}

	var resp departuresResponse
	err := c.query(ctx, departuresQuery, map[string]any{
		"stopPlaceId":        stopPlaceID,
		"numberOfDepartures": limit,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.StopPlace == nil {
		return nil, fmt.Errorf("stop place %s not found", stopPlaceID)
	}

	calls := make([]domain.EstimatedCall, 0, len(resp.StopPlace.EstimatedCalls))
	for _, ec := range resp.StopPlace.EstimatedCalls {
		calls = append(calls, toDomain(ec, "", ""))
	}
	return calls, nil
}

// ServiceJourney fetches the calls of one dated service journey.
func (c *Client) ServiceJourney(ctx context.Context, serviceJourneyID, serviceDate string) ([]domain.EstimatedCall, error) {
	var resp serviceJourneyResponse
	err := c.query(ctx, serviceJourneyQuery, map[string]any{
		"id":   serviceJourneyID,
		"date": serviceDate,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.ServiceJourney == nil {
		return nil, fmt.Errorf("service journey %s not found", serviceJourneyID)
	}

	sj := resp.ServiceJourney
	calls := make([]domain.EstimatedCall, 0, len(sj.EstimatedCalls))
	for _, ec := range sj.EstimatedCalls {
		call := toDomain(ec, sj.ID, sj.Line.PublicCode)
		call.LineID = sj.Line.ID
		calls = append(calls, call)
	}
	return calls, nil
}

func (c *Client) query(ctx context.Context, query string, variables map[string]any, out any) error {
	start := time.Now()
	err := c.doQuery(ctx, query, variables, out)
	metrics.FeedRequestDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.FeedRequestErrors.Inc()
	}
	return err
}

// Transient upstream failures are retried a couple of times before the
// caller sees them; anything else fails straight through.
const (
	maxAttempts  = 3
	retryBackoff = 250 * time.Millisecond
)

func (c *Client) doQuery(ctx context.Context, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("marshal query: %w", err)
	}

	backoff := retryBackoff
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		retryable, err := c.doRequest(ctx, body, out)
		if err == nil {
			return nil
		}
		if !retryable {
			return err
		}
		lastErr = err
	}
	return lastErr
}

func (c *Client) doRequest(ctx context.Context, body []byte, out any) (retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("ET-Client-Name", c.clientName)

	resp, err := c.httpc.Do(req)
	if err != nil {
		return true, fmt.Errorf("entur request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 == 5 {
		return true, fmt.Errorf("entur http %d", resp.StatusCode)
	}
	if resp.StatusCode/100 != 2 {
		return false, fmt.Errorf("entur http %d", resp.StatusCode)
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []graphqlError  `json:"errors"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return false, fmt.Errorf("decode response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		return false, fmt.Errorf("entur graphql: %s", envelope.Errors[0].Message)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return false, fmt.Errorf("decode data: %w", err)
	}
	return false, nil
}

func toDomain(ec estimatedCall, serviceJourneyID, lineCode string) domain.EstimatedCall {
	call := domain.EstimatedCall{
		ServiceJourneyID:  serviceJourneyID,
		LineCode:          lineCode,
		AimedDeparture:    ec.AimedDepartureTime,
		ExpectedDeparture: ec.ExpectedDepartureTime,
		ActualDeparture:   ec.ActualDepartureTime,
		AimedArrival:      ec.AimedArrivalTime,
		ExpectedArrival:   ec.ExpectedArrivalTime,
		ActualArrival:     ec.ActualArrivalTime,
		Cancelled:         ec.Cancellation,
	}
	if ec.ServiceJourney != nil {
		call.ServiceJourneyID = ec.ServiceJourney.ID
		call.LineID = ec.ServiceJourney.Line.ID
		call.LineCode = ec.ServiceJourney.Line.PublicCode
	}
	if ec.DestinationDisplay != nil {
		call.Destination = ec.DestinationDisplay.FrontText
	}
	if ec.Quay != nil {
		call.QuayID = ec.Quay.ID
		if ec.Quay.StopPlace != nil {
			call.StopPlaceID = ec.Quay.StopPlace.ID
		}
	}
	return call
}
