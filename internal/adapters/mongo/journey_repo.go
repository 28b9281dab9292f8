package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/togrefusjon/togrefusjon/internal/core/domain"
	"github.com/togrefusjon/togrefusjon/internal/pkg/metrics"
)

// JourneyRepository persists journey instances in the "journey_instances"
// collection. A unique index on naturalKey makes find-or-create converge
// under concurrency: two racing upserts for the same key resolve to one
// document.
type JourneyRepository struct {
	collection *mongo.Collection
}

// NewJourneyRepository creates the repository and ensures its indexes.
func NewJourneyRepository(ctx context.Context, db *mongo.Database) (*JourneyRepository, error) {
	collection := db.Collection("journey_instances")

	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.M{"naturalKey": 1},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return nil, err
	}
	// Batch selection: planned departure window + last check staleness.
	_, err = collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "plannedDepartureUTC", Value: 1}, {Key: "lastDelayCheckAt", Value: 1}},
	})
	if err != nil {
		return nil, err
	}

	return &JourneyRepository{collection: collection}, nil
}

// FindOrCreate returns the instance for the natural key, inserting it if
// absent. The write is conditional on the unique naturalKey index, so
// concurrent callers get the same document back.
func (r *JourneyRepository) FindOrCreate(ctx context.Context, instance *domain.JourneyInstance) (*domain.JourneyInstance, error) {
	now := time.Now().UTC()

	insert := bson.M{
		"_id":                 primitive.NewObjectID().Hex(),
		"operator":            instance.Operator,
		"trainNumber":         instance.TrainNumber,
		"serviceDate":         instance.ServiceDate,
		"fromStopPlaceId":     instance.FromStopPlaceID,
		"toStopPlaceId":       instance.ToStopPlaceID,
		"naturalKey":          instance.NaturalKey,
		"plannedDepartureUTC": instance.PlannedDeparture,
		"isCancelled":         instance.Cancelled,
		"classifiedCause":     instance.ClassifiedCause,
		"forceMajeureFlag":    instance.ForceMajeure,
		"ruleVersion":         instance.RuleVersion,
		"createdAt":           now,
		"updatedAt":           now,
	}
	// Absent fields are omitted outright; the store must never see nulls.
	if instance.ServiceJourneyID != "" {
		insert["serviceJourneyId"] = instance.ServiceJourneyID
	}
	if instance.LineID != "" {
		insert["lineId"] = instance.LineID
	}
	if !instance.PlannedArrival.IsZero() {
		insert["plannedArrivalUTC"] = instance.PlannedArrival
	}
	if instance.MatchingQuality != "" {
		insert["matchingQuality"] = instance.MatchingQuality
	}
	if instance.EvidenceSummary != "" {
		insert["evidenceSummary"] = instance.EvidenceSummary
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var out domain.JourneyInstance
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"naturalKey": instance.NaturalKey},
		bson.M{"$setOnInsert": insert},
		opts,
	).Decode(&out)
	if err != nil {
		return nil, err
	}
	// BSON stores millisecond precision, so compare the stored timestamps
	// rather than our local now.
	if out.CreatedAt.Equal(out.UpdatedAt) {
		metrics.JourneysCreated.Inc()
	}
	return &out, nil
}

// GetByID returns one instance, or nil when it does not exist.
func (r *JourneyRepository) GetByID(ctx context.Context, id string) (*domain.JourneyInstance, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// GetByNaturalKey returns the instance for a natural key, or nil.
func (r *JourneyRepository) GetByNaturalKey(ctx context.Context, key string) (*domain.JourneyInstance, error) {
	return r.findOne(ctx, bson.M{"naturalKey": key})
}

func (r *JourneyRepository) findOne(ctx context.Context, filter bson.M) (*domain.JourneyInstance, error) {
	var instance domain.JourneyInstance
	err := r.collection.FindOne(ctx, filter).Decode(&instance)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &instance, nil
}

// ListDue selects instances departing inside the window whose last check is
// missing or older than checkedBefore, oldest departure first.
func (r *JourneyRepository) ListDue(ctx context.Context, windowStart, windowEnd, checkedBefore time.Time, limit int) ([]domain.JourneyInstance, error) {
	filter := bson.M{
		"plannedDepartureUTC": bson.M{"$gte": windowStart, "$lte": windowEnd},
		"$or": bson.A{
			bson.M{"lastDelayCheckAt": bson.M{"$exists": false}},
			bson.M{"lastDelayCheckAt": bson.M{"$lt": checkedBefore}},
		},
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "plannedDepartureUTC", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var instances []domain.JourneyInstance
	if err := cursor.All(ctx, &instances); err != nil {
		return nil, err
	}
	return instances, nil
}

// SaveDelayResult writes a delay check onto the instance: the full result
// document, the mirrored evidence fields, and the check timestamp.
func (r *JourneyRepository) SaveDelayResult(ctx context.Context, id string, result *domain.DelayResult) error {
	set := bson.M{
		"lastDelayResult":  delayResultDoc(result),
		"lastDelayCheckAt": result.CheckedAt,
		"isCancelled":      result.Status == domain.StatusCancelled,
		"updatedAt":        time.Now().UTC(),
	}
	if result.ActualDeparture != nil {
		set["actualDepartureUTC"] = *result.ActualDeparture
	}
	if result.ActualArrival != nil {
		set["actualArrivalUTC"] = *result.ActualArrival
	}
	if result.ArrivalDelay.Known {
		set["arrivalDelay"] = bson.M{"known": true, "value": result.ArrivalDelay.Value}
	}

	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return mongo.ErrNoDocuments
	}
	return nil
}

// delayResultDoc renders a DelayResult with absent fields omitted entirely,
// per the document-store contract.
func delayResultDoc(result *domain.DelayResult) bson.M {
	doc := bson.M{
		"journeyInstanceId": result.JourneyInstanceID,
		"trainNumber":       result.TrainNumber,
		"status":            result.Status,
		"checkedAt":         result.CheckedAt,
		"source":            result.Source,
	}
	if result.Operator != "" {
		doc["operator"] = result.Operator
	}
	if result.PlannedDeparture != nil {
		doc["plannedDeparture"] = *result.PlannedDeparture
	}
	if result.ActualDeparture != nil {
		doc["actualDeparture"] = *result.ActualDeparture
	}
	if result.PlannedArrival != nil {
		doc["plannedArrival"] = *result.PlannedArrival
	}
	if result.ActualArrival != nil {
		doc["actualArrival"] = *result.ActualArrival
	}
	if result.DepartureDelay.Known {
		doc["departureDelay"] = bson.M{"known": true, "value": result.DepartureDelay.Value}
	}
	if result.ArrivalDelay.Known {
		doc["arrivalDelay"] = bson.M{"known": true, "value": result.ArrivalDelay.Value}
	}
	if result.Match != nil {
		doc["match"] = result.Match
	}
	if result.Message != "" {
		doc["message"] = result.Message
	}
	return doc
}
