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
)

// TicketRepository persists tickets in the "tickets" collection.
type TicketRepository struct {
	collection *mongo.Collection
}

// NewTicketRepository creates the repository and ensures its indexes.
func NewTicketRepository(ctx context.Context, db *mongo.Database) (*TicketRepository, error) {
	collection := db.Collection("tickets")

	_, err := collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "serviceDate", Value: -1}},
	})
	if err != nil {
		return nil, err
	}

	return &TicketRepository{collection: collection}, nil
}

// Create inserts a new ticket.
func (r *TicketRepository) Create(ctx context.Context, ticket *domain.Ticket) error {
	now := time.Now().UTC()
	if ticket.ID == "" {
		ticket.ID = primitive.NewObjectID().Hex()
	}
	ticket.CreatedAt = now
	ticket.UpdatedAt = now

	_, err := r.collection.InsertOne(ctx, ticket)
	return err
}

// GetByID returns a ticket, or nil when it does not exist.
func (r *TicketRepository) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	var ticket domain.Ticket
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&ticket)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

// ListByUser returns a user's tickets, newest service date first.
func (r *TicketRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Ticket, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "serviceDate", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, bson.M{"userId": userID}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var tickets []domain.Ticket
	if err := cursor.All(ctx, &tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

// UpdateStatus advances a ticket's lifecycle state.
func (r *TicketRepository) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{
			"status":    status,
			"updatedAt": time.Now().UTC(),
		}},
	)
	return err
}
