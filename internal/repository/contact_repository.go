package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"go-card-scanner/pkg/models"
)

// ContactRepository persists extracted contact records.
type ContactRepository interface {
	Save(ctx context.Context, record *models.StoredContact) error
	GetByID(ctx context.Context, id string) (*models.StoredContact, error)
	List(ctx context.Context, limit int64) ([]models.StoredContact, error)
	DeleteAll(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

const contactCollection = "contacts"

type mongoContactRepository struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoContactRepository connects to MongoDB and verifies the connection
// before handing the repository back.
func NewMongoContactRepository(ctx context.Context, uri, database string) (ContactRepository, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, ErrRepositoryUnavailable
	}

	return &mongoContactRepository{
		client:     client,
		collection: client.Database(database).Collection(contactCollection),
	}, nil
}

func (r *mongoContactRepository) Save(ctx context.Context, record *models.StoredContact) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	_, err := r.collection.InsertOne(ctx, record)
	return err
}

func (r *mongoContactRepository) GetByID(ctx context.Context, id string) (*models.StoredContact, error) {
	var record models.StoredContact
	err := r.collection.FindOne(ctx, bson.D{{Key: "_id", Value: id}}).Decode(&record)
	if err == mongo.ErrNoDocuments {
		return nil, ErrContactNotFound
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *mongoContactRepository) List(ctx context.Context, limit int64) ([]models.StoredContact, error) {
	if limit <= 0 {
		limit = 100
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := r.collection.Find(ctx, bson.D{}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	records := []models.StoredContact{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func (r *mongoContactRepository) DeleteAll(ctx context.Context) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.D{})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func (r *mongoContactRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, nil)
}

func (r *mongoContactRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
