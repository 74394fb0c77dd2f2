package session

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"rdv-gateway/pkg/cerror"
	"rdv-gateway/pkg/config"
)

type mongoStorage struct {
	client *mongo.Client
	config config.MongodbConfig
	sealer *Sealer
}

// NewMongoStorage is the durable scope, holding remember-me sessions. Refresh
// tokens are sealed before they leave the process. A ttl index on createdAt,
// sized to the remember ttl, reaps sessions whose cookies have long expired.
func NewMongoStorage(
	ctx context.Context,
	client *mongo.Client,
	config config.MongodbConfig,
	sealer *Sealer,
	rememberTtl time.Duration,
) (Storage, error) {
	storage := &mongoStorage{
		client: client,
		config: config,
		sealer: sealer,
	}

	ttlIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "createdAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(int32(rememberTtl.Seconds())),
	}
	_, err := storage.collection().Indexes().CreateOne(ctx, ttlIndex)
	if err != nil {
		return nil, cerror.NewError(
			fiber.StatusInternalServerError,
			"error occurred while create session ttl index",
			zap.Error(err),
		)
	}

	return storage, nil
}

func (storage *mongoStorage) collection() *mongo.Collection {
	return storage.client.
		Database(storage.config.Database).
		Collection(storage.config.SessionCollection)
}

func (storage *mongoStorage) Put(ctx context.Context, record *Record) error {
	sealedRefreshToken, err := storage.sealer.Seal(record.Identity.RefreshToken)
	if err != nil {
		return cerror.NewError(
			fiber.StatusInternalServerError,
			"error occurred while seal refresh token",
			zap.Error(err),
		)
	}

	sealedRecord := *record
	sealedRecord.Identity.RefreshToken = sealedRefreshToken

	filter := bson.D{{Key: "_id", Value: record.Id}}
	replaceOptions := options.Replace().SetUpsert(true)
	_, err = storage.collection().ReplaceOne(ctx, filter, &sealedRecord, replaceOptions)
	if err != nil {
		return cerror.NewError(
			fiber.StatusInternalServerError,
			"error occurred while persist session record",
			zap.Error(err),
		)
	}

	return nil
}

func (storage *mongoStorage) Get(ctx context.Context, sessionId string) (*Record, error) {
	var record Record
	filter := bson.D{{Key: "_id", Value: sessionId}}
	err := storage.collection().FindOne(ctx, &filter).Decode(&record)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, cerror.NewError(
			fiber.StatusInternalServerError,
			"error occurred while find session record",
			zap.Error(err),
		)
	}

	refreshToken, err := storage.sealer.Open(record.Identity.RefreshToken)
	if err != nil {
		return nil, cerror.NewError(
			fiber.StatusInternalServerError,
			"error occurred while open sealed refresh token",
			zap.Error(err),
		)
	}
	record.Identity.RefreshToken = refreshToken

	return &record, nil
}

func (storage *mongoStorage) Delete(ctx context.Context, sessionId string) error {
	filter := bson.D{{Key: "_id", Value: sessionId}}
	_, err := storage.collection().DeleteOne(ctx, filter)
	if err != nil {
		return cerror.NewError(
			fiber.StatusInternalServerError,
			"error occurred while delete session record",
			zap.Error(err),
		)
	}

	return nil
}
