package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ridepair/pkg/logger"
)

const (
	RidesCollection           = "rides"
	RideRequestsCollection    = "ride_requests"
	NotificationsCollection   = "notifications"
	ChatMessagesCollection    = "chat_messages"
	EmergencyAlertsCollection = "emergency_alerts"
	migrationsCollection      = "migrations"
)

type Migration struct {
	Version     int
	Description string
	Up          func(ctx context.Context, db *mongo.Database) error
}

type Migrator struct {
	db         *mongo.Database
	logger     *logger.Logger
	migrations []Migration
}

func NewMigrator(db *mongo.Database, log *logger.Logger) *Migrator {
	return &Migrator{
		db:         db,
		logger:     log,
		migrations: getMigrations(),
	}
}

// Up applies every migration newer than the recorded version.
func (m *Migrator) Up(ctx context.Context) error {
	currentVersion, err := m.getCurrentVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range m.migrations {
		if migration.Version <= currentVersion {
			continue
		}

		log := m.logger.WithFields(map[string]interface{}{
			"version":     migration.Version,
			"description": migration.Description,
		})
		log.Info("Running migration")

		if err := migration.Up(ctx, m.db); err != nil {
			return fmt.Errorf("migration %d failed: %w", migration.Version, err)
		}
		if err := m.updateVersion(ctx, migration.Version); err != nil {
			return fmt.Errorf("failed to update migration version: %w", err)
		}

		log.Info("Migration completed")
	}

	return nil
}

func (m *Migrator) getCurrentVersion(ctx context.Context) (int, error) {
	var result struct {
		Version int `bson:"version"`
	}

	err := m.db.Collection(migrationsCollection).FindOne(ctx, bson.D{}).Decode(&result)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return 0, nil
		}
		return 0, err
	}

	return result.Version, nil
}

func (m *Migrator) updateVersion(ctx context.Context, version int) error {
	_, err := m.db.Collection(migrationsCollection).ReplaceOne(
		ctx,
		bson.D{},
		bson.D{{Key: "version", Value: version}, {Key: "updated_at", Value: time.Now()}},
		options.Replace().SetUpsert(true),
	)
	return err
}

func getMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create rides indexes",
			Up:          createRidesIndexes,
		},
		{
			Version:     2,
			Description: "Create ride requests indexes",
			Up:          createRideRequestsIndexes,
		},
		{
			Version:     3,
			Description: "Create notifications, chat and emergency indexes",
			Up:          createMessagingIndexes,
		},
	}
}

// Collections must exist before they can take part in a transaction.
func ensureCollection(ctx context.Context, db *mongo.Database, name string) error {
	names, err := db.ListCollectionNames(ctx, bson.M{"name": name})
	if err != nil {
		return err
	}
	if len(names) > 0 {
		return nil
	}
	return db.CreateCollection(ctx, name)
}

func createRidesIndexes(ctx context.Context, db *mongo.Database) error {
	if err := ensureCollection(ctx, db, RidesCollection); err != nil {
		return err
	}
	_, err := db.Collection(RidesCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "date_time", Value: 1}}},
		{Keys: bson.D{{Key: "participant_ids", Value: 1}, {Key: "date_time", Value: 1}}},
		{Keys: bson.D{{Key: "origin", Value: 1}, {Key: "status", Value: 1}}},
	})
	return err
}

func createRideRequestsIndexes(ctx context.Context, db *mongo.Database) error {
	if err := ensureCollection(ctx, db, RideRequestsCollection); err != nil {
		return err
	}
	_, err := db.Collection(RideRequestsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "ride_id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "passenger_id", Value: 1}, {Key: "created_at", Value: -1}}},
		// One live request per passenger and ride.
		{
			Keys: bson.D{{Key: "ride_id", Value: 1}, {Key: "passenger_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"status": bson.M{"$in": []string{"pending", "accepted"}}}),
		},
	})
	return err
}

func createMessagingIndexes(ctx context.Context, db *mongo.Database) error {
	for _, name := range []string{NotificationsCollection, ChatMessagesCollection, EmergencyAlertsCollection} {
		if err := ensureCollection(ctx, db, name); err != nil {
			return err
		}
	}

	if _, err := db.Collection(NotificationsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "is_read", Value: 1}}},
	}); err != nil {
		return err
	}
	if _, err := db.Collection(ChatMessagesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "ride_id", Value: 1}, {Key: "created_at", Value: 1}},
	}); err != nil {
		return err
	}
	_, err := db.Collection(EmergencyAlertsCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "ride_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	return err
}
