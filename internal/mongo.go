package internal

import (
	"context"
	"fmt"
	"log"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"sispay/config"
	"sispay/entity"
	"sispay/services"
)

const (
	collectionLog          = "payment_log"
	collectionTransactions = "transactions"
	collectionTokens       = "recurring_tokens"
	collectionResults      = "payment_results"
)

// MongoDB implements services.Database. Connections are opened per
// operation; the driver pools under the hood.
type MongoDB struct {
	clientOptions    *options.ClientOptions
	database         string
	logRecordsNumber int64
}

func NewMongoClient(conf *config.Config) (*MongoDB, error) {
	if !conf.Mongo.Enabled {
		return nil, nil
	}
	connectionUri := fmt.Sprintf("mongodb://%s:%s", conf.Mongo.Host, conf.Mongo.Port)
	clientOptions := options.Client().ApplyURI(connectionUri)
	if conf.Mongo.User != "" {
		clientOptions.SetAuth(options.Credential{
			Username:   conf.Mongo.User,
			Password:   conf.Mongo.Password,
			AuthSource: conf.Mongo.Database,
		})
	}
	client := &MongoDB{
		clientOptions:    clientOptions,
		database:         conf.Mongo.Database,
		logRecordsNumber: conf.LogRecords,
	}
	return client, nil
}

func (m *MongoDB) connect(ctx context.Context) (*mongo.Client, error) {
	connection, err := mongo.Connect(ctx, m.clientOptions)
	if err != nil {
		return nil, err
	}
	return connection, nil
}

func (m *MongoDB) disconnect(ctx context.Context, connection *mongo.Client) {
	err := connection.Disconnect(ctx)
	if err != nil {
		log.Println("mongodb disconnect error", err)
	}
}

// FindTransactions returns every transaction stored under reference.
// The caller enforces the exactly-one rule.
func (m *MongoDB) FindTransactions(ctx context.Context, reference string) ([]*entity.Transaction, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionTransactions)
	filter := bson.D{{Key: "reference", Value: reference}}
	cursor, err := collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	var transactions []*entity.Transaction
	if err = cursor.All(ctx, &transactions); err != nil {
		return nil, err
	}
	return transactions, nil
}

func (m *MongoDB) UpdateTransaction(ctx context.Context, transaction *entity.Transaction) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionTransactions)
	filter := bson.D{{Key: "reference", Value: transaction.Reference}}
	set := bson.M{"$set": transaction}
	_, err = collection.UpdateOne(ctx, filter, set, options.Update().SetUpsert(true))
	return err
}

func (m *MongoDB) GetRecurringToken(ctx context.Context, identifier string) (*entity.RecurringToken, error) {
	connection, err := m.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionTokens)
	filter := bson.D{{Key: "identifier", Value: identifier}}
	var token entity.RecurringToken
	if err = collection.FindOne(ctx, filter).Decode(&token); err != nil {
		return nil, err
	}
	return &token, nil
}

func (m *MongoDB) SaveRecurringToken(ctx context.Context, token *entity.RecurringToken) error {
	saved, _ := m.GetRecurringToken(ctx, token.Identifier)
	if saved != nil {
		return fmt.Errorf("token with identifier %s already exists", secret(token.Identifier))
	}

	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionTokens)
	_, err = collection.InsertOne(ctx, token)
	return err
}

func (m *MongoDB) SavePaymentResult(ctx context.Context, result *entity.PaymentResult) error {
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(ctx, connection)

	collection := connection.Database(m.database).Collection(collectionResults)
	_, err = collection.InsertOne(ctx, result)
	return err
}

func (m *MongoDB) WriteLogMessage(data services.Data) error {
	ctx := context.Background()
	connection, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer m.disconnect(ctx, connection)
	collection := connection.Database(m.database).Collection(collectionLog)
	if _, err = collection.InsertOne(ctx, data); err != nil {
		return err
	}
	// keep the payment log bounded when a cap is configured
	if m.logRecordsNumber > 0 {
		count, err := collection.CountDocuments(ctx, bson.D{})
		if err == nil && count > m.logRecordsNumber {
			oldestFirst := options.FindOneAndDelete().SetSort(bson.D{{Key: "_id", Value: 1}})
			collection.FindOneAndDelete(ctx, bson.D{}, oldestFirst)
		}
	}
	return nil
}
