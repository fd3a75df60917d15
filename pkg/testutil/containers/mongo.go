//go:build integration

package containers

import (
	"context"
	"fmt"
	"testing"
	"time"

	tcmongo "github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoContainer is a throwaway MongoDB with a per-test database.
type MongoContainer struct {
	URI      string
	Client   *mongo.Client
	Database *mongo.Database
}

func NewMongoContainer(t *testing.T) *MongoContainer {
	t.Helper()
	ctx, cancel := startupContext(t)
	defer cancel()

	container, err := tcmongo.Run(ctx, "mongo:7.0.14")
	if err != nil {
		t.Fatalf("start mongo container: %v", err)
	}
	terminateOnCleanup(t, container)

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("mongo connection string: %v", err)
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		t.Fatalf("connect mongo: %v", err)
	}
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	db := client.Database(fmt.Sprintf("hrdms_test_%d", time.Now().UnixNano()))
	return &MongoContainer{URI: uri, Client: client, Database: db}
}
