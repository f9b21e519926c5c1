package session

import (
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/mongo/mongodriver"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
)

// NewMongoDBStore keeps session data in database.collection with a TTL index matching
// MaxAge.
func NewMongoDBStore(secure bool, secret []byte, client *mongo.Client, database, collection string) (sessions.Store, error) {
	if client == nil {
		return nil, errors.New("mongodb client cannot be nil")
	}
	if err := checkSecret(secret); err != nil {
		return nil, err
	}
	if database == "" {
		return nil, errors.New("mongodb database name cannot be empty")
	}
	if collection == "" {
		return nil, errors.New("mongodb collection name cannot be empty")
	}
	store := mongodriver.NewStore(client.Database(database).Collection(collection), MaxAge, true, secret)
	store.Options(Options(secure))
	return store, nil
}
