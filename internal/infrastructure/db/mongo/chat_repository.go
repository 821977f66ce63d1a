package mongo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/docuchat/admin-gateway/internal/core/domain"
)

const chatCollection = "chat_exchanges"

// ChatRepository persists conversation transcripts.
type ChatRepository struct {
	coll *mongo.Collection
}

func NewChatRepository(db *mongo.Database) *ChatRepository {
	return &ChatRepository{coll: db.Collection(chatCollection)}
}

type mongoExchange struct {
	ConversationID string   `bson:"conversation_id"`
	Username       string   `bson:"username"`
	Query          string   `bson:"query"`
	Response       string   `bson:"response"`
	Contexts       []string `bson:"contexts,omitempty"`
	AskedAt        int64    `bson:"asked_at"`
}

// Append stores a single question/answer pair.
func (r *ChatRepository) Append(ctx context.Context, ex domain.ChatExchange) error {
	doc := mongoExchange{
		ConversationID: ex.ConversationID,
		Username:       ex.Username,
		Query:          ex.Query,
		Response:       ex.Response,
		AskedAt:        ex.AskedAt.Unix(),
	}
	for _, c := range ex.Contexts {
		doc.Contexts = append(doc.Contexts, string(c))
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert exchange: %w", err)
	}
	return nil
}

// ByConversation returns a conversation's exchanges in the order they were
// asked.
func (r *ChatRepository) ByConversation(ctx context.Context, conversationID string) ([]domain.ChatExchange, error) {
	opts := options.Find().SetSort(bson.D{{Key: "asked_at", Value: 1}})
	cur, err := r.coll.Find(ctx, bson.M{"conversation_id": conversationID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	defer cur.Close(ctx)

	var out []domain.ChatExchange
	for cur.Next(ctx) {
		var me mongoExchange
		if err := cur.Decode(&me); err != nil {
			return nil, fmt.Errorf("decode exchange: %w", err)
		}
		ex := domain.ChatExchange{
			ConversationID: me.ConversationID,
			Username:       me.Username,
			Query:          me.Query,
			Response:       me.Response,
			AskedAt:        time.Unix(me.AskedAt, 0).UTC(),
		}
		for _, c := range me.Contexts {
			ex.Contexts = append(ex.Contexts, json.RawMessage(c))
		}
		out = append(out, ex)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversation: %w", err)
	}
	if len(out) == 0 {
		return nil, domain.ErrConversationNotFound
	}
	return out, nil
}
