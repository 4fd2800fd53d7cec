package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"

	"ai-marketplace-be/internal/constant"
	"ai-marketplace-be/internal/dto"
	"ai-marketplace-be/internal/entity"
	"ai-marketplace-be/internal/pkg/logger"
	"ai-marketplace-be/internal/repository/unitofwork"
	"ai-marketplace-be/pkg/embedding"
	"ai-marketplace-be/pkg/events"
	pktNats "ai-marketplace-be/pkg/nats"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService derives knowledge facts from completed chat turns, off
// the request path. One failed turn derivation never affects the chat.
type consumerService struct {
	pubSub            *gochannel.GoChannel
	topicName         string
	uowFactory        unitofwork.RepositoryFactory
	embeddingProvider embedding.EmbeddingProvider
	eventPublisher    *pktNats.Publisher
	minFactLength     int
	log               logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	embeddingProvider embedding.EmbeddingProvider,
	eventPublisher *pktNats.Publisher,
	minFactLength int,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:            pubSub,
		topicName:         topicName,
		uowFactory:        uowFactory,
		embeddingProvider: embeddingProvider,
		eventPublisher:    eventPublisher,
		minFactLength:     minFactLength,
		log:               log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.DeriveFactsMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.log.Error("consumer", "failed to unmarshal message", map[string]interface{}{
			"error": err.Error(),
		})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	userId, err := uuid.Parse(payload.UserId)
	if err != nil {
		cs.log.Error("consumer", "invalid user id in message", map[string]interface{}{
			"userId": payload.UserId,
		})
		msg.Ack()
		return
	}

	facts, err := cs.deriveFacts(userId, payload)
	if err != nil {
		cs.log.Error("consumer", "fact derivation failed", map[string]interface{}{
			"turnId": payload.TurnId,
			"error":  err.Error(),
		})
		msg.Nack() // Nack for retriable errors
		return
	}

	if len(facts) == 0 {
		msg.Ack()
		return
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		cs.log.Error("consumer", "failed to begin transaction", map[string]interface{}{
			"error": err.Error(),
		})
		msg.Nack()
		return
	}
	defer uow.Rollback()

	if err := uow.KnowledgeFactRepository().CreateBulk(ctx, facts); err != nil {
		cs.log.Error("consumer", "failed to store derived facts", map[string]interface{}{
			"turnId": payload.TurnId,
			"error":  err.Error(),
		})
		msg.Nack()
		return
	}

	if err := uow.Commit(); err != nil {
		cs.log.Error("consumer", "failed to commit derived facts", map[string]interface{}{
			"error": err.Error(),
		})
		msg.Nack()
		return
	}

	if cs.eventPublisher != nil {
		evt := events.NewFactsStored(userId, len(facts))
		if err := cs.eventPublisher.Publish(ctx, evt); err != nil {
			cs.log.Warn("consumer", "failed to publish facts stored event", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	cs.log.Info("consumer", "derived facts stored", map[string]interface{}{
		"turnId": payload.TurnId,
		"count":  len(facts),
	})
	msg.Ack()
}

// deriveFacts turns one completed exchange into knowledge rows: the user's
// message as a user_fact, and the full exchange as a conversation_turn.
// Very short messages carry no durable information and are skipped.
func (cs *consumerService) deriveFacts(userId uuid.UUID, payload dto.DeriveFactsMessage) ([]*entity.KnowledgeFact, error) {
	now := time.Now()
	metadata := map[string]interface{}{
		"turn_id": payload.TurnId,
		"source":  "chat",
	}

	var facts []*entity.KnowledgeFact

	if len(payload.UserMessage) >= cs.minFactLength {
		res, err := cs.embeddingProvider.Generate(payload.UserMessage, embedding.TaskRetrievalDocument)
		if err != nil {
			return nil, fmt.Errorf("embed user fact: %w", err)
		}
		facts = append(facts, &entity.KnowledgeFact{
			Id:              uuid.New(),
			UserId:          userId,
			Content:         payload.UserMessage,
			ContentType:     constant.ContentTypeUserFact,
			Embedding:       res.Embedding.Values,
			Metadata:        metadata,
			ImportanceScore: constant.DefaultImportanceScore,
			CreatedAt:       now,
		})
	}

	exchange := fmt.Sprintf("User: %s\nAssistant: %s", payload.UserMessage, payload.AssistantReply)
	if len(payload.AssistantReply) >= cs.minFactLength {
		res, err := cs.embeddingProvider.Generate(exchange, embedding.TaskRetrievalDocument)
		if err != nil {
			return nil, fmt.Errorf("embed conversation turn: %w", err)
		}
		facts = append(facts, &entity.KnowledgeFact{
			Id:              uuid.New(),
			UserId:          userId,
			Content:         exchange,
			ContentType:     constant.ContentTypeConversationTurn,
			Embedding:       res.Embedding.Values,
			Metadata:        metadata,
			ImportanceScore: constant.DefaultImportanceScore,
			CreatedAt:       now,
		})
	}

	return facts, nil
}
