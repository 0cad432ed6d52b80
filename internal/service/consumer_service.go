// FILE: internal/service/consumer_service.go
package service

import (
	"context"
	"encoding/json"
	"log"

	"rag-patient-be/internal/dto"
	"rag-patient-be/internal/repository/specification"
	"rag-patient-be/internal/repository/unitofwork"
	"rag-patient-be/pkg/embedding"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService backfills fragment embeddings off the in-process bus.
// Case creation publishes one message per fragment so the request itself
// never waits on the embedding provider.
type consumerService struct {
	pubSub            *gochannel.GoChannel
	topicName         string
	uowFactory        unitofwork.RepositoryFactory
	embeddingProvider embedding.EmbeddingProvider
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	embeddingProvider embedding.EmbeddingProvider,
) IConsumerService {
	return &consumerService{
		pubSub:            pubSub,
		topicName:         topicName,
		uowFactory:        uowFactory,
		embeddingProvider: embeddingProvider,
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
	var payload dto.PublishEmbedFragmentMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		log.Printf("[ERROR] Failed to unmarshal message: %v", err)
		msg.Ack() // malformed, retrying never helps
		return
	}

	if cs.embeddingProvider == nil {
		log.Printf("[WARN] No embedding provider configured, dropping embed request for fragment %s", payload.FragmentId)
		msg.Ack()
		return
	}

	log.Printf("[INFO] Embedding fragment %s", payload.FragmentId)

	uow := cs.uowFactory.NewUnitOfWork(ctx)

	fragment, err := uow.FragmentRepository().FindOne(ctx, specification.ByID{ID: payload.FragmentId})
	if err != nil {
		log.Printf("[ERROR] Failed to load fragment %s: %v", payload.FragmentId, err)
		msg.Nack()
		return
	}
	if fragment == nil {
		// Fragment deleted between publish and consume. Ack.
		log.Printf("[WARN] Fragment not found: %s", payload.FragmentId)
		msg.Ack()
		return
	}
	if len(fragment.Embedding) > 0 {
		log.Printf("[DEBUG] Fragment %s already embedded, skipping", fragment.Id)
		msg.Ack()
		return
	}

	text := embedding.FragmentText(fragment.Text, fragment.Metadata, fragment.Availability)
	res, err := cs.embeddingProvider.Generate(text, embedding.TaskDocument)
	if err != nil {
		log.Printf("[ERROR] Failed to generate embedding for fragment %s: %v", fragment.Id, err)
		msg.Nack()
		return
	}

	fragment.Embedding = res.Embedding.Values
	if err := uow.FragmentRepository().Update(ctx, fragment); err != nil {
		log.Printf("[ERROR] Failed to store embedding for fragment %s: %v", fragment.Id, err)
		msg.Nack()
		return
	}

	log.Printf("[SUCCESS] Fragment embedded: %s (%d dims)", fragment.Id, len(fragment.Embedding))
	msg.Ack()
}
