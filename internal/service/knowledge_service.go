package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"ai-marketplace-be/internal/constant"
	"ai-marketplace-be/internal/dto"
	"ai-marketplace-be/internal/entity"
	"ai-marketplace-be/internal/pkg/logger"
	"ai-marketplace-be/internal/repository/specification"
	"ai-marketplace-be/internal/repository/unitofwork"
	"ai-marketplace-be/pkg/embedding"
	"ai-marketplace-be/pkg/rag/retrieval"
	"ai-marketplace-be/pkg/utils"
)

// Long fact contents get chunked before embedding so each stored row stays
// within the embedding model's comfortable input size.
const (
	factChunkSize    = 1500
	factChunkOverlap = 200
)

type IKnowledgeService interface {
	CreateFact(ctx context.Context, userId uuid.UUID, request *dto.CreateFactRequest) (*dto.CreateFactResponse, error)
	ListFacts(ctx context.Context, userId uuid.UUID, request *dto.ListFactsRequest) (*dto.ListFactsResponse, error)
	GetRelevantFacts(ctx context.Context, userId uuid.UUID, query string) (*dto.GetRelevantFactsResponse, error)
	DeleteAllFacts(ctx context.Context, userId uuid.UUID) error
}

type knowledgeService struct {
	uowFactory        unitofwork.RepositoryFactory
	embeddingProvider embedding.EmbeddingProvider
	retriever         *retrieval.Retriever
	log               logger.ILogger
}

func NewKnowledgeService(
	uowFactory unitofwork.RepositoryFactory,
	embeddingProvider embedding.EmbeddingProvider,
	retriever *retrieval.Retriever,
	log logger.ILogger,
) IKnowledgeService {
	return &knowledgeService{
		uowFactory:        uowFactory,
		embeddingProvider: embeddingProvider,
		retriever:         retriever,
		log:               log,
	}
}

func (s *knowledgeService) CreateFact(ctx context.Context, userId uuid.UUID, request *dto.CreateFactRequest) (*dto.CreateFactResponse, error) {
	content := strings.TrimSpace(request.Content)
	if content == "" {
		return nil, fmt.Errorf("fact content is empty")
	}

	importance := constant.DefaultImportanceScore
	if request.ImportanceScore != nil {
		importance = *request.ImportanceScore
	}

	chunks := utils.SplitText(content, factChunkSize, factChunkOverlap)

	facts := make([]*entity.KnowledgeFact, 0, len(chunks))
	for _, chunk := range chunks {
		res, err := s.embeddingProvider.Generate(chunk, embedding.TaskRetrievalDocument)
		if err != nil {
			return nil, fmt.Errorf("generate fact embedding: %w", err)
		}

		facts = append(facts, &entity.KnowledgeFact{
			Id:              uuid.New(),
			UserId:          userId,
			Content:         chunk,
			ContentType:     request.ContentType,
			Embedding:       res.Embedding.Values,
			Metadata:        request.Metadata,
			Topics:          request.Topics,
			Sentiment:       request.Sentiment,
			Intent:          request.Intent,
			ImportanceScore: importance,
			CreatedAt:       time.Now(),
		})
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.KnowledgeFactRepository().CreateBulk(ctx, facts); err != nil {
		return nil, fmt.Errorf("store facts: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return nil, fmt.Errorf("commit facts: %w", err)
	}

	s.log.Info("knowledge", "stored facts", map[string]interface{}{
		"userId": userId.String(),
		"chunks": len(facts),
	})

	return &dto.CreateFactResponse{Id: facts[0].Id}, nil
}

func (s *knowledgeService) ListFacts(ctx context.Context, userId uuid.UUID, request *dto.ListFactsRequest) (*dto.ListFactsResponse, error) {
	specs := []specification.Specification{
		specification.OrderBy{Field: "created_at", Desc: true},
	}
	if request.ContentType != "" {
		specs = append(specs, specification.ByContentType{ContentType: request.ContentType})
	}
	if request.SinceHours > 0 {
		specs = append(specs, specification.CreatedAfter{After: time.Now().Add(-time.Duration(request.SinceHours) * time.Hour)})
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	facts, err := uow.KnowledgeFactRepository().FindAll(ctx, userId, specs...)
	if err != nil {
		return nil, fmt.Errorf("list facts: %w", err)
	}

	items := make([]*dto.FactResponse, 0, len(facts))
	for _, fact := range facts {
		items = append(items, &dto.FactResponse{
			Id:              fact.Id,
			Content:         fact.Content,
			ContentType:     fact.ContentType,
			ImportanceScore: fact.ImportanceScore,
			AccessCount:     fact.AccessCount,
			CreatedAt:       fact.CreatedAt,
		})
	}

	return &dto.ListFactsResponse{Items: items, Count: len(items)}, nil
}

func (s *knowledgeService) GetRelevantFacts(ctx context.Context, userId uuid.UUID, query string) (*dto.GetRelevantFactsResponse, error) {
	result, err := s.retriever.Retrieve(ctx, userId, query)
	if err != nil {
		return nil, err
	}

	items := make([]*dto.RelevantFactResponse, 0, len(result.Items))
	for _, item := range result.Items {
		items = append(items, &dto.RelevantFactResponse{
			Id:              item.Fact.Id,
			Content:         item.Fact.Content,
			ContentType:     item.Fact.ContentType,
			Similarity:      item.Similarity,
			ConfidenceScore: item.ConfidenceScore,
			PriorityScore:   item.PriorityScore,
			CreatedAt:       item.Fact.CreatedAt,
		})
	}

	return &dto.GetRelevantFactsResponse{
		Items:              items,
		HasRelevantContext: result.HasRelevantContext,
		Confidence:         result.Confidence,
	}, nil
}

func (s *knowledgeService) DeleteAllFacts(ctx context.Context, userId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.KnowledgeFactRepository().DeleteAllByUserId(ctx, userId); err != nil {
		return fmt.Errorf("delete facts: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("commit delete: %w", err)
	}

	s.log.Info("knowledge", "deleted all facts", map[string]interface{}{
		"userId": userId.String(),
	})
	return nil
}
