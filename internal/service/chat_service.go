package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"ai-marketplace-be/internal/constant"
	"ai-marketplace-be/internal/dto"
	"ai-marketplace-be/internal/entity"
	"ai-marketplace-be/internal/pkg/logger"
	"ai-marketplace-be/internal/repository/memory"
	"ai-marketplace-be/internal/repository/specification"
	"ai-marketplace-be/internal/repository/unitofwork"
	"ai-marketplace-be/pkg/events"
	"ai-marketplace-be/pkg/llm"
	pktNats "ai-marketplace-be/pkg/nats"
	"ai-marketplace-be/pkg/rag/filter"
	"ai-marketplace-be/pkg/rag/retrieval"
	"ai-marketplace-be/pkg/rag/tooldecision"
	"ai-marketplace-be/pkg/rag/turn"
	"ai-marketplace-be/pkg/search"
	"ai-marketplace-be/pkg/usage"
)

// historyWindow caps how many prior messages feed the Stage 1 prompt.
const historyWindow = 10

type IChatService interface {
	// StreamChat runs one chat turn, delivering events through emit in
	// order: content fragments, one tool outcome, then done.
	StreamChat(ctx context.Context, userId uuid.UUID, request *dto.ChatStreamRequest, emit turn.EmitFunc) error
	GetChatHistory(ctx context.Context, userId uuid.UUID) ([]*dto.GetChatHistoryResponse, error)
}

type chatService struct {
	uowFactory       unitofwork.RepositoryFactory
	orchestrator     *turn.Orchestrator
	retriever        *retrieval.Retriever
	filterStateRepo  *memory.FilterStateRepository
	publisherService IPublisherService
	eventPublisher   *pktNats.Publisher
	usageTracker     *usage.Tracker
	dailyTurnLimit   int64
	log              logger.ILogger
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	llmProvider llm.LLMProvider,
	executor search.Executor,
	retriever *retrieval.Retriever,
	filterStateRepo *memory.FilterStateRepository,
	publisherService IPublisherService,
	eventPublisher *pktNats.Publisher,
	usageTracker *usage.Tracker,
	dailyTurnLimit int64,
	log logger.ILogger,
	pipelineLog logger.ILogger,
) IChatService {
	s := &chatService{
		uowFactory:       uowFactory,
		retriever:        retriever,
		filterStateRepo:  filterStateRepo,
		publisherService: publisherService,
		eventPublisher:   eventPublisher,
		usageTracker:     usageTracker,
		dailyTurnLimit:   dailyTurnLimit,
		log:              log,
	}

	// Pipeline traces go to their own file so the main log stays readable
	if pipelineLog == nil {
		pipelineLog = log
	}
	analyzer := tooldecision.NewAnalyzer(llmProvider, pipelineLog)
	s.orchestrator = turn.NewOrchestrator(llmProvider, analyzer, executor, s, pipelineLog)
	return s
}

func (s *chatService) StreamChat(ctx context.Context, userId uuid.UUID, request *dto.ChatStreamRequest, emit turn.EmitFunc) error {
	if err := s.checkUsage(ctx, userId); err != nil {
		return err
	}

	filterState := s.resolveFilterState(request)
	messages := s.buildTurnMessages(ctx, userId, request.Messages)

	retrievalContext := s.loadRetrievalContext(ctx, userId, lastUserContent(request.Messages))

	outcome, err := s.orchestrator.RunTurn(ctx, turn.Input{
		UserId:           userId,
		Messages:         messages,
		FilterState:      filterState,
		RetrievalContext: retrievalContext,
	}, emit)
	if err != nil {
		return err
	}

	s.filterStateRepo.Save(request.SessionId, outcome.FilterState)

	if s.eventPublisher != nil {
		evt := events.NewChatTurnCompleted(userId, outcome.ToolResult != nil)
		if err := s.eventPublisher.Publish(ctx, evt); err != nil {
			s.log.Warn("chat", "failed to publish turn completed event", map[string]interface{}{
				"userId": userId.String(),
				"error":  err.Error(),
			})
		}
	}

	return nil
}

// PersistTurn writes the turn's two conversation rows and queues async fact
// derivation. Called by the orchestrator after analysis resolves.
func (s *chatService) PersistTurn(ctx context.Context, userId uuid.UUID, userMessage, assistantReply string) error {
	turnId := uuid.New()
	now := time.Now()

	rows := []*entity.ConversationMessage{
		{
			Id:        uuid.New(),
			UserId:    userId,
			Role:      constant.ChatMessageRoleUser,
			Content:   userMessage,
			TurnId:    turnId,
			CreatedAt: now,
		},
		{
			Id:        uuid.New(),
			UserId:    userId,
			Role:      constant.ChatMessageRoleAssistant,
			Content:   assistantReply,
			TurnId:    turnId,
			CreatedAt: now,
		},
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer uow.Rollback()

	if err := uow.ConversationRepository().CreateBulk(ctx, rows); err != nil {
		return fmt.Errorf("store conversation rows: %w", err)
	}

	if err := uow.Commit(); err != nil {
		return fmt.Errorf("commit conversation rows: %w", err)
	}

	payload, err := json.Marshal(dto.DeriveFactsMessage{
		UserId:         userId.String(),
		TurnId:         turnId.String(),
		UserMessage:    userMessage,
		AssistantReply: assistantReply,
	})
	if err != nil {
		return fmt.Errorf("marshal derive facts message: %w", err)
	}

	if err := s.publisherService.Publish(ctx, payload); err != nil {
		return fmt.Errorf("queue fact derivation: %w", err)
	}

	return nil
}

func (s *chatService) GetChatHistory(ctx context.Context, userId uuid.UUID) ([]*dto.GetChatHistoryResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	rows, err := uow.ConversationRepository().FindAll(ctx, userId,
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	history := make([]*dto.GetChatHistoryResponse, 0, len(rows))
	for _, row := range rows {
		history = append(history, &dto.GetChatHistoryResponse{
			Id:        row.Id.String(),
			Role:      row.Role,
			Content:   row.Content,
			TurnId:    row.TurnId.String(),
			CreatedAt: row.CreatedAt,
		})
	}
	return history, nil
}

func (s *chatService) checkUsage(ctx context.Context, userId uuid.UUID) error {
	if s.usageTracker == nil || s.dailyTurnLimit <= 0 {
		return nil
	}

	count, err := s.usageTracker.RecordTurn(ctx, userId)
	if err != nil {
		// Usage accounting must never take the chat down
		s.log.Warn("chat", "usage tracking failed", map[string]interface{}{
			"userId": userId.String(),
			"error":  err.Error(),
		})
		return nil
	}

	if count > s.dailyTurnLimit {
		return &dto.LimitExceededError{
			Limit:      s.dailyTurnLimit,
			Used:       count,
			ResetAfter: midnightUTC(),
		}
	}
	return nil
}

func (s *chatService) resolveFilterState(request *dto.ChatStreamRequest) filter.State {
	if request.CurrentFilterState != nil {
		return filter.State(request.CurrentFilterState)
	}
	if state, found := s.filterStateRepo.Get(request.SessionId); found {
		return state
	}
	return filter.State{}
}

func (s *chatService) loadRetrievalContext(ctx context.Context, userId uuid.UUID, query string) string {
	if query == "" {
		return ""
	}

	result, err := s.retriever.Retrieve(ctx, userId, query)
	if err != nil {
		// Degraded mode: answer without prior context rather than fail the turn
		s.log.Warn("chat", "retrieval failed, continuing without context", map[string]interface{}{
			"userId": userId.String(),
			"error":  err.Error(),
		})
		return ""
	}
	if !result.HasRelevantContext {
		return ""
	}

	var b strings.Builder
	for _, item := range result.Items {
		b.WriteString("- ")
		b.WriteString(item.Fact.Content)
		b.WriteString("\n")
	}
	return b.String()
}

// buildTurnMessages assembles the Stage 1 history. Clients that manage
// their own history send the full window; clients that send only the
// latest message get recent stored turns prepended, capped so the prompt
// stays bounded.
func (s *chatService) buildTurnMessages(ctx context.Context, userId uuid.UUID, incoming []dto.ChatMessageDTO) []llm.Message {
	if len(incoming) > historyWindow {
		incoming = incoming[len(incoming)-historyWindow:]
	}
	if len(incoming) > 1 {
		return toLLMMessages(incoming)
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	rows, err := uow.ConversationRepository().FindAll(ctx, userId,
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: historyWindow},
	)
	if err != nil {
		s.log.Warn("chat", "history load failed, continuing without it", map[string]interface{}{
			"userId": userId.String(),
			"error":  err.Error(),
		})
		return toLLMMessages(incoming)
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.Before(rows[j].CreatedAt) })
	if len(rows) > historyWindow {
		rows = rows[len(rows)-historyWindow:]
	}

	messages := make([]llm.Message, 0, len(rows)+len(incoming))
	for _, row := range rows {
		messages = append(messages, llm.Message{Role: row.Role, Content: row.Content})
	}
	return append(messages, toLLMMessages(incoming)...)
}

func toLLMMessages(messages []dto.ChatMessageDTO) []llm.Message {
	out := make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, llm.Message{Role: m.Role, Content: m.Content})
	}
	return out
}

func lastUserContent(messages []dto.ChatMessageDTO) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == constant.ChatMessageRoleUser {
			return messages[i].Content
		}
	}
	return ""
}

func midnightUTC() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).Add(24 * time.Hour)
}
