package controller

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"ai-marketplace-be/internal/dto"
	"ai-marketplace-be/internal/pkg/serverutils"
	"ai-marketplace-be/internal/service"
)

type IKnowledgeController interface {
	RegisterRoutes(r fiber.Router)
	CreateFact(ctx *fiber.Ctx) error
	ListFacts(ctx *fiber.Ctx) error
	Relevant(ctx *fiber.Ctx) error
	DeleteAll(ctx *fiber.Ctx) error
}

type knowledgeController struct {
	knowledgeService service.IKnowledgeService
}

func NewKnowledgeController(knowledgeService service.IKnowledgeService) IKnowledgeController {
	return &knowledgeController{
		knowledgeService: knowledgeService,
	}
}

func (c *knowledgeController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/knowledge/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("fact", c.CreateFact)
	h.Get("facts", c.ListFacts)
	h.Get("relevant", c.Relevant)
	h.Delete("facts", c.DeleteAll)
}

func (c *knowledgeController) CreateFact(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	var req dto.CreateFactRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.knowledgeService.CreateFact(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success create fact", res))
}

func (c *knowledgeController) ListFacts(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	var req dto.ListFactsRequest
	if err := ctx.QueryParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.knowledgeService.ListFacts(ctx.Context(), userId, &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get facts", res))
}

func (c *knowledgeController) Relevant(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	query := ctx.Query("q")
	if query == "" {
		return fiber.NewError(fiber.StatusBadRequest, "query parameter 'q' is required")
	}

	res, err := c.knowledgeService.GetRelevantFacts(ctx.Context(), userId, query)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get relevant facts", res))
}

func (c *knowledgeController) DeleteAll(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	if err := c.knowledgeService.DeleteAllFacts(ctx.Context(), userId); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse[any]("Success delete facts", nil))
}
