package controller

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"ai-marketplace-be/internal/dto"
	"ai-marketplace-be/internal/pkg/logger"
	"ai-marketplace-be/internal/pkg/serverutils"
	"ai-marketplace-be/internal/service"
	"ai-marketplace-be/pkg/rag/turn"
)

type IChatController interface {
	RegisterRoutes(r fiber.Router)
	Stream(ctx *fiber.Ctx) error
	History(ctx *fiber.Ctx) error
}

type chatController struct {
	chatService service.IChatService
	log         logger.ILogger
}

func NewChatController(chatService service.IChatService, log logger.ILogger) IChatController {
	return &chatController{
		chatService: chatService,
		log:         log,
	}
}

func (c *chatController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/chat/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("stream", c.Stream)
	h.Get("history", c.History)
}

// Stream runs one chat turn over SSE. Each turn event is one `data:` frame;
// the final frame is the literal [DONE] sentinel.
func (c *chatController) Stream(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	var req dto.ChatStreamRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	ctx.Set("Content-Type", "text/event-stream")
	ctx.Set("Cache-Control", "no-cache")
	ctx.Set("Connection", "keep-alive")
	ctx.Set("X-Accel-Buffering", "no")

	// The request context is cancelled when the client disconnects, which
	// stops the turn before analysis or persistence run.
	reqCtx := ctx.Context()

	ctx.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		err := c.chatService.StreamChat(reqCtx, userId, &req, func(e turn.Event) error {
			if e.Type == turn.EventDone {
				if _, err := fmt.Fprint(w, "data: [DONE]\n\n"); err != nil {
					return err
				}
				return w.Flush()
			}

			frame, err := json.Marshal(e)
			if err != nil {
				return err
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", frame); err != nil {
				return err
			}
			return w.Flush()
		})
		if err != nil {
			c.log.Warn("chat", "stream ended with error", map[string]interface{}{
				"userId": userId.String(),
				"error":  err.Error(),
			})

			// Usage-limit rejections happen before any frame was written,
			// so the caller still gets a structured error frame.
			var limitErr *dto.LimitExceededError
			if errors.As(err, &limitErr) {
				payload, _ := json.Marshal(limitErr)
				fmt.Fprintf(w, "data: {\"type\":\"error\",\"error\":\"limit_exceeded\",\"details\":%s}\n\n", payload)
				w.Flush()
			}
		}
	}))

	return nil
}

func (c *chatController) History(ctx *fiber.Ctx) error {
	userIdStr := ctx.Locals("user_id").(string)
	userId, _ := uuid.Parse(userIdStr)

	res, err := c.chatService.GetChatHistory(ctx.Context(), userId)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get chat history", res))
}
