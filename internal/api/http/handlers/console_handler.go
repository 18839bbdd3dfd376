package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/relay-desk/internal/api/dto"
	"github.com/spec-kit/relay-desk/internal/auth"
	"github.com/spec-kit/relay-desk/internal/domain"
	"github.com/spec-kit/relay-desk/internal/service"
	apperrors "github.com/spec-kit/relay-desk/pkg/util/errorutil"
)

// ConsoleHandler exposes operator console actions over HTTP. The console
// service checks the caller's rank again on every call.
type ConsoleHandler struct {
	console *service.ConsoleService
}

// NewConsoleHandler constructs handler.
func NewConsoleHandler(console *service.ConsoleService) *ConsoleHandler {
	return &ConsoleHandler{console: console}
}

// ListTickets GET /admin/tickets?page=N.
func (h *ConsoleHandler) ListTickets(c *fiber.Ctx) error {
	actorID, err := operatorID(c)
	if err != nil {
		return err
	}
	page, err := h.console.ListTickets(c.UserContext(), actorID, c.QueryInt("page", 1))
	if err != nil {
		return err
	}
	items := make([]dto.TicketResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, dto.NewTicketResponse(&page.Items[i]))
	}
	return c.JSON(fiber.Map{"data": items, "meta": pageMeta(page.Number, page.HasNext)})
}

// GetTicket GET /admin/tickets/:id.
func (h *ConsoleHandler) GetTicket(c *fiber.Ctx) error {
	actorID, err := operatorID(c)
	if err != nil {
		return err
	}
	ticketID, err := pathID(c)
	if err != nil {
		return err
	}
	ticket, err := h.console.GetTicket(c.UserContext(), actorID, ticketID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// Reply POST /admin/tickets/:id/reply.
func (h *ConsoleHandler) Reply(c *fiber.Ctx) error {
	actorID, err := operatorID(c)
	if err != nil {
		return err
	}
	ticketID, err := pathID(c)
	if err != nil {
		return err
	}
	var req dto.ReplyRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if strings.TrimSpace(req.Text) == "" {
		return apperrors.NewValidationError("text required", nil)
	}
	result, err := h.console.ReplyToTicket(c.UserContext(), actorID, ticketID, domain.Content{Text: req.Text})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewTicketResponse(&result.Ticket)})
}

// CreateCode POST /admin/codes.
func (h *ConsoleHandler) CreateCode(c *fiber.Ctx) error {
	actorID, err := operatorID(c)
	if err != nil {
		return err
	}
	var req dto.CreateCodeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	code, err := h.console.CreateCode(c.UserContext(), actorID, req.Code, req.Reward)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"data": dto.CodeResponse{Code: code.Code, Reward: code.Reward},
	})
}

// ListUsers GET /admin/users?page=N.
func (h *ConsoleHandler) ListUsers(c *fiber.Ctx) error {
	actorID, err := operatorID(c)
	if err != nil {
		return err
	}
	page, err := h.console.ListUsers(c.UserContext(), actorID, c.QueryInt("page", 1))
	if err != nil {
		return err
	}
	items := make([]dto.UserResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, dto.NewUserResponse(&page.Items[i]))
	}
	return c.JSON(fiber.Map{"data": items, "meta": pageMeta(page.Number, page.HasNext)})
}

// UpdateUser PATCH /admin/users/:id. Fields apply in order rank, balance,
// blocked; the first failure stops the rest.
func (h *ConsoleHandler) UpdateUser(c *fiber.Ctx) error {
	actorID, err := operatorID(c)
	if err != nil {
		return err
	}
	userID, err := pathID(c)
	if err != nil {
		return err
	}
	var req dto.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Rank == nil && req.BalanceDelta == nil && req.Blocked == nil {
		return apperrors.NewValidationError("nothing to update", nil)
	}

	ctx := c.UserContext()
	var user *domain.User
	if req.Rank != nil {
		rank, ok := domain.ParseRank(*req.Rank)
		if !ok {
			return apperrors.NewValidationError("unknown rank", map[string]any{"rank": *req.Rank})
		}
		if user, err = h.console.SetRank(ctx, actorID, userID, rank); err != nil {
			return err
		}
	}
	if req.BalanceDelta != nil {
		if user, err = h.console.AdjustBalance(ctx, actorID, userID, *req.BalanceDelta); err != nil {
			return err
		}
	}
	if req.Blocked != nil {
		if user, err = h.console.SetBlocked(ctx, actorID, userID, *req.Blocked); err != nil {
			return err
		}
	}
	return c.JSON(fiber.Map{"data": dto.NewUserResponse(user)})
}

// ListEvents GET /events?page=N. Public.
func (h *ConsoleHandler) ListEvents(c *fiber.Ctx) error {
	page, err := h.console.ListEvents(c.UserContext(), c.QueryInt("page", 1))
	if err != nil {
		return err
	}
	items := make([]dto.EventResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, dto.NewEventResponse(&page.Items[i]))
	}
	return c.JSON(fiber.Map{"data": items, "meta": pageMeta(page.Number, page.HasNext)})
}

func operatorID(c *fiber.Ctx) (int64, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return 0, apperrors.NewUnauthorized("authentication required")
	}
	return principal.User.ID, nil
}

func pathID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("invalid id", map[string]any{"id": c.Params("id")})
	}
	return id, nil
}

func pageMeta(page int, hasNext bool) dto.PageMeta {
	return dto.PageMeta{Page: page, PageSize: service.PageSize, HasNext: hasNext}
}
