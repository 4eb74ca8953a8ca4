package handlers

import (
	"context"
	"log/slog"
	"math"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/freelance_hub/internal/apperr"
	"github.com/Windi-Fikriyansyah/freelance_hub/internal/middleware"
	"github.com/Windi-Fikriyansyah/freelance_hub/internal/models"
	"github.com/Windi-Fikriyansyah/freelance_hub/internal/repositories"
	"github.com/Windi-Fikriyansyah/freelance_hub/internal/services/project"
)

const EventProjectUpdated = "projectUpdated"

// Notifier pushes an event to every live socket of a user.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, event string, data interface{}) error
}

// ProjectChats is the part of the chat service the project routes drive.
type ProjectChats interface {
	CreateRoom(ctx context.Context, actorID, projectID uuid.UUID) (*models.Chat, bool, error)
	ProjectStatusSync(ctx context.Context, chatID, actorID uuid.UUID) (*models.Project, error)
}

type ProjectHandler struct {
	Projects *project.Service
	Chats    ProjectChats
	Notifier Notifier
}

func NewProjectHandler(projects *project.Service, chats ProjectChats, notifier Notifier) *ProjectHandler {
	return &ProjectHandler{Projects: projects, Chats: chats, Notifier: notifier}
}

func (h *ProjectHandler) Routes(r fiber.Router, authMiddleware fiber.Handler) {
	g := r.Group("/projects")

	// static paths first, :projectId would swallow them
	g.Get("/", h.List)
	g.Get("/categories", h.Categories)
	g.Get("/client", authMiddleware, h.ListForClient)
	g.Get("/client/ongoing_project_client", authMiddleware, h.ListOngoingForClient)
	g.Get("/freelancer", authMiddleware, h.ListApplied)
	g.Get("/assigned", authMiddleware, h.ListAssigned)

	g.Post("/", authMiddleware, h.Create)
	g.Post("/apply", authMiddleware, h.Apply)
	g.Post("/unapply", authMiddleware, h.Unapply)
	g.Post("/accept", authMiddleware, h.Accept)
	g.Put("/confirm", authMiddleware, h.Confirm)
	g.Put("/undo-accept", authMiddleware, h.UndoAccept)
	g.Put("/withdraw", authMiddleware, h.Withdraw)
	g.Delete("/delete", authMiddleware, h.Delete)
	g.Put("/project_status_update", authMiddleware, h.StatusSync)
	g.Post("/dispute", authMiddleware, h.OpenDispute)

	g.Get("/:projectId", h.Applicants)
	g.Get("/:projectId/detail", h.Detail)
	g.Put("/:projectId", authMiddleware, h.Update)
	g.Post("/:projectId/reviews", authMiddleware, h.CreateReview)

	r.Put("/disputes/:disputeId/resolve", authMiddleware, middleware.RequireRoles("admin"), h.ResolveDispute)
	r.Get("/users/:userId/reviews", h.ListReviews)
}

// lifecycleReq is the body shared by the lifecycle endpoints.
type lifecycleReq struct {
	ProjectID            uuid.UUID            `json:"projectId"`
	Status               models.ProjectStatus `json:"status"`
	SelectedFreelancerID *uuid.UUID           `json:"selectedFreelancerId"`
}

func parseLifecycle(c *fiber.Ctx) (uuid.UUID, lifecycleReq, error) {
	uid, err := getAuth(c)
	if err != nil {
		return uuid.Nil, lifecycleReq{}, err
	}
	var req lifecycleReq
	if err := c.BodyParser(&req); err != nil {
		return uuid.Nil, req, apperr.Validation("invalid body")
	}
	if req.ProjectID == uuid.Nil {
		return uuid.Nil, req, apperr.Validation("projectId is required")
	}
	return uid, req, nil
}

// notify tells both parties that the project changed. Failures only cost
// the live update.
func (h *ProjectHandler) notify(ctx context.Context, p *models.Project, extra ...uuid.UUID) {
	if h.Notifier == nil || p == nil {
		return
	}
	seen := map[uuid.UUID]bool{}
	targets := append([]uuid.UUID{p.ClientID}, extra...)
	if p.SelectedFreelancer != nil {
		targets = append(targets, *p.SelectedFreelancer)
	}
	for _, id := range targets {
		if id == uuid.Nil || seen[id] {
			continue
		}
		seen[id] = true
		if err := h.Notifier.Notify(ctx, id, EventProjectUpdated, p); err != nil {
			slog.Warn("project notification failed", "project", p.ID, "user", id, "err", err)
		}
	}
}

func (h *ProjectHandler) Create(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	var req project.CreateInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	p, err := h.Projects.Create(c.UserContext(), uid, req)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusCreated, "project created", p)
}

func (h *ProjectHandler) Update(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "projectId")
	if err != nil {
		return fail(c, err)
	}
	var req project.CreateInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	p, err := h.Projects.Update(c.UserContext(), uid, id, req)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "project updated", p)
}

func (h *ProjectHandler) List(c *fiber.Ctx) error {
	out, err := h.Projects.List(c.UserContext(), repositories.ProjectFilter{
		Status:   models.ProjectStatus(c.Query("status")),
		Category: c.Query("category"),
	})
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "", out)
}

func (h *ProjectHandler) Detail(c *fiber.Ctx) error {
	id, err := paramUUID(c, "projectId")
	if err != nil {
		return fail(c, err)
	}
	p, err := h.Projects.Get(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "", p)
}

func (h *ProjectHandler) Applicants(c *fiber.Ctx) error {
	id, err := paramUUID(c, "projectId")
	if err != nil {
		return fail(c, err)
	}
	users, err := h.Projects.Applicants(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "", users)
}

func (h *ProjectHandler) Categories(c *fiber.Ctx) error {
	out, err := h.Projects.Categories(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "", out)
}

func (h *ProjectHandler) listBy(c *fiber.Ctx, fn func(context.Context, uuid.UUID) ([]models.Project, error)) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	out, err := fn(c.UserContext(), uid)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "", out)
}

func (h *ProjectHandler) ListForClient(c *fiber.Ctx) error {
	return h.listBy(c, h.Projects.ListForClient)
}

func (h *ProjectHandler) ListOngoingForClient(c *fiber.Ctx) error {
	return h.listBy(c, h.Projects.ListOngoingForClient)
}

func (h *ProjectHandler) ListApplied(c *fiber.Ctx) error {
	return h.listBy(c, h.Projects.ListApplied)
}

func (h *ProjectHandler) ListAssigned(c *fiber.Ctx) error {
	return h.listBy(c, h.Projects.ListAssigned)
}

func (h *ProjectHandler) Apply(c *fiber.Ctx) error {
	uid, req, err := parseLifecycle(c)
	if err != nil {
		return err
	}
	p, err := h.Projects.Apply(c.UserContext(), req.ProjectID, uid)
	if err != nil {
		return fail(c, err)
	}
	h.notify(c.UserContext(), p)
	return ok(c, fiber.StatusOK, "applied to project", p)
}

func (h *ProjectHandler) Unapply(c *fiber.Ctx) error {
	uid, req, err := parseLifecycle(c)
	if err != nil {
		return err
	}
	p, err := h.Projects.Unapply(c.UserContext(), req.ProjectID, uid)
	if err != nil {
		return fail(c, err)
	}
	h.notify(c.UserContext(), p)
	return ok(c, fiber.StatusOK, "application withdrawn", p)
}

// Accept changes the project status. Moving to In Progress selects the
// freelancer and opens the chat room of the project. The status change is
// kept when the room cannot be opened; POST /chat/create-room retries it.
func (h *ProjectHandler) Accept(c *fiber.Ctx) error {
	uid, req, err := parseLifecycle(c)
	if err != nil {
		return err
	}
	if req.Status == "" {
		req.Status = models.ProjectInProgress
	}

	ctx := c.UserContext()
	p, err := h.Projects.SetStatus(ctx, uid, req.ProjectID, req.Status, req.SelectedFreelancerID)
	if err != nil {
		return fail(c, err)
	}

	data := fiber.Map{"project": p}
	if p.Status == models.ProjectInProgress {
		room, _, err := h.Chats.CreateRoom(ctx, uid, p.ID)
		if err != nil {
			slog.Error("chat room not opened for accepted project", "projectId", p.ID, "err", err)
		} else {
			data["chat"] = room
		}
	}
	h.notify(ctx, p)
	return ok(c, fiber.StatusOK, "project status updated", data)
}

func (h *ProjectHandler) Confirm(c *fiber.Ctx) error {
	uid, req, err := parseLifecycle(c)
	if err != nil {
		return err
	}
	p, err := h.Projects.Confirm(c.UserContext(), req.ProjectID, uid)
	if err != nil {
		return fail(c, err)
	}
	h.notify(c.UserContext(), p)
	return ok(c, fiber.StatusOK, "project confirmed", p)
}

func (h *ProjectHandler) UndoAccept(c *fiber.Ctx) error {
	uid, req, err := parseLifecycle(c)
	if err != nil {
		return err
	}
	before, err := h.Projects.Get(c.UserContext(), req.ProjectID)
	if err != nil {
		return fail(c, err)
	}
	p, err := h.Projects.UndoAccept(c.UserContext(), uid, req.ProjectID)
	if err != nil {
		return fail(c, err)
	}
	var dropped []uuid.UUID
	if before.SelectedFreelancer != nil {
		dropped = append(dropped, *before.SelectedFreelancer)
	}
	h.notify(c.UserContext(), p, dropped...)
	return ok(c, fiber.StatusOK, "acceptance undone", p)
}

func (h *ProjectHandler) Withdraw(c *fiber.Ctx) error {
	uid, req, err := parseLifecycle(c)
	if err != nil {
		return err
	}
	p, err := h.Projects.Withdraw(c.UserContext(), req.ProjectID, uid)
	if err != nil {
		return fail(c, err)
	}
	h.notify(c.UserContext(), p, uid)
	return ok(c, fiber.StatusOK, "withdrawn from project", p)
}

func (h *ProjectHandler) Delete(c *fiber.Ctx) error {
	uid, req, err := parseLifecycle(c)
	if err != nil {
		return err
	}
	if err := h.Projects.Delete(c.UserContext(), uid, req.ProjectID); err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "project deleted", nil)
}

type statusSyncReq struct {
	ChatID uuid.UUID `json:"chatId"`
}

// StatusSync completes the project once both parties closed its chat.
func (h *ProjectHandler) StatusSync(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	var req statusSyncReq
	if err := c.BodyParser(&req); err != nil || req.ChatID == uuid.Nil {
		return badRequest(c, "chatId is required")
	}
	p, err := h.Chats.ProjectStatusSync(c.UserContext(), req.ChatID, uid)
	if err != nil {
		return fail(c, err)
	}
	h.notify(c.UserContext(), p)
	return ok(c, fiber.StatusOK, "project completed", p)
}

type disputeReq struct {
	ProjectID uuid.UUID `json:"projectId"`
	Reason    string    `json:"reason"`
}

func (h *ProjectHandler) OpenDispute(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	var req disputeReq
	if err := c.BodyParser(&req); err != nil || req.ProjectID == uuid.Nil {
		return badRequest(c, "projectId is required")
	}
	d, err := h.Projects.OpenDispute(c.UserContext(), req.ProjectID, uid, req.Reason)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusCreated, "dispute opened", d)
}

func (h *ProjectHandler) ResolveDispute(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "disputeId")
	if err != nil {
		return fail(c, err)
	}
	var req project.ResolveInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	d, err := h.Projects.ResolveDispute(c.UserContext(), uid, id, req)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "dispute "+string(d.Status), d)
}

func (h *ProjectHandler) CreateReview(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "projectId")
	if err != nil {
		return fail(c, err)
	}
	var req project.ReviewInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	r, err := h.Projects.CreateReview(c.UserContext(), id, uid, req)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusCreated, "review created", r)
}

func (h *ProjectHandler) ListReviews(c *fiber.Ctx) error {
	id, err := paramUUID(c, "userId")
	if err != nil {
		return fail(c, err)
	}
	out, err := h.Projects.ListReviews(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	data := fiber.Map{"reviews": out, "count": len(out)}
	if len(out) > 0 {
		sum := 0
		for _, r := range out {
			sum += r.Rating
		}
		data["average"] = math.Round(float64(sum)/float64(len(out))*100) / 100
	}
	return ok(c, fiber.StatusOK, "", data)
}
