package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/freelance_hub/internal/models"
	"github.com/Windi-Fikriyansyah/freelance_hub/internal/services/chat"
	"github.com/Windi-Fikriyansyah/freelance_hub/internal/services/project"
)

type DashboardHandler struct {
	Projects *project.Service
	Chats    *chat.Service
}

func NewDashboardHandler(projects *project.Service, chats *chat.Service) *DashboardHandler {
	return &DashboardHandler{Projects: projects, Chats: chats}
}

func (h *DashboardHandler) Routes(r fiber.Router, authMiddleware fiber.Handler) {
	r.Get("/dashboard/stats", authMiddleware, h.GetDashboardStats)
}

// GetDashboardStats summarizes the session user's projects for the role in
// the token.
func (h *DashboardHandler) GetDashboardStats(c *fiber.Ctx) error {
	userID, err := getAuth(c)
	if err != nil {
		return err
	}
	ctx := c.UserContext()

	rooms, err := h.Chats.ListForUser(ctx, userID)
	if err != nil {
		return fail(c, err)
	}
	openChats := 0
	for _, r := range rooms {
		if r.Status == models.ChatActive {
			openChats++
		}
	}

	role, _ := c.Locals("role").(string)
	if role == string(models.RoleFreelancer) {
		applied, err := h.Projects.ListApplied(ctx, userID)
		if err != nil {
			return fail(c, err)
		}
		assigned, err := h.Projects.ListAssigned(ctx, userID)
		if err != nil {
			return fail(c, err)
		}
		counts := countByStatus(assigned)

		var earnings int64
		for _, p := range assigned {
			if p.Status == models.ProjectCompleted {
				earnings += p.Budget
			}
		}

		return ok(c, fiber.StatusOK, "", fiber.Map{
			"applied":         len(applied),
			"active_projects": counts[models.ProjectInProgress],
			"disputed":        counts[models.ProjectDispute],
			"completed":       counts[models.ProjectCompleted],
			"total_earnings":  earnings,
			"open_chats":      openChats,
		})
	}

	posted, err := h.Projects.ListForClient(ctx, userID)
	if err != nil {
		return fail(c, err)
	}
	counts := countByStatus(posted)
	return ok(c, fiber.StatusOK, "", fiber.Map{
		"posted":          len(posted),
		"open":            counts[models.ProjectOpen],
		"active_projects": counts[models.ProjectInProgress],
		"disputed":        counts[models.ProjectDispute],
		"completed":       counts[models.ProjectCompleted],
		"open_chats":      openChats,
	})
}

func countByStatus(in []models.Project) map[models.ProjectStatus]int {
	out := make(map[models.ProjectStatus]int, len(in))
	for _, p := range in {
		out[p.Status]++
	}
	return out
}
