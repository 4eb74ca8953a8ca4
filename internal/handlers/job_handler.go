package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/freelance_hub/internal/services/job"
)

type JobHandler struct {
	Jobs *job.Service
}

func NewJobHandler(jobs *job.Service) *JobHandler {
	return &JobHandler{Jobs: jobs}
}

func (h *JobHandler) Routes(r fiber.Router, authMiddleware fiber.Handler) {
	g := r.Group("/jobs")
	g.Get("/", h.List)
	g.Post("/", authMiddleware, h.Create)
	g.Get("/user", authMiddleware, h.ListMine)
	g.Patch("/user/:jobId", authMiddleware, h.Patch)
	g.Delete("/user/:jobId", authMiddleware, h.Delete)
}

func (h *JobHandler) Create(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	var req job.CreateInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	j, err := h.Jobs.Create(c.UserContext(), uid, req)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusCreated, "job created", j)
}

func (h *JobHandler) List(c *fiber.Ctx) error {
	out, err := h.Jobs.List(c.UserContext())
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "", out)
}

func (h *JobHandler) ListMine(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	out, err := h.Jobs.ListByOwner(c.UserContext(), uid)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "", out)
}

type patchJobReq struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func (h *JobHandler) Patch(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "jobId")
	if err != nil {
		return fail(c, err)
	}
	var req patchJobReq
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	j, err := h.Jobs.PatchField(c.UserContext(), uid, id, req.Field, req.Value)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, req.Field+" updated", j)
}

func (h *JobHandler) Delete(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	id, err := paramUUID(c, "jobId")
	if err != nil {
		return fail(c, err)
	}
	if err := h.Jobs.Delete(c.UserContext(), uid, id); err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "job deleted", nil)
}
