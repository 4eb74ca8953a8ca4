package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Windi-Fikriyansyah/freelance_hub/internal/services/profile"
)

type ProfileHandler struct {
	Profiles *profile.Service
}

func NewProfileHandler(profiles *profile.Service) *ProfileHandler {
	return &ProfileHandler{Profiles: profiles}
}

func (h *ProfileHandler) Routes(r fiber.Router, authMiddleware fiber.Handler) {
	g := r.Group("/profiles")
	g.Get("/me", authMiddleware, h.Me)
	g.Put("/me", authMiddleware, h.Update)
	g.Post("/me/photo", authMiddleware, h.UploadPhoto)
	g.Get("/:userId", h.Get)

	r.Get("/testimonials", h.ListTestimonials)
	r.Post("/testimonials", authMiddleware, h.CreateTestimonial)
}

func (h *ProfileHandler) Me(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	p, err := h.Profiles.Get(c.UserContext(), uid)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "", p)
}

func (h *ProfileHandler) Get(c *fiber.Ctx) error {
	id, err := paramUUID(c, "userId")
	if err != nil {
		return fail(c, err)
	}
	p, err := h.Profiles.Get(c.UserContext(), id)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "", p)
}

func (h *ProfileHandler) Update(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	var req profile.Input
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	p, err := h.Profiles.Upsert(c.UserContext(), uid, req)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "profile saved", p)
}

func (h *ProfileHandler) UploadPhoto(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	file, err := c.FormFile("photo")
	if err != nil {
		return badRequest(c, "photo is required (multipart field: photo)")
	}

	p, err := h.Profiles.SavePhoto(c.UserContext(), uid, file.Filename, file.Size, func(dst string) error {
		return c.SaveFile(file, dst)
	})
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "photo uploaded", fiber.Map{"photo_url": p.PhotoURL})
}

func (h *ProfileHandler) ListTestimonials(c *fiber.Ctx) error {
	out, err := h.Profiles.ListTestimonials(c.UserContext(), c.QueryInt("limit", 20))
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusOK, "", out)
}

func (h *ProfileHandler) CreateTestimonial(c *fiber.Ctx) error {
	uid, err := getAuth(c)
	if err != nil {
		return err
	}
	var req profile.TestimonialInput
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	t, err := h.Profiles.CreateTestimonial(c.UserContext(), uid, req)
	if err != nil {
		return fail(c, err)
	}
	return ok(c, fiber.StatusCreated, "testimonial created", t)
}
