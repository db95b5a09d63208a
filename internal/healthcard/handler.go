package healthcard

import (
	"errors"
	"mime/multipart"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(router fiber.Router) {
	cards := router.Group("/health-cards")
	cards.Post("/register", h.register)
	cards.Get("/details/:email", h.getByEmail)
	cards.Get("/all", h.list)
	cards.Put("/:id", h.update)
	cards.Delete("/:id", h.delete)
}

func (h *Handler) register(c *fiber.Ctx) error {
	in := new(Input)
	if len(c.Body()) > 0 {
		if err := c.BodyParser(in); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
		}
	}

	result, err := h.service.Register(c.UserContext(), *in, photoFile(c))
	if err != nil {
		return writeError(c, err)
	}

	body := fiber.Map{
		"message":        "Health card registered successfully",
		"healthCard":     result.HealthCard,
		"userCreated":    result.UserCreated,
		"mailConfigured": result.MailConfigured,
	}
	if result.DebugPassword != "" {
		body["debugPassword"] = result.DebugPassword
	}
	return c.Status(fiber.StatusCreated).JSON(body)
}

func (h *Handler) getByEmail(c *fiber.Ctx) error {
	email, err := url.PathUnescape(c.Params("email"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
	}

	card, err := h.service.GetByEmail(c.UserContext(), email)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"healthCard": card})
}

func (h *Handler) list(c *fiber.Ctx) error {
	cards, err := h.service.List(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"healthCards": cards})
}

func (h *Handler) update(c *fiber.Ctx) error {
	in := new(Input)
	if len(c.Body()) > 0 {
		if err := c.BodyParser(in); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": err.Error()})
		}
	}

	card, err := h.service.Update(c.UserContext(), c.Params("id"), *in, photoFile(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Health card updated successfully", "healthCard": card})
}

func (h *Handler) delete(c *fiber.Ctx) error {
	if err := h.service.Delete(c.UserContext(), c.Params("id")); err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Health card deleted successfully"})
}

// photoFile returns the optional "photo" part of a multipart request.
func photoFile(c *fiber.Ctx) *multipart.FileHeader {
	if !strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm) {
		return nil
	}
	fh, err := c.FormFile("photo")
	if err != nil {
		return nil
	}
	return fh
}

func writeError(c *fiber.Ctx, err error) error {
	var (
		validation *ValidationError
		duplicate  *DuplicateKeyError
	)
	switch {
	case errors.As(err, &validation):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": validation.Message, "fields": validation.Fields})
	case errors.As(err, &duplicate):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": duplicate.Error(), "field": duplicate.Field})
	case errors.Is(err, ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Health card not found"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Server error", "error": err.Error()})
	}
}
