package account

import (
	"errors"
	"net/http"

	"github.com/asaskevich/govalidator"
	"github.com/gofiber/fiber/v2"

	"github.com/fibonsai/exchange-simulator/internal/wallet"
)

// Handler exposes account HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs an account handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type addRequest struct {
	Owner string `json:"owner" valid:"required,printableascii,stringlength(1|128)"`
}

// Add registers an account and returns its default wallet.
func (h *Handler) Add(c *fiber.Ctx) error {
	var req addRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if _, err := govalidator.ValidateStruct(req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	owner, w, err := h.service.AddAccount(c.UserContext(), req.Owner)
	if err != nil {
		if errors.Is(err, ErrAccountExists) {
			return fiber.NewError(http.StatusConflict, err.Error())
		}
		return wallet.HTTPError(err)
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"account": owner,
		"wallet":  w,
	})
}
