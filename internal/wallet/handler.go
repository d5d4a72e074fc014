package wallet

import (
	"errors"
	"net/http"
	"strings"

	"github.com/asaskevich/govalidator"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/fibonsai/exchange-simulator/internal/asset"
)

// AssetResolver maps request symbols to assets.
type AssetResolver interface {
	Resolve(symbol string) (asset.Asset, error)
}

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
	assets  AssetResolver
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service, assets AssetResolver) *Handler {
	return &Handler{service: service, assets: assets}
}

type createRequest struct {
	Owner   string `json:"owner" valid:"required,printableascii,stringlength(1|128)"`
	Asset   string `json:"asset" valid:"required,alphanum,stringlength(2|12)"`
	Address string `json:"address" valid:"printableascii,stringlength(1|128)"`
}

type stateRequest struct {
	State string `json:"state" valid:"required"`
}

type fundsRequest struct {
	Asset  string              `json:"asset" valid:"required,alphanum,stringlength(2|12)"`
	Amount decimal.NullDecimal `json:"amount"`
}

type constraintRequest struct {
	Assets []string `json:"assets"`
}

// Create provisions a wallet, at the given address or a generated one.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createRequest
	if err := parse(c, &req); err != nil {
		return err
	}
	a, err := h.resolve(req.Asset)
	if err != nil {
		return err
	}
	w, err := h.service.CreateWalletWithAddress(c.UserContext(), req.Owner, a, req.Address)
	if err != nil {
		return HTTPError(err)
	}
	return c.Status(http.StatusCreated).JSON(w)
}

// List returns every wallet of the owner.
func (h *Handler) List(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"owner":   c.Params("owner"),
		"wallets": h.service.ListWallets(c.Params("owner")),
	})
}

// ByAddress returns a single wallet.
func (h *Handler) ByAddress(c *fiber.Ctx) error {
	w, err := h.service.GetWalletByAddress(c.UserContext(), c.Params("owner"), c.Params("address"))
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(w)
}

// ByAsset returns the owner's only wallet for the asset.
func (h *Handler) ByAsset(c *fiber.Ctx) error {
	a, err := h.resolve(c.Params("symbol"))
	if err != nil {
		return err
	}
	w, err := h.service.GetWallet(c.UserContext(), c.Params("owner"), a)
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(w)
}

// SetState moves a wallet to the requested state.
func (h *Handler) SetState(c *fiber.Ctx) error {
	var req stateRequest
	if err := parse(c, &req); err != nil {
		return err
	}
	state, err := ParseState(req.State)
	if err != nil {
		return HTTPError(err)
	}
	key := Key{Owner: c.Params("owner"), Address: c.Params("address")}
	w, err := h.service.SetState(c.UserContext(), key, state)
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(w)
}

// Deposit credits the wallet.
func (h *Handler) Deposit(c *fiber.Ctx) error {
	return h.funds(c, OpDeposit)
}

// Withdraw debits the wallet.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	return h.funds(c, OpWithdraw)
}

func (h *Handler) funds(c *fiber.Ctx, kind OpKind) error {
	var req fundsRequest
	if err := parse(c, &req); err != nil {
		return err
	}
	if !req.Amount.Valid {
		return fiber.NewError(http.StatusBadRequest, "amount is required")
	}
	a, err := h.resolve(req.Asset)
	if err != nil {
		return err
	}

	op := FundsOp{Kind: kind, Asset: a, Amount: req.Amount.Decimal}
	w, err := h.service.Transaction(c.UserContext(), c.Params("owner"), ByAddress(c.Params("address")), op)
	if err != nil {
		return HTTPError(err)
	}
	return c.JSON(w)
}

// SingleAddress replaces the set of assets limited to one address per owner.
func (h *Handler) SingleAddress(c *fiber.Ctx) error {
	var req constraintRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	symbols := make([]string, 0, len(req.Assets))
	for _, s := range req.Assets {
		if !govalidator.IsAlphanumeric(strings.TrimSpace(s)) {
			return fiber.NewError(http.StatusBadRequest, "invalid asset symbol "+s)
		}
		a, err := h.resolve(s)
		if err != nil {
			return err
		}
		symbols = append(symbols, a.Symbol)
	}
	h.service.SingleAddressAssets(symbols...)
	return c.JSON(fiber.Map{"assets": symbols})
}

// Reset clears the ledger and restarts the event stream.
func (h *Handler) Reset(c *fiber.Ctx) error {
	h.service.Reset()
	return c.SendStatus(http.StatusNoContent)
}

func (h *Handler) resolve(symbol string) (asset.Asset, error) {
	a, err := h.assets.Resolve(symbol)
	if err != nil {
		if errors.Is(err, asset.ErrUnknownAsset) {
			return asset.Asset{}, fiber.NewError(http.StatusBadRequest, err.Error())
		}
		return asset.Asset{}, fiber.NewError(http.StatusServiceUnavailable, err.Error())
	}
	return a, nil
}

func parse(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if _, err := govalidator.ValidateStruct(req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// HTTPError maps wallet errors to HTTP status codes.
func HTTPError(err error) error {
	switch {
	case errors.Is(err, ErrWalletNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrDuplicateKey), errors.Is(err, ErrMultipleAddressesNotAllowed), errors.Is(err, ErrAmbiguousWallet):
		return fiber.NewError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrTransactionNotAllowed), errors.Is(err, ErrInsufficientFunds):
		return fiber.NewError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrAssetMismatch), errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidArgument):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
