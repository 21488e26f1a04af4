package events

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lumapay/lumapay/internal/ledger"
)

// Handler exposes the ledger command and query surface over HTTP. Each
// command endpoint builds a domain event and feeds it through the gateway.
type Handler struct {
	gateway *Gateway
}

// NewHandler constructs a handler over the gateway.
func NewHandler(gateway *Gateway) *Handler {
	return &Handler{gateway: gateway}
}

type createEntityRequest struct {
	EntityID string `json:"entity_id"`
}

// CreateEntity materializes a new entity; the id is generated when omitted.
func (h *Handler) CreateEntity(c *fiber.Ctx) error {
	var req createEntityRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}
	if req.EntityID == "" {
		req.EntityID = uuid.NewString()
	}

	if err := h.gateway.Handle(c.UserContext(), EntityCreated{EntityID: req.EntityID}); err != nil {
		return mapError(err)
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{"entity_id": req.EntityID})
}

type transferRequest struct {
	EntityID            string          `json:"entity_id"`
	SourceWalletID      string          `json:"source_wallet_id"`
	DestinationWalletID string          `json:"destination_wallet_id"`
	Amount              decimal.Decimal `json:"amount"`
}

// Transfer moves amount between the entity's wallets.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	var req transferRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.EntityID == "" {
		return fiber.NewError(http.StatusBadRequest, "entity_id is required")
	}
	if req.Amount.Sign() <= 0 {
		return fiber.NewError(http.StatusBadRequest, "amount must be positive")
	}

	err := h.gateway.Handle(c.UserContext(), TransferRequested{
		EntityID:            req.EntityID,
		SourceWalletID:      req.SourceWalletID,
		DestinationWalletID: req.DestinationWalletID,
		Amount:              req.Amount,
	})
	if err != nil {
		return mapError(err)
	}

	return c.SendStatus(http.StatusCreated)
}

type accountStatusRequest struct {
	EntityID  string `json:"entity_id"`
	AccountID string `json:"account_id"`
	NewState  string `json:"new_state"`
}

// ChangeAccountStatus overwrites an account's lifecycle state.
func (h *Handler) ChangeAccountStatus(c *fiber.Ctx) error {
	var req accountStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.AccountID == "" {
		req.AccountID = DefaultAccountID
	}
	state, ok := ledger.ParseAccountState(req.NewState)
	if !ok {
		return fiber.NewError(http.StatusBadRequest, "unknown account state")
	}

	err := h.gateway.Handle(c.UserContext(), AccountStatusChanged{
		EntityID:  req.EntityID,
		AccountID: req.AccountID,
		NewState:  state,
	})
	if err != nil {
		return mapError(err)
	}

	return c.SendStatus(http.StatusNoContent)
}

type modifyPostingRequest struct {
	EntityID            string          `json:"entity_id"`
	SourceWalletID      string          `json:"source_wallet_id"`
	DestinationWalletID string          `json:"destination_wallet_id"`
	NewAmount           decimal.Decimal `json:"new_amount"`
	NewState            string          `json:"new_state"`
}

// ModifyPosting amends a recorded posting pair.
func (h *Handler) ModifyPosting(c *fiber.Ctx) error {
	var req modifyPostingRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	state, ok := ledger.ParsePostingState(req.NewState)
	if !ok {
		return fiber.NewError(http.StatusBadRequest, "unknown posting state")
	}

	err := h.gateway.Handle(c.UserContext(), PostingModified{
		EntityID:            req.EntityID,
		SourceWalletID:      req.SourceWalletID,
		DestinationWalletID: req.DestinationWalletID,
		PostingID:           c.Params("postingID"),
		NewAmount:           req.NewAmount,
		NewState:            state,
	})
	if err != nil {
		return mapError(err)
	}

	return c.SendStatus(http.StatusNoContent)
}

// HistoricalBalances returns every wallet's balance at the queried instant
// (RFC 3339 `at` parameter, defaulting to now).
func (h *Handler) HistoricalBalances(c *fiber.Ctx) error {
	at := time.Now().UTC()
	if raw := c.Query("at"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return fiber.NewError(http.StatusBadRequest, "at must be RFC 3339")
		}
		at = parsed
	}

	balances := h.gateway.BalancesAt(at)
	out := make([]fiber.Map, 0, len(balances))
	for _, b := range balances {
		entry := fiber.Map{
			"entity_id": b.EntityID,
			"wallet_id": b.WalletID,
			"at":        at.Format(time.RFC3339Nano),
		}
		if b.Known {
			entry["balance"] = b.Balance
		} else {
			entry["balance"] = nil
		}
		out = append(out, entry)
	}

	return c.JSON(out)
}

func mapError(err error) error {
	switch {
	case errors.Is(err, ledger.ErrEntityNotFound),
		errors.Is(err, ledger.ErrAccountNotFound),
		errors.Is(err, ledger.ErrWalletNotFound),
		errors.Is(err, ledger.ErrPostingNotFound):
		return fiber.NewError(http.StatusNotFound, err.Error())
	case errors.Is(err, ledger.ErrInsufficientBalance),
		errors.Is(err, ledger.ErrAccountNotOpen),
		errors.Is(err, ledger.ErrIllegalPostingState):
		return fiber.NewError(http.StatusConflict, err.Error())
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}
