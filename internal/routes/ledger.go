package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/lumapay/lumapay/internal/events"
)

// RegisterLedgerRoutes wires the ledger command and query endpoints.
func RegisterLedgerRoutes(r fiber.Router, h *events.Handler) {
	r.Post("/entities", h.CreateEntity)
	r.Post("/transfers", h.Transfer)
	r.Put("/accounts/status", h.ChangeAccountStatus)
	r.Put("/postings/:postingID", h.ModifyPosting)
	r.Get("/balances/historical", h.HistoricalBalances)
}
