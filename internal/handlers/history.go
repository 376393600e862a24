package handlers

import (
	"time"

	"tourneypay/internal/models"
	"tourneypay/internal/services/history"
	"tourneypay/internal/utils"

	"github.com/gofiber/fiber/v2"
)

type HistoryHandler struct {
	reader history.Reader
	money  money
}

func NewHistoryHandler(reader history.Reader, decimals int32) *HistoryHandler {
	return &HistoryHandler{reader: reader, money: money{decimals: decimals}}
}

// GetTransactions lists the caller's transactions, newest first.
// Query: page, limit, type, status, from, to (RFC3339 or YYYY-MM-DD).
func (h *HistoryHandler) GetTransactions(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	p := utils.GetPagination(c, 1, history.DefaultPageSize)
	filter := history.HistoryFilter{
		UserID:   claims.UserID,
		Type:     c.Query("type"),
		Status:   c.Query("status"),
		Page:     p.Page,
		PageSize: p.Limit,
	}
	if filter.Type != "" && !models.ValidType(filter.Type) {
		return utils.BadRequest(c, "unknown transaction type")
	}
	if filter.From, err = parseTime(c.Query("from")); err != nil {
		return utils.BadRequest(c, "invalid from date")
	}
	if filter.To, err = parseTime(c.Query("to")); err != nil {
		return utils.BadRequest(c, "invalid to date")
	}

	page, err := h.reader.GetTransactionHistory(c.UserContext(), filter)
	if err != nil {
		return writeError(c, err)
	}
	return utils.Success(c, utils.NewPaginatedResponse(h.money.transactions(page.Items), page.Pagination))
}

// GetByReference lets a client that timed out find out what happened.
func (h *HistoryHandler) GetByReference(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	txs, err := h.reader.FindByReference(c.UserContext(), claims.UserID, c.Params("reference"))
	if err != nil {
		return writeError(c, err)
	}
	if len(txs) == 0 {
		return utils.NotFound(c, "no transaction with this reference")
	}
	return utils.Success(c, fiber.Map{"transactions": h.money.transactions(txs)})
}

func (h *HistoryHandler) GetStats(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	stats, err := h.reader.GetWalletStats(c.UserContext(), claims.UserID)
	if err != nil {
		return writeError(c, err)
	}

	months := make([]fiber.Map, len(stats.MonthlyBreakdown))
	for i, m := range stats.MonthlyBreakdown {
		months[i] = fiber.Map{
			"month":   m.Month,
			"income":  h.money.format(m.Income),
			"expense": h.money.format(m.Expense),
			"count":   m.Count,
		}
	}
	return utils.Success(c, fiber.Map{
		"total_transactions": stats.TotalTransactions,
		"total_income":       h.money.format(stats.TotalIncome),
		"total_expense":      h.money.format(stats.TotalExpense),
		"current_balance":    h.money.format(stats.CurrentBalance),
		"monthly_breakdown":  months,
	})
}

func parseTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}
