package handlers

import (
	"strconv"

	"tourneypay/internal/models"
	"tourneypay/internal/services/history"
	"tourneypay/internal/services/reconcile"
	"tourneypay/internal/services/wallet"
	"tourneypay/internal/utils"
	"tourneypay/internal/utils/validation"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type freezeRequest struct {
	Reason string `json:"reason" validate:"required,max=255"`
}

// AdminHandler serves operator endpoints. Routes are mounted behind
// AdminAuthMiddleware.
type AdminHandler struct {
	reader     history.Reader
	wallets    wallet.Service
	reconciler *reconcile.Reconciler
	money      money
	log        *zap.Logger
}

func NewAdminHandler(reader history.Reader, wallets wallet.Service, reconciler *reconcile.Reconciler, decimals int32, log *zap.Logger) *AdminHandler {
	return &AdminHandler{
		reader:     reader,
		wallets:    wallets,
		reconciler: reconciler,
		money:      money{decimals: decimals},
		log:        log.Named("admin_handler"),
	}
}

func (h *AdminHandler) DonationOverview(c *fiber.Ctx) error {
	o, err := h.reader.GetDonationOverview(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return utils.Success(c, fiber.Map{
		"total_donations":  o.TotalDonations,
		"total_donated":    h.money.format(o.TotalDonated),
		"total_fees":       h.money.format(o.TotalFees),
		"unique_donors":    o.UniqueDonors,
		"unique_receivers": o.UniqueReceivers,
	})
}

func (h *AdminHandler) TopReceivers(c *fiber.Ctx) error {
	ranks, err := h.reader.GetTopDonationReceivers(c.UserContext(), c.QueryInt("limit", history.DefaultTopLimit))
	if err != nil {
		return writeError(c, err)
	}
	return utils.Success(c, fiber.Map{"receivers": h.ranks(ranks)})
}

func (h *AdminHandler) TopDonators(c *fiber.Ctx) error {
	ranks, err := h.reader.GetTopDonators(c.UserContext(), c.QueryInt("limit", history.DefaultTopLimit))
	if err != nil {
		return writeError(c, err)
	}
	return utils.Success(c, fiber.Map{"donators": h.ranks(ranks)})
}

// TypeTotals sums completed transactions per type, for one user when
// user_id is given.
func (h *AdminHandler) TypeTotals(c *fiber.Ctx) error {
	userID := uint(c.QueryInt("user_id", 0))
	totals, err := h.reader.GetTypeTotals(c.UserContext(), userID)
	if err != nil {
		return writeError(c, err)
	}

	out := make([]fiber.Map, len(totals))
	for i, t := range totals {
		out[i] = fiber.Map{"type": t.Type, "count": t.Count, "sum": h.money.format(t.Sum)}
	}
	return utils.Success(c, fiber.Map{"totals": out})
}

func (h *AdminHandler) FreezeWallet(c *fiber.Ctx) error {
	userID, err := h.userParam(c)
	if err != nil {
		return utils.BadRequest(c, "invalid user id")
	}

	var input freezeRequest
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Invalid request format")
	}
	if err := validation.Struct(input); err != nil {
		return utils.Respond(c, fiber.StatusBadRequest, validationProblem(err))
	}

	info, err := h.wallets.FreezeWallet(c.UserContext(), userID, input.Reason)
	if err != nil {
		return writeError(c, err)
	}
	h.audit(c, "wallet frozen", userID)
	return utils.Success(c, fiber.Map{"wallet": h.money.wallet(info)})
}

func (h *AdminHandler) UnfreezeWallet(c *fiber.Ctx) error {
	userID, err := h.userParam(c)
	if err != nil {
		return utils.BadRequest(c, "invalid user id")
	}

	info, err := h.wallets.UnfreezeWallet(c.UserContext(), userID)
	if err != nil {
		return writeError(c, err)
	}
	h.audit(c, "wallet unfrozen", userID)
	return utils.Success(c, fiber.Map{"wallet": h.money.wallet(info)})
}

// Reconcile runs one reconciliation pass synchronously.
func (h *AdminHandler) Reconcile(c *fiber.Ctx) error {
	report, err := h.reconciler.Run(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return utils.Success(c, report)
}

func (h *AdminHandler) ranks(ranks []models.DonationRank) []fiber.Map {
	out := make([]fiber.Map, len(ranks))
	for i, r := range ranks {
		out[i] = fiber.Map{"rank": r.Rank, "user_id": r.UserID, "total": h.money.format(r.Total), "count": r.Count}
	}
	return out
}

func (h *AdminHandler) userParam(c *fiber.Ctx) (uint, error) {
	id, err := strconv.ParseUint(c.Params("userId"), 10, 32)
	if err != nil || id == 0 {
		return 0, fiber.ErrBadRequest
	}
	return uint(id), nil
}

func (h *AdminHandler) audit(c *fiber.Ctx, action string, userID uint) {
	var admin uint
	if claims, err := utils.GetUserClaims(c); err == nil {
		admin = claims.UserID
	}
	h.log.Info(action, zap.Uint("admin_id", admin), zap.Uint("user_id", userID))
}
