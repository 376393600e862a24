package handlers

import (
	"errors"

	"tourneypay/internal/repositories"
	"tourneypay/internal/services/wallet"
	"tourneypay/internal/utils"
	"tourneypay/internal/utils/validation"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type amountRequest struct {
	Amount        string                 `json:"amount" validate:"required,numeric"`
	ReferenceCode string                 `json:"reference_code" validate:"max=64,excludes=/"`
	Note          string                 `json:"note" validate:"max=255"`
	Metadata      map[string]interface{} `json:"metadata"`
}

type transferRequest struct {
	amountRequest
	ToUserID   uint   `json:"to_user_id" validate:"required_without=ToUsername"`
	ToUsername string `json:"to_username" validate:"max=64"`
}

type donateRequest struct {
	amountRequest
	TargetType string `json:"target_type" validate:"required,oneof=team tournament user"`
	TargetID   uint   `json:"target_id" validate:"required"`
}

type WalletHandler struct {
	wallets   wallet.Service
	directory wallet.Directory
	money     money
	log       *zap.Logger
}

func NewWalletHandler(wallets wallet.Service, directory wallet.Directory, decimals int32, log *zap.Logger) *WalletHandler {
	return &WalletHandler{
		wallets:   wallets,
		directory: directory,
		money:     money{decimals: decimals},
		log:       log.Named("wallet_handler"),
	}
}

func (h *WalletHandler) GetWallet(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	info, err := h.wallets.GetWalletInfo(c.UserContext(), claims.UserID)
	if err != nil {
		return writeError(c, err)
	}
	return utils.Success(c, fiber.Map{"wallet": h.money.wallet(info)})
}

func (h *WalletHandler) GetBalance(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	balance, err := h.wallets.GetBalance(c.UserContext(), claims.UserID)
	if err != nil {
		return writeError(c, err)
	}
	return utils.Success(c, fiber.Map{"balance": h.money.format(balance)})
}

func (h *WalletHandler) Deposit(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input amountRequest
	amount, problem := h.parse(c, &input, &input)
	if problem != nil {
		return utils.Respond(c, fiber.StatusBadRequest, problem)
	}

	res, err := h.wallets.Deposit(c.UserContext(), claims.UserID, amount, input.options())
	return h.respond(c, res, err)
}

func (h *WalletHandler) Withdraw(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input amountRequest
	amount, problem := h.parse(c, &input, &input)
	if problem != nil {
		return utils.Respond(c, fiber.StatusBadRequest, problem)
	}

	res, err := h.wallets.Withdraw(c.UserContext(), claims.UserID, amount, input.options())
	return h.respond(c, res, err)
}

func (h *WalletHandler) Transfer(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input transferRequest
	amount, problem := h.parse(c, &input, &input.amountRequest)
	if problem != nil {
		return utils.Respond(c, fiber.StatusBadRequest, problem)
	}

	to := input.ToUserID
	if to == 0 {
		to, err = h.directory.ResolveUserID(c.UserContext(), input.ToUsername)
		if errors.Is(err, repositories.ErrUserNotFound) {
			return utils.UnprocessableEntity(c, "INVALID_COUNTERPARTY", "unknown receiver", nil)
		}
		if err != nil {
			h.log.Error("receiver lookup failed", zap.String("username", input.ToUsername), zap.Error(err))
			return utils.ServiceUnavailable(c, "user directory unavailable")
		}
	}

	res, err := h.wallets.Transfer(c.UserContext(), claims.UserID, to, amount, input.options())
	return h.respond(c, res, err)
}

func (h *WalletHandler) Donate(c *fiber.Ctx) error {
	claims, err := utils.GetUserClaims(c)
	if err != nil {
		return utils.Unauthorized(c, "invalid claims")
	}

	var input donateRequest
	amount, problem := h.parse(c, &input, &input.amountRequest)
	if problem != nil {
		return utils.Respond(c, fiber.StatusBadRequest, problem)
	}

	res, err := h.wallets.Donate(c.UserContext(), claims.UserID, amount, input.TargetType, input.TargetID, input.options())
	return h.respond(c, res, err)
}

// parse decodes and validates the body into dst and converts the embedded
// amount to minor units. A non-nil map is the 400 response body.
func (h *WalletHandler) parse(c *fiber.Ctx, dst interface{}, base *amountRequest) (int64, fiber.Map) {
	if err := c.BodyParser(dst); err != nil {
		return 0, fiber.Map{"error": "Invalid request format"}
	}
	if err := validation.Struct(dst); err != nil {
		return 0, validationProblem(err)
	}
	amount, err := utils.ParseMoney(base.Amount, h.money.decimals)
	if err != nil {
		return 0, fiber.Map{"error": err.Error()}
	}
	return amount, nil
}

func (r amountRequest) options() wallet.Options {
	return wallet.Options{
		ReferenceCode: r.ReferenceCode,
		Note:          r.Note,
		Metadata:      r.Metadata,
	}
}

func (h *WalletHandler) respond(c *fiber.Ctx, res wallet.TransactionResult, err error) error {
	view := h.money.result(res)
	switch {
	case err != nil:
		status := kindStatus(res.ErrorKind)
		view.Message = "ledger unavailable, re-query by reference code"
		return utils.Respond(c, status, view)
	case !res.Success:
		return utils.Respond(c, kindStatus(res.ErrorKind), view)
	case res.Replayed:
		return utils.Success(c, view)
	default:
		return utils.Respond(c, fiber.StatusCreated, view)
	}
}
