package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rolegate/internal/model"
	"github.com/iliyamo/rolegate/internal/service"
)

// AccountHandler serves the caller's own account.
type AccountHandler struct {
	Accounts *service.AccountService
}

func NewAccountHandler(a *service.AccountService) *AccountHandler {
	return &AccountHandler{Accounts: a}
}

type meResp struct {
	Account      model.Account `json:"account"`
	Profile      model.Profile `json:"profile"`
	Capabilities []string      `json:"capabilities"`
}

type profileReq struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Bio      string `json:"bio"`
}

func (h *AccountHandler) Me(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	acct, prof, err := h.Accounts.Me(ctx, p.AccountID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, meResp{Account: acct, Profile: prof, Capabilities: acct.Role.CapabilityNames()})
}

func (h *AccountHandler) UpdateProfile(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	var req profileReq
	if err := bind(c, &req); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	prof, err := h.Accounts.UpdateProfile(ctx, p.AccountID, service.ProfileInput{
		FullName: req.FullName,
		Phone:    req.Phone,
		Bio:      req.Bio,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, prof)
}

// Deactivate soft-deletes the caller's account.
func (h *AccountHandler) Deactivate(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Accounts.Deactivate(ctx, p.AccountID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
