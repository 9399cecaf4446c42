package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/calyxcontainers/scar-service/internal/config"
	"github.com/calyxcontainers/scar-service/internal/middleware"
	"github.com/calyxcontainers/scar-service/internal/model"
	"github.com/calyxcontainers/scar-service/internal/repository"
)

// UserAdminHandler covers account administration: reviewing pending
// supplier registrations, provisioning admin accounts and resetting
// passwords. Routes are mounted behind the admin role check.
type UserAdminHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Tokens *repository.TokenRepo
}

func NewUserAdminHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo) *UserAdminHandler {
	return &UserAdminHandler{Cfg: cfg, Users: u, Tokens: t}
}

type createUserReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	VendorID string `json:"vendor_id"`
}

type setPasswordReq struct {
	NewPassword string `json:"new_password"`
}

func (h *UserAdminHandler) List(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not list users"})
	}
	out := make([]userPart, 0, len(users))
	for _, u := range users {
		out = append(out, toUserPart(u))
	}
	return c.JSON(http.StatusOK, out)
}

// PendingCount backs the approvals badge on the admin dashboard.
func (h *UserAdminHandler) PendingCount(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	n, err := h.Users.PendingCount(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not count pending users"})
	}
	return c.JSON(http.StatusOK, echo.Map{"pending": n})
}

// Create provisions an account directly. Admin accounts need no vendor
// and are approved immediately; supplier accounts must name a vendor.
func (h *UserAdminHandler) Create(c echo.Context) error {
	var req createUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" || req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email, password and name required"})
	}
	role := model.Role(req.Role)
	if role != model.RoleAdmin && role != model.RoleSupplier {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "role must be admin or supplier"})
	}
	if role == model.RoleSupplier && req.VendorID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "vendor_id required for supplier accounts"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Email, req.Password, req.Name, role, req.VendorID, h.Cfg.BcryptCost)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already exists"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	// Supplier accounts provisioned here skip the approval queue.
	if role == model.RoleSupplier {
		if err := h.Users.SetStatus(ctx, uid, model.UserApproved); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
		}
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	return c.JSON(http.StatusCreated, toUserPart(u))
}

// Approve activates a pending registration.
func (h *UserAdminHandler) Approve(c echo.Context) error {
	return h.setStatus(c, model.UserApproved)
}

// Reject declines a registration and revokes any refresh tokens the
// account may hold.
func (h *UserAdminHandler) Reject(c echo.Context) error {
	return h.setStatus(c, model.UserRejected)
}

func (h *UserAdminHandler) setStatus(c echo.Context, status model.UserStatus) error {
	id := c.Param("id")
	if id == middleware.ActorFrom(c).UserID {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot change own account status"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.SetStatus(ctx, id, status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not update user"})
	}
	if status == model.UserRejected {
		if err := h.Tokens.RevokeAllForUser(ctx, id); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not revoke sessions"})
		}
	}
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}
	return c.JSON(http.StatusOK, toUserPart(u))
}

// SetPassword resets a user's password and ends their sessions.
func (h *UserAdminHandler) SetPassword(c echo.Context) error {
	var req setPasswordReq
	if err := c.Bind(&req); err != nil || req.NewPassword == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "new_password required"})
	}
	id := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.SetPassword(ctx, id, req.NewPassword, h.Cfg.BcryptCost); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not set password"})
	}
	if err := h.Tokens.RevokeAllForUser(ctx, id); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not revoke sessions"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}

// Delete removes an account. Self-deletion is refused.
func (h *UserAdminHandler) Delete(c echo.Context) error {
	id := c.Param("id")
	if id == middleware.ActorFrom(c).UserID {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot delete own account"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Tokens.RevokeAllForUser(ctx, id); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not revoke sessions"})
	}
	if err := h.Users.Delete(ctx, id); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not delete user"})
	}
	return c.NoContent(http.StatusNoContent)
}
