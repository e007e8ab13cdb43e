package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"gallery/internal/auth"
	"gallery/internal/errors"
	"gallery/internal/model"
	"gallery/internal/service"
)

// actions is a capability set: the role-scoped user actions a caller may
// reach. A nil action is answered with 404.
type actions struct {
	Create echo.HandlerFunc
	Update echo.HandlerFunc
}

// resolve picks the capability set for the caller.
func (h *UserHandler) resolve(c echo.Context) actions {
	if auth.IsAuthenticatedAdmin(c) {
		return h.admin
	}
	return h.api
}

// CreateUserRequest is the body of POST /users.
type CreateUserRequest struct {
	Username        string `json:"username" validate:"required,max=255"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required,min=6"`
	EthereumAddress string `json:"ethereumAddress" validate:"omitempty,eth_addr"`
	Type            string `json:"type" validate:"omitempty,oneof=artist collector"`
	ProfilePicture  string `json:"profile_picture" validate:"omitempty,max=512"`
	Bio             string `json:"bio"`

	// Admin only.
	Role      string `json:"role" validate:"omitempty,oneof=authenticated admin"`
	Confirmed bool   `json:"confirmed"`
	Blocked   bool   `json:"blocked"`
}

// UpdateUserRequest is the body of PUT /users/:id. Omitted fields are kept.
type UpdateUserRequest struct {
	Username        *string       `json:"username" validate:"omitempty,min=1,max=255"`
	Email           *string       `json:"email" validate:"omitempty,email"`
	Password        *string       `json:"password" validate:"omitempty,min=6"`
	EthereumAddress *string       `json:"ethereumAddress" validate:"omitempty,eth_addr"`
	Type            *string       `json:"type" validate:"omitempty,oneof=artist collector"`
	ProfilePicture  *string       `json:"profile_picture" validate:"omitempty,max=512"`
	Bio             *string       `json:"bio"`
	Links           *[]model.Link `json:"links"`

	// Admin only.
	Role      *string `json:"role" validate:"omitempty,oneof=authenticated admin"`
	Confirmed *bool   `json:"confirmed"`
	Blocked   *bool   `json:"blocked"`
}

func (r UpdateUserRequest) changes() service.UserChanges {
	return service.UserChanges{
		Username:        r.Username,
		Email:           r.Email,
		Password:        r.Password,
		EthereumAddress: r.EthereumAddress,
		Type:            r.Type,
		ProfilePicture:  r.ProfilePicture,
		Bio:             r.Bio,
		Links:           r.Links,
	}
}

func (h *UserHandler) adminActions() actions {
	return actions{
		Create: func(c echo.Context) error {
			req, err := bindCreate(c)
			if err != nil {
				return err
			}
			user := req.user()
			user.Role = req.Role
			user.Confirmed = req.Confirmed
			user.Blocked = req.Blocked
			return h.create(c, user)
		},
		Update: func(c echo.Context) error {
			id, req, err := bindUpdate(c)
			if err != nil {
				return err
			}
			changes := req.changes()
			changes.Role = req.Role
			changes.Confirmed = req.Confirmed
			changes.Blocked = req.Blocked
			return h.update(c, id, changes)
		},
	}
}

func (h *UserHandler) apiActions() actions {
	return actions{
		Create: func(c echo.Context) error {
			req, err := bindCreate(c)
			if err != nil {
				return err
			}
			user := req.user()
			user.Role = model.RoleAuthenticated
			return h.create(c, user)
		},
		Update: func(c echo.Context) error {
			principal, ok := auth.CurrentUser(c)
			if !ok {
				return fail(c, h.logger, errors.ErrAuthenticationMissing)
			}
			id, req, err := bindUpdate(c)
			if err != nil {
				return err
			}
			if id != principal.ID {
				return fail(c, h.logger, errors.ErrForbidden)
			}
			return h.update(c, id, req.changes())
		},
	}
}

func (h *UserHandler) create(c echo.Context, user *model.User) error {
	created, err := h.svc.Add(c.Request().Context(), user)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return sanitizedUser(c, http.StatusCreated, created)
}

func (h *UserHandler) update(c echo.Context, id uuid.UUID, changes service.UserChanges) error {
	updated, err := h.svc.Edit(c.Request().Context(), id, changes)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return sanitizedUser(c, http.StatusOK, updated)
}

func (r CreateUserRequest) user() *model.User {
	return &model.User{
		Username:        r.Username,
		Email:           r.Email,
		Password:        r.Password,
		EthereumAddress: r.EthereumAddress,
		Type:            r.Type,
		ProfilePicture:  r.ProfilePicture,
		Bio:             r.Bio,
	}
}

func bindCreate(c echo.Context) (*CreateUserRequest, error) {
	var req CreateUserRequest
	if err := c.Bind(&req); err != nil {
		return nil, badRequest(err)
	}
	if err := c.Validate(&req); err != nil {
		return nil, badRequest(err)
	}
	return &req, nil
}

func bindUpdate(c echo.Context) (uuid.UUID, *UpdateUserRequest, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, nil, echo.NewHTTPError(http.StatusNotFound, errors.ErrorResponse{
			Error: errors.ErrUserNotFound.Error(),
			Code:  "USER_NOT_FOUND",
		})
	}
	var req UpdateUserRequest
	if err := c.Bind(&req); err != nil {
		return uuid.Nil, nil, badRequest(err)
	}
	if err := c.Validate(&req); err != nil {
		return uuid.Nil, nil, badRequest(err)
	}
	return id, &req, nil
}
