package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"gallery/internal/auth"
	"gallery/internal/errors"
	"gallery/internal/model"
	"gallery/internal/query"
	"gallery/internal/sanitize"
	"gallery/internal/service"
)

// mePopulate lists the relations loaded for the signed-in user.
var mePopulate = []string{
	"minted_artworks",
	"owned_artworks",
	"placed_orders",
	"fulfilled_orders",
	"stats",
	"profile_picture",
	"memoirs",
	"interviews",
	"links",
}

// artistFields is the projection returned by the artist listing.
var artistFields = []string{"id", "profile_picture", "slug", "username"}

// UserHandler bundles HTTP handlers.
type UserHandler struct {
	svc    service.UserService
	logger *slog.Logger

	admin actions
	api   actions
}

// NewUserHandler creates a handler layer.
func NewUserHandler(svc service.UserService, logger *slog.Logger) *UserHandler {
	h := &UserHandler{svc: svc, logger: logger}
	h.admin = h.adminActions()
	h.api = h.apiActions()
	return h
}

// ArtistsResponse is the body of the artist listing.
type ArtistsResponse struct {
	Artists []map[string]any `json:"artists"`
	Count   int64            `json:"count"`
}

// UpdateMeRequest is the subset of the profile a user may change on themselves.
type UpdateMeRequest struct {
	Email          *string      `json:"email" validate:"omitempty,email"`
	ProfilePicture *string      `json:"profile_picture" validate:"omitempty,max=512"`
	Bio            *string      `json:"bio"`
	Links          []model.Link `json:"links" validate:"dive"`
}

// Find godoc
// @Summary List users
// @Description Lists users. With _q the users are searched instead of filtered.
// @Tags users
// @Produce json
// @Param _q query string false "Search term"
// @Param _limit query int false "Page size (-1 for all)"
// @Param _start query int false "Offset"
// @Param _sort query string false "Sort, e.g. username:asc"
// @Success 200 {array} map[string]interface{}
// @Failure 500 {object} errors.ErrorResponse
// @Router /users [get]
func (h *UserHandler) Find(c echo.Context) error {
	params := query.Parse(c.QueryParams())
	ctx := c.Request().Context()

	var (
		users []model.User
		err   error
	)
	if params.HasSearch {
		users, err = h.svc.Search(ctx, params)
	} else {
		users, err = h.svc.FetchAll(ctx, params)
	}
	if err != nil {
		return fail(c, h.logger, err)
	}
	return sanitizedUsers(c, users)
}

// FindOne godoc
// @Summary Get user by id
// @Tags users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} map[string]interface{}
// @Success 204 "User does not exist"
// @Failure 500 {object} errors.ErrorResponse
// @Router /users/{id} [get]
func (h *UserHandler) FindOne(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.NoContent(http.StatusNoContent)
	}
	user, err := h.svc.Fetch(c.Request().Context(), id)
	if errors.Is(err, errors.ErrUserNotFound) {
		return c.NoContent(http.StatusNoContent)
	}
	if err != nil {
		return fail(c, h.logger, err)
	}
	return sanitizedUser(c, http.StatusOK, user)
}

// FindOneByEthereumAddress godoc
// @Summary Get the sign-in nonce of a wallet
// @Description Returns only the nonce attributes of the user owning the address.
// @Tags users
// @Produce json
// @Param ethereumAddress path string true "Wallet address"
// @Success 200 {object} map[string]interface{}
// @Success 204 "No user owns the address"
// @Failure 500 {object} errors.ErrorResponse
// @Router /users/address/{ethereumAddress} [get]
func (h *UserHandler) FindOneByEthereumAddress(c echo.Context) error {
	user, err := h.svc.FetchByEthereumAddress(c.Request().Context(), c.Param("ethereumAddress"))
	if errors.Is(err, errors.ErrUserNotFound) {
		return c.NoContent(http.StatusNoContent)
	}
	if err != nil {
		return fail(c, h.logger, err)
	}

	body, err := sanitize.Entity(user, model.UserSchema)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, sanitize.Filter(body, func(key string) bool {
		return strings.Contains(key, "nonce")
	}))
}

// Count godoc
// @Summary Count users
// @Tags users
// @Produce json
// @Param _q query string false "Search term"
// @Success 200 {integer} int
// @Failure 500 {object} errors.ErrorResponse
// @Router /users/count [get]
func (h *UserHandler) Count(c echo.Context) error {
	params := query.Parse(c.QueryParams())
	ctx := c.Request().Context()

	var (
		n   int64
		err error
	)
	if params.HasSearch {
		n, err = h.svc.CountSearch(ctx, params)
	} else {
		n, err = h.svc.Count(ctx, params)
	}
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, n)
}

// Destroy godoc
// @Summary Delete a user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} map[string]interface{}
// @Success 204 "User does not exist"
// @Failure 403 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /users/{id} [delete]
func (h *UserHandler) Destroy(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.NoContent(http.StatusNoContent)
	}
	removed, err := h.svc.Remove(c.Request().Context(), id)
	if errors.Is(err, errors.ErrUserNotFound) {
		return c.NoContent(http.StatusNoContent)
	}
	if err != nil {
		return fail(c, h.logger, err)
	}
	return sanitizedUser(c, http.StatusOK, removed)
}

// DestroyAll godoc
// @Summary Delete several users
// @Description Every query value except source is taken as a user id. At most 100 users are deleted.
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} service.RemoveResult
// @Failure 403 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /users [delete]
func (h *UserHandler) DestroyAll(c echo.Context) error {
	ids := query.Values(c.QueryParams(), "source")
	if len(ids) > service.RemoveAllLimit {
		ids = ids[:service.RemoveAllLimit]
	}
	result, err := h.svc.RemoveAll(c.Request().Context(), ids)
	if err != nil {
		return fail(c, h.logger, err)
	}
	return c.JSON(http.StatusOK, result)
}

// Me godoc
// @Summary Get the signed-in user
// @Tags users
// @Produce json
// @Security BearerAuth
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} errors.BoomResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /users/me [get]
func (h *UserHandler) Me(c echo.Context) error {
	principal, ok := auth.CurrentUser(c)
	if !ok {
		return fail(c, h.logger, errors.ErrAuthenticationMissing)
	}
	user, err := h.svc.Fetch(c.Request().Context(), principal.ID, mePopulate...)
	if errors.Is(err, errors.ErrUserNotFound) {
		return c.NoContent(http.StatusNoContent)
	}
	if err != nil {
		return fail(c, h.logger, err)
	}
	return sanitizedUser(c, http.StatusOK, user)
}

// UpdateMe godoc
// @Summary Update the signed-in user
// @Description Only email, profile_picture, bio and links can be changed. Omitted links clear the list.
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateMeRequest true "Profile changes"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} errors.BoomResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /users/me [put]
func (h *UserHandler) UpdateMe(c echo.Context) error {
	principal, ok := auth.CurrentUser(c)
	if !ok {
		return fail(c, h.logger, errors.ErrAuthenticationMissing)
	}

	var req UpdateMeRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(err)
	}
	if err := c.Validate(&req); err != nil {
		return badRequest(err)
	}

	links := req.Links
	if links == nil {
		links = []model.Link{}
	}
	user, err := h.svc.Edit(c.Request().Context(), principal.ID, service.UserChanges{
		Email:          req.Email,
		ProfilePicture: req.ProfilePicture,
		Bio:            req.Bio,
		Links:          &links,
	})
	if err != nil {
		return fail(c, h.logger, err)
	}
	return sanitizedUser(c, http.StatusOK, user)
}

// GetArtists godoc
// @Summary List artists
// @Description Honors the listing filters and pagination; the type filter is always artist.
// @Tags users
// @Produce json
// @Param _limit query int false "Page size"
// @Param _start query int false "Offset"
// @Success 200 {object} ArtistsResponse
// @Failure 400 {object} errors.BoomResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /users/artists [get]
func (h *UserHandler) GetArtists(c echo.Context) error {
	params := query.Parse(c.QueryParams()).WithFilter("type", model.UserTypeArtist)
	ctx := c.Request().Context()

	count, err := h.svc.Count(ctx, params)
	if err != nil {
		return fail(c, h.logger, err)
	}
	artists, err := h.svc.Find(ctx, params, artistFields...)
	if err != nil {
		return fail(c, h.logger, err)
	}
	if len(artists) == 0 {
		return fail(c, h.logger, errors.ErrNoArtists)
	}

	body, err := sanitize.Entities(artists, model.UserSchema)
	if err != nil {
		return err
	}
	for i, artist := range body {
		body[i] = sanitize.Filter(artist, isArtistField)
	}
	return c.JSON(http.StatusOK, ArtistsResponse{Artists: body, Count: count})
}

func isArtistField(key string) bool {
	for _, f := range artistFields {
		if f == key {
			return true
		}
	}
	return false
}

// Create godoc
// @Summary Create user
// @Description Admins may set role, type and account flags; everyone else registers an authenticated user.
// @Tags users
// @Accept json
// @Produce json
// @Param request body CreateUserRequest true "User payload"
// @Success 201 {object} map[string]interface{}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.BoomResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /users [post]
func (h *UserHandler) Create(c echo.Context) error {
	action := h.resolve(c).Create
	if action == nil {
		return fail(c, h.logger, errors.ErrNotImplemented)
	}
	return action(c)
}

// Update godoc
// @Summary Update user
// @Description Admins may change any attribute; users may change their own profile but not their role.
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body UpdateUserRequest true "Changes"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /users/{id} [put]
func (h *UserHandler) Update(c echo.Context) error {
	action := h.resolve(c).Update
	if action == nil {
		return fail(c, h.logger, errors.ErrNotImplemented)
	}
	return action(c)
}
