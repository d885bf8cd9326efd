package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tripshare/internal/middleware"
	"github.com/iliyamo/tripshare/internal/service"
)

// AuthHandler serves registration, sessions and the caller's own profile.
type AuthHandler struct {
	auth      *service.AuthService
	maxUpload int64
}

func NewAuthHandler(auth *service.AuthService, maxUpload int64) *AuthHandler {
	return &AuthHandler{auth: auth, maxUpload: maxUpload}
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type passwordReq struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type codeReq struct {
	Code string `json:"code"`
}

// Register accepts JSON, or multipart when a profile photo or license
// document is attached.
func (h *AuthHandler) Register(c echo.Context) error {
	var in service.RegisterInput
	if isMultipart(c) {
		in = service.RegisterInput{
			Name:     c.FormValue("name"),
			Email:    c.FormValue("email"),
			Password: c.FormValue("password"),
			Phone:    c.FormValue("phone"),
			Role:     c.FormValue("role"),
			Bio:      c.FormValue("bio"),
		}
		photo, closePhoto, err := formFile(c, "profile_photo", h.maxUpload)
		if err != nil {
			return uploadErr(c, "profile_photo", err)
		}
		defer closePhoto()
		license, closeLicense, err := formFile(c, "license_document", h.maxUpload)
		if err != nil {
			return uploadErr(c, "license_document", err)
		}
		defer closeLicense()
		in.Photo, in.License = photo, license
	} else if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid body")
	}

	ctx, cancel := timeout(c)
	defer cancel()
	s, err := h.auth.Register(ctx, in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, s)
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return unprocessable(c, "email and password are required")
	}

	ctx, cancel := timeout(c)
	defer cancel()
	s, err := h.auth.Login(ctx, req.Email, req.Password)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

// Refresh rotates the refresh token.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := timeout(c)
	defer cancel()
	s, err := h.auth.Refresh(ctx, strings.TrimSpace(req.RefreshToken))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, s)
}

// Logout revokes the posted refresh token; with only a bearer token it
// revokes every session of the caller.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if c.Request().ContentLength != 0 {
		if err := c.Bind(&req); err != nil {
			return badRequest(c, "invalid body")
		}
	}
	uid, _ := middleware.UserID(c)

	ctx, cancel := timeout(c)
	defer cancel()
	if err := h.auth.Logout(ctx, strings.TrimSpace(req.RefreshToken), uid); err != nil {
		return fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) Me(c echo.Context) error {
	ctx, cancel := timeout(c)
	defer cancel()
	u, err := h.auth.Me(ctx, identity(c).UserID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *AuthHandler) UpdateMe(c echo.Context) error {
	var in service.ProfileInput
	if err := c.Bind(&in); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := timeout(c)
	defer cancel()
	u, err := h.auth.UpdateProfile(ctx, identity(c).UserID, in)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

// UpdatePhoto expects a multipart "profile_photo" field.
func (h *AuthHandler) UpdatePhoto(c echo.Context) error {
	photo, closePhoto, err := formFile(c, "profile_photo", h.maxUpload)
	if err != nil {
		return uploadErr(c, "profile_photo", err)
	}
	defer closePhoto()
	if photo == nil {
		return unprocessable(c, "profile_photo is required")
	}

	ctx, cancel := timeout(c)
	defer cancel()
	u, err := h.auth.UpdatePhoto(ctx, identity(c).UserID, *photo)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

func (h *AuthHandler) ChangePassword(c echo.Context) error {
	var req passwordReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := timeout(c)
	defer cancel()
	if err := h.auth.ChangePassword(ctx, identity(c).UserID, req.CurrentPassword, req.NewPassword); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "password updated"})
}

func (h *AuthHandler) SendPhoneCode(c echo.Context) error {
	ctx, cancel := timeout(c)
	defer cancel()
	ttl, err := h.auth.SendPhoneCode(ctx, identity(c).UserID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "verification code sent", "expires_in": int(ttl.Seconds())})
}

func (h *AuthHandler) VerifyPhone(c echo.Context) error {
	var req codeReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := timeout(c)
	defer cancel()
	if err := h.auth.VerifyPhone(ctx, identity(c).UserID, req.Code); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "phone number verified"})
}
