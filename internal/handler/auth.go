package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/jok6r1/src-diplom/internal/config"
	"github.com/jok6r1/src-diplom/internal/logger"
	"github.com/jok6r1/src-diplom/internal/repository"
	"github.com/jok6r1/src-diplom/internal/utils"
)

// AuthHandler bundles dependencies for account endpoints.
type AuthHandler struct {
	Cfg   config.Config
	Users *repository.UserRepo
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u}
}

// ----- DTOs -----

type registerReq struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginUser struct {
	ID    uint64 `json:"id"`
	Email string `json:"email"`
}

type loginResp struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	User         loginUser `json:"user"`
}

// Register creates an account and returns its id.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Cfg.DBTimeout)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.Username, req.Email, req.Password, h.Cfg.BcryptCost)
	if err != nil {
		if err == repository.ErrDuplicateAccount {
			return c.JSON(http.StatusConflict, echo.Map{"error": "username or email already exists"})
		}
		logger.Log.Errorw("registration failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to register user"})
	}

	return c.JSON(http.StatusCreated, echo.Map{"message": "User registered successfully", "userId": uid})
}

// Login verifies credentials, issues an access/refresh token pair, persists
// the refresh token on the account row (overwriting any prior session) and
// sets both tokens as httpOnly cookies alongside the JSON body.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Cfg.DBTimeout)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid credentials"})
		}
		logger.Log.Errorw("login query failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Login failed"})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid credentials"})
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTLMin)
	if err != nil {
		logger.Log.Errorw("issuing access token failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Login failed"})
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.JWTSecret, u.ID, h.Cfg.RefreshTTLDays)
	if err != nil {
		logger.Log.Errorw("issuing refresh token failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Login failed"})
	}
	if err := h.Users.StoreRefreshToken(ctx, u.ID, refresh.Token); err != nil {
		logger.Log.Errorw("saving refresh token failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Login failed"})
	}

	c.SetCookie(&http.Cookie{
		Name:     "accessToken",
		Value:    access.Token,
		Expires:  access.Exp,
		HttpOnly: true,
		Path:     "/",
	})
	c.SetCookie(&http.Cookie{
		Name:     "refreshToken",
		Value:    refresh.Token,
		Expires:  refresh.Exp,
		HttpOnly: true,
		Path:     "/",
	})

	return c.JSON(http.StatusOK, loginResp{
		AccessToken:  access.Token,
		RefreshToken: refresh.Token,
		User:         loginUser{ID: u.ID, Email: u.Email},
	})
}

// CheckUser reports whether an account with the given username OR email
// exists. The response never says which field collided.
func (h *AuthHandler) CheckUser(c echo.Context) error {
	username := c.QueryParam("username")
	email := c.QueryParam("email")

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Cfg.DBTimeout)
	defer cancel()

	exists, err := h.Users.Exists(ctx, username, email)
	if err != nil {
		logger.Log.Errorw("check-user failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Validation failed"})
	}
	msg := "Data available"
	if exists {
		msg = "Username or email taken"
	}
	return c.JSON(http.StatusOK, echo.Map{"exists": exists, "message": msg})
}

// GetUsers lists account summaries with optional active/role filters and
// limit/offset paging. An `active` value other than true/false is a 400.
func (h *AuthHandler) GetUsers(c echo.Context) error {
	var active *bool
	if v := c.QueryParam("active"); v != "" {
		if v != "true" && v != "false" {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid active parameter"})
		}
		b := v == "true"
		active = &b
	}
	role := c.QueryParam("role")
	limit := queryInt(c, "limit", 100)
	offset := queryInt(c, "offset", 0)

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.Cfg.DBTimeout)
	defer cancel()

	users, err := h.Users.List(ctx, active, role, limit, offset)
	if err != nil {
		logger.Log.Errorw("listing users failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to fetch users"})
	}
	return c.JSON(http.StatusOK, users)
}

// queryInt parses an integer query parameter, falling back to def when the
// parameter is absent or malformed.
func queryInt(c echo.Context, name string, def int) int {
	v := c.QueryParam(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}
