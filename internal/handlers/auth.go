package handlers

import (
	"errors"
	"net/http"
	"time"

	"groupfinder/internal/auth"
	"groupfinder/internal/middleware"
	"groupfinder/internal/services"
	"groupfinder/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	captchaRegisterKey = "captcha_answer"
	captchaSubmitKey   = "submit_captcha_answer"
)

type AuthHandler struct {
	users          *services.UserService
	captchaService *services.CaptchaService
	jwtSecret      []byte
	tokenTTL       time.Duration
	log            *zap.Logger
}

func NewAuthHandler(users *services.UserService, captcha *services.CaptchaService, jwtSecret []byte, tokenTTL time.Duration, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		users:          users,
		captchaService: captcha,
		jwtSecret:      jwtSecret,
		tokenTTL:       tokenTTL,
		log:            log,
	}
}

// newCaptcha stores a fresh answer under key and returns the question.
func (h *AuthHandler) newCaptcha(c *gin.Context, key string) string {
	question, answer := h.captchaService.GenerateMathProblem()
	session := sessions.Default(c)
	session.Set(key, answer)
	if err := session.Save(); err != nil {
		h.log.Warn("failed to save captcha", zap.Error(err))
	}
	return question
}

// checkCaptcha consumes the answer stored under key.
func checkCaptcha(c *gin.Context, key, input string) bool {
	session := sessions.Default(c)
	expected, ok := session.Get(key).(int)
	session.Delete(key)
	_ = session.Save()
	return ok && input != "" && utils.StringToInt(input) == expected
}

func (h *AuthHandler) ShowRegister(c *gin.Context) {
	Render(c, http.StatusOK, "auth/register.html", gin.H{"Captcha": h.newCaptcha(c, captchaRegisterKey)})
}

func (h *AuthHandler) Register(c *gin.Context) {
	email := c.PostForm("email")
	password := c.PostForm("password")

	fail := func(code int, message string) {
		Render(c, code, "auth/register.html", gin.H{
			"Error":   message,
			"Email":   email,
			"Captcha": h.newCaptcha(c, captchaRegisterKey),
		})
	}

	if !checkCaptcha(c, captchaRegisterKey, c.PostForm("captcha")) {
		fail(http.StatusBadRequest, "Wrong captcha answer")
		return
	}

	user, err := h.users.Register(c.Request.Context(), email, password)
	switch {
	case errors.Is(err, services.ErrDuplicateUser):
		fail(http.StatusConflict, "That email is already registered")
		return
	case errors.Is(err, services.ErrInvalidInput):
		fail(http.StatusBadRequest, "Enter a valid email and a password of at least 6 characters")
		return
	case err != nil:
		h.log.Error("failed to register user", zap.Error(err))
		fail(http.StatusInternalServerError, "Something went wrong, please try again")
		return
	}

	h.log.Info("user registered", zap.Uint("user_id", user.ID))
	Render(c, http.StatusOK, "auth/login.html", gin.H{"Success": "Account created. Please log in."})
}

func (h *AuthHandler) ShowLogin(c *gin.Context) {
	Render(c, http.StatusOK, "auth/login.html", nil)
}

func (h *AuthHandler) Login(c *gin.Context) {
	email := c.PostForm("email")

	user, err := h.users.Authenticate(c.Request.Context(), email, c.PostForm("password"))
	switch {
	case errors.Is(err, services.ErrInvalidCredentials):
		Render(c, http.StatusUnauthorized, "auth/login.html", gin.H{"Error": "Wrong email or password", "Email": email})
		return
	case errors.Is(err, services.ErrUserRestricted):
		Render(c, http.StatusForbidden, "auth/login.html", gin.H{"Error": "This account has been banned"})
		return
	case err != nil:
		h.log.Error("failed to authenticate", zap.Error(err))
		Render(c, http.StatusInternalServerError, "auth/login.html", gin.H{"Error": "Something went wrong, please try again"})
		return
	}

	session := sessions.Default(c)
	session.Set(middleware.SessionUserKey, user.ID)
	if err := session.Save(); err != nil {
		h.log.Error("failed to save session", zap.Error(err))
	}

	c.Redirect(http.StatusFound, "/")
}

func (h *AuthHandler) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	_ = session.Save()
	c.Redirect(http.StatusFound, "/")
}

// RefreshCaptcha handles GET /api/captcha?type=register|submit
func (h *AuthHandler) RefreshCaptcha(c *gin.Context) {
	key := captchaRegisterKey
	if c.Query("type") == "submit" {
		key = captchaSubmitKey
	}
	c.JSON(http.StatusOK, gin.H{"captcha": h.newCaptcha(c, key)})
}

type tokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CreateToken handles POST /api/tokens and issues a bearer token.
func (h *AuthHandler) CreateToken(c *gin.Context) {
	var req tokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.log, services.ErrInvalidInput)
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg(err), "code": "unauthorized"})
		return
	}
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	token, err := auth.NewToken(h.jwtSecret, user.ID, h.tokenTTL)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"token":      token,
		"expires_in": int(h.tokenTTL.Seconds()),
		"user":       user.Public(),
	})
}
