package handlers

import (
	"net/http"

	"textilserver/internal/logger"
	"textilserver/internal/middleware"
	"textilserver/internal/services"
	"textilserver/internal/utils"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type AuthHandler struct {
	accounts       *services.AccountService
	captchaService *services.CaptchaService
	log            zerolog.Logger
}

func NewAuthHandler(accounts *services.AccountService, captcha *services.CaptchaService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, captchaService: captcha, log: log}
}

// newCaptcha stores a fresh answer in the session and returns the question.
func (h *AuthHandler) newCaptcha(c *gin.Context) string {
	question, answer := h.captchaService.GenerateMathProblem()
	session := sessions.Default(c)
	session.Set(middleware.SessionCaptchaKey, answer)
	_ = session.Save()
	return question
}

func (h *AuthHandler) ShowRegister(c *gin.Context) {
	if middleware.CurrentUser(c) != nil {
		c.Redirect(http.StatusFound, "/profile")
		return
	}
	Render(c, http.StatusOK, "auth/register.html", gin.H{
		"Form":    services.RegisterInput{},
		"Captcha": h.newCaptcha(c),
	})
}

func (h *AuthHandler) Register(c *gin.Context) {
	var in services.RegisterInput
	if err := c.ShouldBind(&in); err != nil {
		Render(c, http.StatusBadRequest, "auth/register.html", gin.H{
			"Error":   "Some fields are too long",
			"Form":    in,
			"Captcha": h.newCaptcha(c),
		})
		return
	}

	session := sessions.Default(c)
	expected, ok := session.Get(middleware.SessionCaptchaKey).(int)
	session.Delete(middleware.SessionCaptchaKey)
	_ = session.Save()
	if !ok || utils.StringToInt(c.PostForm("captcha")) != expected {
		Render(c, http.StatusBadRequest, "auth/register.html", gin.H{
			"Error":   "Wrong answer to the check question",
			"Form":    in,
			"Captcha": h.newCaptcha(c),
		})
		return
	}

	user, err := h.accounts.Register(c.Request.Context(), in)
	if err != nil {
		code, msg := errorStatus(err)
		Render(c, code, "auth/register.html", gin.H{
			"Error":   msg,
			"Errors":  fieldErrors(err),
			"Form":    in,
			"Captcha": h.newCaptcha(c),
		})
		return
	}

	logger.FromContext(c.Request.Context(), h.log).Info().Uint("user_id", user.ID).Msg("signup completed")
	Render(c, http.StatusOK, "auth/login.html", gin.H{
		"Success": "Registration complete. You can sign in now.",
		"Email":   user.Email,
	})
}

func (h *AuthHandler) ShowLogin(c *gin.Context) {
	if u := middleware.CurrentUser(c); u != nil {
		c.Redirect(http.StatusFound, landingPage(u.Role.CanModerate()))
		return
	}
	Render(c, http.StatusOK, "auth/login.html", nil)
}

func (h *AuthHandler) Login(c *gin.Context) {
	email := c.PostForm("email")
	password := c.PostForm("password")
	if email == "" || password == "" {
		Render(c, http.StatusBadRequest, "auth/login.html", gin.H{"Error": "Please fill in all fields", "Email": email})
		return
	}

	user, err := h.accounts.Authenticate(c.Request.Context(), email, password)
	if err != nil {
		code, msg := errorStatus(err)
		Render(c, code, "auth/login.html", gin.H{"Error": msg, "Email": email})
		return
	}

	session := sessions.Default(c)
	session.Clear()
	if err := middleware.SetSessionUser(session, user); err != nil {
		logger.FromContext(c.Request.Context(), h.log).Error().Err(err).Msg("failed to save session")
		RenderError(c, http.StatusInternalServerError, "Could not sign you in, please try again")
		return
	}

	c.Redirect(http.StatusFound, landingPage(user.Role.CanModerate()))
}

func (h *AuthHandler) Logout(c *gin.Context) {
	middleware.ClearSession(sessions.Default(c))
	c.Redirect(http.StatusFound, "/")
}

func landingPage(moderator bool) string {
	if moderator {
		return "/admin"
	}
	return "/profile"
}
