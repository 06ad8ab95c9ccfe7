package handlers

import (
	"errors"
	"net/http"

	"yatube/services"

	"github.com/gin-gonic/gin"
)

var userService = services.NewUserService()

type RegisterRequest struct {
	Username  string `json:"username" binding:"required"`
	Password  string `json:"password" binding:"required"`
	Firstname string `json:"first_name"`
	Lastname  string `json:"last_name"`
}

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func Register(c *gin.Context) {
	var registerRequest RegisterRequest
	if err := c.ShouldBindJSON(&registerRequest); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
		return
	}

	user, err := userService.Register(
		c.Request.Context(),
		registerRequest.Username,
		registerRequest.Firstname,
		registerRequest.Lastname,
		registerRequest.Password,
	)
	if errors.Is(err, services.ErrUserExists) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User already exists"})
		return
	}
	if errors.Is(err, services.ErrValidation) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user_id": user.ID, "username": user.Username})
}

func Login(c *gin.Context) {
	var loginRequest LoginRequest
	if err := c.ShouldBindJSON(&loginRequest); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	token, err := userService.Login(c.Request.Context(), loginRequest.Username, loginRequest.Password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	// Токен и в теле, и в cookie: страничные маршруты ходят с cookie
	c.SetCookie("auth_token", token, 0, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{
		"message":  "Login successful",
		"token":    token,
		"username": loginRequest.Username,
	})
}

func Logout(c *gin.Context) {
	userID := c.GetInt64("user_id")
	if err := userService.Logout(c.Request.Context(), userID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.SetCookie("auth_token", "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "Logout successful"})
}

// LoginPage - точка, куда уводятся неаутентифицированные запросы;
// next содержит исходный путь для возврата после входа
func LoginPage(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"detail": "Authentication required",
		"next":   c.Query("next"),
	})
}
