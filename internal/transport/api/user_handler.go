package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/fsdevblog/moviestore/internal/domain"
	"github.com/fsdevblog/moviestore/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type UserHandler struct {
	userService UserServicer
}

func NewUserHandler(userService UserServicer) *UserHandler {
	return &UserHandler{
		userService: userService,
	}
}

type UserRegisterParams struct {
	Username    string `binding:"required,min=1,max_bytes=64" json:"login"`
	Password    string `binding:"required,min=6,max=255"      json:"password"`
	Nationality string `binding:"omitempty,max_bytes=64"      json:"nationality"`
}

type UserResponse struct {
	ID          uuid.UUID       `json:"id"`
	Username    string          `json:"login"`
	Nationality string          `json:"nationality,omitempty"`
	Discount    decimal.Decimal `json:"discount"`
	Balance     decimal.Decimal `json:"balance"`
}

func newUserResponse(user *domain.User) UserResponse {
	return UserResponse{
		ID:          user.ID,
		Username:    user.Name,
		Nationality: user.Nationality,
		Discount:    user.Discount,
		Balance:     user.Balance,
	}
}

// Register POST RouteGroup + RegisterRoute. Регистрирует пользователя и аутентифицирует его.
func (h *UserHandler) Register(c *gin.Context) {
	var params UserRegisterParams
	if bindErr := c.ShouldBindJSON(&params); bindErr != nil {
		abortWithBindError(c, bindErr)
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	user, jwtToken, createErr := h.userService.Register(ctx, service.RegisterUserArgs{
		Username:    params.Username,
		Password:    params.Password,
		Nationality: params.Nationality,
	})
	if createErr != nil {
		if errors.Is(createErr, domain.ErrDuplicateKey) {
			_ = c.AbortWithError(http.StatusConflict, errors.New("user with this login already exists")).
				SetType(gin.ErrorTypePublic)
			return
		}
		abortWithServiceError(c, createErr)
		return
	}

	c.Header("Authorization", "Bearer "+jwtToken)
	c.JSON(http.StatusOK, gin.H{"user": newUserResponse(user)})
}

type UserLoginParams struct {
	Username string `binding:"required,min=1,max_bytes=64" json:"login"`
	Password string `binding:"required,min=6,max=255"      json:"password"`
}

// Login POST RouteGroup + LoginRoute. Аутентификация по паре логин/пароль.
func (h *UserHandler) Login(c *gin.Context) {
	var params UserLoginParams
	if bindErr := c.ShouldBindJSON(&params); bindErr != nil {
		_ = c.AbortWithError(http.StatusBadRequest, bindErr).
			SetType(gin.ErrorTypeBind)
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	user, token, err := h.userService.Login(ctx, service.LoginUserArgs{
		Username: params.Username,
		Password: params.Password,
	})
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) || errors.Is(err, domain.ErrPasswordMissMatch) {
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		abortWithServiceError(c, err)
		return
	}
	c.Header("Authorization", "Bearer "+token)

	c.JSON(http.StatusOK, gin.H{"user": newUserResponse(user)})
}

type BalanceResponse struct {
	Balance decimal.Decimal `json:"balance"`
}

// Balance GET RouteGroup + BalanceRoute.
func (h *UserHandler) Balance(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	user, err := h.userService.Get(ctx, getUserIDFromContext(c))
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, BalanceResponse{Balance: user.Balance})
}

type CreditParams struct {
	Amount decimal.Decimal `json:"amount"`
}

// Credit POST RouteGroup + CreditRoute. Пополняет баланс текущего юзера.
func (h *UserHandler) Credit(c *gin.Context) {
	var params CreditParams
	if bindErr := c.ShouldBindJSON(&params); bindErr != nil {
		abortWithBindError(c, bindErr)
		return
	}

	ctx, cancel := context.WithTimeout(c, DefaultServiceTimeout)
	defer cancel()

	balance, err := h.userService.Credit(ctx, getUserIDFromContext(c), params.Amount)
	if err != nil {
		abortWithServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, BalanceResponse{Balance: balance})
}
