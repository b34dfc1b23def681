package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/fsdevblog/moviestore/internal/transport/api/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// getUserIDFromContext берет из контекста gin ID текущего юзера. ID устанавливается в
// middlewares.AuthRequired. В случае, если значения в контексте нет или ошибка утверждения типа -
// вернется uuid.Nil.
func getUserIDFromContext(c *gin.Context) uuid.UUID {
	value, exist := c.Get(middlewares.CurrentUserIDKey)
	if !exist {
		return uuid.Nil
	}
	userID, ok := value.(uuid.UUID)
	if !ok {
		return uuid.Nil
	}
	return userID
}

// paramID положительный числовой параметр пути name. При ошибке запрос прерывается с 400.
func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		_ = c.AbortWithError(http.StatusBadRequest, errors.New("invalid "+name)).
			SetType(gin.ErrorTypePublic)
		return 0, false
	}
	return id, true
}

// abortWithBindError ошибки валидации - 422 с подробностями, ошибки разбора тела - 400.
func abortWithBindError(c *gin.Context, bindErr error) {
	var valErrs validator.ValidationErrors
	if errors.As(bindErr, &valErrs) {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": valErrs.Error()})
		return
	}
	_ = c.AbortWithError(http.StatusBadRequest, bindErr).SetType(gin.ErrorTypeBind)
}

// abortWithServiceError прерывает запрос со статусом, соответствующим ошибке сервисного слоя. Клиенту уходит
// публичное сообщение, исходная ошибка остается в контексте для логов.
func abortWithServiceError(c *gin.Context, err error) {
	status, msg := middlewares.StatusFromError(err)
	if status == http.StatusInternalServerError {
		_ = c.AbortWithError(status, err).SetType(gin.ErrorTypePrivate)
		return
	}
	_ = c.AbortWithError(status, errors.New(msg)).SetType(gin.ErrorTypePublic)
	_ = c.Error(err).SetType(gin.ErrorTypePrivate)
}
