package middlewares

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fsdevblog/moviestore/internal/domain"
)

type UserGetter interface {
	Get(ctx context.Context, userID uuid.UUID) (*domain.User, error)
}

// AdminRequired пропускает только администраторов. Ставится после AuthRequired: id юзера берется из
// контекста. Юзер, которого уже нет, получает 401, не администратор - 403.
func AdminRequired(users UserGetter) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, _ := c.Get(CurrentUserIDKey)
		id, ok := userID.(uuid.UUID)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		user, err := users.Get(c, id)
		switch {
		case errors.Is(err, domain.ErrRecordNotFound):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		case err != nil:
			status, msg := StatusFromError(err)
			c.AbortWithStatusJSON(status, gin.H{"error": msg})
			_ = c.Error(err).SetType(gin.ErrorTypePrivate)
			return
		case !user.Admin || !user.Active:
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": domain.ErrAdminRequired.Error()})
			return
		}
		c.Next()
	}
}
