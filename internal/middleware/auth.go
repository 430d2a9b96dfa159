package middleware

import (
	"context"
	"strings"
	"study_companion_backend/internal/config"
	"study_companion_backend/internal/util"
	"study_companion_backend/pkg/logger"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func bearerToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return ""
}

// AuthMiddleware 校验 Bearer JWT，并把 claims 写入 "user"
func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		claims, err := util.ParseJWT(tokenString, cfg.JWT.Secret)
		if err != nil {
			logger.Log.Debug("Rejected token", zap.String("path", c.FullPath()), zap.Error(err))
			util.Unauthorized(c)
			c.Abort()
			return
		}

		c.Set("user", claims)
		c.Next()
	}
}

// LearnerID 当前登录学习者，未登录时返回 0
func LearnerID(c *gin.Context) uint {
	if claims := util.GetUserFromContext(c); claims != nil {
		return claims.UserID
	}
	return 0
}

type UserActivityRepo interface {
	TouchLastSeen(ctx context.Context, userID uint) error
}

// ActivityMiddleware 记录最近活跃时间，同一学习者每个间隔最多写一次
func ActivityMiddleware(repo UserActivityRepo, interval time.Duration) gin.HandlerFunc {
	var (
		mu   sync.Mutex
		last = make(map[uint]time.Time)
	)
	return func(c *gin.Context) {
		claims := util.GetUserFromContext(c)
		if claims != nil {
			now := time.Now()
			mu.Lock()
			due := now.Sub(last[claims.UserID]) >= interval
			if due {
				last[claims.UserID] = now
			}
			mu.Unlock()

			if due {
				// 异步更新，不阻塞主流程
				ctx := context.WithoutCancel(c.Request.Context())
				go func(userID uint) {
					if err := repo.TouchLastSeen(ctx, userID); err != nil {
						logger.Log.Warn("Failed to update last seen", zap.Uint("learnerID", userID), zap.Error(err))
					}
				}(claims.UserID)
			}
		}
		c.Next()
	}
}
