package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/user/cinechat/internal/utils"
)

// Claims 设备 JWT 声明
// 移动端没有账号体系，只给每台设备签发匿名身份
type Claims struct {
	DeviceID string `json:"device_id"`
	jwt.RegisteredClaims
}

// GenerateToken 为设备签发 Token
func GenerateToken(deviceID, jwtSecret string, expiry time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		DeviceID: deviceID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}

// RequireAuth 必须携带设备 Token 的中间件
func RequireAuth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := extractClaims(c, jwtSecret)
		if err != nil {
			utils.Unauthorized(c, "缺少有效的设备令牌")
			c.Abort()
			return
		}

		c.Set("device_id", claims.DeviceID)
		renewIfNeeded(c, claims, jwtSecret)
		c.Next()
	}
}

// OptionalAuth 可选设备 Token 中间件（不强制）
func OptionalAuth(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := extractClaims(c, jwtSecret)
		if err == nil {
			c.Set("device_id", claims.DeviceID)
			renewIfNeeded(c, claims, jwtSecret)
		}
		c.Next()
	}
}

// renewIfNeeded 滑动续期：有效期消耗过半时签发新 Token，经响应头回传
func renewIfNeeded(c *gin.Context, claims *Claims, jwtSecret string) {
	if !shouldRefresh(claims) {
		return
	}
	lifetime := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	if newToken, err := GenerateToken(claims.DeviceID, jwtSecret, lifetime); err == nil {
		c.Header("X-Renewed-Token", newToken)
	}
}

// shouldRefresh Token 已过半衰期
func shouldRefresh(claims *Claims) bool {
	if claims.IssuedAt == nil || claims.ExpiresAt == nil {
		return false
	}
	halfway := claims.IssuedAt.Add(claims.ExpiresAt.Sub(claims.IssuedAt.Time) / 2)
	return time.Now().After(halfway)
}

// extractClaims 从 Authorization Header 中提取 JWT Claims
func extractClaims(c *gin.Context, jwtSecret string) (*Claims, error) {
	var tokenString string

	authHeader := c.GetHeader("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		tokenString = strings.TrimPrefix(authHeader, "Bearer ")
	}

	if tokenString == "" {
		return nil, jwt.ErrTokenMalformed
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(jwtSecret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}

	return claims, nil
}

// GetDeviceID 从上下文获取设备 ID（未认证返回空串）
func GetDeviceID(c *gin.Context) string {
	if deviceID, exists := c.Get("device_id"); exists {
		return deviceID.(string)
	}
	return ""
}
