package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/domain"
	"github.com/nandagokulaoldagehome1-dev/haven-manager-sub000/internal/repository"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
)

// HealthPath 不需要认证
const HealthPath = "/api/v1/health"

// Principal 当前请求的管理端用户
type Principal struct {
	UserID string
	Role   string
}

// IsSuperAdmin 是否超级管理员
func (p *Principal) IsSuperAdmin() bool {
	return p != nil && p.Role == domain.RoleSuperAdmin
}

type principalKey struct{}

// WithPrincipal 写入 context（测试与内部调用使用）
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext 读取当前用户
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}

// Authenticator Bearer JWT（HS256）+ user_roles 角色校验
// 只有 super_admin / admin 可以访问 API
type Authenticator struct {
	secret   []byte
	roles    repository.UserRolesRepository
	disabled bool
	logger   *zap.Logger
}

// NewAuthenticator disabled 为 true 时所有请求视为本地超级管理员
func NewAuthenticator(secret string, roles repository.UserRolesRepository, disabled bool, logger *zap.Logger) *Authenticator {
	return &Authenticator{
		secret:   []byte(secret),
		roles:    roles,
		disabled: disabled,
		logger:   logger,
	}
}

// Middleware 包装 handler；HealthPath 放行
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == HealthPath {
			next.ServeHTTP(w, r)
			return
		}
		if a.disabled {
			p := &Principal{UserID: "local", Role: domain.RoleSuperAdmin}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
			return
		}

		userID, err := a.parseToken(r.Header.Get("Authorization"))
		if err != nil {
			a.logger.Debug("Rejected request token", zap.String("path", r.URL.Path), zap.Error(err))
			writeJSON(w, http.StatusUnauthorized, failWithCode(ResultUnauthorized, "unauthorized"))
			return
		}

		role, err := a.roles.GetRole(r.Context(), userID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			a.logger.Error("Failed to load user role", zap.String("user_id", userID), zap.Error(err))
			writeJSON(w, http.StatusOK, Fail("internal error"))
			return
		}
		if role != domain.RoleSuperAdmin && role != domain.RoleAdmin {
			a.logger.Warn("Access denied",
				zap.String("user_id", userID),
				zap.String("role", role),
				zap.String("path", r.URL.Path),
			)
			writeJSON(w, http.StatusForbidden, failWithCode(ResultForbidden, "admin access required"))
			return
		}

		p := &Principal{UserID: userID, Role: role}
		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
	})
}

// parseToken 校验签名与有效期，返回 sub
func (a *Authenticator) parseToken(header string) (string, error) {
	if !strings.HasPrefix(header, "Bearer ") {
		return "", errors.New("missing bearer token")
	}
	tokenString := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if tokenString == "" {
		return "", errors.New("missing bearer token")
	}
	if len(a.secret) == 0 {
		return "", errors.New("jwt secret not configured")
	}

	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Subject == "" {
		return "", errors.New("invalid token claims")
	}
	return claims.Subject, nil
}

// requireSuperAdmin 只允许 super_admin
func requireSuperAdmin(w http.ResponseWriter, r *http.Request) bool {
	p, ok := PrincipalFromContext(r.Context())
	if !ok || !p.IsSuperAdmin() {
		writeJSON(w, http.StatusForbidden, failWithCode(ResultForbidden, "super_admin access required"))
		return false
	}
	return true
}
