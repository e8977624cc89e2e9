package handler

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"carecircle/internal/apperr"
	"carecircle/pkg/util"
)

// ClaimsKey gin context 中保存会话 claims 的 key
const ClaimsKey = "claims"

// CurrentClaims 由 AuthMiddleware 写入
func CurrentClaims(c *gin.Context) *util.Claims {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*util.Claims)
	return claims
}

// currentUser 返回当前用户 ID，失败时已写出 401
func currentUser(c *gin.Context) (uuid.UUID, bool) {
	claims := CurrentClaims(c)
	if claims == nil {
		apperr.Respond(c, apperr.Unauthorized("user not authenticated"))
		return uuid.Nil, false
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		apperr.Respond(c, apperr.Unauthorized("invalid token subject"))
		return uuid.Nil, false
	}
	return id, true
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		apperr.Respond(c, apperr.Validation("invalid "+name))
		return uuid.Nil, false
	}
	return id, true
}

// bind 解析 JSON 并用 validator 校验
func bind(c *gin.Context, v *util.Validator, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		apperr.Respond(c, apperr.Validation("invalid request body"))
		return false
	}
	if err := v.Struct(req); err != nil {
		var verr *util.ValidationError
		if !errors.As(err, &verr) {
			err = apperr.Internal("validation error", err)
		}
		apperr.Respond(c, err)
		return false
	}
	return true
}
