package router

import (
	"context"
	"crypto/subtle"
	"errors"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/keyauth"

	"resume-extractor/internal/api/handler"
)

// ErrInvalidAPIKey API Key 不在配置列表中
var ErrInvalidAPIKey = errors.New("无效的 API Key")

// RegisterRoutes 注册 API 路由。apiKeys 非空时抽取接口需要 Bearer 认证，健康检查始终开放。
func RegisterRoutes(h *server.Hertz, resumeHandler *handler.ResumeHandler, apiKeys []string) {
	h.Use(accessLog())

	api := h.Group("/api/v1")
	api.GET("/health", resumeHandler.HandleHealth)

	resume := api.Group("/resume")
	if len(apiKeys) > 0 {
		resume.Use(NewKeyAuth(apiKeys))
	}
	resume.POST("/extract", resumeHandler.HandleExtract)
	resume.POST("/extract/text", resumeHandler.HandleExtractText)
}

// NewKeyAuth 从 Authorization: Bearer <key> 读取并校验 API Key
func NewKeyAuth(apiKeys []string) app.HandlerFunc {
	return keyauth.New(
		keyauth.WithKeyLookUp("header:Authorization", "Bearer"),
		keyauth.WithValidator(func(_ context.Context, _ *app.RequestContext, key string) (bool, error) {
			for _, k := range apiKeys {
				if subtle.ConstantTimeCompare([]byte(k), []byte(key)) == 1 {
					return true, nil
				}
			}
			return false, ErrInvalidAPIKey
		}),
		keyauth.WithErrorHandler(func(_ context.Context, c *app.RequestContext, err error) {
			c.AbortWithStatusJSON(consts.StatusUnauthorized, utils.H{"error": err.Error()})
		}),
	)
}

func accessLog() app.HandlerFunc {
	return func(c context.Context, ctx *app.RequestContext) {
		ctx.Next(c)
		hlog.CtxDebugf(c, "%s %s -> %d", ctx.Method(), ctx.Path(), ctx.Response.StatusCode())
	}
}
