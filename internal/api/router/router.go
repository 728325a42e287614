package router

import (
	"context"

	"interview-agent-go/internal/api/handler"
	"interview-agent-go/internal/types"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/keyauth"
)

// RegisterRoutes API 라우트를 등록한다.
// apiKey가 비어 있지 않으면 /api/v1 그룹 전체에 X-API-Key 검사를 붙인다.
func RegisterRoutes(h *server.Hertz, interviewHandler *handler.InterviewHandler, apiKey string) {
	api := h.Group("/api/v1")

	// 헬스 체크는 키 검사 앞에 등록해 인증 없이 열어둔다
	api.GET("/health", func(c context.Context, ctx *app.RequestContext) {
		ctx.JSON(consts.StatusOK, utils.H{"status": "ok"})
	})

	if apiKey != "" {
		api.Use(keyauth.New(
			keyauth.WithKeyLookUp("header:X-API-Key", ""),
			keyauth.WithValidator(func(c context.Context, ctx *app.RequestContext, key string) (bool, error) {
				return key == apiKey, nil
			}),
			// 키 누락과 키 불일치를 구분하지 않고 401로 통일한다
			keyauth.WithErrorHandler(func(c context.Context, ctx *app.RequestContext, err error) {
				ctx.AbortWithStatusJSON(consts.StatusUnauthorized, utils.H{"error": "유효하지 않은 API 키"})
			}),
		))
	}

	api.POST("/interview/evaluate/feedback", func(c context.Context, ctx *app.RequestContext) {
		var req types.EvaluateSessionRequest
		if err := ctx.BindAndValidate(&req); err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "요청 본문 파싱 실패"})
			return
		}

		resp, err := interviewHandler.HandleEvaluateSession(c, &req)
		if err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
			return
		}

		ctx.JSON(consts.StatusOK, resp)
	})

	api.POST("/interview/evaluate/plans", func(c context.Context, ctx *app.RequestContext) {
		var req types.GeneratePlanRequest
		if err := ctx.BindAndValidate(&req); err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": "요청 본문 파싱 실패"})
			return
		}

		resp, err := interviewHandler.HandleGeneratePlan(c, &req)
		if err != nil {
			ctx.JSON(consts.StatusBadRequest, utils.H{"error": err.Error()})
			return
		}

		ctx.JSON(consts.StatusOK, resp)
	})
}
