package controller

import (
	"study_companion_backend/internal/middleware"
	"study_companion_backend/internal/model"
	"study_companion_backend/internal/service"
	"study_companion_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type BadgeController struct {
	Service *service.BadgeService
}

func NewBadgeController(s *service.BadgeService) *BadgeController {
	return &BadgeController{Service: s}
}

// ListBadges godoc
// @Summary 徽章及进度
// @Description 已获得的徽章排在前面
// @Tags 徽章
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.BadgeStatus}
// @Router /api/badges [get]
func (c *BadgeController) ListBadges(ctx *gin.Context) {
	statuses, err := c.Service.ListBadges(ctx.Request.Context(), middleware.LearnerID(ctx))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, statuses)
}

// Evaluate godoc
// @Summary 重新评估全部徽章
// @Tags 徽章
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Badge}
// @Router /api/badges/evaluate [post]
func (c *BadgeController) Evaluate(ctx *gin.Context) {
	earned, err := c.Service.Evaluate(ctx.Request.Context(), middleware.LearnerID(ctx))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	if earned == nil {
		earned = []model.Badge{}
	}
	util.Success(ctx, gin.H{"earned": earned})
}
