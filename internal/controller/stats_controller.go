package controller

import (
	"study_companion_backend/internal/middleware"
	"study_companion_backend/internal/service"
	"study_companion_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type StatsController struct {
	Service *service.StatsService
	Streaks *service.StreakService
}

func NewStatsController(s *service.StatsService, streaks *service.StreakService) *StatsController {
	return &StatsController{Service: s, Streaks: streaks}
}

// GetStats godoc
// @Summary 学习统计
// @Tags 统计
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=model.StudyStatsView}
// @Router /api/stats [get]
func (c *StatsController) GetStats(ctx *gin.Context) {
	stats, err := c.Service.GetStats(ctx.Request.Context(), middleware.LearnerID(ctx))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, stats)
}

// GetStreak godoc
// @Summary 连续学习天数
// @Tags 统计
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=model.LearnerStreak}
// @Router /api/stats/streak [get]
func (c *StatsController) GetStreak(ctx *gin.Context) {
	streak, err := c.Streaks.GetStreak(ctx.Request.Context(), middleware.LearnerID(ctx))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, streak)
}
