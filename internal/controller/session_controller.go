package controller

import (
	"context"
	"study_companion_backend/internal/middleware"
	"study_companion_backend/internal/model"
	"study_companion_backend/internal/service"
	"study_companion_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type SessionController struct {
	Service *service.SessionService
}

func NewSessionController(s *service.SessionService) *SessionController {
	return &SessionController{Service: s}
}

type StartSessionRequest struct {
	Subject string `json:"subject" binding:"required,max=100"`
}

// StartSession godoc
// @Summary 开始学习会话
// @Description 每位学习者同一时间只能有一个未结束的会话
// @Tags 学习会话
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body StartSessionRequest true "科目"
// @Success 201 {object} util.Response{data=model.SessionView}
// @Failure 400 {object} util.Response
// @Failure 409 {object} util.Response "已有未结束的会话"
// @Router /api/sessions [post]
func (c *SessionController) StartSession(ctx *gin.Context) {
	var req StartSessionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	view, err := c.Service.StartSession(ctx.Request.Context(), middleware.LearnerID(ctx), req.Subject)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, view)
}

// ListSessions godoc
// @Summary 最近的学习会话
// @Tags 学习会话
// @Produce json
// @Security ApiKeyAuth
// @Param limit query int false "数量"
// @Success 200 {object} util.Response{data=[]model.SessionView}
// @Router /api/sessions [get]
func (c *SessionController) ListSessions(ctx *gin.Context) {
	views, err := c.Service.ListSessions(ctx.Request.Context(), middleware.LearnerID(ctx), util.ParseLimit(ctx.Query("limit")))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, views)
}

// ActiveSession godoc
// @Summary 当前未结束的会话
// @Tags 学习会话
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=model.SessionView}
// @Router /api/sessions/active [get]
func (c *SessionController) ActiveSession(ctx *gin.Context) {
	view, err := c.Service.ActiveSession(ctx.Request.Context(), middleware.LearnerID(ctx))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// GetSession godoc
// @Summary 会话详情
// @Tags 学习会话
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "会话ID"
// @Success 200 {object} util.Response{data=model.SessionView}
// @Failure 404 {object} util.Response
// @Router /api/sessions/{id} [get]
func (c *SessionController) GetSession(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	view, err := c.Service.GetSession(ctx.Request.Context(), middleware.LearnerID(ctx), id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// PauseSession godoc
// @Summary 暂停会话
// @Tags 学习会话
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "会话ID"
// @Success 200 {object} util.Response{data=model.SessionView}
// @Failure 409 {object} util.Response "状态不允许"
// @Router /api/sessions/{id}/pause [post]
func (c *SessionController) PauseSession(ctx *gin.Context) {
	c.transition(ctx, c.Service.PauseSession)
}

// ResumeSession godoc
// @Summary 恢复会话
// @Tags 学习会话
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "会话ID"
// @Success 200 {object} util.Response{data=model.SessionView}
// @Failure 409 {object} util.Response "状态不允许"
// @Router /api/sessions/{id}/resume [post]
func (c *SessionController) ResumeSession(ctx *gin.Context) {
	c.transition(ctx, c.Service.ResumeSession)
}

// Tick godoc
// @Summary 会话心跳
// @Tags 学习会话
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "会话ID"
// @Success 200 {object} util.Response{data=model.SessionView}
// @Router /api/sessions/{id}/tick [post]
func (c *SessionController) Tick(ctx *gin.Context) {
	c.transition(ctx, c.Service.Tick)
}

// CompleteSession godoc
// @Summary 完成会话
// @Description 同步更新连续学习天数和徽章
// @Tags 学习会话
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "会话ID"
// @Success 200 {object} util.Response{data=service.CompletionResult}
// @Failure 409 {object} util.Response "会话已结束"
// @Router /api/sessions/{id}/complete [post]
func (c *SessionController) CompleteSession(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	result, err := c.Service.CompleteSession(ctx.Request.Context(), middleware.LearnerID(ctx), id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

func (c *SessionController) transition(ctx *gin.Context, fn func(ctx context.Context, learnerID, sessionID uint) (*model.SessionView, error)) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	view, err := fn(ctx.Request.Context(), middleware.LearnerID(ctx), id)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, view)
}
