package controller

import (
	"study_companion_backend/internal/middleware"
	"study_companion_backend/internal/service"
	"study_companion_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ChatController struct {
	Service *service.ChatService
}

func NewChatController(s *service.ChatService) *ChatController {
	return &ChatController{Service: s}
}

// Ask godoc
// @Summary 向学习助手提问
// @Description 回答按学习者偏好生成，可能包含图片、图表或代码片段
// @Tags 学习助手
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.AskRequest true "问题"
// @Success 200 {object} util.Response{data=service.AskResponse}
// @Failure 502 {object} util.Response "内容生成失败"
// @Router /api/chat [post]
func (c *ChatController) Ask(ctx *gin.Context) {
	var req service.AskRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	resp, err := c.Service.Ask(ctx.Request.Context(), middleware.LearnerID(ctx), req.Question)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, resp)
}

// History godoc
// @Summary 对话历史
// @Tags 学习助手
// @Produce json
// @Security ApiKeyAuth
// @Param limit query int false "数量"
// @Success 200 {object} util.Response{data=[]model.ChatMessage}
// @Router /api/chat/history [get]
func (c *ChatController) History(ctx *gin.Context) {
	messages, err := c.Service.History(ctx.Request.Context(), middleware.LearnerID(ctx), util.ParseLimit(ctx.Query("limit")))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, messages)
}
