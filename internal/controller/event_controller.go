package controller

import (
	"study_companion_backend/internal/middleware"
	"study_companion_backend/internal/service"
	"study_companion_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type EventController struct {
	Service *service.IngestService
}

func NewEventController(s *service.IngestService) *EventController {
	return &EventController{Service: s}
}

type IngestRequest struct {
	Events []service.RawEvent `json:"events" binding:"required,min=1,max=100"`
}

// Ingest godoc
// @Summary 批量上报学习事件
// @Description 按发生时间排序后处理，返回每个事件的结果；未填写 learnerId 的事件归属当前学习者
// @Tags 事件
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body IngestRequest true "事件列表"
// @Success 200 {object} util.Response{data=[]service.EventResult}
// @Failure 400 {object} util.Response
// @Router /api/events [post]
func (c *EventController) Ingest(ctx *gin.Context) {
	var req IngestRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	learnerID := middleware.LearnerID(ctx)
	for i := range req.Events {
		if req.Events[i].LearnerID == 0 {
			req.Events[i].LearnerID = learnerID
		}
	}

	util.Success(ctx, c.Service.Ingest(ctx.Request.Context(), learnerID, req.Events))
}
