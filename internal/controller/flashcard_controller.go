package controller

import (
	"study_companion_backend/internal/middleware"
	"study_companion_backend/internal/service"
	"study_companion_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type FlashcardController struct {
	Service *service.FlashcardService
}

func NewFlashcardController(s *service.FlashcardService) *FlashcardController {
	return &FlashcardController{Service: s}
}

type ReviewRequest struct {
	Outcome string `json:"outcome" binding:"required,review_outcome"`
}

// CreateCard godoc
// @Summary 创建闪卡
// @Tags 闪卡
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.CreateCardRequest true "闪卡内容"
// @Success 201 {object} util.Response{data=model.Flashcard}
// @Router /api/flashcards [post]
func (c *FlashcardController) CreateCard(ctx *gin.Context) {
	var req service.CreateCardRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	card, err := c.Service.CreateCard(ctx.Request.Context(), middleware.LearnerID(ctx), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, card)
}

// ListCards godoc
// @Summary 闪卡列表
// @Tags 闪卡
// @Produce json
// @Security ApiKeyAuth
// @Param topic query string false "主题"
// @Param limit query int false "数量"
// @Success 200 {object} util.Response{data=[]model.Flashcard}
// @Router /api/flashcards [get]
func (c *FlashcardController) ListCards(ctx *gin.Context) {
	cards, err := c.Service.ListCards(ctx.Request.Context(), middleware.LearnerID(ctx), ctx.Query("topic"), util.ParseLimit(ctx.Query("limit")))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, cards)
}

// ListDue godoc
// @Summary 到期待复习的闪卡
// @Description 按下次复习时间升序
// @Tags 闪卡
// @Produce json
// @Security ApiKeyAuth
// @Param limit query int false "数量"
// @Success 200 {object} util.Response{data=[]model.Flashcard}
// @Router /api/flashcards/due [get]
func (c *FlashcardController) ListDue(ctx *gin.Context) {
	cards, err := c.Service.ListDue(ctx.Request.Context(), middleware.LearnerID(ctx), util.ParseLimit(ctx.Query("limit")))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, cards)
}

// ReviewCard godoc
// @Summary 记录复习结果
// @Tags 闪卡
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "闪卡ID"
// @Param body body ReviewRequest true "easy 或 hard"
// @Success 200 {object} util.Response{data=service.ReviewResult}
// @Failure 400 {object} util.Response
// @Failure 404 {object} util.Response
// @Router /api/flashcards/{id}/review [post]
func (c *FlashcardController) ReviewCard(ctx *gin.Context) {
	id, ok := pathID(ctx, "id")
	if !ok {
		return
	}
	var req ReviewRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	outcome, err := service.ParseOutcome(req.Outcome)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	result, err := c.Service.ReviewCard(ctx.Request.Context(), middleware.LearnerID(ctx), id, outcome)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// GenerateCards godoc
// @Summary 自动生成闪卡
// @Tags 闪卡
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.GenerateCardsRequest true "主题和数量"
// @Success 201 {object} util.Response{data=[]model.Flashcard}
// @Failure 502 {object} util.Response "内容生成失败"
// @Router /api/flashcards/generate [post]
func (c *FlashcardController) GenerateCards(ctx *gin.Context) {
	var req service.GenerateCardsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	cards, err := c.Service.GenerateCards(ctx.Request.Context(), middleware.LearnerID(ctx), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, cards)
}
