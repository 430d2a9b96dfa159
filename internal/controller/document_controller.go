package controller

import (
	"fmt"
	"study_companion_backend/internal/middleware"
	"study_companion_backend/internal/service"
	"study_companion_backend/internal/util"

	"github.com/gin-gonic/gin"
)

const maxDocumentSize = 200 << 20

type DocumentController struct {
	Service *service.DocumentService
}

func NewDocumentController(s *service.DocumentService) *DocumentController {
	return &DocumentController{Service: s}
}

// UploadDocument godoc
// @Summary 上传学习资料
// @Description 支持 PDF、图片、视频和纯文本
// @Tags 学习资料
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param title formData string false "标题"
// @Param file formData file true "文件"
// @Success 201 {object} util.Response{data=service.UploadResult}
// @Failure 400 {object} util.Response
// @Router /api/documents [post]
func (c *DocumentController) UploadDocument(ctx *gin.Context) {
	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "File is required")
		return
	}
	if file.Size > maxDocumentSize {
		util.BadRequest(ctx, fmt.Sprintf("File exceeds %d MB", maxDocumentSize>>20))
		return
	}

	src, err := file.Open()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	defer src.Close()

	result, err := c.Service.Upload(ctx.Request.Context(), middleware.LearnerID(ctx), service.UploadInput{
		Title:    ctx.PostForm("title"),
		Filename: file.Filename,
		Size:     file.Size,
		Content:  src,
	})
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, result)
}

// ListDocuments godoc
// @Summary 学习资料列表
// @Tags 学习资料
// @Produce json
// @Security ApiKeyAuth
// @Param limit query int false "数量"
// @Success 200 {object} util.Response{data=[]model.Document}
// @Router /api/documents [get]
func (c *DocumentController) ListDocuments(ctx *gin.Context) {
	docs, err := c.Service.ListDocuments(ctx.Request.Context(), middleware.LearnerID(ctx), util.ParseLimit(ctx.Query("limit")))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, docs)
}
