package document

import (
	"net/http"

	"scenario-writing-lab/internal/errors"
	"scenario-writing-lab/internal/middleware"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the document endpoints on an authenticated group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/:id", h.Show)
	rg.PATCH("/:id", h.Update)
}

func (h *Handler) List(c *gin.Context) {
	docs, err := h.service.ListDocuments(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, docs)
}

func (h *Handler) Create(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.Error(errors.BadRequest(CodeInvalidBody, err))
		return
	}

	input, err := ParseCreate(body)
	if err != nil {
		c.Error(err)
		return
	}

	doc, err := h.service.CreateDocument(c.Request.Context(), middleware.UserID(c), input)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, doc)
}

func (h *Handler) Show(c *gin.Context) {
	doc, err := h.service.GetDocument(c.Request.Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, doc)
}

func (h *Handler) Update(c *gin.Context) {
	body, err := c.GetRawData()
	if err != nil {
		c.Error(errors.BadRequest(CodeInvalidPatch, err))
		return
	}

	doc, err := h.service.UpdateDocument(c.Request.Context(), middleware.UserID(c), c.Param("id"), body)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, doc)
}
