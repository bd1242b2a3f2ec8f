package modelhandler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"genai-console/internal/domain/model"
	"genai-console/internal/interfaces/httpserver/responses"
)

// ModelHandler serves the static model catalog.
type ModelHandler struct {
	registry *model.Registry
}

func NewModelHandler(registry *model.Registry) *ModelHandler {
	return &ModelHandler{registry: registry}
}

// List returns every selectable model with its capabilities.
func (h *ModelHandler) List(reqCtx *gin.Context) {
	reqCtx.JSON(http.StatusOK, responses.ListResponse[model.Model]{
		Object: "list",
		Data:   h.registry.List(),
	})
}
