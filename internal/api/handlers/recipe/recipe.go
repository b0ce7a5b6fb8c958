package recipe

import (
	"context"
	"errors"
	"strings"

	"recipe-rag/internal/api/response"
	aiservice "recipe-rag/internal/core/ai/service"
	recipeService "recipe-rag/internal/core/recipe"
	"recipe-rag/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Generator 食譜生成能力
type Generator interface {
	GenerateRecipe(ctx context.Context, ingredients, mode string) *recipeService.Result
}

// GenerateRequest 以食材生成食譜
type GenerateRequest struct {
	Ingredients string `json:"bahan"`          // 使用者輸入的食材
	Mode        string `json:"mode,omitempty"` // normal 或 diet
}

// GenerateResponse 生成成功回傳的資料
type GenerateResponse struct {
	Recipe    string `json:"resep"`
	Mode      string `json:"mode"`
	Reference string `json:"reference,omitempty"`
}

// Handler 食譜處理器
type Handler struct {
	recipes Generator
}

// NewHandler 創建食譜處理器
func NewHandler(recipes Generator) *Handler {
	return &Handler{recipes: recipes}
}

// HandleGenerate 依食材生成食譜
func (h *Handler) HandleGenerate(c *gin.Context) {
	reqID := requestid.Get(c)
	if reqID == "" {
		reqID = common.GenerateUUID()
	}

	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.LogWarn("無效的請求格式",
			zap.Error(err),
			zap.String("request_id", reqID),
		)
		response.Fail(c, response.CodeBadRequest, common.ErrInvalidRequest)
		return
	}

	if strings.TrimSpace(req.Ingredients) == "" {
		response.Fail(c, response.CodeIngredientRequired, common.ErrIngredientRequired)
		return
	}

	ctx := aiservice.WithRequestID(c.Request.Context(), reqID)
	result := h.recipes.GenerateRecipe(ctx, req.Ingredients, req.Mode)

	switch result.Status {
	case recipeService.StatusOK:
		response.OK(c, "Recipe generated successfully!", GenerateResponse{
			Recipe:    result.Recipe,
			Mode:      string(result.Mode),
			Reference: result.Reference,
		})
	case recipeService.StatusNotFound:
		if result.Message == "" {
			response.Fail(c, response.CodeNotFound, common.ErrRecipeNotFound)
			return
		}
		response.FailWithMessage(c, response.CodeNotFound, common.ErrRecipeNotFound, result.Message)
	case recipeService.StatusNotReady:
		response.Fail(c, response.CodeNotReady, common.ErrResourcesNotReady)
	default:
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			common.LogError("食譜生成逾時", zap.String("request_id", reqID))
			response.Fail(c, response.CodeTimeout, common.ErrGatewayTimeout)
			return
		}
		common.LogError("食譜生成失敗",
			zap.Error(result.Err),
			zap.String("request_id", reqID),
		)
		response.Fail(c, response.CodeGenerationFailed, common.ErrGenerationFailed)
	}
}
