package common

import (
	"net/http"
)

// CustomError 定義自定義錯誤類型
type CustomError struct {
	Code    string // 錯誤代碼
	Message string // 錯誤信息
	Err     error  // 原始錯誤
	Status  int    // HTTP 狀態碼
}

func (e *CustomError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap 讓 errors.Is / errors.As 能穿透到原始錯誤
func (e *CustomError) Unwrap() error {
	return e.Err
}

// Wrap 以相同代碼與狀態包裝原始錯誤
func (e *CustomError) Wrap(err error) *CustomError {
	return NewError(e.Code, e.Message, e.Status, err)
}

// Is 以錯誤代碼比對
func (e *CustomError) Is(target error) bool {
	t, ok := target.(*CustomError)
	return ok && t.Code == e.Code
}

// NewError 創建新的自定義錯誤
func NewError(code string, message string, status int, err error) *CustomError {
	return &CustomError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

// 預定義錯誤代碼
const (
	// 客戶端錯誤 (4xx)
	ErrCodeInvalidRequest  = "INVALID_REQUEST"   // 400
	ErrCodeUnauthorized    = "UNAUTHORIZED"      // 401
	ErrCodeTooManyRequests = "TOO_MANY_REQUESTS" // 429

	// 服務器錯誤 (5xx)
	ErrCodeInternalError  = "INTERNAL_ERROR"  // 500
	ErrCodeGatewayTimeout = "GATEWAY_TIMEOUT" // 504

	// 業務錯誤
	ErrCodeIngredientRequired = "INGREDIENT_REQUIRED" // 400
	ErrCodeRecipeNotFound     = "RECIPE_NOT_FOUND"    // 404
	ErrCodeGeneration         = "GENERATION_ERROR"    // 500
	ErrCodeResourcesNotReady  = "RESOURCES_NOT_READY" // 503
)

// 預定義錯誤
var (
	// 客戶端錯誤
	ErrInvalidRequest  = NewError(ErrCodeInvalidRequest, "Invalid JSON data.", http.StatusBadRequest, nil)
	ErrUnauthorized    = NewError(ErrCodeUnauthorized, "Unauthorized.", http.StatusUnauthorized, nil)
	ErrTooManyRequests = NewError(ErrCodeTooManyRequests, "Too many requests.", http.StatusTooManyRequests, nil)

	// 服務器錯誤
	ErrInternalError  = NewError(ErrCodeInternalError, "Internal server error.", http.StatusInternalServerError, nil)
	ErrGatewayTimeout = NewError(ErrCodeGatewayTimeout, "Request timeout.", http.StatusGatewayTimeout, nil)

	// 業務錯誤
	ErrIngredientRequired = NewError(ErrCodeIngredientRequired, "Ingredient is required to generate recipe.", http.StatusBadRequest, nil)
	ErrResourcesNotReady  = NewError(ErrCodeResourcesNotReady, "Resources not loaded.", http.StatusServiceUnavailable, nil)
	ErrRecipeNotFound     = NewError(ErrCodeRecipeNotFound, "Maaf, stok resep tidak ditemukan.", http.StatusNotFound, nil)
	ErrGenerationFailed   = NewError(ErrCodeGeneration, "AI failed to generate recipe. Try different ingredients.", http.StatusInternalServerError, nil)
	ErrCacheFull          = NewError("CACHE_FULL", "緩存已滿", http.StatusServiceUnavailable, nil)
	ErrCacheMiss          = NewError("CACHE_MISS", "緩存未命中", http.StatusNotFound, nil)
	ErrQueueFull          = NewError("QUEUE_FULL", "生成隊列已滿", http.StatusServiceUnavailable, nil)
)
