package dto

// ErrorResponse 失败时的统一返回体
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
