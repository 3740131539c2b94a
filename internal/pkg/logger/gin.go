package logger

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
)

type accessLine struct {
	Time    string `json:"time"`
	Level   string `json:"level"`
	Msg     string `json:"msg"`
	TraceID string `json:"trace_id,omitempty"`
	Method  string `json:"method"`
	Path    string `json:"path"`
	Status  int    `json:"status"`
	Latency string `json:"latency"`
	Error   string `json:"error,omitempty"`
}

// SetupGin 注册访问日志与 panic 恢复
func SetupGin(r *gin.Engine) {
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Output:    LogWriter,
		Formatter: formatAccess,
		SkipPaths: []string{"/ping"},
	}))

	r.Use(gin.Recovery())
}

func formatAccess(p gin.LogFormatterParams) string {
	var traceID string
	if p.Keys != nil {
		if id, ok := p.Keys[TraceIDKey].(string); ok {
			traceID = id
		}
	}
	if traceID == "" && p.Request != nil {
		traceID = TraceID(p.Request.Context())
	}

	level := "INFO"
	if p.StatusCode >= 500 {
		level = "ERROR"
	}

	b, _ := json.Marshal(accessLine{
		Time:    p.TimeStamp.Format(time.RFC3339),
		Level:   level,
		Msg:     "GIN_ACCESS",
		TraceID: traceID,
		Method:  p.Method,
		Path:    p.Path,
		Status:  p.StatusCode,
		Latency: p.Latency.String(),
		Error:   p.ErrorMessage,
	})
	return string(b) + "\n"
}
