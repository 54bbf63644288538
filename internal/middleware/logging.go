package middleware

import (
	"bytes"
	"io"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"sqlchat-go/internal/metrics"
	"sqlchat-go/pkg/log"
)

// maxLoggedBody 是单条请求或响应体写入日志的最大字节数。
const maxLoggedBody = 2048

// bodyLogWriter 用于捕获响应体
type bodyLogWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

// Write 实现了 io.Writer 接口，将响应写入 gin.ResponseWriter 和一个内部的 buffer
func (w bodyLogWriter) Write(b []byte) (int, error) {
	if room := maxLoggedBody - w.body.Len(); room > 0 {
		if len(b) > room {
			w.body.Write(b[:room])
		} else {
			w.body.Write(b)
		}
	}
	return w.ResponseWriter.Write(b)
}

// RequestLogger 是一个 Gin 中间件，用于记录请求与响应日志并上报请求指标。
// 路径包含 sensitivePaths 中任一项时，请求体与响应体都不写入日志。
func RequestLogger(collector *metrics.Collector, sensitivePaths ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		path := c.Request.URL.Path
		sensitive := isSensitive(path, sensitivePaths)

		var requestBody []byte
		if !sensitive && c.Request.Body != nil {
			requestBody, _ = io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
			// 将读取的请求体重新设置回 c.Request.Body，以便后续处理函数可以正常读取
			c.Request.Body = io.NopCloser(bytes.NewBuffer(requestBody))
		}

		blw := &bodyLogWriter{body: bytes.NewBufferString(""), ResponseWriter: c.Writer}
		if !sensitive {
			c.Writer = blw
		}

		c.Next()

		latency := time.Since(startTime)
		statusCode := c.Writer.Status()
		collector.ObserveRequest(c.FullPath(), c.Request.Method, statusCode, latency)

		fields := []interface{}{
			"statusCode", statusCode,
			"latency", latency.String(),
			"clientIP", c.ClientIP(),
			"method", c.Request.Method,
			"path", path,
		}
		if sensitive {
			fields = append(fields, "requestBody", "[withheld]", "responseBody", "[withheld]")
		} else {
			fields = append(fields, "requestBody", truncate(requestBody), "responseBody", blw.body.String())
		}
		log.Infow("HTTP Request Log", fields...)
	}
}

func isSensitive(path string, sensitivePaths []string) bool {
	for _, p := range sensitivePaths {
		if strings.HasSuffix(path, p) {
			return true
		}
	}
	return false
}

func truncate(b []byte) string {
	if len(b) > maxLoggedBody {
		return string(b[:maxLoggedBody]) + "...(truncated)"
	}
	return string(b)
}
