package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/zhouzirui/lookie/backend/internal/service/gateway"
)

// CORS 允许前端跨域访问 REST 与 SSE 接口。
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Requested-With"},
		ExposedHeaders: []string{gateway.SessionHeader},
		MaxAge:         300,
	})
}
