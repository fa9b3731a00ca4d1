// Package httpapi wires the ops HTTP surface (Gin): health and readiness
// probes, Prometheus metrics, and a read-only status endpoint exposing the
// active polls. The bot itself talks to the chat platform over long polling;
// this server exists for operators and monitoring.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"sessionbot/internal/config"
	"sessionbot/internal/httpapi/middleware"
	"sessionbot/internal/services"
)

// pollStatusDTO is the JSON shape of one active poll on /status.
type pollStatusDTO struct {
	ID         uint      `json:"id"`
	ChannelRef string    `json:"channel_ref"`
	MessageRef string    `json:"message_ref"`
	CreatedAt  time.Time `json:"created_at"`
	Deadline   time.Time `json:"deadline"`
	DayA       dayDTO    `json:"day_a"`
	DayB       dayDTO    `json:"day_b"`
	Pending    []string  `json:"pending,omitempty"`
	Degraded   bool      `json:"degraded"`
}

type dayDTO struct {
	Label    string `json:"label"`
	YesCount int    `json:"yes_count"`
	Feasible bool   `json:"feasible"`
}

// RegisterRoutes attaches middleware and the ops endpoints to r.
//
// Middleware order: tracing first so every request is spanned, then the
// correlation ID, access logging, panic recovery, metrics, and finally
// compression and CORS.
func RegisterRoutes(r *gin.Engine, db *gorm.DB, polls *services.PollService, cfg config.Config) {
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.Metrics())
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:   []string{"X-Request-ID", "Content-Length"},
		MaxAge:          12 * time.Hour,
	}))

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Readiness includes a storage ping.
	r.GET("/ready", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/status", func(c *gin.Context) {
		overview, err := polls.Overview(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"code": "internal_error", "message": err.Error()})
			return
		}
		out := make([]pollStatusDTO, 0, len(overview))
		for _, st := range overview {
			out = append(out, pollStatusDTO{
				ID:         st.Poll.ID,
				ChannelRef: st.Poll.ChannelRef,
				MessageRef: st.Poll.MessageRef,
				CreatedAt:  st.Poll.CreatedAt,
				Deadline:   st.Poll.Deadline,
				DayA:       dayDTO{Label: st.View.DayA.Label, YesCount: st.View.DayA.YesCount, Feasible: st.View.DayA.Feasible},
				DayB:       dayDTO{Label: st.View.DayB.Label, YesCount: st.View.DayB.YesCount, Feasible: st.View.DayB.Feasible},
				Pending:    st.View.Pending,
				Degraded:   st.View.Degraded,
			})
		}
		c.JSON(http.StatusOK, gin.H{"polls": out})
	})

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"code": "not_found", "message": "route not found"})
	})
}
