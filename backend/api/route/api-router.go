package route

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"

	"vikoba/backend/api/handler"
	"vikoba/backend/storage"
)

// SetRouter wires the document API and the static serving of derived images.
func SetRouter(router *gin.Engine, store *storage.Service) {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization", "X-Actor-Id")
	router.Use(cors.New(corsConfig))

	// Thumbnails and previews are plain JPEGs; serve them directly.
	router.Use(static.Serve("/static/thumbnails", static.LocalFile(store.Paths().ThumbnailDir(), false)))
	router.Use(static.Serve("/static/previews", static.LocalFile(store.Paths().PreviewDir(), false)))

	h := handler.NewDocumentHandler(store)

	api := router.Group("/api")
	{
		entityRoute := api.Group("/entities/:entityType/:entityId")
		{
			entityRoute.POST("/documents", h.Upload)
			entityRoute.GET("/documents", h.List)
			entityRoute.GET("/storage-usage", h.EntityUsage)
		}

		documentRoute := api.Group("/documents")
		{
			documentRoute.GET("/:id", h.Get)
			documentRoute.PUT("/:id", h.Update)
			documentRoute.DELETE("/:id", h.SoftDelete)
			documentRoute.DELETE("/:id/permanent", h.PermanentDelete)
			documentRoute.GET("/:id/download", h.Download)
			documentRoute.GET("/:id/preview", h.Preview)
			documentRoute.POST("/:id/compress", h.Compress)
		}

		api.DELETE("/meetings/:id/cascade-files", h.CascadeMeeting)
		api.DELETE("/members/:id/cascade-files", h.CascadeMember)
		api.DELETE("/groups/:id/cascade-files", h.CascadeGroup)
		api.GET("/storage-usage", h.TotalUsage)
	}
}
