package api

import (
	"github.com/gin-gonic/gin"

	"github.com/yasirrabbanitanvir/Teleradiology/internal/blob"
	"github.com/yasirrabbanitanvir/Teleradiology/internal/models"
	"github.com/yasirrabbanitanvir/Teleradiology/internal/storage"
)

// RegisterRoutes sets up the API routes.
func RegisterRoutes(router *gin.Engine, store storage.ImageStore, blobs blob.Store) {
	handler := NewAPIHandler(store, blobs)

	router.GET("/healthz", handler.HealthCheckHandler)

	canUpload := requireCapability(func(c models.Capabilities) bool { return c.CanUpload })
	canAssign := requireCapability(func(c models.Capabilities) bool { return c.CanAssign })
	canReport := requireCapability(func(c models.Capabilities) bool { return c.CanReport })
	canViewStats := requireCapability(func(c models.Capabilities) bool { return c.CanViewStats })
	canManageCenters := requireCapability(func(c models.Capabilities) bool { return c.CanManageCenters })

	api := router.Group("/api", RoleMiddleware())
	{
		api.GET("/info", handler.APIInfoHandler)
		api.POST("/dicom/receive", canUpload, handler.ReceiveDICOMHandler)
		api.GET("/files/*path", handler.ServeFileHandler)

		images := api.Group("/images")
		{
			images.GET("", handler.ListImagesHandler)
			images.GET("/grouped", handler.ListImagesGroupedHandler)
			images.GET("/by-doctor", handler.ImagesByDoctorHandler)
			images.POST("/assign-doctors", canAssign, handler.AssignDoctorsHandler)
			images.POST("/remove-doctor", canAssign, handler.RemoveSingleDoctorHandler)
			images.PATCH("/:id/status", canReport, handler.UpdateStatusHandler)
			images.PATCH("/:id/status-propagate", canReport, handler.UpdateStatusPropagateHandler)
			images.POST("/:id/report", canReport, handler.UploadReportHandler)
		}

		studies := api.Group("/studies")
		{
			studies.GET("", handler.GetStudiesHandler)
			studies.GET("/grouped", handler.GetStudiesGroupedHandler)
			studies.GET("/detail/:id", handler.GetStudyDetailHandler)
			studies.GET("/:study_uid/images", handler.GetStudyImagesHandler)
		}

		centers := api.Group("/centers")
		{
			centers.GET("", canManageCenters, handler.GetCentersHandler)
			centers.GET("/:name", canManageCenters, handler.GetCenterDetailHandler)
		}

		api.GET("/stats", canViewStats, handler.GetStatsHandler)
		api.GET("/institutes/:name/stats", canViewStats, handler.InstituteStatsHandler)
	}
}
