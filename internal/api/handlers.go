package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yasirrabbanitanvir/Teleradiology/internal/blob"
	"github.com/yasirrabbanitanvir/Teleradiology/internal/ingest"
	"github.com/yasirrabbanitanvir/Teleradiology/internal/models"
	"github.com/yasirrabbanitanvir/Teleradiology/internal/storage"
	"github.com/yasirrabbanitanvir/Teleradiology/internal/workflow"
)

// APIHandler holds dependencies for API handlers.
type APIHandler struct {
	store    storage.ImageStore
	blobs    blob.Store
	pipeline *ingest.Pipeline
	flow     *workflow.Service
}

// NewAPIHandler creates a new handler instance.
func NewAPIHandler(store storage.ImageStore, blobs blob.Store) *APIHandler {
	return &APIHandler{
		store:    store,
		blobs:    blobs,
		pipeline: ingest.NewPipeline(store, blobs),
		flow:     workflow.NewService(store, blobs),
	}
}

// respondError maps domain errors onto HTTP statuses with the standard
// failure envelope.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrValidation),
		errors.Is(err, models.ErrInvalidFormat),
		errors.Is(err, models.ErrInvalidStatus):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{"success": false, "error": err.Error()})
}

// HealthCheckHandler reports liveness and store reachability.
func (h *APIHandler) HealthCheckHandler(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ReceiveDICOMHandler ingests one uploaded DICOM file for a center.
// Multipart fields: dicom_file (binary), center_name (string).
func (h *APIHandler) ReceiveDICOMHandler(c *gin.Context) {
	fileHeader, err := c.FormFile("dicom_file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "No DICOM file provided"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "No DICOM file provided"})
		return
	}
	defer file.Close()
	raw, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to read upload: " + err.Error()})
		return
	}

	rec, err := h.pipeline.Ingest(c.Request.Context(), raw, c.PostForm("center_name"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"message":     "DICOM file processed successfully",
		"image_id":    rec.ID,
		"filename":    path.Base(rec.FilePath),
		"center_name": rec.CenterName,
	})
}

type assignDoctorsRequest struct {
	ImageIDs    []int64  `json:"image_ids"`
	DoctorNames []string `json:"doctor_names"`
}

// AssignDoctorsHandler assigns doctors to a batch of images.
func (h *APIHandler) AssignDoctorsHandler(c *gin.Context) {
	var req assignDoctorsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid JSON data"})
		return
	}

	updated, err := h.flow.AssignDoctors(c.Request.Context(), req.ImageIDs, req.DoctorNames)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"message":        "Successfully assigned doctors to " + strconv.Itoa(updated) + " images",
		"updated_images": updated,
	})
}

type removeDoctorRequest struct {
	ImageID    int64  `json:"image_id"`
	DoctorName string `json:"doctor_name"`
}

// RemoveSingleDoctorHandler removes one doctor from one image's set.
func (h *APIHandler) RemoveSingleDoctorHandler(c *gin.Context) {
	var req removeDoctorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid JSON data"})
		return
	}
	if req.ImageID == 0 || req.DoctorName == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "image_id and doctor_name are required"})
		return
	}
	if err := h.flow.RemoveSingleDoctor(c.Request.Context(), req.ImageID, req.DoctorName); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Doctor " + req.DoctorName + " removed successfully",
	})
}

type updateStatusRequest struct {
	Status        string `json:"status"`
	ReportedBy    string `json:"reported_by"`
	ReportContent string `json:"report_content"`
}

func imageIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid image id"})
		return 0, false
	}
	return id, true
}

// UpdateStatusHandler changes one image's workflow status without
// touching its study siblings.
func (h *APIHandler) UpdateStatusHandler(c *gin.Context) {
	id, ok := imageIDParam(c)
	if !ok {
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid JSON data"})
		return
	}
	if req.Status == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "status is required"})
		return
	}

	rec, err := h.flow.UpdateStatus(c.Request.Context(), id, models.Status(req.Status), req.ReportedBy, req.ReportContent)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Status updated successfully",
		"image":   rec,
	})
}

// UpdateStatusPropagateHandler changes the status of an image and every
// sibling record of the same (patient, study) pair.
func (h *APIHandler) UpdateStatusPropagateHandler(c *gin.Context) {
	id, ok := imageIDParam(c)
	if !ok {
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid JSON data"})
		return
	}
	if req.Status == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "status is required"})
		return
	}
	reportedBy := req.ReportedBy
	if reportedBy == "" {
		reportedBy = c.GetHeader("X-User-Name")
	}

	updated, err := h.flow.UpdateStatusWithPropagation(c.Request.Context(), id, models.Status(req.Status), reportedBy, req.ReportContent)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"message":        "Status and report updated successfully",
		"updated_images": updated,
		"reported_by":    reportedBy,
	})
}

// UploadReportHandler attaches a report file to an image and propagates
// it across the study.
func (h *APIHandler) UploadReportHandler(c *gin.Context) {
	id, ok := imageIDParam(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "No file provided"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "No file provided"})
		return
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to read upload: " + err.Error()})
		return
	}

	uploader := c.PostForm("uploader")
	if uploader == "" {
		uploader = c.GetHeader("X-User-Name")
	}

	result, err := h.flow.UploadReport(c.Request.Context(), id, fileHeader.Filename, content, uploader)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":        true,
		"message":        "Report uploaded successfully",
		"file_path":      result.ReportFilePath,
		"updated_images": result.UpdatedImages,
		"reported_by":    result.ReportedBy,
	})
}

// ServeFileHandler streams a stored DICOM or report payload back to the
// client.
func (h *APIHandler) ServeFileHandler(c *gin.Context) {
	key := c.Param("path")
	data, err := h.blobs.Open(key)
	if err != nil {
		slog.WarnContext(c.Request.Context(), "Requested file not found", "key", key)
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "File not found"})
		return
	}
	c.Data(http.StatusOK, "application/dicom", data)
}

// APIInfoHandler describes the service.
func (h *APIHandler) APIInfoHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Teleradiology PACS API with center organization and doctor assignment",
		"version": "2.0",
		"endpoints": gin.H{
			"receive_dicom":    "/api/dicom/receive",
			"images":           "/api/images",
			"images_grouped":   "/api/images/grouped",
			"images_by_doctor": "/api/images/by-doctor",
			"studies":          "/api/studies",
			"studies_grouped":  "/api/studies/grouped",
			"study_images":     "/api/studies/:study_uid/images",
			"study_detail":     "/api/studies/detail/:id",
			"centers":          "/api/centers",
			"center_detail":    "/api/centers/:name",
			"stats":            "/api/stats",
			"institute_stats":  "/api/institutes/:name/stats",
			"assign_doctors":   "/api/images/assign-doctors",
			"remove_doctor":    "/api/images/remove-doctor",
			"update_status":    "/api/images/:id/status",
			"propagate_status": "/api/images/:id/status-propagate",
			"upload_report":    "/api/images/:id/report",
			"files":            "/api/files/*path",
		},
	})
}
