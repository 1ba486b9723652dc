package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yasirrabbanitanvir/Teleradiology/internal/grouping"
	"github.com/yasirrabbanitanvir/Teleradiology/internal/models"
	"github.com/yasirrabbanitanvir/Teleradiology/internal/storage"
)

func intQuery(c *gin.Context, name string, fallback int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return fallback
	}
	return v
}

// ListImagesHandler returns a flat image listing, optionally filtered by
// center, assigned doctor or status.
func (h *APIHandler) ListImagesHandler(c *gin.Context) {
	filter := storage.ListFilter{
		CenterName: c.Query("center_name"),
		DoctorName: c.Query("doctor_name"),
		Status:     c.Query("status"),
	}
	images, err := h.store.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "images": images, "count": len(images)})
}

// ListImagesGroupedHandler returns the paginated patient-grouped view.
// Pagination slices patient groups, not individual images.
func (h *APIHandler) ListImagesGroupedHandler(c *gin.Context) {
	filter := storage.ListFilter{
		CenterName: c.Query("center_name"),
		Status:     c.Query("status"),
	}
	images, err := h.store.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err)
		return
	}
	page := intQuery(c, "page", 1)
	pageSize := intQuery(c, "page_size", 10)
	result := grouping.GroupByPatient(images, page, pageSize)
	c.JSON(http.StatusOK, result)
}

// ImagesByDoctorHandler lists the images assigned to one doctor.
func (h *APIHandler) ImagesByDoctorHandler(c *gin.Context) {
	doctor := c.Query("doctor_name")
	if doctor == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "doctor_name is required"})
		return
	}
	images, err := h.store.List(c.Request.Context(), storage.ListFilter{
		DoctorName: doctor,
		Status:     c.Query("status"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "images": images, "count": len(images)})
}

// GetStudiesHandler returns one row per distinct study.
func (h *APIHandler) GetStudiesHandler(c *gin.Context) {
	images, err := h.store.List(c.Request.Context(), storage.ListFilter{
		CenterName: c.Query("center_name"),
	})
	if err != nil {
		respondError(c, err)
		return
	}

	groups := grouping.GroupByStudy(images)
	studies := make([]gin.H, 0, len(groups))
	for _, g := range groups {
		studies = append(studies, gin.H{
			"study_instance_uid": g.StudyInstanceUID,
			"patient_name":       g.PatientName,
			"patient_id":         g.PatientID,
			"study_date":         g.StudyDate,
			"study_description":  g.StudyDescription,
			"modality":           g.Modality,
			"center_name":        g.CenterName,
			"status":             g.Status,
			"image_count":        g.ImageCount,
		})
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "studies": studies, "count": len(studies)})
}

// GetStudiesGroupedHandler returns full study groups including their
// member image summaries.
func (h *APIHandler) GetStudiesGroupedHandler(c *gin.Context) {
	images, err := h.store.List(c.Request.Context(), storage.ListFilter{
		CenterName:  c.Query("center_name"),
		PatientName: c.Query("patient_name"),
		PatientID:   c.Query("patient_id"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	groups := grouping.GroupByStudy(images)
	c.JSON(http.StatusOK, gin.H{"success": true, "studies": groups, "count": len(groups)})
}

// GetStudyImagesHandler lists every image of one study, in series and
// instance order.
func (h *APIHandler) GetStudyImagesHandler(c *gin.Context) {
	studyUID := c.Param("study_uid")
	images, err := h.store.ListByStudyUID(c.Request.Context(), studyUID)
	if err != nil {
		respondError(c, err)
		return
	}
	if len(images) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Study not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "images": images, "count": len(images)})
}

// GetStudyDetailHandler returns every image of the study that the given
// image record belongs to.
func (h *APIHandler) GetStudyDetailHandler(c *gin.Context) {
	id, ok := imageIDParam(c)
	if !ok {
		return
	}
	rec, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	images, err := h.store.ListByStudyUID(c.Request.Context(), rec.StudyInstanceUID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":            true,
		"study_instance_uid": rec.StudyInstanceUID,
		"images":             images,
		"count":              len(images),
	})
}

// GetCentersHandler lists every known center with its statistics.
func (h *APIHandler) GetCentersHandler(c *gin.Context) {
	ctx := c.Request.Context()
	names, err := h.store.DistinctCenters(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	centers := make([]*models.CenterStats, 0, len(names))
	for _, name := range names {
		stats, err := h.store.CenterStats(ctx, name)
		if err != nil {
			respondError(c, err)
			return
		}
		centers = append(centers, stats)
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "centers": centers, "count": len(centers)})
}

// GetCenterDetailHandler returns one center's statistics plus its most
// recent uploads.
func (h *APIHandler) GetCenterDetailHandler(c *gin.Context) {
	name := c.Param("name")
	ctx := c.Request.Context()

	stats, err := h.store.CenterStats(ctx, name)
	if err != nil {
		respondError(c, err)
		return
	}
	if stats.ImageCount == 0 {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Center not found"})
		return
	}
	recent, err := h.store.List(ctx, storage.ListFilter{CenterName: name, Limit: 10})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"center_stats":  stats,
		"recent_images": recent,
	})
}

// GetStatsHandler returns global statistics, or a center-scoped view
// when center_name is given.
func (h *APIHandler) GetStatsHandler(c *gin.Context) {
	stats, err := h.store.GlobalStats(c.Request.Context(), c.Query("center_name"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "stats": stats})
}

// InstituteStatsHandler rolls per-center statistics up to an institute.
// The institute's member centers come from the comma-separated centers
// query parameter.
func (h *APIHandler) InstituteStatsHandler(c *gin.Context) {
	institute := c.Param("name")
	raw := c.Query("centers")
	if raw == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "centers is required"})
		return
	}
	var centerNames []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			centerNames = append(centerNames, part)
		}
	}
	if len(centerNames) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "centers is required"})
		return
	}

	ctx := c.Request.Context()
	result := models.InstituteStats{
		InstituteName:   institute,
		TotalCenters:    len(centerNames),
		StatusBreakdown: make(map[string]int),
	}
	for _, name := range centerNames {
		rollup, err := h.store.GlobalStats(ctx, name)
		if err != nil {
			respondError(c, err)
			return
		}
		perCenter, err := h.store.CenterStats(ctx, name)
		if err != nil {
			respondError(c, err)
			return
		}
		result.CenterStats = append(result.CenterStats, *perCenter)
		result.TotalImages += rollup.TotalImages
		result.TotalStudies += rollup.TotalStudies
		result.TotalPatients += rollup.TotalPatients
		result.TotalSizeBytes += rollup.TotalSizeBytes
		for status, count := range rollup.StatusBreakdown {
			result.StatusBreakdown[status] += count
		}
	}
	result.TotalSizeMB = models.RoundMB(result.TotalSizeBytes)
	c.JSON(http.StatusOK, gin.H{"success": true, "institute_stats": result})
}
