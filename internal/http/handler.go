package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"parking-anpr-service/internal/domain/recognition"
	"parking-anpr-service/internal/service"
)

const maxUploadBytes = 10 << 20

type Handler struct {
	recognitionService *service.RecognitionService
	recordService      *service.RecordService
	log                zerolog.Logger
}

func NewHandler(
	recognitionService *service.RecognitionService,
	recordService *service.RecordService,
	log zerolog.Logger,
) *Handler {
	return &Handler{
		recognitionService: recognitionService,
		recordService:      recordService,
		log:                log,
	}
}

func (h *Handler) Register(r *gin.Engine, authMiddleware gin.HandlerFunc) {
	api := r.Group("/api/v1")
	api.Use(authMiddleware)
	{
		api.POST("/recognitions", h.createRecognition)
		api.GET("/recognitions/status", h.recognitionStatus)
		api.GET("/records", h.listRecords)
		api.GET("/records/export", h.exportRecords)
		api.GET("/records/summary", h.summarizeRecords)
	}
}

func (h *Handler) createRecognition(c *gin.Context) {
	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, errorResponse("image file is required"))
		return
	}
	if fileHeader.Size > maxUploadBytes {
		c.JSON(http.StatusBadRequest, errorResponse("image file is too large"))
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		h.log.Error().Err(err).Msg("failed to open uploaded file")
		c.JSON(http.StatusBadRequest, errorResponse("could not read uploaded file"))
		return
	}
	defer file.Close()

	payload, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		h.log.Error().Err(err).Msg("failed to read uploaded file")
		c.JSON(http.StatusBadRequest, errorResponse("could not read uploaded file"))
		return
	}

	req := recognition.Request{
		Image:    payload,
		MimeType: fileHeader.Header.Get("Content-Type"),
		Filename: fileHeader.Filename,
	}

	h.log.Info().
		Str("filename", req.Filename).
		Str("mime_type", req.MimeType).
		Int64("size", fileHeader.Size).
		Msg("received recognition request")

	outcome, err := h.recognitionService.ProcessImage(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidInput):
			c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
		case errors.Is(err, service.ErrBusy):
			c.JSON(http.StatusConflict, gin.H{
				"error":  "a recognition is already in progress",
				"status": recognition.StatusProcessing,
			})
		case errors.Is(err, service.ErrPersistence):
			// Recognition succeeded but the durable write failed: echo the
			// result so the operator can retry the save.
			c.JSON(http.StatusBadGateway, gin.H{
				"error":       "failed to save plate record",
				"status":      outcome.Status,
				"result":      outcome.Result,
				"preview_url": outcome.PreviewURL,
			})
		default:
			h.log.Error().Err(err).Msg("failed to process recognition request")
			c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
		}
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"status":        outcome.Status,
		"result":        outcome.Result,
		"preview_url":   outcome.PreviewURL,
		"record_id":     outcome.Record.ID,
		"dwell_seconds": outcome.Record.DwellSeconds,
		"fee":           outcome.Record.Fee,
	})
}

func (h *Handler) recognitionStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": h.recognitionService.Status()})
}

func (h *Handler) listRecords(c *gin.Context) {
	plateQuery, from, to := recordFilters(c)

	limit := 50
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	offset := 0
	if o := c.Query("offset"); o != "" {
		if parsed, err := strconv.Atoi(o); err == nil && parsed >= 0 {
			offset = parsed
		}
	}

	records, err := h.recordService.FindRecords(c.Request.Context(), plateQuery, from, to, limit, offset)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
			return
		}
		h.log.Error().Err(err).Msg("failed to find plate records")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
		return
	}

	c.JSON(http.StatusOK, successResponse(records))
}

func (h *Handler) summarizeRecords(c *gin.Context) {
	_, from, to := recordFilters(c)

	summary, err := h.recordService.Summarize(c.Request.Context(), from, to)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
			return
		}
		h.log.Error().Err(err).Msg("failed to summarize plate records")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
		return
	}

	c.JSON(http.StatusOK, successResponse(summary))
}

func (h *Handler) exportRecords(c *gin.Context) {
	plateQuery, from, to := recordFilters(c)

	records, err := h.recordService.FindRecords(c.Request.Context(), plateQuery, from, to, 100, 0)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			c.JSON(http.StatusBadRequest, errorResponse(err.Error()))
			return
		}
		h.log.Error().Err(err).Msg("failed to export plate records")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
		return
	}

	workbook, err := buildRecordsWorkbook(records)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to build export workbook")
		c.JSON(http.StatusInternalServerError, errorResponse("internal error"))
		return
	}
	defer workbook.Close()

	filename := fmt.Sprintf("plate-records-%s.xlsx", time.Now().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename=%q`, filename))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

	if err := workbook.Write(c.Writer); err != nil {
		h.log.Error().Err(err).Msg("failed to write export workbook")
	}
}

func buildRecordsWorkbook(records []service.RecordInfo) (*excelize.File, error) {
	f := excelize.NewFile()
	sheet := "Records"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, err
	}

	headers := []interface{}{"Plate", "Country", "Confidence", "Origin", "Dwell (s)", "Fee", "Status", "Created At"}
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return nil, err
	}

	for i, r := range records {
		row := []interface{}{
			r.PlateNumber,
			r.CountryIdentifier,
			r.Confidence,
			r.Origin,
			r.DwellSeconds,
			r.Fee,
			r.Status,
			r.CreatedAt.Format(time.RFC3339),
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, err
		}
	}

	return f, nil
}

func recordFilters(c *gin.Context) (plateQuery, from, to *string) {
	if plate := strings.TrimSpace(c.Query("plate")); plate != "" {
		plateQuery = &plate
	}
	if f := strings.TrimSpace(c.Query("from")); f != "" {
		from = &f
	}
	if t := strings.TrimSpace(c.Query("to")); t != "" {
		to = &t
	}
	return plateQuery, from, to
}

func successResponse(data interface{}) gin.H {
	return gin.H{
		"data": data,
	}
}

func errorResponse(message string) gin.H {
	return gin.H{
		"error": message,
	}
}
