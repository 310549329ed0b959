package transport

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go-cosmic-inspector/internal/config"
	apperrors "go-cosmic-inspector/internal/errors"
	"go-cosmic-inspector/internal/logger"
	"go-cosmic-inspector/internal/service"
	"go-cosmic-inspector/internal/storage"
	"go-cosmic-inspector/pkg/models"
	"go-cosmic-inspector/pkg/validation"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Version is reported by GET /health
const Version = "1.0.0"

// RequestIDHeader carries the per-request id in both directions
const RequestIDHeader = "X-Request-ID"

// Form fields accepted by POST /process
const (
	fieldImage    = "image"
	fieldImageURL = "image_url"
	fieldMode     = "mode"
	fieldClusters = "clusters"
)

// NewHandler builds the HTTP surface around the segmentation service
func NewHandler(svc service.SegmentationService, cfg *config.Config) http.Handler {
	r := gin.New()

	r.Use(
		gin.Recovery(),
		requestID(),
		requestLogger(),
		requestSizeLimiter(cfg.MaxRequestBodySize),
		errorHandler(),
	)

	r.GET("/health", healthCheck)
	r.GET("/stats", stats(svc))
	r.POST("/process", processImage(svc, cfg))
	r.GET(outputRoute(cfg.OutputURLPrefix), serveOutput(svc))

	return r
}

func outputRoute(prefix string) string {
	return strings.TrimRight("/"+strings.Trim(prefix, "/"), "/") + "/:name"
}

func processImage(svc service.SegmentationService, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.RequestTimeout)
		defer cancel()
		log := logger.FromContext(ctx)

		file, fileErr := c.FormFile(fieldImage)
		req := validation.ParseProcessRequest(c.PostForm(fieldMode), c.PostForm(fieldClusters), c.PostForm(fieldImageURL))

		var mbe *http.MaxBytesError
		if errors.As(fileErr, &mbe) {
			respondError(c, apperrors.NewValidationError("Request body too large", fileErr).WithStatus(http.StatusRequestEntityTooLarge))
			return
		}

		fields := logrus.Fields{"mode": req.Mode, "ip": c.ClientIP()}
		if req.Clusters != nil {
			fields["clusters"] = *req.Clusters
		}

		var (
			resp *models.ProcessResponse
			err  error
		)
		switch {
		case fileErr == nil:
			fields["filename"] = file.Filename
			log.WithFields(fields).Info("Processing uploaded image")

			f, openErr := file.Open()
			if openErr != nil {
				respondError(c, apperrors.NewValidationError("Failed to read image", openErr))
				return
			}
			defer f.Close()
			resp, err = svc.ProcessUpload(ctx, f, req)
		case req.ImageURL != "":
			fields["url"] = req.ImageURL
			log.WithFields(fields).Info("Processing remote image")
			resp, err = svc.ProcessURL(ctx, req)
		default:
			respondError(c, apperrors.NewValidationError("No image file provided", fileErr))
			return
		}

		if err != nil {
			respondError(c, err)
			return
		}

		log.WithFields(logrus.Fields{
			"best_k":             resp.BestK,
			"selection":          resp.Selection,
			"mode":               resp.Mode,
			"clusters":           len(resp.ClusterInfo),
			"processing_time_ms": int64(resp.ProcessingTimeSec * 1000),
		}).Info("Segmentation completed successfully")

		c.JSON(http.StatusOK, resp)
	}
}

func serveOutput(svc service.SegmentationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, err := svc.Fetch(c.Request.Context(), c.Param("name"))
		if err != nil {
			if errors.Is(err, storage.ErrOutputNotFound) || errors.Is(err, storage.ErrInvalidName) {
				err = apperrors.NewNotFoundError("Output not found", err)
			}
			respondError(c, err)
			return
		}
		c.Header("Cache-Control", "public, max-age=3600")
		c.Data(http.StatusOK, "image/png", data)
	}
}

func stats(svc service.SegmentationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, svc.Stats())
	}
}

func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, models.HealthResponse{
		Status:  "available",
		Version: Version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

// Middleware and helper functions

// requestID reuses an incoming X-Request-ID or generates one, echoes it and
// stores it on the request context for logging and events
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(RequestIDHeader))
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), id))
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.FromContext(c.Request.Context()).WithFields(logrus.Fields{
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": time.Since(start).Milliseconds(),
			"user_agent":  c.Request.UserAgent(),
		})
		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Warn("Request served with server error")
			return
		}
		entry.Debug("Request served")
	}
}

func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.ContentLength > maxBytes {
			respondError(c, apperrors.NewValidationError("Request body too large", nil).WithStatus(http.StatusRequestEntityTooLarge))
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

func errorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) > 0 && !c.Writer.Written() {
			respondError(c, c.Errors.Last().Err)
		}
	}
}

func determineStatusCode(err error) int {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	code := determineStatusCode(err)

	message := http.StatusText(code)
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		message = appErr.Message
	}

	logger.FromContext(c.Request.Context()).WithError(err).WithFields(logrus.Fields{
		"status_code": code,
		"path":        c.Request.URL.Path,
		"method":      c.Request.Method,
		"ip":          c.ClientIP(),
	}).Error("Request failed")

	resp := models.ErrorResponse{Error: message}
	if code < http.StatusInternalServerError {
		resp.Message = err.Error()
	}
	c.AbortWithStatusJSON(code, resp)
}
