package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gridpreview/pkg/cache"
	errs "gridpreview/pkg/errors"
	"gridpreview/pkg/imagesource"
	"gridpreview/pkg/logger"
)

// Error bodies returned by the API
const (
	MsgUsernameRequired    = "Username is required"
	MsgUnexpectedFormat    = "Unexpected API response format"
	MsgFetchPostsFailed    = "Failed to fetch posts"
	MsgImageURLRequired    = "Image URL is required"
	MsgImageURLNotAbsolute = "Image URL must be absolute"
	MsgFetchImageFailed    = "Failed to fetch image"
)

// ErrorResponse is the JSON body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

// Warmer queues post images for cache warm-up
type Warmer interface {
	WarmPosts(posts []imagesource.Post) int
}

// APIController serves the posts lookup and the image proxy
type APIController struct {
	source      imagesource.Source
	cache       cache.ImageCache
	warmer      Warmer
	cacheHeader string
	log         logger.Logger
}

// NewAPIController creates the API controller. imageCache and warmer may be nil.
func NewAPIController(source imagesource.Source, imageCache cache.ImageCache, warmer Warmer, imageMaxAge time.Duration, log logger.Logger) *APIController {
	if imageCache == nil {
		imageCache = cache.Nop{}
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &APIController{
		source:      source,
		cache:       imageCache,
		warmer:      warmer,
		cacheHeader: fmt.Sprintf("public, max-age=%d", int64(imageMaxAge/time.Second)),
		log:         log,
	}
}

func (a *APIController) RegisterRoutes(r *gin.Engine) {
	api := r.Group("/api")
	api.GET("/fetchPosts", a.fetchPosts)
	api.GET("/image-proxy", a.imageProxy)
}

func (a *APIController) fetchPosts(c *gin.Context) {
	username := c.Query("username")
	if username == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: MsgUsernameRequired})
		return
	}

	posts, err := a.source.FetchPosts(c.Request.Context(), username)
	if err != nil {
		a.log.WithError(err).WarnWithFields("Fetching posts failed", map[string]interface{}{
			"username": username,
		})
		switch errs.TypeOf(err) {
		case errs.ErrorTypeValidation:
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: MsgUsernameRequired})
		case errs.ErrorTypeUpstreamFormat:
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: MsgUnexpectedFormat})
		default:
			c.JSON(http.StatusInternalServerError, ErrorResponse{Error: MsgFetchPostsFailed})
		}
		return
	}

	if a.warmer != nil && len(posts) > 0 {
		a.warmer.WarmPosts(posts)
	}
	if posts == nil {
		posts = []imagesource.Post{}
	}
	c.JSON(http.StatusOK, posts)
}

func (a *APIController) imageProxy(c *gin.Context) {
	imageURL := c.Query("url")
	if imageURL == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: MsgImageURLRequired})
		return
	}
	if !imagesource.ValidateImageURL(imageURL) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: MsgImageURLNotAbsolute})
		return
	}

	ctx := c.Request.Context()
	if entry, err := a.cache.Get(ctx, imageURL); err == nil {
		c.Header("X-Cache", "HIT")
		a.writeImage(c, entry.ContentType, entry.Data)
		return
	}

	img, err := a.source.FetchImage(ctx, imageURL)
	if err != nil {
		a.log.WithError(err).Warn("Failed to fetch image")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: MsgFetchImageFailed})
		return
	}

	if err := a.cache.Set(ctx, imageURL, &cache.Entry{Data: img.Data, ContentType: img.ContentType}); err != nil {
		a.log.WithError(err).Warn("Failed to cache image")
	}

	c.Header("X-Cache", "MISS")
	a.writeImage(c, img.ContentType, img.Data)
}

func (a *APIController) writeImage(c *gin.Context, contentType string, data []byte) {
	c.Header("Cache-Control", a.cacheHeader)
	c.Data(http.StatusOK, contentType, data)
}
