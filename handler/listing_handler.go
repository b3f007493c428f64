package handler

import (
	"mime/multipart"

	"urbansetu/dto"
	"urbansetu/middleware"
	"urbansetu/usecase"
	"urbansetu/utils"

	"github.com/gin-gonic/gin"
)

// imagesField is the multipart field carrying listing photos.
const imagesField = "images"

type ListingHandler struct {
	listings *usecase.ListingService
}

func NewListingHandler(listings *usecase.ListingService) *ListingHandler {
	return &ListingHandler{listings: listings}
}

func (h *ListingHandler) Create(c *gin.Context) {
	var req dto.ListingRequest
	if !bindJSON(c, &req) {
		return
	}
	listing, err := h.listings.Create(c.Request.Context(), middleware.ActorFrom(c), req.ToInput())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Created(c, listing)
}

func (h *ListingHandler) Get(c *gin.Context) {
	listing, err := h.listings.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, listing)
}

func (h *ListingHandler) Search(c *gin.Context) {
	var q dto.ListingQuery
	if !bindQuery(c, &q) {
		return
	}
	page, err := h.listings.Search(c.Request.Context(), q.ToFilter())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, page)
}

func (h *ListingHandler) Update(c *gin.Context) {
	var req dto.ListingRequest
	if !bindJSON(c, &req) {
		return
	}
	listing, err := h.listings.Update(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), req.ToInput())
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, listing)
}

func (h *ListingHandler) Delete(c *gin.Context) {
	if err := h.listings.Delete(c.Request.Context(), middleware.ActorFrom(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, gin.H{"message": "Listing deleted"})
}

func (h *ListingHandler) ESG(c *gin.Context) {
	breakdown, err := h.listings.ESG(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Success(c, breakdown)
}

// UploadImages stores the multipart "images" files and appends their URLs
// to the listing.
func (h *ListingHandler) UploadImages(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		utils.BadRequest(c, "Expected multipart form data")
		return
	}
	headers := form.File[imagesField]
	if len(headers) == 0 {
		utils.BadRequest(c, "No images provided")
		return
	}

	uploads := make([]usecase.ImageUpload, 0, len(headers))
	var opened []multipart.File
	defer func() {
		for _, f := range opened {
			f.Close()
		}
	}()
	for _, fh := range headers {
		f, err := fh.Open()
		if err != nil {
			utils.BadRequest(c, "Could not read "+fh.Filename)
			return
		}
		opened = append(opened, f)
		uploads = append(uploads, usecase.ImageUpload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Size:        fh.Size,
			Body:        f,
		})
	}

	urls, err := h.listings.UploadImages(c.Request.Context(), middleware.ActorFrom(c), c.Param("id"), uploads)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.Created(c, gin.H{"image_urls": urls})
}
