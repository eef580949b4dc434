package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/balloonhub/marketplace-server/internal/service/listings"
	"github.com/balloonhub/marketplace-server/internal/store"
)

// ListingHandlers provides HTTP handlers for the listing catalog.
type ListingHandlers struct {
	service *listings.Service
	log     *zerolog.Logger
}

// NewListingHandlers creates a new listing handlers instance.
func NewListingHandlers(service *listings.Service, logger *zerolog.Logger) *ListingHandlers {
	return &ListingHandlers{
		service: service,
		log:     logger,
	}
}

// CreateListingRequest represents the create listing request body.
type CreateListingRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	EventType   string   `json:"eventType"`
	Colors      []string `json:"colors"`
	Images      []string `json:"images"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Address     string   `json:"address"`
	CreatorID   string   `json:"creatorId"`
	CreatorName string   `json:"creatorName"`
}

// List returns all listings, newest first.
// GET /api/listings
func (h *ListingHandlers) List(c *gin.Context) {
	all, err := h.service.List(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("failed to fetch listings")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to fetch listings"})
		return
	}

	response := make([]ListingResponse, 0, len(all))
	for _, l := range all {
		response = append(response, toListingResponse(l))
	}
	c.JSON(http.StatusOK, response)
}

// Get returns one listing.
// GET /api/listings/:id
func (h *ListingHandlers) Get(c *gin.Context) {
	id := c.Param("id")
	listing, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "listing not found"})
			return
		}
		h.log.Error().Err(err).Str("listing_id", id).Msg("failed to fetch listing")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to fetch listing"})
		return
	}
	c.JSON(http.StatusOK, toListingResponse(listing))
}

// Create adds a listing to the catalog.
// POST /api/listings
func (h *ListingHandlers) Create(c *gin.Context) {
	var req CreateListingRequest
	if !bindJSON(c, &req) {
		h.log.Debug().Msg("invalid create listing request")
		return
	}

	listing, err := h.service.Create(c.Request.Context(), listings.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		EventType:   req.EventType,
		Colors:      req.Colors,
		Images:      req.Images,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		Address:     req.Address,
		CreatorID:   req.CreatorID,
		CreatorName: req.CreatorName,
	})
	if err != nil {
		if text, ok := validationMessage(err); ok {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: text})
			return
		}
		h.log.Error().Err(err).Msg("failed to create listing")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to create listing"})
		return
	}

	h.log.Info().Str("listing_id", listing.ID).Str("event_type", listing.EventType).Msg("listing created")
	c.JSON(http.StatusCreated, toListingResponse(listing))
}

// Delete removes a listing. Existing conversations about it are kept.
// DELETE /api/listings/:id
func (h *ListingHandlers) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		h.log.Error().Err(err).Str("listing_id", id).Msg("failed to delete listing")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to delete listing"})
		return
	}
	c.Status(http.StatusNoContent)
}
