package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/sixcities/internal/application/dto"
	"github.com/turtacn/sixcities/internal/application/service"
	"github.com/turtacn/sixcities/internal/domain/models"
	"github.com/turtacn/sixcities/pkg/errors"
)

// OfferHandler handles HTTP requests for offers and favorites.
// OfferHandler 处理房源与收藏相关的 HTTP 请求。
type OfferHandler struct {
	offers service.OfferService
}

// NewOfferHandler creates a new OfferHandler.
func NewOfferHandler(offers service.OfferService) *OfferHandler {
	return &OfferHandler{offers: offers}
}

// List returns the newest offers, ?limit= bounded.
func (h *OfferHandler) List(c *gin.Context) {
	limit, err := queryLimit(c)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	offers, err := h.offers.Find(c.Request.Context(), limit)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, offers)
}

// ListByCity returns the newest offers of a city.
func (h *OfferHandler) ListByCity(c *gin.Context) {
	limit, err := queryLimit(c)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	offers, err := h.offers.FindByCity(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, offers)
}

// Premium returns the premium offers of a city.
func (h *OfferHandler) Premium(c *gin.Context) {
	offers, err := h.offers.FindPremium(c.Request.Context(), c.Param("id"))
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, offers)
}

// Get returns one offer.
func (h *OfferHandler) Get(c *gin.Context) {
	id := c.Param("id")
	offer, found, err := h.offers.FindByID(c.Request.Context(), id)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	if !found {
		dto.SendError(c, notFound("offer", id))
		return
	}
	dto.SendSuccess(c, http.StatusOK, offer)
}

// Create lists a new offer hosted by the caller.
func (h *OfferHandler) Create(c *gin.Context) {
	sub, err := principal(c)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	var req dto.CreateOfferRequest
	if err := bindJSON(c, &req); err != nil {
		dto.SendError(c, err)
		return
	}
	req.HostID = sub

	offer, err := h.offers.Create(c.Request.Context(), &req)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusCreated, offer)
}

// Update edits an offer owned by the caller.
func (h *OfferHandler) Update(c *gin.Context) {
	var req dto.UpdateOfferRequest
	if err := bindJSON(c, &req); err != nil {
		dto.SendError(c, err)
		return
	}
	offer, err := h.owned(c)
	if err != nil {
		dto.SendError(c, err)
		return
	}

	updated, found, err := h.offers.UpdateByID(c.Request.Context(), offer.ID, &req)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	if !found {
		dto.SendError(c, notFound("offer", offer.ID))
		return
	}
	dto.SendSuccess(c, http.StatusOK, updated)
}

// Delete removes an offer owned by the caller.
func (h *OfferHandler) Delete(c *gin.Context) {
	offer, err := h.owned(c)
	if err != nil {
		dto.SendError(c, err)
		return
	}

	found, err := h.offers.DeleteByID(c.Request.Context(), offer.ID)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	if !found {
		dto.SendError(c, notFound("offer", offer.ID))
		return
	}
	dto.SendSuccess(c, http.StatusNoContent, nil)
}

// owned loads the :id offer and checks the caller hosts it.
func (h *OfferHandler) owned(c *gin.Context) (*models.Offer, error) {
	sub, err := principal(c)
	if err != nil {
		return nil, err
	}
	id := c.Param("id")
	offer, found, err := h.offers.FindByID(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, notFound("offer", id)
	}
	if offer.HostID != sub {
		return nil, errors.ErrForbidden.WithMessage("offer %q belongs to another host", id)
	}
	return offer, nil
}

// Favorites returns the caller's favorite offers.
func (h *OfferHandler) Favorites(c *gin.Context) {
	sub, err := principal(c)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	offers, err := h.offers.FindFavorites(c.Request.Context(), sub)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, offers)
}

// AddFavorite saves :id to the caller's favorites.
func (h *OfferHandler) AddFavorite(c *gin.Context) {
	sub, err := principal(c)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	if err := h.offers.AddFavorite(c.Request.Context(), sub, c.Param("id")); err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusNoContent, nil)
}

// RemoveFavorite drops :id from the caller's favorites.
func (h *OfferHandler) RemoveFavorite(c *gin.Context) {
	sub, err := principal(c)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	id := c.Param("id")
	found, err := h.offers.RemoveFavorite(c.Request.Context(), sub, id)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	if !found {
		dto.SendError(c, notFound("favorite", id))
		return
	}
	dto.SendSuccess(c, http.StatusNoContent, nil)
}
