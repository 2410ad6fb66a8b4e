package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/sixcities/internal/application/dto"
	"github.com/turtacn/sixcities/internal/application/service"
)

// CityHandler handles HTTP requests for cities.
type CityHandler struct {
	cities service.CityService
}

// NewCityHandler creates a new CityHandler.
func NewCityHandler(cities service.CityService) *CityHandler {
	return &CityHandler{cities: cities}
}

// List returns every city.
func (h *CityHandler) List(c *gin.Context) {
	cities, err := h.cities.Find(c.Request.Context())
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusOK, cities)
}

// Get returns one city by id.
func (h *CityHandler) Get(c *gin.Context) {
	id := c.Param("id")
	city, found, err := h.cities.FindByID(c.Request.Context(), id)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	if !found {
		dto.SendError(c, notFound("city", id))
		return
	}
	dto.SendSuccess(c, http.StatusOK, city)
}

// GetByName returns one city by name.
func (h *CityHandler) GetByName(c *gin.Context) {
	name := c.Param("name")
	city, found, err := h.cities.FindByName(c.Request.Context(), name)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	if !found {
		dto.SendError(c, notFound("city", name))
		return
	}
	dto.SendSuccess(c, http.StatusOK, city)
}

// Create adds a city.
func (h *CityHandler) Create(c *gin.Context) {
	var req dto.CreateCityRequest
	if err := bindJSON(c, &req); err != nil {
		dto.SendError(c, err)
		return
	}

	city, err := h.cities.Create(c.Request.Context(), &req)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	dto.SendSuccess(c, http.StatusCreated, city)
}

// Update applies a partial update.
func (h *CityHandler) Update(c *gin.Context) {
	var req dto.UpdateCityRequest
	if err := bindJSON(c, &req); err != nil {
		dto.SendError(c, err)
		return
	}

	id := c.Param("id")
	city, found, err := h.cities.UpdateByID(c.Request.Context(), id, &req)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	if !found {
		dto.SendError(c, notFound("city", id))
		return
	}
	dto.SendSuccess(c, http.StatusOK, city)
}

// Delete removes a city.
func (h *CityHandler) Delete(c *gin.Context) {
	id := c.Param("id")
	found, err := h.cities.DeleteByID(c.Request.Context(), id)
	if err != nil {
		dto.SendError(c, err)
		return
	}
	if !found {
		dto.SendError(c, notFound("city", id))
		return
	}
	dto.SendSuccess(c, http.StatusNoContent, nil)
}
