package api

import (
	"net/http"
	"strconv"

	"github.com/Domenick1991/travelsync/internal/domain"
	"github.com/Domenick1991/travelsync/internal/service/hotels"
	"github.com/gin-gonic/gin"
)

type HotelHandler struct {
	service hotels.HotelUseCase
}

type suggestedHotelsParams struct {
	Page      int     `form:"page"`
	PerPage   int     `form:"per_page"`
	Rating    float64 `form:"rating"`
	SortBy    string  `form:"sort_by"`
	SortOrder string  `form:"sort_order"`
}

func NewHotelHandler(service hotels.HotelUseCase) *HotelHandler {
	return &HotelHandler{service: service}
}

func (h *HotelHandler) Register(router *gin.RouterGroup) {
	router.GET("/suggested/:cityId", h.suggested)
	router.DELETE("/cache", h.clearCache)
}

func (h *HotelHandler) suggested(c *gin.Context) {
	cityID, err := strconv.ParseInt(c.Param("cityId"), 10, 64)
	if err != nil {
		badRequest(c, "invalid city id")
		return
	}
	var params suggestedHotelsParams
	if err := c.ShouldBindQuery(&params); err != nil {
		badRequest(c, err.Error())
		return
	}

	page, err := h.service.Suggested(c.Request.Context(), domain.SuggestedHotelsQuery{
		CityID:    cityID,
		Page:      params.Page,
		PerPage:   params.PerPage,
		Rating:    params.Rating,
		SortBy:    params.SortBy,
		SortOrder: params.SortOrder,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *HotelHandler) clearCache(c *gin.Context) {
	h.service.ClearCache()
	c.Status(http.StatusNoContent)
}
