package api

import (
	"net/http"
	"strconv"

	"github.com/Domenick1991/travelsync/internal/domain"
	"github.com/Domenick1991/travelsync/internal/service/favorites"
	"github.com/gin-gonic/gin"
)

type FavoriteHandler struct {
	service favorites.FavoritesUseCase
}

type favoriteResponse struct {
	Kind     domain.FavoriteKind `json:"kind"`
	ID       int64               `json:"id"`
	Favorite bool                `json:"favorite"`
}

func NewFavoriteHandler(service favorites.FavoritesUseCase) *FavoriteHandler {
	return &FavoriteHandler{service: service}
}

func (h *FavoriteHandler) Register(router *gin.RouterGroup) {
	router.POST("/:kind/:id", h.toggle)
	router.GET("/:kind", h.list)
}

func (h *FavoriteHandler) toggle(c *gin.Context) {
	kind, err := domain.ParseFavoriteKind(c.Param("kind"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, "invalid id")
		return
	}

	favorite, err := h.service.Toggle(c.Request.Context(), kind, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, favoriteResponse{Kind: kind, ID: id, Favorite: favorite})
}

func (h *FavoriteHandler) list(c *gin.Context) {
	kind, err := domain.ParseFavoriteKind(c.Param("kind"))
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"kind": kind, "ids": h.service.List(kind)})
}
