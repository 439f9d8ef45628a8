package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/runeterra-roulette/backend/internal/database"
	"github.com/runeterra-roulette/backend/internal/models"
	"github.com/runeterra-roulette/backend/internal/services"
)

// CardService is the query side used by CardHandler.
type CardService interface {
	ServeCards(ctx context.Context, filter models.RequestFilter) ([]models.CardResponse, error)
	CollectionVersion(ctx context.Context) (string, error)
}

type CardHandler struct {
	cardService CardService
}

func NewCardHandler(cardService CardService) *CardHandler {
	return &CardHandler{cardService: cardService}
}

// GetCards serves GET /cards. Region and rarity flags select the pool and
// count, when set, caps the number of randomly picked cards.
func (h *CardHandler) GetCards(c *gin.Context) {
	params := make(map[string]string)
	for key, values := range c.Request.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}

	filter, err := services.BuildRequestFilter(params)
	if err != nil {
		if errors.Is(err, services.ErrInvalidParameter) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	cards, err := h.cardService.ServeCards(c.Request.Context(), filter)
	if err != nil {
		log.Printf("Failed to serve cards: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to query cards"})
		return
	}

	c.JSON(http.StatusOK, cards)
}

// GetVersion serves GET /version with the data release the stored cards
// came from.
func (h *CardHandler) GetVersion(c *gin.Context) {
	version, err := h.cardService.CollectionVersion(c.Request.Context())
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "collection version not set"})
			return
		}
		log.Printf("Failed to read collection version: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read collection version"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"version": version})
}
