package handlers

import (
	"github.com/gofiber/fiber/v2"

	"phrasevid/errors"
)

type searchRequest struct {
	Phrase string `json:"phrase"`
	Exact  bool   `json:"exact"`
}

// Search answers phrase queries. An empty phrase with exact=false is a
// legitimate match-everything query, not an error.
func (h *VideoHandler) Search(c *fiber.Ctx) error {
	const op = "VideoHandler.Search"

	var req searchRequest
	if err := c.BodyParser(&req); err != nil {
		return errors.InvalidInput(op, err, "invalid search request body")
	}

	results, err := h.search.Search(c.Context(), req.Phrase, req.Exact)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"results": results,
	})
}
