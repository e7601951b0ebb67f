package server

import (
	"errors"
	"strings"
	"unicode"

	"revline/internal/models"

	"github.com/gofiber/fiber/v2"
)

// errResponseWritten means a helper already sent the 400. Handlers return nil
// on it so the app ErrorHandler does not write a second body.
var errResponseWritten = errors.New("response already written")

const maxPaginationLimit = 100

// Pagination is a clamped limit/offset pair from the query string.
type Pagination struct {
	Limit  int
	Offset int
}

func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	p := Pagination{
		Limit:  c.QueryInt("limit", defaultLimit),
		Offset: max(c.QueryInt("offset", 0), 0),
	}
	if p.Limit <= 0 {
		p.Limit = defaultLimit
	}
	p.Limit = min(p.Limit, maxPaginationLimit)
	return p
}

// parseID reads a positive integer path parameter. A bad value gets a 400
// naming the parameter, e.g. "Invalid project ID" for projectId.
func (s *Server) parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err == nil && id > 0 {
		return uint(id), nil
	}
	_ = models.RespondWithError(c, fiber.StatusBadRequest,
		models.NewValidationError("Invalid "+humanizeParam(param)))
	return 0, errResponseWritten
}

// humanizeParam turns "id" into "ID" and "buildPartId" into "build part ID".
func humanizeParam(param string) string {
	if param == "id" {
		return "ID"
	}
	stem, ok := strings.CutSuffix(param, "Id")
	if !ok {
		return param
	}
	var b strings.Builder
	for i, r := range stem {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte(' ')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String() + " ID"
}

// currentUserID is the identity AuthRequired stored on the request, or 0.
func currentUserID(c *fiber.Ctx) uint {
	id, _ := c.Locals("userID").(uint)
	return id
}

func parseBody(c *fiber.Ctx, dest any) error {
	if err := c.BodyParser(dest); err == nil {
		return nil
	}
	_ = models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Invalid request body"))
	return errResponseWritten
}
