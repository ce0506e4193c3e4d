package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Area returns a handler that reports which protected area the caller
// reached. Front-ends use these probes to test a role gate.
//
// @Summary      Role-gated access probe
// @Tags         access
// @Produce      json
// @Security     CookieAuth
// @Security     BearerAuth
// @Param        area  path      string  true  "Area"  Enums(buyer, seller, admin, trade)
// @Success      200   {object}  accessResponse
// @Failure      401   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Router       /access/{area} [get]
func Area(area string) echo.HandlerFunc {
	return func(c echo.Context) error {
		me, err := currentIdentity(c)
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, accessResponse{Role: string(me.Role), Area: area})
	}
}
