package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/invorya-ledger/internal/application/dto"
	"github.com/jhoicas/invorya-ledger/internal/domain/entity"
)

// Cabeceras y Locals del tenant.
const (
	HeaderCompanyID = "X-Company-ID"
	HeaderTenantDB  = "X-Tenant-DB"
	LocalTenant     = "tenant"
)

// TenantMiddleware resuelve el tenant explícito de la petición. La autenticación queda fuera de este servicio.
func TenantMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		companyID := strings.TrimSpace(c.Get(HeaderCompanyID))
		if companyID == "" {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_TENANT", Message: HeaderCompanyID + " requerido"})
		}
		c.Locals(LocalTenant, entity.Tenant{CompanyID: companyID, DB: strings.TrimSpace(c.Get(HeaderTenantDB))})
		return c.Next()
	}
}

// GetTenant devuelve el tenant del contexto (después de TenantMiddleware).
func GetTenant(c *fiber.Ctx) entity.Tenant {
	t, _ := c.Locals(LocalTenant).(entity.Tenant)
	return t
}
