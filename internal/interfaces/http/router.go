package http

import (
	"github.com/gofiber/fiber/v2"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Companies *CompanyHandler
	Invoices  *InvoiceHandler
	Payments  *PaymentHandler
	Verifactu *VerifactuHandler
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Alta de empresa (sin tenant previo; X-Tenant-DB opcional)
	api.Post("/companies", deps.Companies.Create)

	// Rutas del tenant (X-Company-ID)
	tenant := api.Group("/", TenantMiddleware())

	tenant.Get("/company", deps.Companies.Current)
	tenant.Post("/clients", deps.Companies.CreateClient)
	tenant.Get("/clients/:id", deps.Companies.GetClient)

	// Invoices
	invoices := tenant.Group("/invoices")
	invoices.Post("/", deps.Invoices.Create)
	invoices.Post("/bulk", deps.Invoices.Bulk)
	invoices.Get("/:id", deps.Invoices.GetByID)
	invoices.Delete("/:id", deps.Invoices.Delete)
	invoices.Post("/:id/mark-sent", deps.Invoices.MarkSent)
	invoices.Post("/:id/cancel", deps.Invoices.Cancel)
	invoices.Post("/:id/reverse", deps.Invoices.Reverse)
	invoices.Post("/:id/rectify", deps.Invoices.Rectify)
	invoices.Post("/:id/restore", deps.Invoices.Restore)
	invoices.Post("/:id/verifactu", deps.Verifactu.Submit)
	invoices.Get("/:id/pdf", deps.Verifactu.PDF)

	// Payments
	payments := tenant.Group("/payments")
	payments.Post("/", deps.Payments.Apply)
	payments.Post("/:id/refund", deps.Payments.Refund)
	payments.Delete("/:id", deps.Payments.Delete)

	// Verifactu e informes
	tenant.Get("/verifactu/chain", deps.Verifactu.Chain)
	tenant.Get("/reports/tax", deps.Verifactu.TaxReport)
}
