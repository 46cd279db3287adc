package router

import (
	"net/http"

	"github.com/autoshop/billing/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
)

// Setup wires the API routes onto a gin engine
func Setup(engine *gin.Engine, invoices *handler.InvoiceHandler) {
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := engine.Group("/api/v1")
	{
		api.GET("/invoices", invoices.ListInvoices)
		api.GET("/invoices/:id", invoices.GetInvoice)
		api.GET("/invoices/:id/payments", invoices.ListPayments)
		api.POST("/invoices/:id/payments", invoices.CreatePayment)
		api.GET("/projects/:projectId/invoice", invoices.GetProjectInvoice)
	}
}
