package router

import (
	"github.com/edumahmoud/try-meeza-crm/internal/interfaces/http/handler"
)

// Handlers groups the API handlers served under /api/v1
type Handlers struct {
	Items     *handler.ItemHandler
	Sales     *handler.SaleHandler
	Purchases *handler.PurchaseHandler
	Suppliers *handler.SupplierHandler
	Admin     *handler.AdminHandler
	System    *handler.SystemHandler
}

// RegisterLedger adds the ledger route groups to r
func RegisterLedger(r *Router, h Handlers) *Router {
	items := NewDomainGroup("items", "/items")
	items.GET("", h.Items.List).
		POST("", h.Items.Create).
		DELETE("/bin", h.Items.EmptyBin).
		GET("/:id", h.Items.Get).
		PATCH("/:id", h.Items.Update).
		DELETE("/:id", h.Items.Delete).
		POST("/:id/restore", h.Items.Restore)

	stock := NewDomainGroup("stock", "/stock")
	stock.POST("/receive", h.Items.Receive).
		POST("/deduct", h.Items.Deduct).
		POST("/restock", h.Items.Restock)

	sales := NewDomainGroup("sales", "/sales")
	sales.GET("", h.Sales.List).
		POST("", h.Sales.Create).
		DELETE("/bin", h.Sales.EmptyBin).
		GET("/:id", h.Sales.Get).
		DELETE("/:id", h.Sales.Delete).
		POST("/:id/restore", h.Sales.Restore).
		GET("/:id/returnable", h.Sales.Returnable)

	saleReturns := NewDomainGroup("sale-returns", "/sale-returns")
	saleReturns.GET("", h.Sales.ListReturns).
		POST("", h.Sales.CreateReturn).
		DELETE("/bin", h.Sales.EmptyReturnBin).
		DELETE("/:id", h.Sales.DeleteReturn).
		POST("/:id/restore", h.Sales.RestoreReturn)

	purchases := NewDomainGroup("purchases", "/purchases")
	purchases.GET("", h.Purchases.List).
		POST("", h.Purchases.Create).
		GET("/:id", h.Purchases.Get).
		POST("/:id/return", h.Purchases.Return).
		POST("/:id/restore", h.Purchases.Restore)

	suppliers := NewDomainGroup("suppliers", "/suppliers")
	suppliers.GET("", h.Suppliers.List).
		POST("", h.Suppliers.Create).
		GET("/:id", h.Suppliers.Get).
		PUT("/:id", h.Suppliers.Update).
		DELETE("/:id", h.Suppliers.Delete).
		POST("/:id/restore", h.Suppliers.Restore).
		GET("/:id/statement", h.Suppliers.Statement).
		POST("/:id/settle-credit", h.Suppliers.SettleCredit)

	payments := NewDomainGroup("payments", "/payments")
	payments.GET("", h.Suppliers.ListPayments).
		POST("", h.Suppliers.RecordPayment)

	admin := NewDomainGroup("admin", "/admin")
	admin.POST("/verify", h.Admin.Verify).
		GET("/export", h.Admin.Export).
		POST("/import", h.Admin.Import).
		GET("/collections", h.Admin.Collections)

	system := NewDomainGroup("system", "/system")
	system.GET("/info", h.System.GetSystemInfo)

	return r.Register(items).
		Register(stock).
		Register(sales).
		Register(saleReturns).
		Register(purchases).
		Register(suppliers).
		Register(payments).
		Register(admin).
		Register(system)
}
