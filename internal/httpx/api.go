package httpx

import (
	"context"

	"github.com/ariefcatur/go-digital-orders/internal/audit"
	"github.com/ariefcatur/go-digital-orders/internal/catalog"
	"github.com/ariefcatur/go-digital-orders/internal/delivery"
	"github.com/ariefcatur/go-digital-orders/internal/notify"
	"github.com/ariefcatur/go-digital-orders/internal/orders"
	"github.com/ariefcatur/go-digital-orders/internal/payments"
	"github.com/ariefcatur/go-digital-orders/internal/redisx"
	"github.com/go-chi/chi/v5"
)

type Purchaser interface {
	CreatePurchase(ctx context.Context, userID, productID string) (orders.Receipt, error)
}

type Reconciler interface {
	ReconcileCallback(ctx context.Context, ref string, outcome payments.Outcome, payload []byte) (orders.PaymentStatus, error)
}

type Deliverer interface {
	Deliver(ctx context.Context, purchaseID string, req delivery.Request) (delivery.Result, error)
	Artifact(ctx context.Context, purchaseID string) (orders.Purchase, []byte, error)
}

type Catalog interface {
	Get(ctx context.Context, id string) (catalog.Product, error)
	ListActive(ctx context.Context) ([]catalog.Product, error)
	ListAll(ctx context.Context) ([]catalog.Product, error)
	Create(ctx context.Context, p catalog.Product) (catalog.Product, error)
	Update(ctx context.Context, id string, patch catalog.Patch) (catalog.Product, error)
	Remove(ctx context.Context, id string) (bool, error)
}

type Notifications interface {
	Send(ctx context.Context, t notify.Target, m notify.Message) (notify.SendResult, error)
	List(ctx context.Context, userID string, opt notify.ListOptions) (notify.Page, error)
	MarkRead(ctx context.Context, userID, id string) error
	MarkAllRead(ctx context.Context, userID string) (int, error)
	Delete(ctx context.Context, userID, id string) error
	AdminList(ctx context.Context, f notify.AdminFilter) (notify.Page, error)
	AdminDelete(ctx context.Context, id string) error
}

type Settings interface {
	AutoDeliver(ctx context.Context) (bool, error)
	SetAutoDeliver(ctx context.Context, actor string, on bool) error
}

type AuditLog interface {
	List(ctx context.Context, subject string, limit int) ([]audit.Entry, error)
}

type StatusCache interface {
	Get(ctx context.Context, ref string) (redisx.PaymentStatus, bool)
	Put(ctx context.Context, ps redisx.PaymentStatus)
}

// API wires the lifecycle engine to HTTP.
type API struct {
	Ledger        Purchaser
	Reconciler    Reconciler
	Delivery      Deliverer
	Purchases     orders.Store
	Catalog       Catalog
	Notifications Notifications
	Settings      Settings
	Audit         AuditLog
	StatusCache   StatusCache // optional
	JWTSecret     string
	PaymentURL    string
}

func (a *API) Register(r chi.Router) {
	r.Get("/products", a.listProducts)
	r.Get("/products/{id}", a.getProduct)
	r.Post("/payments/callback", a.paymentCallback)

	r.Group(func(r chi.Router) {
		r.Use(Authenticate(a.JWTSecret))

		r.Post("/purchases", a.createPurchase)
		r.Get("/purchases", a.listPurchases)
		r.Get("/purchases/{id}", a.getPurchase)
		r.Post("/purchases/{id}/deliver", a.deliverOwn)
		r.Get("/purchases/{id}/artifact", a.downloadArtifact)
		r.Get("/payments/{ref}", a.paymentStatus)

		r.Get("/notifications", a.listNotifications)
		r.Put("/notifications/read-all", a.markAllRead)
		r.Put("/notifications/{id}/read", a.markRead)
		r.Delete("/notifications/{id}", a.deleteNotification)

		r.Route("/admin", func(r chi.Router) {
			r.Use(RequireAdmin)
			r.Get("/products", a.adminListProducts)
			r.Post("/products", a.adminCreateProduct)
			r.Put("/products/{id}", a.adminUpdateProduct)
			r.Delete("/products/{id}", a.adminRemoveProduct)

			r.Post("/notifications", a.adminSendNotification)
			r.Get("/notifications", a.adminListNotifications)
			r.Delete("/notifications/{id}", a.adminDeleteNotification)

			r.Get("/settings/auto-deliver", a.getAutoDeliver)
			r.Put("/settings/auto-deliver", a.setAutoDeliver)

			r.Post("/purchases/{id}/deliver", a.adminDeliver)
			r.Get("/payments", a.adminListPayments)
			r.Get("/audit", a.adminAudit)
		})
	})
}
