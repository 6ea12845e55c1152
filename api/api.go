package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/jinzhu/gorm"
	"github.com/netlify/netlify-commons/graceful"
	"github.com/pborman/uuid"
	"github.com/pkg/errors"
	"github.com/rs/cors"
	"github.com/sebest/xff"
	"github.com/sirupsen/logrus"

	"github.com/studymall/studymall/assetstores"
	"github.com/studymall/studymall/conf"
	gcontext "github.com/studymall/studymall/context"
	"github.com/studymall/studymall/mailer"
)

const defaultVersion = "unknown version"

// API is the main REST API
type API struct {
	handler    http.Handler
	db         *gorm.DB
	config     *conf.Configuration
	version    string
	strategies []identityStrategy
}

// ListenAndServe starts the REST API.
func (a *API) ListenAndServe(hostAndPort string) {
	log := logrus.WithField("component", "api")
	server := graceful.NewGracefulServer(a.handler, log)
	if err := server.Bind(hostAndPort); err != nil {
		log.WithError(err).Fatal("http server bind failed")
	}

	if err := server.Listen(); err != nil {
		log.WithError(err).Fatal("http server listen failed")
	}
}

// NewAPI instantiates a new REST API using the default version.
func NewAPI(config *conf.Configuration, db *gorm.DB) *API {
	return NewAPIWithVersion(config, db, defaultVersion)
}

// NewAPIWithVersion instantiates a new REST API.
func NewAPIWithVersion(config *conf.Configuration, db *gorm.DB, version string) *API {
	ctx, err := setupContext(context.Background(), config)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to prepare API context")
	}

	return newAPIWithContext(ctx, config, db, version)
}

func newAPIWithContext(ctx context.Context, config *conf.Configuration, db *gorm.DB, version string) *API {
	api := &API{
		config:  config,
		db:      db,
		version: version,
	}
	api.strategies = api.identityStrategies()

	xffmw, _ := xff.Default()

	r := newRouter()
	r.Use(withRequestID)
	r.UseBypass(xffmw.Handler)
	r.UseBypass(newStructuredLogger(logrus.StandardLogger()))
	r.UseBypass(recoverer)
	r.Use(api.withIdentity)

	// endpoints
	r.Get("/", api.Index)
	r.Get("/health", api.HealthCheck)

	r.Route("/products", api.productRoutes)
	r.Route("/orders", api.orderRoutes)
	r.Route("/users", api.userRoutes)

	r.With(authRequired).Get("/purchases", api.PurchaseList)

	r.Route("/downloads", func(r *router) {
		r.Route("/{product_id}", func(r *router) {
			r.Use(authRequired)
			r.Use(api.withProductID)
			r.Get("/", api.DownloadURL)
		})
	})

	r.Post("/verifications", api.VerificationCreate)
	r.Post("/signup", api.Signup)
	r.Post("/login", api.Login)
	r.With(authRequired).Post("/logout", api.Logout)

	r.Route("/payments", func(r *router) {
		r.Use(adminRequired)

		r.Get("/", api.PaymentList)
		r.Route("/{payment_id}", func(r *router) {
			r.Get("/", api.PaymentView)
			r.With(addGetBody).Post("/refund", api.PaymentRefund)
		})
	})

	r.Route("/reports", func(r *router) {
		r.Use(adminRequired)

		r.Get("/sales", api.SalesReport)
		r.Get("/products", api.ProductsReport)
	})

	corsHandler := cors.New(cors.Options{
		AllowedMethods:   []string{"GET", "POST", "PATCH", "PUT", "DELETE"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "X-Total-Count"},
		AllowCredentials: true,
	})

	api.handler = corsHandler.Handler(chi.ServerBaseContext(r, ctx))

	return api
}

func (a *API) productRoutes(r *router) {
	r.Get("/", a.ProductList)
	r.With(adminRequired).Post("/", a.ProductCreate)

	r.Route("/{product_id}", func(r *router) {
		r.Use(a.withProductID)
		r.Get("/", a.ProductView)
		r.With(adminRequired).Put("/", a.ProductUpdate)
		r.With(adminRequired).Delete("/", a.ProductDeactivate)
	})
}

func (a *API) orderRoutes(r *router) {
	r.With(authRequired).Get("/", a.OrderList)
	r.With(authRequired).Post("/", a.OrderCreate)

	r.Route("/{order_id}", func(r *router) {
		r.Use(a.withOrderID)
		r.With(authRequired).Get("/", a.OrderView)

		r.Route("/payments", func(r *router) {
			r.With(authRequired).With(addGetBody).Post("/", a.PaymentCreate)
			r.With(adminRequired).Get("/", a.PaymentListForOrder)
		})
	})
}

func (a *API) userRoutes(r *router) {
	r.Use(adminRequired)

	r.Get("/", a.UserList)
	r.Route("/{user_id}", func(r *router) {
		r.Get("/", a.UserView)
		r.Delete("/", a.UserDelete)
	})
}

func withRequestID(w http.ResponseWriter, r *http.Request) (context.Context, error) {
	id := uuid.NewRandom().String()
	ctx := r.Context()
	ctx = gcontext.WithRequestID(ctx, id)
	return ctx, nil
}

func setupContext(ctx context.Context, config *conf.Configuration) (context.Context, error) {
	ctx = gcontext.WithConfig(ctx, config)
	ctx = gcontext.WithMailer(ctx, mailer.NewMailer(config))

	store, err := assetstores.NewStore(config)
	if err != nil {
		return nil, errors.Wrap(err, "Error initializing asset store")
	}
	ctx = gcontext.WithAssetStore(ctx, store)

	provs, err := createPaymentProviders(config)
	if err != nil {
		return nil, errors.Wrap(err, "Error creating payment providers")
	}
	ctx = gcontext.WithPaymentProviders(ctx, provs)

	return ctx, nil
}
