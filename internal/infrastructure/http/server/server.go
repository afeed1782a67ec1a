package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/resexchange/marketplace/internal/application/commands"
	"github.com/resexchange/marketplace/internal/application/ports"
	"github.com/resexchange/marketplace/internal/application/queries"
	"github.com/resexchange/marketplace/internal/application/use_cases"
	"github.com/resexchange/marketplace/internal/config"
	"github.com/resexchange/marketplace/internal/infrastructure/geocoding"
	"github.com/resexchange/marketplace/internal/infrastructure/http/handlers"
	"github.com/resexchange/marketplace/internal/infrastructure/mailer"
	"github.com/resexchange/marketplace/internal/infrastructure/payment/paypal"
	"github.com/resexchange/marketplace/internal/infrastructure/persistence/postgres"
	"github.com/resexchange/marketplace/internal/infrastructure/persistence/redis"
	"github.com/resexchange/marketplace/internal/pkg/logger"
)

type Server struct {
	server *http.Server
	logger *logger.Logger

	healthHandler   *handlers.HealthHandler
	listingHandler  *handlers.ListingHandler
	cartHandler     *handlers.CartHandler
	checkoutHandler *handlers.CheckoutHandler
	chatHandler     *handlers.ChatHandler
}

func NewServer(
	cfg *config.Config,
	conn *postgres.Connection,
	redisConn *redis.Connection,
	notifier ports.Notifier,
	log *logger.Logger,
) *Server {
	listingRepo := postgres.NewListingRepository(conn)
	checkoutRepo := postgres.NewCheckoutRepository(conn)
	chatRepo := postgres.NewChatRepository(conn)
	userRepo := postgres.NewUserRepository(conn)

	cache := redis.NewCache(redisConn, log)
	cartStore := redis.NewCartStore(redisConn, cfg.Session.CartTTL())

	gateway := paypal.NewClient(paypal.Config{
		BaseURL:      cfg.PayPal.BaseURL,
		ClientID:     cfg.PayPal.ClientID,
		ClientSecret: cfg.PayPal.ClientSecret,
	}, log)

	geocoder := geocoding.NewNominatimGeocoder(geocoding.Config{
		BaseURL:   cfg.Geocoding.BaseURL,
		UserAgent: cfg.Geocoding.UserAgent,
	}, log)

	mail := mailer.NewMailer(mailer.Config{
		Host:     cfg.Mailer.Host,
		Port:     cfg.Mailer.Port,
		Username: cfg.Mailer.Username,
		Password: cfg.Mailer.Password,
		From:     cfg.Mailer.From,
	})

	checkoutUseCase := use_cases.NewCheckoutUseCase(
		listingRepo,
		checkoutRepo,
		cartStore,
		gateway,
		cache,
		notifier,
		mail,
		userRepo,
		log,
		use_cases.CheckoutConfig{
			BaseCurrency: cfg.Checkout.BaseCurrency,
			SuccessURL:   cfg.Checkout.SuccessURL,
			CancelURL:    cfg.Checkout.CancelURL,
		},
	)

	listingHandler := handlers.NewListingHandler(
		listingRepo,
		commands.NewCreateListingHandler(listingRepo, userRepo, geocoder, log),
		commands.NewUpdateListingHandler(listingRepo, log),
		commands.NewDeleteListingHandler(listingRepo, chatRepo, log),
		commands.NewBookmarkHandler(listingRepo, notifier, log),
		commands.NewRemoveBookmarkHandler(listingRepo),
		queries.NewSearchListingsHandler(listingRepo, cfg.Search.PageSize),
		log,
	)
	cartHandler := handlers.NewCartHandler(
		cartStore,
		commands.NewAddToCartHandler(cartStore, listingRepo, cache, log),
		commands.NewRemoveFromCartHandler(cartStore),
		log,
	)
	checkoutHandler := handlers.NewCheckoutHandler(checkoutUseCase, cache, log)
	chatHandler := handlers.NewChatHandler(
		commands.NewOpenChatHandler(chatRepo, listingRepo, notifier, log),
		chatRepo,
		log,
	)
	healthHandler := handlers.NewHealthHandler(conn.GetDB(), redisConn.GetClient(), log)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		server:          server,
		logger:          log,
		healthHandler:   healthHandler,
		listingHandler:  listingHandler,
		cartHandler:     cartHandler,
		checkoutHandler: checkoutHandler,
		chatHandler:     chatHandler,
	}
}

func (s *Server) ListenAndServe() error {
	s.server.Handler = s.setupRoutes()

	s.logger.Info("Starting HTTP server", "address", s.server.Addr)

	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}
