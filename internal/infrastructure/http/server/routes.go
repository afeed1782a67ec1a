package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/resexchange/marketplace/internal/infrastructure/http/middleware"
	"github.com/resexchange/marketplace/internal/infrastructure/monitoring"
)

func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", s.healthHandler.HandleHealth())

	mux.HandleFunc("/api/v1/listings", s.handleListingCollection)
	mux.HandleFunc("/api/v1/listings/", s.handleListingRoutes)
	mux.HandleFunc("/api/v1/materials", s.listingHandler.HandleMaterials)

	mux.HandleFunc("/api/v1/cart", s.handleCart)
	mux.HandleFunc("/api/v1/cart/items", s.cartHandler.HandleAdd)
	mux.HandleFunc("/api/v1/cart/items/", s.handleCartItem)

	mux.HandleFunc("/api/v1/checkout", s.checkoutHandler.HandleBegin)
	mux.HandleFunc("/api/v1/checkout/success", s.checkoutHandler.HandleSuccess)
	mux.HandleFunc("/api/v1/checkout/cancel", s.checkoutHandler.HandleCancel)
	mux.HandleFunc("/api/v1/checkout/currency", s.checkoutHandler.HandleCurrency)

	mux.HandleFunc("/api/v1/chats", s.handleChatCollection)
	mux.HandleFunc("/api/v1/chats/", s.handleChatRoutes)

	handler := middleware.NewRecoveryMiddleware(s.logger)(mux)
	handler = middleware.NewLoggingMiddleware(s.logger)(handler)
	handler = monitoring.WrapHandler(handler)
	handler = s.corsMiddleware(handler)
	handler = s.timeoutMiddleware(handler)

	return handler
}

func (s *Server) handleListingCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listingHandler.HandleSearch(w, r)
	case http.MethodPost:
		s.listingHandler.HandleCreate(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleListingRoutes(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/listings/")
	parts := strings.Split(path, "/")

	if len(parts) == 1 && parts[0] != "" {
		switch r.Method {
		case http.MethodGet:
			s.listingHandler.HandleGet(w, r, parts[0])
		case http.MethodPut:
			s.listingHandler.HandleUpdate(w, r, parts[0])
		case http.MethodDelete:
			s.listingHandler.HandleDelete(w, r, parts[0])
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	if len(parts) == 2 && parts[1] == "bookmark" {
		switch r.Method {
		case http.MethodPost, http.MethodDelete:
			s.listingHandler.HandleBookmark(w, r, parts[0])
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	http.NotFound(w, r)
}

func (s *Server) handleCart(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.cartHandler.HandleGet(w, r)
	case http.MethodDelete:
		s.cartHandler.HandleClear(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleCartItem(w http.ResponseWriter, r *http.Request) {
	listingID := strings.TrimPrefix(r.URL.Path, "/api/v1/cart/items/")
	if listingID == "" || r.Method != http.MethodDelete {
		http.NotFound(w, r)
		return
	}
	s.cartHandler.HandleRemove(w, r, listingID)
}

func (s *Server) handleChatCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.chatHandler.HandleList(w, r)
	case http.MethodPost:
		s.chatHandler.HandleOpen(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleChatRoutes(w http.ResponseWriter, r *http.Request) {
	chatID := strings.TrimPrefix(r.URL.Path, "/api/v1/chats/")
	if chatID == "" || r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	s.chatHandler.HandleGet(w, r, chatID)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-Session-ID, X-User-ID")
		w.Header().Set("Access-Control-Max-Age", "300")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) timeoutMiddleware(next http.Handler) http.Handler {
	return http.TimeoutHandler(next, 90*time.Second, "Request timeout")
}
