package server

import (
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"github.com/keyfold/keyfold/pkg/keyfold"
	"github.com/keyfold/keyfold/pkg/notify"
	"github.com/keyfold/keyfold/pkg/server/middleware"
	"github.com/keyfold/keyfold/pkg/server/store"
	storegorm "github.com/keyfold/keyfold/pkg/server/store/gorm"
	"github.com/keyfold/keyfold/pkg/session"
)

type Server struct {
	Cipher    *keyfold.AtRestCipher
	Authority *session.Authority
	Router    *mux.Router
	DB        *gorm.DB
	Notifier  notify.Notifier

	AccountsStore store.AccountsStore
	DevicesStore  store.DevicesStore
	VaultsStore   store.VaultsStore
	SecretsStore  store.SecretsStore

	SessionMiddleware *middleware.SessionAuthenticator
	DeviceMiddleware  *middleware.DeviceAuthorizer

	srv *http.Server
}

func NewServer(
	cipher *keyfold.AtRestCipher,
	authority *session.Authority,
	db *gorm.DB,
	notifier notify.Notifier,
	host string,
	port string,
) *Server {

	router := mux.NewRouter().UseEncodedPath()
	srv := &http.Server{
		Handler: handlers.LoggingHandler(os.Stdout, router),
		Addr:    host + ":" + port,
		// Good practice: enforce timeouts for servers you create!
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
	}

	accounts := storegorm.NewAccountsStore(db)
	devices := storegorm.NewDevicesStore(db)

	return &Server{
		Cipher:    cipher,
		Authority: authority,
		Router:    router,
		DB:        db,
		Notifier:  notifier,

		AccountsStore: accounts,
		DevicesStore:  devices,
		VaultsStore:   storegorm.NewVaultsStore(db),
		SecretsStore:  storegorm.NewSecretsStore(db),

		SessionMiddleware: middleware.NewSessionAuthenticator(authority, accounts),
		DeviceMiddleware:  middleware.NewDeviceAuthorizer(devices),

		srv: srv,
	}
}

func (s Server) Start() error {
	return s.srv.ListenAndServe()
}
