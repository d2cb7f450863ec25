package api

import (
	"net"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("api")

type GatewayConfig struct {
	Listener      net.Listener
	NoCors        bool
	AllowedOrigin string
	AllowedIPs    map[string]bool
	Cookie        string
	Username      string
	Password      string
	UseSSL        bool
	SSLCert       string
	SSLKey        string
}

// Gateway represents the HTTP API gateway.
type Gateway struct {
	listener net.Listener
	node     CoreIface
	handler  http.Handler
	config   *GatewayConfig
	hub      *hub
}

// NewGateway instantiates a new gateway. The wallet API is served under
// /v1/wallet and the event stream under /v1/ws.
func NewGateway(node CoreIface, config *GatewayConfig) (*Gateway, error) {
	var (
		g = &Gateway{
			node:     node,
			config:   config,
			listener: config.Listener,
			hub:      newHub(),
		}
		topMux = http.NewServeMux()
	)

	r := g.newV1Router()

	if !config.NoCors {
		r.Use(mux.CORSMethodMiddleware(r))
	}
	if config.AllowedOrigin != "" {
		r.Use(g.AllowedOriginMiddleware)
	}
	r.Use(g.AuthenticationMiddleware)

	topMux.Handle("/v1/wallet", r)
	topMux.Handle("/v1/wallet/", r)
	topMux.Handle("/v1/ws", newWebsocketHandler(g.hub))

	go g.hub.run()

	g.handler = topMux
	return g, nil
}

// NotifyWebsockets pushes the serialized event to every connected
// websocket client.
func (g *Gateway) NotifyWebsockets(message []byte) {
	g.hub.Broadcast <- message
}

// Close shuts down the Gateway listener.
func (g *Gateway) Close() error {
	return g.listener.Close()
}

// Serve begins listening on the configured address.
func (g *Gateway) Serve() error {
	log.Infof("Gateway/API server listening on %s\n", g.listener.Addr())
	var err error
	if g.config.UseSSL {
		err = http.ListenAndServeTLS(g.listener.Addr().String(), g.config.SSLCert, g.config.SSLKey, g.handler)
	} else {
		err = http.Serve(g.listener, g.handler)
	}
	return err
}

func (g *Gateway) newV1Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/v1/wallet", g.handlePOSTWallet).Methods("POST")
	r.HandleFunc("/v1/wallet", g.handleGETWallets).Methods("GET")
	r.HandleFunc("/v1/wallet/restore", g.handlePOSTRestoreWallet).Methods("POST")
	r.HandleFunc("/v1/wallet/mnemonic", g.handleGETNewMnemonic).Methods("GET")
	r.HandleFunc("/v1/wallet/{walletID}", g.handleGETWallet).Methods("GET")
	r.HandleFunc("/v1/wallet/{walletID}", g.handleDELETEWallet).Methods("DELETE")
	r.HandleFunc("/v1/wallet/{walletID}/balance", g.handleGETBalance).Methods("GET")

	r.HandleFunc("/v1/wallet/{walletID}/preparepayment", g.handlePOSTPreparePayment).Methods("POST")
	r.HandleFunc("/v1/wallet/{walletID}/pay", g.handlePOSTPay).Methods("POST")
	r.HandleFunc("/v1/wallet/{walletID}/paymentrequest", g.handlePOSTPaymentRequest).Methods("POST")
	r.HandleFunc("/v1/wallet/{walletID}/checkpayment/{pendingID}", g.handleGETCheckPayment).Methods("GET")

	r.HandleFunc("/v1/wallet/{walletID}/preparesend", g.handlePOSTPrepareSend).Methods("POST")
	r.HandleFunc("/v1/wallet/{walletID}/send", g.handlePOSTSend).Methods("POST")
	r.HandleFunc("/v1/wallet/{walletID}/receive", g.handlePOSTReceiveToken).Methods("POST")

	r.HandleFunc("/v1/wallet/{walletID}/redemptions", g.handleGETRedemptions).Methods("GET")
	r.HandleFunc("/v1/wallet/{walletID}/redeem", g.handlePOSTRedeem).Methods("POST")

	r.HandleFunc("/v1/wallet/{walletID}/transactions", g.handleGETTransactions).Methods("GET")
	r.HandleFunc("/v1/wallet/{walletID}/transactions/{transactionID}", g.handleGETTransaction).Methods("GET")

	r.HandleFunc("/v1/wallet/{walletID}/reclaim", g.handlePOSTReclaim).Methods("POST")
	r.HandleFunc("/v1/wallet/{walletID}/clean", g.handlePOSTClean).Methods("POST")
	return r
}
