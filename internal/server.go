package internal

import (
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sispay/config"
	"sispay/entity"
	"sispay/services"
)

const (
	hostedFormRequest = "/request/:reference"
	chargeRecurring   = "/charge/:reference"
	tokenRegister     = "/token/:reference"
	paymentNotify     = "/notify"
	metricsEndpoint   = "/metrics"
)

type Server struct {
	conf       *config.Config
	httpServer *http.Server
	payments   services.Payments
	logger     services.LogHandler
}

func NewServer(conf *config.Config) *Server {

	server := Server{
		conf: conf,
	}

	// register itself as a router for httpServer handler
	router := httprouter.New()
	server.Register(router)
	server.httpServer = &http.Server{
		Handler: router,
	}

	return &server
}

func (s *Server) Register(router *httprouter.Router) {
	router.GET(hostedFormRequest, s.hostedForm)
	router.GET(chargeRecurring, s.charge)
	router.POST(tokenRegister, s.registerToken)
	router.POST(paymentNotify, s.paymentNotify)
	router.Handler("GET", metricsEndpoint, promhttp.Handler())
}

func (s *Server) SetPaymentsService(payments services.Payments) {
	s.payments = payments
}

func (s *Server) SetLogger(logger services.LogHandler) {
	s.logger = logger
}

func (s *Server) Start() error {
	if s.conf == nil {
		return fmt.Errorf("configuration not loaded")
	}

	serverAddress := fmt.Sprintf("%s:%s", s.conf.Listen.BindIP, s.conf.Listen.Port)
	listener, err := net.Listen("tcp", serverAddress)
	if err != nil {
		return err
	}

	if s.conf.Listen.TLS {
		s.logger.Info(fmt.Sprintf("starting https TLS on %s", serverAddress))
		err = s.httpServer.ServeTLS(listener, s.conf.Listen.CertFile, s.conf.Listen.KeyFile)
	} else {
		s.logger.Info(fmt.Sprintf("starting http on %s", serverAddress))
		err = s.httpServer.Serve(listener)
	}

	return err
}

// hostedForm returns the signed redirect payload for a pending transaction.
// The host renders it into a form posting to the payload's api_url.
func (s *Server) hostedForm(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx := WithRequestID(r.Context())
	reqID := GetRequestID(ctx)

	reference := ps.ByName("reference")
	if reference == "" {
		s.logger.Warn(fmt.Sprintf("[%s] empty reference", reqID))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	request, err := s.payments.BuildHostedForm(ctx, reference)
	if err != nil {
		s.logger.Error(fmt.Sprintf("[%s] build hosted form for %s", reqID, reference), err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(request); err != nil {
		s.logger.Error(fmt.Sprintf("[%s] encode response", reqID), err)
	}
}

// charge runs a synchronous merchant-initiated recurring charge.
func (s *Server) charge(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx := WithRequestID(r.Context())
	reqID := GetRequestID(ctx)

	reference := ps.ByName("reference")
	if reference == "" {
		s.logger.Warn(fmt.Sprintf("[%s] empty reference", reqID))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	transaction, err := s.payments.ChargeRecurring(ctx, reference)
	if err != nil {
		s.logger.Error(fmt.Sprintf("[%s] charge %s", reqID, reference), err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(transaction); err != nil {
		s.logger.Error(fmt.Sprintf("[%s] encode response", reqID), err)
	}
}

// registerToken stores a recurring token for later merchant-initiated charges.
// The body carries the token as JSON: identifier, txnid, optional user_id.
func (s *Server) registerToken(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx := WithRequestID(r.Context())
	reqID := GetRequestID(ctx)

	reference := ps.ByName("reference")
	if reference == "" {
		s.logger.Warn(fmt.Sprintf("[%s] empty reference", reqID))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	var token entity.RecurringToken
	if err := json.NewDecoder(r.Body).Decode(&token); err != nil {
		s.logger.Warn(fmt.Sprintf("[%s] register token: decode body", reqID))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if err := s.payments.RegisterToken(ctx, reference, &token); err != nil {
		s.logger.Error(fmt.Sprintf("[%s] register token for %s", reqID, reference), err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) paymentNotify(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx := WithRequestID(r.Context())
	reqID := GetRequestID(ctx)

	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.logger.Error(fmt.Sprintf("[%s] payment notify: get body", reqID), err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	err = s.payments.Notify(ctx, body)
	if err != nil {
		s.logger.Error(fmt.Sprintf("[%s] payment notify: process body", reqID), err)
	}
	// the gateway expects 200 even when reconciliation fails; failures are
	// logged and surfaced through the payment log
	w.WriteHeader(http.StatusOK)
}
