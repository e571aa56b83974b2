package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/uhyunpark/bilateral/pkg/app/core/coin"
	"github.com/uhyunpark/bilateral/pkg/app/core/order"
	"github.com/uhyunpark/bilateral/pkg/app/core/search"
	"github.com/uhyunpark/bilateral/pkg/app/core/settlement"
	"github.com/uhyunpark/bilateral/pkg/crypto"
	"github.com/uhyunpark/bilateral/pkg/errs"
)

// Exchange is the set of boundary operations the server routes to.
type Exchange interface {
	CreateAsk(ctx context.Context, ask order.AskOrder) (order.AskOrder, error)
	CreateBid(ctx context.Context, bid order.BidOrder) (order.BidOrder, error)
	CancelAsk(ctx context.Context, id, caller string, funds []coin.Coin) ([]settlement.Instruction, error)
	CancelBid(ctx context.Context, id, caller string, funds []coin.Coin) ([]settlement.Instruction, error)
	ExecuteMatch(ctx context.Context, askID, bidID, caller string, funds []coin.Coin) ([]settlement.Instruction, error)
	GetAsk(ctx context.Context, id string) (order.AskOrder, error)
	GetBid(ctx context.Context, id string) (order.BidOrder, error)
	SearchAsks(ctx context.Context, q search.Query) (search.Result[order.AskOrder], error)
	SearchBids(ctx context.Context, q search.Query) (search.Result[order.BidOrder], error)
}

// Authenticator recovers who signed a cancel or match request.
type Authenticator interface {
	Authenticate(ctx context.Context, op crypto.Op, ids []string, nonce uint64, signature string) (string, error)
}

// Server handles REST API and WebSocket connections
type Server struct {
	ex      Exchange
	auth    Authenticator
	router  *mux.Router
	hub     *Hub
	origins []string
	log     *zap.SugaredLogger
}

func NewServer(ex Exchange, auth Authenticator, hub *Hub, allowedOrigins []string, log *zap.SugaredLogger) *Server {
	s := &Server{
		ex:      ex,
		auth:    auth,
		router:  mux.NewRouter(),
		hub:     hub,
		origins: allowedOrigins,
		log:     log,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/asks", s.handleCreateAsk).Methods("POST")
	api.HandleFunc("/asks", s.handleSearchAsks).Methods("GET")
	api.HandleFunc("/asks/{id}", s.handleGetAsk).Methods("GET")
	api.HandleFunc("/asks/{id}/cancel", s.handleCancelAsk).Methods("POST")

	api.HandleFunc("/bids", s.handleCreateBid).Methods("POST")
	api.HandleFunc("/bids", s.handleSearchBids).Methods("GET")
	api.HandleFunc("/bids/{id}", s.handleGetBid).Methods("GET")
	api.HandleFunc("/bids/{id}/cancel", s.handleCancelBid).Methods("POST")

	api.HandleFunc("/matches", s.handleExecuteMatch).Methods("POST")

	s.router.HandleFunc("/ws", s.handleWebSocket)
	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
}

// Handler is the router wrapped in CORS.
func (s *Server) Handler() http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   s.origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	return c.Handler(s.router)
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	go s.hub.Run(ctx)

	srv := &http.Server{Addr: addr, Handler: s.Handler()}
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()

	s.log.Infow("api_server_starting", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleCreateAsk(w http.ResponseWriter, r *http.Request) {
	var ask order.AskOrder
	if err := json.NewDecoder(r.Body).Decode(&ask); err != nil {
		respondError(w, errs.Wrap(errs.CodeInvalidRequest, "invalid ask body", err))
		return
	}
	created, err := s.ex.CreateAsk(r.Context(), ask)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSONStatus(w, http.StatusCreated, created)
}

func (s *Server) handleCreateBid(w http.ResponseWriter, r *http.Request) {
	var bid order.BidOrder
	if err := json.NewDecoder(r.Body).Decode(&bid); err != nil {
		respondError(w, errs.Wrap(errs.CodeInvalidRequest, "invalid bid body", err))
		return
	}
	created, err := s.ex.CreateBid(r.Context(), bid)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSONStatus(w, http.StatusCreated, created)
}

func (s *Server) handleGetAsk(w http.ResponseWriter, r *http.Request) {
	ask, err := s.ex.GetAsk(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, ask)
}

func (s *Server) handleGetBid(w http.ResponseWriter, r *http.Request) {
	bid, err := s.ex.GetBid(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, bid)
}

func (s *Server) handleSearchAsks(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		respondError(w, err)
		return
	}
	res, err := s.ex.SearchAsks(r.Context(), q)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, res)
}

func (s *Server) handleSearchBids(w http.ResponseWriter, r *http.Request) {
	q, err := parseQuery(r)
	if err != nil {
		respondError(w, err)
		return
	}
	res, err := s.ex.SearchBids(r.Context(), q)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, res)
}

func (s *Server) handleCancelAsk(w http.ResponseWriter, r *http.Request) {
	var req CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errs.Wrap(errs.CodeInvalidRequest, "invalid request body", err))
		return
	}
	id := mux.Vars(r)["id"]
	caller, err := s.auth.Authenticate(r.Context(), crypto.OpCancelAsk, []string{id}, req.Nonce, req.Signature)
	if err != nil {
		respondError(w, err)
		return
	}
	out, err := s.ex.CancelAsk(r.Context(), id, caller, req.Funds)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, InstructionsResponse{Instructions: out})
}

func (s *Server) handleCancelBid(w http.ResponseWriter, r *http.Request) {
	var req CancelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errs.Wrap(errs.CodeInvalidRequest, "invalid request body", err))
		return
	}
	id := mux.Vars(r)["id"]
	caller, err := s.auth.Authenticate(r.Context(), crypto.OpCancelBid, []string{id}, req.Nonce, req.Signature)
	if err != nil {
		respondError(w, err)
		return
	}
	out, err := s.ex.CancelBid(r.Context(), id, caller, req.Funds)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, InstructionsResponse{Instructions: out})
}

func (s *Server) handleExecuteMatch(w http.ResponseWriter, r *http.Request) {
	var req MatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, errs.Wrap(errs.CodeInvalidRequest, "invalid request body", err))
		return
	}
	caller, err := s.auth.Authenticate(r.Context(), crypto.OpMatch, []string{req.AskID, req.BidID}, req.Nonce, req.Signature)
	if err != nil {
		respondError(w, err)
		return
	}
	out, err := s.ex.ExecuteMatch(r.Context(), req.AskID, req.BidID, caller, req.Funds)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, InstructionsResponse{Instructions: out})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, map[string]string{"status": "ok"})
}

// ==============================
// Helper Functions
// ==============================

func parseQuery(r *http.Request) (search.Query, error) {
	v := r.URL.Query()
	typ, err := search.ParseType(v.Get("search_type"))
	if err != nil {
		return search.Query{}, err
	}
	q := search.Query{Type: typ, Value: v.Get("value")}
	if q.PageSize, err = optionalUint(v.Get("page_size"), "page_size"); err != nil {
		return search.Query{}, err
	}
	if q.PageNumber, err = optionalUint(v.Get("page_number"), "page_number"); err != nil {
		return search.Query{}, err
	}
	return q, nil
}

func optionalUint(raw, name string) (*uint64, error) {
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, errs.Wrap(errs.CodeInvalidRequest, name+" must be an unsigned integer", err)
	}
	return &n, nil
}

func respondJSON(w http.ResponseWriter, data any) {
	respondJSONStatus(w, http.StatusOK, data)
}

func respondJSONStatus(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, err error) {
	code := errs.CodeOf(err)
	respondJSONStatus(w, code.HTTPStatus(), ErrorResponse{
		Error:    string(code),
		Message:  err.Error(),
		Messages: errs.MessagesOf(err),
	})
}
