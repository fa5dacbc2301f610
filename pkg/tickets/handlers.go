package tickets

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/copperdesk/copperdesk/pkg/contextkeys"
	"github.com/copperdesk/copperdesk/pkg/httputil"
	"github.com/copperdesk/copperdesk/pkg/observability"
	"github.com/copperdesk/copperdesk/pkg/roles"
)

var retrievalTracer = otel.Tracer("copperdesk/tickets")

// Handlers provides the ticket retrieval endpoint.
type Handlers struct {
	store    *Store
	resolver *roles.Resolver
	logger   *observability.Logger
	metrics  *observability.Metrics
}

// NewHandlers creates ticket handlers. metrics may be nil.
func NewHandlers(store *Store, resolver *roles.Resolver, logger *observability.Logger, metrics *observability.Metrics) *Handlers {
	return &Handlers{
		store:    store,
		resolver: resolver,
		logger:   logger,
		metrics:  metrics,
	}
}

// RegisterRoutes registers ticket routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/v1/tickets/filtered", h.GetFiltered).Methods("GET")
}

// FilteredResponse is the retrieval endpoint's success envelope.
type FilteredResponse struct {
	Success bool     `json:"success"`
	Tickets []Ticket `json:"tickets"`
}

// GetFiltered returns every ticket visible to the authenticated user:
// non-hidden rows narrowed by the user's effective access scope, newest
// first. Read-only and idempotent; safe to poll.
func (h *Handlers) GetFiltered(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := contextkeys.UserID(ctx)
	if !ok {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	// Recomputed on every request; the scope is never persisted.
	scope := h.resolver.EffectiveScope(ctx, userID)
	pred := BuildScopePredicate(BaseVisiblePredicate(), scope, userID)

	ctx, span := retrievalTracer.Start(ctx, "QueryVisible",
		trace.WithAttributes(attribute.String("scope", scope.String())),
	)
	ticketList, err := h.store.QueryVisible(ctx, pred)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ticket query failed")
		span.End()
		h.logger.WithContext(ctx).WithError(err).Error("ticket retrieval failed")
		if h.metrics != nil {
			h.metrics.RetrievalErrorsTotal.Inc()
			h.metrics.TicketRetrievalsTotal.WithLabelValues(scope.String(), "error").Inc()
		}
		httputil.WriteInternalError(w, "failed to fetch tickets", err)
		return
	}

	span.SetAttributes(attribute.Int("tickets", len(ticketList)))
	span.End()

	if h.metrics != nil {
		h.metrics.TicketRetrievalsTotal.WithLabelValues(scope.String(), "ok").Inc()
		h.metrics.TicketsReturned.Observe(float64(len(ticketList)))
	}

	httputil.WriteSuccess(w, FilteredResponse{Success: true, Tickets: ticketList})
}
