package pipmdns

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/miekg/dns"

	"github.com/open-control-systems/discovery-hub/components/http/htcore"
	"github.com/open-control-systems/discovery-hub/components/system/sysmdns"
	"github.com/open-control-systems/discovery-hub/components/system/sysnet"
)

// APIHandler provides HTTP API for the discovery hub.
type APIHandler struct {
	hub            *sysmdns.Hub
	resolveStore   *sysnet.ResolveStore
	resolveTimeout time.Duration
}

// NewAPIHandler is an initialization of APIHandler.
//
// Parameters:
//   - hub to access the discovery state.
//   - resolveStore to resolve mDNS hostnames.
//   - resolveTimeout - how long to wait until the hostname is resolved.
func NewAPIHandler(
	hub *sysmdns.Hub,
	resolveStore *sysnet.ResolveStore,
	resolveTimeout time.Duration,
) *APIHandler {
	return &APIHandler{
		hub:            hub,
		resolveStore:   resolveStore,
		resolveTimeout: resolveTimeout,
	}
}

// Register registers all HTTP endpoints.
func (h *APIHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/v1/registry", h.handleRegistry)
	mux.HandleFunc("/api/v1/queries", h.handleQueryList)
	mux.HandleFunc("/api/v1/queries/add", h.handleQueryAdd)
	mux.HandleFunc("/api/v1/services", h.handleServiceList)
	mux.HandleFunc("/api/v1/services/add", h.handleServiceAdd)
	mux.HandleFunc("/api/v1/resolve", h.handleResolve)
}

func (h *APIHandler) handleRegistry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "error: unsupported method", http.StatusMethodNotAllowed)

		return
	}

	htcore.WriteJSON(w, h.hub.Registry())
}

func (h *APIHandler) handleQueryList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "error: unsupported method", http.StatusMethodNotAllowed)

		return
	}

	htcore.WriteJSON(w, h.hub.Queries())
}

func (h *APIHandler) handleQueryAdd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "error: unsupported method", http.StatusMethodNotAllowed)

		return
	}

	namespace := r.URL.Query().Get("namespace")
	if namespace == "" {
		http.Error(w, "error: missed `namespace` query parameter", http.StatusBadRequest)

		return
	}

	if err := h.hub.Query(namespace); err != nil {
		http.Error(w, fmt.Sprintf("error: failed to query namespace=%s: %v",
			namespace, err), http.StatusBadRequest)

		return
	}

	htcore.WriteText(w, "OK")
}

func (h *APIHandler) handleServiceList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "error: unsupported method", http.StatusMethodNotAllowed)

		return
	}

	htcore.WriteJSON(w, h.hub.Services())
}

func (h *APIHandler) handleServiceAdd(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "error: unsupported method", http.StatusMethodNotAllowed)

		return
	}

	service, err := parseService(r)
	if err != nil {
		http.Error(w, fmt.Sprintf("error: %v", err), http.StatusBadRequest)

		return
	}

	if err := h.hub.RegisterService(service); err != nil {
		http.Error(w, fmt.Sprintf("error: failed to register service: %v", err),
			http.StatusBadRequest)

		return
	}

	htcore.WriteText(w, "OK")
}

func (h *APIHandler) handleResolve(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "error: unsupported method", http.StatusMethodNotAllowed)

		return
	}

	host := r.URL.Query().Get("host")
	if host == "" {
		http.Error(w, "error: missed `host` query parameter", http.StatusBadRequest)

		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.resolveTimeout)
	defer cancel()

	h.resolveStore.Add(host)

	addr, err := h.resolveStore.Resolve(ctx, host)
	if err != nil {
		http.Error(w, fmt.Sprintf("error: failed to resolve host=%s: %v", host, err),
			http.StatusNotFound)

		return
	}

	htcore.WriteText(w, addr.String())
}

func parseService(r *http.Request) (sysmdns.Service, error) {
	query := r.URL.Query()

	domain := query.Get("domain")
	if domain == "" {
		return sysmdns.Service{}, fmt.Errorf("missed `domain` query parameter")
	}

	recordType, ok := dns.StringToType[strings.ToUpper(query.Get("type"))]
	if !ok {
		return sysmdns.Service{}, fmt.Errorf("unknown `type` query parameter: %s",
			query.Get("type"))
	}

	service := sysmdns.Service{
		Domain: domain,
		Type:   recordType,
		Target: query.Get("target"),
		Text:   query["text"],
	}

	if ttl := query.Get("ttl"); ttl != "" {
		value, err := strconv.ParseUint(ttl, 10, 32)
		if err != nil {
			return sysmdns.Service{}, fmt.Errorf("invalid `ttl` query parameter: %v", err)
		}

		service.TTL = uint32(value)
	}

	if ip := query.Get("ip"); ip != "" {
		service.IP = net.ParseIP(ip)
		if service.IP == nil {
			return sysmdns.Service{}, fmt.Errorf("invalid `ip` query parameter: %s", ip)
		}
	}

	return service, nil
}
