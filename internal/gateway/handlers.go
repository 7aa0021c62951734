package gateway

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rustyeddy/replaysim/indicators"
	"github.com/rustyeddy/replaysim/market"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// SetCORS sets CORS headers for REST endpoints.
func SetCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

// RegisterRoutes mounts the websocket endpoint, the read-only REST views
// and, when metricsPath is set, the Prometheus handler.
func RegisterRoutes(mux *http.ServeMux, hub *Hub, reg *market.Registry, metricsPath string) {
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			hub.log.Warn("ws upgrade", "error", err)
			return
		}
		hub.register(conn)
	})

	s := hub.sess
	get := func(path string, view func(r *http.Request) any) {
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			SetCORS(w)
			if r.Method == http.MethodOptions {
				return
			}
			if r.Method != http.MethodGet {
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
				return
			}
			writeJSON(w, view(r))
		})
	}

	get("/api/status", func(*http.Request) any { return s.Status() })
	get("/api/window", func(*http.Request) any { return s.Window() })
	get("/api/indicators", func(r *http.Request) any {
		return s.Indicators(indicators.ParseKind(r.URL.Query().Get("kind")))
	})
	get("/api/account", func(*http.Request) any { return s.Account() })
	get("/api/market", func(*http.Request) any { return s.Market() })
	get("/api/orderbook", func(*http.Request) any { return s.OrderBook() })
	get("/api/trades", func(*http.Request) any { return s.Trades() })
	get("/api/markers", func(*http.Request) any { return s.Markers() })
	get("/api/alerts", func(*http.Request) any { return s.Alerts() })
	get("/api/drawings", func(*http.Request) any { return s.Drawings() })
	get("/api/overlay", func(*http.Request) any { return s.Overlay() })
	get("/api/summary", func(*http.Request) any { return s.Summary() })
	get("/api/instruments", func(*http.Request) any { return reg.List() })
	get("/api/timeframes", func(*http.Request) any { return market.Timeframes })

	if metricsPath != "" {
		mux.Handle(metricsPath, hub.metrics.Handler())
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
