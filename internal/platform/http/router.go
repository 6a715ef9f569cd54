package http

import (
	"encoding/json"
	stdhttp "net/http"
	"os"
	"strings"
	"sync"

	"github.com/faeln1/second-brain/internal/app/controllers"
	"github.com/faeln1/second-brain/internal/platform/middleware"
	"github.com/faeln1/second-brain/internal/platform/whatsapp"
	waLog "go.mau.fi/whatsmeow/util/log"
	yaml "gopkg.in/yaml.v3"
)

const defaultDocsPath = "docs/openapi.yaml"

type RouterConfig struct {
	SummaryCtrl *controllers.SummaryController
	GroupCtrl   *controllers.GroupController
	WebhookCtrl *controllers.WebhookController
	SessionCtrl *controllers.SessionController
	Realtime    stdhttp.Handler
	Metrics     stdhttp.Handler
	Logger      waLog.Logger
	WAManager   *whatsapp.Manager
	Engine      string

	SwaggerEnable  bool
	DocsPath       string
	MasterToken    string
	AllowedOrigins []string
}

func NewRouter(cfg RouterConfig) stdhttp.Handler {
	mux := stdhttp.NewServeMux()
	auth := middleware.MasterToken(cfg.MasterToken)

	mux.HandleFunc("/", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		if r.URL.Path != "/" {
			writeJSON(w, stdhttp.StatusNotFound, map[string]string{"error": "endpoint not found"})
			return
		}
		if r.Method != stdhttp.MethodGet {
			writeJSON(w, stdhttp.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
			return
		}
		sessions := 0
		if cfg.WAManager != nil {
			sessions = len(cfg.WAManager.List())
		}
		writeJSON(w, stdhttp.StatusOK, map[string]any{
			"status":      "ok",
			"name":        "Second Brain",
			"version":     "0.1.0",
			"description": "Daily summaries of WhatsApp group conversations",
			"engine":      cfg.Engine,
			"sessions":    map[string]int{"count": sessions},
			"endpoints": map[string]string{
				"summary":       "/summaries/group",
				"history":       "/summaries/group/{groupId}/history",
				"groups":        "/groups",
				"health":        "/health",
				"metrics":       "/metrics",
				"realtime":      "/ws",
				"documentation": "/docs",
				"openapi_yaml":  "/openapi.yaml",
				"openapi_json":  "/openapi.json",
			},
		})
	})

	mux.HandleFunc("/health", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
		writeJSON(w, stdhttp.StatusOK, map[string]string{"status": "ok"})
	})

	if cfg.Metrics != nil {
		mux.Handle("/metrics", cfg.Metrics)
	}
	if cfg.Realtime != nil {
		mux.Handle("/ws", auth(cfg.Realtime))
	}

	splitSegments := func(path string) []string {
		raw := strings.Split(path, "/")
		out := make([]string, 0, len(raw))
		for _, segment := range raw {
			if segment == "" {
				continue
			}
			out = append(out, segment)
		}
		return out
	}

	if cfg.SwaggerEnable {
		docsPath := cfg.DocsPath
		if docsPath == "" {
			docsPath = defaultDocsPath
		}
		var (
			once     sync.Once
			yamlData []byte
			yamlErr  error
		)
		loadYAML := func() ([]byte, error) {
			once.Do(func() { yamlData, yamlErr = os.ReadFile(docsPath) })
			return yamlData, yamlErr
		}
		mux.HandleFunc("/openapi.yaml", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
			data, err := loadYAML()
			if err != nil {
				w.WriteHeader(stdhttp.StatusNotFound)
				return
			}
			w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
			w.Write(data)
		})
		mux.HandleFunc("/openapi.json", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
			data, err := loadYAML()
			if err != nil {
				w.WriteHeader(stdhttp.StatusNotFound)
				return
			}
			var v any
			if err := yaml.Unmarshal(data, &v); err != nil {
				w.WriteHeader(stdhttp.StatusInternalServerError)
				return
			}
			jsonBytes, err := json.Marshal(v)
			if err != nil {
				w.WriteHeader(stdhttp.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.Write(jsonBytes)
		})
		mux.HandleFunc("/docs", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte(`<!DOCTYPE html><html><head><title>API Docs</title><link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css"/></head><body><div id="swagger-ui"></div><script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script><script>window.onload=()=>{SwaggerUIBundle({url:'/openapi.yaml',dom_id:'#swagger-ui'});};</script></body></html>`))
		})
	}

	// POST /summaries/group
	// GET  /summaries/group/{groupId}/history
	if cfg.SummaryCtrl != nil {
		summaryMux := stdhttp.NewServeMux()
		summaryMux.HandleFunc("/", func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
			segments := splitSegments(r.URL.Path)
			switch {
			case len(segments) == 2 && segments[1] == "group":
				cfg.SummaryCtrl.Generate(w, r)
			case len(segments) == 4 && segments[1] == "group" && segments[3] == "history":
				cfg.SummaryCtrl.History(w, r, segments[2])
			default:
				writeJSON(w, stdhttp.StatusNotFound, map[string]string{"error": "endpoint not found"})
			}
		})
		mux.Handle("/summaries/", auth(summaryMux))
	}

	if cfg.GroupCtrl != nil {
		mux.Handle("/groups", auth(stdhttp.HandlerFunc(cfg.GroupCtrl.List)))
	}

	// GET /sessions
	// GET /sessions/{name}/qr
	if cfg.SessionCtrl != nil {
		mux.Handle("/sessions", auth(stdhttp.HandlerFunc(cfg.SessionCtrl.List)))
		mux.Handle("/sessions/", auth(stdhttp.HandlerFunc(func(w stdhttp.ResponseWriter, r *stdhttp.Request) {
			segments := splitSegments(r.URL.Path)
			if len(segments) != 3 || segments[2] != "qr" {
				writeJSON(w, stdhttp.StatusNotFound, map[string]string{"error": "endpoint not found"})
				return
			}
			cfg.SessionCtrl.QR(w, r, segments[1])
		})))
	}

	// the WAHA webhook carries its own token
	if cfg.WebhookCtrl != nil {
		mux.HandleFunc("/webhooks/waha", cfg.WebhookCtrl.WAHA)
	}

	var handler stdhttp.Handler = mux
	handler = middleware.Logging(cfg.Logger)(handler)
	handler = middleware.CORS(cfg.AllowedOrigins)(handler)
	return handler
}

func writeJSON(w stdhttp.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
