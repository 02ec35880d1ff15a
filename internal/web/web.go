// Package web serves a browser view of a coaching session: the movement catalog, the reference
// demonstration, the camera switch, a live preview with the skeleton overlay and the feedback panel.
//
// # Routes
//
//	GET  /                       page (html/template, embedded)
//	GET  /api/movements          catalog as JSON
//	GET  /api/state              session snapshot + panel text as JSON
//	POST /api/movements/select   ?id=<movement id>
//	POST /api/camera             toggle the camera
//	GET  /overlay.png            transparent overlay for the current result
//	GET  /frame.jpg              latest analyzed frame with the overlay composited
//
// Precondition failures answer 409 and camera failures 503, both with the alert copy in the
// "alert" field so the page can show it as a modal.
//
// The page polls /api/state; there is no push channel.
package web

import (
	"embed"
	"errors"
	"html/template"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/gerak/internal/capture"
	"github.com/desertthunder/gerak/internal/coach"
	"github.com/desertthunder/gerak/internal/models"
	"github.com/desertthunder/gerak/internal/overlay"
	"github.com/desertthunder/gerak/internal/shared"
)

//go:embed templates/*.html
var templateFS embed.FS

// Opts configures a [Handler].
type Opts struct {
	Session       *coach.Session
	Logger        *log.Logger
	OverlayWidth  int
	OverlayHeight int
	JPEGQuality   int
}

type route struct {
	method string
	path   string
	fn     http.HandlerFunc
}

// Handler implements server.Handler for the preview page and its JSON API.
type Handler struct {
	session *coach.Session
	logger  *log.Logger
	ow, oh  int
	quality int
	tmpl    *template.Template
	routes  []route
}

// NewHandler parses the embedded templates and builds the route table.
func NewHandler(opts Opts) (*Handler, error) {
	tmpl, err := template.New("index.html").Funcs(template.FuncMap{
		"panelText": coach.PanelText,
	}).ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, err
	}

	if opts.OverlayWidth <= 0 || opts.OverlayHeight <= 0 {
		opts.OverlayWidth, opts.OverlayHeight = 640, 480
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	h := &Handler{
		session: opts.Session,
		logger:  shared.WithLogger(opts.Logger, "component", "web"),
		ow:      opts.OverlayWidth,
		oh:      opts.OverlayHeight,
		quality: opts.JPEGQuality,
		tmpl:    tmpl,
	}
	h.routes = []route{
		{http.MethodGet, "/", h.index},
		{http.MethodGet, "/api/movements", h.movements},
		{http.MethodGet, "/api/state", h.state},
		{http.MethodPost, "/api/movements/select", h.selectMovement},
		{http.MethodPost, "/api/camera", h.toggleCamera},
		{http.MethodGet, "/overlay.png", h.overlayPNG},
		{http.MethodGet, "/frame.jpg", h.frameJPEG},
	}
	return h, nil
}

// Routes returns the path patterns this handler serves.
func (h *Handler) Routes() []string {
	paths := make([]string, 0, len(h.routes))
	for _, rt := range h.routes {
		paths = append(paths, rt.path)
	}
	return paths
}

// ServeHTTP dispatches on the exact path, answering 405 for a known path with the wrong method.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	for _, rt := range h.routes {
		if rt.path != r.URL.Path {
			continue
		}
		if rt.method != r.Method {
			w.Header().Set("Allow", rt.method)
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		rt.fn(w, r)
		return
	}
	http.NotFound(w, r)
}

type keypointView struct {
	Part     string  `json:"part"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Detected bool    `json:"detected"`
	Status   string  `json:"status,omitempty"`
}

type stateView struct {
	coach.Snapshot
	PanelText string         `json:"panel_text"`
	Keypoints []keypointView `json:"keypoints,omitempty"`
}

type alertView struct {
	Error string `json:"error"`
	Alert string `json:"alert,omitempty"`
}

type pageData struct {
	Catalog []models.Movement
	State   coach.Snapshot
}

func newStateView(snap coach.Snapshot) stateView {
	v := stateView{Snapshot: snap, PanelText: coach.PanelText(snap)}
	if snap.Result == nil {
		return v
	}
	for _, part := range models.BodyParts() {
		kp := snap.Result.Pose.Get(part)
		kv := keypointView{Part: part.String(), X: kp.X, Y: kp.Y, Detected: kp.Detected()}
		if s, ok := snap.Result.Feedback.Status(part); ok {
			kv.Status = string(s)
		}
		v.Keypoints = append(v.Keypoints, kv)
	}
	return v
}

func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	data := pageData{Catalog: h.session.Catalog(), State: h.session.Snapshot()}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.Execute(w, data); err != nil {
		h.logger.Error("failed to render page", "error", err)
	}
}

func (h *Handler) movements(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.session.Catalog())
}

func (h *Handler) state(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, newStateView(h.session.Snapshot()))
}

func (h *Handler) selectMovement(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		h.writeJSON(w, http.StatusBadRequest, alertView{Error: shared.ErrMissingArgument.Error() + ": id"})
		return
	}
	if err := h.session.SelectMovement(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	h.state(w, r)
}

func (h *Handler) toggleCamera(w http.ResponseWriter, r *http.Request) {
	if err := h.session.ToggleCamera(r.Context()); err != nil {
		h.writeError(w, err)
		return
	}
	h.state(w, r)
}

func (h *Handler) overlayPNG(w http.ResponseWriter, r *http.Request) {
	snap := h.session.Snapshot()
	data, err := overlay.EncodePNG(overlay.RenderImage(h.ow, h.oh, snap.Result))
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(data)
}

func (h *Handler) frameJPEG(w http.ResponseWriter, r *http.Request) {
	snap := h.session.Snapshot()
	if !snap.CameraOn || snap.Frame == nil {
		http.NotFound(w, r)
		return
	}

	img := overlay.Composite(snap.Frame.Image, overlay.RenderImage(h.ow, h.oh, snap.Result))
	data, err := capture.EncodeJPEG(img, h.quality)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", capture.MIMEType)
	w.Header().Set("Cache-Control", "no-store")
	w.Write(data)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, shared.ErrNoMovementSelected):
		status = http.StatusConflict
	case errors.Is(err, shared.ErrMovementNotFound):
		status = http.StatusNotFound
	case errors.Is(err, shared.ErrCameraUnavailable):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed", "error", err)
	}
	h.writeJSON(w, status, alertView{Error: err.Error(), Alert: coach.AlertText(err)})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := shared.MarshalJSON(v, false)
	if err != nil {
		h.logger.Error("failed to encode response", "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}
