package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/kwv/strokemesh/gesture"
	"github.com/kwv/strokemesh/trajectory"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// matchRequest is the body of POST /match. A and B accept any stroke
// payload format DecodeStroke understands.
type matchRequest struct {
	A       json.RawMessage      `json:"a"`
	B       json.RawMessage      `json:"b"`
	Options trajectory.Overrides `json:"options"`
}

type gestureInfo struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Templates   int    `json:"templates"`
	Shape       string `json:"shape"`
}

// newHTTPServer creates an HTTP server with all endpoints. publisher may
// return nil when MQTT is disabled.
func newHTTPServer(library *gesture.Library, config *gesture.Config, publisher func() *gesture.Publisher) http.Handler {
	mux := http.NewServeMux()
	opts := config.MatchOptions()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[HTTP] /health request from %s", r.RemoteAddr)
		status := struct {
			Status    string    `json:"status"`
			Timestamp time.Time `json:"timestamp"`
			Gestures  int       `json:"gestures"`
		}{
			Status:    "ok",
			Timestamp: time.Now(),
			Gestures:  library.Len(),
		}
		respondJSON(w, http.StatusOK, status)
	})

	mux.HandleFunc("GET /gestures", func(w http.ResponseWriter, r *http.Request) {
		gestures := library.Gestures()
		infos := make([]gestureInfo, 0, len(gestures))
		for _, g := range gestures {
			info := gestureInfo{Name: g.Name, Description: g.Description, Templates: len(g.Templates)}
			if len(g.Templates) > 0 {
				info.Shape = trajectory.Describe(g.Templates[0], g.Match.Apply(opts).KeyPoints)
			}
			infos = append(infos, info)
		}
		respondJSON(w, http.StatusOK, infos)
	})

	mux.HandleFunc("GET /events", func(w http.ResponseWriter, r *http.Request) {
		events := map[string]*gesture.RecognitionEvent{}
		if p := publisher(); p != nil {
			events = p.GetAllEvents()
		}
		respondJSON(w, http.StatusOK, events)
	})

	mux.HandleFunc("POST /recognize", func(w http.ResponseWriter, r *http.Request) {
		stroke, ok := readStroke(w, r)
		if !ok {
			return
		}
		rec, err := library.Recognize(r.Context(), stroke.Points)
		if err != nil {
			http.Error(w, fmt.Sprintf("recognition aborted: %v", err), http.StatusServiceUnavailable)
			return
		}
		log.Printf("[HTTP] /recognize: gesture=%q similarity=%.3f", rec.Gesture, rec.Similarity)
		respondJSON(w, http.StatusOK, rec)
	})

	mux.HandleFunc("POST /match", func(w http.ResponseWriter, r *http.Request) {
		var req matchRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			http.Error(w, fmt.Sprintf("invalid match request: %v", err), http.StatusBadRequest)
			return
		}
		if err := req.Options.Validate(); err != nil {
			http.Error(w, fmt.Sprintf("invalid options: %v", err), http.StatusBadRequest)
			return
		}
		a, err := gesture.DecodeStroke(req.A)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid stroke a: %v", err), http.StatusBadRequest)
			return
		}
		b, err := gesture.DecodeStroke(req.B)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid stroke b: %v", err), http.StatusBadRequest)
			return
		}
		respondJSON(w, http.StatusOK, trajectory.Match(a.Points, b.Points, req.Options.Apply(opts)))
	})

	mux.HandleFunc("POST /features", func(w http.ResponseWriter, r *http.Request) {
		stroke, ok := readStroke(w, r)
		if !ok {
			return
		}
		fc := gesture.FeaturesGeoJSON(stroke.Points, opts.KeyPoints)
		w.Header().Set("Content-Type", "application/geo+json")
		if err := json.NewEncoder(w).Encode(fc); err != nil {
			log.Printf("[HTTP] error encoding features: %v", err)
		}
	})

	mux.HandleFunc("POST /render.svg", func(w http.ResponseWriter, r *http.Request) {
		stroke, ok := readStroke(w, r)
		if !ok {
			return
		}
		var buf bytes.Buffer
		if err := gesture.NewStrokeRenderer(opts.KeyPoints).RenderToSVG(&buf, stroke.Points); err != nil {
			http.Error(w, fmt.Sprintf("rendering failed: %v", err), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		w.Write(buf.Bytes())
	})

	mux.HandleFunc("POST /render.png", func(w http.ResponseWriter, r *http.Request) {
		stroke, ok := readStroke(w, r)
		if !ok {
			return
		}
		var buf bytes.Buffer
		if err := gesture.NewStrokeRenderer(opts.KeyPoints).RenderToPNG(&buf, stroke.Points); err != nil {
			http.Error(w, fmt.Sprintf("rendering failed: %v", err), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(buf.Bytes())
	})

	return mux
}

// readStroke decodes the request body as a stroke payload, answering 400
// itself on failure.
func readStroke(w http.ResponseWriter, r *http.Request) (*gesture.Stroke, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, fmt.Sprintf("reading body: %v", err), http.StatusBadRequest)
		return nil, false
	}
	stroke, err := gesture.DecodeStroke(body)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid stroke: %v", err), http.StatusBadRequest)
		return nil, false
	}
	return stroke, true
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[HTTP] error encoding response: %v", err)
	}
}
