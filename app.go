package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/kwv/strokemesh/gesture"
	"github.com/kwv/strokemesh/trajectory"
)

// Streamed strokes idle for longer than this are dropped.
const staleStrokeTimeout = 30 * time.Second

// App encapsulates the application state and dependencies
type App struct {
	Config     *gesture.Config
	Library    *gesture.Library
	MQTTClient *gesture.MQTTClient

	// CLI Flags (effectively dependencies)
	ConfigFile string
	HttpPort   int
	MqttMode   bool
	HttpMode   bool

	out       io.Writer
	publisher *gesture.Publisher
	mu        sync.RWMutex
}

// NewApp creates a new App writing command output to out
func NewApp(out io.Writer) *App {
	return &App{out: out}
}

// ApplyOptions applies CLI options to the App instance
func (a *App) ApplyOptions(opts AppOptions) {
	a.ConfigFile = opts.ConfigFile
	a.HttpPort = opts.HttpPort
	a.MqttMode = opts.MqttMode
	a.HttpMode = opts.HttpMode
}

// loadConfig loads a.ConfigFile. With allowMissing a missing file yields an
// empty config, so the first -learn can create it.
func (a *App) loadConfig(allowMissing bool) (*gesture.Config, error) {
	config, err := gesture.LoadConfig(a.ConfigFile)
	if err != nil {
		if allowMissing && errors.Is(err, fs.ErrNotExist) {
			return &gesture.Config{}, nil
		}
		return nil, fmt.Errorf("loading config %s: %w", a.ConfigFile, err)
	}
	a.Config = config
	return config, nil
}

// RunList prints the configured gestures
func (a *App) RunList() error {
	config, err := a.loadConfig(false)
	if err != nil {
		return err
	}
	opts := config.MatchOptions()

	if len(config.Gestures) == 0 {
		fmt.Fprintf(a.out, "No gestures configured in %s\n", a.ConfigFile)
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTEMPLATES\tSHAPE\tDESCRIPTION")
	for _, g := range config.Gestures {
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\n",
			g.Name, len(g.Templates), trajectory.Describe(g.Templates[0], opts.KeyPoints), g.Description)
	}
	return tw.Flush()
}

// RunLearn adds the stroke in input as a template of gesture name
func (a *App) RunLearn(name, input string) error {
	stroke, err := gesture.DecodeStrokeFile(input)
	if err != nil {
		return fmt.Errorf("reading stroke %s: %w", input, err)
	}
	if len(stroke.Points) < 2 {
		return fmt.Errorf("stroke %s has %d points, need at least 2", input, len(stroke.Points))
	}

	config, err := a.loadConfig(true)
	if err != nil {
		return err
	}

	n := config.AddTemplate(name, stroke.Points)
	if err := config.Validate(); err != nil {
		return err
	}
	if err := gesture.SaveConfig(a.ConfigFile, config); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Learned template %d for %s (%d points, %s)\n",
		n, name, len(stroke.Points), trajectory.Describe(stroke.Points, config.MatchOptions().KeyPoints))
	return nil
}

// RunRemove deletes gesture name from the config
func (a *App) RunRemove(name string) error {
	config, err := a.loadConfig(false)
	if err != nil {
		return err
	}
	if !config.RemoveGesture(name) {
		return fmt.Errorf("gesture %q not found in %s", name, a.ConfigFile)
	}
	if err := gesture.SaveConfig(a.ConfigFile, config); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Removed gesture %s\n", name)
	return nil
}

// RunRecognize matches the stroke in input against every configured gesture
func (a *App) RunRecognize(input string) error {
	stroke, err := gesture.DecodeStrokeFile(input)
	if err != nil {
		return fmt.Errorf("reading stroke %s: %w", input, err)
	}
	config, err := a.loadConfig(false)
	if err != nil {
		return err
	}

	a.Library = gesture.NewLibraryFromConfig(config)
	rec, err := a.Library.Recognize(context.Background(), stroke.Points)
	if err != nil {
		return err
	}

	if rec.Gesture != "" {
		fmt.Fprintf(a.out, "Recognized: %s (similarity %.3f)\n", rec.Gesture, rec.Similarity)
	} else {
		fmt.Fprintf(a.out, "No gesture matched (best similarity %.3f)\n", rec.Similarity)
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "GESTURE\tSIMILARITY\tMATCHED")
	for _, s := range rec.Scores {
		fmt.Fprintf(tw, "%s\t%.3f\t%t\n", s.Gesture, s.Similarity, s.Matched)
	}
	return tw.Flush()
}

// RunMatch compares two stroke files and prints the result as JSON. The
// config's match options apply when the config file exists.
func (a *App) RunMatch(first, second string) error {
	s1, err := gesture.DecodeStrokeFile(first)
	if err != nil {
		return fmt.Errorf("reading stroke %s: %w", first, err)
	}
	s2, err := gesture.DecodeStrokeFile(second)
	if err != nil {
		return fmt.Errorf("reading stroke %s: %w", second, err)
	}
	config, err := a.loadConfig(true)
	if err != nil {
		return err
	}

	result := trajectory.Match(s1.Points, s2.Points, config.MatchOptions())
	return writeJSON(a.out, result)
}

// RunFeatures prints the stroke's extracted features as a GeoJSON FeatureCollection
func (a *App) RunFeatures(input string) error {
	stroke, err := gesture.DecodeStrokeFile(input)
	if err != nil {
		return fmt.Errorf("reading stroke %s: %w", input, err)
	}
	config, err := a.loadConfig(true)
	if err != nil {
		return err
	}
	return writeJSON(a.out, gesture.FeaturesGeoJSON(stroke.Points, config.MatchOptions().KeyPoints))
}

// RunRender draws the stroke in input with its key points. The output
// extension selects PNG or SVG; with no output an SVG goes to stdout.
func (a *App) RunRender(input, output string) error {
	stroke, err := gesture.DecodeStrokeFile(input)
	if err != nil {
		return fmt.Errorf("reading stroke %s: %w", input, err)
	}
	config, err := a.loadConfig(true)
	if err != nil {
		return err
	}
	renderer := gesture.NewStrokeRenderer(config.MatchOptions().KeyPoints)

	if output == "" {
		return renderer.RenderToSVG(a.out, stroke.Points)
	}

	render := renderer.RenderToSVG
	switch ext := strings.ToLower(filepath.Ext(output)); ext {
	case ".svg":
	case ".png":
		render = renderer.RenderToPNG
	default:
		return fmt.Errorf("unsupported output format %q, want .svg or .png", ext)
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("creating %s: %w", output, err)
	}
	defer f.Close()

	if err := render(f, stroke.Points); err != nil {
		return fmt.Errorf("rendering %s: %w", output, err)
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Rendered %s to %s\n", input, output)
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (a *App) getPublisher() *gesture.Publisher {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.publisher
}

func (a *App) setPublisher(p *gesture.Publisher) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.publisher = p
}

// handleStroke recognizes a stroke delivered over MQTT and publishes the
// outcome.
func (a *App) handleStroke(source string, stroke *gesture.Stroke, err error) {
	if err != nil {
		log.Printf("[RECOGNIZE] %s: dropping undecodable stroke: %v", source, err)
		return
	}
	if len(stroke.Points) < 2 {
		log.Printf("[RECOGNIZE] %s: ignoring stroke with %d points", source, len(stroke.Points))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	rec, err := a.Library.Recognize(ctx, stroke.Points)
	if err != nil {
		log.Printf("[RECOGNIZE] %s: %v", source, err)
		return
	}
	log.Printf("[RECOGNIZE] %s: gesture=%q similarity=%.3f (%d points)",
		source, rec.Gesture, rec.Similarity, len(stroke.Points))

	publisher := a.getPublisher()
	if publisher == nil {
		return
	}
	if _, err := publisher.PublishRecognition(source, rec); err != nil {
		log.Printf("[MQTT] error publishing recognition for %s: %v", source, err)
	}
}

// expireStrokes drops abandoned streamed strokes until ctx is done.
func (a *App) expireStrokes(ctx context.Context, tracker *gesture.StrokeTracker) {
	ticker := time.NewTicker(staleStrokeTimeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, source := range tracker.Expire(staleStrokeTimeout) {
				log.Printf("[MQTT] %s: discarded stroke idle for over %v", source, staleStrokeTimeout)
			}
		}
	}
}

// RunService runs the MQTT and/or HTTP service until interrupted
func (a *App) RunService() error {
	config, err := a.loadConfig(false)
	if err != nil {
		return err
	}
	a.Library = gesture.NewLibraryFromConfig(config)
	log.Printf("Loaded %d gestures from %s", a.Library.Len(), a.ConfigFile)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.MqttMode {
		mqttClient, err := gesture.InitMQTT(config, a.handleStroke)
		if err != nil {
			return fmt.Errorf("initializing MQTT: %w", err)
		}
		if mqttClient == nil {
			return fmt.Errorf("MQTT broker not configured in %s", a.ConfigFile)
		}
		a.MQTTClient = mqttClient
		a.setPublisher(gesture.NewPublisherFromConfig(mqttClient.GetClient(), config.MQTT))
		go a.expireStrokes(ctx, mqttClient.Tracker())
		fmt.Fprintln(a.out, "MQTT gesture publisher initialized")
	}

	var server *http.Server
	if a.HttpMode {
		server = &http.Server{
			Addr:              fmt.Sprintf("0.0.0.0:%d", a.HttpPort),
			Handler:           newHTTPServer(a.Library, config, a.getPublisher),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Printf("[HTTP] Starting server on %s", server.Addr)
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("[HTTP] Server error: %v", err)
				stop()
			}
		}()
	}

	fmt.Fprintln(a.out, "\nService Running")
	fmt.Fprintln(a.out, "===============")

	if a.MqttMode {
		fmt.Fprintln(a.out, "\nMQTT:")
		fmt.Fprintf(a.out, "  Strokes: %s\n", config.MQTT.GetStrokeTopic())
		fmt.Fprintf(a.out, "  Points:  %s\n", config.MQTT.GetPointTopic())
		fmt.Fprintf(a.out, "  Publishing to: %s/{source}/gesture\n", config.MQTT.GetPublishPrefix())
	}

	if a.HttpMode {
		fmt.Fprintf(a.out, "\nHTTP endpoints (port %d):\n", a.HttpPort)
		fmt.Fprintln(a.out, "  GET  /health     - Health check")
		fmt.Fprintln(a.out, "  GET  /gestures   - Configured gestures")
		fmt.Fprintln(a.out, "  GET  /events     - Last recognition per source")
		fmt.Fprintln(a.out, "  POST /recognize  - Recognize a stroke")
		fmt.Fprintln(a.out, "  POST /match      - Compare two strokes")
		fmt.Fprintln(a.out, "  POST /features   - Stroke features as GeoJSON")
		fmt.Fprintln(a.out, "  POST /render.svg - Stroke and key points as SVG")
		fmt.Fprintln(a.out, "  POST /render.png - Stroke and key points as PNG")
	}

	fmt.Fprintln(a.out, "\nPress Ctrl+C to stop")

	<-ctx.Done()

	fmt.Fprintln(a.out, "\nShutting down service...")
	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("[HTTP] shutdown: %v", err)
		}
	}
	if a.MQTTClient != nil {
		a.MQTTClient.Disconnect()
	}
	fmt.Fprintln(a.out, "Service stopped")
	return nil
}
