package main

import (
	"bytes"
	"encoding/json"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kwv/strokemesh/gesture"
	"github.com/kwv/strokemesh/trajectory"
)

// lPoints draws an L 400 units tall: down the y axis, then right.
func lPoints() []trajectory.Point {
	points := make([]trajectory.Point, 0, 41)
	for i := 0; i < 20; i++ {
		points = append(points, trajectory.Point{X: 0, Y: 20 * float64(i)})
	}
	for i := 0; i <= 20; i++ {
		points = append(points, trajectory.Point{X: 20 * float64(i), Y: 400})
	}
	return points
}

func swipePoints() []trajectory.Point {
	return []trajectory.Point{{X: 0, Y: 0}, {X: 200, Y: 0}, {X: 400, Y: 0}}
}

// saveStroke writes points to dir/name as a stroke envelope.
func saveStroke(t *testing.T, dir, name string, points []trajectory.Point) string {
	t.Helper()
	data, err := json.Marshal(gesture.Stroke{ID: name, Points: points})
	if err != nil {
		t.Fatalf("marshal stroke: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write stroke: %v", err)
	}
	return path
}

// newTestApp returns an App whose config lives in a fresh temp dir.
func newTestApp(t *testing.T) (*App, *bytes.Buffer, string) {
	t.Helper()
	dir := t.TempDir()
	var out bytes.Buffer
	app := NewApp(&out)
	app.ApplyOptions(AppOptions{ConfigFile: filepath.Join(dir, "config.yaml")})
	return app, &out, dir
}

// learnedApp returns an App that has learned an L and a swipe.
func learnedApp(t *testing.T) (*App, *bytes.Buffer, string) {
	t.Helper()
	app, out, dir := newTestApp(t)
	if err := app.RunLearn("L", saveStroke(t, dir, "l.json", lPoints())); err != nil {
		t.Fatalf("learn L: %v", err)
	}
	if err := app.RunLearn("swipe", saveStroke(t, dir, "swipe.json", swipePoints())); err != nil {
		t.Fatalf("learn swipe: %v", err)
	}
	out.Reset()
	return app, out, dir
}

func TestNewApp(t *testing.T) {
	app := NewApp(os.Stdout)
	if app == nil {
		t.Fatal("NewApp returned nil")
		return
	}
	if app.Library != nil || app.Config != nil {
		t.Error("NewApp should not load anything")
	}
}

func TestApplyOptions(t *testing.T) {
	app := NewApp(os.Stdout)
	app.ApplyOptions(AppOptions{
		ConfigFile: "test-config.yaml",
		HttpPort:   8080,
		MqttMode:   true,
		HttpMode:   false,
	})

	if app.ConfigFile != "test-config.yaml" {
		t.Errorf("ConfigFile = %s, want test-config.yaml", app.ConfigFile)
	}
	if app.HttpPort != 8080 {
		t.Errorf("HttpPort = %d, want 8080", app.HttpPort)
	}
	if !app.MqttMode {
		t.Error("MqttMode should be true")
	}
	if app.HttpMode {
		t.Error("HttpMode should be false")
	}
}

func TestRunLearn_CreatesConfig(t *testing.T) {
	app, out, dir := newTestApp(t)

	if err := app.RunLearn("L", saveStroke(t, dir, "l.json", lPoints())); err != nil {
		t.Fatalf("RunLearn failed: %v", err)
	}
	if !strings.Contains(out.String(), "Learned template 1 for L (41 points, DownRight)") {
		t.Errorf("unexpected output: %s", out.String())
	}

	config, err := gesture.LoadConfig(app.ConfigFile)
	if err != nil {
		t.Fatalf("config not written: %v", err)
	}
	g := config.GetGesture("L")
	if g == nil || len(g.Templates) != 1 || len(g.Templates[0]) != 41 {
		t.Fatalf("unexpected saved gesture: %+v", g)
	}
}

func TestRunLearn_AppendsTemplate(t *testing.T) {
	app, out, dir := learnedApp(t)

	if err := app.RunLearn("L", saveStroke(t, dir, "l2.json", lPoints()[5:])); err != nil {
		t.Fatalf("RunLearn failed: %v", err)
	}
	if !strings.Contains(out.String(), "Learned template 2 for L") {
		t.Errorf("unexpected output: %s", out.String())
	}

	config, err := gesture.LoadConfig(app.ConfigFile)
	if err != nil {
		t.Fatal(err)
	}
	if len(config.Gestures) != 2 {
		t.Errorf("expected 2 gestures, got %d", len(config.Gestures))
	}
	if n := len(config.GetGesture("L").Templates); n != 2 {
		t.Errorf("expected 2 L templates, got %d", n)
	}
}

func TestRunLearn_Errors(t *testing.T) {
	app, _, dir := newTestApp(t)

	if err := app.RunLearn("L", filepath.Join(dir, "missing.json")); err == nil {
		t.Error("expected error for missing stroke file")
	}
	single := saveStroke(t, dir, "dot.json", []trajectory.Point{{X: 1, Y: 1}})
	if err := app.RunLearn("dot", single); err == nil {
		t.Error("expected error for single-point stroke")
	}
	if _, err := os.Stat(app.ConfigFile); !os.IsNotExist(err) {
		t.Error("failed learn should not create a config")
	}
}

func TestRunList(t *testing.T) {
	app, out, _ := learnedApp(t)

	if err := app.RunList(); err != nil {
		t.Fatalf("RunList failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected header and 2 rows, got:\n%s", out.String())
	}
	if !strings.HasPrefix(lines[0], "NAME") {
		t.Errorf("missing header: %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "L") || !strings.Contains(lines[1], "DownRight") {
		t.Errorf("unexpected L row: %q", lines[1])
	}
	if !strings.HasPrefix(lines[2], "swipe") || !strings.Contains(lines[2], "Right") {
		t.Errorf("unexpected swipe row: %q", lines[2])
	}
}

func TestRunList_Empty(t *testing.T) {
	app, out, _ := newTestApp(t)
	if err := os.WriteFile(app.ConfigFile, []byte("gestures: []\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := app.RunList(); err != nil {
		t.Fatalf("RunList failed: %v", err)
	}
	if !strings.Contains(out.String(), "No gestures configured") {
		t.Errorf("unexpected output: %s", out.String())
	}
}

func TestRunList_MissingConfig(t *testing.T) {
	app, _, _ := newTestApp(t)
	if err := app.RunList(); err == nil {
		t.Error("expected error for missing config")
	}
}

func TestRunRemove(t *testing.T) {
	app, out, _ := learnedApp(t)

	if err := app.RunRemove("L"); err != nil {
		t.Fatalf("RunRemove failed: %v", err)
	}
	if !strings.Contains(out.String(), "Removed gesture L") {
		t.Errorf("unexpected output: %s", out.String())
	}

	config, err := gesture.LoadConfig(app.ConfigFile)
	if err != nil {
		t.Fatal(err)
	}
	if config.GetGesture("L") != nil {
		t.Error("L should be gone")
	}
	if config.GetGesture("swipe") == nil {
		t.Error("swipe should remain")
	}

	if err := app.RunRemove("L"); err == nil {
		t.Error("expected error removing unknown gesture")
	}
}

func TestRunRecognize(t *testing.T) {
	app, out, dir := learnedApp(t)

	if err := app.RunRecognize(saveStroke(t, dir, "query.json", lPoints())); err != nil {
		t.Fatalf("RunRecognize failed: %v", err)
	}
	output := out.String()
	if !strings.Contains(output, "Recognized: L (similarity 1.000)") {
		t.Errorf("unexpected output: %s", output)
	}
	if !strings.Contains(output, "GESTURE") || !strings.Contains(output, "swipe") {
		t.Errorf("expected score table, got: %s", output)
	}
	if app.Library == nil || app.Library.Len() != 2 {
		t.Error("expected library built from config")
	}
}

func TestRunRecognize_NoMatch(t *testing.T) {
	app, out, dir := learnedApp(t)

	up := []trajectory.Point{{X: 0, Y: 0}, {X: 0, Y: -100}}
	if err := app.RunRecognize(saveStroke(t, dir, "up.json", up)); err != nil {
		t.Fatalf("RunRecognize failed: %v", err)
	}
	if !strings.Contains(out.String(), "No gesture matched") {
		t.Errorf("unexpected output: %s", out.String())
	}
}

func TestRunMatch(t *testing.T) {
	app, out, dir := newTestApp(t)
	a := saveStroke(t, dir, "a.json", lPoints())
	b := saveStroke(t, dir, "b.json", lPoints())

	// No config file: defaults apply.
	if err := app.RunMatch(a, b); err != nil {
		t.Fatalf("RunMatch failed: %v", err)
	}

	var result trajectory.MatchResult
	if err := json.Unmarshal(out.Bytes(), &result); err != nil {
		t.Fatalf("output is not a match result: %v\n%s", err, out.String())
	}
	if !result.Matched || result.Similarity < 0.999 {
		t.Errorf("identical strokes should match, got %+v", result)
	}
}

func TestRunMatch_Different(t *testing.T) {
	app, out, dir := newTestApp(t)
	a := saveStroke(t, dir, "a.json", lPoints())
	b := saveStroke(t, dir, "b.json", []trajectory.Point{{X: 0, Y: 0}, {X: 0, Y: -100}})

	if err := app.RunMatch(a, b); err != nil {
		t.Fatalf("RunMatch failed: %v", err)
	}
	var result trajectory.MatchResult
	if err := json.Unmarshal(out.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if result.Matched {
		t.Errorf("L and upward stroke should not match, got %+v", result)
	}
}

func TestRunFeatures(t *testing.T) {
	app, out, dir := newTestApp(t)

	if err := app.RunFeatures(saveStroke(t, dir, "l.json", lPoints())); err != nil {
		t.Fatalf("RunFeatures failed: %v", err)
	}

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Properties map[string]interface{} `json:"properties"`
		} `json:"features"`
	}
	if err := json.Unmarshal(out.Bytes(), &fc); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if fc.Type != "FeatureCollection" {
		t.Errorf("type = %s, want FeatureCollection", fc.Type)
	}
	if len(fc.Features) < 2 {
		t.Fatalf("expected stroke and normalized features, got %d", len(fc.Features))
	}
	if fc.Features[0].Properties["role"] != gesture.RoleStroke {
		t.Errorf("first feature role = %v", fc.Features[0].Properties["role"])
	}
	if fc.Features[1].Properties["description"] != "DownRight" {
		t.Errorf("description = %v, want DownRight", fc.Features[1].Properties["description"])
	}
}

func TestRunRender(t *testing.T) {
	app, out, dir := newTestApp(t)
	input := saveStroke(t, dir, "l.json", lPoints())

	pngPath := filepath.Join(dir, "l.png")
	if err := app.RunRender(input, pngPath); err != nil {
		t.Fatalf("RunRender png failed: %v", err)
	}
	f, err := os.Open(pngPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if _, err := png.Decode(f); err != nil {
		t.Errorf("output is not a PNG: %v", err)
	}
	if !strings.Contains(out.String(), "Rendered") {
		t.Errorf("unexpected output: %s", out.String())
	}

	svgPath := filepath.Join(dir, "l.svg")
	if err := app.RunRender(input, svgPath); err != nil {
		t.Fatalf("RunRender svg failed: %v", err)
	}
	data, err := os.ReadFile(svgPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "<svg") {
		t.Error("output is not an SVG")
	}
}

func TestRunRender_Stdout(t *testing.T) {
	app, out, dir := newTestApp(t)
	if err := app.RunRender(saveStroke(t, dir, "l.json", lPoints()), ""); err != nil {
		t.Fatalf("RunRender failed: %v", err)
	}
	if !strings.Contains(out.String(), "<svg") {
		t.Error("expected SVG on stdout")
	}
}

func TestRunRender_UnknownFormat(t *testing.T) {
	app, _, dir := newTestApp(t)
	err := app.RunRender(saveStroke(t, dir, "l.json", lPoints()), filepath.Join(dir, "l.gif"))
	if err == nil || !strings.Contains(err.Error(), "unsupported output format") {
		t.Errorf("expected format error, got %v", err)
	}
}
