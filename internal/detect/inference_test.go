package detect

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/AICV-Deepfaker/deepfaker-detection/internal/domain/entities"
)

func writeTempVideo(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.mp4")
	if err := os.WriteFile(path, []byte("fake video bytes"), 0o644); err != nil {
		t.Fatalf("failed to write temp video: %v", err)
	}
	return path
}

func TestInferenceClientAnalyze(t *testing.T) {
	visual := []byte{0x89, 'P', 'N', 'G'}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/predict" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Errorf("failed to parse multipart form: %v", err)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("request missing file part: %v", err)
		}

		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":            "success",
			"result":            "FAKE",
			"average_fake_prob": 0.87,
			"visual_report":     base64.StdEncoding.EncodeToString(visual),
		})
	}))
	defer srv.Close()

	client := NewInferenceClient(ModelWavelet, srv.URL)
	report, err := client.Analyze(context.Background(), writeTempVideo(t))
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}

	if report.Result != entities.VerdictFake {
		t.Fatalf("expected FAKE, got %s", report.Result)
	}
	if report.Probability != 0.87 {
		t.Fatalf("expected probability 0.87, got %f", report.Probability)
	}
	if string(report.VisualPNG) != string(visual) {
		t.Fatal("visual report was not decoded correctly")
	}
}

func TestInferenceClientLowProbabilityIsReal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":            "success",
			"average_fake_prob": 0.12,
		})
	}))
	defer srv.Close()

	client := NewInferenceClient(ModelRppg, srv.URL)
	report, err := client.Analyze(context.Background(), writeTempVideo(t))
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if report.Result != entities.VerdictReal {
		t.Fatalf("expected REAL, got %s", report.Result)
	}
}

func TestInferenceClientErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "error",
			"message": "model not loaded",
		})
	}))
	defer srv.Close()

	client := NewInferenceClient(ModelUnite, srv.URL)
	if _, err := client.Analyze(context.Background(), writeTempVideo(t)); err == nil {
		t.Fatal("expected error on non-success status")
	}
}

func TestInferenceClientHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewInferenceClient(ModelWavelet, srv.URL)
	if _, err := client.Analyze(context.Background(), writeTempVideo(t)); err == nil {
		t.Fatal("expected error on HTTP 500")
	}
}
