package device

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// Mock device response - heating toward 37°C
const mockHealthResponse = `{"temperature":33.5,"heater_state":true,"treatment_active":false,"heating_active":true,"temperature_reached":false,"target_temperature":37,"remaining_time":null}`

// Mock device response - treatment running
const mockTreatmentResponse = `{"temperature":37.1,"heater_state":true,"treatment_active":true,"heating_active":true,"temperature_reached":true,"target_temperature":37,"remaining_time":1500}`

func TestNewClient(t *testing.T) {
	client := NewClient("")

	if client.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %s, want %s", client.BaseURL, DefaultBaseURL)
	}

	if client.HTTPClient == nil {
		t.Fatal("HTTPClient should not be nil")
	}

	if client.HTTPClient.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", client.HTTPClient.Timeout, DefaultTimeout)
	}
}

func TestNewClient_TrimsTrailingSlash(t *testing.T) {
	client := NewClient("http://10.0.0.2:8080/")

	if client.BaseURL != "http://10.0.0.2:8080" {
		t.Errorf("BaseURL = %s, want http://10.0.0.2:8080", client.BaseURL)
	}
}

func TestSetTimeout(t *testing.T) {
	client := NewClient("")
	client.SetTimeout(2 * time.Second)

	if client.HTTPClient.Timeout != 2*time.Second {
		t.Errorf("Timeout = %v, want 2s", client.HTTPClient.Timeout)
	}
}

func TestSetTransport_KeepsTimeout(t *testing.T) {
	client := NewClient("")
	client.SetTimeout(3 * time.Second)
	client.SetTransport(http.DefaultTransport)

	if client.HTTPClient.Timeout != 3*time.Second {
		t.Errorf("Timeout = %v, want 3s", client.HTTPClient.Timeout)
	}
	if client.HTTPClient.Transport != http.DefaultTransport {
		t.Error("Transport was not replaced")
	}
}

func TestGetHealth_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("Request method = %s, want GET", r.Method)
		}
		if r.URL.Path != HealthPath {
			t.Errorf("Request path = %s, want %s", r.URL.Path, HealthPath)
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(mockHealthResponse))
	}))
	defer server.Close()

	client := NewClient(server.URL)
	health, err := client.GetHealth(context.Background())
	if err != nil {
		t.Fatalf("GetHealth() error = %v, want nil", err)
	}

	if health.Temperature != 33.5 {
		t.Errorf("Temperature = %v, want 33.5", health.Temperature)
	}
	if !health.HeaterOn {
		t.Error("HeaterOn should be true")
	}
	if !health.HeatingActive {
		t.Error("HeatingActive should be true")
	}
	if health.TemperatureReached {
		t.Error("TemperatureReached should be false")
	}
	if health.TargetTemperature != 37 {
		t.Errorf("TargetTemperature = %d, want 37", health.TargetTemperature)
	}
	if health.RemainingSeconds != nil {
		t.Errorf("RemainingSeconds = %v, want nil", *health.RemainingSeconds)
	}
}

func TestGetHealth_RemainingTime(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(mockTreatmentResponse))
	}))
	defer server.Close()

	health, err := NewClient(server.URL).GetHealth(context.Background())
	if err != nil {
		t.Fatalf("GetHealth() error = %v", err)
	}

	if health.RemainingSeconds == nil || *health.RemainingSeconds != 1500 {
		t.Errorf("RemainingSeconds = %v, want 1500", health.RemainingSeconds)
	}
	if !health.TreatmentActive {
		t.Error("TreatmentActive should be true")
	}
}

func TestGetHealth_NonSuccessStatus(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"bad request", http.StatusBadRequest},
		{"not found", http.StatusNotFound},
		{"server error", http.StatusInternalServerError},
		{"service unavailable", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte("nope"))
			}))
			defer server.Close()

			_, err := NewClient(server.URL).GetHealth(context.Background())
			if err == nil {
				t.Fatal("GetHealth() should fail on non-2xx status")
			}
			if !IsRejected(err) {
				t.Errorf("error should be ApiRejected, got %v", err)
			}

			devErr := err.(*Error)
			if devErr.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", devErr.StatusCode, tt.status)
			}
		})
	}
}

func TestGetHealth_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewClient(url)
	client.SetTimeout(500 * time.Millisecond)

	_, err := client.GetHealth(context.Background())
	if err == nil {
		t.Fatal("GetHealth() should fail when the device is down")
	}
	if !IsUnreachable(err) {
		t.Errorf("error should be Unreachable, got %v", err)
	}
}

func TestGetHealth_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(server.URL)
	client.SetTimeout(50 * time.Millisecond)

	_, err := client.GetHealth(context.Background())
	if !IsUnreachable(err) {
		t.Fatalf("error should be Unreachable, got %v", err)
	}
	if err.(*Error).Subtype != NetworkErrorTimeout {
		t.Errorf("Subtype = %v, want NetworkErrorTimeout", err.(*Error).Subtype)
	}
}

func TestGetHealth_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(mockHealthResponse))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(server.URL).GetHealth(ctx)
	if !IsUnreachable(err) {
		t.Errorf("cancelled request should be Unreachable, got %v", err)
	}
}

func TestGetHealth_MalformedJSON(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "<html>oops</html>"},
		{"negative remaining", `{"temperature":30,"target_temperature":37,"remaining_time":-5}`},
		{"zero target", `{"temperature":30,"target_temperature":0}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewClient(server.URL).GetHealth(context.Background())
			if err == nil {
				t.Fatal("GetHealth() should fail on a malformed body")
			}
			if !IsMalformed(err) {
				t.Errorf("error should be Malformed, got %v", err)
			}
		})
	}
}

func TestSendCommand_Bodies(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
		want map[string]any
	}{
		{
			name: "set parameters",
			cmd:  SetParameters{Duration: 30, Temperature: 38},
			want: map[string]any{"duration": float64(30), "temperature": float64(38)},
		},
		{
			name: "start",
			cmd:  Start{},
			want: map[string]any{"action": "start"},
		},
		{
			name: "stop",
			cmd:  Stop{},
			want: map[string]any{"action": "stop"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got map[string]any
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Errorf("Request method = %s, want POST", r.Method)
				}
				if r.URL.Path != UpdatePath {
					t.Errorf("Request path = %s, want %s", r.URL.Path, UpdatePath)
				}
				if ct := r.Header.Get("Content-Type"); ct != "application/json" {
					t.Errorf("Content-Type = %s, want application/json", ct)
				}
				data, _ := io.ReadAll(r.Body)
				if err := json.Unmarshal(data, &got); err != nil {
					t.Errorf("request body is not JSON: %v", err)
				}
				w.Write([]byte(`{"status":"ok"}`))
			}))
			defer server.Close()

			ack, err := NewClient(server.URL).SendCommand(context.Background(), tt.cmd)
			if err != nil {
				t.Fatalf("SendCommand() error = %v", err)
			}
			if ack.Status != "ok" {
				t.Errorf("Ack.Status = %q, want ok", ack.Status)
			}

			if len(got) != len(tt.want) {
				t.Fatalf("body = %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("body[%s] = %v, want %v", k, got[k], v)
				}
			}
		})
	}
}

func TestSendCommand_EmptyAck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	ack, err := NewClient(server.URL).Start(context.Background())
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if ack == nil {
		t.Fatal("Start() returned nil ack")
	}
}

func TestSendCommand_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"status":"invalid"}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL).SetParameters(context.Background(), 30, 37)
	if !IsRejected(err) {
		t.Fatalf("error should be ApiRejected, got %v", err)
	}
	if err.(*Error).Op != "set_parameters" {
		t.Errorf("Op = %s, want set_parameters", err.(*Error).Op)
	}
}

func TestSendCommand_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewClient(url).Stop(context.Background())
	if !IsUnreachable(err) {
		t.Errorf("error should be Unreachable, got %v", err)
	}
}
