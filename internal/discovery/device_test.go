package discovery

import "testing"

func TestDevice_String(t *testing.T) {
	device := &Device{
		Name:     "room2",
		Hostname: "shirodhara-room2.local.",
		IP:       "192.168.4.1",
		Port:     80,
	}

	expected := "Shirodhara room2 (shirodhara-room2.local.) at 192.168.4.1:80"
	if device.String() != expected {
		t.Errorf("Device.String() = %v, want %v", device.String(), expected)
	}
}

func TestDevice_BaseURL(t *testing.T) {
	tests := []struct {
		name     string
		device   *Device
		expected string
	}{
		{"standard port", &Device{IP: "192.168.4.1", Port: 80}, "http://192.168.4.1:80"},
		{"custom port", &Device{IP: "10.0.0.5", Port: 8080}, "http://10.0.0.5:8080"},
		{"IPv6", &Device{IP: "fe80::1", Port: 80}, "http://[fe80::1]:80"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.device.BaseURL(); got != tt.expected {
				t.Errorf("BaseURL() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestDevice_GetMetadata(t *testing.T) {
	var empty Device
	if empty.GetMetadata("fw") != "" {
		t.Error("GetMetadata on nil map should return empty string")
	}
}
