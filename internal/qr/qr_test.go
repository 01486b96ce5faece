package qr

import (
	"bytes"
	"strings"
	"testing"

	"github.com/sparkyhq/sparky/internal/model"
)

func TestParsePayload(t *testing.T) {
	tests := []struct {
		name      string
		payload   string
		wantOK    bool
		wantModel string
		wantBrand string
	}{
		{
			name:      "appliance descriptor",
			payload:   `{"model":"WTW5000DW","brand":"Whirlpool","serialNumber":"C81234567"}`,
			wantOK:    true,
			wantModel: "WTW5000DW",
			wantBrand: "Whirlpool",
		},
		{
			name:    "json without identifying fields",
			payload: `{"foo":"bar"}`,
			wantOK:  false,
		},
		{
			name:    "opaque text",
			payload: "https://example.com/manual/WTW5000DW",
			wantOK:  false,
		},
		{
			name:    "empty",
			payload: "",
			wantOK:  false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			appliance, ok := ParsePayload(tc.payload)
			if ok != tc.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tc.wantOK)
			}
			if !ok {
				return
			}
			if appliance.Model != tc.wantModel || appliance.Brand != tc.wantBrand {
				t.Errorf("appliance = %+v", appliance)
			}
			if appliance.QRData != tc.payload {
				t.Errorf("QRData = %q, want original payload", appliance.QRData)
			}
		})
	}
}

func TestScanMessage(t *testing.T) {
	msg := ScanMessage("SN:C81234567")

	if msg.Role != model.RoleUser {
		t.Errorf("role = %q, want user", msg.Role)
	}
	if !strings.HasPrefix(msg.Content, "Scanned QR Code: ") {
		t.Errorf("content = %q", msg.Content)
	}
	if msg.QRData != "SN:C81234567" {
		t.Errorf("qrData = %q", msg.QRData)
	}
	if !model.ValidID(msg.ID) {
		t.Errorf("id %q is not canonical", msg.ID)
	}
}

func TestLabelPNG(t *testing.T) {
	appliance := model.Appliance{
		Model:        "WTW5000DW",
		Brand:        "Whirlpool",
		SerialNumber: "C81234567",
		QRData:       "should not end up in the label",
	}

	png, err := LabelPNG(appliance, 0)
	if err != nil {
		t.Fatalf("LabelPNG: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Errorf("output is not a PNG (%d bytes)", len(png))
	}
}
