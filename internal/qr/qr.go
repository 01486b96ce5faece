// Package qr handles appliance QR payloads: parsing scanned codes
// into appliance metadata and rendering printable labels that the
// mobile scanner reads back.
package qr

import (
	"encoding/json"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/sparkyhq/sparky/internal/model"
)

// DefaultLabelSize is the rendered label edge length in pixels
const DefaultLabelSize = 256

// ParsePayload decodes a scanned QR payload. JSON payloads carrying at
// least one identifying field become appliance metadata; anything else
// is treated as an opaque scan.
func ParsePayload(payload string) (*model.Appliance, bool) {
	var appliance model.Appliance
	if err := json.Unmarshal([]byte(payload), &appliance); err != nil {
		return nil, false
	}
	if appliance.Model == "" && appliance.SerialNumber == "" && appliance.Brand == "" {
		return nil, false
	}
	appliance.QRData = payload
	return &appliance, true
}

// ScanMessage builds the user message appended when a code is scanned
func ScanMessage(payload string) model.Message {
	msg := model.NewMessage(model.RoleUser, fmt.Sprintf("Scanned QR Code: %s", payload))
	msg.QRData = payload
	return msg
}

// LabelPNG renders an appliance descriptor as a QR label
func LabelPNG(appliance model.Appliance, size int) ([]byte, error) {
	if size <= 0 {
		size = DefaultLabelSize
	}
	// The label carries the descriptor without the scan-derived payload
	appliance.QRData = ""
	data, err := json.Marshal(appliance)
	if err != nil {
		return nil, fmt.Errorf("encode appliance: %w", err)
	}
	png, err := qrcode.Encode(string(data), qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("render label: %w", err)
	}
	return png, nil
}
