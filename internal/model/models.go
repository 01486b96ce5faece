package model

import (
	"time"

	"github.com/google/uuid"
)

// Message roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultTitle is the placeholder title for new conversations
const DefaultTitle = "New Conversation"

// Annotation is a drawing overlay on an attached image
type Annotation struct {
	Type    string  `json:"type"` // "circle", "arrow" or "text"
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Content string  `json:"content,omitempty"`
}

// Message is a single turn in a conversation.
// The role is fixed at creation and the id is assigned by the creator,
// never by the store.
type Message struct {
	ID          string       `json:"id"`
	Role        string       `json:"role"`
	Content     string       `json:"content"`
	Timestamp   time.Time    `json:"timestamp"`
	Images      []string     `json:"images,omitempty"`
	Videos      []string     `json:"videos,omitempty"`
	Annotations []Annotation `json:"annotations,omitempty"`
	Error       string       `json:"error,omitempty"`
	QRData      string       `json:"qrData,omitempty"`
}

// NewMessage creates a message with a fresh UUID and the current time
func NewMessage(role, content string) Message {
	return Message{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// Warranty describes an appliance's warranty coverage
type Warranty struct {
	Type           string   `json:"type"`
	ExpirationDate string   `json:"expirationDate"`
	Coverage       []string `json:"coverage"`
}

// RepairRecord is one entry in an appliance's repair history
type RepairRecord struct {
	Date       string   `json:"date"`
	Issue      string   `json:"issue"`
	Resolution string   `json:"resolution"`
	Parts      []string `json:"parts"`
	Technician string   `json:"technician"`
}

// Appliance holds metadata about the unit being serviced, usually
// populated from a scanned QR label
type Appliance struct {
	Model         string         `json:"model,omitempty"`
	SerialNumber  string         `json:"serialNumber,omitempty"`
	QRData        string         `json:"qrData,omitempty"`
	Brand         string         `json:"brand,omitempty"`
	Type          string         `json:"type,omitempty"`
	InstallDate   string         `json:"installDate,omitempty"`
	Warranty      *Warranty      `json:"warrantyInfo,omitempty"`
	RepairHistory []RepairRecord `json:"repairHistory,omitempty"`
}

// Part availability states
const (
	PartInStock      = "in-stock"
	PartBackordered  = "backordered"
	PartDiscontinued = "discontinued"
)

// Part is a replacement part identified during diagnosis
type Part struct {
	PartNumber   string  `json:"partNumber"`
	Description  string  `json:"description"`
	Quantity     int     `json:"quantity"`
	Price        float64 `json:"price"`
	Availability string  `json:"availability"`
}

// Conversation is an ordered thread of messages for one repair session.
// Messages are append-only; insertion order is preserved across
// persistence round-trips.
type Conversation struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Messages      []Message  `json:"messages"`
	Timestamp     time.Time  `json:"timestamp"`
	Appliance     *Appliance `json:"appliance,omitempty"`
	EstimatedTime int        `json:"estimatedTime,omitempty"` // minutes
	PartsNeeded   []Part     `json:"partsNeeded,omitempty"`
}

// NewConversation creates an empty conversation with a fresh UUID and
// the placeholder title
func NewConversation() Conversation {
	return Conversation{
		ID:        uuid.New().String(),
		Title:     DefaultTitle,
		Messages:  []Message{},
		Timestamp: time.Now(),
	}
}

// AIProvider is a configured AI backend
type AIProvider struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	APIKey  string `json:"apiKey,omitempty"`
	Enabled bool   `json:"enabled"`
}

// AppConfig holds the provider configuration
type AppConfig struct {
	ActiveProvider string       `json:"activeProvider"`
	Providers      []AIProvider `json:"providers"`
}

// DefaultConfig returns the out-of-the-box provider configuration
func DefaultConfig() AppConfig {
	return AppConfig{
		ActiveProvider: "openai",
		Providers: []AIProvider{
			{ID: "openai", Name: "OpenAI (GPT-4)", Enabled: true},
		},
	}
}

// Provider looks up a provider by id
func (c AppConfig) Provider(id string) (AIProvider, bool) {
	for _, p := range c.Providers {
		if p.ID == id {
			return p, true
		}
	}
	return AIProvider{}, false
}

// ValidID reports whether id is a canonical UUID. Remote mirroring is
// gated on this so malformed ids never reach the replica.
func ValidID(id string) bool {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return false
	}
	// uuid.Parse accepts urn: and braced forms; only the plain
	// hyphenated form is canonical here
	return parsed.String() == id
}
