package adminchat

import "encoding/json"

// ============================================================================
// Shared Types
// ============================================================================

// APIError represents a backend-reported error.
type APIError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return e.Code + ": " + e.Message
}

// APIResult is the generic dashboard API response envelope.
type APIResult struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Total   int             `json:"totalData,omitempty"`
	Error   *APIError       `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Decode unmarshals the Data field into the provided type.
func (r *APIResult) Decode(v interface{}) error {
	if r.Data == nil {
		return nil
	}
	return json.Unmarshal(r.Data, v)
}

// Err converts a failed envelope into an error. Returns nil on success.
func (r *APIResult) Err() error {
	if r.Success {
		return nil
	}
	if r.Error != nil {
		return r.Error
	}
	msg := r.Message
	if msg == "" {
		msg = "request failed"
	}
	return &APIError{Message: msg}
}

// ============================================================================
// Chat Types
// ============================================================================

// UserRef identifies a dashboard or vendor user.
type UserRef struct {
	ID           string `json:"_id"`
	Name         string `json:"name"`
	ProfileImage string `json:"profileImage,omitempty"`
}

// Participant is one member of a conversation with read state.
type Participant struct {
	User     UserRef `json:"user"`
	LastRead string  `json:"lastRead,omitempty"`
}

// StoreRef identifies the counterparty store of a conversation.
type StoreRef struct {
	ID        string `json:"_id"`
	Name      string `json:"name"`
	StoreLogo string `json:"storeLogo,omitempty"`
}

// LastMessage is the denormalized inbox preview of a conversation's latest
// message. May lag behind the live message sequence.
type LastMessage struct {
	Text      string `json:"text"`
	Sender    string `json:"sender"`
	CreatedAt string `json:"createdAt"`
}

// Conversation is one support thread between the operator side and a store.
// Conversations are keyed by store, not by individual participant.
type Conversation struct {
	ID           string        `json:"_id"`
	Participants []Participant `json:"participants"`
	Store        StoreRef      `json:"store"`
	LastMessage  *LastMessage  `json:"lastMessage,omitempty"`
}

// Sender identifies the author of a message. Role distinguishes the
// operator side ("admin") from the counterparty side ("vendor").
type Sender struct {
	ID           string `json:"_id"`
	Name         string `json:"name"`
	Role         string `json:"role,omitempty"`
	ProfileImage string `json:"profileImage,omitempty"`
}

// FileAttachment is a file reference carried on a message.
type FileAttachment struct {
	URL      string `json:"url"`
	FileType string `json:"fileType"`
}

// Message is one chat message. The identifier is assigned server-side and is
// stable across delivery paths: the same logical message carries the same ID
// whether it arrives via history fetch, send confirmation, or push event.
//
// ConversationID is optional on push events; when absent the event is assumed
// to belong to the currently joined room.
type Message struct {
	ID             string           `json:"_id"`
	Sender         Sender           `json:"sender"`
	Text           string           `json:"text"`
	Files          []FileAttachment `json:"files,omitempty"`
	CreatedAt      string           `json:"createdAt"`
	ConversationID string           `json:"conversationId,omitempty"`
}

// ============================================================================
// Admin CRUD Types
// ============================================================================

// Banner is a promotional banner managed from the CMS screen.
type Banner struct {
	ID          string   `json:"_id"`
	Title       string   `json:"title"`
	Type        string   `json:"type"`
	Content     string   `json:"content,omitempty"`
	Images      []string `json:"images"`
	IsActive    bool     `json:"isActive"`
	Description string   `json:"description"`
	CreatedAt   string   `json:"createdAt,omitempty"`
	UpdatedAt   string   `json:"updatedAt,omitempty"`
}

// Category is a product category.
type Category struct {
	ID       string `json:"_id"`
	Name     string `json:"name"`
	Image    string `json:"image,omitempty"`
	IsActive bool   `json:"isActive"`
}

// SubscriptionPlan is a vendor subscription plan.
type SubscriptionPlan struct {
	ID           string   `json:"_id"`
	Name         string   `json:"name"`
	Price        float64  `json:"price"`
	DurationDays int      `json:"durationDays"`
	Features     []string `json:"features,omitempty"`
	IsActive     bool     `json:"isActive"`
}

// StaffMember is a store staff account.
type StaffMember struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
	Phone string `json:"phone,omitempty"`
}

// Vendor request statuses.
const (
	VendorPending  = "pending"
	VendorApproved = "approved"
	VendorRejected = "rejected"
)

// VendorRequest is a vendor onboarding request in the approval workflow.
type VendorRequest struct {
	ID        string `json:"_id"`
	Name      string `json:"name,omitempty"`
	StoreName string `json:"storeName,omitempty"`
	Email     string `json:"email"`
	City      string `json:"city,omitempty"`
	Address   string `json:"address,omitempty"`
	Country   string `json:"country,omitempty"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt,omitempty"`
}

// VendorPage is one page of vendor requests.
type VendorPage struct {
	Vendors []VendorRequest
	Total   int
}
