package domain

import (
	"errors"
	"time"
)

// Role is the access role carried by a contact record. A contact starts
// as a prospect and may be promoted to client by an external admin
// action; staff accounts are provisioned out of band.
type Role string

const (
	RoleProspect Role = "prospect"
	RoleClient   Role = "client"
	RoleStaff    Role = "staff"
)

// ProspectStatus tracks where a contact sits in the sales funnel.
type ProspectStatus string

const (
	ProspectNew         ProspectStatus = "new"
	ProspectContacted   ProspectStatus = "contacted"
	ProspectDemoSent    ProspectStatus = "demo_sent"
	ProspectOfferSent   ProspectStatus = "offer_sent"
	ProspectNegotiation ProspectStatus = "negotiation"
	ProspectMeeting     ProspectStatus = "meeting"
	ProspectProposal    ProspectStatus = "proposal"
	ProspectWon         ProspectStatus = "won"
	ProspectLost        ProspectStatus = "lost"
)

// Contact is a person known to the agency: prospect, client or staff.
type Contact struct {
	ID             string         `json:"id"`
	FirebaseUID    string         `json:"-"`
	Email          string         `json:"email"`
	DisplayName    string         `json:"display_name"`
	Role           Role           `json:"role"`
	ProspectStatus ProspectStatus `json:"prospect_status,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

var ErrNotFound = errors.New("contact not found")
