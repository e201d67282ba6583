package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidEnum is wrapped by every enum parse failure.
var ErrInvalidEnum = errors.New("invalid enum value")

// ErrInvalidStatus is returned for values outside the status taxonomy.
var ErrInvalidStatus = fmt.Errorf("%w: status", ErrInvalidEnum)

// Status is a pipeline stage. The zero value is not a valid status.
type Status string

const (
	StatusNew           Status = "NEW"
	StatusContacted     Status = "CONTACTED"
	StatusFormCompleted Status = "FORM_COMPLETED"
	StatusQualified     Status = "QUALIFIED"
	StatusQuoted        Status = "QUOTED"
	StatusConverted     Status = "CONVERTED"
	StatusClosedLost    Status = "CLOSED_LOST"
	StatusFollowUp      Status = "FOLLOW_UP"
)

var statusOrder = []Status{
	StatusNew,
	StatusContacted,
	StatusFormCompleted,
	StatusQualified,
	StatusQuoted,
	StatusConverted,
	StatusClosedLost,
	StatusFollowUp,
}

var statusLabels = map[Status]string{
	StatusNew:           "New Leads",
	StatusContacted:     "Contacted",
	StatusFormCompleted: "Form Completed",
	StatusQualified:     "Qualified",
	StatusQuoted:        "Quoted",
	StatusConverted:     "Converted",
	StatusClosedLost:    "Closed Lost",
	StatusFollowUp:      "Follow Up",
}

// Statuses returns the pipeline stages in board order.
func Statuses() []Status {
	out := make([]Status, len(statusOrder))
	copy(out, statusOrder)
	return out
}

// ParseStatus validates s against the taxonomy. Matching is case-insensitive
// and accepts dashes or spaces in place of underscores.
func ParseStatus(s string) (Status, error) {
	st := Status(normalizeEnum(s))
	if st.Valid() {
		return st, nil
	}
	return "", fmt.Errorf("%w %q", ErrInvalidStatus, s)
}

// Valid reports whether s is one of the taxonomy values.
func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Label is the column heading for the stage.
func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// Index is the position of s in board order, or -1.
func (s Status) Index() int {
	for i, st := range statusOrder {
		if st == s {
			return i
		}
	}
	return -1
}

// Terminal reports whether no further pipeline progress is expected.
func (s Status) Terminal() bool {
	return s == StatusConverted || s == StatusClosedLost
}

func (s Status) String() string { return string(s) }

// UnmarshalText rejects values outside the taxonomy.
func (s *Status) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s), nil
}

// Urgency is how soon the customer needs attention.
type Urgency string

const (
	UrgencyLow    Urgency = "LOW"
	UrgencyMedium Urgency = "MEDIUM"
	UrgencyHigh   Urgency = "HIGH"
	UrgencyUrgent Urgency = "URGENT"
)

var urgencies = []Urgency{UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyUrgent}

// ParseUrgency validates s.
func ParseUrgency(s string) (Urgency, error) {
	u := Urgency(normalizeEnum(s))
	for _, v := range urgencies {
		if v == u {
			return u, nil
		}
	}
	return "", fmt.Errorf("%w: urgency %q", ErrInvalidEnum, s)
}

// UnmarshalText rejects unknown urgencies.
func (u *Urgency) UnmarshalText(b []byte) error {
	v, err := ParseUrgency(string(b))
	if err != nil {
		return err
	}
	*u = v
	return nil
}

// ServiceType is the remediation service the lead asked about.
type ServiceType string

const (
	ServiceMouldInspection   ServiceType = "MOULD_INSPECTION"
	ServiceMouldRemediation  ServiceType = "MOULD_REMEDIATION"
	ServiceSubfloorTreatment ServiceType = "SUBFLOOR_TREATMENT"
	ServiceMaterialRemoval   ServiceType = "MATERIAL_REMOVAL"
	ServiceAirQualityTesting ServiceType = "AIR_QUALITY_TESTING"
	ServiceEmergencyResponse ServiceType = "EMERGENCY_RESPONSE"
)

var serviceTypes = []ServiceType{
	ServiceMouldInspection,
	ServiceMouldRemediation,
	ServiceSubfloorTreatment,
	ServiceMaterialRemoval,
	ServiceAirQualityTesting,
	ServiceEmergencyResponse,
}

// ParseServiceType validates s.
func ParseServiceType(s string) (ServiceType, error) {
	st := ServiceType(normalizeEnum(s))
	for _, v := range serviceTypes {
		if v == st {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: service type %q", ErrInvalidEnum, s)
}

// UnmarshalText rejects unknown service types.
func (t *ServiceType) UnmarshalText(b []byte) error {
	v, err := ParseServiceType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// Source is the channel the lead came in through.
type Source string

const (
	SourceWebsite     Source = "WEBSITE"
	SourcePhone       Source = "PHONE"
	SourceReferral    Source = "REFERRAL"
	SourceGoogleAds   Source = "GOOGLE_ADS"
	SourceSocialMedia Source = "SOCIAL_MEDIA"
	SourceEmail       Source = "EMAIL"
	SourceOther       Source = "OTHER"
)

var sources = []Source{
	SourceWebsite,
	SourcePhone,
	SourceReferral,
	SourceGoogleAds,
	SourceSocialMedia,
	SourceEmail,
	SourceOther,
}

// ParseSource validates s.
func ParseSource(s string) (Source, error) {
	src := Source(normalizeEnum(s))
	for _, v := range sources {
		if v == src {
			return src, nil
		}
	}
	return "", fmt.Errorf("%w: source %q", ErrInvalidEnum, s)
}

// UnmarshalText rejects unknown sources.
func (s *Source) UnmarshalText(b []byte) error {
	v, err := ParseSource(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func normalizeEnum(s string) string {
	s = strings.TrimSpace(strings.ToUpper(s))
	return strings.NewReplacer("-", "_", " ", "_").Replace(s)
}
