package leap

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Communique types used by this client.
const (
	ReadRequest      = "ReadRequest"
	CreateRequest    = "CreateRequest"
	SubscribeRequest = "SubscribeRequest"
	ReadResponse     = "ReadResponse"
	CreateResponse   = "CreateResponse"
)

// Message is one LEAP communique. Messages travel as single-line JSON
// documents terminated by CRLF.
type Message struct {
	CommuniqueType string          `json:"CommuniqueType"`
	Header         Header          `json:"Header"`
	Body           json.RawMessage `json:"Body,omitempty"`
}

// Header carries routing and status information.
type Header struct {
	StatusCode      string `json:"StatusCode,omitempty"`
	URL             string `json:"Url"`
	MessageBodyType string `json:"MessageBodyType,omitempty"`
	ClientTag       string `json:"ClientTag,omitempty"`
}

// Status parses the numeric part of StatusCode ("200 OK" -> 200).
// Messages without a status report 0.
func (h Header) Status() int {
	code, _, _ := strings.Cut(h.StatusCode, " ")
	n, err := strconv.Atoi(code)
	if err != nil {
		return 0
	}
	return n
}

// Err returns ErrRequestFailed for a non-2xx status.
func (m *Message) Err() error {
	if status := m.Header.Status(); status != 0 && (status < 200 || status > 299) {
		return fmt.Errorf("%w: %s %s", ErrRequestFailed, m.Header.URL, m.Header.StatusCode)
	}
	return nil
}

// Decode unmarshals the body into v.
func (m *Message) Decode(v any) error {
	if len(m.Body) == 0 {
		return fmt.Errorf("%w: %s: empty body", ErrRequestFailed, m.Header.URL)
	}
	if err := json.Unmarshal(m.Body, v); err != nil {
		return fmt.Errorf("decoding %s body: %w", m.Header.URL, err)
	}
	return nil
}

// href is a LEAP resource reference.
type href struct {
	Href string `json:"href"`
}

// command is the body of a commandprocessor CreateRequest.
type command struct {
	Command commandBody `json:"Command"`
}

type commandBody struct {
	CommandType        string              `json:"CommandType"`
	Parameter          []commandParameter  `json:"Parameter,omitempty"`
	FanSpeedParameters *fanSpeedParameters `json:"FanSpeedParameters,omitempty"`
}

type commandParameter struct {
	Type  string `json:"Type"`
	Value any    `json:"Value"`
}

type fanSpeedParameters struct {
	FanSpeed FanSpeed `json:"FanSpeed"`
}

// Response bodies.

type devicesBody struct {
	Devices []deviceDefinition `json:"Devices"`
}

type deviceDefinition struct {
	Href         string       `json:"href"`
	Name         string       `json:"Name"`
	SerialNumber SerialNumber `json:"SerialNumber"`
	DeviceType   string       `json:"DeviceType"`
	ModelNumber  string       `json:"ModelNumber"`
	LocalZones   []href       `json:"LocalZones"`
}

type zoneStatusBody struct {
	ZoneStatus zoneStatus `json:"ZoneStatus"`
}

type zoneStatus struct {
	Href     string   `json:"href"`
	Level    *int     `json:"Level,omitempty"`
	FanSpeed FanSpeed `json:"FanSpeed,omitempty"`
	Zone     href     `json:"Zone"`
}

type virtualButtonsBody struct {
	VirtualButtons []virtualButton `json:"VirtualButtons"`
}

type virtualButton struct {
	Href         string `json:"href"`
	Name         string `json:"Name"`
	IsProgrammed bool   `json:"IsProgrammed"`
}

type areasBody struct {
	Areas []area `json:"Areas"`
}

type area struct {
	Href string `json:"href"`
	Name string `json:"Name"`
}

type occupancyGroupsBody struct {
	OccupancyGroups []occupancyGroupDefinition `json:"OccupancyGroups"`
}

type occupancyGroupDefinition struct {
	Href            string `json:"href"`
	AssociatedAreas []struct {
		Area href `json:"Area"`
	} `json:"AssociatedAreas"`
	OccupancyStatus OccupancyStatus `json:"OccupancyStatus"`
}

type occupancyGroupStatusesBody struct {
	OccupancyGroupStatuses []occupancyGroupStatus `json:"OccupancyGroupStatuses"`
}

type occupancyGroupStatus struct {
	Href            string          `json:"href"`
	OccupancyGroup  href            `json:"OccupancyGroup"`
	OccupancyStatus OccupancyStatus `json:"OccupancyStatus"`
}

// idFromHref returns the id segment of a resource reference:
// "/device/5" -> "5", "/zone/3/status" -> "3".
func idFromHref(ref string) string {
	parts := strings.Split(strings.Trim(ref, "/"), "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}
