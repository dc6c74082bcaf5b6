package leap

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestHeaderStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{"200 OK", 200},
		{"201 Created", 201},
		{"204 NoContent", 204},
		{"404 NotFound", 404},
		{"", 0},
		{"garbage", 0},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			h := Header{StatusCode: tt.code}
			if got := h.Status(); got != tt.want {
				t.Errorf("Status() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMessageErr(t *testing.T) {
	ok := &Message{Header: Header{StatusCode: "200 OK", URL: "/device"}}
	if err := ok.Err(); err != nil {
		t.Errorf("Err() for 200 = %v, want nil", err)
	}

	unsolicited := &Message{Header: Header{URL: "/zone/1/status"}}
	if err := unsolicited.Err(); err != nil {
		t.Errorf("Err() without status = %v, want nil", err)
	}

	failed := &Message{Header: Header{StatusCode: "400 BadRequest", URL: "/zone/1/commandprocessor"}}
	if err := failed.Err(); !errors.Is(err, ErrRequestFailed) {
		t.Errorf("Err() for 400 = %v, want ErrRequestFailed", err)
	}
}

func TestMessageDecode(t *testing.T) {
	msg := &Message{
		Header: Header{URL: "/zone/1/status"},
		Body:   json.RawMessage(`{"ZoneStatus":{"Level":42,"Zone":{"href":"/zone/1"}}}`),
	}
	var body zoneStatusBody
	if err := msg.Decode(&body); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if body.ZoneStatus.Level == nil || *body.ZoneStatus.Level != 42 {
		t.Errorf("Level = %v, want 42", body.ZoneStatus.Level)
	}

	empty := &Message{Header: Header{URL: "/device"}}
	if err := empty.Decode(&body); !errors.Is(err, ErrRequestFailed) {
		t.Errorf("Decode() of empty body error = %v, want ErrRequestFailed", err)
	}
}

func TestMessageWireFormat(t *testing.T) {
	msg := Message{
		CommuniqueType: ReadRequest,
		Header:         Header{URL: "/device", ClientTag: "abc"},
	}
	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"CommuniqueType":"ReadRequest","Header":{"Url":"/device","ClientTag":"abc"}}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}
}

func TestIDFromHref(t *testing.T) {
	tests := []struct {
		href string
		want string
	}{
		{"/device/5", "5"},
		{"/zone/3/status", "3"},
		{"/occupancygroup/2/status", "2"},
		{"/area/12", "12"},
		{"/device", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.href, func(t *testing.T) {
			if got := idFromHref(tt.href); got != tt.want {
				t.Errorf("idFromHref(%q) = %q, want %q", tt.href, got, tt.want)
			}
		})
	}
}

func TestSerialNumber_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    SerialNumber
		wantErr bool
	}{
		{"number", `12345`, "12345", false},
		{"large number", `4294967295`, "4294967295", false},
		{"string", `"12345"`, "12345", false},
		{"hex string", `"0x1A2B"`, "0x1A2B", false},
		{"null", `null`, "", false},
		{"bool", `true`, "", true},
		{"object", `{}`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s SerialNumber
			err := json.Unmarshal([]byte(tt.input), &s)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal(%s) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && s != tt.want {
				t.Errorf("Unmarshal(%s) = %q, want %q", tt.input, s, tt.want)
			}
		})
	}
}

func TestSerialNumber_MarshalJSON(t *testing.T) {
	tests := []struct {
		serial SerialNumber
		want   string
	}{
		{"12345", `12345`},
		{"0", `0`},
		{"0123", `"0123"`},
		{"00", `"00"`},
		{"0x1A2B", `"0x1A2B"`},
		{"", `""`},
	}

	for _, tt := range tests {
		t.Run(string(tt.serial), func(t *testing.T) {
			got, err := json.Marshal(tt.serial)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Marshal(%q) = %s, want %s", tt.serial, got, tt.want)
			}

			var back SerialNumber
			if err := json.Unmarshal(got, &back); err != nil {
				t.Fatalf("Unmarshal(%s) error = %v", got, err)
			}
			if back != tt.serial {
				t.Errorf("round trip = %q, want %q", back, tt.serial)
			}
		})
	}
}

func TestDomainOf(t *testing.T) {
	tests := []struct {
		deviceType string
		want       string
	}{
		{"WallDimmer", DomainLight},
		{"PlugInDimmer", DomainLight},
		{"WallSwitch", DomainSwitch},
		{"OutdoorPlugInSwitch", DomainSwitch},
		{"SerenaRollerShade", DomainCover},
		{"CasetaFanSpeedController", DomainFan},
		{"SmartBridge", ""},
		{"Pico3ButtonRaiseLower", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.deviceType, func(t *testing.T) {
			if got := DomainOf(tt.deviceType); got != tt.want {
				t.Errorf("DomainOf(%q) = %q, want %q", tt.deviceType, got, tt.want)
			}
		})
	}
}
