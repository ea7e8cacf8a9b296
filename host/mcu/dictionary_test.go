package mcu

import (
	"testing"
)

const sampleDictionary = `version servoplex-test
const SERVOS_PER_TIMER 10
resp 0 identify_response offset=%u data=%*s
cmd 1 identify offset=%u count=%c
cmd 2 get_servo_config
resp 3 servo_status oid=%c code=%c
`

func TestParseDictionary(t *testing.T) {
	d, err := ParseDictionary([]byte(sampleDictionary))
	if err != nil {
		t.Fatalf("ParseDictionary failed: %v", err)
	}

	if d.Version != "servoplex-test" {
		t.Errorf("Expected version servoplex-test, got %s", d.Version)
	}
	if len(d.Commands) != 2 || len(d.Responses) != 2 {
		t.Errorf("Expected 2 commands and 2 responses, got %d and %d", len(d.Commands), len(d.Responses))
	}

	msg, ok := d.Lookup(0)
	if !ok || msg.Name != "identify_response" || msg.Params[1].Type != "%*s" {
		t.Errorf("Expected identify_response at 0, got %+v", msg)
	}
	if got := d.Commands["identify"].Format(); got != "identify offset=%u count=%c" {
		t.Errorf("Expected format round trip, got %q", got)
	}
	if len(d.Commands["get_servo_config"].Params) != 0 {
		t.Error("Expected get_servo_config to take no parameters")
	}
}

func TestParseDictionaryErrors(t *testing.T) {
	testCases := map[string]string{
		"no version":    "cmd 1 identify offset=%u count=%c\n",
		"bad id":        "version v\ncmd x identify\n",
		"bad parameter": "version v\ncmd 1 identify offset\n",
		"bad constant":  "version v\nconst ONLY_NAME\n",
	}

	for name, text := range testCases {
		if _, err := ParseDictionary([]byte(text)); err == nil {
			t.Errorf("%s: expected parse error", name)
		}
	}
}

func TestSortedMessages(t *testing.T) {
	d, _ := ParseDictionary([]byte(sampleDictionary))
	msgs := sortedMessages(d.Responses)
	if len(msgs) != 2 || msgs[0].ID != 0 || msgs[1].ID != 3 {
		t.Errorf("Expected responses sorted by ID, got %+v", msgs)
	}
}
