package bus

import "testing"

func TestJSONCodecRoundTrips(t *testing.T) {
	want := ListTargetsResponse{Targets: []TargetInfo{{StableId: "host", Class: "host"}}}

	data, err := jsonCodec{}.Marshal(&want)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var got ListTargetsResponse
	if err := (jsonCodec{}).Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(got.Targets) != 1 || got.Targets[0].StableId != "host" {
		t.Errorf("got %+v", got)
	}
}

func TestJSONCodecName(t *testing.T) {
	if got := (jsonCodec{}).Name(); got != "json" {
		t.Errorf("Name() = %q, want json", got)
	}
}
