package bytesize

import "testing"

func TestParse(t *testing.T) {
	tests := []struct {
		in   string
		want ByteSize
	}{
		{"0", 0},
		{"1024", 1024},
		{"64Ki", 64 * KiB},
		{"64KiB", 64 * KiB},
		{"1Mi", MiB},
		{"10Mi", 10 * MiB},
		{"1MB", MB},
		{"2Gi", 2 * GiB},
		{"1.5Mi", ByteSize(1.5 * float64(MiB))},
		{" 512 Ki ", 512 * KiB},
	}

	for _, tt := range tests {
		got, err := Parse(tt.in)
		if err != nil {
			t.Errorf("Parse(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseInvalid(t *testing.T) {
	for _, in := range []string{"", "abc", "1Xi", "-5", "1 2Mi"} {
		if _, err := Parse(in); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", in)
		}
	}
}

func TestString(t *testing.T) {
	tests := []struct {
		in   ByteSize
		want string
	}{
		{MiB, "1Mi"},
		{64 * KiB, "64Ki"},
		{2 * GiB, "2Gi"},
		{1500, "1500"},
	}

	for _, tt := range tests {
		if got := tt.in.String(); got != tt.want {
			t.Errorf("(%d).String() = %q, want %q", uint64(tt.in), got, tt.want)
		}
	}
}

func TestUnmarshalText(t *testing.T) {
	var b ByteSize
	if err := b.UnmarshalText([]byte("4Mi")); err != nil {
		t.Fatalf("UnmarshalText: %v", err)
	}
	if b != 4*MiB {
		t.Errorf("got %d, want %d", b, 4*MiB)
	}
}
