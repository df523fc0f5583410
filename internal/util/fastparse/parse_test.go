package fastparse

import (
	"errors"
	"testing"
)

func TestParsePrice(t *testing.T) {
	cases := []struct {
		in      string
		want    float64
		wantErr error
		anyErr  bool
	}{
		{in: "1.0825", want: 1.0825},
		{in: "", want: 0},
		{in: "0", want: 0},
		{in: "-1", wantErr: ErrInvalidPrice},
		{in: "NaN", wantErr: ErrInvalidPrice},
		{in: "+Inf", wantErr: ErrInvalidPrice},
		{in: "abc", anyErr: true},
	}
	for _, tc := range cases {
		got, err := ParsePrice(tc.in)
		switch {
		case tc.wantErr != nil:
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("ParsePrice(%q) err=%v, want %v", tc.in, err, tc.wantErr)
			}
		case tc.anyErr:
			if err == nil {
				t.Errorf("ParsePrice(%q) 应返回错误", tc.in)
			}
		default:
			if err != nil || got != tc.want {
				t.Errorf("ParsePrice(%q)=%v,%v, want %v", tc.in, got, err, tc.want)
			}
		}
	}
}

func TestFormat(t *testing.T) {
	if got := FormatFloat(1.5, -1); got != "1.5" {
		t.Errorf("FormatFloat=%s", got)
	}
	if got := FormatInt(-42); got != "-42" {
		t.Errorf("FormatInt=%s", got)
	}
	if got := FormatBool(true); got != "true" {
		t.Errorf("FormatBool=%s", got)
	}
}
