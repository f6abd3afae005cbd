package main

import "testing"

func TestContentTypeFor(t *testing.T) {
	tests := []struct {
		path    string
		want    string
		wantErr bool
	}{
		{path: "", wantErr: true},
		{path: "call.wav", want: "audio/wav"},
		{path: "CALL.MP3", want: "audio/mpeg"},
		{path: "/tmp/voicemail.m4a", want: "audio/x-m4a"},
		{path: "call.ogg", wantErr: true},
		{path: "call", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := contentTypeFor(tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("contentTypeFor(%q) err = %v, wantErr %v", tt.path, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("contentTypeFor(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}
