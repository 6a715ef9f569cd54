package minio

import "testing"

func TestObjectURL(t *testing.T) {
	cases := []struct {
		name, public, endpoint, want string
	}{
		{"public", "https://cdn.example.com/", "http://minio:9000", "https://cdn.example.com/summaries/a.json"},
		{"endpoint", "", "http://minio:9000/", "http://minio:9000/bucket/summaries/a.json"},
		{"bare", "", "", "/bucket/summaries/a.json"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := objectURL(tc.public, tc.endpoint, "bucket", "/summaries/a.json"); got != tc.want {
				t.Fatalf("objectURL = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestNewRequiresBucket(t *testing.T) {
	if _, err := New(t.Context(), Config{Endpoint: "localhost:9000"}); err == nil {
		t.Fatalf("expected error without bucket")
	}
}
