package storage

import "testing"

func TestDetectStorageType(t *testing.T) {
	tests := []struct {
		endpoint string
		want     StorageType
	}{
		{"abc123.r2.cloudflarestorage.com", StorageTypeR2},
		{"s3.amazonaws.com", StorageTypeS3},
		{"s3.us-west-2.amazonaws.com", StorageTypeS3},
		{"localhost:9000", StorageTypeMinIO},
		{"minio.internal:9000", StorageTypeMinIO},
	}

	for _, tt := range tests {
		if got := detectStorageType(tt.endpoint); got != tt.want {
			t.Errorf("detectStorageType(%q) = %s, want %s", tt.endpoint, got, tt.want)
		}
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"https://s3.amazonaws.com", "s3.amazonaws.com"},
		{"http://localhost:9000", "localhost:9000"},
		{"localhost:9000/", "localhost:9000"},
		{"https://example.com/some/path", "example.com"},
		{"example.com", "example.com"},
	}

	for _, tt := range tests {
		if got := normalizeEndpoint(tt.input); got != tt.want {
			t.Errorf("normalizeEndpoint(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNew_UnknownType(t *testing.T) {
	_, err := New(&Config{Type: "ftp"})
	if err == nil {
		t.Fatal("expected error for unknown storage type")
	}
}
