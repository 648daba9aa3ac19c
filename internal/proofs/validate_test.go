package proofs

import "testing"

func TestValidateFile(t *testing.T) {
	tests := []struct {
		name     string
		mimeType string
		size     int64
		want     bool
	}{
		{"receipt.png", "image/png", 3 << 20, true},
		{"receipt.jpg", "image/jpeg", 1 << 20, true},
		{"receipt.pdf", "application/pdf", 4 << 20, true},
		{"huge.jpg", "image/jpeg", 6 << 20, false},
		{"notes.txt", "text/plain", 1024, false},
		{"clip.gif", "image/gif", 1024, false},
		{"exact.png", "image/png", MaxFileSize, true},
		{"over.png", "image/png", MaxFileSize + 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateFile(tt.name, tt.mimeType, tt.size)
			if got.Valid != tt.want {
				t.Fatalf("ValidateFile(%q, %q, %d) valid = %v, want %v (reason: %s)",
					tt.name, tt.mimeType, tt.size, got.Valid, tt.want, got.Reason)
			}
			if !got.Valid && got.Reason == "" {
				t.Errorf("rejected file must carry a reason")
			}
		})
	}
}

func TestGetFileInfo(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		isImage bool
		isPDF   bool
	}{
		{
			url:   "https://firebasestorage.googleapis.com/v0/b/shop.appspot.com/o/comprobantes%2Fuser-1%2Freceipt_123.pdf?alt=media&token=abc",
			want:  "pdf",
			isPDF: true,
		},
		{
			url:     "https://bucket.s3.us-east-1.amazonaws.com/comprobantes/user-1/42_ab12.png",
			want:    "png",
			isImage: true,
		},
		{
			url:     "https://bucket.s3.us-east-1.amazonaws.com/comprobantes/user-1/42_ab12.JPG?X-Amz-Expires=300",
			want:    "jpg",
			isImage: true,
		},
		{
			url:  "https://example.com/file.bin",
			want: "bin",
		},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := GetFileInfo(tt.url)
			if got.FileType != tt.want {
				t.Errorf("FileType = %q, want %q", got.FileType, tt.want)
			}
			if got.IsImage != tt.isImage {
				t.Errorf("IsImage = %v, want %v", got.IsImage, tt.isImage)
			}
			if got.IsPDF != tt.isPDF {
				t.Errorf("IsPDF = %v, want %v", got.IsPDF, tt.isPDF)
			}
		})
	}
}
